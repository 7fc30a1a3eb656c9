package optimizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// FallbackMessage is shown when a failure carries no usable detail.
const FallbackMessage = "Failed to optimize"

// APIError is a non-2xx answer of the optimization service.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("optimizer api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("optimizer api error: status %d: %s", e.StatusCode, e.Detail)
}

// Message returns the text to show next to the form.
func Message(err error) string {
	var validationErr ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Error()
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return FallbackMessage
}

// Client calls the remote debt-vs-invest optimization service. Requests are
// never retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создает клиент сервиса оптимизации.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL returns the configured service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Optimize сравнивает погашение одного кредита и инвестирование.
func (c *Client) Optimize(ctx context.Context, req OptimizationRequest) (OptimizationResult, error) {
	var out OptimizationResult
	err := c.do(ctx, http.MethodPost, "/api/optimize", req, &out)
	return out, err
}

// OptimizeMultiLoan ранжирует несколько кредитов и дает общую рекомендацию.
func (c *Client) OptimizeMultiLoan(ctx context.Context, req MultiLoanRequest) (MultiLoanResult, error) {
	var out MultiLoanResult
	err := c.do(ctx, http.MethodPost, "/api/optimize-multi-loan", req, &out)
	return out, err
}

// GeneratePlan запрашивает персональный инвестиционный план.
func (c *Client) GeneratePlan(ctx context.Context, req PersonalizedPlanRequest) (InvestmentPlan, error) {
	var out InvestmentPlan
	err := c.do(ctx, http.MethodPost, "/api/plan/generate", req, &out)
	return out, err
}

// CreateInvestmentPlan запрашивает простой ETF план по шкале риска 1-10.
func (c *Client) CreateInvestmentPlan(ctx context.Context, req SimplePlanRequest) (SimplePlan, error) {
	var out SimplePlan
	err := c.do(ctx, http.MethodPost, "/api/investments/create-plan", req, &out)
	return out, err
}

// AnalyzeInvestments анализирует подключенный инвестиционный счет.
func (c *Client) AnalyzeInvestments(ctx context.Context, req AnalyzeRequest) (AnalyzeResult, error) {
	var out AnalyzeResult
	err := c.do(ctx, http.MethodPost, "/api/investments/analyze", req, &out)
	return out, err
}

// CompletePicture возвращает сводку по всем подключенным счетам.
func (c *Client) CompletePicture(ctx context.Context, req AccessTokenRequest) (CompletePicture, error) {
	var out CompletePicture
	err := c.do(ctx, http.MethodPost, "/api/dashboard/complete-picture", req, &out)
	return out, err
}

// ActionPlan возвращает приоритизированный список действий.
func (c *Client) ActionPlan(ctx context.Context, req ActionPlanRequest) (ActionPlan, error) {
	var out ActionPlan
	err := c.do(ctx, http.MethodPost, "/api/dashboard/action-plan", req, &out)
	return out, err
}

// VOOLive возвращает котировку индексного фонда.
func (c *Client) VOOLive(ctx context.Context) (Quote, error) {
	var out Quote
	err := c.do(ctx, http.MethodGet, "/api/market/voo-live", nil, &out)
	return out, err
}

// CreateLinkToken открывает сессию привязки счета.
func (c *Client) CreateLinkToken(ctx context.Context, req LinkTokenRequest) (LinkToken, error) {
	var out LinkToken
	err := c.do(ctx, http.MethodPost, "/api/plaid/create-link-token", req, &out)
	return out, err
}

// ExchangeToken обменивает публичный токен на токен доступа.
func (c *Client) ExchangeToken(ctx context.Context, req ExchangeRequest) (ExchangeResult, error) {
	var out ExchangeResult
	err := c.do(ctx, http.MethodPost, "/api/plaid/exchange-token", req, &out)
	return out, err
}

// Balance возвращает балансы привязанных счетов.
func (c *Client) Balance(ctx context.Context, req AccessTokenRequest) (Balance, error) {
	var out Balance
	err := c.do(ctx, http.MethodPost, "/api/plaid/balance", req, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}

	request.Header.Set("Accept", "application/json")
	if in != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return &APIError{StatusCode: response.StatusCode, Detail: parseDetail(raw)}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}

	return nil
}

// parseDetail reads the FastAPI error body. Validation errors arrive as a
// list of objects, plain errors as a string.
func parseDetail(raw []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return strings.TrimSpace(text)
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil {
		messages := make([]string, 0, len(items))
		for _, item := range items {
			if item.Msg != "" {
				messages = append(messages, item.Msg)
			}
		}
		return strings.Join(messages, "; ")
	}

	return ""
}
