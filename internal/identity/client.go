package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNoSession = errors.New("identity: no session")

// Error is a non-2xx answer of the auth provider.
type Error struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("identity provider error: status %d", e.StatusCode)
	}
	return e.Message
}

// Unauthorized reports whether the provider rejected the token or credentials.
func (e *Error) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden || e.Code == "invalid_grant"
}

// Client talks to a GoTrue-compatible auth REST API.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

// NewClient создает клиент провайдера аутентификации.
func NewClient(baseURL, anonKey string, timeout time.Duration) *Client {
	trimmed := strings.TrimRight(baseURL, "/")
	if !strings.HasSuffix(trimmed, "/auth/v1") {
		trimmed += "/auth/v1"
	}
	return &Client{
		baseURL: trimmed,
		anonKey: anonKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SignUp регистрирует пользователя с полным именем в метаданных.
func (c *Client) SignUp(ctx context.Context, params SignUpParams) (SignUpResult, error) {
	body := credentialsRequest{
		Email:    params.Email,
		Password: params.Password,
	}
	if params.FullName != "" {
		body.Data = &UserMetadata{FullName: params.FullName}
	}

	var parsed signUpResponse
	if err := c.do(ctx, http.MethodPost, "/signup", "", body, &parsed); err != nil {
		return SignUpResult{}, err
	}

	if parsed.AccessToken != "" {
		session := parsed.Session
		return SignUpResult{User: session.User, Session: &session}, nil
	}

	return SignUpResult{
		User: User{ID: parsed.ID, Email: parsed.Email, UserMetadata: parsed.Meta},
	}, nil
}

// SignInWithPassword выполняет вход по email и паролю.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (Session, error) {
	var session Session
	err := c.do(ctx, http.MethodPost, "/token?grant_type=password", "", credentialsRequest{Email: email, Password: password}, &session)
	if err != nil {
		return Session{}, err
	}
	if session.AccessToken == "" {
		return Session{}, ErrNoSession
	}
	return session, nil
}

// RefreshSession обновляет пару токенов по refresh-токену.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (Session, error) {
	if refreshToken == "" {
		return Session{}, ErrNoSession
	}

	var session Session
	err := c.do(ctx, http.MethodPost, "/token?grant_type=refresh_token", "", refreshRequest{RefreshToken: refreshToken}, &session)
	if err != nil {
		return Session{}, err
	}
	if session.AccessToken == "" {
		return Session{}, ErrNoSession
	}
	return session, nil
}

// GetUser возвращает пользователя по access-токену.
func (c *Client) GetUser(ctx context.Context, accessToken string) (User, error) {
	if accessToken == "" {
		return User{}, ErrNoSession
	}

	var user User
	if err := c.do(ctx, http.MethodGet, "/user", accessToken, nil, &user); err != nil {
		return User{}, err
	}
	if user.ID == uuid.Nil {
		return User{}, ErrNoSession
	}
	return user, nil
}

// UpdateUser меняет пароль или полное имя пользователя.
func (c *Client) UpdateUser(ctx context.Context, accessToken string, update UserUpdate) (User, error) {
	body := updateRequest{Password: update.Password}
	if update.FullName != nil {
		body.Data = &UserMetadata{FullName: *update.FullName}
	}

	var user User
	if err := c.do(ctx, http.MethodPut, "/user", accessToken, body, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// SignOut отзывает refresh-токены сессии у провайдера.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	return c.do(ctx, http.MethodPost, "/logout", accessToken, nil, nil)
}

// ResetPasswordForEmail отправляет письмо для сброса пароля.
func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	path := "/recover"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	return c.do(ctx, http.MethodPost, path, "", recoverRequest{Email: email}, nil)
}

func (c *Client) do(ctx context.Context, method, path, accessToken string, in, out any) error {
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

	bearer := c.anonKey
	if accessToken != "" {
		bearer = accessToken
	}
	request.Header.Set("apikey", c.anonKey)
	request.Header.Set("Authorization", "Bearer "+bearer)
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
		return parseError(response.StatusCode, raw)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	return json.Unmarshal(raw, out)
}

func parseError(status int, raw []byte) *Error {
	out := &Error{StatusCode: status}

	var parsed errorResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		out.Message = strings.TrimSpace(string(raw))
		return out
	}

	out.Code = parsed.ErrorCode
	if out.Code == "" {
		out.Code = parsed.Error
	}

	for _, candidate := range []string{parsed.ErrorDescription, parsed.Msg, parsed.Message, parsed.Error} {
		if candidate != "" {
			out.Message = candidate
			break
		}
	}
	return out
}
