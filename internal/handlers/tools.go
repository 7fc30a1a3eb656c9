package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"example.com/networth-optimizer/web/internal/calculator"
	"example.com/networth-optimizer/web/internal/catalog"
	"example.com/networth-optimizer/web/internal/export"
	"example.com/networth-optimizer/web/internal/view"
)

const (
	defaultCurrentAge = 20
	invalidInputText  = "Please enter valid, non-negative numbers"
)

type ToolsHandler struct {
	pages
	Quotes QuoteProvider
	now    func() time.Time
}

// NewToolsHandler создает обработчик публичных страниц и калькуляторов.
func NewToolsHandler(c *catalog.Catalog, quotes QuoteProvider) *ToolsHandler {
	return &ToolsHandler{
		pages:  pages{catalog: c},
		Quotes: quotes,
		now:    time.Now,
	}
}

type Calc401kResponse struct {
	Result   calculator.Result401k    `json:"result"`
	Schedule []calculator.YearBalance `json:"schedule"`
}

type RothResponse struct {
	Result   calculator.ResultRoth    `json:"result"`
	Schedule []calculator.YearBalance `json:"schedule"`
}

// Home рендерит главную страницу с котировкой индекса.
func (h *ToolsHandler) Home(c echo.Context) error {
	data := view.HomeData{}
	if h.Quotes != nil {
		if quote, err := h.Quotes.Quote(c.Request().Context()); err == nil {
			data.Quote = &quote
		}
	}
	return h.render(c, http.StatusOK, "home.html", "Home", "home", data)
}

// Tools рендерит каталог инструментов.
func (h *ToolsHandler) Tools(c echo.Context) error {
	return h.render(c, http.StatusOK, "tools.html", "Tools", "tools", nil)
}

// Calc401k считает 401(k) по параметрам запроса.
func (h *ToolsHandler) Calc401k(c echo.Context) error {
	data := view.Calc401kData{Form: calculator.Default401k()}

	if err := c.Bind(&data.Form); err != nil {
		data.Error = invalidInputText
		return h.render(c, http.StatusOK, "401k.html", "401(k) Calculator", "tools", data)
	}

	result, err := calculator.Project401k(data.Form)
	if err != nil {
		data.Error = invalidInputText
		return h.render(c, http.StatusOK, "401k.html", "401(k) Calculator", "tools", data)
	}

	rounded := result.Rounded()
	data.Result = &rounded
	data.Chart = view.ScheduleChart(calculator.Schedule(result.TotalAnnualContribution, data.Form.ExpectedReturn/100, data.Form.YearsToRetirement))
	return h.render(c, http.StatusOK, "401k.html", "401(k) Calculator", "tools", data)
}

// RothIRA считает Roth IRA. Возраст задает срок до пенсии, если срок не
// передан явно.
func (h *ToolsHandler) RothIRA(c echo.Context) error {
	data := view.RothData{Form: calculator.DefaultRoth(), CurrentAge: defaultCurrentAge}

	form, age, err := bindRoth(c)
	if err != nil {
		data.Error = invalidInputText
		return h.render(c, http.StatusOK, "roth-ira.html", "Roth IRA Calculator", "tools", data)
	}
	data.Form = form
	data.CurrentAge = age

	result, err := calculator.ProjectRothIRA(form)
	if err != nil {
		data.Error = invalidInputText
		return h.render(c, http.StatusOK, "roth-ira.html", "Roth IRA Calculator", "tools", data)
	}

	rounded := result.Rounded()
	data.Result = &rounded
	data.Chart = view.ScheduleChart(calculator.Schedule(form.AnnualContribution, form.ExpectedReturn/100, form.YearsToRetirement))
	return h.render(c, http.StatusOK, "roth-ira.html", "Roth IRA Calculator", "tools", data)
}

// Export401k выгружает прогноз 401(k) в CSV или PDF.
func (h *ToolsHandler) Export401k(c echo.Context) error {
	form := calculator.Default401k()
	if err := c.Bind(&form); err != nil {
		return badRequest(c, "invalid parameters")
	}

	report, err := export.New401kReport(form, h.now())
	if err != nil {
		return badRequest(c, "invalid parameters")
	}
	return writeReport(c, report)
}

// ExportRothIRA выгружает прогноз Roth IRA в CSV или PDF.
func (h *ToolsHandler) ExportRothIRA(c echo.Context) error {
	form, _, err := bindRoth(c)
	if err != nil {
		return badRequest(c, "invalid parameters")
	}

	report, err := export.NewRothReport(form, h.now())
	if err != nil {
		return badRequest(c, "invalid parameters")
	}
	return writeReport(c, report)
}

// Calc401kAPI считает 401(k) для JSON API.
func (h *ToolsHandler) Calc401kAPI(c echo.Context) error {
	var req calculator.Input401k
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}

	result, err := calculator.Project401k(req)
	if err != nil {
		return badRequest(c, err.Error())
	}

	return c.JSON(http.StatusOK, Calc401kResponse{
		Result:   result,
		Schedule: calculator.Schedule(result.TotalAnnualContribution, req.ExpectedReturn/100, req.YearsToRetirement),
	})
}

// RothIRAAPI считает Roth IRA для JSON API.
func (h *ToolsHandler) RothIRAAPI(c echo.Context) error {
	var req calculator.InputRoth
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}

	result, err := calculator.ProjectRothIRA(req)
	if err != nil {
		return badRequest(c, err.Error())
	}

	return c.JSON(http.StatusOK, RothResponse{
		Result:   result,
		Schedule: calculator.Schedule(req.AnnualContribution, req.ExpectedReturn/100, req.YearsToRetirement),
	})
}

func bindRoth(c echo.Context) (calculator.InputRoth, int, error) {
	form := calculator.DefaultRoth()
	if err := c.Bind(&form); err != nil {
		return form, defaultCurrentAge, err
	}

	query := c.QueryParams()
	if query.Get("current_age") == "" {
		return form, defaultCurrentAge, nil
	}

	age := defaultCurrentAge
	if err := echo.QueryParamsBinder(c).Int("current_age", &age).BindError(); err != nil {
		return form, defaultCurrentAge, err
	}
	if age < 0 {
		return form, defaultCurrentAge, errors.New("invalid current_age")
	}
	if !query.Has("years_to_retirement") {
		form.YearsToRetirement = calculator.YearsFromAge(age)
	}

	return form, age, nil
}

func writeReport(c echo.Context, report export.Report) error {
	switch strings.ToLower(c.QueryParam("format")) {
	case "", "csv":
		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, report); err != nil {
			return serverError(c)
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=\""+report.Filename("csv")+"\"")
		return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
	case "pdf":
		payload, err := export.WritePDF(report)
		if err != nil {
			return serverError(c)
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=\""+report.Filename("pdf")+"\"")
		return c.Blob(http.StatusOK, "application/pdf", payload)
	default:
		return badRequest(c, "format must be csv or pdf")
	}
}
