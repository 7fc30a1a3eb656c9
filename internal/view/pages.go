package view

import (
	"example.com/networth-optimizer/web/internal/calculator"
	"example.com/networth-optimizer/web/internal/catalog"
	"example.com/networth-optimizer/web/internal/models"
	"example.com/networth-optimizer/web/internal/optimizer"
)

// Page is the data every template receives; Data holds the page model.
type Page struct {
	Title  string
	Active string
	User   *models.User
	CSRF   string
	Flash  string
	Tools  []catalog.Tool
	Data   any
}

type HomeData struct {
	Quote *optimizer.Quote
}

type Calc401kData struct {
	Form   calculator.Input401k
	Result *calculator.Result401k
	Chart  Chart
	Error  string
}

type RothData struct {
	Form       calculator.InputRoth
	CurrentAge int
	Result     *calculator.ResultRoth
	Chart      Chart
	Error      string
}

type CalculatorData struct {
	Form   optimizer.SingleLoanForm
	Result *optimizer.OptimizationResult
	Chart  Chart
	Error  string
}

type DashboardData struct {
	Loans           []models.Loan
	MonthlyBudget   float64
	SuggestedBudget float64
	TotalDebt       float64
	Result          *optimizer.MultiLoanResult
	Chart           Chart
	Quote           *optimizer.Quote
	Linked          bool
	Balance         *optimizer.Balance
	Picture         *optimizer.CompletePicture
	ActionPlan      *optimizer.ActionPlan
	RiskTolerance   int
	Error           string
	LinkError       string
}

type PlanData struct {
	Profile models.FinancialProfile
	Plan    *optimizer.InvestmentPlan
	Chart   Chart
	Error   string
	Saved   bool
}

type InvestmentsData struct {
	PortfolioValue      float64
	RiskTolerance       int
	MonthlyContribution float64
	Plan                *optimizer.SimplePlan
	Analysis            *optimizer.AnalyzeResult
	Linked              bool
	Error               string
	LinkError           string
}

type SettingsData struct {
	Profile  models.FinancialProfile
	FullName string
	Error    string
	Message  string
}

type AuthData struct {
	Email    string
	FullName string
	Next     string
	Error    string
	Message  string
}

type ErrorData struct {
	Status  int
	Message string
}
