package optimizer

import (
	"math"
	"strconv"
	"strings"

	"example.com/networth-optimizer/web/internal/models"
)

const (
	SingleLoanGraduationMonths = 48
	MultiLoanGraduationMonths  = 60

	// SuggestedBudgetShare is the part of a linked cash balance offered as
	// monthly spare cash.
	SuggestedBudgetShare = 0.25
)

var (
	ErrNoLoans       = ValidationError("Please add at least one loan")
	ErrNoBudget      = ValidationError("Please enter monthly spare cash")
	ErrInvalidLoan   = ValidationError("Please check the loan amounts")
	ErrInvalidMonths = ValidationError("Please enter months until graduation")
)

// ValidationError is a local input problem; the remote call is skipped.
type ValidationError string

func (e ValidationError) Error() string {
	return string(e)
}

// DefaultMarketAssumptions returns the assumptions the forms send.
func DefaultMarketAssumptions() MarketAssumptions {
	return MarketAssumptions{
		ExpectedAnnualReturn: 0.10,
		Volatility:           0.15,
		RiskFreeRate:         0.04,
	}
}

// SingleLoanForm holds the calculator page fields; InterestRate is in percent.
type SingleLoanForm struct {
	LoanName              string  `form:"loan_name" json:"loan_name"`
	Principal             float64 `form:"principal" json:"principal"`
	InterestRate          float64 `form:"interest_rate" json:"interest_rate"`
	MinimumPayment        float64 `form:"minimum_payment" json:"minimum_payment"`
	MonthlyBudget         float64 `form:"monthly_budget" json:"monthly_budget"`
	MonthsUntilGraduation int     `form:"months_until_graduation" json:"months_until_graduation"`
}

// DefaultSingleLoanForm возвращает значения формы калькулятора по умолчанию.
func DefaultSingleLoanForm() SingleLoanForm {
	return SingleLoanForm{
		LoanName:              "Student Loan",
		Principal:             25000,
		InterestRate:          9,
		MinimumPayment:        200,
		MonthlyBudget:         100,
		MonthsUntilGraduation: SingleLoanGraduationMonths,
	}
}

// NewSingleLoanRequest проверяет форму и переводит ставку из процентов в доли.
func NewSingleLoanRequest(form SingleLoanForm) (OptimizationRequest, error) {
	if !nonNegative(form.Principal) || !validRate(form.InterestRate) || !nonNegative(form.MinimumPayment) {
		return OptimizationRequest{}, ErrInvalidLoan
	}
	if !positive(form.MonthlyBudget) {
		return OptimizationRequest{}, ErrNoBudget
	}

	months := form.MonthsUntilGraduation
	if months == 0 {
		months = SingleLoanGraduationMonths
	}
	if months < 0 {
		return OptimizationRequest{}, ErrInvalidMonths
	}

	name := strings.TrimSpace(form.LoanName)
	if name == "" {
		name = "Loan"
	}

	return OptimizationRequest{
		Loan: LoanData{
			LoanName:       name,
			Principal:      form.Principal,
			InterestRate:   form.InterestRate / 100,
			MinimumPayment: form.MinimumPayment,
		},
		MonthlyBudget:         form.MonthlyBudget,
		MonthsUntilGraduation: months,
		MarketAssumptions:     DefaultMarketAssumptions(),
	}, nil
}

// NewMultiLoanRequest проверяет список кредитов и бюджет дашборда.
func NewMultiLoanRequest(loans []models.Loan, monthlyBudget float64) (MultiLoanRequest, error) {
	if len(loans) == 0 {
		return MultiLoanRequest{}, ErrNoLoans
	}
	if !positive(monthlyBudget) {
		return MultiLoanRequest{}, ErrNoBudget
	}

	out := make([]MultiLoanData, 0, len(loans))
	for i, loan := range loans {
		if !nonNegative(loan.Principal) || !validRate(loan.InterestRate) || !nonNegative(loan.MinimumPayment) {
			return MultiLoanRequest{}, ErrInvalidLoan
		}

		loanType := loan.LoanType
		if !models.IsLoanType(loanType) {
			loanType = models.LoanTypeOther
		}

		name := strings.TrimSpace(loan.LoanName)
		if name == "" {
			name = DefaultLoanName(i)
		}

		out = append(out, MultiLoanData{
			LoanType:       string(loanType),
			LoanName:       name,
			Principal:      loan.Principal,
			InterestRate:   loan.InterestRate / 100,
			MinimumPayment: loan.MinimumPayment,
			TermMonths:     loan.TermMonths,
		})
	}

	return MultiLoanRequest{
		Loans:                 out,
		MonthlyBudget:         monthlyBudget,
		MonthsUntilGraduation: MultiLoanGraduationMonths,
		MarketAssumptions:     DefaultMarketAssumptions(),
	}, nil
}

// NewPlanRequest builds the personalized plan request from the saved profile.
func NewPlanRequest(profile models.FinancialProfile) PersonalizedPlanRequest {
	return PersonalizedPlanRequest{
		MonthlyInvestmentAmount: profile.MonthlyBudget,
		RiskTolerance:           string(profile.RiskTolerance),
		FinancialGoal:           string(profile.FinancialGoal),
		TimeHorizonYears:        profile.TimeHorizon,
		CurrentSavings:          profile.CurrentSavings,
		HasEmergencyFund:        profile.HasEmergencyFund,
	}
}

// DefaultLoanName is the label of a new dashboard row.
func DefaultLoanName(index int) string {
	return "Loan " + strconv.Itoa(index+1)
}

// SuggestedBudget returns the whole-dollar spare cash offered after linking a bank
// account.
func SuggestedBudget(totalBalance float64) float64 {
	if !positive(totalBalance) {
		return 0
	}
	return math.Round(totalBalance * SuggestedBudgetShare)
}

func positive(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0) && value > 0
}

func nonNegative(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0) && value >= 0
}

func validRate(value float64) bool {
	return nonNegative(value) && value <= 100
}
