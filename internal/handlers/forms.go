package handlers

import (
	"errors"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/networth-optimizer/web/internal/models"
	"example.com/networth-optimizer/web/internal/profile"
)

type LoginForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
	Next     string `form:"next"`
}

type SignupForm struct {
	Email           string `form:"email" validate:"required,email"`
	Password        string `form:"password" validate:"required,min=8"`
	ConfirmPassword string `form:"confirm_password" validate:"required,eqfield=Password"`
	FullName        string `form:"full_name" validate:"max=100"`
}

type ResetForm struct {
	Email string `form:"email" validate:"required,email"`
}

type PasswordForm struct {
	Password        string `form:"password" validate:"required,min=8"`
	ConfirmPassword string `form:"confirm_password" validate:"required,eqfield=Password"`
}

type ProfileNameForm struct {
	FullName string `form:"full_name" validate:"max=100"`
}

// FinancialForm holds the profile fields shared by the plan and settings forms.
type FinancialForm struct {
	MonthlyBudget    float64 `form:"monthly_budget"`
	CurrentSavings   float64 `form:"current_savings"`
	TotalDebt        float64 `form:"total_debt"`
	HasEmergencyFund bool    `form:"has_emergency_fund"`
	RiskTolerance    string  `form:"risk_tolerance"`
	FinancialGoal    string  `form:"financial_goal"`
	TimeHorizon      int     `form:"time_horizon"`
}

// DashboardForm mirrors the repeated loan columns of the dashboard form.
type DashboardForm struct {
	IDs             []string  `form:"loan_id"`
	Types           []string  `form:"loan_type"`
	Names           []string  `form:"loan_name"`
	Principals      []float64 `form:"principal"`
	InterestRates   []float64 `form:"interest_rate"`
	MinimumPayments []float64 `form:"minimum_payment"`
	TermMonths      []int     `form:"term_months"`
	MonthlyBudget   float64   `form:"monthly_budget" validate:"gte=0"`
	Action          string    `form:"action"`
}

var passwordMessages = map[string]string{
	"Password.required":        "Password is required",
	"Password.min":             "Password must be at least 8 characters",
	"ConfirmPassword.required": "Please confirm your password",
	"ConfirmPassword.eqfield":  "Passwords do not match",
}

var riskMessages = map[string]string{
	"RiskTolerance": riskToleranceRangeText,
}

var signupMessages = map[string]string{
	"Email":    "Please enter a valid email",
	"FullName": "Full name must be at most 100 characters",
}

// Patch keeps only the fields present in the submitted form. The emergency
// fund checkbox is absent when unticked, so it is always set.
func (f FinancialForm) Patch(present url.Values) profile.Patch {
	patch := profile.Patch{HasEmergencyFund: &f.HasEmergencyFund}
	if present.Has("monthly_budget") {
		patch.MonthlyBudget = &f.MonthlyBudget
	}
	if present.Has("current_savings") {
		patch.CurrentSavings = &f.CurrentSavings
	}
	if present.Has("total_debt") {
		patch.TotalDebt = &f.TotalDebt
	}
	if present.Has("time_horizon") {
		patch.TimeHorizon = &f.TimeHorizon
	}
	if present.Has("risk_tolerance") {
		risk := models.RiskTolerance(f.RiskTolerance)
		patch.RiskTolerance = &risk
	}
	if present.Has("financial_goal") {
		goal := models.FinancialGoal(f.FinancialGoal)
		patch.FinancialGoal = &goal
	}
	return patch
}

// Loans zips the loan columns into rows. Rows keep their order; unknown
// loan types become "other" and an empty term means none.
func (f DashboardForm) Loans() []models.Loan {
	loans := make([]models.Loan, 0, len(f.IDs))
	for i := range f.IDs {
		loan := models.Loan{
			ID:             strings.TrimSpace(f.IDs[i]),
			LoanType:       models.LoanType(column(f.Types, i)),
			LoanName:       strings.TrimSpace(column(f.Names, i)),
			Principal:      column(f.Principals, i),
			InterestRate:   column(f.InterestRates, i),
			MinimumPayment: column(f.MinimumPayments, i),
		}
		if loan.ID == "" {
			loan.ID = uuid.NewString()
		}
		if !models.IsLoanType(loan.LoanType) {
			loan.LoanType = models.LoanTypeOther
		}
		if term := column(f.TermMonths, i); term != 0 {
			loan.TermMonths = &term
		}
		loans = append(loans, loan)
	}
	return loans
}

// bindFinancial binds the profile fields of a form and validates the patch
// built from the fields actually submitted.
func bindFinancial(c echo.Context) (profile.Patch, error) {
	var form FinancialForm
	if err := c.Bind(&form); err != nil {
		return profile.Patch{}, err
	}
	present, err := c.FormParams()
	if err != nil {
		return profile.Patch{}, err
	}

	patch := form.Patch(present)
	if err := c.Validate(&patch); err != nil {
		return profile.Patch{}, err
	}
	return patch, nil
}

// validateLoans runs the model rules on every dashboard row.
func validateLoans(c echo.Context, loans []models.Loan) error {
	for i := range loans {
		if err := c.Validate(&loans[i]); err != nil {
			return err
		}
	}
	return nil
}

// formProblem returns the message for the first failed field. Messages are
// keyed by "Field.tag" or by "Field" alone.
func formProblem(err error, fallback string, messages ...map[string]string) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fallback
	}
	for _, fe := range fieldErrs {
		for _, set := range messages {
			if message, ok := set[fe.StructField()+"."+fe.Tag()]; ok {
				return message
			}
			if message, ok := set[fe.StructField()]; ok {
				return message
			}
		}
	}
	return fallback
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func column[T any](values []T, i int) T {
	var zero T
	if i < len(values) {
		return values[i]
	}
	return zero
}
