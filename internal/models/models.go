package models

import (
	"time"

	"github.com/google/uuid"
)

type LoanType string

type RiskTolerance string

type FinancialGoal string

const (
	LoanTypeStudent  LoanType = "student_loan"
	LoanTypeCar      LoanType = "car_loan"
	LoanTypeCredit   LoanType = "credit_card"
	LoanTypePersonal LoanType = "personal_loan"
	LoanTypeOther    LoanType = "other"

	RiskConservative RiskTolerance = "conservative"
	RiskModerate     RiskTolerance = "moderate"
	RiskAggressive   RiskTolerance = "aggressive"

	GoalWealthBuilding      FinancialGoal = "wealth_building"
	GoalIncomeGeneration    FinancialGoal = "income_generation"
	GoalCapitalPreservation FinancialGoal = "capital_preservation"
	GoalDebtFreedom         FinancialGoal = "debt_freedom"
)

// Loan is a row the user adds on the dashboard. InterestRate is the annual
// rate in percent, as typed into the form.
type Loan struct {
	ID             string   `json:"id"`
	LoanType       LoanType `json:"loan_type" validate:"required,oneof=student_loan car_loan credit_card personal_loan other"`
	LoanName       string   `json:"loan_name" validate:"max=100"`
	Principal      float64  `json:"principal" validate:"gte=0"`
	InterestRate   float64  `json:"interest_rate" validate:"gte=0,lte=100"`
	MinimumPayment float64  `json:"minimum_payment" validate:"gte=0"`
	TermMonths     *int     `json:"term_months,omitempty" validate:"omitempty,gt=0"`
}

type FinancialProfile struct {
	MonthlyBudget    float64       `json:"monthlyBudget"`
	CurrentSavings   float64       `json:"currentSavings"`
	TotalDebt        float64       `json:"totalDebt"`
	HasEmergencyFund bool          `json:"hasEmergencyFund"`
	RiskTolerance    RiskTolerance `json:"riskTolerance"`
	FinancialGoal    FinancialGoal `json:"financialGoal"`
	TimeHorizon      int           `json:"timeHorizon"`
}

type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name,omitempty"`
}

// Session is the server-side record behind the browser cookie. Provider
// tokens never leave the server.
type Session struct {
	ID              uuid.UUID `json:"id"`
	User            User      `json:"user"`
	AccessToken     string    `json:"access_token"`
	RefreshToken    string    `json:"refresh_token"`
	ExpiresAt       time.Time `json:"expires_at"`
	LinkAccessToken []byte    `json:"link_access_token,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Expired reports whether the provider access token needs a refresh.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

func IsRiskTolerance(value RiskTolerance) bool {
	switch value {
	case RiskConservative, RiskModerate, RiskAggressive:
		return true
	default:
		return false
	}
}

func IsFinancialGoal(value FinancialGoal) bool {
	switch value {
	case GoalWealthBuilding, GoalIncomeGeneration, GoalCapitalPreservation, GoalDebtFreedom:
		return true
	default:
		return false
	}
}

func IsLoanType(value LoanType) bool {
	switch value {
	case LoanTypeStudent, LoanTypeCar, LoanTypeCredit, LoanTypePersonal, LoanTypeOther:
		return true
	default:
		return false
	}
}
