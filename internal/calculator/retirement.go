package calculator

import (
	"errors"
	"math"
)

const (
	// IllustrativeTaxRate is the fixed marginal rate used for the Roth
	// "tax savings" figure. It is a display constant, not a tax calculation.
	IllustrativeTaxRate = 0.24

	// RetirementAge is used to derive years to retirement from current age.
	RetirementAge = 65

	// MaxYears bounds every projection horizon.
	MaxYears = 100
)

var ErrInvalidInput = errors.New("invalid calculator input")

// Input401k holds the form values; percentages are whole percents (6 = 6%).
type Input401k struct {
	Salary               float64 `json:"salary" query:"salary" form:"salary" validate:"gte=0"`
	ContributionPercent  float64 `json:"contribution_percent" query:"contribution_percent" form:"contribution_percent" validate:"gte=0,lte=100"`
	EmployerMatchPercent float64 `json:"employer_match_percent" query:"employer_match_percent" form:"employer_match_percent" validate:"gte=0,lte=100"`
	EmployerMatchCap     float64 `json:"employer_match_cap" query:"employer_match_cap" form:"employer_match_cap" validate:"gte=0,lte=100"`
	YearsToRetirement    int     `json:"years_to_retirement" query:"years_to_retirement" form:"years_to_retirement" validate:"lte=100"`
	ExpectedReturn       float64 `json:"expected_return" query:"expected_return" form:"expected_return" validate:"gte=0,lte=100"`
}

type Result401k struct {
	AnnualContribution         float64 `json:"annual_contribution"`
	AnnualEmployerMatch        float64 `json:"annual_employer_match"`
	TotalAnnualContribution    float64 `json:"total_annual_contribution"`
	FutureValue                float64 `json:"future_value"`
	TotalEmployeeContributions float64 `json:"total_employee_contributions"`
	TotalEmployerContributions float64 `json:"total_employer_contributions"`
	InvestmentGains            float64 `json:"investment_gains"`
	MaxEmployerMatch           float64 `json:"max_employer_match"`
	FreeMoneyLeftOnTable       float64 `json:"free_money_left_on_table"`
}

type InputRoth struct {
	AnnualContribution float64 `json:"annual_contribution" query:"annual_contribution" form:"annual_contribution" validate:"gte=0"`
	YearsToRetirement  int     `json:"years_to_retirement" query:"years_to_retirement" form:"years_to_retirement" validate:"lte=100"`
	ExpectedReturn     float64 `json:"expected_return" query:"expected_return" form:"expected_return" validate:"gte=0,lte=100"`
}

type ResultRoth struct {
	FutureValue      float64 `json:"future_value"`
	TotalContributed float64 `json:"total_contributed"`
	TaxFreeGains     float64 `json:"tax_free_gains"`
	TaxSavings       float64 `json:"tax_savings"`
}

type YearBalance struct {
	Year        int     `json:"year"`
	Contributed float64 `json:"contributed"`
	Balance     float64 `json:"balance"`
}

// Default401k возвращает значения формы 401(k) по умолчанию.
func Default401k() Input401k {
	return Input401k{
		Salary:               60000,
		ContributionPercent:  6,
		EmployerMatchPercent: 50,
		EmployerMatchCap:     6,
		YearsToRetirement:    40,
		ExpectedReturn:       7,
	}
}

// DefaultRoth возвращает значения формы Roth IRA по умолчанию.
func DefaultRoth() InputRoth {
	return InputRoth{
		AnnualContribution: 7500,
		YearsToRetirement:  RetirementAge - 20,
		ExpectedReturn:     10,
	}
}

// YearsFromAge converts a current age into years until RetirementAge.
func YearsFromAge(age int) int {
	if age >= RetirementAge {
		return 0
	}
	return RetirementAge - age
}

// FutureValueOfAnnuity returns PMT × ((1+r)^n − 1) / r for year-end
// contributions. A zero rate degenerates to PMT × n; n <= 0 yields 0.
func FutureValueOfAnnuity(payment, rate float64, years int) float64 {
	if years <= 0 {
		return 0
	}
	n := float64(years)
	if rate == 0 {
		return payment * n
	}
	return payment * ((math.Pow(1+rate, n) - 1) / rate)
}

// Schedule returns the balance at the end of each year. The last balance
// equals FutureValueOfAnnuity for the same inputs. Horizons past MaxYears
// are cut at MaxYears.
func Schedule(payment, rate float64, years int) []YearBalance {
	if years <= 0 {
		return []YearBalance{}
	}
	if years > MaxYears {
		years = MaxYears
	}

	out := make([]YearBalance, 0, years)
	balance := 0.0
	for year := 1; year <= years; year++ {
		balance = balance*(1+rate) + payment
		out = append(out, YearBalance{
			Year:        year,
			Contributed: payment * float64(year),
			Balance:     balance,
		})
	}
	return out
}

// Project401k считает рост 401(k) с учетом взноса работодателя.
func Project401k(in Input401k) (Result401k, error) {
	if err := validate401k(in); err != nil {
		return Result401k{}, err
	}

	contribution := in.ContributionPercent / 100
	match := in.EmployerMatchPercent / 100
	matchCap := in.EmployerMatchCap / 100
	rate := in.ExpectedReturn / 100

	annualContribution := in.Salary * contribution
	effectiveMatchPercent := math.Min(contribution, matchCap)
	annualEmployerMatch := in.Salary * effectiveMatchPercent * match
	totalAnnual := annualContribution + annualEmployerMatch

	years := in.YearsToRetirement
	if years < 0 {
		years = 0
	}

	futureValue := FutureValueOfAnnuity(totalAnnual, rate, years)
	if !isFinite(futureValue) {
		return Result401k{}, ErrInvalidInput
	}
	employeeTotal := annualContribution * float64(years)
	employerTotal := annualEmployerMatch * float64(years)

	maxMatch := in.Salary * matchCap * match

	return Result401k{
		AnnualContribution:         annualContribution,
		AnnualEmployerMatch:        annualEmployerMatch,
		TotalAnnualContribution:    totalAnnual,
		FutureValue:                futureValue,
		TotalEmployeeContributions: employeeTotal,
		TotalEmployerContributions: employerTotal,
		InvestmentGains:            futureValue - (employeeTotal + employerTotal),
		MaxEmployerMatch:           maxMatch,
		FreeMoneyLeftOnTable:       math.Max(0, maxMatch-annualEmployerMatch),
	}, nil
}

// ProjectRothIRA считает рост Roth IRA и иллюстративную налоговую экономию.
func ProjectRothIRA(in InputRoth) (ResultRoth, error) {
	if in.AnnualContribution < 0 || !isFinite(in.AnnualContribution) {
		return ResultRoth{}, ErrInvalidInput
	}
	if !validPercent(in.ExpectedReturn) || in.YearsToRetirement > MaxYears {
		return ResultRoth{}, ErrInvalidInput
	}

	years := in.YearsToRetirement
	if years < 0 {
		years = 0
	}

	futureValue := FutureValueOfAnnuity(in.AnnualContribution, in.ExpectedReturn/100, years)
	if !isFinite(futureValue) {
		return ResultRoth{}, ErrInvalidInput
	}
	contributed := in.AnnualContribution * float64(years)
	gains := futureValue - contributed

	return ResultRoth{
		FutureValue:      futureValue,
		TotalContributed: contributed,
		TaxFreeGains:     gains,
		TaxSavings:       math.Round(gains * IllustrativeTaxRate),
	}, nil
}

// Rounded returns the whole-dollar figures shown on the page.
func (r Result401k) Rounded() Result401k {
	return Result401k{
		AnnualContribution:         math.Round(r.AnnualContribution),
		AnnualEmployerMatch:        math.Round(r.AnnualEmployerMatch),
		TotalAnnualContribution:    math.Round(r.TotalAnnualContribution),
		FutureValue:                math.Round(r.FutureValue),
		TotalEmployeeContributions: math.Round(r.TotalEmployeeContributions),
		TotalEmployerContributions: math.Round(r.TotalEmployerContributions),
		InvestmentGains:            math.Round(r.InvestmentGains),
		MaxEmployerMatch:           math.Round(r.MaxEmployerMatch),
		FreeMoneyLeftOnTable:       math.Round(r.FreeMoneyLeftOnTable),
	}
}

// Rounded returns the whole-dollar figures shown on the page. TaxSavings is
// already rounded.
func (r ResultRoth) Rounded() ResultRoth {
	return ResultRoth{
		FutureValue:      math.Round(r.FutureValue),
		TotalContributed: math.Round(r.TotalContributed),
		TaxFreeGains:     math.Round(r.TaxFreeGains),
		TaxSavings:       r.TaxSavings,
	}
}

func validate401k(in Input401k) error {
	if in.Salary < 0 || !isFinite(in.Salary) || in.YearsToRetirement > MaxYears {
		return ErrInvalidInput
	}
	for _, value := range []float64{in.ContributionPercent, in.EmployerMatchPercent, in.EmployerMatchCap, in.ExpectedReturn} {
		if !validPercent(value) {
			return ErrInvalidInput
		}
	}
	return nil
}

func validPercent(value float64) bool {
	return isFinite(value) && value >= 0 && value <= 100
}

func isFinite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}
