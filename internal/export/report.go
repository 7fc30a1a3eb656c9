package export

import (
	"fmt"
	"time"

	"example.com/networth-optimizer/web/internal/calculator"
)

const (
	Format401k = "401k"
	FormatRoth = "roth-ira"
)

type Line struct {
	Label string
	Value float64
}

// Report is a calculator projection ready to be written as CSV or PDF.
type Report struct {
	Kind        string
	Title       string
	Inputs      []string
	Summary     []Line
	Schedule    []calculator.YearBalance
	GeneratedAt time.Time
}

// Filename возвращает имя файла выгрузки с расширением ext.
func (r Report) Filename(ext string) string {
	return r.Kind + "-projection-" + r.GeneratedAt.Format("2006-01-02") + "." + ext
}

// New401kReport собирает отчет по 401(k).
func New401kReport(in calculator.Input401k, now time.Time) (Report, error) {
	result, err := calculator.Project401k(in)
	if err != nil {
		return Report{}, err
	}

	rounded := result.Rounded()
	return Report{
		Kind:  Format401k,
		Title: "401(k) Projection",
		Inputs: []string{
			"Salary: " + FormatMoney(in.Salary),
			fmt.Sprintf("Contribution: %g%%", in.ContributionPercent),
			fmt.Sprintf("Employer match: %g%% up to %g%% of salary", in.EmployerMatchPercent, in.EmployerMatchCap),
			fmt.Sprintf("Years to retirement: %d", in.YearsToRetirement),
			fmt.Sprintf("Expected return: %g%%", in.ExpectedReturn),
		},
		Summary: []Line{
			{Label: "Projected balance", Value: rounded.FutureValue},
			{Label: "Your contributions", Value: rounded.TotalEmployeeContributions},
			{Label: "Employer contributions", Value: rounded.TotalEmployerContributions},
			{Label: "Investment gains", Value: rounded.InvestmentGains},
			{Label: "Free money left on table (per year)", Value: rounded.FreeMoneyLeftOnTable},
		},
		Schedule:    calculator.Schedule(result.TotalAnnualContribution, in.ExpectedReturn/100, in.YearsToRetirement),
		GeneratedAt: now.UTC(),
	}, nil
}

// NewRothReport собирает отчет по Roth IRA.
func NewRothReport(in calculator.InputRoth, now time.Time) (Report, error) {
	result, err := calculator.ProjectRothIRA(in)
	if err != nil {
		return Report{}, err
	}

	rounded := result.Rounded()
	return Report{
		Kind:  FormatRoth,
		Title: "Roth IRA Projection",
		Inputs: []string{
			"Annual contribution: " + FormatMoney(in.AnnualContribution),
			fmt.Sprintf("Years to retirement: %d", in.YearsToRetirement),
			fmt.Sprintf("Expected return: %g%%", in.ExpectedReturn),
		},
		Summary: []Line{
			{Label: "Projected balance", Value: rounded.FutureValue},
			{Label: "Total contributed", Value: rounded.TotalContributed},
			{Label: "Tax-free gains", Value: rounded.TaxFreeGains},
			{Label: fmt.Sprintf("Illustrative tax savings (%g%% bracket)", calculator.IllustrativeTaxRate*100), Value: rounded.TaxSavings},
		},
		Schedule:    calculator.Schedule(in.AnnualContribution, in.ExpectedReturn/100, in.YearsToRetirement),
		GeneratedAt: now.UTC(),
	}, nil
}
