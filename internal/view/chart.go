package view

import (
	"encoding/json"
	"html/template"
	"strconv"

	"example.com/networth-optimizer/web/internal/calculator"
	"example.com/networth-optimizer/web/internal/optimizer"
)

type Dataset struct {
	Label string    `json:"label"`
	Data  []float64 `json:"data"`
}

// Chart is handed to the client-side chart as JSON.
type Chart struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// Empty сообщает, что данных для графика нет.
func (c Chart) Empty() bool {
	return len(c.Labels) == 0
}

// JSON сериализует график для встраивания в <script>.
func (c Chart) JSON() template.JS {
	payload, err := json.Marshal(c)
	if err != nil {
		return template.JS("null")
	}
	return template.JS(payload)
}

// BreakdownChart строит график двух путей по месячной разбивке.
func BreakdownChart(rows []optimizer.MonthlyBreakdown) Chart {
	if len(rows) == 0 {
		return Chart{}
	}

	chart := Chart{
		Labels: make([]string, 0, len(rows)),
		Datasets: []Dataset{
			{Label: "Pay debt first", Data: make([]float64, 0, len(rows))},
			{Label: "Invest", Data: make([]float64, 0, len(rows))},
		},
	}
	for _, row := range rows {
		chart.Labels = append(chart.Labels, "Month "+strconv.Itoa(row.Month))
		chart.Datasets[0].Data = append(chart.Datasets[0].Data, row.DebtPathNetWorth)
		chart.Datasets[1].Data = append(chart.Datasets[1].Data, row.InvestPathNetWorth)
	}
	return chart
}

// ProjectionChart строит график чистой стоимости для нескольких кредитов.
// Без прогноза график пуст.
func ProjectionChart(projection *optimizer.NetWorthProjection) Chart {
	if projection == nil {
		return Chart{}
	}

	return Chart{
		Labels: []string{"Now", "1 year", "5 years", "Final"},
		Datasets: []Dataset{
			{Label: "Pay debt first", Data: []float64{projection.Current, projection.DebtPath1yr, projection.DebtPath5yr, projection.FinalDebtPath}},
			{Label: "Invest", Data: []float64{projection.Current, projection.InvestPath1yr, projection.InvestPath5yr, projection.FinalInvestPath}},
		},
	}
}

// PlanChart строит график прогнозной стоимости портфеля.
func PlanChart(plan *optimizer.InvestmentPlan) Chart {
	if plan == nil {
		return Chart{}
	}

	return Chart{
		Labels: []string{"1 year", "5 years", "10 years", "20 years", "30 years"},
		Datasets: []Dataset{{
			Label: "Projected value",
			Data: []float64{
				plan.ProjectedValue1yr,
				plan.ProjectedValue5yr,
				plan.ProjectedValue10yr,
				plan.ProjectedValue20yr,
				plan.ProjectedValue30yr,
			},
		}},
	}
}

// ScheduleChart строит график годового баланса калькулятора.
func ScheduleChart(schedule []calculator.YearBalance) Chart {
	if len(schedule) == 0 {
		return Chart{}
	}

	chart := Chart{
		Labels: make([]string, 0, len(schedule)),
		Datasets: []Dataset{
			{Label: "Balance", Data: make([]float64, 0, len(schedule))},
			{Label: "Contributed", Data: make([]float64, 0, len(schedule))},
		},
	}
	for _, row := range schedule {
		chart.Labels = append(chart.Labels, "Year "+strconv.Itoa(row.Year))
		chart.Datasets[0].Data = append(chart.Datasets[0].Data, row.Balance)
		chart.Datasets[1].Data = append(chart.Datasets[1].Data, row.Contributed)
	}
	return chart
}
