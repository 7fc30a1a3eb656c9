package view

import (
	"html/template"
	"strings"

	"example.com/networth-optimizer/web/internal/catalog"
	"example.com/networth-optimizer/web/internal/export"
	"example.com/networth-optimizer/web/internal/models"
)

func funcMap(c *catalog.Catalog) template.FuncMap {
	return template.FuncMap{
		"money":      export.FormatMoney,
		"moneyCents": export.FormatMoneyCents,
		"fraction":   export.FormatPercent,
		"percent":    formatWholePercent,
		"loanLabel": func(loanType models.LoanType) string {
			return c.LoanTypeLabel(loanType)
		},
		"loanTypes": func() []models.LoanType {
			return []models.LoanType{
				models.LoanTypeStudent,
				models.LoanTypeCar,
				models.LoanTypeCredit,
				models.LoanTypePersonal,
				models.LoanTypeOther,
			}
		},
		"riskBand": c.RiskBand,
		"upper":    strings.ToUpper,
		"title":    titleCase,
		"deref":    derefFloat,
	}
}

func formatWholePercent(value float64) string {
	return export.FormatPercent(value / 100)
}

// titleCase turns "wealth_building" into "Wealth Building".
func titleCase(value string) string {
	words := strings.Fields(strings.ReplaceAll(value, "_", " "))
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

func derefFloat(value *float64) float64 {
	if value == nil {
		return 0
	}
	return *value
}
