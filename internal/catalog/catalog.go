package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"example.com/networth-optimizer/web/internal/models"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

type Tool struct {
	Slug        string   `yaml:"slug" json:"slug"`
	Title       string   `yaml:"title" json:"title"`
	Path        string   `yaml:"path" json:"path"`
	Icon        string   `yaml:"icon" json:"icon"`
	Auth        bool     `yaml:"auth" json:"auth"`
	Description string   `yaml:"description" json:"description"`
	Features    []string `yaml:"features" json:"features"`
}

type RiskBand struct {
	Min       int                  `yaml:"min" json:"min"`
	Max       int                  `yaml:"max" json:"max"`
	Label     string               `yaml:"label" json:"label"`
	Tolerance models.RiskTolerance `yaml:"tolerance" json:"tolerance"`
	Color     string               `yaml:"color" json:"color"`
}

type Catalog struct {
	Tools     []Tool                     `yaml:"tools" json:"tools"`
	LoanTypes map[models.LoanType]string `yaml:"loan_types" json:"loan_types"`
	RiskBands []RiskBand                 `yaml:"risk_bands" json:"risk_bands"`
}

// Default загружает встроенный каталог.
func Default() (*Catalog, error) {
	return Parse(defaultCatalogYAML)
}

// MustDefault загружает встроенный каталог и паникует при ошибке.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse разбирает каталог из YAML и проверяет его.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

// LoanTypeLabel возвращает подпись типа кредита.
func (c *Catalog) LoanTypeLabel(loanType models.LoanType) string {
	if label, ok := c.LoanTypes[loanType]; ok {
		return label
	}
	return c.LoanTypes[models.LoanTypeOther]
}

// RiskBand возвращает диапазон для значения шкалы риска 1-10.
// Значения вне шкалы прижимаются к краям.
func (c *Catalog) RiskBand(score int) RiskBand {
	if len(c.RiskBands) == 0 {
		return RiskBand{}
	}

	first, last := c.RiskBands[0], c.RiskBands[len(c.RiskBands)-1]
	if score < first.Min {
		score = first.Min
	}
	if score > last.Max {
		score = last.Max
	}

	for _, band := range c.RiskBands {
		if score >= band.Min && score <= band.Max {
			return band
		}
	}
	return last
}

// Tool ищет инструмент по slug.
func (c *Catalog) Tool(slug string) (Tool, bool) {
	for _, tool := range c.Tools {
		if tool.Slug == slug {
			return tool, true
		}
	}
	return Tool{}, false
}

func (c *Catalog) validate() error {
	if len(c.Tools) == 0 {
		return fmt.Errorf("catalog: no tools")
	}
	for _, tool := range c.Tools {
		if tool.Slug == "" || tool.Path == "" || tool.Title == "" {
			return fmt.Errorf("catalog: tool %q is incomplete", tool.Slug)
		}
	}

	for _, loanType := range []models.LoanType{
		models.LoanTypeStudent,
		models.LoanTypeCar,
		models.LoanTypeCredit,
		models.LoanTypePersonal,
		models.LoanTypeOther,
	} {
		if c.LoanTypes[loanType] == "" {
			return fmt.Errorf("catalog: missing label for loan type %s", loanType)
		}
	}

	if len(c.RiskBands) == 0 {
		return fmt.Errorf("catalog: no risk bands")
	}
	for i, band := range c.RiskBands {
		if band.Min > band.Max {
			return fmt.Errorf("catalog: risk band %q has min > max", band.Label)
		}
		if i > 0 && band.Min != c.RiskBands[i-1].Max+1 {
			return fmt.Errorf("catalog: risk band %q is not contiguous", band.Label)
		}
		if !models.IsRiskTolerance(band.Tolerance) {
			return fmt.Errorf("catalog: risk band %q has unknown tolerance %q", band.Label, band.Tolerance)
		}
	}

	return nil
}
