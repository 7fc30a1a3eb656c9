package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
)

// WriteCSV пишет сводку и годовую таблицу отчета в CSV.
func WriteCSV(w io.Writer, report Report) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"section", "label", "value"}); err != nil {
		return err
	}
	for _, line := range report.Summary {
		if err := writer.Write([]string{"summary", line.Label, plainAmount(line.Value)}); err != nil {
			return err
		}
	}

	if err := writer.Write(nil); err != nil {
		return err
	}
	if err := writer.Write([]string{"year", "contributed", "balance"}); err != nil {
		return err
	}
	for _, row := range report.Schedule {
		record := []string{
			strconv.Itoa(row.Year),
			plainAmount(row.Contributed),
			plainAmount(row.Balance),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func plainAmount(value float64) string {
	if !finite(value) {
		return notANumber
	}
	return decimal.NewFromFloat(value).StringFixed(2)
}
