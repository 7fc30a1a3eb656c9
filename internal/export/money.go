package export

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// notANumber заменяет значения, которые decimal не может представить.
const notANumber = "n/a"

// FormatMoney форматирует сумму в долларах без центов: 1234567.8 -> "$1,234,568".
func FormatMoney(amount float64) string {
	if !finite(amount) {
		return notANumber
	}
	return formatDecimal(decimal.NewFromFloat(amount), 0)
}

// FormatMoneyCents форматирует сумму с центами: 1234.5 -> "$1,234.50".
func FormatMoneyCents(amount float64) string {
	if !finite(amount) {
		return notANumber
	}
	return formatDecimal(decimal.NewFromFloat(amount), 2)
}

// FormatPercent форматирует долю как процент: 0.068 -> "6.8%".
func FormatPercent(fraction float64) string {
	if !finite(fraction) {
		return notANumber
	}
	value := decimal.NewFromFloat(fraction).Shift(2).Round(2)
	return value.String() + "%"
}

func formatDecimal(value decimal.Decimal, places int32) string {
	value = value.Round(places)

	sign := ""
	if value.IsNegative() {
		sign = "-"
		value = value.Abs()
	}

	fixed := value.StringFixed(places)
	whole, frac, hasFrac := strings.Cut(fixed, ".")

	var b strings.Builder
	b.WriteString(sign)
	b.WriteString("$")
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}

	return b.String()
}

func finite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}
