package requests

import (
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// CurrencyLabel prefixes every rendered amount.
	CurrencyLabel = "Frw"
	// Placeholder is rendered for unknown values so they never read as zero.
	Placeholder = "—"
)

var printer = message.NewPrinter(language.English)

// FormatMoney renders an integer-rounded, thousands-grouped amount.
func FormatMoney(v float64, known bool) string {
	if !known || math.IsNaN(v) || math.IsInf(v, 0) {
		return Placeholder
	}
	return printer.Sprintf("%s %d", CurrencyLabel, int64(math.Round(v)))
}

// FormatMoneyCompact abbreviates thousands as K and millions as M.
func FormatMoneyCompact(v float64, known bool) string {
	if !known || math.IsNaN(v) || math.IsInf(v, 0) {
		return Placeholder
	}
	if short, ok := compact(v); ok {
		return CurrencyLabel + " " + short
	}
	return FormatMoney(v, true)
}

// FormatCompactNumber renders dashboard totals: 0, 950, 2K, 3M.
func FormatCompactNumber(n float64) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return Placeholder
	}
	if n == 0 {
		return "0"
	}
	if short, ok := compact(n); ok {
		return short
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func compact(v float64) (string, bool) {
	abs := math.Abs(math.Round(v))
	switch {
	case abs >= 1_000_000:
		return fmt.Sprintf("%dM", int64(math.Round(v/1_000_000))), true
	case abs >= 1_000:
		return fmt.Sprintf("%dK", int64(math.Round(v/1_000))), true
	default:
		return "", false
	}
}

// FormatApprovalLevels renders approval progress from the two level fields.
func FormatApprovalLevels(current, required *int) string {
	if current == nil && required == nil {
		return Placeholder
	}
	cur := 0
	if current != nil {
		cur = *current
	}
	if required == nil {
		return fmt.Sprintf("Level %d", cur)
	}
	return fmt.Sprintf("%d / %d", cur, *required)
}
