package reports

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.Indonesian)

// Separators derived from the printer so display formatting stays in step
// with the locale without round-tripping amounts through float64.
var (
	groupSep   = strings.Trim(printer.Sprintf("%d", 1000), "10")
	decimalSep = strings.Trim(printer.Sprintf("%.1f", 0.5), "05")
)

// FormatAmount renders a decimal with thousand separators for display
// fields. Grouping is applied to the exact two-decimal digit string, so
// amounts past float64 precision render without drift.
func FormatAmount(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(groupSep)
		}
		b.WriteRune(r)
	}
	b.WriteString(decimalSep)
	b.WriteString(frac)
	return b.String()
}

// Ratio renders part as a percentage of whole, "0.00%" when whole is zero so
// statements on an empty period never divide by zero.
func Ratio(part, whole decimal.Decimal) string {
	if whole.IsZero() {
		return "0.00%"
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"
}
