package reports

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/odyssey-erp/retail-ledger/internal/ledger"
)

// Formatter renders amounts for display.
type Formatter struct {
	printer *message.Printer
}

// NewFormatter builds a formatter for tag; the zero tag falls back to English.
func NewFormatter(tag language.Tag) *Formatter {
	if tag == language.Und {
		tag = language.English
	}
	return &Formatter{printer: message.NewPrinter(tag)}
}

// Amount renders an unsigned amount with grouping and two decimals. Zero renders empty.
func (f *Formatter) Amount(v decimal.Decimal) string {
	if v.IsZero() {
		return ""
	}
	return f.printer.Sprint(number.Decimal(v.Abs().Round(2).InexactFloat64(), number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// Balance renders a signed balance with its Dr or Cr marker.
func (f *Formatter) Balance(v decimal.Decimal) string {
	if ledger.IsSettled(v) {
		return "0.00"
	}
	sign := ledger.SignDebit
	if v.IsNegative() {
		sign = ledger.SignCredit
	}
	return f.Amount(v) + " " + string(sign)
}
