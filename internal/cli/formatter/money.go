package formatter

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Money renders euro amounts with the separators of a locale.
type Money struct {
	p *message.Printer
}

func NewMoney(tag language.Tag) *Money {
	return &Money{p: message.NewPrinter(tag)}
}

// Format renders d with two fraction digits and a trailing euro sign. The
// conversion to float only affects display; stored amounts stay exact.
func (m *Money) Format(d decimal.Decimal) string {
	return m.p.Sprintf("%v €", number.Decimal(d.InexactFloat64(), number.Scale(2)))
}

// Signed renders a reduction as a negative amount.
func (m *Money) Signed(d decimal.Decimal) string {
	if d.IsZero() {
		return m.Format(d)
	}
	return "-" + m.Format(d)
}
