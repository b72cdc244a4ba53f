package domain

import "github.com/shopspring/decimal"

// IncomeBracketConfig is an ordered set of income-quotient ranges. Only one
// config is active at a time.
type IncomeBracketConfig struct {
	ID       string
	Label    string
	Active   bool
	Brackets []IncomeBracket
}

// IncomeBracket maps an inclusive QF range to either a fixed replacement
// amount or a percentage of the base amount.
type IncomeBracket struct {
	ID        string
	Label     string
	MinQF     *float64
	MaxQF     *float64
	CalcKind  CalcKind
	Value     decimal.Decimal
	Position  int
	Overrides map[string]IncomeOverride // keyed by age bracket id
}

// IncomeOverride replaces a bracket's calculation for one age bracket.
type IncomeOverride struct {
	CalcKind CalcKind
	Value    decimal.Decimal
}

// Contains reports whether qf is inside the bracket range.
func (b *IncomeBracket) Contains(qf float64) bool {
	if b.MinQF != nil && qf < *b.MinQF {
		return false
	}
	if b.MaxQF != nil && qf > *b.MaxQF {
		return false
	}
	return true
}

// Effective returns the calculation to use for the given age bracket.
func (b *IncomeBracket) Effective(ageBracketID string) IncomeOverride {
	if o, ok := b.Overrides[ageBracketID]; ok {
		return o
	}
	return IncomeOverride{CalcKind: b.CalcKind, Value: b.Value}
}
