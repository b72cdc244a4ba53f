package pricing

import (
	"sort"

	"github.com/alexanderramin/ludo/internal/domain"
	"github.com/alexanderramin/ludo/internal/money"
	"github.com/shopspring/decimal"
)

// IncomeResolution is the result of the income-bracket lookup.
type IncomeResolution struct {
	Applied  bool
	Reason   string
	Bracket  *domain.IncomeBracket
	CalcKind domain.CalcKind
	Value    decimal.Decimal
	Before   decimal.Decimal
	Amount   decimal.Decimal
}

// ResolveIncome finds the first bracket (by position) containing qf and
// applies it to amount. A fixed bracket replaces the amount entirely; a
// percentage bracket keeps that share of it. Without a config, a quotient or
// a matching bracket the amount is returned unchanged.
func ResolveIncome(cfg *domain.IncomeBracketConfig, qf *float64, ageBracketID string, amount decimal.Decimal) IncomeResolution {
	res := IncomeResolution{Before: amount, Amount: amount}
	switch {
	case cfg == nil || !cfg.Active:
		res.Reason = "no active income configuration"
		return res
	case qf == nil:
		res.Reason = "income quotient unknown"
		return res
	}

	brackets := make([]domain.IncomeBracket, len(cfg.Brackets))
	copy(brackets, cfg.Brackets)
	sort.SliceStable(brackets, func(i, j int) bool { return brackets[i].Position < brackets[j].Position })

	for i := range brackets {
		b := brackets[i]
		if !b.Contains(*qf) {
			continue
		}
		eff := b.Effective(ageBracketID)
		res.Bracket = &b
		res.CalcKind = eff.CalcKind
		res.Value = eff.Value
		switch eff.CalcKind {
		case domain.CalcFixed:
			res.Amount = money.Round2(eff.Value)
		case domain.CalcPercentage:
			res.Amount = money.Percent(amount, eff.Value)
		default:
			res.Reason = "bracket " + b.ID + " has unknown calc kind " + string(eff.CalcKind)
			return res
		}
		res.Applied = true
		return res
	}
	res.Reason = "no bracket contains the income quotient"
	return res
}

// Trace converts the resolution to its audit form.
func (r IncomeResolution) Trace() domain.IncomeTrace {
	t := domain.IncomeTrace{
		Applied:      r.Applied,
		Reason:       r.Reason,
		CalcKind:     r.CalcKind,
		Value:        r.Value,
		AmountBefore: r.Before,
		AmountAfter:  r.Amount,
	}
	if r.Bracket != nil {
		t.BracketID = r.Bracket.ID
		t.BracketLabel = r.Bracket.Label
	}
	return t
}
