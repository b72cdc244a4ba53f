package pricing

import (
	"log/slog"
	"sort"
	"time"

	"github.com/alexanderramin/ludo/internal/domain"
	"github.com/alexanderramin/ludo/internal/money"
	"github.com/shopspring/decimal"
)

// LegacyResult is the outcome of the sequential rule engine.
type LegacyResult struct {
	Start          decimal.Decimal
	Final          decimal.Decimal
	TotalReduction decimal.Decimal
	LineItems      []domain.ReductionLineItem
	Trace          []domain.LegacyTrace
}

// ApplyLegacyRules runs active rules in application order over a running
// total that starts at start. Each rule is computed against the current
// running total (so rules compound) and clamped so the total never goes
// below zero.
func ApplyLegacyRules(rules []domain.LegacyReductionRule, f Facts, at time.Time, start decimal.Decimal, logger *slog.Logger) LegacyResult {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ordered := make([]domain.LegacyReductionRule, 0, len(rules))
	for _, r := range rules {
		if r.Active {
			ordered = append(ordered, r)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ApplicationOrder < ordered[j].ApplicationOrder
	})

	running := money.Round2(start)
	res := LegacyResult{Start: running, TotalReduction: money.Zero}
	for _, rule := range ordered {
		tr := domain.LegacyTrace{RuleID: rule.ID, Label: rule.Label, RunningBefore: running, RunningAfter: running}

		red := rule.Reduction()
		v, err := Match(rule.Predicate, f, at)
		if err == nil {
			err = red.Validate()
		}
		if err != nil {
			merr := &domain.MatcherError{BranchID: rule.ID, Kind: predicateKind(rule.Predicate), Err: err}
			logger.Warn("skipping malformed legacy rule", "rule_id", rule.ID, "error", merr.Error())
			tr.Error = merr.Error()
			res.Trace = append(res.Trace, tr)
			continue
		}
		tr.Matched = v.Matched
		tr.Rationale = v.Rationale
		if !v.Matched {
			res.Trace = append(res.Trace, tr)
			continue
		}

		full := red.Amount(running)
		amount := money.Min(full, running)
		tr.Clamped = !amount.Equal(full)
		running = money.Sub(running, amount)
		tr.RunningAfter = running

		res.LineItems = append(res.LineItems, domain.ReductionLineItem{
			SourceKind:     domain.SourceLegacyRule,
			SourceID:       rule.ID,
			Label:          rule.Label,
			CalcKind:       rule.CalcKind,
			Value:          rule.Value,
			ComputedAmount: amount,
			Position:       len(res.LineItems),
		})
		res.TotalReduction = money.Add(res.TotalReduction, amount)
		res.Trace = append(res.Trace, tr)
	}
	res.Final = running
	return res
}

func predicateKind(c domain.Condition) domain.ConditionKind {
	if c == nil {
		return domain.KindAny
	}
	return c.Kind()
}
