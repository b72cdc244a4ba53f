package domain

import (
	"fmt"

	"github.com/alexanderramin/ludo/internal/money"
	"github.com/shopspring/decimal"
)

type CalcKind string

const (
	CalcPercentage CalcKind = "percentage"
	CalcFixed      CalcKind = "fixed"
)

// Valid reports whether k is a known calculation kind.
func (k CalcKind) Valid() bool {
	return k == CalcPercentage || k == CalcFixed
}

type SourceKind string

const (
	SourceLegacyRule SourceKind = "legacy_rule"
	SourceTreeBranch SourceKind = "tree_branch"
)

// Reduction is the discount carried by a branch or a legacy rule.
type Reduction struct {
	CalcKind CalcKind        `json:"calc_kind" yaml:"calc_kind"`
	Value    decimal.Decimal `json:"value" yaml:"value"`
}

// Amount computes the reduction against base. Percentages are rounded to
// cents; fixed values are returned as-is (rounded).
func (r Reduction) Amount(base decimal.Decimal) decimal.Decimal {
	if r.CalcKind == CalcPercentage {
		return money.Percent(base, r.Value)
	}
	return money.Round2(r.Value)
}

// Validate checks the calculation kind and sign.
func (r Reduction) Validate() error {
	if !r.CalcKind.Valid() {
		return fmt.Errorf("unknown calc_kind %q", r.CalcKind)
	}
	if r.Value.IsNegative() {
		return fmt.Errorf("reduction value must not be negative")
	}
	return nil
}

// ReductionLineItem is one contribution to the total reduction. It is
// ephemeral until a payment is committed.
type ReductionLineItem struct {
	SourceKind     SourceKind      `json:"source_kind"`
	SourceID       string          `json:"source_id"`
	Code           string          `json:"code,omitempty"`
	Label          string          `json:"label"`
	CalcKind       CalcKind        `json:"calc_kind"`
	Value          decimal.Decimal `json:"value"`
	ComputedAmount decimal.Decimal `json:"computed_amount"`
	Position       int             `json:"position"`
}

// LegacyReductionRule is one step of the sequential, compounding engine.
type LegacyReductionRule struct {
	ID               string
	Label            string
	Predicate        Condition
	CalcKind         CalcKind
	Value            decimal.Decimal
	ApplicationOrder int
	Active           bool
}

// Reduction returns the rule's calculation as a Reduction.
func (r *LegacyReductionRule) Reduction() Reduction {
	return Reduction{CalcKind: r.CalcKind, Value: r.Value}
}

// SumLineItems totals the computed amounts of items.
func SumLineItems(items []ReductionLineItem) decimal.Decimal {
	total := money.Zero
	for _, it := range items {
		total = money.Add(total, it.ComputedAmount)
	}
	return total
}
