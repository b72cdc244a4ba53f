package domain

import "github.com/shopspring/decimal"

// EvaluationTrace is the audit record of one fee computation.
type EvaluationTrace struct {
	Tariff TariffTrace   `json:"tariff"`
	Income IncomeTrace   `json:"income"`
	Legacy []LegacyTrace `json:"legacy,omitempty"`
	Tree   []NodeTrace   `json:"tree,omitempty"`
	Notes  []string      `json:"notes,omitempty"`
}

type TariffTrace struct {
	Age            *int            `json:"age,omitempty"`
	AgeBracketID   string          `json:"age_bracket_id"`
	AgeBracketCode string          `json:"age_bracket_code"`
	Fallback       bool            `json:"fallback,omitempty"`
	BaseAmount     decimal.Decimal `json:"base_amount"`
}

type IncomeTrace struct {
	Applied      bool            `json:"applied"`
	Reason       string          `json:"reason,omitempty"`
	BracketID    string          `json:"bracket_id,omitempty"`
	BracketLabel string          `json:"bracket_label,omitempty"`
	CalcKind     CalcKind        `json:"calc_kind,omitempty"`
	Value        decimal.Decimal `json:"value"`
	AmountBefore decimal.Decimal `json:"amount_before"`
	AmountAfter  decimal.Decimal `json:"amount_after"`
}

type LegacyTrace struct {
	RuleID        string          `json:"rule_id"`
	Label         string          `json:"label"`
	Matched       bool            `json:"matched"`
	Rationale     string          `json:"rationale,omitempty"`
	Error         string          `json:"error,omitempty"`
	RunningBefore decimal.Decimal `json:"running_before"`
	RunningAfter  decimal.Decimal `json:"running_after"`
	Clamped       bool            `json:"clamped,omitempty"`
}

// NodeTrace records every branch tested in one node, in order.
type NodeTrace struct {
	NodeID           string        `json:"node_id"`
	Kind             ConditionKind `json:"kind"`
	Label            string        `json:"label,omitempty"`
	Depth            int           `json:"depth"`
	Branches         []BranchTrace `json:"branches,omitempty"`
	SelectedBranchID string        `json:"selected_branch_id,omitempty"`
	Skipped          string        `json:"skipped,omitempty"`
}

type BranchTrace struct {
	BranchID  string             `json:"branch_id"`
	Code      string             `json:"code"`
	Label     string             `json:"label"`
	Matched   bool               `json:"matched"`
	Selected  bool               `json:"selected"`
	Rationale string             `json:"rationale,omitempty"`
	Error     string             `json:"error,omitempty"`
	Reduction *ReductionLineItem `json:"reduction,omitempty"`
	Children  []NodeTrace        `json:"children,omitempty"`
}
