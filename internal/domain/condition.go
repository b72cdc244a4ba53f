package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

type ConditionKind string

const (
	KindAny               ConditionKind = "ANY"
	KindCommune           ConditionKind = "COMMUNE"
	KindQF                ConditionKind = "QF"
	KindAge               ConditionKind = "AGE"
	KindFidelite          ConditionKind = "FIDELITE"
	KindMultiInscriptions ConditionKind = "MULTI_INSCRIPTIONS"
	KindStatutSocial      ConditionKind = "STATUT_SOCIAL"
)

// NodeKinds lists the kinds a decision node may declare.
var NodeKinds = []ConditionKind{
	KindCommune, KindQF, KindAge, KindFidelite, KindMultiInscriptions, KindStatutSocial,
}

// ValidNodeKind reports whether k may be used as a node's condition kind.
func ValidNodeKind(k ConditionKind) bool {
	for _, nk := range NodeKinds {
		if nk == k {
			return true
		}
	}
	return false
}

// Condition is the closed set of branch and rule predicates. Each concrete
// type below is one variant; matching lives in the pricing package.
type Condition interface {
	Kind() ConditionKind
	Validate() error
	sealed()
}

// AnyCondition is the default branch marker: it matches whenever reached.
type AnyCondition struct{}

type CommuneMode string

const (
	CommuneModeAny    CommuneMode = "any"
	CommuneModeGroup  CommuneMode = "group"
	CommuneModeList   CommuneMode = "list"
	CommuneModeSingle CommuneMode = "single"
)

// CommuneCondition tests the member's commune.
type CommuneCondition struct {
	Mode       CommuneMode `json:"mode"`
	Group      string      `json:"group,omitempty"`
	CommuneIDs []string    `json:"commune_ids,omitempty"`
	CommuneID  string      `json:"commune_id,omitempty"`
}

// QFCondition tests the income quotient against inclusive optional bounds.
type QFCondition struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// AgeCondition compares the member's exact age at the payment date.
type AgeCondition struct {
	Comparison
}

// FideliteCondition compares whole years since the first payment.
type FideliteCondition struct {
	Comparison
}

// MultiInscriptionsCondition compares the household's active payment count.
type MultiInscriptionsCondition struct {
	Comparison
}

// StatutSocialCondition tests the social-status tag by equality or set
// membership.
type StatutSocialCondition struct {
	Value  string   `json:"value,omitempty"`
	Values []string `json:"values,omitempty"`
}

// InvalidCondition holds a descriptor that could not be decoded. It never
// matches; evaluating it yields a MatcherError.
type InvalidCondition struct {
	DeclaredKind ConditionKind
	Raw          json.RawMessage
	Err          error
}

func (AnyCondition) Kind() ConditionKind               { return KindAny }
func (CommuneCondition) Kind() ConditionKind           { return KindCommune }
func (QFCondition) Kind() ConditionKind                { return KindQF }
func (AgeCondition) Kind() ConditionKind               { return KindAge }
func (FideliteCondition) Kind() ConditionKind          { return KindFidelite }
func (MultiInscriptionsCondition) Kind() ConditionKind { return KindMultiInscriptions }
func (StatutSocialCondition) Kind() ConditionKind      { return KindStatutSocial }
func (c InvalidCondition) Kind() ConditionKind         { return c.DeclaredKind }

func (AnyCondition) sealed()               {}
func (CommuneCondition) sealed()           {}
func (QFCondition) sealed()                {}
func (AgeCondition) sealed()               {}
func (FideliteCondition) sealed()          {}
func (MultiInscriptionsCondition) sealed() {}
func (StatutSocialCondition) sealed()      {}
func (InvalidCondition) sealed()           {}

func (AnyCondition) Validate() error { return nil }

func (c CommuneCondition) Validate() error {
	switch c.Mode {
	case CommuneModeAny:
		return nil
	case CommuneModeGroup:
		if strings.TrimSpace(c.Group) == "" {
			return fmt.Errorf("commune group name is required")
		}
	case CommuneModeList:
		if len(c.CommuneIDs) == 0 {
			return fmt.Errorf("commune_ids must not be empty")
		}
	case CommuneModeSingle:
		if c.CommuneID == "" {
			return fmt.Errorf("commune_id is required")
		}
	default:
		return fmt.Errorf("unknown commune mode %q", c.Mode)
	}
	return nil
}

func (c QFCondition) Validate() error {
	if c.Min != nil && c.Max != nil && *c.Min > *c.Max {
		return fmt.Errorf("qf min %.2f exceeds max %.2f", *c.Min, *c.Max)
	}
	return nil
}

func (c StatutSocialCondition) Validate() error {
	if c.Value == "" && len(c.Values) == 0 {
		return fmt.Errorf("statut social requires value or values")
	}
	return nil
}

func (c InvalidCondition) Validate() error {
	return fmt.Errorf("malformed %s condition: %w", c.DeclaredKind, c.Err)
}

type Operator string

const (
	OpLT      Operator = "<"
	OpLTE     Operator = "<="
	OpGT      Operator = ">"
	OpGTE     Operator = ">="
	OpEQ      Operator = "="
	OpBetween Operator = "between"
)

// Comparison is the integer comparison shared by AGE, FIDELITE and
// MULTI_INSCRIPTIONS descriptors. Between bounds are inclusive.
type Comparison struct {
	Operator Operator `json:"operator"`
	Value    *int     `json:"value,omitempty"`
	Min      *int     `json:"min,omitempty"`
	Max      *int     `json:"max,omitempty"`
}

func (c Comparison) Validate() error {
	switch c.Operator {
	case OpLT, OpLTE, OpGT, OpGTE, OpEQ:
		if c.Value == nil {
			return fmt.Errorf("operator %q requires value", c.Operator)
		}
	case OpBetween:
		if c.Min == nil || c.Max == nil {
			return fmt.Errorf("between requires min and max")
		}
		if *c.Min > *c.Max {
			return fmt.Errorf("between min %d exceeds max %d", *c.Min, *c.Max)
		}
	default:
		return fmt.Errorf("unknown operator %q", c.Operator)
	}
	return nil
}

// Eval applies the comparison to n. It assumes Validate succeeded.
func (c Comparison) Eval(n int) bool {
	switch c.Operator {
	case OpLT:
		return n < *c.Value
	case OpLTE:
		return n <= *c.Value
	case OpGT:
		return n > *c.Value
	case OpGTE:
		return n >= *c.Value
	case OpEQ:
		return n == *c.Value
	case OpBetween:
		return n >= *c.Min && n <= *c.Max
	}
	return false
}

// String renders the comparison for audit rationales, e.g. ">= 5" or
// "between 18 and 25".
func (c Comparison) String() string {
	if c.Operator == OpBetween && c.Min != nil && c.Max != nil {
		return fmt.Sprintf("between %d and %d", *c.Min, *c.Max)
	}
	if c.Value != nil {
		return fmt.Sprintf("%s %d", c.Operator, *c.Value)
	}
	return string(c.Operator)
}
