package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type DisplayMode string

const (
	DisplayCumulative DisplayMode = "cumulative"
	DisplayDetailed   DisplayMode = "detailed"
)

// DecisionTree is the admin-edited cumulative discount structure attached to
// one fee schedule. Nodes are frozen once Locked is set.
type DecisionTree struct {
	ID           string
	ScheduleID   string
	Version      int
	Locked       bool
	LockedAt     *time.Time
	DisplayMode  DisplayMode
	SupersededAt *time.Time
	Nodes        []DecisionNode
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Current reports whether this version is the one used for new payments.
func (t *DecisionTree) Current() bool {
	return t.SupersededAt == nil
}

// DecisionNode groups mutually exclusive branches that test one condition
// kind.
type DecisionNode struct {
	ID            string           `json:"id"`
	ConditionKind ConditionKind    `json:"condition_kind"`
	Label         string           `json:"label,omitempty"`
	Order         int              `json:"order"`
	Branches      []DecisionBranch `json:"branches"`
}

// DecisionBranch is one option within a node. Children are evaluated only
// when this branch is selected.
type DecisionBranch struct {
	ID        string
	Code      string
	Label     string
	Condition Condition
	Reduction *Reduction
	Children  []DecisionNode
}

type branchJSON struct {
	ID        string          `json:"id"`
	Code      string          `json:"code"`
	Label     string          `json:"label"`
	Condition json.RawMessage `json:"condition"`
	Reduction *Reduction      `json:"reduction,omitempty"`
	Children  []DecisionNode  `json:"children,omitempty"`
}

func (b DecisionBranch) MarshalJSON() ([]byte, error) {
	cond, err := EncodeCondition(b.Condition)
	if err != nil {
		return nil, fmt.Errorf("branch %s: %w", b.ID, err)
	}
	return json.Marshal(branchJSON{
		ID:        b.ID,
		Code:      b.Code,
		Label:     b.Label,
		Condition: cond,
		Reduction: b.Reduction,
		Children:  b.Children,
	})
}

// UnmarshalJSON decodes a branch. A malformed condition descriptor is kept
// as InvalidCondition rather than failing the whole document.
func (b *DecisionBranch) UnmarshalJSON(data []byte) error {
	var raw branchJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b.ID = raw.ID
	b.Code = raw.Code
	b.Label = raw.Label
	b.Reduction = raw.Reduction
	b.Children = raw.Children
	if len(raw.Condition) == 0 {
		b.Condition = AnyCondition{}
	} else {
		b.Condition = DecodeCondition(raw.Condition)
	}
	return nil
}

// TreeDepth returns the number of node levels in nodes.
func TreeDepth(nodes []DecisionNode) int {
	depth := 0
	for _, n := range nodes {
		for _, b := range n.Branches {
			if d := TreeDepth(b.Children); d > depth {
				depth = d
			}
		}
	}
	if len(nodes) == 0 {
		return depth
	}
	return depth + 1
}

// CloneNodes deep-copies nodes, assigning fresh ids from newID.
func CloneNodes(nodes []DecisionNode, newID func() string) []DecisionNode {
	if nodes == nil {
		return nil
	}
	out := make([]DecisionNode, len(nodes))
	for i, n := range nodes {
		out[i] = DecisionNode{
			ID:            newID(),
			ConditionKind: n.ConditionKind,
			Label:         n.Label,
			Order:         n.Order,
			Branches:      make([]DecisionBranch, len(n.Branches)),
		}
		for j, b := range n.Branches {
			nb := DecisionBranch{
				ID:        newID(),
				Code:      b.Code,
				Label:     b.Label,
				Condition: b.Condition,
				Children:  CloneNodes(b.Children, newID),
			}
			if b.Reduction != nil {
				r := *b.Reduction
				nb.Reduction = &r
			}
			out[i].Branches[j] = nb
		}
	}
	return out
}

// ValidateNodes checks the structure an administrator submits: known node
// kinds, branch conditions of the node's kind (or ANY), valid descriptors
// and reductions, unique ids and a bounded depth.
func ValidateNodes(nodes []DecisionNode, maxDepth int) error {
	if maxDepth > 0 && TreeDepth(nodes) > maxDepth {
		return &ValidationError{Field: "nodes", Message: fmt.Sprintf("tree deeper than %d levels", maxDepth)}
	}
	seen := map[string]bool{}
	return validateNodes(nodes, "nodes", seen)
}

func validateNodes(nodes []DecisionNode, path string, seen map[string]bool) error {
	for i, n := range nodes {
		np := fmt.Sprintf("%s[%d]", path, i)
		if n.ID == "" {
			return &ValidationError{Field: np + ".id", Message: "is required"}
		}
		if seen[n.ID] {
			return &ValidationError{Field: np + ".id", Message: fmt.Sprintf("duplicate id %q", n.ID)}
		}
		seen[n.ID] = true
		if !ValidNodeKind(n.ConditionKind) {
			return &ValidationError{Field: np + ".condition_kind", Message: fmt.Sprintf("unknown kind %q", n.ConditionKind)}
		}
		for j, b := range n.Branches {
			bp := fmt.Sprintf("%s.branches[%d]", np, j)
			if b.ID == "" {
				return &ValidationError{Field: bp + ".id", Message: "is required"}
			}
			if seen[b.ID] {
				return &ValidationError{Field: bp + ".id", Message: fmt.Sprintf("duplicate id %q", b.ID)}
			}
			seen[b.ID] = true
			if b.Condition == nil {
				return &ValidationError{Field: bp + ".condition", Message: "is required"}
			}
			if err := b.Condition.Validate(); err != nil {
				return &ValidationError{Field: bp + ".condition", Message: err.Error(), Err: err}
			}
			if k := b.Condition.Kind(); k != KindAny && k != n.ConditionKind {
				return &ValidationError{Field: bp + ".condition", Message: fmt.Sprintf("kind %s does not match node kind %s", k, n.ConditionKind)}
			}
			if b.Reduction != nil {
				if err := b.Reduction.Validate(); err != nil {
					return &ValidationError{Field: bp + ".reduction", Message: err.Error(), Err: err}
				}
			}
			if err := validateNodes(b.Children, bp+".children", seen); err != nil {
				return err
			}
		}
	}
	return nil
}
