package pricing

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alexanderramin/ludo/internal/domain"
	"github.com/alexanderramin/ludo/internal/money"
	"github.com/shopspring/decimal"
)

// DefaultMaxDepth bounds how many node levels the evaluator descends.
const DefaultMaxDepth = 16

// TreeContext carries the values fixed for a whole tree evaluation.
type TreeContext struct {
	// ReferenceBaseAmount is the amount every percentage branch is computed
	// against, at every depth.
	ReferenceBaseAmount decimal.Decimal
	PaymentDate         time.Time
}

// PathStep is one selected branch.
type PathStep struct {
	NodeID   string
	BranchID string
	Code     string
	Depth    int
}

// TreeResult is the outcome of evaluating a decision tree.
type TreeResult struct {
	LineItems      []domain.ReductionLineItem
	MatchedPath    []PathStep
	TotalReduction decimal.Decimal
	Trace          []domain.NodeTrace
	MatcherErrors  int
}

// Evaluator walks decision trees. It holds no per-evaluation state and is
// safe for concurrent use.
type Evaluator struct {
	logger   *slog.Logger
	maxDepth int
}

// NewEvaluator creates an Evaluator. A nil logger discards warnings;
// maxDepth <= 0 selects DefaultMaxDepth.
func NewEvaluator(logger *slog.Logger, maxDepth int) *Evaluator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Evaluator{logger: logger, maxDepth: maxDepth}
}

// Evaluate walks every top-level node independently and sums the selected
// branches' reductions. Within a node the first matching branch wins.
// Reductions are additive: children use the same reference base as their
// parents, never a running discounted total.
func (e *Evaluator) Evaluate(nodes []domain.DecisionNode, f Facts, tc TreeContext) TreeResult {
	res := TreeResult{TotalReduction: money.Zero}
	res.Trace = e.evalNodes(nodes, f, tc, 0, &res)
	return res
}

func (e *Evaluator) evalNodes(nodes []domain.DecisionNode, f Facts, tc TreeContext, depth int, res *TreeResult) []domain.NodeTrace {
	if len(nodes) == 0 {
		return nil
	}
	ordered := make([]domain.DecisionNode, len(nodes))
	copy(ordered, nodes)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	traces := make([]domain.NodeTrace, 0, len(ordered))
	for _, node := range ordered {
		nt := domain.NodeTrace{
			NodeID: node.ID,
			Kind:   node.ConditionKind,
			Label:  node.Label,
			Depth:  depth,
		}
		if depth >= e.maxDepth {
			nt.Skipped = fmt.Sprintf("depth limit %d reached", e.maxDepth)
			e.logger.Warn("decision tree depth limit reached", "node_id", node.ID, "depth", depth)
			traces = append(traces, nt)
			continue
		}
		e.evalBranches(node, f, tc, depth, res, &nt)
		traces = append(traces, nt)
	}
	return traces
}

func (e *Evaluator) evalBranches(node domain.DecisionNode, f Facts, tc TreeContext, depth int, res *TreeResult, nt *domain.NodeTrace) {
	for _, b := range node.Branches {
		bt := domain.BranchTrace{BranchID: b.ID, Code: b.Code, Label: b.Label}

		v, err := e.matchBranch(node, b, f, tc.PaymentDate)
		if err != nil {
			merr := &domain.MatcherError{BranchID: b.ID, Kind: node.ConditionKind, Err: err}
			e.logger.Warn("skipping malformed branch", "node_id", node.ID, "branch_id", b.ID, "error", merr.Error())
			res.MatcherErrors++
			bt.Error = merr.Error()
			bt.Rationale = "malformed branch treated as no match"
			nt.Branches = append(nt.Branches, bt)
			continue
		}
		bt.Matched = v.Matched
		bt.Rationale = v.Rationale
		if !v.Matched {
			nt.Branches = append(nt.Branches, bt)
			continue
		}

		bt.Selected = true
		nt.SelectedBranchID = b.ID
		res.MatchedPath = append(res.MatchedPath, PathStep{NodeID: node.ID, BranchID: b.ID, Code: b.Code, Depth: depth})
		if b.Reduction != nil {
			item := domain.ReductionLineItem{
				SourceKind:     domain.SourceTreeBranch,
				SourceID:       b.ID,
				Code:           b.Code,
				Label:          b.Label,
				CalcKind:       b.Reduction.CalcKind,
				Value:          b.Reduction.Value,
				ComputedAmount: b.Reduction.Amount(tc.ReferenceBaseAmount),
				Position:       len(res.LineItems),
			}
			res.LineItems = append(res.LineItems, item)
			res.TotalReduction = money.Add(res.TotalReduction, item.ComputedAmount)
			bt.Reduction = &item
		}
		bt.Children = e.evalNodes(b.Children, f, tc, depth+1, res)
		nt.Branches = append(nt.Branches, bt)
		return
	}
}

// matchBranch checks the branch is well formed for its node, then matches.
func (e *Evaluator) matchBranch(node domain.DecisionNode, b domain.DecisionBranch, f Facts, at time.Time) (Verdict, error) {
	if b.Condition != nil {
		if k := b.Condition.Kind(); k != domain.KindAny && k != node.ConditionKind {
			if _, invalid := b.Condition.(domain.InvalidCondition); !invalid {
				return Verdict{}, fmt.Errorf("condition kind %s in %s node", k, node.ConditionKind)
			}
		}
	}
	if b.Reduction != nil {
		if err := b.Reduction.Validate(); err != nil {
			return Verdict{}, err
		}
	}
	return Match(b.Condition, f, at)
}
