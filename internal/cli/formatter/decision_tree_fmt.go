package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/ludo/internal/domain"
)

// DescribeCondition renders a branch or rule predicate in one line.
func DescribeCondition(c domain.Condition) string {
	switch c := c.(type) {
	case nil, domain.AnyCondition:
		return "default"
	case domain.AgeCondition:
		return "age " + c.Comparison.String()
	case domain.FideliteCondition:
		return "seniority " + c.Comparison.String()
	case domain.MultiInscriptionsCondition:
		return "household payments " + c.Comparison.String()
	case domain.QFCondition:
		switch {
		case c.Min != nil && c.Max != nil:
			return fmt.Sprintf("QF %g..%g", *c.Min, *c.Max)
		case c.Min != nil:
			return fmt.Sprintf("QF >= %g", *c.Min)
		case c.Max != nil:
			return fmt.Sprintf("QF <= %g", *c.Max)
		}
		return "any QF"
	case domain.CommuneCondition:
		switch c.Mode {
		case domain.CommuneModeGroup:
			return "commune in group " + c.Group
		case domain.CommuneModeList:
			return "commune in " + strings.Join(c.CommuneIDs, ", ")
		case domain.CommuneModeSingle:
			return "commune " + c.CommuneID
		}
		return "any commune"
	case domain.StatutSocialCondition:
		if len(c.Values) > 0 {
			return "status in " + strings.Join(c.Values, ", ")
		}
		return "status " + c.Value
	case domain.InvalidCondition:
		if c.Err != nil {
			return "invalid: " + c.Err.Error()
		}
		return "invalid"
	}
	return string(c.Kind())
}

// DescribeReduction renders a reduction as "-15%" or "-5.00".
func DescribeReduction(r *domain.Reduction) string {
	if r == nil {
		return ""
	}
	if r.CalcKind == domain.CalcPercentage {
		return "-" + r.Value.String() + "%"
	}
	return "-" + r.Value.StringFixed(2)
}

// FormatDecisionTree renders a tree's header and node structure.
func FormatDecisionTree(t *domain.DecisionTree, scheduleLabel string) string {
	var b strings.Builder
	b.WriteString(Header(fmt.Sprintf("Decision tree · %s · v%d", scheduleLabel, t.Version)))
	b.WriteString("\n")
	pairs := [][2]string{
		{"ID", t.ID},
		{"State", LockBadge(t.Locked, t.Current())},
		{"Display", string(t.DisplayMode)},
	}
	if t.LockedAt != nil {
		pairs = append(pairs, [2]string{"Locked at", Date(t.LockedAt)})
	}
	b.WriteString(KeyValues(pairs))
	b.WriteString("\n")

	if len(t.Nodes) == 0 {
		b.WriteString(Dim("(no nodes)") + "\n")
		return b.String()
	}
	var items []TreeItem
	appendNodes(&items, t.Nodes, 0)
	b.WriteString(RenderTree(items))
	return b.String()
}

func appendNodes(items *[]TreeItem, nodes []domain.DecisionNode, level int) {
	for i, n := range nodes {
		title := string(n.ConditionKind)
		if n.Label != "" {
			title += " · " + n.Label
		}
		*items = append(*items, TreeItem{Title: Bold(title), Level: level, IsLast: i == len(nodes)-1})
		for j, br := range n.Branches {
			*items = append(*items, TreeItem{
				Title:  fmt.Sprintf("%s %s (%s)", br.Code, br.Label, DescribeCondition(br.Condition)),
				Level:  level + 1,
				IsLast: j == len(n.Branches)-1,
				Detail: DescribeReduction(br.Reduction),
			})
			appendNodes(items, br.Children, level+2)
		}
	}
}

// FormatTreeVersions lists every version of a schedule's tree.
func FormatTreeVersions(trees []*domain.DecisionTree) string {
	if len(trees) == 0 {
		return Dim("No decision tree for this schedule.") + "\n"
	}
	rows := make([][]string, 0, len(trees))
	for _, t := range trees {
		rows = append(rows, []string{
			fmt.Sprintf("v%d", t.Version),
			t.ID,
			LockBadge(t.Locked, t.Current()),
			Date(t.LockedAt),
			fmt.Sprintf("%d", len(t.Nodes)),
		})
	}
	return RenderTable([]string{"VERSION", "ID", "STATE", "LOCKED", "NODES"}, rows)
}
