package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/ludo/internal/domain"
	"github.com/alexanderramin/ludo/internal/pricing"
)

// FormatQuote renders a simulated fee. Detailed trees list each branch
// reduction; cumulative trees show a single total line.
func FormatQuote(member *domain.Member, schedule *domain.FeeSchedule, q *pricing.Quote, m *Money, showTrace bool) string {
	var b strings.Builder
	b.WriteString(Header(fmt.Sprintf("Fee · %s · %s", member.FullName(), schedule.Label)))
	b.WriteString("\n")

	age := Dim("unknown")
	if q.Age != nil {
		age = fmt.Sprintf("%d", *q.Age)
	}
	bracket := q.AgeBracket.Code
	if q.Fallback {
		bracket += Dim(" (fallback)")
	}
	income := Dim("not applied")
	if q.Income.Applied && q.Income.Bracket != nil {
		income = q.Income.Bracket.Label
	} else if q.Income.Reason != "" {
		income = Dim("not applied: " + q.Income.Reason)
	}
	b.WriteString(KeyValues([][2]string{
		{"Payment date", q.PaymentDate.Format(dateLayout)},
		{"Age", age},
		{"Age bracket", bracket},
		{"Income bracket", income},
	}))
	b.WriteString("\n")

	rows := [][]string{
		{"Base amount", m.Format(q.BaseAmount)},
		{"After income bracket", m.Format(q.Income.Amount)},
	}
	for _, it := range q.Legacy.LineItems {
		rows = append(rows, []string{"  " + it.Label, m.Signed(it.ComputedAmount)})
	}
	rows = append(rows, []string{"Intermediate amount", m.Format(q.IntermediateAmount)})
	if q.Tree != nil {
		if q.DisplayMode == domain.DisplayDetailed {
			for _, it := range q.Tree.LineItems {
				rows = append(rows, []string{"  " + it.Code + " " + it.Label, m.Signed(it.ComputedAmount)})
			}
		} else {
			rows = append(rows, []string{fmt.Sprintf("  Decision tree v%d", q.TreeVersion), m.Signed(q.TreeReductions)})
		}
	}
	rows = append(rows,
		[]string{"Total reductions", m.Signed(q.TotalReductions)},
		[]string{Bold("Amount due"), StyleDue.Render(m.Format(q.FinalAmount))},
	)
	b.WriteString(RenderTable([]string{"STEP", "AMOUNT"}, rows))

	if showTrace {
		b.WriteString("\n")
		b.WriteString(FormatTrace(q.Trace, m))
	}
	return b.String()
}

// FormatTrace renders the audit trail of a computation.
func FormatTrace(tr domain.EvaluationTrace, m *Money) string {
	var b strings.Builder
	b.WriteString(Header("Trace"))
	b.WriteString("\n")

	b.WriteString(KeyValues([][2]string{
		{"Tariff", fmt.Sprintf("%s → %s", tr.Tariff.AgeBracketCode, m.Format(tr.Tariff.BaseAmount))},
		{"Income", incomeTraceLine(tr.Income, m)},
	}))

	if len(tr.Legacy) > 0 {
		b.WriteString("\n" + Bold("Legacy rules") + "\n")
		items := make([]TreeItem, 0, len(tr.Legacy))
		for i, l := range tr.Legacy {
			item := TreeItem{Title: l.Label, Level: 1, IsLast: i == len(tr.Legacy)-1, State: ItemRejected}
			switch {
			case l.Error != "":
				item.State = ItemError
				item.Title += ": " + l.Error
			case l.Matched:
				item.State = ItemSelected
				item.Detail = fmt.Sprintf("%s → %s", m.Format(l.RunningBefore), m.Format(l.RunningAfter))
				if l.Clamped {
					item.Detail += " clamped"
				}
			default:
				item.Title += Dim(" " + l.Rationale)
			}
			items = append(items, item)
		}
		b.WriteString(RenderTree(items))
	}

	if len(tr.Tree) > 0 {
		b.WriteString("\n" + Bold("Decision tree") + "\n")
		var items []TreeItem
		appendNodeTraces(&items, tr.Tree, 0, m)
		b.WriteString(RenderTree(items))
	}
	for _, n := range tr.Notes {
		b.WriteString(Dim("note: "+n) + "\n")
	}
	return b.String()
}

func incomeTraceLine(t domain.IncomeTrace, m *Money) string {
	if !t.Applied {
		if t.Reason == "" {
			return Dim("not applied")
		}
		return Dim("not applied: " + t.Reason)
	}
	return fmt.Sprintf("%s (%s %s) %s → %s", t.BracketLabel, t.CalcKind, t.Value.String(),
		m.Format(t.AmountBefore), m.Format(t.AmountAfter))
}

func appendNodeTraces(items *[]TreeItem, nodes []domain.NodeTrace, level int, m *Money) {
	for i, n := range nodes {
		title := string(n.Kind)
		if n.Label != "" {
			title += " · " + n.Label
		}
		node := TreeItem{Title: Bold(title), Level: level, IsLast: i == len(nodes)-1}
		if n.Skipped != "" {
			node.State = ItemSkipped
			node.Title = title + ": " + n.Skipped
		}
		*items = append(*items, node)

		for j, bt := range n.Branches {
			item := TreeItem{Title: bt.Code + " " + bt.Label, Level: level + 1, IsLast: j == len(n.Branches)-1, State: ItemRejected}
			switch {
			case bt.Error != "":
				item.State = ItemError
				item.Title += ": " + bt.Error
			case bt.Selected:
				item.State = ItemSelected
				item.Title += Dim(" " + bt.Rationale)
				if bt.Reduction != nil {
					item.Detail = m.Signed(bt.Reduction.ComputedAmount)
				}
			default:
				item.Title += Dim(" " + bt.Rationale)
			}
			*items = append(*items, item)
			appendNodeTraces(items, bt.Children, level+2, m)
		}
	}
}
