package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/ludo/internal/domain"
)

// FormatPaymentList renders a member's payments, newest first as given.
func FormatPaymentList(payments []*domain.MembershipPayment, m *Money) string {
	if len(payments) == 0 {
		return Dim("No payments recorded.") + "\n"
	}
	rows := make([][]string, 0, len(payments))
	for _, p := range payments {
		tree := Dim("--")
		if p.TreeVersion != nil {
			tree = fmt.Sprintf("v%d", *p.TreeVersion)
		}
		rows = append(rows, []string{
			Dim(p.ID),
			p.Reference,
			p.PaymentDate.Format(dateLayout),
			p.PeriodEnd.Format(dateLayout),
			p.ScheduleLabel,
			tree,
			m.Format(p.FinalAmount),
		})
	}
	return RenderTable([]string{"ID", "REFERENCE", "PAID", "UNTIL", "SCHEDULE", "TREE", "AMOUNT"}, rows)
}

// FormatPayment renders a committed payment snapshot with its reductions.
func FormatPayment(p *domain.MembershipPayment, m *Money, showTrace bool) string {
	var b strings.Builder
	b.WriteString(Header("Payment " + p.Reference))
	b.WriteString("\n")

	age := Dim("unknown")
	if p.AgeAtPayment != nil {
		age = fmt.Sprintf("%d", *p.AgeAtPayment)
	}
	tree := Dim("none")
	if p.TreeID != nil && p.TreeVersion != nil {
		tree = fmt.Sprintf("v%d %s", *p.TreeVersion, TruncID(*p.TreeID))
	}
	b.WriteString(KeyValues([][2]string{
		{"ID", p.ID},
		{"Member", p.MemberID},
		{"Schedule", p.ScheduleLabel},
		{"Method", p.Method},
		{"Paid on", p.PaymentDate.Format(dateLayout)},
		{"Period", p.PeriodStart.Format(dateLayout) + " → " + p.PeriodEnd.Format(dateLayout)},
		{"Age", age},
		{"Age bracket", p.AgeBracketCode},
		{"Income bracket", Opt(p.IncomeBracketLabel)},
		{"Tree", tree},
	}))
	b.WriteString("\n")

	rows := [][]string{
		{"Base amount", "", m.Format(p.BaseAmount)},
		{"After income bracket", "", m.Format(p.IncomeAmount)},
		{"Intermediate amount", "", m.Format(p.IntermediateAmount)},
	}
	for _, it := range p.Reductions {
		rows = append(rows, []string{"  " + strings.TrimSpace(it.Code+" "+it.Label), string(it.SourceKind), m.Signed(it.ComputedAmount)})
	}
	rows = append(rows,
		[]string{"Total reductions", "", m.Signed(p.TotalReductions)},
		[]string{Bold("Amount paid"), "", StyleDue.Render(m.Format(p.FinalAmount))},
	)
	b.WriteString(RenderTable([]string{"STEP", "SOURCE", "AMOUNT"}, rows))

	if showTrace {
		b.WriteString("\n")
		b.WriteString(FormatTrace(p.Trace, m))
	}
	return b.String()
}
