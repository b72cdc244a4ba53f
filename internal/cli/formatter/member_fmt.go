package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/ludo/internal/domain"
)

func FormatMemberList(members []*domain.Member) string {
	if len(members) == 0 {
		return Dim("No members. Import a configuration file first.") + "\n"
	}
	rows := make([][]string, 0, len(members))
	for _, mb := range members {
		rows = append(rows, []string{
			mb.ID,
			mb.FullName(),
			Date(mb.BirthDate),
			Opt(mb.HouseholdID),
			Date(mb.MembershipEndDate),
		})
	}
	return RenderTable([]string{"ID", "NAME", "BORN", "HOUSEHOLD", "MEMBER UNTIL"}, rows)
}

func FormatMember(mb *domain.Member) string {
	qf := Dim("--")
	if mb.IncomeQuotient != nil {
		qf = fmt.Sprintf("%g", *mb.IncomeQuotient)
	}
	var b strings.Builder
	b.WriteString(Header(mb.FullName()))
	b.WriteString("\n")
	b.WriteString(KeyValues([][2]string{
		{"ID", mb.ID},
		{"Born", Date(mb.BirthDate)},
		{"Household", Opt(mb.HouseholdID)},
		{"Commune", Opt(mb.CommuneID)},
		{"Income quotient", qf},
		{"Social status", Opt(mb.SocialStatus)},
		{"Member until", Date(mb.MembershipEndDate)},
	}))
	return b.String()
}
