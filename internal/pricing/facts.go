// Package pricing holds the pure fee computation: condition matchers, the
// income-bracket resolver, the legacy rule engine, the decision tree
// evaluator and the tariff resolver. Nothing here touches storage; callers
// resolve member facts first and pass them in.
package pricing

import (
	"time"

	"github.com/alexanderramin/ludo/internal/domain"
)

// Facts is the member state conditions are evaluated against. Empty strings
// and nil pointers mean the value is unknown.
type Facts struct {
	BirthDate      *time.Time
	CommuneID      string
	IncomeQuotient *float64
	SocialStatus   string
	FirstPaymentAt *time.Time
	HouseholdID    string
	// HouseholdActivePayments counts payments of the household whose period
	// ends after the reference date.
	HouseholdActivePayments int
	// CommuneGroups resolves group names used by COMMUNE conditions.
	CommuneGroups map[string][]string
}

// FactsFromMember copies the member fields conditions read. Payment history
// and commune groups are filled in by the caller.
func FactsFromMember(m *domain.Member) Facts {
	f := Facts{
		BirthDate:      m.BirthDate,
		IncomeQuotient: m.IncomeQuotient,
	}
	if m.CommuneID != nil {
		f.CommuneID = *m.CommuneID
	}
	if m.SocialStatus != nil {
		f.SocialStatus = *m.SocialStatus
	}
	if m.HouseholdID != nil {
		f.HouseholdID = *m.HouseholdID
	}
	return f
}
