package domain

import "time"

// Member is a registered user of the lending association, limited to the
// fields the fee engine reads.
type Member struct {
	ID                string
	FirstName         string
	LastName          string
	BirthDate         *time.Time
	HouseholdID       *string
	CommuneID         *string
	IncomeQuotient    *float64
	SocialStatus      *string
	MembershipEndDate *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// FullName returns "First Last", trimmed when one part is empty.
func (m *Member) FullName() string {
	switch {
	case m.FirstName == "":
		return m.LastName
	case m.LastName == "":
		return m.FirstName
	default:
		return m.FirstName + " " + m.LastName
	}
}

// CommuneGroup is a named set of communes used by COMMUNE conditions.
type CommuneGroup struct {
	Name       string
	CommuneIDs []string
}
