package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StandardBracketCode identifies the age bracket used when a member's age
// cannot be determined.
const StandardBracketCode = "STANDARD"

// DefaultDurationMonths is the membership period length when a schedule
// does not set one.
const DefaultDurationMonths = 12

// FeeSchedule is the price structure for one membership period.
type FeeSchedule struct {
	ID             string
	Label          string
	BaseAmount     decimal.Decimal
	DurationMonths int
	// BracketAmounts overrides BaseAmount per age bracket id.
	BracketAmounts map[string]decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PeriodEnd returns the end of a membership period starting at start.
func (s *FeeSchedule) PeriodEnd(start time.Time) time.Time {
	months := s.DurationMonths
	if months <= 0 {
		months = DefaultDurationMonths
	}
	return start.AddDate(0, months, 0)
}

// AgeBracket groups members by age for pricing. Bounds are inclusive and
// either may be absent.
type AgeBracket struct {
	ID          string
	Code        string
	Label       string
	MinAge      *int
	MaxAge      *int
	Priority    int
	StructureID *string
}

// Contains reports whether age falls inside the bracket bounds.
func (b *AgeBracket) Contains(age int) bool {
	if b.MinAge != nil && age < *b.MinAge {
		return false
	}
	if b.MaxAge != nil && age > *b.MaxAge {
		return false
	}
	return true
}

// AppliesTo reports whether the bracket is usable for the given structure.
// Unscoped brackets apply everywhere.
func (b *AgeBracket) AppliesTo(structureID string) bool {
	if b.StructureID == nil || *b.StructureID == "" {
		return true
	}
	return *b.StructureID == structureID
}
