package pricing

import (
	"fmt"
	"sort"

	"github.com/alexanderramin/ludo/internal/domain"
	"github.com/shopspring/decimal"
)

// ResolveAgeBracket picks the first bracket containing age among those that
// apply to structureID, ordered by priority with structure-scoped brackets
// ahead of global ones at equal priority. An unknown age falls back to the
// STANDARD bracket.
func ResolveAgeBracket(brackets []domain.AgeBracket, age *int, structureID string) (bracket *domain.AgeBracket, fallback bool, err error) {
	candidates := make([]domain.AgeBracket, 0, len(brackets))
	for _, b := range brackets {
		if b.AppliesTo(structureID) {
			candidates = append(candidates, b)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return scoped(a) && !scoped(b)
	})

	if age == nil {
		for i := range candidates {
			if candidates[i].Code == domain.StandardBracketCode {
				return &candidates[i], true, nil
			}
		}
		return nil, false, &domain.NotApplicableError{Reason: "age unknown and no STANDARD age bracket configured"}
	}
	for i := range candidates {
		if candidates[i].Contains(*age) {
			return &candidates[i], false, nil
		}
	}
	return nil, false, &domain.NotApplicableError{Reason: fmt.Sprintf("no age bracket for age %d", *age)}
}

func scoped(b domain.AgeBracket) bool {
	return b.StructureID != nil && *b.StructureID != ""
}

// BaseAmount returns the schedule amount for the bracket, honoring
// per-bracket overrides.
func BaseAmount(s *domain.FeeSchedule, b *domain.AgeBracket) decimal.Decimal {
	if b != nil {
		if amt, ok := s.BracketAmounts[b.ID]; ok {
			return amt
		}
	}
	return s.BaseAmount
}
