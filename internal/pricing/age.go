package pricing

import (
	"math"
	"time"
)

// AgeAt returns the age in full years at the given date, comparing month and
// day so the birthday itself counts and the day before does not.
func AgeAt(birth, at time.Time) int {
	by, bm, bd := birth.Date()
	ay, am, ad := at.Date()
	age := ay - by
	if am < bm || (am == bm && ad < bd) {
		age--
	}
	return age
}

// AgePtr is AgeAt for an optional birth date.
func AgePtr(birth *time.Time, at time.Time) *int {
	if birth == nil {
		return nil
	}
	age := AgeAt(*birth, at)
	return &age
}

const daysPerYear = 365.25

// SeniorityYears returns floor(days since first / 365.25).
func SeniorityYears(first, at time.Time) int {
	days := math.Floor(at.Sub(first).Hours() / 24)
	if days < 0 {
		return 0
	}
	return int(math.Floor(days / daysPerYear))
}
