package pricing

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/alexanderramin/ludo/internal/domain"
)

// Verdict is a match decision together with its audit rationale. Both come
// from the same code path so the trace can never disagree with the result.
type Verdict struct {
	Matched   bool
	Rationale string
}

func matched(format string, args ...any) Verdict {
	return Verdict{Matched: true, Rationale: fmt.Sprintf(format, args...)}
}

func rejected(format string, args ...any) Verdict {
	return Verdict{Matched: false, Rationale: fmt.Sprintf(format, args...)}
}

// Match evaluates cond against facts at the reference date. A malformed
// descriptor returns an error and no verdict.
func Match(cond domain.Condition, f Facts, at time.Time) (Verdict, error) {
	if cond == nil {
		return matched("no condition"), nil
	}
	if err := cond.Validate(); err != nil {
		return Verdict{}, err
	}
	switch c := cond.(type) {
	case domain.AnyCondition:
		return matched("default branch"), nil
	case domain.CommuneCondition:
		return matchCommune(c, f), nil
	case domain.QFCondition:
		return matchQF(c, f), nil
	case domain.AgeCondition:
		return matchAge(c, f, at), nil
	case domain.FideliteCondition:
		return matchFidelite(c, f, at), nil
	case domain.MultiInscriptionsCondition:
		return matchMultiInscriptions(c, f), nil
	case domain.StatutSocialCondition:
		return matchStatutSocial(c, f), nil
	default:
		return Verdict{}, fmt.Errorf("unsupported condition %T", cond)
	}
}

func matchCommune(c domain.CommuneCondition, f Facts) Verdict {
	if c.Mode == domain.CommuneModeAny {
		return matched("any commune")
	}
	if f.CommuneID == "" {
		return rejected("member has no commune")
	}
	switch c.Mode {
	case domain.CommuneModeGroup:
		ids, ok := f.CommuneGroups[c.Group]
		if !ok {
			return rejected("commune group %q is unknown", c.Group)
		}
		if slices.Contains(ids, f.CommuneID) {
			return matched("commune %s belongs to group %q", f.CommuneID, c.Group)
		}
		return rejected("commune %s not in group %q", f.CommuneID, c.Group)
	case domain.CommuneModeList:
		if slices.Contains(c.CommuneIDs, f.CommuneID) {
			return matched("commune %s in [%s]", f.CommuneID, strings.Join(c.CommuneIDs, ", "))
		}
		return rejected("commune %s not in [%s]", f.CommuneID, strings.Join(c.CommuneIDs, ", "))
	default:
		if c.CommuneID == f.CommuneID {
			return matched("commune is %s", c.CommuneID)
		}
		return rejected("commune %s is not %s", f.CommuneID, c.CommuneID)
	}
}

func matchQF(c domain.QFCondition, f Facts) Verdict {
	if f.IncomeQuotient == nil {
		return rejected("income quotient unknown")
	}
	qf := *f.IncomeQuotient
	bounds := qfBounds(c)
	if c.Min != nil && qf < *c.Min {
		return rejected("qf %.2f below %s", qf, bounds)
	}
	if c.Max != nil && qf > *c.Max {
		return rejected("qf %.2f above %s", qf, bounds)
	}
	return matched("qf %.2f within %s", qf, bounds)
}

func qfBounds(c domain.QFCondition) string {
	lo, hi := "-inf", "+inf"
	if c.Min != nil {
		lo = fmt.Sprintf("%.2f", *c.Min)
	}
	if c.Max != nil {
		hi = fmt.Sprintf("%.2f", *c.Max)
	}
	return "[" + lo + ", " + hi + "]"
}

func matchAge(c domain.AgeCondition, f Facts, at time.Time) Verdict {
	if f.BirthDate == nil {
		return rejected("birth date unknown")
	}
	age := AgeAt(*f.BirthDate, at)
	if c.Eval(age) {
		return matched("age %d %s", age, c.Comparison)
	}
	return rejected("age %d not %s", age, c.Comparison)
}

func matchFidelite(c domain.FideliteCondition, f Facts, at time.Time) Verdict {
	if f.FirstPaymentAt == nil || f.FirstPaymentAt.After(at) {
		return rejected("no prior payment")
	}
	years := SeniorityYears(*f.FirstPaymentAt, at)
	if c.Eval(years) {
		return matched("%d years of membership %s", years, c.Comparison)
	}
	return rejected("%d years of membership not %s", years, c.Comparison)
}

func matchMultiInscriptions(c domain.MultiInscriptionsCondition, f Facts) Verdict {
	if f.HouseholdID == "" {
		return rejected("member has no household")
	}
	n := f.HouseholdActivePayments
	if c.Eval(n) {
		return matched("%d active household memberships %s", n, c.Comparison)
	}
	return rejected("%d active household memberships not %s", n, c.Comparison)
}

func matchStatutSocial(c domain.StatutSocialCondition, f Facts) Verdict {
	if f.SocialStatus == "" {
		return rejected("social status unknown")
	}
	if c.Value != "" && strings.EqualFold(c.Value, f.SocialStatus) {
		return matched("social status is %s", f.SocialStatus)
	}
	for _, v := range c.Values {
		if strings.EqualFold(v, f.SocialStatus) {
			return matched("social status %s in [%s]", f.SocialStatus, strings.Join(c.Values, ", "))
		}
	}
	return rejected("social status %s does not match", f.SocialStatus)
}
