package importer

import (
	"fmt"
	"time"

	"github.com/alexanderramin/ludo/internal/domain"
	"github.com/alexanderramin/ludo/internal/money"
)

const dateLayout = "2006-01-02"

var validCalcKinds = map[string]bool{string(domain.CalcPercentage): true, string(domain.CalcFixed): true}

// ValidateSeed checks the seed for errors before conversion. It returns
// every problem found rather than stopping at the first. Decision tree
// structure is checked after decoding, by Convert.
func ValidateSeed(seed *Seed) []error {
	var errs []error

	for i, g := range seed.CommuneGroups {
		if g.Name == "" {
			errs = append(errs, fmt.Errorf("commune_groups[%d].name is required", i))
		}
	}

	brackets := make(map[string]bool)
	for i, b := range seed.AgeBrackets {
		p := fmt.Sprintf("age_brackets[%d]", i)
		errs = append(errs, requireID(p, b.ID, brackets)...)
		if b.Code == "" {
			errs = append(errs, fmt.Errorf("%s.code is required", p))
		}
		if b.MinAge != nil && b.MaxAge != nil && *b.MinAge > *b.MaxAge {
			errs = append(errs, fmt.Errorf("%s: min_age %d exceeds max_age %d", p, *b.MinAge, *b.MaxAge))
		}
	}

	schedules := make(map[string]bool)
	for i, s := range seed.Schedules {
		p := fmt.Sprintf("schedules[%d]", i)
		errs = append(errs, requireID(p, s.ID, schedules)...)
		if s.Label == "" {
			errs = append(errs, fmt.Errorf("%s.label is required", p))
		}
		errs = append(errs, validateAmount(p+".base_amount", s.BaseAmount)...)
		if s.DurationMonths < 0 {
			errs = append(errs, fmt.Errorf("%s.duration_months must not be negative", p))
		}
		for bracketID, amount := range s.BracketAmounts {
			errs = append(errs, validateAmount(fmt.Sprintf("%s.bracket_amounts[%s]", p, bracketID), amount)...)
		}
	}

	configs := make(map[string]bool)
	active := 0
	for i, c := range seed.IncomeConfigs {
		p := fmt.Sprintf("income_configs[%d]", i)
		errs = append(errs, requireID(p, c.ID, configs)...)
		if c.Active {
			active++
		}
		ids := make(map[string]bool)
		for j, b := range c.Brackets {
			bp := fmt.Sprintf("%s.brackets[%d]", p, j)
			errs = append(errs, requireID(bp, b.ID, ids)...)
			if b.MinQF != nil && b.MaxQF != nil && *b.MinQF > *b.MaxQF {
				errs = append(errs, fmt.Errorf("%s: min_qf exceeds max_qf", bp))
			}
			errs = append(errs, validateCalc(bp, b.CalcKind, b.Value)...)
			for ageID, o := range b.Overrides {
				errs = append(errs, validateCalc(fmt.Sprintf("%s.overrides[%s]", bp, ageID), o.CalcKind, o.Value)...)
			}
		}
	}
	if active > 1 {
		errs = append(errs, fmt.Errorf("income_configs: %d configs marked active, at most one allowed", active))
	}

	rules := make(map[string]bool)
	orders := make(map[int]string)
	for i, r := range seed.LegacyRules {
		p := fmt.Sprintf("legacy_rules[%d]", i)
		errs = append(errs, requireID(p, r.ID, rules)...)
		if r.Predicate == nil {
			errs = append(errs, fmt.Errorf("%s.predicate is required", p))
		}
		errs = append(errs, validateCalc(p, r.CalcKind, r.Value)...)
		if other, dup := orders[r.ApplicationOrder]; dup {
			errs = append(errs, fmt.Errorf("%s.application_order %d already used by %q", p, r.ApplicationOrder, other))
		} else {
			orders[r.ApplicationOrder] = r.ID
		}
	}

	members := make(map[string]bool)
	for i, m := range seed.Members {
		p := fmt.Sprintf("members[%d]", i)
		errs = append(errs, requireID(p, m.ID, members)...)
		if m.FirstName == "" && m.LastName == "" {
			errs = append(errs, fmt.Errorf("%s: first_name or last_name is required", p))
		}
		if m.BirthDate != nil {
			if _, err := time.Parse(dateLayout, *m.BirthDate); err != nil {
				errs = append(errs, fmt.Errorf("%s.birth_date: invalid date format %q (expected YYYY-MM-DD)", p, *m.BirthDate))
			}
		}
		if m.IncomeQuotient != nil && *m.IncomeQuotient < 0 {
			errs = append(errs, fmt.Errorf("%s.income_quotient must not be negative", p))
		}
	}

	trees := make(map[string]bool)
	for i, t := range seed.Trees {
		p := fmt.Sprintf("trees[%d]", i)
		if t.ScheduleID == "" {
			errs = append(errs, fmt.Errorf("%s.schedule_id is required", p))
		} else if trees[t.ScheduleID] {
			errs = append(errs, fmt.Errorf("%s: schedule %q has more than one tree", p, t.ScheduleID))
		}
		trees[t.ScheduleID] = true
		switch domain.DisplayMode(t.DisplayMode) {
		case "", domain.DisplayCumulative, domain.DisplayDetailed:
		default:
			errs = append(errs, fmt.Errorf("%s.display_mode: invalid value %q", p, t.DisplayMode))
		}
	}

	return errs
}

func requireID(path, id string, seen map[string]bool) []error {
	if id == "" {
		return []error{fmt.Errorf("%s.id is required", path)}
	}
	if seen[id] {
		return []error{fmt.Errorf("%s.id %q is duplicated", path, id)}
	}
	seen[id] = true
	return nil
}

func validateAmount(path, value string) []error {
	d, err := money.Parse(value)
	if err != nil {
		return []error{fmt.Errorf("%s: %w", path, err)}
	}
	if d.IsNegative() {
		return []error{fmt.Errorf("%s must not be negative", path)}
	}
	return nil
}

func validateCalc(path, kind, value string) []error {
	var errs []error
	if !validCalcKinds[kind] {
		errs = append(errs, fmt.Errorf("%s.calc_kind: invalid value %q", path, kind))
	}
	errs = append(errs, validateAmount(path+".value", value)...)
	return errs
}
