package importer

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/alexanderramin/ludo/internal/domain"
	"github.com/alexanderramin/ludo/internal/money"
	"github.com/shopspring/decimal"
)

// Bundle is a converted seed, ready for persistence.
type Bundle struct {
	CommuneGroups []domain.CommuneGroup
	AgeBrackets   []*domain.AgeBracket
	Schedules     []*domain.FeeSchedule
	IncomeConfigs []*domain.IncomeBracketConfig
	LegacyRules   []*domain.LegacyReductionRule
	Members       []*domain.Member
	Trees         []TreeNodes
}

// TreeNodes is the decoded node list for one schedule's current tree.
type TreeNodes struct {
	ScheduleID  string
	DisplayMode domain.DisplayMode
	Nodes       []domain.DecisionNode
}

// Convert transforms a validated Seed into domain objects. Call ValidateSeed
// first; Convert still reports decoding problems such as a tree whose
// structure does not validate against maxDepth.
func Convert(seed *Seed, maxDepth int) (*Bundle, error) {
	now := time.Now().UTC()
	b := &Bundle{}

	for _, g := range seed.CommuneGroups {
		b.CommuneGroups = append(b.CommuneGroups, domain.CommuneGroup{Name: g.Name, CommuneIDs: g.CommuneIDs})
	}

	for _, ab := range seed.AgeBrackets {
		label := ab.Label
		if label == "" {
			label = ab.Code
		}
		b.AgeBrackets = append(b.AgeBrackets, &domain.AgeBracket{
			ID:          ab.ID,
			Code:        ab.Code,
			Label:       label,
			MinAge:      ab.MinAge,
			MaxAge:      ab.MaxAge,
			Priority:    ab.Priority,
			StructureID: ab.StructureID,
		})
	}

	for _, s := range seed.Schedules {
		base, err := money.Parse(s.BaseAmount)
		if err != nil {
			return nil, fmt.Errorf("schedule %s: %w", s.ID, err)
		}
		fs := &domain.FeeSchedule{
			ID:             s.ID,
			Label:          s.Label,
			BaseAmount:     base,
			DurationMonths: s.DurationMonths,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if fs.DurationMonths == 0 {
			fs.DurationMonths = domain.DefaultDurationMonths
		}
		if len(s.BracketAmounts) > 0 {
			fs.BracketAmounts = make(map[string]decimal.Decimal, len(s.BracketAmounts))
			for bracketID, raw := range s.BracketAmounts {
				amount, err := money.Parse(raw)
				if err != nil {
					return nil, fmt.Errorf("schedule %s bracket %s: %w", s.ID, bracketID, err)
				}
				fs.BracketAmounts[bracketID] = amount
			}
		}
		b.Schedules = append(b.Schedules, fs)
	}

	for _, c := range seed.IncomeConfigs {
		cfg := &domain.IncomeBracketConfig{ID: c.ID, Label: c.Label, Active: c.Active}
		for _, ib := range c.Brackets {
			value, err := decimal.NewFromString(ib.Value)
			if err != nil {
				return nil, fmt.Errorf("income bracket %s value: %w", ib.ID, err)
			}
			bracket := domain.IncomeBracket{
				ID:       ib.ID,
				Label:    ib.Label,
				MinQF:    ib.MinQF,
				MaxQF:    ib.MaxQF,
				CalcKind: domain.CalcKind(ib.CalcKind),
				Value:    value,
				Position: ib.Position,
			}
			if len(ib.Overrides) > 0 {
				bracket.Overrides = make(map[string]domain.IncomeOverride, len(ib.Overrides))
				for ageID, o := range ib.Overrides {
					ov, err := decimal.NewFromString(o.Value)
					if err != nil {
						return nil, fmt.Errorf("income bracket %s override %s: %w", ib.ID, ageID, err)
					}
					bracket.Overrides[ageID] = domain.IncomeOverride{CalcKind: domain.CalcKind(o.CalcKind), Value: ov}
				}
			}
			cfg.Brackets = append(cfg.Brackets, bracket)
		}
		b.IncomeConfigs = append(b.IncomeConfigs, cfg)
	}
	// Activate last so the active config survives the exclusive upsert.
	sort.SliceStable(b.IncomeConfigs, func(i, j int) bool {
		return !b.IncomeConfigs[i].Active && b.IncomeConfigs[j].Active
	})

	for _, r := range seed.LegacyRules {
		raw, err := json.Marshal(r.Predicate)
		if err != nil {
			return nil, fmt.Errorf("legacy rule %s predicate: %w", r.ID, err)
		}
		pred := domain.DecodeCondition(raw)
		if err := pred.Validate(); err != nil {
			return nil, fmt.Errorf("legacy rule %s predicate: %w", r.ID, err)
		}
		value, err := decimal.NewFromString(r.Value)
		if err != nil {
			return nil, fmt.Errorf("legacy rule %s value: %w", r.ID, err)
		}
		active := true
		if r.Active != nil {
			active = *r.Active
		}
		b.LegacyRules = append(b.LegacyRules, &domain.LegacyReductionRule{
			ID:               r.ID,
			Label:            r.Label,
			Predicate:        pred,
			CalcKind:         domain.CalcKind(r.CalcKind),
			Value:            value,
			ApplicationOrder: r.ApplicationOrder,
			Active:           active,
		})
	}

	for _, m := range seed.Members {
		member := &domain.Member{
			ID:             m.ID,
			FirstName:      m.FirstName,
			LastName:       m.LastName,
			BirthDate:      parseOptionalDate(m.BirthDate),
			HouseholdID:    m.HouseholdID,
			CommuneID:      m.CommuneID,
			IncomeQuotient: m.IncomeQuotient,
			SocialStatus:   m.SocialStatus,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		b.Members = append(b.Members, member)
	}

	for _, t := range seed.Trees {
		nodes, err := decodeNodes(t.Nodes)
		if err != nil {
			return nil, fmt.Errorf("tree of schedule %s: %w", t.ScheduleID, err)
		}
		if err := domain.ValidateNodes(nodes, maxDepth); err != nil {
			return nil, fmt.Errorf("tree of schedule %s: %w", t.ScheduleID, err)
		}
		mode := domain.DisplayMode(t.DisplayMode)
		if mode == "" {
			mode = domain.DisplayCumulative
		}
		b.Trees = append(b.Trees, TreeNodes{ScheduleID: t.ScheduleID, DisplayMode: mode, Nodes: nodes})
	}

	return b, nil
}

// decodeNodes round-trips the generic YAML/JSON value through the domain
// JSON codec so both file formats share one decoder.
func decodeNodes(raw []any) ([]domain.DecisionNode, error) {
	if len(raw) == 0 {
		return []domain.DecisionNode{}, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encoding nodes: %w", err)
	}
	var nodes []domain.DecisionNode
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("decoding nodes: %w", err)
	}
	return nodes, nil
}

func parseOptionalDate(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, *s)
	if err != nil {
		return nil
	}
	return &t
}
