package importer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Seed is the top-level structure of a pricing configuration file. Every
// section is optional; entries are upserted by id.
type Seed struct {
	CommuneGroups []CommuneGroupImport `json:"commune_groups,omitempty" yaml:"commune_groups,omitempty"`
	AgeBrackets   []AgeBracketImport   `json:"age_brackets,omitempty" yaml:"age_brackets,omitempty"`
	Schedules     []ScheduleImport     `json:"schedules,omitempty" yaml:"schedules,omitempty"`
	IncomeConfigs []IncomeConfigImport `json:"income_configs,omitempty" yaml:"income_configs,omitempty"`
	LegacyRules   []LegacyRuleImport   `json:"legacy_rules,omitempty" yaml:"legacy_rules,omitempty"`
	Members       []MemberImport       `json:"members,omitempty" yaml:"members,omitempty"`
	Trees         []TreeImport         `json:"trees,omitempty" yaml:"trees,omitempty"`
}

type CommuneGroupImport struct {
	Name       string   `json:"name" yaml:"name"`
	CommuneIDs []string `json:"commune_ids" yaml:"commune_ids"`
}

type AgeBracketImport struct {
	ID          string  `json:"id" yaml:"id"`
	Code        string  `json:"code" yaml:"code"`
	Label       string  `json:"label,omitempty" yaml:"label,omitempty"`
	MinAge      *int    `json:"min_age,omitempty" yaml:"min_age,omitempty"`
	MaxAge      *int    `json:"max_age,omitempty" yaml:"max_age,omitempty"`
	Priority    int     `json:"priority" yaml:"priority"`
	StructureID *string `json:"structure_id,omitempty" yaml:"structure_id,omitempty"`
}

// ScheduleImport amounts are decimal strings such as "35.50".
type ScheduleImport struct {
	ID             string            `json:"id" yaml:"id"`
	Label          string            `json:"label" yaml:"label"`
	BaseAmount     string            `json:"base_amount" yaml:"base_amount"`
	DurationMonths int               `json:"duration_months,omitempty" yaml:"duration_months,omitempty"`
	BracketAmounts map[string]string `json:"bracket_amounts,omitempty" yaml:"bracket_amounts,omitempty"`
}

type IncomeConfigImport struct {
	ID       string                `json:"id" yaml:"id"`
	Label    string                `json:"label" yaml:"label"`
	Active   bool                  `json:"active" yaml:"active"`
	Brackets []IncomeBracketImport `json:"brackets" yaml:"brackets"`
}

type IncomeBracketImport struct {
	ID        string                    `json:"id" yaml:"id"`
	Label     string                    `json:"label" yaml:"label"`
	MinQF     *float64                  `json:"min_qf,omitempty" yaml:"min_qf,omitempty"`
	MaxQF     *float64                  `json:"max_qf,omitempty" yaml:"max_qf,omitempty"`
	CalcKind  string                    `json:"calc_kind" yaml:"calc_kind"`
	Value     string                    `json:"value" yaml:"value"`
	Position  int                       `json:"position" yaml:"position"`
	Overrides map[string]OverrideImport `json:"overrides,omitempty" yaml:"overrides,omitempty"`
}

type OverrideImport struct {
	CalcKind string `json:"calc_kind" yaml:"calc_kind"`
	Value    string `json:"value" yaml:"value"`
}

// LegacyRuleImport carries its predicate as a condition descriptor, the
// same {"type": ...} object decision tree branches use.
type LegacyRuleImport struct {
	ID               string         `json:"id" yaml:"id"`
	Label            string         `json:"label" yaml:"label"`
	Predicate        map[string]any `json:"predicate" yaml:"predicate"`
	CalcKind         string         `json:"calc_kind" yaml:"calc_kind"`
	Value            string         `json:"value" yaml:"value"`
	ApplicationOrder int            `json:"application_order" yaml:"application_order"`
	Active           *bool          `json:"active,omitempty" yaml:"active,omitempty"`
}

type MemberImport struct {
	ID             string   `json:"id" yaml:"id"`
	FirstName      string   `json:"first_name" yaml:"first_name"`
	LastName       string   `json:"last_name" yaml:"last_name"`
	BirthDate      *string  `json:"birth_date,omitempty" yaml:"birth_date,omitempty"`
	HouseholdID    *string  `json:"household_id,omitempty" yaml:"household_id,omitempty"`
	CommuneID      *string  `json:"commune_id,omitempty" yaml:"commune_id,omitempty"`
	IncomeQuotient *float64 `json:"income_quotient,omitempty" yaml:"income_quotient,omitempty"`
	SocialStatus   *string  `json:"social_status,omitempty" yaml:"social_status,omitempty"`
}

// TreeImport sets the node list of the schedule's current tree. Nodes use
// the stored JSON shape and are decoded with the domain codec.
type TreeImport struct {
	ScheduleID  string `json:"schedule_id" yaml:"schedule_id"`
	DisplayMode string `json:"display_mode,omitempty" yaml:"display_mode,omitempty"`
	Nodes       []any  `json:"nodes" yaml:"nodes"`
}

// LoadSeed reads a .json, .yaml or .yml configuration file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSeed(data, filepath.Ext(path))
}

// ParseSeed decodes data as JSON when ext is ".json" and as YAML otherwise.
func ParseSeed(data []byte, ext string) (*Seed, error) {
	var seed Seed
	if strings.EqualFold(ext, ".json") {
		if err := json.Unmarshal(data, &seed); err != nil {
			return nil, fmt.Errorf("parsing configuration file: %w", err)
		}
		return &seed, nil
	}
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parsing configuration file: %w", err)
	}
	return &seed, nil
}
