package repository

import (
	"context"
	"fmt"

	"github.com/alexanderramin/ludo/internal/db"
	"github.com/alexanderramin/ludo/internal/domain"
)

// SQLiteLegacyRuleRepo implements LegacyRuleRepo using a SQLite database.
// Predicates are stored as JSON descriptors; a descriptor that no longer
// decodes is loaded as an invalid condition and skipped at evaluation.
type SQLiteLegacyRuleRepo struct {
	db db.DBTX
}

func NewSQLiteLegacyRuleRepo(conn db.DBTX) *SQLiteLegacyRuleRepo {
	return &SQLiteLegacyRuleRepo{db: conn}
}

func (r *SQLiteLegacyRuleRepo) Upsert(ctx context.Context, rule *domain.LegacyReductionRule) error {
	pred, err := domain.EncodeCondition(rule.Predicate)
	if err != nil {
		return fmt.Errorf("encoding predicate of rule %s: %w", rule.ID, err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO legacy_rules (id, label, predicate, calc_kind, value, application_order, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			label = excluded.label,
			predicate = excluded.predicate,
			calc_kind = excluded.calc_kind,
			value = excluded.value,
			application_order = excluded.application_order,
			active = excluded.active`,
		rule.ID, rule.Label, string(pred), string(rule.CalcKind), rule.Value.String(),
		rule.ApplicationOrder, boolToInt(rule.Active))
	if err != nil {
		if isUniqueViolation(err, "legacy_rules.application_order") {
			return &domain.ValidationError{
				Field:   "application_order",
				Message: fmt.Sprintf("%d already used by another rule", rule.ApplicationOrder),
				Err:     err,
			}
		}
		return fmt.Errorf("upserting legacy rule: %w", err)
	}
	return nil
}

func (r *SQLiteLegacyRuleRepo) List(ctx context.Context) ([]domain.LegacyReductionRule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, label, predicate, calc_kind, value, application_order, active
		FROM legacy_rules ORDER BY application_order`)
	if err != nil {
		return nil, fmt.Errorf("listing legacy rules: %w", err)
	}
	defer rows.Close()

	var rules []domain.LegacyReductionRule
	for rows.Next() {
		var (
			rule              domain.LegacyReductionRule
			pred, kind, value string
			active            int
		)
		if err := rows.Scan(&rule.ID, &rule.Label, &pred, &kind, &value, &rule.ApplicationOrder, &active); err != nil {
			return nil, fmt.Errorf("scanning legacy rule: %w", err)
		}
		rule.Predicate = domain.DecodeCondition([]byte(pred))
		rule.CalcKind = domain.CalcKind(kind)
		if rule.Value, err = parseDecimal(value); err != nil {
			return nil, err
		}
		rule.Active = intToBool(active)
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating legacy rules: %w", err)
	}
	return rules, nil
}
