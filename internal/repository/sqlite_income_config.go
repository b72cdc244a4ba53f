package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alexanderramin/ludo/internal/db"
	"github.com/alexanderramin/ludo/internal/domain"
	"github.com/shopspring/decimal"
)

// SQLiteIncomeConfigRepo implements IncomeConfigRepo using a SQLite database.
type SQLiteIncomeConfigRepo struct {
	db db.DBTX
}

func NewSQLiteIncomeConfigRepo(conn db.DBTX) *SQLiteIncomeConfigRepo {
	return &SQLiteIncomeConfigRepo{db: conn}
}

type storedOverride struct {
	CalcKind domain.CalcKind `json:"calc_kind"`
	Value    decimal.Decimal `json:"value"`
}

func (r *SQLiteIncomeConfigRepo) Upsert(ctx context.Context, c *domain.IncomeBracketConfig) error {
	if c.Active {
		if _, err := r.db.ExecContext(ctx, `UPDATE income_configs SET active = 0 WHERE id != ?`, c.ID); err != nil {
			return fmt.Errorf("deactivating income configs: %w", err)
		}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO income_configs (id, label, active) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET label = excluded.label, active = excluded.active`,
		c.ID, c.Label, boolToInt(c.Active))
	if err != nil {
		return fmt.Errorf("upserting income config: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM income_brackets WHERE config_id = ?`, c.ID); err != nil {
		return fmt.Errorf("clearing income brackets: %w", err)
	}
	for _, b := range c.Brackets {
		overrides := make(map[string]storedOverride, len(b.Overrides))
		for ageBracketID, o := range b.Overrides {
			overrides[ageBracketID] = storedOverride{CalcKind: o.CalcKind, Value: o.Value}
		}
		raw, err := json.Marshal(overrides)
		if err != nil {
			return fmt.Errorf("encoding overrides of bracket %s: %w", b.ID, err)
		}
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO income_brackets (id, config_id, label, min_qf, max_qf, calc_kind, value, position, overrides)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID, c.ID, b.Label,
			nullableFloatToValue(b.MinQF), nullableFloatToValue(b.MaxQF),
			string(b.CalcKind), b.Value.String(), b.Position, string(raw))
		if err != nil {
			return fmt.Errorf("inserting income bracket %s: %w", b.ID, err)
		}
	}
	return nil
}

func (r *SQLiteIncomeConfigRepo) GetActive(ctx context.Context) (*domain.IncomeBracketConfig, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, label, active FROM income_configs WHERE active = 1`)
	return r.load(ctx, row, "active income config")
}

func (r *SQLiteIncomeConfigRepo) GetByID(ctx context.Context, id string) (*domain.IncomeBracketConfig, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, label, active FROM income_configs WHERE id = ?`, id)
	return r.load(ctx, row, "income config "+id)
}

func (r *SQLiteIncomeConfigRepo) load(ctx context.Context, row *sql.Row, what string) (*domain.IncomeBracketConfig, error) {
	var (
		c      domain.IncomeBracketConfig
		active int
	)
	if err := row.Scan(&c.ID, &c.Label, &active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", what, ErrNotFound)
		}
		return nil, fmt.Errorf("loading %s: %w", what, err)
	}
	c.Active = intToBool(active)

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, label, min_qf, max_qf, calc_kind, value, position, overrides
		FROM income_brackets WHERE config_id = ? ORDER BY position, id`, c.ID)
	if err != nil {
		return nil, fmt.Errorf("loading income brackets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			b             domain.IncomeBracket
			lo, hi        sql.NullFloat64
			kind, value   string
			overridesJSON string
		)
		if err := rows.Scan(&b.ID, &b.Label, &lo, &hi, &kind, &value, &b.Position, &overridesJSON); err != nil {
			return nil, fmt.Errorf("scanning income bracket: %w", err)
		}
		b.MinQF = nullFloat(lo)
		b.MaxQF = nullFloat(hi)
		b.CalcKind = domain.CalcKind(kind)
		if b.Value, err = parseDecimal(value); err != nil {
			return nil, err
		}
		var stored map[string]storedOverride
		if err := json.Unmarshal([]byte(overridesJSON), &stored); err != nil {
			return nil, fmt.Errorf("decoding overrides of bracket %s: %w", b.ID, err)
		}
		if len(stored) > 0 {
			b.Overrides = make(map[string]domain.IncomeOverride, len(stored))
			for k, o := range stored {
				b.Overrides[k] = domain.IncomeOverride{CalcKind: o.CalcKind, Value: o.Value}
			}
		}
		c.Brackets = append(c.Brackets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating income brackets: %w", err)
	}
	return &c, nil
}
