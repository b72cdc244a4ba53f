package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alexanderramin/ludo/internal/db"
	"github.com/alexanderramin/ludo/internal/domain"
)

// SQLiteAgeBracketRepo implements AgeBracketRepo using a SQLite database.
type SQLiteAgeBracketRepo struct {
	db db.DBTX
}

func NewSQLiteAgeBracketRepo(conn db.DBTX) *SQLiteAgeBracketRepo {
	return &SQLiteAgeBracketRepo{db: conn}
}

func (r *SQLiteAgeBracketRepo) Upsert(ctx context.Context, b *domain.AgeBracket) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO age_brackets (id, code, label, min_age, max_age, priority, structure_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			code = excluded.code,
			label = excluded.label,
			min_age = excluded.min_age,
			max_age = excluded.max_age,
			priority = excluded.priority,
			structure_id = excluded.structure_id`,
		b.ID, b.Code, b.Label,
		nullableIntToValue(b.MinAge), nullableIntToValue(b.MaxAge),
		b.Priority, nullableStringToValue(b.StructureID))
	if err != nil {
		return fmt.Errorf("upserting age bracket: %w", err)
	}
	return nil
}

// List returns all brackets ordered by priority. Resolution order among
// equal priorities is decided by the tariff resolver.
func (r *SQLiteAgeBracketRepo) List(ctx context.Context) ([]domain.AgeBracket, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, code, label, min_age, max_age, priority, structure_id FROM age_brackets ORDER BY priority, id`)
	if err != nil {
		return nil, fmt.Errorf("listing age brackets: %w", err)
	}
	defer rows.Close()

	var brackets []domain.AgeBracket
	for rows.Next() {
		var (
			b      domain.AgeBracket
			lo, hi sql.NullInt64
			scope  sql.NullString
		)
		if err := rows.Scan(&b.ID, &b.Code, &b.Label, &lo, &hi, &b.Priority, &scope); err != nil {
			return nil, fmt.Errorf("scanning age bracket: %w", err)
		}
		b.MinAge = nullInt(lo)
		b.MaxAge = nullInt(hi)
		b.StructureID = nullString(scope)
		brackets = append(brackets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating age brackets: %w", err)
	}
	return brackets, nil
}
