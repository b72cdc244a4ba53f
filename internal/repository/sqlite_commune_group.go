package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alexanderramin/ludo/internal/db"
	"github.com/alexanderramin/ludo/internal/domain"
)

// SQLiteCommuneGroupRepo implements CommuneGroupRepo using a SQLite database.
type SQLiteCommuneGroupRepo struct {
	db db.DBTX
}

func NewSQLiteCommuneGroupRepo(conn db.DBTX) *SQLiteCommuneGroupRepo {
	return &SQLiteCommuneGroupRepo{db: conn}
}

func (r *SQLiteCommuneGroupRepo) Upsert(ctx context.Context, g domain.CommuneGroup) error {
	ids := g.CommuneIDs
	if ids == nil {
		ids = []string{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encoding commune ids: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO commune_groups (name, commune_ids) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET commune_ids = excluded.commune_ids`,
		g.Name, string(raw))
	if err != nil {
		return fmt.Errorf("upserting commune group: %w", err)
	}
	return nil
}

func (r *SQLiteCommuneGroupRepo) List(ctx context.Context) ([]domain.CommuneGroup, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, commune_ids FROM commune_groups ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing commune groups: %w", err)
	}
	defer rows.Close()

	var groups []domain.CommuneGroup
	for rows.Next() {
		var g domain.CommuneGroup
		var raw string
		if err := rows.Scan(&g.Name, &raw); err != nil {
			return nil, fmt.Errorf("scanning commune group: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &g.CommuneIDs); err != nil {
			return nil, fmt.Errorf("decoding commune group %s: %w", g.Name, err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating commune groups: %w", err)
	}
	return groups, nil
}
