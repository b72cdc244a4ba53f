package db

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMigrate_UpgradePath_NullableDisplayMode simulates a database created
// when decision_trees.display_mode was nullable and trees, payments and
// rules already existed. Verifies that:
// 1. Data inserted under the old schema survives migration
// 2. NULL display modes are backfilled
// 3. Missing tables and indexes are created
func TestMigrate_UpgradePath_NullableDisplayMode(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	legacyStatements := []string{
		`CREATE TABLE fee_schedules (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL,
			base_amount TEXT NOT NULL,
			duration_months INTEGER NOT NULL DEFAULT 12,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE decision_trees (
			id TEXT PRIMARY KEY,
			schedule_id TEXT NOT NULL REFERENCES fee_schedules(id),
			version INTEGER NOT NULL DEFAULT 1,
			locked INTEGER NOT NULL DEFAULT 0,
			locked_at TEXT,
			superseded_at TEXT,
			display_mode TEXT,
			nodes TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			UNIQUE (schedule_id, version)
		)`,
		`INSERT INTO fee_schedules (id, label, base_amount, created_at, updated_at) VALUES ('s1', '2024', '95.00', '2024-01-01T00:00:00Z', '2024-01-01T00:00:00Z')`,
		`INSERT INTO decision_trees (id, schedule_id, version, locked, locked_at, superseded_at, nodes, created_at, updated_at)
			VALUES ('t1', 's1', 1, 1, '2024-02-01T00:00:00Z', '2024-03-01T00:00:00Z', '[]', '2024-01-01T00:00:00Z', '2024-01-01T00:00:00Z')`,
		`INSERT INTO decision_trees (id, schedule_id, version, nodes, created_at, updated_at)
			VALUES ('t2', 's1', 2, '[]', '2024-03-01T00:00:00Z', '2024-03-01T00:00:00Z')`,
	}
	for _, stmt := range legacyStatements {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	require.NoError(t, Migrate(db))

	rows, err := db.Query(`SELECT id, display_mode FROM decision_trees ORDER BY version`)
	require.NoError(t, err)
	defer rows.Close()
	var got []string
	for rows.Next() {
		var id, mode string
		require.NoError(t, rows.Scan(&id, &mode))
		assert.Equal(t, "cumulative", mode, "tree %s", id)
		got = append(got, id)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"t1", "t2"}, got)

	var label string
	require.NoError(t, db.QueryRow(`SELECT label FROM fee_schedules WHERE id = 's1'`).Scan(&label))
	assert.Equal(t, "2024", label)

	var idx string
	require.NoError(t, db.QueryRow(`SELECT name FROM sqlite_master WHERE type='index' AND name='idx_decision_trees_current'`).Scan(&idx))

	// a second migration run is a no-op
	require.NoError(t, Migrate(db))
}
