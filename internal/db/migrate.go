package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	if err := migrateBackfillDisplayMode(db); err != nil {
		return fmt.Errorf("backfilling decision tree display mode: %w", err)
	}
	return nil
}

// migrateBackfillDisplayMode fills display_mode on trees created before the
// column existed.
func migrateBackfillDisplayMode(db *sql.DB) error {
	ctx := context.Background()
	_, err := db.ExecContext(ctx,
		`UPDATE decision_trees SET display_mode = 'cumulative' WHERE display_mode IS NULL OR display_mode = ''`)
	return err
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS members (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		birth_date TEXT,
		household_id TEXT,
		commune_id TEXT,
		income_quotient REAL,
		social_status TEXT,
		membership_end_date TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_members_household ON members(household_id)`,

	`CREATE TABLE IF NOT EXISTS commune_groups (
		name TEXT PRIMARY KEY,
		commune_ids TEXT NOT NULL DEFAULT '[]'
	)`,

	`CREATE TABLE IF NOT EXISTS age_brackets (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL,
		label TEXT NOT NULL DEFAULT '',
		min_age INTEGER,
		max_age INTEGER,
		priority INTEGER NOT NULL DEFAULT 0,
		structure_id TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS fee_schedules (
		id TEXT PRIMARY KEY,
		label TEXT NOT NULL,
		base_amount TEXT NOT NULL,
		duration_months INTEGER NOT NULL DEFAULT 12,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS schedule_bracket_amounts (
		schedule_id TEXT NOT NULL REFERENCES fee_schedules(id) ON DELETE CASCADE,
		age_bracket_id TEXT NOT NULL REFERENCES age_brackets(id) ON DELETE CASCADE,
		amount TEXT NOT NULL,
		PRIMARY KEY (schedule_id, age_bracket_id)
	)`,

	`CREATE TABLE IF NOT EXISTS income_configs (
		id TEXT PRIMARY KEY,
		label TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_income_configs_active ON income_configs(active) WHERE active = 1`,
	`CREATE TABLE IF NOT EXISTS income_brackets (
		id TEXT PRIMARY KEY,
		config_id TEXT NOT NULL REFERENCES income_configs(id) ON DELETE CASCADE,
		label TEXT NOT NULL DEFAULT '',
		min_qf REAL,
		max_qf REAL,
		calc_kind TEXT NOT NULL CHECK(calc_kind IN ('percentage','fixed')),
		value TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		overrides TEXT NOT NULL DEFAULT '{}'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_income_brackets_config ON income_brackets(config_id)`,

	`CREATE TABLE IF NOT EXISTS legacy_rules (
		id TEXT PRIMARY KEY,
		label TEXT NOT NULL DEFAULT '',
		predicate TEXT NOT NULL DEFAULT '{"type":"ANY"}',
		calc_kind TEXT NOT NULL,
		value TEXT NOT NULL,
		application_order INTEGER NOT NULL UNIQUE,
		active INTEGER NOT NULL DEFAULT 1
	)`,

	`CREATE TABLE IF NOT EXISTS decision_trees (
		id TEXT PRIMARY KEY,
		schedule_id TEXT NOT NULL REFERENCES fee_schedules(id),
		version INTEGER NOT NULL DEFAULT 1,
		locked INTEGER NOT NULL DEFAULT 0,
		locked_at TEXT,
		superseded_at TEXT,
		nodes TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (schedule_id, version)
	)`,
	`ALTER TABLE decision_trees ADD COLUMN display_mode TEXT NOT NULL DEFAULT 'cumulative'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_decision_trees_current ON decision_trees(schedule_id) WHERE superseded_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS tree_lock_events (
		id TEXT PRIMARY KEY,
		tree_id TEXT NOT NULL REFERENCES decision_trees(id),
		version INTEGER NOT NULL,
		payment_id TEXT,
		locked_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL REFERENCES members(id),
		schedule_id TEXT NOT NULL REFERENCES fee_schedules(id),
		schedule_label TEXT NOT NULL DEFAULT '',
		reference TEXT NOT NULL UNIQUE,
		method TEXT NOT NULL DEFAULT '',
		payment_date TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		base_amount TEXT NOT NULL,
		income_amount TEXT NOT NULL,
		intermediate_amount TEXT NOT NULL,
		total_reductions TEXT NOT NULL,
		final_amount TEXT NOT NULL,
		age_at_payment INTEGER,
		income_quotient REAL,
		age_bracket_id TEXT NOT NULL,
		age_bracket_code TEXT NOT NULL,
		income_bracket_id TEXT,
		income_bracket_label TEXT,
		tree_id TEXT REFERENCES decision_trees(id),
		tree_version INTEGER,
		trace TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_member ON payments(member_id)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_period_end ON payments(period_end)`,
	`CREATE TABLE IF NOT EXISTS payment_reductions (
		payment_id TEXT NOT NULL REFERENCES payments(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		source_kind TEXT NOT NULL CHECK(source_kind IN ('legacy_rule','tree_branch')),
		source_id TEXT NOT NULL,
		code TEXT NOT NULL DEFAULT '',
		label TEXT NOT NULL DEFAULT '',
		calc_kind TEXT NOT NULL,
		value TEXT NOT NULL,
		computed_amount TEXT NOT NULL,
		PRIMARY KEY (payment_id, position)
	)`,
}
