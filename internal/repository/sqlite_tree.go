package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/ludo/internal/db"
	"github.com/alexanderramin/ludo/internal/domain"
	"github.com/google/uuid"
)

// SQLiteTreeRepo implements TreeRepo using a SQLite database. The node list
// is stored as one JSON document per tree version.
type SQLiteTreeRepo struct {
	db db.DBTX
}

func NewSQLiteTreeRepo(conn db.DBTX) *SQLiteTreeRepo {
	return &SQLiteTreeRepo{db: conn}
}

const treeColumns = `id, schedule_id, version, locked, locked_at, display_mode, superseded_at, nodes, created_at, updated_at`

func encodeNodes(nodes []domain.DecisionNode) (string, error) {
	if nodes == nil {
		nodes = []domain.DecisionNode{}
	}
	raw, err := json.Marshal(nodes)
	if err != nil {
		return "", fmt.Errorf("encoding tree nodes: %w", err)
	}
	return string(raw), nil
}

func (r *SQLiteTreeRepo) Create(ctx context.Context, t *domain.DecisionTree) error {
	nodes, err := encodeNodes(t.Nodes)
	if err != nil {
		return err
	}
	mode := t.DisplayMode
	if mode == "" {
		mode = domain.DisplayCumulative
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO decision_trees (`+treeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ScheduleID, t.Version, boolToInt(t.Locked),
		nullableTimeToString(t.LockedAt, time.RFC3339), string(mode),
		nullableTimeToString(t.SupersededAt, time.RFC3339), nodes,
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err, "decision_trees.schedule_id") {
			return fmt.Errorf("schedule %s: %w", t.ScheduleID, domain.ErrTreeExists)
		}
		return fmt.Errorf("inserting decision tree: %w", err)
	}
	return nil
}

func (r *SQLiteTreeRepo) GetByID(ctx context.Context, id string) (*domain.DecisionTree, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+treeColumns+` FROM decision_trees WHERE id = ?`, id)
	t, err := scanTree(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("decision tree %s: %w", id, ErrNotFound)
	}
	return t, err
}

func (r *SQLiteTreeRepo) GetCurrent(ctx context.Context, scheduleID string) (*domain.DecisionTree, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+treeColumns+` FROM decision_trees WHERE schedule_id = ? AND superseded_at IS NULL`, scheduleID)
	t, err := scanTree(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("current decision tree of schedule %s: %w", scheduleID, ErrNotFound)
	}
	return t, err
}

func (r *SQLiteTreeRepo) ListVersions(ctx context.Context, scheduleID string) ([]*domain.DecisionTree, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+treeColumns+` FROM decision_trees WHERE schedule_id = ? ORDER BY version`, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("listing decision tree versions: %w", err)
	}
	defer rows.Close()

	var trees []*domain.DecisionTree
	for rows.Next() {
		t, err := scanTree(rows)
		if err != nil {
			return nil, err
		}
		trees = append(trees, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating decision trees: %w", err)
	}
	return trees, nil
}

func (r *SQLiteTreeRepo) MaxVersion(ctx context.Context, scheduleID string) (int, error) {
	var v int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM decision_trees WHERE schedule_id = ?`, scheduleID).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("loading max tree version: %w", err)
	}
	return v, nil
}

func (r *SQLiteTreeRepo) UpdateNodes(ctx context.Context, t *domain.DecisionTree) error {
	nodes, err := encodeNodes(t.Nodes)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE decision_trees SET nodes = ?, display_mode = ?, updated_at = ? WHERE id = ? AND locked = 0`,
		nodes, string(t.DisplayMode), formatTime(t.UpdatedAt), t.ID)
	if err != nil {
		return fmt.Errorf("updating decision tree: %w", err)
	}
	return expectOneRow(res, "decision tree "+t.ID)
}

func (r *SQLiteTreeRepo) BumpVersion(ctx context.Context, id string, version int, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE decision_trees SET version = ?, updated_at = ? WHERE id = ? AND locked = 0`,
		version, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("bumping decision tree version: %w", err)
	}
	return expectOneRow(res, "decision tree "+id)
}

func (r *SQLiteTreeRepo) Lock(ctx context.Context, id string, at time.Time) (bool, error) {
	ts := formatTime(at)
	res, err := r.db.ExecContext(ctx,
		`UPDATE decision_trees SET locked = 1, locked_at = ?, updated_at = ? WHERE id = ? AND locked = 0`,
		ts, ts, id)
	if err != nil {
		return false, fmt.Errorf("locking decision tree: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("locking decision tree: %w", err)
	}
	return n == 1, nil
}

func (r *SQLiteTreeRepo) RecordLockEvent(ctx context.Context, treeID string, version int, paymentID *string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tree_lock_events (id, tree_id, version, payment_id, locked_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), treeID, version, nullableStringToValue(paymentID), formatTime(at))
	if err != nil {
		return fmt.Errorf("recording lock event: %w", err)
	}
	return nil
}

func (r *SQLiteTreeRepo) CountLockEvents(ctx context.Context, treeID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tree_lock_events WHERE tree_id = ?`, treeID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting lock events: %w", err)
	}
	return n, nil
}

func (r *SQLiteTreeRepo) Supersede(ctx context.Context, id string, at time.Time) error {
	ts := formatTime(at)
	res, err := r.db.ExecContext(ctx,
		`UPDATE decision_trees SET superseded_at = ?, updated_at = ? WHERE id = ? AND superseded_at IS NULL`,
		ts, ts, id)
	if err != nil {
		return fmt.Errorf("superseding decision tree: %w", err)
	}
	return expectOneRow(res, "decision tree "+id)
}

func expectOneRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrConflict)
	}
	return nil
}

func scanTree(s rowScanner) (*domain.DecisionTree, error) {
	var (
		t                    domain.DecisionTree
		locked               int
		lockedAt, superseded sql.NullString
		mode, nodes          string
		createdAt, updatedAt string
	)
	err := s.Scan(&t.ID, &t.ScheduleID, &t.Version, &locked, &lockedAt, &mode, &superseded,
		&nodes, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning decision tree: %w", err)
	}
	t.Locked = intToBool(locked)
	t.LockedAt = parseNullableTime(lockedAt, time.RFC3339)
	t.SupersededAt = parseNullableTime(superseded, time.RFC3339)
	t.DisplayMode = domain.DisplayMode(mode)
	if err := json.Unmarshal([]byte(nodes), &t.Nodes); err != nil {
		return nil, fmt.Errorf("decoding nodes of tree %s: %w", t.ID, err)
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}
