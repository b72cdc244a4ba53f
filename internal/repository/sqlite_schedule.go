package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alexanderramin/ludo/internal/db"
	"github.com/alexanderramin/ludo/internal/domain"
	"github.com/alexanderramin/ludo/internal/money"
	"github.com/shopspring/decimal"
)

// SQLiteScheduleRepo implements ScheduleRepo using a SQLite database.
type SQLiteScheduleRepo struct {
	db db.DBTX
}

func NewSQLiteScheduleRepo(conn db.DBTX) *SQLiteScheduleRepo {
	return &SQLiteScheduleRepo{db: conn}
}

// Upsert writes the schedule and replaces its per-bracket amounts.
func (r *SQLiteScheduleRepo) Upsert(ctx context.Context, s *domain.FeeSchedule) error {
	duration := s.DurationMonths
	if duration <= 0 {
		duration = domain.DefaultDurationMonths
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO fee_schedules (id, label, base_amount, duration_months, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			label = excluded.label,
			base_amount = excluded.base_amount,
			duration_months = excluded.duration_months,
			updated_at = excluded.updated_at`,
		s.ID, s.Label, money.Format(s.BaseAmount), duration, formatTime(s.CreatedAt), formatTime(s.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upserting fee schedule: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM schedule_bracket_amounts WHERE schedule_id = ?`, s.ID); err != nil {
		return fmt.Errorf("clearing bracket amounts: %w", err)
	}
	for bracketID, amount := range s.BracketAmounts {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO schedule_bracket_amounts (schedule_id, age_bracket_id, amount) VALUES (?, ?, ?)`,
			s.ID, bracketID, money.Format(amount))
		if err != nil {
			return fmt.Errorf("inserting bracket amount %s: %w", bracketID, err)
		}
	}
	return nil
}

func (r *SQLiteScheduleRepo) GetByID(ctx context.Context, id string) (*domain.FeeSchedule, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, label, base_amount, duration_months, created_at, updated_at FROM fee_schedules WHERE id = ?`, id)
	s, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("fee schedule %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadBracketAmounts(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SQLiteScheduleRepo) List(ctx context.Context) ([]*domain.FeeSchedule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, label, base_amount, duration_months, created_at, updated_at FROM fee_schedules ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing fee schedules: %w", err)
	}
	var schedules []*domain.FeeSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		schedules = append(schedules, s)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating fee schedules: %w", err)
	}
	rows.Close()

	for _, s := range schedules {
		if err := r.loadBracketAmounts(ctx, s); err != nil {
			return nil, err
		}
	}
	return schedules, nil
}

func (r *SQLiteScheduleRepo) loadBracketAmounts(ctx context.Context, s *domain.FeeSchedule) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT age_bracket_id, amount FROM schedule_bracket_amounts WHERE schedule_id = ?`, s.ID)
	if err != nil {
		return fmt.Errorf("loading bracket amounts: %w", err)
	}
	defer rows.Close()

	s.BracketAmounts = map[string]decimal.Decimal{}
	for rows.Next() {
		var bracketID, raw string
		if err := rows.Scan(&bracketID, &raw); err != nil {
			return fmt.Errorf("scanning bracket amount: %w", err)
		}
		amount, err := parseDecimal(raw)
		if err != nil {
			return err
		}
		s.BracketAmounts[bracketID] = amount
	}
	return rows.Err()
}

func scanSchedule(s rowScanner) (*domain.FeeSchedule, error) {
	var (
		fs                   domain.FeeSchedule
		base                 string
		createdAt, updatedAt string
	)
	if err := s.Scan(&fs.ID, &fs.Label, &base, &fs.DurationMonths, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning fee schedule: %w", err)
	}
	var err error
	if fs.BaseAmount, err = parseDecimal(base); err != nil {
		return nil, err
	}
	if fs.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if fs.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &fs, nil
}
