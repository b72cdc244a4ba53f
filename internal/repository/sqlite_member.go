package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/ludo/internal/db"
	"github.com/alexanderramin/ludo/internal/domain"
)

// SQLiteMemberRepo implements MemberRepo using a SQLite database.
type SQLiteMemberRepo struct {
	db db.DBTX
}

// NewSQLiteMemberRepo creates a new SQLiteMemberRepo.
func NewSQLiteMemberRepo(conn db.DBTX) *SQLiteMemberRepo {
	return &SQLiteMemberRepo{db: conn}
}

const memberColumns = `id, first_name, last_name, birth_date, household_id, commune_id,
	income_quotient, social_status, membership_end_date, created_at, updated_at`

func (r *SQLiteMemberRepo) Create(ctx context.Context, m *domain.Member) error {
	query := `INSERT INTO members (` + memberColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, r.args(m)...)
	if err != nil {
		return fmt.Errorf("inserting member: %w", err)
	}
	return nil
}

func (r *SQLiteMemberRepo) Upsert(ctx context.Context, m *domain.Member) error {
	query := `INSERT INTO members (` + memberColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			birth_date = excluded.birth_date,
			household_id = excluded.household_id,
			commune_id = excluded.commune_id,
			income_quotient = excluded.income_quotient,
			social_status = excluded.social_status,
			membership_end_date = COALESCE(excluded.membership_end_date, members.membership_end_date),
			updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query, r.args(m)...)
	if err != nil {
		return fmt.Errorf("upserting member: %w", err)
	}
	return nil
}

func (r *SQLiteMemberRepo) args(m *domain.Member) []any {
	return []any{
		m.ID,
		m.FirstName,
		m.LastName,
		nullableTimeToString(m.BirthDate, dateLayout),
		nullableStringToValue(m.HouseholdID),
		nullableStringToValue(m.CommuneID),
		nullableFloatToValue(m.IncomeQuotient),
		nullableStringToValue(m.SocialStatus),
		nullableTimeToString(m.MembershipEndDate, dateLayout),
		formatTime(m.CreatedAt),
		formatTime(m.UpdatedAt),
	}
}

func (r *SQLiteMemberRepo) GetByID(ctx context.Context, id string) (*domain.Member, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE id = ?`, id)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("member %s: %w", id, ErrNotFound)
	}
	return m, err
}

func (r *SQLiteMemberRepo) List(ctx context.Context) ([]*domain.Member, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+memberColumns+` FROM members ORDER BY last_name, first_name, id`)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	defer rows.Close()

	var members []*domain.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating members: %w", err)
	}
	return members, nil
}

func (r *SQLiteMemberRepo) SetMembershipEnd(ctx context.Context, id string, end time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE members SET membership_end_date = ?, updated_at = ? WHERE id = ?`,
		formatDate(end), nowUTC(), id)
	if err != nil {
		return fmt.Errorf("updating membership end: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating membership end: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("member %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLiteMemberRepo) FirstPaymentDate(ctx context.Context, memberID string) (*time.Time, error) {
	var first sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT MIN(payment_date) FROM payments WHERE member_id = ?`, memberID).Scan(&first)
	if err != nil {
		return nil, fmt.Errorf("loading first payment date: %w", err)
	}
	return parseNullableTime(first, dateLayout), nil
}

func (r *SQLiteMemberRepo) CountHouseholdActivePayments(ctx context.Context, householdID string, at time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payments p
		JOIN members m ON m.id = p.member_id
		WHERE m.household_id = ? AND p.period_end > ?`,
		householdID, formatDate(at)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting household payments: %w", err)
	}
	return n, nil
}

func scanMember(s rowScanner) (*domain.Member, error) {
	var (
		m                                 domain.Member
		birth, household, commune, status sql.NullString
		end                               sql.NullString
		qf                                sql.NullFloat64
		createdAt, updatedAt              string
	)
	err := s.Scan(&m.ID, &m.FirstName, &m.LastName, &birth, &household, &commune,
		&qf, &status, &end, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning member: %w", err)
	}
	m.BirthDate = parseNullableTime(birth, dateLayout)
	m.HouseholdID = nullString(household)
	m.CommuneID = nullString(commune)
	m.IncomeQuotient = nullFloat(qf)
	m.SocialStatus = nullString(status)
	m.MembershipEndDate = parseNullableTime(end, dateLayout)
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if m.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}
