package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alexanderramin/ludo/internal/db"
	"github.com/alexanderramin/ludo/internal/domain"
	"github.com/alexanderramin/ludo/internal/money"
)

// SQLitePaymentRepo implements PaymentRepo using a SQLite database. Payments
// are append-only: there is no update or delete.
type SQLitePaymentRepo struct {
	db db.DBTX
}

func NewSQLitePaymentRepo(conn db.DBTX) *SQLitePaymentRepo {
	return &SQLitePaymentRepo{db: conn}
}

const paymentColumns = `id, member_id, schedule_id, schedule_label, reference, method,
	payment_date, period_start, period_end,
	base_amount, income_amount, intermediate_amount, total_reductions, final_amount,
	age_at_payment, income_quotient, age_bracket_id, age_bracket_code,
	income_bracket_id, income_bracket_label, tree_id, tree_version, trace, created_at`

func (r *SQLitePaymentRepo) Create(ctx context.Context, p *domain.MembershipPayment) error {
	trace, err := json.Marshal(p.Trace)
	if err != nil {
		return fmt.Errorf("encoding evaluation trace: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO payments (`+paymentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.MemberID, p.ScheduleID, p.ScheduleLabel, p.Reference, p.Method,
		formatDate(p.PaymentDate), formatDate(p.PeriodStart), formatDate(p.PeriodEnd),
		money.Format(p.BaseAmount), money.Format(p.IncomeAmount), money.Format(p.IntermediateAmount),
		money.Format(p.TotalReductions), money.Format(p.FinalAmount),
		nullableIntToValue(p.AgeAtPayment), nullableFloatToValue(p.IncomeQuotient),
		p.AgeBracketID, p.AgeBracketCode,
		nullableStringToValue(p.IncomeBracketID), nullableStringToValue(p.IncomeBracketLabel),
		nullableStringToValue(p.TreeID), nullableIntToValue(p.TreeVersion),
		string(trace), formatTime(p.CreatedAt))
	if err != nil {
		if isUniqueViolation(err, "payments.reference") {
			return fmt.Errorf("reference %s: %w", p.Reference, domain.ErrAlreadyCommitted)
		}
		return fmt.Errorf("inserting payment: %w", err)
	}

	for i, it := range p.Reductions {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO payment_reductions (payment_id, position, source_kind, source_id, code, label, calc_kind, value, computed_amount)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, i, string(it.SourceKind), it.SourceID, it.Code, it.Label,
			string(it.CalcKind), it.Value.String(), money.Format(it.ComputedAmount))
		if err != nil {
			return fmt.Errorf("inserting reduction line %d: %w", i, err)
		}
	}
	return nil
}

func (r *SQLitePaymentRepo) GetByID(ctx context.Context, id string) (*domain.MembershipPayment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
	return r.loadOne(ctx, row, "payment "+id)
}

func (r *SQLitePaymentRepo) GetByReference(ctx context.Context, reference string) (*domain.MembershipPayment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE reference = ?`, reference)
	return r.loadOne(ctx, row, "payment with reference "+reference)
}

func (r *SQLitePaymentRepo) loadOne(ctx context.Context, row *sql.Row, what string) (*domain.MembershipPayment, error) {
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadReductions(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListByMember returns the member's payments, most recent first.
func (r *SQLitePaymentRepo) ListByMember(ctx context.Context, memberID string) ([]*domain.MembershipPayment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE member_id = ? ORDER BY payment_date DESC, created_at DESC`, memberID)
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	var payments []*domain.MembershipPayment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating payments: %w", err)
	}
	rows.Close()

	for _, p := range payments {
		if err := r.loadReductions(ctx, p); err != nil {
			return nil, err
		}
	}
	return payments, nil
}

func (r *SQLitePaymentRepo) CountByTree(ctx context.Context, treeID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM payments WHERE tree_id = ?`, treeID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting payments by tree: %w", err)
	}
	return n, nil
}

func (r *SQLitePaymentRepo) loadReductions(ctx context.Context, p *domain.MembershipPayment) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT position, source_kind, source_id, code, label, calc_kind, value, computed_amount
		FROM payment_reductions WHERE payment_id = ? ORDER BY position`, p.ID)
	if err != nil {
		return fmt.Errorf("loading reductions: %w", err)
	}
	defer rows.Close()

	p.Reductions = nil
	for rows.Next() {
		var (
			it                         domain.ReductionLineItem
			source, kind, value, total string
		)
		if err := rows.Scan(&it.Position, &source, &it.SourceID, &it.Code, &it.Label, &kind, &value, &total); err != nil {
			return fmt.Errorf("scanning reduction: %w", err)
		}
		it.SourceKind = domain.SourceKind(source)
		it.CalcKind = domain.CalcKind(kind)
		if it.Value, err = parseDecimal(value); err != nil {
			return err
		}
		if it.ComputedAmount, err = parseDecimal(total); err != nil {
			return err
		}
		p.Reductions = append(p.Reductions, it)
	}
	return rows.Err()
}

func scanPayment(s rowScanner) (*domain.MembershipPayment, error) {
	var (
		p                                 domain.MembershipPayment
		payDate, start, end               string
		base, income, inter, total, final string
		age, treeVersion                  sql.NullInt64
		qf                                sql.NullFloat64
		incomeID, incomeLabel, treeID     sql.NullString
		trace, createdAt                  string
	)
	err := s.Scan(&p.ID, &p.MemberID, &p.ScheduleID, &p.ScheduleLabel, &p.Reference, &p.Method,
		&payDate, &start, &end,
		&base, &income, &inter, &total, &final,
		&age, &qf, &p.AgeBracketID, &p.AgeBracketCode,
		&incomeID, &incomeLabel, &treeID, &treeVersion, &trace, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning payment: %w", err)
	}

	if p.PaymentDate, err = parseDate(payDate); err != nil {
		return nil, err
	}
	if p.PeriodStart, err = parseDate(start); err != nil {
		return nil, err
	}
	if p.PeriodEnd, err = parseDate(end); err != nil {
		return nil, err
	}
	if p.BaseAmount, err = parseDecimal(base); err != nil {
		return nil, err
	}
	if p.IncomeAmount, err = parseDecimal(income); err != nil {
		return nil, err
	}
	if p.IntermediateAmount, err = parseDecimal(inter); err != nil {
		return nil, err
	}
	if p.TotalReductions, err = parseDecimal(total); err != nil {
		return nil, err
	}
	if p.FinalAmount, err = parseDecimal(final); err != nil {
		return nil, err
	}
	p.AgeAtPayment = nullInt(age)
	p.IncomeQuotient = nullFloat(qf)
	p.IncomeBracketID = nullString(incomeID)
	p.IncomeBracketLabel = nullString(incomeLabel)
	p.TreeID = nullString(treeID)
	p.TreeVersion = nullInt(treeVersion)
	if err := json.Unmarshal([]byte(trace), &p.Trace); err != nil {
		return nil, fmt.Errorf("decoding trace of payment %s: %w", p.ID, err)
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &p, nil
}
