package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MembershipPayment is the committed, immutable snapshot of a fee
// computation. Every value is copied at commit time; later configuration
// edits never change it.
type MembershipPayment struct {
	ID            string
	MemberID      string
	ScheduleID    string
	ScheduleLabel string
	Reference     string
	Method        string

	PaymentDate time.Time
	PeriodStart time.Time
	PeriodEnd   time.Time

	BaseAmount         decimal.Decimal
	IncomeAmount       decimal.Decimal
	IntermediateAmount decimal.Decimal
	TotalReductions    decimal.Decimal
	FinalAmount        decimal.Decimal

	AgeAtPayment       *int
	IncomeQuotient     *float64
	AgeBracketID       string
	AgeBracketCode     string
	IncomeBracketID    *string
	IncomeBracketLabel *string

	TreeID      *string
	TreeVersion *int

	Reductions []ReductionLineItem
	Trace      EvaluationTrace

	CreatedAt time.Time
}

// ActiveAt reports whether the payment's period covers t.
func (p *MembershipPayment) ActiveAt(t time.Time) bool {
	return p.PeriodEnd.After(t)
}
