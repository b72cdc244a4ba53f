package testutil

import (
	"time"

	"github.com/alexanderramin/ludo/internal/domain"
	"github.com/alexanderramin/ludo/internal/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Date returns midnight UTC of the given day.
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Member options
type MemberOption func(*domain.Member)

func WithBirthDate(d time.Time) MemberOption {
	return func(m *domain.Member) {
		m.BirthDate = &d
	}
}

func WithHousehold(id string) MemberOption {
	return func(m *domain.Member) {
		m.HouseholdID = &id
	}
}

func WithCommune(id string) MemberOption {
	return func(m *domain.Member) {
		m.CommuneID = &id
	}
}

func WithIncomeQuotient(qf float64) MemberOption {
	return func(m *domain.Member) {
		m.IncomeQuotient = &qf
	}
}

func WithSocialStatus(s string) MemberOption {
	return func(m *domain.Member) {
		m.SocialStatus = &s
	}
}

func NewTestMember(first, last string, opts ...MemberOption) *domain.Member {
	now := time.Now().UTC().Truncate(time.Second)
	m := &domain.Member{
		ID:        uuid.New().String(),
		FirstName: first,
		LastName:  last,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Schedule options
type ScheduleOption func(*domain.FeeSchedule)

func WithDurationMonths(n int) ScheduleOption {
	return func(s *domain.FeeSchedule) {
		s.DurationMonths = n
	}
}

func WithBracketAmount(ageBracketID, amount string) ScheduleOption {
	return func(s *domain.FeeSchedule) {
		if s.BracketAmounts == nil {
			s.BracketAmounts = map[string]decimal.Decimal{}
		}
		s.BracketAmounts[ageBracketID] = money.MustParse(amount)
	}
}

func NewTestSchedule(label, base string, opts ...ScheduleOption) *domain.FeeSchedule {
	now := time.Now().UTC().Truncate(time.Second)
	s := &domain.FeeSchedule{
		ID:             uuid.New().String(),
		Label:          label,
		BaseAmount:     money.MustParse(base),
		DurationMonths: domain.DefaultDurationMonths,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewTestAgeBracket builds a global bracket; pass nil for an open bound.
func NewTestAgeBracket(code string, minAge, maxAge *int, priority int) *domain.AgeBracket {
	return &domain.AgeBracket{
		ID:       uuid.New().String(),
		Code:     code,
		Label:    code,
		MinAge:   minAge,
		MaxAge:   maxAge,
		Priority: priority,
	}
}

func NewTestRule(label string, order int, pred domain.Condition, kind domain.CalcKind, value string) *domain.LegacyReductionRule {
	return &domain.LegacyReductionRule{
		ID:               uuid.New().String(),
		Label:            label,
		Predicate:        pred,
		CalcKind:         kind,
		Value:            decimal.RequireFromString(value),
		ApplicationOrder: order,
		Active:           true,
	}
}

func NewTestTree(scheduleID string, nodes ...domain.DecisionNode) *domain.DecisionTree {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.DecisionTree{
		ID:          uuid.New().String(),
		ScheduleID:  scheduleID,
		Version:     1,
		DisplayMode: domain.DisplayCumulative,
		Nodes:       nodes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Payment options
type PaymentOption func(*domain.MembershipPayment)

func WithPeriod(start, end time.Time) PaymentOption {
	return func(p *domain.MembershipPayment) {
		p.PeriodStart = start
		p.PeriodEnd = end
	}
}

func WithTree(id string, version int) PaymentOption {
	return func(p *domain.MembershipPayment) {
		p.TreeID = &id
		p.TreeVersion = &version
	}
}

func WithReductions(items ...domain.ReductionLineItem) PaymentOption {
	return func(p *domain.MembershipPayment) {
		p.Reductions = items
	}
}

// NewTestPayment builds a 12-month payment of final amount final starting at
// paid.
func NewTestPayment(memberID, scheduleID string, paid time.Time, final string, opts ...PaymentOption) *domain.MembershipPayment {
	amount := money.MustParse(final)
	p := &domain.MembershipPayment{
		ID:                 uuid.New().String(),
		MemberID:           memberID,
		ScheduleID:         scheduleID,
		ScheduleLabel:      "test schedule",
		Reference:          "REF-" + uuid.New().String()[:8],
		Method:             "cash",
		PaymentDate:        paid,
		PeriodStart:        paid,
		PeriodEnd:          paid.AddDate(0, domain.DefaultDurationMonths, 0),
		BaseAmount:         amount,
		IncomeAmount:       amount,
		IntermediateAmount: amount,
		TotalReductions:    money.Zero,
		FinalAmount:        amount,
		AgeBracketID:       "std",
		AgeBracketCode:     domain.StandardBracketCode,
		CreatedAt:          time.Now().UTC().Truncate(time.Second),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}
