package repository

import (
	"context"
	"errors"
	"time"

	"github.com/alexanderramin/ludo/internal/domain"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a conditional write matched no row
	// because the guarded state changed.
	ErrConflict = errors.New("conditional write did not apply")
)

type MemberRepo interface {
	Create(ctx context.Context, m *domain.Member) error
	Upsert(ctx context.Context, m *domain.Member) error
	GetByID(ctx context.Context, id string) (*domain.Member, error)
	List(ctx context.Context) ([]*domain.Member, error)
	SetMembershipEnd(ctx context.Context, id string, end time.Time) error
	// FirstPaymentDate returns the earliest payment date of the member, or
	// nil when the member never paid.
	FirstPaymentDate(ctx context.Context, memberID string) (*time.Time, error)
	// CountHouseholdActivePayments counts payments of every member of the
	// household whose period ends after at.
	CountHouseholdActivePayments(ctx context.Context, householdID string, at time.Time) (int, error)
}

type CommuneGroupRepo interface {
	Upsert(ctx context.Context, g domain.CommuneGroup) error
	List(ctx context.Context) ([]domain.CommuneGroup, error)
}

type ScheduleRepo interface {
	Upsert(ctx context.Context, s *domain.FeeSchedule) error
	GetByID(ctx context.Context, id string) (*domain.FeeSchedule, error)
	List(ctx context.Context) ([]*domain.FeeSchedule, error)
}

type AgeBracketRepo interface {
	Upsert(ctx context.Context, b *domain.AgeBracket) error
	List(ctx context.Context) ([]domain.AgeBracket, error)
}

type IncomeConfigRepo interface {
	// Upsert replaces the config and its brackets. Activating a config
	// deactivates every other one.
	Upsert(ctx context.Context, c *domain.IncomeBracketConfig) error
	GetActive(ctx context.Context) (*domain.IncomeBracketConfig, error)
	GetByID(ctx context.Context, id string) (*domain.IncomeBracketConfig, error)
}

type LegacyRuleRepo interface {
	Upsert(ctx context.Context, r *domain.LegacyReductionRule) error
	// List returns every rule, active or not, in application order.
	List(ctx context.Context) ([]domain.LegacyReductionRule, error)
}

type TreeRepo interface {
	Create(ctx context.Context, t *domain.DecisionTree) error
	GetByID(ctx context.Context, id string) (*domain.DecisionTree, error)
	GetCurrent(ctx context.Context, scheduleID string) (*domain.DecisionTree, error)
	ListVersions(ctx context.Context, scheduleID string) ([]*domain.DecisionTree, error)
	MaxVersion(ctx context.Context, scheduleID string) (int, error)
	// UpdateNodes rewrites nodes and display mode of an unlocked tree.
	// Returns ErrConflict when the tree is locked.
	UpdateNodes(ctx context.Context, t *domain.DecisionTree) error
	// BumpVersion sets version of an unlocked tree. Returns ErrConflict
	// when the tree is locked.
	BumpVersion(ctx context.Context, id string, version int, at time.Time) error
	// Lock sets the locked flag when it is not set yet and reports whether
	// this call changed it.
	Lock(ctx context.Context, id string, at time.Time) (bool, error)
	RecordLockEvent(ctx context.Context, treeID string, version int, paymentID *string, at time.Time) error
	CountLockEvents(ctx context.Context, treeID string) (int, error)
	Supersede(ctx context.Context, id string, at time.Time) error
}

type PaymentRepo interface {
	// Create stores the payment and its reduction ledger. A reused
	// reference returns domain.ErrAlreadyCommitted.
	Create(ctx context.Context, p *domain.MembershipPayment) error
	GetByID(ctx context.Context, id string) (*domain.MembershipPayment, error)
	GetByReference(ctx context.Context, reference string) (*domain.MembershipPayment, error)
	ListByMember(ctx context.Context, memberID string) ([]*domain.MembershipPayment, error)
	CountByTree(ctx context.Context, treeID string) (int, error)
}
