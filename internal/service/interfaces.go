package service

import (
	"context"
	"time"

	"github.com/alexanderramin/ludo/internal/domain"
	"github.com/alexanderramin/ludo/internal/importer"
	"github.com/alexanderramin/ludo/internal/pricing"
)

// SimulateOptions tunes a fee simulation. A zero PaymentDate means today.
type SimulateOptions struct {
	PaymentDate time.Time
	StructureID string
}

// PaymentFields describes the payment being committed. Reference is the
// idempotency key. PeriodStart defaults to PaymentDate and PeriodEnd to the
// schedule duration after PeriodStart. When ExpectedTreeVersion is set, the
// commit fails with domain.ErrStaleTree unless the current tree still has
// that version.
type PaymentFields struct {
	PaymentDate         time.Time
	PeriodStart         *time.Time
	PeriodEnd           *time.Time
	Method              string
	Reference           string
	StructureID         string
	ExpectedTreeVersion *int
}

// FeeQuote is a simulated fee for one member and schedule.
type FeeQuote struct {
	Member   *domain.Member
	Schedule *domain.FeeSchedule
	*pricing.Quote
}

type FeeService interface {
	Simulate(ctx context.Context, memberID, scheduleID string, opts SimulateOptions) (*FeeQuote, error)
	Commit(ctx context.Context, memberID, scheduleID string, fields PaymentFields) (*domain.MembershipPayment, error)
	ListPayments(ctx context.Context, memberID string) ([]*domain.MembershipPayment, error)
	GetPayment(ctx context.Context, id string) (*domain.MembershipPayment, error)
}

type TreeService interface {
	Create(ctx context.Context, scheduleID string) (*domain.DecisionTree, error)
	Get(ctx context.Context, id string) (*domain.DecisionTree, error)
	GetCurrent(ctx context.Context, scheduleID string) (*domain.DecisionTree, error)
	// Update replaces nodes and display mode of an unlocked tree. An empty
	// mode keeps the current one.
	Update(ctx context.Context, id string, nodes []domain.DecisionNode, mode domain.DisplayMode) (*domain.DecisionTree, error)
	// Lock reports whether this call performed the lock.
	Lock(ctx context.Context, id string) (bool, error)
	Duplicate(ctx context.Context, id string) (*domain.DecisionTree, error)
	ListVersions(ctx context.Context, scheduleID string) ([]*domain.DecisionTree, error)
}

type MemberService interface {
	GetByID(ctx context.Context, id string) (*domain.Member, error)
	List(ctx context.Context) ([]*domain.Member, error)
}

// ImportResult counts what a configuration import wrote.
type ImportResult struct {
	CommuneGroups int
	AgeBrackets   int
	Schedules     int
	IncomeConfigs int
	LegacyRules   int
	Members       int
	Trees         int
}

type ImportService interface {
	ImportFile(ctx context.Context, filePath string) (*ImportResult, error)
	ImportSeed(ctx context.Context, seed *importer.Seed) (*ImportResult, error)
}
