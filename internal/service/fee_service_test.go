package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alexanderramin/ludo/internal/db"
	"github.com/alexanderramin/ludo/internal/domain"
	"github.com/alexanderramin/ludo/internal/money"
	"github.com/alexanderramin/ludo/internal/repository"
	"github.com/alexanderramin/ludo/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var paymentDay = testutil.Date(2025, 9, 1)

func TestFeeService_Simulate(t *testing.T) {
	ctx := context.Background()
	fx := setupPricing(t, testutil.NewTestDB(t))
	svc := fx.feeService(testutil.NewTestUoW(fx.db))

	q, err := svc.Simulate(ctx, fx.member.ID, fx.schedule.ID, SimulateOptions{PaymentDate: paymentDay})
	require.NoError(t, err)

	assert.Equal(t, fx.member.ID, q.Member.ID)
	assert.Equal(t, "100.00", money.Format(q.BaseAmount))
	assert.Equal(t, "70.00", money.Format(q.Income.Amount))
	assert.Equal(t, "63.00", money.Format(q.IntermediateAmount))
	assert.Equal(t, "14.45", money.Format(q.TreeReductions))
	assert.Equal(t, "21.45", money.Format(q.TotalReductions))
	assert.Equal(t, "48.55", money.Format(q.FinalAmount))
	require.NotNil(t, q.Age)
	assert.Equal(t, 11, *q.Age)
	assert.Equal(t, fx.tree.ID, q.TreeID)
	require.Len(t, q.LineItems, 3)
	assert.Equal(t, domain.SourceLegacyRule, q.LineItems[0].SourceKind)

	// simulating writes nothing
	payments, err := fx.repos.Payments.ListByMember(ctx, fx.member.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
	tree, err := fx.repos.Trees.GetByID(ctx, fx.tree.ID)
	require.NoError(t, err)
	assert.False(t, tree.Locked)
}

func TestFeeService_Simulate_UnknownMember(t *testing.T) {
	fx := setupPricing(t, testutil.NewTestDB(t))
	svc := fx.feeService(testutil.NewTestUoW(fx.db))

	_, err := svc.Simulate(context.Background(), "nobody", fx.schedule.ID, SimulateOptions{PaymentDate: paymentDay})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = svc.Simulate(context.Background(), fx.member.ID, "nothing", SimulateOptions{PaymentDate: paymentDay})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestFeeService_Simulate_WithoutTree(t *testing.T) {
	ctx := context.Background()
	database := testutil.NewTestDB(t)
	fx := setupPricing(t, database)
	other := testutil.NewTestSchedule("2026-2027", "80")
	require.NoError(t, fx.repos.Schedules.Upsert(ctx, other))

	q, err := fx.feeService(testutil.NewTestUoW(database)).Simulate(ctx, fx.member.ID, other.ID, SimulateOptions{PaymentDate: paymentDay})
	require.NoError(t, err)
	assert.Nil(t, q.Tree)
	assert.True(t, q.TreeReductions.IsZero())
	assert.Equal(t, q.IntermediateAmount.String(), q.FinalAmount.String())
	assert.Contains(t, q.Trace.Notes, "no decision tree for schedule")
}

func TestFeeService_Commit(t *testing.T) {
	ctx := context.Background()
	fx := setupPricing(t, testutil.NewTestDB(t))
	svc := fx.feeService(testutil.NewTestUoW(fx.db))

	p, err := svc.Commit(ctx, fx.member.ID, fx.schedule.ID, PaymentFields{
		PaymentDate: paymentDay,
		Reference:   "CHQ-0001",
	})
	require.NoError(t, err)

	assert.Equal(t, DefaultPaymentMethod, p.Method)
	assert.Equal(t, paymentDay, p.PeriodStart)
	assert.Equal(t, testutil.Date(2026, 9, 1), p.PeriodEnd)
	assert.Equal(t, "48.55", money.Format(p.FinalAmount))
	require.NotNil(t, p.TreeVersion)
	assert.Equal(t, 1, *p.TreeVersion)
	require.NotNil(t, p.IncomeBracketID)
	assert.Equal(t, "low", *p.IncomeBracketID)

	stored, err := svc.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "CHQ-0001", stored.Reference)
	assert.True(t, stored.FinalAmount.Equal(p.FinalAmount))
	require.Len(t, stored.Reductions, 3)
	assert.Equal(t, "9.45", money.Format(stored.Reductions[1].ComputedAmount))
	require.Len(t, stored.Trace.Tree, 2)

	member, err := fx.repos.Members.GetByID(ctx, fx.member.ID)
	require.NoError(t, err)
	require.NotNil(t, member.MembershipEndDate)
	assert.True(t, p.PeriodEnd.Equal(*member.MembershipEndDate))

	tree, err := fx.repos.Trees.GetByID(ctx, fx.tree.ID)
	require.NoError(t, err)
	assert.True(t, tree.Locked)
	require.NotNil(t, tree.LockedAt)
	events, err := fx.repos.Trees.CountLockEvents(ctx, fx.tree.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, events)

	payments, err := svc.ListPayments(ctx, fx.member.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)
}

func TestFeeService_Commit_SnapshotSurvivesConfigChange(t *testing.T) {
	ctx := context.Background()
	fx := setupPricing(t, testutil.NewTestDB(t))
	svc := fx.feeService(testutil.NewTestUoW(fx.db))

	p, err := svc.Commit(ctx, fx.member.ID, fx.schedule.ID, PaymentFields{PaymentDate: paymentDay, Reference: "R-1"})
	require.NoError(t, err)

	fx.schedule.BaseAmount = money.MustParse("250")
	require.NoError(t, fx.repos.Schedules.Upsert(ctx, fx.schedule))

	stored, err := svc.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "100.00", money.Format(stored.BaseAmount))
	assert.Equal(t, "48.55", money.Format(stored.FinalAmount))
}

func TestFeeService_Commit_DuplicateReference(t *testing.T) {
	ctx := context.Background()
	fx := setupPricing(t, testutil.NewTestDB(t))
	svc := fx.feeService(testutil.NewTestUoW(fx.db))

	fields := PaymentFields{PaymentDate: paymentDay, Reference: "VIR-42"}
	_, err := svc.Commit(ctx, fx.member.ID, fx.schedule.ID, fields)
	require.NoError(t, err)

	_, err = svc.Commit(ctx, fx.member.ID, fx.schedule.ID, fields)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAlreadyCommitted)

	payments, err := svc.ListPayments(ctx, fx.member.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)
}

func TestFeeService_Commit_RequiresReference(t *testing.T) {
	fx := setupPricing(t, testutil.NewTestDB(t))
	svc := fx.feeService(testutil.NewTestUoW(fx.db))

	_, err := svc.Commit(context.Background(), fx.member.ID, fx.schedule.ID, PaymentFields{Reference: "  "})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestFeeService_Commit_InvalidPeriod(t *testing.T) {
	fx := setupPricing(t, testutil.NewTestDB(t))
	svc := fx.feeService(testutil.NewTestUoW(fx.db))

	end := paymentDay.AddDate(0, 0, -1)
	_, err := svc.Commit(context.Background(), fx.member.ID, fx.schedule.ID, PaymentFields{
		PaymentDate: paymentDay, Reference: "R", PeriodEnd: &end,
	})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestFeeService_Commit_StaleTreeVersion(t *testing.T) {
	ctx := context.Background()
	fx := setupPricing(t, testutil.NewTestDB(t))
	svc := fx.feeService(testutil.NewTestUoW(fx.db))

	_, err := svc.Commit(ctx, fx.member.ID, fx.schedule.ID, PaymentFields{
		PaymentDate: paymentDay, Reference: "R-STALE", ExpectedTreeVersion: intPtr(7),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStaleTree)

	_, err = fx.repos.Payments.GetByReference(ctx, "R-STALE")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	tree, err := fx.repos.Trees.GetByID(ctx, fx.tree.ID)
	require.NoError(t, err)
	assert.False(t, tree.Locked)

	_, err = svc.Commit(ctx, fx.member.ID, fx.schedule.ID, PaymentFields{
		PaymentDate: paymentDay, Reference: "R-FRESH", ExpectedTreeVersion: intPtr(1),
	})
	require.NoError(t, err)
}

func TestFeeService_Commit_AfterDuplicateUsesNewVersion(t *testing.T) {
	ctx := context.Background()
	fx := setupPricing(t, testutil.NewTestDB(t))
	svc := fx.feeService(testutil.NewTestUoW(fx.db))

	first, err := svc.Commit(ctx, fx.member.ID, fx.schedule.ID, PaymentFields{PaymentDate: paymentDay, Reference: "R-1"})
	require.NoError(t, err)

	next, err := fx.treeService().Duplicate(ctx, fx.tree.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, next.Version)

	_, err = svc.Commit(ctx, fx.member.ID, fx.schedule.ID, PaymentFields{
		PaymentDate: paymentDay, Reference: "R-2", ExpectedTreeVersion: first.TreeVersion,
	})
	assert.ErrorIs(t, err, domain.ErrStaleTree)

	second, err := svc.Commit(ctx, fx.member.ID, fx.schedule.ID, PaymentFields{
		PaymentDate: paymentDay, Reference: "R-3", ExpectedTreeVersion: intPtr(2),
	})
	require.NoError(t, err)
	require.NotNil(t, second.TreeID)
	assert.Equal(t, next.ID, *second.TreeID)

	// the first payment still points at the superseded version
	stored, err := svc.GetPayment(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, fx.tree.ID, *stored.TreeID)
	assert.Equal(t, 1, *stored.TreeVersion)
}

func TestFeeService_Commit_OnLockedTreeRecordsNoNewEvent(t *testing.T) {
	ctx := context.Background()
	fx := setupPricing(t, testutil.NewTestDB(t))
	svc := fx.feeService(testutil.NewTestUoW(fx.db))

	for i := range 3 {
		_, err := svc.Commit(ctx, fx.member.ID, fx.schedule.ID, PaymentFields{
			PaymentDate: paymentDay, Reference: fmt.Sprintf("R-%d", i),
		})
		require.NoError(t, err)
	}

	events, err := fx.repos.Trees.CountLockEvents(ctx, fx.tree.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, events)
	count, err := fx.repos.Payments.CountByTree(ctx, fx.tree.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

// TestFeeService_Commit_RollsBackOnLockFailure fails the lock event insert,
// the last write of a commit: payment row, reduction lines, membership end
// and lock flag must all disappear.
func TestFeeService_Commit_RollsBackOnLockFailure(t *testing.T) {
	ctx := context.Background()
	database := testutil.NewTestDB(t)
	fx := setupPricing(t, database)

	// payment, 3 reduction lines, membership end, lock flag, lock event
	boom := errors.New("disk full")
	uow := &testutil.FailOnNthExecUoW{DB: database, FailOn: 7, Err: boom}
	svc := fx.feeService(uow)

	_, err := svc.Commit(ctx, fx.member.ID, fx.schedule.ID, PaymentFields{PaymentDate: paymentDay, Reference: "R-FAIL"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, uow.Statements, 6)

	_, err = fx.repos.Payments.GetByReference(ctx, "R-FAIL")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	member, err := fx.repos.Members.GetByID(ctx, fx.member.ID)
	require.NoError(t, err)
	assert.Nil(t, member.MembershipEndDate)
	tree, err := fx.repos.Trees.GetByID(ctx, fx.tree.ID)
	require.NoError(t, err)
	assert.False(t, tree.Locked)
	events, err := fx.repos.Trees.CountLockEvents(ctx, fx.tree.ID)
	require.NoError(t, err)
	assert.Zero(t, events)
}

func TestFeeService_Commit_ConcurrentCommitsLockOnce(t *testing.T) {
	ctx := context.Background()
	database := testutil.NewFileTestDB(t)
	fx := setupPricing(t, database)
	svc := fx.feeService(testutil.NewTestUoW(database))

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ref := fmt.Sprintf("R-%02d", i)
			var err error
			for attempt := range 10 {
				_, err = svc.Commit(ctx, fx.member.ID, fx.schedule.ID, PaymentFields{PaymentDate: paymentDay, Reference: ref})
				if !errors.Is(err, db.ErrBusy) {
					break
				}
				time.Sleep(time.Millisecond * time.Duration(1<<attempt))
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	count, err := fx.repos.Payments.CountByTree(ctx, fx.tree.ID)
	require.NoError(t, err)
	assert.Equal(t, workers, count)
	events, err := fx.repos.Trees.CountLockEvents(ctx, fx.tree.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, events)
}

func TestFeeService_MalformedBranchIsSkipped(t *testing.T) {
	ctx := context.Background()
	database := testutil.NewTestDB(t)
	fx := setupPricing(t, database)

	s := testutil.NewTestSchedule("atelier", "100")
	require.NoError(t, fx.repos.Schedules.Upsert(ctx, s))
	broken := domain.DecisionNode{
		ID: uuid.New().String(), ConditionKind: domain.KindAge, Label: "Âge",
		Branches: []domain.DecisionBranch{
			{
				ID: "b-broken", Code: "CASSE", Label: "Cassé",
				Condition: domain.DecodeCondition([]byte(`{"type":"AGE","operator":"between","min":5}`)),
				Reduction: &domain.Reduction{CalcKind: domain.CalcFixed, Value: decimal.NewFromInt(50)},
			},
			{
				ID: "b-any", Code: "TOUS", Label: "Tous",
				Condition: domain.AnyCondition{},
				Reduction: &domain.Reduction{CalcKind: domain.CalcFixed, Value: decimal.NewFromInt(3)},
			},
		},
	}
	require.NoError(t, fx.repos.Trees.Create(ctx, testutil.NewTestTree(s.ID, broken)))

	q, err := fx.feeService(testutil.NewTestUoW(database)).Simulate(ctx, fx.member.ID, s.ID, SimulateOptions{PaymentDate: paymentDay})
	require.NoError(t, err)
	assert.Equal(t, "3.00", money.Format(q.TreeReductions))
	require.Len(t, q.Trace.Tree, 1)
	assert.Equal(t, "b-any", q.Trace.Tree[0].SelectedBranchID)
	require.Len(t, q.Trace.Tree[0].Branches, 2)
	assert.NotEmpty(t, q.Trace.Tree[0].Branches[0].Error)
	assert.False(t, q.Trace.Tree[0].Branches[0].Matched)
}

func TestFeeService_IncomeCacheInvalidation(t *testing.T) {
	ctx := context.Background()
	database := testutil.NewTestDB(t)
	fx := setupPricing(t, database)
	svc := fx.feeService(testutil.NewTestUoW(database))

	q, err := svc.Simulate(ctx, fx.member.ID, fx.schedule.ID, SimulateOptions{PaymentDate: paymentDay})
	require.NoError(t, err)
	assert.Equal(t, "70.00", money.Format(q.Income.Amount))

	max600 := 600.0
	require.NoError(t, fx.repos.IncomeConfigs.Upsert(ctx, &domain.IncomeBracketConfig{
		ID: uuid.New().String(), Label: "QF 2026", Active: true,
		Brackets: []domain.IncomeBracket{{
			ID: "low-2026", Label: "QF <= 600", MaxQF: &max600,
			CalcKind: domain.CalcFixed, Value: decimal.NewFromInt(50), Position: 1,
		}},
	}))

	q, err = svc.Simulate(ctx, fx.member.ID, fx.schedule.ID, SimulateOptions{PaymentDate: paymentDay})
	require.NoError(t, err)
	assert.Equal(t, "70.00", money.Format(q.Income.Amount), "cached config still served")

	fx.cache.Invalidate()
	q, err = svc.Simulate(ctx, fx.member.ID, fx.schedule.ID, SimulateOptions{PaymentDate: paymentDay})
	require.NoError(t, err)
	assert.Equal(t, "50.00", money.Format(q.Income.Amount))
}

func TestFeeService_ListPayments_UnknownMember(t *testing.T) {
	fx := setupPricing(t, testutil.NewTestDB(t))
	_, err := fx.feeService(testutil.NewTestUoW(fx.db)).ListPayments(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}
