package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/ludo/internal/db"
	"github.com/alexanderramin/ludo/internal/domain"
	"github.com/alexanderramin/ludo/internal/pricing"
	"github.com/alexanderramin/ludo/internal/repository"
	"github.com/google/uuid"
)

// DefaultPaymentMethod is recorded when a commit does not name one.
const DefaultPaymentMethod = "cash"

type feeService struct {
	repos    FeeRepos
	uow      db.UnitOfWork
	cache    *IncomeConfigCache
	calc     *pricing.Calculator
	observer UseCaseObserver
	now      func() time.Time
}

// NewFeeService creates the membership fee calculator. repos serve
// read-only simulations; commits rebind every repository to their
// transaction.
func NewFeeService(
	repos FeeRepos,
	uow db.UnitOfWork,
	cache *IncomeConfigCache,
	calc *pricing.Calculator,
	observers ...UseCaseObserver,
) FeeService {
	if cache == nil {
		cache = NewIncomeConfigCache()
	}
	if calc == nil {
		calc = pricing.NewCalculator(nil, nil)
	}
	return &feeService{
		repos:    repos,
		uow:      uow,
		cache:    cache,
		calc:     calc,
		observer: useCaseObserverOrNoop(observers),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// loaded is the state a fee computation reads.
type loaded struct {
	member   *domain.Member
	schedule *domain.FeeSchedule
	tree     *domain.DecisionTree
	input    pricing.QuoteInput
}

func (s *feeService) load(ctx context.Context, r FeeRepos, memberID, scheduleID string, at time.Time, structureID string) (*loaded, error) {
	member, err := r.Members.GetByID(ctx, memberID)
	if err != nil {
		return nil, memberLookupError(memberID, err)
	}
	schedule, err := r.Schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, scheduleLookupError(scheduleID, err)
	}

	facts := pricing.FactsFromMember(member)
	if facts.FirstPaymentAt, err = r.Members.FirstPaymentDate(ctx, member.ID); err != nil {
		return nil, err
	}
	if facts.HouseholdID != "" {
		if facts.HouseholdActivePayments, err = r.Members.CountHouseholdActivePayments(ctx, facts.HouseholdID, at); err != nil {
			return nil, err
		}
	}
	groups, err := r.CommuneGroups.List(ctx)
	if err != nil {
		return nil, err
	}
	facts.CommuneGroups = make(map[string][]string, len(groups))
	for _, g := range groups {
		facts.CommuneGroups[g.Name] = g.CommuneIDs
	}

	brackets, err := r.AgeBrackets.List(ctx)
	if err != nil {
		return nil, err
	}
	incomeCfg, err := s.cache.Get(ctx, r.IncomeConfigs)
	if err != nil {
		return nil, err
	}
	rules, err := r.LegacyRules.List(ctx)
	if err != nil {
		return nil, err
	}
	tree, err := r.Trees.GetCurrent(ctx, schedule.ID)
	if errors.Is(err, repository.ErrNotFound) {
		tree, err = nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &loaded{
		member:   member,
		schedule: schedule,
		tree:     tree,
		input: pricing.QuoteInput{
			Facts:        facts,
			Schedule:     schedule,
			AgeBrackets:  brackets,
			StructureID:  structureID,
			IncomeConfig: incomeCfg,
			LegacyRules:  rules,
			Tree:         tree,
			PaymentDate:  at,
		},
	}, nil
}

func (s *feeService) dateOrToday(d time.Time) time.Time {
	if d.IsZero() {
		d = s.now()
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *feeService) Simulate(ctx context.Context, memberID, scheduleID string, opts SimulateOptions) (quote *FeeQuote, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"member_id": memberID, "schedule_id": scheduleID}
	defer func() {
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "fee-simulate",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    fields,
		})
	}()

	at := s.dateOrToday(opts.PaymentDate)
	l, err := s.load(ctx, s.repos, memberID, scheduleID, at, opts.StructureID)
	if err != nil {
		return nil, err
	}
	q, err := s.calc.Compute(l.input)
	if err != nil {
		return nil, err
	}
	fields["final_amount"] = q.FinalAmount.String()
	return &FeeQuote{Member: l.member, Schedule: l.schedule, Quote: q}, nil
}

func (s *feeService) Commit(ctx context.Context, memberID, scheduleID string, pf PaymentFields) (payment *domain.MembershipPayment, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"member_id": memberID, "schedule_id": scheduleID, "reference": pf.Reference}
	defer func() {
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "fee-commit",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    fields,
		})
	}()

	reference := strings.TrimSpace(pf.Reference)
	if reference == "" {
		return nil, &domain.ValidationError{Field: "reference", Message: "is required"}
	}
	method := strings.TrimSpace(pf.Method)
	if method == "" {
		method = DefaultPaymentMethod
	}
	at := s.dateOrToday(pf.PaymentDate)

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := NewSQLiteFeeRepos(tx)

		if _, err := r.Payments.GetByReference(ctx, reference); err == nil {
			return fmt.Errorf("reference %s: %w", reference, domain.ErrAlreadyCommitted)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		l, err := s.load(ctx, r, memberID, scheduleID, at, pf.StructureID)
		if err != nil {
			return err
		}
		if pf.ExpectedTreeVersion != nil {
			if l.tree == nil || l.tree.Version != *pf.ExpectedTreeVersion {
				return fmt.Errorf("expected version %d of schedule %s: %w", *pf.ExpectedTreeVersion, scheduleID, domain.ErrStaleTree)
			}
		}

		q, err := s.calc.Compute(l.input)
		if err != nil {
			return err
		}

		start := at
		if pf.PeriodStart != nil {
			start = *pf.PeriodStart
		}
		end := l.schedule.PeriodEnd(start)
		if pf.PeriodEnd != nil {
			end = *pf.PeriodEnd
		}
		if !end.After(start) {
			return &domain.ValidationError{Field: "period_end", Message: "must be after period_start"}
		}

		p := newPayment(l, q, reference, method, start, end, s.now())
		if err := r.Payments.Create(ctx, p); err != nil {
			return err
		}
		if err := r.Members.SetMembershipEnd(ctx, l.member.ID, end); err != nil {
			return err
		}
		if l.tree != nil {
			locked, err := lockTree(ctx, r.Trees, l.tree, &p.ID, s.now())
			if err != nil {
				return err
			}
			fields["tree_locked"] = locked
		}
		payment = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	fields["payment_id"] = payment.ID
	fields["final_amount"] = payment.FinalAmount.String()
	return payment, nil
}

func newPayment(l *loaded, q *pricing.Quote, reference, method string, start, end, now time.Time) *domain.MembershipPayment {
	p := &domain.MembershipPayment{
		ID:                 uuid.New().String(),
		MemberID:           l.member.ID,
		ScheduleID:         l.schedule.ID,
		ScheduleLabel:      l.schedule.Label,
		Reference:          reference,
		Method:             method,
		PaymentDate:        q.PaymentDate,
		PeriodStart:        start,
		PeriodEnd:          end,
		BaseAmount:         q.BaseAmount,
		IncomeAmount:       q.Income.Amount,
		IntermediateAmount: q.IntermediateAmount,
		TotalReductions:    q.TotalReductions,
		FinalAmount:        q.FinalAmount,
		AgeAtPayment:       q.Age,
		IncomeQuotient:     l.member.IncomeQuotient,
		AgeBracketID:       q.AgeBracket.ID,
		AgeBracketCode:     q.AgeBracket.Code,
		Reductions:         q.LineItems,
		Trace:              q.Trace,
		CreatedAt:          now,
	}
	if b := q.Income.Bracket; q.Income.Applied && b != nil {
		id, label := b.ID, b.Label
		p.IncomeBracketID = &id
		p.IncomeBracketLabel = &label
	}
	if q.Tree != nil {
		id, version := q.TreeID, q.TreeVersion
		p.TreeID = &id
		p.TreeVersion = &version
	}
	return p
}

func (s *feeService) ListPayments(ctx context.Context, memberID string) ([]*domain.MembershipPayment, error) {
	if _, err := s.repos.Members.GetByID(ctx, memberID); err != nil {
		return nil, memberLookupError(memberID, err)
	}
	return s.repos.Payments.ListByMember(ctx, memberID)
}

func (s *feeService) GetPayment(ctx context.Context, id string) (*domain.MembershipPayment, error) {
	return s.repos.Payments.GetByID(ctx, id)
}
