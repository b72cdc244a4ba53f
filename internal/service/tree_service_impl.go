package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/ludo/internal/db"
	"github.com/alexanderramin/ludo/internal/domain"
	"github.com/alexanderramin/ludo/internal/pricing"
	"github.com/alexanderramin/ludo/internal/repository"
	"github.com/google/uuid"
)

type treeService struct {
	trees     repository.TreeRepo
	schedules repository.ScheduleRepo
	uow       db.UnitOfWork
	maxDepth  int
	observer  UseCaseObserver
}

// NewTreeService creates the decision tree lifecycle manager. maxDepth <= 0
// selects pricing.DefaultMaxDepth.
func NewTreeService(
	trees repository.TreeRepo,
	schedules repository.ScheduleRepo,
	uow db.UnitOfWork,
	maxDepth int,
	observers ...UseCaseObserver,
) TreeService {
	if maxDepth <= 0 {
		maxDepth = pricing.DefaultMaxDepth
	}
	return &treeService{
		trees:     trees,
		schedules: schedules,
		uow:       uow,
		maxDepth:  maxDepth,
		observer:  useCaseObserverOrNoop(observers),
	}
}

func (s *treeService) Create(ctx context.Context, scheduleID string) (tree *domain.DecisionTree, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"schedule_id": scheduleID}
	defer func() {
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "tree-create",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    fields,
		})
	}()

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if _, err := repository.NewSQLiteScheduleRepo(tx).GetByID(ctx, scheduleID); err != nil {
			return scheduleLookupError(scheduleID, err)
		}
		trees := repository.NewSQLiteTreeRepo(tx)
		if _, err := trees.GetCurrent(ctx, scheduleID); err == nil {
			return fmt.Errorf("schedule %s: %w", scheduleID, domain.ErrTreeExists)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		latest, err := trees.MaxVersion(ctx, scheduleID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		tree = &domain.DecisionTree{
			ID:          uuid.New().String(),
			ScheduleID:  scheduleID,
			Version:     latest + 1,
			DisplayMode: domain.DisplayCumulative,
			Nodes:       []domain.DecisionNode{},
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return trees.Create(ctx, tree)
	})
	if err != nil {
		return nil, err
	}
	fields["tree_id"] = tree.ID
	return tree, nil
}

func (s *treeService) Get(ctx context.Context, id string) (*domain.DecisionTree, error) {
	t, err := s.trees.GetByID(ctx, id)
	if err != nil {
		return nil, treeLookupError(id, err)
	}
	return t, nil
}

func (s *treeService) GetCurrent(ctx context.Context, scheduleID string) (*domain.DecisionTree, error) {
	return s.trees.GetCurrent(ctx, scheduleID)
}

func (s *treeService) ListVersions(ctx context.Context, scheduleID string) ([]*domain.DecisionTree, error) {
	return s.trees.ListVersions(ctx, scheduleID)
}

func (s *treeService) Update(ctx context.Context, id string, nodes []domain.DecisionNode, mode domain.DisplayMode) (tree *domain.DecisionTree, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"tree_id": id, "node_count": len(nodes)}
	defer func() {
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "tree-update",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    fields,
		})
	}()

	if mode != "" && mode != domain.DisplayCumulative && mode != domain.DisplayDetailed {
		return nil, &domain.ValidationError{Field: "display_mode", Message: fmt.Sprintf("unknown mode %q", mode)}
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		trees := repository.NewSQLiteTreeRepo(tx)
		current, err := trees.GetByID(ctx, id)
		if err != nil {
			return treeLookupError(id, err)
		}
		if current.Locked {
			return lockedError(current)
		}
		if err := domain.ValidateNodes(nodes, s.maxDepth); err != nil {
			return err
		}
		current.Nodes = nodes
		if mode != "" {
			current.DisplayMode = mode
		}
		current.UpdatedAt = time.Now().UTC()
		if err := trees.UpdateNodes(ctx, current); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return lockedError(current)
			}
			return err
		}
		tree = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tree, nil
}

func (s *treeService) Lock(ctx context.Context, id string) (changed bool, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"tree_id": id}
	defer func() {
		fields["changed"] = changed
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "tree-lock",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    fields,
		})
	}()

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		trees := repository.NewSQLiteTreeRepo(tx)
		tree, err := trees.GetByID(ctx, id)
		if err != nil {
			return treeLookupError(id, err)
		}
		changed, err = lockTree(ctx, trees, tree, nil, time.Now().UTC())
		return err
	})
	return changed, err
}

// Duplicate derives an editable version from the current tree of a
// schedule. A locked tree is copied into a new current version with fresh
// ids and marked superseded; an unlocked tree only gets its version bumped.
func (s *treeService) Duplicate(ctx context.Context, id string) (tree *domain.DecisionTree, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"source_tree_id": id}
	defer func() {
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "tree-duplicate",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    fields,
		})
	}()

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		trees := repository.NewSQLiteTreeRepo(tx)
		source, err := trees.GetByID(ctx, id)
		if err != nil {
			return treeLookupError(id, err)
		}
		if !source.Current() {
			return &domain.ValidationError{
				Field:   "tree",
				Message: fmt.Sprintf("version %d of schedule %s is superseded; duplicate the current version", source.Version, source.ScheduleID),
			}
		}
		latest, err := trees.MaxVersion(ctx, source.ScheduleID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()

		if !source.Locked {
			if err := trees.BumpVersion(ctx, source.ID, latest+1, now); err != nil {
				if errors.Is(err, repository.ErrConflict) {
					return lockedError(source)
				}
				return err
			}
			source.Version = latest + 1
			source.UpdatedAt = now
			tree = source
			return nil
		}

		if err := trees.Supersede(ctx, source.ID, now); err != nil {
			return err
		}
		tree = &domain.DecisionTree{
			ID:          uuid.New().String(),
			ScheduleID:  source.ScheduleID,
			Version:     latest + 1,
			DisplayMode: source.DisplayMode,
			Nodes:       domain.CloneNodes(source.Nodes, func() string { return uuid.New().String() }),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return trees.Create(ctx, tree)
	})
	if err != nil {
		return nil, err
	}
	fields["tree_id"] = tree.ID
	fields["version"] = tree.Version
	return tree, nil
}

// lockTree sets the locked flag of t and records a lock event when this
// call performed the transition. Concurrent callers race on a conditional
// update, so exactly one of them records the event.
func lockTree(ctx context.Context, trees repository.TreeRepo, t *domain.DecisionTree, paymentID *string, at time.Time) (bool, error) {
	changed, err := trees.Lock(ctx, t.ID, at)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}
	if err := trees.RecordLockEvent(ctx, t.ID, t.Version, paymentID, at); err != nil {
		return false, err
	}
	t.Locked = true
	t.LockedAt = &at
	return true, nil
}

func lockedError(t *domain.DecisionTree) error {
	return &domain.LockedResourceError{Resource: "decision tree", ID: t.ID, LockedAt: t.LockedAt}
}

func scheduleLookupError(id string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &domain.ValidationError{Field: "schedule", Message: fmt.Sprintf("unknown schedule %s", id), Err: err}
	}
	return err
}

func treeLookupError(id string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &domain.ValidationError{Field: "tree", Message: fmt.Sprintf("unknown tree %s", id), Err: err}
	}
	return err
}

func memberLookupError(id string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &domain.ValidationError{Field: "member", Message: fmt.Sprintf("unknown member %s", id), Err: err}
	}
	return err
}
