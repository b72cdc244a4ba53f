package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/ludo/internal/db"
	"github.com/alexanderramin/ludo/internal/domain"
	"github.com/alexanderramin/ludo/internal/importer"
	"github.com/alexanderramin/ludo/internal/repository"
	"github.com/google/uuid"
)

type importService struct {
	uow      db.UnitOfWork
	cache    *IncomeConfigCache
	maxDepth int
	observer UseCaseObserver
}

// NewImportService creates the configuration importer. Every successful
// import invalidates cache.
func NewImportService(uow db.UnitOfWork, cache *IncomeConfigCache, maxDepth int, observers ...UseCaseObserver) ImportService {
	return &importService{
		uow:      uow,
		cache:    cache,
		maxDepth: maxDepth,
		observer: useCaseObserverOrNoop(observers),
	}
}

func (s *importService) ImportFile(ctx context.Context, filePath string) (*ImportResult, error) {
	seed, err := importer.LoadSeed(filePath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration file: %w", err)
	}
	return s.ImportSeed(ctx, seed)
}

func (s *importService) ImportSeed(ctx context.Context, seed *importer.Seed) (result *ImportResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() {
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "config-import",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    fields,
		})
	}()

	if errs := importer.ValidateSeed(seed); len(errs) > 0 {
		return nil, formatValidationErrors(errs)
	}
	bundle, err := importer.Convert(seed, s.maxDepth)
	if err != nil {
		return nil, fmt.Errorf("converting configuration: %w", err)
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return writeBundle(ctx, NewSQLiteFeeRepos(tx), bundle)
	})
	if err != nil {
		return nil, err
	}
	if s.cache != nil && len(bundle.IncomeConfigs) > 0 {
		s.cache.Invalidate()
	}

	result = &ImportResult{
		CommuneGroups: len(bundle.CommuneGroups),
		AgeBrackets:   len(bundle.AgeBrackets),
		Schedules:     len(bundle.Schedules),
		IncomeConfigs: len(bundle.IncomeConfigs),
		LegacyRules:   len(bundle.LegacyRules),
		Members:       len(bundle.Members),
		Trees:         len(bundle.Trees),
	}
	fields["schedules"] = result.Schedules
	fields["trees"] = result.Trees
	return result, nil
}

// writeBundle upserts in dependency order: brackets before the schedule
// amounts that reference them, schedules before their trees.
func writeBundle(ctx context.Context, r FeeRepos, b *importer.Bundle) error {
	for _, g := range b.CommuneGroups {
		if err := r.CommuneGroups.Upsert(ctx, g); err != nil {
			return fmt.Errorf("commune group %q: %w", g.Name, err)
		}
	}
	for _, ab := range b.AgeBrackets {
		if err := r.AgeBrackets.Upsert(ctx, ab); err != nil {
			return fmt.Errorf("age bracket %q: %w", ab.ID, err)
		}
	}
	for _, sc := range b.Schedules {
		if err := r.Schedules.Upsert(ctx, sc); err != nil {
			return fmt.Errorf("schedule %q: %w", sc.ID, err)
		}
	}
	for _, c := range b.IncomeConfigs {
		if err := r.IncomeConfigs.Upsert(ctx, c); err != nil {
			return fmt.Errorf("income config %q: %w", c.ID, err)
		}
	}
	for _, rule := range b.LegacyRules {
		if err := r.LegacyRules.Upsert(ctx, rule); err != nil {
			return fmt.Errorf("legacy rule %q: %w", rule.ID, err)
		}
	}
	for _, m := range b.Members {
		if err := r.Members.Upsert(ctx, m); err != nil {
			return fmt.Errorf("member %q: %w", m.ID, err)
		}
	}
	for _, t := range b.Trees {
		if err := importTree(ctx, r, t); err != nil {
			return fmt.Errorf("tree of schedule %q: %w", t.ScheduleID, err)
		}
	}
	return nil
}

// importTree creates the schedule's first tree or rewrites the current one.
// A locked current tree is refused; duplicate it first.
func importTree(ctx context.Context, r FeeRepos, t importer.TreeNodes) error {
	if _, err := r.Schedules.GetByID(ctx, t.ScheduleID); err != nil {
		return scheduleLookupError(t.ScheduleID, err)
	}
	now := time.Now().UTC()
	current, err := r.Trees.GetCurrent(ctx, t.ScheduleID)
	if errors.Is(err, repository.ErrNotFound) {
		latest, err := r.Trees.MaxVersion(ctx, t.ScheduleID)
		if err != nil {
			return err
		}
		return r.Trees.Create(ctx, &domain.DecisionTree{
			ID:          uuid.New().String(),
			ScheduleID:  t.ScheduleID,
			Version:     latest + 1,
			DisplayMode: t.DisplayMode,
			Nodes:       t.Nodes,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	if err != nil {
		return err
	}
	if current.Locked {
		return lockedError(current)
	}
	current.Nodes = t.Nodes
	current.DisplayMode = t.DisplayMode
	current.UpdatedAt = now
	return r.Trees.UpdateNodes(ctx, current)
}

func formatValidationErrors(errs []error) error {
	msg := fmt.Sprintf("import validation failed (%d errors):", len(errs))
	for _, e := range errs {
		msg += "\n  - " + e.Error()
	}
	return &domain.ValidationError{Message: msg}
}
