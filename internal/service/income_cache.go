package service

import (
	"context"
	"errors"
	"sync"

	"github.com/alexanderramin/ludo/internal/domain"
	"github.com/alexanderramin/ludo/internal/repository"
)

// IncomeConfigCache keeps the active income config between fee
// computations. Anything that writes income configs must call Invalidate.
// A missing active config is cached too, as nil.
type IncomeConfigCache struct {
	mu     sync.RWMutex
	loaded bool
	gen    uint64
	cfg    *domain.IncomeBracketConfig
}

func NewIncomeConfigCache() *IncomeConfigCache {
	return &IncomeConfigCache{}
}

// Get returns the cached config, loading it through repo on a miss. The
// repo is passed per call so a transaction-bound repo can be used.
func (c *IncomeConfigCache) Get(ctx context.Context, repo repository.IncomeConfigRepo) (*domain.IncomeBracketConfig, error) {
	c.mu.RLock()
	if c.loaded {
		cfg := c.cfg
		c.mu.RUnlock()
		return cfg, nil
	}
	gen := c.gen
	c.mu.RUnlock()

	cfg, err := repo.GetActive(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		cfg, err = nil, nil
	}
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// an Invalidate during the load wins
	if c.gen == gen {
		c.loaded = true
		c.cfg = cfg
	}
	return cfg, nil
}

func (c *IncomeConfigCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = false
	c.gen++
	c.cfg = nil
}
