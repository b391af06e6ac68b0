package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache holds the engine module for the lifetime of the process.
//
// The first successful Load is kept and returned to every later caller.
// Concurrent callers share a single in-flight load. A failed load is not
// cached, so the next Get retries. A cached module is never released.
type Cache struct {
	loader Loader
	logger *slog.Logger

	group singleflight.Group

	mu     sync.RWMutex
	module Module
	loads  int
}

func NewCache(loader Loader, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{loader: loader, logger: logger}
}

func (c *Cache) cached() Module {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.module
}

// Get returns the loaded module, loading it on first use.
func (c *Cache) Get(ctx context.Context) (Module, error) {
	if m := c.cached(); m != nil {
		return m, nil
	}

	ch := c.group.DoChan("module", func() (interface{}, error) {
		if m := c.cached(); m != nil {
			return m, nil
		}

		c.mu.Lock()
		c.loads++
		c.mu.Unlock()

		c.logger.Info("loading engine module")
		// Detached from the first caller so a canceled caller does not fail
		// the load for the others waiting on it.
		m, err := c.loader.Load(context.WithoutCancel(ctx))
		if err != nil {
			c.logger.Error("engine module load failed", "error", err)
			return nil, fmt.Errorf("%w: %w", ErrModuleLoad, err)
		}
		if m == nil {
			return nil, ErrNilModule
		}

		c.mu.Lock()
		c.module = m
		c.mu.Unlock()
		return m, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Module), nil
	}
}

// Loads reports how many underlying loads have been started.
func (c *Cache) Loads() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loads
}
