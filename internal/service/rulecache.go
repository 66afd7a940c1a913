package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ruanqin/chatcore/internal/domain"
	"go.uber.org/zap"
)

// ruleSnapshot is an immutable view of the active rule set. It is replaced
// wholesale on reload so readers never observe a partially-updated cache.
type ruleSnapshot struct {
	rules    []domain.Rule
	loadedAt time.Time
}

// RuleCache serves the active rule set from a process-local snapshot with a
// fixed freshness window. On reload failure the stale snapshot is served as
// a degraded fallback; if no snapshot was ever populated, an empty set is
// served. Active never returns an error.
type RuleCache struct {
	store   domain.RuleStore
	ttl     time.Duration
	timeout time.Duration
	logger  *zap.Logger

	mu   sync.Mutex // serializes reloads
	snap atomic.Pointer[ruleSnapshot]
}

func NewRuleCache(store domain.RuleStore, ttl, timeout time.Duration, logger *zap.Logger) *RuleCache {
	return &RuleCache{
		store:   store,
		ttl:     ttl,
		timeout: timeout,
		logger:  logger,
	}
}

// Active returns the enabled rules in matcher order. The cached snapshot is
// served while fresh unless forceRefresh is set.
func (c *RuleCache) Active(ctx context.Context, forceRefresh bool) []domain.Rule {
	if !forceRefresh {
		if s := c.snap.Load(); s != nil && time.Since(s.loadedAt) < c.ttl {
			return s.rules
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another reader may have reloaded while we waited for the lock.
	if !forceRefresh {
		if s := c.snap.Load(); s != nil && time.Since(s.loadedAt) < c.ttl {
			return s.rules
		}
	}

	loadCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	rules, err := c.store.ListEnabled(loadCtx)
	if err != nil {
		if s := c.snap.Load(); s != nil {
			c.logger.Warn("rule reload failed, serving stale cache",
				zap.Error(err), zap.Int("cached_rules", len(s.rules)))
			return s.rules
		}
		c.logger.Error("rule reload failed with no cache to fall back on", zap.Error(err))
		return nil
	}

	c.snap.Store(&ruleSnapshot{rules: rules, loadedAt: time.Now()})
	c.logger.Info("loaded enabled rules", zap.Int("count", len(rules)))
	return rules
}

// Invalidate clears the cache unconditionally so the next read reloads
// immediately. Called after every rule mutation.
func (c *RuleCache) Invalidate() {
	c.snap.Store(nil)
}
