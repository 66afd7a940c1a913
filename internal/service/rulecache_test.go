package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ruanqin/chatcore/internal/domain"
	"github.com/ruanqin/chatcore/internal/store"
	"go.uber.org/zap"
)

// stubRuleStore is an in-memory RuleStore used across the service tests.
type stubRuleStore struct {
	mu        sync.Mutex
	rules     map[string]*domain.Rule
	nextID    int64
	listErr   error
	upsertErr error
	listCalls int
}

func newStubRuleStore() *stubRuleStore {
	return &stubRuleStore{rules: make(map[string]*domain.Rule), nextID: 1}
}

func (s *stubRuleStore) snapshotOrdered(enabledOnly bool) []domain.Rule {
	var out []domain.Rule
	for _, r := range s.rules {
		if enabledOnly && !r.Enabled {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *stubRuleStore) ListEnabled(ctx context.Context) ([]domain.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.snapshotOrdered(true), nil
}

func (s *stubRuleStore) ListAll(ctx context.Context) ([]domain.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.snapshotOrdered(false), nil
}

func (s *stubRuleStore) Upsert(ctx context.Context, r *domain.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	now := time.Now()
	if existing, ok := s.rules[r.RuleID]; ok {
		r.ID = existing.ID
		r.CreatedTime = existing.CreatedTime
		r.UpdatedTime = now
	} else {
		r.ID = s.nextID
		s.nextID++
		r.CreatedTime = now
		r.UpdatedTime = now
	}
	stored := *r
	s.rules[r.RuleID] = &stored
	return nil
}

func (s *stubRuleStore) UpdateFields(ctx context.Context, ruleID string, patch domain.RulePatch) (*domain.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rules[ruleID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if patch.RuleName != nil {
		r.RuleName = *patch.RuleName
	}
	if patch.TriggerType != nil {
		r.TriggerType = *patch.TriggerType
	}
	if patch.TriggerContent != nil {
		r.TriggerContent = *patch.TriggerContent
	}
	if patch.ResponseType != nil {
		r.ResponseType = *patch.ResponseType
	}
	if patch.ResponseContent != nil {
		r.ResponseContent = *patch.ResponseContent
	}
	if patch.Priority != nil {
		r.Priority = *patch.Priority
	}
	if patch.Enabled != nil {
		r.Enabled = *patch.Enabled
	}
	if patch.Category != nil {
		r.Category = patch.Category
	} else if patch.ClearCategory {
		r.Category = nil
	}
	if patch.Tags != nil {
		r.Tags = patch.Tags
	} else if patch.ClearTags {
		r.Tags = nil
	}
	r.UpdatedTime = time.Now()
	out := *r
	return &out, nil
}

func (s *stubRuleStore) Delete(ctx context.Context, ruleID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[ruleID]; !ok {
		return false, nil
	}
	delete(s.rules, ruleID)
	return true, nil
}

func (s *stubRuleStore) Stats(ctx context.Context) (*domain.RuleStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := &domain.RuleStats{TotalRules: len(s.rules)}
	for _, r := range s.rules {
		if r.Enabled {
			st.EnabledRules++
		} else {
			st.DisabledRules++
		}
	}
	return st, nil
}

func (s *stubRuleStore) seed(t *testing.T, rules ...domain.Rule) {
	t.Helper()
	for i := range rules {
		if err := s.Upsert(context.Background(), &rules[i]); err != nil {
			t.Fatalf("seed rule %s: %v", rules[i].RuleID, err)
		}
	}
}

func keywordRule(ruleID, keywords, response string, priority int) domain.Rule {
	return domain.Rule{
		RuleID:          ruleID,
		RuleName:        "rule " + ruleID,
		TriggerType:     domain.TriggerKeyword,
		TriggerContent:  keywords,
		ResponseType:    domain.ResponseText,
		ResponseContent: response,
		Priority:        priority,
		Enabled:         true,
	}
}

func TestRuleCache_ServesFreshSnapshot(t *testing.T) {
	st := newStubRuleStore()
	st.seed(t, keywordRule("R1", "hello", "hi there!", 5))

	cache := NewRuleCache(st, 5*time.Minute, 0, zap.NewNop())
	ctx := context.Background()

	first := cache.Active(ctx, false)
	second := cache.Active(ctx, false)

	if st.listCalls != 1 {
		t.Fatalf("expected 1 store load, got %d", st.listCalls)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected 1 rule from both reads, got %d and %d", len(first), len(second))
	}
	if first[0].RuleID != second[0].RuleID {
		t.Fatal("expected identical snapshots within the freshness window")
	}
}

func TestRuleCache_ForceRefreshReloads(t *testing.T) {
	st := newStubRuleStore()
	st.seed(t, keywordRule("R1", "hello", "hi there!", 5))

	cache := NewRuleCache(st, 5*time.Minute, 0, zap.NewNop())
	ctx := context.Background()

	cache.Active(ctx, false)
	cache.Active(ctx, true)

	if st.listCalls != 2 {
		t.Fatalf("expected 2 store loads, got %d", st.listCalls)
	}
}

func TestRuleCache_TTLExpiryReloads(t *testing.T) {
	st := newStubRuleStore()
	st.seed(t, keywordRule("R1", "hello", "hi there!", 5))

	cache := NewRuleCache(st, 10*time.Millisecond, 0, zap.NewNop())
	ctx := context.Background()

	cache.Active(ctx, false)
	time.Sleep(20 * time.Millisecond)
	cache.Active(ctx, false)

	if st.listCalls != 2 {
		t.Fatalf("expected reload after TTL expiry, got %d loads", st.listCalls)
	}
}

func TestRuleCache_ServesStaleOnReloadFailure(t *testing.T) {
	st := newStubRuleStore()
	st.seed(t, keywordRule("R1", "hello", "hi there!", 5))

	cache := NewRuleCache(st, 5*time.Minute, 0, zap.NewNop())
	ctx := context.Background()

	cache.Active(ctx, false)

	st.mu.Lock()
	st.listErr = context.DeadlineExceeded
	st.mu.Unlock()

	rules := cache.Active(ctx, true)
	if len(rules) != 1 || rules[0].RuleID != "R1" {
		t.Fatalf("expected stale cached rule set, got %v", rules)
	}
}

func TestRuleCache_EmptyWhenNoCacheAndStoreDown(t *testing.T) {
	st := newStubRuleStore()
	st.listErr = context.DeadlineExceeded

	cache := NewRuleCache(st, 5*time.Minute, 0, zap.NewNop())

	rules := cache.Active(context.Background(), false)
	if len(rules) != 0 {
		t.Fatalf("expected empty set, got %d rules", len(rules))
	}
}

func TestRuleCache_InvalidateForcesReload(t *testing.T) {
	st := newStubRuleStore()
	st.seed(t, keywordRule("R1", "hello", "hi there!", 5))

	cache := NewRuleCache(st, 5*time.Minute, 0, zap.NewNop())
	ctx := context.Background()

	cache.Active(ctx, false)

	st.seed(t, keywordRule("R2", "bye", "see you!", 5))
	cache.Invalidate()

	rules := cache.Active(ctx, false)
	if len(rules) != 2 {
		t.Fatalf("expected reload to pick up the new rule, got %d rules", len(rules))
	}
	if st.listCalls != 2 {
		t.Fatalf("expected 2 store loads, got %d", st.listCalls)
	}
}

// Run with -race. Readers must only ever observe complete snapshots,
// regardless of concurrent invalidation and TTL-driven reloads.
func TestRuleCache_ConcurrentReadsDuringInvalidate(t *testing.T) {
	st := newStubRuleStore()
	st.seed(t,
		keywordRule("R1", "hello", "hi there!", 9),
		keywordRule("R2", "bye", "see you!", 5),
		keywordRule("R3", "price", "see the pricing page", 3),
	)

	cache := NewRuleCache(st, time.Millisecond, 0, zap.NewNop())
	ctx := context.Background()

	const readers = 8
	const iterations = 200

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < iterations; i++ {
			cache.Invalidate()
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				rules := cache.Active(ctx, false)
				// The snapshot is replaced wholesale and the store
				// never fails here, so every read must see the full
				// ordered set, never a partial one.
				if len(rules) != 3 {
					t.Errorf("observed partial snapshot of %d rules", len(rules))
					return
				}
				for _, r := range rules {
					if r.RuleID == "" || r.ResponseContent == "" {
						t.Errorf("observed incomplete rule %+v", r)
						return
					}
				}
				if rules[0].RuleID != "R1" {
					t.Errorf("expected priority order, got %s first", rules[0].RuleID)
					return
				}
			}
		}()
	}

	wg.Wait()
	<-done
}
