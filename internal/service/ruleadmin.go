package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/ruanqin/chatcore/internal/domain"
	"go.uber.org/zap"
)

var (
	ErrRuleNameRequired        = errors.New("rule_name is required")
	ErrTriggerContentRequired  = errors.New("trigger_content is required")
	ErrResponseContentRequired = errors.New("response_content is required")
	ErrInvalidTriggerType      = errors.New("invalid trigger_type")
	ErrInvalidResponseType     = errors.New("invalid response_type")
)

// RuleAdminService owns rule mutations. Every successful mutation
// invalidates the cached active rule set, so the next read reloads.
type RuleAdminService struct {
	store   domain.RuleStore
	cache   *RuleCache
	timeout time.Duration
	logger  *zap.Logger
}

func NewRuleAdminService(store domain.RuleStore, cache *RuleCache, timeout time.Duration, logger *zap.Logger) *RuleAdminService {
	return &RuleAdminService{
		store:   store,
		cache:   cache,
		timeout: timeout,
		logger:  logger,
	}
}

// RuleInput carries the caller-supplied fields for Add and Import.
// Zero values mean "not supplied" and receive defaults; Enabled is a
// pointer so an absent value defaults to enabled while an explicit false
// stores a disabled rule.
type RuleInput struct {
	RuleID          string
	RuleName        string
	TriggerType     string
	TriggerContent  string
	ResponseType    string
	ResponseContent string
	Priority        int
	Enabled         *bool
	Category        *string
	Tags            *string
}

func (in RuleInput) rule() domain.Rule {
	return domain.Rule{
		RuleID:          in.RuleID,
		RuleName:        in.RuleName,
		TriggerType:     domain.TriggerType(in.TriggerType),
		TriggerContent:  in.TriggerContent,
		ResponseType:    domain.ResponseType(in.ResponseType),
		ResponseContent: in.ResponseContent,
		Priority:        in.Priority,
		Enabled:         in.Enabled == nil || *in.Enabled,
		Category:        in.Category,
		Tags:            in.Tags,
	}
}

// Add persists a rule via idempotent upsert, applying field defaults and a
// generated rule_id when the caller did not supply one. Adding an existing
// rule_id overwrites its mutable fields and preserves created_time.
func (s *RuleAdminService) Add(ctx context.Context, in RuleInput) (*domain.Rule, error) {
	if in.RuleName == "" {
		return nil, ErrRuleNameRequired
	}
	if in.TriggerContent == "" {
		return nil, ErrTriggerContentRequired
	}
	if in.ResponseContent == "" {
		return nil, ErrResponseContentRequired
	}

	r := in.rule()
	rule := &r
	applyDefaults(rule)

	if !domain.ValidTriggerType(string(rule.TriggerType)) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTriggerType, rule.TriggerType)
	}
	if !domain.ValidResponseType(string(rule.ResponseType)) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidResponseType, rule.ResponseType)
	}

	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	if err := s.store.Upsert(storeCtx, rule); err != nil {
		return nil, err
	}
	s.cache.Invalidate()

	s.logger.Info("rule stored",
		zap.String("rule_id", rule.RuleID), zap.String("rule_name", rule.RuleName))
	return rule, nil
}

// Update applies the whitelisted patch fields to the addressed rule.
// An empty patch is a no-op returning (nil, nil).
func (s *RuleAdminService) Update(ctx context.Context, ruleID string, patch domain.RulePatch) (*domain.Rule, error) {
	if patch.Empty() {
		return nil, nil
	}
	if patch.TriggerType != nil && !domain.ValidTriggerType(string(*patch.TriggerType)) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTriggerType, *patch.TriggerType)
	}
	if patch.ResponseType != nil && !domain.ValidResponseType(string(*patch.ResponseType)) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidResponseType, *patch.ResponseType)
	}

	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	rule, err := s.store.UpdateFields(storeCtx, ruleID, patch)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate()

	s.logger.Info("rule updated", zap.String("rule_id", ruleID))
	return rule, nil
}

// Delete removes the rule addressed by rule_id, reporting whether a row was
// actually removed.
func (s *RuleAdminService) Delete(ctx context.Context, ruleID string) (bool, error) {
	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	deleted, err := s.store.Delete(storeCtx, ruleID)
	if err != nil {
		return false, err
	}
	s.cache.Invalidate()

	if deleted {
		s.logger.Info("rule deleted", zap.String("rule_id", ruleID))
	}
	return deleted, nil
}

// Import bulk-upserts already-parsed rule rows keyed on rule_id, never
// duplicating. Per-row failures are counted and logged, not fatal.
// The cache is invalidated once at the end.
func (s *RuleAdminService) Import(ctx context.Context, rows []RuleInput) (imported, failed int) {
	for _, in := range rows {
		if in.RuleName == "" || in.TriggerContent == "" || in.ResponseContent == "" {
			failed++
			s.logger.Warn("skipping import row with missing required fields",
				zap.String("rule_id", in.RuleID))
			continue
		}
		r := in.rule()
		rule := &r
		applyDefaults(rule)

		storeCtx, cancel := s.storeCtx(ctx)
		err := s.store.Upsert(storeCtx, rule)
		cancel()
		if err != nil {
			failed++
			s.logger.Warn("import row failed",
				zap.String("rule_id", rule.RuleID), zap.Error(err))
			continue
		}
		imported++
	}

	s.cache.Invalidate()
	s.logger.Info("rule import finished",
		zap.Int("imported", imported), zap.Int("failed", failed))
	return imported, failed
}

func (s *RuleAdminService) List(ctx context.Context) ([]domain.Rule, error) {
	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.store.ListAll(storeCtx)
}

func (s *RuleAdminService) Stats(ctx context.Context) (*domain.RuleStats, error) {
	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.store.Stats(storeCtx)
}

func (s *RuleAdminService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func applyDefaults(rule *domain.Rule) {
	if rule.RuleID == "" {
		rule.RuleID = generateRuleID()
	}
	if rule.TriggerType == "" {
		rule.TriggerType = domain.TriggerKeyword
	}
	if rule.ResponseType == "" {
		rule.ResponseType = domain.ResponseText
	}
	if rule.Priority <= 0 {
		rule.Priority = domain.DefaultPriority
	}
}

// generateRuleID builds a caller-facing identifier from the current time
// plus a random suffix, so two adds in the same millisecond cannot collide.
func generateRuleID() string {
	var b [2]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("R%d-%s", time.Now().UnixMilli(), hex.EncodeToString(b[:]))
}
