package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ruanqin/chatcore/internal/domain"
	"go.uber.org/zap"
)

var (
	// ErrNoAnswer signals a clean miss: the stage ran but has nothing to
	// say. Distinct from operational failures; both advance the cascade.
	ErrNoAnswer = errors.New("no answer produced")

	// ErrAnswerRejected marks an AI reply demoted by the quality gate.
	ErrAnswerRejected = errors.New("answer rejected by quality gate")

	ErrEmptyMessage   = errors.New("message is required")
	ErrMessageTooLong = errors.New("message exceeds maximum length")
)

// defaultReplyTemplate embeds the original question verbatim.
const defaultReplyTemplate = "抱歉，我暂时无法回答您的问题。\n\n您的问题：\"%s\"\n\n💡 建议：\n• 尝试换一种方式提问\n• 提供更多详细信息\n• 联系人工客服获取帮助"

// Responder is one cascade stage. Respond returns an answer, ErrNoAnswer on
// a clean miss, or any other error on failure.
type Responder interface {
	Source() domain.AnswerSource
	Respond(ctx context.Context, message string) (*domain.Answer, error)
}

// RuleResponder answers from the cached active rule set.
type RuleResponder struct {
	cache    *RuleCache
	matcher  *Matcher
	expander *Expander
}

func NewRuleResponder(cache *RuleCache, matcher *Matcher, expander *Expander) *RuleResponder {
	return &RuleResponder{cache: cache, matcher: matcher, expander: expander}
}

func (r *RuleResponder) Source() domain.AnswerSource { return domain.SourceRule }

func (r *RuleResponder) Respond(ctx context.Context, message string) (*domain.Answer, error) {
	rules := r.cache.Active(ctx, false)
	rule := r.matcher.FirstMatch(message, rules)
	if rule == nil {
		return nil, ErrNoAnswer
	}

	text := rule.ResponseContent
	if rule.ResponseType == domain.ResponseDynamic {
		text = r.expander.Expand(text)
	}

	return &domain.Answer{
		Text:     text,
		Source:   domain.SourceRule,
		RuleID:   rule.RuleID,
		RuleName: rule.RuleName,
		Priority: rule.Priority,
		Category: rule.Category,
	}, nil
}

// AIResponder calls the external AI capability and runs the reply through
// the quality gate.
type AIResponder struct {
	client    domain.AIClient
	validator *Validator
	timeout   time.Duration
}

func NewAIResponder(client domain.AIClient, validator *Validator, timeout time.Duration) *AIResponder {
	return &AIResponder{client: client, validator: validator, timeout: timeout}
}

func (r *AIResponder) Source() domain.AnswerSource { return domain.SourceAI }

func (r *AIResponder) Respond(ctx context.Context, message string) (*domain.Answer, error) {
	if r.client == nil {
		return nil, fmt.Errorf("ai capability not configured")
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	reply, err := r.client.Generate(ctx, message)
	if err != nil {
		return nil, err
	}
	if !r.validator.IsAcceptable(reply) {
		return nil, ErrAnswerRejected
	}
	return &domain.Answer{Text: reply, Source: domain.SourceAI}, nil
}

// CommunityResponder forwards the question to the community capability.
type CommunityResponder struct {
	client  domain.CommunityClient
	timeout time.Duration
}

func NewCommunityResponder(client domain.CommunityClient, timeout time.Duration) *CommunityResponder {
	return &CommunityResponder{client: client, timeout: timeout}
}

func (r *CommunityResponder) Source() domain.AnswerSource { return domain.SourceCommunity }

func (r *CommunityResponder) Respond(ctx context.Context, message string) (*domain.Answer, error) {
	if r.client == nil {
		return nil, fmt.Errorf("community capability not configured")
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	reply, err := r.client.Ask(ctx, message)
	if err != nil {
		return nil, err
	}
	return &domain.Answer{Text: reply, Source: domain.SourceCommunity}, nil
}

// Resolver runs the cascade: stages in strict order until one produces an
// accepted answer, then a fixed default. Stage failures are caught and
// logged locally and never propagate past Resolve. The resolver is
// stateless across calls.
type Resolver struct {
	stages        []Responder
	maxMessageLen int
	logger        *zap.Logger
}

func NewResolver(stages []Responder, maxMessageLen int, logger *zap.Logger) *Resolver {
	return &Resolver{
		stages:        stages,
		maxMessageLen: maxMessageLen,
		logger:        logger,
	}
}

// Resolve answers one message. Exactly one outcome is returned per call;
// the only errors are input rejections, raised before any stage runs.
func (r *Resolver) Resolve(ctx context.Context, message string) (*domain.Answer, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}
	if r.maxMessageLen > 0 && utf8.RuneCountInString(message) > r.maxMessageLen {
		return nil, ErrMessageTooLong
	}

	for _, stage := range r.stages {
		answer, err := stage.Respond(ctx, message)
		if err != nil {
			switch {
			case errors.Is(err, ErrNoAnswer):
				r.logger.Debug("stage produced no answer",
					zap.String("stage", string(stage.Source())))
			case errors.Is(err, ErrAnswerRejected):
				r.logger.Info("stage answer rejected by quality gate",
					zap.String("stage", string(stage.Source())))
			default:
				r.logger.Warn("stage failed, advancing cascade",
					zap.String("stage", string(stage.Source())), zap.Error(err))
			}
			continue
		}

		r.logger.Info("message resolved",
			zap.String("source", string(answer.Source)),
			zap.String("rule_id", answer.RuleID))
		return answer, nil
	}

	r.logger.Info("all stages failed, returning default answer")
	return &domain.Answer{
		Text:   fmt.Sprintf(defaultReplyTemplate, message),
		Source: domain.SourceDefault,
	}, nil
}
