package service

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ruanqin/chatcore/internal/domain"
	"go.uber.org/zap"
)

var ErrUnknownTriggerType = errors.New("unknown trigger type")

// Matcher evaluates messages against rule triggers. It holds no state
// beyond a logger; evaluation itself is pure.
type Matcher struct {
	logger *zap.Logger
}

func NewMatcher(logger *zap.Logger) *Matcher {
	return &Matcher{logger: logger}
}

// Match reports whether the message satisfies the rule's trigger.
// A malformed regex or an unrecognized trigger type returns an error;
// callers treat both as a non-match.
func (m *Matcher) Match(message string, rule domain.Rule) (bool, error) {
	switch rule.TriggerType {
	case domain.TriggerKeyword:
		return matchKeywords(message, rule.TriggerContent), nil
	case domain.TriggerExact:
		return matchExact(message, rule.TriggerContent), nil
	case domain.TriggerRegex:
		re, err := regexp.Compile("(?i)" + rule.TriggerContent)
		if err != nil {
			return false, fmt.Errorf("invalid trigger pattern: %w", err)
		}
		return re.MatchString(message), nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownTriggerType, rule.TriggerType)
	}
}

// FirstMatch returns the first rule in the given order that matches the
// message, or nil. The order is expected to be priority DESC, id ASC, so
// first-match-wins makes priority the sole ranking mechanism. Evaluation
// errors are logged and skipped.
func (m *Matcher) FirstMatch(message string, rules []domain.Rule) *domain.Rule {
	for i := range rules {
		matched, err := m.Match(message, rules[i])
		if err != nil {
			m.logger.Warn("trigger evaluation failed, skipping rule",
				zap.String("rule_id", rules[i].RuleID), zap.Error(err))
			continue
		}
		if matched {
			return &rules[i]
		}
	}
	return nil
}

// matchKeywords matches if any comma-separated token of triggerContent is a
// substring of the normalized message.
func matchKeywords(message, triggerContent string) bool {
	normalized := strings.ToLower(strings.TrimSpace(message))
	for _, keyword := range strings.Split(triggerContent, ",") {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword != "" && strings.Contains(normalized, keyword) {
			return true
		}
	}
	return false
}

func matchExact(message, triggerContent string) bool {
	return strings.EqualFold(strings.TrimSpace(message), strings.TrimSpace(triggerContent))
}
