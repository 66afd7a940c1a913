package service

import (
	"errors"
	"testing"

	"github.com/ruanqin/chatcore/internal/domain"
	"go.uber.org/zap"
)

func TestMatcher_Keyword(t *testing.T) {
	m := NewMatcher(zap.NewNop())
	rule := domain.Rule{TriggerType: domain.TriggerKeyword, TriggerContent: "hello,hi"}

	cases := []struct {
		message string
		want    bool
	}{
		{"Say HI there", true},
		{"  hello world ", true},
		{"HELLO", true},
		{"goodbye", false},
		{"h i", false},
	}
	for _, tc := range cases {
		got, err := m.Match(tc.message, rule)
		if err != nil {
			t.Fatalf("Match(%q): unexpected error %v", tc.message, err)
		}
		if got != tc.want {
			t.Errorf("Match(%q) = %v, want %v", tc.message, got, tc.want)
		}
	}
}

func TestMatcher_Exact(t *testing.T) {
	m := NewMatcher(zap.NewNop())
	rule := domain.Rule{TriggerType: domain.TriggerExact, TriggerContent: "help"}

	cases := []struct {
		message string
		want    bool
	}{
		{"help", true},
		{"  HELP  ", true},
		{"help me", false},
		{"", false},
	}
	for _, tc := range cases {
		got, err := m.Match(tc.message, rule)
		if err != nil {
			t.Fatalf("Match(%q): unexpected error %v", tc.message, err)
		}
		if got != tc.want {
			t.Errorf("Match(%q) = %v, want %v", tc.message, got, tc.want)
		}
	}
}

func TestMatcher_Regex(t *testing.T) {
	m := NewMatcher(zap.NewNop())
	rule := domain.Rule{TriggerType: domain.TriggerRegex, TriggerContent: `admis+ion`}

	got, err := m.Match("Questions about ADMISSION dates", rule)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got {
		t.Fatal("expected case-insensitive regex match")
	}

	got, err = m.Match("nothing relevant", rule)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got {
		t.Fatal("expected no match")
	}
}

func TestMatcher_InvalidRegexIsNonMatch(t *testing.T) {
	m := NewMatcher(zap.NewNop())
	rule := domain.Rule{RuleID: "R1", TriggerType: domain.TriggerRegex, TriggerContent: `[unclosed`}

	got, err := m.Match("anything", rule)
	if err == nil {
		t.Fatal("expected error for malformed pattern")
	}
	if got {
		t.Fatal("malformed pattern must not match")
	}

	// FirstMatch skips the broken rule and keeps going.
	rules := []domain.Rule{
		rule,
		{RuleID: "R2", TriggerType: domain.TriggerKeyword, TriggerContent: "anything"},
	}
	matched := m.FirstMatch("anything", rules)
	if matched == nil || matched.RuleID != "R2" {
		t.Fatalf("expected R2 after skipping malformed rule, got %v", matched)
	}
}

func TestMatcher_UnknownTriggerTypeSkipped(t *testing.T) {
	m := NewMatcher(zap.NewNop())
	rule := domain.Rule{RuleID: "R1", TriggerType: "fuzzy", TriggerContent: "hello"}

	_, err := m.Match("hello", rule)
	if !errors.Is(err, ErrUnknownTriggerType) {
		t.Fatalf("expected ErrUnknownTriggerType, got %v", err)
	}

	if got := m.FirstMatch("hello", []domain.Rule{rule}); got != nil {
		t.Fatalf("expected no match, got %v", got)
	}
}

func TestMatcher_FirstMatchWins(t *testing.T) {
	m := NewMatcher(zap.NewNop())

	// Rules arrive already ordered by priority DESC, id ASC; the first
	// hit in that order is the answer even if a later rule also matches.
	rules := []domain.Rule{
		{RuleID: "R-high", ID: 2, Priority: 9, TriggerType: domain.TriggerKeyword, TriggerContent: "price"},
		{RuleID: "R-low", ID: 1, Priority: 5, TriggerType: domain.TriggerKeyword, TriggerContent: "price,cost"},
	}

	matched := m.FirstMatch("what is the price?", rules)
	if matched == nil || matched.RuleID != "R-high" {
		t.Fatalf("expected R-high, got %v", matched)
	}
}
