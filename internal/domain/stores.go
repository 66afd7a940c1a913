package domain

import "context"

// RuleStore is the durable rule persistence capability. ListEnabled returns
// the active set ordered by priority DESC, id ASC, which is the order the
// matcher consumes it in. Upsert is keyed on RuleID and never duplicates rows.
type RuleStore interface {
	ListEnabled(ctx context.Context) ([]Rule, error)
	ListAll(ctx context.Context) ([]Rule, error)
	Upsert(ctx context.Context, r *Rule) error
	UpdateFields(ctx context.Context, ruleID string, patch RulePatch) (*Rule, error)
	Delete(ctx context.Context, ruleID string) (bool, error)
	Stats(ctx context.Context) (*RuleStats, error)
}

// AIClient is the external AI answer capability. A failed or malformed call
// must be reported as an error, never as an empty string treated as success.
type AIClient interface {
	Generate(ctx context.Context, message string) (string, error)
}

// CommunityClient is the external community fallback capability.
type CommunityClient interface {
	Ask(ctx context.Context, question string) (string, error)
}
