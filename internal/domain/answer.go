package domain

// AnswerSource identifies which cascade stage produced an answer.
type AnswerSource string

const (
	SourceRule      AnswerSource = "rule"
	SourceAI        AnswerSource = "ai"
	SourceCommunity AnswerSource = "community"
	SourceDefault   AnswerSource = "default"
)

// Answer is the result of resolving one message. The rule fields are
// populated only when Source is SourceRule.
type Answer struct {
	Text     string       `json:"text"`
	Source   AnswerSource `json:"source"`
	RuleID   string       `json:"rule_id,omitempty"`
	RuleName string       `json:"rule_name,omitempty"`
	Priority int          `json:"priority,omitempty"`
	Category *string      `json:"category,omitempty"`
}
