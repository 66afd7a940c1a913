package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// TriggerType selects the strategy used to match an incoming message
// against a rule.
type TriggerType string

const (
	TriggerKeyword TriggerType = "keyword"
	TriggerExact   TriggerType = "exact"
	TriggerRegex   TriggerType = "regex"
)

func ValidTriggerType(s string) bool {
	switch TriggerType(s) {
	case TriggerKeyword, TriggerExact, TriggerRegex:
		return true
	}
	return false
}

// ResponseType determines whether a matched response is returned verbatim
// or passed through placeholder expansion first.
type ResponseType string

const (
	ResponseText    ResponseType = "text"
	ResponseDynamic ResponseType = "dynamic"
)

func ValidResponseType(s string) bool {
	switch ResponseType(s) {
	case ResponseText, ResponseDynamic:
		return true
	}
	return false
}

// DefaultPriority is applied when a rule is created without one.
// Higher priority wins among multiple matching rules.
const DefaultPriority = 5

// Rule is the unit of knowledge the matcher evaluates. RuleID is the
// caller-assigned external identifier and upsert key; ID is the internal
// sequence number assigned by the store and used as the ordering tie-break.
type Rule struct {
	ID              int64        `json:"id"`
	RuleID          string       `json:"rule_id"`
	RuleName        string       `json:"rule_name"`
	TriggerType     TriggerType  `json:"trigger_type"`
	TriggerContent  string       `json:"trigger_content"`
	ResponseType    ResponseType `json:"response_type"`
	ResponseContent string       `json:"response_content"`
	Priority        int          `json:"priority"`
	Enabled         bool         `json:"enabled"`
	Category        *string      `json:"category,omitempty"`
	Tags            *string      `json:"tags,omitempty"`
	CreatedTime     time.Time    `json:"created_time"`
	UpdatedTime     time.Time    `json:"updated_time"`
}

// RulePatch enumerates the mutable fields of a rule for partial updates.
// A nil field is left untouched; unknown JSON keys are simply not decoded.
// Category and tags are the only nullable columns, so for them an explicit
// JSON null is distinguished from an absent key and clears the value.
type RulePatch struct {
	RuleName        *string       `json:"rule_name"`
	TriggerType     *TriggerType  `json:"trigger_type"`
	TriggerContent  *string       `json:"trigger_content"`
	ResponseType    *ResponseType `json:"response_type"`
	ResponseContent *string       `json:"response_content"`
	Priority        *int          `json:"priority"`
	Enabled         *bool         `json:"enabled"`
	Category        *string       `json:"category"`
	Tags            *string       `json:"tags"`

	ClearCategory bool `json:"-"`
	ClearTags     bool `json:"-"`
}

func (p *RulePatch) UnmarshalJSON(data []byte) error {
	type plain RulePatch
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = RulePatch(decoded)
	p.ClearCategory = isJSONNull(raw["category"])
	p.ClearTags = isJSONNull(raw["tags"])
	return nil
}

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Empty reports whether the patch carries no fields at all.
func (p RulePatch) Empty() bool {
	return p.RuleName == nil &&
		p.TriggerType == nil &&
		p.TriggerContent == nil &&
		p.ResponseType == nil &&
		p.ResponseContent == nil &&
		p.Priority == nil &&
		p.Enabled == nil &&
		p.Category == nil &&
		p.Tags == nil &&
		!p.ClearCategory &&
		!p.ClearTags
}

// RuleStats summarizes the stored rule set for the status endpoint.
type RuleStats struct {
	TotalRules    int     `json:"total_rules"`
	EnabledRules  int     `json:"enabled_rules"`
	DisabledRules int     `json:"disabled_rules"`
	Categories    int     `json:"categories"`
	AvgPriority   float64 `json:"avg_priority"`
	MaxPriority   int     `json:"max_priority"`
	MinPriority   int     `json:"min_priority"`
}
