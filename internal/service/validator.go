package service

import (
	"strings"
	"unicode/utf8"
)

// refusalMarkers flag degraded or placeholder answers: apology phrases,
// error mentions, unconfigured/simulated-mode notices.
var refusalMarkers = []string{"抱歉", "无法", "错误", "API", "未配置", "模拟", "ERROR", "sorry"}

const (
	minAnswerRunes    = 10
	markerExemptRunes = 100
)

// Validator is the heuristic acceptance gate for externally-generated
// answers. Short answers are rejected outright; answers under the exemption
// length are rejected if they contain any refusal marker. A rejection
// demotes an otherwise-successful AI call to a cascade failure.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) IsAcceptable(candidate string) bool {
	if candidate == "" {
		return false
	}
	n := utf8.RuneCountInString(candidate)
	if n < minAnswerRunes {
		return false
	}
	if n < markerExemptRunes {
		for _, marker := range refusalMarkers {
			if strings.Contains(candidate, marker) {
				return false
			}
		}
	}
	return true
}
