package service

import (
	"strconv"
	"strings"
	"time"
)

var weekdayNames = [...]string{"星期日", "星期一", "星期二", "星期三", "星期四", "星期五", "星期六"}

// Expander substitutes time-derived placeholders in dynamic response
// templates. Values are evaluated at call time, not at rule-creation time.
// Unrecognized tokens pass through unchanged.
type Expander struct {
	now func() time.Time
}

func NewExpander() *Expander {
	return &Expander{now: time.Now}
}

func (e *Expander) Expand(template string) string {
	now := e.now()
	replacer := strings.NewReplacer(
		"{time}", now.Format("15:04:05"),
		"{date}", now.Format("2006/1/2"),
		"{weekday}", weekdayNames[now.Weekday()],
		"{year}", strconv.Itoa(now.Year()),
		"{month}", strconv.Itoa(int(now.Month())),
		"{day}", strconv.Itoa(now.Day()),
		"{hour}", strconv.Itoa(now.Hour()),
		"{minute}", strconv.Itoa(now.Minute()),
	)
	return replacer.Replace(template)
}
