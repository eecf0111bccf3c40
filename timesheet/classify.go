package timesheet

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/warp/timesheet-engine/generic"
)

// =============================================================================
// ROW CLASSIFIER
// =============================================================================

var (
	hoursPattern   = regexp.MustCompile(`^[0-9]{1,2}(\.[0-9]+)?$`)
	holidayPattern = regexp.MustCompile(`[hfHF][0-9]{1,2}`)
)

type Kind int

const (
	KindEmpty Kind = iota
	KindHours
	KindLeave
	KindUnrecognized
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindHours:
		return "hours"
	case KindLeave:
		return "leave"
	default:
		return "unrecognized"
	}
}

// Classification is the verdict on one hours cell. Code is set for leave,
// HolidayID only for holiday leave whose explanation names one.
type Classification struct {
	Kind      Kind
	Hours     generic.Hours
	Code      string
	HolidayID *string
}

// Classifier decides whether an hours cell is worked time or leave, using a
// team's ordered leave-code rules.
type Classifier struct {
	rules    []generic.LeaveCodeRule
	standard generic.Hours
}

// NewClassifier keeps only rules flagged as leave, in configured order.
func NewClassifier(cfg generic.TeamLeaveConfig) *Classifier {
	c := &Classifier{standard: cfg.StandardHours}
	for _, r := range cfg.Rules {
		if r.IsLeave && strings.TrimSpace(r.Search) != "" {
			c.rules = append(c.rules, r)
		}
	}
	return c
}

// Classify inspects a trimmed hours cell. Numeric cells are hours. Other
// text is matched against the leave rules: the cell itself first, then the
// rest of the row (description, explanation). In the rest of the row a
// search only matches at the start of a word, so "ill" does not match
// "billing". The first rule that matches wins.
func (c *Classifier) Classify(cell, explanation string, rest ...string) Classification {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return Classification{Kind: KindEmpty}
	}

	if hoursPattern.MatchString(cell) {
		h, err := generic.ParseHours(cell)
		if err == nil {
			return Classification{Kind: KindHours, Hours: h}
		}
	}

	rule, ok := c.match(cell, strings.Contains)
	if !ok {
		rule, ok = c.match(strings.Join(rest, " ")+" "+explanation, containsWordPrefix)
	}
	if !ok {
		return Classification{Kind: KindUnrecognized}
	}

	out := Classification{Kind: KindLeave, Code: rule.Code, Hours: c.standard}
	if rule.Hours != nil {
		out.Hours = *rule.Hours
	}
	if rule.IsHoliday() {
		out.HolidayID = HolidayID(explanation)
	}
	return out
}

func (c *Classifier) match(text string, contains func(s, substr string) bool) (generic.LeaveCodeRule, bool) {
	haystack := strings.ToLower(text)
	for _, r := range c.rules {
		if contains(haystack, strings.ToLower(strings.TrimSpace(r.Search))) {
			return r, true
		}
	}
	return generic.LeaveCodeRule{}, false
}

// containsWordPrefix reports whether substr occurs in s where no letter or
// digit directly precedes it.
func containsWordPrefix(s, substr string) bool {
	for from := 0; from <= len(s); {
		i := strings.Index(s[from:], substr)
		if i < 0 {
			return false
		}
		at := from + i
		prev, _ := utf8.DecodeLastRuneInString(s[:at])
		if at == 0 || !(unicode.IsLetter(prev) || unicode.IsDigit(prev)) {
			return true
		}
		from = at + 1
	}
	return false
}

// HolidayID extracts a holiday identifier such as H3 or F12 from free text.
func HolidayID(text string) *string {
	m := holidayPattern.FindString(text)
	if m == "" {
		return nil
	}
	id := strings.ToUpper(m)
	return &id
}
