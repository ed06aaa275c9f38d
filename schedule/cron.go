package schedule

import (
	"strings"
)

// Field bounds per man 5 crontab. Day-of-week admits 7 on input; it is
// folded to 0 (both mean Sunday) before the set is stored.
const (
	minuteMin, minuteMax = 0, 59
	hourMin, hourMax     = 0, 23
	domMin, domMax       = 1, 31
	monthMin, monthMax   = 1, 12
	dowMin, dowMax       = 0, 7
)

// aliases are the @-named shortcuts, each expanded to its five-field
// equivalent before field parsing.
var aliases = map[string]string{
	"@yearly":   "0 0 1 1 *",
	"@annually": "0 0 1 1 *",
	"@monthly":  "0 0 1 * *",
	"@weekly":   "0 0 * * 0",
	"@daily":    "0 0 * * *",
	"@midnight": "0 0 * * *",
	"@hourly":   "0 * * * *",
}

// ParseCrontab parses a five-field crontab expression or a named alias.
// A failure means "not a crontab schedule"; callers are expected to
// fall back to ParseTimestamps rather than treat it as fatal.
func ParseCrontab(s string) (Schedule, error) {
	tokens := strings.Fields(s)

	if len(tokens) == 1 {
		expanded, ok := aliases[tokens[0]]
		if !ok {
			return Schedule{}, &GrammarError{Field: s, Entry: tokens[0]}
		}
		tokens = strings.Fields(expanded)
	}
	if len(tokens) != 5 {
		return Schedule{}, &GrammarError{Field: s, Entry: s}
	}

	minute, err := ParseField(tokens[0], minuteMin, minuteMax)
	if err != nil {
		return Schedule{}, err
	}
	hour, err := ParseField(tokens[1], hourMin, hourMax)
	if err != nil {
		return Schedule{}, err
	}
	dom, err := ParseField(tokens[2], domMin, domMax)
	if err != nil {
		return Schedule{}, err
	}
	month, err := ParseField(tokens[3], monthMin, monthMax)
	if err != nil {
		return Schedule{}, err
	}
	dow, err := ParseField(tokens[4], dowMin, dowMax)
	if err != nil {
		return Schedule{}, err
	}
	dow = foldSunday(dow)

	// Disjunction rule from man 5 crontab: a wildcard on one of dom/dow
	// while the other is restricted means "match by the restricted field
	// alone", so the wildcard side is cleared. When both are restricted
	// a match on either fires the job; that quirk is deliberate and kept.
	domWild := tokens[2] == "*"
	dowWild := tokens[4] == "*"
	switch {
	case dowWild && !domWild:
		dow = nil
	case domWild && !dowWild:
		dom = nil
	}

	return Schedule{
		kind:   KindCrontab,
		minute: minute,
		hour:   hour,
		dom:    dom,
		month:  month,
		dow:    dow,
		source: s,
	}, nil
}

// foldSunday maps 7 to 0 and re-deduplicates. Input is sorted, so only
// a trailing 7 can occur.
func foldSunday(dow []int) []int {
	n := len(dow)
	if n == 0 || dow[n-1] != 7 {
		return dow
	}
	dow = dow[:n-1]
	if len(dow) == 0 || dow[0] != 0 {
		dow = append([]int{0}, dow...)
	}
	return dow
}
