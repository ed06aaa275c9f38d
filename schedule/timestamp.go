package schedule

import (
	"slices"
	"strings"
	"time"
)

// Accepted timestamp layouts, tried in order. All must carry a zone so
// the instant is unambiguous before UTC normalization.
var timestampLayouts = []string{
	"2006-01-02 15:04 -07",
	"2006-01-02 15:04 -07:00",
	"2006-01-02 15:04:05 -07",
	"2006-01-02 15:04:05 -07:00",
	"2006-01-02 15:04-07",
	"2006-01-02 15:04-07:00",
	"2006-01-02 15:04:05-07",
	"2006-01-02 15:04:05-07:00",
	time.RFC3339,
}

// ParseTimestamps parses a schedule string as one absolute timestamp or
// a brace-delimited list of them, e.g.
//
//	{"2042-12-05 13:37 +00","2014-01-01 12:31 +00"}
//
// Every element is normalized to UTC, truncated to the minute, and
// rendered as CanonicalTimeLayout. Any element that fails to parse
// makes the whole schedule invalid; there is no partial result.
func ParseTimestamps(s string) (Schedule, error) {
	literals, err := splitTimestampList(s)
	if err != nil {
		return Schedule{}, err
	}

	times := make([]string, 0, len(literals))
	for _, lit := range literals {
		t, ok := parseTimestamp(lit)
		if !ok {
			return Schedule{}, &GrammarError{Field: s, Entry: lit}
		}
		times = append(times, t.UTC().Truncate(time.Minute).Format(CanonicalTimeLayout))
	}

	slices.Sort(times)
	times = slices.Compact(times)

	return Schedule{kind: KindTimestamps, times: times, source: s}, nil
}

// FromTimes builds a timestamp schedule directly from instants. The
// synthesized source is the brace-delimited canonical list, so the
// result re-parses to itself.
func FromTimes(instants ...time.Time) Schedule {
	times := make([]string, 0, len(instants))
	for _, t := range instants {
		times = append(times, t.UTC().Truncate(time.Minute).Format(CanonicalTimeLayout))
	}
	slices.Sort(times)
	times = slices.Compact(times)

	var b strings.Builder
	b.WriteByte('{')
	for i, t := range times {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(t)
		b.WriteByte('"')
	}
	b.WriteByte('}')

	return Schedule{kind: KindTimestamps, times: times, source: b.String()}
}

func parseTimestamp(lit string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, lit); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// splitTimestampList returns the timestamp literals of a schedule
// string: either the whole string, or for a brace-delimited list the
// comma-separated elements with any surrounding double quotes removed.
func splitTimestampList(s string) ([]string, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, &GrammarError{Field: s, Entry: s}
	}

	if !strings.HasPrefix(trimmed, "{") {
		return []string{trimmed}, nil
	}
	if !strings.HasSuffix(trimmed, "}") {
		return nil, &GrammarError{Field: s, Entry: trimmed}
	}

	inner := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
	if inner == "" {
		return nil, &GrammarError{Field: s, Entry: trimmed}
	}

	parts := strings.Split(inner, ",")
	literals := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if strings.HasPrefix(p, `"`) && strings.HasSuffix(p, `"`) && len(p) >= 2 {
			p = p[1 : len(p)-1]
		}
		if p == "" {
			return nil, &GrammarError{Field: s, Entry: trimmed}
		}
		literals = append(literals, p)
	}
	return literals, nil
}
