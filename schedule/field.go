package schedule

import (
	"slices"
	"strconv"
	"strings"
)

// ParseField parses one comma-separated cron field into a sorted set of
// distinct integers within [min, max]. Each entry follows
// ("*"|N|N-N)["/"S]. A bare start with a step runs to the field's own
// maximum, mirroring man 5 crontab.
func ParseField(field string, min, max int) ([]int, error) {
	seen := make(map[int]struct{})

	for _, entry := range strings.Split(field, ",") {
		start, end, step, err := parseEntry(field, entry, min, max)
		if err != nil {
			return nil, err
		}
		for v := start; v <= end; v += step {
			seen[v] = struct{}{}
		}
	}

	if len(seen) == 0 {
		return nil, &GrammarError{Field: field, Entry: field}
	}

	values := make([]int, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	slices.Sort(values)
	return values, nil
}

func parseEntry(field, entry string, min, max int) (start, end, step int, err error) {
	step = 1

	base := entry
	if i := strings.IndexByte(entry, '/'); i >= 0 {
		base = entry[:i]
		step, err = parseNumber(entry[i+1:])
		if err != nil || step < 1 {
			return 0, 0, 0, &GrammarError{Field: field, Entry: entry}
		}
	}

	switch {
	case base == "*":
		start, end = min, max
	case strings.ContainsRune(base, '-'):
		lo, hi, ok := strings.Cut(base, "-")
		if !ok {
			return 0, 0, 0, &GrammarError{Field: field, Entry: entry}
		}
		start, err = parseNumber(lo)
		if err != nil {
			return 0, 0, 0, &GrammarError{Field: field, Entry: entry}
		}
		end, err = parseNumber(hi)
		if err != nil {
			return 0, 0, 0, &GrammarError{Field: field, Entry: entry}
		}
	default:
		start, err = parseNumber(base)
		if err != nil {
			return 0, 0, 0, &GrammarError{Field: field, Entry: entry}
		}
		end = start
		if strings.ContainsRune(entry, '/') {
			// "N/S" continues to the field maximum, not to N.
			end = max
		}
	}

	if end < start || start < min || end > max {
		return 0, 0, 0, &RangeError{Field: field, Start: start, End: end, Min: min, Max: max}
	}

	return start, end, step, nil
}

// parseNumber accepts plain decimal digits only; signs, spaces and other
// strconv.Atoi liberties are grammar violations here.
func parseNumber(s string) (int, error) {
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.Atoi(s)
}
