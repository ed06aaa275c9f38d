// Package schedule parses crontab-style and timestamp-list schedule
// strings into a canonical matchable form and decides whether a
// schedule fires at a given instant. Parsing and matching are pure:
// the same source string always yields the same Schedule, and the same
// (Schedule, instant) pair always yields the same answer.
package schedule

import (
	"slices"
	"time"
)

// CanonicalTimeLayout is the stored form of a timestamp schedule
// element: minute-truncated UTC, offset always +00.
const CanonicalTimeLayout = "2006-01-02 15:04+00"

// Kind discriminates the two schedule variants.
type Kind int

const (
	KindCrontab Kind = iota
	KindTimestamps
)

// Schedule is the canonical normalized form of a schedule string.
// Immutable once constructed; accessors return copies.
type Schedule struct {
	kind Kind

	// crontab variant: sorted distinct values per field. The dom/dow
	// disjunction rule is already applied, so one of the two may be
	// empty while the schedule as a whole stays valid.
	minute, hour, dom, month, dow []int

	// timestamp variant: sorted distinct canonical strings.
	times []string

	source string
}

// Parse parses a schedule string, trying the crontab grammar first and
// falling back to the timestamp grammar. A string valid under both is
// always a crontab. Any failure surfaces as ErrInvalid.
func Parse(s string) (Schedule, error) {
	sched, err := ParseCrontab(s)
	if err == nil {
		return sched, nil
	}

	return ParseTimestamps(s)
}

// Kind reports which variant this schedule is.
func (s Schedule) Kind() Kind { return s.kind }

// Source returns the schedule string the Schedule was parsed from.
func (s Schedule) Source() string { return s.source }

func (s Schedule) Minutes() []int  { return slices.Clone(s.minute) }
func (s Schedule) Hours() []int    { return slices.Clone(s.hour) }
func (s Schedule) Days() []int     { return slices.Clone(s.dom) }
func (s Schedule) Months() []int   { return slices.Clone(s.month) }
func (s Schedule) Weekdays() []int { return slices.Clone(s.dow) }
func (s Schedule) Times() []string { return slices.Clone(s.times) }

// Matches reports whether the schedule fires at the given instant,
// evaluated in UTC at minute granularity. For crontab schedules the
// day-of-month and day-of-week sets are a disjunction: either matching
// fires the job. Membership in an empty set is false, which is how the
// parser's disjunction normalization removes one side from play.
func (s Schedule) Matches(t time.Time) bool {
	u := t.UTC()

	if s.kind == KindTimestamps {
		_, ok := slices.BinarySearch(s.times, u.Truncate(time.Minute).Format(CanonicalTimeLayout))
		return ok
	}

	if !contains(s.minute, u.Minute()) || !contains(s.hour, u.Hour()) || !contains(s.month, int(u.Month())) {
		return false
	}
	return contains(s.dom, u.Day()) || contains(s.dow, int(u.Weekday()))
}

// Equal reports set equality of the canonical forms, ignoring source
// text.
func (s Schedule) Equal(o Schedule) bool {
	if s.kind != o.kind {
		return false
	}
	if s.kind == KindTimestamps {
		return slices.Equal(s.times, o.times)
	}
	return slices.Equal(s.minute, o.minute) &&
		slices.Equal(s.hour, o.hour) &&
		slices.Equal(s.dom, o.dom) &&
		slices.Equal(s.month, o.month) &&
		slices.Equal(s.dow, o.dow)
}

func contains(set []int, v int) bool {
	_, ok := slices.BinarySearch(set, v)
	return ok
}
