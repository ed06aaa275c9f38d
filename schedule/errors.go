package schedule

import (
	"errors"
	"fmt"
)

// ErrInvalid is the single user-facing rejection for a schedule string
// that is neither a valid crontab nor a valid timestamp list. Detail
// errors (GrammarError, RangeError) wrap it, so errors.Is(err, ErrInvalid)
// holds for every parse failure reported by Parse.
var ErrInvalid = errors.New("not a valid schedule")

// GrammarError reports a cron field entry that does not match the
// accepted grammar ("*"|N|N-N)["/"S].
type GrammarError struct {
	Field string
	Entry string
}

func (e *GrammarError) Error() string {
	return fmt.Sprintf("invalid cron entry %q in field %q", e.Entry, e.Field)
}

func (e *GrammarError) Unwrap() error { return ErrInvalid }

// RangeError reports a cron entry whose bounds are inverted or outside
// the field's permitted range.
type RangeError struct {
	Field      string
	Start, End int
	Min, Max   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("cron entry %d-%d in field %q outside permitted range %d-%d",
		e.Start, e.End, e.Field, e.Min, e.Max)
}

func (e *RangeError) Unwrap() error { return ErrInvalid }
