package pgjob

import (
	"fmt"

	"github.com/schedcore/pgjob/schedule"
)

var (
	// ErrInvalidSchedule is returned when a job's schedule string is
	// neither a valid crontab nor a valid timestamp list.
	ErrInvalidSchedule = schedule.ErrInvalid

	// ErrNotAuthorized is returned when the acting caller is not the
	// owning principal of a job nor a member of it.
	ErrNotAuthorized = fmt.Errorf("caller is not a member of the owning principal")

	// ErrDuplicateJob is returned on insert or update of a job whose
	// (database, owner, schedule source, command) tuple already exists.
	ErrDuplicateJob = fmt.Errorf("job with same database, owner, schedule and command already exists")

	// ErrJobNotFound is returned when the referenced job id does not exist.
	ErrJobNotFound = fmt.Errorf("job not found")
)
