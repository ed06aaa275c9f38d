package pgjob

import (
	"time"

	"github.com/schedcore/pgjob/schedule"
)

// Job is a registered unit of scheduled work. The command payload is
// opaque to this package; the external executor interprets it.
type Job struct {
	JobID        int64
	DatabaseName string
	Owner        string

	// Schedule is the canonical parsed form; nil means the job never
	// fires automatically. ScheduleSource keeps the original string for
	// the uniqueness tuple and for display.
	Schedule       *schedule.Schedule
	ScheduleSource string

	Enabled      bool
	Parallel     bool
	Command      string
	Description  string
	Timeout      time.Duration
	FailureCount int64
	SuccessCount int64
	LastStart    *time.Time
}

// JobUpdate carries a partial job mutation. Nil fields leave the stored
// value unchanged.
type JobUpdate struct {
	DatabaseName   *string
	Owner          *string
	ScheduleSource *string
	Enabled        *bool
	Parallel       *bool
	Command        *string
	Description    *string
	Timeout        *time.Duration
}

// JobLog is one completed execution attempt. Owner and database names
// are denormalized so history survives principal or database churn, and
// there is deliberately no foreign key back to Job: a job may be
// deleted, or logs imported from elsewhere, without invalidating rows.
type JobLog struct {
	LogID        int64
	StartedAt    time.Time
	FinishedAt   time.Time
	Command      string
	Success      bool
	ErrorCode    string
	ErrorMessage string
	ErrorDetail  string
	ErrorHint    string
	OwnerName    string
	DatabaseName string
}

// RunLog is one audit record per job-management invocation, scheduled
// or not. JobID is nullable: deleting a job nulls the reference instead
// of cascading, so the audit trail stays intact.
type RunLog struct {
	RunID      string
	JobID      *int64
	Actor      string
	Function   string
	Arguments  string
	StartedAt  time.Time
	FinishedAt *time.Time
	Rows       int64
	Success    bool
	Error      string
}
