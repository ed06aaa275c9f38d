package model

import (
	"time"

	"github.com/lib/pq"
)

// Schedule kind discriminators as stored in the job table.
const (
	KindCrontab    = "crontab"
	KindTimestamps = "timestamps"
)

// JobRow mirrors the job table. The parsed schedule is denormalized
// into per-field arrays so the due-job query is an array-membership
// set query instead of a per-row parse.
type JobRow struct {
	JobID          int64          `db:"jobid"`
	DatabaseName   string         `db:"database_name"`
	OwnerName      string         `db:"owner_name"`
	ScheduleKind   *string        `db:"schedule_kind"`
	ScheduleSource string         `db:"schedule_source"`
	SchedMinute    pq.Int64Array  `db:"sched_minute"`
	SchedHour      pq.Int64Array  `db:"sched_hour"`
	SchedDom       pq.Int64Array  `db:"sched_dom"`
	SchedMonth     pq.Int64Array  `db:"sched_month"`
	SchedDow       pq.Int64Array  `db:"sched_dow"`
	SchedTimes     pq.StringArray `db:"sched_times"`
	Enabled        bool           `db:"enabled"`
	Parallel       bool           `db:"parallel"`
	Command        string         `db:"command"`
	Description    string         `db:"description"`
	TimeoutMs      int64          `db:"timeout_ms"`
	FailureCount   int64          `db:"failure_count"`
	SuccessCount   int64          `db:"success_count"`
	LastStart      *time.Time     `db:"last_start"`
	ClaimedBy      *string        `db:"claimed_by"`
	ClaimedUntil   *time.Time     `db:"claimed_until"`
}

// JobLogRow mirrors the joblog table. Append-only, no foreign key to
// the job table.
type JobLogRow struct {
	LogID        int64     `db:"logid"`
	StartedAt    time.Time `db:"started_at"`
	FinishedAt   time.Time `db:"finished_at"`
	Command      string    `db:"command"`
	Success      bool      `db:"success"`
	ErrorCode    string    `db:"error_code"`
	ErrorMessage string    `db:"error_message"`
	ErrorDetail  string    `db:"error_detail"`
	ErrorHint    string    `db:"error_hint"`
	OwnerName    string    `db:"owner_name"`
	DatabaseName string    `db:"database_name"`
}

// RunLogRow mirrors the runlog table. JobID is nullable: job deletion
// nulls the reference instead of cascading.
type RunLogRow struct {
	RunID      string     `db:"runid"`
	JobID      *int64     `db:"jobid"`
	Actor      string     `db:"actor"`
	Function   string     `db:"function"`
	Arguments  string     `db:"arguments"`
	StartedAt  time.Time  `db:"started_at"`
	FinishedAt *time.Time `db:"finished_at"`
	Rows       int64      `db:"rows_returned"`
	Success    bool       `db:"success"`
	Error      string     `db:"error"`
}
