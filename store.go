package pgjob

import (
	"context"
	"time"
)

// JobStore is the storage collaborator. Implementations must treat
// AppendJobLog and AppendRunLog as append-only and RecordOutcome as an
// atomic increment; see NewPqStore for the PostgreSQL implementation.
type JobStore interface {
	// CreateJob persists a new job and returns its id. A duplicate
	// (database, owner, schedule source, command) tuple yields
	// ErrDuplicateJob.
	CreateJob(ctx context.Context, job Job) (int64, error)

	// GetJob returns the job by id, or ErrJobNotFound.
	GetJob(ctx context.Context, id int64) (Job, error)

	// ListJobs returns all jobs. Access scoping to the caller's
	// principals is enforced outside this core.
	ListJobs(ctx context.Context) ([]Job, error)

	// UpdateJob replaces the stored row identified by job.JobID.
	UpdateJob(ctx context.Context, job Job) error

	// DeleteJob removes the job row. RunLog references to it are nulled,
	// never cascaded; JobLog rows are untouched.
	DeleteJob(ctx context.Context, id int64) error

	// DueJobs returns the enabled jobs whose schedule matches the given
	// instant. The instant is truncated to the minute in UTC before
	// matching. Implementations are expected to evaluate this as a set
	// query over the canonical per-field values, not a per-row parse.
	DueJobs(ctx context.Context, at time.Time) ([]Job, error)

	// MarkJobStarted records the last-started timestamp.
	MarkJobStarted(ctx context.Context, id int64, at time.Time) error

	// RecordOutcome bumps success_count or failure_count by one,
	// atomically with respect to concurrent outcomes of the same job.
	RecordOutcome(ctx context.Context, id int64, success bool) error

	AppendJobLog(ctx context.Context, log JobLog) error
	AppendRunLog(ctx context.Context, log RunLog) error

	// ClaimJob takes an exclusive execution claim on the job until the
	// deadline, returning false when another worker holds it. ReleaseJob
	// drops a claim held by the same claimant.
	ClaimJob(ctx context.Context, claimedBy string, id int64, until time.Time) (bool, error)
	ReleaseJob(ctx context.Context, claimedBy string, id int64) (bool, error)
}

// AdmissionLocker gates execution of jobs with parallel=false: at most
// one holder per job id at a time, across however many worker
// processes share the locker backend.
type AdmissionLocker interface {
	TryAcquire(ctx context.Context, jobID int64) (bool, error)
	Release(ctx context.Context, jobID int64) error
}

// Executor runs a job's command payload. The context carries the job's
// timeout; the executor is responsible for honoring it.
type Executor interface {
	Execute(ctx context.Context, job Job) error
}

// PermissionChecker resolves principal membership. IsMember must be
// true for caller == principal.
type PermissionChecker interface {
	IsMember(ctx context.Context, caller, principal string) (bool, error)
}

// ErrorListener receives errors from the driver's background loop.
type ErrorListener interface {
	OnError(err error)
}

// RunStart describes an execution that has been admitted and is about
// to run.
type RunStart struct {
	RunID     string
	Worker    string
	Job       Job
	StartedAt time.Time
}

// RunFinish describes a completed execution. Err is nil on success.
type RunFinish struct {
	RunID      string
	Worker     string
	Job        Job
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
}

// RunRecorder receives run lifecycle events. The default StoreRecorder
// turns them into JobLog and RunLog rows.
type RunRecorder interface {
	RunStarted(ctx context.Context, ev RunStart) error
	RunFinished(ctx context.Context, ev RunFinish) error
}
