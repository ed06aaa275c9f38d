package pgjob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/schedcore/pgjob/internal/model"
	"github.com/schedcore/pgjob/internal/repository"
	"github.com/schedcore/pgjob/schedule"
)

// pqStore is the PostgreSQL JobStore. It stores the parsed schedule as
// per-field arrays next to the source text, so DueJobs is a pure
// array-membership query and reads rebuild the Schedule by re-parsing
// the source (parsing is deterministic, so the round trip is exact).
type pqStore struct {
	repo repository.Repository
}

// NewPqStore connects to PostgreSQL, bootstraps the job/joblog/runlog
// schema, and returns the store plus its close function.
func NewPqStore(ctx context.Context, conn string) (JobStore, func() error, error) {
	repo, close, err := repository.New(ctx, conn)
	if err != nil {
		return nil, nil, err
	}

	if err := repo.EnsureSchema(ctx); err != nil {
		err1 := close()
		return nil, nil, errors.Join(err, err1)
	}

	return &pqStore{repo: repo}, close, nil
}

func (s *pqStore) CreateJob(ctx context.Context, job Job) (int64, error) {
	id, err := s.repo.CreateJob(ctx, toRow(job))
	return id, mapStoreError(err)
}

func (s *pqStore) GetJob(ctx context.Context, id int64) (Job, error) {
	row, err := s.repo.GetJob(ctx, id)
	if err != nil {
		return Job{}, mapStoreError(err)
	}
	return fromRow(row)
}

func (s *pqStore) ListJobs(ctx context.Context) ([]Job, error) {
	rows, err := s.repo.ListJobs(ctx)
	if err != nil {
		return nil, err
	}

	jobs := make([]Job, 0, len(rows))
	for _, row := range rows {
		job, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (s *pqStore) UpdateJob(ctx context.Context, job Job) error {
	return mapStoreError(s.repo.UpdateJob(ctx, toRow(job)))
}

func (s *pqStore) DeleteJob(ctx context.Context, id int64) error {
	return mapStoreError(s.repo.DeleteJob(ctx, id))
}

func (s *pqStore) DueJobs(ctx context.Context, at time.Time) ([]Job, error) {
	u := at.UTC().Truncate(time.Minute)
	rows, err := s.repo.DueJobs(
		ctx,
		u.Minute(),
		u.Hour(),
		u.Day(),
		int(u.Month()),
		int(u.Weekday()),
		u.Format(schedule.CanonicalTimeLayout),
	)
	if err != nil {
		return nil, err
	}

	jobs := make([]Job, 0, len(rows))
	for _, row := range rows {
		job, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (s *pqStore) MarkJobStarted(ctx context.Context, id int64, at time.Time) error {
	return s.repo.MarkJobStarted(ctx, id, at)
}

func (s *pqStore) RecordOutcome(ctx context.Context, id int64, success bool) error {
	return s.repo.RecordOutcome(ctx, id, success)
}

func (s *pqStore) AppendJobLog(ctx context.Context, log JobLog) error {
	return s.repo.AppendJobLog(ctx, model.JobLogRow{
		StartedAt:    log.StartedAt,
		FinishedAt:   log.FinishedAt,
		Command:      log.Command,
		Success:      log.Success,
		ErrorCode:    log.ErrorCode,
		ErrorMessage: log.ErrorMessage,
		ErrorDetail:  log.ErrorDetail,
		ErrorHint:    log.ErrorHint,
		OwnerName:    log.OwnerName,
		DatabaseName: log.DatabaseName,
	})
}

func (s *pqStore) AppendRunLog(ctx context.Context, log RunLog) error {
	return s.repo.AppendRunLog(ctx, model.RunLogRow{
		RunID:      log.RunID,
		JobID:      log.JobID,
		Actor:      log.Actor,
		Function:   log.Function,
		Arguments:  log.Arguments,
		StartedAt:  log.StartedAt,
		FinishedAt: log.FinishedAt,
		Rows:       log.Rows,
		Success:    log.Success,
		Error:      log.Error,
	})
}

func (s *pqStore) ClaimJob(ctx context.Context, claimedBy string, id int64, until time.Time) (bool, error) {
	return s.repo.ClaimJob(ctx, claimedBy, id, until)
}

func (s *pqStore) ReleaseJob(ctx context.Context, claimedBy string, id int64) (bool, error) {
	return s.repo.ReleaseJob(ctx, claimedBy, id)
}

var _ JobStore = (*pqStore)(nil)

func toRow(job Job) model.JobRow {
	row := model.JobRow{
		JobID:          job.JobID,
		DatabaseName:   job.DatabaseName,
		OwnerName:      job.Owner,
		ScheduleSource: job.ScheduleSource,
		Enabled:        job.Enabled,
		Parallel:       job.Parallel,
		Command:        job.Command,
		Description:    job.Description,
		TimeoutMs:      job.Timeout.Milliseconds(),
		FailureCount:   job.FailureCount,
		SuccessCount:   job.SuccessCount,
		LastStart:      job.LastStart,
	}

	if job.Schedule == nil {
		return row
	}

	sched := *job.Schedule
	if sched.Kind() == schedule.KindTimestamps {
		kind := model.KindTimestamps
		row.ScheduleKind = &kind
		row.SchedTimes = sched.Times()
		return row
	}

	kind := model.KindCrontab
	row.ScheduleKind = &kind
	row.SchedMinute = toInt64s(sched.Minutes())
	row.SchedHour = toInt64s(sched.Hours())
	row.SchedDom = toInt64s(sched.Days())
	row.SchedMonth = toInt64s(sched.Months())
	row.SchedDow = toInt64s(sched.Weekdays())
	return row
}

func fromRow(row model.JobRow) (Job, error) {
	job := Job{
		JobID:          row.JobID,
		DatabaseName:   row.DatabaseName,
		Owner:          row.OwnerName,
		ScheduleSource: row.ScheduleSource,
		Enabled:        row.Enabled,
		Parallel:       row.Parallel,
		Command:        row.Command,
		Description:    row.Description,
		Timeout:        time.Duration(row.TimeoutMs) * time.Millisecond,
		FailureCount:   row.FailureCount,
		SuccessCount:   row.SuccessCount,
		LastStart:      row.LastStart,
	}

	if row.ScheduleKind == nil {
		return job, nil
	}

	sched, err := schedule.Parse(row.ScheduleSource)
	if err != nil {
		return Job{}, fmt.Errorf("job %d has unparseable stored schedule: %w", row.JobID, err)
	}
	job.Schedule = &sched
	return job, nil
}

func toInt64s(values []int) []int64 {
	out := make([]int64, len(values))
	for i, v := range values {
		out[i] = int64(v)
	}
	return out
}

func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrDuplicate):
		return ErrDuplicateJob
	case errors.Is(err, repository.ErrNotFound):
		return ErrJobNotFound
	default:
		return err
	}
}
