package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/schedcore/pgjob/internal/model"
)

var (
	ErrDuplicate = fmt.Errorf("duplicate job identity")
	ErrNotFound  = fmt.Errorf("row not found")
)

// uniqueViolation is the PostgreSQL error code for a unique constraint
// breach.
const uniqueViolation = "23505"

type Repository interface {
	CreateJob(ctx context.Context, row model.JobRow) (int64, error)
	GetJob(ctx context.Context, id int64) (model.JobRow, error)
	ListJobs(ctx context.Context) ([]model.JobRow, error)
	UpdateJob(ctx context.Context, row model.JobRow) error
	DeleteJob(ctx context.Context, id int64) error
	DueJobs(ctx context.Context, minute, hour, dom, month, dow int, canonical string) ([]model.JobRow, error)
	MarkJobStarted(ctx context.Context, id int64, at time.Time) error
	RecordOutcome(ctx context.Context, id int64, success bool) error
	AppendJobLog(ctx context.Context, row model.JobLogRow) error
	AppendRunLog(ctx context.Context, row model.RunLogRow) error
	ClaimJob(ctx context.Context, claimedBy string, id int64, until time.Time) (bool, error)
	ReleaseJob(ctx context.Context, claimedBy string, id int64) (bool, error)
	EnsureSchema(ctx context.Context) error
}

type Connection interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

type transactionalConnection interface {
	Connection
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type repository struct {
	db Connection
}

const schema = `
CREATE TABLE IF NOT EXISTS job (
	jobid           bigserial PRIMARY KEY,
	database_name   text NOT NULL,
	owner_name      text NOT NULL,
	schedule_kind   text,
	schedule_source text NOT NULL DEFAULT '',
	sched_minute    int[],
	sched_hour      int[],
	sched_dom       int[],
	sched_month     int[],
	sched_dow       int[],
	sched_times     text[],
	enabled         boolean NOT NULL DEFAULT true,
	parallel        boolean NOT NULL DEFAULT false,
	command         text NOT NULL,
	description     text NOT NULL DEFAULT '',
	timeout_ms      bigint NOT NULL DEFAULT 0,
	failure_count   bigint NOT NULL DEFAULT 0 CHECK (failure_count >= 0),
	success_count   bigint NOT NULL DEFAULT 0 CHECK (success_count >= 0),
	last_start      timestamptz,
	claimed_by      text,
	claimed_until   timestamptz
);

CREATE UNIQUE INDEX IF NOT EXISTS job_identity_idx
	ON job (database_name, owner_name, schedule_source, command);

CREATE TABLE IF NOT EXISTS joblog (
	logid         bigserial PRIMARY KEY,
	started_at    timestamptz NOT NULL,
	finished_at   timestamptz NOT NULL,
	command       text NOT NULL,
	success       boolean NOT NULL,
	error_code    text NOT NULL DEFAULT '',
	error_message text NOT NULL DEFAULT '',
	error_detail  text NOT NULL DEFAULT '',
	error_hint    text NOT NULL DEFAULT '',
	owner_name    text NOT NULL,
	database_name text NOT NULL
);

CREATE TABLE IF NOT EXISTS runlog (
	runid         text PRIMARY KEY,
	jobid         bigint,
	actor         text NOT NULL,
	function      text NOT NULL,
	arguments     text NOT NULL DEFAULT '',
	started_at    timestamptz NOT NULL,
	finished_at   timestamptz,
	rows_returned bigint NOT NULL DEFAULT 0,
	success       boolean NOT NULL,
	error         text NOT NULL DEFAULT ''
);
`

func (r *repository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

const jobColumns = `jobid, database_name, owner_name, schedule_kind, schedule_source,
	sched_minute, sched_hour, sched_dom, sched_month, sched_dow, sched_times,
	enabled, parallel, command, description, timeout_ms,
	failure_count, success_count, last_start, claimed_by, claimed_until`

func (r *repository) CreateJob(ctx context.Context, row model.JobRow) (int64, error) {
	var id int64
	err := r.db.GetContext(
		ctx,
		&id,
		`INSERT INTO job (
			database_name, owner_name, schedule_kind, schedule_source,
			sched_minute, sched_hour, sched_dom, sched_month, sched_dow, sched_times,
			enabled, parallel, command, description, timeout_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING jobid`,
		row.DatabaseName,
		row.OwnerName,
		row.ScheduleKind,
		row.ScheduleSource,
		row.SchedMinute,
		row.SchedHour,
		row.SchedDom,
		row.SchedMonth,
		row.SchedDow,
		row.SchedTimes,
		row.Enabled,
		row.Parallel,
		row.Command,
		row.Description,
		row.TimeoutMs,
	)

	return id, mapError(err)
}

func (r *repository) GetJob(ctx context.Context, id int64) (model.JobRow, error) {
	var row model.JobRow
	err := r.db.GetContext(ctx, &row, `SELECT `+jobColumns+` FROM job WHERE jobid = $1`, id)
	return row, mapError(err)
}

func (r *repository) ListJobs(ctx context.Context) ([]model.JobRow, error) {
	var rows []model.JobRow
	err := r.db.SelectContext(ctx, &rows, `SELECT `+jobColumns+` FROM job ORDER BY jobid`)
	return rows, err
}

func (r *repository) UpdateJob(ctx context.Context, row model.JobRow) error {
	res, err := r.db.ExecContext(
		ctx,
		`UPDATE job SET
			database_name = $2, owner_name = $3, schedule_kind = $4, schedule_source = $5,
			sched_minute = $6, sched_hour = $7, sched_dom = $8, sched_month = $9,
			sched_dow = $10, sched_times = $11,
			enabled = $12, parallel = $13, command = $14, description = $15, timeout_ms = $16
		WHERE jobid = $1`,
		row.JobID,
		row.DatabaseName,
		row.OwnerName,
		row.ScheduleKind,
		row.ScheduleSource,
		row.SchedMinute,
		row.SchedHour,
		row.SchedDom,
		row.SchedMonth,
		row.SchedDow,
		row.SchedTimes,
		row.Enabled,
		row.Parallel,
		row.Command,
		row.Description,
		row.TimeoutMs,
	)
	if err != nil {
		return mapError(err)
	}

	return requireRow(res)
}

// DeleteJob removes the job row and nulls runlog references to it.
// History is never cascade-deleted. Both statements run in one
// transaction when the connection supports it.
func (r *repository) DeleteJob(ctx context.Context, id int64) error {
	if tc, ok := r.db.(transactionalConnection); ok {
		tx, err := tc.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}

		if err := deleteJob(ctx, tx, id); err != nil {
			err1 := tx.Rollback()
			return errors.Join(err, err1)
		}
		return tx.Commit()
	}

	return deleteJob(ctx, r.db, id)
}

func deleteJob(ctx context.Context, db Connection, id int64) error {
	if _, err := db.ExecContext(ctx, `UPDATE runlog SET jobid = NULL WHERE jobid = $1`, id); err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, `DELETE FROM job WHERE jobid = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DueJobs is the set query of the matching pass: array membership per
// cron field, with dom/dow as a disjunction, or canonical-string
// membership for timestamp schedules. Empty arrays never match, which
// is what clears the wildcarded side of the dom/dow pair.
func (r *repository) DueJobs(ctx context.Context, minute, hour, dom, month, dow int, canonical string) ([]model.JobRow, error) {
	var rows []model.JobRow
	err := r.db.SelectContext(
		ctx,
		&rows,
		`SELECT `+jobColumns+` FROM job
		WHERE enabled AND (
			(schedule_kind = $7
				AND $1 = ANY(sched_minute) AND $2 = ANY(sched_hour) AND $4 = ANY(sched_month)
				AND ($3 = ANY(sched_dom) OR $5 = ANY(sched_dow)))
			OR (schedule_kind = $8 AND $6 = ANY(sched_times))
		)
		ORDER BY jobid`,
		minute,
		hour,
		dom,
		month,
		dow,
		canonical,
		model.KindCrontab,
		model.KindTimestamps,
	)

	return rows, err
}

func (r *repository) MarkJobStarted(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE job SET last_start = $2 WHERE jobid = $1`, id, at)
	return err
}

// RecordOutcome bumps the counter in SQL so concurrent completions of
// the same job never lose increments.
func (r *repository) RecordOutcome(ctx context.Context, id int64, success bool) error {
	column := "failure_count"
	if success {
		column = "success_count"
	}

	_, err := r.db.ExecContext(
		ctx,
		`UPDATE job SET `+column+` = `+column+` + 1 WHERE jobid = $1`,
		id,
	)
	return err
}

func (r *repository) AppendJobLog(ctx context.Context, row model.JobLogRow) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO joblog (
			started_at, finished_at, command, success,
			error_code, error_message, error_detail, error_hint,
			owner_name, database_name
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		row.StartedAt,
		row.FinishedAt,
		row.Command,
		row.Success,
		row.ErrorCode,
		row.ErrorMessage,
		row.ErrorDetail,
		row.ErrorHint,
		row.OwnerName,
		row.DatabaseName,
	)
	return err
}

func (r *repository) AppendRunLog(ctx context.Context, row model.RunLogRow) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO runlog (
			runid, jobid, actor, function, arguments,
			started_at, finished_at, rows_returned, success, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		row.RunID,
		row.JobID,
		row.Actor,
		row.Function,
		row.Arguments,
		row.StartedAt,
		row.FinishedAt,
		row.Rows,
		row.Success,
		row.Error,
	)
	return err
}

// ClaimJob takes the per-job execution claim with a single conditional
// update: it succeeds only when no live claim exists.
func (r *repository) ClaimJob(ctx context.Context, claimedBy string, id int64, until time.Time) (bool, error) {
	res, err := r.db.ExecContext(
		ctx,
		`UPDATE job SET claimed_by = $1, claimed_until = $3
		WHERE jobid = $2 AND (claimed_until IS NULL OR claimed_until < now())`,
		claimedBy,
		id,
		until,
	)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *repository) ReleaseJob(ctx context.Context, claimedBy string, id int64) (bool, error) {
	res, err := r.db.ExecContext(
		ctx,
		`UPDATE job SET claimed_by = NULL, claimed_until = NULL
		WHERE jobid = $2 AND claimed_by = $1`,
		claimedBy,
		id,
	)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	return n == 1, err
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// New connects to PostgreSQL and returns a Repository over a pooled
// connection, plus its close function.
func New(ctx context.Context, conn string) (Repository, func() error, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", conn)
	if err != nil {
		return nil, nil, err
	}

	return &repository{db}, db.Close, nil
}

// NewWithConnection wraps an existing connection, typically a
// transaction in tests.
func NewWithConnection(db Connection) Repository {
	return &repository{db}
}
