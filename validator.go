package pgjob

import (
	"context"
	"time"

	"github.com/schedcore/pgjob/schedule"
)

// Validator enforces the job lifecycle invariants at every create and
// update, before anything reaches the store: ownership defaulting,
// principal membership, schedule normalization, and the fire-now bump.
type Validator struct {
	perms PermissionChecker
	now   func() time.Time
}

func NewValidator(perms PermissionChecker, options ...Option[Validator]) *Validator {
	v := &Validator{
		perms: perms,
		now:   time.Now,
	}

	for _, option := range options {
		option(v)
	}

	return v
}

// WithClock overrides the validator's clock, used by the fire-now bump.
func WithClock(now func() time.Time) Option[Validator] {
	return func(v *Validator) {
		v.now = now
	}
}

// ValidateCreate normalizes and checks a new job. The returned Job is
// what must be persisted; the input is not mutated.
func (v *Validator) ValidateCreate(ctx context.Context, caller string, job Job) (Job, error) {
	if job.Owner == "" {
		job.Owner = caller
	}

	if err := v.checkMembership(ctx, caller, job.Owner); err != nil {
		return Job{}, err
	}

	if err := v.normalizeSchedule(&job); err != nil {
		return Job{}, err
	}

	return job, nil
}

// ValidateUpdate merges the update over the existing job (nil fields
// keep their stored value) and runs the same checks as creation,
// including membership of a changed owner.
func (v *Validator) ValidateUpdate(ctx context.Context, caller string, existing Job, upd JobUpdate) (Job, error) {
	job := existing

	if upd.DatabaseName != nil {
		job.DatabaseName = *upd.DatabaseName
	}
	if upd.Owner != nil {
		job.Owner = *upd.Owner
	}
	if upd.ScheduleSource != nil {
		job.ScheduleSource = *upd.ScheduleSource
	}
	if upd.Enabled != nil {
		job.Enabled = *upd.Enabled
	}
	if upd.Parallel != nil {
		job.Parallel = *upd.Parallel
	}
	if upd.Command != nil {
		job.Command = *upd.Command
	}
	if upd.Description != nil {
		job.Description = *upd.Description
	}
	if upd.Timeout != nil {
		job.Timeout = *upd.Timeout
	}

	return v.ValidateCreate(ctx, caller, job)
}

func (v *Validator) checkMembership(ctx context.Context, caller, owner string) error {
	ok, err := v.perms.IsMember(ctx, caller, owner)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAuthorized
	}
	return nil
}

func (v *Validator) normalizeSchedule(job *Job) error {
	if job.ScheduleSource == "" {
		job.Schedule = nil
		return nil
	}

	sched, err := schedule.Parse(job.ScheduleSource)
	if err != nil {
		return err
	}

	if bumped, ok := v.bumpFireNow(sched); ok {
		// The bump rewrites the source too: the stored source must
		// re-parse to the stored canonical form.
		sched = bumped
		job.ScheduleSource = bumped.Source()
	}
	job.Schedule = &sched
	return nil
}

// bumpFireNow pushes a timestamp schedule equal to the current minute
// one minute forward, so a job scheduled "now" is seen as upcoming by
// the next matching pass instead of racing the pass already in flight.
// Only a singleton schedule is bumped; a multi-timestamp schedule that
// happens to include the current minute is stored as-is.
func (v *Validator) bumpFireNow(sched schedule.Schedule) (schedule.Schedule, bool) {
	if sched.Kind() != schedule.KindTimestamps {
		return sched, false
	}

	times := sched.Times()
	now := v.now().UTC().Truncate(time.Minute)
	if len(times) != 1 || times[0] != now.Format(schedule.CanonicalTimeLayout) {
		return sched, false
	}

	return schedule.FromTimes(now.Add(time.Minute)), true
}
