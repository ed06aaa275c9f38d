package pgjob

import (
	"context"
	"errors"
)

// StoreRecorder is the default RunRecorder: it writes one JobLog row
// and one RunLog row per completed execution.
type StoreRecorder struct {
	store JobStore
}

func NewStoreRecorder(store JobStore) *StoreRecorder {
	return &StoreRecorder{store: store}
}

// RunStarted is a notification hook only; both log rows are append-once
// and carry the start time, so nothing is persisted until the run
// finishes.
func (r *StoreRecorder) RunStarted(context.Context, RunStart) error {
	return nil
}

func (r *StoreRecorder) RunFinished(ctx context.Context, ev RunFinish) error {
	jobLog := JobLog{
		StartedAt:    ev.StartedAt,
		FinishedAt:   ev.FinishedAt,
		Command:      ev.Job.Command,
		Success:      ev.Err == nil,
		OwnerName:    ev.Job.Owner,
		DatabaseName: ev.Job.DatabaseName,
	}
	if ev.Err != nil {
		jobLog.ErrorMessage = ev.Err.Error()
	}

	jobID := ev.Job.JobID
	finished := ev.FinishedAt
	runLog := RunLog{
		RunID:      ev.RunID,
		JobID:      &jobID,
		Actor:      ev.Worker,
		Function:   "run_job",
		Arguments:  ev.Job.Command,
		StartedAt:  ev.StartedAt,
		FinishedAt: &finished,
		Rows:       1,
		Success:    ev.Err == nil,
	}
	if ev.Err != nil {
		runLog.Error = ev.Err.Error()
	}

	return errors.Join(
		r.store.AppendJobLog(ctx, jobLog),
		r.store.AppendRunLog(ctx, runLog),
	)
}

var _ RunRecorder = (*StoreRecorder)(nil)
