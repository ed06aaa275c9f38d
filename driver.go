package pgjob

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// storeClaimLease is the default claim lease when the driver gates
// admission through the store instead of a dedicated locker.
const storeClaimLease = 10 * time.Minute

// Driver polls the job store once per minute, admits due jobs and runs
// them through the configured executor. Scheduling decisions themselves
// are pure; the only shared state is the store and the locker, so any
// number of driver processes can poll the same table.
type Driver struct {
	cfg      *Config
	memberID string

	locker   AdmissionLocker
	recorder RunRecorder
	log      zerolog.Logger

	runner *cron.Cron
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// errLimit dampens log spam when every tick fails the same way,
	// e.g. while the database is down.
	errLimit *rate.Limiter
}

func NewDriver(cfg *Config) (*Driver, error) {
	if cfg.store == nil {
		return nil, fmt.Errorf("driver requires a job store")
	}
	if cfg.executor == nil {
		return nil, fmt.Errorf("driver requires an executor")
	}

	memberID := uuid.NewString()
	worker := cfg.workerName
	if worker == "" {
		worker = memberID
	}

	locker := cfg.locker
	if locker == nil {
		locker = NewStoreLocker(cfg.store, worker, storeClaimLease)
	}

	recorder := cfg.recorder
	if recorder == nil {
		recorder = NewStoreRecorder(cfg.store)
	}

	return &Driver{
		cfg:      cfg,
		memberID: memberID,
		locker:   locker,
		recorder: recorder,
		log:      cfg.logger.With().Str("worker", worker).Logger(),
		cancel:   func() {},
		errLimit: rate.NewLimiter(rate.Every(time.Minute), 3),
	}, nil
}

// Start begins evaluating schedules at every minute boundary. The cron
// runner is pinned to UTC so ticks line up with the canonical matching
// granularity.
func (d *Driver) Start(ctx context.Context) error {
	ctx, d.cancel = context.WithCancel(ctx)

	runner := cron.New(cron.WithLocation(time.UTC))
	if _, err := runner.AddFunc("* * * * *", func() { d.tick(ctx) }); err != nil {
		return err
	}

	d.runner = runner
	runner.Start()
	d.log.Info().Msg("scheduler driver started")
	return nil
}

// Stop halts polling and waits for in-flight executions, bounded by the
// context.
func (d *Driver) Stop(ctx context.Context) error {
	if d.runner != nil {
		<-d.runner.Stop().Done()
	}
	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.log.Info().Msg("scheduler driver stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Driver) tick(ctx context.Context) {
	d.Evaluate(ctx, d.cfg.now())
}

// Evaluate runs one matching pass for the given instant, admitting and
// dispatching every due job. Exported so embedders and tests can drive
// passes without the minute ticker.
func (d *Driver) Evaluate(ctx context.Context, at time.Time) {
	at = at.UTC().Truncate(time.Minute)

	jobs, err := d.cfg.store.DueJobs(ctx, at)
	if err != nil {
		if d.errLimit.Allow() {
			d.log.Error().Err(err).Time("at", at).Msg("due-job query failed")
		}
		d.onError(err)
		return
	}

	for _, job := range jobs {
		d.dispatch(ctx, job, at)
	}
}

// dispatch admits one due job and launches its execution. Jobs with
// parallel=false are gated by the admission locker: losing the claim
// means another worker, or a still-running earlier invocation of the
// same job, already holds it.
func (d *Driver) dispatch(ctx context.Context, job Job, at time.Time) {
	admitted := true
	if !job.Parallel {
		ok, err := d.locker.TryAcquire(ctx, job.JobID)
		if err != nil {
			d.onError(err)
			return
		}
		admitted = ok
	}
	if !admitted {
		d.log.Debug().Int64("job", job.JobID).Msg("job already claimed, skipping")
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if !job.Parallel {
			defer func() {
				if err := d.locker.Release(ctx, job.JobID); err != nil {
					d.onError(err)
				}
			}()
		}
		d.execute(ctx, job, at)
	}()
}

func (d *Driver) execute(ctx context.Context, job Job, at time.Time) {
	runID := uuid.NewString()
	started := d.cfg.now().UTC()

	ev := RunStart{RunID: runID, Worker: d.workerName(), Job: job, StartedAt: started}
	if err := d.recorder.RunStarted(ctx, ev); err != nil {
		d.onError(err)
	}
	if err := d.cfg.store.MarkJobStarted(ctx, job.JobID, at); err != nil {
		d.onError(err)
	}

	execCtx := ctx
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	runErr := d.cfg.executor.Execute(execCtx, job)
	finished := d.cfg.now().UTC()

	fin := RunFinish{
		RunID:      runID,
		Worker:     d.workerName(),
		Job:        job,
		StartedAt:  started,
		FinishedAt: finished,
		Err:        runErr,
	}
	if err := d.recorder.RunFinished(ctx, fin); err != nil {
		d.onError(err)
	}
	if err := d.cfg.store.RecordOutcome(ctx, job.JobID, runErr == nil); err != nil {
		d.onError(err)
	}

	if runErr != nil {
		d.log.Warn().Err(runErr).Int64("job", job.JobID).Dur("took", finished.Sub(started)).Msg("job failed")
		return
	}
	d.log.Info().Int64("job", job.JobID).Dur("took", finished.Sub(started)).Msg("job finished")
}

func (d *Driver) workerName() string {
	if d.cfg.workerName != "" {
		return d.cfg.workerName
	}
	return d.memberID
}

func (d *Driver) onError(err error) {
	for _, listener := range d.cfg.errorListeners {
		listener.OnError(err)
	}
}
