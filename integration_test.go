package pgjob

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedcore/pgjob/schedule"
)

func testStore(t *testing.T) JobStore {
	t.Helper()

	conn := os.Getenv("PGJOB_TEST_CONN")
	if conn == "" {
		t.Skip("PGJOB_TEST_CONN not set")
	}

	store, close, err := NewPqStore(context.Background(), conn)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, close()) })
	return store
}

// uniqueJob builds a job whose identity tuple cannot collide with other
// test runs.
func uniqueJob(t *testing.T, source string) Job {
	t.Helper()

	var sched *schedule.Schedule
	if source != "" {
		s, err := schedule.Parse(source)
		require.NoError(t, err)
		sched = &s
	}

	return Job{
		DatabaseName:   "app",
		Owner:          "alice",
		Schedule:       sched,
		ScheduleSource: source,
		Enabled:        true,
		Command:        "SELECT '" + uuid.NewString() + "'",
		Timeout:        time.Minute,
	}
}

func TestPqStoreCrudShouldDoIt(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	id, err := store.CreateJob(ctx, uniqueJob(t, "30 4 * * *"))
	require.NoError(t, err)
	defer func() { assert.NoError(t, store.DeleteJob(ctx, id)) }()

	job, err := store.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice", job.Owner)
	require.NotNil(t, job.Schedule)
	assert.Equal(t, []int{30}, job.Schedule.Minutes())
	assert.Equal(t, []int{4}, job.Schedule.Hours())

	job.Description = "nightly refresh"
	job.Enabled = false
	require.NoError(t, store.UpdateJob(ctx, job))

	job, err = store.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "nightly refresh", job.Description)
	assert.False(t, job.Enabled)

	_, err = store.GetJob(ctx, id+1000000)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestPqStoreShouldRejectDuplicateIdentity(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	job := uniqueJob(t, "@daily")
	id, err := store.CreateJob(ctx, job)
	require.NoError(t, err)
	defer func() { assert.NoError(t, store.DeleteJob(ctx, id)) }()

	_, err = store.CreateJob(ctx, job)
	assert.ErrorIs(t, err, ErrDuplicateJob)

	// A different command is a different identity.
	other := job
	other.Command = "SELECT '" + uuid.NewString() + "'"
	otherID, err := store.CreateJob(ctx, other)
	require.NoError(t, err)
	assert.NoError(t, store.DeleteJob(ctx, otherID))
}

func TestPqStoreDueJobsShouldMatchByArrayMembership(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		source string
		at     time.Time
		due    bool
	}{
		{
			name:   "crontab due",
			source: "30 4 * * *",
			at:     time.Date(2025, 6, 2, 4, 30, 0, 0, time.UTC),
			due:    true,
		},
		{
			name:   "crontab not due",
			source: "30 4 * * *",
			at:     time.Date(2025, 6, 2, 4, 31, 0, 0, time.UTC),
			due:    false,
		},
		{
			name:   "dom dow disjunction fires on dow",
			source: "0 0 1 * 1",
			at:     time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC), // a Monday, not the 1st
			due:    true,
		},
		{
			name:   "timestamp due at exact minute",
			source: `{"2042-12-05 13:37 +00"}`,
			at:     time.Date(2042, 12, 5, 13, 37, 30, 0, time.UTC),
			due:    true,
		},
		{
			name:   "timestamp not due a minute later",
			source: `{"2042-12-05 13:37 +00"}`,
			at:     time.Date(2042, 12, 5, 13, 38, 0, 0, time.UTC),
			due:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := store.CreateJob(ctx, uniqueJob(t, tt.source))
			require.NoError(t, err)
			defer func() { assert.NoError(t, store.DeleteJob(ctx, id)) }()

			due, err := store.DueJobs(ctx, tt.at)
			require.NoError(t, err)

			found := false
			for _, job := range due {
				if job.JobID == id {
					found = true
				}
			}
			assert.Equal(t, tt.due, found)
		})
	}
}

func TestPqStoreDisabledJobsShouldNeverBeDue(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	job := uniqueJob(t, "* * * * *")
	job.Enabled = false
	id, err := store.CreateJob(ctx, job)
	require.NoError(t, err)
	defer func() { assert.NoError(t, store.DeleteJob(ctx, id)) }()

	due, err := store.DueJobs(ctx, time.Now())
	require.NoError(t, err)
	for _, j := range due {
		assert.NotEqual(t, id, j.JobID)
	}
}

func TestPqStoreClaimShouldBeExclusive(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	id, err := store.CreateJob(ctx, uniqueJob(t, "@hourly"))
	require.NoError(t, err)
	defer func() { assert.NoError(t, store.DeleteJob(ctx, id)) }()

	until := time.Now().Add(time.Minute)

	ok, err := store.ClaimJob(ctx, "worker-a", id, until)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.ClaimJob(ctx, "worker-b", id, until)
	require.NoError(t, err)
	assert.False(t, ok)

	// Only the holder can release.
	ok, err = store.ReleaseJob(ctx, "worker-b", id)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.ReleaseJob(ctx, "worker-a", id)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.ClaimJob(ctx, "worker-b", id, until)
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = store.ReleaseJob(ctx, "worker-b", id)
	assert.NoError(t, err)
}

func TestPqStoreRecordOutcomeShouldIncrementAtomically(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	id, err := store.CreateJob(ctx, uniqueJob(t, "@daily"))
	require.NoError(t, err)
	defer func() { assert.NoError(t, store.DeleteJob(ctx, id)) }()

	const runs = 8
	done := make(chan error, runs)
	for i := 0; i < runs; i++ {
		go func(success bool) {
			done <- store.RecordOutcome(ctx, id, success)
		}(i%2 == 0)
	}
	for i := 0; i < runs; i++ {
		require.NoError(t, <-done)
	}

	job, err := store.GetJob(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, runs/2, job.SuccessCount)
	assert.EqualValues(t, runs/2, job.FailureCount)
}

func TestPqStoreDeleteShouldKeepHistory(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	id, err := store.CreateJob(ctx, uniqueJob(t, "@daily"))
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, store.AppendRunLog(ctx, RunLog{
		RunID:     uuid.NewString(),
		JobID:     &id,
		Actor:     "worker-a",
		Function:  "run_job",
		StartedAt: now,
		Success:   true,
	}))

	require.NoError(t, store.AppendJobLog(ctx, JobLog{
		StartedAt:    now,
		FinishedAt:   now.Add(time.Second),
		Command:      "SELECT 1",
		Success:      true,
		OwnerName:    "alice",
		DatabaseName: "app",
	}))

	// Deleting the job nulls the run log's reference instead of
	// cascading; both log rows survive.
	require.NoError(t, store.DeleteJob(ctx, id))
	_, err = store.GetJob(ctx, id)
	assert.ErrorIs(t, err, ErrJobNotFound)
}
