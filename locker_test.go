package pgjob

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLockerShouldAdmitExactlyOneHolder(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	const attempts = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := locker.TryAcquire(ctx, 42)
			require.NoError(t, err)
			if ok {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, admitted)

	// Other job ids are unaffected.
	ok, err := locker.TryAcquire(ctx, 43)
	require.NoError(t, err)
	assert.True(t, ok)

	// Releasing re-admits.
	require.NoError(t, locker.Release(ctx, 42))
	ok, err = locker.TryAcquire(ctx, 42)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockerShouldGateAdmission(t *testing.T) {
	addr := os.Getenv("PGJOB_TEST_REDIS")
	if addr == "" {
		t.Skip("PGJOB_TEST_REDIS not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	locker := NewRedisLocker(client, time.Minute)
	t.Cleanup(func() { _ = locker.Release(ctx, 42) })

	ok, err := locker.TryAcquire(ctx, 42)
	require.NoError(t, err)
	require.True(t, ok)

	// A second claimant, even through a separate client, is refused.
	other := redis.NewClient(&redis.Options{Addr: addr})
	defer other.Close()

	ok, err = NewRedisLocker(other, time.Minute).TryAcquire(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, locker.Release(ctx, 42))
	ok, err = locker.TryAcquire(ctx, 42)
	require.NoError(t, err)
	assert.True(t, ok)
}
