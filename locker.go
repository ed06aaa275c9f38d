package pgjob

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker is an AdmissionLocker for a single-process deployment.
// It shares no state across processes; use RedisLocker or the
// store-backed locker when several workers poll the same job table.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[int64]struct{}
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[int64]struct{})}
}

func (l *MemoryLocker) TryAcquire(_ context.Context, jobID int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[jobID]; ok {
		return false, nil
	}
	l.held[jobID] = struct{}{}
	return true, nil
}

func (l *MemoryLocker) Release(_ context.Context, jobID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.held, jobID)
	return nil
}

var _ AdmissionLocker = (*MemoryLocker)(nil)

// storeLocker adapts the JobStore's conditional-update claim to the
// AdmissionLocker interface.
type storeLocker struct {
	store     JobStore
	claimedBy string
	lease     time.Duration
	now       func() time.Time
}

// NewStoreLocker returns an AdmissionLocker backed by the store's
// ClaimJob/ReleaseJob. The lease bounds how long a crashed worker can
// keep a job claimed.
func NewStoreLocker(store JobStore, claimedBy string, lease time.Duration) AdmissionLocker {
	return &storeLocker{
		store:     store,
		claimedBy: claimedBy,
		lease:     lease,
		now:       time.Now,
	}
}

func (l *storeLocker) TryAcquire(ctx context.Context, jobID int64) (bool, error) {
	return l.store.ClaimJob(ctx, l.claimedBy, jobID, l.now().Add(l.lease))
}

func (l *storeLocker) Release(ctx context.Context, jobID int64) error {
	_, err := l.store.ReleaseJob(ctx, l.claimedBy, jobID)
	return err
}
