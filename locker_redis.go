package pgjob

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisLockPrefix = "pgjob:lock:"

// RedisLocker is an AdmissionLocker shared by worker processes through
// Redis. Acquisition is a SET NX with a TTL, so a crashed worker's
// claim expires on its own.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl}
}

func (l *RedisLocker) TryAcquire(ctx context.Context, jobID int64) (bool, error) {
	return l.client.SetNX(ctx, l.key(jobID), "locked", l.ttl).Result()
}

func (l *RedisLocker) Release(ctx context.Context, jobID int64) error {
	return l.client.Del(ctx, l.key(jobID)).Err()
}

func (l *RedisLocker) key(jobID int64) string {
	return redisLockPrefix + strconv.FormatInt(jobID, 10)
}

var _ AdmissionLocker = (*RedisLocker)(nil)
