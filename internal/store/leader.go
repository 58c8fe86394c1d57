package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// refreshScript extends the lease only while this instance still holds it.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// releaseScript deletes the lease only while this instance still holds it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LeaderLease is a store-backed lease designating the single process allowed
// to drive the global timer tick. Without it, N processes would each run
// their own interval and decrement the shared countdown N times per second.
type LeaderLease struct {
	rdb        *redis.Client
	instanceID string
	ttl        time.Duration
}

// NewLeaderLease creates a lease bound to this process instance.
func NewLeaderLease(rdb *redis.Client, instanceID string, ttl time.Duration) *LeaderLease {
	return &LeaderLease{rdb: rdb, instanceID: instanceID, ttl: ttl}
}

// Acquire attempts to take the lease. It reports false when another
// instance holds it.
func (l *LeaderLease) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, keyTimerLeader, l.instanceID, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire timer lease: %w", err)
	}
	return ok, nil
}

// Refresh extends the lease. It reports false when the lease was lost,
// e.g. after this process stalled past the TTL.
func (l *LeaderLease) Refresh(ctx context.Context) (bool, error) {
	res, err := refreshScript.Run(ctx, l.rdb, []string{keyTimerLeader}, l.instanceID, l.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("refresh timer lease: %w", err)
	}
	return res == 1, nil
}

// Release gives up the lease if this instance still holds it.
func (l *LeaderLease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.rdb, []string{keyTimerLeader}, l.instanceID).Err(); err != nil {
		return fmt.Errorf("release timer lease: %w", err)
	}
	return nil
}
