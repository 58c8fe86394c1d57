package timer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/gridmatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLease struct {
	mu       sync.Mutex
	grant    bool
	acquires int
	releases int
}

func (f *fakeLease) Acquire(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquires++
	return f.grant, nil
}

func (f *fakeLease) Refresh(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.grant, nil
}

func (f *fakeLease) Release(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases++
	return nil
}

type syncStore struct {
	mu    sync.Mutex
	state models.TimerState
}

func (f *syncStore) GetTimerState(ctx context.Context) (*models.TimerState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.state
	return &s, nil
}

func (f *syncStore) UpdateTimerState(ctx context.Context, fn func(*models.TimerState) error) (*models.TimerState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.state
	if err := fn(&s); err != nil {
		return &s, err
	}
	f.state = s
	out := s
	return &out, nil
}

func (f *syncStore) remaining() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.RemainingSeconds
}

type nopBus struct{}

func (nopBus) Publish(channel string, v any) error { return nil }

type nopSessions struct{}

func (nopSessions) PauseActive(ctx context.Context) error      { return nil }
func (nopSessions) ActivateEligible(ctx context.Context) error { return nil }

func TestTickerRun_LeaderTicks(t *testing.T) {
	st := &syncStore{state: models.TimerState{RemainingSeconds: 10, IsRunning: true}}
	svc := NewService(st, nopBus{}, nopSessions{}, models.DefaultTimerSeconds)
	lease := &fakeLease{grant: true}
	clock := clockwork.NewFakeClock()

	tick := NewTicker(svc, lease, clock, "test-1")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = tick.Run(ctx)
	}()

	// Wait for the ticker to be armed, then advance three seconds.
	clock.BlockUntil(1)
	for i := 0; i < 3; i++ {
		clock.Advance(time.Second)
		require.Eventually(t, func() bool {
			return st.remaining() == 10-(i+1)
		}, time.Second, time.Millisecond)
	}

	cancel()
	<-done

	assert.Equal(t, 7, st.remaining())
	assert.Equal(t, 1, lease.releases)
}

func TestTickerRun_NonLeaderStandsBy(t *testing.T) {
	st := &syncStore{state: models.TimerState{RemainingSeconds: 10, IsRunning: true}}
	svc := NewService(st, nopBus{}, nopSessions{}, models.DefaultTimerSeconds)
	lease := &fakeLease{grant: false}
	clock := clockwork.NewFakeClock()

	tick := NewTicker(svc, lease, clock, "test-2")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = tick.Run(ctx)
	}()

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	require.Eventually(t, func() bool {
		lease.mu.Lock()
		defer lease.mu.Unlock()
		return lease.acquires >= 1
	}, time.Second, time.Millisecond)

	cancel()
	<-done

	// Never held the lease, never ticked, nothing to release.
	assert.Equal(t, 10, st.remaining())
	assert.Equal(t, 0, lease.releases)
}
