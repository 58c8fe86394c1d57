package timer

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Lease designates the single timer authority across the process pool.
type Lease interface {
	Acquire(ctx context.Context) (bool, error)
	Refresh(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Ticker fires the global tick once per wall-clock second on exactly one
// process. Every process runs a ticker, but only the current lease holder
// ticks; the others stand by and take over if the lease lapses.
type Ticker struct {
	svc        *Service
	lease      Lease
	clock      clockwork.Clock
	interval   time.Duration
	instanceID string
}

// NewTicker creates a ticker for this process instance.
func NewTicker(svc *Service, lease Lease, clock clockwork.Clock, instanceID string) *Ticker {
	return &Ticker{
		svc:        svc,
		lease:      lease,
		clock:      clock,
		interval:   time.Second,
		instanceID: instanceID,
	}
}

// Run drives the tick loop until ctx is cancelled, then releases the lease
// if held.
func (t *Ticker) Run(ctx context.Context) error {
	log.Info().Str("instance", t.instanceID).Msg("timer ticker started")

	ticker := t.clock.NewTicker(t.interval)
	defer ticker.Stop()

	leading := false
	defer func() {
		if leading {
			if err := t.lease.Release(context.Background()); err != nil {
				log.Error().Err(err).Str("instance", t.instanceID).Msg("failed to release timer lease")
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("instance", t.instanceID).Msg("timer ticker shutting down")
			return nil
		case <-ticker.Chan():
			leading = t.ensureLease(ctx, leading)
			if !leading {
				continue
			}
			if err := t.svc.Tick(ctx); err != nil {
				log.Error().Err(err).Str("instance", t.instanceID).Msg("tick failed")
			}
		}
	}
}

// ensureLease refreshes a held lease or tries to take a free one.
func (t *Ticker) ensureLease(ctx context.Context, leading bool) bool {
	if leading {
		ok, err := t.lease.Refresh(ctx)
		if err != nil {
			log.Error().Err(err).Str("instance", t.instanceID).Msg("lease refresh failed")
			return false
		}
		if !ok {
			log.Warn().Str("instance", t.instanceID).Msg("timer lease lost")
		}
		return ok
	}

	ok, err := t.lease.Acquire(ctx)
	if err != nil {
		log.Error().Err(err).Str("instance", t.instanceID).Msg("lease acquire failed")
		return false
	}
	if ok {
		log.Info().Str("instance", t.instanceID).Msg("acquired timer lease, ticking")
	}
	return ok
}
