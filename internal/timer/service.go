// Package timer drives the single global countdown shared by every active
// match. The state lives in the shared store; every operation is a versioned
// read-modify-write that publishes the post-mutation state so all processes
// converge.
package timer

import (
	"context"
	"errors"
	"fmt"

	"github.com/mcdev12/gridmatch/internal/events"
	"github.com/mcdev12/gridmatch/internal/models"
	"github.com/mcdev12/gridmatch/internal/store"
	"github.com/rs/zerolog/log"
)

// Store defines what the service needs from the shared store.
type Store interface {
	GetTimerState(ctx context.Context) (*models.TimerState, error)
	UpdateTimerState(ctx context.Context, fn func(*models.TimerState) error) (*models.TimerState, error)
}

// Bus defines what the service needs from the shared bus.
type Bus interface {
	Publish(channel string, v any) error
}

// Sessions defines what the service needs from the game session machine.
type Sessions interface {
	PauseActive(ctx context.Context) error
	ActivateEligible(ctx context.Context) error
}

// Service implements the admin timer operations and the per-second tick.
// Every admin operation is idempotent with respect to its guard: calling it
// while the guard is false is a silent no-op, not an error.
type Service struct {
	store          Store
	bus            Bus
	sessions       Sessions
	defaultSeconds int
}

// NewService creates a timer service counting down from defaultSeconds.
func NewService(st Store, bus Bus, sessions Sessions, defaultSeconds int) *Service {
	if defaultSeconds <= 0 {
		defaultSeconds = models.DefaultTimerSeconds
	}
	return &Service{store: st, bus: bus, sessions: sessions, defaultSeconds: defaultSeconds}
}

// State returns the current global timer state.
func (s *Service) State(ctx context.Context) (*models.TimerState, error) {
	return s.store.GetTimerState(ctx)
}

// Start begins (or restarts) the countdown and activates every eligible
// session. An expired countdown is reset to the default.
func (s *Service) Start(ctx context.Context) error {
	state, err := s.store.UpdateTimerState(ctx, func(t *models.TimerState) error {
		t.IsRunning = true
		t.IsPaused = false
		if t.RemainingSeconds == 0 {
			t.RemainingSeconds = s.defaultSeconds
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("start timer: %w", err)
	}

	if err := s.sessions.ActivateEligible(ctx); err != nil {
		log.Error().Err(err).Msg("failed to activate sessions on start")
	}
	s.publish(state)
	log.Info().Int("remaining", state.RemainingSeconds).Msg("timer started")
	return nil
}

// Stop halts the countdown, resets it to the default and pauses every
// active session.
func (s *Service) Stop(ctx context.Context) error {
	state, err := s.store.UpdateTimerState(ctx, func(t *models.TimerState) error {
		t.IsRunning = false
		t.IsPaused = false
		t.RemainingSeconds = s.defaultSeconds
		return nil
	})
	if err != nil {
		return fmt.Errorf("stop timer: %w", err)
	}

	if err := s.sessions.PauseActive(ctx); err != nil {
		log.Error().Err(err).Msg("failed to pause sessions on stop")
	}
	s.publish(state)
	log.Info().Msg("timer stopped")
	return nil
}

// Pause suspends a running countdown and pauses every active session.
func (s *Service) Pause(ctx context.Context) error {
	state, err := s.store.UpdateTimerState(ctx, func(t *models.TimerState) error {
		if !t.IsRunning || t.IsPaused {
			return store.ErrNoChange
		}
		t.IsPaused = true
		return nil
	})
	if errors.Is(err, store.ErrNoChange) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("pause timer: %w", err)
	}

	if err := s.sessions.PauseActive(ctx); err != nil {
		log.Error().Err(err).Msg("failed to pause sessions on pause")
	}
	s.publish(state)
	log.Info().Msg("timer paused")
	return nil
}

// Resume continues a paused countdown and reactivates eligible sessions.
func (s *Service) Resume(ctx context.Context) error {
	state, err := s.store.UpdateTimerState(ctx, func(t *models.TimerState) error {
		if !t.IsRunning || !t.IsPaused {
			return store.ErrNoChange
		}
		t.IsPaused = false
		return nil
	})
	if errors.Is(err, store.ErrNoChange) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("resume timer: %w", err)
	}

	if err := s.sessions.ActivateEligible(ctx); err != nil {
		log.Error().Err(err).Msg("failed to activate sessions on resume")
	}
	s.publish(state)
	log.Info().Msg("timer resumed")
	return nil
}

// AddMinute adds 60 seconds. Only effective while paused.
func (s *Service) AddMinute(ctx context.Context) error {
	state, err := s.store.UpdateTimerState(ctx, func(t *models.TimerState) error {
		if !t.IsPaused {
			return store.ErrNoChange
		}
		t.RemainingSeconds += 60
		return nil
	})
	if errors.Is(err, store.ErrNoChange) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("add minute: %w", err)
	}

	s.publish(state)
	log.Info().Int("remaining", state.RemainingSeconds).Msg("added a minute")
	return nil
}

// SubtractMinute removes 60 seconds. Only effective while paused and with
// at least a full minute remaining.
func (s *Service) SubtractMinute(ctx context.Context) error {
	state, err := s.store.UpdateTimerState(ctx, func(t *models.TimerState) error {
		if !t.IsPaused || t.RemainingSeconds < 60 {
			return store.ErrNoChange
		}
		t.RemainingSeconds -= 60
		return nil
	})
	if errors.Is(err, store.ErrNoChange) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("subtract minute: %w", err)
	}

	s.publish(state)
	log.Info().Int("remaining", state.RemainingSeconds).Msg("subtracted a minute")
	return nil
}

// Tick advances the countdown by one second. When the countdown reaches
// exactly zero, every active session is paused; isRunning and isPaused are
// left unchanged, the countdown simply stops advancing.
func (s *Service) Tick(ctx context.Context) error {
	state, err := s.store.UpdateTimerState(ctx, func(t *models.TimerState) error {
		if !t.IsRunning || t.IsPaused || t.RemainingSeconds <= 0 {
			return store.ErrNoChange
		}
		t.RemainingSeconds--
		return nil
	})
	if errors.Is(err, store.ErrNoChange) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("tick: %w", err)
	}

	s.publish(state)

	if state.RemainingSeconds == 0 {
		log.Info().Msg("countdown expired, pausing active sessions")
		if err := s.sessions.PauseActive(ctx); err != nil {
			log.Error().Err(err).Msg("failed to pause sessions on expiry")
		}
	}
	return nil
}

func (s *Service) publish(state *models.TimerState) {
	if err := s.bus.Publish(events.ChannelTimer, state); err != nil {
		log.Error().Err(err).Msg("failed to publish timer state")
	}
}
