// Package match owns the waiting queue and pairs newly arrived users with
// waiting ones. It is the only place sessions are created.
package match

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/gridmatch/internal/events"
	"github.com/mcdev12/gridmatch/internal/models"
	"github.com/mcdev12/gridmatch/internal/store"
	"github.com/rs/zerolog/log"
)

// Store defines what the coordinator needs from the shared store.
type Store interface {
	PopWaiting(ctx context.Context) (string, error)
	PushWaiting(ctx context.Context, userID string) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
	PutGame(ctx context.Context, g *models.GameSession) error
	GetTimerState(ctx context.Context) (*models.TimerState, error)
}

// Bus defines what the coordinator needs from the shared bus.
type Bus interface {
	Publish(channel string, v any) error
}

// Sessions defines what the coordinator needs from the game service.
type Sessions interface {
	PublishSnapshot(ctx context.Context) error
}

// Coordinator pairs users strictly FIFO and one-to-one.
type Coordinator struct {
	store    Store
	bus      Bus
	sessions Sessions
}

// NewCoordinator creates a match coordinator.
func NewCoordinator(st Store, bus Bus, sessions Sessions) *Coordinator {
	return &Coordinator{store: st, bus: bus, sessions: sessions}
}

// Result reports the outcome of a match request.
type Result struct {
	Queued  bool
	Session *models.GameSession
}

// RequestMatch pairs the user with the longest-waiting opponent, or queues
// them when none is available. A popped entry whose user record has vanished
// is discarded and the pop retried, so one stale slot no longer aborts the
// requester's attempt. No user is ever matched against themselves.
func (c *Coordinator) RequestMatch(ctx context.Context, userID string) (*Result, error) {
	for {
		opponentID, err := c.store.PopWaiting(ctx)
		if errors.Is(err, store.ErrQueueEmpty) || (err == nil && opponentID == userID) {
			if err := c.store.PushWaiting(ctx, userID); err != nil {
				return nil, fmt.Errorf("queue user %s: %w", userID, err)
			}
			log.Info().Str("user_id", userID).Msg("user queued for matchmaking")
			return &Result{Queued: true}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("pop waiting queue: %w", err)
		}

		player1, err := c.store.GetUser(ctx, opponentID)
		if errors.Is(err, store.ErrNotFound) {
			// Stale queue entry: the waiting user's record is gone.
			log.Warn().Str("user_id", opponentID).Msg("discarding stale waiting queue entry")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load waiting user %s: %w", opponentID, err)
		}

		player2, err := c.store.GetUser(ctx, userID)
		if err != nil {
			// The requester's own record is missing. Put the opponent
			// back so their slot is not lost.
			if pushErr := c.store.PushWaiting(ctx, opponentID); pushErr != nil {
				log.Error().Err(pushErr).Str("user_id", opponentID).Msg("failed to re-queue waiting user")
			}
			return nil, fmt.Errorf("load requesting user %s: %w", userID, err)
		}

		g, err := c.createSession(ctx, player1, player2)
		if err != nil {
			return nil, err
		}
		return &Result{Session: g}, nil
	}
}

// createSession builds and persists the session, then announces it.
func (c *Coordinator) createSession(ctx context.Context, player1, player2 *models.User) (*models.GameSession, error) {
	g := &models.GameSession{
		ID:          uuid.New().String(),
		Player1ID:   player1.ID,
		Player2ID:   player2.ID,
		Player1Name: player1.Name,
		Player2Name: player2.Name,
		Board:       models.NewBoard(),
		CurrentTurn: models.TurnPlayer1,
		Status:      models.GameStatusWaiting,
		Winner:      models.WinnerNone,
	}

	timer, err := c.store.GetTimerState(ctx)
	if err != nil {
		return nil, fmt.Errorf("load timer state: %w", err)
	}
	if timer.IsRunning && !timer.IsPaused && timer.RemainingSeconds > 0 {
		g.Status = models.GameStatusActive
	}

	if err := c.store.PutGame(ctx, g); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	log.Info().
		Str("session_id", g.ID).
		Str("player1", player1.Name).
		Str("player2", player2.Name).
		Str("status", string(g.Status)).
		Msg("session created")

	matched, err := events.NewMatchedEvent(g)
	if err != nil {
		return nil, err
	}
	if err := c.bus.Publish(events.ChannelGame, matched); err != nil {
		return nil, fmt.Errorf("publish matched event: %w", err)
	}

	state, err := events.NewStateEvent(g)
	if err != nil {
		return nil, err
	}
	if err := c.bus.Publish(events.ChannelGame, state); err != nil {
		return nil, fmt.Errorf("publish state event: %w", err)
	}

	if err := c.sessions.PublishSnapshot(ctx); err != nil {
		log.Error().Err(err).Msg("failed to publish games snapshot after match")
	}
	return g, nil
}
