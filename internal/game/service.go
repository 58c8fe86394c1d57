// Package game owns the lifecycle of individual match sessions: it validates
// moves, applies the rules engine, drives state transitions and updates
// player statistics.
package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/mcdev12/gridmatch/internal/events"
	"github.com/mcdev12/gridmatch/internal/models"
	"github.com/mcdev12/gridmatch/internal/rules"
	"github.com/mcdev12/gridmatch/internal/store"
	"github.com/rs/zerolog/log"
)

// Store defines what the service needs from the shared store.
type Store interface {
	GetGame(ctx context.Context, gameID string) (*models.GameSession, error)
	ListGames(ctx context.Context) ([]*models.GameSession, error)
	UpdateGame(ctx context.Context, gameID string, fn func(*models.GameSession) error) (*models.GameSession, error)
	GetStats(ctx context.Context, userID string) (*models.UserStats, error)
	UpdateStats(ctx context.Context, userID string, fn func(*models.UserStats) error) (*models.UserStats, error)
}

// Bus defines what the service needs from the shared bus.
type Bus interface {
	Publish(channel string, v any) error
}

// Service is the game session machine.
type Service struct {
	store Store
	bus   Bus
}

// NewService creates a game session service.
func NewService(st Store, bus Bus) *Service {
	return &Service{store: st, bus: bus}
}

// ApplyMove places the acting user's mark at position and drives the session
// through its state machine. The whole read-validate-mutate runs inside the
// store's optimistic update, so two racing moves against the same session
// serialize: the retried one re-validates against the winner's board and is
// rejected as illegal instead of clobbering it.
func (s *Service) ApplyMove(ctx context.Context, sessionID string, position int, userID string) (*models.GameSession, error) {
	g, err := s.store.UpdateGame(ctx, sessionID, func(g *models.GameSession) error {
		if !rules.LegalMove(g, position, userID) {
			return ErrIllegalMove
		}

		g.Board[position] = rules.SymbolFor(g, userID)
		g.CurrentTurn = rules.NextTurn(g.CurrentTurn)

		switch rules.Evaluate(g.Board) {
		case rules.ResultX:
			g.Status = models.GameStatusEnded
			g.Winner = models.WinnerPlayer1
			g.Player1Wins++
		case rules.ResultO:
			g.Status = models.GameStatusEnded
			g.Winner = models.WinnerPlayer2
			g.Player2Wins++
		case rules.ResultDraw:
			g.Status = models.GameStatusEnded
			g.Winner = models.WinnerDraw
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("apply move: %w", ErrSessionNotFound)
		}
		return nil, fmt.Errorf("apply move to session %s: %w", sessionID, err)
	}

	// Stats and events happen exactly once, after the winning write.
	if g.Ended() {
		if err := s.recordConclusion(ctx, g); err != nil {
			log.Error().Err(err).Str("session_id", g.ID).Msg("failed to record match conclusion stats")
		}
	}

	s.publishState(g)
	if g.Ended() {
		s.publishEnded(g)
		log.Info().
			Str("session_id", g.ID).
			Str("winner", string(g.Winner)).
			Msg("session ended")
	}
	if err := s.PublishSnapshot(ctx); err != nil {
		log.Error().Err(err).Msg("failed to publish games snapshot")
	}
	return g, nil
}

// recordConclusion updates both players' cumulative stats. Draws change
// nothing.
func (s *Service) recordConclusion(ctx context.Context, g *models.GameSession) error {
	var winnerID, loserID string
	switch g.Winner {
	case models.WinnerPlayer1:
		winnerID, loserID = g.Player1ID, g.Player2ID
	case models.WinnerPlayer2:
		winnerID, loserID = g.Player2ID, g.Player1ID
	default:
		return nil
	}

	if _, err := s.store.UpdateStats(ctx, winnerID, func(st *models.UserStats) error {
		st.Wins++
		return nil
	}); err != nil {
		return fmt.Errorf("increment wins for %s: %w", winnerID, err)
	}
	if _, err := s.store.UpdateStats(ctx, loserID, func(st *models.UserStats) error {
		st.Losses++
		return nil
	}); err != nil {
		return fmt.Errorf("increment losses for %s: %w", loserID, err)
	}
	return nil
}

// PauseActive transitions every active session to paused and refreshes the
// games snapshot. Used by the timer service on stop, pause and expiry.
func (s *Service) PauseActive(ctx context.Context) error {
	games, err := s.store.ListGames(ctx)
	if err != nil {
		return fmt.Errorf("pause active sessions: %w", err)
	}
	for _, g := range games {
		if g.Status != models.GameStatusActive {
			continue
		}
		updated, err := s.store.UpdateGame(ctx, g.ID, func(g *models.GameSession) error {
			if g.Status != models.GameStatusActive {
				return store.ErrNoChange
			}
			g.Status = models.GameStatusPaused
			return nil
		})
		if errors.Is(err, store.ErrNoChange) {
			continue
		}
		if err != nil {
			return fmt.Errorf("pause session %s: %w", g.ID, err)
		}
		s.publishState(updated)
	}
	return s.PublishSnapshot(ctx)
}

// ActivateEligible transitions every waiting or paused session without a
// winner to active and refreshes the games snapshot. Used by the timer
// service on start and resume.
func (s *Service) ActivateEligible(ctx context.Context) error {
	games, err := s.store.ListGames(ctx)
	if err != nil {
		return fmt.Errorf("activate eligible sessions: %w", err)
	}
	for _, g := range games {
		if !eligibleForActivation(g) {
			continue
		}
		updated, err := s.store.UpdateGame(ctx, g.ID, func(g *models.GameSession) error {
			if !eligibleForActivation(g) {
				return store.ErrNoChange
			}
			g.Status = models.GameStatusActive
			return nil
		})
		if errors.Is(err, store.ErrNoChange) {
			continue
		}
		if err != nil {
			return fmt.Errorf("activate session %s: %w", g.ID, err)
		}
		s.publishState(updated)
	}
	return s.PublishSnapshot(ctx)
}

func eligibleForActivation(g *models.GameSession) bool {
	if g.Winner != models.WinnerNone {
		return false
	}
	return g.Status == models.GameStatusWaiting || g.Status == models.GameStatusPaused
}

// FindOpenSessionFor returns the user's non-ended session, or nil when they
// have none. Supports rejoin after a disconnect.
func (s *Service) FindOpenSessionFor(ctx context.Context, userID string) (*models.GameSession, error) {
	games, err := s.store.ListGames(ctx)
	if err != nil {
		return nil, fmt.Errorf("find open session for %s: %w", userID, err)
	}
	for _, g := range games {
		if g.HasPlayer(userID) && !g.Ended() {
			return g, nil
		}
	}
	return nil, nil
}

// GetSession loads a session by id.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*models.GameSession, error) {
	g, err := s.store.GetGame(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	return g, err
}

func (s *Service) publishState(g *models.GameSession) {
	event, err := events.NewStateEvent(g)
	if err != nil {
		log.Error().Err(err).Str("session_id", g.ID).Msg("failed to build state event")
		return
	}
	if err := s.bus.Publish(events.ChannelGame, event); err != nil {
		log.Error().Err(err).Str("session_id", g.ID).Msg("failed to publish state event")
	}
}

func (s *Service) publishEnded(g *models.GameSession) {
	event, err := events.NewEndedEvent(g)
	if err != nil {
		log.Error().Err(err).Str("session_id", g.ID).Msg("failed to build ended event")
		return
	}
	if err := s.bus.Publish(events.ChannelGame, event); err != nil {
		log.Error().Err(err).Str("session_id", g.ID).Msg("failed to publish ended event")
	}
}
