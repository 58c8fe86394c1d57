// Package events defines the closed set of messages carried on the shared
// bus. Each channel has a fixed schema; a corrupt or unexpected payload is
// rejected at the boundary rather than propagated.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/gridmatch/internal/models"
)

// Bus channel names. One channel per logical event family.
const (
	ChannelGame  = "match.events.game"
	ChannelTimer = "match.events.timer"
	ChannelGames = "match.events.games"
)

// GameEventType tags the variants carried on the game channel.
type GameEventType string

const (
	GameEventState   GameEventType = "state"
	GameEventMatched GameEventType = "matched"
	GameEventEnded   GameEventType = "ended"
)

// GameEvent is the envelope for everything published on the game channel.
type GameEvent struct {
	ID        string          `json:"id"`
	SessionID string          `json:"sessionId"`
	Type      GameEventType   `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// StatePayload carries the full session after a state transition.
type StatePayload struct {
	Session models.GameSession `json:"session"`
}

// PlayerRef identifies one seat of a match.
type PlayerRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MatchedPayload announces a freshly created session to both players.
type MatchedPayload struct {
	SessionID string    `json:"sessionId"`
	Player1   PlayerRef `json:"player1"`
	Player2   PlayerRef `json:"player2"`
}

// EndedPayload carries everything observers need at match conclusion, so no
// further lookups are required.
type EndedPayload struct {
	Session     models.GameSession `json:"session"`
	Winner      models.WinnerTag   `json:"winner"`
	Player1Name string             `json:"player1Name"`
	Player2Name string             `json:"player2Name"`
}

// SessionSummary is a session enriched with both players' cumulative stats,
// as shown on the admin dashboard.
type SessionSummary struct {
	models.GameSession
	Player1TotalWins   int `json:"player1TotalWins"`
	Player1TotalLosses int `json:"player1TotalLosses"`
	Player2TotalWins   int `json:"player2TotalWins"`
	Player2TotalLosses int `json:"player2TotalLosses"`
}

// GamesSnapshot is the aggregated games-list published on the games channel.
type GamesSnapshot struct {
	Sessions []SessionSummary `json:"sessions"`
}

func newGameEvent(sessionID string, eventType GameEventType, payload any) (*GameEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &GameEvent{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}

// NewStateEvent wraps a session state transition for the game channel.
func NewStateEvent(g *models.GameSession) (*GameEvent, error) {
	return newGameEvent(g.ID, GameEventState, StatePayload{Session: *g})
}

// NewMatchedEvent wraps a pairing announcement for the game channel.
func NewMatchedEvent(g *models.GameSession) (*GameEvent, error) {
	return newGameEvent(g.ID, GameEventMatched, MatchedPayload{
		SessionID: g.ID,
		Player1:   PlayerRef{ID: g.Player1ID, Name: g.Player1Name},
		Player2:   PlayerRef{ID: g.Player2ID, Name: g.Player2Name},
	})
}

// NewEndedEvent wraps a match conclusion for the game channel.
func NewEndedEvent(g *models.GameSession) (*GameEvent, error) {
	return newGameEvent(g.ID, GameEventEnded, EndedPayload{
		Session:     *g,
		Winner:      g.Winner,
		Player1Name: g.Player1Name,
		Player2Name: g.Player2Name,
	})
}

// DecodeGameEvent parses a raw game-channel message and its typed payload.
// Unknown variants and malformed payloads are rejected.
func DecodeGameEvent(data []byte) (*GameEvent, any, error) {
	var event GameEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, nil, fmt.Errorf("unmarshal game event envelope: %w", err)
	}
	if event.SessionID == "" {
		return nil, nil, fmt.Errorf("game event %s has no session id", event.ID)
	}

	switch event.Type {
	case GameEventState:
		var payload StatePayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, nil, fmt.Errorf("unmarshal state payload: %w", err)
		}
		if err := payload.Session.Validate(); err != nil {
			return nil, nil, fmt.Errorf("invalid session in state event: %w", err)
		}
		return &event, payload, nil

	case GameEventMatched:
		var payload MatchedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, nil, fmt.Errorf("unmarshal matched payload: %w", err)
		}
		if payload.Player1.ID == "" || payload.Player2.ID == "" {
			return nil, nil, fmt.Errorf("matched event %s is missing a player", event.ID)
		}
		return &event, payload, nil

	case GameEventEnded:
		var payload EndedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, nil, fmt.Errorf("unmarshal ended payload: %w", err)
		}
		if err := payload.Session.Validate(); err != nil {
			return nil, nil, fmt.Errorf("invalid session in ended event: %w", err)
		}
		return &event, payload, nil

	default:
		return nil, nil, fmt.Errorf("unknown game event type %q", event.Type)
	}
}

// DecodeTimerState parses and validates a timer-channel message.
func DecodeTimerState(data []byte) (*models.TimerState, error) {
	var state models.TimerState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshal timer state: %w", err)
	}
	if err := state.Validate(); err != nil {
		return nil, fmt.Errorf("invalid timer state: %w", err)
	}
	return &state, nil
}

// DecodeGamesSnapshot parses and validates a games-channel message.
func DecodeGamesSnapshot(data []byte) (*GamesSnapshot, error) {
	var snapshot GamesSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal games snapshot: %w", err)
	}
	for i := range snapshot.Sessions {
		if err := snapshot.Sessions[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid session in games snapshot: %w", err)
		}
	}
	return &snapshot, nil
}
