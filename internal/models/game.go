package models

import "fmt"

// BoardSize is the number of cells on a board.
const BoardSize = 9

// Mark is the content of a single board cell.
type Mark string

const (
	MarkEmpty Mark = ""
	MarkX     Mark = "X"
	MarkO     Mark = "O"
)

// TurnRole identifies which seat moves next.
type TurnRole string

const (
	TurnPlayer1 TurnRole = "player1"
	TurnPlayer2 TurnRole = "player2"
)

// GameStatus defines the lifecycle state of a session.
type GameStatus string

const (
	GameStatusWaiting GameStatus = "waiting"
	GameStatusActive  GameStatus = "active"
	GameStatusPaused  GameStatus = "paused"
	GameStatusEnded   GameStatus = "ended"
)

// WinnerTag records how a session concluded.
type WinnerTag string

const (
	WinnerPlayer1 WinnerTag = "player1"
	WinnerPlayer2 WinnerTag = "player2"
	WinnerDraw    WinnerTag = "draw"
	WinnerNone    WinnerTag = "none"
)

// GameSession represents one match between two identified players. Player
// names are captured at match time so observers never need a user lookup.
type GameSession struct {
	ID          string     `json:"id"`
	Player1ID   string     `json:"player1Id"`
	Player2ID   string     `json:"player2Id"`
	Player1Name string     `json:"player1Name"`
	Player2Name string     `json:"player2Name"`
	Board       []Mark     `json:"board"`
	CurrentTurn TurnRole   `json:"currentTurn"`
	Status      GameStatus `json:"status"`
	Winner      WinnerTag  `json:"winner"`
	Player1Wins int        `json:"player1Wins"`
	Player2Wins int        `json:"player2Wins"`
	Version     int64      `json:"version"`
}

// NewBoard returns an empty 9-cell board.
func NewBoard() []Mark {
	return make([]Mark, BoardSize)
}

// Validate checks the session against its schema. A session that fails
// validation is treated as a corrupt record, never silently repaired.
func (g *GameSession) Validate() error {
	if g.ID == "" {
		return fmt.Errorf("session id is empty")
	}
	if g.Player1ID == "" || g.Player2ID == "" {
		return fmt.Errorf("session %s is missing a player id", g.ID)
	}
	if len(g.Board) != BoardSize {
		return fmt.Errorf("session %s has %d board cells, want %d", g.ID, len(g.Board), BoardSize)
	}
	for i, cell := range g.Board {
		switch cell {
		case MarkEmpty, MarkX, MarkO:
		default:
			return fmt.Errorf("session %s has invalid mark %q at cell %d", g.ID, cell, i)
		}
	}
	switch g.CurrentTurn {
	case TurnPlayer1, TurnPlayer2:
	default:
		return fmt.Errorf("session %s has invalid turn %q", g.ID, g.CurrentTurn)
	}
	switch g.Status {
	case GameStatusWaiting, GameStatusActive, GameStatusPaused, GameStatusEnded:
	default:
		return fmt.Errorf("session %s has invalid status %q", g.ID, g.Status)
	}
	switch g.Winner {
	case WinnerPlayer1, WinnerPlayer2, WinnerDraw, WinnerNone:
	default:
		return fmt.Errorf("session %s has invalid winner %q", g.ID, g.Winner)
	}
	// winner != none if and only if the session has ended
	if (g.Winner != WinnerNone) != (g.Status == GameStatusEnded) {
		return fmt.Errorf("session %s has winner %q with status %q", g.ID, g.Winner, g.Status)
	}
	if g.Player1Wins < 0 || g.Player2Wins < 0 {
		return fmt.Errorf("session %s has negative win counters", g.ID)
	}
	return nil
}

// Ended reports whether the session reached its terminal state.
func (g *GameSession) Ended() bool {
	return g.Status == GameStatusEnded
}

// HasPlayer reports whether the given user occupies either seat.
func (g *GameSession) HasPlayer(userID string) bool {
	return g.Player1ID == userID || g.Player2ID == userID
}
