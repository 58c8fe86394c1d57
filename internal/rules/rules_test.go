package rules

import (
	"testing"

	"github.com/mcdev12/gridmatch/internal/models"
	"github.com/stretchr/testify/assert"
)

func board(cells ...string) []models.Mark {
	b := models.NewBoard()
	for i, c := range cells {
		b[i] = models.Mark(c)
	}
	return b
}

func TestEvaluate_WinningLines(t *testing.T) {
	tests := []struct {
		name string
		line [3]int
	}{
		{"top row", [3]int{0, 1, 2}},
		{"middle row", [3]int{3, 4, 5}},
		{"bottom row", [3]int{6, 7, 8}},
		{"left column", [3]int{0, 3, 6}},
		{"middle column", [3]int{1, 4, 7}},
		{"right column", [3]int{2, 5, 8}},
		{"main diagonal", [3]int{0, 4, 8}},
		{"anti diagonal", [3]int{2, 4, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, mark := range []models.Mark{models.MarkX, models.MarkO} {
				b := models.NewBoard()
				for _, pos := range tt.line {
					b[pos] = mark
				}
				assert.Equal(t, Result(mark), Evaluate(b))
			}
		})
	}
}

func TestEvaluate_Draw(t *testing.T) {
	// Full board with no completed line.
	b := board("X", "O", "X", "X", "O", "O", "O", "X", "X")
	assert.Equal(t, ResultDraw, Evaluate(b))
}

func TestEvaluate_InProgress(t *testing.T) {
	assert.Equal(t, ResultNone, Evaluate(models.NewBoard()))

	// One empty cell, no completed line.
	b := board("X", "O", "X", "X", "O", "O", "O", "X", "")
	assert.Equal(t, ResultNone, Evaluate(b))
}

func activeSession() *models.GameSession {
	return &models.GameSession{
		ID:          "g1",
		Player1ID:   "alice",
		Player2ID:   "bob",
		Board:       models.NewBoard(),
		CurrentTurn: models.TurnPlayer1,
		Status:      models.GameStatusActive,
		Winner:      models.WinnerNone,
	}
}

func TestLegalMove(t *testing.T) {
	t.Run("permissive default", func(t *testing.T) {
		assert.True(t, LegalMove(activeSession(), 4, "alice"))
	})

	t.Run("position out of range", func(t *testing.T) {
		g := activeSession()
		assert.False(t, LegalMove(g, -1, "alice"))
		assert.False(t, LegalMove(g, 9, "alice"))
	})

	t.Run("occupied cell", func(t *testing.T) {
		g := activeSession()
		g.Board[4] = models.MarkO
		assert.False(t, LegalMove(g, 4, "alice"))
	})

	t.Run("session not active", func(t *testing.T) {
		for _, status := range []models.GameStatus{
			models.GameStatusWaiting,
			models.GameStatusPaused,
			models.GameStatusEnded,
		} {
			g := activeSession()
			g.Status = status
			assert.False(t, LegalMove(g, 4, "alice"), "status %s", status)
		}
	})

	t.Run("wrong turn ownership", func(t *testing.T) {
		g := activeSession()
		assert.False(t, LegalMove(g, 4, "bob"))

		g.CurrentTurn = models.TurnPlayer2
		assert.False(t, LegalMove(g, 4, "alice"))
		assert.True(t, LegalMove(g, 4, "bob"))
	})

	t.Run("unknown user", func(t *testing.T) {
		assert.False(t, LegalMove(activeSession(), 4, "mallory"))
	})
}

func TestSymbolFor(t *testing.T) {
	g := activeSession()
	assert.Equal(t, models.MarkX, SymbolFor(g, "alice"))
	assert.Equal(t, models.MarkO, SymbolFor(g, "bob"))
}

func TestNextTurn(t *testing.T) {
	assert.Equal(t, models.TurnPlayer2, NextTurn(models.TurnPlayer1))
	assert.Equal(t, models.TurnPlayer1, NextTurn(models.TurnPlayer2))
}
