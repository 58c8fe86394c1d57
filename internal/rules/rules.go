// Package rules is the pure evaluation core for the 3x3 board. It holds no
// state and performs no I/O.
package rules

import "github.com/mcdev12/gridmatch/internal/models"

// Result is the outcome of evaluating a board.
type Result string

const (
	ResultX    Result = "X"
	ResultO    Result = "O"
	ResultDraw Result = "draw"
	ResultNone Result = "none"
)

// lines are the 8 canonical winning patterns: 3 rows, 3 columns, 2 diagonals.
var lines = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Evaluate maps a board to its outcome. In a legally reached board at most
// one line can be complete at evaluation time, so check order is
// inconsequential.
func Evaluate(board []models.Mark) Result {
	for _, line := range lines {
		a, b, c := board[line[0]], board[line[1]], board[line[2]]
		if a != models.MarkEmpty && a == b && a == c {
			return Result(a)
		}
	}
	for _, cell := range board {
		if cell == models.MarkEmpty {
			return ResultNone
		}
	}
	return ResultDraw
}

// LegalMove reports whether the acting user may place a mark at position.
// The session must be active, the position in range and empty, and the
// acting user must own the seat whose turn it is.
func LegalMove(g *models.GameSession, position int, userID string) bool {
	if position < 0 || position >= models.BoardSize {
		return false
	}
	if g.Status != models.GameStatusActive {
		return false
	}
	if g.Board[position] != models.MarkEmpty {
		return false
	}
	switch g.CurrentTurn {
	case models.TurnPlayer1:
		return g.Player1ID == userID
	case models.TurnPlayer2:
		return g.Player2ID == userID
	}
	return false
}

// SymbolFor returns the mark the given user plays with. Player 1 is always X.
func SymbolFor(g *models.GameSession, userID string) models.Mark {
	if g.Player1ID == userID {
		return models.MarkX
	}
	return models.MarkO
}

// NextTurn flips the acting seat.
func NextTurn(turn models.TurnRole) models.TurnRole {
	if turn == models.TurnPlayer1 {
		return models.TurnPlayer2
	}
	return models.TurnPlayer1
}
