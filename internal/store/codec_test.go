package store

import (
	"encoding/json"
	"testing"

	"github.com/mcdev12/gridmatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameSessionRoundTrip(t *testing.T) {
	g := &models.GameSession{
		ID:          "7d4c0c1e-2f51-4f27-9f05-0758c8c0a001",
		Player1ID:   "alice",
		Player2ID:   "bob",
		Player1Name: "Alice",
		Player2Name: "Bob",
		Board: []models.Mark{
			"X", "O", "X",
			"", "O", "",
			"", "", "",
		},
		CurrentTurn: models.TurnPlayer2,
		Status:      models.GameStatusActive,
		Winner:      models.WinnerNone,
		Player1Wins: 2,
		Player2Wins: 1,
		Version:     7,
	}

	data, err := json.Marshal(g)
	require.NoError(t, err)

	got, err := decodeGame(data)
	require.NoError(t, err)
	assert.Equal(t, g, got)
}

func TestDecodeGameRejectsCorruptRecords(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{"id":`},
		{"short board", `{"id":"g1","player1Id":"a","player2Id":"b","board":["","",""],"currentTurn":"player1","status":"waiting","winner":"none"}`},
		{"invalid mark", `{"id":"g1","player1Id":"a","player2Id":"b","board":["Z","","","","","","","",""],"currentTurn":"player1","status":"waiting","winner":"none"}`},
		{"invalid status", `{"id":"g1","player1Id":"a","player2Id":"b","board":["","","","","","","","",""],"currentTurn":"player1","status":"running","winner":"none"}`},
		{"winner without ended", `{"id":"g1","player1Id":"a","player2Id":"b","board":["","","","","","","","",""],"currentTurn":"player1","status":"active","winner":"player1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeGame([]byte(tt.raw))
			assert.ErrorIs(t, err, ErrCorruptRecord)
		})
	}
}

func TestTimerStateRoundTrip(t *testing.T) {
	state := &models.TimerState{RemainingSeconds: 120, IsRunning: true, IsPaused: true, Version: 3}

	data, err := json.Marshal(state)
	require.NoError(t, err)

	got, err := decodeTimer(data)
	require.NoError(t, err)
	assert.Equal(t, state, got)

	_, err = decodeTimer([]byte(`{"remainingSeconds":-1}`))
	assert.ErrorIs(t, err, ErrCorruptRecord)
}

func TestUserAndStatsRoundTrip(t *testing.T) {
	u := &models.User{ID: "u1", Name: "Alice", ConnectionID: "c1", Version: 1}
	data, err := json.Marshal(u)
	require.NoError(t, err)
	got, err := decodeUser(data)
	require.NoError(t, err)
	assert.Equal(t, u, got)

	stats := &models.UserStats{Wins: 4, Losses: 2, Version: 6}
	data, err = json.Marshal(stats)
	require.NoError(t, err)
	gotStats, err := decodeStats(data)
	require.NoError(t, err)
	assert.Equal(t, stats, gotStats)

	_, err = decodeStats([]byte(`{"wins":-1,"losses":0}`))
	assert.ErrorIs(t, err, ErrCorruptRecord)
}
