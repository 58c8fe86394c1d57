package game

import (
	"context"
	"errors"
	"testing"

	"github.com/mcdev12/gridmatch/internal/events"
	"github.com/mcdev12/gridmatch/internal/models"
	"github.com/mcdev12/gridmatch/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore mimics the repository's optimistic update semantics in memory.
type fakeStore struct {
	games map[string]*models.GameSession
	stats map[string]*models.UserStats
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		games: make(map[string]*models.GameSession),
		stats: make(map[string]*models.UserStats),
	}
}

func cloneGame(g *models.GameSession) *models.GameSession {
	c := *g
	c.Board = append([]models.Mark(nil), g.Board...)
	return &c
}

func (f *fakeStore) GetGame(ctx context.Context, id string) (*models.GameSession, error) {
	g, ok := f.games[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneGame(g), nil
}

func (f *fakeStore) ListGames(ctx context.Context) ([]*models.GameSession, error) {
	var out []*models.GameSession
	for _, g := range f.games {
		out = append(out, cloneGame(g))
	}
	return out, nil
}

func (f *fakeStore) UpdateGame(ctx context.Context, id string, fn func(*models.GameSession) error) (*models.GameSession, error) {
	g, ok := f.games[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := cloneGame(g)
	if err := fn(c); err != nil {
		return c, err
	}
	c.Version++
	f.games[id] = cloneGame(c)
	return c, nil
}

func (f *fakeStore) GetStats(ctx context.Context, userID string) (*models.UserStats, error) {
	s, ok := f.stats[userID]
	if !ok {
		s = &models.UserStats{}
		f.stats[userID] = s
	}
	c := *s
	return &c, nil
}

func (f *fakeStore) UpdateStats(ctx context.Context, userID string, fn func(*models.UserStats) error) (*models.UserStats, error) {
	s, ok := f.stats[userID]
	if !ok {
		s = &models.UserStats{}
	}
	c := *s
	if err := fn(&c); err != nil {
		return &c, err
	}
	c.Version++
	f.stats[userID] = &c
	out := c
	return &out, nil
}

// fakeBus records every published message.
type fakeBus struct {
	published []busMessage
}

type busMessage struct {
	channel string
	payload any
}

func (f *fakeBus) Publish(channel string, v any) error {
	f.published = append(f.published, busMessage{channel: channel, payload: v})
	return nil
}

func (f *fakeBus) gameEvents(eventType events.GameEventType) []*events.GameEvent {
	var out []*events.GameEvent
	for _, m := range f.published {
		if m.channel != events.ChannelGame {
			continue
		}
		if e, ok := m.payload.(*events.GameEvent); ok && e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeBus) snapshots() []*events.GamesSnapshot {
	var out []*events.GamesSnapshot
	for _, m := range f.published {
		if m.channel != events.ChannelGames {
			continue
		}
		if s, ok := m.payload.(*events.GamesSnapshot); ok {
			out = append(out, s)
		}
	}
	return out
}

func activeSession(id string) *models.GameSession {
	return &models.GameSession{
		ID:          id,
		Player1ID:   "alice",
		Player2ID:   "bob",
		Player1Name: "Alice",
		Player2Name: "Bob",
		Board:       models.NewBoard(),
		CurrentTurn: models.TurnPlayer1,
		Status:      models.GameStatusActive,
		Winner:      models.WinnerNone,
	}
}

func setup() (*Service, *fakeStore, *fakeBus) {
	st := newFakeStore()
	b := &fakeBus{}
	return NewService(st, b), st, b
}

func TestApplyMove_LegalMove(t *testing.T) {
	svc, st, b := setup()
	st.games["g1"] = activeSession("g1")

	g, err := svc.ApplyMove(context.Background(), "g1", 4, "alice")
	require.NoError(t, err)

	// Only the targeted cell changed, and the turn flipped.
	assert.Equal(t, models.MarkX, g.Board[4])
	for i, cell := range g.Board {
		if i != 4 {
			assert.Equal(t, models.MarkEmpty, cell, "cell %d", i)
		}
	}
	assert.Equal(t, models.TurnPlayer2, g.CurrentTurn)
	assert.Equal(t, models.GameStatusActive, g.Status)
	assert.Equal(t, models.WinnerNone, g.Winner)

	assert.Len(t, b.gameEvents(events.GameEventState), 1)
	assert.Empty(t, b.gameEvents(events.GameEventEnded))
	assert.Len(t, b.snapshots(), 1)
}

func TestApplyMove_IllegalMoveRejectedWithoutSideEffects(t *testing.T) {
	svc, st, b := setup()
	st.games["g1"] = activeSession("g1")

	_, err := svc.ApplyMove(context.Background(), "g1", 4, "bob")
	assert.ErrorIs(t, err, ErrIllegalMove)

	// No state change, no event.
	stored := st.games["g1"]
	assert.Equal(t, models.NewBoard(), stored.Board)
	assert.Equal(t, models.TurnPlayer1, stored.CurrentTurn)
	assert.Empty(t, b.published)
}

func TestApplyMove_SessionNotFound(t *testing.T) {
	svc, _, b := setup()

	_, err := svc.ApplyMove(context.Background(), "missing", 0, "alice")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Empty(t, b.published)
}

func TestApplyMove_LeftColumnWinConcludesSession(t *testing.T) {
	svc, st, b := setup()

	g := activeSession("g1")
	g.Board = []models.Mark{"X", "O", "X", "X", "O", "O", "", "", ""}
	st.games["g1"] = g

	got, err := svc.ApplyMove(context.Background(), "g1", 6, "alice")
	require.NoError(t, err)

	// Left column 0,3,6 is X,X,X.
	assert.Equal(t, []models.Mark{"X", "O", "X", "X", "O", "O", "X", "", ""}, got.Board)
	assert.Equal(t, models.GameStatusEnded, got.Status)
	assert.Equal(t, models.WinnerPlayer1, got.Winner)
	assert.Equal(t, 1, got.Player1Wins)
	assert.Equal(t, 0, got.Player2Wins)

	// Cumulative stats: winner's wins and loser's losses increment.
	assert.Equal(t, 1, st.stats["alice"].Wins)
	assert.Equal(t, 0, st.stats["alice"].Losses)
	assert.Equal(t, 1, st.stats["bob"].Losses)
	assert.Equal(t, 0, st.stats["bob"].Wins)

	require.Len(t, b.gameEvents(events.GameEventEnded), 1)
	assert.Len(t, b.gameEvents(events.GameEventState), 1)
	assert.Len(t, b.snapshots(), 1)
}

func TestApplyMove_DrawEndsWithoutStatsChange(t *testing.T) {
	svc, st, b := setup()

	g := activeSession("g1")
	g.Board = []models.Mark{"X", "O", "X", "X", "O", "O", "O", "X", ""}
	st.games["g1"] = g

	got, err := svc.ApplyMove(context.Background(), "g1", 8, "alice")
	require.NoError(t, err)

	assert.Equal(t, models.GameStatusEnded, got.Status)
	assert.Equal(t, models.WinnerDraw, got.Winner)
	assert.Equal(t, 0, got.Player1Wins)
	assert.Equal(t, 0, got.Player2Wins)

	// The snapshot read lazily seeds both stats records; a draw leaves
	// them at zero.
	require.Contains(t, st.stats, "alice")
	require.Contains(t, st.stats, "bob")
	assert.Equal(t, 0, st.stats["alice"].Wins)
	assert.Equal(t, 0, st.stats["alice"].Losses)
	assert.Equal(t, 0, st.stats["bob"].Wins)
	assert.Equal(t, 0, st.stats["bob"].Losses)

	assert.Len(t, b.gameEvents(events.GameEventEnded), 1)
}

func TestApplyMove_EndedSessionIsImmutable(t *testing.T) {
	svc, st, _ := setup()

	g := activeSession("g1")
	g.Status = models.GameStatusEnded
	g.Winner = models.WinnerPlayer1
	st.games["g1"] = g

	_, err := svc.ApplyMove(context.Background(), "g1", 8, "bob")
	assert.ErrorIs(t, err, ErrIllegalMove)
}

func TestPauseActive(t *testing.T) {
	svc, st, b := setup()

	st.games["active"] = activeSession("active")
	waiting := activeSession("waiting")
	waiting.Status = models.GameStatusWaiting
	st.games["waiting"] = waiting
	ended := activeSession("ended")
	ended.Status = models.GameStatusEnded
	ended.Winner = models.WinnerDraw
	st.games["ended"] = ended

	require.NoError(t, svc.PauseActive(context.Background()))

	assert.Equal(t, models.GameStatusPaused, st.games["active"].Status)
	assert.Equal(t, models.GameStatusWaiting, st.games["waiting"].Status)
	assert.Equal(t, models.GameStatusEnded, st.games["ended"].Status)

	// One state event for the paused session plus the snapshot.
	assert.Len(t, b.gameEvents(events.GameEventState), 1)
	assert.Len(t, b.snapshots(), 1)
}

func TestActivateEligible(t *testing.T) {
	svc, st, _ := setup()

	waiting := activeSession("waiting")
	waiting.Status = models.GameStatusWaiting
	st.games["waiting"] = waiting
	paused := activeSession("paused")
	paused.Status = models.GameStatusPaused
	st.games["paused"] = paused
	ended := activeSession("ended")
	ended.Status = models.GameStatusEnded
	ended.Winner = models.WinnerPlayer2
	st.games["ended"] = ended

	require.NoError(t, svc.ActivateEligible(context.Background()))

	assert.Equal(t, models.GameStatusActive, st.games["waiting"].Status)
	assert.Equal(t, models.GameStatusActive, st.games["paused"].Status)
	// ended is terminal, never reactivated
	assert.Equal(t, models.GameStatusEnded, st.games["ended"].Status)
}

func TestFindOpenSessionFor(t *testing.T) {
	svc, st, _ := setup()

	open := activeSession("open")
	st.games["open"] = open
	done := activeSession("done")
	done.Status = models.GameStatusEnded
	done.Winner = models.WinnerDraw
	st.games["done"] = done

	g, err := svc.FindOpenSessionFor(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, "open", g.ID)

	g, err = svc.FindOpenSessionFor(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestGetSession(t *testing.T) {
	svc, st, _ := setup()
	st.games["g1"] = activeSession("g1")

	g, err := svc.GetSession(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "g1", g.ID)

	_, err = svc.GetSession(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}
