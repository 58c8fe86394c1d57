package gateway

import (
	"encoding/json"
	"testing"

	"github.com/mcdev12/gridmatch/internal/events"
	"github.com/mcdev12/gridmatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emitCall struct {
	room    string
	event   string
	payload any
}

type joinCall struct {
	userID string
	room   string
}

type fakeRooms struct {
	emits []emitCall
	joins []joinCall
}

func (f *fakeRooms) EmitToRoom(room, event string, payload any) {
	f.emits = append(f.emits, emitCall{room: room, event: event, payload: payload})
}

func (f *fakeRooms) JoinUserToRoom(userID, room string) {
	f.joins = append(f.joins, joinCall{userID: userID, room: room})
}

type fakeSub struct {
	handlers map[string]func([]byte)
}

func (f *fakeSub) Subscribe(channel string, handler func(data []byte)) error {
	if f.handlers == nil {
		f.handlers = make(map[string]func([]byte))
	}
	f.handlers[channel] = handler
	return nil
}

func testSession() *models.GameSession {
	return &models.GameSession{
		ID:          "session-1",
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

func attachFanout(t *testing.T) (*fakeRooms, *fakeSub) {
	t.Helper()
	rooms := &fakeRooms{}
	sub := &fakeSub{}
	require.NoError(t, NewFanout(rooms).Attach(sub))
	require.Len(t, sub.handlers, 3)
	return rooms, sub
}

func TestFanoutStateEventReachesGameRoom(t *testing.T) {
	rooms, sub := attachFanout(t)

	event, err := events.NewStateEvent(testSession())
	require.NoError(t, err)
	raw, err := json.Marshal(event)
	require.NoError(t, err)

	sub.handlers[events.ChannelGame](raw)

	require.Len(t, rooms.emits, 1)
	assert.Equal(t, RoomGame("session-1"), rooms.emits[0].room)
	assert.Equal(t, EventGameState, rooms.emits[0].event)
	session, ok := rooms.emits[0].payload.(models.GameSession)
	require.True(t, ok)
	assert.Equal(t, "session-1", session.ID)
	assert.Empty(t, rooms.joins)
}

func TestFanoutMatchedEventJoinsBothPlayersFirst(t *testing.T) {
	rooms, sub := attachFanout(t)

	event, err := events.NewMatchedEvent(testSession())
	require.NoError(t, err)
	raw, err := json.Marshal(event)
	require.NoError(t, err)

	sub.handlers[events.ChannelGame](raw)

	room := RoomGame("session-1")
	require.Len(t, rooms.joins, 2)
	assert.Equal(t, joinCall{userID: "alice", room: room}, rooms.joins[0])
	assert.Equal(t, joinCall{userID: "bob", room: room}, rooms.joins[1])

	require.Len(t, rooms.emits, 1)
	assert.Equal(t, room, rooms.emits[0].room)
	assert.Equal(t, EventGameMatched, rooms.emits[0].event)
}

func TestFanoutEndedEventReachesGameRoom(t *testing.T) {
	rooms, sub := attachFanout(t)

	ended := testSession()
	ended.Status = models.GameStatusEnded
	ended.Winner = models.WinnerPlayer1
	event, err := events.NewEndedEvent(ended)
	require.NoError(t, err)
	raw, err := json.Marshal(event)
	require.NoError(t, err)

	sub.handlers[events.ChannelGame](raw)

	require.Len(t, rooms.emits, 1)
	assert.Equal(t, EventGameEnded, rooms.emits[0].event)
	payload, ok := rooms.emits[0].payload.(events.EndedPayload)
	require.True(t, ok)
	assert.Equal(t, models.WinnerPlayer1, payload.Winner)
}

func TestFanoutTimerEventReachesPlayersAndAdmins(t *testing.T) {
	rooms, sub := attachFanout(t)

	state := models.TimerState{RemainingSeconds: 120, IsRunning: true}
	raw, err := json.Marshal(state)
	require.NoError(t, err)

	sub.handlers[events.ChannelTimer](raw)

	require.Len(t, rooms.emits, 2)
	assert.Equal(t, RoomAllPlayers, rooms.emits[0].room)
	assert.Equal(t, EventTimerUpdate, rooms.emits[0].event)
	assert.Equal(t, RoomAdmin, rooms.emits[1].room)
	assert.Equal(t, EventTimerUpdate, rooms.emits[1].event)
}

func TestFanoutGamesSnapshotReachesAdminsOnly(t *testing.T) {
	rooms, sub := attachFanout(t)

	snapshot := events.GamesSnapshot{Sessions: []events.SessionSummary{
		{GameSession: *testSession(), Player1TotalWins: 3},
	}}
	raw, err := json.Marshal(snapshot)
	require.NoError(t, err)

	sub.handlers[events.ChannelGames](raw)

	require.Len(t, rooms.emits, 1)
	assert.Equal(t, RoomAdmin, rooms.emits[0].room)
	assert.Equal(t, EventGamesList, rooms.emits[0].event)
}

func TestFanoutRejectsMalformedEvents(t *testing.T) {
	tests := []struct {
		name    string
		channel string
		raw     []byte
	}{
		{"game not json", events.ChannelGame, []byte("{broken")},
		{"game unknown type", events.ChannelGame, []byte(`{"id":"e1","sessionId":"s1","type":"mystery","data":{}}`)},
		{"game missing session", events.ChannelGame, []byte(`{"id":"e1","type":"state","data":{}}`)},
		{"timer negative", events.ChannelTimer, []byte(`{"remainingSeconds":-5}`)},
		{"games invalid session", events.ChannelGames, []byte(`{"sessions":[{"id":""}]}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rooms, sub := attachFanout(t)
			sub.handlers[tt.channel](tt.raw)
			assert.Empty(t, rooms.emits)
			assert.Empty(t, rooms.joins)
		})
	}
}
