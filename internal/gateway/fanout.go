package gateway

import (
	"github.com/mcdev12/gridmatch/internal/events"
	"github.com/rs/zerolog/log"
)

// RoomEmitter defines what the fan-out needs from the connection manager.
type RoomEmitter interface {
	EmitToRoom(room, event string, payload any)
	JoinUserToRoom(userID, room string)
}

// Subscriber defines what the fan-out needs from the shared bus.
type Subscriber interface {
	Subscribe(channel string, handler func(data []byte)) error
}

// Fanout subscribes to the bus channels and re-emits each event to the
// local rooms it concerns. This is the sole mechanism by which a mutation
// performed on one process becomes visible to viewers connected to another.
type Fanout struct {
	rooms RoomEmitter
}

// NewFanout creates a fan-out over the local room registry.
func NewFanout(rooms RoomEmitter) *Fanout {
	return &Fanout{rooms: rooms}
}

// Attach subscribes the fan-out to all bus channels.
func (f *Fanout) Attach(sub Subscriber) error {
	if err := sub.Subscribe(events.ChannelGame, f.handleGame); err != nil {
		return err
	}
	if err := sub.Subscribe(events.ChannelTimer, f.handleTimer); err != nil {
		return err
	}
	if err := sub.Subscribe(events.ChannelGames, f.handleGames); err != nil {
		return err
	}
	log.Info().Msg("fan-out subscribed to bus channels")
	return nil
}

// handleGame routes game-channel events to the session's room. A matched
// event additionally pulls the two players' local connections into the room
// before the announcement, so both see it regardless of which process
// created the session.
func (f *Fanout) handleGame(data []byte) {
	event, payload, err := events.DecodeGameEvent(data)
	if err != nil {
		log.Error().Err(err).Msg("rejecting malformed game event")
		return
	}

	room := RoomGame(event.SessionID)
	switch p := payload.(type) {
	case events.StatePayload:
		f.rooms.EmitToRoom(room, EventGameState, p.Session)
	case events.MatchedPayload:
		f.rooms.JoinUserToRoom(p.Player1.ID, room)
		f.rooms.JoinUserToRoom(p.Player2.ID, room)
		f.rooms.EmitToRoom(room, EventGameMatched, p)
	case events.EndedPayload:
		f.rooms.EmitToRoom(room, EventGameEnded, p)
	}

	log.Debug().
		Str("session_id", event.SessionID).
		Str("type", string(event.Type)).
		Msg("game event fanned out")
}

// handleTimer routes timer state to all players and admins.
func (f *Fanout) handleTimer(data []byte) {
	state, err := events.DecodeTimerState(data)
	if err != nil {
		log.Error().Err(err).Msg("rejecting malformed timer event")
		return
	}
	f.rooms.EmitToRoom(RoomAllPlayers, EventTimerUpdate, state)
	f.rooms.EmitToRoom(RoomAdmin, EventTimerUpdate, state)
}

// handleGames routes the aggregated games list to admins only.
func (f *Fanout) handleGames(data []byte) {
	snapshot, err := events.DecodeGamesSnapshot(data)
	if err != nil {
		log.Error().Err(err).Msg("rejecting malformed games snapshot")
		return
	}
	f.rooms.EmitToRoom(RoomAdmin, EventGamesList, snapshot.Sessions)
}
