package gateway

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/mcdev12/gridmatch/internal/events"
	"github.com/mcdev12/gridmatch/internal/game"
	"github.com/mcdev12/gridmatch/internal/match"
	"github.com/mcdev12/gridmatch/internal/models"
	"github.com/rs/zerolog/log"
)

// Users defines what the router needs for identity records.
type Users interface {
	PutUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

// Matchmaker defines what the router needs from the match coordinator.
type Matchmaker interface {
	RequestMatch(ctx context.Context, userID string) (*match.Result, error)
}

// Games defines what the router needs from the game session machine.
type Games interface {
	ApplyMove(ctx context.Context, sessionID string, position int, userID string) (*models.GameSession, error)
	FindOpenSessionFor(ctx context.Context, userID string) (*models.GameSession, error)
	Snapshot(ctx context.Context) (*events.GamesSnapshot, error)
}

// Timer defines what the router needs from the timer service.
type Timer interface {
	State(ctx context.Context) (*models.TimerState, error)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	AddMinute(ctx context.Context) error
	SubtractMinute(ctx context.Context) error
}

// Router dispatches client messages to the core services. Errors scoped to
// a single operation are reported to the acting connection only; nothing
// here brings down the process.
type Router struct {
	cm         *ConnectionManager
	users      Users
	matchmaker Matchmaker
	games      Games
	timer      Timer
}

// NewRouter creates a message router.
func NewRouter(cm *ConnectionManager, users Users, matchmaker Matchmaker, games Games, timer Timer) *Router {
	return &Router{cm: cm, users: users, matchmaker: matchmaker, games: games, timer: timer}
}

// Handle processes one raw client message.
func (rt *Router) Handle(ctx context.Context, conn *Connection, raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		rt.cm.SendTo(conn, EventError, ErrorPayload{Message: "malformed message"})
		return
	}

	switch msg.Type {
	case MsgUserLogin:
		rt.handleLogin(ctx, conn, msg.Data)
	case MsgUserRejoin:
		rt.handleRejoin(ctx, conn, msg.Data)
	case MsgUserMakeMove:
		rt.handleMakeMove(ctx, conn, msg.Data)
	case MsgAdminJoin:
		rt.handleAdminJoin(ctx, conn)
	case MsgAdminStartGame:
		rt.handleAdminCommand(ctx, conn, msg.Type, rt.timer.Start)
	case MsgAdminStopGame:
		rt.handleAdminCommand(ctx, conn, msg.Type, rt.timer.Stop)
	case MsgAdminPauseTimer:
		rt.handleAdminCommand(ctx, conn, msg.Type, rt.timer.Pause)
	case MsgAdminResumeTimer:
		rt.handleAdminCommand(ctx, conn, msg.Type, rt.timer.Resume)
	case MsgAdminAddMinute:
		rt.handleAdminCommand(ctx, conn, msg.Type, rt.timer.AddMinute)
	case MsgAdminSubtractMinute:
		rt.handleAdminCommand(ctx, conn, msg.Type, rt.timer.SubtractMinute)
	default:
		log.Warn().Str("type", msg.Type).Msg("unknown client message type")
		rt.cm.SendTo(conn, EventError, ErrorPayload{Message: "unknown message type"})
	}
}

func (rt *Router) handleLogin(ctx context.Context, conn *Connection, data json.RawMessage) {
	var req LoginRequest
	if err := json.Unmarshal(data, &req); err != nil || req.Name == "" {
		rt.cm.SendTo(conn, EventError, ErrorPayload{Message: "login requires a name"})
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = uuid.New().String()
	}

	user := &models.User{ID: userID, Name: req.Name, ConnectionID: conn.ID}
	if err := rt.users.PutUser(ctx, user); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("failed to store user")
		rt.cm.SendTo(conn, EventError, ErrorPayload{Message: "login failed"})
		return
	}

	rt.cm.SetUser(conn, userID)
	rt.cm.JoinRoom(conn, RoomAllPlayers)

	// Confirm first so the client holds its id before any match event.
	rt.cm.SendTo(conn, EventLoginResponse, LoginResponse{UserID: userID, Name: req.Name})
	rt.sendTimerState(ctx, conn)

	log.Info().Str("user_id", userID).Str("name", req.Name).Msg("user logged in")

	result, err := rt.matchmaker.RequestMatch(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("matchmaking failed")
		return
	}
	if result.Session != nil {
		log.Info().
			Str("user_id", userID).
			Str("session_id", result.Session.ID).
			Msg("user matched on login")
	}
}

func (rt *Router) handleRejoin(ctx context.Context, conn *Connection, data json.RawMessage) {
	var req RejoinRequest
	if err := json.Unmarshal(data, &req); err != nil || req.UserID == "" {
		rt.cm.SendTo(conn, EventError, ErrorPayload{Message: "rejoin requires a userId"})
		return
	}

	user, err := rt.users.GetUser(ctx, req.UserID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", req.UserID).Msg("rejoin for unknown user")
		rt.cm.SendTo(conn, EventError, ErrorPayload{Message: "unknown user"})
		return
	}

	user.ConnectionID = conn.ID
	if err := rt.users.PutUser(ctx, user); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("failed to update user connection")
	}

	rt.cm.SetUser(conn, user.ID)
	rt.cm.JoinRoom(conn, RoomAllPlayers)

	// Put the user back into their open session, if any.
	g, err := rt.games.FindOpenSessionFor(ctx, user.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("failed to look up open session")
	} else if g != nil {
		rt.cm.JoinRoom(conn, RoomGame(g.ID))
		rt.cm.SendTo(conn, EventGameState, g)
	}

	rt.sendTimerState(ctx, conn)
	log.Info().Str("user_id", user.ID).Str("name", user.Name).Msg("user rejoined")
}

func (rt *Router) handleMakeMove(ctx context.Context, conn *Connection, data json.RawMessage) {
	userID := rt.cm.UserID(conn)
	if userID == "" {
		rt.cm.SendTo(conn, EventError, ErrorPayload{Message: "not logged in"})
		return
	}

	var req MoveRequest
	if err := json.Unmarshal(data, &req); err != nil || req.SessionID == "" {
		rt.cm.SendTo(conn, EventError, ErrorPayload{Message: "malformed move"})
		return
	}

	_, err := rt.games.ApplyMove(ctx, req.SessionID, req.Position, userID)
	switch {
	case errors.Is(err, game.ErrSessionNotFound):
		rt.cm.SendTo(conn, EventError, ErrorPayload{Message: "session not found"})
	case errors.Is(err, game.ErrIllegalMove):
		rt.cm.SendTo(conn, EventError, ErrorPayload{Message: "invalid move"})
	case err != nil:
		log.Error().Err(err).Str("session_id", req.SessionID).Msg("apply move failed")
		rt.cm.SendTo(conn, EventError, ErrorPayload{Message: "move failed"})
	}
}

func (rt *Router) handleAdminJoin(ctx context.Context, conn *Connection) {
	rt.cm.JoinRoom(conn, RoomAdmin)
	rt.sendTimerState(ctx, conn)

	snapshot, err := rt.games.Snapshot(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to build games snapshot for admin")
		return
	}
	rt.cm.SendTo(conn, EventGamesList, snapshot.Sessions)
	log.Info().Str("connection_id", conn.ID).Msg("admin joined")
}

func (rt *Router) handleAdminCommand(ctx context.Context, conn *Connection, name string, op func(context.Context) error) {
	if err := op(ctx); err != nil {
		log.Error().Err(err).Str("command", name).Msg("admin command failed")
		rt.cm.SendTo(conn, EventError, ErrorPayload{Message: "command failed"})
		return
	}
	log.Info().Str("command", name).Msg("admin command applied")
}

func (rt *Router) sendTimerState(ctx context.Context, conn *Connection) {
	state, err := rt.timer.State(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to load timer state")
		return
	}
	rt.cm.SendTo(conn, EventTimerUpdate, state)
}
