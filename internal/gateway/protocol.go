package gateway

import "encoding/json"

// Client-to-server message types.
const (
	MsgUserLogin    = "user:login"
	MsgUserRejoin   = "user:rejoin"
	MsgUserMakeMove = "user:makeMove"

	MsgAdminJoin           = "admin:joinAdmin"
	MsgAdminStartGame      = "admin:startGame"
	MsgAdminStopGame       = "admin:stopGame"
	MsgAdminPauseTimer     = "admin:pauseTimer"
	MsgAdminResumeTimer    = "admin:resumeTimer"
	MsgAdminAddMinute      = "admin:addMinute"
	MsgAdminSubtractMinute = "admin:subtractMinute"
)

// Server-to-client event names.
const (
	EventLoginResponse = "user:loginResponse"
	EventTimerUpdate   = "timer:update"
	EventGameState     = "game:stateUpdate"
	EventGameMatched   = "game:matched"
	EventGameEnded     = "game:ended"
	EventGamesList     = "games:listUpdate"
	EventError         = "error"
)

// Room identifiers. One room per session plus the two global rooms.
const (
	RoomAdmin      = "room:admin"
	RoomAllPlayers = "room:all_players"
)

// RoomGame returns the room identifier for a session.
func RoomGame(sessionID string) string {
	return "room:game:" + sessionID
}

// ClientMessage is the envelope for everything a client sends.
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ServerMessage is the envelope for everything emitted to clients.
type ServerMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// LoginRequest carries a login. A missing userId means first login; the
// client stores the issued id and presents it on later sessions.
type LoginRequest struct {
	UserID string `json:"userId,omitempty"`
	Name   string `json:"name"`
}

// RejoinRequest resumes an identity after a reconnect.
type RejoinRequest struct {
	UserID string `json:"userId"`
}

// MoveRequest places a mark in a session.
type MoveRequest struct {
	SessionID string `json:"sessionId"`
	Position  int    `json:"position"`
}

// LoginResponse confirms a login and echoes the stable user id.
type LoginResponse struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

// ErrorPayload is reported to the acting connection only.
type ErrorPayload struct {
	Message string `json:"message"`
}
