package server

import (
	"encoding/json"

	"github.com/gameroomdev/gameroom/pkg/games"
)

// Event names accepted from clients.
const (
	EvtRoomJoin   = "ROOM_JOIN"
	EvtRoomLeave  = "ROOM_LEAVE"
	EvtRoomTheme  = "ROOM_THEME"
	EvtGameStart  = "GAME_START"
	EvtGameAction = "GAME_ACTION"
	EvtChatJoin   = "chat:join"
	EvtChatSend   = "chat:send"
)

// Event names emitted to clients.
const (
	EvtRoomUpdate         = "ROOM_UPDATE"
	EvtGameState          = "GAME_STATE"
	EvtGameTokenMove      = "GAME_TOKEN_MOVE"
	EvtGameWinner         = "GAME_WINNER"
	EvtTurnTimeoutWarning = "TURN_TIMEOUT_WARNING"
	EvtTurnTimeoutCleared = "TURN_TIMEOUT_CLEARED"
	EvtTurnAutoPlayed     = "TURN_AUTO_PLAYED"
	EvtError              = "ERROR"
	EvtChatMessage        = "chat:message"
	EvtChatHistory        = "chat:history"
)

// Frame is the name-addressed wire envelope for every event in both
// directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// RoomJoinPayload seats a player in a room, or reconnects them.
type RoomJoinPayload struct {
	RoomCode    string `json:"roomCode"`
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
}

// RoomThemePayload is the host-only cosmetic broadcast.
type RoomThemePayload struct {
	RoomCode string `json:"roomCode"`
	ThemeID  string `json:"themeId"`
}

// GameStartPayload starts a game; Options carries kind-specific init such
// as a chess time control.
type GameStartPayload struct {
	RoomCode string          `json:"roomCode"`
	Options  json.RawMessage `json:"options,omitempty"`
}

// GameActionPayload routes one engine action.
type GameActionPayload struct {
	RoomCode string          `json:"roomCode"`
	Action   string          `json:"action"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// ChatSendPayload posts a chat line to the sender's room.
type ChatSendPayload struct {
	RoomCode string `json:"roomCode"`
	Message  string `json:"message"`
}

// RoomUpdatePayload mirrors the room roster after any membership change.
type RoomUpdatePayload struct {
	RoomCode string     `json:"roomCode"`
	Seats    []SeatInfo `json:"seats"`
	HostID   string     `json:"hostId"`
	Status   RoomStatus `json:"status"`
	ThemeID  string     `json:"themeId,omitempty"`
}

// SeatInfo is the public view of one seat.
type SeatInfo struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	SeatIndex   int    `json:"seatIndex"`
	IsConnected bool   `json:"isConnected"`
	IsReady     bool   `json:"isReady"`
}

// GameStartedPayload announces a successfully started game.
type GameStartedPayload struct {
	RoomCode string     `json:"roomCode"`
	Kind     games.Kind `json:"kind"`
	Players  []SeatInfo `json:"players"`
	State    any        `json:"state"`
}

// GameStatePayload is the per-viewer projection after any accepted action.
type GameStatePayload struct {
	RoomCode         string   `json:"roomCode"`
	State            any      `json:"state"`
	AvailableActions []string `json:"availableActions"`
	LastAction       string   `json:"lastAction,omitempty"`
	Reconnected      bool     `json:"reconnected,omitempty"`
}

// GameTokenMovePayload carries animation hints for move-type actions.
type GameTokenMovePayload struct {
	RoomCode string           `json:"roomCode"`
	Steps    []games.MoveStep `json:"steps"`
}

// LeaderboardEntry is one row of the final standings.
type LeaderboardEntry struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	SeatIndex   int    `json:"seatIndex"`
	Place       int    `json:"place"`
}

// GameWinnerPayload closes out a finished game.
type GameWinnerPayload struct {
	RoomCode    string             `json:"roomCode"`
	Winner      *SeatInfo          `json:"winner,omitempty"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	IsDraw      bool               `json:"isDraw,omitempty"`
	GameResult  string             `json:"gameResult,omitempty"`
}

// TurnTimeoutWarningPayload ticks once per second while a timer is armed.
type TurnTimeoutWarningPayload struct {
	RoomCode         string `json:"roomCode"`
	PlayerIndex      int    `json:"playerIndex"`
	SecondsRemaining int    `json:"secondsRemaining"`
	IsDisconnected   bool   `json:"isDisconnected"`
}

// TurnTimeoutClearedPayload announces a cancelled timer.
type TurnTimeoutClearedPayload struct {
	RoomCode    string `json:"roomCode"`
	PlayerIndex int    `json:"playerIndex"`
}

// AutoPlayReason distinguishes a timeout move from an elimination.
type AutoPlayReason string

const (
	ReasonTimeout    AutoPlayReason = "timeout"
	ReasonEliminated AutoPlayReason = "eliminated"
)

// TurnAutoPlayedPayload reports a fired timer's outcome.
type TurnAutoPlayedPayload struct {
	RoomCode      string         `json:"roomCode"`
	PlayerIndex   int            `json:"playerIndex"`
	Reason        AutoPlayReason `json:"reason"`
	AutoPlayCount int            `json:"autoPlayCount"`
	MaxAutoPlays  int            `json:"maxAutoPlays"`
}

// ErrorPayload is sent to the offending sender only.
type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ChatMessagePayload is a single chat line.
type ChatMessagePayload struct {
	RoomCode    string `json:"roomCode"`
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	Message     string `json:"message"`
	SentAtMs    int64  `json:"sentAtMs"`
}

// ChatHistoryPayload replays the bounded room history to a joining socket.
type ChatHistoryPayload struct {
	RoomCode string               `json:"roomCode"`
	Messages []ChatMessagePayload `json:"messages"`
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		// Payload structs are plain data; a marshal failure is a bug.
		panic(err)
	}
	return data
}
