package server

import (
	"encoding/json"
	"time"

	"github.com/gameroomdev/gameroom/pkg/games"
)

// joinPayload extends ROOM_JOIN with the kind used when the join creates
// the room. Rooms provisioned out of band already carry theirs.
type joinPayload struct {
	RoomJoinPayload
	Kind string `json:"kind,omitempty"`
}

func (s *Server) handleRoomJoin(sock *Socket, data json.RawMessage) {
	var req joinPayload
	if err := json.Unmarshal(data, &req); err != nil || req.RoomCode == "" || req.PlayerID == "" {
		s.sendError(sock, "ROOM_JOIN needs roomCode and playerId", "bad_payload")
		return
	}
	code := NormalizeRoomCode(req.RoomCode)

	room, ok := s.room(code)
	if !ok {
		kind, err := games.ParseKind(req.Kind)
		if err != nil {
			s.sendError(sock, "room "+code+" not found", "room_not_found")
			return
		}
		room = s.getOrCreateRoom(code, kind)
	}

	sock.BindPlayer(req.PlayerID, req.DisplayName)
	s.sockets.JoinRoom(sock, code)

	room.Lock()
	defer room.Unlock()

	if seat := room.SeatOf(req.PlayerID); seat != nil {
		// Reconnection: refresh the flag and replay state privately.
		seat.Connected = true
		if err := s.db.SetSeatConnected(code, req.PlayerID, true); err != nil {
			s.log.Warnf("Failed to persist connection flag: %v", err)
		}
		s.broadcastRoomUpdate(room)
		if engine, ok := s.store.Get(code); ok && room.Status == RoomPlaying {
			view := engine.ProjectFor(req.PlayerID)
			sock.Send(EvtGameState, GameStatePayload{
				RoomCode:         code,
				State:            view.State,
				AvailableActions: view.AvailableActions,
				Reconnected:      true,
			})
			s.evaluateTimer(room, engine)
		}
		sock.Send(EvtChatHistory, ChatHistoryPayload{RoomCode: code, Messages: room.Chat})
		s.log.Debugf("player %s reconnected to %s", req.PlayerID, code)
		return
	}

	if room.Status != RoomWaiting {
		s.sendError(sock, "game already started in "+code, "game_already_started")
		return
	}
	if max := maxSeatsFor(room.Kind); len(room.Seats) >= max {
		s.sendError(sock, "room "+code+" is full", "room_full")
		return
	}
	room.AddSeat(req.PlayerID, req.DisplayName)
	s.saveRoomState(room)
	s.broadcastRoomUpdate(room)
	sock.Send(EvtChatHistory, ChatHistoryPayload{RoomCode: code, Messages: room.Chat})
	s.log.Infof("player %s joined room %s", req.PlayerID, code)
}

func (s *Server) handleRoomLeave(sock *Socket) {
	code, ok := s.sockets.RoomOf(sock.ID)
	if !ok {
		s.sendError(sock, "not in a room", "not_in_room")
		return
	}
	playerID := sock.PlayerID()
	s.sockets.LeaveRoom(sock)

	room, ok := s.room(code)
	if !ok {
		return
	}
	room.Lock()
	defer room.Unlock()

	if room.Status == RoomPlaying {
		// Leaving a live game forfeits it.
		if engine, ok := s.store.Get(code); ok {
			if seat := room.SeatOf(playerID); seat != nil {
				room.Eliminated = append(room.Eliminated, seat.Index)
			}
			engine.RemovePlayer(playerID)
			s.broadcastGameState(room, engine, "leave")
			if engine.IsTerminal() {
				s.finishGame(room, engine)
			} else {
				s.evaluateTimer(room, engine)
			}
		}
	}
	room.RemoveSeat(playerID)
	if room.Status == RoomWaiting {
		room.CompactSeats()
	}
	s.saveRoomState(room)
	s.broadcastRoomUpdate(room)
	s.log.Infof("player %s left room %s", playerID, code)

	if len(room.Seats) == 0 && s.sockets.RoomEmpty(code) {
		if _, hasEngine := s.store.Get(code); !hasEngine {
			s.dropRoom(code)
		}
	}
}

func (s *Server) handleRoomTheme(sock *Socket, data json.RawMessage) {
	var req RoomThemePayload
	if err := json.Unmarshal(data, &req); err != nil || req.RoomCode == "" {
		s.sendError(sock, "ROOM_THEME needs roomCode and themeId", "bad_payload")
		return
	}
	room, ok := s.room(req.RoomCode)
	if !ok {
		s.sendError(sock, "room not found", "room_not_found")
		return
	}
	room.Lock()
	defer room.Unlock()
	if room.HostID != sock.PlayerID() {
		s.sendError(sock, "only the host can set the theme", "not_host")
		return
	}
	room.ThemeID = req.ThemeID
	s.saveRoomState(room)
	s.broadcastRoomUpdate(room)
}

// handleDisconnect runs after a socket drops. The seat stays; the player
// may reconnect. If it was their turn, the turn timer takes over.
func (s *Server) handleDisconnect(sock *Socket) {
	playerID := sock.PlayerID()
	if playerID == "" {
		return
	}
	code, ok := s.sockets.RoomOf(sock.ID)
	if !ok {
		// Already evicted from the hub; search the seat by player.
		code = s.findRoomOf(playerID)
		if code == "" {
			return
		}
	}
	room, ok := s.room(code)
	if !ok {
		return
	}
	room.Lock()
	defer room.Unlock()

	seat := room.SeatOf(playerID)
	if seat == nil {
		return
	}
	seat.Connected = false
	if err := s.db.SetSeatConnected(code, playerID, false); err != nil {
		s.log.Warnf("Failed to persist connection flag: %v", err)
	}
	s.broadcastRoomUpdate(room)
	s.log.Debugf("player %s disconnected from %s", playerID, code)

	if room.Status == RoomPlaying {
		if engine, ok := s.store.Get(code); ok {
			s.evaluateTimer(room, engine)
		}
	}
}

// findRoomOf scans rooms for a player's seat.
func (s *Server) findRoomOf(playerID string) string {
	s.roomsMu.RLock()
	defer s.roomsMu.RUnlock()
	for code, room := range s.rooms {
		if room.SeatOf(playerID) != nil {
			return code
		}
	}
	return ""
}

func (s *Server) handleChatJoin(sock *Socket) {
	code, ok := s.sockets.RoomOf(sock.ID)
	if !ok {
		s.sendError(sock, "not in a room", "not_in_room")
		return
	}
	room, ok := s.room(code)
	if !ok {
		return
	}
	room.Lock()
	defer room.Unlock()
	sock.Send(EvtChatHistory, ChatHistoryPayload{RoomCode: code, Messages: room.Chat})
}

func (s *Server) handleChatSend(sock *Socket, data json.RawMessage) {
	var req ChatSendPayload
	if err := json.Unmarshal(data, &req); err != nil || req.Message == "" {
		s.sendError(sock, "chat:send needs a message", "bad_payload")
		return
	}
	code, ok := s.sockets.RoomOf(sock.ID)
	if !ok {
		s.sendError(sock, "not in a room", "not_in_room")
		return
	}
	room, ok := s.room(code)
	if !ok {
		return
	}
	room.Lock()
	defer room.Unlock()
	if room.SeatOf(sock.PlayerID()) == nil {
		s.sendError(sock, "not seated in this room", "not_seated")
		return
	}
	msg := ChatMessagePayload{
		RoomCode:    code,
		PlayerID:    sock.PlayerID(),
		DisplayName: sock.DisplayName(),
		Message:     req.Message,
		SentAtMs:    time.Now().UnixMilli(),
	}
	room.AppendChat(msg, s.cfg.MaxChatHistory)
	s.sockets.EmitToRoom(code, EvtChatMessage, msg)
}

// maxSeatsFor caps the roster per kind without constructing an engine.
func maxSeatsFor(kind games.Kind) int {
	switch kind {
	case games.KindChess, games.KindTicTacToe:
		return 2
	case games.KindSudoku, games.Kind2048, games.KindCandy:
		return 1
	case games.KindMonopoly:
		return 6
	case games.KindPoker:
		return 9
	default:
		return 4
	}
}
