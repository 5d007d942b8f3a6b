package server

import (
	"encoding/json"
	"errors"

	"github.com/gameroomdev/gameroom/pkg/games"
)

func (s *Server) handleGameStart(sock *Socket, data json.RawMessage) {
	var req GameStartPayload
	if err := json.Unmarshal(data, &req); err != nil || req.RoomCode == "" {
		s.sendError(sock, "GAME_START needs roomCode", "bad_payload")
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
		s.sendError(sock, "only the host can start the game", "not_host")
		return
	}
	if room.Status == RoomPlaying {
		s.sendError(sock, "game already started", "game_already_started")
		return
	}
	if room.Status == RoomFinished {
		s.sendError(sock, "room is finished", "room_finished")
		return
	}
	if room.Kind == games.KindPoker && !s.cfg.EnableHoldem {
		s.sendError(sock, "poker is disabled on this server", "kind_disabled")
		return
	}
	if _, exists := s.store.Get(room.Code); exists {
		s.sendError(sock, "an engine already exists for this room", "game_already_started")
		return
	}

	engine, err := s.store.Create(room.Kind, room.Code, req.Options)
	if err != nil {
		s.sendError(sock, err.Error(), "engine_create_failed")
		return
	}
	if len(room.Seats) < engine.MinSeats() {
		s.store.Delete(room.Code)
		s.sendError(sock, "not enough players to start", "not_enough_players")
		return
	}

	for _, info := range room.SeatInfos() {
		engine.AddPlayer(games.Seat{
			PlayerID: info.PlayerID,
			Name:     info.DisplayName,
			Index:    info.SeatIndex,
		})
	}
	if st, ok := engine.(games.Starter); ok {
		if err := st.Begin(); err != nil {
			s.store.Delete(room.Code)
			s.sendError(sock, "failed to start game: "+err.Error(), "engine_create_failed")
			return
		}
	}

	room.Status = RoomPlaying
	room.Eliminated = nil
	for _, seat := range room.Seats {
		seat.AutoPlays = 0
	}
	s.saveRoomState(room)
	s.broadcastRoomUpdate(room)

	// Each viewer gets their own projection from the first frame on.
	players := room.SeatInfos()
	for _, peer := range s.sockets.SocketsInRoom(room.Code) {
		view := engine.ProjectFor(peer.PlayerID())
		peer.Send(EvtGameStart, GameStartedPayload{
			RoomCode: room.Code,
			Kind:     room.Kind,
			Players:  players,
			State:    view.State,
		})
	}
	s.broadcastGameState(room, engine, "")
	s.evaluateTimer(room, engine)
	s.log.Infof("game %s started in room %s with %d players",
		room.Kind, room.Code, len(room.Seats))
}

// handleGameAction is the single entry point for in-game moves. Engine rule
// failures go back to the sender only; accepted actions fan state out to the
// whole room.
func (s *Server) handleGameAction(sock *Socket, data json.RawMessage) {
	var req GameActionPayload
	if err := json.Unmarshal(data, &req); err != nil || req.RoomCode == "" || req.Action == "" {
		s.sendError(sock, "GAME_ACTION needs roomCode and action", "bad_payload")
		return
	}
	room, ok := s.room(req.RoomCode)
	if !ok {
		s.sendError(sock, "room not found", "room_not_found")
		return
	}
	room.Lock()
	defer room.Unlock()

	if room.Status != RoomPlaying {
		s.sendError(sock, "no game in progress", "no_game")
		return
	}
	engine, ok := s.store.Get(room.Code)
	if !ok {
		s.sendError(sock, "no engine for this room", "no_game")
		return
	}
	playerID := sock.PlayerID()
	seat := room.SeatOf(playerID)
	if seat == nil {
		s.sendError(sock, "not seated in this room", "not_seated")
		return
	}

	if err := engine.HandleAction(playerID, req.Action, req.Data); err != nil {
		var gerr *games.Error
		if errors.As(err, &gerr) {
			s.sendError(sock, gerr.Msg, string(gerr.Code))
		} else {
			s.sendError(sock, err.Error(), "engine_error")
		}
		return
	}

	// An accepted action proves the player is alive.
	seat.AutoPlays = 0
	s.timer.Cancel(room.Code)

	s.broadcastGameState(room, engine, req.Action)
	if tm, ok := engine.(games.TokenMover); ok {
		if steps := tm.LastMoveSteps(); len(steps) > 0 {
			s.sockets.EmitToRoom(room.Code, EvtGameTokenMove, GameTokenMovePayload{
				RoomCode: room.Code,
				Steps:    steps,
			})
		}
	}

	if engine.IsTerminal() {
		s.finishGame(room, engine)
		return
	}
	s.evaluateTimer(room, engine)
}

// broadcastGameState sends every socket in the room its own projection.
// Callers hold the room lock.
func (s *Server) broadcastGameState(room *Room, engine games.Engine, lastAction string) {
	room.Touch()
	for _, peer := range s.sockets.SocketsInRoom(room.Code) {
		view := engine.ProjectFor(peer.PlayerID())
		peer.Send(EvtGameState, GameStatePayload{
			RoomCode:         room.Code,
			State:            view.State,
			AvailableActions: view.AvailableActions,
			LastAction:       lastAction,
		})
	}
}

// finishGame closes out a terminal engine: standings, winner frame, room
// bookkeeping and engine teardown. Callers hold the room lock.
func (s *Server) finishGame(room *Room, engine games.Engine) {
	payload := GameWinnerPayload{
		RoomCode:    room.Code,
		Leaderboard: s.leaderboard(room, engine),
	}
	if idx, ok := engine.WinnerIndex(); ok {
		if seat := room.SeatAt(idx); seat != nil {
			payload.Winner = &SeatInfo{
				PlayerID:    seat.PlayerID,
				DisplayName: seat.DisplayName,
				SeatIndex:   seat.Index,
				IsConnected: seat.Connected,
			}
		}
	} else {
		payload.IsDraw = true
	}
	if res, ok := engine.(interface{ Result() string }); ok {
		payload.GameResult = res.Result()
	}
	s.sockets.EmitToRoom(room.Code, EvtGameWinner, payload)

	room.Status = RoomFinished
	s.saveRoomState(room)
	s.broadcastRoomUpdate(room)
	s.timer.Drop(room.Code)
	s.store.Delete(room.Code)
	s.log.Infof("game in room %s finished", room.Code)
}

// leaderboard builds the final standings. Engines that track finish order
// provide it directly; otherwise the winner ranks first, survivors keep seat
// order and knocked-out seats fill the tail in reverse knockout order.
func (s *Server) leaderboard(room *Room, engine games.Engine) []LeaderboardEntry {
	var order []int
	if fo, ok := engine.(games.FinishOrderer); ok {
		order = fo.FinishOrder()
	}
	if len(order) == 0 {
		ranked := func(idx int) bool {
			for _, o := range order {
				if o == idx {
					return true
				}
			}
			return false
		}
		eliminated := make(map[int]bool, len(room.Eliminated))
		for _, idx := range room.Eliminated {
			eliminated[idx] = true
		}
		if idx, ok := engine.WinnerIndex(); ok {
			order = append(order, idx)
		}
		for _, info := range room.SeatInfos() {
			if !ranked(info.SeatIndex) && !eliminated[info.SeatIndex] {
				order = append(order, info.SeatIndex)
			}
		}
		// Knocked-out seats rank last, most recent knockout first.
		for i := len(room.Eliminated) - 1; i >= 0; i-- {
			if !ranked(room.Eliminated[i]) {
				order = append(order, room.Eliminated[i])
			}
		}
	}
	entries := make([]LeaderboardEntry, 0, len(order))
	for place, idx := range order {
		seat := room.SeatAt(idx)
		if seat == nil {
			continue
		}
		entries = append(entries, LeaderboardEntry{
			PlayerID:    seat.PlayerID,
			DisplayName: seat.DisplayName,
			SeatIndex:   seat.Index,
			Place:       place + 1,
		})
	}
	return entries
}

// evaluateTimer reconciles the turn timer with the engine's current turn:
// armed while the seat to act is disconnected, idle otherwise. Callers hold
// the room lock.
func (s *Server) evaluateTimer(room *Room, engine games.Engine) {
	if room.Kind.TimerExcluded() {
		return
	}
	if engine.IsTerminal() {
		s.timer.Cancel(room.Code)
		return
	}
	idx, ok := engine.CurrentPlayerIndex()
	if !ok {
		s.timer.Cancel(room.Code)
		return
	}
	seat := room.SeatAt(idx)
	if seat == nil {
		s.failGame(room, engine, idx)
		return
	}
	if seat.Connected {
		s.timer.Cancel(room.Code)
		return
	}
	s.timer.Arm(room.Code, idx, seat.PlayerID)
}

// failGame terminates a match whose engine broke an invariant. Callers hold
// the room lock.
func (s *Server) failGame(room *Room, engine games.Engine, badIndex int) {
	s.log.Errorf("engine for room %s reported out-of-range seat %d, terminating match",
		room.Code, badIndex)
	s.sockets.EmitToRoom(room.Code, EvtError, ErrorPayload{
		Message: "internal game error, match terminated",
		Code:    "engine_fault",
	})
	s.finishGame(room, engine)
}

func (s *Server) onTimerWarning(code string, playerIndex int, secondsRemaining int) {
	room, ok := s.room(code)
	if !ok {
		return
	}
	room.Lock()
	disconnected := false
	if seat := room.SeatAt(playerIndex); seat != nil {
		disconnected = !seat.Connected
	}
	room.Unlock()
	s.sockets.EmitToRoom(code, EvtTurnTimeoutWarning, TurnTimeoutWarningPayload{
		RoomCode:         code,
		PlayerIndex:      playerIndex,
		SecondsRemaining: secondsRemaining,
		IsDisconnected:   disconnected,
	})
}

func (s *Server) onTimerCleared(code string, playerIndex int) {
	s.sockets.EmitToRoom(code, EvtTurnTimeoutCleared, TurnTimeoutClearedPayload{
		RoomCode:    code,
		PlayerIndex: playerIndex,
	})
}

// onTimerFire is the expiry handler. It runs on the timer goroutine; taking
// the room lock and then confirming the generation guarantees a concurrent
// player action or game end neutralizes the fire even at this point.
func (s *Server) onTimerFire(code string, generation uint64, playerIndex int, playerID string) {
	room, ok := s.room(code)
	if !ok {
		return
	}
	room.Lock()
	defer room.Unlock()

	if !s.timer.Confirm(code, generation) {
		return
	}
	if room.Status != RoomPlaying {
		return
	}
	engine, ok := s.store.Get(code)
	if !ok || engine.IsTerminal() || room.Kind.TimerExcluded() {
		return
	}
	idx, turnOK := engine.CurrentPlayerIndex()
	if !turnOK || idx != playerIndex {
		// The turn moved on while the fire was in flight.
		return
	}
	seat := room.SeatAt(playerIndex)
	if seat == nil || seat.PlayerID != playerID {
		return
	}

	if seat.AutoPlays >= s.cfg.MaxAutoPlays {
		engine.Eliminate(playerIndex)
		room.Eliminated = append(room.Eliminated, playerIndex)
		s.sockets.EmitToRoom(code, EvtTurnAutoPlayed, TurnAutoPlayedPayload{
			RoomCode:      code,
			PlayerIndex:   playerIndex,
			Reason:        ReasonEliminated,
			AutoPlayCount: seat.AutoPlays,
			MaxAutoPlays:  s.cfg.MaxAutoPlays,
		})
		s.log.Infof("player %s eliminated from %s after %d missed turns",
			playerID, code, seat.AutoPlays)
	} else {
		seat.AutoPlays++
		if err := engine.AutoPlay(playerIndex); err != nil {
			s.log.Warnf("autoplay failed for seat %d in %s: %v", playerIndex, code, err)
		}
		s.sockets.EmitToRoom(code, EvtTurnAutoPlayed, TurnAutoPlayedPayload{
			RoomCode:      code,
			PlayerIndex:   playerIndex,
			Reason:        ReasonTimeout,
			AutoPlayCount: seat.AutoPlays,
			MaxAutoPlays:  s.cfg.MaxAutoPlays,
		})
	}

	s.broadcastGameState(room, engine, "autoplay")
	if engine.IsTerminal() {
		s.finishGame(room, engine)
		return
	}
	s.evaluateTimer(room, engine)
}
