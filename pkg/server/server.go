// Package server is the authoritative core of the game room platform: room
// registry, engine store, websocket hub, action routing, per-viewer state
// broadcast and the turn-timeout scheduler. All mutation of a room, its
// engine and its timer state happens under that room's lock.
package server

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/decred/slog"

	"github.com/gameroomdev/gameroom/pkg/games"
)

// Server wires the process-wide singletons together and owns the room
// registry.
type Server struct {
	log   slog.Logger
	cfg   Config
	db    Database
	rng   *rand.Rand
	rngMu sync.Mutex

	store   *GameStore
	sockets *SocketManager
	timer   *TurnTimer

	roomsMu sync.RWMutex
	rooms   map[string]*Room

	quit chan struct{}
}

// NewServer creates a game room server.
func NewServer(cfg Config, database Database) (*Server, error) {
	cfg = cfg.withDefaults()
	s := &Server{
		log:   cfg.Log,
		cfg:   cfg,
		db:    database,
		rng:   games.NewRNG(cfg.RNGSeed),
		rooms: make(map[string]*Room),
		quit:  make(chan struct{}),
	}
	s.store = NewGameStore(GameStoreConfig{
		Log:    cfg.Log,
		NewRNG: func() *rand.Rand { return games.NewRNG(s.drawSeed()) },
	})
	s.sockets = NewSocketManager(cfg.Log)
	s.sockets.OnFrame = s.handleFrame
	s.sockets.OnDisconnect = s.handleDisconnect
	s.timer = NewTurnTimer(TurnTimerConfig{Log: cfg.Log, Timeout: cfg.TurnTimeout})
	s.timer.OnWarning = s.onTimerWarning
	s.timer.OnCleared = s.onTimerCleared
	s.timer.OnFire = s.onTimerFire

	if err := s.loadRooms(); err != nil {
		s.log.Errorf("Failed to load persisted rooms: %v", err)
	}
	return s, nil
}

// Sockets exposes the websocket hub for HTTP wiring.
func (s *Server) Sockets() *SocketManager { return s.sockets }

// drawSeed hands out per-engine seeds from the server RNG.
func (s *Server) drawSeed() int64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Int63()
}

// Run starts the background sweeps and blocks until the context is done.
func (s *Server) Run(ctx context.Context) error {
	sweep := time.NewTicker(s.cfg.SweepInterval)
	defer sweep.Stop()
	clock := time.NewTicker(time.Second)
	defer clock.Stop()

	for {
		select {
		case <-ctx.Done():
			close(s.quit)
			return ctx.Err()
		case <-sweep.C:
			if n := s.store.CleanupStale(s.cfg.StaleGameMaxIdle); n > 0 {
				s.log.Infof("Swept %d stale games", n)
			}
			if n := s.sweepRooms(s.cfg.RoomTTL); n > 0 {
				s.log.Infof("Expired %d idle rooms", n)
			}
		case <-clock.C:
			s.pollChessClocks()
		}
	}
}

// handleFrame is the inbound event router.
func (s *Server) handleFrame(sock *Socket, frame Frame) {
	if s.cfg.DebugEvents {
		s.log.Debugf("frame from %s: %s", sock.ID, spew.Sdump(frame))
	}
	switch frame.Event {
	case EvtRoomJoin:
		s.handleRoomJoin(sock, frame.Data)
	case EvtRoomLeave:
		s.handleRoomLeave(sock)
	case EvtRoomTheme:
		s.handleRoomTheme(sock, frame.Data)
	case EvtGameStart:
		s.handleGameStart(sock, frame.Data)
	case EvtGameAction:
		s.handleGameAction(sock, frame.Data)
	case EvtChatJoin:
		s.handleChatJoin(sock)
	case EvtChatSend:
		s.handleChatSend(sock, frame.Data)
	default:
		s.sendError(sock, "unknown event "+frame.Event, "unknown_event")
	}
}

// sendError emits a typed ERROR frame to the sender only.
func (s *Server) sendError(sock *Socket, message, code string) {
	sock.Send(EvtError, ErrorPayload{Message: message, Code: code})
}

// room looks a room up by normalized code.
func (s *Server) room(code string) (*Room, bool) {
	s.roomsMu.RLock()
	defer s.roomsMu.RUnlock()
	r, ok := s.rooms[NormalizeRoomCode(code)]
	return r, ok
}

// getOrCreateRoom returns the room for code, creating a waiting room with
// the given kind on first join.
func (s *Server) getOrCreateRoom(code string, kind games.Kind) *Room {
	code = NormalizeRoomCode(code)
	s.roomsMu.Lock()
	defer s.roomsMu.Unlock()
	if r, ok := s.rooms[code]; ok {
		return r
	}
	now := time.Now()
	r := &Room{Code: code, Kind: kind, Status: RoomWaiting, CreatedAt: now, LastActivity: now}
	s.rooms[code] = r
	s.log.Infof("created room %s (%s)", code, kind)
	return r
}

// sweepRooms evicts rooms with no connected sockets whose last activity is
// older than ttl.
func (s *Server) sweepRooms(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)
	s.roomsMu.RLock()
	var candidates []*Room
	for _, r := range s.rooms {
		candidates = append(candidates, r)
	}
	s.roomsMu.RUnlock()

	n := 0
	for _, room := range candidates {
		room.Lock()
		idle := room.LastActivity.Before(cutoff) &&
			len(s.sockets.SocketsInRoom(room.Code)) == 0
		room.Unlock()
		if idle {
			s.dropRoom(room.Code)
			n++
		}
	}
	return n
}

// dropRoom removes the room record from memory and storage.
func (s *Server) dropRoom(code string) {
	s.roomsMu.Lock()
	delete(s.rooms, code)
	s.roomsMu.Unlock()
	if err := s.db.DeleteRoom(code); err != nil {
		s.log.Warnf("Failed to delete room %s: %v", code, err)
	}
	s.timer.Drop(code)
	s.store.Delete(code)
}

// broadcastRoomUpdate mirrors the roster to every socket in the room.
// Callers hold the room lock.
func (s *Server) broadcastRoomUpdate(room *Room) {
	room.Touch()
	payload := RoomUpdatePayload{
		RoomCode: room.Code,
		Seats:    room.SeatInfos(),
		HostID:   room.HostID,
		Status:   room.Status,
		ThemeID:  room.ThemeID,
	}
	s.sockets.EmitToRoom(room.Code, EvtRoomUpdate, payload)
}

// pollChessClocks flags expired chess clocks once per second.
func (s *Server) pollChessClocks() {
	s.roomsMu.RLock()
	var playing []*Room
	for _, r := range s.rooms {
		if r.Kind == games.KindChess {
			playing = append(playing, r)
		}
	}
	s.roomsMu.RUnlock()

	for _, room := range playing {
		room.Lock()
		if room.Status != RoomPlaying {
			room.Unlock()
			continue
		}
		engine, ok := s.store.Get(room.Code)
		if !ok {
			room.Unlock()
			continue
		}
		flagged := false
		if fc, ok := engine.(interface{ CheckFlag() bool }); ok {
			flagged = fc.CheckFlag()
		}
		if flagged {
			s.broadcastGameState(room, engine, "clock")
			s.finishGame(room, engine)
		}
		room.Unlock()
	}
}
