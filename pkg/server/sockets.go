package server

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/decred/slog"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendQueueSize  = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Room codes gate access; the origin is not part of the trust model.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Socket is one client connection.
type Socket struct {
	ID string

	conn *websocket.Conn
	send chan Frame
	hub  *SocketManager

	mu          sync.Mutex
	playerID    string
	displayName string
	closed      bool

	closeOnce sync.Once
}

// BindPlayer attaches the session identity announced in ROOM_JOIN.
func (s *Socket) BindPlayer(playerID, displayName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playerID = playerID
	s.displayName = displayName
}

// PlayerID returns the bound session identity, empty before ROOM_JOIN.
func (s *Socket) PlayerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerID
}

// DisplayName returns the bound display name.
func (s *Socket) DisplayName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayName
}

// Send queues a frame; slow consumers get disconnected rather than block
// the emitter. Frames to an already-closed socket are discarded, so a peer
// dropping mid-broadcast is harmless.
func (s *Socket) Send(event string, data any) {
	frame := Frame{Event: event, Data: mustMarshal(data)}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	select {
	case s.send <- frame:
		s.mu.Unlock()
	default:
		s.mu.Unlock()
		s.hub.log.Warnf("socket %s send queue full, dropping connection", s.ID)
		s.Close()
	}
}

// Close tears the connection down once.
func (s *Socket) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.send)
		s.mu.Unlock()
	})
}

// SocketManager owns the socket <-> room membership maps and fan-out.
type SocketManager struct {
	log slog.Logger

	// OnFrame handles one inbound frame; OnDisconnect runs after a socket
	// is unregistered. Both are set by the server before ListenAndServe.
	OnFrame      func(*Socket, Frame)
	OnDisconnect func(*Socket)

	mu          sync.RWMutex
	sockets     map[string]*Socket
	socketRoom  map[string]string
	roomSockets map[string]map[string]*Socket

	nextID atomic.Uint64
}

// NewSocketManager creates an empty socket manager.
func NewSocketManager(log slog.Logger) *SocketManager {
	if log == nil {
		log = slog.Disabled
	}
	return &SocketManager{
		log:         log,
		sockets:     make(map[string]*Socket),
		socketRoom:  make(map[string]string),
		roomSockets: make(map[string]map[string]*Socket),
	}
}

// ServeWS upgrades an HTTP request and runs the connection's pumps.
func (m *SocketManager) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.log.Errorf("websocket upgrade failed: %v", err)
		return
	}
	socket := &Socket{
		ID:   fmt.Sprintf("sock-%d", m.nextID.Add(1)),
		conn: conn,
		send: make(chan Frame, sendQueueSize),
		hub:  m,
	}
	m.mu.Lock()
	m.sockets[socket.ID] = socket
	m.mu.Unlock()
	m.log.Debugf("socket %s connected from %s", socket.ID, conn.RemoteAddr())

	go socket.writePump()
	go socket.readPump()
}

func (s *Socket) readPump() {
	defer func() {
		s.hub.drop(s)
		s.conn.Close()
	}()
	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		var frame Frame
		if err := s.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.hub.log.Debugf("socket %s read error: %v", s.ID, err)
			}
			return
		}
		if s.hub.OnFrame != nil {
			s.hub.OnFrame(s, frame)
		}
	}
}

func (s *Socket) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteJSON(frame); err != nil {
				s.hub.log.Debugf("socket %s write error: %v", s.ID, err)
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// drop unregisters a dead socket and fires OnDisconnect.
func (m *SocketManager) drop(s *Socket) {
	m.mu.Lock()
	if _, ok := m.sockets[s.ID]; !ok {
		m.mu.Unlock()
		return
	}
	delete(m.sockets, s.ID)
	m.leaveLocked(s)
	m.mu.Unlock()

	s.Close()
	if m.OnDisconnect != nil {
		m.OnDisconnect(s)
	}
}

// JoinRoom binds a socket to a room, leaving any prior room first.
func (m *SocketManager) JoinRoom(s *Socket, code string) {
	code = NormalizeRoomCode(code)
	m.mu.Lock()
	defer m.mu.Unlock()

	m.leaveLocked(s)
	m.socketRoom[s.ID] = code
	set := m.roomSockets[code]
	if set == nil {
		set = make(map[string]*Socket)
		m.roomSockets[code] = set
	}
	set[s.ID] = s
}

// LeaveRoom evicts the socket from its room, if any.
func (m *SocketManager) LeaveRoom(s *Socket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaveLocked(s)
}

func (m *SocketManager) leaveLocked(s *Socket) {
	code, ok := m.socketRoom[s.ID]
	if !ok {
		return
	}
	delete(m.socketRoom, s.ID)
	if set := m.roomSockets[code]; set != nil {
		delete(set, s.ID)
		if len(set) == 0 {
			delete(m.roomSockets, code)
		}
	}
}

// RoomOf returns the room a socket is in.
func (m *SocketManager) RoomOf(socketID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	code, ok := m.socketRoom[socketID]
	return code, ok
}

// SocketsInRoom snapshots the membership set.
func (m *SocketManager) SocketsInRoom(code string) []*Socket {
	code = NormalizeRoomCode(code)
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Socket, 0, len(m.roomSockets[code]))
	for _, s := range m.roomSockets[code] {
		out = append(out, s)
	}
	return out
}

// RoomEmpty reports whether no sockets remain in the room.
func (m *SocketManager) RoomEmpty(code string) bool {
	code = NormalizeRoomCode(code)
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.roomSockets[code]) == 0
}

// EmitToRoom fans an event out to every socket in the room.
func (m *SocketManager) EmitToRoom(code, event string, data any) {
	for _, s := range m.SocketsInRoom(code) {
		s.Send(event, data)
	}
}

// EmitToSocket addresses a single recipient, used for privacy-masked
// projections and error frames.
func (m *SocketManager) EmitToSocket(socketID, event string, data any) {
	m.mu.RLock()
	s, ok := m.sockets[socketID]
	m.mu.RUnlock()
	if ok {
		s.Send(event, data)
	}
}
