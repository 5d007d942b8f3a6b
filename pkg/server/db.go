package server

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gameroomdev/gameroom/pkg/games"
	"github.com/gameroomdev/gameroom/pkg/server/internal/db"
)

// Database defines the interface for room persistence operations. Engines
// stay memory-resident; only room records and seat flags survive restarts.
type Database interface {
	// SaveRoom atomically persists a room record with its seats.
	SaveRoom(room *db.RoomState, seats []*db.SeatState) error
	// LoadRoom reads one room and its seats.
	LoadRoom(code string) (*db.RoomState, []*db.SeatState, error)
	// DeleteRoom removes a room and its seats.
	DeleteRoom(code string) error
	// GetAllRoomCodes lists persisted room codes.
	GetAllRoomCodes() ([]string, error)
	// SetSeatConnected flips one seat's connection flag.
	SetSeatConnected(code, playerID string, connected bool) error
	// Close closes the database connection.
	Close() error
}

// NewDatabase creates a new database connection
func NewDatabase(dbPath string) (Database, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %v", err)
	}
	return db.NewDB(dbPath)
}

// saveRoomState writes the room's current record through the Database seam.
// Callers hold the room lock.
func (s *Server) saveRoomState(room *Room) {
	record := &db.RoomState{
		Code:    room.Code,
		Kind:    string(room.Kind),
		HostID:  room.HostID,
		ThemeID: room.ThemeID,
		Status:  string(room.Status),
	}
	seats := make([]*db.SeatState, 0, len(room.Seats))
	for _, seat := range room.Seats {
		seats = append(seats, &db.SeatState{
			RoomCode:    room.Code,
			SeatIndex:   seat.Index,
			PlayerID:    seat.PlayerID,
			DisplayName: seat.DisplayName,
			IsConnected: seat.Connected,
			IsReady:     seat.Ready,
		})
	}
	if err := s.db.SaveRoom(record, seats); err != nil {
		s.log.Errorf("Failed to save room %s: %v", room.Code, err)
	}
}

// loadRooms restores persisted room records on startup. Games do not
// survive restarts; playing rooms come back as finished.
func (s *Server) loadRooms() error {
	codes, err := s.db.GetAllRoomCodes()
	if err != nil {
		return err
	}
	for _, code := range codes {
		record, seats, err := s.db.LoadRoom(code)
		if err != nil {
			s.log.Warnf("Failed to load room %s: %v", code, err)
			continue
		}
		kind, err := games.ParseKind(record.Kind)
		if err != nil {
			s.log.Warnf("Room %s: %v", code, err)
			continue
		}
		room := &Room{
			Code:    record.Code,
			Kind:    kind,
			HostID:  record.HostID,
			ThemeID: record.ThemeID,
			Status:  RoomStatus(record.Status),
		}
		if room.Status == RoomPlaying {
			room.Status = RoomFinished
		}
		for _, seat := range seats {
			room.Seats = append(room.Seats, &RoomSeat{
				PlayerID:    seat.PlayerID,
				DisplayName: seat.DisplayName,
				Index:       seat.SeatIndex,
				Ready:       seat.IsReady,
			})
		}
		s.roomsMu.Lock()
		s.rooms[room.Code] = room
		s.roomsMu.Unlock()
	}
	s.log.Infof("Loaded %d persisted rooms", len(codes))
	return nil
}
