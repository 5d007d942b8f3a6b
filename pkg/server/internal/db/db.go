package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB represents the database connection
type DB struct {
	*sql.DB
}

// RoomState is the persisted form of a room record.
type RoomState struct {
	Code      string
	Kind      string
	HostID    string
	ThemeID   string
	Status    string
	CreatedAt string
}

// SeatState is the persisted form of one seat.
type SeatState struct {
	RoomCode    string
	SeatIndex   int
	PlayerID    string
	DisplayName string
	IsConnected bool
	IsReady     bool
}

// NewDB creates a new database connection
func NewDB(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// createTables creates the necessary database tables
func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS rooms (
			code TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			host_id TEXT NOT NULL,
			theme_id TEXT,
			status TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS seats (
			room_code TEXT NOT NULL,
			seat_index INTEGER NOT NULL,
			player_id TEXT NOT NULL,
			display_name TEXT,
			is_connected INTEGER NOT NULL DEFAULT 0,
			is_ready INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (room_code, seat_index),
			FOREIGN KEY (room_code) REFERENCES rooms(code)
		)
	`)
	if err != nil {
		return err
	}

	return nil
}

// SaveRoom atomically upserts a room record together with its seats.
func (db *DB) SaveRoom(room *RoomState, seats []*SeatState) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO rooms (code, kind, host_id, theme_id, status, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(code) DO UPDATE SET
			kind = excluded.kind,
			host_id = excluded.host_id,
			theme_id = excluded.theme_id,
			status = excluded.status,
			updated_at = CURRENT_TIMESTAMP
	`, room.Code, room.Kind, room.HostID, room.ThemeID, room.Status)
	if err != nil {
		return fmt.Errorf("failed to save room %s: %v", room.Code, err)
	}

	if _, err = tx.Exec("DELETE FROM seats WHERE room_code = ?", room.Code); err != nil {
		return fmt.Errorf("failed to clear seats for %s: %v", room.Code, err)
	}
	for _, s := range seats {
		_, err = tx.Exec(`
			INSERT INTO seats (room_code, seat_index, player_id, display_name, is_connected, is_ready)
			VALUES (?, ?, ?, ?, ?, ?)
		`, room.Code, s.SeatIndex, s.PlayerID, s.DisplayName, s.IsConnected, s.IsReady)
		if err != nil {
			return fmt.Errorf("failed to save seat %d for %s: %v", s.SeatIndex, room.Code, err)
		}
	}

	return tx.Commit()
}

// LoadRoom reads one room and its seats.
func (db *DB) LoadRoom(code string) (*RoomState, []*SeatState, error) {
	room := &RoomState{}
	var themeID sql.NullString
	err := db.QueryRow(`
		SELECT code, kind, host_id, theme_id, status, created_at
		FROM rooms WHERE code = ?
	`, code).Scan(&room.Code, &room.Kind, &room.HostID, &themeID, &room.Status, &room.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("room %s not found", code)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load room %s: %v", code, err)
	}
	room.ThemeID = themeID.String

	rows, err := db.Query(`
		SELECT room_code, seat_index, player_id, display_name, is_connected, is_ready
		FROM seats WHERE room_code = ? ORDER BY seat_index
	`, code)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load seats for %s: %v", code, err)
	}
	defer rows.Close()

	var seats []*SeatState
	for rows.Next() {
		s := &SeatState{}
		var name sql.NullString
		if err := rows.Scan(&s.RoomCode, &s.SeatIndex, &s.PlayerID, &name, &s.IsConnected, &s.IsReady); err != nil {
			return nil, nil, err
		}
		s.DisplayName = name.String
		seats = append(seats, s)
	}
	return room, seats, rows.Err()
}

// DeleteRoom removes a room and its seats.
func (db *DB) DeleteRoom(code string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM seats WHERE room_code = ?", code); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM rooms WHERE code = ?", code); err != nil {
		return err
	}
	return tx.Commit()
}

// GetAllRoomCodes lists persisted room codes.
func (db *DB) GetAllRoomCodes() ([]string, error) {
	rows, err := db.Query("SELECT code FROM rooms")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// SetSeatConnected flips one seat's connection flag.
func (db *DB) SetSeatConnected(code, playerID string, connected bool) error {
	_, err := db.Exec(`
		UPDATE seats SET is_connected = ? WHERE room_code = ? AND player_id = ?
	`, connected, code, playerID)
	return err
}
