package server

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/gameroomdev/gameroom/pkg/games"
)

// roomCodeAlphabet excludes the confusable I, O, 0 and 1.
const (
	roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	roomCodeLen      = 6
)

// RoomStatus is the lifecycle state of a room.
type RoomStatus string

const (
	RoomWaiting  RoomStatus = "waiting"
	RoomPlaying  RoomStatus = "playing"
	RoomFinished RoomStatus = "finished"
)

// RoomSeat is one occupied seat with its connection bookkeeping.
type RoomSeat struct {
	PlayerID    string
	DisplayName string
	Index       int
	Connected   bool
	Ready       bool
	// AutoPlays counts consecutive timer-driven moves; a manual action
	// resets it.
	AutoPlays int
}

// Room is the in-memory room record. All access happens under the room's
// lock, which also serializes its engine and timer state.
type Room struct {
	mu sync.Mutex

	Code    string
	Kind    games.Kind
	HostID  string
	ThemeID string
	Status  RoomStatus
	Seats   []*RoomSeat
	Chat    []ChatMessagePayload
	// Eliminated records seat indices in knockout order for the standings.
	Eliminated []int

	CreatedAt time.Time
	// LastActivity drives TTL eviction of abandoned rooms.
	LastActivity time.Time
}

// Touch records activity for TTL purposes. Callers hold the room lock.
func (r *Room) Touch() { r.LastActivity = time.Now() }

// Lock acquires the per-room lock. Do not nest room locks.
func (r *Room) Lock() { r.mu.Lock() }

// Unlock releases the per-room lock.
func (r *Room) Unlock() { r.mu.Unlock() }

// SeatOf finds a player's seat, or nil.
func (r *Room) SeatOf(playerID string) *RoomSeat {
	for _, s := range r.Seats {
		if s.PlayerID == playerID {
			return s
		}
	}
	return nil
}

// SeatAt finds the seat with the given index, or nil.
func (r *Room) SeatAt(index int) *RoomSeat {
	for _, s := range r.Seats {
		if s.Index == index {
			return s
		}
	}
	return nil
}

// AddSeat seats a player at the lowest free index.
func (r *Room) AddSeat(playerID, displayName string) *RoomSeat {
	taken := make(map[int]bool, len(r.Seats))
	for _, s := range r.Seats {
		taken[s.Index] = true
	}
	index := 0
	for taken[index] {
		index++
	}
	seat := &RoomSeat{PlayerID: playerID, DisplayName: displayName, Index: index, Connected: true}
	r.Seats = append(r.Seats, seat)
	if r.HostID == "" {
		r.HostID = playerID
	}
	return seat
}

// RemoveSeat unseats a player. If the host leaves, the lowest remaining
// seat inherits hosting.
func (r *Room) RemoveSeat(playerID string) bool {
	for i, s := range r.Seats {
		if s.PlayerID != playerID {
			continue
		}
		r.Seats = append(r.Seats[:i], r.Seats[i+1:]...)
		if r.HostID == playerID {
			r.HostID = ""
			best := -1
			for _, rest := range r.Seats {
				if best == -1 || rest.Index < best {
					best = rest.Index
					r.HostID = rest.PlayerID
				}
			}
		}
		return true
	}
	return false
}

// CompactSeats renumbers seats to 0..n-1 in roster order so engine player
// indices line up at start. Only valid before a game begins; engines bind
// their indices when seated.
func (r *Room) CompactSeats() {
	for i := 1; i < len(r.Seats); i++ {
		for j := i; j > 0 && r.Seats[j-1].Index > r.Seats[j].Index; j-- {
			r.Seats[j-1], r.Seats[j] = r.Seats[j], r.Seats[j-1]
		}
	}
	for i, s := range r.Seats {
		s.Index = i
	}
}

// AppendChat adds a line and trims the history to the bound.
func (r *Room) AppendChat(msg ChatMessagePayload, max int) {
	r.Touch()
	r.Chat = append(r.Chat, msg)
	if len(r.Chat) > max {
		r.Chat = r.Chat[len(r.Chat)-max:]
	}
}

// SeatInfos renders the roster in seat order.
func (r *Room) SeatInfos() []SeatInfo {
	out := make([]SeatInfo, 0, len(r.Seats))
	for _, s := range r.Seats {
		out = append(out, SeatInfo{
			PlayerID:    s.PlayerID,
			DisplayName: s.DisplayName,
			SeatIndex:   s.Index,
			IsConnected: s.Connected,
			IsReady:     s.Ready,
		})
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].SeatIndex > out[j].SeatIndex; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// NormalizeRoomCode uppercases a client-supplied code.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// GenerateRoomCode draws a 6-char code from the confusion-free alphabet.
func GenerateRoomCode(rng *rand.Rand) string {
	var b strings.Builder
	for i := 0; i < roomCodeLen; i++ {
		b.WriteByte(roomCodeAlphabet[rng.Intn(len(roomCodeAlphabet))])
	}
	return b.String()
}
