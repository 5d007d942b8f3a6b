package server

import (
	"os"
	"strconv"
	"time"

	"github.com/decred/slog"
)

// Config carries the tunables for a Server. Zero values are replaced with
// safe defaults; env vars override both.
type Config struct {
	Log slog.Logger

	// TurnTimeout is how long a disconnected player's turn may idle
	// before an auto-play fires.
	TurnTimeout time.Duration
	// MaxAutoPlays is how many auto-plays a seat gets before elimination.
	MaxAutoPlays int
	// MaxChatHistory bounds the per-room chat replay buffer.
	MaxChatHistory int
	// StaleGameMaxIdle evicts engines idle longer than this.
	StaleGameMaxIdle time.Duration
	// SweepInterval is the period of the stale-engine cleanup task.
	SweepInterval time.Duration
	// RoomTTL evicts rooms with no live sockets idle longer than this.
	RoomTTL time.Duration

	// EnableHoldem gates the poker variant.
	EnableHoldem bool
	// DebugEvents dumps every inbound and outbound frame at debug level.
	DebugEvents bool

	// RNGSeed seeds engine entropy. Zero means time-seeded.
	RNGSeed int64
}

const (
	defaultTurnTimeout      = 15 * time.Second
	defaultMaxAutoPlays     = 3
	defaultMaxChatHistory   = 50
	defaultStaleGameMaxIdle = 10 * time.Minute
	defaultSweepInterval    = 5 * time.Minute
	defaultRoomTTL          = 2 * time.Hour
)

// withDefaults fills unset fields and applies GR_* env overrides.
func (c Config) withDefaults() Config {
	if c.Log == nil {
		c.Log = slog.Disabled
	}
	if c.TurnTimeout <= 0 {
		c.TurnTimeout = defaultTurnTimeout
	}
	if c.MaxAutoPlays <= 0 {
		c.MaxAutoPlays = defaultMaxAutoPlays
	}
	if c.MaxChatHistory <= 0 {
		c.MaxChatHistory = defaultMaxChatHistory
	}
	if c.StaleGameMaxIdle <= 0 {
		c.StaleGameMaxIdle = defaultStaleGameMaxIdle
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = defaultSweepInterval
	}
	if c.RoomTTL <= 0 {
		c.RoomTTL = defaultRoomTTL
	}
	if ms, ok := envInt("GR_TURN_TIMEOUT_MS"); ok {
		c.TurnTimeout = time.Duration(ms) * time.Millisecond
	}
	if n, ok := envInt("GR_MAX_AUTO_PLAYS"); ok {
		c.MaxAutoPlays = int(n)
	}
	if n, ok := envInt("GR_MAX_CHAT_HISTORY"); ok {
		c.MaxChatHistory = int(n)
	}
	if ms, ok := envInt("GR_STALE_GAME_MAX_IDLE_MS"); ok {
		c.StaleGameMaxIdle = time.Duration(ms) * time.Millisecond
	}
	if ms, ok := envInt("GR_SWEEP_INTERVAL_MS"); ok {
		c.SweepInterval = time.Duration(ms) * time.Millisecond
	}
	if ms, ok := envInt("GR_ROOM_TTL_MS"); ok {
		c.RoomTTL = time.Duration(ms) * time.Millisecond
	}
	if v, ok := envBool("GR_ENABLE_HOLDEM"); ok {
		c.EnableHoldem = v
	}
	if v, ok := envBool("GR_DEBUG_EVENTS"); ok {
		c.DebugEvents = v
	}
	return c
}

func envInt(name string) (int64, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func envBool(name string) (bool, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
