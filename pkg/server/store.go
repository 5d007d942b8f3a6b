package server

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/decred/slog"

	"github.com/gameroomdev/gameroom/pkg/games"
	"github.com/gameroomdev/gameroom/pkg/games/candy"
	"github.com/gameroomdev/gameroom/pkg/games/chess"
	"github.com/gameroomdev/gameroom/pkg/games/game2048"
	"github.com/gameroomdev/gameroom/pkg/games/holdem"
	"github.com/gameroomdev/gameroom/pkg/games/ludo"
	"github.com/gameroomdev/gameroom/pkg/games/memory"
	"github.com/gameroomdev/gameroom/pkg/games/monopoly"
	"github.com/gameroomdev/gameroom/pkg/games/snakes"
	"github.com/gameroomdev/gameroom/pkg/games/sudoku"
	"github.com/gameroomdev/gameroom/pkg/games/tictactoe"
)

// GameStoreEntry pairs an engine with its activity stamp.
type GameStoreEntry struct {
	Engine       games.Engine
	Kind         games.Kind
	LastActivity time.Time
}

// GameStore is the process-wide code -> engine registry. Thread-safe; room
// codes are normalized to uppercase on every access.
type GameStore struct {
	log slog.Logger
	rng func() *rand.Rand
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]*GameStoreEntry
}

// GameStoreConfig holds construction parameters for a GameStore.
type GameStoreConfig struct {
	Log slog.Logger
	// NewRNG supplies entropy for each created engine.
	NewRNG func() *rand.Rand
	// Now overrides the clock in tests.
	Now func() time.Time
}

// NewGameStore creates an empty game store.
func NewGameStore(cfg GameStoreConfig) *GameStore {
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}
	if cfg.NewRNG == nil {
		cfg.NewRNG = func() *rand.Rand { return games.NewRNG(0) }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &GameStore{
		log:     cfg.Log,
		rng:     cfg.NewRNG,
		now:     cfg.Now,
		entries: make(map[string]*GameStoreEntry),
	}
}

// chessOptions is the kind-specific init payload for chess games.
type chessOptions struct {
	ClockKind   string `json:"clockKind,omitempty"`
	InitialMs   int64  `json:"initialMs,omitempty"`
	IncrementMs int64  `json:"incrementMs,omitempty"`
}

// newEngine constructs an engine for the kind. The switch is exhaustive
// over the closed kind set.
func (gs *GameStore) newEngine(kind games.Kind, options json.RawMessage) (games.Engine, error) {
	log := gs.log
	rng := gs.rng()
	switch kind {
	case games.KindChess:
		cfg := chess.Config{Log: log, RNG: rng}
		if len(options) > 0 {
			var opts chessOptions
			if err := json.Unmarshal(options, &opts); err != nil {
				return nil, fmt.Errorf("bad chess options: %v", err)
			}
			switch chess.ClockKind(opts.ClockKind) {
			case chess.ClockFischer, chess.ClockDelay:
				cfg.Clock = &chess.Clock{
					Kind:        chess.ClockKind(opts.ClockKind),
					InitialMs:   opts.InitialMs,
					IncrementMs: opts.IncrementMs,
				}
			}
		}
		return chess.New(cfg), nil
	case games.KindPoker:
		return holdem.New(holdem.Config{Log: log, RNG: rng}), nil
	case games.KindLudo:
		return ludo.New(ludo.Config{Log: log, RNG: rng}), nil
	case games.KindSnakeLadder:
		return snakes.New(snakes.Config{Log: log, RNG: rng}), nil
	case games.KindMonopoly:
		return monopoly.New(monopoly.Config{Log: log, RNG: rng}), nil
	case games.KindTicTacToe:
		return tictactoe.New(tictactoe.Config{Log: log, RNG: rng}), nil
	case games.KindSudoku:
		return sudoku.New(sudoku.Config{Log: log, RNG: rng}), nil
	case games.Kind2048:
		return game2048.New(game2048.Config{Log: log, RNG: rng}), nil
	case games.KindMemory:
		return memory.New(memory.Config{Log: log, RNG: rng}), nil
	case games.KindCandy:
		return candy.New(candy.Config{Log: log, RNG: rng}), nil
	}
	return nil, fmt.Errorf("unknown game kind %q", kind)
}

// Create builds and registers an engine for the code. Fails if an entry
// already exists or the kind is unknown.
func (gs *GameStore) Create(kind games.Kind, code string, options json.RawMessage) (games.Engine, error) {
	code = NormalizeRoomCode(code)
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if _, exists := gs.entries[code]; exists {
		return nil, fmt.Errorf("game already exists for room %s", code)
	}
	engine, err := gs.newEngine(kind, options)
	if err != nil {
		return nil, err
	}
	gs.entries[code] = &GameStoreEntry{Engine: engine, Kind: kind, LastActivity: gs.now()}
	gs.log.Debugf("created %s engine for room %s", kind, code)
	return engine, nil
}

// Get looks up the engine for a code and touches its activity stamp.
func (gs *GameStore) Get(code string) (games.Engine, bool) {
	code = NormalizeRoomCode(code)
	gs.mu.Lock()
	defer gs.mu.Unlock()

	entry, ok := gs.entries[code]
	if !ok {
		return nil, false
	}
	entry.LastActivity = gs.now()
	return entry.Engine, true
}

// Delete evicts the engine for a code.
func (gs *GameStore) Delete(code string) {
	code = NormalizeRoomCode(code)
	gs.mu.Lock()
	defer gs.mu.Unlock()
	delete(gs.entries, code)
}

// CleanupStale evicts entries idle longer than maxIdle and reports how many
// went.
func (gs *GameStore) CleanupStale(maxIdle time.Duration) int {
	cutoff := gs.now().Add(-maxIdle)
	gs.mu.Lock()
	defer gs.mu.Unlock()

	evicted := 0
	for code, entry := range gs.entries {
		if entry.LastActivity.Before(cutoff) {
			delete(gs.entries, code)
			evicted++
			gs.log.Infof("evicted stale %s engine for room %s", entry.Kind, code)
		}
	}
	return evicted
}

// Serialize snapshots the engine for a code. The seam for a future
// out-of-process store.
func (gs *GameStore) Serialize(code string) ([]byte, error) {
	engine, ok := gs.Get(code)
	if !ok {
		return nil, fmt.Errorf("no game for room %s", code)
	}
	return engine.Serialize()
}

// Restore rebuilds an engine from a snapshot under the given code.
func (gs *GameStore) Restore(kind games.Kind, code string, snapshot []byte) (games.Engine, error) {
	engine, err := gs.Create(kind, code, nil)
	if err != nil {
		return nil, err
	}
	if err := engine.Restore(snapshot); err != nil {
		gs.Delete(code)
		return nil, err
	}
	return engine, nil
}
