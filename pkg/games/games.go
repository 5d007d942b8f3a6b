// Package games defines the contract every game engine on the platform
// satisfies, the closed set of supported game kinds, and the typed errors
// engines report to the event router.
package games

import (
	"encoding/json"
)

// Seat identifies a player slot inside a room. The seat index doubles as the
// engine-level player identity: engines address players by index, the server
// maps indices back to player IDs through the seat list.
type Seat struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"displayName"`
	Index    int    `json:"seatIndex"`
}

// View is a per-viewer projection of engine state. State must be plain data
// (JSON-marshalable); hidden information (opponent hole cards, unrevealed
// tiles) is already masked by the engine before the view leaves it.
type View struct {
	State            any      `json:"state"`
	AvailableActions []string `json:"availableActions"`
}

// MoveStep is one hop of a token animation hint carried by GAME_TOKEN_MOVE.
type MoveStep struct {
	SeatIndex int `json:"seatIndex"`
	Token     int `json:"token,omitempty"`
	From      int `json:"from"`
	To        int `json:"to"`
}

// Engine is the polymorphic contract every game variant implements.
//
// Engines are pure in-memory rule machines: they never touch the transport,
// never block, and are not safe for concurrent use on their own. The game
// store serializes all access through the per-room lock.
type Engine interface {
	// Kind returns the game variant this engine implements.
	Kind() Kind

	// MinSeats and MaxSeats bound how many players the variant supports.
	MinSeats() int
	MaxSeats() int

	// AddPlayer seats a player. It returns false when the engine is full or
	// the player is already seated.
	AddPlayer(seat Seat) bool

	// RemovePlayer unseats a player; false when the player is unknown.
	RemovePlayer(playerID string) bool

	// CurrentPlayerIndex returns the seat whose turn it is. ok is false for
	// variants without a turn model (single-player puzzles) and after the
	// game has ended.
	CurrentPlayerIndex() (idx int, ok bool)

	// HandleAction applies one validated action by the acting player.
	// Only the acting player's allowed actions mutate state; anything else
	// fails with a *games.Error and leaves the state untouched.
	HandleAction(playerID, action string, payload json.RawMessage) error

	// IsTerminal reports whether the game has ended.
	IsTerminal() bool

	// WinnerIndex returns the winning seat, ok=false when there is no single
	// winner (draw, or game still running).
	WinnerIndex() (idx int, ok bool)

	// AutoPlay performs the engine's fallback move for a disconnected player
	// at the given seat (random legal move, check/fold, skip).
	AutoPlay(seatIndex int) error

	// Eliminate permanently removes a seat from play. The engine decides
	// whether the remaining players inherit the turn or the game ends.
	Eliminate(seatIndex int)

	// ProjectFor builds the viewer-specific rendering of the state together
	// with the actions currently available to that viewer.
	ProjectFor(viewerPlayerID string) View

	// Serialize and Restore round-trip the full engine state. A restored
	// engine behaves observationally identically for all future actions.
	Serialize() ([]byte, error)
	Restore(data []byte) error
}

// Starter is implemented by engines that need a kickoff step after all
// players are seated (dealing the first hand, arming a clock). The lifecycle
// coordinator invokes it once at game start.
type Starter interface {
	Begin() error
}

// TokenMover is implemented by engines that can describe the last move as a
// sequence of board hops for client-side animation.
type TokenMover interface {
	LastMoveSteps() []MoveStep
}

// FinishOrderer is implemented by engines that natively track the order in
// which seats finished (ludo, racing variants). The lifecycle coordinator
// passes it through to the leaderboard.
type FinishOrderer interface {
	FinishOrder() []int
}
