package memory

import (
	"encoding/json"
	"math/rand"

	"github.com/decred/slog"

	"github.com/gameroomdev/gameroom/pkg/games"
)

const pairCount = 8

// Config holds construction parameters for a memory engine.
type Config struct {
	Log slog.Logger
	RNG *rand.Rand
}

type seatState struct {
	Seat       games.Seat `json:"seat"`
	Pairs      int        `json:"pairs"`
	Eliminated bool       `json:"isEliminated"`
}

// Engine is the memory pairs engine for 2 to 4 seats. Sixteen cards in eight
// pairs; a matched pair earns the pair and another go.
type Engine struct {
	log slog.Logger
	rng *rand.Rand

	seats   []seatState
	cards   []int
	matched []bool
	faceUp  []int
	turn    int
	over    bool
}

type engineState struct {
	Seats   []seatState `json:"seats"`
	Cards   []int       `json:"cards"`
	Matched []bool      `json:"matched"`
	FaceUp  []int       `json:"faceUp"`
	Turn    int         `json:"currentTurn"`
	Over    bool        `json:"isOver"`
}

// New creates a memory engine with a shuffled deck of pairs.
func New(cfg Config) *Engine {
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}
	if cfg.RNG == nil {
		cfg.RNG = games.NewRNG(0)
	}
	e := &Engine{log: cfg.Log, rng: cfg.RNG}
	for v := 0; v < pairCount; v++ {
		e.cards = append(e.cards, v, v)
	}
	e.rng.Shuffle(len(e.cards), func(i, j int) {
		e.cards[i], e.cards[j] = e.cards[j], e.cards[i]
	})
	e.matched = make([]bool, len(e.cards))
	return e
}

func (e *Engine) Kind() games.Kind { return games.KindMemory }
func (e *Engine) MinSeats() int    { return 2 }
func (e *Engine) MaxSeats() int    { return 4 }

func (e *Engine) AddPlayer(seat games.Seat) bool {
	if len(e.seats) >= 4 {
		return false
	}
	for _, s := range e.seats {
		if s.Seat.PlayerID == seat.PlayerID {
			return false
		}
	}
	e.seats = append(e.seats, seatState{Seat: seat})
	return true
}

func (e *Engine) RemovePlayer(playerID string) bool {
	for i, s := range e.seats {
		if s.Seat.PlayerID == playerID {
			e.Eliminate(i)
			return true
		}
	}
	return false
}

type flipPayload struct {
	Card int `json:"card"`
}

func (e *Engine) HandleAction(playerID, action string, payload json.RawMessage) error {
	idx := e.seatIndex(playerID)
	if idx < 0 {
		return games.NewError(games.CodeNotSeated, "player %s is not seated", playerID)
	}
	if e.over {
		return games.NewError(games.CodeGameOver, "game is over")
	}
	if idx != e.turn {
		return games.ErrNotYourTurn()
	}
	if action != "flip" {
		return games.NewError(games.CodeUnknownAction, "unknown memory action %q", action)
	}
	var req flipPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return games.NewError(games.CodeBadPayload, "flip needs a card index")
	}
	return e.flip(idx, req.Card)
}

func (e *Engine) flip(seat, card int) error {
	if card < 0 || card >= len(e.cards) {
		return games.NewError(games.CodeBadPayload, "card %d out of range", card)
	}
	if e.matched[card] {
		return games.NewError(games.CodeIllegalMove, "card %d is already matched", card)
	}
	for _, up := range e.faceUp {
		if up == card {
			return games.NewError(games.CodeIllegalMove, "card %d is already face up", card)
		}
	}

	// A mismatched pair from the previous flip goes back face down now.
	if len(e.faceUp) == 2 {
		e.faceUp = nil
	}
	e.faceUp = append(e.faceUp, card)
	if len(e.faceUp) < 2 {
		return nil
	}

	a, b := e.faceUp[0], e.faceUp[1]
	if e.cards[a] == e.cards[b] {
		e.matched[a] = true
		e.matched[b] = true
		e.seats[seat].Pairs++
		e.faceUp = nil
		e.log.Debugf("seat %d matched pair %d", seat, e.cards[a])
		e.checkOver()
		return nil
	}
	// Mismatch: leave the pair showing until the next flip, pass the turn.
	e.advanceTurn()
	return nil
}

func (e *Engine) checkOver() {
	for _, m := range e.matched {
		if !m {
			return
		}
	}
	e.over = true
}

func (e *Engine) advanceTurn() {
	for i := 1; i <= len(e.seats); i++ {
		next := (e.turn + i) % len(e.seats)
		if !e.seats[next].Eliminated {
			e.turn = next
			return
		}
	}
}

func (e *Engine) CurrentPlayerIndex() (int, bool) {
	if e.over {
		return 0, false
	}
	return e.turn, true
}

func (e *Engine) IsTerminal() bool { return e.over }

// WinnerIndex picks the seat with the most pairs; ties have no single
// winner.
func (e *Engine) WinnerIndex() (int, bool) {
	if !e.over {
		return 0, false
	}
	best, bestPairs, tied := -1, -1, false
	for i, s := range e.seats {
		if s.Eliminated {
			continue
		}
		switch {
		case s.Pairs > bestPairs:
			best, bestPairs, tied = i, s.Pairs, false
		case s.Pairs == bestPairs:
			tied = true
		}
	}
	if best < 0 || tied {
		return 0, false
	}
	return best, true
}

// AutoPlay flips two random hidden cards.
func (e *Engine) AutoPlay(seatIndex int) error {
	if e.over || seatIndex != e.turn {
		return games.NewError(games.CodeInvalidPhase, "seat %d cannot act now", seatIndex)
	}
	for flips := 0; flips < 2 && e.turn == seatIndex && !e.over; flips++ {
		var hidden []int
		for i := range e.cards {
			if e.matched[i] || e.isFaceUp(i) {
				continue
			}
			hidden = append(hidden, i)
		}
		if len(hidden) == 0 {
			return nil
		}
		if err := e.flip(seatIndex, hidden[e.rng.Intn(len(hidden))]); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) isFaceUp(card int) bool {
	if len(e.faceUp) == 2 {
		// Pending mismatch; these flip back on the next move.
		return false
	}
	for _, up := range e.faceUp {
		if up == card {
			return true
		}
	}
	return false
}

func (e *Engine) Eliminate(seatIndex int) {
	if seatIndex < 0 || seatIndex >= len(e.seats) || e.seats[seatIndex].Eliminated {
		return
	}
	e.seats[seatIndex].Eliminated = true
	if !e.over && e.turn == seatIndex {
		e.faceUp = nil
		e.advanceTurn()
	}
	active := 0
	for _, s := range e.seats {
		if !s.Eliminated {
			active++
		}
	}
	if active <= 1 && len(e.seats) >= 2 {
		e.over = true
	}
}

type projection struct {
	Seats  []seatState `json:"seats"`
	Board  []int       `json:"board"`
	FaceUp []int       `json:"faceUp"`
	Turn   int         `json:"currentTurn"`
	Over   bool        `json:"isOver"`
}

const hiddenCard = -1

// ProjectFor masks face-down cards for every viewer. Only matched cards and
// the currently revealed flips carry values.
func (e *Engine) ProjectFor(viewerPlayerID string) games.View {
	board := make([]int, len(e.cards))
	for i := range board {
		if e.matched[i] {
			board[i] = e.cards[i]
			continue
		}
		board[i] = hiddenCard
	}
	for _, up := range e.faceUp {
		board[up] = e.cards[up]
	}
	p := projection{
		Seats:  append([]seatState{}, e.seats...),
		Board:  board,
		FaceUp: append([]int{}, e.faceUp...),
		Turn:   e.turn,
		Over:   e.over,
	}
	var actions []string
	if idx := e.seatIndex(viewerPlayerID); idx == e.turn && !e.over {
		actions = append(actions, "flip")
	}
	return games.View{State: p, AvailableActions: actions}
}

func (e *Engine) Serialize() ([]byte, error) {
	return json.Marshal(engineState{
		Seats:   e.seats,
		Cards:   e.cards,
		Matched: e.matched,
		FaceUp:  e.faceUp,
		Turn:    e.turn,
		Over:    e.over,
	})
}

func (e *Engine) Restore(data []byte) error {
	var st engineState
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}
	e.seats = st.Seats
	e.cards = st.Cards
	e.matched = st.Matched
	e.faceUp = st.FaceUp
	e.turn = st.Turn
	e.over = st.Over
	return nil
}

func (e *Engine) seatIndex(playerID string) int {
	for i, s := range e.seats {
		if s.Seat.PlayerID == playerID {
			return i
		}
	}
	return -1
}
