package snakes

import (
	"encoding/json"
	"math/rand"

	"github.com/decred/slog"

	"github.com/gameroomdev/gameroom/pkg/games"
)

const finalSquare = 100

// jumps is the production board: ladder feet and snake heads mapped to where
// the pawn ends up.
var jumps = map[int]int{
	// ladders
	1: 38, 4: 14, 9: 31, 21: 42, 28: 84,
	36: 44, 51: 67, 71: 91, 80: 100,
	// snakes
	16: 6, 47: 26, 49: 11, 56: 53, 62: 19,
	64: 60, 87: 24, 93: 73, 95: 75, 98: 78,
}

// Config holds construction parameters for a snake & ladder engine.
type Config struct {
	Log slog.Logger
	RNG *rand.Rand
	// Roll overrides the die in tests. Nil uses RNG.
	Roll func() int
}

type seatState struct {
	Seat             games.Seat `json:"seat"`
	Position         int        `json:"position"`
	ConsecutiveSixes int        `json:"consecutiveSixes"`
	Eliminated       bool       `json:"isEliminated"`
}

// Engine is the snake & ladder engine for 2 to 4 seats. Pawns start off the
// board at square 0 and must land exactly on 100.
type Engine struct {
	log  slog.Logger
	rng  *rand.Rand
	roll func() int

	seats     []seatState
	turn      int
	lastDice  int
	lastSteps []games.MoveStep
	winner    int
	over      bool
}

type engineState struct {
	Seats    []seatState `json:"seats"`
	Turn     int         `json:"currentTurn"`
	LastDice int         `json:"lastDice"`
	Winner   int         `json:"winner"`
	Over     bool        `json:"isOver"`
}

func New(cfg Config) *Engine {
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}
	if cfg.RNG == nil {
		cfg.RNG = games.NewRNG(0)
	}
	e := &Engine{log: cfg.Log, rng: cfg.RNG, roll: cfg.Roll, winner: -1}
	if e.roll == nil {
		e.roll = func() int { return 1 + e.rng.Intn(6) }
	}
	return e
}

func (e *Engine) Kind() games.Kind { return games.KindSnakeLadder }
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
	if action != "roll" {
		return games.NewError(games.CodeUnknownAction, "unknown snake & ladder action %q", action)
	}
	e.playRoll(idx)
	return nil
}

// playRoll rolls the die and applies movement, jumps and the six rules.
func (e *Engine) playRoll(seat int) {
	dice := e.roll()
	e.lastDice = dice
	e.lastSteps = nil
	s := &e.seats[seat]

	if dice == 6 {
		s.ConsecutiveSixes++
		if s.ConsecutiveSixes >= 3 {
			// Third six in a row: the roll is void.
			e.log.Debugf("seat %d third six, roll voided", seat)
			s.ConsecutiveSixes = 0
			e.advanceTurn()
			return
		}
	} else {
		s.ConsecutiveSixes = 0
	}

	from := s.Position
	target := from + dice
	if target > finalSquare {
		// Overshoot: pawn stays put, but a six still earns another roll.
		e.log.Debugf("seat %d overshoots from %d with %d", seat, from, dice)
		if dice != 6 {
			e.advanceTurn()
		}
		return
	}

	s.Position = target
	e.lastSteps = append(e.lastSteps, games.MoveStep{SeatIndex: seat, From: from, To: target})
	if jump, ok := jumps[target]; ok {
		e.lastSteps = append(e.lastSteps, games.MoveStep{SeatIndex: seat, From: target, To: jump})
		s.Position = jump
	}

	if s.Position == finalSquare {
		e.winner = seat
		e.over = true
		return
	}
	if dice != 6 {
		e.advanceTurn()
	}
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

func (e *Engine) WinnerIndex() (int, bool) {
	if e.winner < 0 {
		return 0, false
	}
	return e.winner, true
}

// LastMoveSteps reports the dice hop and any snake or ladder jump.
func (e *Engine) LastMoveSteps() []games.MoveStep {
	return append([]games.MoveStep{}, e.lastSteps...)
}

// AutoPlay rolls for the seat.
func (e *Engine) AutoPlay(seatIndex int) error {
	if e.over || seatIndex != e.turn {
		return games.NewError(games.CodeInvalidPhase, "seat %d cannot act now", seatIndex)
	}
	e.playRoll(seatIndex)
	return nil
}

func (e *Engine) Eliminate(seatIndex int) {
	if seatIndex < 0 || seatIndex >= len(e.seats) || e.seats[seatIndex].Eliminated {
		return
	}
	e.seats[seatIndex].Eliminated = true
	if !e.over && e.turn == seatIndex {
		e.advanceTurn()
	}
	active := 0
	last := -1
	for i, s := range e.seats {
		if !s.Eliminated {
			active++
			last = i
		}
	}
	if active <= 1 && len(e.seats) >= 2 {
		e.over = true
		e.winner = last
	}
}

type projection struct {
	Seats    []seatState    `json:"seats"`
	Turn     int            `json:"currentTurn"`
	LastDice int            `json:"lastDice"`
	Jumps    map[int]int    `json:"board"`
	Winner   int            `json:"winner"`
	Over     bool           `json:"isOver"`
}

func (e *Engine) ProjectFor(viewerPlayerID string) games.View {
	p := projection{
		Seats:    append([]seatState{}, e.seats...),
		Turn:     e.turn,
		LastDice: e.lastDice,
		Jumps:    jumps,
		Winner:   e.winner,
		Over:     e.over,
	}
	var actions []string
	if idx := e.seatIndex(viewerPlayerID); idx == e.turn && !e.over {
		actions = append(actions, "roll")
	}
	return games.View{State: p, AvailableActions: actions}
}

func (e *Engine) Serialize() ([]byte, error) {
	return json.Marshal(engineState{
		Seats:    e.seats,
		Turn:     e.turn,
		LastDice: e.lastDice,
		Winner:   e.winner,
		Over:     e.over,
	})
}

func (e *Engine) Restore(data []byte) error {
	var st engineState
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}
	e.seats = st.Seats
	e.turn = st.Turn
	e.lastDice = st.LastDice
	e.winner = st.Winner
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
