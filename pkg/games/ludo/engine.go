package ludo

import (
	"encoding/json"
	"math/rand"

	"github.com/decred/slog"

	"github.com/gameroomdev/gameroom/pkg/games"
)

// Board geometry. The shared track has 52 squares; each seat enters at its
// own offset and walks 51 track squares before turning into a private home
// column of 5, finishing on step 56.
const (
	trackLen     = 52
	lastTrackPos = 50
	finishedPos  = 56
	basePos      = -1
	tokensPerSeat = 4
)

var startOffsets = [4]int{0, 13, 26, 39}

// safeSquares are the four entry squares plus the four star squares. Tokens
// on them cannot be captured.
var safeSquares = map[int]bool{
	0: true, 8: true, 13: true, 21: true,
	26: true, 34: true, 39: true, 47: true,
}

// Config holds construction parameters for a ludo engine.
type Config struct {
	Log slog.Logger
	RNG *rand.Rand
	// Roll overrides the die in tests. Nil uses RNG.
	Roll func() int
}

type seatState struct {
	Seat       games.Seat `json:"seat"`
	Tokens     [4]int     `json:"tokens"`
	Eliminated bool       `json:"isEliminated"`
	Finished   bool       `json:"isFinished"`
}

// Engine is the ludo engine for 2 to 4 seats.
type Engine struct {
	log  slog.Logger
	rng  *rand.Rand
	roll func() int

	seats       []seatState
	turn        int
	pendingDice int
	lastDice    int
	finishOrder []int
	lastSteps   []games.MoveStep
	over        bool
}

type engineState struct {
	Seats       []seatState `json:"seats"`
	Turn        int         `json:"currentTurn"`
	PendingDice int         `json:"pendingDice"`
	LastDice    int         `json:"lastDice"`
	FinishOrder []int       `json:"finishOrder"`
	Over        bool        `json:"isOver"`
}

// New creates a ludo engine with all tokens in base.
func New(cfg Config) *Engine {
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}
	if cfg.RNG == nil {
		cfg.RNG = games.NewRNG(0)
	}
	e := &Engine{log: cfg.Log, rng: cfg.RNG, roll: cfg.Roll}
	if e.roll == nil {
		e.roll = func() int { return 1 + e.rng.Intn(6) }
	}
	return e
}

func (e *Engine) Kind() games.Kind { return games.KindLudo }
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
	st := seatState{Seat: seat}
	for i := range st.Tokens {
		st.Tokens[i] = basePos
	}
	e.seats = append(e.seats, st)
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

// absPos maps a seat-relative track progress to the shared track square.
func absPos(seatIndex, progress int) int {
	return (startOffsets[seatIndex] + progress) % trackLen
}

type movePayload struct {
	Token int `json:"token"`
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

	switch action {
	case "roll":
		if e.pendingDice != 0 {
			return games.NewError(games.CodeInvalidPhase, "move a token before rolling again")
		}
		return e.rollDice(idx)
	case "move":
		if e.pendingDice == 0 {
			return games.NewError(games.CodeInvalidPhase, "roll before moving")
		}
		var req movePayload
		if err := json.Unmarshal(payload, &req); err != nil {
			return games.NewError(games.CodeBadPayload, "move needs a token index")
		}
		return e.moveToken(idx, req.Token)
	}
	return games.NewError(games.CodeUnknownAction, "unknown ludo action %q", action)
}

func (e *Engine) rollDice(seat int) error {
	dice := e.roll()
	e.lastDice = dice
	e.lastSteps = nil
	if len(e.movableTokens(seat, dice)) == 0 {
		// Nothing to move. The roll is spent and the turn passes, even
		// on a six.
		e.log.Debugf("seat %d rolled %d, no movable token", seat, dice)
		e.pendingDice = 0
		e.advanceTurn()
		return nil
	}
	e.pendingDice = dice
	return nil
}

// movableTokens lists token indices that could legally move by dice.
// Overshooting the finish square is not a legal move.
func (e *Engine) movableTokens(seat, dice int) []int {
	var out []int
	for i, pos := range e.seats[seat].Tokens {
		switch {
		case pos == basePos:
			if dice == 6 {
				out = append(out, i)
			}
		case pos == finishedPos:
		case pos+dice <= finishedPos:
			out = append(out, i)
		}
	}
	return out
}

func (e *Engine) moveToken(seat, token int) error {
	if token < 0 || token >= tokensPerSeat {
		return games.NewError(games.CodeBadPayload, "token index %d out of range", token)
	}
	dice := e.pendingDice
	movable := e.movableTokens(seat, dice)
	legal := false
	for _, t := range movable {
		if t == token {
			legal = true
			break
		}
	}
	if !legal {
		return games.NewError(games.CodeIllegalMove, "token %d cannot move %d", token, dice)
	}

	from := e.seats[seat].Tokens[token]
	var to int
	if from == basePos {
		to = 0
	} else {
		to = from + dice
	}
	e.seats[seat].Tokens[token] = to
	e.lastSteps = e.tokenSteps(seat, token, from, to)

	captured := false
	if to <= lastTrackPos {
		captured = e.captureAt(seat, absPos(seat, to))
	}
	finished := to == finishedPos
	if finished && e.allHome(seat) {
		e.seats[seat].Finished = true
		e.finishOrder = append(e.finishOrder, seat)
		e.log.Infof("seat %d finished (place %d)", seat, len(e.finishOrder))
	}
	e.pendingDice = 0
	e.checkOver()
	if e.over {
		return nil
	}

	// A six, a capture or a token reaching home grants another roll.
	if (dice == 6 || captured || finished) && !e.seats[seat].Finished {
		return nil
	}
	e.advanceTurn()
	return nil
}

// captureAt sends opponent tokens on a shared non-safe track square back to
// base. Reports whether anything was captured.
func (e *Engine) captureAt(seat, abs int) bool {
	if safeSquares[abs] {
		return false
	}
	captured := false
	for si := range e.seats {
		if si == seat || e.seats[si].Eliminated {
			continue
		}
		for ti, pos := range e.seats[si].Tokens {
			if pos >= 0 && pos <= lastTrackPos && absPos(si, pos) == abs {
				e.seats[si].Tokens[ti] = basePos
				captured = true
				e.log.Debugf("seat %d captured seat %d token %d at %d", seat, si, ti, abs)
			}
		}
	}
	return captured
}

// tokenSteps renders each hop of the move on the shared track. Home column
// squares are seat-private and encoded past the track end.
func (e *Engine) tokenSteps(seat, token, from, to int) []games.MoveStep {
	abs := func(p int) int {
		if p == basePos {
			return basePos
		}
		if p <= lastTrackPos {
			return absPos(seat, p)
		}
		return trackLen + seat*10 + (p - lastTrackPos)
	}
	var steps []games.MoveStep
	if from == basePos {
		return append(steps, games.MoveStep{SeatIndex: seat, Token: token, From: basePos, To: abs(0)})
	}
	for p := from + 1; p <= to; p++ {
		steps = append(steps, games.MoveStep{SeatIndex: seat, Token: token, From: abs(p - 1), To: abs(p)})
	}
	return steps
}

func (e *Engine) allHome(seat int) bool {
	for _, pos := range e.seats[seat].Tokens {
		if pos != finishedPos {
			return false
		}
	}
	return true
}

func (e *Engine) advanceTurn() {
	for i := 1; i <= len(e.seats); i++ {
		next := (e.turn + i) % len(e.seats)
		if !e.seats[next].Eliminated && !e.seats[next].Finished {
			e.turn = next
			return
		}
	}
}

// checkOver ends the game when at most one seat is still racing.
func (e *Engine) checkOver() {
	active := 0
	last := -1
	for i, s := range e.seats {
		if !s.Eliminated && !s.Finished {
			active++
			last = i
		}
	}
	if active > 1 {
		return
	}
	if len(e.seats) >= 2 {
		e.over = true
		if active == 1 && len(e.finishOrder) == 0 {
			// Everyone else eliminated; the survivor wins outright.
			e.finishOrder = append(e.finishOrder, last)
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
	if len(e.finishOrder) == 0 {
		return 0, false
	}
	return e.finishOrder[0], true
}

// FinishOrder lists seats in the order they completed, winners first.
func (e *Engine) FinishOrder() []int {
	return append([]int{}, e.finishOrder...)
}

// LastMoveSteps reports the squares the last moved token passed through.
func (e *Engine) LastMoveSteps() []games.MoveStep {
	return append([]games.MoveStep{}, e.lastSteps...)
}

// AutoPlay rolls if needed and moves the first movable token.
func (e *Engine) AutoPlay(seatIndex int) error {
	if e.over || seatIndex != e.turn {
		return games.NewError(games.CodeInvalidPhase, "seat %d cannot act now", seatIndex)
	}
	if e.pendingDice == 0 {
		if err := e.rollDice(seatIndex); err != nil {
			return err
		}
		if e.pendingDice == 0 {
			// No movable token; turn already advanced.
			return nil
		}
	}
	movable := e.movableTokens(seatIndex, e.pendingDice)
	return e.moveToken(seatIndex, movable[0])
}

// Eliminate removes a seat from the race and clears its tokens from the
// board.
func (e *Engine) Eliminate(seatIndex int) {
	if seatIndex < 0 || seatIndex >= len(e.seats) || e.seats[seatIndex].Eliminated {
		return
	}
	e.seats[seatIndex].Eliminated = true
	for i := range e.seats[seatIndex].Tokens {
		e.seats[seatIndex].Tokens[i] = basePos
	}
	if !e.over && e.turn == seatIndex {
		e.pendingDice = 0
		e.advanceTurn()
	}
	e.checkOver()
}

type projection struct {
	Seats       []seatState `json:"seats"`
	Turn        int         `json:"currentTurn"`
	PendingDice int         `json:"pendingDice"`
	LastDice    int         `json:"lastDice"`
	FinishOrder []int       `json:"finishOrder"`
	Over        bool        `json:"isOver"`
}

// ProjectFor returns the public board. Ludo has no hidden information.
func (e *Engine) ProjectFor(viewerPlayerID string) games.View {
	p := projection{
		Seats:       append([]seatState{}, e.seats...),
		Turn:        e.turn,
		PendingDice: e.pendingDice,
		LastDice:    e.lastDice,
		FinishOrder: append([]int{}, e.finishOrder...),
		Over:        e.over,
	}
	var actions []string
	if idx := e.seatIndex(viewerPlayerID); idx == e.turn && !e.over {
		if e.pendingDice == 0 {
			actions = append(actions, "roll")
		} else {
			actions = append(actions, "move")
		}
	}
	return games.View{State: p, AvailableActions: actions}
}

func (e *Engine) Serialize() ([]byte, error) {
	return json.Marshal(engineState{
		Seats:       e.seats,
		Turn:        e.turn,
		PendingDice: e.pendingDice,
		LastDice:    e.lastDice,
		FinishOrder: e.finishOrder,
		Over:        e.over,
	})
}

func (e *Engine) Restore(data []byte) error {
	var st engineState
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}
	e.seats = st.Seats
	e.turn = st.Turn
	e.pendingDice = st.PendingDice
	e.lastDice = st.LastDice
	e.finishOrder = st.FinishOrder
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
