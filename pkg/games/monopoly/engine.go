package monopoly

import (
	"encoding/json"
	"math/rand"

	"github.com/decred/slog"

	"github.com/gameroomdev/gameroom/pkg/games"
)

const (
	boardSize      = 40
	goSquare       = 0
	jailSquare     = 10
	goToJailSquare = 30
	goSalary       = 200
	bailAmount     = 50
	startingCash   = 1500
	maxJailTurns   = 3
)

// Phase is the within-turn phase for the current seat.
type Phase string

const (
	PhaseRoll    Phase = "ROLL"
	PhaseEndTurn Phase = "END_TURN"
)

// Config holds construction parameters for a monopoly engine.
type Config struct {
	Log slog.Logger
	RNG *rand.Rand
	// Roll overrides a single die in tests. Nil uses RNG.
	Roll func() int
}

type seatState struct {
	Seat       games.Seat `json:"seat"`
	Position   int        `json:"position"`
	Cash       int64      `json:"cash"`
	InJail     bool       `json:"inJail"`
	JailTurns  int        `json:"jailTurns"`
	Eliminated bool       `json:"isEliminated"`
}

// Engine is the monopoly engine for 2 to 6 seats. It handles dice, doubles,
// jail, GO salary, deed purchase, rent and bankruptcy; house building is not
// modeled.
type Engine struct {
	log  slog.Logger
	rng  *rand.Rand
	roll func() int

	seats        []seatState
	owners       map[int]int
	turn         int
	phase        Phase
	doublesCount int
	lastDice     [2]int
	lastSteps    []games.MoveStep
	winner       int
	over         bool
}

type engineState struct {
	Seats        []seatState `json:"seats"`
	Owners       map[int]int `json:"owners"`
	Turn         int         `json:"currentTurn"`
	Phase        Phase       `json:"phase"`
	DoublesCount int         `json:"doublesCount"`
	LastDice     [2]int      `json:"lastDice"`
	Winner       int         `json:"winner"`
	Over         bool        `json:"isOver"`
}

func New(cfg Config) *Engine {
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}
	if cfg.RNG == nil {
		cfg.RNG = games.NewRNG(0)
	}
	e := &Engine{
		log:    cfg.Log,
		rng:    cfg.RNG,
		roll:   cfg.Roll,
		owners: make(map[int]int),
		phase:  PhaseRoll,
		winner: -1,
	}
	if e.roll == nil {
		e.roll = func() int { return 1 + e.rng.Intn(6) }
	}
	return e
}

func (e *Engine) Kind() games.Kind { return games.KindMonopoly }
func (e *Engine) MinSeats() int    { return 2 }
func (e *Engine) MaxSeats() int    { return 6 }

func (e *Engine) AddPlayer(seat games.Seat) bool {
	if len(e.seats) >= 6 {
		return false
	}
	for _, s := range e.seats {
		if s.Seat.PlayerID == seat.PlayerID {
			return false
		}
	}
	e.seats = append(e.seats, seatState{Seat: seat, Cash: startingCash})
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

	switch action {
	case "roll":
		if e.phase != PhaseRoll {
			return games.NewError(games.CodeInvalidPhase, "already rolled, end your turn")
		}
		e.playRoll(idx)
		return nil
	case "pay_bail":
		if e.phase != PhaseRoll || !e.seats[idx].InJail {
			return games.NewError(games.CodeInvalidPhase, "not in jail")
		}
		if e.seats[idx].Cash < bailAmount {
			return games.NewError(games.CodeInsufficientChips, "need %d to post bail", bailAmount)
		}
		e.seats[idx].Cash -= bailAmount
		e.seats[idx].InJail = false
		e.seats[idx].JailTurns = 0
		return nil
	case "buy":
		return e.buyDeed(idx)
	case "end_turn":
		if e.phase != PhaseEndTurn {
			return games.NewError(games.CodeInvalidPhase, "roll before ending the turn")
		}
		e.endTurn()
		return nil
	}
	return games.NewError(games.CodeUnknownAction, "unknown monopoly action %q", action)
}

// playRoll rolls both dice and applies movement, doubles and jail rules.
func (e *Engine) playRoll(seat int) {
	d1, d2 := e.roll(), e.roll()
	e.lastDice = [2]int{d1, d2}
	e.lastSteps = nil
	s := &e.seats[seat]
	doubles := d1 == d2

	if s.InJail {
		if doubles {
			s.InJail = false
			s.JailTurns = 0
			// Leaving on doubles does not earn another roll.
			e.movePawn(seat, d1+d2)
			if s.Eliminated || e.over {
				return
			}
			e.phase = PhaseEndTurn
			return
		}
		s.JailTurns++
		if s.JailTurns >= maxJailTurns {
			// Forced bail on the third failed attempt.
			s.Cash -= bailAmount
			s.InJail = false
			s.JailTurns = 0
			if s.Cash < 0 {
				e.bankrupt(seat)
				return
			}
			e.movePawn(seat, d1+d2)
			if s.Eliminated || e.over {
				return
			}
		}
		e.phase = PhaseEndTurn
		return
	}

	if doubles {
		e.doublesCount++
		if e.doublesCount >= 3 {
			// Speeding: straight to jail, no square resolution.
			e.log.Debugf("seat %d rolled three doubles, jailed", seat)
			e.sendToJail(seat)
			e.phase = PhaseEndTurn
			return
		}
	}

	e.movePawn(seat, d1+d2)
	if s.Eliminated || e.over {
		return
	}
	if doubles && !s.InJail {
		e.phase = PhaseRoll
	} else {
		e.phase = PhaseEndTurn
	}
}

// movePawn advances the pawn, pays GO salary and resolves Go-To-Jail and
// rent on the destination square.
func (e *Engine) movePawn(seat, steps int) {
	s := &e.seats[seat]
	from := s.Position
	to := (from + steps) % boardSize
	if to < from {
		s.Cash += goSalary
	}
	s.Position = to
	e.lastSteps = append(e.lastSteps, games.MoveStep{SeatIndex: seat, From: from, To: to})
	if to == goToJailSquare {
		e.sendToJail(seat)
		return
	}
	e.resolveRent(seat, to, steps)
}

// buyDeed purchases the square the seat stands on, after the roll.
func (e *Engine) buyDeed(seat int) error {
	if e.phase != PhaseEndTurn {
		return games.NewError(games.CodeInvalidPhase, "roll before buying")
	}
	s := &e.seats[seat]
	d, ok := deeds[s.Position]
	if !ok {
		return games.NewError(games.CodeIllegalMove, "square %d is not for sale", s.Position)
	}
	if _, owned := e.owners[s.Position]; owned {
		return games.NewError(games.CodeIllegalMove, "square %d is already owned", s.Position)
	}
	if s.Cash < d.Price {
		return games.NewError(games.CodeInsufficientChips, "need %d to buy square %d", d.Price, s.Position)
	}
	s.Cash -= d.Price
	e.owners[s.Position] = seat
	e.log.Debugf("seat %d bought square %d for %d", seat, s.Position, d.Price)
	return nil
}

// resolveRent charges the lander when the square belongs to a live opponent.
// dice is the roll total, which prices utility rent.
func (e *Engine) resolveRent(seat, pos, dice int) {
	d, ok := deeds[pos]
	if !ok {
		return
	}
	owner, owned := e.owners[pos]
	if !owned || owner == seat || e.seats[owner].Eliminated {
		return
	}
	rent := d.Rent
	switch d.Kind {
	case railroad:
		rent = railroadBaseRent << (e.ownedOfKind(owner, railroad) - 1)
	case utility:
		mult := int64(utilityRentMult)
		if e.ownedOfKind(owner, utility) == 2 {
			mult = utilityBothMult
		}
		rent = int64(dice) * mult
	}
	s := &e.seats[seat]
	s.Cash -= rent
	e.seats[owner].Cash += rent
	e.log.Debugf("seat %d paid %d rent to seat %d on square %d", seat, rent, owner, pos)
	if s.Cash < 0 {
		e.bankrupt(seat)
	}
}

func (e *Engine) ownedOfKind(owner int, k squareKind) int64 {
	var n int64
	for pos, who := range e.owners {
		if who == owner && deeds[pos].Kind == k {
			n++
		}
	}
	return n
}

// bankrupt knocks a seat out; its deeds return to the bank.
func (e *Engine) bankrupt(seat int) {
	e.log.Debugf("seat %d is bankrupt", seat)
	e.Eliminate(seat)
}

func (e *Engine) sendToJail(seat int) {
	s := &e.seats[seat]
	e.lastSteps = append(e.lastSteps, games.MoveStep{SeatIndex: seat, From: s.Position, To: jailSquare})
	s.Position = jailSquare
	s.InJail = true
	s.JailTurns = 0
	e.doublesCount = 0
}

func (e *Engine) endTurn() {
	e.doublesCount = 0
	e.phase = PhaseRoll
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

func (e *Engine) LastMoveSteps() []games.MoveStep {
	return append([]games.MoveStep{}, e.lastSteps...)
}

// AutoPlay rolls or ends the turn, whichever the phase requires.
func (e *Engine) AutoPlay(seatIndex int) error {
	if e.over || seatIndex != e.turn {
		return games.NewError(games.CodeInvalidPhase, "seat %d cannot act now", seatIndex)
	}
	if e.phase == PhaseRoll {
		e.playRoll(seatIndex)
		return nil
	}
	e.endTurn()
	return nil
}

func (e *Engine) Eliminate(seatIndex int) {
	if seatIndex < 0 || seatIndex >= len(e.seats) || e.seats[seatIndex].Eliminated {
		return
	}
	e.seats[seatIndex].Eliminated = true
	for pos, owner := range e.owners {
		if owner == seatIndex {
			delete(e.owners, pos)
		}
	}
	if !e.over && e.turn == seatIndex {
		e.phase = PhaseRoll
		e.doublesCount = 0
		e.endTurnFromElimination()
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

func (e *Engine) endTurnFromElimination() {
	for i := 1; i <= len(e.seats); i++ {
		next := (e.turn + i) % len(e.seats)
		if !e.seats[next].Eliminated {
			e.turn = next
			return
		}
	}
}

type projection struct {
	Seats        []seatState `json:"seats"`
	Owners       map[int]int `json:"owners"`
	Turn         int         `json:"currentTurn"`
	Phase        Phase       `json:"phase"`
	DoublesCount int         `json:"doublesCount"`
	LastDice     [2]int      `json:"lastDice"`
	Winner       int         `json:"winner"`
	Over         bool        `json:"isOver"`
}

func (e *Engine) ProjectFor(viewerPlayerID string) games.View {
	owners := make(map[int]int, len(e.owners))
	for pos, who := range e.owners {
		owners[pos] = who
	}
	p := projection{
		Seats:        append([]seatState{}, e.seats...),
		Owners:       owners,
		Turn:         e.turn,
		Phase:        e.phase,
		DoublesCount: e.doublesCount,
		LastDice:     e.lastDice,
		Winner:       e.winner,
		Over:         e.over,
	}
	var actions []string
	if idx := e.seatIndex(viewerPlayerID); idx == e.turn && !e.over {
		switch e.phase {
		case PhaseRoll:
			actions = append(actions, "roll")
			if e.seats[idx].InJail && e.seats[idx].Cash >= bailAmount {
				actions = append(actions, "pay_bail")
			}
		case PhaseEndTurn:
			actions = append(actions, "end_turn")
			pos := e.seats[idx].Position
			if d, ok := deeds[pos]; ok {
				if _, owned := e.owners[pos]; !owned && e.seats[idx].Cash >= d.Price {
					actions = append(actions, "buy")
				}
			}
		}
	}
	return games.View{State: p, AvailableActions: actions}
}

func (e *Engine) Serialize() ([]byte, error) {
	return json.Marshal(engineState{
		Seats:        e.seats,
		Owners:       e.owners,
		Turn:         e.turn,
		Phase:        e.phase,
		DoublesCount: e.doublesCount,
		LastDice:     e.lastDice,
		Winner:       e.winner,
		Over:         e.over,
	})
}

func (e *Engine) Restore(data []byte) error {
	var st engineState
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}
	e.seats = st.Seats
	e.owners = st.Owners
	if e.owners == nil {
		e.owners = make(map[int]int)
	}
	e.turn = st.Turn
	e.phase = st.Phase
	e.doublesCount = st.DoublesCount
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
