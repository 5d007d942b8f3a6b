// Package holdem implements the Texas Hold'em engine: blind posting,
// betting-round closure with last-aggressor semantics, side pots and
// showdown evaluation, with hole cards masked per viewer.
package holdem

import (
	"encoding/json"
	"math/rand"

	"github.com/decred/slog"

	"github.com/gameroomdev/gameroom/pkg/games"
)

// Phase is the hand's lifecycle phase.
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhasePreflop  Phase = "preflop"
	PhaseFlop     Phase = "flop"
	PhaseTurn     Phase = "turn"
	PhaseRiver    Phase = "river"
	PhaseShowdown Phase = "showdown"
	PhaseEnded    Phase = "ended"
)

// Config holds construction parameters for a hold'em engine.
type Config struct {
	Log           slog.Logger
	RNG           *rand.Rand
	SmallBlind    int64
	BigBlind      int64
	StartingChips int64
	MaxSeats      int
}

type seatState struct {
	PlayerID   string     `json:"playerId"`
	Name       string     `json:"displayName"`
	Chips      int64      `json:"chips"`
	RoundBet   int64      `json:"totalBetThisRound"`
	Committed  int64      `json:"totalCommittedThisHand"`
	Folded     bool       `json:"folded"`
	AllIn      bool       `json:"allIn"`
	HasActed   bool       `json:"hasActed"`
	Eliminated bool       `json:"isEliminated"`
	Hole       []Card     `json:"holeCards"`
	HandValue  *HandValue `json:"handValue,omitempty"`
}

// Engine is the hold'em game engine. Not safe for concurrent use; the game
// store's per-room lock serializes access.
type Engine struct {
	log slog.Logger
	rng *rand.Rand
	cfg Config

	seats          []*seatState
	deck           *Deck
	community      []Card
	phase          Phase
	dealer         int
	turn           int
	currentBet     int64
	minRaise       int64
	lastAggressor  int
	pots           []Pot
	winners        []int
}

// engineState is the serialized form of Engine.
type engineState struct {
	Seats         []*seatState `json:"seats"`
	DeckRemaining []Card       `json:"deckRemaining"`
	Community     []Card       `json:"communityCards"`
	Phase         Phase        `json:"phase"`
	Dealer        int          `json:"dealerSeat"`
	Turn          int          `json:"currentTurnSeat"`
	CurrentBet    int64        `json:"currentBet"`
	MinRaise      int64        `json:"minRaise"`
	SmallBlind    int64        `json:"smallBlind"`
	BigBlind      int64        `json:"bigBlind"`
	LastAggressor int          `json:"lastAggressorSeat"`
	Pots          []Pot        `json:"pots"`
	Winners       []int        `json:"winners"`
}

// New creates an empty hold'em engine; players are seated before Begin.
func New(cfg Config) *Engine {
	if cfg.SmallBlind == 0 {
		cfg.SmallBlind = 10
	}
	if cfg.BigBlind == 0 {
		cfg.BigBlind = cfg.SmallBlind * 2
	}
	if cfg.StartingChips == 0 {
		cfg.StartingChips = 1000
	}
	if cfg.MaxSeats == 0 {
		cfg.MaxSeats = 9
	}
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}
	if cfg.RNG == nil {
		cfg.RNG = games.NewRNG(0)
	}
	return &Engine{
		log:           cfg.Log,
		rng:           cfg.RNG,
		cfg:           cfg,
		phase:         PhaseWaiting,
		lastAggressor: -1,
	}
}

func (e *Engine) Kind() games.Kind { return games.KindPoker }
func (e *Engine) MinSeats() int    { return 2 }
func (e *Engine) MaxSeats() int    { return e.cfg.MaxSeats }

// AddPlayer seats a player with the configured starting stack.
func (e *Engine) AddPlayer(seat games.Seat) bool {
	if len(e.seats) >= e.cfg.MaxSeats {
		return false
	}
	for _, s := range e.seats {
		if s.PlayerID == seat.PlayerID {
			return false
		}
	}
	e.seats = append(e.seats, &seatState{
		PlayerID: seat.PlayerID,
		Name:     seat.Name,
		Chips:    e.cfg.StartingChips,
	})
	return true
}

// RemovePlayer folds and eliminates a seat mid-hand; before Begin it simply
// unseats them.
func (e *Engine) RemovePlayer(playerID string) bool {
	idx := e.seatIndex(playerID)
	if idx < 0 {
		return false
	}
	if e.phase == PhaseWaiting {
		e.seats = append(e.seats[:idx], e.seats[idx+1:]...)
		return true
	}
	e.Eliminate(idx)
	return true
}

// Begin posts blinds and deals the first hand. Called by the lifecycle
// coordinator once all players are seated.
func (e *Engine) Begin() error {
	if len(e.seats) < e.MinSeats() {
		return games.NewError(games.CodeInvalidPhase, "need at least %d players", e.MinSeats())
	}
	if e.phase != PhaseWaiting {
		return games.NewError(games.CodeInvalidPhase, "hand already dealt")
	}
	e.deck = NewDeck(e.rng)
	for i := 0; i < 2; i++ {
		for _, s := range e.seats {
			card, ok := e.deck.Draw()
			if !ok {
				return games.NewError(games.CodeInvalidPhase, "deck exhausted while dealing")
			}
			s.Hole = append(s.Hole, card)
		}
	}
	e.postBlinds()
	e.phase = PhasePreflop
	e.turn = e.firstToAct()
	e.log.Debugf("hand dealt: dealer=%d sb=%d bb=%d first=%d",
		e.dealer, e.cfg.SmallBlind, e.cfg.BigBlind, e.turn)
	return nil
}

// postBlinds seats the small and big blinds clockwise from the dealer.
// Heads-up, the dealer posts the small blind.
func (e *Engine) postBlinds() {
	n := len(e.seats)
	sb := (e.dealer + 1) % n
	bb := (e.dealer + 2) % n
	if n == 2 {
		sb = e.dealer
		bb = (e.dealer + 1) % n
	}
	e.commit(e.seats[sb], e.cfg.SmallBlind)
	e.commit(e.seats[bb], e.cfg.BigBlind)
	e.currentBet = e.seats[bb].RoundBet
	e.minRaise = e.cfg.BigBlind
	// Blind posts are forced bets: neither blind has acted yet, which is
	// what gives the big blind its preflop option.
	e.seats[sb].HasActed = false
	e.seats[bb].HasActed = false
}

// firstToAct returns the opening seat for the current street.
func (e *Engine) firstToAct() int {
	n := len(e.seats)
	var from int
	if e.phase == PhaseWaiting || e.phase == PhasePreflop {
		bb := (e.dealer + 2) % n
		if n == 2 {
			bb = (e.dealer + 1) % n
		}
		from = bb
	} else {
		from = e.dealer
	}
	return e.nextActor(from)
}

// nextActor returns the next seat clockwise from `from` that can still act.
func (e *Engine) nextActor(from int) int {
	n := len(e.seats)
	for i := 1; i <= n; i++ {
		idx := (from + i) % n
		s := e.seats[idx]
		if !s.Folded && !s.AllIn && !s.Eliminated {
			return idx
		}
	}
	return -1
}

// commit moves chips from a seat into its round bet, flagging all-in when
// the stack empties.
func (e *Engine) commit(s *seatState, amount int64) {
	if amount > s.Chips {
		amount = s.Chips
	}
	s.Chips -= amount
	s.RoundBet += amount
	s.Committed += amount
	if s.Chips == 0 {
		s.AllIn = true
	}
}

type raisePayload struct {
	Amount int64 `json:"amount"`
}

// HandleAction validates and applies one betting action by the acting
// player. Invalid actions leave the engine untouched.
func (e *Engine) HandleAction(playerID, action string, payload json.RawMessage) error {
	idx := e.seatIndex(playerID)
	if idx < 0 {
		return games.NewError(games.CodeNotSeated, "player %s is not seated", playerID)
	}
	switch e.phase {
	case PhaseWaiting:
		return games.NewError(games.CodeInvalidPhase, "hand not dealt yet")
	case PhaseShowdown, PhaseEnded:
		return games.NewError(games.CodeGameOver, "hand is over")
	}
	if idx != e.turn {
		return games.ErrNotYourTurn()
	}
	s := e.seats[idx]

	switch action {
	case "fold":
		s.Folded = true
	case "check":
		if s.RoundBet != e.currentBet {
			return games.NewError(games.CodeCannotCheck, "must call %d", e.currentBet-s.RoundBet)
		}
	case "call":
		need := e.currentBet - s.RoundBet
		if need <= 0 {
			return games.NewError(games.CodeIllegalMove, "nothing to call")
		}
		e.commit(s, need)
	case "raise":
		var req raisePayload
		if err := json.Unmarshal(payload, &req); err != nil {
			return games.NewError(games.CodeBadPayload, "raise needs an amount")
		}
		if req.Amount < e.minRaise {
			return games.NewError(games.CodeRaiseTooSmall, "minimum raise is %d", e.minRaise)
		}
		cost := (e.currentBet - s.RoundBet) + req.Amount
		if cost > s.Chips {
			e.allIn(idx)
			break
		}
		e.commit(s, cost)
		e.currentBet = s.RoundBet
		e.minRaise = req.Amount
		e.reopenAction(idx)
	case "all_in":
		e.allIn(idx)
	default:
		return games.NewError(games.CodeUnknownAction, "unknown poker action %q", action)
	}

	s.HasActed = true
	e.log.Debugf("seat %d %s: bet=%d pot=%d phase=%s", idx, action, e.currentBet, e.totalCommitted(), e.phase)
	e.afterAction()
	return nil
}

// allIn commits the seat's whole stack. A short all-in that does not cover a
// full raise does not reopen action for players who already acted.
func (e *Engine) allIn(idx int) {
	s := e.seats[idx]
	e.commit(s, s.Chips)
	if s.RoundBet > e.currentBet {
		raisedBy := s.RoundBet - e.currentBet
		e.currentBet = s.RoundBet
		if raisedBy >= e.minRaise {
			e.minRaise = raisedBy
			e.reopenAction(idx)
		}
	}
}

// reopenAction records a fresh aggressor and requires every other live seat
// to act again.
func (e *Engine) reopenAction(aggressor int) {
	e.lastAggressor = aggressor
	for i, s := range e.seats {
		if i != aggressor && !s.Folded && !s.AllIn && !s.Eliminated {
			s.HasActed = false
		}
	}
}

// afterAction advances the turn, closes the betting round, or ends the hand.
func (e *Engine) afterAction() {
	if e.liveCount() == 1 {
		e.endByFolds()
		return
	}
	if e.roundClosed() {
		e.advancePhase()
		return
	}
	e.turn = e.nextActor(e.turn)
	if e.turn < 0 {
		// Everyone left is all-in; run out the board.
		e.advancePhase()
	}
}

// roundClosed reports whether every live, non-all-in seat has matched the
// current bet and acted since the last raise.
func (e *Engine) roundClosed() bool {
	for _, s := range e.seats {
		if s.Folded || s.AllIn || s.Eliminated {
			continue
		}
		if !s.HasActed || s.RoundBet != e.currentBet {
			return false
		}
	}
	return true
}

// advancePhase deals the next street, or evaluates the showdown after the
// river. When at most one seat can still act, the remaining streets run out
// immediately.
func (e *Engine) advancePhase() {
	for {
		for _, s := range e.seats {
			s.RoundBet = 0
			s.HasActed = false
		}
		e.currentBet = 0
		e.minRaise = e.cfg.BigBlind
		e.lastAggressor = -1

		switch e.phase {
		case PhasePreflop:
			e.dealCommunity(3)
			e.phase = PhaseFlop
		case PhaseFlop:
			e.dealCommunity(1)
			e.phase = PhaseTurn
		case PhaseTurn:
			e.dealCommunity(1)
			e.phase = PhaseRiver
		case PhaseRiver:
			e.showdown()
			return
		}
		if e.activeCount() > 1 {
			e.turn = e.firstToAct()
			return
		}
	}
}

func (e *Engine) dealCommunity(n int) {
	for i := 0; i < n; i++ {
		if card, ok := e.deck.Draw(); ok {
			e.community = append(e.community, card)
		}
	}
}

// endByFolds awards all pots to the last seat standing.
func (e *Engine) endByFolds() {
	e.pots = buildPots(e.committedTotals(), e.seatFolded)
	winner := -1
	for i, s := range e.seats {
		if !s.Folded && !s.Eliminated {
			winner = i
			break
		}
	}
	for _, pot := range e.pots {
		// Pots whose eligible seats all folded (uncalled overage) return to
		// their contributor, which is the same surviving seat here.
		e.seats[winner].Chips += pot.Amount
	}
	e.winners = []int{winner}
	e.phase = PhaseEnded
	e.log.Debugf("hand won uncontested by seat %d", winner)
}

// showdown builds side pots, evaluates every eligible hand and distributes
// chips, leaving at most a one-chip remainder per pot to the first tied seat
// clockwise from the dealer.
func (e *Engine) showdown() {
	e.phase = PhaseShowdown
	e.pots = buildPots(e.committedTotals(), e.seatFolded)

	for _, s := range e.seats {
		if !s.Folded && !s.Eliminated {
			v := Evaluate(s.Hole, e.community)
			s.HandValue = &v
		}
	}

	first := true
	for _, pot := range e.pots {
		winners := e.potWinners(pot)
		if len(winners) == 0 {
			// Uncalled overage: return it to its sole contributor.
			for _, seat := range pot.Eligible {
				e.seats[seat].Chips += pot.Amount
			}
			continue
		}
		share := pot.Amount / int64(len(winners))
		rem := pot.Amount % int64(len(winners))
		for _, w := range e.clockwiseFromDealer(winners) {
			add := share
			if rem > 0 {
				add++
				rem--
			}
			e.seats[w].Chips += add
		}
		if first {
			e.winners = winners
			first = false
		}
	}
	e.log.Debugf("showdown settled: winners=%v pots=%d", e.winners, len(e.pots))
}

// potWinners returns the eligible seats holding the best hand for this pot.
func (e *Engine) potWinners(pot Pot) []int {
	var winners []int
	var best *HandValue
	for _, seat := range pot.Eligible {
		hv := e.seats[seat].HandValue
		if hv == nil {
			continue
		}
		switch {
		case best == nil || CompareHands(*hv, *best) > 0:
			best = hv
			winners = []int{seat}
		case CompareHands(*hv, *best) == 0:
			winners = append(winners, seat)
		}
	}
	return winners
}

// clockwiseFromDealer orders seats by distance clockwise from the dealer, so
// odd chips land on the first tied seat after the button.
func (e *Engine) clockwiseFromDealer(seats []int) []int {
	n := len(e.seats)
	out := make([]int, len(seats))
	copy(out, seats)
	dist := func(seat int) int { return ((seat - e.dealer - 1) % n + n) % n }
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if dist(out[j]) < dist(out[i]) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

func (e *Engine) CurrentPlayerIndex() (int, bool) {
	switch e.phase {
	case PhasePreflop, PhaseFlop, PhaseTurn, PhaseRiver:
		return e.turn, e.turn >= 0
	}
	return 0, false
}

func (e *Engine) IsTerminal() bool {
	return e.phase == PhaseShowdown || e.phase == PhaseEnded
}

func (e *Engine) WinnerIndex() (int, bool) {
	if e.IsTerminal() && len(e.winners) == 1 {
		return e.winners[0], true
	}
	return 0, false
}

// AutoPlay checks when legal, folds otherwise.
func (e *Engine) AutoPlay(seatIndex int) error {
	if seatIndex != e.turn || !e.bettingPhase() {
		return games.NewError(games.CodeInvalidPhase, "seat %d cannot act now", seatIndex)
	}
	s := e.seats[seatIndex]
	action := "fold"
	if s.RoundBet == e.currentBet {
		action = "check"
	}
	e.log.Debugf("auto-play for seat %d: %s", seatIndex, action)
	return e.HandleAction(s.PlayerID, action, nil)
}

// Eliminate folds the seat out of the hand permanently.
func (e *Engine) Eliminate(seatIndex int) {
	if seatIndex < 0 || seatIndex >= len(e.seats) {
		return
	}
	s := e.seats[seatIndex]
	s.Folded = true
	s.Eliminated = true
	if e.bettingPhase() {
		if e.liveCount() == 1 {
			e.endByFolds()
		} else if seatIndex == e.turn {
			e.afterAction()
		}
	}
}

func (e *Engine) bettingPhase() bool {
	switch e.phase {
	case PhasePreflop, PhaseFlop, PhaseTurn, PhaseRiver:
		return true
	}
	return false
}

// projection is the client-facing state; hole cards are filtered per viewer.
type projection struct {
	Seats      []*seatState `json:"seats"`
	Community  []Card       `json:"communityCards"`
	Phase      Phase        `json:"phase"`
	Dealer     int          `json:"dealerSeat"`
	Turn       int          `json:"currentTurnSeat"`
	CurrentBet int64        `json:"currentBet"`
	MinRaise   int64        `json:"minRaise"`
	Pot        int64        `json:"pot"`
	Pots       []Pot        `json:"pots,omitempty"`
	Winners    []int        `json:"winners,omitempty"`
}

// ProjectFor returns the viewer's masked rendering of the hand. Hole cards
// are visible only to their owner until showdown reveals non-folded seats.
func (e *Engine) ProjectFor(viewerPlayerID string) games.View {
	reveal := e.phase == PhaseShowdown
	seats := make([]*seatState, len(e.seats))
	for i, s := range e.seats {
		cp := *s
		if s.PlayerID != viewerPlayerID && !(reveal && !s.Folded && !s.Eliminated) {
			cp.Hole = nil
			cp.HandValue = nil
		} else {
			cp.Hole = append([]Card{}, s.Hole...)
		}
		seats[i] = &cp
	}
	p := projection{
		Seats:      seats,
		Community:  append([]Card{}, e.community...),
		Phase:      e.phase,
		Dealer:     e.dealer,
		Turn:       e.turn,
		CurrentBet: e.currentBet,
		MinRaise:   e.minRaise,
		Pot:        e.totalCommitted(),
		Pots:       e.pots,
		Winners:    e.winners,
	}
	return games.View{State: p, AvailableActions: e.availableActions(viewerPlayerID)}
}

// availableActions lists the legal actions for the viewer right now.
func (e *Engine) availableActions(viewerPlayerID string) []string {
	idx := e.seatIndex(viewerPlayerID)
	if idx < 0 || idx != e.turn || !e.bettingPhase() {
		return nil
	}
	s := e.seats[idx]
	actions := []string{"fold"}
	if s.RoundBet == e.currentBet {
		actions = append(actions, "check")
	} else {
		actions = append(actions, "call")
	}
	if s.Chips >= e.currentBet-s.RoundBet+e.minRaise {
		actions = append(actions, "raise")
	}
	if s.Chips > 0 {
		actions = append(actions, "all_in")
	}
	return actions
}

// Serialize snapshots the full engine state, deck included.
func (e *Engine) Serialize() ([]byte, error) {
	return json.Marshal(engineState{
		Seats:         e.seats,
		DeckRemaining: e.deckRemaining(),
		Community:     e.community,
		Phase:         e.phase,
		Dealer:        e.dealer,
		Turn:          e.turn,
		CurrentBet:    e.currentBet,
		MinRaise:      e.minRaise,
		SmallBlind:    e.cfg.SmallBlind,
		BigBlind:      e.cfg.BigBlind,
		LastAggressor: e.lastAggressor,
		Pots:          e.pots,
		Winners:       e.winners,
	})
}

// Restore rebuilds the engine from a Serialize snapshot.
func (e *Engine) Restore(data []byte) error {
	var st engineState
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}
	e.seats = st.Seats
	e.deck = NewDeckFromCards(st.DeckRemaining, e.rng)
	e.community = st.Community
	e.phase = st.Phase
	e.dealer = st.Dealer
	e.turn = st.Turn
	e.currentBet = st.CurrentBet
	e.minRaise = st.MinRaise
	e.cfg.SmallBlind = st.SmallBlind
	e.cfg.BigBlind = st.BigBlind
	e.lastAggressor = st.LastAggressor
	e.pots = st.Pots
	e.winners = st.Winners
	return nil
}

func (e *Engine) seatIndex(playerID string) int {
	for i, s := range e.seats {
		if s.PlayerID == playerID {
			return i
		}
	}
	return -1
}

func (e *Engine) seatFolded(idx int) bool {
	return e.seats[idx].Folded || e.seats[idx].Eliminated
}

func (e *Engine) liveCount() int {
	n := 0
	for _, s := range e.seats {
		if !s.Folded && !s.Eliminated {
			n++
		}
	}
	return n
}

func (e *Engine) activeCount() int {
	n := 0
	for _, s := range e.seats {
		if !s.Folded && !s.AllIn && !s.Eliminated {
			n++
		}
	}
	return n
}

func (e *Engine) committedTotals() []int64 {
	out := make([]int64, len(e.seats))
	for i, s := range e.seats {
		out[i] = s.Committed
	}
	return out
}

func (e *Engine) totalCommitted() int64 {
	var sum int64
	for _, s := range e.seats {
		sum += s.Committed
	}
	return sum
}

func (e *Engine) deckRemaining() []Card {
	if e.deck == nil {
		return nil
	}
	return e.deck.Remaining()
}
