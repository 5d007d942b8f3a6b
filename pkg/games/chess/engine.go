package chess

import (
	"encoding/json"
	"math/rand"
	"time"

	"github.com/decred/slog"

	"github.com/gameroomdev/gameroom/pkg/games"
)

// Status is the game outcome classification.
type Status string

const (
	StatusPlaying              Status = "playing"
	StatusCheckmate            Status = "checkmate"
	StatusStalemate            Status = "stalemate"
	StatusDrawFiftyMove        Status = "draw-fifty-move"
	StatusDrawInsufficient     Status = "draw-insufficient-material"
	StatusDrawAgreed           Status = "draw-agreed"
	StatusResigned             Status = "resigned"
	StatusTimeout              Status = "timeout"
)

// ClockKind selects the time-control style.
type ClockKind string

const (
	ClockUnlimited ClockKind = "unlimited"
	ClockFischer   ClockKind = "fischer"
	ClockDelay     ClockKind = "delay"
)

// Clock is the optional per-game chess clock, derived from wall time at each
// move rather than ticked.
type Clock struct {
	Kind            ClockKind `json:"kind"`
	InitialMs       int64     `json:"initialMs"`
	IncrementMs     int64     `json:"incrementMs"`
	WhiteRemaining  int64     `json:"whiteRemainingMs"`
	BlackRemaining  int64     `json:"blackRemainingMs"`
	LastMoveEpochMs int64     `json:"lastMoveEpochMs"`
}

// Config holds construction parameters for a chess engine.
type Config struct {
	Log slog.Logger
	RNG *rand.Rand
	// Clock enables a time control when Kind is fischer or delay.
	Clock *Clock
	// Now overrides the wall clock in tests.
	Now func() time.Time
}

// Engine is the chess engine. Seat 0 plays white, seat 1 black.
type Engine struct {
	log slog.Logger
	rng *rand.Rand
	now func() time.Time

	seats [2]games.Seat
	nSeat int

	pos           position
	active        Color
	history       []string
	halfmoveClock int
	fullmove      int
	drawOfferBy   Color
	captured      [2][]PieceType
	status        Status
	winner        Color
	clock         *Clock
}

type engineState struct {
	Board         Board        `json:"board"`
	EnPassant     Square       `json:"enPassantTarget"`
	Active        Color        `json:"activeColor"`
	History       []string     `json:"moveHistory"`
	HalfmoveClock int          `json:"halfMoveClock"`
	Fullmove      int          `json:"fullMoveNumber"`
	DrawOfferBy   Color        `json:"drawOfferBy"`
	CapturedWhite []PieceType  `json:"capturedByWhite"`
	CapturedBlack []PieceType  `json:"capturedByBlack"`
	Status        Status       `json:"status"`
	Winner        Color        `json:"winner"`
	Clock         *Clock       `json:"clock,omitempty"`
	Seats         []games.Seat `json:"seats"`
}

// New creates a chess engine in the initial position.
func New(cfg Config) *Engine {
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}
	if cfg.RNG == nil {
		cfg.RNG = games.NewRNG(0)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		log:         cfg.Log,
		rng:         cfg.RNG,
		now:         cfg.Now,
		pos:         position{board: newBoard(), enPassant: noSquare},
		active:      White,
		fullmove:    1,
		drawOfferBy: NoColor,
		status:      StatusPlaying,
		winner:      NoColor,
		clock:       cfg.Clock,
	}
}

func (e *Engine) Kind() games.Kind { return games.KindChess }
func (e *Engine) MinSeats() int    { return 2 }
func (e *Engine) MaxSeats() int    { return 2 }

func (e *Engine) AddPlayer(seat games.Seat) bool {
	if e.nSeat >= 2 {
		return false
	}
	for i := 0; i < e.nSeat; i++ {
		if e.seats[i].PlayerID == seat.PlayerID {
			return false
		}
	}
	e.seats[e.nSeat] = seat
	e.nSeat++
	return true
}

func (e *Engine) RemovePlayer(playerID string) bool {
	idx := e.seatIndex(playerID)
	if idx < 0 {
		return false
	}
	// Leaving a live game counts as resignation.
	if e.status == StatusPlaying && e.nSeat == 2 {
		e.resign(Color(idx))
	}
	return true
}

// Begin arms the clock once both players are seated.
func (e *Engine) Begin() error {
	if e.nSeat < 2 {
		return games.NewError(games.CodeInvalidPhase, "chess needs two players")
	}
	if e.clock != nil && e.clock.Kind != ClockUnlimited {
		e.clock.WhiteRemaining = e.clock.InitialMs
		e.clock.BlackRemaining = e.clock.InitialMs
		e.clock.LastMoveEpochMs = e.now().UnixMilli()
	}
	return nil
}

type movePayload struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion"`
}

// HandleAction applies move, resign or draw-offer actions for the acting
// player.
func (e *Engine) HandleAction(playerID, action string, payload json.RawMessage) error {
	idx := e.seatIndex(playerID)
	if idx < 0 {
		return games.NewError(games.CodeNotSeated, "player %s is not seated", playerID)
	}
	if e.status != StatusPlaying {
		return games.NewError(games.CodeGameOver, "game is over")
	}
	color := Color(idx)

	switch action {
	case "move":
		if color != e.active {
			return games.ErrNotYourTurn()
		}
		var req movePayload
		if err := json.Unmarshal(payload, &req); err != nil {
			return games.NewError(games.CodeBadPayload, "move needs from and to squares")
		}
		m, err := e.parseMove(req)
		if err != nil {
			return err
		}
		return e.playMove(m)
	case "resign":
		e.resign(color)
		return nil
	case "offer_draw":
		if e.drawOfferBy == color {
			return games.NewError(games.CodeIllegalMove, "draw already offered")
		}
		e.drawOfferBy = color
		return nil
	case "accept_draw":
		if e.drawOfferBy == NoColor || e.drawOfferBy == color {
			return games.NewError(games.CodeIllegalMove, "no draw offer to accept")
		}
		e.status = StatusDrawAgreed
		e.winner = NoColor
		return nil
	case "decline_draw":
		if e.drawOfferBy == NoColor || e.drawOfferBy == color {
			return games.NewError(games.CodeIllegalMove, "no draw offer to decline")
		}
		e.drawOfferBy = NoColor
		return nil
	}
	return games.NewError(games.CodeUnknownAction, "unknown chess action %q", action)
}

// parseMove validates the payload squares and promotion piece against the
// legal move list.
func (e *Engine) parseMove(req movePayload) (Move, error) {
	from, err := parseSquare(req.From)
	if err != nil {
		return Move{}, games.NewError(games.CodeBadPayload, "%v", err)
	}
	to, err := parseSquare(req.To)
	if err != nil {
		return Move{}, games.NewError(games.CodeBadPayload, "%v", err)
	}
	promo := NoPiece
	switch req.Promotion {
	case "":
	case "q", "queen":
		promo = Queen
	case "r", "rook":
		promo = Rook
	case "b", "bishop":
		promo = Bishop
	case "n", "knight":
		promo = Knight
	default:
		return Move{}, games.NewError(games.CodeBadPromotion, "invalid promotion piece %q", req.Promotion)
	}

	for _, legal := range e.pos.legalMoves(e.active) {
		if legal.From != from || legal.To != to {
			continue
		}
		if legal.Promotion == NoPiece {
			return legal, nil
		}
		// Promoting move: default to queen when unspecified.
		want := promo
		if want == NoPiece {
			want = Queen
		}
		if legal.Promotion == want {
			return legal, nil
		}
	}
	return Move{}, games.NewError(games.CodeIllegalMove, "illegal move %s%s", from.Name(), to.Name())
}

// playMove executes a validated legal move, settles the clock and
// reclassifies the game.
func (e *Engine) playMove(m Move) error {
	if err := e.settleClock(); err != nil || e.status != StatusPlaying {
		return err
	}

	moved := e.pos.board[m.From].Type
	next, captured := e.pos.apply(m)
	e.pos = next

	if captured != NoPiece {
		e.captured[e.active] = append(e.captured[e.active], captured)
	}
	if moved == Pawn || captured != NoPiece {
		e.halfmoveClock = 0
	} else {
		e.halfmoveClock++
	}
	if e.active == Black {
		e.fullmove++
	}
	e.history = append(e.history, m.String())
	// A standing draw offer expires when the offerer moves.
	if e.drawOfferBy == e.active {
		e.drawOfferBy = NoColor
	}

	e.creditIncrement()
	e.active = e.active.Opponent()
	e.classify()
	e.log.Debugf("move %s: status=%s active=%s halfmove=%d", m, e.status, e.active, e.halfmoveClock)
	return nil
}

// classify applies the terminal ordering: mate, stalemate, fifty-move rule,
// insufficient material.
func (e *Engine) classify() {
	if len(e.pos.legalMoves(e.active)) == 0 {
		if e.pos.inCheck(e.active) {
			e.status = StatusCheckmate
			e.winner = e.active.Opponent()
		} else {
			e.status = StatusStalemate
			e.winner = NoColor
		}
		return
	}
	if e.halfmoveClock >= 100 {
		e.status = StatusDrawFiftyMove
		e.winner = NoColor
		return
	}
	if e.insufficientMaterial() {
		e.status = StatusDrawInsufficient
		e.winner = NoColor
	}
}

// insufficientMaterial recognizes K-K, K-KB and K-KN.
func (e *Engine) insufficientMaterial() bool {
	var minor int
	for s := Square(0); s < 64; s++ {
		switch e.pos.board[s].Type {
		case NoPiece, King:
		case Bishop, Knight:
			minor++
		default:
			return false
		}
	}
	return minor <= 1
}

func (e *Engine) resign(c Color) {
	e.status = StatusResigned
	e.winner = c.Opponent()
}

// settleClock charges elapsed time to the side to move and flags a timeout
// when it runs out.
func (e *Engine) settleClock() error {
	if e.clock == nil || e.clock.Kind == ClockUnlimited || e.clock.LastMoveEpochMs == 0 {
		return nil
	}
	elapsed := e.now().UnixMilli() - e.clock.LastMoveEpochMs
	remaining := e.remainingFor(e.active) - elapsed
	e.setRemainingFor(e.active, remaining)
	if remaining <= 0 {
		e.setRemainingFor(e.active, 0)
		e.status = StatusTimeout
		e.winner = e.active.Opponent()
	}
	return nil
}

// creditIncrement adds the increment to the mover and restamps the clock.
func (e *Engine) creditIncrement() {
	if e.clock == nil || e.clock.Kind == ClockUnlimited {
		return
	}
	if e.clock.Kind == ClockFischer {
		e.setRemainingFor(e.active, e.remainingFor(e.active)+e.clock.IncrementMs)
	}
	e.clock.LastMoveEpochMs = e.now().UnixMilli()
}

// CheckFlag settles the running clock without a move, declaring a timeout
// win when the side to move is out of time. The server polls it while a
// clocked game is live.
func (e *Engine) CheckFlag() bool {
	if e.status != StatusPlaying {
		return false
	}
	if e.clock == nil || e.clock.Kind == ClockUnlimited || e.clock.LastMoveEpochMs == 0 {
		return false
	}
	elapsed := e.now().UnixMilli() - e.clock.LastMoveEpochMs
	if e.remainingFor(e.active)-elapsed <= 0 {
		e.setRemainingFor(e.active, 0)
		e.status = StatusTimeout
		e.winner = e.active.Opponent()
		return true
	}
	return false
}

func (e *Engine) remainingFor(c Color) int64 {
	if c == White {
		return e.clock.WhiteRemaining
	}
	return e.clock.BlackRemaining
}

func (e *Engine) setRemainingFor(c Color, ms int64) {
	if c == White {
		e.clock.WhiteRemaining = ms
	} else {
		e.clock.BlackRemaining = ms
	}
}

// Result renders the outcome as a client-facing result string, e.g.
// "black-wins-checkmate" or "draw-stalemate".
func (e *Engine) Result() string {
	switch e.status {
	case StatusPlaying:
		return ""
	case StatusCheckmate:
		return e.winner.String() + "-wins-checkmate"
	case StatusResigned:
		return e.winner.String() + "-wins-resignation"
	case StatusTimeout:
		return e.winner.String() + "-wins-timeout"
	case StatusStalemate:
		return "draw-stalemate"
	default:
		return string(e.status)
	}
}

func (e *Engine) CurrentPlayerIndex() (int, bool) {
	if e.status != StatusPlaying {
		return 0, false
	}
	return int(e.active), true
}

func (e *Engine) IsTerminal() bool { return e.status != StatusPlaying }

func (e *Engine) WinnerIndex() (int, bool) {
	if e.winner == NoColor {
		return 0, false
	}
	return int(e.winner), true
}

// AutoPlay plays a uniformly random legal move for the seat.
func (e *Engine) AutoPlay(seatIndex int) error {
	if e.status != StatusPlaying || Color(seatIndex) != e.active {
		return games.NewError(games.CodeInvalidPhase, "seat %d cannot move now", seatIndex)
	}
	legal := e.pos.legalMoves(e.active)
	if len(legal) == 0 {
		return games.NewError(games.CodeInvalidPhase, "no legal moves")
	}
	return e.playMove(legal[e.rng.Intn(len(legal))])
}

// Eliminate treats removal as resignation.
func (e *Engine) Eliminate(seatIndex int) {
	if e.status == StatusPlaying && (seatIndex == 0 || seatIndex == 1) {
		e.resign(Color(seatIndex))
	}
}

// projection is the client-facing board state. Chess has no hidden
// information; the viewer only changes which legal moves are listed.
type projection struct {
	Board         []string `json:"board"`
	Active        string   `json:"activeColor"`
	InCheck       bool     `json:"inCheck"`
	EnPassant     string   `json:"enPassantTarget"`
	History       []string `json:"moveHistory"`
	HalfmoveClock int      `json:"halfMoveClock"`
	Fullmove      int      `json:"fullMoveNumber"`
	DrawOfferBy   string   `json:"drawOfferBy,omitempty"`
	Status        Status   `json:"status"`
	Winner        string   `json:"winner,omitempty"`
	Clock         *Clock   `json:"clock,omitempty"`
	ValidMoves    []string `json:"validMoves,omitempty"`
}

func (e *Engine) ProjectFor(viewerPlayerID string) games.View {
	cells := make([]string, 64)
	for s := Square(0); s < 64; s++ {
		pc := e.pos.board[s]
		if pc.Type == NoPiece {
			continue
		}
		code := pc.Type.String()
		if pc.Color == White {
			code = "w" + code
		} else {
			code = "b" + code
		}
		cells[s] = code
	}
	p := projection{
		Board:         cells,
		Active:        e.active.String(),
		InCheck:       e.pos.inCheck(e.active),
		EnPassant:     e.pos.enPassant.Name(),
		History:       append([]string{}, e.history...),
		HalfmoveClock: e.halfmoveClock,
		Fullmove:      e.fullmove,
		Status:        e.status,
		Clock:         e.clock,
	}
	if e.drawOfferBy != NoColor {
		p.DrawOfferBy = e.drawOfferBy.String()
	}
	if e.winner != NoColor {
		p.Winner = e.winner.String()
	}

	var actions []string
	idx := e.seatIndex(viewerPlayerID)
	if idx >= 0 && e.status == StatusPlaying {
		if Color(idx) == e.active {
			for _, m := range e.pos.legalMoves(e.active) {
				p.ValidMoves = append(p.ValidMoves, m.String())
			}
			actions = append(actions, "move")
		}
		actions = append(actions, "resign")
		if e.drawOfferBy == NoColor {
			actions = append(actions, "offer_draw")
		} else if e.drawOfferBy != Color(idx) {
			actions = append(actions, "accept_draw", "decline_draw")
		}
	}
	return games.View{State: p, AvailableActions: actions}
}

func (e *Engine) Serialize() ([]byte, error) {
	return json.Marshal(engineState{
		Board:         e.pos.board,
		EnPassant:     e.pos.enPassant,
		Active:        e.active,
		History:       e.history,
		HalfmoveClock: e.halfmoveClock,
		Fullmove:      e.fullmove,
		DrawOfferBy:   e.drawOfferBy,
		CapturedWhite: e.captured[White],
		CapturedBlack: e.captured[Black],
		Status:        e.status,
		Winner:        e.winner,
		Clock:         e.clock,
		Seats:         e.seats[:e.nSeat],
	})
}

func (e *Engine) Restore(data []byte) error {
	var st engineState
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}
	e.pos = position{board: st.Board, enPassant: st.EnPassant}
	e.active = st.Active
	e.history = st.History
	e.halfmoveClock = st.HalfmoveClock
	e.fullmove = st.Fullmove
	e.drawOfferBy = st.DrawOfferBy
	e.captured[White] = st.CapturedWhite
	e.captured[Black] = st.CapturedBlack
	e.status = st.Status
	e.winner = st.Winner
	e.clock = st.Clock
	e.nSeat = len(st.Seats)
	for i, s := range st.Seats {
		if i < 2 {
			e.seats[i] = s
		}
	}
	return nil
}

func (e *Engine) seatIndex(playerID string) int {
	for i := 0; i < e.nSeat; i++ {
		if e.seats[i].PlayerID == playerID {
			return i
		}
	}
	return -1
}
