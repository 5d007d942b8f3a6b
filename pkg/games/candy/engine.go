package candy

import (
	"encoding/json"
	"math/rand"

	"github.com/decred/slog"

	"github.com/gameroomdev/gameroom/pkg/games"
)

const (
	boardSize  = 8
	colorCount = 5
	moveLimit  = 20
)

// Config holds construction parameters for a candy engine.
type Config struct {
	Log slog.Logger
	RNG *rand.Rand
	// Moves overrides the move budget. Zero uses the default.
	Moves int
}

// Engine is the single-player match-3 engine. Timer-excluded, no turn
// model; the game ends when the move budget runs out.
type Engine struct {
	log slog.Logger
	rng *rand.Rand

	seats     []games.Seat
	board     [boardSize][boardSize]int
	score     int64
	movesLeft int
	over      bool
}

type engineState struct {
	Seats     []games.Seat              `json:"seats"`
	Board     [boardSize][boardSize]int `json:"board"`
	Score     int64                     `json:"score"`
	MovesLeft int                       `json:"movesLeft"`
	Over      bool                      `json:"isOver"`
}

// New creates a candy engine with a board free of ready-made matches.
func New(cfg Config) *Engine {
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}
	if cfg.RNG == nil {
		cfg.RNG = games.NewRNG(0)
	}
	moves := cfg.Moves
	if moves <= 0 {
		moves = moveLimit
	}
	e := &Engine{log: cfg.Log, rng: cfg.RNG, movesLeft: moves}
	for r := 0; r < boardSize; r++ {
		for c := 0; c < boardSize; c++ {
			for {
				e.board[r][c] = e.rng.Intn(colorCount)
				if !e.matchAt(r, c) {
					break
				}
			}
		}
	}
	return e
}

// matchAt reports whether the cell completes a run of three with the cells
// already placed above or to its left.
func (e *Engine) matchAt(r, c int) bool {
	v := e.board[r][c]
	if c >= 2 && e.board[r][c-1] == v && e.board[r][c-2] == v {
		return true
	}
	if r >= 2 && e.board[r-1][c] == v && e.board[r-2][c] == v {
		return true
	}
	return false
}

func (e *Engine) Kind() games.Kind { return games.KindCandy }
func (e *Engine) MinSeats() int    { return 1 }
func (e *Engine) MaxSeats() int    { return 1 }

func (e *Engine) AddPlayer(seat games.Seat) bool {
	if len(e.seats) >= 1 {
		return false
	}
	e.seats = append(e.seats, seat)
	return true
}

func (e *Engine) RemovePlayer(playerID string) bool {
	for i, s := range e.seats {
		if s.PlayerID == playerID {
			e.seats = append(e.seats[:i], e.seats[i+1:]...)
			return true
		}
	}
	return false
}

type cellRef struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

type swapPayload struct {
	From cellRef `json:"from"`
	To   cellRef `json:"to"`
}

func (e *Engine) HandleAction(playerID, action string, payload json.RawMessage) error {
	if len(e.seats) == 0 || e.seats[0].PlayerID != playerID {
		return games.NewError(games.CodeNotSeated, "player %s is not seated", playerID)
	}
	if e.over {
		return games.NewError(games.CodeGameOver, "game is over")
	}
	if action != "swap" {
		return games.NewError(games.CodeUnknownAction, "unknown candy action %q", action)
	}
	var req swapPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return games.NewError(games.CodeBadPayload, "swap needs from and to cells")
	}
	return e.swap(req.From, req.To)
}

func (e *Engine) swap(a, b cellRef) error {
	if !inBounds(a) || !inBounds(b) {
		return games.NewError(games.CodeBadPayload, "cell out of range")
	}
	dr, dc := a.Row-b.Row, a.Col-b.Col
	if dr*dr+dc*dc != 1 {
		return games.NewError(games.CodeIllegalMove, "cells are not adjacent")
	}

	e.board[a.Row][a.Col], e.board[b.Row][b.Col] = e.board[b.Row][b.Col], e.board[a.Row][a.Col]
	cleared := e.resolve()
	if cleared == 0 {
		// Swap produced no match: undo, no move spent.
		e.board[a.Row][a.Col], e.board[b.Row][b.Col] = e.board[b.Row][b.Col], e.board[a.Row][a.Col]
		return games.NewError(games.CodeIllegalMove, "swap makes no match")
	}
	e.movesLeft--
	if e.movesLeft <= 0 {
		e.over = true
	}
	return nil
}

// resolve clears all matches, applies gravity and refills, cascading until
// the board settles. Later cascade waves score double per wave.
func (e *Engine) resolve() int {
	totalCleared := 0
	wave := 1
	for {
		marks := e.findMatches()
		if len(marks) == 0 {
			return totalCleared
		}
		totalCleared += len(marks)
		e.score += int64(len(marks) * 10 * wave)
		for cell := range marks {
			e.board[cell.Row][cell.Col] = -1
		}
		e.collapse()
		wave++
	}
}

// findMatches marks every cell in a horizontal or vertical run of three or
// more.
func (e *Engine) findMatches() map[cellRef]bool {
	marks := make(map[cellRef]bool)
	for r := 0; r < boardSize; r++ {
		for c := 0; c < boardSize; c++ {
			v := e.board[r][c]
			if v < 0 {
				continue
			}
			if c+2 < boardSize && e.board[r][c+1] == v && e.board[r][c+2] == v {
				for cc := c; cc < boardSize && e.board[r][cc] == v; cc++ {
					marks[cellRef{r, cc}] = true
				}
			}
			if r+2 < boardSize && e.board[r+1][c] == v && e.board[r+2][c] == v {
				for rr := r; rr < boardSize && e.board[rr][c] == v; rr++ {
					marks[cellRef{rr, c}] = true
				}
			}
		}
	}
	return marks
}

// collapse drops candies into cleared cells and refills the top.
func (e *Engine) collapse() {
	for c := 0; c < boardSize; c++ {
		write := boardSize - 1
		for r := boardSize - 1; r >= 0; r-- {
			if e.board[r][c] >= 0 {
				e.board[write][c] = e.board[r][c]
				write--
			}
		}
		for r := write; r >= 0; r-- {
			e.board[r][c] = e.rng.Intn(colorCount)
		}
	}
}

func inBounds(c cellRef) bool {
	return c.Row >= 0 && c.Row < boardSize && c.Col >= 0 && c.Col < boardSize
}

// CurrentPlayerIndex reports no turn model; candy is timer-excluded.
func (e *Engine) CurrentPlayerIndex() (int, bool) { return 0, false }

func (e *Engine) IsTerminal() bool { return e.over }

func (e *Engine) WinnerIndex() (int, bool) {
	if e.over && e.score > 0 {
		return 0, true
	}
	return 0, false
}

// AutoPlay performs the first swap that makes a match.
func (e *Engine) AutoPlay(seatIndex int) error {
	if e.over {
		return games.NewError(games.CodeGameOver, "game is over")
	}
	for r := 0; r < boardSize; r++ {
		for c := 0; c < boardSize; c++ {
			for _, d := range [2]cellRef{{r, c + 1}, {r + 1, c}} {
				if !inBounds(d) {
					continue
				}
				if err := e.swap(cellRef{r, c}, d); err == nil {
					return nil
				}
			}
		}
	}
	return nil
}

func (e *Engine) Eliminate(seatIndex int) { e.over = true }

type projection struct {
	Board     [boardSize][boardSize]int `json:"board"`
	Score     int64                     `json:"score"`
	MovesLeft int                       `json:"movesLeft"`
	Over      bool                      `json:"isOver"`
}

func (e *Engine) ProjectFor(viewerPlayerID string) games.View {
	p := projection{Board: e.board, Score: e.score, MovesLeft: e.movesLeft, Over: e.over}
	var actions []string
	if len(e.seats) > 0 && e.seats[0].PlayerID == viewerPlayerID && !e.over {
		actions = append(actions, "swap")
	}
	return games.View{State: p, AvailableActions: actions}
}

func (e *Engine) Serialize() ([]byte, error) {
	return json.Marshal(engineState{
		Seats:     e.seats,
		Board:     e.board,
		Score:     e.score,
		MovesLeft: e.movesLeft,
		Over:      e.over,
	})
}

func (e *Engine) Restore(data []byte) error {
	var st engineState
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}
	e.seats = st.Seats
	e.board = st.Board
	e.score = st.Score
	e.movesLeft = st.MovesLeft
	e.over = st.Over
	return nil
}
