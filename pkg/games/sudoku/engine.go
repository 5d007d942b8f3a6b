package sudoku

import (
	"encoding/json"
	"math/rand"

	"github.com/decred/slog"

	"github.com/gameroomdev/gameroom/pkg/games"
)

// Difficulty controls how many cells the generator blanks out.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

func (d Difficulty) blanks() int {
	switch d {
	case Easy:
		return 35
	case Hard:
		return 55
	default:
		return 45
	}
}

// Config holds construction parameters for a sudoku engine.
type Config struct {
	Log        slog.Logger
	RNG        *rand.Rand
	Difficulty Difficulty
}

// Engine is the single-player sudoku engine. It is timer-excluded: there is
// no turn model and CurrentPlayerIndex always reports none.
type Engine struct {
	log slog.Logger
	rng *rand.Rand

	seats    []games.Seat
	board    [81]int
	solution [81]int
	given    [81]bool
	mistakes int
	solved   bool
	over     bool
}

type engineState struct {
	Seats    []games.Seat `json:"seats"`
	Board    [81]int      `json:"board"`
	Solution [81]int      `json:"solution"`
	Given    [81]bool     `json:"given"`
	Mistakes int          `json:"mistakes"`
	Solved   bool         `json:"isSolved"`
	Over     bool         `json:"isOver"`
}

// New creates a sudoku engine with a freshly generated puzzle.
func New(cfg Config) *Engine {
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}
	if cfg.RNG == nil {
		cfg.RNG = games.NewRNG(0)
	}
	e := &Engine{log: cfg.Log, rng: cfg.RNG}
	e.generate(cfg.Difficulty.blanks())
	return e
}

func (e *Engine) Kind() games.Kind { return games.KindSudoku }
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

// generate fills a complete valid grid by randomized backtracking, keeps it
// as the solution and blanks out cells for the puzzle.
func (e *Engine) generate(blanks int) {
	e.fillCell(0)
	e.solution = e.board
	order := e.rng.Perm(81)
	for _, cell := range order[:blanks] {
		e.board[cell] = 0
	}
	for i := range e.given {
		e.given[i] = e.board[i] != 0
	}
}

func (e *Engine) fillCell(cell int) bool {
	if cell == 81 {
		return true
	}
	vals := e.rng.Perm(9)
	for _, v := range vals {
		val := v + 1
		if e.fits(cell, val) {
			e.board[cell] = val
			if e.fillCell(cell + 1) {
				return true
			}
			e.board[cell] = 0
		}
	}
	return false
}

func (e *Engine) fits(cell, val int) bool {
	row, col := cell/9, cell%9
	boxRow, boxCol := (row/3)*3, (col/3)*3
	for i := 0; i < 9; i++ {
		if e.board[row*9+i] == val || e.board[i*9+col] == val {
			return false
		}
		if e.board[(boxRow+i/3)*9+boxCol+i%3] == val {
			return false
		}
	}
	return true
}

type cellPayload struct {
	Row   int `json:"row"`
	Col   int `json:"col"`
	Value int `json:"value"`
}

func (e *Engine) HandleAction(playerID, action string, payload json.RawMessage) error {
	if len(e.seats) == 0 || e.seats[0].PlayerID != playerID {
		return games.NewError(games.CodeNotSeated, "player %s is not seated", playerID)
	}
	if e.over {
		return games.NewError(games.CodeGameOver, "puzzle is finished")
	}
	var req cellPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return games.NewError(games.CodeBadPayload, "need row and col")
	}
	if req.Row < 0 || req.Row > 8 || req.Col < 0 || req.Col > 8 {
		return games.NewError(games.CodeBadPayload, "cell %d,%d out of range", req.Row, req.Col)
	}
	cell := req.Row*9 + req.Col
	if e.given[cell] {
		return games.NewError(games.CodeIllegalMove, "cell %d,%d is a given", req.Row, req.Col)
	}

	switch action {
	case "place":
		if req.Value < 1 || req.Value > 9 {
			return games.NewError(games.CodeBadPayload, "value %d out of range", req.Value)
		}
		e.board[cell] = req.Value
		if req.Value != e.solution[cell] {
			e.mistakes++
		}
		e.checkSolved()
		return nil
	case "erase":
		e.board[cell] = 0
		return nil
	}
	return games.NewError(games.CodeUnknownAction, "unknown sudoku action %q", action)
}

func (e *Engine) checkSolved() {
	if e.board == e.solution {
		e.solved = true
		e.over = true
	}
}

// CurrentPlayerIndex reports no turn model; sudoku is timer-excluded.
func (e *Engine) CurrentPlayerIndex() (int, bool) { return 0, false }

func (e *Engine) IsTerminal() bool { return e.over }

func (e *Engine) WinnerIndex() (int, bool) {
	if e.solved {
		return 0, true
	}
	return 0, false
}

// AutoPlay fills the first empty cell from the solution. The turn timer
// never invokes it for sudoku; it exists to satisfy the engine contract and
// doubles as a hint.
func (e *Engine) AutoPlay(seatIndex int) error {
	if e.over {
		return games.NewError(games.CodeGameOver, "puzzle is finished")
	}
	for i := range e.board {
		if e.board[i] != e.solution[i] {
			e.board[i] = e.solution[i]
			e.checkSolved()
			return nil
		}
	}
	return nil
}

func (e *Engine) Eliminate(seatIndex int) { e.over = true }

type projection struct {
	Board    [81]int  `json:"board"`
	Given    [81]bool `json:"given"`
	Mistakes int      `json:"mistakes"`
	Solved   bool     `json:"isSolved"`
	Over     bool     `json:"isOver"`
}

// ProjectFor hides the solution; only filled cells and givens leave the
// engine.
func (e *Engine) ProjectFor(viewerPlayerID string) games.View {
	p := projection{Board: e.board, Given: e.given, Mistakes: e.mistakes, Solved: e.solved, Over: e.over}
	var actions []string
	if len(e.seats) > 0 && e.seats[0].PlayerID == viewerPlayerID && !e.over {
		actions = append(actions, "place", "erase")
	}
	return games.View{State: p, AvailableActions: actions}
}

func (e *Engine) Serialize() ([]byte, error) {
	return json.Marshal(engineState{
		Seats:    e.seats,
		Board:    e.board,
		Solution: e.solution,
		Given:    e.given,
		Mistakes: e.mistakes,
		Solved:   e.solved,
		Over:     e.over,
	})
}

func (e *Engine) Restore(data []byte) error {
	var st engineState
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}
	e.seats = st.Seats
	e.board = st.Board
	e.solution = st.Solution
	e.given = st.Given
	e.mistakes = st.Mistakes
	e.solved = st.Solved
	e.over = st.Over
	return nil
}
