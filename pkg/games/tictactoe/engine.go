package tictactoe

import (
	"encoding/json"
	"math/rand"

	"github.com/decred/slog"

	"github.com/gameroomdev/gameroom/pkg/games"
)

const emptyCell = -1

var winLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// Config holds construction parameters for a tic-tac-toe engine.
type Config struct {
	Log slog.Logger
	RNG *rand.Rand
}

// Engine is the tic-tac-toe engine. Seat 0 is X and moves first.
type Engine struct {
	log slog.Logger
	rng *rand.Rand

	seats  []games.Seat
	board  [9]int
	turn   int
	moves  int
	winner int
	over   bool
	draw   bool
}

type engineState struct {
	Seats  []games.Seat `json:"seats"`
	Board  [9]int       `json:"board"`
	Turn   int          `json:"currentTurn"`
	Moves  int          `json:"moveCount"`
	Winner int          `json:"winner"`
	Over   bool         `json:"isOver"`
	Draw   bool         `json:"isDraw"`
}

func New(cfg Config) *Engine {
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}
	if cfg.RNG == nil {
		cfg.RNG = games.NewRNG(0)
	}
	e := &Engine{log: cfg.Log, rng: cfg.RNG, winner: -1}
	for i := range e.board {
		e.board[i] = emptyCell
	}
	return e
}

func (e *Engine) Kind() games.Kind { return games.KindTicTacToe }
func (e *Engine) MinSeats() int    { return 2 }
func (e *Engine) MaxSeats() int    { return 2 }

func (e *Engine) AddPlayer(seat games.Seat) bool {
	if len(e.seats) >= 2 {
		return false
	}
	for _, s := range e.seats {
		if s.PlayerID == seat.PlayerID {
			return false
		}
	}
	e.seats = append(e.seats, seat)
	return true
}

func (e *Engine) RemovePlayer(playerID string) bool {
	for i, s := range e.seats {
		if s.PlayerID == playerID {
			if !e.over && len(e.seats) == 2 {
				e.Eliminate(i)
			}
			return true
		}
	}
	return false
}

type placePayload struct {
	Cell int `json:"cell"`
}

func (e *Engine) HandleAction(playerID, action string, payload json.RawMessage) error {
	idx := e.seatIndex(playerID)
	if idx < 0 {
		return games.NewError(games.CodeNotSeated, "player %s is not seated", playerID)
	}
	if e.over {
		return games.NewError(games.CodeGameOver, "game is over")
	}
	if action != "place" {
		return games.NewError(games.CodeUnknownAction, "unknown tic-tac-toe action %q", action)
	}
	if idx != e.turn {
		return games.ErrNotYourTurn()
	}
	var req placePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return games.NewError(games.CodeBadPayload, "place needs a cell index")
	}
	return e.place(idx, req.Cell)
}

func (e *Engine) place(seat, cell int) error {
	if cell < 0 || cell > 8 {
		return games.NewError(games.CodeBadPayload, "cell %d out of range", cell)
	}
	if e.board[cell] != emptyCell {
		return games.NewError(games.CodeIllegalMove, "cell %d is taken", cell)
	}
	e.board[cell] = seat
	e.moves++
	if e.hasLine(seat) {
		e.over = true
		e.winner = seat
		return nil
	}
	if e.moves == 9 {
		e.over = true
		e.draw = true
		return nil
	}
	e.turn = 1 - e.turn
	return nil
}

func (e *Engine) hasLine(seat int) bool {
	for _, l := range winLines {
		if e.board[l[0]] == seat && e.board[l[1]] == seat && e.board[l[2]] == seat {
			return true
		}
	}
	return false
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

// AutoPlay places on a uniformly random empty cell.
func (e *Engine) AutoPlay(seatIndex int) error {
	if e.over || seatIndex != e.turn {
		return games.NewError(games.CodeInvalidPhase, "seat %d cannot act now", seatIndex)
	}
	var empty []int
	for i, c := range e.board {
		if c == emptyCell {
			empty = append(empty, i)
		}
	}
	return e.place(seatIndex, empty[e.rng.Intn(len(empty))])
}

// Eliminate forfeits the game to the other seat.
func (e *Engine) Eliminate(seatIndex int) {
	if e.over || (seatIndex != 0 && seatIndex != 1) {
		return
	}
	e.over = true
	e.winner = 1 - seatIndex
}

type projection struct {
	Board  [9]int `json:"board"`
	Turn   int    `json:"currentTurn"`
	Winner int    `json:"winner"`
	Over   bool   `json:"isOver"`
	Draw   bool   `json:"isDraw"`
}

func (e *Engine) ProjectFor(viewerPlayerID string) games.View {
	p := projection{Board: e.board, Turn: e.turn, Winner: e.winner, Over: e.over, Draw: e.draw}
	var actions []string
	if idx := e.seatIndex(viewerPlayerID); idx == e.turn && !e.over {
		actions = append(actions, "place")
	}
	return games.View{State: p, AvailableActions: actions}
}

func (e *Engine) Serialize() ([]byte, error) {
	return json.Marshal(engineState{
		Seats:  e.seats,
		Board:  e.board,
		Turn:   e.turn,
		Moves:  e.moves,
		Winner: e.winner,
		Over:   e.over,
		Draw:   e.draw,
	})
}

func (e *Engine) Restore(data []byte) error {
	var st engineState
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}
	e.seats = st.Seats
	e.board = st.Board
	e.turn = st.Turn
	e.moves = st.Moves
	e.winner = st.Winner
	e.over = st.Over
	e.draw = st.Draw
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
