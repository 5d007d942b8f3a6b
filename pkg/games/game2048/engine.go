package game2048

import (
	"encoding/json"
	"math/rand"

	"github.com/decred/slog"

	"github.com/gameroomdev/gameroom/pkg/games"
)

const size = 4

// Direction is a slide direction.
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

var directions = []Direction{Up, Down, Left, Right}

// Config holds construction parameters for a 2048 engine.
type Config struct {
	Log slog.Logger
	RNG *rand.Rand
}

// Engine is the single-player 2048 engine. Timer-excluded, no turn model.
type Engine struct {
	log slog.Logger
	rng *rand.Rand

	seats []games.Seat
	board [16]int
	score int64
	won   bool
	over  bool
}

type engineState struct {
	Seats []games.Seat `json:"seats"`
	Board [16]int      `json:"board"`
	Score int64        `json:"score"`
	Won   bool         `json:"hasWon"`
	Over  bool         `json:"isOver"`
}

// New creates a 2048 engine with two starting tiles.
func New(cfg Config) *Engine {
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}
	if cfg.RNG == nil {
		cfg.RNG = games.NewRNG(0)
	}
	e := &Engine{log: cfg.Log, rng: cfg.RNG}
	e.spawn()
	e.spawn()
	return e
}

func (e *Engine) Kind() games.Kind { return games.Kind2048 }
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

// spawn places a 2 (or, one time in ten, a 4) on a random empty cell.
func (e *Engine) spawn() {
	var empty []int
	for i, v := range e.board {
		if v == 0 {
			empty = append(empty, i)
		}
	}
	if len(empty) == 0 {
		return
	}
	val := 2
	if e.rng.Intn(10) == 0 {
		val = 4
	}
	e.board[empty[e.rng.Intn(len(empty))]] = val
}

type movePayload struct {
	Direction Direction `json:"direction"`
}

func (e *Engine) HandleAction(playerID, action string, payload json.RawMessage) error {
	if len(e.seats) == 0 || e.seats[0].PlayerID != playerID {
		return games.NewError(games.CodeNotSeated, "player %s is not seated", playerID)
	}
	if e.over {
		return games.NewError(games.CodeGameOver, "game is over")
	}
	if action != "move" {
		return games.NewError(games.CodeUnknownAction, "unknown 2048 action %q", action)
	}
	var req movePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return games.NewError(games.CodeBadPayload, "move needs a direction")
	}
	return e.slide(req.Direction)
}

func (e *Engine) slide(dir Direction) error {
	next, gained, moved := shift(e.board, dir)
	if !moved {
		return games.NewError(games.CodeIllegalMove, "no tile can move %s", dir)
	}
	e.board = next
	e.score += gained
	for _, v := range e.board {
		if v == 2048 {
			e.won = true
		}
	}
	e.spawn()
	if !e.anyMove() {
		e.over = true
	}
	return nil
}

// shift slides and merges the whole board in one direction. Each tile merges
// at most once per move.
func shift(board [16]int, dir Direction) (out [16]int, gained int64, moved bool) {
	// Read each of the four lines front-to-back relative to the slide.
	lineCell := func(line, i int) int {
		switch dir {
		case Left:
			return line*size + i
		case Right:
			return line*size + (size - 1 - i)
		case Up:
			return i*size + line
		default: // Down
			return (size-1-i)*size + line
		}
	}
	for line := 0; line < size; line++ {
		var packed []int
		for i := 0; i < size; i++ {
			if v := board[lineCell(line, i)]; v != 0 {
				packed = append(packed, v)
			}
		}
		var merged []int
		for i := 0; i < len(packed); i++ {
			if i+1 < len(packed) && packed[i] == packed[i+1] {
				merged = append(merged, packed[i]*2)
				gained += int64(packed[i] * 2)
				i++
			} else {
				merged = append(merged, packed[i])
			}
		}
		for i := 0; i < size; i++ {
			v := 0
			if i < len(merged) {
				v = merged[i]
			}
			cell := lineCell(line, i)
			out[cell] = v
			if v != board[cell] {
				moved = true
			}
		}
	}
	return out, gained, moved
}

func (e *Engine) anyMove() bool {
	for _, dir := range directions {
		if _, _, moved := shift(e.board, dir); moved {
			return true
		}
	}
	return false
}

// CurrentPlayerIndex reports no turn model; 2048 is timer-excluded.
func (e *Engine) CurrentPlayerIndex() (int, bool) { return 0, false }

func (e *Engine) IsTerminal() bool { return e.over }

func (e *Engine) WinnerIndex() (int, bool) {
	if e.won {
		return 0, true
	}
	return 0, false
}

// AutoPlay slides in the first direction that moves anything.
func (e *Engine) AutoPlay(seatIndex int) error {
	if e.over {
		return games.NewError(games.CodeGameOver, "game is over")
	}
	for _, dir := range directions {
		if _, _, moved := shift(e.board, dir); moved {
			return e.slide(dir)
		}
	}
	return nil
}

func (e *Engine) Eliminate(seatIndex int) { e.over = true }

type projection struct {
	Board [16]int `json:"board"`
	Score int64   `json:"score"`
	Won   bool    `json:"hasWon"`
	Over  bool    `json:"isOver"`
}

func (e *Engine) ProjectFor(viewerPlayerID string) games.View {
	p := projection{Board: e.board, Score: e.score, Won: e.won, Over: e.over}
	var actions []string
	if len(e.seats) > 0 && e.seats[0].PlayerID == viewerPlayerID && !e.over {
		actions = append(actions, "move")
	}
	return games.View{State: p, AvailableActions: actions}
}

func (e *Engine) Serialize() ([]byte, error) {
	return json.Marshal(engineState{Seats: e.seats, Board: e.board, Score: e.score, Won: e.won, Over: e.over})
}

func (e *Engine) Restore(data []byte) error {
	var st engineState
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}
	e.seats = st.Seats
	e.board = st.Board
	e.score = st.Score
	e.won = st.Won
	e.over = st.Over
	return nil
}
