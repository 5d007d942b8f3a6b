package game2048

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gameroomdev/gameroom/pkg/games"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := New(Config{RNG: games.NewRNG(3)})
	require.True(t, e.AddPlayer(games.Seat{PlayerID: "solo", Index: 0}))
	return e
}

func TestShiftLeftMerges(t *testing.T) {
	board := [16]int{
		2, 2, 0, 0,
		4, 0, 4, 0,
		2, 2, 2, 2,
		0, 0, 0, 2,
	}
	out, gained, moved := shift(board, Left)
	require.True(t, moved)
	require.Equal(t, [16]int{
		4, 0, 0, 0,
		8, 0, 0, 0,
		4, 4, 0, 0,
		2, 0, 0, 0,
	}, out)
	require.EqualValues(t, 4+8+4+4, gained)
}

func TestShiftRightMerges(t *testing.T) {
	board := [16]int{
		2, 2, 2, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
	}
	out, gained, moved := shift(board, Right)
	require.True(t, moved)
	// The pair nearest the wall merges first.
	require.Equal(t, [16]int{
		0, 0, 2, 4,
		0, 0, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
	}, out)
	require.EqualValues(t, 4, gained)
}

func TestShiftVertical(t *testing.T) {
	board := [16]int{
		2, 0, 0, 0,
		2, 0, 0, 0,
		4, 0, 0, 0,
		4, 0, 0, 0,
	}
	out, gained, moved := shift(board, Up)
	require.True(t, moved)
	require.Equal(t, 4, out[0])
	require.Equal(t, 8, out[4])
	require.EqualValues(t, 12, gained)
}

func TestNoOpMoveRejected(t *testing.T) {
	e := newTestEngine(t)
	e.board = [16]int{
		2, 4, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
	}
	payload, _ := json.Marshal(movePayload{Direction: Left})
	err := e.HandleAction("solo", "move", payload)
	var gerr *games.Error
	require.True(t, errors.As(err, &gerr))
	require.Equal(t, games.CodeIllegalMove, gerr.Code)
}

func TestMoveSpawnsTile(t *testing.T) {
	e := newTestEngine(t)
	before := 0
	for _, v := range e.board {
		if v != 0 {
			before++
		}
	}
	require.Equal(t, 2, before)

	payload, _ := json.Marshal(movePayload{Direction: Down})
	if err := e.HandleAction("solo", "move", payload); err != nil {
		payload, _ = json.Marshal(movePayload{Direction: Right})
		require.NoError(t, e.HandleAction("solo", "move", payload))
	}

	after := 0
	for _, v := range e.board {
		if v != 0 {
			after++
		}
	}
	require.GreaterOrEqual(t, after, before)
}

func TestWinAt2048(t *testing.T) {
	e := newTestEngine(t)
	e.board = [16]int{
		1024, 1024, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
	}
	payload, _ := json.Marshal(movePayload{Direction: Left})
	require.NoError(t, e.HandleAction("solo", "move", payload))

	require.True(t, e.won)
	winner, ok := e.WinnerIndex()
	require.True(t, ok)
	require.Equal(t, 0, winner)
	// Play continues past 2048.
	require.False(t, e.IsTerminal())
}

func TestGameOverWhenStuck(t *testing.T) {
	e := newTestEngine(t)
	// Checkerboard with one merge left in the corner.
	e.board = [16]int{
		2, 4, 2, 4,
		4, 2, 4, 2,
		2, 4, 2, 4,
		4, 2, 4, 4,
	}
	payload, _ := json.Marshal(movePayload{Direction: Right})
	require.NoError(t, e.HandleAction("solo", "move", payload))
	// Whether the game ended depends on the spawned tile; the engine must
	// at least have detected stuckness correctly.
	require.Equal(t, e.over, !e.anyMove())
}

func TestNoTurnModel(t *testing.T) {
	e := newTestEngine(t)
	_, ok := e.CurrentPlayerIndex()
	require.False(t, ok)
	require.True(t, games.Kind2048.TimerExcluded())
}

func TestSerializeRestoreRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	data, err := e.Serialize()
	require.NoError(t, err)

	e2 := New(Config{RNG: games.NewRNG(4)})
	require.NoError(t, e2.Restore(data))
	require.Equal(t, e.board, e2.board)
	require.Equal(t, e.score, e2.score)
}
