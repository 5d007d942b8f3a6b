package snakes

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gameroomdev/gameroom/pkg/games"
)

func scriptedDice(rolls ...int) func() int {
	i := 0
	return func() int {
		v := rolls[i%len(rolls)]
		i++
		return v
	}
}

func newTestEngine(t *testing.T, seats int, rolls ...int) *Engine {
	t.Helper()
	e := New(Config{Roll: scriptedDice(rolls...)})
	names := []string{"p0", "p1", "p2", "p3"}
	for i := 0; i < seats; i++ {
		require.True(t, e.AddPlayer(games.Seat{PlayerID: names[i], Index: i}))
	}
	return e
}

func TestTripleSixVoidsThirdRoll(t *testing.T) {
	e := newTestEngine(t, 2, 6, 6, 6)

	require.NoError(t, e.HandleAction("p0", "roll", nil)) // 0 -> 6, extra
	require.NoError(t, e.HandleAction("p0", "roll", nil)) // 6 -> 12, extra
	posBefore := e.seats[0].Position
	require.NoError(t, e.HandleAction("p0", "roll", nil)) // third six: void

	require.Equal(t, posBefore, e.seats[0].Position, "third six moves nothing")
	require.Equal(t, 0, e.seats[0].ConsecutiveSixes)
	turn, _ := e.CurrentPlayerIndex()
	require.Equal(t, 1, turn, "turn passes after the voided roll")
}

func TestLadderClimb(t *testing.T) {
	e := newTestEngine(t, 2, 1)

	require.NoError(t, e.HandleAction("p0", "roll", nil)) // 0 -> 1, ladder to 38
	require.Equal(t, 38, e.seats[0].Position)

	steps := e.LastMoveSteps()
	require.Len(t, steps, 2)
	require.Equal(t, 1, steps[0].To)
	require.Equal(t, 38, steps[1].To)
}

func TestSnakeSlide(t *testing.T) {
	e := newTestEngine(t, 2, 3)
	e.seats[0].Position = 13

	require.NoError(t, e.HandleAction("p0", "roll", nil)) // 13 -> 16, snake to 6
	require.Equal(t, 6, e.seats[0].Position)
}

func TestExactLandingWins(t *testing.T) {
	e := newTestEngine(t, 2, 2)
	e.seats[0].Position = 98
	// 98 is a snake head, but the pawn is placed there directly.
	require.NoError(t, e.HandleAction("p0", "roll", nil)) // 98 + 2 = 100

	require.True(t, e.IsTerminal())
	winner, ok := e.WinnerIndex()
	require.True(t, ok)
	require.Equal(t, 0, winner)
}

func TestOvershootStaysPut(t *testing.T) {
	e := newTestEngine(t, 2, 4)
	e.seats[0].Position = 99

	require.NoError(t, e.HandleAction("p0", "roll", nil))
	require.Equal(t, 99, e.seats[0].Position)
	turn, _ := e.CurrentPlayerIndex()
	require.Equal(t, 1, turn)
}

func TestOutOfTurnRejected(t *testing.T) {
	e := newTestEngine(t, 2, 1)
	err := e.HandleAction("p1", "roll", nil)
	var gerr *games.Error
	require.True(t, errors.As(err, &gerr))
	require.Equal(t, games.CodeNotYourTurn, gerr.Code)
}

func TestEliminationDeclaresSurvivor(t *testing.T) {
	e := newTestEngine(t, 2, 1)
	e.Eliminate(1)

	require.True(t, e.IsTerminal())
	winner, _ := e.WinnerIndex()
	require.Equal(t, 0, winner)
}

func TestSerializeRestoreRoundTrip(t *testing.T) {
	e := newTestEngine(t, 3, 5, 3)
	require.NoError(t, e.HandleAction("p0", "roll", nil))
	require.NoError(t, e.HandleAction("p1", "roll", nil))

	data, err := e.Serialize()
	require.NoError(t, err)

	e2 := New(Config{})
	require.NoError(t, e2.Restore(data))
	require.Equal(t, e.seats, e2.seats)
	turn, _ := e2.CurrentPlayerIndex()
	require.Equal(t, 2, turn)
}
