package ludo

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gameroomdev/gameroom/pkg/games"
)

// scriptedDice feeds a fixed roll sequence into the engine.
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

func roll(t *testing.T, e *Engine, player string) {
	t.Helper()
	require.NoError(t, e.HandleAction(player, "roll", nil))
}

func move(t *testing.T, e *Engine, player string, token int) {
	t.Helper()
	payload, _ := json.Marshal(movePayload{Token: token})
	require.NoError(t, e.HandleAction(player, "move", payload))
}

func TestCaptureReturnsTokenAndGrantsExtraRoll(t *testing.T) {
	// Seat 0: exits on a 6, advances 3 (track square 3). Seat 1: exits on
	// a 6 (square 13), advances 5 (square 18). Seat 0 then rolls 6+6+3,
	// walking token 0 from progress 3 to 18: square 18, not safe.
	e := newTestEngine(t, 4, 6, 3, 6, 5, 2, 2, 6, 6, 3)

	roll(t, e, "p0") // 6, exit
	move(t, e, "p0", 0)
	roll(t, e, "p0") // 3
	move(t, e, "p0", 0) // progress 3

	roll(t, e, "p1") // 6, exit at square 13
	move(t, e, "p1", 0)
	roll(t, e, "p1") // 5 -> square 18
	move(t, e, "p1", 0)

	roll(t, e, "p2") // 2, nothing movable, passes
	roll(t, e, "p3") // 2, nothing movable, passes

	roll(t, e, "p0") // 6
	move(t, e, "p0", 0) // progress 9
	roll(t, e, "p0") // 6
	move(t, e, "p0", 0) // progress 15
	roll(t, e, "p0") // 3
	move(t, e, "p0", 0) // progress 18 -> square 18, capture

	require.Equal(t, basePos, e.seats[1].Tokens[0], "captured token returns to base")
	// Capture grants another roll: still seat 0's turn.
	turn, ok := e.CurrentPlayerIndex()
	require.True(t, ok)
	require.Equal(t, 0, turn)
	require.Equal(t, 0, e.pendingDice)
}

func TestNoCaptureOnSafeSquare(t *testing.T) {
	// Seat 1's entry square 13 is safe. Seat 0 walks a token onto it.
	e := newTestEngine(t, 2, 6, 6, 5, 6, 6, 2, 2)

	roll(t, e, "p0") // 6, exit
	move(t, e, "p0", 0)
	roll(t, e, "p0") // 6 -> progress 6
	move(t, e, "p0", 0)
	roll(t, e, "p0") // 5 -> progress 11, turn passes
	move(t, e, "p0", 0)

	roll(t, e, "p1") // 6, token 0 exits at square 13
	move(t, e, "p1", 0)
	roll(t, e, "p1") // 6, token 1 exits too
	move(t, e, "p1", 1)
	roll(t, e, "p1") // 2, token 1 steps off, turn passes
	move(t, e, "p1", 1)

	roll(t, e, "p0") // 2 -> progress 13 = square 13
	move(t, e, "p0", 0)

	require.Equal(t, 0, e.seats[1].Tokens[0], "token on safe square survives")
}

func TestExitRequiresSix(t *testing.T) {
	e := newTestEngine(t, 2, 3)

	roll(t, e, "p0") // 3, no token out, nothing movable
	// Turn passed to seat 1 with the roll spent.
	turn, _ := e.CurrentPlayerIndex()
	require.Equal(t, 1, turn)
}

func TestOvershootRejected(t *testing.T) {
	e := newTestEngine(t, 2, 5)
	// Place a token two steps from home by hand.
	e.seats[0].Tokens[0] = finishedPos - 2

	roll(t, e, "p0") // 5 would overshoot; no other movable token
	turn, _ := e.CurrentPlayerIndex()
	require.Equal(t, 1, turn, "unmovable roll passes the turn")
	require.Equal(t, finishedPos-2, e.seats[0].Tokens[0], "token did not move")
}

func TestMoveBeforeRollRejected(t *testing.T) {
	e := newTestEngine(t, 2, 6)
	payload, _ := json.Marshal(movePayload{Token: 0})
	err := e.HandleAction("p0", "move", payload)
	var gerr *games.Error
	require.True(t, errors.As(err, &gerr))
	require.Equal(t, games.CodeInvalidPhase, gerr.Code)
}

func TestOutOfTurnRejected(t *testing.T) {
	e := newTestEngine(t, 2, 6)
	err := e.HandleAction("p1", "roll", nil)
	var gerr *games.Error
	require.True(t, errors.As(err, &gerr))
	require.Equal(t, games.CodeNotYourTurn, gerr.Code)
}

func TestEliminationDeclaresSurvivor(t *testing.T) {
	e := newTestEngine(t, 2, 6)

	e.Eliminate(0)
	require.True(t, e.IsTerminal())
	winner, ok := e.WinnerIndex()
	require.True(t, ok)
	require.Equal(t, 1, winner)
	require.Equal(t, []int{1}, e.FinishOrder())
}

func TestFinishAllTokensWins(t *testing.T) {
	e := newTestEngine(t, 2, 2)
	for i := range e.seats[0].Tokens {
		e.seats[0].Tokens[i] = finishedPos
	}
	e.seats[0].Tokens[3] = finishedPos - 2

	roll(t, e, "p0") // 2, exact landing
	move(t, e, "p0", 3)

	require.True(t, e.IsTerminal())
	winner, _ := e.WinnerIndex()
	require.Equal(t, 0, winner)
}

func TestAutoPlayRollsAndMoves(t *testing.T) {
	e := newTestEngine(t, 2, 6)

	require.NoError(t, e.AutoPlay(0))
	require.Equal(t, 0, e.seats[0].Tokens[0], "six exits the first token")
}

func TestLastMoveSteps(t *testing.T) {
	e := newTestEngine(t, 2, 6, 3)

	roll(t, e, "p0")
	move(t, e, "p0", 0)
	roll(t, e, "p0")
	move(t, e, "p0", 0)

	steps := e.LastMoveSteps()
	require.Len(t, steps, 3)
	require.Equal(t, 0, steps[0].From)
	require.Equal(t, 3, steps[2].To)
}

func TestSerializeRestoreRoundTrip(t *testing.T) {
	e := newTestEngine(t, 2, 6, 4)
	roll(t, e, "p0")
	move(t, e, "p0", 0)

	data, err := e.Serialize()
	require.NoError(t, err)

	e2 := New(Config{Roll: scriptedDice(4)})
	require.NoError(t, e2.Restore(data))
	require.Equal(t, e.seats, e2.seats)
	require.Equal(t, e.turn, e2.turn)
}
