package monopoly

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

func TestThreeDoublesGoToJail(t *testing.T) {
	// Doubles of 2, 3, then 4: the third pair jails without moving to 18+8.
	e := newTestEngine(t, 2, 2, 2, 3, 3, 4, 4)

	require.NoError(t, e.HandleAction("p0", "roll", nil)) // 4, doubles, roll again
	require.Equal(t, PhaseRoll, e.phase)
	require.NoError(t, e.HandleAction("p0", "roll", nil)) // 6 more, doubles again
	require.Equal(t, 10, e.seats[0].Position)
	require.NoError(t, e.HandleAction("p0", "roll", nil)) // third doubles

	require.True(t, e.seats[0].InJail)
	require.Equal(t, jailSquare, e.seats[0].Position)
	require.Equal(t, 0, e.doublesCount)
	require.Equal(t, PhaseEndTurn, e.phase)
}

func TestDoublesRollAgain(t *testing.T) {
	e := newTestEngine(t, 2, 3, 3, 2, 5)

	require.NoError(t, e.HandleAction("p0", "roll", nil)) // doubles
	require.Equal(t, PhaseRoll, e.phase)
	require.NoError(t, e.HandleAction("p0", "roll", nil)) // 2+5, no doubles
	require.Equal(t, PhaseEndTurn, e.phase)
	require.Equal(t, 13, e.seats[0].Position)

	require.NoError(t, e.HandleAction("p0", "end_turn", nil))
	turn, _ := e.CurrentPlayerIndex()
	require.Equal(t, 1, turn)
}

func TestGoToJailSquare(t *testing.T) {
	e := newTestEngine(t, 2, 2, 3)
	e.seats[0].Position = 25

	require.NoError(t, e.HandleAction("p0", "roll", nil)) // 25 + 5 = 30
	require.True(t, e.seats[0].InJail)
	require.Equal(t, jailSquare, e.seats[0].Position)
}

func TestPassingGoPaysSalary(t *testing.T) {
	e := newTestEngine(t, 2, 3, 2)
	e.seats[0].Position = 38

	require.NoError(t, e.HandleAction("p0", "roll", nil)) // wraps to 3
	require.Equal(t, 3, e.seats[0].Position)
	require.EqualValues(t, startingCash+goSalary, e.seats[0].Cash)
}

func TestJailEscapeOnDoubles(t *testing.T) {
	e := newTestEngine(t, 2, 4, 4)
	e.seats[0].InJail = true
	e.seats[0].Position = jailSquare

	require.NoError(t, e.HandleAction("p0", "roll", nil))
	require.False(t, e.seats[0].InJail)
	require.Equal(t, 18, e.seats[0].Position)
	// No re-roll for doubles that opened the cell.
	require.Equal(t, PhaseEndTurn, e.phase)
}

func TestJailForcedBailAfterThreeTurns(t *testing.T) {
	e := newTestEngine(t, 2, 1, 2, 6, 5, 1, 2, 6, 5, 3, 4)
	e.seats[0].InJail = true
	e.seats[0].Position = jailSquare

	for i := 0; i < 3; i++ {
		require.NoError(t, e.HandleAction("p0", "roll", nil))
		require.NoError(t, e.HandleAction("p0", "end_turn", nil))
		if i < 2 {
			require.NoError(t, e.HandleAction("p1", "roll", nil))
			require.NoError(t, e.HandleAction("p1", "end_turn", nil))
		}
	}

	require.False(t, e.seats[0].InJail)
	require.EqualValues(t, startingCash-bailAmount, e.seats[0].Cash)
}

func TestPayBail(t *testing.T) {
	e := newTestEngine(t, 2, 2, 3)
	e.seats[0].InJail = true
	e.seats[0].Position = jailSquare

	require.NoError(t, e.HandleAction("p0", "pay_bail", nil))
	require.False(t, e.seats[0].InJail)
	require.EqualValues(t, startingCash-bailAmount, e.seats[0].Cash)

	require.NoError(t, e.HandleAction("p0", "roll", nil))
	require.Equal(t, 15, e.seats[0].Position)
}

func TestRollOutOfPhaseRejected(t *testing.T) {
	e := newTestEngine(t, 2, 2, 3)
	require.NoError(t, e.HandleAction("p0", "roll", nil))

	err := e.HandleAction("p0", "roll", nil)
	var gerr *games.Error
	require.True(t, errors.As(err, &gerr))
	require.Equal(t, games.CodeInvalidPhase, gerr.Code)
}

func TestBuyDeed(t *testing.T) {
	e := newTestEngine(t, 2, 2, 4)

	require.NoError(t, e.HandleAction("p0", "roll", nil)) // lands on 6
	view := e.ProjectFor("p0")
	require.Contains(t, view.AvailableActions, "buy")

	require.NoError(t, e.HandleAction("p0", "buy", nil))
	require.EqualValues(t, startingCash-100, e.seats[0].Cash)
	require.Equal(t, 0, e.owners[6])

	err := e.HandleAction("p0", "buy", nil)
	var gerr *games.Error
	require.True(t, errors.As(err, &gerr))
	require.Equal(t, games.CodeIllegalMove, gerr.Code)
}

func TestBuyRequiresCash(t *testing.T) {
	e := newTestEngine(t, 2, 2, 4)
	e.seats[0].Cash = 50

	require.NoError(t, e.HandleAction("p0", "roll", nil))
	require.NotContains(t, e.ProjectFor("p0").AvailableActions, "buy")

	err := e.HandleAction("p0", "buy", nil)
	var gerr *games.Error
	require.True(t, errors.As(err, &gerr))
	require.Equal(t, games.CodeInsufficientChips, gerr.Code)
}

func TestRentPaidToOwner(t *testing.T) {
	e := newTestEngine(t, 2, 2, 4)
	e.owners[6] = 1

	require.NoError(t, e.HandleAction("p0", "roll", nil)) // lands on 6, rent 6
	require.EqualValues(t, startingCash-6, e.seats[0].Cash)
	require.EqualValues(t, startingCash+6, e.seats[1].Cash)
	require.NotContains(t, e.ProjectFor("p0").AvailableActions, "buy")
}

func TestRailroadRentScalesWithHoldings(t *testing.T) {
	e := newTestEngine(t, 2, 2, 3)
	e.owners[5] = 1
	e.owners[15] = 1

	require.NoError(t, e.HandleAction("p0", "roll", nil)) // lands on 5
	require.EqualValues(t, startingCash-50, e.seats[0].Cash)
	require.EqualValues(t, startingCash+50, e.seats[1].Cash)
}

func TestUtilityRentPricedByDice(t *testing.T) {
	e := newTestEngine(t, 2, 3, 5)
	e.seats[0].Position = 4
	e.owners[12] = 1

	require.NoError(t, e.HandleAction("p0", "roll", nil)) // 8 onto the works
	require.EqualValues(t, startingCash-32, e.seats[0].Cash)
	require.EqualValues(t, startingCash+32, e.seats[1].Cash)
}

func TestRentBankruptcyEliminates(t *testing.T) {
	e := newTestEngine(t, 2, 2, 4)
	e.seats[0].Position = 33
	e.seats[0].Cash = 10
	e.owners[39] = 1

	require.NoError(t, e.HandleAction("p0", "roll", nil)) // Boardwalk, rent 50

	require.True(t, e.seats[0].Eliminated)
	require.True(t, e.IsTerminal())
	winner, _ := e.WinnerIndex()
	require.Equal(t, 1, winner)
}

func TestEliminationReturnsDeedsToBank(t *testing.T) {
	e := newTestEngine(t, 3, 1)
	e.owners[6] = 0
	e.owners[8] = 0
	e.owners[11] = 2

	e.Eliminate(0)
	_, has6 := e.owners[6]
	_, has8 := e.owners[8]
	require.False(t, has6)
	require.False(t, has8)
	require.Equal(t, 2, e.owners[11])
}

func TestEliminationDeclaresSurvivor(t *testing.T) {
	e := newTestEngine(t, 2, 1)
	e.Eliminate(0)

	require.True(t, e.IsTerminal())
	winner, _ := e.WinnerIndex()
	require.Equal(t, 1, winner)
}

func TestSerializeRestoreRoundTrip(t *testing.T) {
	e := newTestEngine(t, 2, 2, 3)
	require.NoError(t, e.HandleAction("p0", "roll", nil))

	data, err := e.Serialize()
	require.NoError(t, err)

	e2 := New(Config{})
	require.NoError(t, e2.Restore(data))
	require.Equal(t, e.seats, e2.seats)
	require.Equal(t, e.owners, e2.owners)
	require.Equal(t, e.phase, e2.phase)
}
