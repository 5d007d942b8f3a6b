package memory

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gameroomdev/gameroom/pkg/games"
)

func newTestEngine(t *testing.T, seats int) *Engine {
	t.Helper()
	e := New(Config{RNG: games.NewRNG(11)})
	names := []string{"p0", "p1", "p2", "p3"}
	for i := 0; i < seats; i++ {
		require.True(t, e.AddPlayer(games.Seat{PlayerID: names[i], Index: i}))
	}
	return e
}

func flip(t *testing.T, e *Engine, player string, card int) {
	t.Helper()
	payload, _ := json.Marshal(flipPayload{Card: card})
	require.NoError(t, e.HandleAction(player, "flip", payload))
}

// twinOf finds the other card with the same value.
func twinOf(e *Engine, card int) int {
	for i, v := range e.cards {
		if i != card && v == e.cards[card] {
			return i
		}
	}
	return -1
}

// mismatchOf finds a card with a different value.
func mismatchOf(e *Engine, card int) int {
	for i, v := range e.cards {
		if i != card && v != e.cards[card] {
			return i
		}
	}
	return -1
}

func TestMatchScoresAndKeepsTurn(t *testing.T) {
	e := newTestEngine(t, 2)

	flip(t, e, "p0", 0)
	flip(t, e, "p0", twinOf(e, 0))

	require.Equal(t, 1, e.seats[0].Pairs)
	require.True(t, e.matched[0])
	turn, _ := e.CurrentPlayerIndex()
	require.Equal(t, 0, turn, "match earns another go")
}

func TestMismatchPassesTurn(t *testing.T) {
	e := newTestEngine(t, 2)

	flip(t, e, "p0", 0)
	flip(t, e, "p0", mismatchOf(e, 0))

	require.Equal(t, 0, e.seats[0].Pairs)
	turn, _ := e.CurrentPlayerIndex()
	require.Equal(t, 1, turn)
	// The mismatched pair stays visible until the next flip.
	require.Len(t, e.faceUp, 2)

	flip(t, e, "p1", twinOf(e, 0))
	require.Len(t, e.faceUp, 1)
}

func TestFlipMatchedCardRejected(t *testing.T) {
	e := newTestEngine(t, 2)
	flip(t, e, "p0", 0)
	flip(t, e, "p0", twinOf(e, 0))

	payload, _ := json.Marshal(flipPayload{Card: 0})
	err := e.HandleAction("p0", "flip", payload)
	var gerr *games.Error
	require.True(t, errors.As(err, &gerr))
	require.Equal(t, games.CodeIllegalMove, gerr.Code)
}

func TestFlipSameCardTwiceRejected(t *testing.T) {
	e := newTestEngine(t, 2)
	flip(t, e, "p0", 3)

	payload, _ := json.Marshal(flipPayload{Card: 3})
	err := e.HandleAction("p0", "flip", payload)
	var gerr *games.Error
	require.True(t, errors.As(err, &gerr))
	require.Equal(t, games.CodeIllegalMove, gerr.Code)
}

func TestProjectionHidesFaceDownCards(t *testing.T) {
	e := newTestEngine(t, 2)
	flip(t, e, "p0", 0)

	view := e.ProjectFor("p1")
	p := view.State.(projection)
	require.Equal(t, e.cards[0], p.Board[0], "flipped card is visible")
	for i := 1; i < len(p.Board); i++ {
		require.Equal(t, hiddenCard, p.Board[i], "card %d must be hidden", i)
	}
}

func TestCompleteGameDeclaresWinner(t *testing.T) {
	e := newTestEngine(t, 2)

	// p0 clears the whole board with perfect recall.
	for i := range e.cards {
		if e.matched[i] {
			continue
		}
		flip(t, e, "p0", i)
		flip(t, e, "p0", twinOf(e, i))
	}

	require.True(t, e.IsTerminal())
	winner, ok := e.WinnerIndex()
	require.True(t, ok)
	require.Equal(t, 0, winner)
	require.Equal(t, pairCount, e.seats[0].Pairs)
}

func TestEliminationEndsTwoSeatGame(t *testing.T) {
	e := newTestEngine(t, 2)
	e.Eliminate(0)

	require.True(t, e.IsTerminal())
	winner, ok := e.WinnerIndex()
	require.True(t, ok)
	require.Equal(t, 1, winner)
}

func TestAutoPlayFlipsTwice(t *testing.T) {
	e := newTestEngine(t, 2)
	require.NoError(t, e.AutoPlay(0))

	// Either it matched (pair banked, still p0's turn) or it mismatched
	// (two cards pending, p1's turn).
	if e.seats[0].Pairs == 0 {
		require.Len(t, e.faceUp, 2)
	}
}

func TestSerializeRestoreRoundTrip(t *testing.T) {
	e := newTestEngine(t, 2)
	flip(t, e, "p0", 0)

	data, err := e.Serialize()
	require.NoError(t, err)

	e2 := New(Config{RNG: games.NewRNG(12)})
	require.NoError(t, e2.Restore(data))
	require.Equal(t, e.cards, e2.cards)
	require.Equal(t, e.faceUp, e2.faceUp)
}
