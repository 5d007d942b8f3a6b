package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gameroomdev/gameroom/pkg/games"
)

func startSnakes(t *testing.T, s *Server) (alice, bob *Socket) {
	t.Helper()
	alice = newTestSocket(s, "s1")
	bob = newTestSocket(s, "s2")
	join(t, s, alice, "SNAKE1", "alice", "snakeladder")
	join(t, s, bob, "SNAKE1", "bob", "")
	sendFrame(t, s, alice, EvtGameStart, GameStartPayload{RoomCode: "SNAKE1"})
	drainFrames(alice)
	drainFrames(bob)
	return alice, bob
}

func TestTimerArmsWhenCurrentPlayerDisconnects(t *testing.T) {
	s := newTestServer(t, Config{})
	alice, _ := startSnakes(t, s)

	// Everyone present, nothing to guard against.
	_, armed := s.timer.Armed("SNAKE1")
	require.False(t, armed)

	s.sockets.drop(alice)

	idx, armed := s.timer.Armed("SNAKE1")
	require.True(t, armed)
	require.Equal(t, 0, idx)
}

func TestTimerClearsOnReconnect(t *testing.T) {
	s := newTestServer(t, Config{})
	alice, bob := startSnakes(t, s)
	s.sockets.drop(alice)

	_, armed := s.timer.Armed("SNAKE1")
	require.True(t, armed)

	again := newTestSocket(s, "s3")
	join(t, s, again, "SNAKE1", "alice", "")

	_, armed = s.timer.Armed("SNAKE1")
	require.False(t, armed)

	raw, ok := lastFrame(bob, EvtTurnTimeoutCleared)
	require.True(t, ok)
	var cl TurnTimeoutClearedPayload
	require.NoError(t, json.Unmarshal(raw, &cl))
	require.Equal(t, 0, cl.PlayerIndex)
}

func TestTimerExcludedKindNeverArms(t *testing.T) {
	s := newTestServer(t, Config{})
	alice := newTestSocket(s, "s1")
	join(t, s, alice, "SUD001", "alice", "sudoku")
	sendFrame(t, s, alice, EvtGameStart, GameStartPayload{RoomCode: "SUD001"})

	_, armed := s.timer.Armed("SUD001")
	require.False(t, armed)
}

func TestTimerFireAutoPlaysAndRearms(t *testing.T) {
	s := newTestServer(t, Config{})
	alice, bob := startSnakes(t, s)
	s.sockets.drop(alice)

	gen := s.timer.generationOf("SNAKE1")
	s.timer.expire("SNAKE1", gen)

	room, _ := s.room("SNAKE1")
	room.Lock()
	require.Equal(t, 1, room.SeatAt(0).AutoPlays)
	room.Unlock()

	raw, ok := lastFrame(bob, EvtTurnAutoPlayed)
	require.True(t, ok)
	var ap TurnAutoPlayedPayload
	require.NoError(t, json.Unmarshal(raw, &ap))
	require.Equal(t, ReasonTimeout, ap.Reason)
	require.Equal(t, 0, ap.PlayerIndex)
	require.Equal(t, 1, ap.AutoPlayCount)

	// Rearmed only if the turn is still on the absent seat.
	engine, _ := s.store.Get("SNAKE1")
	room.Lock()
	idx, turnOK := engine.CurrentPlayerIndex()
	room.Unlock()
	require.True(t, turnOK)
	_, armed := s.timer.Armed("SNAKE1")
	require.Equal(t, idx == 0, armed)
}

func TestManualActionResetsAutoPlays(t *testing.T) {
	s := newTestServer(t, Config{})
	alice, _ := startSnakes(t, s)
	s.sockets.drop(alice)

	gen := s.timer.generationOf("SNAKE1")
	s.timer.expire("SNAKE1", gen)

	room, _ := s.room("SNAKE1")
	engine, _ := s.store.Get("SNAKE1")
	room.Lock()
	idx, ok := engine.CurrentPlayerIndex()
	require.True(t, ok)
	actor := room.SeatAt(idx)
	actor.AutoPlays = 2
	room.Unlock()

	sock := newTestSocket(s, "s9")
	sock.BindPlayer(actor.PlayerID, actor.DisplayName)
	s.sockets.JoinRoom(sock, "SNAKE1")
	sendFrame(t, s, sock, EvtGameAction, GameActionPayload{
		RoomCode: "SNAKE1", Action: "roll",
	})

	room.Lock()
	require.Equal(t, 0, actor.AutoPlays)
	room.Unlock()
}

func TestTimerFireEliminatesAtLimit(t *testing.T) {
	s := newTestServer(t, Config{MaxAutoPlays: 2})
	alice, bob := startSnakes(t, s)
	s.sockets.drop(alice)

	room, _ := s.room("SNAKE1")
	room.Lock()
	victim := room.SeatAt(0)
	victim.AutoPlays = 2
	room.Unlock()

	gen := s.timer.generationOf("SNAKE1")
	s.timer.expire("SNAKE1", gen)

	frames := drainFrames(bob)
	raw, ok := frameOf(frames, EvtTurnAutoPlayed)
	require.True(t, ok)
	var ap TurnAutoPlayedPayload
	require.NoError(t, json.Unmarshal(raw, &ap))
	require.Equal(t, ReasonEliminated, ap.Reason)
	require.Equal(t, 0, ap.PlayerIndex)

	// Two players: eliminating one ends the game.
	raw, ok = frameOf(frames, EvtGameWinner)
	require.True(t, ok)
	var win GameWinnerPayload
	require.NoError(t, json.Unmarshal(raw, &win))
	require.NotNil(t, win.Winner)
	require.Equal(t, "bob", win.Winner.PlayerID)

	room.Lock()
	require.Equal(t, RoomFinished, room.Status)
	room.Unlock()
}

func TestStaleFireGenerationIsNoop(t *testing.T) {
	s := newTestServer(t, Config{})
	alice, bob := startSnakes(t, s)
	s.sockets.drop(alice)

	gen := s.timer.generationOf("SNAKE1")
	// A fire whose arming was already replaced must have no effect.
	s.onTimerFire("SNAKE1", gen+10, 0, "alice")

	room, _ := s.room("SNAKE1")
	room.Lock()
	require.Equal(t, 0, room.SeatAt(0).AutoPlays)
	room.Unlock()
	_, got := lastFrame(bob, EvtTurnAutoPlayed)
	require.False(t, got)
}

func TestLeaveDuringGameForfeits(t *testing.T) {
	s := newTestServer(t, Config{})
	alice, bob := startSnakes(t, s)

	sendFrame(t, s, alice, EvtRoomLeave, struct{}{})

	raw, ok := lastFrame(bob, EvtGameWinner)
	require.True(t, ok)
	var win GameWinnerPayload
	require.NoError(t, json.Unmarshal(raw, &win))
	require.NotNil(t, win.Winner)
	require.Equal(t, "bob", win.Winner.PlayerID)
}

func TestLeaderboardRanksKnockoutsInReverseOrder(t *testing.T) {
	s := newTestServer(t, Config{})
	room := &Room{Code: "LB0001", Kind: games.KindSnakeLadder}
	names := []string{"p0", "p1", "p2", "p3"}
	for i, name := range names {
		room.Seats = append(room.Seats, &RoomSeat{PlayerID: name, DisplayName: name, Index: i})
	}
	engine, err := s.store.Create(games.KindSnakeLadder, "LB0001", nil)
	require.NoError(t, err)
	for i, name := range names {
		require.True(t, engine.AddPlayer(games.Seat{PlayerID: name, Name: name, Index: i}))
	}

	// Seat 2 fell first, then seat 1. The later knockout ranks higher;
	// survivors keep seat order ahead of both.
	room.Eliminated = []int{2, 1}

	entries := s.leaderboard(room, engine)
	require.Len(t, entries, 4)
	var got []string
	for _, e := range entries {
		got = append(got, e.PlayerID)
	}
	require.Equal(t, []string{"p0", "p3", "p1", "p2"}, got)
	require.Equal(t, 1, entries[0].Place)
	require.Equal(t, 4, entries[3].Place)
}

func TestFinishedRoomRejectsRestart(t *testing.T) {
	s := newTestServer(t, Config{})
	alice, bob := startSnakes(t, s)

	sendFrame(t, s, alice, EvtRoomLeave, struct{}{})
	room, _ := s.room("SNAKE1")
	room.Lock()
	require.Equal(t, RoomFinished, room.Status)
	require.Equal(t, "bob", room.HostID)
	room.Unlock()
	drainFrames(bob)

	sendFrame(t, s, bob, EvtGameStart, GameStartPayload{RoomCode: "SNAKE1"})

	raw, ok := lastFrame(bob, EvtError)
	require.True(t, ok)
	var e ErrorPayload
	require.NoError(t, json.Unmarshal(raw, &e))
	require.Equal(t, "room_finished", e.Code)
	room.Lock()
	require.Equal(t, RoomFinished, room.Status)
	room.Unlock()
	_, exists := s.store.Get("SNAKE1")
	require.False(t, exists)
}
