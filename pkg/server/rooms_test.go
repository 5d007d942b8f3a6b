package server

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gameroomdev/gameroom/pkg/games"
)

func TestGenerateRoomCodeFormat(t *testing.T) {
	rng := games.NewRNG(1)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := GenerateRoomCode(rng)
		require.Len(t, code, roomCodeLen)
		for _, c := range code {
			require.Contains(t, roomCodeAlphabet, string(c))
		}
		seen[code] = true
	}
	require.Greater(t, len(seen), 90, "codes should rarely collide")
}

func TestRoomCodeAlphabetExcludesConfusables(t *testing.T) {
	for _, c := range "IO01" {
		require.NotContains(t, roomCodeAlphabet, string(c))
	}
}

func TestNormalizeRoomCode(t *testing.T) {
	require.Equal(t, "ABC123", NormalizeRoomCode("  abc123\n"))
	require.Equal(t, "ABC123", NormalizeRoomCode("ABC123"))
}

func TestAddSeatAssignsLowestFreeIndex(t *testing.T) {
	r := &Room{Code: "ROOM01"}
	require.Equal(t, 0, r.AddSeat("alice", "Alice").Index)
	require.Equal(t, 1, r.AddSeat("bob", "Bob").Index)
	require.Equal(t, 2, r.AddSeat("carol", "Carol").Index)
	require.Equal(t, "alice", r.HostID)

	// A mid-roster gap is refilled before appending.
	r.RemoveSeat("bob")
	require.Equal(t, 1, r.AddSeat("dave", "Dave").Index)
}

func TestRemoveSeatMigratesHostToLowestIndex(t *testing.T) {
	r := &Room{Code: "ROOM01"}
	r.AddSeat("alice", "Alice")
	r.AddSeat("bob", "Bob")
	r.AddSeat("carol", "Carol")

	require.True(t, r.RemoveSeat("alice"))
	require.Equal(t, "bob", r.HostID)

	require.False(t, r.RemoveSeat("alice"), "already gone")
}

func TestRemoveLastSeatClearsHost(t *testing.T) {
	r := &Room{Code: "ROOM01"}
	r.AddSeat("alice", "Alice")
	require.True(t, r.RemoveSeat("alice"))
	require.Empty(t, r.HostID)
	require.Empty(t, r.Seats)
}

func TestCompactSeatsRenumbersInRosterOrder(t *testing.T) {
	r := &Room{Code: "ROOM01"}
	r.AddSeat("alice", "Alice")
	r.AddSeat("bob", "Bob")
	r.AddSeat("carol", "Carol")
	require.True(t, r.RemoveSeat("bob"))

	r.CompactSeats()

	require.Equal(t, "alice", r.Seats[0].PlayerID)
	require.Equal(t, 0, r.Seats[0].Index)
	require.Equal(t, "carol", r.Seats[1].PlayerID)
	require.Equal(t, 1, r.Seats[1].Index)
}

func TestAppendChatBounded(t *testing.T) {
	r := &Room{Code: "ROOM01"}
	for i := 0; i < 10; i++ {
		r.AppendChat(ChatMessagePayload{Message: strings.Repeat("x", i+1)}, 4)
	}
	require.Len(t, r.Chat, 4)
	require.Equal(t, strings.Repeat("x", 7), r.Chat[0].Message)
	require.Equal(t, strings.Repeat("x", 10), r.Chat[3].Message)
}

func TestSeatInfosSortedByIndex(t *testing.T) {
	r := &Room{Code: "ROOM01"}
	r.Seats = []*RoomSeat{
		{PlayerID: "carol", Index: 2},
		{PlayerID: "alice", Index: 0},
		{PlayerID: "bob", Index: 1},
	}
	infos := r.SeatInfos()
	require.Equal(t, []int{0, 1, 2}, []int{infos[0].SeatIndex, infos[1].SeatIndex, infos[2].SeatIndex})
	require.Equal(t, "alice", infos[0].PlayerID)
}
