package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := NewDB(filepath.Join(t.TempDir(), "rooms.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func testRoom() (*RoomState, []*SeatState) {
	room := &RoomState{
		Code:   "ABC123",
		Kind:   "ludo",
		HostID: "alice",
		Status: "waiting",
	}
	seats := []*SeatState{
		{RoomCode: "ABC123", SeatIndex: 0, PlayerID: "alice", DisplayName: "Alice", IsConnected: true},
		{RoomCode: "ABC123", SeatIndex: 1, PlayerID: "bob", DisplayName: "Bob", IsConnected: true},
	}
	return room, seats
}

func TestSaveAndLoadRoom(t *testing.T) {
	database := newTestDB(t)
	room, seats := testRoom()
	require.NoError(t, database.SaveRoom(room, seats))

	got, gotSeats, err := database.LoadRoom("ABC123")
	require.NoError(t, err)
	require.Equal(t, "ludo", got.Kind)
	require.Equal(t, "alice", got.HostID)
	require.Equal(t, "waiting", got.Status)
	require.Len(t, gotSeats, 2)
	require.Equal(t, "alice", gotSeats[0].PlayerID)
	require.Equal(t, 1, gotSeats[1].SeatIndex)
	require.True(t, gotSeats[1].IsConnected)
}

func TestSaveRoomReplacesSeats(t *testing.T) {
	database := newTestDB(t)
	room, seats := testRoom()
	require.NoError(t, database.SaveRoom(room, seats))

	room.Status = "playing"
	require.NoError(t, database.SaveRoom(room, seats[:1]))

	got, gotSeats, err := database.LoadRoom("ABC123")
	require.NoError(t, err)
	require.Equal(t, "playing", got.Status)
	require.Len(t, gotSeats, 1)
}

func TestLoadMissingRoom(t *testing.T) {
	database := newTestDB(t)
	_, _, err := database.LoadRoom("NOROOM")
	require.Error(t, err)
}

func TestDeleteRoom(t *testing.T) {
	database := newTestDB(t)
	room, seats := testRoom()
	require.NoError(t, database.SaveRoom(room, seats))
	require.NoError(t, database.DeleteRoom("ABC123"))

	_, _, err := database.LoadRoom("ABC123")
	require.Error(t, err)
	codes, err := database.GetAllRoomCodes()
	require.NoError(t, err)
	require.Empty(t, codes)
}

func TestGetAllRoomCodes(t *testing.T) {
	database := newTestDB(t)
	room, seats := testRoom()
	require.NoError(t, database.SaveRoom(room, seats))
	other := &RoomState{Code: "XYZ789", Kind: "chess", HostID: "carol", Status: "waiting"}
	require.NoError(t, database.SaveRoom(other, nil))

	codes, err := database.GetAllRoomCodes()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"ABC123", "XYZ789"}, codes)
}

func TestSetSeatConnected(t *testing.T) {
	database := newTestDB(t)
	room, seats := testRoom()
	require.NoError(t, database.SaveRoom(room, seats))

	require.NoError(t, database.SetSeatConnected("ABC123", "bob", false))
	_, gotSeats, err := database.LoadRoom("ABC123")
	require.NoError(t, err)
	require.False(t, gotSeats[1].IsConnected)
	require.True(t, gotSeats[0].IsConnected)
}
