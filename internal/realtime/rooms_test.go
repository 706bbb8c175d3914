package realtime

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoomHub_JoinIsIdempotent(t *testing.T) {
	h := NewRoomHub()
	c := &fakeClient{}

	h.Join("conv-1", c)
	h.Join("conv-1", c)
	require.Equal(t, 1, h.MemberCount("conv-1"))
}

func TestRoomHub_BroadcastReachesOnlyRoomMembers(t *testing.T) {
	h := NewRoomHub()
	inRoom := &fakeClient{}
	alsoInRoom := &fakeClient{}
	elsewhere := &fakeClient{}

	h.Join("conv-1", inRoom)
	h.Join("conv-1", alsoInRoom)
	h.Join("conv-2", elsewhere)

	h.Broadcast("conv-1", []byte(`{"event":"message"}`))

	require.Len(t, inRoom.frames, 1)
	require.Len(t, alsoInRoom.frames, 1)
	require.Empty(t, elsewhere.frames)
}

func TestRoomHub_LeaveAll(t *testing.T) {
	h := NewRoomHub()
	c := &fakeClient{}
	other := &fakeClient{}

	h.Join("conv-1", c)
	h.Join("conv-2", c)
	h.Join("conv-1", other)

	h.LeaveAll(c)

	require.Equal(t, 1, h.MemberCount("conv-1"))
	require.Equal(t, 0, h.MemberCount("conv-2"))

	h.Broadcast("conv-1", []byte(`x`))
	require.Empty(t, c.frames)
	require.Len(t, other.frames, 1)
}

func TestRoomHub_LeaveCleansUpEmptyRoom(t *testing.T) {
	h := NewRoomHub()
	c := &fakeClient{}
	h.Join("conv-1", c)
	h.Leave("conv-1", c)
	require.Equal(t, 0, h.MemberCount("conv-1"))
}
