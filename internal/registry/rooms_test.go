package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwrk-planet/signal-relay/internal/domain"
)

func participant(id string) domain.Participant {
	return domain.Participant{
		ConnectionID:    domain.ConnectionID(id),
		DisplayIdentity: "user-" + id,
		JoinedAt:        time.Unix(1700000000, 0),
	}
}

func ids(ps []domain.Participant) []domain.ConnectionID {
	out := make([]domain.ConnectionID, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ConnectionID)
	}
	return out
}

func TestRooms_AddKeepsJoinOrder(t *testing.T) {
	r := NewRooms()
	require.NoError(t, r.Add("alpha", participant("a")))
	require.NoError(t, r.Add("alpha", participant("b")))
	require.NoError(t, r.Add("alpha", participant("c")))

	assert.Equal(t, []domain.ConnectionID{"a", "b", "c"}, ids(r.List("alpha", "")))
	assert.Equal(t, []domain.ConnectionID{"a", "c"}, ids(r.List("alpha", "b")))
	assert.Equal(t, 3, r.Size("alpha"))
}

func TestRooms_AddDuplicate(t *testing.T) {
	r := NewRooms()
	require.NoError(t, r.Add("alpha", participant("a")))

	err := r.Add("alpha", participant("a"))
	require.ErrorIs(t, err, domain.ErrDuplicateParticipant)
	assert.Equal(t, 1, r.Size("alpha"))
}

func TestRooms_RemoveIsIdempotentAndCollectsEmptyRooms(t *testing.T) {
	r := NewRooms()
	require.NoError(t, r.Add("alpha", participant("a")))
	require.NoError(t, r.Add("alpha", participant("b")))

	assert.True(t, r.Remove("alpha", "a"))
	assert.False(t, r.Remove("alpha", "a"))
	assert.True(t, r.Exists("alpha"))

	assert.True(t, r.Remove("alpha", "b"))
	assert.False(t, r.Exists("alpha"))
	assert.Equal(t, 0, r.Len())

	assert.False(t, r.Remove("missing", "a"))
	assert.Empty(t, r.CreateOrGet("alpha"))
}

func TestRooms_ListReturnsCopy(t *testing.T) {
	r := NewRooms()
	require.NoError(t, r.Add("alpha", participant("a")))

	ps := r.List("alpha", "")
	ps[0].DisplayIdentity = "changed"

	assert.Equal(t, "user-a", r.List("alpha", "")[0].DisplayIdentity)
	assert.Empty(t, r.List("unknown", ""))
}

func TestRooms_Infos(t *testing.T) {
	r := NewRooms()
	require.NoError(t, r.Add("beta", participant("a")))
	require.NoError(t, r.Add("alpha", participant("b")))
	require.NoError(t, r.Add("alpha", participant("c")))

	assert.Equal(t, []domain.RoomInfo{
		{ID: "alpha", Participants: 2},
		{ID: "beta", Participants: 1},
	}, r.Infos())
	assert.True(t, r.Contains("alpha", "c"))
	assert.False(t, r.Contains("beta", "c"))
}
