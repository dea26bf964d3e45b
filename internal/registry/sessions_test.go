package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwrk-planet/signal-relay/internal/domain"
)

func TestSessions_BindLookupUnbind(t *testing.T) {
	s := NewSessions()
	p := participant("a")

	require.NoError(t, s.Bind("a", "alpha", p))

	sess, ok := s.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "alpha", sess.RoomID)
	assert.Equal(t, p, sess.Participant)

	require.ErrorIs(t, s.Bind("a", "beta", p), domain.ErrAlreadyInRoom)
	require.ErrorIs(t, s.Bind("a", "alpha", p), domain.ErrAlreadyInRoom)

	removed, ok := s.Unbind("a")
	require.True(t, ok)
	assert.Equal(t, "alpha", removed.RoomID)

	_, ok = s.Unbind("a")
	assert.False(t, ok)
	_, ok = s.Lookup("a")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}
