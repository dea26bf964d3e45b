package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelay_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRelay(reg)

	m.Joined()
	m.Joined()
	m.JoinRejected("room_full")
	m.Signaled("offer")
	m.SignalDropped("unknown_peer")
	m.Departed(CauseSendFailed)
	m.Occupancy(3, 7)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Joins))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JoinErrors.WithLabelValues("room_full")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Signals.WithLabelValues("offer")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SignalErrors.WithLabelValues("unknown_peer")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Departures.WithLabelValues(CauseSendFailed)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Rooms))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.Participants))

	n, err := testutil.GatherAndCount(reg, "relay_joins_total", "relay_rooms")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRelay_NilIsNoop(t *testing.T) {
	var m *Relay
	assert.NotPanics(t, func() {
		m.Joined()
		m.JoinRejected("x")
		m.Signaled("offer")
		m.SignalDropped("x")
		m.Departed(CauseLeave)
		m.Occupancy(1, 1)
	})
}
