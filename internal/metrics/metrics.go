package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Departure causes.
const (
	CauseLeave      = "leave"
	CauseDisconnect = "disconnect"
	CauseSendFailed = "send_failed"
)

// Relay groups the collectors updated by the signaling relay. A nil *Relay is
// valid and records nothing.
type Relay struct {
	Joins        prometheus.Counter
	JoinErrors   *prometheus.CounterVec
	Signals      *prometheus.CounterVec
	SignalErrors *prometheus.CounterVec
	Departures   *prometheus.CounterVec
	Rooms        prometheus.Gauge
	Participants prometheus.Gauge
}

// NewRelay creates the collectors and registers them on reg.
func NewRelay(reg prometheus.Registerer) *Relay {
	m := &Relay{
		Joins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "joins_total",
			Help:      "Successful room joins.",
		}),
		JoinErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "join_errors_total",
			Help:      "Rejected room joins by reason.",
		}, []string{"reason"}),
		Signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "signals_total",
			Help:      "Negotiation messages forwarded to a peer, by kind.",
		}, []string{"kind"}),
		SignalErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "signal_errors_total",
			Help:      "Negotiation messages dropped, by reason.",
		}, []string{"reason"}),
		Departures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "departures_total",
			Help:      "Participants removed from rooms, by cause.",
		}, []string{"cause"}),
		Rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "relay",
			Name:      "rooms",
			Help:      "Rooms with at least one participant.",
		}),
		Participants: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "relay",
			Name:      "participants",
			Help:      "Connections currently joined to a room.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Joins, m.JoinErrors, m.Signals, m.SignalErrors, m.Departures, m.Rooms, m.Participants)
	}
	return m
}

func (m *Relay) Joined() {
	if m == nil {
		return
	}
	m.Joins.Inc()
}

func (m *Relay) JoinRejected(reason string) {
	if m == nil {
		return
	}
	m.JoinErrors.WithLabelValues(reason).Inc()
}

func (m *Relay) Signaled(kind string) {
	if m == nil {
		return
	}
	m.Signals.WithLabelValues(kind).Inc()
}

func (m *Relay) SignalDropped(reason string) {
	if m == nil {
		return
	}
	m.SignalErrors.WithLabelValues(reason).Inc()
}

func (m *Relay) Departed(cause string) {
	if m == nil {
		return
	}
	m.Departures.WithLabelValues(cause).Inc()
}

// Occupancy sets the room and participant gauges.
func (m *Relay) Occupancy(rooms, participants int) {
	if m == nil {
		return
	}
	m.Rooms.Set(float64(rooms))
	m.Participants.Set(float64(participants))
}
