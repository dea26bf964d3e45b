package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwrk-planet/signal-relay/internal/domain"
	"github.com/cwrk-planet/signal-relay/internal/metrics"
	"github.com/cwrk-planet/signal-relay/internal/protocol"
	"github.com/cwrk-planet/signal-relay/internal/service"
	"github.com/cwrk-planet/signal-relay/internal/transport/ws"
)

type nopPeer struct{ id domain.ConnectionID }

func (p nopPeer) ID() domain.ConnectionID { return p.id }
func (p nopPeer) Send(protocol.Message) error { return nil }
func (p nopPeer) Close() error { return nil }

func newTestServer(t *testing.T) (*httptest.Server, *service.Relay) {
	t.Helper()
	reg := prometheus.NewRegistry()
	relay := service.NewRelay(service.RelayConfig{}, metrics.NewRelay(reg))
	wsSrv := ws.NewServer(relay, nil, ws.Config{})

	ts := httptest.NewServer(NewRouter(Deps{
		Handler:  NewHandler(relay),
		WS:       wsSrv.HandleWS,
		Gatherer: reg,
	}))
	t.Cleanup(ts.Close)
	return ts, relay
}

func getJSON(t *testing.T, url string, dst any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if dst != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
	}
	return resp.StatusCode
}

func TestRouter_Introspection(t *testing.T) {
	ts, relay := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, relay.Handle(ctx, nopPeer{"b"}, service.Join{RoomID: "beta", DisplayIdentity: "Bob"}))
	require.NoError(t, relay.Handle(ctx, nopPeer{"a"}, service.Join{RoomID: "alpha", DisplayIdentity: "Alice"}))
	require.NoError(t, relay.Handle(ctx, nopPeer{"c"}, service.Join{RoomID: "alpha", DisplayIdentity: "Carol"}))

	var rooms RoomsListResponse
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/rooms", &rooms))
	assert.Equal(t, []RoomItem{{RoomID: "alpha", Participants: 2}, {RoomID: "beta", Participants: 1}}, rooms.Items)

	var parts ParticipantsResponse
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/rooms/alpha/participants", &parts))
	require.Len(t, parts.Items, 2)
	assert.Equal(t, "a", parts.Items[0].ConnectionID)
	assert.Equal(t, "Alice", parts.Items[0].DisplayIdentity)
	assert.Equal(t, "c", parts.Items[1].ConnectionID)
	assert.False(t, parts.Items[0].JoinedAt.IsZero())

	var e ErrorResponse
	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/rooms/gamma/participants", &e))
	assert.Equal(t, "room_not_found", e.Error)
}

func TestRouter_EmptyRoomList(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/rooms")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[]}`, string(body))
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	ts, relay := newTestServer(t)
	require.NoError(t, relay.Handle(context.Background(), nopPeer{"a"}, service.Join{RoomID: "alpha"}))

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "relay_joins_total 1")
	assert.Contains(t, string(body), "relay_participants 1")
}

func TestRouter_WebSocketUpgradeThroughMiddleware(t *testing.T) {
	ts, _ := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	var f struct {
		Type string `json:"type"`
	}
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, protocol.TypeHello, f.Type)
}
