package wshub_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tonsurance/hedgeplane/internal/wshub"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) (*wshub.Hub, *httptest.Server) {
	t.Helper()

	hub := wshub.NewHub(zap.NewNop(), nil)
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	t.Cleanup(func() {
		srv.Close()
		_ = hub.Shutdown()
	})

	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	return conn
}

func TestHub_WelcomeOnConnect(t *testing.T) {
	_, srv := newTestServer(t)
	conn := dial(t, srv)
	defer conn.Close()

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"welcome"`)
	assert.Contains(t, string(data), `"available_channels"`)
}

func TestHub_SubscribeUnsubscribeRoundtrip(t *testing.T) {
	_, srv := newTestServer(t)
	conn := dial(t, srv)
	defer conn.Close()

	_, _, err := conn.ReadMessage() // welcome
	require.NoError(t, err)

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "subscribe", "channel": "risk_alerts"}))

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"subscribed"`)
	assert.Contains(t, string(data), `"channel":"risk_alerts"`)

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "unsubscribe", "channel": "risk_alerts"}))

	_, data, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"unsubscribed"`)
}

func TestHub_SubscribeInvalidChannel(t *testing.T) {
	_, srv := newTestServer(t)
	conn := dial(t, srv)
	defer conn.Close()

	_, _, err := conn.ReadMessage() // welcome
	require.NoError(t, err)

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "subscribe", "channel": "nonsense"}))

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"error"`)
	assert.Contains(t, string(data), `"valid_channels"`)
}

func TestHub_MalformedMessage(t *testing.T) {
	_, srv := newTestServer(t)
	conn := dial(t, srv)
	defer conn.Close()

	_, _, err := conn.ReadMessage() // welcome
	require.NoError(t, err)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), "Invalid subscription message format")
}

func TestHub_Ping(t *testing.T) {
	_, srv := newTestServer(t)
	conn := dial(t, srv)
	defer conn.Close()

	_, _, err := conn.ReadMessage() // welcome
	require.NoError(t, err)

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "ping"}))

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"pong"`)
}

func TestHub_BroadcastOnlyReachesSubscribers(t *testing.T) {
	hub, srv := newTestServer(t)
	conn := dial(t, srv)
	defer conn.Close()

	_, _, err := conn.ReadMessage() // welcome
	require.NoError(t, err)

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "subscribe", "channel": "bridge_health"}))

	_, _, err = conn.ReadMessage() // subscribed ack
	require.NoError(t, err)

	// Wait for the client to be registered with the hub before broadcasting.
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Broadcast("bridge_health", map[string]string{"type": "health_change", "bridge_id": "wormhole"})
	hub.Broadcast("risk_alerts", map[string]string{"type": "new_alert"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), "health_change")
}
