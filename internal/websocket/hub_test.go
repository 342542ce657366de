package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"silverpulse/internal/config"
	"silverpulse/internal/shared/testutil"
	"silverpulse/pkg/contracts/events"
)

type received struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func startServer(t *testing.T, hub *Hub, cfg config.WebSocketConfig) string {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	upgrader := NewUpgrader(cfg, logger)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := ServeWS(hub, upgrader, cfg, w, r, logger); err != nil {
			t.Logf("upgrade: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string, header http.Header) *gws.Conn {
	t.Helper()
	conn, _, err := gws.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *gws.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg received
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func newHub(t *testing.T) *Hub {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger)
	hub.Start()
	t.Cleanup(hub.Stop)
	return hub
}

func TestHub_ConnectAndBroadcast(t *testing.T) {
	hub := newHub(t)
	url := startServer(t, hub, config.Default().WebSocket)

	conn := dial(t, url, nil)
	hello := readMessage(t, conn)
	assert.Equal(t, events.TypeConnect, hello.Type)

	var data events.ConnectData
	require.NoError(t, json.Unmarshal(hello.Data, &data))
	assert.False(t, data.HasSnapshot)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Broadcast(events.TypeDashboardUpdate, map[string]string{"cycle_id": "abc"})
	update := readMessage(t, conn)
	assert.Equal(t, events.TypeDashboardUpdate, update.Type)
	assert.JSONEq(t, `{"cycle_id":"abc"}`, string(update.Data))

	require.Eventually(t, func() bool { return hub.Stats().MessagesSent == 1 }, time.Second, 10*time.Millisecond)
}

func TestHub_SendsSnapshotOnConnect(t *testing.T) {
	hub := newHub(t)
	hub.SetSnapshotFunc(func() (interface{}, bool) {
		return map[string]string{"cycle_id": "latest"}, true
	})
	url := startServer(t, hub, config.Default().WebSocket)

	conn := dial(t, url, nil)
	assert.Equal(t, events.TypeConnect, readMessage(t, conn).Type)

	update := readMessage(t, conn)
	assert.Equal(t, events.TypeDashboardUpdate, update.Type)
	assert.JSONEq(t, `{"cycle_id":"latest"}`, string(update.Data))
}

func TestHub_UnregistersOnClose(t *testing.T) {
	hub := newHub(t)
	url := startServer(t, hub, config.Default().WebSocket)

	conn := dial(t, url, nil)
	readMessage(t, conn)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(1), hub.Stats().TotalConnections)
}

func TestHub_BroadcastNeverBlocks(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger)

	for i := 0; i < broadcastQueue+3; i++ {
		hub.Broadcast(events.TypeDashboardUpdate, i)
	}
	assert.Equal(t, int64(3), hub.Stats().MessagesDropped)
}

func TestUpgrader_Origins(t *testing.T) {
	hub := newHub(t)
	cfg := config.Default().WebSocket
	cfg.AllowedOrigins = []string{"http://dashboard.local"}
	url := startServer(t, hub, cfg)

	conn := dial(t, url, http.Header{"Origin": []string{"http://dashboard.local"}})
	assert.Equal(t, events.TypeConnect, readMessage(t, conn).Type)

	_, resp, err := gws.DefaultDialer.Dial(url, http.Header{"Origin": []string{"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestNewClient_Keepalive(t *testing.T) {
	hub := NewHub(nil)
	c := NewClient(hub, nil, "127.0.0.1", "", config.WebSocketConfig{PongWait: 10 * time.Second, PingPeriod: 20 * time.Second}, nil)
	assert.Equal(t, 9*time.Second, c.pingPeriod)
	assert.NotEmpty(t, c.ID())
}
