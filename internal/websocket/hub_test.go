package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dialObserver(t *testing.T, hub *Hub, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, hub.hasObserver, time.Second, 5*time.Millisecond,
		"hub must register the observer")
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(payload, &msg))
	return msg
}

func TestHub_DeliversProgressEvents(t *testing.T) {
	hub, wsURL := startHub(t)
	conn := dialObserver(t, hub, wsURL)

	hub.TestCompleted("idor_/api/users/{id:int}_0", 1, 4, true)

	msg := readMessage(t, conn)
	assert.Equal(t, EventProgress, msg.Type)
	assert.Greater(t, msg.Timestamp, int64(0))

	data, ok := msg.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "idor_/api/users/{id:int}_0", data["test_id"])
	assert.Equal(t, float64(1), data["completed"])
	assert.Equal(t, float64(4), data["total"])
	assert.Equal(t, true, data["success"])
}

func TestHub_EventShapes(t *testing.T) {
	hub, wsURL := startHub(t)
	conn := dialObserver(t, hub, wsURL)

	hub.StageChanged("generate")
	hub.FindingDetected("HIGH", "/api/users/{id:int}", "IDOR")
	hub.Completed(3)

	stage := readMessage(t, conn)
	assert.Equal(t, EventStage, stage.Type)
	assert.Equal(t, map[string]any{"stage": "generate"}, stage.Data)

	finding := readMessage(t, conn)
	assert.Equal(t, EventFinding, finding.Type)
	assert.Equal(t, map[string]any{
		"severity":  "HIGH",
		"endpoint":  "/api/users/{id:int}",
		"test_type": "IDOR",
	}, finding.Data)

	complete := readMessage(t, conn)
	assert.Equal(t, EventComplete, complete.Type)
	assert.Equal(t, map[string]any{"findings": float64(3)}, complete.Data)
}

func TestHub_DropsEventsWithoutObserver(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	hub.TestCompleted("idor_/api/users/{id:int}_0", 1, 1, true)

	assert.Empty(t, hub.broadcast, "events without an observer are dropped, not queued")
}

func TestHub_NewObserverReplacesOld(t *testing.T) {
	hub, wsURL := startHub(t)
	first := dialObserver(t, hub, wsURL)

	second, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { second.Close() })

	// Первый клиент получает close после вытеснения.
	require.NoError(t, first.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, readErr := first.ReadMessage()
	require.Error(t, readErr)
	assert.True(t, websocket.IsCloseError(readErr, websocket.CloseNoStatusReceived) ||
		websocket.IsUnexpectedCloseError(readErr), "first observer is closed: %v", readErr)

	hub.StageChanged("analyze")

	msg := readMessage(t, second)
	assert.Equal(t, EventStage, msg.Type)
}

func TestHub_ServeWSAfterStop(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	cancel()
	<-hub.done

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// Остановленный хаб закрывает соединение, а не виснет на регистрации.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, readErr := conn.ReadMessage()
	require.Error(t, readErr)
	assert.False(t, hub.hasObserver())
}
