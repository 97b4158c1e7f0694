package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, hub *ProgressHub, query string) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(hub.ServeWs))
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) ServerMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg ServerMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestProgressHub_DeliversTaskUpdates(t *testing.T) {
	hub := NewProgressHub([]string{"*"})
	go hub.Run()
	defer hub.Shutdown()

	conn := dialHub(t, hub, "?taskId=analysis-1")
	assert.Equal(t, "connected", readMessage(t, conn).Type)

	hub.SendTaskUpdate("analysis-2", EventAnalysisStarted, nil)
	hub.SendTaskUpdate("analysis-1", EventAnalysisCompleted, map[string]int{"processingTime": 12})

	msg := readMessage(t, conn)
	assert.Equal(t, EventAnalysisCompleted, msg.Type)
	assert.Equal(t, "analysis-1", msg.TaskID)
	assert.NotZero(t, msg.Timestamp)
}

func TestProgressHub_SubscribeMessage(t *testing.T) {
	hub := NewProgressHub([]string{"*"})
	go hub.Run()
	defer hub.Shutdown()

	conn := dialHub(t, hub, "")
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "subscribe", TaskID: "abc"}))
	ack := readMessage(t, conn)
	assert.Equal(t, "subscribed", ack.Type)
	assert.Equal(t, "abc", ack.TaskID)

	hub.SendTaskUpdate("abc", EventAnalysisFailed, nil)
	assert.Equal(t, EventAnalysisFailed, readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "ping"}))
	assert.Equal(t, "pong", readMessage(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	assert.Equal(t, "error", readMessage(t, conn).Type)
}

func TestProgressHub_PublishNeverBlocks(t *testing.T) {
	// no Run loop: the queue fills and further events are dropped
	hub := NewProgressHub(nil)

	done := make(chan struct{})
	go func() {
		for i := 0; i < publishBuffer+50; i++ {
			hub.SendTaskUpdate("t", EventAnalysisStarted, nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publishing blocked")
	}
	assert.Equal(t, 50, hub.GetStats()["droppedEvents"])
}

func TestProgressHub_RejectsUnknownOrigin(t *testing.T) {
	hub := NewProgressHub([]string{"https://app.example"})
	go hub.Run()
	defer hub.Shutdown()

	ts := httptest.NewServer(http.HandlerFunc(hub.ServeWs))
	defer ts.Close()

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestProgressHub_ShutdownRefusesConnections(t *testing.T) {
	hub := NewProgressHub([]string{"*"})
	go hub.Run()
	hub.Shutdown()

	rr := httptest.NewRecorder()
	hub.ServeWs(rr, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestDeliverAfterRemove(t *testing.T) {
	hub := NewProgressHub(nil)
	c := &progressClient{id: "c1", send: make(chan ServerMessage, 1), hub: hub, tasks: map[string]struct{}{}}
	require.True(t, hub.add(c))

	assert.True(t, hub.deliver(c, ServerMessage{Type: "pong"}))
	// buffer full
	assert.False(t, hub.deliver(c, ServerMessage{Type: "pong"}))

	hub.remove(c)
	// send is closed now; delivering must not panic
	assert.NotPanics(t, func() {
		assert.False(t, hub.deliver(c, ServerMessage{Type: "pong"}))
	})

	// a stale client with a reused id is not written to
	other := &progressClient{id: "c1", send: make(chan ServerMessage, 1), hub: hub, tasks: map[string]struct{}{}}
	require.True(t, hub.add(other))
	assert.False(t, hub.deliver(c, ServerMessage{Type: "pong"}))
	assert.Empty(t, other.send)
}
