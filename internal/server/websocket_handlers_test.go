package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockWebSocketConn records messages instead of sending them.
type mockWebSocketConn struct {
	mu           sync.Mutex
	sentMessages []WebSocketMessage
}

func (m *mockWebSocketConn) WriteMessage(_ int, data []byte) error {
	var msg WebSocketMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sentMessages = append(m.sentMessages, msg)
	return nil
}

func (m *mockWebSocketConn) messages() []WebSocketMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]WebSocketMessage(nil), m.sentMessages...)
}

func TestHandleWebSocketMessage_StreamsItems(t *testing.T) {
	s := newTestServer(t)
	conn := &mockWebSocketConn{}
	paths := batchFiles(t)

	s.handleWebSocketMessage(conn, []byte(mustJSON(t, ReadRequest{Paths: paths})))

	msgs := conn.messages()
	require.Len(t, msgs, 5)
	assert.Equal(t, MessageStarted, msgs[0].Type)
	assert.Equal(t, MessageDone, msgs[4].Type)

	id := msgs[0].RequestID
	assert.NotEmpty(t, id)

	seen := map[int]bool{}
	for _, m := range msgs[1:4] {
		assert.Equal(t, MessageItem, m.Type)
		assert.Equal(t, id, m.RequestID)

		payload, ok := m.Payload.(map[string]interface{})
		require.True(t, ok)
		idx := int(payload["index"].(float64))
		seen[idx] = payload["ok"].(bool)
		assert.Equal(t, paths[idx], payload["path"])
	}
	assert.Equal(t, map[int]bool{0: true, 1: false, 2: false}, seen)

	stats, ok := msgs[4].Payload.(map[string]interface{})
	require.True(t, ok)
	assert.InDelta(t, 3, stats["total"], 0)
	assert.InDelta(t, 2, stats["failed"], 0)
}

// stalledConn accepts the first message and blocks every later write until
// release is closed.
type stalledConn struct {
	mockWebSocketConn
	release chan struct{}
}

func (c *stalledConn) WriteMessage(messageType int, data []byte) error {
	if len(c.messages()) > 0 {
		<-c.release
	}
	return c.mockWebSocketConn.WriteMessage(messageType, data)
}

func TestHandleWebSocketMessage_SlowClientDoesNotHoldWorkers(t *testing.T) {
	s := newTestServer(t)
	conn := &stalledConn{release: make(chan struct{})}
	paths := batchFiles(t)

	wsDone := make(chan struct{})
	go func() {
		defer close(wsDone)
		s.handleWebSocketMessage(conn, []byte(mustJSON(t, ReadRequest{Paths: paths})))
	}()
	require.Eventually(t, func() bool { return len(conn.messages()) == 1 }, 5*time.Second, 10*time.Millisecond)

	readDone := make(chan error, 1)
	go func() {
		_, err := s.read(ReadRequest{Paths: paths[:1], Mode: ModeTolerant}, "independent")
		readDone <- err
	}()
	select {
	case err := <-readDone:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		close(conn.release)
		t.Fatal("independent batch blocked behind a stalled websocket client")
	}

	close(conn.release)
	select {
	case <-wsDone:
	case <-time.After(5 * time.Second):
		t.Fatal("websocket batch did not finish after the client resumed")
	}

	msgs := conn.messages()
	require.Len(t, msgs, 5)
	assert.Equal(t, MessageStarted, msgs[0].Type)
	for _, m := range msgs[1:4] {
		assert.Equal(t, MessageItem, m.Type)
	}
	assert.Equal(t, MessageDone, msgs[4].Type)
}

func TestEventQueue_PushNeverBlocks(t *testing.T) {
	s := newTestServer(t)
	conn := &stalledConn{release: make(chan struct{})}
	q := s.startWriter(conn, 2)

	pushed := 0
	for i := 0; i < 10; i++ {
		if q.push(WebSocketMessage{Type: MessageItem}) {
			pushed++
		}
	}
	// The writer may have taken one message off the queue before stalling.
	assert.GreaterOrEqual(t, pushed, 2)
	assert.LessOrEqual(t, pushed, 4)

	close(conn.release)
	q.finish()
	assert.Len(t, conn.messages(), pushed)
}

func TestHandleWebSocketMessage_InvalidRequests(t *testing.T) {
	s := newTestServer(t)

	for _, body := range []string{`not json`, `{"mode":"tolerant"}`, `{"paths":["a"],"mode":"x"}`} {
		conn := &mockWebSocketConn{}
		s.handleWebSocketMessage(conn, []byte(body))

		msgs := conn.messages()
		require.Len(t, msgs, 1, body)
		assert.Equal(t, MessageError, msgs[0].Type)
		assert.Equal(t, "invalid_request", msgs[0].ErrorType)
		assert.NotEmpty(t, msgs[0].Error)
	}
}

func TestHandleWebSocketMessage_ClosedPool(t *testing.T) {
	s := newTestServer(t)
	s.pool.Close()
	conn := &mockWebSocketConn{}

	s.handleWebSocketMessage(conn, []byte(`{"paths":["a.png"]}`))

	msgs := conn.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, MessageStarted, msgs[0].Type)
	assert.Equal(t, "processing_error", msgs[1].ErrorType)
}

func TestItemEvent(t *testing.T) {
	s := newTestServer(t)
	conn := &mockWebSocketConn{}
	paths := batchFiles(t)[:1]

	s.handleWebSocketMessage(conn, []byte(mustJSON(t, ReadRequest{Paths: paths, IncludePixels: true})))

	msgs := conn.messages()
	require.Len(t, msgs, 3)
	payload := msgs[1].Payload.(map[string]interface{})
	assert.Equal(t, "png", payload["format"])
	assert.Equal(t, []interface{}{2.0, 3.0, 3.0}, payload["shape"])
	assert.NotEmpty(t, payload["data"])
}

func TestReadWebSocketHandler_EndToEnd(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/ws/read"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
		_ = conn.Close()
	}()

	paths := batchFiles(t)
	require.NoError(t, conn.WriteJSON(ReadRequest{Paths: paths, Mode: ModeVerbose}))

	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	var types []string
	for {
		var msg WebSocketMessage
		require.NoError(t, conn.ReadJSON(&msg))
		types = append(types, msg.Type)
		if msg.Type == MessageDone || msg.Type == MessageError {
			break
		}
	}
	assert.Equal(t, []string{MessageStarted, MessageItem, MessageItem, MessageItem, MessageDone}, types)
}
