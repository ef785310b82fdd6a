package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MeKo-Tech/imread/internal/batch"
	"github.com/MeKo-Tech/imread/internal/decode"
	"github.com/MeKo-Tech/imread/internal/reconcile"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocket message types sent by the server.
const (
	MessageStarted = "started"
	MessageItem    = "item"
	MessageDone    = "done"
	MessageError   = "error"
)

// WebSocketMessage represents a message sent over WebSocket.
type WebSocketMessage struct {
	Type      string      `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	Error     string      `json:"error,omitempty"`
	ErrorType string      `json:"error_type,omitempty"`
}

// StartedPayload announces a batch.
type StartedPayload struct {
	Total int    `json:"total"`
	Mode  string `json:"mode"`
}

// ItemEvent reports one finished decode. Events arrive in completion order;
// Index places the item in the request.
type ItemEvent struct {
	Index     int     `json:"index"`
	Path      string  `json:"path"`
	OK        bool    `json:"ok"`
	Format    string  `json:"format,omitempty"`
	Shape     *[3]int `json:"shape,omitempty"`
	Data      []byte  `json:"data,omitempty"`
	ErrorKind string  `json:"error_kind,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// pongWait bounds the time between client frames or pongs.
const pongWait = 60 * time.Second

// eventQueue hands messages from decode workers to a single writer
// goroutine, so a slow client never holds a worker.
type eventQueue struct {
	events chan WebSocketMessage
	done   chan struct{}
}

// startWriter launches the writer goroutine. size must cover every message
// pushed before finish.
func (s *Server) startWriter(conn WebSocketConnWriter, size int) *eventQueue {
	q := &eventQueue{
		events: make(chan WebSocketMessage, size),
		done:   make(chan struct{}),
	}
	go func() {
		defer close(q.done)
		for msg := range q.events {
			s.sendWebSocketMessage(conn, msg)
		}
	}()
	return q
}

// push never blocks.
func (q *eventQueue) push(msg WebSocketMessage) bool {
	select {
	case q.events <- msg:
		return true
	default:
		return false
	}
}

// finish waits until every queued message has been written.
func (q *eventQueue) finish() {
	close(q.events)
	<-q.done
}

// readWebSocketHandler streams batch reads over a WebSocket connection.
func (s *Server) readWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	s.logger.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

	s.handleWebSocketConnection(conn)
}

// handleWebSocketConnection processes messages until the client goes away.
func (s *Server) handleWebSocketConnection(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		websocketMessagesTotal.WithLabelValues("received").Inc()

		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(conn, data)
			// Pongs are not read while a batch runs.
			_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		}
	}
}

// handleWebSocketMessage runs one read request and streams its events.
func (s *Server) handleWebSocketMessage(conn WebSocketConnWriter, data []byte) {
	id := uuid.NewString()

	var req ReadRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, id, "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
		return
	}
	if err := s.validateRequest(&req); err != nil {
		s.sendWebSocketError(conn, id, "invalid_request", err.Error())
		return
	}

	// started, one item per path, then done or error.
	q := s.startWriter(conn, len(req.Paths)+2)
	defer q.finish()

	q.push(WebSocketMessage{
		Type:      MessageStarted,
		RequestID: id,
		Payload:   StartedPayload{Total: len(req.Paths), Mode: req.Mode},
	})

	hook := func(i int, o decode.Outcome) {
		if !o.OK() {
			reconcile.LogFailure(s.logger, i, o.Err)
		}
		if !q.push(WebSocketMessage{
			Type:      MessageItem,
			RequestID: id,
			Payload:   itemEvent(i, req.Paths[i], o, req.IncludePixels),
		}) {
			s.logger.Warn("WebSocket event queue full, dropping item", "request_id", id, "index", i)
		}
	}

	var opts []batch.Option
	if s.pool != nil {
		opts = append(opts, batch.WithPool(s.pool))
	}
	opts = append(opts, batch.WithItemHook(hook))

	start := time.Now()
	outcomes, err := batch.Decode(req.Paths, opts...)
	if err != nil {
		q.push(WebSocketMessage{
			Type:      MessageError,
			RequestID: id,
			Error:     fmt.Sprintf("Batch read failed: %v", err),
			ErrorType: "processing_error",
		})
		return
	}
	readRequestsTotal.WithLabelValues("websocket", req.Mode).Inc()

	q.push(WebSocketMessage{
		Type:      MessageDone,
		RequestID: id,
		Payload:   batch.CalculateStats(outcomes, time.Since(start), s.workers()),
	})
}

func itemEvent(index int, path string, o decode.Outcome, includePixels bool) ItemEvent {
	ev := ItemEvent{Index: index, Path: path, OK: o.OK()}
	if !ev.OK {
		ev.ErrorKind = string(o.Err.Kind)
		ev.Error = o.Err.Error()
		return ev
	}
	a := reconcile.Wrap(o.Image)
	ev.Format = o.Image.Format.String()
	ev.Shape = &a.Shape
	if includePixels {
		ev.Data = a.Data
	}
	return ev
}

// sendWebSocketMessage marshals and sends msg.
func (s *Server) sendWebSocketMessage(conn WebSocketConnWriter, msg WebSocketMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("Failed to marshal WebSocket message", "error", err)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}

	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, id, errorType, message string) {
	s.sendWebSocketMessage(conn, WebSocketMessage{
		Type:      MessageError,
		RequestID: id,
		Error:     message,
		ErrorType: errorType,
	})
}
