// Package realtime pushes server events to browsers over websockets.
//
// Wire protocol, server to client only:
//
//	{"event": "bookingConfirmed", "data": {...}}
//
// Delivery is at-most-once. A subscriber that connects after an event was
// broadcast never sees it, and a subscriber whose queue is full loses the
// event.
package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	apperrors "appointments/pkg/errors"
	httputil "appointments/pkg/http"
	"appointments/pkg/logger"
	"appointments/pkg/metrics"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512

	// subscriberBufferSize is the per-connection queue. Events beyond it are
	// dropped for that connection only.
	subscriberBufferSize = 32
)

var ErrHubClosed = errors.New("realtime hub is closed")

type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type subscriber struct {
	conn   *websocket.Conn
	frames chan []byte
}

type Hub struct {
	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
	closed      bool

	upgrader websocket.Upgrader
	log      *logger.Logger
	metrics  *metrics.Metrics
}

type Option func(*Hub)

// WithAllowedOrigin restricts the websocket handshake to one Origin. "*"
// accepts any origin.
func WithAllowedOrigin(origin string) Option {
	return func(h *Hub) {
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			if origin == "*" {
				return true
			}
			return r.Header.Get("Origin") == origin
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Hub) {
		h.metrics = m
	}
}

func NewHub(log *logger.Logger, opts ...Option) *Hub {
	h := &Hub{
		subscribers: make(map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Broadcast queues one frame for every connected subscriber. It never waits
// on a subscriber.
func (h *Hub) Broadcast(event string, payload any) error {
	frame, err := json.Marshal(Frame{Event: event, Data: payload})
	if err != nil {
		return fmt.Errorf("failed to encode %s frame: %w", event, err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return ErrHubClosed
	}

	dropped := 0
	for s := range h.subscribers {
		select {
		case s.frames <- frame:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.log.Warn("Dropped event for slow subscribers", "event", event, "dropped", dropped)
	}
	return nil
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// ServeHTTP upgrades the request and keeps the connection registered until
// the client goes away or the hub is closed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.isClosed() {
		_ = httputil.WriteError(w, apperrors.Unavailable("Realtime channel"))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	s := &subscriber{
		conn:   conn,
		frames: make(chan []byte, subscriberBufferSize),
	}
	if !h.add(s) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	h.log.Debug("Realtime subscriber connected", "remote_addr", r.RemoteAddr)

	go h.writePump(s)
	h.readPump(s)

	h.log.Debug("Realtime subscriber disconnected", "remote_addr", r.RemoteAddr)
}

func (h *Hub) isClosed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.closed
}

func (h *Hub) add(s *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.subscribers[s] = struct{}{}
	h.metrics.SetSubscribers(len(h.subscribers))
	return true
}

// remove unregisters s and closes its queue, which stops its write pump.
// Only the caller that finds s registered closes the queue.
func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[s]; !ok {
		return
	}
	delete(h.subscribers, s)
	close(s.frames)
	h.metrics.SetSubscribers(len(h.subscribers))
}

func (h *Hub) readPump(s *subscriber) {
	defer h.remove(s)

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("Realtime subscriber read failed", "error", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.frames:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every subscriber and rejects later connections.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subscribers {
		delete(h.subscribers, s)
		close(s.frames)
	}
	h.metrics.SetSubscribers(0)
	h.log.Info("Realtime hub closed")
}
