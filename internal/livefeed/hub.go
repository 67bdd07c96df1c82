// Package livefeed pushes coverage snapshots to websocket clients.
package livefeed

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/park285/board-coverage/internal/presenter"
	"github.com/park285/board-coverage/internal/tracker"
	"github.com/park285/board-coverage/pkg/coveragedto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

const (
	MessageTypeSnapshot = "snapshot"

	defaultClientBuffer = 16
	writeTimeout        = 5 * time.Second
)

// Message is the envelope written to clients.
type Message struct {
	Type      string               `json:"type"`
	Payload   coveragedto.Snapshot `json:"payload"`
	Timestamp time.Time            `json:"timestamp"`
}

type client struct {
	id   string
	send chan []byte
}

// Hub is both an http.Handler (the /ws endpoint) and a tracker.Sink.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	latest  []byte
	closed  bool

	user    string
	origins []string
	buffer  int
	logger  *zap.Logger
	now     func() time.Time
}

type Option func(*Hub)

// WithOriginPatterns allows cross-origin dashboards (see websocket.AcceptOptions).
func WithOriginPatterns(patterns ...string) Option {
	return func(h *Hub) { h.origins = append(h.origins, patterns...) }
}

func WithLogger(l *zap.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

func WithClientBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

func NewHub(user string, opts ...Option) *Hub {
	h := &Hub{
		clients: map[*client]struct{}{},
		user:    user,
		buffer:  defaultClientBuffer,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish encodes the update once and queues it for every client. Clients
// whose buffer is full are disconnected.
func (h *Hub) Publish(_ context.Context, u tracker.Update) error {
	msg, err := json.Marshal(Message{
		Type:      MessageTypeSnapshot,
		Payload:   presenter.ToDTO(u, h.user),
		Timestamp: h.now().UTC(),
	})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = msg
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("livefeed_slow_client", zap.String("client_id", c.id))
			h.dropLocked(c)
		}
	}
	return nil
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  h.origins,
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		h.logger.Warn("livefeed_accept_failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	c, ok := h.add()
	if !ok {
		_ = conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	}
	defer h.remove(c)
	h.logger.Info("livefeed_connect", zap.String("client_id", c.id), zap.Int("clients", h.Clients()))

	// clients never send; CloseRead handles control frames and cancels on close
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case msg, open := <-c.send:
			if !open {
				_ = conn.Close(websocket.StatusPolicyViolation, "dropped")
				return
			}
			if err := write(ctx, conn, msg); err != nil {
				h.logger.Debug("livefeed_write_failed", zap.String("client_id", c.id), zap.Error(err))
				return
			}
		}
	}
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.dropLocked(c)
	}
}

func (h *Hub) add() (*client, bool) {
	c := &client{id: uuid.NewString(), send: make(chan []byte, h.buffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	if h.latest != nil {
		c.send <- h.latest
	}
	h.clients[c] = struct{}{}
	return c, true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

func (h *Hub) dropLocked(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg []byte) error {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, msg)
}
