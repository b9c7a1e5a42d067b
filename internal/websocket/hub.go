package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait = 10 * time.Second

	// how long a client gets to answer the going-away close frame
	closeGracePeriod = time.Second
)

// Hub tracks live chat connections so they can be told to go away on
// shutdown. Connections share nothing else through it.
type Hub struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*session
	closing  bool
	logger   *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		sessions: make(map[uuid.UUID]*session),
		logger:   logger.Named("hub"),
	}
}

func (h *Hub) register(s *session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closing {
		return false
	}
	h.sessions[s.id] = s

	h.logger.Debug("WebSocket registered", zap.Stringer("conn_id", s.id), zap.Int("total", len(h.sessions)))
	return true
}

func (h *Hub) unregister(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.sessions, id)
	h.logger.Debug("WebSocket unregistered", zap.Stringer("conn_id", id), zap.Int("total", len(h.sessions)))
}

// Count returns the number of live chat connections.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Shutdown cancels in-flight generations, sends every client a going-away
// close frame and waits until all connections have unwound or ctx expires.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closing = true
	live := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		live = append(live, s)
	}
	h.mu.Unlock()

	h.logger.Info("Closing live WebSocket connections", zap.Int("count", len(live)))
	for _, s := range live {
		s.cancel()
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
		if err := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
			s.logger.Debug("Failed to send going-away frame", zap.Error(err))
		}
		s.conn.SetReadDeadline(time.Now().Add(closeGracePeriod))
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if h.Count() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
