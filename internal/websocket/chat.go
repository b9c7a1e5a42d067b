package websocket

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"careconnect-backend/internal/config"
	"careconnect-backend/internal/models"
	"careconnect-backend/internal/services"
)

const (
	unavailableMessage = "Chat service is currently unavailable. Please try again later."
	invalidJSONMessage = "Invalid JSON format received."
	nonTextMessage     = "Only text frames are supported."
	processingPrefix   = "An error occurred while processing your request: "
	serverErrorPrefix  = "A server-side WebSocket error occurred: "
)

// Generator produces the model's reply to one query as text fragments. A
// non-nil error ends the reply.
type Generator interface {
	Generate(ctx context.Context, query string, history []models.ChatMessage) iter.Seq2[string, error]
}

type ChatHandler struct {
	generator       Generator
	hub             *Hub
	events          services.EventPublisher
	logger          *zap.Logger
	upgrader        websocket.Upgrader
	maxMessageBytes int64
}

// NewChatHandler builds the chat endpoint. A nil generator puts the endpoint in
// unavailable mode: each connection is told so once and closed.
func NewChatHandler(generator Generator, hub *Hub, events services.EventPublisher, cfg *config.Config, logger *zap.Logger) *ChatHandler {
	if events == nil {
		events = services.NopEventPublisher{}
	}
	return &ChatHandler{
		generator: generator,
		hub:       hub,
		events:    events,
		logger:    logger.Named("chat"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(cfg.AllowedOrigins),
		},
		maxMessageBytes: cfg.MaxMessageBytes,
	}
}

func (h *ChatHandler) Available() bool {
	return h.generator != nil
}

type session struct {
	id        uuid.UUID
	conn      *websocket.Conn
	logger    *zap.Logger
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// close sends a close frame with code and drops the connection. Safe to call
// more than once.
func (s *session) close(code int, text string) {
	s.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(code, text)
		s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		s.conn.Close()
	})
}

func (h *ChatHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	id := uuid.New()
	s := &session{
		id:     id,
		conn:   conn,
		cancel: cancel,
		logger: h.logger.With(zap.Stringer("conn_id", id), zap.String("remote_addr", r.RemoteAddr)),
	}
	s.logger.Info("Client connected to WebSocket")

	if h.generator == nil {
		s.logger.Warn("LLM service not available, closing WebSocket connection")
		if err := h.send(s, models.ErrorResponse(unavailableMessage)); err != nil {
			s.logger.Warn("Could not send unavailability notice", zap.Error(err))
		}
		s.close(websocket.CloseInternalServerErr, "")
		return
	}

	if !h.hub.register(s) {
		s.close(websocket.CloseGoingAway, "server shutting down")
		return
	}
	defer h.hub.unregister(id)

	h.events.Publish(ctx, models.SessionEvent{Type: models.EventConnected, ConnectionID: id})
	defer h.events.Publish(ctx, models.SessionEvent{Type: models.EventDisconnected, ConnectionID: id})

	h.serve(ctx, s)
}

// serve runs the receive loop. It is the only place a connection ends: any
// panic below is turned into one courtesy error frame before the close.
func (h *ChatHandler) serve(ctx context.Context, s *session) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("An unexpected WebSocket error occurred", zap.Any("panic", rec), zap.Stack("stack"))
			if err := h.send(s, models.ErrorResponse(fmt.Sprintf("%s%v", serverErrorPrefix, rec))); err != nil {
				s.logger.Warn("Could not send error to client after WebSocket error", zap.Error(err))
			}
		}
		s.logger.Info("Closing WebSocket connection")
		s.close(websocket.CloseNormalClosure, "")
	}()

	s.conn.SetReadLimit(h.maxMessageBytes)

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			h.logReadError(s, err)
			return
		}

		if err := h.handleFrame(ctx, s, msgType, data); err != nil {
			s.logger.Warn("Transport failure, ending connection", zap.Error(err))
			return
		}
	}
}

// handleFrame processes one inbound frame. Only transport errors are
// returned; everything else is reported to the client and the loop goes on.
func (h *ChatHandler) handleFrame(ctx context.Context, s *session, msgType int, data []byte) error {
	if msgType != websocket.TextMessage {
		s.logger.Warn("Non-text frame received", zap.Int("message_type", msgType), zap.Int("length", len(data)))
		return h.send(s, models.ErrorResponse(nonTextMessage))
	}

	in, err := models.ParseUserInput(data)
	if err != nil {
		s.logger.Warn("Rejected inbound message",
			zap.String("kind", string(models.KindOf(err))),
			zap.Int("length", len(data)),
			zap.Error(err))
		return h.send(s, models.ErrorResponse(clientErrorText(err)))
	}

	s.logger.Info("Received query",
		zap.Int("query_length", len(in.Query)),
		zap.Int("history_length", len(in.History)))

	return h.relay(ctx, s, in)
}

// relay streams one generated reply to the client, a content frame per
// fragment. The next inbound frame is not read until this returns.
func (h *ChatHandler) relay(ctx context.Context, s *session, in *models.UserInput) error {
	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	started := time.Now()
	fragments := 0
	var genErr error
	for text, err := range h.generator.Generate(turnCtx, in.Query, in.History) {
		if err != nil {
			genErr = err
			break
		}
		if err := h.send(s, models.ContentResponse(text)); err != nil {
			return err
		}
		fragments++
	}

	event := models.SessionEvent{
		Type:          models.EventTurnCompleted,
		ConnectionID:  s.id,
		HistoryLength: len(in.History),
		QueryLength:   len(in.Query),
		Fragments:     fragments,
	}

	switch {
	case genErr != nil:
		event.ErrorKind = models.KindOf(genErr)
		s.logger.Error("Error processing message",
			zap.String("kind", string(event.ErrorKind)),
			zap.Int("fragments", fragments),
			zap.Error(genErr))
		if err := h.send(s, models.ErrorResponse(clientErrorText(genErr))); err != nil {
			return err
		}
	case fragments == 0:
		s.logger.Info("LLM stream was empty or only yielded empty chunks")
	default:
		s.logger.Info("Reply streamed", zap.Int("fragments", fragments), zap.Duration("elapsed", time.Since(started)))
	}

	h.events.Publish(ctx, event)
	return nil
}

func (h *ChatHandler) send(s *session, resp models.ClientResponse) error {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(resp); err != nil {
		return models.NewChatError(models.ErrTransport, fmt.Errorf("write %s frame: %w", resp.Type, err))
	}
	return nil
}

func (h *ChatHandler) logReadError(s *session, err error) {
	switch {
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
		s.logger.Info("Client disconnected", zap.Error(err))
	case errors.Is(err, websocket.ErrReadLimit):
		s.logger.Warn("Inbound frame exceeds size limit", zap.Int64("limit", h.maxMessageBytes))
	default:
		s.logger.Warn("WebSocket read failed", zap.Error(err))
	}
}

func clientErrorText(err error) string {
	switch models.KindOf(err) {
	case models.ErrMalformedInput:
		return invalidJSONMessage
	case models.ErrGeneration:
		// already phrased for the user by the generator
		return err.Error()
	default:
		return processingPrefix + err.Error()
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	allowAll := slices.Contains(allowed, "*")
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if allowAll || origin == "" {
			return true
		}
		return slices.ContainsFunc(allowed, func(a string) bool {
			return strings.EqualFold(a, origin)
		})
	}
}
