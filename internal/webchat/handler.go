package webchat

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/medicare-wellness/clinic-scheduler/internal/assistant"
	"github.com/medicare-wellness/clinic-scheduler/pkg/logging"
)

// Responder produces assistant replies for visitor turns.
type Responder interface {
	Respond(ctx context.Context, history []assistant.ChatMessage, userMsg string) (*assistant.Reply, error)
}

// Handler manages web chat connections for the scheduling assistant.
type Handler struct {
	responder  Responder
	transcript assistant.TranscriptStore
	logger     *logging.Logger

	mu       sync.RWMutex
	sessions map[string]*wsConn // sessionID -> active connection
}

type wsConn struct {
	conn *websocket.Conn
	done chan struct{}
}

// InboundMessage is what the chat widget sends.
type InboundMessage struct {
	Type      string `json:"type"` // "message", "ping"
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string           `json:"type"` // "message", "typing", "history", "session", "pong", "error"
	Text      string           `json:"text,omitempty"`
	Role      string           `json:"role,omitempty"`
	SessionID string           `json:"session_id,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
	Intent    *BookingIntentVM `json:"intent,omitempty"`
	Messages  []HistoryMessage `json:"messages,omitempty"`
}

// BookingIntentVM is the intent payload surfaced to the widget so the UI can
// prefill the booking form.
type BookingIntentVM struct {
	DoctorID string `json:"doctor_id"`
	Date     string `json:"date"`
	Time     string `json:"time"`
}

// HistoryMessage is a simplified message for history responses.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// NewHandler creates a web chat handler. transcript may be nil to disable
// history.
func NewHandler(responder Responder, transcript assistant.TranscriptStore, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		responder:  responder,
		transcript: transcript,
		logger:     logger,
		sessions:   make(map[string]*wsConn),
	}
}

func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = generateSessionID()
	}

	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", SessionID: sessionID})

	if h.transcript != nil {
		if msgs, err := h.transcript.List(r.Context(), sessionID, 50); err == nil && len(msgs) > 0 {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", Messages: toHistory(msgs)})
		}
	}

	wsc := &wsConn{conn: conn, done: make(chan struct{})}
	h.mu.Lock()
	h.sessions[sessionID] = wsc
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		if h.sessions[sessionID] == wsc {
			delete(h.sessions, sessionID)
		}
		h.mu.Unlock()
		close(wsc.done)
	}()

	h.logger.Info("webchat: connection opened", "session_id", sessionID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", sessionID, "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		}
		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		h.sendToSession(sessionID, OutboundMessage{Type: "typing"})
		out := h.processMessage(r.Context(), sessionID, msg.Text)
		h.sendToSession(sessionID, out)
	}
}

// processMessage runs one visitor turn through the assistant and returns the
// widget payload.
func (h *Handler) processMessage(ctx context.Context, sessionID, text string) OutboundMessage {
	now := time.Now().UTC()

	var history []assistant.ChatMessage
	if h.transcript != nil {
		if msgs, err := h.transcript.List(ctx, sessionID, 50); err == nil {
			for _, m := range msgs {
				history = append(history, assistant.ChatMessage{Role: m.Role, Content: m.Text})
			}
		}
		_ = h.transcript.Append(ctx, sessionID, assistant.TranscriptMessage{
			Role: assistant.ChatRoleUser, Text: text, Timestamp: now,
		})
	}

	reply, err := h.responder.Respond(ctx, history, text)
	if err != nil {
		h.logger.Error("webchat: assistant failed", "error", err, "session_id", sessionID)
		return OutboundMessage{
			Type: "error",
			Text: "Sorry, something went wrong. Please try again.",
		}
	}

	if h.transcript != nil {
		_ = h.transcript.Append(ctx, sessionID, assistant.TranscriptMessage{
			Role: assistant.ChatRoleAssistant, Text: reply.Text, Timestamp: time.Now().UTC(),
		})
	}

	out := OutboundMessage{
		Type:      "message",
		Role:      "assistant",
		Text:      reply.Text,
		SessionID: sessionID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if reply.Intent.Valid() {
		out.Intent = &BookingIntentVM{
			DoctorID: reply.Intent.DoctorID,
			Date:     reply.Intent.Date,
			Time:     reply.Intent.Time,
		}
	}
	return out
}

func (h *Handler) sendToSession(sessionID string, msg OutboundMessage) {
	h.mu.RLock()
	wsc, ok := h.sessions[sessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	_ = websocket.JSON.Send(wsc.conn, msg)
}

// HandleMessage is the HTTP fallback for widgets without WebSocket support.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Text      string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		req.SessionID = generateSessionID()
	}

	out := h.processMessage(r.Context(), req.SessionID, req.Text)
	out.SessionID = req.SessionID

	w.Header().Set("Content-Type", "application/json")
	if out.Type == "error" {
		w.WriteHeader(http.StatusBadGateway)
	}
	_ = json.NewEncoder(w).Encode(out)
}

// HandleHistory returns chat history for a session.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	history := []HistoryMessage{}
	if h.transcript != nil {
		msgs, err := h.transcript.List(r.Context(), sessionID, 100)
		if err != nil {
			h.logger.Error("webchat: failed to load history", "error", err)
			http.Error(w, "failed to load history", http.StatusInternalServerError)
			return
		}
		history = toHistory(msgs)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"messages": history})
}

func toHistory(msgs []assistant.TranscriptMessage) []HistoryMessage {
	history := make([]HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, HistoryMessage{
			Role:      string(m.Role),
			Text:      m.Text,
			Timestamp: m.Timestamp.Format(time.RFC3339),
		})
	}
	return history
}
