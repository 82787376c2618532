package webchat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/websocket"

	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/internal/conversation"
	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/pkg/logging"
)

// Engine is the conversation surface the widget talks to.
type Engine interface {
	StartSession(ctx context.Context, userAgent, referrer string) conversation.Reply
	HandleMessage(ctx context.Context, sessionID, message string) (conversation.Reply, error)
	History(sessionID string) ([]conversation.Turn, bool)
}

// Handler bridges the embeddable chat widget to the conversation engine.
type Handler struct {
	engine   Engine
	logger   *logging.Logger
	widgetJS []byte
}

// NewHandler creates a web chat handler. Panics when the engine is missing.
func NewHandler(engine Engine, widgetJS []byte, logger *logging.Logger) *Handler {
	if engine == nil {
		panic("webchat: handler requires an engine")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		engine:   engine,
		logger:   logger,
		widgetJS: widgetJS,
	}
}

// InboundMessage is what the widget sends over the socket.
type InboundMessage struct {
	Type      string `json:"type"` // "message", "ping"
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type            string           `json:"type"` // "message", "session", "history", "pong", "error"
	Text            string           `json:"text,omitempty"`
	Role            string           `json:"role,omitempty"`
	Phase           string           `json:"phase,omitempty"`
	SessionID       string           `json:"session_id,omitempty"`
	QuickReplies    []string         `json:"quick_replies,omitempty"`
	ReferenceNumber string           `json:"reference_number,omitempty"`
	Timestamp       string           `json:"timestamp,omitempty"`
	Messages        []HistoryMessage `json:"messages,omitempty"`
}

// HistoryMessage is a simplified turn for history responses.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// HandleStart opens a session and returns the greeting.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Referrer string `json:"referrer"`
	}
	// The body is optional; an empty POST is fine.
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Referrer == "" {
		req.Referrer = r.Header.Get("Referer")
	}

	reply := h.engine.StartSession(r.Context(), r.UserAgent(), req.Referrer)
	writeJSON(w, http.StatusOK, reply)
}

// HandleMessage is the HTTP transport for one visitor turn.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Message   string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" || strings.TrimSpace(req.Message) == "" {
		http.Error(w, "session_id and message are required", http.StatusBadRequest)
		return
	}

	reply, err := h.engine.HandleMessage(r.Context(), req.SessionID, req.Message)
	if err != nil {
		if errors.Is(err, conversation.ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		h.logger.Error("webchat: message handling failed", "session_id", req.SessionID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

// HandleHistory returns the transcript for a session.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	turns, ok := h.engine.History(sessionID)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"messages": historyMessages(turns)})
}

// HandleWebSocket serves the real-time transport. Each socket drives one
// session; replies come back synchronously per message.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	ctx := r.Context()

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		start := h.engine.StartSession(ctx, r.UserAgent(), r.Header.Get("Referer"))
		sessionID = start.SessionID
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", SessionID: sessionID})
		_ = websocket.JSON.Send(conn, outboundFromReply(start))
	} else if turns, ok := h.engine.History(sessionID); ok && len(turns) > 0 {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", Messages: historyMessages(turns)})
	}

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

		reply, err := h.engine.HandleMessage(ctx, sessionID, msg.Text)
		if err != nil {
			h.logger.Error("webchat: message handling failed", "session_id", sessionID, "error", err)
			_ = websocket.JSON.Send(conn, OutboundMessage{
				Type: "error",
				Text: "Sorry, something went wrong. Please try again.",
			})
			continue
		}
		_ = websocket.JSON.Send(conn, outboundFromReply(reply))
	}
}

// HandleWidgetJS serves the embeddable widget JavaScript.
func (h *Handler) HandleWidgetJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	_, _ = w.Write(h.widgetJS)
}

func historyMessages(turns []conversation.Turn) []HistoryMessage {
	out := make([]HistoryMessage, 0, len(turns))
	for _, t := range turns {
		out = append(out, HistoryMessage{
			Role:      t.Role,
			Text:      t.Text,
			Timestamp: t.Timestamp.Format(time.RFC3339),
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
