package webchat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/internal/conversation"
	"github.com/AdrianCasey-Amplifyx/amplifyx-intake/pkg/logging"
)

// mockEngine scripts the conversation surface.
type mockEngine struct {
	startReply conversation.Reply
	reply      conversation.Reply
	err        error
	history    []conversation.Turn
	messages   []string
}

func (m *mockEngine) StartSession(_ context.Context, _, _ string) conversation.Reply {
	return m.startReply
}

func (m *mockEngine) HandleMessage(_ context.Context, sessionID, message string) (conversation.Reply, error) {
	m.messages = append(m.messages, message)
	if m.err != nil {
		return conversation.Reply{}, m.err
	}
	reply := m.reply
	reply.SessionID = sessionID
	return reply, nil
}

func (m *mockEngine) History(sessionID string) ([]conversation.Turn, bool) {
	if m.history == nil {
		return nil, false
	}
	return m.history, true
}

func TestHandleStart(t *testing.T) {
	eng := &mockEngine{startReply: conversation.Reply{
		SessionID:    "sess1",
		Text:         "Hi! What are you looking to build?",
		Phase:        conversation.PhaseCollecting,
		QuickReplies: []string{"Build an AI chatbot"},
	}}
	h := NewHandler(eng, []byte("// widget"), logging.New("error"))

	req := httptest.NewRequest(http.MethodPost, "/chat/session", nil)
	w := httptest.NewRecorder()
	h.HandleStart(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp conversation.Reply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "sess1", resp.SessionID)
	assert.Equal(t, conversation.PhaseCollecting, resp.Phase)
	assert.NotEmpty(t, resp.QuickReplies)
}

func TestHandleMessage_HTTP(t *testing.T) {
	eng := &mockEngine{reply: conversation.Reply{
		Text:  "Great, tell me more.",
		Phase: conversation.PhaseCollecting,
	}}
	h := NewHandler(eng, nil, logging.New("error"))

	body := `{"session_id":"sess1","message":"Hello"}`
	req := httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleMessage(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp conversation.Reply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "sess1", resp.SessionID)
	assert.Equal(t, "Great, tell me more.", resp.Text)

	require.Len(t, eng.messages, 1)
	assert.Equal(t, "Hello", eng.messages[0])
}

func TestHandleMessage_MissingFields(t *testing.T) {
	h := NewHandler(&mockEngine{}, nil, logging.New("error"))

	body := `{"message":"Hello"}`
	req := httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.HandleMessage(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleMessage_UnknownSession(t *testing.T) {
	eng := &mockEngine{err: conversation.ErrSessionNotFound}
	h := NewHandler(eng, nil, logging.New("error"))

	body := `{"session_id":"missing","message":"Hello"}`
	req := httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.HandleMessage(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleHistory(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	eng := &mockEngine{history: []conversation.Turn{
		{Role: "assistant", Text: "Hi there!", Timestamp: now},
		{Role: "user", Text: "Hello", Timestamp: now.Add(time.Second)},
	}}
	h := NewHandler(eng, nil, logging.New("error"))

	req := httptest.NewRequest(http.MethodGet, "/chat/history?session=sess1", nil)
	w := httptest.NewRecorder()

	h.HandleHistory(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Messages []HistoryMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "assistant", resp.Messages[0].Role)
	assert.Equal(t, "Hi there!", resp.Messages[0].Text)
	assert.Equal(t, "2025-06-01T09:00:00Z", resp.Messages[0].Timestamp)
}

func TestHandleHistory_MissingParam(t *testing.T) {
	h := NewHandler(&mockEngine{}, nil, logging.New("error"))

	req := httptest.NewRequest(http.MethodGet, "/chat/history", nil)
	w := httptest.NewRecorder()

	h.HandleHistory(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleHistory_UnknownSession(t *testing.T) {
	h := NewHandler(&mockEngine{}, nil, logging.New("error"))

	req := httptest.NewRequest(http.MethodGet, "/chat/history?session=missing", nil)
	w := httptest.NewRecorder()

	h.HandleHistory(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleWidgetJS(t *testing.T) {
	widgetContent := []byte("(function(){ /* widget */ })();")
	h := NewHandler(&mockEngine{}, widgetContent, logging.New("error"))

	req := httptest.NewRequest(http.MethodGet, "/chat/widget.js", nil)
	w := httptest.NewRecorder()

	h.HandleWidgetJS(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/javascript", w.Header().Get("Content-Type"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, string(widgetContent), w.Body.String())
}
