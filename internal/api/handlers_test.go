package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/hocduong/assistant/internal/config"
	"github.com/hocduong/assistant/internal/llm"
	"github.com/hocduong/assistant/internal/orchestrator"
	"github.com/hocduong/assistant/internal/risk"
	"github.com/hocduong/assistant/internal/session"
	"github.com/hocduong/assistant/internal/store"
)

type stubLLM struct {
	response string
}

func (s *stubLLM) CreateChatCompletion(ctx context.Context, r openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: s.response}}},
	}, nil
}

type fakeGateway struct {
	alerts map[string]store.Alert
	order  []string
	getErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{alerts: make(map[string]store.Alert)}
}

func (g *fakeGateway) SaveMessage(ctx context.Context, userID string, msg session.Message) error {
	return nil
}

func (g *fakeGateway) CreateAlert(ctx context.Context, alert store.Alert) (string, error) {
	alert.ID = "alert-1"
	g.alerts[alert.ID] = alert
	g.order = append(g.order, alert.ID)
	return alert.ID, nil
}

func (g *fakeGateway) UpdateAlertStatus(ctx context.Context, alertID string, status store.AlertStatus, assignee string) error {
	a, ok := g.alerts[alertID]
	if !ok {
		return store.ErrNotFound
	}
	a.Status = status
	a.Assignee = assignee
	g.alerts[alertID] = a
	return nil
}

func (g *fakeGateway) GetAlert(ctx context.Context, alertID string) (store.Alert, error) {
	if g.getErr != nil {
		return store.Alert{}, g.getErr
	}
	a, ok := g.alerts[alertID]
	if !ok {
		return store.Alert{}, store.ErrNotFound
	}
	return a, nil
}

func (g *fakeGateway) ListAlerts(ctx context.Context, status store.AlertStatus) ([]store.Alert, error) {
	var out []store.Alert
	for _, id := range g.order {
		a := g.alerts[id]
		if status == "" || a.Status == status {
			out = append(out, a)
		}
	}
	return out, nil
}

func (g *fakeGateway) ListMessages(ctx context.Context, sessionID string) ([]session.Message, error) {
	return nil, nil
}

func (g *fakeGateway) GetStats(ctx context.Context) (store.Stats, error) {
	return store.Stats{WeeklyConversations: 5, NewAlerts: len(g.order)}, nil
}

func newTestRouter(t *testing.T, gw *fakeGateway, adminPassword string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := llm.NewService(&stubLLM{response: "ok"}, config.LLMConfig{Model: "gpt"})
	orch := orchestrator.New(svc, gw, risk.New(nil))
	h := NewHandler(session.NewManager(), orch, gw, config.AdminConfig{Username: "admin", Password: adminPassword})

	router := gin.New()
	h.RegisterRoutes(router)
	return router
}

func doJSON(router *gin.Engine, method, path string, body any, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(req)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func asAdmin(req *http.Request) {
	req.SetBasicAuth("admin", "s3cret")
}

func TestChat_NewConversation(t *testing.T) {
	router := newTestRouter(t, newFakeGateway(), "")

	w := doJSON(router, http.MethodPost, "/api/chat", gin.H{"message": "Làm sao để học tốt hơn"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp chatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	require.Len(t, resp.Messages, 3)
	require.True(t, resp.Messages[0].IsGreeting)
	require.Equal(t, "ok", resp.Reply.Content)
	require.False(t, resp.Reply.IsEmergency)

	// Follow-up with the returned id stays in the same conversation.
	w = doJSON(router, http.MethodPost, "/api/chat", gin.H{"session_id": resp.SessionID, "message": "tiếp"})
	require.Equal(t, http.StatusOK, w.Code)
	var next chatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &next))
	require.Equal(t, resp.SessionID, next.SessionID)
	require.Len(t, next.Messages, 2)
}

func TestChat_EmergencyFlagged(t *testing.T) {
	gw := newFakeGateway()
	router := newTestRouter(t, gw, "")

	w := doJSON(router, http.MethodPost, "/api/chat", gin.H{"message": "em muốn chết"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp chatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Reply.IsEmergency)
	require.Len(t, gw.order, 1)

	// The alert identifier stays internal: persisted and visible to the
	// review workflow, never part of the chat payload.
	require.NotContains(t, w.Body.String(), "related_alert_id")
	require.NotContains(t, w.Body.String(), gw.order[0])
}

func TestChat_MissingMessage(t *testing.T) {
	router := newTestRouter(t, newFakeGateway(), "")
	w := doJSON(router, http.MethodPost, "/api/chat", gin.H{"session_id": "x"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionMessages(t *testing.T) {
	router := newTestRouter(t, newFakeGateway(), "")

	w := doJSON(router, http.MethodPost, "/api/chat", gin.H{"message": "chào"})
	var resp chatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	w = doJSON(router, http.MethodGet, "/api/sessions/"+resp.SessionID+"/messages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Messages []session.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Messages, 3)

	w = doJSON(router, http.MethodGet, "/api/sessions/unknown/messages", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdmin_RequiresAuth(t *testing.T) {
	router := newTestRouter(t, newFakeGateway(), "s3cret")

	w := doJSON(router, http.MethodGet, "/api/admin/alerts", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(router, http.MethodGet, "/api/admin/alerts", nil, asAdmin)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAdmin_DisabledWithoutPassword(t *testing.T) {
	router := newTestRouter(t, newFakeGateway(), "")
	w := doJSON(router, http.MethodGet, "/api/admin/alerts", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdmin_AlertReviewFlow(t *testing.T) {
	gw := newFakeGateway()
	router := newTestRouter(t, gw, "s3cret")

	// Trip the emergency path so an alert exists.
	w := doJSON(router, http.MethodPost, "/api/chat", gin.H{"message": "em bị đánh hội đồng"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/api/admin/alerts?status=New", nil, asAdmin)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Alerts []store.Alert `json:"alerts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Alerts, 1)
	id := list.Alerts[0].ID

	w = doJSON(router, http.MethodPatch, "/api/admin/alerts/"+id,
		gin.H{"status": "InProgress", "assignee": "Admin Trường"}, asAdmin)
	require.Equal(t, http.StatusOK, w.Code)
	var updated store.Alert
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	require.Equal(t, store.StatusInProgress, updated.Status)
	require.Equal(t, "Admin Trường", updated.Assignee)

	// Filtering by the old status no longer returns it.
	w = doJSON(router, http.MethodGet, "/api/admin/alerts?status=New", nil, asAdmin)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Empty(t, list.Alerts)

	w = doJSON(router, http.MethodPatch, "/api/admin/alerts/"+id, gin.H{"status": "Closed"}, asAdmin)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPatch, "/api/admin/alerts/missing", gin.H{"status": "Resolved"}, asAdmin)
	require.Equal(t, http.StatusNotFound, w.Code)
}

// Even when reading the alert back after a successful update fails, the
// response keeps the same shape, built from the requested change.
func TestAdmin_UpdateAlertReadBackFailure(t *testing.T) {
	gw := newFakeGateway()
	router := newTestRouter(t, gw, "s3cret")

	w := doJSON(router, http.MethodPost, "/api/chat", gin.H{"message": "em muốn chết"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, gw.order, 1)
	id := gw.order[0]

	gw.getErr = errors.New("read failed")
	w = doJSON(router, http.MethodPatch, "/api/admin/alerts/"+id,
		gin.H{"status": "Resolved", "assignee": "Admin Trường"}, asAdmin)
	require.Equal(t, http.StatusOK, w.Code)

	var updated store.Alert
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	require.Equal(t, id, updated.ID)
	require.Equal(t, store.StatusResolved, updated.Status)
	require.Equal(t, "Admin Trường", updated.Assignee)
}

func TestAdmin_Stats(t *testing.T) {
	gw := newFakeGateway()
	router := newTestRouter(t, gw, "s3cret")

	w := doJSON(router, http.MethodGet, "/api/admin/stats", nil, asAdmin)
	require.Equal(t, http.StatusOK, w.Code)
	var stats store.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	require.Equal(t, 5, stats.WeeklyConversations)
}
