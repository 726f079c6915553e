// Package api exposes the conversational turn and the admin review workflow
// over HTTP. It collects the user's text, hands it to the orchestrator and
// returns the resulting messages; it owns no conversation logic itself.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hocduong/assistant/internal/config"
	"github.com/hocduong/assistant/internal/logger"
	"github.com/hocduong/assistant/internal/orchestrator"
	"github.com/hocduong/assistant/internal/session"
	"github.com/hocduong/assistant/internal/store"
)

// Handler wires HTTP routes to the escalation engine and the alert store.
type Handler struct {
	sessions *session.Manager
	orch     *orchestrator.Orchestrator
	gateway  store.Gateway
	admin    config.AdminConfig
}

// NewHandler constructs a Handler instance.
func NewHandler(sessions *session.Manager, orch *orchestrator.Orchestrator, gateway store.Gateway, admin config.AdminConfig) *Handler {
	return &Handler{sessions: sessions, orch: orch, gateway: gateway, admin: admin}
}

// RegisterRoutes attaches all HTTP routes to the router. The admin group is
// only mounted when credentials are configured.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.POST("/chat", h.chat)
	api.GET("/sessions/:id/messages", h.sessionMessages)

	if h.admin.Password != "" {
		admin := api.Group("/admin", gin.BasicAuth(gin.Accounts{h.admin.Username: h.admin.Password}))
		admin.GET("/alerts", h.listAlerts)
		admin.PATCH("/alerts/:id", h.updateAlert)
		admin.GET("/stats", h.stats)
	}
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message" binding:"required"`
}

type chatResponse struct {
	SessionID string            `json:"session_id"`
	Messages  []session.Message `json:"messages"`
	Reply     session.Message   `json:"reply"`
}

func (h *Handler) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	s, created := h.sessions.GetOrCreate(req.SessionID)
	if created && req.SessionID != "" {
		logger.L.Info("unknown session id, starting fresh conversation", "requested", req.SessionID, "session_id", s.ID())
	}

	turn, err := h.orch.Process(c.Request.Context(), s, req.Message)
	if err != nil {
		logger.L.Error("turn processing failed", "session_id", s.ID(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process message"})
		return
	}

	c.JSON(http.StatusOK, chatResponse{
		SessionID: turn.SessionID,
		Messages:  turn.Appended,
		Reply:     turn.Reply,
	})
}

func (h *Handler) sessionMessages(c *gin.Context) {
	id := c.Param("id")
	if s, ok := h.sessions.Get(id); ok {
		c.JSON(http.StatusOK, gin.H{"session_id": id, "messages": s.History()})
		return
	}

	// Not live in this process; fall back to the persisted record.
	msgs, err := h.gateway.ListMessages(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	if len(msgs) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": id, "messages": msgs})
}

func (h *Handler) listAlerts(c *gin.Context) {
	status := store.AlertStatus(c.Query("status"))
	if status != "" && !store.ValidStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}

	alerts, err := h.gateway.ListAlerts(c.Request.Context(), status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load alerts"})
		return
	}
	if alerts == nil {
		alerts = []store.Alert{}
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

type updateAlertRequest struct {
	Status   store.AlertStatus `json:"status" binding:"required"`
	Assignee string            `json:"assignee"`
}

func (h *Handler) updateAlert(c *gin.Context) {
	var req updateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}
	if !store.ValidStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}

	id := c.Param("id")
	if err := h.gateway.UpdateAlertStatus(c.Request.Context(), id, req.Status, req.Assignee); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update alert"})
		return
	}

	alert, err := h.gateway.GetAlert(c.Request.Context(), id)
	if err != nil {
		// The update already succeeded; answer with the state we know
		// rather than a different response shape.
		logger.L.Warn("alert read-back failed after update", "alert_id", id, "error", err)
		alert = store.Alert{ID: id, Status: req.Status, Assignee: req.Assignee}
	}
	c.JSON(http.StatusOK, alert)
}

func (h *Handler) stats(c *gin.Context) {
	stats, err := h.gateway.GetStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
