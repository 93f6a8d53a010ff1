package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"mcpchat/internal/domain/chat"
	"mcpchat/internal/domain/task"
	"mcpchat/internal/infrastructure/metrics"
	"mcpchat/internal/interfaces/httpserver/responses"
)

// SessionHandler drives the server-side conversation machine.
type SessionHandler struct {
	log      zerolog.Logger
	sessions *chat.Manager
	registry *task.Registry
}

// NewSessionHandler builds the handler.
func NewSessionHandler(log zerolog.Logger, sessions *chat.Manager, registry *task.Registry) *SessionHandler {
	return &SessionHandler{
		log:      log.With().Str("handler", "sessions").Logger(),
		sessions: sessions,
		registry: registry,
	}
}

// sessionResponse pairs the routing id with the conversation snapshot.
// The snapshot's own sessionId is the conversation-scoped identity that
// Reset regenerates; the routing id is stable for the session's lifetime.
type sessionResponse struct {
	ID string `json:"id"`
	chat.Snapshot
}

// Create handles POST /v1/sessions.
func (h *SessionHandler) Create(c *gin.Context) {
	id, conv := h.sessions.Create()
	c.JSON(http.StatusCreated, sessionResponse{ID: id, Snapshot: conv.Snapshot()})
}

// Get handles GET /v1/sessions/:id.
func (h *SessionHandler) Get(c *gin.Context) {
	conv, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		responses.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{ID: c.Param("id"), Snapshot: conv.Snapshot()})
}

type sendMessageBody struct {
	Text string `json:"text" binding:"required"`
}

// SendMessage handles POST /v1/sessions/:id/messages. A busy turn is a
// conflict, never a queue.
func (h *SessionHandler) SendMessage(c *gin.Context) {
	conv, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		responses.WriteError(c, err)
		return
	}
	var body sendMessageBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, responses.ErrorResponse{Error: "text is required"})
		return
	}
	if err := conv.SendMessage(body.Text); err != nil {
		responses.WriteError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, sessionResponse{ID: c.Param("id"), Snapshot: conv.Snapshot()})
}

type approvalBody struct {
	Approve *bool `json:"approve" binding:"required"`
}

// Approval handles POST /v1/sessions/:id/approval.
func (h *SessionHandler) Approval(c *gin.Context) {
	conv, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		responses.WriteError(c, err)
		return
	}
	var body approvalBody
	if err := c.ShouldBindJSON(&body); err != nil || body.Approve == nil {
		c.JSON(http.StatusBadRequest, responses.ErrorResponse{Error: "approve is required"})
		return
	}
	if err := conv.HandleApproval(*body.Approve); err != nil {
		responses.WriteError(c, err)
		return
	}
	decision := "declined"
	if *body.Approve {
		decision = "approved"
	}
	metrics.ApprovalDecisionsTotal.WithLabelValues(decision).Inc()
	c.JSON(http.StatusAccepted, sessionResponse{ID: c.Param("id"), Snapshot: conv.Snapshot()})
}

// Stop handles POST /v1/sessions/:id/stop.
func (h *SessionHandler) Stop(c *gin.Context) {
	conv, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		responses.WriteError(c, err)
		return
	}
	conv.Stop()
	c.JSON(http.StatusOK, sessionResponse{ID: c.Param("id"), Snapshot: conv.Snapshot()})
}

// Reset handles POST /v1/sessions/:id/reset.
func (h *SessionHandler) Reset(c *gin.Context) {
	conv, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		responses.WriteError(c, err)
		return
	}
	conv.Reset()
	c.JSON(http.StatusOK, sessionResponse{ID: c.Param("id"), Snapshot: conv.Snapshot()})
}

type switchTaskBody struct {
	TaskID string `json:"taskId" binding:"required"`
}

// SwitchTask handles PUT /v1/sessions/:id/task.
func (h *SessionHandler) SwitchTask(c *gin.Context) {
	conv, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		responses.WriteError(c, err)
		return
	}
	var body switchTaskBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, responses.ErrorResponse{Error: "taskId is required"})
		return
	}
	t, err := h.registry.Get(body.TaskID)
	if err != nil {
		responses.WriteError(c, err)
		return
	}
	conv.SwitchTask(chat.TaskView{
		ID:      t.ID,
		Name:    t.Name,
		Model:   t.Model,
		Servers: t.ToolDescriptors(),
	})
	c.JSON(http.StatusOK, sessionResponse{ID: c.Param("id"), Snapshot: conv.Snapshot()})
}

// Delete handles DELETE /v1/sessions/:id.
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessions.Remove(c.Param("id")); err != nil {
		responses.WriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
