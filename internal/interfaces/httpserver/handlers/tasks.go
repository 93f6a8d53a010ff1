package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"mcpchat/internal/domain/chat"
	"mcpchat/internal/domain/llm"
	"mcpchat/internal/domain/task"
	"mcpchat/internal/interfaces/httpserver/responses"
)

// TaskHandler exposes the task/server registry.
type TaskHandler struct {
	log      zerolog.Logger
	registry *task.Registry
	sessions *chat.Manager
}

// NewTaskHandler builds the handler. Session fan-out keeps every live
// conversation bound to the chat-active task.
func NewTaskHandler(log zerolog.Logger, registry *task.Registry, sessions *chat.Manager) *TaskHandler {
	return &TaskHandler{
		log:      log.With().Str("handler", "tasks").Logger(),
		registry: registry,
		sessions: sessions,
	}
}

type taskListResponse struct {
	Tasks              []task.Task `json:"tasks"`
	ChatActiveTaskID   string      `json:"chatActiveTaskId,omitempty"`
	ConfigActiveTaskID string      `json:"configActiveTaskId,omitempty"`
}

// List handles GET /v1/tasks.
func (h *TaskHandler) List(c *gin.Context) {
	resp := taskListResponse{Tasks: h.registry.Tasks()}
	if t, ok := h.registry.ChatActive(); ok {
		resp.ChatActiveTaskID = t.ID
	}
	if t, ok := h.registry.ConfigActive(); ok {
		resp.ConfigActiveTaskID = t.ID
	}
	c.JSON(http.StatusOK, resp)
}

type createTaskBody struct {
	Name          string `json:"name" binding:"required"`
	Model         string `json:"model" binding:"required"`
	ReasoningType string `json:"reasoningType"`
}

// Create handles POST /v1/tasks.
func (h *TaskHandler) Create(c *gin.Context) {
	var body createTaskBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, responses.ErrorResponse{Error: "name and model are required"})
		return
	}
	created, err := h.registry.Add(task.Task{
		Name:          body.Name,
		Model:         body.Model,
		ReasoningType: body.ReasoningType,
	})
	if err != nil {
		responses.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// Get handles GET /v1/tasks/:id.
func (h *TaskHandler) Get(c *gin.Context) {
	t, err := h.registry.Get(c.Param("id"))
	if err != nil {
		responses.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

type updateTaskBody struct {
	Name          string `json:"name"`
	Model         string `json:"model"`
	ReasoningType string `json:"reasoningType"`
}

// Update handles PATCH /v1/tasks/:id.
func (h *TaskHandler) Update(c *gin.Context) {
	var body updateTaskBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, responses.ErrorResponse{Error: "invalid request body"})
		return
	}
	updated, err := h.registry.Update(c.Param("id"), body.Name, body.Model, body.ReasoningType)
	if err != nil {
		responses.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Delete handles DELETE /v1/tasks/:id.
func (h *TaskHandler) Delete(c *gin.Context) {
	if err := h.registry.Remove(c.Param("id")); err != nil {
		responses.WriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type addServerBody struct {
	Label            string   `json:"label" binding:"required"`
	URL              string   `json:"url" binding:"required,url"`
	AllowedTools     []string `json:"allowedTools"`
	RequireApproval  string   `json:"requireApproval"`
	SuggestedPrompts []string `json:"suggestedPrompts"`
}

// AddServer handles POST /v1/tasks/:id/servers.
func (h *TaskHandler) AddServer(c *gin.Context) {
	var body addServerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, responses.ErrorResponse{Error: "label and url are required"})
		return
	}
	updated, err := h.registry.AddServer(c.Param("id"), task.MCPServerConfig{
		Label:            body.Label,
		URL:              body.URL,
		AllowedTools:     body.AllowedTools,
		RequireApproval:  llm.ApprovalPolicy(body.RequireApproval),
		SuggestedPrompts: body.SuggestedPrompts,
	})
	if err != nil {
		responses.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// RemoveServer handles DELETE /v1/tasks/:id/servers/:label.
func (h *TaskHandler) RemoveServer(c *gin.Context) {
	updated, err := h.registry.RemoveServer(c.Param("id"), c.Param("label"))
	if err != nil {
		responses.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

type setActiveBody struct {
	TaskID string `json:"taskId" binding:"required"`
}

// SetChatActive handles PUT /v1/tasks/active/chat. Every live session is
// rebound to the new task; cross-task conversation state never survives.
func (h *TaskHandler) SetChatActive(c *gin.Context) {
	var body setActiveBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, responses.ErrorResponse{Error: "taskId is required"})
		return
	}
	t, err := h.registry.SetChatActive(body.TaskID)
	if err != nil {
		responses.WriteError(c, err)
		return
	}
	h.sessions.OnActiveTaskChanged(chat.TaskView{
		ID:      t.ID,
		Name:    t.Name,
		Model:   t.Model,
		Servers: t.ToolDescriptors(),
	})
	c.JSON(http.StatusOK, t)
}

// SetConfigActive handles PUT /v1/tasks/active/config.
func (h *TaskHandler) SetConfigActive(c *gin.Context) {
	var body setActiveBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, responses.ErrorResponse{Error: "taskId is required"})
		return
	}
	t, err := h.registry.SetConfigActive(body.TaskID)
	if err != nil {
		responses.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}
