package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"mcpchat/internal/domain/task"
	"mcpchat/internal/infrastructure/metrics"
	"mcpchat/internal/interfaces/httpserver/responses"
)

// MCPHandler exposes the server validation endpoint.
type MCPHandler struct {
	log       zerolog.Logger
	validator *task.Validator
}

// NewMCPHandler builds the handler.
func NewMCPHandler(log zerolog.Logger, validator *task.Validator) *MCPHandler {
	return &MCPHandler{log: log.With().Str("handler", "mcp").Logger(), validator: validator}
}

type validateServerBody struct {
	ServerURL   string `json:"server_url" binding:"required,url"`
	ServerLabel string `json:"server_label" binding:"required"`
}

// ValidateServer handles POST /v1/mcp/tools.
func (h *MCPHandler) ValidateServer(c *gin.Context) {
	var body validateServerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, responses.ErrorResponse{Error: "server_url and server_label are required"})
		return
	}

	result, err := h.validator.ValidateServer(c.Request.Context(), body.ServerURL, body.ServerLabel)
	if err != nil {
		metrics.ValidationsTotal.WithLabelValues("failure").Inc()
		responses.WriteError(c, err)
		return
	}
	metrics.ValidationsTotal.WithLabelValues("success").Inc()
	c.JSON(http.StatusOK, result)
}
