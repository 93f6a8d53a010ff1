// Package responses maps domain errors onto the `{error: string}` JSON
// contract shared by every non-streaming endpoint.
package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mcpchat/internal/domain/chat"
	"mcpchat/internal/domain/llm"
	"mcpchat/internal/domain/task"
)

// ErrorResponse is the wire shape of every error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteError renders err with the status its taxonomy calls for: 400 for
// boundary validation, 404 for unknown ids, 409 for busy turns, the
// upstream's own status when recognized, 500 otherwise.
func WriteError(c *gin.Context, err error) {
	c.JSON(StatusFor(err), ErrorResponse{Error: messageFor(err)})
}

// StatusFor resolves the HTTP status for a domain error.
func StatusFor(err error) int {
	var upstream *llm.UpstreamError
	switch {
	case errors.As(err, &upstream):
		return upstream.StatusCode
	case errors.Is(err, task.ErrTaskNotFound),
		errors.Is(err, task.ErrServerNotFound),
		errors.Is(err, chat.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, chat.ErrTurnInFlight):
		return http.StatusConflict
	case errors.Is(err, llm.ErrMissingModel),
		errors.Is(err, llm.ErrMissingInput),
		errors.Is(err, llm.ErrEmptyContinuation),
		errors.Is(err, llm.ErrInvalidTool),
		errors.Is(err, llm.ErrContinuationSupport),
		errors.Is(err, task.ErrInvalidServer),
		errors.Is(err, task.ErrMissingName),
		errors.Is(err, task.ErrMissingModel),
		errors.Is(err, task.ErrDuplicateLabel),
		errors.Is(err, task.ErrNoToolListing),
		errors.Is(err, task.ErrLabelMismatch),
		errors.Is(err, chat.ErrNoActiveTask),
		errors.Is(err, chat.ErrNoServers),
		errors.Is(err, chat.ErrNoPendingApproval),
		errors.Is(err, chat.ErrMissingContinuation),
		errors.Is(err, chat.ErrEmptyMessage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(err error) string {
	if StatusFor(err) == http.StatusInternalServerError {
		var upstream *llm.UpstreamError
		if !errors.As(err, &upstream) {
			return "Internal server error"
		}
	}
	return err.Error()
}
