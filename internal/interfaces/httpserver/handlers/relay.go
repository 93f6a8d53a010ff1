// Package handlers holds the gin handlers for the relay, registry, session
// and catalog endpoints.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"mcpchat/internal/domain/llm"
	"mcpchat/internal/infrastructure/metrics"
	"mcpchat/internal/infrastructure/sse"
	"mcpchat/internal/interfaces/httpserver/responses"
)

// RelayHandler republishes upstream provider streams as SSE without
// buffering whole responses.
type RelayHandler struct {
	log       zerolog.Logger
	providers map[string]llm.Provider
}

// NewRelayHandler builds the relay handler over the configured providers.
func NewRelayHandler(log zerolog.Logger, providers ...llm.Provider) *RelayHandler {
	byName := make(map[string]llm.Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &RelayHandler{log: log.With().Str("handler", "relay").Logger(), providers: byName}
}

// relayBody reads the wire request. Stream defaults to true when omitted.
type relayBody struct {
	llm.Request
	StreamFlag *bool `json:"stream"`
}

// Relay handles POST /v1/relay/:provider in both streaming and
// non-streaming modes.
func (h *RelayHandler) Relay(c *gin.Context) {
	providerName := c.Param("provider")
	provider, ok := h.providers[providerName]
	if !ok {
		c.JSON(http.StatusNotFound, responses.ErrorResponse{Error: "unknown provider: " + providerName})
		return
	}

	var body relayBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, responses.ErrorResponse{Error: "invalid request body"})
		return
	}
	req := body.Request
	streaming := body.StreamFlag == nil || *body.StreamFlag

	if !streaming {
		raw, err := provider.Complete(c.Request.Context(), req)
		if err != nil {
			metrics.RelayRequestsTotal.WithLabelValues(providerName, "complete", "error").Inc()
			responses.WriteError(c, err)
			return
		}
		metrics.RelayRequestsTotal.WithLabelValues(providerName, "complete", "ok").Inc()
		c.Data(http.StatusOK, "application/json", raw)
		return
	}

	req.Stream = true
	stream, err := provider.Stream(c.Request.Context(), req)
	if err != nil {
		metrics.RelayRequestsTotal.WithLabelValues(providerName, "stream", "error").Inc()
		responses.WriteError(c, err)
		return
	}

	encoder, ok := sse.NewResponseEncoder(c.Writer)
	if !ok {
		stream.Close()
		c.JSON(http.StatusInternalServerError, responses.ErrorResponse{Error: "streaming unsupported by connection"})
		return
	}
	outcome := "ok"
	err = llm.DrainStream(c.Request.Context(), stream, func(ev *llm.Event) error {
		return encoder.WriteEvent(ev)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		// The stream must still close cleanly; surface the failure as a
		// terminal error frame.
		outcome = "error"
		h.log.Error().Err(err).Str("provider", providerName).Msg("relay stream failed")
		_ = encoder.WriteEvent(llm.Event{Type: llm.EventError, Err: err.Error()})
	}
	_ = encoder.WriteDone()
	metrics.RelayRequestsTotal.WithLabelValues(providerName, "stream", outcome).Inc()
}
