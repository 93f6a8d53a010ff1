package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"mcpchat/internal/domain/llm"
	"mcpchat/internal/infrastructure/sse"
)

// geminiThinkingBudget caps provider-side reasoning tokens per turn.
const geminiThinkingBudget = 1600

// Gemini adapts the generateContent API. It has no continuation-id
// support: callers resend prior messages and continuation requests are
// rejected at the boundary.
type Gemini struct {
	log     zerolog.Logger
	apiKey  string
	baseURL string
	http    *http.Client
	rest    *resty.Client
}

// NewGemini builds the adapter.
func NewGemini(log zerolog.Logger, apiKey, baseURL string, streamTimeout, callTimeout time.Duration) *Gemini {
	return &Gemini{
		log:     log.With().Str("provider", "gemini").Logger(),
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: streamTimeout},
		rest: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(callTimeout).
			SetHeader("Content-Type", "application/json").
			SetHeader("x-goog-api-key", apiKey),
	}
}

// Name implements llm.Provider.
func (p *Gemini) Name() string { return "gemini" }

type geminiPart struct {
	Text    string `json:"text,omitempty"`
	Thought bool   `json:"thought,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiThinkingConfig struct {
	IncludeThoughts bool `json:"includeThoughts"`
	ThinkingBudget  int  `json:"thinkingBudget,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature     *float64              `json:"temperature,omitempty"`
	TopP            *float64              `json:"topP,omitempty"`
	MaxOutputTokens *int                  `json:"maxOutputTokens,omitempty"`
	CandidateCount  int                   `json:"candidateCount,omitempty"`
	ThinkingConfig  *geminiThinkingConfig `json:"thinkingConfig,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiChunk struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type geminiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func geminiUpstreamError(status int, body []byte) error {
	var parsed geminiErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return &llm.UpstreamError{StatusCode: status, Message: parsed.Error.Message}
	}
	return &llm.UpstreamError{StatusCode: http.StatusInternalServerError, Message: "upstream provider request failed"}
}

// buildBody maps the normalized request onto the generateContent shape:
// assistant turns become "model" content, system text is folded into a
// user turn, and the suggestion prompt is injected when no system text is
// present.
func buildBody(req llm.Request) (*geminiRequest, error) {
	contents := make([]geminiContent, 0, len(req.Input)+1)
	sawSystem := false
	for _, item := range req.Input {
		if item.IsApprovalResponse() {
			return nil, fmt.Errorf("%w: approval continuation", llm.ErrContinuationSupport)
		}
		text := joinText(item.Content)
		if text == "" {
			continue
		}
		role := "user"
		if item.Role == "assistant" {
			role = "model"
		}
		if item.Role == "system" {
			sawSystem = true
		}
		contents = append(contents, geminiContent{Role: role, Parts: []geminiPart{{Text: text}}})
	}
	if !sawSystem {
		contents = append([]geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: searchSuggestionsPrompt}},
		}}, contents...)
	}

	return &geminiRequest{
		Contents: contents,
		GenerationConfig: geminiGenerationConfig{
			Temperature:     req.Temperature,
			TopP:            req.TopP,
			MaxOutputTokens: req.MaxOutputTokens,
			CandidateCount:  1,
			ThinkingConfig:  &geminiThinkingConfig{IncludeThoughts: true, ThinkingBudget: geminiThinkingBudget},
		},
	}, nil
}

func joinText(parts []llm.ContentPart) string {
	var b strings.Builder
	for _, part := range parts {
		b.WriteString(part.Text)
	}
	return b.String()
}

// Stream opens a streamed generateContent call. Continuation ids are not
// supported by this upstream and are rejected before any call is made.
func (p *Gemini) Stream(ctx context.Context, req llm.Request) (llm.EventStream, error) {
	if req.PreviousResponseID != "" {
		return nil, llm.ErrContinuationSupport
	}
	if err := llm.ValidateRequest(req); err != nil {
		return nil, err
	}

	body, err := buildBody(req)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal generateContent request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse", p.baseURL, req.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build generateContent request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call generateContent api: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		resp.Body.Close()
		return nil, geminiUpstreamError(resp.StatusCode, raw)
	}

	return &geminiStream{
		log:   p.log,
		body:  resp.Body,
		dec:   sse.NewDecoder(resp.Body),
		model: req.Model,
	}, nil
}

// Complete issues a non-streaming generateContent call and returns the raw
// response document.
func (p *Gemini) Complete(ctx context.Context, req llm.Request) (json.RawMessage, error) {
	if req.PreviousResponseID != "" {
		return nil, llm.ErrContinuationSupport
	}
	if err := llm.ValidateRequest(req); err != nil {
		return nil, err
	}
	body, err := buildBody(req)
	if err != nil {
		return nil, err
	}

	resp, err := p.rest.R().
		SetContext(ctx).
		SetBody(body).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", req.Model))
	if err != nil {
		return nil, fmt.Errorf("call generateContent api: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, geminiUpstreamError(resp.StatusCode(), resp.Body())
	}
	return json.RawMessage(resp.Body()), nil
}

type geminiStream struct {
	log   zerolog.Logger
	body  io.ReadCloser
	dec   *sse.Decoder
	model string

	fullText   string
	inThought  bool
	pendingEvs []*llm.Event
	closed     bool
}

// Recv translates generateContent chunks. Thought-flagged parts become
// thinking deltas; the transition back to answer text closes the thinking
// block. End of stream synthesizes the suggestion, cleaned-text and
// selection events before EOF.
func (s *geminiStream) Recv() (*llm.Event, error) {
	for {
		if len(s.pendingEvs) > 0 {
			ev := s.pendingEvs[0]
			s.pendingEvs = s.pendingEvs[1:]
			return ev, nil
		}
		if s.closed {
			return nil, io.EOF
		}

		payload, err := s.dec.Next()
		if err == sse.ErrDone || err == io.EOF {
			s.closed = true
			s.queueTrailing()
			continue
		}
		if err != nil {
			return nil, err
		}

		var chunk geminiChunk
		if err := json.Unmarshal(payload, &chunk); err != nil {
			s.log.Warn().Err(err).Msg("dropping malformed stream frame")
			continue
		}
		if len(chunk.Candidates) == 0 {
			continue
		}
		for _, part := range chunk.Candidates[0].Content.Parts {
			if part.Text == "" {
				continue
			}
			if part.Thought {
				s.inThought = true
				s.pendingEvs = append(s.pendingEvs, &llm.Event{Type: llm.EventThinkingDelta, Thinking: part.Text})
				continue
			}
			if s.inThought {
				s.inThought = false
				s.pendingEvs = append(s.pendingEvs, &llm.Event{Type: llm.EventThinkingDone})
			}
			s.fullText += part.Text
			s.pendingEvs = append(s.pendingEvs, &llm.Event{Type: llm.EventTextDelta, Text: part.Text})
		}
	}
}

func (s *geminiStream) queueTrailing() {
	if suggestions, ok := extractSearchSuggestions(s.fullText); ok {
		s.pendingEvs = append(s.pendingEvs, &llm.Event{
			Type:              llm.EventSearchSuggestions,
			SearchSuggestions: suggestions.SearchTerms,
			Confidence:        suggestions.Confidence,
			Reasoning:         suggestions.Reasoning,
		})
	}
	if cleaned := stripSearchTerms(s.fullText); cleaned != s.fullText {
		s.pendingEvs = append(s.pendingEvs, &llm.Event{Type: llm.EventCleanedText, Text: cleaned})
	}
	s.pendingEvs = append(s.pendingEvs,
		&llm.Event{Type: llm.EventSelectedModel, Model: s.model},
		&llm.Event{Type: llm.EventSelectedProvider, Provider: "gemini"},
		&llm.Event{Type: llm.EventReasoningType, Reasoning: "Thinking"},
	)
}

func (s *geminiStream) Close() error {
	return s.body.Close()
}
