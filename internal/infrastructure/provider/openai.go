// Package provider holds the upstream LLM adapters. Each adapter absorbs
// its provider's wire schema and emits the normalized event variant; schema
// drift never reaches the conversation layer.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"mcpchat/internal/domain/llm"
	"mcpchat/internal/infrastructure/sse"
)

// ReasoningLookup resolves a model's reasoning type from the catalog.
type ReasoningLookup interface {
	ReasoningType(model string) string
}

// OpenAI adapts the OpenAI Responses API. Streaming uses a raw HTTP client
// plus the frame decoder; non-streaming auxiliary calls go through resty.
type OpenAI struct {
	log       zerolog.Logger
	apiKey    string
	baseURL   string
	http      *http.Client
	rest      *resty.Client
	reasoning ReasoningLookup
}

// NewOpenAI builds the adapter. streamTimeout bounds a whole streamed turn;
// callTimeout bounds non-streaming calls.
func NewOpenAI(log zerolog.Logger, apiKey, baseURL string, streamTimeout, callTimeout time.Duration, reasoning ReasoningLookup) *OpenAI {
	return &OpenAI{
		log:     log.With().Str("provider", "openai").Logger(),
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: streamTimeout},
		rest: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(callTimeout).
			SetHeader("Content-Type", "application/json").
			SetAuthToken(apiKey),
		reasoning: reasoning,
	}
}

// Name implements llm.Provider.
func (p *OpenAI) Name() string { return "openai" }

// openaiErrorBody is the recognized upstream error shape.
type openaiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

func upstreamError(status int, body []byte) error {
	var parsed openaiErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return &llm.UpstreamError{StatusCode: status, Message: parsed.Error.Message}
	}
	return &llm.UpstreamError{StatusCode: http.StatusInternalServerError, Message: "upstream provider request failed"}
}

// Stream opens a streamed Responses call and returns a translating event
// stream. Requests without tools run in research mode: the suggestion
// prompt is injected, thinking models get reasoning parameters, and the
// stream closes with synthesized suggestion/cleaned-text events.
func (p *OpenAI) Stream(ctx context.Context, req llm.Request) (llm.EventStream, error) {
	if err := llm.ValidateRequest(req); err != nil {
		return nil, err
	}
	req.Stream = true

	research := len(req.Tools) == 0
	if research {
		req.Input = append([]llm.InputItem{llm.NewSystemTextItem(searchSuggestionsPrompt)}, req.Input...)
		if p.reasoning != nil && p.reasoning.ReasoningType(req.Model) == "Thinking" && req.Reasoning == nil {
			req.Reasoning = &llm.ReasoningParams{Effort: "medium", Summary: "auto"}
		}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal responses request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/responses", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build responses request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call responses api: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		resp.Body.Close()
		return nil, upstreamError(resp.StatusCode, body)
	}

	return &openaiStream{
		log:      p.log,
		body:     resp.Body,
		dec:      sse.NewDecoder(resp.Body),
		model:    req.Model,
		research: research,
		reasoningType: func() string {
			if p.reasoning == nil {
				return ""
			}
			return p.reasoning.ReasoningType(req.Model)
		}(),
	}, nil
}

// Complete issues a non-streaming Responses call and returns the raw
// response document. Used for auxiliary calls only.
func (p *OpenAI) Complete(ctx context.Context, req llm.Request) (json.RawMessage, error) {
	if err := llm.ValidateRequest(req); err != nil {
		return nil, err
	}
	req.Stream = false

	resp, err := p.rest.R().
		SetContext(ctx).
		SetBody(req).
		Post("/responses")
	if err != nil {
		return nil, fmt.Errorf("call responses api: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, upstreamError(resp.StatusCode(), resp.Body())
	}
	return json.RawMessage(resp.Body()), nil
}

// openaiRawEvent is the union of the upstream stream event fields we read.
type openaiRawEvent struct {
	Type     string `json:"type"`
	Response struct {
		ID string `json:"id"`
	} `json:"response"`
	Delta        string `json:"delta"`
	Text         string `json:"text"`
	SummaryIndex int    `json:"summary_index"`
	Item         struct {
		Type        string `json:"type"`
		ID          string `json:"id"`
		Name        string `json:"name"`
		Arguments   string `json:"arguments"`
		ServerLabel string `json:"server_label"`
		Tools       []struct {
			Name string `json:"name"`
		} `json:"tools"`
	} `json:"item"`
	Message string `json:"message"`
}

type openaiStream struct {
	log           zerolog.Logger
	body          io.ReadCloser
	dec           *sse.Decoder
	model         string
	research      bool
	reasoningType string

	fullText string
	trailing []*llm.Event
	closed   bool
}

// Recv translates the next upstream frame into a normalized event.
// Malformed frames are logged and skipped; unknown event types are ignored.
func (s *openaiStream) Recv() (*llm.Event, error) {
	for {
		if len(s.trailing) > 0 {
			ev := s.trailing[0]
			s.trailing = s.trailing[1:]
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

		var raw openaiRawEvent
		if err := json.Unmarshal(payload, &raw); err != nil {
			s.log.Warn().Err(err).Msg("dropping malformed stream frame")
			continue
		}

		switch raw.Type {
		case "response.created":
			return &llm.Event{Type: llm.EventResponseCreated, ResponseID: raw.Response.ID}, nil

		case "response.output_text.delta":
			if raw.Delta == "" {
				continue
			}
			s.fullText += raw.Delta
			return &llm.Event{Type: llm.EventTextDelta, Text: raw.Delta}, nil

		case "response.output_text.done":
			if raw.Text == "" {
				continue
			}
			s.fullText = raw.Text
			return &llm.Event{Type: llm.EventTextDone, Text: raw.Text}, nil

		case "response.reasoning_summary_text.delta":
			return &llm.Event{Type: llm.EventThinkingDelta, Thinking: raw.Delta, SummaryIndex: raw.SummaryIndex}, nil

		case "response.reasoning_summary_text.done":
			return &llm.Event{Type: llm.EventThinkingDone, SummaryIndex: raw.SummaryIndex}, nil

		case "response.output_item.done":
			switch raw.Item.Type {
			case "mcp_approval_request":
				return &llm.Event{Type: llm.EventApprovalRequest, Approval: &llm.ApprovalRequest{
					ID:            raw.Item.ID,
					ServerLabel:   raw.Item.ServerLabel,
					ToolName:      raw.Item.Name,
					ToolArguments: raw.Item.Arguments,
				}}, nil
			case "mcp_list_tools":
				names := make([]string, 0, len(raw.Item.Tools))
				for _, tool := range raw.Item.Tools {
					names = append(names, tool.Name)
				}
				return &llm.Event{Type: llm.EventToolList, Tools: &llm.ToolListing{
					ServerLabel: raw.Item.ServerLabel,
					Tools:       names,
				}}, nil
			}
			continue

		case "error":
			msg := raw.Message
			if msg == "" {
				msg = "unknown upstream stream error"
			}
			return &llm.Event{Type: llm.EventError, Err: msg}, nil

		default:
			continue
		}
	}
}

// queueTrailing synthesizes the research-mode post-processing events once
// the upstream stream has closed.
func (s *openaiStream) queueTrailing() {
	if !s.research {
		return
	}
	if suggestions, ok := extractSearchSuggestions(s.fullText); ok {
		s.trailing = append(s.trailing, &llm.Event{
			Type:              llm.EventSearchSuggestions,
			SearchSuggestions: suggestions.SearchTerms,
			Confidence:        suggestions.Confidence,
			Reasoning:         suggestions.Reasoning,
		})
	}
	if cleaned := stripSearchTerms(s.fullText); cleaned != s.fullText {
		s.trailing = append(s.trailing, &llm.Event{Type: llm.EventCleanedText, Text: cleaned})
	}
	s.trailing = append(s.trailing,
		&llm.Event{Type: llm.EventSelectedModel, Model: s.model},
		&llm.Event{Type: llm.EventSelectedProvider, Provider: "openai"},
	)
	if s.reasoningType != "" {
		s.trailing = append(s.trailing, &llm.Event{Type: llm.EventReasoningType, Reasoning: s.reasoningType})
	}
}

func (s *openaiStream) Close() error {
	return s.body.Close()
}
