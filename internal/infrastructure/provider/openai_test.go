package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mcpchat/internal/domain/llm"
)

type fixedReasoning map[string]string

func (f fixedReasoning) ReasoningType(model string) string { return f[model] }

func sseHandler(t *testing.T, frames []string, capture *llm.Request) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			if err := json.NewDecoder(r.Body).Decode(capture); err != nil {
				t.Errorf("decode upstream request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, frame := range frames {
			_, _ = io.WriteString(w, "data: "+frame+"\n\n")
		}
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}
}

func collect(t *testing.T, stream llm.EventStream) []*llm.Event {
	t.Helper()
	var events []*llm.Event
	err := llm.DrainStream(context.Background(), stream, func(ev *llm.Event) error {
		events = append(events, ev)
		return nil
	})
	if err != nil {
		t.Fatalf("drain stream: %v", err)
	}
	return events
}

func toolRequest() llm.Request {
	return llm.Request{
		Model: "gpt-4.1-mini",
		Input: []llm.InputItem{llm.NewUserTextItem("find mugs")},
		Tools: []llm.ToolDescriptor{{
			Type:        "mcp",
			ServerLabel: "shopify",
			ServerURL:   "https://store.example.com/api/mcp",
		}},
	}
}

func TestOpenAIStream_TranslatesEvents(t *testing.T) {
	frames := []string{
		`{"type":"response.created","response":{"id":"resp_1"}}`,
		`{"type":"response.output_text.delta","delta":"Hel"}`,
		`{"type":"response.output_text.delta","delta":"lo"}`,
		`{"type":"response.reasoning_summary_text.delta","delta":"think","summary_index":0}`,
		`{"type":"response.reasoning_summary_text.done","summary_index":0}`,
		`{"type":"response.output_item.done","item":{"type":"mcp_approval_request","id":"apr_1","name":"search_products","arguments":"{\"q\":\"mugs\"}","server_label":"shopify"}}`,
		`{"type":"response.output_item.done","item":{"type":"mcp_list_tools","server_label":"shopify","tools":[{"name":"search_products"}]}}`,
		`{"type":"response.some_future_event"}`,
		`not even json`,
	}
	srv := httptest.NewServer(sseHandler(t, frames, nil))
	defer srv.Close()

	p := NewOpenAI(zerolog.Nop(), "test-key", srv.URL, time.Minute, time.Minute, nil)
	stream, err := p.Stream(context.Background(), toolRequest())
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	events := collect(t, stream)

	wantTypes := []llm.EventType{
		llm.EventResponseCreated,
		llm.EventTextDelta,
		llm.EventTextDelta,
		llm.EventThinkingDelta,
		llm.EventThinkingDone,
		llm.EventApprovalRequest,
		llm.EventToolList,
	}
	if len(events) != len(wantTypes) {
		t.Fatalf("got %d events, want %d: %+v", len(events), len(wantTypes), events)
	}
	for i, want := range wantTypes {
		if events[i].Type != want {
			t.Errorf("event[%d].Type = %q, want %q", i, events[i].Type, want)
		}
	}
	if events[0].ResponseID != "resp_1" {
		t.Errorf("response id = %q", events[0].ResponseID)
	}
	approval := events[5].Approval
	if approval == nil || approval.ID != "apr_1" || approval.ToolName != "search_products" || approval.ServerLabel != "shopify" {
		t.Errorf("approval = %+v", approval)
	}
	listing := events[6].Tools
	if listing == nil || listing.ServerLabel != "shopify" || len(listing.Tools) != 1 {
		t.Errorf("listing = %+v", listing)
	}
}

func TestOpenAIStream_ResearchModeSynthesizesTrailingEvents(t *testing.T) {
	frames := []string{
		`{"type":"response.output_text.delta","delta":"Answer.\n\n"}`,
		"{\"type\":\"response.output_text.delta\",\"delta\":\"```SEARCH_TERMS_JSON\\n{\\\"searchTerms\\\":[\\\"mugs\\\"],\\\"confidence\\\":0.9,\\\"reasoning\\\":\\\"follow-up\\\"}\\n```\"}",
	}
	var captured llm.Request
	srv := httptest.NewServer(sseHandler(t, frames, &captured))
	defer srv.Close()

	p := NewOpenAI(zerolog.Nop(), "test-key", srv.URL, time.Minute, time.Minute, fixedReasoning{"o4-mini": "Thinking"})
	stream, err := p.Stream(context.Background(), llm.Request{
		Model: "o4-mini",
		Input: []llm.InputItem{llm.NewUserTextItem("research mugs")},
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	events := collect(t, stream)

	// The suggestion prompt is injected ahead of the user input and
	// thinking models run with reasoning parameters.
	if len(captured.Input) != 2 || captured.Input[0].Role != "system" {
		t.Errorf("system prompt not injected: %+v", captured.Input)
	}
	if captured.Reasoning == nil || captured.Reasoning.Summary != "auto" {
		t.Errorf("reasoning params not set: %+v", captured.Reasoning)
	}

	var gotTypes []llm.EventType
	for _, ev := range events {
		gotTypes = append(gotTypes, ev.Type)
	}
	wantTail := []llm.EventType{
		llm.EventSearchSuggestions,
		llm.EventCleanedText,
		llm.EventSelectedModel,
		llm.EventSelectedProvider,
		llm.EventReasoningType,
	}
	if len(gotTypes) < len(wantTail) {
		t.Fatalf("too few events: %v", gotTypes)
	}
	tail := gotTypes[len(gotTypes)-len(wantTail):]
	for i, want := range wantTail {
		if tail[i] != want {
			t.Fatalf("trailing events = %v, want suffix %v", gotTypes, wantTail)
		}
	}
	for _, ev := range events {
		if ev.Type == llm.EventCleanedText && ev.Text != "Answer." {
			t.Errorf("cleaned text = %q", ev.Text)
		}
		if ev.Type == llm.EventSearchSuggestions && (len(ev.SearchSuggestions) != 1 || ev.SearchSuggestions[0] != "mugs") {
			t.Errorf("suggestions = %v", ev.SearchSuggestions)
		}
	}
}

func TestOpenAIStream_UpstreamErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"Incorrect API key provided"}}`)
	}))
	defer srv.Close()

	p := NewOpenAI(zerolog.Nop(), "bad-key", srv.URL, time.Minute, time.Minute, nil)
	_, err := p.Stream(context.Background(), toolRequest())

	var upstream *llm.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.StatusCode != http.StatusUnauthorized || upstream.Message != "Incorrect API key provided" {
		t.Errorf("upstream = %+v", upstream)
	}
}

func TestOpenAIStream_UnrecognizedErrorFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "<html>gateway broke</html>")
	}))
	defer srv.Close()

	p := NewOpenAI(zerolog.Nop(), "key", srv.URL, time.Minute, time.Minute, nil)
	_, err := p.Stream(context.Background(), toolRequest())

	var upstream *llm.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want generic 500", upstream.StatusCode)
	}
}

func TestOpenAI_ValidationRejectedBeforeUpstream(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))
	defer srv.Close()

	p := NewOpenAI(zerolog.Nop(), "key", srv.URL, time.Minute, time.Minute, nil)
	if _, err := p.Stream(context.Background(), llm.Request{Model: "gpt-4.1-mini"}); !errors.Is(err, llm.ErrMissingInput) {
		t.Fatalf("expected ErrMissingInput, got %v", err)
	}
	if called {
		t.Error("upstream was called despite validation failure")
	}
}

func TestOpenAIComplete_ReturnsRawDocument(t *testing.T) {
	doc := `{"id":"resp_9","output":[]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req llm.Request
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Stream {
			t.Error("Complete must send stream=false")
		}
		_, _ = io.WriteString(w, doc)
	}))
	defer srv.Close()

	p := NewOpenAI(zerolog.Nop(), "key", srv.URL, time.Minute, time.Minute, nil)
	raw, err := p.Complete(context.Background(), toolRequest())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if string(raw) != doc {
		t.Errorf("raw = %s", raw)
	}
}
