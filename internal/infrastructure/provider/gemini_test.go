package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mcpchat/internal/domain/llm"
)

func geminiFrames(t *testing.T, frames []string, capture *geminiRequest) http.HandlerFunc {
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
	}
}

func TestGeminiStream_ThoughtAndTextParts(t *testing.T) {
	frames := []string{
		`{"candidates":[{"content":{"parts":[{"text":"pondering ","thought":true}]}}]}`,
		`{"candidates":[{"content":{"parts":[{"text":"the request","thought":true}]}}]}`,
		`{"candidates":[{"content":{"parts":[{"text":"Answer text"}]}}]}`,
	}
	var captured geminiRequest
	srv := httptest.NewServer(geminiFrames(t, frames, &captured))
	defer srv.Close()

	p := NewGemini(zerolog.Nop(), "test-key", srv.URL, time.Minute, time.Minute)
	stream, err := p.Stream(context.Background(), llm.Request{
		Model: "gemini-2.5-flash-preview-05-20",
		Input: []llm.InputItem{llm.NewUserTextItem("hello")},
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	events := collect(t, stream)

	wantTypes := []llm.EventType{
		llm.EventThinkingDelta,
		llm.EventThinkingDelta,
		llm.EventThinkingDone,
		llm.EventTextDelta,
		llm.EventSelectedModel,
		llm.EventSelectedProvider,
		llm.EventReasoningType,
	}
	if len(events) != len(wantTypes) {
		t.Fatalf("got %d events: %+v", len(events), events)
	}
	for i, want := range wantTypes {
		if events[i].Type != want {
			t.Errorf("event[%d].Type = %q, want %q", i, events[i].Type, want)
		}
	}
	if events[4].Model != "gemini-2.5-flash-preview-05-20" || events[5].Provider != "gemini" {
		t.Errorf("selection events = %+v %+v", events[4], events[5])
	}

	// The suggestion prompt is injected as the leading user turn and
	// thoughts are requested.
	if len(captured.Contents) != 2 || !strings.Contains(captured.Contents[0].Parts[0].Text, "SEARCH_TERMS_JSON") {
		t.Errorf("prompt not injected: %+v", captured.Contents)
	}
	if captured.GenerationConfig.ThinkingConfig == nil || !captured.GenerationConfig.ThinkingConfig.IncludeThoughts {
		t.Error("thinking config not requested")
	}
}

func TestGeminiStream_SynthesizesSuggestionAndCleanedText(t *testing.T) {
	frames := []string{
		`{"candidates":[{"content":{"parts":[{"text":"Answer.\n\n"}]}}]}`,
		"{\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"```SEARCH_TERMS_JSON\\n{\\\"searchTerms\\\":[\\\"mugs\\\"],\\\"confidence\\\":0.7,\\\"reasoning\\\":\\\"next steps\\\"}\\n```\"}]}}]}",
	}
	srv := httptest.NewServer(geminiFrames(t, frames, nil))
	defer srv.Close()

	p := NewGemini(zerolog.Nop(), "test-key", srv.URL, time.Minute, time.Minute)
	stream, err := p.Stream(context.Background(), llm.Request{
		Model: "gemini-2.0-flash",
		Input: []llm.InputItem{llm.NewUserTextItem("hello")},
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	events := collect(t, stream)

	var suggestion, cleaned *llm.Event
	for _, ev := range events {
		switch ev.Type {
		case llm.EventSearchSuggestions:
			suggestion = ev
		case llm.EventCleanedText:
			cleaned = ev
		}
	}
	if suggestion == nil || len(suggestion.SearchSuggestions) != 1 || suggestion.Confidence != 0.7 {
		t.Errorf("suggestion event = %+v", suggestion)
	}
	if cleaned == nil || cleaned.Text != "Answer." {
		t.Errorf("cleaned event = %+v", cleaned)
	}
}

func TestGeminiStream_RejectsContinuationID(t *testing.T) {
	p := NewGemini(zerolog.Nop(), "test-key", "http://unused", time.Minute, time.Minute)
	_, err := p.Stream(context.Background(), llm.Request{
		Model:              "gemini-2.0-flash",
		PreviousResponseID: "resp_1",
		Input:              []llm.InputItem{llm.NewUserTextItem("hello")},
	})
	if !errors.Is(err, llm.ErrContinuationSupport) {
		t.Fatalf("expected ErrContinuationSupport, got %v", err)
	}
}

func TestGeminiStream_UpstreamErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"code":429,"message":"Resource has been exhausted"}}`)
	}))
	defer srv.Close()

	p := NewGemini(zerolog.Nop(), "test-key", srv.URL, time.Minute, time.Minute)
	_, err := p.Stream(context.Background(), llm.Request{
		Model: "gemini-2.0-flash",
		Input: []llm.InputItem{llm.NewUserTextItem("hello")},
	})

	var upstream *llm.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d", upstream.StatusCode)
	}
}

func TestGeminiBuildBody_RoleMapping(t *testing.T) {
	body, err := buildBody(llm.Request{
		Model: "gemini-2.0-flash",
		Input: []llm.InputItem{
			llm.NewSystemTextItem("you are helpful"),
			llm.NewUserTextItem("hi"),
			{Role: "assistant", Content: []llm.ContentPart{{Type: "output_text", Text: "hello back"}}},
		},
	})
	if err != nil {
		t.Fatalf("buildBody: %v", err)
	}
	roles := make([]string, 0, len(body.Contents))
	for _, c := range body.Contents {
		roles = append(roles, c.Role)
	}
	// System text folds into a user turn; assistant becomes model; no
	// extra prompt is injected when system text is present.
	want := []string{"user", "user", "model"}
	if len(roles) != len(want) {
		t.Fatalf("contents roles = %v", roles)
	}
	for i := range want {
		if roles[i] != want[i] {
			t.Errorf("roles = %v, want %v", roles, want)
		}
	}
}

func TestGeminiBuildBody_RejectsApprovalItems(t *testing.T) {
	_, err := buildBody(llm.Request{
		Model: "gemini-2.0-flash",
		Input: []llm.InputItem{llm.NewApprovalResponseItem("apr_1", true)},
	})
	if !errors.Is(err, llm.ErrContinuationSupport) {
		t.Fatalf("expected ErrContinuationSupport, got %v", err)
	}
}
