package sse_test

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mcpchat/internal/infrastructure/sse"
)

// chunkedReader delivers the underlying data in fixed-size reads so tests
// can split frames at arbitrary byte boundaries.
type chunkedReader struct {
	data []byte
	size int
	pos  int
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if c.pos >= len(c.data) {
		return 0, io.EOF
	}
	n := c.size
	if n > len(p) {
		n = len(p)
	}
	if c.pos+n > len(c.data) {
		n = len(c.data) - c.pos
	}
	copy(p, c.data[c.pos:c.pos+n])
	c.pos += n
	return n, nil
}

func drain(t *testing.T, d *sse.Decoder) []string {
	t.Helper()
	var frames []string
	for {
		payload, err := d.Next()
		if err == io.EOF || err == sse.ErrDone {
			return frames
		}
		if err != nil {
			t.Fatalf("Next() error: %v", err)
		}
		frames = append(frames, string(payload))
	}
}

func TestDecoder_BasicFrames(t *testing.T) {
	stream := "data: {\"type\":\"a\"}\n\ndata: {\"type\":\"b\"}\n\ndata: [DONE]\n\n"
	frames := drain(t, sse.NewDecoder(strings.NewReader(stream)))

	want := []string{`{"type":"a"}`, `{"type":"b"}`}
	if len(frames) != len(want) {
		t.Fatalf("got %d frames, want %d: %v", len(frames), len(want), frames)
	}
	for i := range want {
		if frames[i] != want[i] {
			t.Errorf("frame %d = %q, want %q", i, frames[i], want[i])
		}
	}
}

func TestDecoder_ChunkBoundaryIndependence(t *testing.T) {
	stream := "data: {\"type\":\"text-delta\",\"text\":\"hello world\"}\n\n" +
		": keep-alive\n\n" +
		"data: {\"type\":\"thinking-delta\",\"thinking\":\"hmm\"}\n\n" +
		"data: [DONE]\n\n"

	whole := drain(t, sse.NewDecoder(strings.NewReader(stream)))

	for size := 1; size <= len(stream); size++ {
		chunked := drain(t, sse.NewDecoder(&chunkedReader{data: []byte(stream), size: size}))
		if len(chunked) != len(whole) {
			t.Fatalf("chunk size %d: got %d frames, want %d", size, len(chunked), len(whole))
		}
		for i := range whole {
			if chunked[i] != whole[i] {
				t.Fatalf("chunk size %d: frame %d = %q, want %q", size, i, chunked[i], whole[i])
			}
		}
	}
}

func TestDecoder_SkipsCommentsAndUnknownFields(t *testing.T) {
	stream := ": ping\n\nevent: message\nid: 42\ndata: {\"type\":\"a\"}\n\ndata: [DONE]\n\n"
	frames := drain(t, sse.NewDecoder(strings.NewReader(stream)))
	if len(frames) != 1 || frames[0] != `{"type":"a"}` {
		t.Fatalf("unexpected frames: %v", frames)
	}
}

func TestDecoder_CRLFLines(t *testing.T) {
	stream := "data: {\"type\":\"a\"}\r\n\r\ndata: [DONE]\r\n\r\n"
	frames := drain(t, sse.NewDecoder(strings.NewReader(stream)))
	if len(frames) != 1 || frames[0] != `{"type":"a"}` {
		t.Fatalf("unexpected frames: %v", frames)
	}
}

func TestDecoder_DoneSentinel(t *testing.T) {
	d := sse.NewDecoder(strings.NewReader("data: [DONE]\n\n"))
	if _, err := d.Next(); err != sse.ErrDone {
		t.Fatalf("expected ErrDone, got %v", err)
	}
}

func TestDecoder_EOFWithoutDone(t *testing.T) {
	d := sse.NewDecoder(strings.NewReader("data: {\"type\":\"a\"}\n\n"))
	if _, err := d.Next(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := d.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestDecoder_MultiLineData(t *testing.T) {
	stream := "data: line1\ndata: line2\n\ndata: [DONE]\n\n"
	frames := drain(t, sse.NewDecoder(strings.NewReader(stream)))
	if len(frames) != 1 || frames[0] != "line1\nline2" {
		t.Fatalf("unexpected frames: %v", frames)
	}
}

// noFlushWriter is a ResponseWriter that cannot flush incrementally.
type noFlushWriter struct {
	header http.Header
}

func (w noFlushWriter) Header() http.Header       { return w.header }
func (noFlushWriter) Write(p []byte) (int, error) { return len(p), nil }
func (noFlushWriter) WriteHeader(int)             {}

func TestResponseEncoder_SetsStreamHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	enc, ok := sse.NewResponseEncoder(rec)
	if !ok {
		t.Fatal("expected recorder to support flushing")
	}
	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-cache" {
		t.Errorf("Cache-Control = %q", got)
	}

	if err := enc.WriteEvent(map[string]string{"type": "text-delta"}); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
	if err := enc.WriteDone(); err != nil {
		t.Fatalf("WriteDone: %v", err)
	}
	frames := drain(t, sse.NewDecoder(rec.Body))
	if len(frames) != 1 || !strings.Contains(frames[0], `"text-delta"`) {
		t.Fatalf("unexpected frames: %v", frames)
	}
}

func TestResponseEncoder_RejectsNonFlushingWriter(t *testing.T) {
	w := noFlushWriter{header: make(http.Header)}
	if _, ok := sse.NewResponseEncoder(w); ok {
		t.Fatal("expected ok=false for a writer without http.Flusher")
	}
	if got := w.header.Get("Content-Type"); got != "" {
		t.Errorf("headers written on rejected writer: %q", got)
	}
}

func TestEncoder_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := sse.NewEncoder(&buf)

	if err := enc.WriteEvent(map[string]string{"type": "text-delta", "text": "hi"}); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
	if err := enc.WriteDone(); err != nil {
		t.Fatalf("WriteDone: %v", err)
	}

	frames := drain(t, sse.NewDecoder(bytes.NewReader(buf.Bytes())))
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if !strings.Contains(frames[0], `"text-delta"`) {
		t.Errorf("unexpected payload: %s", frames[0])
	}
}
