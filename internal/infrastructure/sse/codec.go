// Package sse implements the server-sent-event frame codec used on both
// sides of the relay: decoding upstream provider streams and encoding
// frames for browser clients.
package sse

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DoneSentinel is the literal terminal frame payload, distinct from any JSON event.
const DoneSentinel = "[DONE]"

// ErrDone is returned by Decoder.Next when the [DONE] sentinel arrives.
var ErrDone = errors.New("sse: done sentinel")

// Decoder reads blank-line-terminated `data: <payload>` records from a
// byte stream. Records split across arbitrary chunk boundaries are
// reassembled before being surfaced; comment lines and empty keep-alive
// lines are skipped.
type Decoder struct {
	reader *bufio.Reader
}

// NewDecoder wraps r in a frame decoder.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{reader: bufio.NewReader(r)}
}

// Next returns the payload of the next complete frame. It returns ErrDone
// on the [DONE] sentinel and io.EOF when the underlying stream ends.
func (d *Decoder) Next() ([]byte, error) {
	var data bytes.Buffer
	sawData := false

	for {
		line, err := d.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				if sawData {
					// Stream closed mid-record; surface what we have so the
					// translation layer can decide whether it parses.
					return d.finish(data.String())
				}
				return nil, io.EOF
			}
			return nil, fmt.Errorf("read frame: %w", err)
		}

		line = strings.TrimRight(line, "\r\n")

		// Blank line terminates the current record.
		if line == "" {
			if !sawData {
				continue
			}
			return d.finish(data.String())
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		payload, ok := strings.CutPrefix(line, "data:")
		if !ok {
			// Unknown field (event:, id:, ...); ignored for forward compatibility.
			continue
		}
		payload = strings.TrimPrefix(payload, " ")

		if sawData {
			data.WriteByte('\n')
		}
		data.WriteString(payload)
		sawData = true
	}
}

func (d *Decoder) finish(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if payload == DoneSentinel {
		return nil, ErrDone
	}
	return []byte(payload), nil
}

// Encoder writes `data: <json>\n\n` frames, flushing after each one when
// the destination supports it.
type Encoder struct {
	w       io.Writer
	flusher http.Flusher
}

// NewEncoder wraps w in a frame encoder. If w implements http.Flusher the
// encoder flushes after every frame so clients see events incrementally.
func NewEncoder(w io.Writer) *Encoder {
	flusher, _ := w.(http.Flusher)
	return &Encoder{w: w, flusher: flusher}
}

// NewResponseEncoder sets the event-stream headers on w and wraps it in an
// Encoder. It reports false when the connection cannot flush frames
// incrementally, which would break live streaming; no headers are written
// in that case.
func NewResponseEncoder(w http.ResponseWriter) (*Encoder, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	return &Encoder{w: w, flusher: flusher}, true
}

// WriteEvent marshals v to JSON and writes it as a single frame.
func (e *Encoder) WriteEvent(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	return e.WriteRaw(payload)
}

// WriteRaw writes a pre-serialized payload as a single frame.
func (e *Encoder) WriteRaw(payload []byte) error {
	if _, err := e.w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := e.w.Write(payload); err != nil {
		return err
	}
	if _, err := e.w.Write([]byte("\n\n")); err != nil {
		return err
	}
	e.flush()
	return nil
}

// WriteDone writes the terminal sentinel frame.
func (e *Encoder) WriteDone() error {
	if _, err := io.WriteString(e.w, "data: "+DoneSentinel+"\n\n"); err != nil {
		return err
	}
	e.flush()
	return nil
}

func (e *Encoder) flush() {
	if e.flusher != nil {
		e.flusher.Flush()
	}
}
