package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// EventStream yields normalized events in strict arrival order. Recv
// returns io.EOF once the stream is exhausted; Close releases the
// underlying transport and is safe to call more than once.
type EventStream interface {
	Recv() (*Event, error)
	Close() error
}

// Provider is one upstream LLM adapter. Stream must start re-emitting
// events as they arrive upstream without buffering a whole response;
// Complete collects a full non-streaming response document and is used
// only for auxiliary calls, never the main chat turn.
type Provider interface {
	Name() string
	Stream(ctx context.Context, req Request) (EventStream, error)
	Complete(ctx context.Context, req Request) (json.RawMessage, error)
}

// UpstreamError preserves a recognized upstream failure so the boundary
// can surface the provider's own status and message.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error (%d): %s", e.StatusCode, e.Message)
}

// DrainStream consumes a stream to completion, invoking fn per event.
// It stops early when fn returns an error or ctx is cancelled.
func DrainStream(ctx context.Context, stream EventStream, fn func(*Event) error) error {
	defer stream.Close()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		event, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if event == nil {
			continue
		}
		if err := fn(event); err != nil {
			return err
		}
	}
}
