package llm

import "errors"

// Boundary validation errors. These are rejected before any upstream call
// is made.
var (
	ErrMissingModel        = errors.New("model is required")
	ErrMissingInput        = errors.New("'input' array is required for new responses")
	ErrEmptyContinuation   = errors.New("'input' array with new items is required for continuation")
	ErrInvalidTool         = errors.New("tool descriptors require a server label and url")
	ErrContinuationSupport = errors.New("provider does not support continuation ids")
)

// ValidateRequest enforces the relay boundary contract: a request needs
// either a non-empty initial input list or a continuation id, and a
// continuation id must be accompanied by new input items.
func ValidateRequest(req Request) error {
	if req.Model == "" {
		return ErrMissingModel
	}
	if len(req.Input) == 0 {
		if req.PreviousResponseID == "" {
			return ErrMissingInput
		}
		return ErrEmptyContinuation
	}
	for _, tool := range req.Tools {
		if tool.ServerLabel == "" || tool.ServerURL == "" {
			return ErrInvalidTool
		}
	}
	return nil
}
