package chat

// Status represents the lifecycle state of a conversation turn.
type Status string

const (
	// StatusReady means no turn is in flight; user input is accepted.
	StatusReady Status = "ready"
	// StatusSubmitted means a request was sent but no content has arrived.
	StatusSubmitted Status = "submitted"
	// StatusStreaming means deltas are being folded into messages.
	StatusStreaming Status = "streaming"
	// StatusAwaitingApproval means the turn is suspended on a pending
	// tool-approval decision; no transport read is held open on our side.
	StatusAwaitingApproval Status = "awaiting_approval"
	// StatusError means the turn failed; partial content is preserved.
	StatusError Status = "error"
)

// IsBusy reports whether a turn is in flight. New user input is rejected
// at the boundary while busy, never queued.
func (s Status) IsBusy() bool {
	return s == StatusSubmitted || s == StatusStreaming || s == StatusAwaitingApproval
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// ValidTransitions defines the allowed turn state transitions.
var ValidTransitions = map[Status][]Status{
	StatusReady:            {StatusSubmitted},
	StatusSubmitted:        {StatusStreaming, StatusAwaitingApproval, StatusReady, StatusError},
	StatusStreaming:        {StatusAwaitingApproval, StatusReady, StatusError},
	StatusAwaitingApproval: {StatusSubmitted, StatusReady, StatusError},
	StatusError:            {StatusSubmitted, StatusReady},
}

// CanTransitionTo checks whether moving from s to target is valid.
func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range ValidTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}
