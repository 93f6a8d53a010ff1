package chat

import "testing"

func TestStatusIsBusy(t *testing.T) {
	tests := []struct {
		status Status
		busy   bool
	}{
		{StatusReady, false},
		{StatusSubmitted, true},
		{StatusStreaming, true},
		{StatusAwaitingApproval, true},
		{StatusError, false},
	}
	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			if got := tt.status.IsBusy(); got != tt.busy {
				t.Errorf("IsBusy() = %v, want %v", got, tt.busy)
			}
		})
	}
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		name  string
		from  Status
		to    Status
		valid bool
	}{
		{"ready to submitted", StatusReady, StatusSubmitted, true},
		{"ready to streaming", StatusReady, StatusStreaming, false},
		{"submitted to streaming", StatusSubmitted, StatusStreaming, true},
		{"submitted to awaiting approval", StatusSubmitted, StatusAwaitingApproval, true},
		{"submitted to error", StatusSubmitted, StatusError, true},
		{"streaming to ready", StatusStreaming, StatusReady, true},
		{"streaming to awaiting approval", StatusStreaming, StatusAwaitingApproval, true},
		{"streaming to submitted", StatusStreaming, StatusSubmitted, false},
		{"awaiting approval to submitted", StatusAwaitingApproval, StatusSubmitted, true},
		{"awaiting approval to streaming", StatusAwaitingApproval, StatusStreaming, false},
		{"error to submitted", StatusError, StatusSubmitted, true},
		{"error to streaming", StatusError, StatusStreaming, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.valid {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.valid)
			}
		})
	}
}
