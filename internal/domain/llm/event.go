package llm

// EventType discriminates the normalized stream events emitted by the
// provider adapters. Upstream schema drift is absorbed at the adapter
// boundary; everything past it speaks this closed set.
type EventType string

const (
	EventResponseCreated   EventType = "response-created"
	EventTextDelta         EventType = "text-delta"
	EventTextDone          EventType = "text-done"
	EventCleanedText       EventType = "cleaned-text"
	EventThinkingDelta     EventType = "thinking-delta"
	EventThinkingDone      EventType = "thinking-done"
	EventApprovalRequest   EventType = "approval-request"
	EventToolList          EventType = "tool-list"
	EventSearchSuggestions EventType = "searchSuggestions"
	EventSelectedModel     EventType = "selected-model"
	EventSelectedProvider  EventType = "selected-provider"
	EventReasoningType     EventType = "reasoning-type"
	EventError             EventType = "error"
)

// ApprovalRequest is a pending tool invocation the provider wants
// permission to perform. ToolArguments is an opaque JSON string.
type ApprovalRequest struct {
	ID            string `json:"id"`
	ServerLabel   string `json:"serverLabel"`
	ToolName      string `json:"toolName"`
	ToolArguments string `json:"toolArguments"`
}

// ToolListing is a provider-reported inventory of an MCP server's tools.
type ToolListing struct {
	ServerLabel string   `json:"server_label"`
	Tools       []string `json:"tools"`
}

// Event is one normalized stream event. Only the fields relevant to the
// Type are populated.
type Event struct {
	Type EventType `json:"type"`

	ResponseID string `json:"responseId,omitempty"`

	// Text carries deltas for text events and the full text for
	// text-done / cleaned-text.
	Text string `json:"text,omitempty"`

	// Thinking fields. SummaryIndex keys reasoning fragments for providers
	// that emit the summary in indexed pieces.
	Thinking     string `json:"thinking,omitempty"`
	SummaryIndex int    `json:"summary_index,omitempty"`

	Approval *ApprovalRequest `json:"approval,omitempty"`
	Tools    *ToolListing     `json:"tools,omitempty"`

	SearchSuggestions []string `json:"searchSuggestions,omitempty"`
	Confidence        float64  `json:"confidence,omitempty"`
	Reasoning         string   `json:"reasoning,omitempty"`

	Model    string `json:"model,omitempty"`
	Provider string `json:"provider,omitempty"`

	Err string `json:"error,omitempty"`
}
