// Package llm defines the normalized relay contract between the chat
// domain and the upstream provider adapters: request/input shapes, the
// normalized event variant, and the provider interfaces.
package llm

// ApprovalPolicy controls whether tool calls on a server need human sign-off.
type ApprovalPolicy string

const (
	ApprovalNever  ApprovalPolicy = "never"
	ApprovalAlways ApprovalPolicy = "always"
)

// ToolDescriptor advertises a remote MCP server to the upstream provider.
// The provider, not this system, dials the server.
type ToolDescriptor struct {
	Type            string         `json:"type"`
	ServerLabel     string         `json:"server_label"`
	ServerURL       string         `json:"server_url"`
	AllowedTools    []string       `json:"allowed_tools,omitempty"`
	RequireApproval ApprovalPolicy `json:"require_approval,omitempty"`
}

// ContentPart is one piece of a message input item.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// InputItem is either a role-tagged message item or an approval-response
// item ({type:"mcp_approval_response", ...}).
type InputItem struct {
	Type              string        `json:"type,omitempty"`
	Role              string        `json:"role,omitempty"`
	Content           []ContentPart `json:"content,omitempty"`
	ApprovalRequestID string        `json:"approval_request_id,omitempty"`
	Approve           *bool         `json:"approve,omitempty"`
}

// NewUserTextItem builds a user message input item.
func NewUserTextItem(text string) InputItem {
	return InputItem{
		Role:    "user",
		Content: []ContentPart{{Type: "input_text", Text: text}},
	}
}

// NewAssistantTextItem rebuilds a prior assistant turn as an input item.
// Used when a provider has no continuation-id support and the caller must
// resend the conversation history itself.
func NewAssistantTextItem(text string) InputItem {
	return InputItem{
		Role:    "assistant",
		Content: []ContentPart{{Type: "output_text", Text: text}},
	}
}

// NewSystemTextItem builds a system message input item.
func NewSystemTextItem(text string) InputItem {
	return InputItem{
		Role:    "system",
		Content: []ContentPart{{Type: "input_text", Text: text}},
	}
}

// NewApprovalResponseItem builds the continuation payload carrying an
// approval decision back to the provider.
func NewApprovalResponseItem(requestID string, approve bool) InputItem {
	return InputItem{
		Type:              "mcp_approval_response",
		ApprovalRequestID: requestID,
		Approve:           &approve,
	}
}

// IsApprovalResponse reports whether the item carries an approval decision.
func (i InputItem) IsApprovalResponse() bool {
	return i.Type == "mcp_approval_response"
}

// TextFormat requests structured output from the provider.
type TextFormat struct {
	Format FormatSpec `json:"format"`
}

// FormatSpec is the provider-native structured output spec.
type FormatSpec struct {
	Type   string `json:"type"`
	Name   string `json:"name,omitempty"`
	Schema any    `json:"schema,omitempty"`
	Strict bool   `json:"strict,omitempty"`
}

// ReasoningParams tunes provider-side reasoning for thinking models.
type ReasoningParams struct {
	Effort  string `json:"effort,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// Request is the normalized relay request. A request must carry either a
// non-empty Input list or a continuation id; a continuation id additionally
// requires new input to attach.
type Request struct {
	Model              string           `json:"model"`
	Input              []InputItem      `json:"input,omitempty"`
	PreviousResponseID string           `json:"previous_response_id,omitempty"`
	Tools              []ToolDescriptor `json:"tools,omitempty"`
	Temperature        *float64         `json:"temperature,omitempty"`
	TopP               *float64         `json:"top_p,omitempty"`
	MaxOutputTokens    *int             `json:"max_output_tokens,omitempty"`
	Stream             bool             `json:"stream"`
	Text               *TextFormat      `json:"text,omitempty"`
	Reasoning          *ReasoningParams `json:"reasoning,omitempty"`
}

// ModelConfig bundles the per-model sampling defaults.
type ModelConfig struct {
	Temperature float64 `json:"temperature" yaml:"temperature"`
	TopP        float64 `json:"topP" yaml:"top_p"`
	MaxTokens   int     `json:"maxTokens" yaml:"max_tokens"`
}
