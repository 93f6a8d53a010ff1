package chat

// Role classifies a message within the conversation transcript.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	// RoleThinking carries provider reasoning text, rendered apart from
	// assistant output and never resent upstream.
	RoleThinking Role = "thinking"
	// RoleToolApproval carries the synthetic audit record of an approval
	// decision; excluded from any history sent upstream.
	RoleToolApproval Role = "tool_approval"
)

// Message is one turn-unit of the conversation. Content accumulates delta
// by delta for in-flight assistant/thinking messages and may be replaced
// wholesale by a terminal full-text event.
type Message struct {
	ID       string `json:"id"`
	Role     Role   `json:"role"`
	Content  string `json:"content"`
	Provider string `json:"provider,omitempty"`
}
