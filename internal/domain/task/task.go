// Package task owns the task/server registry: named tasks binding a model
// to a set of MCP server configurations, plus the provider-backed server
// validation step that gates new servers.
package task

import "mcpchat/internal/domain/llm"

// MCPServerConfig is a configured remote tool endpoint. It is created via
// the validation step and never mutated afterwards except by removal.
type MCPServerConfig struct {
	Label            string             `json:"label"`
	URL              string             `json:"url"`
	AllowedTools     []string           `json:"allowedTools,omitempty"`
	RequireApproval  llm.ApprovalPolicy `json:"requireApproval"`
	SuggestedPrompts []string           `json:"suggestedPrompts,omitempty"`
}

// ToolDescriptor maps the server config to the provider-facing tool shape.
func (s MCPServerConfig) ToolDescriptor() llm.ToolDescriptor {
	return llm.ToolDescriptor{
		Type:            "mcp",
		ServerLabel:     s.Label,
		ServerURL:       s.URL,
		AllowedTools:    s.AllowedTools,
		RequireApproval: s.RequireApproval,
	}
}

// Task is a named bundle of a model and an ordered MCP server list.
type Task struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Model         string            `json:"model"`
	ReasoningType string            `json:"reasoningType,omitempty"`
	Servers       []MCPServerConfig `json:"servers"`
}

func (t Task) clone() Task {
	out := t
	out.Servers = make([]MCPServerConfig, len(t.Servers))
	copy(out.Servers, t.Servers)
	return out
}

// ToolDescriptors returns the task's servers as provider tool descriptors.
func (t Task) ToolDescriptors() []llm.ToolDescriptor {
	if len(t.Servers) == 0 {
		return nil
	}
	out := make([]llm.ToolDescriptor, 0, len(t.Servers))
	for _, s := range t.Servers {
		out = append(out, s.ToolDescriptor())
	}
	return out
}
