package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"mcpchat/internal/domain/llm"
)

// Validation errors. Label-matched tool discovery is the load-bearing
// success criterion; everything else about validation is best effort.
var (
	ErrNoToolListing = errors.New("provider returned no tool listing for the requested server")
	ErrLabelMismatch = errors.New("tool listing label does not match the requested server label")
)

// SuggestedPromptsList is the structured output the provider is asked to
// produce alongside tool discovery.
type SuggestedPromptsList struct {
	Prompts []string `json:"prompts" jsonschema:"minItems=5,maxItems=5" jsonschema_description:"Exactly five example prompts a user could try against this server's tools"`
}

// ValidationResult is the outcome of a successful server validation.
type ValidationResult struct {
	Tools            []string `json:"tools"`
	SuggestedPrompts []string `json:"suggestedPrompts"`
	Reachable        bool     `json:"reachable"`
}

// Prober optionally checks MCP endpoint reachability directly, bypassing
// the provider. Its outcome never affects validation success.
type Prober interface {
	ListTools(ctx context.Context, serverURL string) ([]string, error)
}

// Validator validates a candidate MCP server by asking the provider to
// introspect it: one non-streaming turn that lists the server's tools and
// emits a structured five-prompt suggestion list.
type Validator struct {
	log      zerolog.Logger
	provider llm.Provider
	model    string
	prober   Prober
	timeout  time.Duration
}

// NewValidator builds a validator bound to one provider and model. The
// prober may be nil.
func NewValidator(log zerolog.Logger, provider llm.Provider, model string, prober Prober, timeout time.Duration) *Validator {
	return &Validator{
		log:      log.With().Str("component", "server-validator").Logger(),
		provider: provider,
		model:    model,
		prober:   prober,
		timeout:  timeout,
	}
}

// responseDocument is the slice of the provider's non-streaming response
// the validator reads: output items carrying tool listings and text.
type responseDocument struct {
	Output []responseOutputItem `json:"output"`
}

type responseOutputItem struct {
	Type        string `json:"type"`
	ServerLabel string `json:"server_label"`
	Tools       []struct {
		Name string `json:"name"`
	} `json:"tools"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// ValidateServer asks the provider to list the server's tools and suggest
// prompts. It succeeds only when the response carries a tool listing whose
// label matches the request; suggestion parse failures degrade to an empty
// prompt list.
func (v *Validator) ValidateServer(ctx context.Context, serverURL, serverLabel string) (*ValidationResult, error) {
	if serverURL == "" || serverLabel == "" {
		return nil, ErrInvalidServer
	}
	ctx, span := otel.Tracer("mcpchat").Start(ctx, "task.validate_server")
	span.SetAttributes(attribute.String("mcp.server_label", serverLabel))
	defer span.End()
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	req := llm.Request{
		Model: v.model,
		Input: []llm.InputItem{llm.NewUserTextItem(
			"Introspect the connected MCP server, list every tool it exposes, " +
				"and suggest five example prompts a user could try with those tools.",
		)},
		Tools: []llm.ToolDescriptor{{
			Type:            "mcp",
			ServerLabel:     serverLabel,
			ServerURL:       serverURL,
			RequireApproval: llm.ApprovalNever,
		}},
		Text: suggestedPromptsFormat(),
	}

	raw, err := v.provider.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("server validation call failed: %w", err)
	}

	var doc responseDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("server validation response unreadable: %w", err)
	}

	tools, err := findToolListing(doc, serverLabel)
	if err != nil {
		return nil, err
	}

	result := &ValidationResult{Tools: tools, SuggestedPrompts: []string{}}
	if prompts, ok := v.extractPrompts(doc); ok {
		result.SuggestedPrompts = prompts
	}

	if v.prober != nil {
		if _, err := v.prober.ListTools(ctx, serverURL); err != nil {
			v.log.Warn().Err(err).Str("url", serverURL).Msg("direct probe failed")
		} else {
			result.Reachable = true
		}
	}

	v.log.Info().
		Str("label", serverLabel).
		Int("tools", len(result.Tools)).
		Int("prompts", len(result.SuggestedPrompts)).
		Msg("server validated")
	return result, nil
}

// findToolListing locates the mcp_list_tools item for the requested label.
// A listing for a different label fails validation outright.
func findToolListing(doc responseDocument, label string) ([]string, error) {
	sawListing := false
	for _, item := range doc.Output {
		if item.Type != "mcp_list_tools" {
			continue
		}
		sawListing = true
		if item.ServerLabel != label {
			continue
		}
		names := make([]string, 0, len(item.Tools))
		for _, tool := range item.Tools {
			names = append(names, tool.Name)
		}
		return names, nil
	}
	if sawListing {
		return nil, fmt.Errorf("%w: wanted %q", ErrLabelMismatch, label)
	}
	return nil, ErrNoToolListing
}

// extractPrompts parses the structured suggestion payload out of the
// message text. Parse failures are logged and reported as absent.
func (v *Validator) extractPrompts(doc responseDocument) ([]string, bool) {
	for _, item := range doc.Output {
		if item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			if part.Type != "output_text" || part.Text == "" {
				continue
			}
			var list SuggestedPromptsList
			if err := json.Unmarshal([]byte(part.Text), &list); err != nil {
				v.log.Warn().Err(err).Msg("suggested prompts payload is not valid JSON, continuing without")
				return nil, false
			}
			return list.Prompts, true
		}
	}
	return nil, false
}

// suggestedPromptsFormat builds the provider-native structured output spec
// from the Go type, so the schema and the parse target cannot drift apart.
func suggestedPromptsFormat() *llm.TextFormat {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(&SuggestedPromptsList{})
	schema.AdditionalProperties = jsonschema.FalseSchema
	return &llm.TextFormat{
		Format: llm.FormatSpec{
			Type:   "json_schema",
			Name:   "suggested_prompts",
			Schema: schema,
			Strict: true,
		},
	}
}
