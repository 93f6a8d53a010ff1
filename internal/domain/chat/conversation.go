// Package chat holds the conversation state machine: it folds normalized
// provider events into an ordered transcript, runs the turn lifecycle, and
// gates tool calls behind human approval.
package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"mcpchat/internal/domain/llm"
	"mcpchat/internal/infrastructure/metrics"
)

// Domain errors surfaced at the conversation boundary.
var (
	ErrTurnInFlight        = errors.New("a turn is already in flight")
	ErrNoActiveTask        = errors.New("no task is active for chat")
	ErrNoServers           = errors.New("active task has no MCP servers configured")
	ErrProviderUnavailable = errors.New("no provider is registered for the task's model")
	ErrNoPendingApproval   = errors.New("no approval request is pending")
	ErrMissingContinuation = errors.New("approval decision has no continuation id to attach to")
	ErrApprovalProtocol    = errors.New("received a second approval request while one was pending")
	ErrEmptyMessage        = errors.New("message text is empty")
)

// TaskView is the read-only slice of a task the conversation needs: which
// model to call and which MCP servers to advertise.
type TaskView struct {
	ID      string
	Name    string
	Model   string
	Servers []llm.ToolDescriptor
}

// ActiveTaskSource yields the task currently active for chat.
type ActiveTaskSource interface {
	ChatActiveTask() (TaskView, bool)
}

// ProviderResolver resolves a provider adapter by name.
type ProviderResolver interface {
	Provider(name string) (llm.Provider, bool)
}

// ModelResolver maps a model id to its owning provider, reasoning type
// and default sampling config.
type ModelResolver interface {
	ProviderFor(model string) (string, bool)
	ReasoningType(model string) string
	DefaultConfig(model string) llm.ModelConfig
}

// Suggestions holds the most recent post-answer search suggestions.
type Suggestions struct {
	Terms      []string
	Confidence float64
	Reasoning  string
}

// Conversation is one chat session. A single mutex guards all state; the
// stream goroutine folds events through it, so readers always observe a
// consistent transcript. A generation counter fences stale goroutines:
// events carrying an old generation are dropped without effect.
type Conversation struct {
	log       zerolog.Logger
	providers ProviderResolver
	tasks     ActiveTaskSource
	models    ModelResolver

	mu         sync.Mutex
	sessionID  string
	taskID     string
	taskModel  string
	messages   []Message
	status     Status
	lastError  string
	responseID string
	pending    *llm.ApprovalRequest
	config     llm.ModelConfig
	selected   struct {
		model    string
		provider string
	}
	suggestions Suggestions

	generation int
	cancel     context.CancelFunc
	thinking   thinkingFolder
	touched    time.Time
}

// NewConversation builds an idle conversation bound to the given
// resolvers. If a chat-active task exists its model config seeds the
// session defaults.
func NewConversation(log zerolog.Logger, providers ProviderResolver, tasks ActiveTaskSource, models ModelResolver) *Conversation {
	c := &Conversation{
		log:       log.With().Str("component", "conversation").Logger(),
		providers: providers,
		tasks:     tasks,
		models:    models,
		sessionID: uuid.NewString(),
		status:    StatusReady,
		touched:   time.Now(),
	}
	if t, ok := tasks.ChatActiveTask(); ok {
		c.taskID = t.ID
		c.taskModel = t.Model
		c.config = models.DefaultConfig(t.Model)
	}
	return c
}

// SendMessage starts a new turn. It rejects (never queues) input while a
// turn is in flight, snapshots the active task, appends the user message
// plus an assistant placeholder, and launches the stream fold goroutine.
func (c *Conversation) SendMessage(text string) error {
	if text == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status.IsBusy() {
		return ErrTurnInFlight
	}
	task, ok := c.tasks.ChatActiveTask()
	if !ok {
		return ErrNoActiveTask
	}
	if len(task.Servers) == 0 {
		return ErrNoServers
	}
	if task.ID != c.taskID {
		// Active task changed underneath the session; reset before sending
		// so no state bleeds across tasks.
		c.switchTaskLocked(task)
	}

	providerName, ok := c.models.ProviderFor(task.Model)
	if !ok {
		providerName = "openai"
	}
	provider, ok := c.providers.Provider(providerName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrProviderUnavailable, providerName)
	}

	// With no anchored continuation id the provider cannot reconstruct
	// context itself, so the prior exchange is resent alongside the new
	// message. An anchored id carries the history upstream instead.
	input := []llm.InputItem{llm.NewUserTextItem(text)}
	if c.responseID == "" {
		input = append(c.historyInputLocked(), input...)
	}

	c.touched = time.Now()
	c.lastError = ""
	c.suggestions = Suggestions{}
	c.thinking = newThinkingFolder(providerName)
	c.appendMessageLocked(RoleUser, text)
	placeholder := c.appendMessageLocked(RoleAssistant, "")
	placeholder.Provider = providerName
	c.status = StatusSubmitted

	req := c.buildRequestLocked(task, input)
	c.launchLocked(provider, req)
	return nil
}

// HandleApproval resolves the pending approval request. The decision is
// relayed as a continuation turn carrying exactly one approval-response
// input item, with the task's tools resent. An approval arriving with no
// pending request or no continuation id clears state and reports the
// inconsistency instead of calling upstream.
func (c *Conversation) HandleApproval(approve bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == nil {
		c.log.Warn().Msg("approval decision with no pending request, clearing state")
		if c.status == StatusAwaitingApproval {
			c.status = StatusReady
		}
		return ErrNoPendingApproval
	}
	if c.responseID == "" {
		c.log.Error().Str("approval_id", c.pending.ID).Msg("pending approval without continuation id")
		c.pending = nil
		c.status = StatusReady
		return ErrMissingContinuation
	}
	task, ok := c.tasks.ChatActiveTask()
	if !ok {
		c.pending = nil
		c.status = StatusReady
		return ErrNoActiveTask
	}
	providerName, ok := c.models.ProviderFor(task.Model)
	if !ok {
		providerName = "openai"
	}
	provider, ok := c.providers.Provider(providerName)
	if !ok {
		c.pending = nil
		c.status = StatusReady
		return fmt.Errorf("%w: %s", ErrProviderUnavailable, providerName)
	}

	decision := *c.pending
	c.pending = nil
	c.touched = time.Now()

	verdict := "declined"
	if approve {
		verdict = "approved"
	}
	audit := fmt.Sprintf("Tool call %q on server %q was %s.", decision.ToolName, decision.ServerLabel, verdict)
	if decision.ToolArguments != "" {
		audit += " Arguments: " + decision.ToolArguments
	}
	c.appendMessageLocked(RoleToolApproval, audit)
	placeholder := c.appendMessageLocked(RoleAssistant, "")
	placeholder.Provider = providerName
	c.thinking = newThinkingFolder(providerName)
	c.status = StatusSubmitted

	req := c.buildRequestLocked(task, []llm.InputItem{llm.NewApprovalResponseItem(decision.ID, approve)})
	c.launchLocked(provider, req)
	return nil
}

// Stop aborts any in-flight turn and forces the session back to ready.
// It is idempotent and safe to call when nothing is running.
func (c *Conversation) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abortLocked()
	// At most one approval may be outstanding per turn; the stopped turn's
	// slot must not leak into the next one.
	c.pending = nil
	c.touched = time.Now()
	c.status = StatusReady
}

// Reset aborts any in-flight turn and clears the whole session: transcript,
// pending approval, continuation id, suggestions and error, under a fresh
// session id. Model config returns to the active task's defaults.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abortLocked()
	c.clearLocked()
	c.touched = time.Now()
	c.sessionID = uuid.NewString()
	if c.taskModel != "" {
		c.config = c.models.DefaultConfig(c.taskModel)
	}
	c.status = StatusReady
}

// SwitchTask rebinds the session to a different task. Any in-flight turn
// is aborted and all turn, approval and message state is dropped, including
// the continuation id: continuations never cross a task boundary.
func (c *Conversation) SwitchTask(t TaskView) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.switchTaskLocked(t)
}

func (c *Conversation) switchTaskLocked(t TaskView) {
	c.abortLocked()
	c.clearLocked()
	c.touched = time.Now()
	c.taskID = t.ID
	c.taskModel = t.Model
	c.config = c.models.DefaultConfig(t.Model)
	c.status = StatusReady
}

// abortLocked invalidates the current generation and cancels the stream
// goroutine if one is running. Late events from the old generation are
// dropped by the fence in fold.
func (c *Conversation) abortLocked() {
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Conversation) clearLocked() {
	c.messages = nil
	c.pending = nil
	c.responseID = ""
	c.lastError = ""
	c.suggestions = Suggestions{}
	c.selected.model = ""
	c.selected.provider = ""
	c.thinking = nil
}

// historyInputLocked replays completed user and assistant turns as input
// items. Thinking and approval audit messages never travel upstream, and
// the open placeholder contributes nothing.
func (c *Conversation) historyInputLocked() []llm.InputItem {
	items := make([]llm.InputItem, 0, len(c.messages))
	for _, m := range c.messages {
		if m.Content == "" {
			continue
		}
		switch m.Role {
		case RoleUser:
			items = append(items, llm.NewUserTextItem(m.Content))
		case RoleAssistant:
			items = append(items, llm.NewAssistantTextItem(m.Content))
		}
	}
	return items
}

func (c *Conversation) buildRequestLocked(task TaskView, input []llm.InputItem) llm.Request {
	temp := c.config.Temperature
	maxTokens := c.config.MaxTokens
	req := llm.Request{
		Model:              task.Model,
		Input:              input,
		PreviousResponseID: c.responseID,
		Tools:              task.Servers,
		Stream:             true,
	}
	if temp > 0 {
		req.Temperature = &temp
	}
	if maxTokens > 0 {
		req.MaxOutputTokens = &maxTokens
	}
	return req
}

func (c *Conversation) launchLocked(provider llm.Provider, req llm.Request) {
	c.generation++
	gen := c.generation
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.run(ctx, gen, provider, req)
}

// run drives one turn: open the stream, fold every event, then settle the
// terminal state. It never touches conversation state directly; everything
// goes through the generation-fenced fold/finish/fail helpers.
func (c *Conversation) run(ctx context.Context, gen int, provider llm.Provider, req llm.Request) {
	ctx, span := otel.Tracer("mcpchat").Start(ctx, "chat.turn")
	span.SetAttributes(
		attribute.String("llm.provider", provider.Name()),
		attribute.String("llm.model", req.Model),
		attribute.Bool("llm.continuation", req.PreviousResponseID != ""),
	)
	defer span.End()

	stream, err := provider.Stream(ctx, req)
	if err != nil {
		c.failTurn(gen, err)
		c.countTurn(provider.Name())
		return
	}
	err = llm.DrainStream(ctx, stream, func(ev *llm.Event) error {
		c.fold(gen, ev)
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.failTurn(gen, err)
		c.countTurn(provider.Name())
		return
	}
	c.finishTurn(gen)
	c.countTurn(provider.Name())
}

func (c *Conversation) countTurn(provider string) {
	metrics.TurnsTotal.WithLabelValues(provider, string(c.Status())).Inc()
}

// fold applies one normalized event to the transcript. Events from a
// superseded generation are silently dropped.
func (c *Conversation) fold(gen int, ev *llm.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return
	}
	c.touched = time.Now()
	metrics.FoldedEventsTotal.WithLabelValues(string(ev.Type)).Inc()

	switch ev.Type {
	case llm.EventResponseCreated:
		c.responseID = ev.ResponseID

	case llm.EventTextDelta:
		if c.status == StatusSubmitted {
			c.status = StatusStreaming
		}
		c.appendToLastLocked(RoleAssistant, ev.Text)

	case llm.EventTextDone, llm.EventCleanedText:
		// Terminal full text replaces the accumulated deltas wholesale.
		if ev.Text != "" {
			c.replaceLastLocked(RoleAssistant, ev.Text)
		}

	case llm.EventThinkingDelta:
		if c.status == StatusSubmitted {
			c.status = StatusStreaming
		}
		if c.thinking != nil {
			c.thinking.delta(c, ev)
		}

	case llm.EventThinkingDone:
		if c.thinking != nil {
			c.thinking.done(c, ev)
		}

	case llm.EventApprovalRequest:
		if c.pending != nil {
			// Protocol violation: at most one approval may be outstanding.
			c.log.Error().
				Str("pending", c.pending.ID).
				Str("incoming", ev.Approval.ID).
				Msg("second approval request while one is pending")
			c.pending = nil
			c.lastError = ErrApprovalProtocol.Error()
			c.status = StatusError
			return
		}
		approval := *ev.Approval
		c.pending = &approval
		c.status = StatusAwaitingApproval

	case llm.EventToolList:
		if ev.Tools != nil {
			c.log.Debug().
				Str("server", ev.Tools.ServerLabel).
				Int("tools", len(ev.Tools.Tools)).
				Msg("server tool listing received")
		}

	case llm.EventSearchSuggestions:
		c.suggestions = Suggestions{
			Terms:      ev.SearchSuggestions,
			Confidence: ev.Confidence,
			Reasoning:  ev.Reasoning,
		}

	case llm.EventSelectedModel:
		c.selected.model = ev.Model

	case llm.EventSelectedProvider:
		c.selected.provider = ev.Provider

	case llm.EventReasoningType:
		// Informational; nothing to fold.

	case llm.EventError:
		c.lastError = ev.Err
		c.status = StatusError
	}
}

// finishTurn settles the state after a clean end of stream. A turn parked
// on awaiting_approval stays there; error state is sticky.
func (c *Conversation) finishTurn(gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.status == StatusSubmitted || c.status == StatusStreaming {
		c.status = StatusReady
	}
}

// failTurn records a stream failure. Partial content already folded is
// preserved for the user to see.
func (c *Conversation) failTurn(gen int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.log.Error().Err(err).Msg("turn failed")
	c.lastError = err.Error()
	c.status = StatusError
}

// appendMessageLocked appends a message and returns a pointer valid until
// the next mutation of the slice.
func (c *Conversation) appendMessageLocked(role Role, content string) *Message {
	c.messages = append(c.messages, Message{
		ID:      uuid.NewString(),
		Role:    role,
		Content: content,
	})
	return &c.messages[len(c.messages)-1]
}

func (c *Conversation) appendToMessageLocked(id, delta string) {
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].ID == id {
			c.messages[i].Content += delta
			return
		}
	}
}

func (c *Conversation) appendToLastLocked(role Role, delta string) {
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == role {
			c.messages[i].Content += delta
			return
		}
	}
}

func (c *Conversation) replaceLastLocked(role Role, content string) {
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == role {
			c.messages[i].Content = content
			return
		}
	}
}

// Snapshot is a consistent read of the conversation surface.
type Snapshot struct {
	SessionID   string               `json:"sessionId"`
	TaskID      string               `json:"taskId,omitempty"`
	Status      Status               `json:"status"`
	Messages    []Message            `json:"messages"`
	Pending     *llm.ApprovalRequest `json:"pendingApproval,omitempty"`
	ResponseID  string               `json:"responseId,omitempty"`
	LastError   string               `json:"error,omitempty"`
	Model       string               `json:"model,omitempty"`
	Provider    string               `json:"provider,omitempty"`
	Suggestions Suggestions          `json:"suggestions,omitzero"`
	Config      llm.ModelConfig      `json:"config"`
}

// Snapshot returns a copy of the observable session state.
func (c *Conversation) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := make([]Message, len(c.messages))
	copy(msgs, c.messages)
	var pending *llm.ApprovalRequest
	if c.pending != nil {
		p := *c.pending
		pending = &p
	}
	return Snapshot{
		SessionID:   c.sessionID,
		TaskID:      c.taskID,
		Status:      c.status,
		Messages:    msgs,
		Pending:     pending,
		ResponseID:  c.responseID,
		LastError:   c.lastError,
		Model:       c.selected.model,
		Provider:    c.selected.provider,
		Suggestions: c.suggestions,
		Config:      c.config,
	}
}

// Status returns the current turn status.
func (c *Conversation) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// LastActivity reports when the session last mutated.
func (c *Conversation) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.touched
}

// SetConfig overrides the session's sampling config.
func (c *Conversation) SetConfig(cfg llm.ModelConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config = cfg
}
