package chat

import (
	"strings"

	"mcpchat/internal/domain/llm"
)

// thinkingFolder folds reasoning events into the transcript. Providers
// differ in how reasoning text arrives, so each gets its own folding
// strategy. Methods are called with the conversation lock held.
type thinkingFolder interface {
	delta(c *Conversation, ev *llm.Event)
	done(c *Conversation, ev *llm.Event)
}

func newThinkingFolder(provider string) thinkingFolder {
	if provider == "openai" {
		return &indexedThinking{}
	}
	return &inlineThinking{}
}

// indexedThinking buffers reasoning fragments keyed by summary index and
// publishes a thinking message only when the provider marks the part done.
// The user never sees partial reasoning for this strategy.
type indexedThinking struct {
	buffers map[int]*strings.Builder
}

func (f *indexedThinking) delta(_ *Conversation, ev *llm.Event) {
	if f.buffers == nil {
		f.buffers = make(map[int]*strings.Builder)
	}
	buf := f.buffers[ev.SummaryIndex]
	if buf == nil {
		buf = &strings.Builder{}
		f.buffers[ev.SummaryIndex] = buf
	}
	buf.WriteString(ev.Thinking)
}

func (f *indexedThinking) done(c *Conversation, ev *llm.Event) {
	buf := f.buffers[ev.SummaryIndex]
	if buf == nil || buf.Len() == 0 {
		return
	}
	c.appendMessageLocked(RoleThinking, buf.String())
	delete(f.buffers, ev.SummaryIndex)
}

// inlineThinking opens a thinking message on the first fragment and grows
// it in place, so reasoning renders live. A done event closes the current
// block; a later fragment opens a fresh one.
type inlineThinking struct {
	openID string
}

func (f *inlineThinking) delta(c *Conversation, ev *llm.Event) {
	if ev.Thinking == "" {
		return
	}
	if f.openID == "" {
		msg := c.appendMessageLocked(RoleThinking, ev.Thinking)
		f.openID = msg.ID
		return
	}
	c.appendToMessageLocked(f.openID, ev.Thinking)
}

func (f *inlineThinking) done(_ *Conversation, _ *llm.Event) {
	f.openID = ""
}
