package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrSessionNotFound is returned when a session id is unknown.
var ErrSessionNotFound = errors.New("session not found")

// Manager owns the live conversations, keyed by session id. It also fans
// out chat-active task changes so every session resets consistently.
type Manager struct {
	log       zerolog.Logger
	providers ProviderResolver
	tasks     ActiveTaskSource
	models    ModelResolver

	mu       sync.RWMutex
	sessions map[string]*Conversation
}

// NewManager builds an empty session manager.
func NewManager(log zerolog.Logger, providers ProviderResolver, tasks ActiveTaskSource, models ModelResolver) *Manager {
	return &Manager{
		log:       log.With().Str("component", "session-manager").Logger(),
		providers: providers,
		tasks:     tasks,
		models:    models,
		sessions:  make(map[string]*Conversation),
	}
}

// Create opens a new conversation and returns its id.
func (m *Manager) Create() (string, *Conversation) {
	conv := NewConversation(m.log, m.providers, m.tasks, m.models)
	id := uuid.NewString()
	m.mu.Lock()
	m.sessions[id] = conv
	m.mu.Unlock()
	m.log.Info().Str("session_id", id).Msg("session created")
	return id, conv
}

// Get looks up a conversation by session id.
func (m *Manager) Get(id string) (*Conversation, error) {
	m.mu.RLock()
	conv, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return conv, nil
}

// Remove stops and discards a session.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	conv, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	conv.Stop()
	m.log.Info().Str("session_id", id).Msg("session removed")
	return nil
}

// StartReaper drops sessions idle longer than maxIdle, checking once a
// minute until ctx is cancelled. Sessions with a turn in flight are left
// alone; folding counts as activity. A non-positive maxIdle disables
// reaping.
func (m *Manager) StartReaper(ctx context.Context, maxIdle time.Duration) {
	if maxIdle <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.reap(maxIdle)
			}
		}
	}()
}

func (m *Manager) reap(maxIdle time.Duration) {
	cutoff := time.Now().Add(-maxIdle)
	m.mu.Lock()
	var stale []string
	for id, conv := range m.sessions {
		if conv.Status().IsBusy() {
			continue
		}
		if conv.LastActivity().Before(cutoff) {
			stale = append(stale, id)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()
	for _, id := range stale {
		m.log.Info().Str("session_id", id).Msg("idle session reaped")
	}
}

// OnActiveTaskChanged rebinds every live session to the new chat-active
// task, aborting in-flight turns and clearing per-task state.
func (m *Manager) OnActiveTaskChanged(t TaskView) {
	m.mu.RLock()
	convs := make([]*Conversation, 0, len(m.sessions))
	for _, conv := range m.sessions {
		convs = append(convs, conv)
	}
	m.mu.RUnlock()
	for _, conv := range convs {
		conv.SwitchTask(t)
	}
	m.log.Info().Str("task_id", t.ID).Int("sessions", len(convs)).Msg("sessions rebound to task")
}
