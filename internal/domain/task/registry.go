package task

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mcpchat/internal/domain/chat"
)

// Registry errors.
var (
	ErrTaskNotFound   = errors.New("task not found")
	ErrServerNotFound = errors.New("server not found")
	ErrInvalidServer  = errors.New("server label and url are required")
	ErrDuplicateLabel = errors.New("server label already in use within task")
	ErrMissingName    = errors.New("task name is required")
	ErrMissingModel   = errors.New("task model is required")
)

// Registry owns the ordered task list and the two active-task pointers:
// the task active for configuration and the task active for chat. Exactly
// one of each exists while any task does; removing an active task falls
// back to the first remaining task.
type Registry struct {
	log zerolog.Logger

	mu             sync.RWMutex
	tasks          []Task
	configActiveID string
	chatActiveID   string
}

// NewRegistry builds a registry seeded with the default task so the chat
// surface is usable out of the box.
func NewRegistry(log zerolog.Logger) *Registry {
	r := &Registry{log: log.With().Str("component", "task-registry").Logger()}
	seed := Task{
		ID:            uuid.NewString(),
		Name:          "Store (MCP)",
		Model:         "gpt-4.1-mini",
		ReasoningType: "Intelligence",
	}
	r.tasks = []Task{seed}
	r.configActiveID = seed.ID
	r.chatActiveID = seed.ID
	return r
}

// Tasks returns a copy of the task list in insertion order.
func (r *Registry) Tasks() []Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t.clone())
	}
	return out
}

// Get returns a copy of one task.
func (r *Registry) Get(id string) (Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tasks {
		if t.ID == id {
			return t.clone(), nil
		}
	}
	return Task{}, ErrTaskNotFound
}

// Add registers a new task and returns it with its assigned id. The first
// task added to an empty registry becomes active for both chat and config.
func (r *Registry) Add(t Task) (Task, error) {
	if t.Name == "" {
		return Task{}, ErrMissingName
	}
	if t.Model == "" {
		return Task{}, ErrMissingModel
	}
	if err := validateLabels(t.Servers); err != nil {
		return Task{}, err
	}
	t.ID = uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, t.clone())
	if r.configActiveID == "" {
		r.configActiveID = t.ID
	}
	if r.chatActiveID == "" {
		r.chatActiveID = t.ID
	}
	r.log.Info().Str("task_id", t.ID).Str("name", t.Name).Msg("task added")
	return t, nil
}

// Update replaces a task's name, model and reasoning type. Servers are
// managed through AddServer/RemoveServer only.
func (r *Registry) Update(id string, name, model, reasoningType string) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.tasks {
		if r.tasks[i].ID != id {
			continue
		}
		if name != "" {
			r.tasks[i].Name = name
		}
		if model != "" {
			r.tasks[i].Model = model
		}
		if reasoningType != "" {
			r.tasks[i].ReasoningType = reasoningType
		}
		return r.tasks[i].clone(), nil
	}
	return Task{}, ErrTaskNotFound
}

// Remove deletes a task. If it was active for chat or configuration, the
// pointer falls back to the first remaining task, or clears when none are
// left.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := -1
	for i, t := range r.tasks {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrTaskNotFound
	}
	r.tasks = append(r.tasks[:idx], r.tasks[idx+1:]...)

	fallback := ""
	if len(r.tasks) > 0 {
		fallback = r.tasks[0].ID
	}
	if r.configActiveID == id {
		r.configActiveID = fallback
	}
	if r.chatActiveID == id {
		r.chatActiveID = fallback
	}
	r.log.Info().Str("task_id", id).Msg("task removed")
	return nil
}

// AddServer appends a validated server config to a task. Labels are unique
// within a task.
func (r *Registry) AddServer(taskID string, cfg MCPServerConfig) (Task, error) {
	if cfg.Label == "" || cfg.URL == "" {
		return Task{}, ErrInvalidServer
	}
	if cfg.RequireApproval == "" {
		cfg.RequireApproval = "always"
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.tasks {
		if r.tasks[i].ID != taskID {
			continue
		}
		for _, s := range r.tasks[i].Servers {
			if s.Label == cfg.Label {
				return Task{}, ErrDuplicateLabel
			}
		}
		r.tasks[i].Servers = append(r.tasks[i].Servers, cfg)
		r.log.Info().Str("task_id", taskID).Str("label", cfg.Label).Msg("server added to task")
		return r.tasks[i].clone(), nil
	}
	return Task{}, ErrTaskNotFound
}

// RemoveServer removes a server by label from a task.
func (r *Registry) RemoveServer(taskID, label string) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.tasks {
		if r.tasks[i].ID != taskID {
			continue
		}
		for j, s := range r.tasks[i].Servers {
			if s.Label == label {
				r.tasks[i].Servers = append(r.tasks[i].Servers[:j], r.tasks[i].Servers[j+1:]...)
				return r.tasks[i].clone(), nil
			}
		}
		return Task{}, ErrServerNotFound
	}
	return Task{}, ErrTaskNotFound
}

// SetChatActive marks a task as the one chat sessions run against.
func (r *Registry) SetChatActive(id string) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		if t.ID == id {
			r.chatActiveID = id
			return t.clone(), nil
		}
	}
	return Task{}, ErrTaskNotFound
}

// SetConfigActive marks a task as the one being edited.
func (r *Registry) SetConfigActive(id string) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		if t.ID == id {
			r.configActiveID = id
			return t.clone(), nil
		}
	}
	return Task{}, ErrTaskNotFound
}

// ChatActive returns the task currently active for chat.
func (r *Registry) ChatActive() (Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findLocked(r.chatActiveID)
}

// ConfigActive returns the task currently active for configuration.
func (r *Registry) ConfigActive() (Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findLocked(r.configActiveID)
}

func (r *Registry) findLocked(id string) (Task, bool) {
	if id == "" {
		return Task{}, false
	}
	for _, t := range r.tasks {
		if t.ID == id {
			return t.clone(), true
		}
	}
	return Task{}, false
}

// ChatActiveTask adapts the chat-active task into the read-only view the
// conversation machine consumes.
func (r *Registry) ChatActiveTask() (chat.TaskView, bool) {
	t, ok := r.ChatActive()
	if !ok {
		return chat.TaskView{}, false
	}
	return chat.TaskView{
		ID:      t.ID,
		Name:    t.Name,
		Model:   t.Model,
		Servers: t.ToolDescriptors(),
	}, true
}

func validateLabels(servers []MCPServerConfig) error {
	seen := make(map[string]struct{}, len(servers))
	for _, s := range servers {
		if _, dup := seen[s.Label]; dup {
			return ErrDuplicateLabel
		}
		seen[s.Label] = struct{}{}
	}
	return nil
}
