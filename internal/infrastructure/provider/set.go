package provider

import "mcpchat/internal/domain/llm"

// Set indexes the configured provider adapters by name.
type Set struct {
	providers map[string]llm.Provider
}

// NewSet builds a provider set from the given adapters.
func NewSet(providers ...llm.Provider) *Set {
	s := &Set{providers: make(map[string]llm.Provider, len(providers))}
	for _, p := range providers {
		s.providers[p.Name()] = p
	}
	return s
}

// Provider resolves an adapter by name.
func (s *Set) Provider(name string) (llm.Provider, bool) {
	p, ok := s.providers[name]
	return p, ok
}

// Names lists the registered provider names.
func (s *Set) Names() []string {
	out := make([]string, 0, len(s.providers))
	for name := range s.providers {
		out = append(out, name)
	}
	return out
}
