// Package model serves the static provider/model catalog: which providers
// are available, which models they carry, their reasoning types and default
// sampling configs.
package model

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"mcpchat/internal/domain/llm"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Reasoning types. Thinking models emit reasoning summaries and run with
// reasoning parameters enabled.
const (
	ReasoningIntelligence = "Intelligence"
	ReasoningThinking     = "Thinking"
)

// Model is one catalog entry.
type Model struct {
	ID            string          `yaml:"id" json:"id"`
	Name          string          `yaml:"name" json:"name"`
	ReasoningType string          `yaml:"reasoning_type" json:"reasoningType"`
	Default       bool            `yaml:"default" json:"default,omitempty"`
	Config        llm.ModelConfig `yaml:"config" json:"config"`
}

// Provider groups the models of one upstream.
type Provider struct {
	ID          string  `yaml:"id" json:"id"`
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description"`
	Available   bool    `yaml:"available" json:"available"`
	Models      []Model `yaml:"models" json:"models"`
}

type catalogFile struct {
	Providers []Provider `yaml:"providers"`
}

// Catalog is the parsed, immutable model catalog with lookup indexes.
type Catalog struct {
	providers []Provider
	byModel   map[string]Model
	ownerOf   map[string]string
}

// defaultConfig mirrors the fallback applied when a model id is unknown.
var defaultConfig = llm.ModelConfig{Temperature: 0.2, TopP: 0.8, MaxTokens: 4000}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	return parse(catalogYAML)
}

func parse(raw []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse model catalog: %w", err)
	}
	c := &Catalog{
		providers: file.Providers,
		byModel:   make(map[string]Model),
		ownerOf:   make(map[string]string),
	}
	for _, p := range file.Providers {
		for _, m := range p.Models {
			if _, dup := c.byModel[m.ID]; dup {
				return nil, fmt.Errorf("model catalog: duplicate model id %q", m.ID)
			}
			c.byModel[m.ID] = m
			c.ownerOf[m.ID] = p.ID
		}
	}
	return c, nil
}

// Providers returns the catalog entries in declaration order.
func (c *Catalog) Providers() []Provider {
	out := make([]Provider, len(c.providers))
	copy(out, c.providers)
	return out
}

// ProviderFor resolves the provider owning a model id.
func (c *Catalog) ProviderFor(model string) (string, bool) {
	p, ok := c.ownerOf[model]
	return p, ok
}

// ReasoningType returns the model's reasoning type, empty when unknown.
func (c *Catalog) ReasoningType(model string) string {
	return c.byModel[model].ReasoningType
}

// DefaultConfig returns the model's default sampling config, falling back
// to the catalog-wide default for unknown ids.
func (c *Catalog) DefaultConfig(model string) llm.ModelConfig {
	if m, ok := c.byModel[model]; ok {
		return m.Config
	}
	return defaultConfig
}

// DefaultModel returns a provider's flagged default model.
func (c *Catalog) DefaultModel(providerID string) (Model, bool) {
	for _, p := range c.providers {
		if p.ID != providerID {
			continue
		}
		for _, m := range p.Models {
			if m.Default {
				return m, true
			}
		}
		if len(p.Models) > 0 {
			return p.Models[0], true
		}
	}
	return Model{}, false
}

// Available reports whether a provider is usable in this deployment.
func (c *Catalog) Available(providerID string) bool {
	for _, p := range c.providers {
		if p.ID == providerID {
			return p.Available
		}
	}
	return false
}
