package model

import "testing"

func TestLoad_EmbeddedCatalog(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := len(c.Providers()); got != 3 {
		t.Fatalf("providers = %d, want 3", got)
	}
	if !c.Available("openai") || !c.Available("gemini") {
		t.Error("openai and gemini must be available")
	}
	if c.Available("anthropic") {
		t.Error("anthropic must be unavailable")
	}
}

func TestCatalog_ProviderFor(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	tests := []struct {
		model    string
		provider string
		ok       bool
	}{
		{"gpt-4.1-mini", "openai", true},
		{"o4-mini", "openai", true},
		{"gemini-2.0-flash", "gemini", true},
		{"claude-opus-4-20250514", "anthropic", true},
		{"nonexistent-model", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			got, ok := c.ProviderFor(tt.model)
			if ok != tt.ok || got != tt.provider {
				t.Errorf("ProviderFor(%q) = %q,%v want %q,%v", tt.model, got, ok, tt.provider, tt.ok)
			}
		})
	}
}

func TestCatalog_DefaultConfig(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	cfg := c.DefaultConfig("gpt-4.1-mini")
	if cfg.Temperature != 0.2 || cfg.TopP != 0.8 || cfg.MaxTokens != 4000 {
		t.Errorf("gpt-4.1-mini config = %+v", cfg)
	}

	thinking := c.DefaultConfig("o3")
	if thinking.Temperature != 1 || thinking.MaxTokens != 4000 {
		t.Errorf("o3 config = %+v", thinking)
	}

	// Unknown models fall back to the catalog-wide default.
	fallback := c.DefaultConfig("made-up")
	if fallback != defaultConfig {
		t.Errorf("fallback config = %+v", fallback)
	}
}

func TestCatalog_ReasoningType(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := c.ReasoningType("o4-mini"); got != ReasoningThinking {
		t.Errorf("o4-mini reasoning = %q", got)
	}
	if got := c.ReasoningType("gpt-4.1"); got != ReasoningIntelligence {
		t.Errorf("gpt-4.1 reasoning = %q", got)
	}
	if got := c.ReasoningType("unknown"); got != "" {
		t.Errorf("unknown reasoning = %q", got)
	}
}

func TestCatalog_DefaultModel(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	m, ok := c.DefaultModel("openai")
	if !ok || m.ID != "o4-mini" {
		t.Errorf("openai default = %+v, %v", m, ok)
	}
	m, ok = c.DefaultModel("gemini")
	if !ok || m.ID != "gemini-2.5-flash-preview-05-20" {
		t.Errorf("gemini default = %+v, %v", m, ok)
	}
	if _, ok := c.DefaultModel("missing"); ok {
		t.Error("expected no default for unknown provider")
	}
}

func TestParse_DuplicateModelID(t *testing.T) {
	raw := []byte(`
providers:
  - id: a
    models:
      - id: m1
  - id: b
    models:
      - id: m1
`)
	if _, err := parse(raw); err == nil {
		t.Fatal("expected duplicate model id error")
	}
}
