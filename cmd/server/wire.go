//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"

	"mcpchat/internal/config"
	"mcpchat/internal/domain/chat"
	"mcpchat/internal/domain/model"
	"mcpchat/internal/domain/task"
	"mcpchat/internal/infrastructure/logger"
	"mcpchat/internal/infrastructure/mcpprobe"
	"mcpchat/internal/infrastructure/provider"
	"mcpchat/internal/interfaces/httpserver"
	"mcpchat/internal/interfaces/httpserver/handlers"
)

var gatewaySet = wire.NewSet(
	newOpenAIProvider,
	newGeminiProvider,
	newProviderSet,
	wire.Bind(new(chat.ProviderResolver), new(*provider.Set)),
	task.NewRegistry,
	wire.Bind(new(chat.ActiveTaskSource), new(*task.Registry)),
	newProber,
	wire.Bind(new(task.Prober), new(*mcpprobe.Client)),
	newValidator,
	chat.NewManager,
	handlers.NewMCPHandler,
	handlers.NewTaskHandler,
	handlers.NewSessionHandler,
	handlers.NewModelHandler,
	newRelayHandler,
)

// BuildApplication demonstrates how to assemble the gateway with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		newCatalog,
		wire.Bind(new(chat.ModelResolver), new(*model.Catalog)),
		wire.Bind(new(provider.ReasoningLookup), new(*model.Catalog)),
		gatewaySet,
		httpserver.NewHTTPServer,
		NewApplication,
	)
	return nil, nil
}

func newCatalog() (*model.Catalog, error) {
	return model.Load()
}

func newOpenAIProvider(cfg *config.Config, log zerolog.Logger, reasoning provider.ReasoningLookup) *provider.OpenAI {
	return provider.NewOpenAI(log, cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.StreamTimeout, cfg.CallTimeout, reasoning)
}

func newGeminiProvider(cfg *config.Config, log zerolog.Logger) *provider.Gemini {
	return provider.NewGemini(log, cfg.GeminiAPIKey, cfg.GeminiBaseURL, cfg.StreamTimeout, cfg.CallTimeout)
}

func newProviderSet(openai *provider.OpenAI, gemini *provider.Gemini) *provider.Set {
	return provider.NewSet(openai, gemini)
}

func newProber(cfg *config.Config) *mcpprobe.Client {
	return mcpprobe.NewClient(cfg.ValidationTimeout)
}

func newValidator(cfg *config.Config, log zerolog.Logger, openai *provider.OpenAI, prober task.Prober) *task.Validator {
	return task.NewValidator(log, openai, cfg.ValidationModel, prober, cfg.ValidationTimeout)
}

func newRelayHandler(log zerolog.Logger, openai *provider.OpenAI, gemini *provider.Gemini) *handlers.RelayHandler {
	return handlers.NewRelayHandler(log, openai, gemini)
}
