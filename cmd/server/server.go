package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"mcpchat/internal/config"
	"mcpchat/internal/domain/chat"
	"mcpchat/internal/domain/model"
	"mcpchat/internal/domain/task"
	"mcpchat/internal/infrastructure/logger"
	"mcpchat/internal/infrastructure/mcpprobe"
	"mcpchat/internal/infrastructure/observability"
	"mcpchat/internal/infrastructure/provider"
	"mcpchat/internal/interfaces/httpserver"
	"mcpchat/internal/interfaces/httpserver/handlers"
)

// Application bundles the wired HTTP server with the root logger.
type Application struct {
	httpServer *httpserver.HTTPServer
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HTTPServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	catalog, err := model.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load model catalog")
	}

	openai := provider.NewOpenAI(log, cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.StreamTimeout, cfg.CallTimeout, catalog)
	gemini := provider.NewGemini(log, cfg.GeminiAPIKey, cfg.GeminiBaseURL, cfg.StreamTimeout, cfg.CallTimeout)
	providers := provider.NewSet(openai, gemini)

	registry := task.NewRegistry(log)
	prober := mcpprobe.NewClient(cfg.ValidationTimeout)
	validator := task.NewValidator(log, openai, cfg.ValidationModel, prober, cfg.ValidationTimeout)
	sessions := chat.NewManager(log, providers, registry, catalog)
	sessions.StartReaper(ctx, cfg.SessionIdleTimeout)

	httpServer := httpserver.NewHTTPServer(
		cfg,
		log,
		handlers.NewRelayHandler(log, openai, gemini),
		handlers.NewMCPHandler(log, validator),
		handlers.NewTaskHandler(log, registry, sessions),
		handlers.NewSessionHandler(log, sessions, registry),
		handlers.NewModelHandler(catalog),
	)
	app := NewApplication(httpServer, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
