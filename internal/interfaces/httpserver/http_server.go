// Package httpserver assembles the gin engine: middleware stack, public
// routes and the v1 API surface.
package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"mcpchat/internal/config"
	"mcpchat/internal/interfaces/httpserver/handlers"
	middleware "mcpchat/internal/interfaces/httpserver/middlewares"
)

// HTTPServer hosts the relay, registry, session and catalog endpoints.
type HTTPServer struct {
	engine *gin.Engine
	log    zerolog.Logger
	config *config.Config

	relay    *handlers.RelayHandler
	mcp      *handlers.MCPHandler
	tasks    *handlers.TaskHandler
	sessions *handlers.SessionHandler
	models   *handlers.ModelHandler
}

// NewHTTPServer wires the middleware stack and route groups.
func NewHTTPServer(
	cfg *config.Config,
	log zerolog.Logger,
	relay *handlers.RelayHandler,
	mcp *handlers.MCPHandler,
	tasks *handlers.TaskHandler,
	sessions *handlers.SessionHandler,
	models *handlers.ModelHandler,
) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)
	server := &HTTPServer{
		engine:   gin.New(),
		log:      log,
		config:   cfg,
		relay:    relay,
		mcp:      mcp,
		tasks:    tasks,
		sessions: sessions,
		models:   models,
	}

	server.engine.Use(gin.Recovery())
	server.engine.Use(middleware.RequestID())
	server.engine.Use(middleware.LoggingMiddleware(log))
	server.engine.Use(middleware.MetricsMiddleware())
	server.engine.Use(middleware.CORSMiddleware())

	server.engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": cfg.ServiceName, "status": "ok"})
	})
	server.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	server.engine.GET("/readyz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	server.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	server.bindRoutes()
	return server
}

func (s *HTTPServer) bindRoutes() {
	v1 := s.engine.Group("/v1")

	v1.POST("/relay/:provider", s.relay.Relay)
	v1.POST("/mcp/tools", s.mcp.ValidateServer)

	tasks := v1.Group("/tasks")
	tasks.GET("", s.tasks.List)
	tasks.POST("", s.tasks.Create)
	tasks.PUT("/active/chat", s.tasks.SetChatActive)
	tasks.PUT("/active/config", s.tasks.SetConfigActive)
	tasks.GET("/:id", s.tasks.Get)
	tasks.PATCH("/:id", s.tasks.Update)
	tasks.DELETE("/:id", s.tasks.Delete)
	tasks.POST("/:id/servers", s.tasks.AddServer)
	tasks.DELETE("/:id/servers/:label", s.tasks.RemoveServer)

	sessions := v1.Group("/sessions")
	sessions.POST("", s.sessions.Create)
	sessions.GET("/:id", s.sessions.Get)
	sessions.POST("/:id/messages", s.sessions.SendMessage)
	sessions.POST("/:id/approval", s.sessions.Approval)
	sessions.POST("/:id/stop", s.sessions.Stop)
	sessions.POST("/:id/reset", s.sessions.Reset)
	sessions.PUT("/:id/task", s.sessions.SwitchTask)
	sessions.DELETE("/:id", s.sessions.Delete)

	v1.GET("/models", s.models.List)
}

// Engine exposes the router for tests.
func (s *HTTPServer) Engine() *gin.Engine {
	return s.engine
}

// Run serves until ctx is cancelled, then drains with the configured
// shutdown timeout.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.config.Addr(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	s.log.Info().Msg("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}
