// Package logger builds the process-wide zerolog logger: human-readable
// console output during development, JSON lines everywhere else so the
// gateway's logs stay machine-parseable in deployment.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mcpchat/internal/config"
)

// New builds the root logger for the gateway. Every entry carries the
// service name and environment so fan-in aggregation can tell gateways
// apart.
func New(cfg *config.Config) zerolog.Logger {
	var out io.Writer = os.Stdout
	if cfg.Environment == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).
		Level(parseLevel(cfg.LogLevel)).
		With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("environment", cfg.Environment).
		Logger()
}

// parseLevel maps the configured level string onto a zerolog level,
// falling back to info on anything unrecognized.
func parseLevel(raw string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
