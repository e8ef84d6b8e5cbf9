package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	ferrors "github.com/hazae41/glace/internal/foundation/errors"
)

// loadEnvFile loads the first of .env and .env.local that parses. Existing
// process variables are never overwritten.
func loadEnvFile() {
	for _, name := range []string{".env", ".env.local"} {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			slog.Warn("Failed to load env file", "file", name, "error", err)
			continue
		}
		slog.Debug("Loaded environment variables", "file", name)
		return
	}
}

// applyEnv overlays GLACE_* variables. NODE_ENV selects the mode only when
// neither the file nor GLACE_MODE did.
func applyEnv(c *Config) error {
	if v := os.Getenv("GLACE_INPUT"); v != "" {
		c.Input = v
	}
	if v := os.Getenv("GLACE_OUTPUT"); v != "" {
		c.Output = v
	}
	if v := os.Getenv("GLACE_LOG_LEVEL"); v != "" {
		c.Log.Level = LogLevel(v)
	}
	if v := os.Getenv("OTEL_TRACES_EXPORTER"); v != "" {
		c.Tracing.Exporter = TraceExporter(v)
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Tracing.Endpoint = v
	}
	raw := string(c.Mode)
	if v := os.Getenv("GLACE_MODE"); v != "" {
		raw = v
	} else if raw == "" && os.Getenv("NODE_ENV") == "development" {
		raw = string(ModeDevelopment)
	}
	mode, err := ParseMode(raw)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "invalid mode").Fatal().UserAction().Build()
	}
	c.Mode = mode
	return nil
}
