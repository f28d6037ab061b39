package app

import (
	"log/slog"
	"os"
)

// NewLogger returns a slog.Logger honouring LOG_FORMAT and LOG_LEVEL, tagged
// with the service name and environment.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	env := "development"
	if cfg != nil {
		var level slog.Level
		if err := level.UnmarshalText([]byte(cfg.LogLevel)); err == nil {
			opts.Level = level
		}
		env = cfg.AppEnv
	}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler).With(slog.String("service", "inkwell"), slog.String("env", env))
}
