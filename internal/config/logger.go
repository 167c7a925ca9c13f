package config

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger logs JSON at info level in production and text with source
// locations at debug level elsewhere.
func (c *Config) NewLogger() *slog.Logger {
	return c.newLogger(os.Stdout)
}

func (c *Config) newLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		AddSource: c.IsDevelopment(),
		Level:     slog.LevelDebug,
	}
	if c.IsProduction() {
		opts.Level = slog.LevelInfo
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
