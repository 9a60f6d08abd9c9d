package observability

import (
	"io"
	"log/slog"

	"github.com/njchilds90/derivrecon/internal/config"
)

// NewLogger builds a JSON or text slog logger at the configured level.
func NewLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
