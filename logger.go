package clix

import (
	"log/slog"
	"os"

	"github.com/clix-so/clix-go/pkg/types"
)

// slogAdapter adapts a *slog.Logger to the types.Logger interface used
// across the SDK.
type slogAdapter struct {
	logger *slog.Logger
}

var _ types.Logger = (*slogAdapter)(nil)

func (a *slogAdapter) Debug(msg string, args ...any) { a.logger.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }

func (a *slogAdapter) With(args ...any) types.Logger {
	return &slogAdapter{logger: a.logger.With(args...)}
}

// newLogger builds the default JSON logger at the given level. The returned
// LevelVar allows runtime level changes via SetLogLevel.
func newLogger(level string) (types.Logger, *slog.LevelVar) {
	lv := new(slog.LevelVar)
	lv.Set(parseLevel(level))

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lv})
	return &slogAdapter{logger: slog.New(handler).With("component", "clix")}, lv
}

// parseLevel maps a config log level string to a slog level. Unknown values
// fall back to info.
func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
