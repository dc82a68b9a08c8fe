package log

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
)

// Options configures the process-wide logger.
type Options struct {
	Verbosity int
	Format    string    // "text" or "json"
	Output    io.Writer // defaults to stderr
	NoTime    bool      // omit timestamps, for stable output
}

var (
	logger atomic.Pointer[slog.Logger]
	level  = new(slog.LevelVar)
)

func init() {
	Setup(Options{Verbosity: VerbosityWarn})
}

// Setup replaces the global logger. It is called once the CLI flags are
// parsed; until then warnings and errors go to stderr.
func Setup(opts Options) {
	level.Set(VerbosityToLevel(opts.Verbosity))

	l := slog.New(NewHandler(HandlerOptions{
		Level:  level,
		Format: opts.Format,
		Output: opts.Output,
		NoTime: opts.NoTime,
	}))
	logger.Store(l)
	slog.SetDefault(l)
}

// Verbosity returns the active -v level.
func Verbosity() int {
	return LevelToVerbosity(level.Level())
}

// Error logs at error level (v=0).
func Error(msg string, args ...any) {
	logger.Load().Error(msg, args...)
}

// Warn logs at warn level (v=1).
func Warn(msg string, args ...any) {
	logger.Load().Warn(msg, args...)
}

// Info logs at info level (v=2).
func Info(msg string, args ...any) {
	logger.Load().Info(msg, args...)
}

// Debug logs at debug level (v=3).
func Debug(msg string, args ...any) {
	logger.Load().Debug(msg, args...)
}

// Trace logs at trace level (v=4).
func Trace(msg string, args ...any) {
	logger.Load().Log(context.Background(), LevelTrace, msg, args...)
}

// V returns a logger that only logs if verbosity >= v.
//
//	log.V(3).Info("excluded", "path", rel)
func V(v int) *slog.Logger {
	if Verbosity() >= v {
		return logger.Load()
	}
	return slog.New(discardHandler{})
}

// Component returns a logger tagged with a relpack component: archive,
// registry, git or publish.
func Component(name string) *slog.Logger {
	return logger.Load().With("component", name)
}
