// Package logging bootstraps the global zerolog logger and hands out
// per-component child loggers. Output is a human-readable console writer
// when stdout is a TTY, structured JSON otherwise.
package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stillpond/framefuse/internal/config"
	"github.com/stillpond/framefuse/internal/term"
)

// Options captures the logger bootstrap parameters.
type Options struct {
	Verbose bool
	Color   config.ColorMode
	Output  io.Writer // Defaults to os.Stderr so the progress line owns stdout.
}

var (
	once sync.Once
	base zerolog.Logger
)

// Configure initialises the global logger exactly once. Later calls are
// no-ops, so tests can call it freely.
func Configure(opts Options) {
	once.Do(func() {
		level := zerolog.InfoLevel
		if opts.Verbose {
			level = zerolog.DebugLevel
		}
		if env := os.Getenv("LOG_LEVEL"); env != "" {
			if parsed, err := zerolog.ParseLevel(env); err == nil {
				level = parsed
			}
		}
		zerolog.SetGlobalLevel(level)
		zerolog.TimeFieldFormat = time.RFC3339

		out := opts.Output
		if out == nil {
			out = os.Stderr
		}

		writer := out
		if useConsole(opts.Color, out) {
			writer = zerolog.ConsoleWriter{
				Out:        out,
				TimeFormat: "15:04:05",
				NoColor:    opts.Color == config.ColorNever,
			}
		}

		base = zerolog.New(writer).With().Timestamp().Logger()
	})
}

// useConsole decides between the console writer and raw JSON output.
func useConsole(mode config.ColorMode, out io.Writer) bool {
	if mode == config.ColorAlways {
		return true
	}
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(f)
}

// Base returns the configured base logger.
func Base() zerolog.Logger {
	Configure(Options{})
	return base
}

// WithComponent returns a child logger annotated with the component name.
func WithComponent(component string) zerolog.Logger {
	return Base().With().Str("component", component).Logger()
}
