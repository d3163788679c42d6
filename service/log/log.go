package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/ethereum/go-ethereum/log"
)

type FormatType string

const (
	FormatText     FormatType = "text"
	FormatTerminal FormatType = "terminal"
	FormatLogFmt   FormatType = "logfmt"
	FormatJSON     FormatType = "json"
)

var formatTypes = []FormatType{FormatText, FormatTerminal, FormatLogFmt, FormatJSON}

func (f FormatType) String() string {
	return string(f)
}

// Set implements flag.Value.
func (f *FormatType) Set(value string) error {
	for _, v := range formatTypes {
		if string(v) == value {
			*f = v
			return nil
		}
	}
	return fmt.Errorf("unrecognized log-format: %q", value)
}

// CLIConfig configures the root logger of a tool.
type CLIConfig struct {
	Level  slog.Level
	Color  bool
	Format FormatType
	Pid    bool
}

// DefaultCLIConfig logs at info level, in terminal format,
// with color only when stdout is a terminal.
func DefaultCLIConfig() CLIConfig {
	return CLIConfig{
		Level:  log.LevelInfo,
		Color:  isatty.IsTerminal(os.Stdout.Fd()),
		Format: FormatText,
	}
}

// NewLogger creates a logger that writes to w.
func NewLogger(w io.Writer, cfg CLIConfig) log.Logger {
	h := NewLogHandler(w, cfg)
	l := log.NewLogger(h)
	if cfg.Pid {
		l = l.With("pid", os.Getpid())
	}
	return l
}

// NewLogHandler builds the slog handler for the configured format.
func NewLogHandler(w io.Writer, cfg CLIConfig) slog.Handler {
	switch cfg.Format {
	case FormatJSON:
		return log.JSONHandlerWithLevel(w, cfg.Level)
	case FormatLogFmt:
		return log.LogfmtHandlerWithLevel(w, cfg.Level)
	case FormatText:
		// text picks terminal output when attached to a terminal, logfmt otherwise
		if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			return log.NewTerminalHandlerWithLevel(w, cfg.Level, cfg.Color)
		}
		return log.LogfmtHandlerWithLevel(w, cfg.Level)
	default:
		return log.NewTerminalHandlerWithLevel(w, cfg.Level, cfg.Color)
	}
}

// ParseLevel parses a level name as used on the command line.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "trace":
		return log.LevelTrace, nil
	case "debug":
		return log.LevelDebug, nil
	case "info":
		return log.LevelInfo, nil
	case "warn", "warning":
		return log.LevelWarn, nil
	case "error", "eror":
		return log.LevelError, nil
	case "crit":
		return log.LevelCrit, nil
	default:
		return 0, fmt.Errorf("unknown level: %q", s)
	}
}

// SetGlobalLogHandler sets the go-ethereum default logger,
// so that logs of libraries end up in the same place.
func SetGlobalLogHandler(h slog.Handler) {
	log.SetDefault(log.NewLogger(h))
}
