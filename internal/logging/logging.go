// Package logging builds the process logger: slog records written to the
// console, a size-rotated log file, or both.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LevelCritical sits above slog.LevelError.
const LevelCritical = slog.Level(12)

// Rotation limits for the log file.
const (
	MaxSizeMB  = 10
	MaxBackups = 5
)

// Options selects where and how records are written.
type Options struct {
	// Level is one of DEBUG, INFO, WARNING, ERROR, CRITICAL. Unknown names mean INFO.
	Level string
	// FilePath is the rotating log file; empty disables file output.
	FilePath string
	// ConsoleOutput enables writing to Console.
	ConsoleOutput bool
	// Console defaults to os.Stderr.
	Console io.Writer
	// JSON selects the JSON handler instead of text.
	JSON bool
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARNING", "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	case "CRITICAL":
		return LevelCritical
	default:
		return slog.LevelInfo
	}
}

// OnAWS reports whether the process runs in an AWS environment, where logs
// are collected as JSON.
func OnAWS() bool {
	return os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" || os.Getenv("AWS_REGION") != ""
}

// New builds a logger for opts. The returned closer releases the log file
// and must be called on shutdown.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	var writers []io.Writer
	var closer io.Closer = nopCloser{}

	if opts.ConsoleOutput {
		console := opts.Console
		if console == nil {
			console = os.Stderr
		}
		writers = append(writers, console)
	}

	if opts.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0o755); err != nil {
			return nil, nil, errors.Wrapf(err, "failed to create log directory for %s", opts.FilePath)
		}
		file := &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    MaxSizeMB,
			MaxBackups: MaxBackups,
		}
		writers = append(writers, file)
		closer = file
	}

	var w io.Writer
	switch len(writers) {
	case 0:
		w = io.Discard
	case 1:
		w = writers[0]
	default:
		w = io.MultiWriter(writers...)
	}

	handlerOpts := &slog.HandlerOptions{
		Level:       ParseLevel(opts.Level),
		ReplaceAttr: replaceLevelName,
	}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}

	return slog.New(handler), closer, nil
}

func replaceLevelName(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey || len(groups) > 0 {
		return a
	}
	level, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}
	switch {
	case level >= LevelCritical:
		a.Value = slog.StringValue("CRITICAL")
	case level >= slog.LevelError:
		a.Value = slog.StringValue("ERROR")
	case level >= slog.LevelWarn:
		a.Value = slog.StringValue("WARNING")
	}
	return a
}

// Banner logs the program name and runtime details at startup.
func Banner(logger *slog.Logger, name, version string) {
	logger.Info("starting "+name,
		"version", version,
		"go_version", runtime.Version(),
		"os", runtime.GOOS,
		"arch", runtime.GOARCH,
		"pid", os.Getpid(),
	)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
