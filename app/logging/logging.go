package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxSizeMB  = 10
	maxBackups = 5
	maxAgeDays = 30
)

type Options struct {
	Debug   bool
	LogFile string // optional; rotated by size
}

// Setup installs the default slog logger writing to stdout and, when a log
// file is configured, to a rotated file as well. The returned closer flushes
// and closes the file.
func Setup(opts Options) (io.Closer, error) {
	return setup(os.Stdout, opts)
}

func setup(stdout io.Writer, opts Options) (io.Closer, error) {
	var out io.Writer = stdout
	var closer io.Closer = nopCloser{}

	if opts.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(opts.LogFile), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		rotator := &lumberjack.Logger{
			Filename:   opts.LogFile,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(stdout, rotator)
		closer = rotator
	}

	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})))

	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
