package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger at level writing to every w. Unknown levels mean info.
func New(level string, w ...io.Writer) zerolog.Logger {
	if len(w) == 0 {
		w = []io.Writer{os.Stdout}
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.MultiLevelWriter(w...)).Level(lvl).With().Timestamp().Logger()
}

// Console renders human-readable lines on out.
func Console(out io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.DateTime}
}

// WithFile tees a console stream to dir/name in plain text, creating dir if
// needed. The caller closes the returned file.
func WithFile(level string, out io.Writer, dir, name string) (zerolog.Logger, *os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("open log file: %w", err)
	}
	file := zerolog.ConsoleWriter{Out: f, NoColor: true, TimeFormat: time.DateTime}
	return New(level, Console(out), file), f, nil
}
