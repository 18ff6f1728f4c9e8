// Package logging wires zerolog with secret redaction applied to every
// emitted line.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/ragfence/ragfence/internal/redact"
)

// redactingWriter scrubs each log line before passing it on.
type redactingWriter struct {
	out io.Writer
}

func (w redactingWriter) Write(p []byte) (int, error) {
	if _, err := w.out.Write([]byte(redact.String(string(p)))); err != nil {
		return 0, err
	}
	return len(p), nil
}

// New builds the process logger at the given level. Unknown levels fall
// back to info.
func New(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(redactingWriter{out: os.Stdout}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}
