package transporters

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"socialfeed/pkg/log"
)

// Console renders entries for humans through zerolog's ConsoleWriter.
// Meant for local development; use JSON in production.
type Console struct {
	zl zerolog.Logger
}

// NewConsole returns a console transporter writing to os.Stderr.
func NewConsole() *Console {
	return NewConsoleWithWriter(os.Stderr, false)
}

// NewConsoleWithWriter writes to w. noColor disables ANSI escapes.
func NewConsoleWithWriter(w io.Writer, noColor bool) *Console {
	cw := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    noColor,
		TimeFormat: time.RFC3339,
	}
	return &Console{zl: zerolog.New(cw).Level(zerolog.TraceLevel)}
}

func (c *Console) Name() string { return "console" }

func (c *Console) Write(entry log.Entry) error {
	ev := c.zl.WithLevel(zerologLevel(entry.Level)).Time(zerolog.TimestampFieldName, entry.Timestamp)
	if entry.Caller != "" {
		ev = ev.Str(zerolog.CallerFieldName, entry.Caller)
	}
	if entry.RequestID != "" {
		ev = ev.Str("request_id", entry.RequestID)
	}
	for k, v := range entry.Fields {
		if err, ok := v.(error); ok {
			ev = ev.AnErr(k, err)
			continue
		}
		ev = ev.Interface(k, v)
	}
	ev.Msg(entry.Message)
	return nil
}

func (c *Console) Close() error { return nil }

func zerologLevel(l log.Level) zerolog.Level {
	switch l {
	case log.LevelDebug:
		return zerolog.DebugLevel
	case log.LevelWarn:
		return zerolog.WarnLevel
	case log.LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
