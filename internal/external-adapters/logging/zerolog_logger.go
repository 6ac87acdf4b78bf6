// Package logging adapts zerolog to the domain Logger interface.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ochairo/threatfeed/internal/domain/interfaces"
)

// Output formats
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// ZerologLogger implements interfaces.Logger on top of zerolog
type ZerologLogger struct {
	log zerolog.Logger
}

// New creates a logger writing to w. format is console or json; level is
// one of error, warn, info, debug, trace.
func New(w io.Writer, format, level string) (*ZerologLogger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, err
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if format != FormatJSON {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	return &ZerologLogger{
		log: zerolog.New(w).Level(lvl).With().Timestamp().Logger(),
	}, nil
}

// Debug logs debug-level messages
func (l *ZerologLogger) Debug(msg string, fields ...interfaces.Field) {
	write(l.log.Debug(), msg, fields)
}

// Info logs informational messages
func (l *ZerologLogger) Info(msg string, fields ...interfaces.Field) {
	write(l.log.Info(), msg, fields)
}

// Warn logs warning messages
func (l *ZerologLogger) Warn(msg string, fields ...interfaces.Field) {
	write(l.log.Warn(), msg, fields)
}

// Error logs error messages
func (l *ZerologLogger) Error(msg string, fields ...interfaces.Field) {
	write(l.log.Error(), msg, fields)
}

func write(event *zerolog.Event, msg string, fields []interfaces.Field) {
	if event == nil {
		return
	}
	for _, f := range fields {
		switch v := f.Value.(type) {
		case error:
			event = event.AnErr(f.Key, v)
		case time.Duration:
			event = event.Dur(f.Key, v)
		default:
			event = event.Interface(f.Key, v)
		}
	}
	event.Msg(msg)
}
