package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	gferrors "github.com/YuminosukeSato/geofit/pkg/errors"
)

// zerologLogger is the default Logger backend.
type zerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger returns a Logger writing JSON lines to w.
func NewZerologLogger(w io.Writer, level Level) Logger {
	zl := zerolog.New(w).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &zerologLogger{zl: zl}
}

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() Logger {
	return &zerologLogger{zl: zerolog.Nop()}
}

func (l *zerologLogger) Debug(msg string, fields ...any) { emit(l.zl.Debug(), msg, fields) }
func (l *zerologLogger) Info(msg string, fields ...any)  { emit(l.zl.Info(), msg, fields) }
func (l *zerologLogger) Warn(msg string, fields ...any)  { emit(l.zl.Warn(), msg, fields) }
func (l *zerologLogger) Error(msg string, fields ...any) { emit(l.zl.Error(), msg, fields) }

func (l *zerologLogger) With(fields ...any) Logger {
	c := l.zl.With()
	forEachPair(fields, func(key string, value any) {
		if err, ok := value.(error); ok {
			c = c.AnErr(key, err)
			return
		}
		c = c.Interface(key, value)
	})
	return &zerologLogger{zl: c.Logger()}
}

func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	return l.zl.GetLevel() <= toZerologLevel(level)
}

// emit is a no-op when zerolog returned a nil (disabled) event.
func emit(e *zerolog.Event, msg string, fields []any) {
	if e == nil {
		return
	}
	forEachPair(fields, func(key string, value any) {
		switch v := value.(type) {
		case zerolog.LogObjectMarshaler:
			e.Object(key, v)
		case error:
			e.AnErr(key, v)
			if st := extractStacktrace(v); st != "" {
				e.Str(StacktraceKey, st)
			}
		default:
			e.Interface(key, v)
		}
	})
	e.Msg(msg)
}

// forEachPair walks key/value pairs; a trailing key without value is
// reported under "!BADKEY" like slog does.
func forEachPair(fields []any, fn func(key string, value any)) {
	for i := 0; i < len(fields); i += 2 {
		if i+1 >= len(fields) {
			fn("!BADKEY", fields[i])
			return
		}
		fn(fmt.Sprint(fields[i]), fields[i+1])
	}
}

func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// ToLogLevel parses "debug", "info", "warn" or "error".
func ToLogLevel(level string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, gferrors.NewValidationError("log-level", "must be one of debug, info, warn, error", level)
	}
}

// ===========================================================================
//
//	process-wide provider
//
// ===========================================================================

var _ LoggerProvider = (*provider)(nil)

type provider struct {
	mu      sync.RWMutex
	out     io.Writer
	level   Level
	console bool
}

var defaultProvider = &provider{out: os.Stderr, level: LevelInfo}

func init() {
	gferrors.SetZerologWarnFunc(func(w error) {
		GetLoggerWithName("warnings").Warn(w.Error(), "warning", w)
	})
}

func (p *provider) GetLogger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := p.out
	if p.console {
		out = zerolog.ConsoleWriter{Out: p.out, TimeFormat: time.RFC3339}
	}
	return NewZerologLogger(out, p.level)
}

func (p *provider) GetLoggerWithName(name string) Logger {
	return p.GetLogger().With(ComponentKey, name)
}

func (p *provider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
}

// GetLogger returns a logger from the process-wide provider.
func GetLogger() Logger {
	return defaultProvider.GetLogger()
}

// GetLoggerWithName returns a logger tagged with ComponentKey=name.
func GetLoggerWithName(name string) Logger {
	return defaultProvider.GetLoggerWithName(name)
}

// SetLevel changes the minimum level for loggers created afterwards.
func SetLevel(level Level) {
	defaultProvider.SetLevel(level)
}

// SetOutput redirects loggers created afterwards to w.
func SetOutput(w io.Writer) {
	defaultProvider.mu.Lock()
	defer defaultProvider.mu.Unlock()
	defaultProvider.out = w
}

// ParseFormat reports whether format selects console output. Accepted
// values are "json" (or empty) and "console", in any case.
func ParseFormat(format string) (console bool, err error) {
	switch strings.ToLower(format) {
	case "", "json":
		return false, nil
	case "console":
		return true, nil
	default:
		return false, gferrors.NewValidationError("log.format", "must be json or console", format)
	}
}

// Setup configures the process-wide provider. format is "json" or "console".
func Setup(level, format string, w io.Writer) error {
	lvl, err := ToLogLevel(level)
	if err != nil {
		return err
	}

	console, err := ParseFormat(format)
	if err != nil {
		return err
	}

	defaultProvider.mu.Lock()
	defer defaultProvider.mu.Unlock()
	defaultProvider.level = lvl
	defaultProvider.console = console
	if w != nil {
		defaultProvider.out = w
	}
	return nil
}
