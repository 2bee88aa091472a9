// Package logger provides the package-level Tracef/Debugf/Infof/Warnf/
// Errorf functions used throughout gatorinfs, backed by log/slog with a
// severity-gated, text-or-json handler. Writing to a file routes through
// an AsyncLogger in front of lumberjack.Logger so a slow disk never stalls
// an Acquire/Release critical section.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/RajS18/gatorinfs/cfg"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Custom severities, ordered like slog's but with an extra TRACE rung
// below Debug and an OFF ceiling above Error.
const (
	LevelTrace slog.Level = -8
	LevelDebug slog.Level = slog.LevelDebug
	LevelInfo  slog.Level = slog.LevelInfo
	LevelWarn  slog.Level = slog.LevelWarn
	LevelError slog.Level = slog.LevelError
	LevelOff   slog.Level = 12
)

func severityName(l slog.Level) string {
	switch {
	case l >= LevelOff:
		return "OFF"
	case l >= LevelError:
		return "ERROR"
	case l >= LevelWarn:
		return "WARNING"
	case l >= LevelInfo:
		return "INFO"
	case l >= LevelDebug:
		return "DEBUG"
	default:
		return "TRACE"
	}
}

func toSlogLevel(s cfg.Severity) slog.Level {
	switch s {
	case cfg.SeverityTrace:
		return LevelTrace
	case cfg.SeverityDebug:
		return LevelDebug
	case cfg.SeverityWarning:
		return LevelWarn
	case cfg.SeverityError:
		return LevelError
	case cfg.SeverityOff:
		return LevelOff
	default:
		return LevelInfo
	}
}

// handler renders "time=... severity=... message=..." for text and a
// single-line JSON object for json, matching what the shell and log
// scrapers in this repo expect.
type handler struct {
	mu     sync.Mutex
	w      io.Writer
	level  *slog.LevelVar
	format string
	prefix string
}

func newHandler(w io.Writer, level *slog.LevelVar, format, prefix string) *handler {
	return &handler{w: w, level: level, format: format, prefix: prefix}
}

func (h *handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *handler) Handle(_ context.Context, r slog.Record) error {
	sev := severityName(r.Level)
	msg := h.prefix + r.Message
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.format == "json" {
		_, err := fmt.Fprintf(h.w, "{\"timestamp\":{\"seconds\":%d,\"nanos\":%d},\"severity\":%q,\"message\":%q}\n",
			r.Time.Unix(), r.Time.Nanosecond(), sev, msg)
		return err
	}
	_, err := fmt.Fprintf(h.w, "time=%q severity=%s message=%q\n", r.Time.Format("2006/01/02 15:04:05.000000"), sev, msg)
	return err
}

func (h *handler) WithAttrs(_ []slog.Attr) slog.Handler { return h }
func (h *handler) WithGroup(_ string) slog.Handler      { return h }

var (
	mu            sync.Mutex
	programLevel  = new(slog.LevelVar)
	defaultLogger = slog.New(newHandler(os.Stderr, programLevel, "text", ""))
	closeFn       = func() error { return nil }
)

// Init wires the package-level logger from c: severity, text/json format,
// and an optional rotated log file. The returned func flushes and closes
// any background writer; callers should defer it.
func Init(c cfg.Config) (func() error, error) {
	mu.Lock()
	defer mu.Unlock()

	programLevel.Set(toSlogLevel(c.LogSeverity))

	format := c.LogFormat
	if format == "" {
		format = "text"
	}

	var w io.Writer = os.Stderr
	closeFn = func() error { return nil }
	if c.LogFile != "" {
		lj := &lumberjack.Logger{Filename: c.LogFile, MaxSize: 100, MaxBackups: 5, Compress: true}
		async := NewAsyncLogger(lj, 1024)
		w = async
		closeFn = async.Close
	}

	defaultLogger = slog.New(newHandler(w, programLevel, format, ""))
	return closeFn, nil
}

// SetLogFormat switches the active handler's output format without
// touching severity or destination.
func SetLogFormat(format string) {
	mu.Lock()
	defer mu.Unlock()
	h, ok := defaultLogger.Handler().(*handler)
	if !ok {
		return
	}
	h.format = format
}

func log(level slog.Level, format string, v ...any) {
	mu.Lock()
	l := defaultLogger
	mu.Unlock()
	l.Log(context.Background(), level, fmt.Sprintf(format, v...))
}

func Tracef(format string, v ...any) { log(LevelTrace, format, v...) }
func Debugf(format string, v ...any) { log(LevelDebug, format, v...) }
func Infof(format string, v ...any)  { log(LevelInfo, format, v...) }
func Warnf(format string, v ...any)  { log(LevelWarn, format, v...) }
func Errorf(format string, v ...any) { log(LevelError, format, v...) }
