// Package logger provides leveled, structured logging for roost components.
//
// Components accept a Logger and attach their own fields:
//
//	log := logger.New(logger.LevelInfo, logger.FormatText, os.Stderr)
//	log = log.WithFields(logger.F("component", "builder"))
//	log.Warn("unknown preset", logger.F("preset", name))
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents the logging level
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelSilent
)

// String returns the string representation of the level
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelSilent:
		return "SILENT"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config string (debug, info, warn, error, silent) to a Level
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "silent", "off":
		return LevelSilent, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Format selects the line encoding
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat maps a config string to a Format
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("unknown log format %q", s)
	}
}

// Logger provides structured logging with configurable levels
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	WithFields(fields ...Field) Logger
	SetLevel(level Level)
}

// Field represents a structured log field
type Field struct {
	Key   string
	Value any
}

// F is a convenience function for creating fields
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Err is shorthand for F("error", err)
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// sink is shared by a logger and every child created with WithFields,
// so concurrent writers never interleave lines.
type sink struct {
	mu     sync.Mutex
	out    io.Writer
	format Format
	level  Level
	now    func() time.Time
}

type standardLogger struct {
	sink   *sink
	fields []Field
}

// New creates a logger with the given level, format and output
func New(level Level, format Format, out io.Writer) Logger {
	if out == nil {
		out = os.Stderr
	}
	if format == "" {
		format = FormatText
	}
	return &standardLogger{
		sink: &sink{out: out, format: format, level: level, now: time.Now},
	}
}

// NewLogger creates a text logger with the specified level and output
func NewLogger(level Level, out io.Writer) Logger {
	return New(level, FormatText, out)
}

// NewSilentLogger creates a logger that outputs nothing
func NewSilentLogger() Logger {
	return New(LevelSilent, FormatText, io.Discard)
}

// SetLevel sets the minimum logging level for this logger and its children
func (l *standardLogger) SetLevel(level Level) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.level = level
}

// WithFields returns a new logger with additional fields
func (l *standardLogger) WithFields(fields ...Field) Logger {
	merged := make([]Field, len(l.fields)+len(fields))
	copy(merged, l.fields)
	copy(merged[len(l.fields):], fields)

	return &standardLogger{sink: l.sink, fields: merged}
}

func (l *standardLogger) Debug(msg string, fields ...Field) {
	l.log(LevelDebug, msg, fields)
}

func (l *standardLogger) Info(msg string, fields ...Field) {
	l.log(LevelInfo, msg, fields)
}

func (l *standardLogger) Warn(msg string, fields ...Field) {
	l.log(LevelWarn, msg, fields)
}

func (l *standardLogger) Error(msg string, fields ...Field) {
	l.log(LevelError, msg, fields)
}

func (l *standardLogger) log(level Level, msg string, fields []Field) {
	s := l.sink
	s.mu.Lock()
	defer s.mu.Unlock()

	if level < s.level || s.level == LevelSilent {
		return
	}

	all := make([]Field, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)
	all = append(all, fields...)

	var line string
	if s.format == FormatJSON {
		line = encodeJSON(s.now(), level, msg, all)
	} else {
		line = encodeText(s.now(), level, msg, all)
	}

	_, _ = io.WriteString(s.out, line)
}

func encodeText(ts time.Time, level Level, msg string, fields []Field) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] %s", ts.Format("2006-01-02 15:04:05"), level, msg)

	if len(fields) > 0 {
		b.WriteString(" |")
		for _, f := range fields {
			fmt.Fprintf(&b, " %s=%v", f.Key, fieldValue(f.Value))
		}
	}

	b.WriteByte('\n')
	return b.String()
}

func encodeJSON(ts time.Time, level Level, msg string, fields []Field) string {
	entry := make(map[string]any, len(fields)+3)
	for _, f := range fields {
		entry[f.Key] = fieldValue(f.Value)
	}
	entry["time"] = ts.UTC().Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["msg"] = msg

	data, err := json.Marshal(entry)
	if err != nil {
		return encodeText(ts, level, msg, fields)
	}
	return string(data) + "\n"
}

// fieldValue renders errors as their message; json.Marshal would emit {}
func fieldValue(v any) any {
	if err, ok := v.(error); ok && err != nil {
		return err.Error()
	}
	return v
}
