package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level controls which messages a Logger emits
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

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
	}
	return "UNKNOWN"
}

// ParseLevel converts a level name to a Level, defaulting to info
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Field is a single structured key/value pair attached to a log entry
type Field struct {
	Key   string
	Value interface{}
}

// Option modifies a log entry before it is written
type Option func(*entry)

type entry struct {
	fields []Field
}

// WithField attaches a single key/value pair to a log entry
func WithField(key string, value interface{}) Option {
	return func(e *entry) {
		e.fields = append(e.fields, Field{Key: key, Value: value})
	}
}

// WithFields attaches multiple key/value pairs to a log entry.
// Keys are emitted in sorted order so output is deterministic.
func WithFields(fields map[string]interface{}) Option {
	return func(e *entry) {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			e.fields = append(e.fields, Field{Key: k, Value: fields[k]})
		}
	}
}

// Logger writes leveled, structured log lines
type Logger struct {
	mu    sync.Mutex
	level Level
	out   io.Writer
}

// New creates a logger writing to stderr at the given level
func New(level Level) *Logger {
	return &Logger{level: level, out: os.Stderr}
}

// NewWithOutput creates a logger writing to the given writer
func NewWithOutput(level Level, out io.Writer) *Logger {
	return &Logger{level: level, out: out}
}

func (l *Logger) Debug(msg string, opts ...Option) { l.log(LevelDebug, msg, opts...) }
func (l *Logger) Info(msg string, opts ...Option)  { l.log(LevelInfo, msg, opts...) }
func (l *Logger) Warn(msg string, opts ...Option)  { l.log(LevelWarn, msg, opts...) }
func (l *Logger) Error(msg string, opts ...Option) { l.log(LevelError, msg, opts...) }

func (l *Logger) log(level Level, msg string, opts ...Option) {
	if level < l.level {
		return
	}

	e := &entry{}
	for _, opt := range opts {
		opt(e)
	}

	var b strings.Builder
	b.WriteString(time.Now().UTC().Format(time.RFC3339))
	b.WriteString(" [")
	b.WriteString(level.String())
	b.WriteString("] ")
	b.WriteString(msg)
	for _, f := range e.fields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	b.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.out, b.String())
}
