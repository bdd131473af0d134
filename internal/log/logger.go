package log

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Logger is the logging surface shared by every package of the console.
type Logger interface {
	Info(msg string, kv ...interface{})
	Warn(msg string, kv ...interface{})
	Error(msg string, kv ...interface{})
	Debug(msg string, kv ...interface{})
	// With returns a child logger that prefixes every entry with kv.
	With(kv ...interface{}) Logger
}

// Level represents log verbosity.
type Level int

const (
	ErrorLevel Level = iota
	WarnLevel
	InfoLevel
	DebugLevel
)

// String returns canonical lower-case representation.
func (l Level) String() string {
	switch l {
	case ErrorLevel:
		return "error"
	case WarnLevel:
		return "warn"
	case InfoLevel:
		return "info"
	case DebugLevel:
		return "debug"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel parses a string into a Level, case-insensitively.
func ParseLevel(s string) (Level, error) {
	normalized := strings.TrimSpace(strings.ToLower(s))
	switch normalized {
	case "", "info":
		return InfoLevel, nil
	case "error", "err":
		return ErrorLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "debug", "dbg":
		return DebugLevel, nil
	default:
		return InfoLevel, errors.New("unknown log level: " + s)
	}
}

// SimpleLogger writes one key=value line per entry.
type SimpleLogger struct {
	mu     *sync.Mutex
	lvl    *Level
	out    *log.Logger
	clock  func() time.Time
	fields []interface{}
}

// NewSimple creates a SimpleLogger writing to stderr, keeping stdout free for
// command output.
func NewSimple(l Level) *SimpleLogger {
	return &SimpleLogger{
		mu:    &sync.Mutex{},
		lvl:   &l,
		out:   log.New(os.Stderr, "", 0),
		clock: time.Now,
	}
}

// WithWriter redirects output (used in tests).
func (s *SimpleLogger) WithWriter(w io.Writer) *SimpleLogger {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out = log.New(w, "", 0)
	return s
}

// With returns a child sharing the writer and level of s.
func (s *SimpleLogger) With(kv ...interface{}) Logger {
	s.mu.Lock()
	defer s.mu.Unlock()
	fields := make([]interface{}, 0, len(s.fields)+len(kv))
	fields = append(fields, s.fields...)
	fields = append(fields, evenPairs(kv)...)
	return &SimpleLogger{mu: s.mu, lvl: s.lvl, out: s.out, clock: s.clock, fields: fields}
}

func evenPairs(kv []interface{}) []interface{} {
	if len(kv)%2 != 0 {
		return append(kv, "_odd")
	}
	return kv
}

func (s *SimpleLogger) log(level Level, tag, msg string, kv []interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if level > *s.lvl {
		return
	}
	var b strings.Builder
	b.WriteString(s.clock().Format(time.RFC3339Nano))
	b.WriteString(" [")
	b.WriteString(tag)
	b.WriteString("] ")
	b.WriteString(msg)
	all := append(append([]interface{}{}, s.fields...), evenPairs(kv)...)
	for i := 0; i < len(all); i += 2 {
		fmt.Fprintf(&b, " %v=%v", all[i], all[i+1])
	}
	s.out.Print(b.String())
}

func (s *SimpleLogger) Info(msg string, kv ...interface{})  { s.log(InfoLevel, "INFO", msg, kv) }
func (s *SimpleLogger) Warn(msg string, kv ...interface{})  { s.log(WarnLevel, "WARN", msg, kv) }
func (s *SimpleLogger) Error(msg string, kv ...interface{}) { s.log(ErrorLevel, "ERROR", msg, kv) }
func (s *SimpleLogger) Debug(msg string, kv ...interface{}) { s.log(DebugLevel, "DEBUG", msg, kv) }

// SetLevel changes the verbosity of s and of every child created from it.
func (s *SimpleLogger) SetLevel(l Level) {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.lvl = l
}

// Nop discards everything.
type Nop struct{}

func (Nop) Info(string, ...interface{})  {}
func (Nop) Warn(string, ...interface{})  {}
func (Nop) Error(string, ...interface{}) {}
func (Nop) Debug(string, ...interface{}) {}
func (n Nop) With(...interface{}) Logger { return n }

var (
	globalMu     sync.RWMutex
	globalLogger Logger = NewSimple(InfoLevel)
)

// SetGlobal sets the process-wide logger.
func SetGlobal(l Logger) {
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()
}

// Global returns the process-wide logger.
func Global() Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	return l
}
