package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

// String returns string representation of log level
func (l LogLevel) String() string {
	if l < DebugLevel || int(l) >= len(levelNames) {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel converts a level name into a LogLevel. An empty name is INFO.
func ParseLevel(name string) (LogLevel, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	switch upper {
	case "":
		return InfoLevel, nil
	case "WARNING":
		return WarnLevel, nil
	}
	for i, n := range levelNames {
		if n == upper {
			return LogLevel(i), nil
		}
	}
	return InfoLevel, fmt.Errorf("unknown log level %q", name)
}

// Fields represents structured log fields
type Fields map[string]interface{}

type contextKey string

const (
	buildIDKey   contextKey = "build_id"
	requestIDKey contextKey = "request_id"
)

// WithBuildID attaches a model build identifier to the context.
func WithBuildID(ctx context.Context, buildID string) context.Context {
	return context.WithValue(ctx, buildIDKey, buildID)
}

// BuildIDFrom returns the build identifier carried by ctx, if any.
func BuildIDFrom(ctx context.Context) string {
	return stringValue(ctx, buildIDKey)
}

// WithRequestID attaches an HTTP request identifier to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFrom returns the request identifier carried by ctx, if any.
func RequestIDFrom(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// StructuredLogger writes one JSON object per line. Build and request IDs
// are taken from the context.
type StructuredLogger struct {
	mu       sync.Mutex
	level    LogLevel
	output   io.Writer
	service  string
	version  string
	hostname string
}

// LogEntry represents a single structured log entry
type LogEntry struct {
	Timestamp  time.Time              `json:"timestamp"`
	Level      string                 `json:"level"`
	Service    string                 `json:"service"`
	Version    string                 `json:"version"`
	Hostname   string                 `json:"hostname"`
	Message    string                 `json:"message"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
	BuildID    string                 `json:"build_id,omitempty"`
	RequestID  string                 `json:"request_id,omitempty"`
	File       string                 `json:"file,omitempty"`
	Line       int                    `json:"line,omitempty"`
	Function   string                 `json:"function,omitempty"`
	Error      string                 `json:"error,omitempty"`
	StackTrace string                 `json:"stack_trace,omitempty"`
}

// NewStructuredLogger creates a logger writing to stdout
func NewStructuredLogger(service, version string, level LogLevel) *StructuredLogger {
	hostname, _ := os.Hostname()

	return &StructuredLogger{
		level:    level,
		output:   os.Stdout,
		service:  service,
		version:  version,
		hostname: hostname,
	}
}

// NewNopLogger returns a logger that discards everything. Used by tests.
func NewNopLogger() *StructuredLogger {
	l := NewStructuredLogger("test", "test", FatalLevel)
	l.SetOutput(io.Discard)
	return l
}

// SetOutput sets the output destination for logs
func (l *StructuredLogger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
}

// SetLevel changes the minimum level written
func (l *StructuredLogger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Enabled reports whether messages of level are written.
func (l *StructuredLogger) Enabled(level LogLevel) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return level >= l.level
}

// Debug logs a debug message
func (l *StructuredLogger) Debug(ctx context.Context, message string, fields Fields) {
	l.write(ctx, DebugLevel, message, fields, nil)
}

// Info logs an info message
func (l *StructuredLogger) Info(ctx context.Context, message string, fields Fields) {
	l.write(ctx, InfoLevel, message, fields, nil)
}

// Warn logs a warning message
func (l *StructuredLogger) Warn(ctx context.Context, message string, fields Fields) {
	l.write(ctx, WarnLevel, message, fields, nil)
}

// Error logs an error message with caller information
func (l *StructuredLogger) Error(ctx context.Context, message string, fields Fields, err error) {
	l.write(ctx, ErrorLevel, message, fields, err)
}

// Fatal logs a fatal message with a stack trace and exits
func (l *StructuredLogger) Fatal(ctx context.Context, message string, fields Fields, err error) {
	l.write(ctx, FatalLevel, message, fields, err)
	os.Exit(1)
}

func (l *StructuredLogger) write(ctx context.Context, level LogLevel, message string, fields Fields, err error) {
	if !l.Enabled(level) {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level.String(),
		Service:   l.service,
		Version:   l.version,
		Hostname:  l.hostname,
		Message:   message,
		Fields:    sanitize(fields),
		BuildID:   BuildIDFrom(ctx),
		RequestID: RequestIDFrom(ctx),
	}
	if err != nil {
		entry.Error = err.Error()
	}

	if level >= ErrorLevel {
		// skip write and the level method
		if pc, file, line, ok := runtime.Caller(2); ok {
			entry.File = file
			entry.Line = line
			if fn := runtime.FuncForPC(pc); fn != nil {
				entry.Function = fn.Name()
			}
		}
		if level == FatalLevel {
			entry.StackTrace = captureStackTrace()
		}
	}

	data, marshalErr := json.Marshal(entry)
	if marshalErr != nil {
		fmt.Fprintf(os.Stderr, "%s [%s] %s: %v (unencodable fields: %v)\n",
			entry.Timestamp.Format(time.RFC3339), entry.Level, message, fields, marshalErr)
		return
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Write(data)
}

// sanitize replaces non-finite floats, which JSON cannot encode, by their
// string form. Unbounded setpoints are +Inf.
func sanitize(fields Fields) map[string]interface{} {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if f, ok := v.(float64); ok && (math.IsInf(f, 0) || math.IsNaN(f)) {
			out[k] = fmt.Sprint(f)
			continue
		}
		out[k] = v
	}
	return out
}

func captureStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// WithFields returns a child logger that adds fields to every message
func (l *StructuredLogger) WithFields(fields Fields) *ContextLogger {
	return &ContextLogger{
		logger: l,
		fields: fields,
	}
}

// ContextLogger wraps StructuredLogger with fixed fields
type ContextLogger struct {
	logger *StructuredLogger
	fields Fields
}

// Debug logs a debug message with the fixed fields
func (c *ContextLogger) Debug(ctx context.Context, message string, fields Fields) {
	c.logger.write(ctx, DebugLevel, message, c.merge(fields), nil)
}

// Info logs an info message with the fixed fields
func (c *ContextLogger) Info(ctx context.Context, message string, fields Fields) {
	c.logger.write(ctx, InfoLevel, message, c.merge(fields), nil)
}

// Warn logs a warning message with the fixed fields
func (c *ContextLogger) Warn(ctx context.Context, message string, fields Fields) {
	c.logger.write(ctx, WarnLevel, message, c.merge(fields), nil)
}

// Error logs an error message with the fixed fields
func (c *ContextLogger) Error(ctx context.Context, message string, fields Fields, err error) {
	c.logger.write(ctx, ErrorLevel, message, c.merge(fields), err)
}

func (c *ContextLogger) merge(fields Fields) Fields {
	merged := make(Fields, len(c.fields)+len(fields))
	for k, v := range c.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return merged
}
