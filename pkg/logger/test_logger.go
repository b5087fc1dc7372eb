package logger

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// TestLogger captures log entries in memory for assertions in tests.
type TestLogger struct {
	mu      sync.Mutex
	entries []Entry
	nop     *zerolog.Logger
}

// Entry is one captured log call.
type Entry struct {
	Level   string
	Message string
	Fields  map[string]interface{}
}

// NewTestLogger creates a logger that records instead of printing.
func NewTestLogger() *TestLogger {
	nop := zerolog.Nop()
	return &TestLogger{nop: &nop}
}

func (l *TestLogger) record(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	copied := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	l.entries = append(l.entries, Entry{Level: level, Message: msg, Fields: copied})
}

func (l *TestLogger) Debug(msg string) { l.record("debug", msg, nil) }
func (l *TestLogger) Info(msg string)  { l.record("info", msg, nil) }
func (l *TestLogger) Warn(msg string)  { l.record("warn", msg, nil) }
func (l *TestLogger) Error(msg string) { l.record("error", msg, nil) }
func (l *TestLogger) Fatal(msg string) { l.record("fatal", msg, nil) }

func (l *TestLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	l.record("debug", msg, fields)
}

func (l *TestLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	l.record("info", msg, fields)
}

func (l *TestLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	l.record("warn", msg, fields)
}

func (l *TestLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	l.record("error", msg, fields)
}

func (l *TestLogger) WithField(key string, value interface{}) Logger {
	return &contextLogger{base: l, fields: map[string]interface{}{key: value}}
}

func (l *TestLogger) WithFields(fields map[string]interface{}) Logger {
	return &contextLogger{base: l, fields: fields}
}

func (l *TestLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

func (l *TestLogger) GetZerolog() *zerolog.Logger { return l.nop }

// Entries returns a copy of everything logged so far.
func (l *TestLogger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// HasMessage reports whether any captured entry contains the substring.
func (l *TestLogger) HasMessage(substr string) bool {
	for _, e := range l.Entries() {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// contextLogger carries bound fields on top of a TestLogger.
type contextLogger struct {
	base   *TestLogger
	fields map[string]interface{}
}

func (c *contextLogger) merge(fields map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(c.fields)+len(fields))
	for k, v := range c.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return merged
}

func (c *contextLogger) Debug(msg string) { c.base.record("debug", msg, c.fields) }
func (c *contextLogger) Info(msg string)  { c.base.record("info", msg, c.fields) }
func (c *contextLogger) Warn(msg string)  { c.base.record("warn", msg, c.fields) }
func (c *contextLogger) Error(msg string) { c.base.record("error", msg, c.fields) }
func (c *contextLogger) Fatal(msg string) { c.base.record("fatal", msg, c.fields) }

func (c *contextLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	c.base.record("debug", msg, c.merge(fields))
}

func (c *contextLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	c.base.record("info", msg, c.merge(fields))
}

func (c *contextLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	c.base.record("warn", msg, c.merge(fields))
}

func (c *contextLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	c.base.record("error", msg, c.merge(fields))
}

func (c *contextLogger) WithField(key string, value interface{}) Logger {
	return &contextLogger{base: c.base, fields: c.merge(map[string]interface{}{key: value})}
}

func (c *contextLogger) WithFields(fields map[string]interface{}) Logger {
	return &contextLogger{base: c.base, fields: c.merge(fields)}
}

func (c *contextLogger) WithError(err error) Logger {
	if err == nil {
		return c
	}
	return c.WithField("error", err.Error())
}

func (c *contextLogger) GetZerolog() *zerolog.Logger { return c.base.nop }
