package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"tradesim/internal/core"
)

// TestLogger captures log entries in memory so tests can assert on them.
type TestLogger struct {
	logger   *zap.Logger
	observed *observer.ObservedLogs
}

// NewTestLogger creates a logger recording everything at DEBUG and above.
func NewTestLogger() *TestLogger {
	zcore, observed := observer.New(zap.DebugLevel)
	return &TestLogger{logger: zap.New(zcore), observed: observed}
}

// Entries returns all captured entries.
func (l *TestLogger) Entries() []observer.LoggedEntry {
	return l.observed.All()
}

// CountAtLevel returns the number of captured entries at the given level name
// (DEBUG, INFO, WARN, ERROR).
func (l *TestLogger) CountAtLevel(level string) int {
	count := 0
	for _, entry := range l.observed.All() {
		if entry.Level.CapitalString() == level {
			count++
		}
	}
	return count
}

func (l *TestLogger) fields(kv []interface{}) []zap.Field {
	zapFields := make([]zap.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kv[i])
		}
		zapFields = append(zapFields, zap.Any(key, kv[i+1]))
	}
	return zapFields
}

func (l *TestLogger) Debug(msg string, kv ...interface{}) { l.logger.Debug(msg, l.fields(kv)...) }
func (l *TestLogger) Info(msg string, kv ...interface{})  { l.logger.Info(msg, l.fields(kv)...) }
func (l *TestLogger) Warn(msg string, kv ...interface{})  { l.logger.Warn(msg, l.fields(kv)...) }
func (l *TestLogger) Error(msg string, kv ...interface{}) { l.logger.Error(msg, l.fields(kv)...) }

func (l *TestLogger) WithField(key string, value interface{}) core.ILogger {
	return &TestLogger{logger: l.logger.With(zap.Any(key, value)), observed: l.observed}
}

func (l *TestLogger) WithFields(fields map[string]interface{}) core.ILogger {
	zapFields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zapFields = append(zapFields, zap.Any(k, v))
	}
	return &TestLogger{logger: l.logger.With(zapFields...), observed: l.observed}
}
