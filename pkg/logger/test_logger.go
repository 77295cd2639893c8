package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger extends Logger with log capture for testing
type TestLogger struct {
	*Logger
	observed *observer.ObservedLogs
}

// NewTestLogger returns a debug-level logger that writes to the test output
// and records every entry for later assertions.
func NewTestLogger(tb zaptest.TestingT) *TestLogger {
	observedCore, observed := observer.New(zapcore.DebugLevel)
	testCore := zaptest.NewLogger(tb, zaptest.Level(zapcore.DebugLevel)).Core()

	return &TestLogger{
		Logger: &Logger{
			Logger: zap.New(zapcore.NewTee(testCore, observedCore)).Named(loggerName),
		},
		observed: observed,
	}
}

// GetLogs returns the captured messages in the order they were logged.
func (tl *TestLogger) GetLogs() []string {
	entries := tl.observed.All()
	logs := make([]string, 0, len(entries))
	for _, e := range entries {
		logs = append(logs, e.Message)
	}
	return logs
}

// GetLogsAtLevel returns the captured messages logged at exactly level.
func (tl *TestLogger) GetLogsAtLevel(level zapcore.Level) []string {
	entries := tl.observed.FilterLevelExact(level).All()
	logs := make([]string, 0, len(entries))
	for _, e := range entries {
		logs = append(logs, e.Message)
	}
	return logs
}

func (tl *TestLogger) Reset() {
	tl.observed.TakeAll()
}

func (tl *TestLogger) PrintLogs(t *testing.T) {
	t.Log("Captured logs:")
	for i, log := range tl.GetLogs() {
		t.Logf("[%d] %s", i, log)
	}
}
