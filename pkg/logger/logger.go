package logger

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	LogFilePermissions = 0600
	InfoLogLevel       = "info"
	LastLogLines       = 100
	loggerName         = "remotectl"
)

var (
	globalLogger  *zap.Logger
	globalVerbose bool
	loggerMutex   sync.RWMutex
	once          sync.Once

	GlobalLogLevel    string = InfoLogLevel
	GlobalInstantSync bool
	GlobalLogFile     *os.File

	globalLogBuffer = NewLogBuffer(LastLogLines)
)

// Logger is a thin printf-style wrapper around a zap logger.
type Logger struct {
	*zap.Logger
	verbose bool
}

func initProduction() {
	once.Do(func() {
		level := zap.NewAtomicLevelAt(getZapLevel(GlobalLogLevel))
		stderrCore := zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleEncoderConfig()),
			zapcore.Lock(os.Stderr),
			zap.NewAtomicLevelAt(zapcore.WarnLevel),
		)
		core := zapcore.NewTee(stderrCore, newBufferCore(level))
		globalLogger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Named(loggerName)
	})
}

func (l *Logger) SetVerbose(verbose bool) {
	l.verbose = verbose
}

func (l *Logger) IsVerbose() bool {
	return l != nil && l.verbose
}

func (l *Logger) syncIfNeeded() {
	if GlobalInstantSync {
		_ = l.Sync()
	}
}

func (l *Logger) log(level zapcore.Level, msg string) {
	if l == nil || l.Logger == nil {
		return
	}
	if ce := l.Logger.Check(level, msg); ce != nil {
		ce.Write()
	}
	l.syncIfNeeded()
}

func (l *Logger) Debug(msg string) { l.log(zapcore.DebugLevel, msg) }
func (l *Logger) Info(msg string)  { l.log(zapcore.InfoLevel, msg) }
func (l *Logger) Warn(msg string)  { l.log(zapcore.WarnLevel, msg) }
func (l *Logger) Error(msg string) { l.log(zapcore.ErrorLevel, msg) }

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.Debug(fmt.Sprintf(format, args...))
}

func (l *Logger) Infof(format string, args ...interface{}) { l.Info(fmt.Sprintf(format, args...)) }
func (l *Logger) Warnf(format string, args ...interface{}) { l.Warn(fmt.Sprintf(format, args...)) }

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

func (l *Logger) ErrorWithFields(msg string, fields ...zap.Field) {
	l.Logger.Error(msg, fields...)
	l.syncIfNeeded()
}

// With returns a child logger carrying the given fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...), verbose: l.verbose}
}

func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(fmt.Sprintf("[%s]", t.Format("2006-01-02 15:04:05")))
}

func getZapLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Get returns the process-wide logger, building a default one on first use.
func Get() *Logger {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	if globalLogger == nil {
		initProduction()
	}
	return &Logger{Logger: globalLogger, verbose: globalVerbose}
}

// SetGlobalVerbose marks every logger handed out by Get as verbose, so
// remote command output is echoed at info level.
func SetGlobalVerbose(verbose bool) {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	globalVerbose = verbose
}

func SetGlobalLogger(l *Logger) {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	if l == nil || l.Logger == nil {
		globalLogger = zap.NewNop()
		return
	}
	globalLogger = l.Logger
}

func NewNopLogger() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

func LogPanic(rec interface{}) {
	l := Get()
	l.ErrorWithFields("PANIC",
		zap.Any("recovered", rec),
		zap.String("stack", string(debug.Stack())),
	)
	_ = l.Sync()
}

// RecoverAndLog runs f, logging and re-panicking if it panics.
func RecoverAndLog(f func()) {
	defer func() {
		if r := recover(); r != nil {
			LogPanic(r)
			panic(r)
		}
	}()
	f()
}

// LogBuffer keeps the most recent log lines in memory.
type LogBuffer struct {
	lines []string
	size  int
	mu    sync.RWMutex
}

func NewLogBuffer(size int) *LogBuffer {
	if size <= 0 {
		size = LastLogLines
	}
	return &LogBuffer{
		lines: make([]string, 0, size),
		size:  size,
	}
}

func (lb *LogBuffer) AddLine(line string) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if len(lb.lines) >= lb.size {
		lb.lines = lb.lines[1:]
	}
	lb.lines = append(lb.lines, line)
}

// Write splits p on newlines so the buffer can back a zap core.
func (lb *LogBuffer) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line != "" {
			lb.AddLine(line)
		}
	}
	return len(p), nil
}

func (lb *LogBuffer) GetLastLines(n int) []string {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	if n <= 0 {
		return []string{}
	}
	if n >= len(lb.lines) {
		return append([]string{}, lb.lines...)
	}
	return append([]string{}, lb.lines[len(lb.lines)-n:]...)
}

// GetLastLines returns the last n lines logged through the global logger.
func GetLastLines(n int) []string {
	return globalLogBuffer.GetLastLines(n)
}
