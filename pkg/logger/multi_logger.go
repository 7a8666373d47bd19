package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogCategory represents different log categories
type LogCategory string

const (
	CategorySession LogCategory = "session" // Download session lifecycle events (JSON)
	CategoryError   LogCategory = "error"   // Application errors (JSON)
)

// MultiLogger writes categorized JSON logs to one file per category and day.
// Raw yt-dlp output is not routed through here; sessions append it to their
// own download log.
type MultiLogger struct {
	loggers map[LogCategory]*zap.Logger
	files   []*dailyFile
	config  MultiLoggerConfig
	mu      sync.RWMutex
	now     func() time.Time
}

// MultiLoggerConfig contains configuration for multi-output logging
type MultiLoggerConfig struct {
	Level   string // debug, info, warn, error
	LogsDir string // Directory for log files
}

// NewMultiLogger creates a new multi-output logger
func NewMultiLogger(config MultiLoggerConfig) (*MultiLogger, error) {
	if config.LogsDir == "" {
		return nil, fmt.Errorf("logs_dir must be specified")
	}

	if err := os.MkdirAll(config.LogsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	ml := &MultiLogger{
		loggers: make(map[LogCategory]*zap.Logger),
		config:  config,
		now:     time.Now,
	}

	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	sessionLogger, err := ml.createStructuredLogger(CategorySession, level)
	if err != nil {
		return nil, fmt.Errorf("failed to create session logger: %w", err)
	}
	ml.loggers[CategorySession] = sessionLogger

	errorLogger, err := ml.createStructuredLogger(CategoryError, zapcore.ErrorLevel)
	if err != nil {
		ml.Close()
		return nil, fmt.Errorf("failed to create error logger: %w", err)
	}
	ml.loggers[CategoryError] = errorLogger

	return ml, nil
}

func (ml *MultiLogger) createStructuredLogger(category LogCategory, level zapcore.Level) (*zap.Logger, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "msg"
	encoderConfig.LevelKey = "level"
	encoderConfig.CallerKey = ""

	file := &dailyFile{
		path: func(day time.Time) string { return ml.CategoryLogPath(category, day) },
		now:  func() time.Time { return ml.now() },
	}
	if err := file.open(ml.now()); err != nil {
		return nil, err
	}
	ml.files = append(ml.files, file)

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), file, level)
	return zap.New(core), nil
}

// CategoryLogPath returns the file a category writes to on the given day
func (ml *MultiLogger) CategoryLogPath(category LogCategory, day time.Time) string {
	filename := fmt.Sprintf("%s-%s.log", category, day.Format("20060102"))
	return filepath.Join(ml.config.LogsDir, filename)
}

// LogsDir returns the logs directory path
func (ml *MultiLogger) LogsDir() string {
	return ml.config.LogsDir
}

// GetLogger returns the structured logger for a specific category
func (ml *MultiLogger) GetLogger(category LogCategory) *zap.Logger {
	ml.mu.RLock()
	defer ml.mu.RUnlock()

	if logger, ok := ml.loggers[category]; ok {
		return logger
	}
	return ml.loggers[CategoryError]
}

// Session returns the session logger
func (ml *MultiLogger) Session() *zap.Logger {
	return ml.GetLogger(CategorySession)
}

// Error returns the error logger
func (ml *MultiLogger) Error() *zap.Logger {
	return ml.GetLogger(CategoryError)
}

// LogSessionEvent logs a download session lifecycle event with structured data
func (ml *MultiLogger) LogSessionEvent(event string, fields ...zap.Field) {
	ml.Session().Info(event, fields...)
}

// LogAppError logs an application-level error
func (ml *MultiLogger) LogAppError(msg string, fields ...zap.Field) {
	ml.Error().Error(msg, fields...)
}

// Sync flushes all loggers
func (ml *MultiLogger) Sync() error {
	ml.mu.RLock()
	defer ml.mu.RUnlock()

	var lastErr error
	for _, logger := range ml.loggers {
		if err := logger.Sync(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Close flushes all loggers and closes their files
func (ml *MultiLogger) Close() error {
	lastErr := ml.Sync()

	ml.mu.Lock()
	defer ml.mu.Unlock()
	for _, file := range ml.files {
		if err := file.Close(); err != nil {
			lastErr = err
		}
	}
	ml.files = nil
	return lastErr
}

// dailyFile is a WriteSyncer that switches to a new file when the day changes
type dailyFile struct {
	path func(day time.Time) string
	now  func() time.Time

	mu   sync.Mutex
	day  string
	file *os.File
}

func (f *dailyFile) open(now time.Time) error {
	file, err := os.OpenFile(f.path(now), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if f.file != nil {
		f.file.Close()
	}
	f.file = file
	f.day = now.Format("20060102")
	return nil
}

func (f *dailyFile) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if now := f.now(); f.file == nil || now.Format("20060102") != f.day {
		if err := f.open(now); err != nil {
			return 0, err
		}
	}
	return f.file.Write(p)
}

func (f *dailyFile) Sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return nil
	}
	return f.file.Sync()
}

func (f *dailyFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}
