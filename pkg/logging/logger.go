package logging

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger   *zap.Logger
	loggerMu sync.RWMutex
	logFile  *os.File // tracked for cleanup
	isInited bool
)

// ErrAlreadyInitialized is returned by Init when a logger is already set up.
var ErrAlreadyInitialized = errors.New("logger already initialized; call Close() first to reinitialize")

// Config holds logger configuration
type Config struct {
	// Level is the minimum level: "debug", "info", "warn" or "error".
	// Unknown values fall back to info.
	Level string

	// Format is "json" or "console".
	Format string

	// Output is "stdout", "stderr" or a file path. Empty means stderr.
	Output string
}

// Init initializes the global logger with the given configuration.
// This should be called once at application startup.
// Subsequent calls to Init will return an error to prevent multiple initialization.
//
// Example:
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "logs/storekit.log",
//	})
func Init(config Config) error {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if isInited {
		return ErrAlreadyInitialized
	}

	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(config.Level)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}

	writer, file, err := getWriteSyncer(config.Output)
	if err != nil {
		return err
	}

	core := zapcore.NewCore(getEncoder(config.Format), writer, level)
	logger = zap.New(core, zap.AddCaller()).With(zap.String("service", "storekit"))
	logFile = file
	isInited = true
	return nil
}

// InitDefault initializes the logger with defaults: info level, console
// format, stderr. It is a no-op when the logger is already initialized.
func InitDefault() {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if isInited {
		return
	}

	core := zapcore.NewCore(getEncoder("console"), zapcore.Lock(os.Stderr), zap.InfoLevel)
	logger = zap.New(core).With(zap.String("service", "storekit"))
	isInited = true
}

// SetLogger replaces the global logger. Intended for tests that want to
// observe log output.
func SetLogger(l *zap.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	logger = l
	isInited = true
}

// Close flushes the logger and closes any open log file.
// After calling Close, you can call Init again to reinitialize.
// It's safe to call Close multiple times.
func Close() error {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if !isInited {
		return nil
	}

	// Sync on stderr/stdout returns EINVAL on some platforms; only file
	// sync errors matter.
	syncErr := logger.Sync()

	var err error
	if logFile != nil {
		if syncErr != nil {
			err = syncErr
		}
		if cerr := logFile.Close(); cerr != nil && err == nil {
			err = cerr
		}
		logFile = nil
	}

	logger = nil
	isInited = false
	return err
}

// GetLogger returns the current logger, initializing the default one on
// first use.
func GetLogger() *zap.Logger {
	loggerMu.RLock()
	if isInited {
		l := logger
		loggerMu.RUnlock()
		return l
	}
	loggerMu.RUnlock()

	InitDefault()

	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

// Debug logs a debug message in a thread-safe manner
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Info logs an info message in a thread-safe manner
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Warn logs a warning message in a thread-safe manner
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message in a thread-safe manner
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

func getEncoder(format string) zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	if strings.ToLower(format) == "console" {
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	return zapcore.NewJSONEncoder(encoderConfig)
}

func getWriteSyncer(output string) (zapcore.WriteSyncer, *os.File, error) {
	switch strings.ToLower(output) {
	case "stderr", "":
		return zapcore.Lock(os.Stderr), nil, nil
	case "stdout":
		return zapcore.Lock(os.Stdout), nil, nil
	default:
		if err := os.MkdirAll(filepath.Dir(output), 0o750); err != nil {
			return nil, nil, errors.Wrap(err, "creating log directory")
		}
		file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "opening log file %s", output)
		}
		return zapcore.AddSync(file), file, nil
	}
}
