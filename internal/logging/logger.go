package logging

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger = zap.NewNop()

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// When unset or empty, logging is silent (no zap output).
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "BTSCAN_LOG_LEVEL"

// Initialize creates a new logger with the specified level.
// If level is empty, it checks BTSCAN_LOG_LEVEL environment variable.
// If neither is set, logging is disabled (silent mode).
func Initialize(level string) error {
	return InitializeTo(level, "stderr")
}

// InitializeTo is like Initialize but writes to the given zap output path
// (e.g. "stdout", "stderr" or a file path). The TUI logs to a file so the
// console output does not fight with the rendered screen.
func InitializeTo(level string, outputPath string) error {
	// If no level provided, check environment variable
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	// If still no level, use silent mode (nop logger)
	if level == "" {
		logger = zap.NewNop()
		return nil
	}

	zapLevel, err := ParseLevel(level)
	if err != nil {
		// Unknown level - use info as default when explicitly set to something
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{outputPath},
		ErrorOutputPaths: []string{"stderr"},
	}

	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	if outputPath == "stdout" || outputPath == "stderr" {
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	logger, err = config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	return nil
}

// ParseLevel converts a level name to a zap level
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// InitializeFromEnv initializes the logger from the BTSCAN_LOG_LEVEL
// environment variable. CLI commands use this to stay silent by default.
func InitializeFromEnv() error {
	return Initialize("")
}

// SetLogger replaces the global logger (used by tests to capture output)
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	return logger
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// Fatal logs a fatal message and exits
func Fatal(msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, fields...)
}

// LogStateChange logs a session state transition
func LogStateChange(from, to string) {
	Info("Session state changed",
		zap.String("from", from),
		zap.String("to", to),
	)
}

// LogScanStarted logs the start of a scan
func LogScanStarted(generation uint64, timeout time.Duration) {
	Info("Scan started",
		zap.Uint64("generation", generation),
		zap.Duration("timeout", timeout),
	)
}

// LogDeviceAccepted logs a newly accepted device
func LogDeviceAccepted(address, name string, rssi int, order uint64) {
	Info("Device discovered",
		zap.String("address", address),
		zap.String("name", name),
		zap.Int("rssi", rssi),
		zap.Uint64("order", order),
	)
}

// LogDiscarded logs an event that was dropped without effect
func LogDiscarded(reason, address string) {
	Debug("Discovery event discarded",
		zap.String("reason", reason),
		zap.String("address", address),
	)
}

// LogScanEnded logs the terminal status of a scan
func LogScanEnded(status, cause string, devices int, elapsed time.Duration) {
	Info("Scan ended",
		zap.String("status", status),
		zap.String("cause", cause),
		zap.Int("devices", devices),
		zap.Duration("elapsed", elapsed.Round(time.Millisecond)),
	)
}

// LogScanFailed logs a failed scan attempt
func LogScanFailed(kind string, err error) {
	Warn("Scan attempt failed",
		zap.String("kind", kind),
		zap.Error(err),
	)
}

// Sync flushes any buffered log entries
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
