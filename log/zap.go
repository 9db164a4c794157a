package log

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"veo-director/internal/appdirs"
)

var Logger *zap.Logger

const logFileName = "veo-director.log"

var appDirsResolver = appdirs.Resolve

// consoleLevel can be changed at runtime after the config is loaded.
var consoleLevel = zap.NewAtomicLevelAt(zap.InfoLevel)

func InitLogger() {
	logDir, err := ResolveLogDir()
	if err != nil {
		panic("cannot resolve log dir: " + err.Error())
	}

	if err = os.MkdirAll(logDir, 0o755); err != nil {
		panic("cannot create log dir: " + err.Error())
	}

	logFilePath := filepath.Join(logDir, logFileName)
	file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		panic("cannot open log file: " + err.Error())
	}

	fileSyncer := zapcore.AddSync(file)
	consoleSyncer := zapcore.AddSync(os.Stdout)

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), fileSyncer, zap.DebugLevel),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), consoleSyncer, consoleLevel),
	)

	Logger = zap.New(core, zap.AddCaller()).With(zap.String("app", "veo-director"))
}

// SetConsoleLevel parses a level name ("debug", "info", "warn", "error").
// Unknown names leave the level unchanged.
func SetConsoleLevel(level string) bool {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return false
	}
	consoleLevel.SetLevel(lvl)
	return true
}

func ResolveLogDir() (string, error) {
	dirs, err := appDirsResolver()
	if err != nil {
		return "", err
	}

	logDir := strings.TrimSpace(dirs.LogDir)
	if logDir == "" {
		return ".", nil
	}

	return logDir, nil
}

func ResolveLogFilePath() (string, error) {
	logDir, err := ResolveLogDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(logDir, logFileName), nil
}

// GetLogger never returns nil; before InitLogger it hands out a no-op logger.
func GetLogger() *zap.Logger {
	if Logger == nil {
		return zap.NewNop()
	}
	return Logger
}
