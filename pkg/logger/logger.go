package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Log глобальный логгер приложения. До Init указывает на no-op обработчик,
// чтобы ранние вызовы не падали.
var Log = slog.New(slog.NewTextHandler(io.Discard, nil))

// Config конфигурация логгера
type Config struct {
	Level      string
	Format     string // json, text
	Output     string // stdout, stderr, file
	FilePath   string
	MaxSize    int // MB
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// Init инициализирует логгер с уровнем и выводом JSON в stdout
func Init(level string) {
	InitWithConfig(Config{
		Level:  level,
		Format: "json",
		Output: "stdout",
	})
}

// InitWithConfig инициализирует логгер с полной конфигурацией
func InitWithConfig(cfg Config) {
	lvl := parseLevel(cfg.Level)

	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}

	writer := buildWriter(cfg)

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(writer, opts)
	default:
		handler = slog.NewJSONHandler(writer, opts)
	}

	Log = slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildWriter(cfg Config) io.Writer {
	switch cfg.Output {
	case "stderr":
		return os.Stderr
	case "file":
		path := cfg.FilePath
		if path == "" {
			path = "logs/heatgrid.log"
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return os.Stdout
		}
		return &lumberjack.Logger{
			Filename:   path,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
	default:
		return os.Stdout
	}
}

// WithRequestID добавляет request ID
func WithRequestID(requestID string) *slog.Logger {
	return Log.With("request_id", requestID)
}

// WithComponent добавляет имя подсистемы
func WithComponent(component string) *slog.Logger {
	return Log.With("component", component)
}

// Debug логирует debug сообщение
func Debug(msg string, args ...any) {
	Log.Debug(msg, args...)
}

// Info логирует info сообщение
func Info(msg string, args ...any) {
	Log.Info(msg, args...)
}

// Warn логирует warning сообщение
func Warn(msg string, args ...any) {
	Log.Warn(msg, args...)
}

// Error логирует error сообщение
func Error(msg string, args ...any) {
	Log.Error(msg, args...)
}

// Fatal логирует fatal сообщение и завершает программу
func Fatal(msg string, args ...any) {
	Log.Error(msg, args...)
	os.Exit(1)
}
