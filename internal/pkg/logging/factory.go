package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger создаёт Logger с заданной конфигурацией.
//
// Режимы вывода (config.Output):
//   - "stderr" или "": логи пишутся в os.Stderr
//   - "file": логи пишутся в файл с ротацией через lumberjack
func NewLogger(config Config) Logger {
	var w io.Writer
	switch config.Output {
	case OutputFile:
		w = newRotatingWriter(config)
	case OutputStderr, "":
		w = os.Stderr
	default:
		_, _ = fmt.Fprintf(os.Stderr, "WARNING: неизвестный logging output %q, используется stderr\n", config.Output) //nolint:errcheck // bootstrap stderr
		w = os.Stderr
	}
	return NewLoggerWithWriter(config, w)
}

// newRotatingWriter создаёт io.Writer с ротацией на основе lumberjack.
// При пустом FilePath или невозможности создать каталог возвращает os.Stderr.
func newRotatingWriter(config Config) io.Writer {
	if config.FilePath == "" {
		_, _ = os.Stderr.WriteString("WARNING: logging output=file, но filePath пуст, используется stderr\n") //nolint:errcheck // bootstrap stderr
		return os.Stderr
	}

	dir := filepath.Dir(config.FilePath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "WARNING: не удалось создать каталог логов %q: %v, используется stderr\n", dir, err) //nolint:errcheck // bootstrap stderr
			return os.Stderr
		}
	}

	return &lumberjack.Logger{
		Filename:   config.FilePath,
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   config.Compress,
	}
}

// NewLoggerWithWriter создаёт Logger, пишущий в w.
// Используется в тестах и там, где writer выбирается снаружи.
func NewLoggerWithWriter(config Config, w io.Writer) Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(config.Level)}

	var handler slog.Handler
	switch config.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return NewSlogAdapter(slog.New(handler))
}

// parseLevel конвертирует строковый уровень в slog.Level.
// Неизвестное значение трактуется как info.
func parseLevel(level string) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
