package config

import (
	"log/slog"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/Kargones/apk-notify/internal/pkg/logging"
)

// LoggingConfig содержит настройки логирования.
type LoggingConfig struct {
	// Level — уровень логирования (debug, info, warn, error).
	Level string `yaml:"level" env:"NTF_LOG_LEVEL" env-default:"info"`

	// Format — формат логов (json, text).
	Format string `yaml:"format" env:"NTF_LOG_FORMAT" env-default:"text"`

	// Output — вывод логов (stderr, file).
	Output string `yaml:"output" env:"NTF_LOG_OUTPUT" env-default:"stderr"`

	// FilePath — путь к файлу логов (если output=file).
	FilePath string `yaml:"filePath" env:"NTF_LOG_FILE_PATH"`

	// MaxSize — максимальный размер файла лога в MB.
	MaxSize int `yaml:"maxSize" env:"NTF_LOG_MAX_SIZE" env-default:"100"`

	// MaxBackups — максимальное количество backup файлов.
	MaxBackups int `yaml:"maxBackups" env:"NTF_LOG_MAX_BACKUPS" env-default:"3"`

	// MaxAge — максимальный возраст backup файлов в днях.
	MaxAge int `yaml:"maxAge" env:"NTF_LOG_MAX_AGE" env-default:"7"`

	// Compress — сжимать ли backup файлы.
	// TODO: env-default:"true" перезаписывает compress: false из YAML при cleanenv.ReadEnv;
	// перейти на *bool, чтобы отличать "не задано" от false.
	Compress bool `yaml:"compress" env:"NTF_LOG_COMPRESS" env-default:"true"`
}

// loadLoggingConfig загружает конфигурацию логирования из AppConfig, переменных окружения или значений по умолчанию.
// Переменные окружения NTF_LOG_* переопределяют значения из AppConfig.
func loadLoggingConfig(l *slog.Logger, cfg *Config) (*LoggingConfig, error) {
	if cfg.AppConfig != nil && (cfg.AppConfig.Logging != LoggingConfig{}) {
		loggingConfig := &cfg.AppConfig.Logging
		if err := cleanenv.ReadEnv(loggingConfig); err != nil {
			l.Warn("Ошибка загрузки Logging конфигурации из переменных окружения",
				slog.String("error", err.Error()),
			)
		}
		l.Info("Logging конфигурация загружена из AppConfig",
			slog.String("level", loggingConfig.Level),
			slog.String("format", loggingConfig.Format),
		)
		return loggingConfig, nil
	}

	loggingConfig := getDefaultLoggingConfig()

	if err := cleanenv.ReadEnv(loggingConfig); err != nil {
		l.Warn("Ошибка загрузки Logging конфигурации из переменных окружения",
			slog.String("error", err.Error()),
		)
	}

	l.Debug("Logging конфигурация: используются значения по умолчанию",
		slog.String("level", loggingConfig.Level),
		slog.String("format", loggingConfig.Format),
	)

	return loggingConfig, nil
}

// getDefaultLoggingConfig возвращает конфигурацию логирования по умолчанию
// (значения logging.DefaultXxx).
func getDefaultLoggingConfig() *LoggingConfig {
	return &LoggingConfig{
		Level:      logging.DefaultLevel,
		Format:     logging.DefaultFormat,
		Output:     logging.DefaultOutput,
		FilePath:   logging.DefaultFilePath,
		MaxSize:    logging.DefaultMaxSize,
		MaxBackups: logging.DefaultMaxBackups,
		MaxAge:     logging.DefaultMaxAge,
		Compress:   logging.DefaultCompress,
	}
}

// ToLogging преобразует конфигурацию в logging.Config.
func (lc *LoggingConfig) ToLogging() logging.Config {
	return logging.Config{
		Level:      lc.Level,
		Format:     lc.Format,
		Output:     lc.Output,
		FilePath:   lc.FilePath,
		MaxSize:    lc.MaxSize,
		MaxBackups: lc.MaxBackups,
		MaxAge:     lc.MaxAge,
		Compress:   lc.Compress,
	}
}
