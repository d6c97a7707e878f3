// Package config загружает конфигурацию apk-notify: переменные окружения NTF_*,
// файл настроек приложения (app.yaml) и файл определений алертов (definitions.yaml).
//
// Приоритет значений секций: переменные окружения, затем app.yaml, затем значения по умолчанию.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"

	"github.com/Kargones/apk-notify/internal/constants"
	"github.com/Kargones/apk-notify/internal/pkg/apperrors"
)

// AppConfig представляет настройки приложения из файла app.yaml.
type AppConfig struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Channels ChannelsConfig `yaml:"channels"`
	OptIn    OptInConfig    `yaml:"optin"`
}

// Config хранит настройки одного запуска apk-notify.
type Config struct {
	// Env — окружение (production, staging, ...), попадает в tracing.
	Env string `env:"NTF_ENV" env-default:""`

	// Command — выполняемая команда. Аргумент командной строки имеет приоритет.
	Command string `env:"NTF_COMMAND" env-default:""`

	// ConfigApp — путь к app.yaml. Отсутствующий файл — значения по умолчанию.
	ConfigApp string `env:"NTF_CONFIG_APP" env-default:"app.yaml"`

	// ConfigDefinitions — путь к файлу определений алертов.
	ConfigDefinitions string `env:"NTF_CONFIG_DEFINITIONS" env-default:"definitions.yaml"`

	// Product — продукт, от имени которого вызывается алерт.
	Product string `env:"NTF_PRODUCT" env-default:""`

	// Alert — имя алерта для команд fire и plan.
	Alert string `env:"NTF_ALERT" env-default:""`

	// Payload — payload алерта в JSON. Пустое значение — чтение из stdin.
	Payload string `env:"NTF_PAYLOAD" env-default:""`

	// EntityID и Channel — получатель и канал для команд optin/optout.
	EntityID string `env:"NTF_ENTITY_ID" env-default:""`
	Channel  string `env:"NTF_CHANNEL" env-default:""`

	// OutputFormat — формат вывода результата (text, json).
	OutputFormat string `env:"NTF_OUTPUT_FORMAT" env-default:"text"`

	// BootstrapLogLevel — уровень логгера, используемого до загрузки LoggingConfig.
	BootstrapLogLevel string `env:"NTF_BOOTSTRAP_LOG_LEVEL" env-default:"info"`

	Logger *slog.Logger

	AppConfig   *AppConfig
	Definitions *Definitions

	LoggingConfig  *LoggingConfig
	MetricsConfig  *MetricsConfig
	TracingConfig  *TracingConfig
	ChannelsConfig *ChannelsConfig
	OptInConfig    *OptInConfig
}

// Load загружает конфигурацию без файла определений.
// Используется командами, которым определения не нужны, и как первый шаг LoadAll.
func Load() (*Config, error) {
	var cfg Config

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrConfigLoad,
			"не удалось прочитать переменные окружения в Config", err)
	}

	l := getSlog(cfg.BootstrapLogLevel)
	cfg.Logger = l

	appConfig, err := loadAppConfig(l, cfg.ConfigApp)
	if err != nil {
		return nil, err
	}
	cfg.AppConfig = appConfig

	if err := loadSections(l, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadAll загружает конфигурацию вместе с файлом определений.
func LoadAll() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	defs, err := LoadDefinitions(cfg.ConfigDefinitions)
	if err != nil {
		cfg.Logger.Error("Ошибка загрузки определений",
			slog.String("path", cfg.ConfigDefinitions),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	cfg.Definitions = defs

	cfg.Logger.Debug("Определения загружены",
		slog.String("path", cfg.ConfigDefinitions),
		slog.Int("scopes", len(defs.Scopes)),
		slog.Int("channels", len(defs.Channels)),
	)
	return cfg, nil
}

// loadAppConfig читает app.yaml. Отсутствующий файл не является ошибкой.
func loadAppConfig(l *slog.Logger, configPath string) (*AppConfig, error) {
	if configPath == "" {
		return nil, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.Debug("Файл настроек приложения не найден, используются значения по умолчанию",
				slog.String("path", configPath),
			)
			return nil, nil
		}
		return nil, apperrors.NewAppError(apperrors.ErrConfigLoad,
			fmt.Sprintf("не удалось прочитать %s", configPath), err)
	}

	var appConfig AppConfig
	if err := yaml.Unmarshal(data, &appConfig); err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrConfigLoad,
			fmt.Sprintf("не удалось разобрать %s", configPath), err)
	}

	l.Debug("Файл настроек приложения загружен", slog.String("path", configPath))
	return &appConfig, nil
}

// loadSections загружает секции конфигурации в порядке их использования при инициализации.
func loadSections(l *slog.Logger, cfg *Config) error {
	var err error

	if cfg.LoggingConfig, err = loadLoggingConfig(l, cfg); err != nil {
		return apperrors.NewAppError(apperrors.ErrConfigLoad, "logging", err)
	}
	if cfg.MetricsConfig, err = loadMetricsConfig(l, cfg); err != nil {
		return apperrors.NewAppError(apperrors.ErrConfigLoad, "metrics", err)
	}
	if cfg.TracingConfig, err = loadTracingConfig(l, cfg); err != nil {
		return apperrors.NewAppError(apperrors.ErrConfigLoad, "tracing", err)
	}
	if cfg.ChannelsConfig, err = loadChannelsConfig(l, cfg); err != nil {
		return apperrors.NewAppError(apperrors.ErrConfigLoad, "channels", err)
	}
	if cfg.OptInConfig, err = loadOptInConfig(l, cfg); err != nil {
		return apperrors.NewAppError(apperrors.ErrConfigLoad, "optin", err)
	}
	return nil
}

// Validate проверяет загруженные секции. Ошибки всех секций объединяются.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.OutputFormat) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("output: неизвестный формат %q (text, json)", c.OutputFormat))
	}
	if c.MetricsConfig != nil {
		errs = append(errs, validateMetricsConfig(c.MetricsConfig))
	}
	if c.TracingConfig != nil {
		errs = append(errs, validateTracingConfig(c.TracingConfig))
	}
	if c.ChannelsConfig != nil {
		errs = append(errs, validateChannelsConfig(c.ChannelsConfig))
	}
	if c.OptInConfig != nil {
		errs = append(errs, validateOptInConfig(c.OptInConfig))
	}

	if err := errors.Join(errs...); err != nil {
		return apperrors.NewAppError(apperrors.ErrConfigValidate, "конфигурация некорректна", err)
	}
	return nil
}

func getSlog(logLevel string) *slog.Logger {
	var programLevel = new(slog.LevelVar)

	switch strings.ToLower(logLevel) {
	default:
		programLevel.Set(slog.LevelInfo)
	case constants.LogLevelDebug:
		programLevel.Set(slog.LevelDebug)
	case constants.LogLevelInfo:
		programLevel.Set(slog.LevelInfo)
	case constants.LogLevelWarn:
		programLevel.Set(slog.LevelWarn)
	case constants.LogLevelError:
		programLevel.Set(slog.LevelError)
	}

	l := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		AddSource: true,
		Level:     programLevel,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.SourceKey {
				if s, ok := a.Value.Any().(*slog.Source); ok {
					s.File = path.Base(s.File)
				}
			}
			return a
		},
	}))
	l = l.With(slog.Group("App info",
		slog.String("version", constants.Version),
	))
	return l
}
