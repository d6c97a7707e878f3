package di

import (
	"context"
	"log/slog"

	"github.com/Kargones/apk-notify/internal/adapter/optinredis"
	"github.com/Kargones/apk-notify/internal/adapter/optinsql"
	"github.com/Kargones/apk-notify/internal/channel"
	"github.com/Kargones/apk-notify/internal/config"
	"github.com/Kargones/apk-notify/internal/constants"
	"github.com/Kargones/apk-notify/internal/optin"
	"github.com/Kargones/apk-notify/internal/pkg/apperrors"
	"github.com/Kargones/apk-notify/internal/pkg/logging"
	"github.com/Kargones/apk-notify/internal/pkg/metrics"
	"github.com/Kargones/apk-notify/internal/pkg/output"
	"github.com/Kargones/apk-notify/internal/pkg/tracing"
	"github.com/Kargones/apk-notify/internal/registry"
)

// ProvideLogger создаёт Logger на основе LoggingConfig из Config.
//
// Если LoggingConfig == nil или поля пусты, используются значения по умолчанию:
//   - Level: "info"
//   - Format: "text"
//   - Output: "stderr"
func ProvideLogger(cfg *config.Config) logging.Logger {
	logCfg := logging.DefaultConfig()

	if cfg != nil && cfg.LoggingConfig != nil {
		lc := cfg.LoggingConfig
		if lc.Level != "" {
			logCfg.Level = lc.Level
		}
		if lc.Format != "" {
			logCfg.Format = lc.Format
		}
		if lc.Output != "" {
			logCfg.Output = lc.Output
		}
		if lc.FilePath != "" {
			logCfg.FilePath = lc.FilePath
		}
		// размер 0 MB не имеет смысла для lumberjack, поэтому 0 — значение по умолчанию
		if lc.MaxSize > 0 {
			logCfg.MaxSize = lc.MaxSize
		}
		if lc.MaxBackups > 0 {
			logCfg.MaxBackups = lc.MaxBackups
		}
		if lc.MaxAge > 0 {
			logCfg.MaxAge = lc.MaxAge
		}
		logCfg.Compress = lc.Compress
	}

	return logging.NewLogger(logCfg)
}

// ProvideOutputWriter создаёт Writer по Config.OutputFormat (NTF_OUTPUT_FORMAT).
// Пустой формат и nil Config — текстовый вывод.
func ProvideOutputWriter(cfg *config.Config) output.Writer {
	format := output.FormatText
	if cfg != nil && cfg.OutputFormat != "" {
		format = cfg.OutputFormat
	}
	return output.NewWriter(format)
}

// ProvideTraceID генерирует trace_id запуска: 32-символьный hex (16 байт).
func ProvideTraceID() string {
	return tracing.GenerateTraceID()
}

// ProvideMetricsCollector создаёт Collector на основе MetricsConfig из Config.
// Если MetricsConfig == nil или Enabled=false, возвращает NopCollector.
// При ошибке создания Collector возвращает NopCollector и логирует ошибку.
func ProvideMetricsCollector(cfg *config.Config, logger logging.Logger) metrics.Collector {
	if cfg == nil || cfg.MetricsConfig == nil {
		return metrics.NewNopCollector()
	}

	collector, err := metrics.NewCollector(cfg.MetricsConfig.ToMetrics(), logger)
	if err != nil {
		logger.Error("ошибка создания MetricsCollector, используется NopCollector",
			slog.String("error", err.Error()),
		)
		return metrics.NewNopCollector()
	}

	return collector
}

// ProvideTracerProvider создаёт OTel TracerProvider и возвращает его shutdown function.
// Если TracingConfig == nil или Enabled=false, возвращает nop shutdown.
// При ошибке создания возвращает nop shutdown и логирует ошибку.
func ProvideTracerProvider(cfg *config.Config, logger logging.Logger) func(context.Context) error {
	if cfg == nil || cfg.TracingConfig == nil {
		return tracing.NewNopTracerProvider()
	}

	shutdown, err := tracing.NewTracerProvider(cfg.TracingConfig.ToTracing(constants.Version), logger)
	if err != nil {
		logger.Error("ошибка инициализации tracing, используется nop provider",
			slog.String("error", err.Error()),
		)
		return tracing.NewNopTracerProvider()
	}

	return shutdown
}

// ProvideChannelFactory создаёт фабрику каналов на основе ChannelsConfig.
// Без ChannelsConfig используются channel.DefaultSettings().
func ProvideChannelFactory(cfg *config.Config, logger logging.Logger, collector metrics.Collector) *channel.Factory {
	settings := channel.DefaultSettings()
	if cfg != nil && cfg.ChannelsConfig != nil {
		settings = cfg.ChannelsConfig.ToSettings()
	}
	return channel.NewFactory(settings, logger, collector)
}

// ProvideConfiguration регистрирует определения алертов и замораживает конфигурацию.
// Без загруженных определений конфигурация пуста: любой алерт завершится ALERT.NOT_FOUND.
func ProvideConfiguration(cfg *config.Config, factory *channel.Factory, logger logging.Logger) (*registry.Configuration, error) {
	defs := &config.Definitions{}
	if cfg != nil && cfg.Definitions != nil {
		defs = cfg.Definitions
	}

	hooks := registry.NewHooks()
	err := hooks.Add(registry.PostAlertRegistration, registry.ListenerFunc(func(_ registry.Hook, subject any) error {
		if a, ok := subject.(*registry.Alert); ok {
			logger.Debug("алерт зарегистрирован",
				slog.String("alert", a.Name()),
				slog.String("scope", a.Scope().Name()),
			)
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}

	configuration, err := config.BuildConfiguration(defs, factory, registry.WithHooks(hooks))
	if err != nil {
		logger.Error("ошибка регистрации определений", slog.String("error", err.Error()))
		return nil, err
	}

	logger.Debug("конфигурация алертов собрана",
		slog.Int("alerts", len(configuration.Alerts())),
		slog.Int("channels", len(configuration.Channels())),
	)
	return configuration, nil
}

// ProvideOptInProvider открывает хранилище подписок выбранного backend-а.
// Cleanup закрывает соединение; для memory — no-op.
func ProvideOptInProvider(ctx context.Context, cfg *config.Config, logger logging.Logger) (optin.Provider, func(), error) {
	backend := config.OptInBackendMemory
	if cfg != nil && cfg.OptInConfig != nil {
		backend = cfg.OptInConfig.Backend
	}

	switch backend {
	case config.OptInBackendMemory, "":
		return optin.NewMemoryProvider(), func() {}, nil

	case config.OptInBackendMSSQL:
		p, err := optinsql.Open(ctx, cfg.OptInConfig.SQLOptions())
		if err != nil {
			return nil, nil, err
		}
		return p, closeProvider(logger, backend, p.Close), nil

	case config.OptInBackendRedis:
		p, err := optinredis.Open(ctx, cfg.OptInConfig.RedisOptions())
		if err != nil {
			return nil, nil, err
		}
		return p, closeProvider(logger, backend, p.Close), nil

	default:
		return nil, nil, apperrors.Newf(apperrors.ErrConfigValidate, "optin: неизвестный backend %q", backend)
	}
}

func closeProvider(logger logging.Logger, backend string, closeFn func() error) func() {
	return func() {
		if err := closeFn(); err != nil {
			logger.Warn("ошибка закрытия хранилища подписок",
				slog.String("backend", backend),
				slog.String("error", err.Error()),
			)
		}
	}
}
