package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/Kargones/apk-notify/internal/pkg/metrics"
	"github.com/Kargones/apk-notify/internal/pkg/urlutil"
)

// MetricsConfig содержит настройки для Prometheus метрик.
type MetricsConfig struct {
	// Enabled — включены ли метрики (по умолчанию false).
	Enabled bool `yaml:"enabled" env:"NTF_METRICS_ENABLED" env-default:"false"`

	// PushgatewayURL — URL Prometheus Pushgateway.
	// Пример: "http://pushgateway:9091"
	PushgatewayURL string `yaml:"pushgatewayUrl" env:"NTF_METRICS_PUSHGATEWAY_URL"`

	// JobName — имя job для группировки метрик.
	JobName string `yaml:"jobName" env:"NTF_METRICS_JOB_NAME" env-default:"apk-notify"`

	// Timeout — таймаут HTTP запросов к Pushgateway.
	Timeout time.Duration `yaml:"timeout" env:"NTF_METRICS_TIMEOUT" env-default:"10s"`

	// InstanceLabel — переопределение instance label. Пусто — hostname.
	InstanceLabel string `yaml:"instanceLabel" env:"NTF_METRICS_INSTANCE"`
}

// isMetricsConfigPresent проверяет, задана ли конфигурация метрик.
func isMetricsConfigPresent(cfg *MetricsConfig) bool {
	if cfg == nil {
		return false
	}
	return cfg.Enabled || cfg.PushgatewayURL != ""
}

// getDefaultMetricsConfig возвращает конфигурацию метрик по умолчанию. Метрики отключены.
func getDefaultMetricsConfig() *MetricsConfig {
	return &MetricsConfig{
		Enabled: false,
		JobName: "apk-notify",
		Timeout: 10 * time.Second,
	}
}

// loadMetricsConfig загружает конфигурацию метрик из AppConfig, переменных окружения или значений по умолчанию.
// Переменные окружения NTF_METRICS_* переопределяют значения из AppConfig.
func loadMetricsConfig(l *slog.Logger, cfg *Config) (*MetricsConfig, error) {
	if cfg.AppConfig != nil && isMetricsConfigPresent(&cfg.AppConfig.Metrics) {
		metricsConfig := &cfg.AppConfig.Metrics
		if err := cleanenv.ReadEnv(metricsConfig); err != nil {
			l.Warn("Ошибка загрузки Metrics конфигурации из переменных окружения",
				slog.String("error", err.Error()),
			)
		}
		l.Info("Metrics конфигурация загружена из AppConfig",
			slog.Bool("enabled", metricsConfig.Enabled),
			slog.String("pushgateway_url", urlutil.MaskURL(metricsConfig.PushgatewayURL)),
			slog.String("job_name", metricsConfig.JobName),
		)
		return metricsConfig, nil
	}

	metricsConfig := getDefaultMetricsConfig()

	if err := cleanenv.ReadEnv(metricsConfig); err != nil {
		l.Warn("Ошибка загрузки Metrics конфигурации из переменных окружения",
			slog.String("error", err.Error()),
		)
	}

	l.Debug("Metrics конфигурация: используются значения по умолчанию",
		slog.Bool("enabled", metricsConfig.Enabled),
	)

	return metricsConfig, nil
}

// validateMetricsConfig проверяет обязательные поля при включённых метриках.
func validateMetricsConfig(mc *MetricsConfig) error {
	if !mc.Enabled {
		return nil
	}
	if mc.PushgatewayURL == "" {
		return fmt.Errorf("metrics: pushgateway_url обязателен при enabled=true")
	}
	if mc.Timeout <= 0 {
		return fmt.Errorf("metrics: timeout должен быть положительным")
	}
	return nil
}

// ToMetrics преобразует конфигурацию в metrics.Config.
func (mc *MetricsConfig) ToMetrics() metrics.Config {
	return metrics.Config{
		Enabled:        mc.Enabled,
		PushgatewayURL: mc.PushgatewayURL,
		JobName:        mc.JobName,
		Timeout:        mc.Timeout,
		InstanceLabel:  mc.InstanceLabel,
	}
}
