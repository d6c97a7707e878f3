package metrics

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/Kargones/apk-notify/internal/pkg/logging"
	"github.com/Kargones/apk-notify/internal/pkg/urlutil"
)

const namespace = "apk_notify"

// PrometheusCollector реализует Collector с Prometheus метриками.
// Отправляет метрики в Pushgateway при вызове Push().
type PrometheusCollector struct {
	config   Config
	logger   logging.Logger
	registry *prometheus.Registry

	deliveryDuration   *prometheus.HistogramVec
	deliveries         *prometheus.CounterVec
	deliveryRecipients *prometheus.CounterVec
	skipped            *prometheus.CounterVec
	filtered           *prometheus.CounterVec

	instance string
}

// NewPrometheusCollector создаёт PrometheusCollector с указанной конфигурацией.
// Регистрирует метрики:
//   - apk_notify_delivery_duration_seconds (histogram)
//   - apk_notify_deliveries_total (counter)
//   - apk_notify_delivery_recipients_total (counter)
//   - apk_notify_channel_skipped_total (counter)
//   - apk_notify_recipients_filtered_total (counter)
func NewPrometheusCollector(config Config, logger logging.Logger) (*PrometheusCollector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	logger = logging.OrNop(logger)

	instance := config.InstanceLabel
	if instance == "" {
		hostname, err := os.Hostname()
		if err != nil {
			logger.Warn("не удалось получить hostname для metrics instance label, используется 'unknown'",
				"error", err.Error())
			hostname = "unknown"
		}
		instance = hostname
	}

	registry := prometheus.NewRegistry()

	// Доставка — это сетевой вызов (SMTP, HTTP), поэтому buckets от 10мс до минуты.
	deliveryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_duration_seconds",
			Help:      "Duration of a single channel delivery in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"alert", "channel", "status"},
	)

	deliveries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Total number of channel deliveries",
		},
		[]string{"alert", "channel", "status"},
	)

	deliveryRecipients := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_recipients_total",
			Help:      "Total number of recipients passed to channel deliveries",
		},
		[]string{"alert", "channel"},
	)

	skipped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_skipped_total",
			Help:      "Total number of channels skipped during dispatch",
		},
		[]string{"alert", "channel", "reason"},
	)

	filtered := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recipients_filtered_total",
			Help:      "Recipients seen by opt-in filtering, by result",
		},
		[]string{"alert", "channel", "result"},
	)

	// Register вместо MustRegister: ошибка возможна только при дублировании имён.
	collectors := []prometheus.Collector{deliveryDuration, deliveries, deliveryRecipients, skipped, filtered}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("ошибка регистрации метрики: %w", err)
		}
	}

	return &PrometheusCollector{
		config:             config,
		logger:             logger,
		registry:           registry,
		deliveryDuration:   deliveryDuration,
		deliveries:         deliveries,
		deliveryRecipients: deliveryRecipients,
		skipped:            skipped,
		filtered:           filtered,
		instance:           instance,
	}, nil
}

// maxLabelLength — максимальная длина значения label для защиты от cardinality explosion.
const maxLabelLength = 128

// sanitizeLabel обрезает значение label до допустимой длины и заменяет
// контрольные символы, которые могут нарушить Prometheus text format.
// Обрезка выполняется по рунам для корректной работы с UTF-8.
func sanitizeLabel(value string) string {
	clean := strings.Map(func(r rune) rune {
		if r < 0x20 {
			return '_'
		}
		return r
	}, value)

	runes := []rune(clean)
	if len(runes) > maxLabelLength {
		return string(runes[:maxLabelLength])
	}
	return clean
}

// RecordDelivery реализует Collector.
func (c *PrometheusCollector) RecordDelivery(alert, channel string, recipients int, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	alert = sanitizeLabel(alert)
	channel = sanitizeLabel(channel)

	c.deliveryDuration.WithLabelValues(alert, channel, status).Observe(duration.Seconds())
	c.deliveries.WithLabelValues(alert, channel, status).Inc()
	c.deliveryRecipients.WithLabelValues(alert, channel).Add(float64(recipients))
}

// RecordSkipped реализует Collector.
func (c *PrometheusCollector) RecordSkipped(alert, channel, reason string) {
	c.skipped.WithLabelValues(sanitizeLabel(alert), sanitizeLabel(channel), sanitizeLabel(reason)).Inc()
}

// RecordFiltered реализует Collector.
func (c *PrometheusCollector) RecordFiltered(alert, channel string, kept, dropped int) {
	alert = sanitizeLabel(alert)
	channel = sanitizeLabel(channel)
	c.filtered.WithLabelValues(alert, channel, "kept").Add(float64(kept))
	c.filtered.WithLabelValues(alert, channel, "dropped").Add(float64(dropped))
}

// Push отправляет метрики в Pushgateway. Всегда возвращает nil, ошибки логируются.
func (c *PrometheusCollector) Push(ctx context.Context) error {
	if c.config.PushgatewayURL == "" {
		c.logger.Debug("metrics: pushgateway URL not configured, skipping push")
		return nil
	}

	select {
	case <-ctx.Done():
		c.logger.Debug("metrics push отменён")
		return nil
	default:
	}

	pusher := push.New(c.config.PushgatewayURL, c.config.JobName).
		Gatherer(c.registry).
		Grouping("instance", c.instance)

	pushCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	if err := pusher.PushContext(pushCtx); err != nil {
		c.logger.Error("ошибка отправки метрик в Pushgateway",
			"error", err.Error(),
			"url", urlutil.MaskURL(c.config.PushgatewayURL),
			"job", c.config.JobName,
		)
		return nil
	}

	c.logger.Info("метрики отправлены в Pushgateway",
		"url", urlutil.MaskURL(c.config.PushgatewayURL),
		"job", c.config.JobName,
		"instance", c.instance,
	)
	return nil
}

// Registry возвращает внутренний registry. Используется в тестах.
func (c *PrometheusCollector) Registry() *prometheus.Registry {
	return c.registry
}
