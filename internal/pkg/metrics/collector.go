// Package metrics предоставляет интерфейсы и реализации для сбора метрик отправки уведомлений
// и их отправки в Prometheus Pushgateway.
//
// CLI живёт меньше интервала scrape, поэтому метрики не экспонируются по HTTP,
// а отправляются в Pushgateway по завершении команды.
package metrics

import (
	"context"
	"time"
)

// Причины пропуска канала при отправке.
const (
	SkipNoRecipients = "no_recipients"
	SkipProduct      = "product"
	SkipThrottled    = "throttled"
)

// Collector определяет интерфейс для сбора метрик диспетчера.
// Реализации: PrometheusCollector (активный) и NopCollector (no-op).
type Collector interface {
	// RecordDelivery записывает результат доставки через канал.
	// recipients — количество получателей после фильтрации подписок.
	RecordDelivery(alert, channel string, recipients int, duration time.Duration, success bool)

	// RecordSkipped записывает пропуск канала. reason — одна из констант Skip*.
	RecordSkipped(alert, channel, reason string)

	// RecordFiltered записывает результат фильтрации подписок: kept оставлено, dropped отброшено.
	RecordFiltered(alert, channel string, kept, dropped int)

	// Push отправляет метрики в Pushgateway.
	// Ошибки логируются внутри реализации, метод всегда возвращает nil:
	// сбой метрик не должен менять результат команды.
	Push(ctx context.Context) error
}
