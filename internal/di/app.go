package di

import (
	"context"
	"log/slog"

	"github.com/Kargones/apk-notify/internal/channel"
	"github.com/Kargones/apk-notify/internal/config"
	"github.com/Kargones/apk-notify/internal/dispatch"
	"github.com/Kargones/apk-notify/internal/optin"
	"github.com/Kargones/apk-notify/internal/pkg/logging"
	"github.com/Kargones/apk-notify/internal/pkg/metrics"
	"github.com/Kargones/apk-notify/internal/pkg/output"
	"github.com/Kargones/apk-notify/internal/registry"
)

// App содержит инициализированные зависимости приложения.
// Создаётся через Wire DI в InitializeApp().
//
// При добавлении новых зависимостей:
// 1. Добавить поле в App struct
// 2. Создать провайдер в providers.go
// 3. Добавить провайдер в ProviderSet в wire.go
// 4. Перегенерировать wire_gen.go: go generate ./internal/di/...
type App struct {
	// Config содержит конфигурацию приложения. Передаётся извне через InitializeApp().
	Config *config.Config

	// Logger предоставляет структурированное логирование.
	Logger logging.Logger

	// OutputWriter форматирует результаты команд (NTF_OUTPUT_FORMAT).
	OutputWriter output.Writer

	// TraceID — идентификатор запуска для корреляции логов.
	TraceID string

	// MetricsCollector собирает метрики доставки для Prometheus Pushgateway.
	// Если метрики отключены — NopCollector.
	MetricsCollector metrics.Collector

	// TracerShutdown завершает OTel TracerProvider и отправляет буферизированные span-ы.
	TracerShutdown func(context.Context) error

	// Channels создаёт каналы доставки по виду.
	Channels *channel.Factory

	// Configuration — замороженная конфигурация алертов из файла определений.
	Configuration *registry.Configuration

	// OptIn — хранилище подписок выбранного backend-а.
	OptIn optin.Provider
}

// Dispatcher создаёт Dispatcher для одного вызова алерта с зависимостями App.
func (a *App) Dispatcher(alert string, payload any) *dispatch.Dispatcher {
	var product string
	if a.Config != nil {
		product = a.Config.Product
	}
	return dispatch.New(a.Configuration, a.OptIn, alert, payload,
		dispatch.WithLogger(a.Logger.With("trace_id", a.TraceID)),
		dispatch.WithMetrics(a.MetricsCollector),
		dispatch.WithProduct(product),
	)
}

// Shutdown отправляет метрики и завершает tracing. Ошибки логируются и не прерывают завершение.
func (a *App) Shutdown(ctx context.Context) {
	if err := a.MetricsCollector.Push(ctx); err != nil {
		a.Logger.Warn("не удалось отправить метрики", slog.String("error", err.Error()))
	}
	if a.TracerShutdown != nil {
		if err := a.TracerShutdown(ctx); err != nil {
			a.Logger.Warn("не удалось завершить tracing", slog.String("error", err.Error()))
		}
	}
}
