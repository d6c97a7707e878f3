package channel

import (
	"fmt"

	"github.com/Kargones/apk-notify/internal/entity/notify"
	"github.com/Kargones/apk-notify/internal/pkg/logging"
	"github.com/Kargones/apk-notify/internal/pkg/metrics"
)

// Factory создаёт каналы по типу с общими Renderer и RateLimiter.
type Factory struct {
	settings Settings
	renderer *Renderer
	limiter  *RateLimiter
	logger   logging.Logger
	metrics  metrics.Collector
}

// NewFactory создаёт фабрику каналов. Renderer строится из settings.ViewsDir.
func NewFactory(settings Settings, logger logging.Logger, collector metrics.Collector) *Factory {
	return NewFactoryWithRenderer(settings,
		NewRenderer(settings.ViewsDir, WithEncoding(settings.ViewsEncoding)), logger, collector)
}

// NewFactoryWithRenderer создаёт фабрику с заданным Renderer.
func NewFactoryWithRenderer(settings Settings, renderer *Renderer, logger logging.Logger, collector metrics.Collector) *Factory {
	f := &Factory{
		settings: settings,
		renderer: renderer,
		logger:   logging.OrNop(logger),
		metrics:  metrics.OrNop(collector),
	}
	if settings.RateLimitWindow > 0 {
		f.limiter = NewRateLimiter(settings.RateLimitWindow)
	}
	return f
}

// Renderer возвращает общий Renderer фабрики.
func (f *Factory) Renderer() *Renderer { return f.renderer }

// New создаёт канал указанного типа. Если задан RateLimitWindow, канал оборачивается в Throttled.
func (f *Factory) New(kind string) (notify.Deliverer, error) {
	logger := f.logger.With("channel_kind", kind)

	var (
		d   notify.Deliverer
		err error
	)
	switch kind {
	case KindEmail:
		d, err = NewEmail(f.settings.Email, f.renderer, logger)
	case KindTelegram:
		d, err = NewTelegram(f.settings.Telegram, f.renderer, logger)
	case KindWebhook:
		d, err = NewWebhook(f.settings.Webhook, f.renderer, logger)
	case KindLog:
		d = NewLog(f.renderer, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err != nil {
		return nil, err
	}

	if f.limiter != nil {
		d = NewThrottled(d, f.limiter, logger, f.metrics)
	}
	return d, nil
}
