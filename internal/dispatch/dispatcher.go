// Package dispatch отправляет один алерт: находит scope и группы получателей,
// разрешает каналы, фильтрует получателей по подпискам и передаёт доставку каналам.
//
// Dispatcher создаётся на один вызов алерта и не хранит состояния между вызовами:
//
//	d := dispatch.New(cfg, provider, "new_comment", payload, dispatch.WithLogger(logger))
//	if err := d.Dispatch(ctx); err != nil { ... }
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Kargones/apk-notify/internal/entity/notify"
	"github.com/Kargones/apk-notify/internal/optin"
	"github.com/Kargones/apk-notify/internal/pkg/apperrors"
	"github.com/Kargones/apk-notify/internal/pkg/logging"
	"github.com/Kargones/apk-notify/internal/pkg/metrics"
	"github.com/Kargones/apk-notify/internal/pkg/tracing"
	"github.com/Kargones/apk-notify/internal/registry"
)

// Dispatcher отправляет один алерт с payload.
type Dispatcher struct {
	config    *registry.Configuration
	provider  optin.Provider
	alertName string
	payload   any

	logger  logging.Logger
	metrics metrics.Collector
	product string
}

// Option настраивает Dispatcher.
type Option func(*Dispatcher)

// WithLogger задаёт logger. По умолчанию — NopLogger.
func WithLogger(l logging.Logger) Option {
	return func(d *Dispatcher) { d.logger = logging.OrNop(l) }
}

// WithMetrics задаёт collector метрик. По умолчанию — NopCollector.
func WithMetrics(c metrics.Collector) Option {
	return func(d *Dispatcher) { d.metrics = metrics.OrNop(c) }
}

// WithProduct задаёт продукт, от имени которого вызван алерт.
// Алерт, ограниченный другими продуктами, не отправляется.
func WithProduct(product string) Option {
	return func(d *Dispatcher) { d.product = product }
}

// New создаёт Dispatcher. Алерт ищется лениво: New не возвращает ошибку.
func New(cfg *registry.Configuration, provider optin.Provider, alertName string, payload any, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		config:    cfg,
		provider:  provider,
		alertName: alertName,
		payload:   payload,
		logger:    logging.NewNopLogger(),
		metrics:   metrics.NewNopCollector(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Alert возвращает алерт или ALERT.NOT_FOUND.
func (d *Dispatcher) Alert() (*registry.Alert, error) {
	if d.config != nil {
		if a, ok := d.config.Alert(d.alertName); ok {
			return a, nil
		}
	}
	return nil, apperrors.Newf(apperrors.ErrAlertNotFound, "алерт %q не зарегистрирован", d.alertName)
}

// Scope возвращает scope алерта.
func (d *Dispatcher) Scope() (*registry.Scope, error) {
	a, err := d.Alert()
	if err != nil {
		return nil, err
	}
	return a.Scope(), nil
}

// Notifiers возвращает копию отображения "группа → цель" алерта.
func (d *Dispatcher) Notifiers() (map[string]string, error) {
	a, err := d.Alert()
	if err != nil {
		return nil, err
	}
	return a.Notifiers(), nil
}

// Recipients возвращает получателей группы от резолвера scope.
// Неизвестная группа и отсутствующий резолвер — DISPATCH.RESOLUTION_FAILED.
func (d *Dispatcher) Recipients(ctx context.Context, group string) ([]notify.Recipient, error) {
	scope, err := d.Scope()
	if err != nil {
		return nil, err
	}
	r := scope.Resolver()
	if r == nil {
		return nil, apperrors.Newf(apperrors.ErrDispatchResolution,
			"scope %s: резолвер получателей не задан", scope.Name())
	}

	recipients, err := r.Resolve(ctx, group, d.payload)
	if err != nil {
		if errors.Is(err, notify.ErrUnknownGroup) {
			return nil, apperrors.NewAppError(apperrors.ErrDispatchResolution,
				fmt.Sprintf("scope %s: группа получателей %q не разрешена", scope.Name(), group), err)
		}
		return nil, fmt.Errorf("dispatch: scope %s, группа %s: %w", scope.Name(), group, err)
	}
	return recipients, nil
}

// FilterRecipients оставляет получателей, подписанных на алерт в канале:
// явная запись со значением true, либо записи нет и значение по умолчанию канала true.
// Порядок сохраняется, хранилище подписок не изменяется.
func (d *Dispatcher) FilterRecipients(ctx context.Context, recipients []notify.Recipient, channel string) ([]notify.Recipient, error) {
	a, err := d.Alert()
	if err != nil {
		return nil, err
	}
	out, err := d.filter(ctx, a, recipients, channel)
	if err != nil || len(recipients) == 0 {
		return out, err
	}
	d.metrics.RecordFiltered(a.Name(), channel, len(out), len(recipients)-len(out))
	return out, nil
}

func (d *Dispatcher) filter(ctx context.Context, a *registry.Alert, recipients []notify.Recipient, channel string) ([]notify.Recipient, error) {
	def, err := a.DefaultFor(channel)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, nil
	}

	out := make([]notify.Recipient, 0, len(recipients))
	for _, r := range recipients {
		keep := def
		if d.provider != nil {
			v, found, err := d.provider.Lookup(ctx, optin.Key{
				Scope:    a.Scope().Name(),
				EntityID: r.RecipientID(),
				Alert:    a.Name(),
				Channel:  channel,
			})
			if err != nil {
				return nil, err
			}
			if found {
				keep = v
			}
		}
		if keep {
			out = append(out, r)
		}
	}
	return out, nil
}

// ChannelsFor разрешает цель notifier-а в каналы.
// Пустая группа "default" — не ошибка, любая другая неразрешённая цель — DISPATCH.RESOLUTION_FAILED.
func (d *Dispatcher) ChannelsFor(target string) ([]*registry.Channel, error) {
	channels := d.config.ChannelsFor(target)
	if len(channels) == 0 && target != registry.DefaultGroup {
		return nil, apperrors.Newf(apperrors.ErrDispatchResolution,
			"алерт %s: цель %q не является ни каналом, ни группой каналов", d.alertName, target)
	}
	return channels, nil
}

// Report — итог одного вызова Dispatch.
type Report struct {
	// Deliveries — успешные вызовы каналов.
	Deliveries int `json:"deliveries"`
	// Recipients — сумма получателей по успешным доставкам.
	Recipients int `json:"recipients"`
	// Dropped — получатели, отброшенные фильтром подписок.
	Dropped int `json:"dropped"`
	// Skipped — пропущенные каналы и группы без каналов.
	Skipped int `json:"skipped"`
	// ProductSkipped — алерт не относится к продукту вызова.
	ProductSkipped bool `json:"product_skipped,omitempty"`
}

// Dispatch отправляет алерт: группы получателей по порядку объявления,
// каналы цели по порядку регистрации. Пустой после фильтрации список — канал пропускается.
// Первая ошибка прерывает отправку; уже выполненные доставки не откатываются.
func (d *Dispatcher) Dispatch(ctx context.Context) error {
	_, err := d.DispatchReport(ctx)
	return err
}

// DispatchReport выполняет Dispatch и возвращает счётчики доставок.
// При ошибке Report описывает доставки, выполненные до неё.
func (d *Dispatcher) DispatchReport(ctx context.Context) (report Report, err error) {
	a, err := d.Alert()
	if err != nil {
		return report, err
	}

	logger := d.logger.With("alert", a.Name(), "scope", a.Scope().Name())
	if traceID := tracing.TraceIDFromContext(ctx); traceID != "" {
		logger = logger.With("trace_id", traceID)
	}

	ctx, span := tracing.StartSpan(ctx, "dispatch "+a.Name(),
		attribute.String("notify.alert", a.Name()),
		attribute.String("notify.scope", a.Scope().Name()),
	)
	defer func() { tracing.EndSpan(span, err) }()

	if d.product != "" && !a.AppliesTo(d.product) {
		logger.Debug("алерт не относится к продукту, отправка пропущена", "product", d.product)
		d.metrics.RecordSkipped(a.Name(), "", metrics.SkipProduct)
		report.ProductSkipped = true
		return report, nil
	}

	for _, group := range a.Groups() {
		target, _ := a.Target(group)
		channels, err := d.ChannelsFor(target)
		if err != nil {
			return report, err
		}
		if len(channels) == 0 {
			logger.Debug("группа каналов пуста", "group", group, "target", target)
			report.Skipped++
			continue
		}

		recipients, err := d.Recipients(ctx, group)
		if err != nil {
			return report, err
		}

		for _, ch := range channels {
			if err := d.deliver(ctx, logger, a, group, ch, recipients, &report); err != nil {
				return report, err
			}
		}
	}
	return report, nil
}

func (d *Dispatcher) deliver(ctx context.Context, logger logging.Logger, a *registry.Alert,
	group string, ch *registry.Channel, recipients []notify.Recipient, report *Report) (err error) {
	filtered, err := d.FilterRecipients(ctx, recipients, ch.Name())
	if err != nil {
		return err
	}
	report.Dropped += len(recipients) - len(filtered)
	if len(filtered) == 0 {
		report.Skipped++
		logger.Debug("нет подписанных получателей", "group", group, "channel", ch.Name())
		d.metrics.RecordSkipped(a.Name(), ch.Name(), metrics.SkipNoRecipients)
		return nil
	}

	ctx, span := tracing.StartSpan(ctx, "deliver "+ch.Name(),
		attribute.String("notify.channel", ch.Name()),
		attribute.String("notify.group", group),
		attribute.Int("notify.recipients", len(filtered)),
	)
	defer func() { tracing.EndSpan(span, err) }()

	start := time.Now()
	deliveryErr := ch.Deliverer().Deliver(ctx, notify.Delivery{
		Alert:      a.Name(),
		Scope:      a.Scope().Name(),
		Channel:    ch.Name(),
		Group:      group,
		Recipients: filtered,
		Payload:    d.payload,
	})
	d.metrics.RecordDelivery(a.Name(), ch.Name(), len(filtered), time.Since(start), deliveryErr == nil)

	if deliveryErr != nil {
		logger.Error("ошибка доставки", "group", group, "channel", ch.Name(), "error", deliveryErr.Error())
		return apperrors.NewAppError(apperrors.ErrDeliveryFailed,
			fmt.Sprintf("алерт %s: доставка через канал %s группе %s", a.Name(), ch.Name(), group), deliveryErr)
	}

	report.Deliveries++
	report.Recipients += len(filtered)
	logger.Info("уведомление доставлено", "group", group, "channel", ch.Name(), "recipients", len(filtered))
	return nil
}
