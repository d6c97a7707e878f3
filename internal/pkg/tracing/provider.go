package tracing

import (
	"context"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/Kargones/apk-notify/internal/pkg/logging"
)

// ShutdownFunc завершает TracerProvider, дожидаясь экспорта накопленных span-ов.
type ShutdownFunc func(context.Context) error

// NewNopTracerProvider возвращает nop shutdown function для выключенного трейсинга.
func NewNopTracerProvider() ShutdownFunc {
	return func(context.Context) error { return nil }
}

// NewTracerProvider создаёт OTel TracerProvider с OTLP HTTP exporter и BatchSpanProcessor
// и регистрирует его глобально. Выключенный трейсинг — nop shutdown function.
func NewTracerProvider(cfg Config, logger logging.Logger) (ShutdownFunc, error) {
	logger = logging.OrNop(logger)
	if !cfg.Enabled {
		logger.Debug("трейсинг выключен, используется nop provider")
		return NewNopTracerProvider(), nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// NewSchemaless: иначе Schema URL resource.Default() конфликтует с semconv v1.26.0.
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.Version),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, err
	}

	// WithEndpoint принимает только host:port.
	endpointHost := cfg.Endpoint
	if u, parseErr := url.Parse(cfg.Endpoint); parseErr == nil && u.Host != "" {
		endpointHost = u.Host
	}

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(endpointHost),
		otlptracehttp.WithTimeout(cfg.Timeout),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(cfg.SamplingRate)),
	)
	otel.SetTracerProvider(tp)

	logger.Info("OpenTelemetry трейсинг инициализирован",
		"endpoint", cfg.Endpoint,
		"service_name", cfg.ServiceName,
		"environment", cfg.Environment,
		"sampling_rate", cfg.SamplingRate,
	)

	return tp.Shutdown, nil
}

// ContextWithOTelTraceID добавляет в контекст remote span context с указанным trace ID,
// чтобы span-ы диспетчера использовали тот же идентификатор, что и логи.
// Невалидный traceIDHex — контекст без изменений.
func ContextWithOTelTraceID(ctx context.Context, traceIDHex string) context.Context {
	traceID, err := trace.TraceIDFromHex(traceIDHex)
	if err != nil {
		return ctx
	}
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	return trace.ContextWithRemoteSpanContext(ctx, sc)
}

// newSampler: remote parent тоже сэмплируется по rate, а не AlwaysSample,
// потому что ContextWithOTelTraceID ставит FlagsSampled на каждый запуск.
func newSampler(rate float64) sdktrace.Sampler {
	return sdktrace.ParentBased(
		sdktrace.TraceIDRatioBased(rate),
		sdktrace.WithRemoteParentSampled(sdktrace.TraceIDRatioBased(rate)),
	)
}
