//go:build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"github.com/Kargones/apk-notify/internal/config"
)

//go:generate wire

// ProviderSet объединяет все провайдеры приложения.
//
// При добавлении новых провайдеров:
// 1. Создать функцию провайдера в providers.go
// 2. Добавить её в ProviderSet
// 3. Перегенерировать: go generate ./internal/di/...
var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideOutputWriter,
	ProvideTraceID,
	ProvideMetricsCollector,
	ProvideTracerProvider,
	ProvideChannelFactory,
	ProvideConfiguration,
	ProvideOptInProvider,
	wire.Struct(new(App), "*"),
)

// InitializeApp создаёт App через Wire DI.
// Принимает Config, загруженный через config.LoadAll().
// Возвращаемая cleanup-функция закрывает соединения хранилища подписок.
//
// Пример использования:
//
//	cfg, err := config.LoadAll()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	app, cleanup, err := di.InitializeApp(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cleanup()
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(ProviderSet)
	return nil, nil, nil
}
