// Package main содержит точку входа apk-notify.
// Приложение отправляет уведомления по декларативным определениям алертов
// и управляет подписками получателей.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Kargones/apk-notify/internal/config"
	"github.com/Kargones/apk-notify/internal/constants"
	"github.com/Kargones/apk-notify/internal/di"
	"github.com/Kargones/apk-notify/internal/pkg/tracing"
)

// shutdownTimeout ограничивает отправку метрик и span-ов при завершении.
const shutdownTimeout = 5 * time.Second

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run содержит основную логику приложения и возвращает exit code.
// os.Exit вызывается только в main, поэтому defer-ы run успевают отработать.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	command := commandFromArgs(args, os.Getenv("NTF_COMMAND"))
	if command == constants.ActVersion {
		_, _ = fmt.Fprintln(stdout, constants.Version)
		return constants.ExitOK
	}
	if !constants.IsValidAction(command) {
		_, _ = fmt.Fprintf(stderr, "неизвестная команда %q, допустимые: %v\n", command, constants.ValidActions())
		return constants.ExitUsage
	}

	cfg, err := config.LoadAll()
	if err != nil || cfg == nil {
		_, _ = fmt.Fprintf(stderr, "Не удалось загрузить конфигурацию приложения: %v\n", err)
		return constants.ExitConfig
	}
	cfg.Command = command

	l := cfg.Logger
	l.Debug("Информация о сборке", slog.String("version", constants.Version))

	ctx := context.Background()
	app, cleanup, err := di.InitializeApp(ctx, cfg)
	if err != nil {
		l.Error("Ошибка инициализации приложения",
			slog.String("error", err.Error()),
			slog.String(constants.MsgErrProcessing, constants.MsgAppExit),
		)
		return constants.ExitConfig
	}
	defer cleanup()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		app.Shutdown(shutdownCtx)
	}()

	ctx = tracing.WithTraceID(ctx, app.TraceID)
	ctx = tracing.ContextWithOTelTraceID(ctx, app.TraceID)

	ctx, span := tracing.StartSpan(ctx, command,
		attribute.String("command", command),
		attribute.String("alert", cfg.Alert),
		attribute.String("trace_id", app.TraceID),
	)
	code, execErr := execute(ctx, app, stdin, stdout)
	tracing.EndSpan(span, execErr)

	if execErr != nil {
		l.Error("Ошибка выполнения команды",
			slog.String("command", command),
			slog.String("trace_id", app.TraceID),
			slog.String("error", execErr.Error()),
			slog.String(constants.MsgErrProcessing, constants.MsgAppExit),
		)
	}
	return code
}

// commandFromArgs выбирает команду: первый аргумент имеет приоритет над NTF_COMMAND.
func commandFromArgs(args []string, env string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return env
}
