// Package logging предоставляет интерфейс и реализации для структурированного логирования apk-notify.
package logging

// Logger определяет интерфейс для структурированного логирования.
// Основная реализация — SlogAdapter поверх log/slog.
//
// Все методы принимают сообщение и опциональные key-value пары:
//
//	logger.Info("алерт отправлен", "alert", name, "channel", channel)
//
// ВАЖНО: Logger пишет в stderr или в файл, никогда в stdout:
// stdout зарезервирован под результат команды CLI.
type Logger interface {
	// Debug записывает сообщение уровня DEBUG.
	Debug(msg string, args ...any)

	// Info записывает сообщение уровня INFO.
	Info(msg string, args ...any)

	// Warn записывает сообщение уровня WARN.
	Warn(msg string, args ...any)

	// Error записывает сообщение уровня ERROR.
	Error(msg string, args ...any)

	// With возвращает новый Logger с добавленными атрибутами.
	//
	//	logger.With("alert", alert.Name).Debug("фильтрация получателей")
	With(args ...any) Logger
}

// NopLogger — реализация Logger, которая ничего не делает.
// Используется в тестах и как значение по умолчанию в опциях компонентов.
type NopLogger struct{}

// NewNopLogger создаёт Logger, который игнорирует все сообщения.
func NewNopLogger() Logger {
	return &NopLogger{}
}

// Debug ничего не делает.
func (n *NopLogger) Debug(_ string, _ ...any) {}

// Info ничего не делает.
func (n *NopLogger) Info(_ string, _ ...any) {}

// Warn ничего не делает.
func (n *NopLogger) Warn(_ string, _ ...any) {}

// Error ничего не делает.
func (n *NopLogger) Error(_ string, _ ...any) {}

// With возвращает тот же NopLogger: атрибуты всё равно игнорируются.
func (n *NopLogger) With(_ ...any) Logger {
	return n
}

// OrNop возвращает l, либо NopLogger если l == nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NewNopLogger()
	}
	return l
}
