package logging

import "log/slog"

// SlogAdapter реализует Logger interface поверх slog из stdlib.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter создаёт SlogAdapter с указанным slog.Logger.
// При nil logger используется slog.Default().
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAdapter{logger: logger}
}

// Debug записывает сообщение уровня DEBUG.
func (s *SlogAdapter) Debug(msg string, args ...any) {
	s.logger.Debug(msg, args...)
}

// Info записывает сообщение уровня INFO.
func (s *SlogAdapter) Info(msg string, args ...any) {
	s.logger.Info(msg, args...)
}

// Warn записывает сообщение уровня WARN.
func (s *SlogAdapter) Warn(msg string, args ...any) {
	s.logger.Warn(msg, args...)
}

// Error записывает сообщение уровня ERROR.
func (s *SlogAdapter) Error(msg string, args ...any) {
	s.logger.Error(msg, args...)
}

// With возвращает новый Logger с добавленными атрибутами.
func (s *SlogAdapter) With(args ...any) Logger {
	return &SlogAdapter{logger: s.logger.With(args...)}
}

// Slog возвращает нижележащий *slog.Logger.
// Нужен компонентам, которые принимают только стандартный логгер.
func (s *SlogAdapter) Slog() *slog.Logger {
	return s.logger
}
