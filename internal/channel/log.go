package channel

import (
	"context"

	"github.com/Kargones/apk-notify/internal/entity/notify"
	"github.com/Kargones/apk-notify/internal/pkg/logging"
)

// Log пишет отрендеренное уведомление в лог. Используется для отладки и dry-run.
type Log struct {
	renderer *Renderer
	logger   logging.Logger
}

// NewLog создаёт лог-канал.
func NewLog(renderer *Renderer, logger logging.Logger) *Log {
	return &Log{renderer: renderer, logger: logging.OrNop(logger)}
}

// Deliver реализует notify.Deliverer.
func (l *Log) Deliver(_ context.Context, d notify.Delivery) error {
	msg, err := l.renderer.Render(d)
	if err != nil {
		return err
	}
	l.logger.Info("уведомление",
		"alert", d.Alert,
		"scope", d.Scope,
		"channel", d.Channel,
		"group", d.Group,
		"recipients", d.RecipientIDs(),
		"subject", msg.Subject,
		"content", msg.Body,
	)
	return nil
}
