// Package channel содержит реализации доставки уведомлений: email (SMTP), Telegram, HTTP webhook
// и лог, а также общий Renderer шаблонов и декоратор Throttled.
//
// Каждый канал реализует notify.Deliverer и рендерит сообщение через Renderer:
// шаблон <views>/<канал>/<алерт>.txt.tmpl и, если есть, <views>/<канал>/layout.txt.tmpl.
// Ошибки доставки возвращаются вызывающему коду, каналы их не подавляют.
package channel

// Типы каналов, поддерживаемые фабрикой New.
const (
	KindEmail    = "email"
	KindTelegram = "telegram"
	KindWebhook  = "webhook"
	KindLog      = "log"
)

// Message — отрендеренное сообщение для одной доставки.
type Message struct {
	// Subject — значение ключа subject из frontmatter, либо пустая строка.
	Subject string

	// Body — тело сообщения (вместе с layout).
	Body string

	// Data — весь frontmatter. nil, если его нет.
	Data map[string]any
}
