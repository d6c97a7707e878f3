package channel

import (
	"net/url"
	"time"
)

// Значения по умолчанию для каналов.
const (
	// DefaultRateLimitWindow — минимальный интервал между доставками одного алерта в канал.
	DefaultRateLimitWindow = 5 * time.Minute

	// DefaultSMTPPort — порт SMTP по умолчанию (StartTLS).
	DefaultSMTPPort = 587

	// DefaultSMTPTimeout — таймаут SMTP операций по умолчанию.
	DefaultSMTPTimeout = 30 * time.Second

	// DefaultTelegramTimeout — таймаут Telegram API по умолчанию.
	DefaultTelegramTimeout = 10 * time.Second

	// DefaultWebhookTimeout — таймаут HTTP запросов по умолчанию.
	DefaultWebhookTimeout = 10 * time.Second

	// DefaultMaxRetries — количество повторных попыток webhook по умолчанию.
	DefaultMaxRetries = 3
)

// Settings — настройки всех каналов, передаются в фабрику New.
type Settings struct {
	// ViewsDir — корневой каталог шаблонов.
	ViewsDir string

	// ViewsEncoding — кодировка файлов шаблонов. Пусто — UTF-8.
	ViewsEncoding string

	// RateLimitWindow — окно Throttled. 0 — без ограничения частоты.
	RateLimitWindow time.Duration

	Email    EmailConfig
	Telegram TelegramConfig
	Webhook  WebhookConfig
}

// EmailConfig содержит настройки email канала.
// Получатели берутся из адресов сущностей ("email"), а не из конфигурации.
type EmailConfig struct {
	// SMTPHost — адрес SMTP сервера.
	SMTPHost string

	// SMTPPort — порт SMTP сервера (25, 465, 587).
	SMTPPort int

	// SMTPUser — пользователь для SMTP авторизации.
	SMTPUser string

	// SMTPPassword — пароль для SMTP авторизации.
	SMTPPassword string

	// UseTLS — использовать TLS (StartTLS для 587, implicit для 465).
	UseTLS bool

	// From — адрес отправителя.
	From string

	// Timeout — таймаут SMTP операций.
	Timeout time.Duration
}

// TelegramConfig содержит настройки telegram канала.
// Chat ID берутся из адресов сущностей ("telegram").
type TelegramConfig struct {
	// BotToken — токен Telegram бота (получить у @BotFather).
	BotToken string

	// Timeout — таймаут HTTP запросов к Telegram API.
	Timeout time.Duration
}

// WebhookConfig содержит настройки webhook канала.
type WebhookConfig struct {
	// URLs — список URL для отправки webhook.
	URLs []string

	// Headers — дополнительные HTTP заголовки.
	Headers map[string]string

	// Timeout — таймаут HTTP запросов.
	Timeout time.Duration

	// MaxRetries — максимальное количество повторных попыток.
	MaxRetries int
}

// DefaultSettings возвращает настройки по умолчанию.
func DefaultSettings() Settings {
	return Settings{
		ViewsDir:        "views",
		RateLimitWindow: 0,
		Email: EmailConfig{
			SMTPPort: DefaultSMTPPort,
			UseTLS:   true,
			Timeout:  DefaultSMTPTimeout,
		},
		Telegram: TelegramConfig{
			Timeout: DefaultTelegramTimeout,
		},
		Webhook: WebhookConfig{
			Timeout:    DefaultWebhookTimeout,
			MaxRetries: DefaultMaxRetries,
		},
	}
}

// Validate проверяет корректность EmailConfig.
func (e *EmailConfig) Validate() error {
	if e.SMTPHost == "" {
		return ErrSMTPHostRequired
	}
	if e.From == "" {
		return ErrFromRequired
	}
	// Управляющие символы в From могут внедрить произвольные SMTP заголовки.
	if containsInvalidEmailHeaderChars(e.From) {
		return ErrEmailAddressInvalid
	}
	return nil
}

// Validate проверяет корректность TelegramConfig.
func (t *TelegramConfig) Validate() error {
	if t.BotToken == "" {
		return ErrTelegramBotTokenRequired
	}
	return nil
}

// Validate проверяет корректность WebhookConfig.
func (w *WebhookConfig) Validate() error {
	if len(w.URLs) == 0 {
		return ErrWebhookURLRequired
	}

	for _, rawURL := range w.URLs {
		u, err := url.Parse(rawURL)
		if err != nil {
			return ErrWebhookURLInvalid
		}
		if u.Scheme == "" || u.Host == "" {
			return ErrWebhookURLInvalid
		}
		// Только http и https: file://, ftp:// и т.д. запрещены.
		if u.Scheme != "http" && u.Scheme != "https" {
			return ErrWebhookURLInvalid
		}
	}

	for key, value := range w.Headers {
		if containsInvalidHTTPHeaderChars(key) || containsInvalidHTTPHeaderChars(value) {
			return ErrWebhookHeaderInvalid
		}
	}
	return nil
}

// ValidateChatID проверяет формат chat ID: число (возможно отрицательное) или @username.
func ValidateChatID(chatID string) error {
	if chatID == "" {
		return ErrTelegramChatIDInvalid
	}
	if chatID[0] == '@' {
		if len(chatID) == 1 {
			return ErrTelegramChatIDInvalid
		}
		return nil
	}
	start := 0
	if chatID[0] == '-' {
		if len(chatID) == 1 {
			return ErrTelegramChatIDInvalid
		}
		start = 1
	}
	for _, ch := range chatID[start:] {
		if ch < '0' || ch > '9' {
			return ErrTelegramChatIDInvalid
		}
	}
	return nil
}

// containsInvalidHTTPHeaderChars проверяет наличие запрещённых символов в HTTP заголовке.
// По RFC 7230 разрешены HTAB (0x09) и все printable ASCII.
func containsInvalidHTTPHeaderChars(s string) bool {
	for _, r := range s {
		if r == 0x09 {
			continue
		}
		if r <= 0x1f || r == 0x7f {
			return true
		}
	}
	return false
}

// containsInvalidEmailHeaderChars проверяет наличие управляющих символов в email адресе.
// По RFC 5322 запрещены все control characters, включая HTAB.
func containsInvalidEmailHeaderChars(s string) bool {
	for _, r := range s {
		if r <= 0x1f || r == 0x7f {
			return true
		}
	}
	return false
}
