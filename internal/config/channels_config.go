package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/Kargones/apk-notify/internal/channel"
)

// ChannelsConfig содержит настройки каналов доставки и шаблонов.
type ChannelsConfig struct {
	// ViewsDir — каталог шаблонов: <viewsDir>/<канал>/<алерт>.txt.tmpl.
	ViewsDir string `yaml:"viewsDir" env:"NTF_VIEWS_DIR" env-default:"views"`

	// ViewsEncoding — кодировка файлов шаблонов (windows-1251, koi8-r). Пусто — UTF-8.
	ViewsEncoding string `yaml:"viewsEncoding" env:"NTF_VIEWS_ENCODING"`

	// RateLimitWindow — минимальный интервал между одинаковыми доставками. 0 — без ограничения.
	RateLimitWindow time.Duration `yaml:"rateLimitWindow" env:"NTF_RATE_LIMIT_WINDOW" env-default:"0s"`

	// Email — настройки email канала.
	Email EmailChannelConfig `yaml:"email"`

	// Telegram — настройки telegram канала.
	Telegram TelegramChannelConfig `yaml:"telegram"`

	// Webhook — настройки webhook канала.
	Webhook WebhookChannelConfig `yaml:"webhook"`
}

// EmailChannelConfig содержит настройки email канала.
type EmailChannelConfig struct {
	// SMTPHost — адрес SMTP сервера.
	SMTPHost string `yaml:"smtpHost" env:"NTF_SMTP_HOST"`

	// SMTPPort — порт SMTP сервера (25, 465, 587).
	SMTPPort int `yaml:"smtpPort" env:"NTF_SMTP_PORT" env-default:"587"`

	// SMTPUser — пользователь для SMTP авторизации.
	SMTPUser string `yaml:"smtpUser" env:"NTF_SMTP_USER"`

	// SMTPPassword — пароль для SMTP авторизации.
	SMTPPassword string `yaml:"smtpPassword" env:"NTF_SMTP_PASSWORD"`

	// UseTLS — использовать TLS (StartTLS для 587, implicit для 465).
	UseTLS bool `yaml:"useTLS" env:"NTF_SMTP_TLS" env-default:"true"`

	// From — адрес отправителя.
	From string `yaml:"from" env:"NTF_EMAIL_FROM"`

	// Timeout — таймаут SMTP операций.
	Timeout time.Duration `yaml:"timeout" env:"NTF_SMTP_TIMEOUT" env-default:"30s"`
}

// TelegramChannelConfig содержит настройки telegram канала.
type TelegramChannelConfig struct {
	// BotToken — токен Telegram бота (получить у @BotFather).
	BotToken string `yaml:"botToken" env:"NTF_TELEGRAM_BOT_TOKEN"`

	// Timeout — таймаут HTTP запросов к Telegram API.
	Timeout time.Duration `yaml:"timeout" env:"NTF_TELEGRAM_TIMEOUT" env-default:"10s"`
}

// WebhookChannelConfig содержит настройки webhook канала.
type WebhookChannelConfig struct {
	// URLs — список URL для отправки webhook.
	URLs []string `yaml:"urls" env:"NTF_WEBHOOK_URLS" env-separator:","`

	// Headers — дополнительные HTTP заголовки (Authorization, X-Api-Key).
	// В env задаются как "Key:Value,Key2:Value2".
	Headers map[string]string `yaml:"headers" env:"NTF_WEBHOOK_HEADERS" env-separator:","`

	// Timeout — таймаут HTTP запросов.
	Timeout time.Duration `yaml:"timeout" env:"NTF_WEBHOOK_TIMEOUT" env-default:"10s"`

	// MaxRetries — максимальное количество повторных попыток.
	MaxRetries int `yaml:"maxRetries" env:"NTF_WEBHOOK_MAX_RETRIES" env-default:"3"`
}

// isChannelsConfigPresent проверяет, задана ли конфигурация каналов.
func isChannelsConfigPresent(cfg *ChannelsConfig) bool {
	if cfg == nil {
		return false
	}
	return cfg.ViewsDir != "" ||
		cfg.Email.SMTPHost != "" ||
		cfg.Telegram.BotToken != "" ||
		len(cfg.Webhook.URLs) > 0
}

// getDefaultChannelsConfig возвращает конфигурацию каналов по умолчанию.
func getDefaultChannelsConfig() *ChannelsConfig {
	return &ChannelsConfig{
		ViewsDir: "views",
		Email: EmailChannelConfig{
			SMTPPort: channel.DefaultSMTPPort,
			UseTLS:   true,
			Timeout:  channel.DefaultSMTPTimeout,
		},
		Telegram: TelegramChannelConfig{
			Timeout: channel.DefaultTelegramTimeout,
		},
		Webhook: WebhookChannelConfig{
			Timeout:    channel.DefaultWebhookTimeout,
			MaxRetries: channel.DefaultMaxRetries,
		},
	}
}

// loadChannelsConfig загружает конфигурацию каналов из AppConfig, переменных окружения или значений по умолчанию.
// Переменные окружения NTF_* переопределяют значения из AppConfig.
func loadChannelsConfig(l *slog.Logger, cfg *Config) (*ChannelsConfig, error) {
	if cfg.AppConfig != nil && isChannelsConfigPresent(&cfg.AppConfig.Channels) {
		channelsConfig := &cfg.AppConfig.Channels
		if err := cleanenv.ReadEnv(channelsConfig); err != nil {
			l.Warn("Ошибка загрузки Channels конфигурации из переменных окружения",
				slog.String("error", err.Error()),
			)
		}
		l.Info("Channels конфигурация загружена из AppConfig",
			slog.String("views_dir", channelsConfig.ViewsDir),
			slog.Bool("email", channelsConfig.Email.SMTPHost != ""),
			slog.Bool("telegram", channelsConfig.Telegram.BotToken != ""),
			slog.Int("webhook_urls", len(channelsConfig.Webhook.URLs)),
		)
		return channelsConfig, nil
	}

	channelsConfig := getDefaultChannelsConfig()

	if err := cleanenv.ReadEnv(channelsConfig); err != nil {
		l.Warn("Ошибка загрузки Channels конфигурации из переменных окружения",
			slog.String("error", err.Error()),
		)
	}

	l.Debug("Channels конфигурация: используются значения по умолчанию",
		slog.String("views_dir", channelsConfig.ViewsDir),
	)

	return channelsConfig, nil
}

// validateChannelsConfig проверяет значения, которые не зависят от выбранных каналов.
// Обязательные поля каждого канала проверяются при его создании (channel.Factory).
func validateChannelsConfig(cc *ChannelsConfig) error {
	if cc.ViewsDir == "" {
		return fmt.Errorf("channels: viewsDir обязателен")
	}
	if cc.RateLimitWindow < 0 {
		return fmt.Errorf("channels: rateLimitWindow не может быть отрицательным")
	}
	if cc.Webhook.MaxRetries < 0 {
		return fmt.Errorf("channels.webhook: maxRetries не может быть отрицательным")
	}
	return nil
}

// ToSettings преобразует конфигурацию в настройки пакета channel.
func (cc *ChannelsConfig) ToSettings() channel.Settings {
	return channel.Settings{
		ViewsDir:        cc.ViewsDir,
		ViewsEncoding:   cc.ViewsEncoding,
		RateLimitWindow: cc.RateLimitWindow,
		Email: channel.EmailConfig{
			SMTPHost:     cc.Email.SMTPHost,
			SMTPPort:     cc.Email.SMTPPort,
			SMTPUser:     cc.Email.SMTPUser,
			SMTPPassword: cc.Email.SMTPPassword,
			UseTLS:       cc.Email.UseTLS,
			From:         cc.Email.From,
			Timeout:      cc.Email.Timeout,
		},
		Telegram: channel.TelegramConfig{
			BotToken: cc.Telegram.BotToken,
			Timeout:  cc.Telegram.Timeout,
		},
		Webhook: channel.WebhookConfig{
			URLs:       cc.Webhook.URLs,
			Headers:    cc.Webhook.Headers,
			Timeout:    cc.Webhook.Timeout,
			MaxRetries: cc.Webhook.MaxRetries,
		},
	}
}
