package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Kargones/apk-notify/internal/entity/notify"
	"github.com/Kargones/apk-notify/internal/pkg/logging"
)

// TelegramAPIBaseURL — базовый URL Telegram Bot API.
const TelegramAPIBaseURL = "https://api.telegram.org/bot"

// TelegramParseMode — режим парсинга сообщений.
// Шаблоны экранируют значения функцией md (Markdown v1).
const TelegramParseMode = "Markdown"

// maxTelegramResponseSize — максимальный размер тела ответа Telegram API (1 KB).
const maxTelegramResponseSize = 1024

// HTTPClient определяет интерфейс HTTP клиента для тестирования.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Telegram доставляет уведомления через Telegram Bot API.
// Chat ID получателя — адрес сущности для ключа "telegram".
type Telegram struct {
	config     TelegramConfig
	renderer   *Renderer
	logger     logging.Logger
	httpClient HTTPClient
	baseURL    string
}

// NewTelegram создаёт telegram канал.
func NewTelegram(config TelegramConfig, renderer *Renderer, logger logging.Logger) (*Telegram, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultTelegramTimeout
	}
	return &Telegram{
		config:     config,
		renderer:   renderer,
		logger:     logging.OrNop(logger),
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    TelegramAPIBaseURL,
	}, nil
}

// SetHTTPClient устанавливает кастомный HTTPClient (для тестирования).
func (t *Telegram) SetHTTPClient(client HTTPClient) {
	t.httpClient = client
}

// Deliver рендерит сообщение один раз и отправляет его в чат каждого получателя.
// Ошибки по отдельным чатам объединяются; отправка в остальные чаты продолжается.
func (t *Telegram) Deliver(ctx context.Context, d notify.Delivery) error {
	chats := notify.AddressesFor(d.Recipients, KindTelegram)
	if len(chats) == 0 {
		t.logger.Warn("у получателей нет telegram chat id, сообщение не отправлено",
			"alert", d.Alert,
			"channel", d.Channel,
			"recipients", len(d.Recipients),
		)
		return nil
	}

	msg, err := t.renderer.Render(d)
	if err != nil {
		return err
	}
	text := msg.Body
	if msg.Subject != "" {
		text = "*" + EscapeMarkdown(msg.Subject) + "*\n\n" + text
	}

	var errs []error
	sent := 0
	for _, chatID := range chats {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := ValidateChatID(chatID); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q", err, chatID))
			continue
		}
		if err := t.sendToChat(ctx, chatID, text); err != nil {
			t.logger.Error("ошибка отправки telegram сообщения",
				"error", err.Error(),
				"chat_id", chatID,
				"alert", d.Alert,
			)
			errs = append(errs, err)
			continue
		}
		sent++
	}

	t.logger.Info("telegram доставка завершена",
		"alert", d.Alert,
		"channel", d.Channel,
		"chats_success", sent,
		"chats_total", len(chats),
	)
	return errors.Join(errs...)
}

// markdownReplacer экранирует символы Markdown v1. Backslash экранируется первым.
var markdownReplacer = strings.NewReplacer(
	`\`, `\\`,
	"_", "\\_",
	"*", "\\*",
	"`", "\\`",
	"[", "\\[",
	"]", "\\]",
	"(", "\\(",
	")", "\\)",
	">", "\\>",
)

// EscapeMarkdown экранирует специальные символы Markdown v1 для Telegram.
// Доступна в шаблонах как функция md.
func EscapeMarkdown(s string) string {
	return markdownReplacer.Replace(s)
}

// telegramRequest представляет запрос к Telegram API sendMessage.
type telegramRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// telegramResponse представляет ответ Telegram API.
type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// sendToChat отправляет сообщение в конкретный чат.
func (t *Telegram) sendToChat(ctx context.Context, chatID, text string) error {
	url := fmt.Sprintf("%s%s/sendMessage", t.baseURL, t.config.BotToken)

	jsonBody, err := json.Marshal(telegramRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: TelegramParseMode,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %s", t.redact(err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		// net/http включает URL (с токеном) в текст ошибки.
		return fmt.Errorf("HTTP request failed: %s", t.redact(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTelegramResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var telegramResp telegramResponse
	if err := json.Unmarshal(body, &telegramResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if !telegramResp.OK {
		return fmt.Errorf("%w %d: %s", ErrTelegramAPI, telegramResp.ErrorCode, telegramResp.Description)
	}
	return nil
}

func (t *Telegram) redact(err error) string {
	return strings.ReplaceAll(err.Error(), t.config.BotToken, "[REDACTED]")
}
