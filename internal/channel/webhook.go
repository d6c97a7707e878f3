package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/Kargones/apk-notify/internal/entity/notify"
	"github.com/Kargones/apk-notify/internal/pkg/logging"
	"github.com/Kargones/apk-notify/internal/pkg/tracing"
	"github.com/Kargones/apk-notify/internal/pkg/urlutil"
)

// WebhookSource — значение поля source и основа User-Agent.
const WebhookSource = "apk-notify"

// maxResponseBodySize — максимальный размер тела HTTP ответа для диагностики (1 KB).
const maxResponseBodySize = 1024

// maxBackoff — потолок экспоненциальной задержки между повторами.
const maxBackoff = 4 * time.Second

// WebhookPayload — JSON тело webhook запроса.
type WebhookPayload struct {
	Alert      string         `json:"alert"`
	Scope      string         `json:"scope"`
	Channel    string         `json:"channel"`
	Group      string         `json:"group"`
	Recipients []string       `json:"recipients"`
	Subject    string         `json:"subject,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	Content    string         `json:"content"`
	TraceID    string         `json:"trace_id,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	Source     string         `json:"source"`
	Hostname   string         `json:"hostname,omitempty"`
}

// httpError представляет HTTP ошибку (не network).
type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Webhook доставляет уведомления HTTP POST запросом на все настроенные URL.
type Webhook struct {
	config     WebhookConfig
	renderer   *Renderer
	logger     logging.Logger
	httpClient HTTPClient
	hostname   string
	now        func() time.Time
	backoff    time.Duration
}

// NewWebhook создаёт webhook канал.
func NewWebhook(config WebhookConfig, renderer *Renderer, logger logging.Logger) (*Webhook, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultWebhookTimeout
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	return &Webhook{
		config:     config,
		renderer:   renderer,
		logger:     logging.OrNop(logger),
		httpClient: &http.Client{Timeout: timeout},
		hostname:   hostname,
		now:        time.Now,
		backoff:    time.Second,
	}, nil
}

// SetHTTPClient устанавливает кастомный HTTPClient (для тестирования).
func (w *Webhook) SetHTTPClient(client HTTPClient) {
	w.httpClient = client
}

// Deliver рендерит сообщение и отправляет payload на каждый URL.
// Ошибки по отдельным URL объединяются.
func (w *Webhook) Deliver(ctx context.Context, d notify.Delivery) error {
	msg, err := w.renderer.Render(d)
	if err != nil {
		return err
	}
	payload := WebhookPayload{
		Alert:      d.Alert,
		Scope:      d.Scope,
		Channel:    d.Channel,
		Group:      d.Group,
		Recipients: d.RecipientIDs(),
		Subject:    msg.Subject,
		Data:       msg.Data,
		Content:    msg.Body,
		TraceID:    tracing.TraceIDFromContext(ctx),
		Timestamp:  w.now().UTC(),
		Source:     WebhookSource,
		Hostname:   w.hostname,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	var errs []error
	for _, url := range w.config.URLs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := w.sendWithRetry(ctx, url, body); err != nil {
			w.logger.Error("ошибка отправки webhook",
				"error", err.Error(),
				"url", urlutil.MaskURL(url),
				"alert", d.Alert,
			)
			errs = append(errs, fmt.Errorf("webhook %s: %w", urlutil.MaskURL(url), err))
		}
	}
	if len(errs) == 0 {
		w.logger.Info("webhook отправлен",
			"alert", d.Alert,
			"channel", d.Channel,
			"urls_total", len(w.config.URLs),
		)
	}
	return errors.Join(errs...)
}

// sendWithRetry повторяет network ошибки и 5xx с задержкой 1s, 2s, 4s.
// 4xx не повторяются: это ошибка конфигурации.
func (w *Webhook) sendWithRetry(ctx context.Context, url string, body []byte) error {
	maxRetries := w.config.MaxRetries

	var lastErr error
	backoff := w.backoff

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
			}

			w.logger.Debug("webhook retry",
				"attempt", attempt,
				"max_retries", maxRetries,
				"error", lastErr.Error(),
				"url", urlutil.MaskURL(url),
			)
		}

		lastErr = w.sendRequest(ctx, url, body)
		if lastErr == nil {
			return nil
		}
		if isClientHTTPError(lastErr) {
			return lastErr
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", maxRetries+1, lastErr)
}

// sendRequest отправляет HTTP POST запрос.
func (w *Webhook) sendRequest(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", WebhookSource+"/1.0")
	for key, value := range w.config.Headers {
		req.Header.Set(key, value)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBodySize)) //nolint:errcheck // best-effort drain
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	return &httpError{
		StatusCode: resp.StatusCode,
		Body:       string(respBody),
	}
}

// isClientHTTPError проверяет, является ли ошибка клиентской HTTP ошибкой (4xx).
func isClientHTTPError(err error) bool {
	var httpErr *httpError
	if !errors.As(err, &httpErr) {
		return false
	}
	return httpErr.StatusCode >= 400 && httpErr.StatusCode < 500
}
