package channel

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"github.com/Kargones/apk-notify/internal/entity/notify"
	"github.com/Kargones/apk-notify/internal/pkg/logging"
)

// SMTP порты.
const (
	// SMTPPortStartTLS — порт для SMTP с StartTLS (рекомендуемый).
	SMTPPortStartTLS = 587
	// SMTPPortImplicitTLS — порт для SMTP с implicit TLS (SSL).
	SMTPPortImplicitTLS = 465
	// SMTPPortPlain — порт для SMTP без шифрования (не рекомендуется).
	SMTPPortPlain = 25
)

// SMTPDialer определяет интерфейс для создания SMTP соединений.
type SMTPDialer interface {
	DialContext(ctx context.Context, addr string) (SMTPClient, error)
}

// SMTPClient определяет интерфейс SMTP клиента.
type SMTPClient interface {
	StartTLS(config *tls.Config) error
	Auth(a smtp.Auth) error
	Mail(from string) error
	Rcpt(to string) error
	Data() (WriteCloser, error)
	Close() error
	Extension(ext string) (bool, string)
}

// WriteCloser определяет интерфейс для записи и закрытия.
type WriteCloser interface {
	Write(p []byte) (n int, err error)
	Close() error
}

// Email доставляет уведомления по SMTP.
// Адреса получателей — адреса сущностей для ключа "email".
type Email struct {
	config   EmailConfig
	renderer *Renderer
	logger   logging.Logger
	dialer   SMTPDialer
}

// NewEmail создаёт email канал. Конфигурация должна быть валидной.
func NewEmail(config EmailConfig, renderer *Renderer, logger logging.Logger) (*Email, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.SMTPPort == 0 {
		config.SMTPPort = DefaultSMTPPort
	}
	return &Email{
		config:   config,
		renderer: renderer,
		logger:   logging.OrNop(logger),
		dialer: &defaultDialer{
			timeout:    config.Timeout,
			useTLS:     config.UseTLS,
			smtpPort:   config.SMTPPort,
			serverName: config.SMTPHost,
		},
	}, nil
}

// SetDialer устанавливает кастомный SMTPDialer (для тестирования).
func (e *Email) SetDialer(dialer SMTPDialer) {
	e.dialer = dialer
}

// Deliver рендерит шаблон и отправляет одно письмо всем получателям с email адресом.
// Получатели без адреса пропускаются; если адресов нет совсем, письмо не отправляется.
func (e *Email) Deliver(ctx context.Context, d notify.Delivery) error {
	to := notify.AddressesFor(d.Recipients, KindEmail)
	for _, addr := range to {
		if containsInvalidEmailHeaderChars(addr) {
			return fmt.Errorf("%w: %q", ErrEmailAddressInvalid, addr)
		}
	}
	if len(to) == 0 {
		e.logger.Warn("у получателей нет email адресов, письмо не отправлено",
			"alert", d.Alert,
			"channel", d.Channel,
			"recipients", len(d.Recipients),
		)
		return nil
	}

	msg, err := e.renderer.Render(d)
	if err != nil {
		return err
	}
	subject := msg.Subject
	if subject == "" {
		subject = d.Alert
	}

	if err := e.send(ctx, to, subject, msg.Body); err != nil {
		return err
	}

	e.logger.Info("email отправлен",
		"alert", d.Alert,
		"channel", d.Channel,
		"recipients", len(to),
	)
	return nil
}

// send отправляет письмо через SMTP.
func (e *Email) send(ctx context.Context, to []string, subject, body string) error {
	addr := net.JoinHostPort(e.config.SMTPHost, fmt.Sprint(e.config.SMTPPort))

	client, err := e.dialer.DialContext(ctx, addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSMTPConnection, err)
	}
	defer client.Close()

	// На 465 TLS уже установлен при подключении.
	if e.config.UseTLS && e.config.SMTPPort != SMTPPortImplicitTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			tlsConfig := &tls.Config{
				ServerName: e.config.SMTPHost,
				MinVersion: tls.VersionTLS12,
			}
			if err := client.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("STARTTLS failed: %w", err)
			}
		}
	}

	if e.config.SMTPUser != "" && e.config.SMTPPassword != "" {
		auth := smtp.PlainAuth("", e.config.SMTPUser, e.config.SMTPPassword, e.config.SMTPHost)
		if err := client.Auth(auth); err != nil {
			// Исходная ошибка может содержать credentials.
			return ErrSMTPAuth
		}
	} else if e.config.SMTPUser != "" || e.config.SMTPPassword != "" {
		e.logger.Warn("неполные SMTP credentials: указан SMTPUser или SMTPPassword, но не оба — авторизация пропущена",
			"smtp_host", e.config.SMTPHost,
			"has_user", e.config.SMTPUser != "",
			"has_password", e.config.SMTPPassword != "",
		)
	}

	if err := client.Mail(e.config.From); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	for _, rcpt := range to {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("RCPT TO failed for %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA failed: %w", err)
	}

	if _, err := w.Write([]byte(e.buildMessage(to, subject, body))); err != nil {
		w.Close()
		return fmt.Errorf("write message failed: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrSMTPSend, err)
	}
	return nil
}

// buildMessage формирует письмо с заголовками. Subject кодируется по RFC 2047.
func (e *Email) buildMessage(to []string, subject, body string) string {
	var buf bytes.Buffer

	buf.WriteString("From: ")
	buf.WriteString(e.config.From)
	buf.WriteString("\r\n")

	buf.WriteString("To: ")
	for i, rcpt := range to {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(rcpt)
	}
	buf.WriteString("\r\n")

	buf.WriteString("Subject: ")
	buf.WriteString(encodeRFC2047(subject))
	buf.WriteString("\r\n")

	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	buf.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	buf.WriteString("\r\n")

	buf.WriteString(body)

	return buf.String()
}

// encodeRFC2047 кодирует строку как encoded-word (=?UTF-8?B?...?=), если в ней есть non-ASCII.
//
// TODO: разбивать длинные subject на несколько encoded-word по 75 символов (RFC 2047 §2).
func encodeRFC2047(s string) string {
	needsEncoding := false
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			needsEncoding = true
			break
		}
	}

	if !needsEncoding {
		return s
	}

	return "=?UTF-8?B?" + base64.StdEncoding.EncodeToString([]byte(s)) + "?="
}

// defaultDialer реализует SMTPDialer для реального SMTP.
type defaultDialer struct {
	timeout    time.Duration
	useTLS     bool
	smtpPort   int
	serverName string
}

func (d *defaultDialer) DialContext(ctx context.Context, addr string) (SMTPClient, error) {
	timeout := d.timeout
	if timeout == 0 {
		timeout = DefaultSMTPTimeout
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP address %q: %w", addr, err)
	}
	if d.serverName != "" {
		host = d.serverName
	}

	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	// Implicit TLS на 465: tls.Client поверх DialContext, чтобы работала отмена контекста.
	if d.useTLS && d.smtpPort == SMTPPortImplicitTLS {
		conn = tls.Client(conn, &tls.Config{
			ServerName: host,
			MinVersion: tls.VersionTLS12,
		})
	}

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &smtpClientWrapper{client}, nil
}

// smtpClientWrapper оборачивает smtp.Client для реализации SMTPClient интерфейса.
type smtpClientWrapper struct {
	*smtp.Client
}

func (w *smtpClientWrapper) Data() (WriteCloser, error) {
	return w.Client.Data()
}
