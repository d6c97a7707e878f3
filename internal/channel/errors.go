package channel

import "errors"

// Ошибки валидации конфигурации.
var (
	// ErrSMTPHostRequired — SMTP host не указан.
	ErrSMTPHostRequired = errors.New("channel: smtp_host is required for email channel")

	// ErrFromRequired — адрес отправителя не указан.
	ErrFromRequired = errors.New("channel: from address is required for email channel")

	// ErrEmailAddressInvalid — email адрес содержит управляющие символы (CRLF injection).
	ErrEmailAddressInvalid = errors.New("channel: email address contains invalid characters (control chars)")

	// ErrTelegramBotTokenRequired — bot token не указан.
	ErrTelegramBotTokenRequired = errors.New("channel: bot_token is required for telegram channel")

	// ErrTelegramChatIDInvalid — chat_id имеет невалидный формат (ожидается числовой ID или @username).
	ErrTelegramChatIDInvalid = errors.New("channel: chat_id must be a numeric ID or @username")

	// ErrWebhookURLRequired — URL для webhook не указан.
	ErrWebhookURLRequired = errors.New("channel: at least one url is required for webhook channel")

	// ErrWebhookURLInvalid — URL имеет невалидный формат.
	ErrWebhookURLInvalid = errors.New("channel: webhook url has invalid format (must be http(s) with host)")

	// ErrWebhookHeaderInvalid — HTTP заголовок содержит недопустимые символы.
	ErrWebhookHeaderInvalid = errors.New("channel: webhook header contains invalid characters")

	// ErrUnknownKind — неизвестный тип канала.
	ErrUnknownKind = errors.New("channel: unknown channel kind")
)

// Ошибки отправки.
var (
	// ErrSMTPConnection — ошибка подключения к SMTP серверу.
	ErrSMTPConnection = errors.New("channel: failed to connect to SMTP server")

	// ErrSMTPAuth — ошибка аутентификации SMTP.
	ErrSMTPAuth = errors.New("channel: SMTP authentication failed")

	// ErrSMTPSend — ошибка отправки email.
	ErrSMTPSend = errors.New("channel: failed to send email")

	// ErrTelegramAPI — Telegram Bot API вернул ошибку.
	ErrTelegramAPI = errors.New("channel: telegram API error")
)
