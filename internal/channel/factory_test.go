package channel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory_New(t *testing.T) {
	settings := DefaultSettings()
	settings.Email.SMTPHost = "smtp.example.com"
	settings.Email.From = "notify@example.com"
	settings.Telegram.BotToken = "123:abc"
	settings.Webhook.URLs = []string{"https://hooks.example.com/notify"}
	f := NewFactoryWithRenderer(settings, testRenderer(), nil, nil)

	tests := []struct {
		kind string
		want any
	}{
		{KindEmail, &Email{}},
		{KindTelegram, &Telegram{}},
		{KindWebhook, &Webhook{}},
		{KindLog, &Log{}},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			d, err := f.New(tt.kind)
			require.NoError(t, err)
			assert.IsType(t, tt.want, d)
		})
	}

	_, err := f.New("pigeon")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestFactory_New_InvalidSettings(t *testing.T) {
	f := NewFactoryWithRenderer(DefaultSettings(), testRenderer(), nil, nil)

	_, err := f.New(KindEmail)
	assert.ErrorIs(t, err, ErrSMTPHostRequired)
	_, err = f.New(KindTelegram)
	assert.ErrorIs(t, err, ErrTelegramBotTokenRequired)
	_, err = f.New(KindWebhook)
	assert.ErrorIs(t, err, ErrWebhookURLRequired)
}

func TestFactory_New_Throttled(t *testing.T) {
	settings := DefaultSettings()
	settings.RateLimitWindow = time.Minute
	f := NewFactoryWithRenderer(settings, testRenderer(), nil, nil)

	d, err := f.New(KindLog)
	require.NoError(t, err)
	assert.IsType(t, &Throttled{}, d)
}

func TestFactory_ViewsDir(t *testing.T) {
	settings := DefaultSettings()
	settings.ViewsDir = "testdata/views"
	logger := &testLogger{}
	f := NewFactory(settings, logger, nil)

	d, err := f.New(KindLog)
	require.NoError(t, err)
	require.NoError(t, d.Deliver(context.Background(), testDelivery("log", entity("1", "", ""))))
	assert.Equal(t, []string{"уведомление"}, logger.infoMsgs)

	msg, err := f.Renderer().Render(testDelivery("log", entity("1", "", "")))
	require.NoError(t, err)
	assert.Equal(t, "Сборка apk_core упала", msg.Subject)
	assert.Equal(t, "Проект apk_core: build_failed (owners)\n", msg.Body)
}
