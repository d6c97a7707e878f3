package channel

import (
	"sync"
	"testing/fstest"

	"github.com/Kargones/apk-notify/internal/entity/notify"
	"github.com/Kargones/apk-notify/internal/pkg/logging"
)

// testLogger реализует logging.Logger для тестирования.
type testLogger struct {
	mu        sync.Mutex
	debugMsgs []string
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (l *testLogger) Debug(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugMsgs = append(l.debugMsgs, msg)
}
func (l *testLogger) Info(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoMsgs = append(l.infoMsgs, msg)
}
func (l *testLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnMsgs = append(l.warnMsgs, msg)
}
func (l *testLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorMsgs = append(l.errorMsgs, msg)
}
func (l *testLogger) With(_ ...any) logging.Logger { return l }

// testViews — шаблоны для всех каналов алерта build_failed.
func testViews() fstest.MapFS {
	alert := []byte("---\nsubject: Сборка {{ .payload.project }} упала\nseverity: high\n---\n" +
		"Проект {{ .payload.project }} ({{ .alert }}/{{ .scope }}): получатели {{ join \",\" .recipients }}\n")
	return fstest.MapFS{
		"email/build_failed.txt.tmpl":    {Data: alert},
		"email/layout.txt.tmpl":          {Data: []byte("Здравствуйте!\n{{ yield }}--\napk-notify\n")},
		"telegram/build_failed.txt.tmpl": {Data: []byte("Проект {{ md .payload.project }} упал\n")},
		"webhook/build_failed.txt.tmpl":  {Data: alert},
		"log/build_failed.txt.tmpl":      {Data: []byte("{{ .payload.project }}")},
		"log/broken.txt.tmpl":            {Data: []byte("{{ .payload.missing.field }}")},
	}
}

func testRenderer() *Renderer {
	return NewRendererFS(testViews())
}

func testDelivery(channel string, recipients ...notify.Recipient) notify.Delivery {
	return notify.Delivery{
		Alert:      "build_failed",
		Scope:      "project",
		Channel:    channel,
		Group:      "owners",
		Recipients: recipients,
		Payload:    map[string]any{"project": "apk_core"},
	}
}

func entity(id, channel, addr string) notify.Entity {
	e := notify.Entity{ID: id}
	if channel != "" {
		e.Addresses = map[string]string{channel: addr}
	}
	return e
}
