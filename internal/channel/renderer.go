package channel

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"text/template"

	"github.com/Kargones/apk-notify/internal/entity/notify"
	"github.com/Kargones/apk-notify/internal/view"
)

// LayoutName — имя файла layout в каталоге канала.
const LayoutName = "layout.txt.tmpl"

// TemplateExt — расширение шаблонов алертов.
const TemplateExt = ".txt.tmpl"

// Renderer строит View для доставки и выполняет конвейер шаблонов.
type Renderer struct {
	fsys     fs.FS
	encoding string
	funcs    template.FuncMap
}

// RendererOption настраивает Renderer.
type RendererOption func(*Renderer)

// WithEncoding задаёт кодировку файлов шаблонов.
func WithEncoding(name string) RendererOption {
	return func(r *Renderer) { r.encoding = name }
}

// WithTemplateFuncs добавляет функции шаблонов для всех каналов.
func WithTemplateFuncs(funcs template.FuncMap) RendererOption {
	return func(r *Renderer) {
		for k, f := range funcs {
			r.funcs[k] = f
		}
	}
}

// NewRenderer создаёт Renderer с шаблонами из каталога viewsDir.
func NewRenderer(viewsDir string, opts ...RendererOption) *Renderer {
	return NewRendererFS(os.DirFS(viewsDir), opts...)
}

// NewRendererFS создаёт Renderer поверх произвольной файловой системы (embed.FS, fstest.MapFS).
func NewRendererFS(fsys fs.FS, opts ...RendererOption) *Renderer {
	r := &Renderer{
		fsys:  fsys,
		funcs: template.FuncMap{"md": EscapeMarkdown},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TemplatePath возвращает путь шаблона алерта для канала.
func TemplatePath(channel, alert string) string {
	return path.Join(channel, alert+TemplateExt)
}

// Render рендерит сообщение доставки.
// Привязки шаблона: payload, alert, scope, group, channel, recipients (идентификаторы).
func (r *Renderer) Render(d notify.Delivery) (Message, error) {
	rc := view.NewContext(d.Payload).
		Set(view.BindingAlert, d.Alert).
		Set(view.BindingChannel, d.Channel).
		Set(view.BindingRecipients, d.RecipientIDs()).
		Set("scope", d.Scope).
		Set("group", d.Group)

	opts := []view.Option{
		view.WithFS(r.fsys),
		view.WithEncoding(r.encoding),
		view.WithFuncs(r.funcs),
	}
	layout := path.Join(d.Channel, LayoutName)
	if _, err := fs.Stat(r.fsys, layout); err == nil {
		opts = append(opts, view.WithLayout(layout))
	} else if !errors.Is(err, fs.ErrNotExist) {
		return Message{}, fmt.Errorf("channel: layout %s: %w", layout, err)
	}

	v := view.New(TemplatePath(d.Channel, d.Alert), rc, opts...)
	if err := v.Process(); err != nil {
		return Message{}, err
	}

	msg := Message{Body: v.Content(), Data: v.Data()}
	if s, ok := v.Data()["subject"]; ok && s != nil {
		msg.Subject = fmt.Sprint(s)
	}
	return msg, nil
}
