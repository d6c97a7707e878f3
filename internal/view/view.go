// Package view рендерит шаблоны уведомлений: frontmatter с метаданными,
// тело сообщения и необязательный layout вокруг него.
//
// Формат ресурса:
//
//	---
//	subject: Новый комментарий к {{ .payload.title }}
//	---
//	{{ .payload.author }} пишет: {{ .payload.text }}
//
// Frontmatter сам является шаблоном: сначала он рендерится, затем разбирается как YAML,
// и его ключи становятся привязками для тела. Стандартные привязки (payload, channel,
// alert, recipients, content) frontmatter не переопределяет: такие ключи остаются только в Data().
// Layout получает тело через {{ yield }} или {{ .content }}.
package view

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"text/template"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"gopkg.in/yaml.v3"

	"github.com/Kargones/apk-notify/internal/pkg/apperrors"
)

const delimiter = "---"

type state int

const (
	stateNew state = iota
	stateParsed
	stateDataRendered
	stateContentRendered
	stateComposed
)

// View — один шаблон уведомления. Методы вызываются в порядке
// Parse → RenderData → ReadData → RenderContent, либо все сразу через Process.
type View struct {
	path   string
	rc     *Context
	fsys   fs.FS
	layout string
	enc    encoding.Encoding
	funcs  template.FuncMap
	optErr error

	state      state
	rawData    string
	hasRawData bool
	rawContent string
	data       map[string]any
	content    string
}

// Option настраивает View.
type Option func(*View)

// WithLayout задаёт layout, в который вставляется тело.
func WithLayout(path string) Option {
	return func(v *View) { v.layout = path }
}

// WithFS задаёт файловую систему для шаблона и layout. По умолчанию — файлы ОС.
func WithFS(fsys fs.FS) Option {
	return func(v *View) { v.fsys = fsys }
}

// WithEncoding задаёт кодировку файлов шаблонов по имени WHATWG:
// "utf-8", "windows-1251", "koi8-r" и т.п.
func WithEncoding(name string) Option {
	return func(v *View) {
		if name == "" {
			return
		}
		enc, err := htmlindex.Get(name)
		if err != nil {
			v.optErr = apperrors.NewAppError(apperrors.ErrConfigValidate,
				fmt.Sprintf("неизвестная кодировка шаблонов %q", name), err)
			return
		}
		v.enc = enc
	}
}

// WithFuncs добавляет функции шаблонов.
func WithFuncs(funcs template.FuncMap) Option {
	return func(v *View) {
		for k, f := range funcs {
			v.funcs[k] = f
		}
	}
}

// New создаёт View. Файлы не читаются до Parse.
// rc == nil — пустой контекст.
func New(path string, rc *Context, opts ...Option) *View {
	if rc == nil {
		rc = NewContext(nil)
	}
	v := &View{path: path, rc: rc, funcs: defaultFuncs()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Path возвращает путь шаблона.
func (v *View) Path() string { return v.path }

// Context возвращает контекст рендеринга.
func (v *View) Context() *Context { return v.rc }

// RawData возвращает нерендеренный frontmatter и признак его наличия.
func (v *View) RawData() (string, bool) { return v.rawData, v.hasRawData }

// RawContent возвращает нерендеренное тело.
func (v *View) RawContent() string { return v.rawContent }

// Data возвращает разобранный frontmatter. nil, если frontmatter нет.
func (v *View) Data() map[string]any { return v.data }

// Content возвращает отрендеренное тело (после Process — вместе с layout).
func (v *View) Content() string { return v.content }

// Parse читает ресурс и отделяет frontmatter от тела.
func (v *View) Parse() error {
	if v.optErr != nil {
		return v.optErr
	}
	src, err := v.read(v.path)
	if err != nil {
		return err
	}
	v.rawData, v.hasRawData, v.rawContent = splitFrontmatter(src)
	v.data = nil
	v.content = ""
	v.state = stateParsed
	return nil
}

// RenderData рендерит frontmatter и разбирает его как YAML-отображение.
// Без frontmatter Data() остаётся nil.
func (v *View) RenderData() error {
	if err := v.require(stateParsed); err != nil {
		return err
	}
	if v.hasRawData {
		rendered, err := v.execute(v.path+"#frontmatter", v.rawData, v.rc.Bindings(), "")
		if err != nil {
			return err
		}
		var data map[string]any
		if err := yaml.Unmarshal([]byte(rendered), &data); err != nil {
			return apperrors.NewAppError(apperrors.ErrViewMalformedFrontmatter,
				"шаблон "+v.path+": frontmatter не является YAML-отображением", err)
		}
		if data == nil {
			data = map[string]any{}
		}
		v.data = data
	}
	v.state = stateDataRendered
	return nil
}

// ReadData добавляет ключи frontmatter в контекст рендеринга, кроме стандартных привязок.
func (v *View) ReadData() error {
	if err := v.require(stateDataRendered); err != nil {
		return err
	}
	v.rc.MergeData(v.data)
	return nil
}

// RenderContent рендерит тело.
func (v *View) RenderContent() error {
	if err := v.require(stateParsed); err != nil {
		return err
	}
	content, err := v.execute(v.path, v.rawContent, v.rc.Bindings(), "")
	if err != nil {
		return err
	}
	v.content = content
	v.state = stateContentRendered
	return nil
}

// Process выполняет весь конвейер и, если задан layout, вставляет в него тело.
func (v *View) Process() error {
	steps := []func() error{v.Parse, v.RenderData, v.ReadData, v.RenderContent}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	if v.layout == "" {
		return nil
	}

	src, err := v.read(v.layout)
	if err != nil {
		return err
	}
	bindings := v.rc.Bindings()
	bindings[BindingContent] = v.content
	composed, err := v.execute(v.layout, src, bindings, v.content)
	if err != nil {
		return err
	}
	v.content = composed
	v.state = stateComposed
	return nil
}

func (v *View) require(want state) error {
	if v.state < want {
		return apperrors.Newf(apperrors.ErrViewTemplateEval, "шаблон %s: нарушен порядок обработки", v.path)
	}
	return nil
}

func (v *View) read(path string) (string, error) {
	var (
		b   []byte
		err error
	)
	if v.fsys != nil {
		b, err = fs.ReadFile(v.fsys, path)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", apperrors.NewAppError(apperrors.ErrViewNotFound, "шаблон "+path+" не найден", err)
		}
		return "", apperrors.NewAppError(apperrors.ErrViewNotFound, "шаблон "+path+" не читается", err)
	}
	if v.enc != nil {
		if b, err = v.enc.NewDecoder().Bytes(b); err != nil {
			return "", apperrors.NewAppError(apperrors.ErrViewTemplateEval, "шаблон "+path+": ошибка декодирования", err)
		}
	}
	return string(b), nil
}

// execute рендерит текст шаблона. yield возвращает body: в layout это тело, иначе пустая строка.
func (v *View) execute(name, text string, bindings map[string]any, body string) (string, error) {
	funcs := template.FuncMap{}
	for k, f := range v.funcs {
		funcs[k] = f
	}
	funcs["yield"] = func() string { return body }

	tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", apperrors.NewAppError(apperrors.ErrViewTemplateEval, "шаблон "+name+": ошибка разбора", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, bindings); err != nil {
		return "", apperrors.NewAppError(apperrors.ErrViewTemplateEval, "шаблон "+name+": ошибка рендеринга", err)
	}
	return buf.String(), nil
}

// splitFrontmatter отделяет frontmatter: первая строка "---" и следующая строка "---".
// Без закрывающего разделителя весь ресурс — тело.
func splitFrontmatter(src string) (data string, ok bool, content string) {
	src = strings.TrimPrefix(src, "\ufeff")
	first, rest, found := strings.Cut(src, "\n")
	if !found || strings.TrimRight(first, "\r") != delimiter {
		return "", false, src
	}

	var block []string
	for {
		var line string
		line, rest, found = strings.Cut(rest, "\n")
		if strings.TrimRight(line, "\r") == delimiter {
			if !found {
				rest = ""
			}
			return strings.Join(block, "\n"), true, rest
		}
		if !found {
			return "", false, src
		}
		block = append(block, line)
	}
}

func defaultFuncs() template.FuncMap {
	return template.FuncMap{
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"trim":  strings.TrimSpace,
		"join": func(sep string, items []string) string {
			return strings.Join(items, sep)
		},
		"default": func(def, value any) any {
			if value == nil {
				return def
			}
			if s, ok := value.(string); ok && s == "" {
				return def
			}
			return value
		},
	}
}
