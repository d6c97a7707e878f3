package view

// Стандартные имена привязок контекста рендеринга.
const (
	BindingPayload    = "payload"
	BindingChannel    = "channel"
	BindingAlert      = "alert"
	BindingRecipients = "recipients"
	BindingContent    = "content"
)

// Context — привязки, доступные шаблону как поля корня: {{ .payload.Title }}, {{ .alert }}.
// Не потокобезопасен: принадлежит одному View.
type Context struct {
	bindings map[string]any
}

// NewContext создаёт контекст с payload.
func NewContext(payload any) *Context {
	return &Context{bindings: map[string]any{BindingPayload: payload}}
}

// Set задаёт привязку.
func (c *Context) Set(key string, value any) *Context {
	c.bindings[key] = value
	return c
}

// Get возвращает привязку.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.bindings[key]
	return v, ok
}

// IsReserved сообщает, является ли key стандартной привязкой, которую frontmatter не переопределяет.
func IsReserved(key string) bool {
	switch key {
	case BindingPayload, BindingChannel, BindingAlert, BindingRecipients, BindingContent:
		return true
	}
	return false
}

// MergeData добавляет ключи frontmatter, пропуская стандартные привязки.
func (c *Context) MergeData(values map[string]any) {
	for k, v := range values {
		if !IsReserved(k) {
			c.bindings[k] = v
		}
	}
}

// Merge добавляет привязки, перезаписывая существующие.
func (c *Context) Merge(values map[string]any) {
	for k, v := range values {
		c.bindings[k] = v
	}
}

// Bindings возвращает копию привязок.
func (c *Context) Bindings() map[string]any {
	out := make(map[string]any, len(c.bindings))
	for k, v := range c.bindings {
		out[k] = v
	}
	return out
}
