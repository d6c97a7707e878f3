package registry

import (
	"sort"

	"github.com/Kargones/apk-notify/internal/pkg/apperrors"
)

// Alert — именованное событие, привязанное к одному scope.
// После Build() не изменяется.
type Alert struct {
	name              string
	scope             *Scope
	tags              []string
	products          []string
	defaultValue      bool
	defaultsByChannel map[string]bool
	groups            []string
	notifiers         map[string]string
	config            *Configuration
}

// Name возвращает имя алерта.
func (a *Alert) Name() string { return a.name }

// Scope возвращает scope алерта.
func (a *Alert) Scope() *Scope { return a.scope }

// Tags возвращает копию тегов алерта.
func (a *Alert) Tags() []string { return append([]string(nil), a.tags...) }

// Products возвращает копию списка продуктов. Пустой список — алерт относится ко всем продуктам.
func (a *Alert) Products() []string { return append([]string(nil), a.products...) }

// AppliesTo сообщает, относится ли алерт к продукту.
func (a *Alert) AppliesTo(product string) bool {
	if len(a.products) == 0 {
		return true
	}
	for _, p := range a.products {
		if p == product {
			return true
		}
	}
	return false
}

// DefaultValue возвращает глобальное значение подписки по умолчанию.
func (a *Alert) DefaultValue() bool { return a.defaultValue }

// DefaultsByChannel возвращает копию переопределений по каналам.
func (a *Alert) DefaultsByChannel() map[string]bool {
	out := make(map[string]bool, len(a.defaultsByChannel))
	for k, v := range a.defaultsByChannel {
		out[k] = v
	}
	return out
}

// DefaultFor возвращает значение подписки по умолчанию для канала:
// переопределение канала, иначе глобальное значение.
// Для незарегистрированного канала — CONFIG.UNKNOWN_CHANNEL.
func (a *Alert) DefaultFor(channel string) (bool, error) {
	if a.config != nil {
		if _, ok := a.config.channels[channel]; !ok {
			return false, apperrors.Newf(apperrors.ErrConfigUnknownChannel,
				"алерт %s: канал %q не зарегистрирован", a.name, channel)
		}
	}
	if v, ok := a.defaultsByChannel[channel]; ok {
		return v, nil
	}
	return a.defaultValue, nil
}

// Groups возвращает группы получателей в порядке объявления.
func (a *Alert) Groups() []string { return append([]string(nil), a.groups...) }

// Notifiers возвращает копию отображения "группа получателей → цель (канал или группа каналов)".
func (a *Alert) Notifiers() map[string]string {
	out := make(map[string]string, len(a.notifiers))
	for k, v := range a.notifiers {
		out[k] = v
	}
	return out
}

// Target возвращает цель группы получателей.
func (a *Alert) Target(group string) (string, bool) {
	t, ok := a.notifiers[group]
	return t, ok
}

// AlertConfig — явное описание алерта без builder-функции.
// Группы из Notifiers регистрируются в алфавитном порядке.
type AlertConfig struct {
	Name              string
	ScopeName         string
	Notifiers         map[string]string
	DefaultValue      bool
	DefaultsByChannel map[string]bool
	Products          []string
	Tags              []string
}

// AlertBuilder описывает алерт внутри ScopeBuilder.Alert.
type AlertBuilder struct {
	alert  *Alert
	config *Configuration
	errs   []error
}

// NotifierBuilder задаёт цель для группы получателей.
type NotifierBuilder struct {
	alert *Alert
	group string
}

// Notify объявляет группу получателей. Без On(...) цель — группа каналов "default".
// Повторное объявление группы сохраняет её позицию.
func (b *AlertBuilder) Notify(group string) *NotifierBuilder {
	if _, ok := b.alert.notifiers[group]; !ok {
		b.alert.groups = append(b.alert.groups, group)
	}
	b.alert.notifiers[group] = DefaultGroup
	return &NotifierBuilder{alert: b.alert, group: group}
}

// On задаёт канал или группу каналов для группы получателей.
// Имя не проверяется при регистрации: неизвестная цель — ошибка при отправке.
func (n *NotifierBuilder) On(target string) *NotifierBuilder {
	n.alert.notifiers[n.group] = target
	return n
}

// Default задаёт глобальное значение подписки по умолчанию.
func (b *AlertBuilder) Default(value bool) *AlertBuilder {
	b.alert.defaultValue = value
	return b
}

// DefaultOn задаёт значение по умолчанию для конкретных каналов.
// Каналы должны быть зарегистрированы раньше алерта.
func (b *AlertBuilder) DefaultOn(value bool, channels ...string) *AlertBuilder {
	for _, ch := range channels {
		if _, ok := b.config.channels[ch]; !ok {
			b.errs = append(b.errs, apperrors.Newf(apperrors.ErrConfigUnknownChannel,
				"алерт %s: default для незарегистрированного канала %q", b.alert.name, ch))
			continue
		}
		b.alert.defaultsByChannel[ch] = value
	}
	return b
}

// AppliesTo ограничивает алерт продуктами. Продукты должны быть зарегистрированы раньше алерта.
func (b *AlertBuilder) AppliesTo(products ...string) *AlertBuilder {
	for _, p := range products {
		if _, ok := b.config.products[p]; !ok {
			b.errs = append(b.errs, apperrors.Newf(apperrors.ErrConfigUnknownProduct,
				"алерт %s: продукт %q не зарегистрирован", b.alert.name, p))
			continue
		}
		if !containsString(b.alert.products, p) {
			b.alert.products = append(b.alert.products, p)
		}
	}
	return b
}

// Tag добавляет теги алерту.
func (b *AlertBuilder) Tag(tags ...string) *AlertBuilder {
	b.alert.tags = append(b.alert.tags, tags...)
	return b
}

// apply переносит AlertConfig в builder.
func (b *AlertBuilder) apply(cfg AlertConfig) {
	groups := make([]string, 0, len(cfg.Notifiers))
	for g := range cfg.Notifiers {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	for _, g := range groups {
		n := b.Notify(g)
		if target := cfg.Notifiers[g]; target != "" {
			n.On(target)
		}
	}

	b.Default(cfg.DefaultValue)

	channels := make([]string, 0, len(cfg.DefaultsByChannel))
	for ch := range cfg.DefaultsByChannel {
		channels = append(channels, ch)
	}
	sort.Strings(channels)
	for _, ch := range channels {
		b.DefaultOn(cfg.DefaultsByChannel[ch], ch)
	}

	b.AppliesTo(cfg.Products...)
	b.Tag(cfg.Tags...)
}

func containsString(items []string, s string) bool {
	for _, it := range items {
		if it == s {
			return true
		}
	}
	return false
}
