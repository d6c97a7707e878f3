package registry

import (
	"fmt"

	"github.com/Kargones/apk-notify/internal/pkg/apperrors"
)

// Hook — точка расширения вокруг регистрации элементов конфигурации.
type Hook string

// Поддерживаемые точки расширения.
const (
	PreAlertRegistration    Hook = "pre_alert_registration"
	PostAlertRegistration   Hook = "post_alert_registration"
	PreChannelRegistration  Hook = "pre_channel_registration"
	PostChannelRegistration Hook = "post_channel_registration"
	PreScopeRegistration    Hook = "pre_scope_registration"
	PostScopeRegistration   Hook = "post_scope_registration"
	PreProductRegistration  Hook = "pre_product_registration"
	PostProductRegistration Hook = "post_product_registration"
)

var knownHooks = map[Hook]struct{}{
	PreAlertRegistration:    {},
	PostAlertRegistration:   {},
	PreChannelRegistration:  {},
	PostChannelRegistration: {},
	PreScopeRegistration:    {},
	PostScopeRegistration:   {},
	PreProductRegistration:  {},
	PostProductRegistration: {},
}

// Listener получает уведомления о регистрации.
// subject — регистрируемый элемент: *Alert, *Channel, *Scope или имя продукта (string).
// Ошибка listener-а прерывает регистрацию.
type Listener interface {
	OnHook(hook Hook, subject any) error
}

// ListenerFunc адаптирует функцию к Listener.
type ListenerFunc func(hook Hook, subject any) error

// OnHook реализует Listener.
func (f ListenerFunc) OnHook(hook Hook, subject any) error {
	return f(hook, subject)
}

// Hooks хранит listener-ы по точкам расширения.
// Listener-ы вызываются синхронно в порядке добавления.
// Не потокобезопасен: заполняется до регистрации, как и вся конфигурация.
type Hooks struct {
	listeners map[Hook][]Listener
}

// NewHooks создаёт пустой набор hooks.
func NewHooks() *Hooks {
	return &Hooks{listeners: make(map[Hook][]Listener)}
}

// Add добавляет listener к точке расширения.
// Неизвестная точка — ошибка CONFIG.INVALID_HOOK.
func (h *Hooks) Add(hook Hook, l Listener) error {
	if _, ok := knownHooks[hook]; !ok {
		return apperrors.Newf(apperrors.ErrConfigInvalidHook, "неизвестная точка расширения %q", hook)
	}
	if l == nil {
		return apperrors.Newf(apperrors.ErrConfigInvalidHook, "nil listener для %q", hook)
	}
	h.listeners[hook] = append(h.listeners[hook], l)
	return nil
}

// Listeners возвращает копию списка listener-ов точки расширения.
func (h *Hooks) Listeners(hook Hook) ([]Listener, error) {
	if _, ok := knownHooks[hook]; !ok {
		return nil, apperrors.Newf(apperrors.ErrConfigInvalidHook, "неизвестная точка расширения %q", hook)
	}
	return append([]Listener(nil), h.listeners[hook]...), nil
}

// Run вызывает listener-ы точки расширения по порядку.
// Первая ошибка останавливает цепочку.
func (h *Hooks) Run(hook Hook, subject any) error {
	if h == nil {
		return nil
	}
	for i, l := range h.listeners[hook] {
		if err := l.OnHook(hook, subject); err != nil {
			return apperrors.NewAppError(apperrors.ErrConfigValidate,
				fmt.Sprintf("listener #%d точки %s отклонил регистрацию", i, hook), err)
		}
	}
	return nil
}
