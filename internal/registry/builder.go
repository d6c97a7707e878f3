package registry

import (
	"errors"

	"github.com/Kargones/apk-notify/internal/entity/notify"
	"github.com/Kargones/apk-notify/internal/pkg/apperrors"
)

// Builder регистрирует элементы конфигурации. Каждая регистрация проверяется сразу:
// ошибка возвращается из вызова регистрации, а не откладывается до Build().
//
// Пример:
//
//	b := registry.NewBuilder()
//	_, _ = b.Channel("email", emailChannel)
//	posts, _ := b.Scope("post", postResolver, registry.WithPayload(PostPayload{}))
//	_, _ = posts.Alert("new_comment", func(a *registry.AlertBuilder) {
//	    a.Notify("followers").On("email")
//	    a.DefaultOn(true, "email")
//	})
//	cfg, err := b.Build()
type Builder struct {
	config *Configuration
	frozen bool
}

// BuilderOption настраивает Builder.
type BuilderOption func(*Builder)

// WithHooks задаёт набор hooks, вызываемых вокруг регистраций.
func WithHooks(h *Hooks) BuilderOption {
	return func(b *Builder) {
		if h != nil {
			b.config.hooks = h
		}
	}
}

// NewBuilder создаёт Builder с пустой конфигурацией.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{config: newConfiguration(NewHooks())}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Hooks возвращает hooks конфигурации для добавления listener-ов.
func (b *Builder) Hooks() *Hooks {
	return b.config.hooks
}

func (b *Builder) checkOpen() error {
	if b.frozen {
		return apperrors.Newf(apperrors.ErrConfigFrozen, "конфигурация уже заморожена")
	}
	return nil
}

// Product регистрирует продукт.
func (b *Builder) Product(name string) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	if name == "" {
		return apperrors.Newf(apperrors.ErrConfigValidate, "имя продукта не может быть пустым")
	}
	if _, ok := b.config.products[name]; ok {
		return apperrors.Newf(apperrors.ErrConfigDuplicate, "продукт %q уже зарегистрирован", name)
	}
	if err := b.config.hooks.Run(PreProductRegistration, name); err != nil {
		return err
	}
	// сохраняется только после post-хука: отказ слушателя отменяет регистрацию
	if err := b.config.hooks.Run(PostProductRegistration, name); err != nil {
		return err
	}
	b.config.products[name] = struct{}{}
	b.config.productOrder = append(b.config.productOrder, name)
	return nil
}

// Channel регистрирует канал доставки.
func (b *Builder) Channel(name string, d notify.Deliverer, opts ...ChannelOption) (*Channel, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, apperrors.Newf(apperrors.ErrConfigValidate, "имя канала не может быть пустым")
	}
	if d == nil {
		return nil, apperrors.Newf(apperrors.ErrConfigValidate, "канал %q: deliverer не задан", name)
	}
	if _, ok := b.config.channels[name]; ok {
		return nil, apperrors.Newf(apperrors.ErrConfigDuplicate, "канал %q уже зарегистрирован", name)
	}

	ch := &Channel{name: name, group: DefaultGroup, deliverer: d}
	for _, opt := range opts {
		opt(ch)
	}

	if err := b.config.hooks.Run(PreChannelRegistration, ch); err != nil {
		return nil, err
	}
	if err := b.config.hooks.Run(PostChannelRegistration, ch); err != nil {
		return nil, err
	}
	b.config.channels[name] = ch
	b.config.channelOrder = append(b.config.channelOrder, name)
	return ch, nil
}

// Scope регистрирует scope с резолвером получателей.
// Резолвер может быть nil: тогда любая попытка получить получателей завершится ошибкой разрешения.
func (b *Builder) Scope(name string, r notify.Resolver, opts ...ScopeOption) (*ScopeBuilder, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, apperrors.Newf(apperrors.ErrConfigValidate, "имя scope не может быть пустым")
	}
	if _, ok := b.config.scopes[name]; ok {
		return nil, apperrors.Newf(apperrors.ErrConfigDuplicate, "scope %q уже зарегистрирован", name)
	}

	s := &Scope{name: name, resolver: r}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.validatePayloadType(); err != nil {
		return nil, err
	}

	if err := b.config.hooks.Run(PreScopeRegistration, s); err != nil {
		return nil, err
	}
	if err := b.config.hooks.Run(PostScopeRegistration, s); err != nil {
		return nil, err
	}
	b.config.scopes[name] = s
	b.config.scopeOrder = append(b.config.scopeOrder, name)
	return &ScopeBuilder{builder: b, scope: s}, nil
}

// ScopeFor возвращает ScopeBuilder уже зарегистрированного scope.
func (b *Builder) ScopeFor(name string) (*ScopeBuilder, bool) {
	s, ok := b.config.scopes[name]
	if !ok {
		return nil, false
	}
	return &ScopeBuilder{builder: b, scope: s}, true
}

// Register регистрирует алерт по явному AlertConfig.
func (b *Builder) Register(cfg AlertConfig) (*Alert, error) {
	sb, ok := b.ScopeFor(cfg.ScopeName)
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrConfigInvalidScope,
			"алерт %s: scope %q не зарегистрирован", cfg.Name, cfg.ScopeName)
	}
	return sb.Alert(cfg.Name, func(a *AlertBuilder) { a.apply(cfg) })
}

// Build замораживает конфигурацию и возвращает её.
// После Build() любые регистрации завершаются ошибкой CONFIG.FROZEN.
func (b *Builder) Build() (*Configuration, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	b.frozen = true
	return b.config, nil
}

// ScopeBuilder регистрирует алерты внутри scope.
type ScopeBuilder struct {
	builder *Builder
	scope   *Scope
}

// Scope возвращает зарегистрированный scope.
func (s *ScopeBuilder) Scope() *Scope {
	return s.scope
}

// AlertOption настраивает алерт до вызова define.
type AlertOption func(*Alert)

// WithTags задаёт теги алерта.
func WithTags(tags ...string) AlertOption {
	return func(a *Alert) {
		a.tags = append(a.tags, tags...)
	}
}

// Alert регистрирует алерт в scope. define может быть nil.
// Имя алерта уникально во всей конфигурации, а не только в scope.
// Порядок: pre_alert_registration → define → post_alert_registration.
func (s *ScopeBuilder) Alert(name string, define func(*AlertBuilder), opts ...AlertOption) (*Alert, error) {
	b := s.builder
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, apperrors.Newf(apperrors.ErrConfigValidate, "имя алерта не может быть пустым")
	}
	if _, ok := b.config.alerts[name]; ok {
		return nil, apperrors.Newf(apperrors.ErrConfigDuplicate, "алерт %q уже зарегистрирован", name)
	}

	alert := &Alert{
		name:              name,
		scope:             s.scope,
		defaultsByChannel: make(map[string]bool),
		notifiers:         make(map[string]string),
		config:            b.config,
	}
	for _, opt := range opts {
		opt(alert)
	}

	if err := b.config.hooks.Run(PreAlertRegistration, alert); err != nil {
		return nil, err
	}

	if define != nil {
		ab := &AlertBuilder{alert: alert, config: b.config}
		define(ab)
		if err := errors.Join(ab.errs...); err != nil {
			return nil, apperrors.NewAppError(apperrors.Code(ab.errs[0]),
				"алерт "+name+" описан некорректно", err)
		}
	}

	if err := b.config.hooks.Run(PostAlertRegistration, alert); err != nil {
		return nil, err
	}

	b.config.alerts[name] = alert
	b.config.alertOrder = append(b.config.alertOrder, name)
	return alert, nil
}
