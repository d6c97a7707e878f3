// Package registry содержит модель конфигурации уведомлений: scopes, алерты, каналы и продукты.
//
// Конфигурация строится один раз через Builder, замораживается вызовом Build()
// и дальше только читается. Глобального состояния нет: каждый потребитель
// (диспетчер, CLI, тест) получает свой *Configuration.
package registry

// Configuration — замороженная конфигурация уведомлений.
// Безопасна для конкурентного чтения.
type Configuration struct {
	channels     map[string]*Channel
	channelOrder []string
	scopes       map[string]*Scope
	scopeOrder   []string
	alerts       map[string]*Alert
	alertOrder   []string
	products     map[string]struct{}
	productOrder []string
	hooks        *Hooks
}

func newConfiguration(hooks *Hooks) *Configuration {
	return &Configuration{
		channels: make(map[string]*Channel),
		scopes:   make(map[string]*Scope),
		alerts:   make(map[string]*Alert),
		products: make(map[string]struct{}),
		hooks:    hooks,
	}
}

// Alert возвращает алерт по имени.
func (c *Configuration) Alert(name string) (*Alert, bool) {
	a, ok := c.alerts[name]
	return a, ok
}

// Scope возвращает scope по имени.
func (c *Configuration) Scope(name string) (*Scope, bool) {
	s, ok := c.scopes[name]
	return s, ok
}

// Channel возвращает канал по имени.
func (c *Configuration) Channel(name string) (*Channel, bool) {
	ch, ok := c.channels[name]
	return ch, ok
}

// HasProduct сообщает, зарегистрирован ли продукт.
func (c *Configuration) HasProduct(name string) bool {
	_, ok := c.products[name]
	return ok
}

// Alerts возвращает алерты в порядке регистрации.
func (c *Configuration) Alerts() []*Alert {
	out := make([]*Alert, 0, len(c.alertOrder))
	for _, name := range c.alertOrder {
		out = append(out, c.alerts[name])
	}
	return out
}

// AlertsByScope возвращает алерты scope в порядке регистрации.
func (c *Configuration) AlertsByScope(scope string) []*Alert {
	var out []*Alert
	for _, name := range c.alertOrder {
		if a := c.alerts[name]; a.scope.name == scope {
			out = append(out, a)
		}
	}
	return out
}

// Channels возвращает каналы в порядке регистрации.
func (c *Configuration) Channels() []*Channel {
	out := make([]*Channel, 0, len(c.channelOrder))
	for _, name := range c.channelOrder {
		out = append(out, c.channels[name])
	}
	return out
}

// Scopes возвращает scopes в порядке регистрации.
func (c *Configuration) Scopes() []*Scope {
	out := make([]*Scope, 0, len(c.scopeOrder))
	for _, name := range c.scopeOrder {
		out = append(out, c.scopes[name])
	}
	return out
}

// Products возвращает продукты в порядке регистрации.
func (c *Configuration) Products() []string {
	return append([]string(nil), c.productOrder...)
}

// ChannelsFor разрешает цель notifier-а: канал с таким именем,
// иначе все каналы группы с таким именем в порядке регистрации.
// Пустой результат означает, что цель не разрешилась.
func (c *Configuration) ChannelsFor(target string) []*Channel {
	if ch, ok := c.channels[target]; ok {
		return []*Channel{ch}
	}
	var out []*Channel
	for _, name := range c.channelOrder {
		if ch := c.channels[name]; ch.group == target {
			out = append(out, ch)
		}
	}
	return out
}
