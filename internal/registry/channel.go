package registry

import "github.com/Kargones/apk-notify/internal/entity/notify"

// DefaultGroup — группа каналов по умолчанию.
// Notify(group) без On(...) направляется в эту группу.
const DefaultGroup = "default"

// Channel — зарегистрированный канал доставки.
type Channel struct {
	name      string
	group     string
	deliverer notify.Deliverer
}

// Name возвращает имя канала.
func (c *Channel) Name() string { return c.name }

// Group возвращает группу канала.
func (c *Channel) Group() string { return c.group }

// Deliverer возвращает реализацию доставки, привязанную при регистрации.
func (c *Channel) Deliverer() notify.Deliverer { return c.deliverer }

// ChannelOption настраивает канал при регистрации.
type ChannelOption func(*Channel)

// InGroup помещает канал в группу. Пустое имя оставляет группу по умолчанию.
func InGroup(group string) ChannelOption {
	return func(c *Channel) {
		if group != "" {
			c.group = group
		}
	}
}
