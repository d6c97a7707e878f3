package config

import (
	"fmt"
	"maps"
	"slices"

	"github.com/Kargones/apk-notify/internal/entity/notify"
	"github.com/Kargones/apk-notify/internal/pkg/apperrors"
	"github.com/Kargones/apk-notify/internal/registry"
	"github.com/Kargones/apk-notify/internal/resolver"
)

// DelivererFactory создаёт канал доставки по его виду (email, telegram, webhook, log).
type DelivererFactory interface {
	New(kind string) (notify.Deliverer, error)
}

// BuildConfiguration регистрирует определения в registry и замораживает конфигурацию.
// Порядок регистрации: продукты, каналы, scope с алертами.
func BuildConfiguration(defs *Definitions, factory DelivererFactory, opts ...registry.BuilderOption) (*registry.Configuration, error) {
	if defs == nil {
		return nil, apperrors.Newf(apperrors.ErrConfigValidate, "определения не загружены")
	}
	if factory == nil {
		return nil, apperrors.Newf(apperrors.ErrConfigValidate, "фабрика каналов не задана")
	}

	b := registry.NewBuilder(opts...)

	for _, p := range defs.Products {
		if err := b.Product(p); err != nil {
			return nil, err
		}
	}

	for _, ch := range defs.Channels {
		if err := registerChannel(b, factory, ch); err != nil {
			return nil, err
		}
	}

	for _, sc := range defs.Scopes {
		if err := registerScope(b, sc); err != nil {
			return nil, err
		}
	}

	return b.Build()
}

func registerChannel(b *registry.Builder, factory DelivererFactory, def ChannelDef) error {
	kind := def.Kind
	if kind == "" {
		kind = def.Name
	}
	d, err := factory.New(kind)
	if err != nil {
		return apperrors.NewAppError(apperrors.ErrConfigUnknownChannel,
			fmt.Sprintf("канал %q: не удалось создать доставку вида %q", def.Name, kind), err)
	}

	var opts []registry.ChannelOption
	if def.Group != "" {
		opts = append(opts, registry.InGroup(def.Group))
	}
	_, err = b.Channel(def.Name, d, opts...)
	return err
}

func registerScope(b *registry.Builder, def ScopeDef) error {
	// scope становится известен только после регистрации, резолвер читает его позже
	var scope *registry.Scope
	ropts := make([]resolver.Option, 0, len(def.Entities)+1)
	ropts = append(ropts, resolver.WithEntityID(func(payload any) (any, error) {
		if scope == nil {
			return nil, nil
		}
		return scope.EntityID(payload)
	}))
	for id, groups := range def.Entities {
		ropts = append(ropts, resolver.WithEntityGroups(id, groups))
	}

	sb, err := b.Scope(def.Name, resolver.NewStatic(def.Groups, ropts...))
	if err != nil {
		return err
	}
	scope = sb.Scope()

	for _, a := range def.Alerts {
		if _, err := sb.Alert(a.Name, defineAlert(a)); err != nil {
			return err
		}
	}
	return nil
}

// defineAlert переносит AlertDef в builder с сохранением порядка групп из файла.
func defineAlert(def AlertDef) func(*registry.AlertBuilder) {
	return func(a *registry.AlertBuilder) {
		for _, n := range def.Notify {
			nb := a.Notify(n.Group)
			if n.Target != "" {
				nb.On(n.Target)
			}
		}
		a.Default(def.Default)
		for _, ch := range slices.Sorted(maps.Keys(def.Defaults)) {
			a.DefaultOn(def.Defaults[ch], ch)
		}
		if len(def.AppliesTo) > 0 {
			a.AppliesTo(def.AppliesTo...)
		}
		if len(def.Tags) > 0 {
			a.Tag(def.Tags...)
		}
	}
}
