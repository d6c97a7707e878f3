// Package resolver содержит статический резолвер получателей, заполняемый из файла определений.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Kargones/apk-notify/internal/entity/notify"
)

// EntityIDFunc извлекает идентификатор сущности из payload.
type EntityIDFunc func(payload any) (any, error)

// Static разрешает группы получателей по спискам, объявленным заранее.
// Группы конкретной сущности (по идентификатору из payload) имеют приоритет над общими.
type Static struct {
	groups   map[string][]notify.Entity
	entities map[string]map[string][]notify.Entity
	entityID EntityIDFunc
}

// Option настраивает Static.
type Option func(*Static)

// WithEntityGroups задаёт группы получателей конкретной сущности.
func WithEntityGroups(entityID string, groups map[string][]notify.Entity) Option {
	return func(s *Static) {
		s.entities[entityID] = groups
	}
}

// WithEntityID задаёт функцию извлечения идентификатора сущности из payload.
func WithEntityID(fn EntityIDFunc) Option {
	return func(s *Static) { s.entityID = fn }
}

// NewStatic создаёт резолвер с общими группами.
func NewStatic(groups map[string][]notify.Entity, opts ...Option) *Static {
	s := &Static{
		groups:   groups,
		entities: make(map[string]map[string][]notify.Entity),
	}
	if s.groups == nil {
		s.groups = make(map[string][]notify.Entity)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve реализует notify.Resolver.
// Неизвестная группа — ошибка, оборачивающая notify.ErrUnknownGroup.
func (s *Static) Resolve(ctx context.Context, group string, payload any) ([]notify.Recipient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if members, ok := s.entityGroup(group, payload); ok {
		return toRecipients(members), nil
	}
	if members, ok := s.groups[group]; ok {
		return toRecipients(members), nil
	}
	return nil, fmt.Errorf("%w: %q", notify.ErrUnknownGroup, group)
}

// Groups возвращает имена общих групп.
func (s *Static) Groups() []string {
	out := make([]string, 0, len(s.groups))
	for g := range s.groups {
		out = append(out, g)
	}
	return out
}

func (s *Static) entityGroup(group string, payload any) ([]notify.Entity, bool) {
	if s.entityID == nil || len(s.entities) == 0 {
		return nil, false
	}
	id, err := s.entityID(payload)
	if err != nil || id == nil {
		return nil, false
	}
	groups, ok := s.entities[FormatEntityID(id)]
	if !ok {
		return nil, false
	}
	members, ok := groups[group]
	return members, ok
}

// FormatEntityID приводит идентификатор из payload к ключу, под которым сущность
// объявлена в определениях. Целые числа любого типа выводятся без экспоненты.
func FormatEntityID(id any) string {
	switch v := id.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func toRecipients(members []notify.Entity) []notify.Recipient {
	out := make([]notify.Recipient, 0, len(members))
	for _, m := range members {
		out = append(out, m)
	}
	return out
}
