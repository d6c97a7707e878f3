// Package notify содержит контракты, общие для диспетчера и внешних участников:
// получателей, резолверов групп получателей и каналов доставки.
package notify

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnknownGroup возвращается резолвером, если у scope нет группы получателей с таким именем.
var ErrUnknownGroup = errors.New("notify: unknown recipient group")

// Recipient — получатель уведомления.
// ID должен быть стабильным: он используется как entity_id в хранилище подписок.
type Recipient interface {
	RecipientID() string
}

// Addressable — получатель, у которого есть адрес для конкретного канала
// (email, telegram chat id и т.п.).
type Addressable interface {
	Address(channel string) (string, bool)
}

// Resolver возвращает получателей группы для payload.
// Неизвестная группа — ErrUnknownGroup (можно обернуть).
type Resolver interface {
	Resolve(ctx context.Context, group string, payload any) ([]Recipient, error)
}

// GroupFunc — функция разрешения одной группы получателей.
type GroupFunc func(ctx context.Context, payload any) ([]Recipient, error)

// Groups — Resolver на основе таблицы "имя группы → функция".
// Таблица строится один раз при конфигурации и далее только читается.
type Groups map[string]GroupFunc

// Resolve реализует Resolver.
func (g Groups) Resolve(ctx context.Context, group string, payload any) ([]Recipient, error) {
	fn, ok := g[group]
	if !ok || fn == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGroup, group)
	}
	return fn(ctx, payload)
}

// Delivery — данные одной доставки через канал.
type Delivery struct {
	// Alert — имя алерта.
	Alert string

	// Scope — имя scope, которому принадлежит алерт.
	Scope string

	// Channel — имя канала, через который идёт доставка.
	Channel string

	// Group — группа получателей, из которой получен список.
	Group string

	// Recipients — получатели после фильтрации подписок. Никогда не пустой.
	Recipients []Recipient

	// Payload — payload, с которым был вызван алерт.
	Payload any
}

// RecipientIDs возвращает идентификаторы получателей в исходном порядке.
func (d Delivery) RecipientIDs() []string {
	ids := make([]string, 0, len(d.Recipients))
	for _, r := range d.Recipients {
		ids = append(ids, r.RecipientID())
	}
	return ids
}

// Deliverer выполняет доставку уведомления. Ошибки возвращаются вызывающему коду как есть.
type Deliverer interface {
	Deliver(ctx context.Context, d Delivery) error
}

// DelivererFunc адаптирует функцию к Deliverer.
type DelivererFunc func(ctx context.Context, d Delivery) error

// Deliver реализует Deliverer.
func (f DelivererFunc) Deliver(ctx context.Context, d Delivery) error {
	return f(ctx, d)
}
