// Package optin описывает хранилище подписок получателей на алерты
// и содержит реализацию в памяти.
package optin

import (
	"context"
	"fmt"
	"sync"
)

// Key — кортеж подписки: сущность scope, алерт и канал.
type Key struct {
	Scope    string
	EntityID string
	Alert    string
	Channel  string
}

// String для логов.
func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s:%s", k.Scope, k.EntityID, k.Alert, k.Channel)
}

// Provider — хранилище явных подписок.
//
// Отсутствие записи означает "нет явного решения": диспетчер в этом случае
// использует значение по умолчанию алерта. Поэтому, помимо OptedIn, контракт
// требует Lookup, различающий "отписан" и "записи нет".
type Provider interface {
	// OptIn записывает явную подписку. Идемпотентен.
	OptIn(ctx context.Context, k Key) error

	// OptOut записывает явную отписку. Идемпотентен.
	OptOut(ctx context.Context, k Key) error

	// OptedIn возвращает true только если есть запись со значением true.
	OptedIn(ctx context.Context, k Key) (bool, error)

	// Lookup возвращает значение записи и признак её наличия.
	Lookup(ctx context.Context, k Key) (optedIn bool, found bool, err error)
}

// MemoryProvider — Provider в памяти процесса. Безопасен для конкурентного использования.
type MemoryProvider struct {
	mu      sync.RWMutex
	records map[Key]bool
}

// NewMemoryProvider создаёт пустой MemoryProvider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{records: make(map[Key]bool)}
}

// OptIn реализует Provider.
func (p *MemoryProvider) OptIn(ctx context.Context, k Key) error {
	return p.set(ctx, k, true)
}

// OptOut реализует Provider.
func (p *MemoryProvider) OptOut(ctx context.Context, k Key) error {
	return p.set(ctx, k, false)
}

func (p *MemoryProvider) set(ctx context.Context, k Key, v bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records[k] = v
	return nil
}

// OptedIn реализует Provider.
func (p *MemoryProvider) OptedIn(ctx context.Context, k Key) (bool, error) {
	v, found, err := p.Lookup(ctx, k)
	return found && v, err
}

// Lookup реализует Provider.
func (p *MemoryProvider) Lookup(ctx context.Context, k Key) (bool, bool, error) {
	if err := ctx.Err(); err != nil {
		return false, false, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.records[k]
	return v, ok, nil
}

// Forget удаляет запись, возвращая кортеж к значению по умолчанию.
func (p *MemoryProvider) Forget(k Key) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.records, k)
}

// Len возвращает количество записей.
func (p *MemoryProvider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.records)
}
