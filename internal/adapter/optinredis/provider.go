// Package optinredis реализует хранилище подписок optin.Provider поверх Redis.
// Ключ записи: optin:<scope>:<entity_id>:<alert>:<channel>, значение "1" или "0".
package optinredis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Kargones/apk-notify/internal/optin"
	"github.com/Kargones/apk-notify/internal/pkg/apperrors"
)

// DefaultPrefix — префикс ключей по умолчанию.
const DefaultPrefix = "optin"

// Compile-time проверка реализации интерфейса
var _ optin.Provider = (*Provider)(nil)

// Commander — подмножество команд go-redis, которое использует Provider.
// Реализуется *redis.Client, *redis.ClusterClient и тестовыми подделками.
type Commander interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// ClientConfig — параметры подключения к Redis.
type ClientConfig struct {
	Addr     string
	Password string
	DB       int
	// Prefix — префикс ключей. Пусто — DefaultPrefix.
	Prefix string
}

// Provider хранит подписки в Redis без срока жизни.
type Provider struct {
	rdb    Commander
	prefix string
	closer func() error
}

// Open подключается к Redis и проверяет соединение.
func Open(ctx context.Context, cfg ClientConfig) (*Provider, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, apperrors.NewAppError(apperrors.ErrOptInStore, "optinredis: ping "+cfg.Addr, err)
	}
	p := New(rdb, cfg.Prefix)
	p.closer = rdb.Close
	return p, nil
}

// New создаёт Provider поверх готового клиента. Пустой prefix заменяется на DefaultPrefix.
func New(rdb Commander, prefix string) *Provider {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Provider{rdb: rdb, prefix: prefix}
}

// Close закрывает клиент, если он был открыт через Open.
func (p *Provider) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}

// keyEscaper экранирует разделитель внутри частей ключа.
var keyEscaper = strings.NewReplacer(`\`, `\\`, ":", `\:`)

// Key возвращает ключ Redis для кортежа подписки.
// Двоеточия и обратные слэши в частях экранируются, разные кортежи дают разные ключи.
func (p *Provider) Key(k optin.Key) string {
	return strings.Join([]string{
		p.prefix,
		keyEscaper.Replace(k.Scope),
		keyEscaper.Replace(k.EntityID),
		keyEscaper.Replace(k.Alert),
		keyEscaper.Replace(k.Channel),
	}, ":")
}

// OptIn реализует optin.Provider.
func (p *Provider) OptIn(ctx context.Context, k optin.Key) error {
	return p.set(ctx, k, "1")
}

// OptOut реализует optin.Provider.
func (p *Provider) OptOut(ctx context.Context, k optin.Key) error {
	return p.set(ctx, k, "0")
}

func (p *Provider) set(ctx context.Context, k optin.Key, value string) error {
	if err := p.rdb.Set(ctx, p.Key(k), value, 0).Err(); err != nil {
		return apperrors.NewAppError(apperrors.ErrOptInStore, "optinredis: set "+k.String(), err)
	}
	return nil
}

// OptedIn реализует optin.Provider.
func (p *Provider) OptedIn(ctx context.Context, k optin.Key) (bool, error) {
	v, found, err := p.Lookup(ctx, k)
	return found && v, err
}

// Lookup реализует optin.Provider.
func (p *Provider) Lookup(ctx context.Context, k optin.Key) (bool, bool, error) {
	val, err := p.rdb.Get(ctx, p.Key(k)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, false, nil
		}
		return false, false, apperrors.NewAppError(apperrors.ErrOptInStore, "optinredis: get "+k.String(), err)
	}
	switch val {
	case "1":
		return true, true, nil
	case "0":
		return false, true, nil
	default:
		return false, false, apperrors.Newf(apperrors.ErrOptInStore,
			"optinredis: неожиданное значение %q для %s", val, k)
	}
}
