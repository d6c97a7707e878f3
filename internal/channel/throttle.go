package channel

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Kargones/apk-notify/internal/entity/notify"
	"github.com/Kargones/apk-notify/internal/pkg/logging"
	"github.com/Kargones/apk-notify/internal/pkg/metrics"
)

// RateLimiter контролирует частоту доставок по ключу.
// Хранит время последней доставки в памяти; состояние живёт в пределах процесса.
type RateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	sent   map[string]time.Time
	now    func() time.Time
}

// NewRateLimiter создаёт RateLimiter с указанным интервалом.
func NewRateLimiter(window time.Duration) *RateLimiter {
	return &RateLimiter{
		window: window,
		sent:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// cleanupThreshold — количество записей, после которого удаляются устаревшие.
const cleanupThreshold = 100

// Allow сообщает, можно ли доставить по ключу, и при true запоминает время доставки.
// Проверка и обновление атомарны.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()

	if len(r.sent) > cleanupThreshold {
		r.cleanupExpiredLocked(now)
	}

	if lastSent, ok := r.sent[key]; ok && now.Sub(lastSent) < r.window {
		return false
	}
	r.sent[key] = now
	return true
}

// cleanupExpiredLocked удаляет записи с истёкшим window. Вызывается под mutex.
func (r *RateLimiter) cleanupExpiredLocked(now time.Time) {
	for key, lastSent := range r.sent {
		if now.Sub(lastSent) >= r.window {
			delete(r.sent, key)
		}
	}
}

// Reset сбрасывает состояние для ключа.
func (r *RateLimiter) Reset(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sent, key)
}

// ResetAll сбрасывает состояние для всех ключей.
func (r *RateLimiter) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = make(map[string]time.Time)
}

// SetNowFunc устанавливает функцию получения текущего времени (для тестирования).
func (r *RateLimiter) SetNowFunc(fn func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = fn
}

// Throttled — декоратор канала: подавляет повторную доставку того же алерта
// тем же получателям через канал чаще, чем раз в окно RateLimiter.
type Throttled struct {
	next    notify.Deliverer
	limiter *RateLimiter
	logger  logging.Logger
	metrics metrics.Collector
}

// NewThrottled оборачивает канал next.
func NewThrottled(next notify.Deliverer, limiter *RateLimiter, logger logging.Logger, collector metrics.Collector) *Throttled {
	return &Throttled{
		next:    next,
		limiter: limiter,
		logger:  logging.OrNop(logger),
		metrics: metrics.OrNop(collector),
	}
}

// Deliver реализует notify.Deliverer. Подавленная доставка — не ошибка.
func (t *Throttled) Deliver(ctx context.Context, d notify.Delivery) error {
	key := throttleKey(d)
	if !t.limiter.Allow(key) {
		t.logger.Debug("доставка подавлена rate limiter",
			"alert", d.Alert,
			"channel", d.Channel,
		)
		t.metrics.RecordSkipped(d.Alert, d.Channel, metrics.SkipThrottled)
		return nil
	}
	if err := t.next.Deliver(ctx, d); err != nil {
		// Неудачная доставка не занимает окно.
		t.limiter.Reset(key)
		return err
	}
	return nil
}

func throttleKey(d notify.Delivery) string {
	return d.Alert + ":" + d.Channel + ":" + strings.Join(d.RecipientIDs(), ",")
}
