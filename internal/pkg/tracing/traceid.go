// Package tracing объединяет корреляцию логов по trace ID и OpenTelemetry трейсинг отправки уведомлений.
//
// Формат trace ID: 32-символьный hex (16 байт), совместимый с W3C Trace Context,
// поэтому тот же идентификатор используется как OTel TraceID:
//
//	traceID := tracing.GenerateTraceID()
//	ctx := tracing.ContextWithOTelTraceID(tracing.WithTraceID(ctx, traceID), traceID)
package tracing

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

var fallbackCounter atomic.Uint64

// GenerateTraceID генерирует уникальный trace ID из crypto/rand.
// При ошибке crypto/rand использует timestamp и счётчик.
func GenerateTraceID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fallbackTraceID()
	}
	return hex.EncodeToString(b)
}

// fallbackTraceID всегда возвращает ровно 32 hex символа: %016x для двух uint64.
func fallbackTraceID() string {
	counter := fallbackCounter.Add(1)
	timestamp := uint64(time.Now().UnixNano())
	return fmt.Sprintf("%016x%016x", timestamp, counter)
}
