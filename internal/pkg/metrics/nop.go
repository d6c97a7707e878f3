package metrics

import (
	"context"
	"time"
)

// NopCollector — no-op реализация Collector.
type NopCollector struct{}

// NewNopCollector создаёт NopCollector.
func NewNopCollector() *NopCollector {
	return &NopCollector{}
}

// RecordDelivery — no-op.
func (c *NopCollector) RecordDelivery(string, string, int, time.Duration, bool) {}

// RecordSkipped — no-op.
func (c *NopCollector) RecordSkipped(string, string, string) {}

// RecordFiltered — no-op.
func (c *NopCollector) RecordFiltered(string, string, int, int) {}

// Push — no-op, всегда возвращает nil.
func (c *NopCollector) Push(context.Context) error {
	return nil
}

// OrNop возвращает c, либо NopCollector если c == nil.
func OrNop(c Collector) Collector {
	if c == nil {
		return NewNopCollector()
	}
	return c
}
