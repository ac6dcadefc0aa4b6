// Package otel counts tiercache events with OpenTelemetry metrics.
package otel

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/unkn0wn-root/tiercache"
	"github.com/unkn0wn-root/tiercache/ttl"
)

const scope = "github.com/unkn0wn-root/tiercache"

// Hooks records one Int64Counter per event kind.
type Hooks struct {
	storageErrors metric.Int64Counter
	selfHeals     metric.Int64Counter
	emptyWrites   metric.Int64Counter
	itemsSkipped  metric.Int64Counter
	mismatches    metric.Int64Counter
	expired       metric.Int64Counter

	next tiercache.Hooks
}

var _ tiercache.Hooks = (*Hooks)(nil)

// New creates the instruments on mp's tiercache meter. next, when non-nil,
// receives every event after it is counted.
func New(mp metric.MeterProvider, next tiercache.Hooks) (*Hooks, error) {
	if mp == nil {
		return nil, errors.New("otel: meter provider is required")
	}
	m := mp.Meter(scope)
	h := &Hooks{next: next}
	if h.next == nil {
		h.next = tiercache.NopHooks{}
	}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&h.storageErrors, "tiercache.storage.errors", "Persistent-tier failures that degraded to a miss"},
		{&h.selfHeals, "tiercache.self_heals", "Entries removed on read because they could not be decoded"},
		{&h.emptyWrites, "tiercache.empty_writes", "Empty results dropped instead of cached"},
		{&h.itemsSkipped, "tiercache.items.skipped", "Payload elements skipped because they failed to decode"},
		{&h.mismatches, "tiercache.shape.mismatches", "Payloads that were only partially usable"},
		{&h.expired, "tiercache.expired", "Validity checks that found the entry past its TTL"},
	}
	for _, c := range counters {
		ctr, err := m.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit("{event}"))
		if err != nil {
			return nil, err
		}
		*c.dst = ctr
	}
	return h, nil
}

func add(c metric.Int64Counter, attrs ...attribute.KeyValue) {
	c.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

func (h *Hooks) StorageError(op, key string, err error) {
	add(h.storageErrors, attribute.String("op", op))
	h.next.StorageError(op, key, err)
}

func (h *Hooks) SelfHeal(key, reason string) {
	add(h.selfHeals, attribute.String("reason", reason))
	h.next.SelfHeal(key, reason)
}

func (h *Hooks) EmptyWrite(key string) {
	add(h.emptyWrites, attribute.String("category", ttl.CategoryOf(key)))
	h.next.EmptyWrite(key)
}

func (h *Hooks) ItemSkipped(field string, index int, err error) {
	add(h.itemsSkipped, attribute.String("field", field))
	h.next.ItemSkipped(field, index, err)
}

func (h *Hooks) ShapeMismatch(reason string) {
	add(h.mismatches)
	h.next.ShapeMismatch(reason)
}

func (h *Hooks) Expired(key string) {
	add(h.expired, attribute.String("category", ttl.CategoryOf(key)))
	h.next.Expired(key)
}
