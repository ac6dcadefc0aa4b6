// Package prom counts tiercache events in Prometheus counters.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/unkn0wn-root/tiercache"
	"github.com/unkn0wn-root/tiercache/ttl"
)

type Options struct {
	Namespace string          // metric prefix; "" => "tiercache"
	Next      tiercache.Hooks // optional; receives every event after counting
}

// Hooks increments one counter per event. Key-bearing events are labeled
// by category, never by full key, to keep cardinality bounded.
type Hooks struct {
	storageErrors *prometheus.CounterVec
	selfHeals     *prometheus.CounterVec
	emptyWrites   *prometheus.CounterVec
	itemsSkipped  *prometheus.CounterVec
	mismatches    prometheus.Counter
	expired       *prometheus.CounterVec

	next tiercache.Hooks
}

var _ tiercache.Hooks = (*Hooks)(nil)

// New registers the counters on reg. Registering twice on the same
// registry panics, as with any promauto collector.
func New(reg prometheus.Registerer, opts Options) *Hooks {
	ns := opts.Namespace
	if ns == "" {
		ns = "tiercache"
	}
	f := promauto.With(reg)
	h := &Hooks{
		storageErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "storage_errors_total",
			Help:      "Persistent-tier failures that degraded to a miss.",
		}, []string{"op"}),
		selfHeals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "self_heals_total",
			Help:      "Entries removed on read because they could not be decoded.",
		}, []string{"reason"}),
		emptyWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "empty_writes_total",
			Help:      "Empty results dropped instead of cached.",
		}, []string{"category"}),
		itemsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "items_skipped_total",
			Help:      "Payload elements skipped because they failed to decode.",
		}, []string{"field"}),
		mismatches: f.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "shape_mismatches_total",
			Help:      "Payloads that were only partially usable.",
		}),
		expired: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "expired_total",
			Help:      "Validity checks that found the entry past its TTL.",
		}, []string{"category"}),
		next: opts.Next,
	}
	if h.next == nil {
		h.next = tiercache.NopHooks{}
	}
	return h
}

func (h *Hooks) StorageError(op, key string, err error) {
	h.storageErrors.WithLabelValues(op).Inc()
	h.next.StorageError(op, key, err)
}

func (h *Hooks) SelfHeal(key, reason string) {
	h.selfHeals.WithLabelValues(reason).Inc()
	h.next.SelfHeal(key, reason)
}

func (h *Hooks) EmptyWrite(key string) {
	h.emptyWrites.WithLabelValues(ttl.CategoryOf(key)).Inc()
	h.next.EmptyWrite(key)
}

func (h *Hooks) ItemSkipped(field string, index int, err error) {
	h.itemsSkipped.WithLabelValues(field).Inc()
	h.next.ItemSkipped(field, index, err)
}

func (h *Hooks) ShapeMismatch(reason string) {
	h.mismatches.Inc()
	h.next.ShapeMismatch(reason)
}

func (h *Hooks) Expired(key string) {
	h.expired.WithLabelValues(ttl.CategoryOf(key)).Inc()
	h.next.Expired(key)
}
