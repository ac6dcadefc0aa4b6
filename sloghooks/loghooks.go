// Package sloghooks logs tiercache events with log/slog.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/tiercache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SkipEvery    uint64
	ExpiredEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix. Keys may carry a
	// session id, so they are never logged verbatim by default.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	skipCtr    atomic.Uint64
	expiredCtr atomic.Uint64
}

var _ tiercache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	if k == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) StorageError(op, key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("tiercache.storage_error",
		"op", op,
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) SelfHeal(key, reason string) {
	if h.l == nil {
		return
	}
	h.l.Info("tiercache.self_heal",
		"key", h.redact(key),
		"reason", reason)
}

func (h *Hooks) EmptyWrite(key string) {
	if h.l == nil {
		return
	}
	h.l.Debug("tiercache.empty_write", "key", h.redact(key))
}

func (h *Hooks) ItemSkipped(field string, index int, err error) {
	if h.l == nil || !sample(h.opts.SkipEvery, &h.skipCtr) {
		return
	}
	h.l.Warn("tiercache.item_skipped",
		"field", field,
		"index", index,
		"err", err)
}

func (h *Hooks) ShapeMismatch(reason string) {
	if h.l == nil {
		return
	}
	h.l.Warn("tiercache.shape_mismatch", "reason", reason)
}

func (h *Hooks) Expired(key string) {
	if h.l == nil || !sample(h.opts.ExpiredEvery, &h.expiredCtr) {
		return
	}
	h.l.Debug("tiercache.expired", "key", h.redact(key))
}
