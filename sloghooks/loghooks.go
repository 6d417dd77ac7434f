// Package sloghooks reports cache events through log/slog.
package sloghooks

import (
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/kvcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	CodecFailureEvery    uint64
	IllegalArgumentEvery uint64
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	codecCtr   atomic.Uint64
	illegalCtr atomic.Uint64
}

var _ kvcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) IllegalArgument(op string) {
	if h.l == nil || !sample(h.opts.IllegalArgumentEvery, &h.illegalCtr) {
		return
	}
	h.l.Debug("kvcache.illegal_argument", "op", op)
}

func (h *Hooks) CodecFailure(op kvcache.CodecOp, err error) {
	if h.l == nil || !sample(h.opts.CodecFailureEvery, &h.codecCtr) {
		return
	}
	h.l.Warn("kvcache.codec_failure",
		"op", string(op),
		"err", err)
}

func (h *Hooks) ProviderFailure(op string, keys int, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("kvcache.provider_failure",
		"op", op,
		"keys", keys,
		"err", err)
}

func (h *Hooks) ProviderRejected(op string, keys int) {
	if h.l == nil {
		return
	}
	h.l.Warn("kvcache.provider_rejected",
		"op", op,
		"keys", keys)
}

func (h *Hooks) KeyCollision(op string, typed, binary int) {
	if h.l == nil {
		return
	}
	h.l.Info("kvcache.key_collision",
		"op", op,
		"typed", typed,
		"binary", binary)
}
