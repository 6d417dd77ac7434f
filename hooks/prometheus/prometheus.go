// Package prometheus counts cache events with Prometheus collectors.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/kvcache"
)

// Hooks holds the collectors. Counters are labelled by cache operation.
type Hooks struct {
	IllegalArguments *prometheus.CounterVec
	CodecFailures    *prometheus.CounterVec
	ProviderFailures *prometheus.CounterVec
	ProviderRejects  *prometheus.CounterVec
	KeyCollisions    *prometheus.CounterVec
}

var _ kvcache.Hooks = (*Hooks)(nil)

// New creates and registers the collectors with reg under namespace ns
// (e.g. "myapp"); an empty ns yields kvcache_* metric names.
func New(reg prometheus.Registerer, ns string) *Hooks {
	if ns == "" {
		ns = "kvcache"
	}
	h := &Hooks{
		IllegalArguments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "illegal_arguments_total",
			Help:      "Calls rejected before reaching the provider.",
		}, []string{"op"}),

		CodecFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "codec_failures_total",
			Help:      "Key or value codec failures.",
		}, []string{"codec_op"}),

		ProviderFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "provider_failures_total",
			Help:      "Provider calls that returned an error.",
		}, []string{"op"}),

		ProviderRejects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "provider_rejects_total",
			Help:      "Writes refused by the provider under pressure.",
		}, []string{"op"}),

		KeyCollisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "key_collisions_total",
			Help:      "Typed keys that collapsed onto an already used binary key in a bulk call.",
		}, []string{"op"}),
	}

	reg.MustRegister(
		h.IllegalArguments,
		h.CodecFailures,
		h.ProviderFailures,
		h.ProviderRejects,
		h.KeyCollisions,
	)
	return h
}

func (h *Hooks) IllegalArgument(op string) { h.IllegalArguments.WithLabelValues(op).Inc() }

func (h *Hooks) CodecFailure(op kvcache.CodecOp, _ error) {
	h.CodecFailures.WithLabelValues(string(op)).Inc()
}

func (h *Hooks) ProviderFailure(op string, _ int, _ error) {
	h.ProviderFailures.WithLabelValues(op).Inc()
}

func (h *Hooks) ProviderRejected(op string, _ int) { h.ProviderRejects.WithLabelValues(op).Inc() }

func (h *Hooks) KeyCollision(op string, typed, binary int) {
	if typed > binary {
		h.KeyCollisions.WithLabelValues(op).Add(float64(typed - binary))
	}
}
