// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    CodecFailureEvery: 10, // sample logs: ~every 10th codec failure
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	cache, _ := kvcache.New[string, User](kvcache.Options[string, User]{
//	    Namespace: "app:prod:user",
//	    Provider:  provider,
//	    Codec:     codec.JSON[User]{},
//	    Hooks:     hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/kvcache"
)

// Hooks forwards events to inner on a worker pool. Events are dropped when
// the queue is full so cache calls never block on hooks.
type Hooks struct {
	inner   kvcache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ kvcache.Hooks = (*Hooks)(nil)

func New(inner kvcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events arriving after
// Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded because the queue was full or closed.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) IllegalArgument(op string) { h.try(func() { h.inner.IllegalArgument(op) }) }
func (h *Hooks) CodecFailure(op kvcache.CodecOp, err error) {
	h.try(func() { h.inner.CodecFailure(op, err) })
}
func (h *Hooks) ProviderFailure(op string, n int, err error) {
	h.try(func() { h.inner.ProviderFailure(op, n, err) })
}
func (h *Hooks) ProviderRejected(op string, n int) {
	h.try(func() { h.inner.ProviderRejected(op, n) })
}
func (h *Hooks) KeyCollision(op string, typed, binary int) {
	h.try(func() { h.inner.KeyCollision(op, typed, binary) })
}
