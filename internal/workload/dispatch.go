package workload

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

import (
	"github.com/nanjiek/pixiu-rcu/internal/types"
)

// Sink receives update events (Redis, Kafka, ...).
type Sink interface {
	Name() string
	Publish(ctx context.Context, ev types.UpdateEvent) error
}

// Limiter gates how many events reach the sinks.
type Limiter interface {
	Allow() bool
}

// DispatchStats counts what happened to submitted events.
type DispatchStats struct {
	Published int64 `json:"published"`
	Dropped   int64 `json:"dropped"`
	Throttled int64 `json:"throttled"`
	Failed    int64 `json:"failed"`
}

// Dispatcher decouples workers from sink I/O. Submit never blocks; a full
// queue drops the event.
type Dispatcher struct {
	ch      chan types.UpdateEvent
	sinks   []Sink
	limiter Limiter
	log     *slog.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}

	published atomic.Int64
	dropped   atomic.Int64
	throttled atomic.Int64
	failed    atomic.Int64
}

func NewDispatcher(size int, sinks []Sink, limiter Limiter) *Dispatcher {
	if size <= 0 {
		size = 1024
	}
	return &Dispatcher{
		ch:      make(chan types.UpdateEvent, size),
		sinks:   sinks,
		limiter: limiter,
		log:     slog.Default(),
		done:    make(chan struct{}),
	}
}

// Submit enqueues ev and reports whether it was accepted.
func (d *Dispatcher) Submit(ev types.UpdateEvent) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.dropped.Add(1)
		return false
	}
	select {
	case d.ch <- ev:
		return true
	default:
		d.dropped.Add(1)
		d.log.Warn("event queue full, dropping update event", "worker", ev.Worker, "generation", ev.Generation)
		return false
	}
}

// Run delivers events until Close drains the queue or ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-d.ch:
			if !ok {
				return
			}
			d.deliver(ctx, ev)
		}
	}
}

// Close stops accepting events and waits for Run to drain the queue.
// Run must have been started.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.ch)
	}
	d.mu.Unlock()
	<-d.done
}

func (d *Dispatcher) Stats() DispatchStats {
	return DispatchStats{
		Published: d.published.Load(),
		Dropped:   d.dropped.Load(),
		Throttled: d.throttled.Load(),
		Failed:    d.failed.Load(),
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev types.UpdateEvent) {
	if d.limiter != nil && !d.limiter.Allow() {
		d.throttled.Add(1)
		return
	}
	for _, s := range d.sinks {
		if err := s.Publish(ctx, ev); err != nil {
			d.failed.Add(1)
			d.log.Warn("publish update event failed", "sink", s.Name(), "generation", ev.Generation, "error", err)
			continue
		}
		d.published.Add(1)
	}
}
