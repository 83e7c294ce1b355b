package workload

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

import (
	"github.com/nanjiek/pixiu-rcu/internal/config"
	"github.com/nanjiek/pixiu-rcu/internal/types"
)

// ErrCircuitOpen is returned instead of calling a sink whose breaker is open.
var ErrCircuitOpen = errors.New("sink circuit open")

const (
	stateClosed = "closed"
	stateOpen   = "open"
	stateHalf   = "half"
)

type breakerSink struct {
	inner Sink
	cfg   config.BreakerCfg
	now   func() time.Time

	mu       sync.Mutex
	state    string
	fails    int // consecutive failures while closed
	until    time.Time
	halfPass int
}

// 工厂：用熔断器包装任意 Sink（redis/kafka/sarama）
func WithBreaker(inner Sink, cfg config.BreakerCfg) Sink {
	if !cfg.Enabled() {
		return inner
	}
	return &breakerSink{inner: inner, cfg: cfg, now: time.Now, state: stateClosed}
}

func (b *breakerSink) Name() string { return b.inner.Name() }

func (b *breakerSink) Publish(ctx context.Context, ev types.UpdateEvent) error {
	b.mu.Lock()
	switch b.state {
	case stateOpen:
		if b.now().Before(b.until) {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
		// 冷却到期 → half-open
		b.setHalf()
		fallthrough
	case stateHalf:
		// 半开采样：未命中直接拒绝（不计失败）
		if !stableSample(ev, b.cfg.HalfOpenProbePercent) {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
	}
	b.mu.Unlock()

	err := b.inner.Publish(ctx, ev)

	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case stateHalf:
		if err != nil {
			b.setOpen()
			return err
		}
		b.halfPass++
		if b.halfPass >= max(b.cfg.HalfOpenMinPass, 1) {
			b.setClosed()
		}
	default:
		if err == nil {
			b.fails = 0
			return nil
		}
		b.fails++
		if b.fails >= b.cfg.FailThreshold {
			b.setOpen()
		}
	}
	return err
}

func (b *breakerSink) setOpen() {
	b.state = stateOpen
	b.until = b.now().Add(time.Duration(b.cfg.MinOpenMs) * time.Millisecond)
	b.fails, b.halfPass = 0, 0
	slog.Info("breaker open", "sink", b.inner.Name(), "until", b.until)
}

func (b *breakerSink) setHalf() {
	b.state = stateHalf
	b.halfPass = 0
	slog.Info("breaker half-open", "sink", b.inner.Name())
}

func (b *breakerSink) setClosed() {
	b.state = stateClosed
	b.fails, b.halfPass = 0, 0
	slog.Info("breaker closed", "sink", b.inner.Name())
}

// stableSample picks the same events for a given generation on every run.
func stableSample(ev types.UpdateEvent, percent int) bool {
	if percent <= 0 {
		return false
	}
	if percent >= 100 {
		return true
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(strconv.FormatUint(ev.Generation, 10)))
	return int(h.Sum32()%100) < percent
}
