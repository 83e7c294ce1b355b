package workload

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"
)

import (
	"github.com/nanjiek/pixiu-rcu/internal/config"
	"github.com/nanjiek/pixiu-rcu/internal/types"
	"github.com/nanjiek/pixiu-rcu/internal/util"
)

// Stats summarises a run.
type Stats struct {
	Ops       int64   `json:"ops"`
	Attempts  int64   `json:"attempts"`
	Successes int64   `json:"successes"`
	LostRaces int64   `json:"lostRaces"`
	BestMean  float64 `json:"bestMean"`
}

// Runner drives the running-maximum-mean workload against a Store. Each
// worker appends a random number to a private copy of the vector and tries to
// publish it whenever the copy's mean beats the best mean that worker has seen.
type Runner struct {
	cfg      config.WorkloadCfg
	store    Store
	onUpdate func(types.UpdateEvent)
	log      *slog.Logger

	ops       atomic.Int64
	attempts  atomic.Int64
	successes atomic.Int64
	lost      atomic.Int64
	best      atomic.Uint64 // math.Float64bits
}

// RunnerOption customises a Runner.
type RunnerOption func(*Runner)

// WithUpdateHook receives an event for every successful update.
func WithUpdateHook(fn func(types.UpdateEvent)) RunnerOption {
	return func(r *Runner) { r.onUpdate = fn }
}

// WithLogger overrides slog.Default.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) { r.log = l }
}

func NewRunner(cfg config.WorkloadCfg, store Store, opts ...RunnerOption) *Runner {
	if store == nil {
		panic("workload: nil store")
	}
	r := &Runner{
		cfg:   cfg,
		store: store,
		log:   slog.Default(),
	}
	r.best.Store(math.Float64bits(math.Inf(-1)))
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run starts the workers and blocks until all of them finish or ctx is done.
func (r *Runner) Run(ctx context.Context) Stats {
	seed := r.cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			r.work(ctx, id, rand.New(rand.NewPCG(seed, uint64(id))))
		}(i)
	}
	wg.Wait()

	st := r.Progress()
	r.log.Info("workload finished",
		"variant", r.store.Variant(),
		"ops", st.Ops,
		"attempts", st.Attempts,
		"successes", st.Successes,
		"lost", st.LostRaces,
		"best_mean", st.BestMean,
		"elapsed", time.Since(start))
	return st
}

// Progress reports the counters so far; safe to call while Run is active.
func (r *Runner) Progress() Stats {
	return Stats{
		Ops:       r.ops.Load(),
		Attempts:  r.attempts.Load(),
		Successes: r.successes.Load(),
		LostRaces: r.lost.Load(),
		BestMean:  math.Float64frombits(r.best.Load()),
	}
}

func (r *Runner) work(ctx context.Context, id int, rng *rand.Rand) {
	span := r.cfg.Max - r.cfg.Min + 1
	largest := math.Inf(-1)

	for j := 0; j < r.cfg.OpsPerWorker; j++ {
		if ctx.Err() != nil {
			return
		}
		num := rng.IntN(span) + r.cfg.Min

		data := r.store.Snapshot()
		data = append(data, num)
		cur := util.Mean(data)
		if cur > largest {
			largest = cur
			r.attempts.Add(1)
			if gen, ok := r.store.Install(data); ok {
				r.successes.Add(1)
				r.raiseBest(cur)
				r.log.Debug("update successful", "worker", id, "mean", cur, "generation", gen)
				if r.onUpdate != nil {
					r.onUpdate(types.UpdateEvent{
						Worker:     id,
						Generation: gen,
						Mean:       cur,
						Len:        len(data),
						Variant:    r.store.Variant(),
						At:         time.Now(),
					})
				}
			} else {
				r.lost.Add(1)
			}
		}
		r.ops.Add(1)
	}
}

func (r *Runner) raiseBest(m float64) {
	for {
		old := r.best.Load()
		if math.Float64frombits(old) >= m {
			return
		}
		if r.best.CompareAndSwap(old, math.Float64bits(m)) {
			return
		}
	}
}
