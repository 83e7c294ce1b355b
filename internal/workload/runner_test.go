package workload

import (
	"context"
	"slices"
	"sync"
	"testing"
)

import (
	"github.com/nanjiek/pixiu-rcu/internal/config"
	"github.com/nanjiek/pixiu-rcu/internal/types"
	"github.com/nanjiek/pixiu-rcu/internal/util"
)

func TestNewStoreVariants(t *testing.T) {
	for _, variant := range []string{config.VariantGate, config.VariantGuard} {
		t.Run(variant, func(t *testing.T) {
			store, err := NewStore(variant, []int{1, 2})
			if err != nil {
				t.Fatalf("NewStore: %v", err)
			}
			if store.Variant() != variant {
				t.Fatalf("variant = %s", store.Variant())
			}

			snap := store.Snapshot()
			snap[0] = 99
			if got := store.Reader().Read(); !slices.Equal(got, []int{1, 2}) {
				t.Fatalf("snapshot aliased the cell: %v", got)
			}

			gen, ok := store.Install([]int{3})
			if !ok || gen != 2 {
				t.Fatalf("install = %d, %v", gen, ok)
			}
			v, g := store.SnapshotVersion()
			if g != 2 || !slices.Equal(v, []int{3}) {
				t.Fatalf("SnapshotVersion = %v, %d", v, g)
			}
			if st := store.Stats(); st.Updates != 1 || st.Generation != 2 {
				t.Fatalf("stats = %+v", st)
			}
		})
	}
}

func TestNewStoreUnknownVariant(t *testing.T) {
	if _, err := NewStore("epoch", nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRunnerCompletesAllOps(t *testing.T) {
	for _, variant := range []string{config.VariantGate, config.VariantGuard} {
		t.Run(variant, func(t *testing.T) {
			store, err := NewStore(variant, []int{})
			if err != nil {
				t.Fatalf("NewStore: %v", err)
			}

			var mu sync.Mutex
			var events []types.UpdateEvent
			cfg := config.WorkloadCfg{Workers: 8, OpsPerWorker: 200, Min: -100, Max: 100, Seed: 7}
			r := NewRunner(cfg, store, WithUpdateHook(func(ev types.UpdateEvent) {
				mu.Lock()
				events = append(events, ev)
				mu.Unlock()
			}))

			st := r.Run(context.Background())
			if st.Ops != 8*200 {
				t.Fatalf("ops = %d, want %d", st.Ops, 8*200)
			}
			if st.Successes == 0 {
				t.Fatalf("no update succeeded")
			}
			if st.Successes+st.LostRaces != st.Attempts {
				t.Fatalf("successes %d + lost %d != attempts %d", st.Successes, st.LostRaces, st.Attempts)
			}
			if int64(len(events)) != st.Successes {
				t.Fatalf("events %d, successes %d", len(events), st.Successes)
			}

			cs := store.Stats()
			if int64(cs.Updates) != st.Successes || int64(cs.LostRaces) != st.LostRaces {
				t.Fatalf("cell stats %+v disagree with runner %+v", cs, st)
			}

			// Each update appends one element to a base no newer than the
			// generation it replaces.
			final, gen := store.SnapshotVersion()
			if len(final) == 0 || uint64(len(final)) > gen-1 {
				t.Fatalf("final len %d at generation %d", len(final), gen)
			}
			for _, v := range final {
				if v < cfg.Min || v > cfg.Max {
					t.Fatalf("value %d out of range", v)
				}
			}

			seen := map[uint64]bool{}
			for _, ev := range events {
				if seen[ev.Generation] {
					t.Fatalf("generation %d reported twice", ev.Generation)
				}
				seen[ev.Generation] = true
				if ev.Variant != variant {
					t.Fatalf("event variant = %s", ev.Variant)
				}
			}
			// The final value was some worker's best when it was published.
			if st.BestMean < util.Mean(final) {
				t.Fatalf("best mean %v below final mean %v", st.BestMean, util.Mean(final))
			}
		})
	}
}

func TestRunnerStopsOnCancel(t *testing.T) {
	store, _ := NewStore(config.VariantGate, []int{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(config.WorkloadCfg{Workers: 4, OpsPerWorker: 1000, Min: 0, Max: 1}, store)
	st := r.Run(ctx)
	if st.Ops != 0 {
		t.Fatalf("ops = %d after cancelled context", st.Ops)
	}
}

func TestSingleWorkerIsDeterministic(t *testing.T) {
	run := func() []int {
		store, _ := NewStore(config.VariantGate, []int{})
		cfg := config.WorkloadCfg{Workers: 1, OpsPerWorker: 50, Min: -5, Max: 5, Seed: 99}
		NewRunner(cfg, store).Run(context.Background())
		return store.Snapshot()
	}
	a, b := run(), run()
	if !slices.Equal(a, b) {
		t.Fatalf("same seed produced %v and %v", a, b)
	}
}
