package rcu

import (
	"sync/atomic"
)

// Guarded is the reference-counted variant of Cell. Every generation carries
// its own count; the cell holds one reference to the live generation and each
// Guard holds another. Whoever drops the last reference reclaims the
// generation, so neither readers nor writers ever wait on each other.
type Guarded[T any] struct {
	current atomic.Pointer[generation[T]]

	opts  options[T]
	stats counters
}

// NewGuarded creates a guarded cell holding init as generation 1.
func NewGuarded[T any](init T, opts ...Option[T]) *Guarded[T] {
	c := &Guarded[T]{opts: buildOptions(init, opts)}
	g := newGeneration(init, 1)
	g.refs.Store(1)
	c.current.Store(g)
	return c
}

// Read pins the live generation and returns a guard over it.
// The guard must be released once the caller is done with the value.
func (c *Guarded[T]) Read() *Guard[T] {
	for {
		g := c.current.Load()
		if g.tryAcquire() {
			return &Guard[T]{cell: c, gen: g}
		}
		// g was retired between the load and the acquire; the pointer has
		// already moved on.
	}
}

// Load returns a copy of the live value without handing out a guard.
func (c *Guarded[T]) Load() T {
	g := c.Read()
	defer g.Release()
	return g.Clone()
}

// Generation reports the sequence number of the live generation.
func (c *Guarded[T]) Generation() uint64 {
	return c.current.Load().seq
}

// Update installs next over whatever generation is live at the time of the
// call. It fails only when another writer swaps the pointer in between.
func (c *Guarded[T]) Update(next T) bool {
	_, ok := c.install(c.current.Load(), next)
	return ok
}

// Install is Update returning the generation number assigned to next.
func (c *Guarded[T]) Install(next T) (uint64, bool) {
	return c.install(c.current.Load(), next)
}

// CompareAndUpdate installs next only if basis still pins the live generation.
func (c *Guarded[T]) CompareAndUpdate(basis *Guard[T], next T) bool {
	_, ok := c.install(basis.gen, next)
	return ok
}

func (c *Guarded[T]) install(old *generation[T], next T) (uint64, bool) {
	neo := newGeneration(next, old.seq+1)
	neo.refs.Store(1)
	if !c.current.CompareAndSwap(old, neo) {
		c.stats.lost.Add(1)
		neo.refs.Store(0)
		neo.reclaim(c.opts.onDiscard)
		c.stats.discarded.Add(1)
		return 0, false
	}
	c.stats.updates.Add(1)
	// Drop the cell's own reference; the old generation lives on while guards
	// still pin it.
	c.put(old)
	return neo.seq, true
}

// Stats returns the cell's counters.
func (c *Guarded[T]) Stats() Stats {
	s := c.stats.snapshot()
	s.Generation = c.Generation()
	return s
}

func (c *Guarded[T]) put(g *generation[T]) {
	if g.release() {
		g.reclaim(c.opts.onReclaim)
		c.stats.reclaimed.Add(1)
	}
}

// Guard grants shared read access to exactly one generation until Release.
type Guard[T any] struct {
	cell     *Guarded[T]
	gen      *generation[T]
	released atomic.Bool
}

// Value returns the pinned value. Callers must treat it as immutable and must
// not use it after Release.
func (g *Guard[T]) Value() T {
	if g.released.Load() {
		panic("rcu: use of released guard")
	}
	return g.gen.value
}

// Clone returns a private copy of the pinned value.
func (g *Guard[T]) Clone() T {
	return g.cell.opts.clone(g.Value())
}

// Generation reports which generation the guard pins.
func (g *Guard[T]) Generation() uint64 {
	return g.gen.seq
}

// Release unpins the generation. Only the first call has an effect.
func (g *Guard[T]) Release() {
	if !g.released.CompareAndSwap(false, true) {
		return
	}
	g.cell.put(g.gen)
}
