package rcu

import (
	"sync/atomic"
)

// Cell 是一个基于 RCU（Read-Copy-Update）机制的容器
// 特性：
// - 读操作不加锁，每次读取返回当前值的完整副本
// - 写操作通过 CAS 原子替换当前版本，成功后等待读者排空再回收旧版本
// - 回收期间写闸门（gate）关闭，新读者短暂等待，已注册的读者不受影响
//
// 使用场景：
// - 频繁读取、偶尔更新的中小型共享数据
type Cell[T any] struct {
	current atomic.Pointer[generation[T]]
	// prev is the last generation whose installation finished. Writers compare
	// against it; it is never dereferenced for reading.
	prev    atomic.Pointer[generation[T]]
	readers atomic.Int64
	gate    atomic.Bool

	opts  options[T]
	stats counters
}

// Reader is the read-only capability shared by Cell and Subscriber.
type Reader[T any] interface {
	Read() T
}

// New creates a cell holding init as generation 1.
func New[T any](init T, opts ...Option[T]) *Cell[T] {
	c := &Cell[T]{opts: buildOptions(init, opts)}
	g := newGeneration(init, 1)
	c.current.Store(g)
	c.prev.Store(g)
	return c
}

// Read returns a copy of the installed value.
// It waits only while a writer is reclaiming the previous generation.
func (c *Cell[T]) Read() T {
	v, _ := c.ReadVersion()
	return v
}

// ReadVersion returns a copy of the installed value together with the
// generation it was copied from.
func (c *Cell[T]) ReadVersion() (T, uint64) {
	var b backoff
	for c.gate.Load() {
		b.wait()
	}
	c.readers.Add(1)
	g := c.current.Load()
	v := c.opts.clone(g.value)
	c.readers.Add(-1)
	return v, g.seq
}

// Generation reports the sequence number of the installed generation.
func (c *Cell[T]) Generation() uint64 {
	return c.current.Load().seq
}

// Update installs next and reports whether this call won the race.
// A losing update leaves the cell untouched and drops next.
func (c *Cell[T]) Update(next T) bool {
	_, ok := c.Install(next)
	return ok
}

// Install is Update returning the generation number assigned to next.
func (c *Cell[T]) Install(next T) (uint64, bool) {
	prev := c.prev.Load()
	neo := newGeneration(next, prev.seq+1)

	var b backoff
	for c.gate.Load() {
		b.wait()
	}

	if !c.current.CompareAndSwap(prev, neo) {
		c.stats.lost.Add(1)
		c.discard(neo)
		return 0, false
	}

	// From here on no other writer can succeed until prev is advanced.
	c.gate.Store(true)
	b = backoff{}
	for c.readers.Load() > 0 {
		b.wait()
	}
	c.prev.Store(neo)
	prev.reclaim(c.opts.onReclaim)
	c.stats.reclaimed.Add(1)
	c.gate.Store(false)

	c.stats.updates.Add(1)
	return neo.seq, true
}

// Subscribe returns a handle that can only read from the cell.
func (c *Cell[T]) Subscribe() *Subscriber[T] {
	return &Subscriber[T]{cell: c}
}

// Stats returns the cell's counters.
func (c *Cell[T]) Stats() Stats {
	s := c.stats.snapshot()
	s.Generation = c.Generation()
	return s
}

func (c *Cell[T]) discard(g *generation[T]) {
	g.reclaim(c.opts.onDiscard)
	c.stats.discarded.Add(1)
}

// Subscriber is a read-only view of a Cell.
type Subscriber[T any] struct {
	cell *Cell[T]
}

// Read returns a copy of the subscribed cell's installed value.
func (s *Subscriber[T]) Read() T {
	return s.cell.Read()
}
