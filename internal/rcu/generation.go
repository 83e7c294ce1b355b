package rcu

import (
	"sync/atomic"
)

// generation 是受保护值的一个已发布版本
// value 发布后只读；只有回收它的那一方可以清零
type generation[T any] struct {
	value T
	seq   uint64

	// refs 仅用于 Guarded：Cell 自身持有一个引用，每个 Guard 各持有一个
	refs  atomic.Int64
	freed atomic.Bool
}

func newGeneration[T any](value T, seq uint64) *generation[T] {
	return &generation[T]{value: value, seq: seq}
}

// tryAcquire registers one more reference unless the count already hit zero.
// A zero count means the generation has been retired and may be reclaimed.
func (g *generation[T]) tryAcquire() bool {
	for {
		n := g.refs.Load()
		if n <= 0 {
			return false
		}
		if g.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// release drops one reference and reports whether it was the last one.
func (g *generation[T]) release() bool {
	n := g.refs.Add(-1)
	if n < 0 {
		panic("rcu: generation reference count below zero")
	}
	return n == 0
}

// reclaim hands the payload to the hook and drops it.
func (g *generation[T]) reclaim(hook func(T)) {
	if !g.freed.CompareAndSwap(false, true) {
		panic("rcu: generation reclaimed twice")
	}
	if hook != nil {
		hook(g.value)
	}
	var zero T
	g.value = zero
}
