package rcu

import (
	"slices"
)

// Cloner is implemented by values that know how to deep-copy themselves.
type Cloner[T any] interface {
	Clone() T
}

// Option configures a Cell or a Guarded cell.
type Option[T any] func(*options[T])

type options[T any] struct {
	clone     func(T) T
	onReclaim func(T)
	onDiscard func(T)
}

// WithClone sets the function used to copy the protected value on every read.
// Without it a value implementing Cloner is cloned through its Clone method,
// anything else is copied by assignment.
func WithClone[T any](fn func(T) T) Option[T] {
	return func(o *options[T]) { o.clone = fn }
}

// WithReclaim registers a hook that receives a superseded value exactly once,
// after no reader can observe it any more.
func WithReclaim[T any](fn func(T)) Option[T] {
	return func(o *options[T]) { o.onReclaim = fn }
}

// WithDiscard registers a hook that receives the value of an update that lost
// its compare-and-swap race. It runs exactly once per rejected value.
func WithDiscard[T any](fn func(T)) Option[T] {
	return func(o *options[T]) { o.onDiscard = fn }
}

// CloneSlice is a clone function for slice payloads.
func CloneSlice[S ~[]E, E any](s S) S {
	if s == nil {
		return nil
	}
	return slices.Clone(s)
}

func buildOptions[T any](init T, opts []Option[T]) options[T] {
	var o options[T]
	for _, opt := range opts {
		opt(&o)
	}
	if o.clone == nil {
		if _, ok := any(init).(Cloner[T]); ok {
			o.clone = func(v T) T { return any(v).(Cloner[T]).Clone() }
		} else {
			o.clone = func(v T) T { return v }
		}
	}
	return o
}
