package runtime

import "sync"

// Local is goroutine-local storage. Each goroutine lazily gets its own T.
type Local[T any] struct {
	values sync.Map // goroutine id -> *T
	init   func() *T
}

func NewLocal[T any](init func() *T) *Local[T] {
	return &Local[T]{init: init}
}

// Get returns the value of the calling goroutine, creating it if needed.
func (l *Local[T]) Get() *T {
	gid := GoroutineID()

	if v, ok := l.values.Load(gid); ok {
		return v.(*T)
	}

	v := l.init()
	l.values.Store(gid, v)
	return v
}

// Peek returns the value of the calling goroutine without creating it.
func (l *Local[T]) Peek() (*T, bool) {
	if v, ok := l.values.Load(GoroutineID()); ok {
		return v.(*T), true
	}

	return nil, false
}

// Release drops the value of the calling goroutine.
// The next Get on this goroutine starts from a fresh value.
func (l *Local[T]) Release() {
	l.values.Delete(GoroutineID())
}
