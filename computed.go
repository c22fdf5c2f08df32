package databind

import (
	"slices"

	"github.com/AnatoleLucet/databind/internal/tracker"
)

// ComputedValue is a read-only value derived from other observables.
//
// The value is computed lazily under tracking; the observables read by the
// computation become its dependencies. When one of them changes the value is
// marked dirty, and recomputed right away only if someone is listening, in
// which case listeners hear about it if the result differs.
type ComputedValue[T any] struct {
	observable
	valueListeners[T]

	compute func() T

	value T
	dirty bool
	deps  []Observable

	dependencyListener *computedDependencyListener[T]
}

type computedDependencyListener[T any] struct{ c *ComputedValue[T] }

func (l *computedDependencyListener[T]) HandleChange(ChangeEvent) { l.c.makeDirty() }

var _ ObservableValue[int] = (*ComputedValue[int])(nil)

func NewComputedValue[T any](realm Realm, compute func() T) *ComputedValue[T] {
	c := &ComputedValue[T]{
		compute: compute,
		dirty:   true,
	}
	c.dependencyListener = &computedDependencyListener[T]{c}

	c.init(realm, c)
	return c
}

func (c *ComputedValue[T]) Value() T {
	c.getterCalled()

	if c.dirty && !c.disposed {
		c.recompute()
	}
	return c.value
}

// AddChangeListener also brings the value up to date, so that the new
// listener hears about the next change of the dependencies.
func (c *ComputedValue[T]) AddChangeListener(l ChangeListener) {
	c.observable.AddChangeListener(l)
	c.ensureComputed()
}

func (c *ComputedValue[T]) AddValueChangeListener(l ValueChangeListener[T]) {
	c.valueListeners.AddValueChangeListener(l)
	c.ensureComputed()
}

func (c *ComputedValue[T]) ensureComputed() {
	if c.dirty && !c.disposed && c.realm.IsCurrent() {
		c.recompute()
	}
}

// SetValue always fails: computed values are read-only.
func (c *ComputedValue[T]) SetValue(T) error {
	return ErrUnmodifiable
}

// Dependencies returns the observables read by the last computation.
func (c *ComputedValue[T]) Dependencies() []Observable {
	return slices.Clone(c.deps)
}

func (c *ComputedValue[T]) recompute() {
	c.stopListening()

	var value T
	observed, recovered := tracker.Get().MonitorTracked(func() { value = c.compute() }, nil)
	if recovered != nil {
		panic(recovered)
	}
	c.deps = asObservables(observed)
	c.value = value
	c.dirty = false

	c.startListening()
}

func (c *ComputedValue[T]) makeDirty() {
	if c.dirty || c.disposed {
		return
	}
	c.dirty = true
	c.stopListening()

	if !c.hasListeners() && c.changeListeners.Len() == 0 {
		return
	}

	old := c.value
	c.recompute()

	if equal(old, c.value) {
		return
	}

	c.fireChange()
	c.fire(ValueChangeEvent[T]{Source: c, Diff: ValueDiff[T]{Old: old, New: c.value}})
}

func (c *ComputedValue[T]) startListening() {
	for _, dep := range c.deps {
		dep.AddChangeListener(c.dependencyListener)
	}
}

func (c *ComputedValue[T]) stopListening() {
	for _, dep := range c.deps {
		dep.RemoveChangeListener(c.dependencyListener)
	}
}

func (c *ComputedValue[T]) Dispose() {
	if !c.dispose() {
		return
	}

	c.stopListening()
	c.deps = nil
	c.listeners.Clear()
}
