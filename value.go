package databind

import (
	"github.com/AnatoleLucet/databind/internal/listeners"
)

type ValueChangeEvent[T any] struct {
	Source ObservableValue[T]
	Diff   ValueDiff[T]
}

type ValueChangeListener[T any] interface {
	HandleValueChange(event ValueChangeEvent[T])
}

type valueChangeFunc[T any] struct{ fn func(ValueChangeEvent[T]) }

func (f *valueChangeFunc[T]) HandleValueChange(event ValueChangeEvent[T]) { f.fn(event) }

// OnValueChange adapts fn into a ValueChangeListener.
func OnValueChange[T any](fn func(ValueChangeEvent[T])) ValueChangeListener[T] {
	return &valueChangeFunc[T]{fn}
}

// ObservableValue is an observable holding a single value.
type ObservableValue[T any] interface {
	Observable

	// Value returns the current value, recording a tracked read.
	Value() T

	// SetValue replaces the value. Read-only implementations return ErrUnmodifiable.
	SetValue(v T) error

	AddValueChangeListener(l ValueChangeListener[T])
	RemoveValueChangeListener(l ValueChangeListener[T])
}

// valueListeners is the typed half of an ObservableValue's listener machinery.
type valueListeners[T any] struct {
	listeners listeners.List[ValueChangeListener[T]]
}

func (v *valueListeners[T]) AddValueChangeListener(l ValueChangeListener[T]) {
	v.listeners.Add(l)
}

func (v *valueListeners[T]) RemoveValueChangeListener(l ValueChangeListener[T]) {
	v.listeners.Remove(l)
}

func (v *valueListeners[T]) hasListeners() bool {
	return v.listeners.Len() > 0
}

func (v *valueListeners[T]) fire(event ValueChangeEvent[T]) {
	v.listeners.Each(func(l ValueChangeListener[T]) { l.HandleValueChange(event) })
}

// WritableValue is a settable ObservableValue.
type WritableValue[T any] struct {
	observable
	valueListeners[T]

	value T
}

var _ ObservableValue[int] = (*WritableValue[int])(nil)

func NewWritableValue[T any](realm Realm, initial T) *WritableValue[T] {
	v := &WritableValue[T]{value: initial}
	v.init(realm, v)
	return v
}

func (v *WritableValue[T]) Value() T {
	v.getterCalled()
	return v.value
}

// SetValue notifies listeners only when the value actually changes.
func (v *WritableValue[T]) SetValue(value T) error {
	if err := v.checkMutable(); err != nil {
		return err
	}

	old := v.value
	if equal(old, value) {
		return nil
	}
	v.value = value

	v.fireChange()
	v.fire(ValueChangeEvent[T]{Source: v, Diff: ValueDiff[T]{Old: old, New: value}})
	return nil
}

func (v *WritableValue[T]) Dispose() {
	if v.dispose() {
		v.listeners.Clear()
	}
}

// UnmodifiableValue is a read-only view of an ObservableValue.
type UnmodifiableValue[T any] struct {
	ObservableValue[T]
}

func NewUnmodifiableValue[T any](value ObservableValue[T]) *UnmodifiableValue[T] {
	return &UnmodifiableValue[T]{value}
}

func (u *UnmodifiableValue[T]) SetValue(T) error { return ErrUnmodifiable }

// Dispose is a no-op: the view doesn't own the underlying value.
func (u *UnmodifiableValue[T]) Dispose() {}
