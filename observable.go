package databind

import (
	"reflect"

	"github.com/AnatoleLucet/databind/internal/listeners"
	"github.com/AnatoleLucet/databind/internal/tracker"
)

// Observable is anything that can be read, notifies listeners when its
// state changes, and belongs to exactly one Realm.
type Observable interface {
	Realm() Realm

	AddChangeListener(l ChangeListener)
	RemoveChangeListener(l ChangeListener)

	AddStaleListener(l StaleListener)
	RemoveStaleListener(l StaleListener)

	AddDisposeListener(l DisposeListener)
	RemoveDisposeListener(l DisposeListener)

	// IsStale reports whether the state is known to be out of date,
	// e.g. while a newer value is being fetched.
	IsStale() bool

	IsDisposed() bool

	// Dispose notifies dispose listeners then drops every listener.
	Dispose()
}

type ChangeEvent struct{ Source Observable }

type StaleEvent struct{ Source Observable }

type DisposeEvent struct{ Source Observable }

// ChangeListener is told that an observable changed, without details.
// Listeners are compared by identity, implement them on pointer types.
type ChangeListener interface {
	HandleChange(event ChangeEvent)
}

type StaleListener interface {
	HandleStale(event StaleEvent)
}

type DisposeListener interface {
	HandleDispose(event DisposeEvent)
}

type changeFunc struct{ fn func(ChangeEvent) }

func (f *changeFunc) HandleChange(event ChangeEvent) { f.fn(event) }

// OnChange adapts fn into a ChangeListener. Keep the result to remove it later.
func OnChange(fn func(ChangeEvent)) ChangeListener { return &changeFunc{fn} }

type staleFunc struct{ fn func(StaleEvent) }

func (f *staleFunc) HandleStale(event StaleEvent) { f.fn(event) }

// OnStale adapts fn into a StaleListener.
func OnStale(fn func(StaleEvent)) StaleListener { return &staleFunc{fn} }

type disposeFunc struct{ fn func(DisposeEvent) }

func (f *disposeFunc) HandleDispose(event DisposeEvent) { f.fn(event) }

// OnDispose adapts fn into a DisposeListener.
func OnDispose(fn func(DisposeEvent)) DisposeListener { return &disposeFunc{fn} }

// observable is the change-listener machinery shared by every implementation.
type observable struct {
	realm Realm
	self  Observable

	changeListeners  listeners.List[ChangeListener]
	staleListeners   listeners.List[StaleListener]
	disposeListeners listeners.List[DisposeListener]

	stale    bool
	disposed bool
}

func (o *observable) init(realm Realm, self Observable) {
	if realm == nil {
		panic(ErrNilRealm)
	}

	o.realm = realm
	o.self = self

	tracker.Created(self)
}

func (o *observable) Realm() Realm { return o.realm }

func (o *observable) AddChangeListener(l ChangeListener)    { o.changeListeners.Add(l) }
func (o *observable) RemoveChangeListener(l ChangeListener) { o.changeListeners.Remove(l) }

func (o *observable) AddStaleListener(l StaleListener)    { o.staleListeners.Add(l) }
func (o *observable) RemoveStaleListener(l StaleListener) { o.staleListeners.Remove(l) }

func (o *observable) AddDisposeListener(l DisposeListener)    { o.disposeListeners.Add(l) }
func (o *observable) RemoveDisposeListener(l DisposeListener) { o.disposeListeners.Remove(l) }

func (o *observable) IsStale() bool {
	o.getterCalled()
	return o.stale
}

func (o *observable) IsDisposed() bool { return o.disposed }

// getterCalled must be called by every read of the observable's state.
// Reads of a disposed observable are not tracked.
func (o *observable) getterCalled() {
	checkRealm(o.realm)

	if !o.disposed {
		tracker.GetterCalled(o.self)
	}
}

// checkMutable must be called by every mutator.
func (o *observable) checkMutable() error {
	checkRealm(o.realm)

	if o.disposed {
		return ErrDisposed
	}
	return nil
}

func (o *observable) fireChange() {
	event := ChangeEvent{Source: o.self}
	o.changeListeners.Each(func(l ChangeListener) { l.HandleChange(event) })
}

func (o *observable) setStale(stale bool) {
	checkRealm(o.realm)

	wasStale := o.stale
	o.stale = stale

	if stale && !wasStale {
		event := StaleEvent{Source: o.self}
		o.staleListeners.Each(func(l StaleListener) { l.HandleStale(event) })
	}
}

func (o *observable) dispose() bool {
	checkRealm(o.realm)

	if o.disposed {
		return false
	}
	o.disposed = true

	event := DisposeEvent{Source: o.self}
	o.disposeListeners.Each(func(l DisposeListener) { l.HandleDispose(event) })

	o.changeListeners.Clear()
	o.staleListeners.Clear()
	o.disposeListeners.Clear()

	return true
}

// equal compares with == when the dynamic types allow it, deeply otherwise.
func equal[T any](a, b T) bool {
	av, bv := any(a), any(b)
	if av == nil || bv == nil {
		return av == nil && bv == nil
	}

	if reflect.TypeOf(av).Comparable() && reflect.TypeOf(bv).Comparable() {
		if eq, ok := compare(av, bv); ok {
			return eq
		}
	}

	return reflect.DeepEqual(a, b)
}

// compare is == that reports !ok instead of panicking on
// interface fields holding incomparable values.
func compare(a, b any) (eq bool, ok bool) {
	defer func() {
		if recover() != nil {
			eq, ok = false, false
		}
	}()

	return a == b, true
}
