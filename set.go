package databind

import (
	"slices"

	"github.com/AnatoleLucet/databind/internal/listeners"
)

type SetChangeEvent[T comparable] struct {
	Source ObservableSet[T]
	Diff   SetDiff[T]
}

type SetChangeListener[T comparable] interface {
	HandleSetChange(event SetChangeEvent[T])
}

type setChangeFunc[T comparable] struct{ fn func(SetChangeEvent[T]) }

func (f *setChangeFunc[T]) HandleSetChange(event SetChangeEvent[T]) { f.fn(event) }

// OnSetChange adapts fn into a SetChangeListener.
func OnSetChange[T comparable](fn func(SetChangeEvent[T])) SetChangeListener[T] {
	return &setChangeFunc[T]{fn}
}

// ObservableSet is an observable collection without duplicates.
type ObservableSet[T comparable] interface {
	Observable

	Len() int
	Contains(element T) bool
	// Elements returns the elements in insertion order.
	Elements() []T

	Add(element T) error
	Remove(element T) error
	AddAll(elements ...T) error
	RemoveAll(elements ...T) error
	Clear() error

	AddSetChangeListener(l SetChangeListener[T])
	RemoveSetChangeListener(l SetChangeListener[T])
}

// WritableSet is a mutable ObservableSet. Each mutating call fires at most
// one event, carrying every removal and addition it made.
type WritableSet[T comparable] struct {
	observable

	setListeners listeners.List[SetChangeListener[T]]

	index    map[T]struct{}
	elements []T
}

var _ ObservableSet[int] = (*WritableSet[int])(nil)

func NewWritableSet[T comparable](realm Realm, initial ...T) *WritableSet[T] {
	s := &WritableSet[T]{index: make(map[T]struct{})}
	for _, e := range initial {
		s.insert(e)
	}

	s.init(realm, s)
	return s
}

func (s *WritableSet[T]) AddSetChangeListener(l SetChangeListener[T]) {
	s.setListeners.Add(l)
}

func (s *WritableSet[T]) RemoveSetChangeListener(l SetChangeListener[T]) {
	s.setListeners.Remove(l)
}

func (s *WritableSet[T]) Len() int {
	s.getterCalled()
	return len(s.elements)
}

func (s *WritableSet[T]) Contains(element T) bool {
	s.getterCalled()
	_, ok := s.index[element]
	return ok
}

func (s *WritableSet[T]) Elements() []T {
	s.getterCalled()
	return slices.Clone(s.elements)
}

func (s *WritableSet[T]) Add(element T) error {
	return s.AddAll(element)
}

func (s *WritableSet[T]) Remove(element T) error {
	return s.RemoveAll(element)
}

func (s *WritableSet[T]) AddAll(elements ...T) error {
	return s.apply(nil, elements)
}

func (s *WritableSet[T]) RemoveAll(elements ...T) error {
	return s.apply(elements, nil)
}

func (s *WritableSet[T]) Clear() error {
	if err := s.checkMutable(); err != nil {
		return err
	}

	return s.apply(slices.Clone(s.elements), nil)
}

// ApplyDiff removes then adds in a single change event.
func (s *WritableSet[T]) ApplyDiff(diff SetDiff[T]) error {
	return s.apply(diff.Removals, diff.Additions)
}

func (s *WritableSet[T]) apply(removals, additions []T) error {
	if err := s.checkMutable(); err != nil {
		return err
	}

	var diff SetDiff[T]
	for _, e := range removals {
		if s.delete(e) {
			diff.Removals = append(diff.Removals, e)
		}
	}
	for _, e := range additions {
		if s.insert(e) {
			diff.Additions = append(diff.Additions, e)
		}
	}

	if diff.IsEmpty() {
		return nil
	}

	s.stale = false
	s.fireChange()

	event := SetChangeEvent[T]{Source: s, Diff: diff}
	s.setListeners.Each(func(l SetChangeListener[T]) { l.HandleSetChange(event) })
	return nil
}

func (s *WritableSet[T]) insert(e T) bool {
	if _, ok := s.index[e]; ok {
		return false
	}

	s.index[e] = struct{}{}
	s.elements = append(s.elements, e)
	return true
}

func (s *WritableSet[T]) delete(e T) bool {
	if _, ok := s.index[e]; !ok {
		return false
	}

	delete(s.index, e)
	s.elements = slices.DeleteFunc(s.elements, func(x T) bool { return x == e })
	return true
}

// SetStale marks the set stale or fresh.
func (s *WritableSet[T]) SetStale(stale bool) {
	s.setStale(stale)
}

func (s *WritableSet[T]) Dispose() {
	if s.dispose() {
		s.setListeners.Clear()
	}
}
