package databind

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/AnatoleLucet/databind/internal/listeners"
)

type ListChangeEvent[T any] struct {
	Source ObservableList[T]
	Diff   ListDiff[T]
}

type ListChangeListener[T any] interface {
	HandleListChange(event ListChangeEvent[T])
}

type listChangeFunc[T any] struct{ fn func(ListChangeEvent[T]) }

func (f *listChangeFunc[T]) HandleListChange(event ListChangeEvent[T]) { f.fn(event) }

// OnListChange adapts fn into a ListChangeListener.
func OnListChange[T any](fn func(ListChangeEvent[T])) ListChangeListener[T] {
	return &listChangeFunc[T]{fn}
}

// ObservableList is an observable ordered collection.
// Every read records a tracked read; mutators return ErrUnmodifiable on
// read-only implementations.
type ObservableList[T any] interface {
	Observable

	Len() int
	Get(index int) T
	Elements() []T
	IndexOf(element T) int

	Add(element T) error
	Insert(index int, element T) error
	AddAll(elements ...T) error
	Set(index int, element T) (T, error)
	RemoveAt(index int) (T, error)
	Remove(element T) (bool, error)
	Move(oldIndex, newIndex int) (T, error)
	Clear() error

	AddListChangeListener(l ListChangeListener[T])
	RemoveListChangeListener(l ListChangeListener[T])
}

// WritableList is a mutable ObservableList.
type WritableList[T any] struct {
	observable

	listListeners listeners.List[ListChangeListener[T]]
	elements      []T
}

var _ ObservableList[int] = (*WritableList[int])(nil)

func NewWritableList[T any](realm Realm, initial ...T) *WritableList[T] {
	l := &WritableList[T]{elements: slices.Clone(initial)}
	l.init(realm, l)
	return l
}

func (l *WritableList[T]) AddListChangeListener(listener ListChangeListener[T]) {
	l.listListeners.Add(listener)
}

func (l *WritableList[T]) RemoveListChangeListener(listener ListChangeListener[T]) {
	l.listListeners.Remove(listener)
}

func (l *WritableList[T]) Len() int {
	l.getterCalled()
	return len(l.elements)
}

// Get panics if index is out of range, like indexing a slice.
func (l *WritableList[T]) Get(index int) T {
	l.getterCalled()
	return l.elements[index]
}

// Elements returns a copy of the elements.
func (l *WritableList[T]) Elements() []T {
	l.getterCalled()
	return slices.Clone(l.elements)
}

func (l *WritableList[T]) IndexOf(element T) int {
	l.getterCalled()
	return l.indexOf(element)
}

func (l *WritableList[T]) indexOf(element T) int {
	for i, e := range l.elements {
		if equal(e, element) {
			return i
		}
	}

	return -1
}

func (l *WritableList[T]) Add(element T) error {
	return l.AddAll(element)
}

func (l *WritableList[T]) Insert(index int, element T) error {
	if err := l.checkMutable(); err != nil {
		return err
	}
	if index < 0 || index > len(l.elements) {
		return errors.Wrapf(ErrIndexOutOfRange, "insert at %d in list of %d", index, len(l.elements))
	}

	l.elements = slices.Insert(l.elements, index, element)
	l.fireListChange(ListDiffEntry[T]{Position: index, Addition: true, Element: element})
	return nil
}

func (l *WritableList[T]) AddAll(elements ...T) error {
	if err := l.checkMutable(); err != nil {
		return err
	}
	if len(elements) == 0 {
		return nil
	}

	entries := make([]ListDiffEntry[T], len(elements))
	for i, e := range elements {
		entries[i] = ListDiffEntry[T]{Position: len(l.elements) + i, Addition: true, Element: e}
	}

	l.elements = append(l.elements, elements...)
	l.fireListChange(entries...)
	return nil
}

func (l *WritableList[T]) Set(index int, element T) (T, error) {
	var zero T
	if err := l.checkMutable(); err != nil {
		return zero, err
	}
	if index < 0 || index >= len(l.elements) {
		return zero, errors.Wrapf(ErrIndexOutOfRange, "set at %d in list of %d", index, len(l.elements))
	}

	old := l.elements[index]
	l.elements[index] = element
	l.fireListChange(
		ListDiffEntry[T]{Position: index, Element: old},
		ListDiffEntry[T]{Position: index, Addition: true, Element: element},
	)
	return old, nil
}

func (l *WritableList[T]) RemoveAt(index int) (T, error) {
	var zero T
	if err := l.checkMutable(); err != nil {
		return zero, err
	}
	if index < 0 || index >= len(l.elements) {
		return zero, errors.Wrapf(ErrIndexOutOfRange, "remove at %d in list of %d", index, len(l.elements))
	}

	old := l.elements[index]
	l.elements = slices.Delete(l.elements, index, index+1)
	l.fireListChange(ListDiffEntry[T]{Position: index, Element: old})
	return old, nil
}

// Remove removes the first element equal to element.
func (l *WritableList[T]) Remove(element T) (bool, error) {
	if err := l.checkMutable(); err != nil {
		return false, err
	}

	index := l.indexOf(element)
	if index == -1 {
		return false, nil
	}

	_, err := l.RemoveAt(index)
	return err == nil, err
}

func (l *WritableList[T]) Move(oldIndex, newIndex int) (T, error) {
	var zero T
	if err := l.checkMutable(); err != nil {
		return zero, err
	}
	n := len(l.elements)
	if oldIndex < 0 || oldIndex >= n || newIndex < 0 || newIndex >= n {
		return zero, errors.Wrapf(ErrIndexOutOfRange, "move %d to %d in list of %d", oldIndex, newIndex, n)
	}

	element := l.elements[oldIndex]
	if oldIndex == newIndex {
		return element, nil
	}

	l.elements = slices.Delete(l.elements, oldIndex, oldIndex+1)
	l.elements = slices.Insert(l.elements, newIndex, element)
	l.fireListChange(
		ListDiffEntry[T]{Position: oldIndex, Element: element},
		ListDiffEntry[T]{Position: newIndex, Addition: true, Element: element},
	)
	return element, nil
}

func (l *WritableList[T]) Clear() error {
	if err := l.checkMutable(); err != nil {
		return err
	}
	if len(l.elements) == 0 {
		return nil
	}

	// removing from the end keeps every position valid
	entries := make([]ListDiffEntry[T], 0, len(l.elements))
	for i := len(l.elements) - 1; i >= 0; i-- {
		entries = append(entries, ListDiffEntry[T]{Position: i, Element: l.elements[i]})
	}

	l.elements = nil
	l.fireListChange(entries...)
	return nil
}

// SetStale marks the list stale or fresh. Stale listeners hear about the
// fresh-to-stale transition only.
func (l *WritableList[T]) SetStale(stale bool) {
	l.setStale(stale)
}

func (l *WritableList[T]) Dispose() {
	if l.dispose() {
		l.listListeners.Clear()
	}
}

func (l *WritableList[T]) fireListChange(entries ...ListDiffEntry[T]) {
	// a change makes the list fresh again
	l.stale = false

	l.fireChange()

	event := ListChangeEvent[T]{Source: l, Diff: ListDiff[T]{Entries: entries}}
	l.listListeners.Each(func(listener ListChangeListener[T]) { listener.HandleListChange(event) })
}

// UnmodifiableList is a read-only view of an ObservableList.
// Listeners registered on the view are registered on the underlying list.
type UnmodifiableList[T any] struct {
	ObservableList[T]
}

// NewUnmodifiableList wraps list.
func NewUnmodifiableList[T any](list ObservableList[T]) *UnmodifiableList[T] {
	return &UnmodifiableList[T]{list}
}

func (u *UnmodifiableList[T]) Add(element T) error               { return ErrUnmodifiable }
func (u *UnmodifiableList[T]) Insert(index int, element T) error { return ErrUnmodifiable }
func (u *UnmodifiableList[T]) AddAll(elements ...T) error        { return ErrUnmodifiable }
func (u *UnmodifiableList[T]) Clear() error                      { return ErrUnmodifiable }

func (u *UnmodifiableList[T]) Set(index int, element T) (T, error) {
	var zero T
	return zero, ErrUnmodifiable
}

func (u *UnmodifiableList[T]) RemoveAt(index int) (T, error) {
	var zero T
	return zero, ErrUnmodifiable
}

func (u *UnmodifiableList[T]) Remove(element T) (bool, error) {
	return false, ErrUnmodifiable
}

func (u *UnmodifiableList[T]) Move(oldIndex, newIndex int) (T, error) {
	var zero T
	return zero, ErrUnmodifiable
}

// Dispose is a no-op: the view doesn't own the underlying list.
func (u *UnmodifiableList[T]) Dispose() {}
