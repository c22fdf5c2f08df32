package listeners

import (
	"slices"
)

// List is a set of listeners compared by identity.
// Notification order is unspecified by contract; in practice it's registration order.
type List[L comparable] struct {
	listeners []L
}

// Add registers l. Adding an already registered listener is a no-op.
func (s *List[L]) Add(l L) {
	if !slices.Contains(s.listeners, l) {
		s.listeners = append(s.listeners, l)
	}
}

// Remove unregisters l and reports whether it was registered.
func (s *List[L]) Remove(l L) bool {
	if index := slices.Index(s.listeners, l); index != -1 {
		s.listeners = slices.Delete(s.listeners, index, index+1)
		return true
	}

	return false
}

func (s *List[L]) Len() int {
	return len(s.listeners)
}

func (s *List[L]) Clear() {
	s.listeners = nil
}

// Each calls fn for every listener registered when Each starts.
// Listeners may add or remove listeners while being notified.
func (s *List[L]) Each(fn func(L)) {
	if len(s.listeners) == 0 {
		return
	}

	// clonning to avoid mutation during iteration
	listeners := slices.Clone(s.listeners)
	for _, l := range listeners {
		fn(l)
	}
}
