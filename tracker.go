package databind

import (
	"github.com/AnatoleLucet/databind/internal/tracker"
)

// RunAndMonitor runs fn and returns every observable read during it, each
// once, in order of first read. If onChange or onStale is non-nil it is
// attached to each observable on its first read.
//
// Nested calls are isolated: reads of an inner run are reported to the inner
// run only, and the outer run resumes recording once the inner one returns.
func RunAndMonitor(fn func(), onChange ChangeListener, onStale StaleListener) []Observable {
	observed, recovered := tracker.Get().Monitor(fn, attach(onChange, onStale))
	if recovered != nil {
		panic(recovered)
	}

	return asObservables(observed)
}

// RunAndCollect runs fn and returns every observable created during it.
func RunAndCollect(fn func()) []Observable {
	return asObservables(tracker.Get().Collect(fn))
}

// SetIgnore suspends (true) or resumes (false) read recording on the calling
// goroutine. Calls nest and must balance; an extra SetIgnore(false) panics
// with ErrUnbalancedIgnore.
func SetIgnore(ignore bool) {
	tracker.Get().SetIgnore(ignore)
}

// RunAndIgnore runs fn without recording any read as a dependency.
func RunAndIgnore(fn func()) {
	SetIgnore(true)
	defer SetIgnore(false)

	fn()
}

// Untrack returns fn's result without recording its reads as dependencies.
func Untrack[T any](fn func() T) T {
	var result T
	RunAndIgnore(func() { result = fn() })
	return result
}

// GetterCalled records a read of o in the current monitored run. Observable
// implementations outside this package call it from every getter.
func GetterCalled(o Observable) {
	checkRealm(o.Realm())

	if !o.IsDisposed() {
		tracker.GetterCalled(o)
	}
}

// ObservableCreated records o for the current RunAndCollect, if any.
func ObservableCreated(o Observable) {
	tracker.Created(o)
}

func attach(onChange ChangeListener, onStale StaleListener) func(any) {
	if onChange == nil && onStale == nil {
		return nil
	}

	return func(o any) {
		obs := o.(Observable)
		if onChange != nil {
			obs.AddChangeListener(onChange)
		}
		if onStale != nil {
			obs.AddStaleListener(onStale)
		}
	}
}

func asObservables(values []any) []Observable {
	result := make([]Observable, len(values))
	for i, v := range values {
		result[i] = v.(Observable)
	}

	return result
}
