package databind

import (
	"slices"

	"github.com/AnatoleLucet/databind/internal/metrics"
	"github.com/AnatoleLucet/databind/internal/tracker"
)

// SideEffect is a procedure that runs again, on a later turn of its realm,
// whenever an observable it read during its last run changes.
//
// Several changes before the rerun happens cause a single rerun. A paused
// side effect keeps listening and remembers it is dirty, but doesn't run
// until resumed. A disposed side effect never runs again; calling any other
// method on it is a no-op.
//
// Every method must be called from the side effect's realm.
type SideEffect interface {
	// Pause stops reruns until a matching Resume. Pauses nest.
	Pause()

	// Resume undoes one Pause. Once no pause is left a dirty side effect is
	// scheduled to rerun asynchronously. Resuming a side effect that isn't
	// paused panics with ErrNotPaused.
	Resume()

	// ResumeAndRunIfDirty is Resume, but runs a dirty side effect right away.
	ResumeAndRunIfDirty()

	// RunIfDirty runs the side effect now if it is dirty and not paused.
	RunIfDirty()

	// Invalidate marks the side effect dirty as if a dependency changed.
	Invalidate()

	// Dispose stops listening to every dependency. It is idempotent.
	Dispose()

	IsDisposed() bool

	// Dependencies returns the observables read by the last completed run.
	Dependencies() []Observable

	// OnDispose registers fn to be called once the side effect is disposed.
	OnDispose(fn func(SideEffect))

	// OnError registers fn to receive the value of a panic raised by a
	// deferred run. A run that panics is not retried until a dependency
	// read before the panic changes. Without handlers the panic propagates
	// to whoever triggered the run.
	OnError(fn func(any))
}

type sideEffect struct {
	realm Realm
	fn    func()

	dirty      bool
	pauseCount int
	disposed   bool

	deps []Observable

	disposeHandlers []func(SideEffect)
	catchers        []func(any)
}

var _ SideEffect = (*sideEffect)(nil)

// NewSideEffect runs fn right away under tracking, then reruns it whenever
// one of the observables it read changes.
//
// If the first run reads no observable, fn can never be triggered again and
// the returned side effect is inert: it never runs again but still reports
// its own disposal.
func NewSideEffect(realm Realm, fn func()) SideEffect {
	s := newSideEffect(realm, fn, 0)

	observed, recovered := tracker.Get().MonitorTracked(fn, nil)
	metrics.SideEffectRuns.Inc()
	if recovered != nil {
		panic(recovered)
	}

	if len(observed) == 0 {
		return &inertEffect{}
	}

	s.dirty = false
	s.deps = asObservables(observed)
	metrics.SideEffectDependencies.Observe(float64(len(s.deps)))
	s.startListening()

	return s
}

// NewPausedSideEffect returns a side effect that hasn't run yet.
// It runs for the first time once resumed.
func NewPausedSideEffect(realm Realm, fn func()) SideEffect {
	return newSideEffect(realm, fn, 1)
}

// NewResumedSideEffect returns a side effect whose first run is scheduled
// on the realm instead of happening right away.
func NewResumedSideEffect(realm Realm, fn func()) SideEffect {
	s := NewPausedSideEffect(realm, fn)
	s.Resume()
	return s
}

// NewSideEffectFrom tracks supplier and hands its result to consumer.
// Reads made by consumer are not dependencies, so consumer can freely
// read what it writes.
func NewSideEffectFrom[T any](realm Realm, supplier func() T, consumer func(T)) SideEffect {
	return NewSideEffect(realm, func() {
		value := supplier()
		RunAndIgnore(func() { consumer(value) })
	})
}

// ConsumeOnce waits, asynchronously, until supplier reports a value, passes it
// to consumer, then disposes itself.
func ConsumeOnce[T any](realm Realm, supplier func() (T, bool), consumer func(T)) SideEffect {
	var s SideEffect

	s = NewPausedSideEffect(realm, func() {
		value, ok := supplier()
		if !ok {
			return
		}

		RunAndIgnore(func() {
			consumer(value)
			s.Dispose()
		})
	})
	s.Resume()

	return s
}

func newSideEffect(realm Realm, fn func(), pauseCount int) *sideEffect {
	if realm == nil {
		panic(ErrNilRealm)
	}
	checkRealm(realm)

	return &sideEffect{
		realm:      realm,
		fn:         fn,
		dirty:      true,
		pauseCount: pauseCount,
	}
}

// HandleChange is called by the dependencies.
func (s *sideEffect) HandleChange(ChangeEvent) {
	if s.realm.IsCurrent() {
		s.makeDirty()
		return
	}

	s.realm.AsyncExec(s.makeDirty)
}

func (s *sideEffect) makeDirty() {
	if s.disposed || s.dirty {
		return
	}

	s.dirty = true
	if s.pauseCount == 0 {
		s.schedule()
	}
}

func (s *sideEffect) schedule() {
	metrics.SideEffectSchedules.Inc()
	s.realm.AsyncExec(s.update)
}

// update reruns a dirty, unpaused side effect. A queued update that finds the
// side effect clean, paused or disposed does nothing, which is what makes
// coalescing and cancellation work.
func (s *sideEffect) update() {
	if !s.dirty || s.pauseCount > 0 || s.disposed {
		return
	}

	s.dirty = false
	s.stopListening()

	observed, recovered := tracker.Get().MonitorTracked(s.fn, nil)
	metrics.SideEffectRuns.Inc()

	// the procedure disposed the side effect
	if s.disposed {
		return
	}

	s.deps = asObservables(observed)
	metrics.SideEffectDependencies.Observe(float64(len(s.deps)))
	s.startListening()

	if recovered != nil {
		s.fail(recovered)
	}
}

func (s *sideEffect) fail(recovered any) {
	metrics.SideEffectPanics.Inc()

	if len(s.catchers) == 0 {
		panic(recovered)
	}

	for _, catcher := range s.catchers {
		catcher(recovered)
	}
}

func (s *sideEffect) startListening() {
	for _, dep := range s.deps {
		dep.AddChangeListener(s)
	}
}

func (s *sideEffect) stopListening() {
	for _, dep := range s.deps {
		dep.RemoveChangeListener(s)
	}
	s.deps = nil
}

func (s *sideEffect) Pause() {
	checkRealm(s.realm)
	if s.disposed {
		return
	}

	s.pauseCount++
}

func (s *sideEffect) Resume() {
	if !s.resume() {
		return
	}

	if s.dirty {
		s.schedule()
	}
}

func (s *sideEffect) ResumeAndRunIfDirty() {
	if s.resume() {
		s.update()
	}
}

// resume drops one pause and reports whether none is left.
func (s *sideEffect) resume() bool {
	checkRealm(s.realm)
	if s.disposed {
		return false
	}

	if s.pauseCount == 0 {
		panic(ErrNotPaused)
	}

	s.pauseCount--
	return s.pauseCount == 0
}

func (s *sideEffect) RunIfDirty() {
	checkRealm(s.realm)
	s.update()
}

func (s *sideEffect) Invalidate() {
	checkRealm(s.realm)
	s.makeDirty()
}

func (s *sideEffect) Dispose() {
	checkRealm(s.realm)
	if s.disposed {
		return
	}

	s.stopListening()
	s.fn = nil
	s.disposed = true

	handlers := s.disposeHandlers
	s.disposeHandlers = nil
	for _, handler := range handlers {
		handler(s)
	}
}

func (s *sideEffect) IsDisposed() bool {
	return s.disposed
}

func (s *sideEffect) Dependencies() []Observable {
	return slices.Clone(s.deps)
}

func (s *sideEffect) OnDispose(fn func(SideEffect)) {
	if s.disposed {
		return
	}

	s.disposeHandlers = append(s.disposeHandlers, fn)
}

func (s *sideEffect) OnError(fn func(any)) {
	s.catchers = append(s.catchers, fn)
}

// inertEffect stands for side effects that have nothing to listen to.
type inertEffect struct {
	disposed        bool
	disposeHandlers []func(SideEffect)
}

var _ SideEffect = (*inertEffect)(nil)

func (*inertEffect) Pause()                     {}
func (*inertEffect) Resume()                    {}
func (*inertEffect) ResumeAndRunIfDirty()       {}
func (*inertEffect) RunIfDirty()                {}
func (*inertEffect) Invalidate()                {}
func (*inertEffect) Dependencies() []Observable { return nil }
func (*inertEffect) OnError(func(any))          {}

func (s *inertEffect) IsDisposed() bool { return s.disposed }

func (s *inertEffect) Dispose() {
	if s.disposed {
		return
	}
	s.disposed = true

	handlers := s.disposeHandlers
	s.disposeHandlers = nil
	for _, handler := range handlers {
		handler(s)
	}
}

func (s *inertEffect) OnDispose(fn func(SideEffect)) {
	if s.disposed {
		return
	}

	s.disposeHandlers = append(s.disposeHandlers, fn)
}
