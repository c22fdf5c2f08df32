package databind

import (
	"slices"
)

// SideEffectFactory creates side effects on one realm and owns them:
// disposing the factory disposes every side effect it created that is still
// alive. Side effects created after the factory was disposed are disposed
// right away.
type SideEffectFactory struct {
	realm Realm

	effects  []SideEffect
	catchers []func(any)
	disposed bool
}

func NewSideEffectFactory(realm Realm) *SideEffectFactory {
	if realm == nil {
		panic(ErrNilRealm)
	}

	return &SideEffectFactory{realm: realm}
}

func (f *SideEffectFactory) Realm() Realm {
	return f.realm
}

// Create is NewSideEffect on the factory's realm.
func (f *SideEffectFactory) Create(fn func()) SideEffect {
	return f.adopt(NewSideEffect(f.realm, fn))
}

// CreatePaused is NewPausedSideEffect on the factory's realm.
func (f *SideEffectFactory) CreatePaused(fn func()) SideEffect {
	return f.adopt(NewPausedSideEffect(f.realm, fn))
}

// CreateResumed is NewResumedSideEffect on the factory's realm.
func (f *SideEffectFactory) CreateResumed(fn func()) SideEffect {
	return f.adopt(NewResumedSideEffect(f.realm, fn))
}

// CreateFrom is NewSideEffectFrom on the factory's realm.
func CreateFrom[T any](f *SideEffectFactory, supplier func() T, consumer func(T)) SideEffect {
	return f.adopt(NewSideEffectFrom(f.realm, supplier, consumer))
}

// OnError registers fn as an error handler of every side effect created
// from now on.
func (f *SideEffectFactory) OnError(fn func(any)) {
	f.catchers = append(f.catchers, fn)
}

// Len returns the number of live side effects owned by the factory.
func (f *SideEffectFactory) Len() int {
	return len(f.effects)
}

func (f *SideEffectFactory) IsDisposed() bool {
	return f.disposed
}

// Dispose disposes every live side effect, most recent first.
func (f *SideEffectFactory) Dispose() {
	checkRealm(f.realm)
	if f.disposed {
		return
	}
	f.disposed = true

	effects := f.effects
	f.effects = nil
	for _, effect := range slices.Backward(effects) {
		effect.Dispose()
	}
}

func (f *SideEffectFactory) adopt(s SideEffect) SideEffect {
	if f.disposed {
		s.Dispose()
		return s
	}

	for _, catcher := range f.catchers {
		s.OnError(catcher)
	}

	f.effects = append(f.effects, s)
	s.OnDispose(f.release)

	return s
}

func (f *SideEffectFactory) release(s SideEffect) {
	f.effects = slices.DeleteFunc(f.effects, func(e SideEffect) bool { return e == s })
}
