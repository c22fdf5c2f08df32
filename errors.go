package databind

import (
	"github.com/pkg/errors"

	"github.com/AnatoleLucet/databind/internal/tracker"
)

// ErrWrongRealm is raised when an observable or side effect is touched
// outside of the realm it belongs to.
var ErrWrongRealm = errors.New("databind: called outside of the owning realm")

// ErrDisposed is raised when binding or mutating something that was disposed.
var ErrDisposed = errors.New("databind: already disposed")

// ErrUnmodifiable is returned by mutators of read-only observables.
var ErrUnmodifiable = errors.New("databind: observable is unmodifiable")

// ErrIndexOutOfRange is returned by list operations given a bad index.
var ErrIndexOutOfRange = errors.New("databind: index out of range")

// ErrNoConverter is returned when no converter is configured and none could be inferred.
var ErrNoConverter = errors.New("databind: no converter between types")

// ErrOutOfRange is returned by default numeric converters given a value the
// destination type can't hold.
var ErrOutOfRange = errors.New("databind: value out of range")

// ErrUnbalancedIgnore is raised by SetIgnore(false) without a matching SetIgnore(true).
var ErrUnbalancedIgnore = tracker.ErrUnbalancedIgnore

// ErrNotPaused is raised by Resume on a side effect that isn't paused.
var ErrNotPaused = errors.New("databind: side effect is not paused")

// ErrNilRealm is raised when a nil realm is given where one is required.
var ErrNilRealm = errors.New("databind: realm cannot be nil")

// ErrRealmRunning is returned by LoopRealm.Run when the loop is already running.
var ErrRealmRunning = errors.New("databind: realm loop already running")

func checkRealm(r Realm) {
	if !r.IsCurrent() {
		panic(errors.WithStack(ErrWrongRealm))
	}
}
