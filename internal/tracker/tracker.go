package tracker

import (
	"github.com/pkg/errors"

	"github.com/AnatoleLucet/databind/internal/runtime"
)

// ErrUnbalancedIgnore is raised when SetIgnore(false) has no matching SetIgnore(true).
var ErrUnbalancedIgnore = errors.New("databind: SetIgnore(false) called without a matching SetIgnore(true)")

// frame is one monitored run. Reads land in the innermost frame only.
type frame struct {
	seen  map[any]struct{}
	order []any

	// called once per observable, on its first read in this frame
	onFirstRead func(any)
}

func (f *frame) add(o any) bool {
	if _, ok := f.seen[o]; ok {
		return false
	}

	f.seen[o] = struct{}{}
	f.order = append(f.order, o)
	return true
}

// Tracker is the tracking state of a single goroutine.
type Tracker struct {
	// monitored runs, innermost last
	frames []*frame

	// runs collecting created observables, innermost last
	collectors []*frame

	// each nested SetIgnore(true) increases the depth by 1
	// while depth > 0 no read is recorded anywhere
	ignoreDepth int
}

var trackers = runtime.NewLocal(func() *Tracker { return &Tracker{} })

// Get returns the tracker of the calling goroutine.
func Get() *Tracker {
	return trackers.Get()
}

// GetterCalled records a read of o in the calling goroutine's innermost
// monitored run, if any.
func GetterCalled(o any) {
	if t, ok := trackers.Peek(); ok {
		t.GetterCalled(o)
	}
}

// Created records the creation of o in the calling goroutine's innermost
// collecting run, if any.
func Created(o any) {
	if t, ok := trackers.Peek(); ok {
		t.Created(o)
	}
}

// IsIgnoring reports whether reads are suppressed on the calling goroutine.
func IsIgnoring() bool {
	if t, ok := trackers.Peek(); ok {
		return t.IsIgnoring()
	}

	return false
}

// Monitor runs fn in a fresh frame and returns the observables read during it,
// first read first. If fn panics, the reads made before the panic are returned
// along with the recovered value; the frame stack is restored either way.
//
// An enclosing SetIgnore(true) still applies to fn.
func (t *Tracker) Monitor(fn func(), onFirstRead func(any)) (observed []any, recovered any) {
	return t.monitor(fn, onFirstRead, t.ignoreDepth)
}

// MonitorTracked is Monitor with the ignore depth cleared for the duration of
// fn, for computations that own their dependencies whoever evaluates them.
func (t *Tracker) MonitorTracked(fn func(), onFirstRead func(any)) (observed []any, recovered any) {
	return t.monitor(fn, onFirstRead, 0)
}

func (t *Tracker) monitor(fn func(), onFirstRead func(any), ignoreDepth int) (observed []any, recovered any) {
	f := &frame{seen: make(map[any]struct{}), onFirstRead: onFirstRead}

	saved := t.ignoreDepth
	t.ignoreDepth = ignoreDepth
	t.frames = append(t.frames, f)
	defer func() {
		t.frames = t.frames[:len(t.frames)-1]
		t.ignoreDepth = saved
		t.release()

		observed = f.order
		recovered = recover()
	}()

	fn()
	return
}

// Collect runs fn and returns the observables created during it.
func (t *Tracker) Collect(fn func()) []any {
	f := &frame{seen: make(map[any]struct{})}

	t.collectors = append(t.collectors, f)
	defer func() {
		t.collectors = t.collectors[:len(t.collectors)-1]
		t.release()
	}()

	fn()
	return f.order
}

// GetterCalled records a read of o in the innermost frame.
func (t *Tracker) GetterCalled(o any) {
	if t.ignoreDepth > 0 || len(t.frames) == 0 {
		return
	}

	f := t.frames[len(t.frames)-1]
	if f.add(o) && f.onFirstRead != nil {
		f.onFirstRead(o)
	}
}

// Created records the creation of o in the innermost collector.
func (t *Tracker) Created(o any) {
	if t.ignoreDepth > 0 || len(t.collectors) == 0 {
		return
	}

	t.collectors[len(t.collectors)-1].add(o)
}

// SetIgnore increments (true) or decrements (false) the ignore depth.
// Decrementing below zero panics.
func (t *Tracker) SetIgnore(ignore bool) {
	if ignore {
		t.ignoreDepth++
		return
	}

	if t.ignoreDepth == 0 {
		t.release()
		panic(ErrUnbalancedIgnore)
	}
	t.ignoreDepth--
	t.release()
}

// IsIgnoring reports whether reads are currently suppressed.
func (t *Tracker) IsIgnoring() bool {
	return t.ignoreDepth > 0
}

// IsMonitoring reports whether a monitored run is in progress.
func (t *Tracker) IsMonitoring() bool {
	return len(t.frames) > 0
}

// release drops the goroutine's state once nothing is in flight,
// so finished goroutines don't leak trackers.
func (t *Tracker) release() {
	if len(t.frames) == 0 && len(t.collectors) == 0 && t.ignoreDepth == 0 {
		trackers.Release()
	}
}
