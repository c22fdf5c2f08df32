package databind

import (
	"context"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/AnatoleLucet/databind/internal/logger"
	"github.com/AnatoleLucet/databind/internal/metrics"
	"github.com/AnatoleLucet/databind/internal/runtime"
	"github.com/AnatoleLucet/databind/internal/scheduler"
)

// Realm is a single-threaded execution domain.
// Every observable belongs to exactly one realm; its state is only read,
// mutated and notified while that realm is current.
type Realm interface {
	// IsCurrent reports whether the caller is running inside the realm.
	IsCurrent() bool

	// AsyncExec schedules fn to run on a later turn of the realm.
	AsyncExec(fn func())

	// Exec runs fn now if the realm is current, otherwise like AsyncExec.
	Exec(fn func())
}

type realmOptions struct {
	name   string
	logger Logger
}

type RealmOption func(*realmOptions)

// WithRealmName names the realm in logs and metrics.
func WithRealmName(name string) RealmOption {
	return func(o *realmOptions) { o.name = name }
}

// WithRealmLogger sets the logger used to report panicking tasks.
func WithRealmLogger(l Logger) RealmOption {
	return func(o *realmOptions) { o.logger = l }
}

func newRealmOptions(opts []RealmOption) realmOptions {
	o := realmOptions{name: "realm"}
	for _, opt := range opts {
		opt(&o)
	}

	if o.logger == nil {
		o.logger = logger.Default()
	}
	o.logger = o.logger.WithPrefix(o.name)

	return o
}

// runTask runs a realm task. A panic is logged and swallowed so that one
// failing task doesn't take the realm's loop down.
func runTask(o *realmOptions, task func()) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RealmTaskPanics.WithLabelValues(o.name).Inc()
			o.logger.Errorf("task panicked: %v", r)
		}
	}()

	metrics.RealmTasks.WithLabelValues(o.name).Inc()
	task()
}

// LoopRealm is a realm backed by an event loop running on one goroutine.
type LoopRealm struct {
	opts  realmOptions
	queue *scheduler.TaskQueue

	// goroutine running the loop, 0 when stopped
	gid atomic.Int64
}

var _ Realm = (*LoopRealm)(nil)

func NewLoopRealm(opts ...RealmOption) *LoopRealm {
	return &LoopRealm{
		opts:  newRealmOptions(opts),
		queue: scheduler.NewTaskQueue(),
	}
}

// Run turns the loop on the calling goroutine until ctx is done.
// Tasks already queued when ctx is done still run before Run returns.
func (r *LoopRealm) Run(ctx context.Context) error {
	if !r.gid.CompareAndSwap(0, runtime.GoroutineID()) {
		return errors.WithStack(ErrRealmRunning)
	}
	defer r.gid.Store(0)

	r.opts.logger.Debugf("loop started")
	defer r.opts.logger.Debugf("loop stopped")

	for {
		r.queue.Drain(r.run)

		select {
		case <-ctx.Done():
			r.queue.Drain(r.run)
			return ctx.Err()
		case <-r.queue.Wake():
		}
	}
}

func (r *LoopRealm) run(task func()) {
	runTask(&r.opts, task)
}

func (r *LoopRealm) IsCurrent() bool {
	return r.gid.Load() == runtime.GoroutineID()
}

func (r *LoopRealm) AsyncExec(fn func()) {
	r.queue.Enqueue(fn)
}

func (r *LoopRealm) Exec(fn func()) {
	if r.IsCurrent() {
		fn()
		return
	}

	r.AsyncExec(fn)
}

// SyncExec runs fn on the realm and waits for it to complete.
// It must not be called while the loop is stopped, or it blocks until it runs.
func (r *LoopRealm) SyncExec(fn func()) {
	if r.IsCurrent() {
		fn()
		return
	}

	done := make(chan struct{})
	r.AsyncExec(func() {
		defer close(done)
		fn()
	})
	<-done
}

// QueueRealm is a realm bound to the goroutine that created it, whose
// deferred tasks only run when the owner calls Flush or RunTurn.
// It suits tests and hosts that pump their own event loop.
type QueueRealm struct {
	opts  realmOptions
	queue *scheduler.TaskQueue
	gid   int64
}

var _ Realm = (*QueueRealm)(nil)

func NewQueueRealm(opts ...RealmOption) *QueueRealm {
	return &QueueRealm{
		opts:  newRealmOptions(opts),
		queue: scheduler.NewTaskQueue(),
		gid:   runtime.GoroutineID(),
	}
}

func (r *QueueRealm) IsCurrent() bool {
	return r.gid == runtime.GoroutineID()
}

func (r *QueueRealm) AsyncExec(fn func()) {
	r.queue.Enqueue(fn)
}

func (r *QueueRealm) Exec(fn func()) {
	if r.IsCurrent() {
		fn()
		return
	}

	r.AsyncExec(fn)
}

// Pending returns the number of queued tasks.
func (r *QueueRealm) Pending() int {
	return r.queue.Len()
}

// RunTurn runs the tasks queued so far and returns how many ran.
func (r *QueueRealm) RunTurn() int {
	checkRealm(r)
	return r.queue.RunTurn(r.run)
}

// Flush runs turns until no task is left and returns how many ran.
func (r *QueueRealm) Flush() int {
	checkRealm(r)
	return r.queue.Drain(r.run)
}

func (r *QueueRealm) run(task func()) {
	runTask(&r.opts, task)
}
