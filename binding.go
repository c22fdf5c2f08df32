package databind

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AnatoleLucet/databind/internal/metrics"
)

// ValidationStatusProvider publishes a validation status about a set of
// target and model observables.
type ValidationStatusProvider interface {
	// ValidationStatus is a read-only value living in the validation realm
	// of the provider's context.
	ValidationStatus() ObservableValue[Status]

	Targets() []Observable
	Models() []Observable

	Dispose()
	IsDisposed() bool
}

// Binding keeps a target and a model observable in sync, each direction
// according to its own update strategy.
type Binding interface {
	ValidationStatusProvider

	Context() *DataBindingContext
	Target() Observable
	Model() Observable

	// UpdateModelToTarget copies the whole model into the target, whatever
	// the model-to-target policy, unless it is PolicyNever.
	UpdateModelToTarget()

	// UpdateTargetToModel copies the whole target into the model, whatever
	// the target-to-model policy, unless it is PolicyNever.
	UpdateTargetToModel()

	// ValidateModelToTarget runs the model-to-target validators without
	// writing the target.
	ValidateModelToTarget()

	// ValidateTargetToModel runs the target-to-model validators without
	// writing the model.
	ValidateTargetToModel()
}

const (
	directionTargetToModel = "target_to_model"
	directionModelToTarget = "model_to_target"
)

// binding holds what every Binding shares: its place in a context, its
// validation status, and disposal when either side is disposed.
type binding struct {
	self Binding
	kind string

	target Observable
	model  Observable

	context *DataBindingContext
	logger  Logger

	status     *WritableValue[Status]
	statusView *UnmodifiableValue[Status]

	sideDisposed DisposeListener
	disposed     bool
}

func newBinding(self Binding, kind string, target, model Observable) binding {
	return binding{self: self, kind: kind, target: target, model: model}
}

// init registers the binding with ctx. preInit attaches the source listeners,
// postInit runs the initial synchronization.
func (b *binding) init(ctx *DataBindingContext, preInit, postInit func()) {
	if b.target.IsDisposed() {
		panic(errors.Wrap(ErrDisposed, "target observable"))
	}
	if b.model.IsDisposed() {
		panic(errors.Wrap(ErrDisposed, "model observable"))
	}
	if ctx.IsDisposed() {
		panic(errors.Wrap(ErrDisposed, "data binding context"))
	}

	_, span := ctx.tracer.Start(context.Background(), "databind.Bind",
		trace.WithAttributes(attribute.String("databind.binding_kind", b.kind)),
	)
	defer span.End()

	b.context = ctx
	b.logger = ctx.logger.WithPrefix(b.kind + "-binding")

	RunAndIgnore(func() {
		b.status = NewWritableValue(ctx.realm, OKStatus())
	})
	b.statusView = NewUnmodifiableValue[Status](b.status)

	preInit()
	ctx.realm.Exec(func() { ctx.AddBinding(b.self) })
	postInit()

	b.sideDisposed = OnDispose(func(DisposeEvent) { b.self.Dispose() })
	execAfterDisposalCheck(b.target, func() { b.target.AddDisposeListener(b.sideDisposed) })
	execAfterDisposalCheck(b.model, func() { b.model.AddDisposeListener(b.sideDisposed) })

	metrics.Bindings.Inc()
	b.logger.Debugf("bound")
}

func (b *binding) Context() *DataBindingContext { return b.context }

func (b *binding) Target() Observable { return b.target }

func (b *binding) Model() Observable { return b.model }

func (b *binding) Targets() []Observable { return []Observable{b.target} }

func (b *binding) Models() []Observable { return []Observable{b.model} }

func (b *binding) ValidationStatus() ObservableValue[Status] { return b.statusView }

func (b *binding) IsDisposed() bool { return b.disposed }

// publish sets the validation status, once per propagation pass.
func (b *binding) publish(status Status) {
	s := b.status
	execAfterDisposalCheck(s, func() { _ = s.SetValue(status) })
}

// merge adds one step's status to a propagation pass and reports whether
// the pass may go on.
func (b *binding) merge(multi *Status, status Status) bool {
	if !status.IsOK() {
		metrics.BindingElementErrors.WithLabelValues(b.kind).Inc()
		b.logger.Warnf("%s", status)
	}

	return mergeStatus(multi, status)
}

func (b *binding) propagated(direction string) {
	metrics.BindingPropagations.WithLabelValues(b.kind, direction).Inc()
}

// dispose detaches the binding from its context and both sides. It reports
// false if the binding was already disposed.
func (b *binding) dispose() bool {
	if b.disposed {
		return false
	}
	b.disposed = true

	if ctx := b.context; ctx != nil {
		ctx.realm.Exec(func() { ctx.RemoveBinding(b.self) })
	}

	if b.sideDisposed != nil {
		target, model, l := b.target, b.model, b.sideDisposed
		target.Realm().Exec(func() { target.RemoveDisposeListener(l) })
		model.Realm().Exec(func() { model.RemoveDisposeListener(l) })
		metrics.Bindings.Dec()
	}

	if s := b.status; s != nil {
		s.Realm().Exec(s.Dispose)
	}

	if b.logger != nil {
		b.logger.Debugf("disposed")
	}
	return true
}

// execAfterDisposalCheck runs fn in o's realm, unless o is disposed by then.
func execAfterDisposalCheck(o Observable, fn func()) {
	o.Realm().Exec(func() {
		if !o.IsDisposed() {
			fn()
		}
	})
}
