package databind

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AnatoleLucet/databind/internal/logger"
)

const tracerName = "github.com/AnatoleLucet/databind"

type contextOptions struct {
	logger Logger
	tracer trace.Tracer

	targetToModel UpdatePolicy
	modelToTarget UpdatePolicy
}

// ContextOption configures a DataBindingContext.
type ContextOption func(*contextOptions)

func WithLogger(l Logger) ContextOption {
	return func(o *contextOptions) { o.logger = l }
}

// WithTracer sets the tracer used for binding and update spans.
// The global otel tracer provider is used otherwise.
func WithTracer(t trace.Tracer) ContextOption {
	return func(o *contextOptions) { o.tracer = t }
}

// WithDefaultPolicies sets the policies of the strategies created for
// bindings made without an explicit strategy. Both default to PolicyUpdate.
func WithDefaultPolicies(targetToModel, modelToTarget UpdatePolicy) ContextOption {
	return func(o *contextOptions) {
		o.targetToModel = targetToModel
		o.modelToTarget = modelToTarget
	}
}

// DataBindingContext owns a group of bindings and validation status
// providers, updates them together and disposes them together.
//
// Its lists and the validation statuses of its bindings live in its
// validation realm; it must be used from that realm.
type DataBindingContext struct {
	realm  Realm
	logger Logger
	tracer trace.Tracer

	targetToModel UpdatePolicy
	modelToTarget UpdatePolicy

	bindings  *WritableList[Binding]
	providers *WritableList[ValidationStatusProvider]
	statusMap *ComputedValue[map[Binding]Status]

	disposed bool
}

// NewDataBindingContext returns a context validating in realm.
// It panics with ErrNilRealm if realm is nil.
func NewDataBindingContext(realm Realm, opts ...ContextOption) *DataBindingContext {
	if realm == nil {
		panic(errors.WithStack(ErrNilRealm))
	}

	o := contextOptions{
		targetToModel: PolicyUpdate,
		modelToTarget: PolicyUpdate,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Default()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}

	c := &DataBindingContext{
		realm:         realm,
		logger:        o.logger.WithPrefix("context"),
		tracer:        o.tracer,
		targetToModel: o.targetToModel,
		modelToTarget: o.modelToTarget,
	}

	RunAndIgnore(func() {
		c.bindings = NewWritableList[Binding](realm)
		c.providers = NewWritableList[ValidationStatusProvider](realm)
		c.statusMap = NewComputedValue(realm, c.computeStatusMap)
	})

	return c
}

func (c *DataBindingContext) Realm() Realm { return c.realm }

// BindValue binds target to model. A nil strategy is replaced by one using
// the context's default policy for that direction.
//
// It panics if either observable or the context is disposed, or if values
// have to flow in a direction for which no converter could be inferred.
func BindValue[T, M any](
	c *DataBindingContext,
	target ObservableValue[T],
	model ObservableValue[M],
	targetToModel *UpdateValueStrategy[T, M],
	modelToTarget *UpdateValueStrategy[M, T],
) *ValueBinding[T, M] {
	if targetToModel == nil {
		targetToModel = NewUpdateValueStrategy[T, M](c.targetToModel)
	}
	if modelToTarget == nil {
		modelToTarget = NewUpdateValueStrategy[M, T](c.modelToTarget)
	}
	mustFill(targetToModel.fillDefaults())
	mustFill(modelToTarget.fillDefaults())

	b := newValueBinding(target, model, targetToModel, modelToTarget)
	b.init(c, b.preInit, b.postInit)
	return b
}

// BindList is BindValue for lists.
func BindList[T, M any](
	c *DataBindingContext,
	target ObservableList[T],
	model ObservableList[M],
	targetToModel *UpdateListStrategy[T, M],
	modelToTarget *UpdateListStrategy[M, T],
) *ListBinding[T, M] {
	if targetToModel == nil {
		targetToModel = NewUpdateListStrategy[T, M](c.collectionPolicy(c.targetToModel))
	}
	if modelToTarget == nil {
		modelToTarget = NewUpdateListStrategy[M, T](c.collectionPolicy(c.modelToTarget))
	}
	mustFill(targetToModel.fillDefaults())
	mustFill(modelToTarget.fillDefaults())

	b := newListBinding(target, model, targetToModel, modelToTarget)
	b.init(c, b.preInit, b.postInit)
	return b
}

// BindSet is BindValue for sets.
func BindSet[T, M comparable](
	c *DataBindingContext,
	target ObservableSet[T],
	model ObservableSet[M],
	targetToModel *UpdateSetStrategy[T, M],
	modelToTarget *UpdateSetStrategy[M, T],
) *SetBinding[T, M] {
	if targetToModel == nil {
		targetToModel = NewUpdateSetStrategy[T, M](c.collectionPolicy(c.targetToModel))
	}
	if modelToTarget == nil {
		modelToTarget = NewUpdateSetStrategy[M, T](c.collectionPolicy(c.modelToTarget))
	}
	mustFill(targetToModel.fillDefaults())
	mustFill(modelToTarget.fillDefaults())

	b := newSetBinding(target, model, targetToModel, modelToTarget)
	b.init(c, b.preInit, b.postInit)
	return b
}

// collectionPolicy maps PolicyConvert, which only makes sense for values,
// to PolicyOnRequest.
func (c *DataBindingContext) collectionPolicy(p UpdatePolicy) UpdatePolicy {
	if p == PolicyConvert {
		return PolicyOnRequest
	}
	return p
}

func mustFill(err error) {
	if err != nil {
		panic(err)
	}
}

// AddBinding adds b to the bindings and to the validation status providers.
// Bindings made with BindValue, BindList and BindSet are already added.
func (c *DataBindingContext) AddBinding(b Binding) {
	_ = c.bindings.Add(b)
	c.AddValidationStatusProvider(b)
}

func (c *DataBindingContext) AddValidationStatusProvider(p ValidationStatusProvider) {
	_ = c.providers.Add(p)
}

// RemoveBinding removes b from the context without disposing it, and
// reports whether it was there.
func (c *DataBindingContext) RemoveBinding(b Binding) bool {
	removed, _ := c.bindings.Remove(b)
	return removed && c.RemoveValidationStatusProvider(b)
}

// RemoveValidationStatusProvider removes p without disposing it, and
// reports whether it was there.
func (c *DataBindingContext) RemoveValidationStatusProvider(p ValidationStatusProvider) bool {
	removed, _ := c.providers.Remove(p)
	return removed
}

// Bindings returns a read-only view of the bindings, in insertion order.
func (c *DataBindingContext) Bindings() ObservableList[Binding] {
	return NewUnmodifiableList[Binding](c.bindings)
}

// ValidationStatusProviders returns a read-only view of the providers,
// bindings included, in insertion order.
func (c *DataBindingContext) ValidationStatusProviders() ObservableList[ValidationStatusProvider] {
	return NewUnmodifiableList[ValidationStatusProvider](c.providers)
}

// ValidationStatusMap maps every binding to its current validation status.
func (c *DataBindingContext) ValidationStatusMap() ObservableValue[map[Binding]Status] {
	return c.statusMap
}

func (c *DataBindingContext) computeStatusMap() map[Binding]Status {
	bindings := c.bindings.Elements()

	statuses := make(map[Binding]Status, len(bindings))
	for _, b := range bindings {
		statuses[b] = b.ValidationStatus().Value()
	}

	return statuses
}

// UpdateModels copies every target into its model, in binding order.
func (c *DataBindingContext) UpdateModels() {
	c.UpdateModelsContext(context.Background())
}

// UpdateTargets copies every model into its target, in binding order.
func (c *DataBindingContext) UpdateTargets() {
	c.UpdateTargetsContext(context.Background())
}

// ValidateTargetsToModels runs every target-to-model validation.
func (c *DataBindingContext) ValidateTargetsToModels() {
	c.each(context.Background(), "databind.ValidateTargetsToModels", Binding.ValidateTargetToModel)
}

// ValidateModelsToTargets runs every model-to-target validation.
func (c *DataBindingContext) ValidateModelsToTargets() {
	c.each(context.Background(), "databind.ValidateModelsToTargets", Binding.ValidateModelToTarget)
}

// UpdateModelsContext is UpdateModels recording a span under ctx.
func (c *DataBindingContext) UpdateModelsContext(ctx context.Context) {
	c.each(ctx, "databind.UpdateModels", Binding.UpdateTargetToModel)
}

// UpdateTargetsContext is UpdateTargets recording a span under ctx.
func (c *DataBindingContext) UpdateTargetsContext(ctx context.Context) {
	c.each(ctx, "databind.UpdateTargets", Binding.UpdateModelToTarget)
}

// each calls fn on a snapshot of the bindings, one after the other: later
// bindings may depend on what earlier ones wrote.
func (c *DataBindingContext) each(ctx context.Context, name string, fn func(Binding)) {
	bindings := Untrack(c.bindings.Elements)

	_, span := c.tracer.Start(ctx, name,
		trace.WithAttributes(attribute.Int("databind.bindings", len(bindings))),
	)
	defer span.End()

	for _, b := range bindings {
		fn(b)
	}

	failed := 0
	for _, b := range bindings {
		if Untrack(b.ValidationStatus().Value).Severity >= SeverityError {
			failed++
		}
	}

	span.SetAttributes(attribute.Int("databind.failed_bindings", failed))
	if failed > 0 {
		span.SetStatus(codes.Error, "validation failed")
	} else {
		span.SetStatus(codes.Ok, "")
	}
}

func (c *DataBindingContext) IsDisposed() bool {
	return c.disposed
}

// Dispose disposes every binding, then every provider not disposed yet.
// Each of them is disposed exactly once.
func (c *DataBindingContext) Dispose() {
	checkRealm(c.realm)
	if c.disposed {
		return
	}
	c.disposed = true

	// disposing a binding removes it from both lists
	bindings := Untrack(c.bindings.Elements)
	providers := Untrack(c.providers.Elements)

	for _, b := range bindings {
		b.Dispose()
	}
	for _, p := range providers {
		if !p.IsDisposed() {
			p.Dispose()
		}
	}

	c.statusMap.Dispose()
	c.bindings.Dispose()
	c.providers.Dispose()
	c.logger.Debugf("disposed %d bindings and %d providers", len(bindings), len(providers))
}
