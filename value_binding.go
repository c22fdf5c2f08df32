package databind

// ValueBinding binds a target value of T to a model value of M.
//
// Each propagation reads the source, runs it through the strategy's
// validators and converter, and writes the destination in the
// destination's realm. The first status of SeverityError or above stops the
// pass. Every pass publishes exactly one validation status.
type ValueBinding[T, M any] struct {
	binding

	targetValue ObservableValue[T]
	modelValue  ObservableValue[M]

	targetToModel *UpdateValueStrategy[T, M]
	modelToTarget *UpdateValueStrategy[M, T]

	updatingTarget bool
	updatingModel  bool

	targetListener ValueChangeListener[T]
	modelListener  ValueChangeListener[M]
}

var _ Binding = (*ValueBinding[int, int])(nil)

func newValueBinding[T, M any](
	target ObservableValue[T],
	model ObservableValue[M],
	targetToModel *UpdateValueStrategy[T, M],
	modelToTarget *UpdateValueStrategy[M, T],
) *ValueBinding[T, M] {
	b := &ValueBinding[T, M]{
		targetValue:   target,
		modelValue:    model,
		targetToModel: targetToModel,
		modelToTarget: modelToTarget,
	}
	b.binding = newBinding(b, "value", target, model)

	return b
}

func (b *ValueBinding[T, M]) TargetValue() ObservableValue[T] { return b.targetValue }

func (b *ValueBinding[T, M]) ModelValue() ObservableValue[M] { return b.modelValue }

func (b *ValueBinding[T, M]) preInit() {
	if b.targetToModel.Policy().listens() {
		b.targetListener = OnValueChange(func(e ValueChangeEvent[T]) {
			if !b.updatingTarget && !b.disposed && !equal(e.Diff.Old, e.Diff.New) {
				b.updateTargetToModel(false, false)
			}
		})
		execAfterDisposalCheck(b.targetValue, func() {
			b.targetValue.AddValueChangeListener(b.targetListener)
		})
	}

	if b.modelToTarget.Policy().listens() {
		b.modelListener = OnValueChange(func(e ValueChangeEvent[M]) {
			if !b.updatingModel && !b.disposed && !equal(e.Diff.Old, e.Diff.New) {
				b.updateModelToTarget(false, false)
			}
		})
		execAfterDisposalCheck(b.modelValue, func() {
			b.modelValue.AddValueChangeListener(b.modelListener)
		})
	}
}

func (b *ValueBinding[T, M]) postInit() {
	switch b.modelToTarget.Policy() {
	case PolicyUpdate:
		b.UpdateModelToTarget()
	case PolicyConvert:
		b.ValidateModelToTarget()
	}

	if b.targetToModel.Policy().listens() {
		b.ValidateTargetToModel()
	}
}

func (b *ValueBinding[T, M]) UpdateTargetToModel() { b.updateTargetToModel(true, false) }

func (b *ValueBinding[T, M]) UpdateModelToTarget() { b.updateModelToTarget(true, false) }

func (b *ValueBinding[T, M]) ValidateTargetToModel() { b.updateTargetToModel(true, true) }

func (b *ValueBinding[T, M]) ValidateModelToTarget() { b.updateModelToTarget(true, true) }

func (b *ValueBinding[T, M]) updateTargetToModel(explicit, validateOnly bool) {
	updateValue(&b.binding, b.targetValue, b.modelValue, b.targetToModel, explicit, validateOnly, &b.updatingModel, directionTargetToModel)
}

func (b *ValueBinding[T, M]) updateModelToTarget(explicit, validateOnly bool) {
	updateValue(&b.binding, b.modelValue, b.targetValue, b.modelToTarget, explicit, validateOnly, &b.updatingTarget, directionModelToTarget)
}

func updateValue[S, D any](
	b *binding,
	source ObservableValue[S],
	dest ObservableValue[D],
	strategy *UpdateValueStrategy[S, D],
	explicit, validateOnly bool,
	updating *bool,
	direction string,
) {
	policy := strategy.Policy()
	if policy.skips(explicit) {
		return
	}

	execAfterDisposalCheck(source, func() {
		multi := OKStatus()
		reachedDest := false

		defer func() {
			if !reachedDest {
				b.publish(multi)
			}
		}()

		b.propagated(direction)

		value := Untrack(source.Value)
		if !b.merge(&multi, strategy.validateAfterGet(value)) {
			return
		}

		converted, status := strategy.convert(value)
		if !b.merge(&multi, status) {
			return
		}
		if !b.merge(&multi, strategy.validateAfterConvert(converted)) {
			return
		}

		if (policy == PolicyConvert && !explicit) || validateOnly {
			return
		}

		if !b.merge(&multi, strategy.validateBeforeSet(converted)) {
			return
		}

		reachedDest = true
		dest.Realm().Exec(func() {
			*updating = true
			defer func() {
				*updating = false
				b.publish(multi)
			}()

			b.merge(&multi, strategy.doSet(dest, converted))
		})
	})
}

func (b *ValueBinding[T, M]) Dispose() {
	if b.targetListener != nil {
		l := b.targetListener
		b.targetValue.Realm().Exec(func() { b.targetValue.RemoveValueChangeListener(l) })
		b.targetListener = nil
	}

	if b.modelListener != nil {
		l := b.modelListener
		b.modelValue.Realm().Exec(func() { b.modelValue.RemoveValueChangeListener(l) })
		b.modelListener = nil
	}

	b.dispose()
}
