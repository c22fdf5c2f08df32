package databind

// SetBinding binds a target set of T to a model set of M.
//
// A change of either side is applied to the other as its removals first,
// then its additions, element by element through the strategy's converter
// and hooks. Failing elements don't stop the pass: their statuses are merged
// and published once the pass is over, and the sides are left out of sync.
type SetBinding[T, M comparable] struct {
	binding

	targetSet ObservableSet[T]
	modelSet  ObservableSet[M]

	targetToModel *UpdateSetStrategy[T, M]
	modelToTarget *UpdateSetStrategy[M, T]

	updatingTarget bool
	updatingModel  bool

	targetListener SetChangeListener[T]
	modelListener  SetChangeListener[M]
}

var _ Binding = (*SetBinding[int, int])(nil)

func newSetBinding[T, M comparable](
	target ObservableSet[T],
	model ObservableSet[M],
	targetToModel *UpdateSetStrategy[T, M],
	modelToTarget *UpdateSetStrategy[M, T],
) *SetBinding[T, M] {
	b := &SetBinding[T, M]{
		targetSet:     target,
		modelSet:      model,
		targetToModel: targetToModel,
		modelToTarget: modelToTarget,
	}
	b.binding = newBinding(b, "set", target, model)

	return b
}

func (b *SetBinding[T, M]) TargetSet() ObservableSet[T] { return b.targetSet }

func (b *SetBinding[T, M]) ModelSet() ObservableSet[M] { return b.modelSet }

func (b *SetBinding[T, M]) preInit() {
	if b.targetToModel.Policy() == PolicyUpdate {
		b.targetListener = OnSetChange(func(e SetChangeEvent[T]) {
			if !b.updatingTarget && !b.disposed {
				b.updateTargetToModel(e.Diff, false, false)
			}
		})
	}

	if b.modelToTarget.Policy() == PolicyUpdate {
		b.modelListener = OnSetChange(func(e SetChangeEvent[M]) {
			if !b.updatingModel && !b.disposed {
				b.updateModelToTarget(e.Diff, false, false)
			}
		})
	}
}

func (b *SetBinding[T, M]) postInit() {
	if b.modelListener != nil {
		execAfterDisposalCheck(b.modelSet, func() {
			b.modelSet.AddSetChangeListener(b.modelListener)
			b.UpdateModelToTarget()
		})
	}

	if b.targetListener != nil {
		execAfterDisposalCheck(b.targetSet, func() {
			b.targetSet.AddSetChangeListener(b.targetListener)

			// the model can't be pushed to the target, so the target
			// is the reference
			if b.modelToTarget.Policy() == PolicyNever {
				b.UpdateTargetToModel()
			}
		})
	}
}

func (b *SetBinding[T, M]) UpdateTargetToModel() {
	execAfterDisposalCheck(b.targetSet, func() {
		elements := Untrack(b.targetSet.Elements)
		b.updateTargetToModel(ComputeSetDiff(nil, elements), true, true)
	})
}

func (b *SetBinding[T, M]) UpdateModelToTarget() {
	execAfterDisposalCheck(b.modelSet, func() {
		elements := Untrack(b.modelSet.Elements)
		b.updateModelToTarget(ComputeSetDiff(nil, elements), true, true)
	})
}

// ValidateTargetToModel does nothing: set strategies have no validators.
func (b *SetBinding[T, M]) ValidateTargetToModel() {}

// ValidateModelToTarget does nothing: set strategies have no validators.
func (b *SetBinding[T, M]) ValidateModelToTarget() {}

func (b *SetBinding[T, M]) updateTargetToModel(diff SetDiff[T], explicit, clearDestination bool) {
	updateSet(&b.binding, b.modelSet, diff, b.targetToModel, explicit, clearDestination, &b.updatingModel, directionTargetToModel)
}

func (b *SetBinding[T, M]) updateModelToTarget(diff SetDiff[M], explicit, clearDestination bool) {
	updateSet(&b.binding, b.targetSet, diff, b.modelToTarget, explicit, clearDestination, &b.updatingTarget, directionModelToTarget)
}

// updateSet applies diff to dest in dest's realm. updating is raised while
// dest changes so that the reverse listener ignores the echo.
func updateSet[S, D comparable](
	b *binding,
	dest ObservableSet[D],
	diff SetDiff[S],
	strategy *UpdateSetStrategy[S, D],
	explicit, clearDestination bool,
	updating *bool,
	direction string,
) {
	if strategy.Policy().skips(explicit) {
		return
	}

	dest.Realm().Exec(func() {
		*updating = true
		multi := OKStatus()

		defer func() {
			*updating = false
			b.publish(multi)
		}()

		b.propagated(direction)

		if clearDestination {
			if err := dest.Clear(); err != nil {
				b.merge(&multi, ErrorStatus("could not clear destination", err))
			}
		}

		// removals go first so that no listener sees an element twice
		for _, e := range diff.Removals {
			converted, status := strategy.convert(e)
			if !status.IsOK() {
				b.merge(&multi, status)
				continue
			}
			b.merge(&multi, strategy.doRemove(dest, converted))
		}

		for _, e := range diff.Additions {
			converted, status := strategy.convert(e)
			if !status.IsOK() {
				b.merge(&multi, status)
				continue
			}
			b.merge(&multi, strategy.doAdd(dest, converted))
		}
	})
}

func (b *SetBinding[T, M]) Dispose() {
	if b.targetListener != nil {
		l := b.targetListener
		b.targetSet.Realm().Exec(func() { b.targetSet.RemoveSetChangeListener(l) })
		b.targetListener = nil
	}

	if b.modelListener != nil {
		l := b.modelListener
		b.modelSet.Realm().Exec(func() { b.modelSet.RemoveSetChangeListener(l) })
		b.modelListener = nil
	}

	b.dispose()
}
