package databind

// ListBinding binds a target list of T to a model list of M.
//
// Changes are applied entry by entry, in diff order, through the strategy's
// converter and hooks. Like SetBinding, failures are merged into the
// validation status and leave the lists out of sync.
type ListBinding[T, M any] struct {
	binding

	targetList ObservableList[T]
	modelList  ObservableList[M]

	targetToModel *UpdateListStrategy[T, M]
	modelToTarget *UpdateListStrategy[M, T]

	updatingTarget bool
	updatingModel  bool

	targetListener ListChangeListener[T]
	modelListener  ListChangeListener[M]
}

var _ Binding = (*ListBinding[int, int])(nil)

func newListBinding[T, M any](
	target ObservableList[T],
	model ObservableList[M],
	targetToModel *UpdateListStrategy[T, M],
	modelToTarget *UpdateListStrategy[M, T],
) *ListBinding[T, M] {
	b := &ListBinding[T, M]{
		targetList:    target,
		modelList:     model,
		targetToModel: targetToModel,
		modelToTarget: modelToTarget,
	}
	b.binding = newBinding(b, "list", target, model)

	return b
}

func (b *ListBinding[T, M]) TargetList() ObservableList[T] { return b.targetList }

func (b *ListBinding[T, M]) ModelList() ObservableList[M] { return b.modelList }

func (b *ListBinding[T, M]) preInit() {
	if b.targetToModel.Policy() == PolicyUpdate {
		b.targetListener = OnListChange(func(e ListChangeEvent[T]) {
			if !b.updatingTarget && !b.disposed {
				b.updateTargetToModel(e.Diff, false, false)
			}
		})
	}

	if b.modelToTarget.Policy() == PolicyUpdate {
		b.modelListener = OnListChange(func(e ListChangeEvent[M]) {
			if !b.updatingModel && !b.disposed {
				b.updateModelToTarget(e.Diff, false, false)
			}
		})
	}
}

func (b *ListBinding[T, M]) postInit() {
	if b.modelListener != nil {
		execAfterDisposalCheck(b.modelList, func() {
			b.modelList.AddListChangeListener(b.modelListener)
			b.UpdateModelToTarget()
		})
	}

	if b.targetListener != nil {
		execAfterDisposalCheck(b.targetList, func() {
			b.targetList.AddListChangeListener(b.targetListener)

			if b.modelToTarget.Policy() == PolicyNever {
				b.UpdateTargetToModel()
			}
		})
	}
}

func (b *ListBinding[T, M]) UpdateTargetToModel() {
	execAfterDisposalCheck(b.targetList, func() {
		elements := Untrack(b.targetList.Elements)
		b.updateTargetToModel(ComputeListDiff(nil, elements), true, true)
	})
}

func (b *ListBinding[T, M]) UpdateModelToTarget() {
	execAfterDisposalCheck(b.modelList, func() {
		elements := Untrack(b.modelList.Elements)
		b.updateModelToTarget(ComputeListDiff(nil, elements), true, true)
	})
}

// ValidateTargetToModel does nothing: list strategies have no validators.
func (b *ListBinding[T, M]) ValidateTargetToModel() {}

// ValidateModelToTarget does nothing: list strategies have no validators.
func (b *ListBinding[T, M]) ValidateModelToTarget() {}

func (b *ListBinding[T, M]) updateTargetToModel(diff ListDiff[T], explicit, clearDestination bool) {
	updateList(&b.binding, b.modelList, diff, b.targetToModel, explicit, clearDestination, &b.updatingModel, directionTargetToModel)
}

func (b *ListBinding[T, M]) updateModelToTarget(diff ListDiff[M], explicit, clearDestination bool) {
	updateList(&b.binding, b.targetList, diff, b.modelToTarget, explicit, clearDestination, &b.updatingTarget, directionModelToTarget)
}

func updateList[S, D any](
	b *binding,
	dest ObservableList[D],
	diff ListDiff[S],
	strategy *UpdateListStrategy[S, D],
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

		add := func(index int, element S) {
			converted, status := strategy.convert(element)
			if !status.IsOK() {
				b.merge(&multi, status)
				return
			}
			b.merge(&multi, strategy.doAdd(dest, index, converted))
		}
		remove := func(index int, _ S) {
			b.merge(&multi, strategy.doRemove(dest, index))
		}

		visitor := ListDiffVisitorFuncs[S]{Add: add, Remove: remove}
		if strategy.moveAndReplace {
			visitor.Move = func(oldIndex, newIndex int, _ S) {
				b.merge(&multi, strategy.doMove(dest, oldIndex, newIndex))
			}
			visitor.Replace = func(index int, _ S, element S) {
				converted, status := strategy.convert(element)
				if !status.IsOK() {
					b.merge(&multi, status)
					return
				}
				b.merge(&multi, strategy.doReplace(dest, index, converted))
			}
		}

		diff.Accept(visitor)
	})
}

func (b *ListBinding[T, M]) Dispose() {
	if b.targetListener != nil {
		l := b.targetListener
		b.targetList.Realm().Exec(func() { b.targetList.RemoveListChangeListener(l) })
		b.targetListener = nil
	}

	if b.modelListener != nil {
		l := b.modelListener
		b.modelList.Realm().Exec(func() { b.modelList.RemoveListChangeListener(l) })
		b.modelListener = nil
	}

	b.dispose()
}
