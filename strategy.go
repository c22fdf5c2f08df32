package databind

import (
	"fmt"

	"github.com/pkg/errors"
)

// UpdatePolicy decides when a binding propagates changes in one direction.
type UpdatePolicy int

const (
	// PolicyNever never propagates, not even on explicit requests.
	PolicyNever UpdatePolicy = iota + 1

	// PolicyOnRequest only propagates on explicit update calls.
	PolicyOnRequest

	// PolicyConvert validates and converts on every change, but only writes
	// the destination on explicit update calls. Value bindings only.
	PolicyConvert

	// PolicyUpdate propagates every change of the source right away.
	PolicyUpdate
)

func (p UpdatePolicy) String() string {
	switch p {
	case PolicyNever:
		return "never"
	case PolicyOnRequest:
		return "on-request"
	case PolicyConvert:
		return "convert"
	case PolicyUpdate:
		return "update"
	default:
		return fmt.Sprintf("UpdatePolicy(%d)", int(p))
	}
}

// listens reports whether the binding must listen to the source.
func (p UpdatePolicy) listens() bool {
	return p == PolicyUpdate || p == PolicyConvert
}

// skips reports whether a propagation must be skipped.
func (p UpdatePolicy) skips(explicit bool) bool {
	switch p {
	case PolicyNever:
		return true
	case PolicyOnRequest:
		return !explicit
	}
	return false
}

func noConverter[S, D any]() error {
	var s S
	var d D
	return errors.Wrapf(ErrNoConverter, "%T to %T", s, d)
}

// UpdateValueStrategy configures one direction of a ValueBinding, from an
// S source to a D destination.
//
// Values go through: the after-get validator, the converter, the
// after-convert validator, the before-set validator, then the setter.
type UpdateValueStrategy[S, D any] struct {
	policy          UpdatePolicy
	provideDefaults bool

	converter    Converter[S, D]
	afterGet     Validator[S]
	afterConvert Validator[D]
	beforeSet    Validator[D]
	setter       func(ObservableValue[D], D) error
}

// NewUpdateValueStrategy returns a strategy with the given policy that fills
// in a default converter and validator when bound.
func NewUpdateValueStrategy[S, D any](policy UpdatePolicy) *UpdateValueStrategy[S, D] {
	return &UpdateValueStrategy[S, D]{policy: policy, provideDefaults: true}
}

// NeverUpdateValue returns a strategy that never propagates.
func NeverUpdateValue[S, D any]() *UpdateValueStrategy[S, D] {
	return NewUpdateValueStrategy[S, D](PolicyNever)
}

func (s *UpdateValueStrategy[S, D]) Policy() UpdatePolicy { return s.policy }

func (s *UpdateValueStrategy[S, D]) SetConverter(c Converter[S, D]) *UpdateValueStrategy[S, D] {
	s.converter = c
	return s
}

func (s *UpdateValueStrategy[S, D]) SetAfterGetValidator(v Validator[S]) *UpdateValueStrategy[S, D] {
	s.afterGet = v
	return s
}

func (s *UpdateValueStrategy[S, D]) SetAfterConvertValidator(v Validator[D]) *UpdateValueStrategy[S, D] {
	s.afterConvert = v
	return s
}

func (s *UpdateValueStrategy[S, D]) SetBeforeSetValidator(v Validator[D]) *UpdateValueStrategy[S, D] {
	s.beforeSet = v
	return s
}

// SetSetter replaces the write of the destination.
func (s *UpdateValueStrategy[S, D]) SetSetter(fn func(ObservableValue[D], D) error) *UpdateValueStrategy[S, D] {
	s.setter = fn
	return s
}

// SetProvideDefaults turns inference of the converter and validator on or off.
func (s *UpdateValueStrategy[S, D]) SetProvideDefaults(provide bool) *UpdateValueStrategy[S, D] {
	s.provideDefaults = provide
	return s
}

// fillDefaults infers what wasn't configured. It fails when values would
// have to flow and no converter can be found.
func (s *UpdateValueStrategy[S, D]) fillDefaults() error {
	if s.policy == PolicyNever {
		return nil
	}

	if s.provideDefaults {
		if s.afterGet == nil {
			s.afterGet, _ = DefaultValidator[S, D]()
		}
		if s.converter == nil {
			s.converter, _ = DefaultConverter[S, D]()
		}
	}

	if s.converter == nil {
		return noConverter[S, D]()
	}
	return nil
}

func (s *UpdateValueStrategy[S, D]) validateAfterGet(v S) Status {
	return validate(s.afterGet, v)
}

func (s *UpdateValueStrategy[S, D]) convert(v S) (D, Status) {
	if s.converter == nil {
		var zero D
		return zero, ErrorStatus("no converter", noConverter[S, D]())
	}

	d, err := s.converter(v)
	if err != nil {
		return d, ErrorStatus("conversion failed", err)
	}
	return d, OKStatus()
}

func (s *UpdateValueStrategy[S, D]) validateAfterConvert(v D) Status {
	return validate(s.afterConvert, v)
}

func (s *UpdateValueStrategy[S, D]) validateBeforeSet(v D) Status {
	return validate(s.beforeSet, v)
}

func (s *UpdateValueStrategy[S, D]) doSet(dest ObservableValue[D], v D) Status {
	setter := s.setter
	if setter == nil {
		setter = ObservableValue[D].SetValue
	}

	if err := setter(dest, v); err != nil {
		return ErrorStatus("could not set value", err)
	}
	return OKStatus()
}

func validate[T any](v Validator[T], value T) Status {
	if v == nil {
		return OKStatus()
	}
	return v(value)
}

// UpdateListStrategy configures one direction of a ListBinding.
type UpdateListStrategy[S, D any] struct {
	policy          UpdatePolicy
	provideDefaults bool

	converter Converter[S, D]

	adder    func(list ObservableList[D], index int, element D) error
	remover  func(list ObservableList[D], index int) error
	mover    func(list ObservableList[D], oldIndex, newIndex int) error
	replacer func(list ObservableList[D], index int, element D) error

	moveAndReplace bool
}

func NewUpdateListStrategy[S, D any](policy UpdatePolicy) *UpdateListStrategy[S, D] {
	return &UpdateListStrategy[S, D]{policy: policy, provideDefaults: true}
}

func NeverUpdateList[S, D any]() *UpdateListStrategy[S, D] {
	return NewUpdateListStrategy[S, D](PolicyNever)
}

func (s *UpdateListStrategy[S, D]) Policy() UpdatePolicy { return s.policy }

func (s *UpdateListStrategy[S, D]) SetConverter(c Converter[S, D]) *UpdateListStrategy[S, D] {
	s.converter = c
	return s
}

func (s *UpdateListStrategy[S, D]) SetAdder(fn func(ObservableList[D], int, D) error) *UpdateListStrategy[S, D] {
	s.adder = fn
	return s
}

func (s *UpdateListStrategy[S, D]) SetRemover(fn func(ObservableList[D], int) error) *UpdateListStrategy[S, D] {
	s.remover = fn
	return s
}

// SetMover replaces moves of the destination and makes the binding apply
// moves natively instead of as a removal and an addition.
func (s *UpdateListStrategy[S, D]) SetMover(fn func(ObservableList[D], int, int) error) *UpdateListStrategy[S, D] {
	s.mover = fn
	s.moveAndReplace = true
	return s
}

// SetReplacer is SetMover for in-place replacements.
func (s *UpdateListStrategy[S, D]) SetReplacer(fn func(ObservableList[D], int, D) error) *UpdateListStrategy[S, D] {
	s.replacer = fn
	s.moveAndReplace = true
	return s
}

// SetUseMoveAndReplace makes the binding apply moves and replacements
// natively, through the default hooks unless others were set.
func (s *UpdateListStrategy[S, D]) SetUseMoveAndReplace(use bool) *UpdateListStrategy[S, D] {
	s.moveAndReplace = use
	return s
}

func (s *UpdateListStrategy[S, D]) SetProvideDefaults(provide bool) *UpdateListStrategy[S, D] {
	s.provideDefaults = provide
	return s
}

func (s *UpdateListStrategy[S, D]) fillDefaults() error {
	if s.policy == PolicyNever {
		return nil
	}

	if s.provideDefaults && s.converter == nil {
		s.converter, _ = DefaultConverter[S, D]()
	}

	if s.converter == nil {
		return noConverter[S, D]()
	}
	return nil
}

func (s *UpdateListStrategy[S, D]) convert(v S) (D, Status) {
	if s.converter == nil {
		var zero D
		return zero, ErrorStatus("no converter", noConverter[S, D]())
	}

	d, err := s.converter(v)
	if err != nil {
		return d, ErrorStatus("conversion failed", err)
	}
	return d, OKStatus()
}

func (s *UpdateListStrategy[S, D]) doAdd(list ObservableList[D], index int, element D) Status {
	var err error
	if s.adder != nil {
		err = s.adder(list, index, element)
	} else {
		err = list.Insert(index, element)
	}

	if err != nil {
		return ErrorStatus("could not add element", err)
	}
	return OKStatus()
}

func (s *UpdateListStrategy[S, D]) doRemove(list ObservableList[D], index int) Status {
	var err error
	if s.remover != nil {
		err = s.remover(list, index)
	} else {
		_, err = list.RemoveAt(index)
	}

	if err != nil {
		return ErrorStatus("could not remove element", err)
	}
	return OKStatus()
}

func (s *UpdateListStrategy[S, D]) doMove(list ObservableList[D], oldIndex, newIndex int) Status {
	var err error
	if s.mover != nil {
		err = s.mover(list, oldIndex, newIndex)
	} else {
		_, err = list.Move(oldIndex, newIndex)
	}

	if err != nil {
		return ErrorStatus("could not move element", err)
	}
	return OKStatus()
}

func (s *UpdateListStrategy[S, D]) doReplace(list ObservableList[D], index int, element D) Status {
	var err error
	if s.replacer != nil {
		err = s.replacer(list, index, element)
	} else {
		_, err = list.Set(index, element)
	}

	if err != nil {
		return ErrorStatus("could not replace element", err)
	}
	return OKStatus()
}

// UpdateSetStrategy configures one direction of a SetBinding.
type UpdateSetStrategy[S, D comparable] struct {
	policy          UpdatePolicy
	provideDefaults bool

	converter Converter[S, D]

	adder   func(set ObservableSet[D], element D) error
	remover func(set ObservableSet[D], element D) error
}

func NewUpdateSetStrategy[S, D comparable](policy UpdatePolicy) *UpdateSetStrategy[S, D] {
	return &UpdateSetStrategy[S, D]{policy: policy, provideDefaults: true}
}

func NeverUpdateSet[S, D comparable]() *UpdateSetStrategy[S, D] {
	return NewUpdateSetStrategy[S, D](PolicyNever)
}

func (s *UpdateSetStrategy[S, D]) Policy() UpdatePolicy { return s.policy }

func (s *UpdateSetStrategy[S, D]) SetConverter(c Converter[S, D]) *UpdateSetStrategy[S, D] {
	s.converter = c
	return s
}

func (s *UpdateSetStrategy[S, D]) SetAdder(fn func(ObservableSet[D], D) error) *UpdateSetStrategy[S, D] {
	s.adder = fn
	return s
}

func (s *UpdateSetStrategy[S, D]) SetRemover(fn func(ObservableSet[D], D) error) *UpdateSetStrategy[S, D] {
	s.remover = fn
	return s
}

func (s *UpdateSetStrategy[S, D]) SetProvideDefaults(provide bool) *UpdateSetStrategy[S, D] {
	s.provideDefaults = provide
	return s
}

func (s *UpdateSetStrategy[S, D]) fillDefaults() error {
	if s.policy == PolicyNever {
		return nil
	}

	if s.provideDefaults && s.converter == nil {
		s.converter, _ = DefaultConverter[S, D]()
	}

	if s.converter == nil {
		return noConverter[S, D]()
	}
	return nil
}

func (s *UpdateSetStrategy[S, D]) convert(v S) (D, Status) {
	if s.converter == nil {
		var zero D
		return zero, ErrorStatus("no converter", noConverter[S, D]())
	}

	d, err := s.converter(v)
	if err != nil {
		return d, ErrorStatus("conversion failed", err)
	}
	return d, OKStatus()
}

func (s *UpdateSetStrategy[S, D]) doAdd(set ObservableSet[D], element D) Status {
	add := s.adder
	if add == nil {
		add = ObservableSet[D].Add
	}

	if err := add(set, element); err != nil {
		return ErrorStatus("could not add element", err)
	}
	return OKStatus()
}

func (s *UpdateSetStrategy[S, D]) doRemove(set ObservableSet[D], element D) Status {
	remove := s.remover
	if remove == nil {
		remove = ObservableSet[D].Remove
	}

	if err := remove(set, element); err != nil {
		return ErrorStatus("could not remove element", err)
	}
	return OKStatus()
}
