package databind

import (
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/pkg/errors"
)

// Converter turns a value read from one side of a binding into the type of
// the other side.
type Converter[S, D any] func(S) (D, error)

// Validator checks a value on its way through a binding. A status of
// SeverityError or above stops the propagation.
type Validator[T any] func(T) Status

// IdentityConverter returns values unchanged.
func IdentityConverter[T any]() Converter[T, T] {
	return func(v T) (T, error) { return v, nil }
}

// DefaultConverter infers a converter from S to D:
//   - identity when S is assignable to D,
//   - strconv parsing from string to numbers and bools,
//   - strconv formatting from numbers and bools to string,
//   - Go conversion between numeric types, refusing values the
//     destination can't hold. Floats headed for integers are truncated.
//
// It reports false when none applies.
func DefaultConverter[S, D any]() (Converter[S, D], bool) {
	src, dst := reflect.TypeFor[S](), reflect.TypeFor[D]()

	switch {
	case src.AssignableTo(dst):
		return func(v S) (D, error) {
			var d D
			reflect.ValueOf(&d).Elem().Set(reflect.ValueOf(&v).Elem())
			return d, nil
		}, true

	case src.Kind() == reflect.String && isParsable(dst.Kind()):
		return func(v S) (D, error) {
			var d D
			err := parseInto(reflect.ValueOf(&d).Elem(), reflect.ValueOf(v).String())
			return d, err
		}, true

	case dst.Kind() == reflect.String && isParsable(src.Kind()):
		return func(v S) (D, error) {
			var d D
			reflect.ValueOf(&d).Elem().SetString(format(reflect.ValueOf(v)))
			return d, nil
		}, true

	case isNumeric(src.Kind()) && isNumeric(dst.Kind()):
		return func(v S) (D, error) {
			var d D
			src := reflect.ValueOf(v)
			if !fits(src, dst) {
				return d, errors.Wrapf(ErrOutOfRange, "%s %s to %s", src.Type(), format(src), dst)
			}
			reflect.ValueOf(&d).Elem().Set(src.Convert(dst))
			return d, nil
		}, true
	}

	return nil, false
}

// DefaultValidator infers the validator run on values before they get
// converted. Only strings headed for numbers or bools get one: it reports
// unparsable input as an error status.
func DefaultValidator[S, D any]() (Validator[S], bool) {
	src, dst := reflect.TypeFor[S](), reflect.TypeFor[D]()
	if src.Kind() != reflect.String || !isParsable(dst.Kind()) {
		return nil, false
	}

	return func(v S) Status {
		s := reflect.ValueOf(v).String()
		if err := parseInto(reflect.New(dst).Elem(), s); err != nil {
			return ErrorStatus(fmt.Sprintf("%q is not a valid %s", s, dst.Kind()), err)
		}
		return OKStatus()
	}, true
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// fits reports whether the numeric value v survives a conversion to dst
// without wrapping around.
func fits(v reflect.Value, dst reflect.Type) bool {
	zero := reflect.New(dst).Elem()

	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := v.Int()
		switch {
		case zero.CanInt():
			return !zero.OverflowInt(n)
		case zero.CanUint():
			return n >= 0 && !zero.OverflowUint(uint64(n))
		}
		return true

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n := v.Uint()
		switch {
		case zero.CanUint():
			return !zero.OverflowUint(n)
		case zero.CanInt():
			return n <= math.MaxInt64 && !zero.OverflowInt(int64(n))
		}
		return true

	default:
		f := v.Float()
		switch {
		case zero.CanFloat():
			return math.IsInf(f, 0) || math.IsNaN(f) || !zero.OverflowFloat(f)
		case math.IsInf(f, 0) || math.IsNaN(f):
			return false
		}
		f = math.Trunc(f)
		if zero.CanInt() {
			return f >= math.MinInt64 && f < math.MaxInt64 && !zero.OverflowInt(int64(f))
		}
		return f >= 0 && f < math.MaxUint64 && !zero.OverflowUint(uint64(f))
	}
}

func isParsable(k reflect.Kind) bool {
	return k == reflect.Bool || isNumeric(k)
}

func parseInto(dst reflect.Value, s string) error {
	bits := dst.Type().Bits

	switch dst.Kind() {
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return errors.Wrapf(err, "parsing %q", s)
		}
		dst.SetBool(b)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, bits())
		if err != nil {
			return errors.Wrapf(err, "parsing %q", s)
		}
		dst.SetInt(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, bits())
		if err != nil {
			return errors.Wrapf(err, "parsing %q", s)
		}
		dst.SetUint(n)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, bits())
		if err != nil {
			return errors.Wrapf(err, "parsing %q", s)
		}
		dst.SetFloat(f)

	default:
		return errors.Wrapf(ErrNoConverter, "string to %s", dst.Type())
	}

	return nil
}

func format(v reflect.Value) string {
	switch v.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(v.Float(), 'g', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64)
	}

	return fmt.Sprint(v.Interface())
}
