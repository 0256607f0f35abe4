package abi

import (
	"bytes"
	"fmt"
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Value is a tagged union mirroring Type. A Value always carries the Type
// it was built against; constructors reject any value whose shape does not
// match (wrong arity, wrong byte width, out-of-range integer). Values are
// immutable once constructed.
type Value struct {
	typ  *Type
	num  *big.Int
	flag bool
	data []byte
	list []Value
}

// Type returns the type the value was constructed against.
func (v Value) Type() *Type { return v.typ }

// Big returns the integer payload for uint/int values. The caller must not
// mutate the result.
func (v Value) Big() *big.Int { return v.num }

// Uint64 returns the integer payload as a uint64. Only valid for unsigned
// values that fit 64 bits.
func (v Value) Uint64() uint64 { return v.num.Uint64() }

// Int64 returns the integer payload as an int64.
func (v Value) Int64() int64 { return v.num.Int64() }

// Bool returns the boolean payload.
func (v Value) Bool() bool { return v.flag }

// Bytes returns the raw byte payload for address, bytesN, bytes and string
// values.
func (v Value) Bytes() []byte { return v.data }

// Addr returns the address payload.
func (v Value) Addr() common.Address { return common.BytesToAddress(v.data) }

// Text returns the string payload.
func (v Value) Text() string { return string(v.data) }

// Values returns the ordered element values for arrays and tuples.
func (v Value) Values() []Value { return v.list }

// Equal reports deep equality of two values, including their types.
func (v Value) Equal(other Value) bool {
	if v.typ == nil || other.typ == nil {
		return v.typ == other.typ
	}
	if v.typ.Canonical() != other.typ.Canonical() {
		return false
	}
	switch v.typ.kind {
	case KindUint, KindInt:
		return v.num.Cmp(other.num) == 0
	case KindBool:
		return v.flag == other.flag
	case KindAddress, KindFixedBytes, KindBytes, KindString:
		return bytes.Equal(v.data, other.data)
	default:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	}
}

// String implements fmt.Stringer for debugging output.
func (v Value) String() string {
	if v.typ == nil {
		return "<nil>"
	}
	switch v.typ.kind {
	case KindUint, KindInt:
		return v.num.String()
	case KindBool:
		return fmt.Sprintf("%t", v.flag)
	case KindAddress:
		return v.Addr().Hex()
	case KindString:
		return fmt.Sprintf("%q", string(v.data))
	case KindFixedBytes, KindBytes:
		return fmt.Sprintf("0x%x", v.data)
	default:
		return fmt.Sprintf("%s%v", v.typ.Canonical(), v.list)
	}
}

// NewValue builds a Value of the given type from a native Go value. The
// accepted native representations follow the binding type mapping: Go
// integers or *big.Int for uint/int, common.Address for address, [N]byte or
// []byte for bytesN, []byte for bytes, string for string, slices or arrays
// for array types and structs (fields in declaration order) or []any for
// tuples. A shape mismatch fails with ErrValueMismatch.
func NewValue(t *Type, goVal any) (Value, error) {
	switch t.kind {
	case KindUint, KindInt:
		n, err := toBig(goVal)
		if err != nil {
			return Value{}, errors.Wrapf(err, "cannot use %T as %s", goVal, t.Canonical())
		}
		if err := checkIntRange(t, n); err != nil {
			return Value{}, err
		}
		return Value{typ: t, num: n}, nil

	case KindBool:
		b, ok := goVal.(bool)
		if !ok {
			return Value{}, errors.Wrapf(ErrValueMismatch, "cannot use %T as bool", goVal)
		}
		return Value{typ: t, flag: b}, nil

	case KindAddress:
		switch a := goVal.(type) {
		case common.Address:
			return Value{typ: t, data: a.Bytes()}, nil
		case [20]byte:
			return Value{typ: t, data: a[:]}, nil
		case []byte:
			if len(a) != common.AddressLength {
				return Value{}, errors.Wrapf(ErrValueMismatch, "address needs 20 bytes, got %d", len(a))
			}
			return Value{typ: t, data: append([]byte{}, a...)}, nil
		default:
			return Value{}, errors.Wrapf(ErrValueMismatch, "cannot use %T as address", goVal)
		}

	case KindFixedBytes:
		b, err := toFixedBytes(goVal, t.size)
		if err != nil {
			return Value{}, err
		}
		return Value{typ: t, data: b}, nil

	case KindBytes:
		b, ok := goVal.([]byte)
		if !ok {
			return Value{}, errors.Wrapf(ErrValueMismatch, "cannot use %T as bytes", goVal)
		}
		return Value{typ: t, data: append([]byte{}, b...)}, nil

	case KindString:
		s, ok := goVal.(string)
		if !ok {
			return Value{}, errors.Wrapf(ErrValueMismatch, "cannot use %T as string", goVal)
		}
		return Value{typ: t, data: []byte(s)}, nil

	case KindFixedArray, KindArray:
		rv := reflect.ValueOf(goVal)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return Value{}, errors.Wrapf(ErrValueMismatch, "cannot use %T as %s", goVal, t.Canonical())
		}
		if t.kind == KindFixedArray && rv.Len() != t.size {
			return Value{}, errors.Wrapf(ErrValueMismatch, "%s needs %d elements, got %d", t.Canonical(), t.size, rv.Len())
		}
		list := make([]Value, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			ev, err := NewValue(t.elem, rv.Index(i).Interface())
			if err != nil {
				return Value{}, errors.Wrapf(err, "element %d", i)
			}
			list[i] = ev
		}
		return Value{typ: t, list: list}, nil

	case KindTuple:
		return newTupleValue(t, goVal)

	default:
		return Value{}, errors.Wrapf(ErrValueMismatch, "unsupported kind %d", t.kind)
	}
}

func newTupleValue(t *Type, goVal any) (Value, error) {
	if vs, ok := goVal.([]any); ok {
		if len(vs) != len(t.fields) {
			return Value{}, errors.Wrapf(ErrValueMismatch, "tuple %s needs %d members, got %d", t.Canonical(), len(t.fields), len(vs))
		}
		list := make([]Value, len(vs))
		for i, f := range t.fields {
			fv, err := NewValue(f.Type, vs[i])
			if err != nil {
				return Value{}, errors.Wrapf(err, "member %d", i)
			}
			list[i] = fv
		}
		return Value{typ: t, list: list}, nil
	}

	rv := reflect.Indirect(reflect.ValueOf(goVal))
	if rv.Kind() != reflect.Struct {
		return Value{}, errors.Wrapf(ErrValueMismatch, "cannot use %T as tuple %s", goVal, t.Canonical())
	}
	if rv.NumField() != len(t.fields) {
		return Value{}, errors.Wrapf(ErrValueMismatch, "tuple %s needs %d members, struct %T has %d fields", t.Canonical(), len(t.fields), goVal, rv.NumField())
	}
	list := make([]Value, len(t.fields))
	for i, f := range t.fields {
		fv, err := NewValue(f.Type, rv.Field(i).Interface())
		if err != nil {
			return Value{}, errors.Wrapf(err, "member %d (%s)", i, f.Name)
		}
		list[i] = fv
	}
	return Value{typ: t, list: list}, nil
}

// GoValue returns the canonical native Go representation of the value:
// uint8..uint64 or *big.Int for integers depending on width, common.Address
// for addresses, []byte, string, []any for slices and tuples.
func (v Value) GoValue() any {
	switch v.typ.kind {
	case KindUint:
		switch {
		case v.typ.bits <= 8:
			return uint8(v.num.Uint64())
		case v.typ.bits <= 16:
			return uint16(v.num.Uint64())
		case v.typ.bits <= 32:
			return uint32(v.num.Uint64())
		case v.typ.bits <= 64:
			return v.num.Uint64()
		default:
			return new(big.Int).Set(v.num)
		}
	case KindInt:
		switch {
		case v.typ.bits <= 8:
			return int8(v.num.Int64())
		case v.typ.bits <= 16:
			return int16(v.num.Int64())
		case v.typ.bits <= 32:
			return int32(v.num.Int64())
		case v.typ.bits <= 64:
			return v.num.Int64()
		default:
			return new(big.Int).Set(v.num)
		}
	case KindBool:
		return v.flag
	case KindAddress:
		return v.Addr()
	case KindFixedBytes, KindBytes:
		return append([]byte{}, v.data...)
	case KindString:
		return string(v.data)
	default:
		out := make([]any, len(v.list))
		for i, e := range v.list {
			out[i] = e.GoValue()
		}
		return out
	}
}

// AssignTo copies the value into dst, which must be a non-nil pointer to a
// compatible native representation: *big.Int, Go integer, bool, string,
// []byte, [N]byte, common.Address, slice, array or struct for tuples.
func (v Value) AssignTo(dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.Wrapf(ErrValueMismatch, "assignment target must be a non-nil pointer, got %T", dst)
	}
	return v.assignTo(rv.Elem())
}

func (v Value) assignTo(dst reflect.Value) error {
	// *big.Int destinations get a copy of the integer payload.
	if dst.Type() == reflect.TypeOf(&big.Int{}) {
		if v.typ.kind != KindUint && v.typ.kind != KindInt {
			return errors.Wrapf(ErrValueMismatch, "cannot assign %s to *big.Int", v.typ.Canonical())
		}
		dst.Set(reflect.ValueOf(new(big.Int).Set(v.num)))
		return nil
	}
	if dst.Kind() == reflect.Interface && dst.NumMethod() == 0 {
		dst.Set(reflect.ValueOf(v.GoValue()))
		return nil
	}

	switch v.typ.kind {
	case KindUint:
		switch dst.Kind() {
		case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
			dst.SetUint(v.num.Uint64())
			return nil
		}
	case KindInt:
		switch dst.Kind() {
		case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
			dst.SetInt(v.num.Int64())
			return nil
		}
	case KindBool:
		if dst.Kind() == reflect.Bool {
			dst.SetBool(v.flag)
			return nil
		}
	case KindAddress:
		if dst.Type() == reflect.TypeOf(common.Address{}) {
			dst.Set(reflect.ValueOf(v.Addr()))
			return nil
		}
	case KindFixedBytes:
		if dst.Kind() == reflect.Array && dst.Type().Elem().Kind() == reflect.Uint8 && dst.Len() == v.typ.size {
			reflect.Copy(dst, reflect.ValueOf(v.data))
			return nil
		}
	case KindBytes:
		if dst.Kind() == reflect.Slice && dst.Type().Elem().Kind() == reflect.Uint8 {
			dst.SetBytes(append([]byte{}, v.data...))
			return nil
		}
	case KindString:
		if dst.Kind() == reflect.String {
			dst.SetString(string(v.data))
			return nil
		}
	case KindFixedArray, KindArray:
		switch dst.Kind() {
		case reflect.Slice:
			out := reflect.MakeSlice(dst.Type(), len(v.list), len(v.list))
			for i, e := range v.list {
				if err := e.assignTo(out.Index(i)); err != nil {
					return errors.Wrapf(err, "element %d", i)
				}
			}
			dst.Set(out)
			return nil
		case reflect.Array:
			if dst.Len() != len(v.list) {
				return errors.Wrapf(ErrValueMismatch, "cannot assign %d elements to array of length %d", len(v.list), dst.Len())
			}
			for i, e := range v.list {
				if err := e.assignTo(dst.Index(i)); err != nil {
					return errors.Wrapf(err, "element %d", i)
				}
			}
			return nil
		}
	case KindTuple:
		if dst.Kind() == reflect.Struct {
			if dst.NumField() != len(v.list) {
				return errors.Wrapf(ErrValueMismatch, "tuple %s needs %d fields, struct has %d", v.typ.Canonical(), len(v.list), dst.NumField())
			}
			for i, e := range v.list {
				if err := e.assignTo(dst.Field(i)); err != nil {
					return errors.Wrapf(err, "member %d", i)
				}
			}
			return nil
		}
	}
	return errors.Wrapf(ErrValueMismatch, "cannot assign %s to %s", v.typ.Canonical(), dst.Type())
}

func toBig(goVal any) (*big.Int, error) {
	switch n := goVal.(type) {
	case *big.Int:
		if n == nil {
			return nil, errors.Wrap(ErrValueMismatch, "nil *big.Int")
		}
		return new(big.Int).Set(n), nil
	case big.Int:
		return new(big.Int).Set(&n), nil
	case int:
		return big.NewInt(int64(n)), nil
	case int8:
		return big.NewInt(int64(n)), nil
	case int16:
		return big.NewInt(int64(n)), nil
	case int32:
		return big.NewInt(int64(n)), nil
	case int64:
		return big.NewInt(n), nil
	case uint:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint64:
		return new(big.Int).SetUint64(n), nil
	default:
		return nil, errors.Wrapf(ErrValueMismatch, "%T is not an integer", goVal)
	}
}

func toFixedBytes(goVal any, size int) ([]byte, error) {
	if b, ok := goVal.([]byte); ok {
		if len(b) != size {
			return nil, errors.Wrapf(ErrValueMismatch, "bytes%d needs %d bytes, got %d", size, size, len(b))
		}
		return append([]byte{}, b...), nil
	}
	rv := reflect.ValueOf(goVal)
	if rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8 && rv.Len() == size {
		out := make([]byte, size)
		reflect.Copy(reflect.ValueOf(out), rv)
		return out, nil
	}
	return nil, errors.Wrapf(ErrValueMismatch, "cannot use %T as bytes%d", goVal, size)
}

func checkIntRange(t *Type, n *big.Int) error {
	if t.kind == KindUint {
		if n.Sign() < 0 {
			return errors.Wrapf(ErrValueMismatch, "negative value %s for %s", n, t.Canonical())
		}
		if n.BitLen() > t.bits {
			return errors.Wrapf(ErrValueMismatch, "value %s overflows %s", n, t.Canonical())
		}
		return nil
	}
	// Signed range is [-2^(bits-1), 2^(bits-1)-1].
	limit := new(big.Int).Lsh(big.NewInt(1), uint(t.bits-1))
	upper := new(big.Int).Sub(limit, big.NewInt(1))
	lower := new(big.Int).Neg(limit)
	if n.Cmp(lower) < 0 || n.Cmp(upper) > 0 {
		return errors.Wrapf(ErrValueMismatch, "value %s overflows %s", n, t.Canonical())
	}
	return nil
}
