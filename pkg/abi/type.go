// Package abi implements the Solidity contract ABI type system and the
// 32-byte-word codec used to encode and decode call data, return data and
// event payloads. Types are modeled as an explicit tagged variant rather
// than reflection so that dynamic-ness, canonical signatures and head sizes
// are computed once at construction and shared read-only afterwards.
package abi

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// WordSize is the number of bytes in one ABI word, the unit of all
// ABI-encoded transport.
const WordSize = 32

// Word is a single immutable 32-byte block of ABI-encoded data.
type Word [WordSize]byte

// Kind discriminates the supported Solidity type families.
type Kind uint8

const (
	KindUint Kind = iota
	KindInt
	KindBool
	KindAddress
	KindFixedBytes
	KindBytes
	KindString
	KindFixedArray
	KindArray
	KindTuple
)

// Field is one named member of a tuple type.
type Field struct {
	Name string
	Type *Type
}

// Type describes a single Solidity type. Instances are immutable after
// construction and safe for concurrent use; all derived properties
// (canonical string, dynamic classification, head size) are cached when the
// type is built.
type Type struct {
	kind   Kind
	bits   int     // bit width for uint/int
	size   int     // byte length for bytesN, element count for fixed arrays
	elem   *Type   // element type for arrays
	fields []Field // members for tuples

	canonical string
	dynamic   bool
	headWords int
}

// Kind returns the type family discriminator.
func (t *Type) Kind() Kind { return t.kind }

// Bits returns the declared bit width for uint/int types and 0 otherwise.
func (t *Type) Bits() int { return t.bits }

// Size returns the byte length for bytesN and the element count for fixed
// arrays; 0 otherwise.
func (t *Type) Size() int { return t.size }

// Elem returns the element type for array types and nil otherwise.
func (t *Type) Elem() *Type { return t.elem }

// Fields returns the ordered tuple members; nil for non-tuples.
func (t *Type) Fields() []Field { return t.fields }

// IsDynamic reports whether the type uses variable-length encoding. The
// classification depends only on the type structure, never on a value.
func (t *Type) IsDynamic() bool { return t.dynamic }

// Canonical returns the canonical Solidity notation for the type, e.g.
// "uint256", "bytes32[2][]" or "(address,uint256)". This is the notation
// signature hashing is defined over.
func (t *Type) Canonical() string { return t.canonical }

// String implements fmt.Stringer.
func (t *Type) String() string { return t.canonical }

// HeadWords returns the number of words the type occupies in a head
// section: 1 for every dynamic type (the offset slot), the full inline
// size for static types.
func (t *Type) HeadWords() int { return t.headWords }

// Uint returns the unsigned integer type of the given bit width. The width
// must be a multiple of 8 between 8 and 256.
func Uint(bits int) (*Type, error) {
	if err := checkBits(bits); err != nil {
		return nil, err
	}
	return &Type{
		kind:      KindUint,
		bits:      bits,
		canonical: fmt.Sprintf("uint%d", bits),
		headWords: 1,
	}, nil
}

// Int returns the signed integer type of the given bit width.
func Int(bits int) (*Type, error) {
	if err := checkBits(bits); err != nil {
		return nil, err
	}
	return &Type{
		kind:      KindInt,
		bits:      bits,
		canonical: fmt.Sprintf("int%d", bits),
		headWords: 1,
	}, nil
}

// Bool returns the boolean type.
func Bool() *Type {
	return &Type{kind: KindBool, canonical: "bool", headWords: 1}
}

// Address returns the 20-byte address type.
func Address() *Type {
	return &Type{kind: KindAddress, size: 20, canonical: "address", headWords: 1}
}

// FixedBytes returns the bytesN type for 1 <= n <= 32.
func FixedBytes(n int) (*Type, error) {
	if n < 1 || n > WordSize {
		return nil, errors.Wrapf(ErrInvalidType, "bytes%d is out of range", n)
	}
	return &Type{
		kind:      KindFixedBytes,
		size:      n,
		canonical: fmt.Sprintf("bytes%d", n),
		headWords: 1,
	}, nil
}

// Bytes returns the dynamic byte string type.
func Bytes() *Type {
	return &Type{kind: KindBytes, canonical: "bytes", dynamic: true, headWords: 1}
}

// String_ returns the dynamic UTF-8 string type. The trailing underscore
// avoids colliding with the Stringer method on Type.
func String_() *Type {
	return &Type{kind: KindString, canonical: "string", dynamic: true, headWords: 1}
}

// FixedArray returns the type elem[n]. A fixed array is dynamic iff its
// element type is dynamic.
func FixedArray(elem *Type, n int) (*Type, error) {
	if n < 0 {
		return nil, errors.Wrapf(ErrInvalidType, "negative array length %d", n)
	}
	t := &Type{
		kind:      KindFixedArray,
		size:      n,
		elem:      elem,
		canonical: fmt.Sprintf("%s[%d]", elem.canonical, n),
		dynamic:   elem.dynamic,
	}
	if t.dynamic {
		t.headWords = 1
	} else {
		t.headWords = n * elem.headWords
	}
	return t, nil
}

// Array returns the dynamically-sized type elem[].
func Array(elem *Type) *Type {
	return &Type{
		kind:      KindArray,
		elem:      elem,
		canonical: elem.canonical + "[]",
		dynamic:   true,
		headWords: 1,
	}
}

// Tuple returns the tuple type over the given ordered fields. A tuple is
// dynamic iff any member is dynamic.
func Tuple(fields []Field) *Type {
	parts := make([]string, len(fields))
	dynamic := false
	words := 0
	for i, f := range fields {
		parts[i] = f.Type.canonical
		if f.Type.dynamic {
			dynamic = true
		}
		words += f.Type.headWords
	}
	t := &Type{
		kind:      KindTuple,
		fields:    fields,
		canonical: "(" + strings.Join(parts, ",") + ")",
		dynamic:   dynamic,
		headWords: words,
	}
	if dynamic {
		t.headWords = 1
	}
	return t
}

func checkBits(bits int) error {
	if bits < 8 || bits > 256 || bits%8 != 0 {
		return errors.Wrapf(ErrInvalidType, "invalid integer width %d", bits)
	}
	return nil
}

// Component mirrors the "components" array of an ABI JSON parameter and is
// used to resolve tuple member types.
type Component struct {
	Name       string      `json:"name"`
	Type       string      `json:"type"`
	Components []Component `json:"components,omitempty"`
}

var elementaryTypePattern = regexp.MustCompile(`^([a-z]+)([0-9]*)$`)

// ParseType resolves a Solidity type name against the canonical grammar,
// e.g. "uint256", "bool[3][]", "tuple" (with components describing the
// members). Unknown keywords or malformed nesting fail with ErrInvalidType.
func ParseType(typeName string, components []Component) (*Type, error) {
	if strings.Count(typeName, "[") != strings.Count(typeName, "]") {
		return nil, errors.Wrapf(ErrInvalidType, "unbalanced brackets in %q", typeName)
	}

	// Peel one array suffix off the right and recurse on the element type.
	if strings.HasSuffix(typeName, "]") {
		open := strings.LastIndex(typeName, "[")
		if open == -1 {
			return nil, errors.Wrapf(ErrInvalidType, "malformed array type %q", typeName)
		}
		elem, err := ParseType(typeName[:open], components)
		if err != nil {
			return nil, err
		}
		inner := typeName[open+1 : len(typeName)-1]
		if inner == "" {
			return Array(elem), nil
		}
		n, err := strconv.Atoi(inner)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidType, "malformed array length in %q", typeName)
		}
		return FixedArray(elem, n)
	}

	matches := elementaryTypePattern.FindStringSubmatch(typeName)
	if matches == nil {
		return nil, errors.Wrapf(ErrInvalidType, "unknown type %q", typeName)
	}
	base, sizeStr := matches[1], matches[2]

	size := 0
	if sizeStr != "" {
		// "uint0" and zero-padded widths like "uint08" are not part of
		// the canonical grammar even though Atoi accepts them.
		if sizeStr[0] == '0' {
			return nil, errors.Wrapf(ErrInvalidType, "malformed size in %q", typeName)
		}
		var err error
		if size, err = strconv.Atoi(sizeStr); err != nil {
			return nil, errors.Wrapf(ErrInvalidType, "malformed size in %q", typeName)
		}
	}

	switch base {
	case "uint":
		if size == 0 {
			size = 256
		}
		return Uint(size)
	case "int":
		if size == 0 {
			size = 256
		}
		return Int(size)
	case "bool":
		if sizeStr != "" {
			return nil, errors.Wrapf(ErrInvalidType, "unknown type %q", typeName)
		}
		return Bool(), nil
	case "address":
		if sizeStr != "" {
			return nil, errors.Wrapf(ErrInvalidType, "unknown type %q", typeName)
		}
		return Address(), nil
	case "string":
		if sizeStr != "" {
			return nil, errors.Wrapf(ErrInvalidType, "unknown type %q", typeName)
		}
		return String_(), nil
	case "bytes":
		if sizeStr == "" {
			return Bytes(), nil
		}
		return FixedBytes(size)
	case "tuple":
		if sizeStr != "" {
			return nil, errors.Wrapf(ErrInvalidType, "unknown type %q", typeName)
		}
		if len(components) == 0 {
			return nil, errors.Wrap(ErrInvalidType, "tuple type without components")
		}
		fields := make([]Field, len(components))
		for i, c := range components {
			ct, err := ParseType(c.Type, c.Components)
			if err != nil {
				return nil, err
			}
			fields[i] = Field{Name: c.Name, Type: ct}
		}
		return Tuple(fields), nil
	default:
		return nil, errors.Wrapf(ErrInvalidType, "unknown type %q", typeName)
	}
}
