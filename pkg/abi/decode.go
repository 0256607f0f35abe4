package abi

import (
	"math"
	"math/big"

	"github.com/pkg/errors"
)

// Decode deserializes an ABI-encoded byte stream against the declared
// types. Decoding is strict: the buffer must be a whole number of words,
// every offset and length must stay inside the buffer, and integer padding
// bits above a declared bitwidth must be zero (or proper sign extension for
// signed types). Any violation fails with an error wrapping
// ErrMalformedEncoding; the decoder never reads out of bounds and never
// masks malformed input.
func Decode(types []*Type, data []byte) ([]Value, error) {
	if len(data)%WordSize != 0 {
		return nil, errors.Wrapf(ErrMalformedEncoding, "length %d is not a multiple of %d", len(data), WordSize)
	}
	return decodeSection(types, data)
}

// decodeSection decodes one head/tail section. Offsets inside the section
// are relative to its start.
func decodeSection(types []*Type, section []byte) ([]Value, error) {
	values := make([]Value, len(types))
	cursor := 0
	for i, t := range types {
		if t.dynamic {
			offset, err := readUintWord(section, cursor)
			if err != nil {
				return nil, err
			}
			if offset > uint64(len(section)) {
				return nil, errors.Wrapf(ErrMalformedEncoding, "offset %d points past end of %d-byte section", offset, len(section))
			}
			v, err := decodeDynamic(t, section, int(offset))
			if err != nil {
				return nil, err
			}
			values[i] = v
			cursor += WordSize
		} else {
			need := t.headWords * WordSize
			if cursor+need > len(section) {
				return nil, errors.Wrapf(ErrMalformedEncoding, "truncated buffer: need %d bytes at offset %d, have %d", need, cursor, len(section))
			}
			v, err := decodeStatic(t, section[cursor:cursor+need])
			if err != nil {
				return nil, err
			}
			values[i] = v
			cursor += need
		}
	}
	return values, nil
}

// decodeDynamic decodes a dynamic value whose encoding starts at the given
// byte offset of the section.
func decodeDynamic(t *Type, section []byte, at int) (Value, error) {
	switch t.kind {
	case KindBytes, KindString:
		length, err := readUintWord(section, at)
		if err != nil {
			return Value{}, err
		}
		if length > uint64(len(section)) || at+WordSize+int(length) > len(section) {
			return Value{}, errors.Wrapf(ErrMalformedEncoding, "declared length %d exceeds remaining buffer", length)
		}
		data := append([]byte{}, section[at+WordSize:at+WordSize+int(length)]...)
		return Value{typ: t, data: data}, nil

	case KindArray:
		length, err := readUintWord(section, at)
		if err != nil {
			return Value{}, err
		}
		if length > uint64(len(section))/WordSize {
			return Value{}, errors.Wrapf(ErrMalformedEncoding, "declared element count %d exceeds remaining buffer", length)
		}
		elemTypes := make([]*Type, length)
		for i := range elemTypes {
			elemTypes[i] = t.elem
		}
		list, err := decodeSection(elemTypes, section[at+WordSize:])
		if err != nil {
			return Value{}, err
		}
		return Value{typ: t, list: list}, nil

	case KindFixedArray:
		elemTypes := make([]*Type, t.size)
		for i := range elemTypes {
			elemTypes[i] = t.elem
		}
		list, err := decodeSection(elemTypes, section[at:])
		if err != nil {
			return Value{}, err
		}
		return Value{typ: t, list: list}, nil

	case KindTuple:
		fieldTypes := make([]*Type, len(t.fields))
		for i, f := range t.fields {
			fieldTypes[i] = f.Type
		}
		list, err := decodeSection(fieldTypes, section[at:])
		if err != nil {
			return Value{}, err
		}
		return Value{typ: t, list: list}, nil

	default:
		return Value{}, errors.Wrapf(ErrMalformedEncoding, "type %s is not dynamic", t.Canonical())
	}
}

// decodeStatic decodes a static value from its exact inline block.
func decodeStatic(t *Type, block []byte) (Value, error) {
	switch t.kind {
	case KindUint:
		pad := WordSize - t.bits/8
		for _, b := range block[:pad] {
			if b != 0 {
				return Value{}, errors.Wrapf(ErrMalformedEncoding, "nonzero bits above declared width of %s", t.Canonical())
			}
		}
		return Value{typ: t, num: new(big.Int).SetBytes(block[pad:WordSize])}, nil

	case KindInt:
		pad := WordSize - t.bits/8
		negative := block[pad]&0x80 != 0
		expect := byte(0x00)
		if negative {
			expect = 0xff
		}
		for _, b := range block[:pad] {
			if b != expect {
				return Value{}, errors.Wrapf(ErrMalformedEncoding, "invalid sign extension for %s", t.Canonical())
			}
		}
		n := new(big.Int).SetBytes(block[pad:WordSize])
		if negative {
			n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(t.bits)))
		}
		return Value{typ: t, num: n}, nil

	case KindBool:
		for _, b := range block[:WordSize-1] {
			if b != 0 {
				return Value{}, errors.Wrap(ErrMalformedEncoding, "improperly encoded boolean")
			}
		}
		switch block[WordSize-1] {
		case 0:
			return Value{typ: t, flag: false}, nil
		case 1:
			return Value{typ: t, flag: true}, nil
		default:
			return Value{}, errors.Wrap(ErrMalformedEncoding, "improperly encoded boolean")
		}

	case KindAddress:
		for _, b := range block[:WordSize-20] {
			if b != 0 {
				return Value{}, errors.Wrap(ErrMalformedEncoding, "nonzero padding in address word")
			}
		}
		return Value{typ: t, data: append([]byte{}, block[WordSize-20:WordSize]...)}, nil

	case KindFixedBytes:
		return Value{typ: t, data: append([]byte{}, block[:t.size]...)}, nil

	case KindFixedArray:
		list := make([]Value, t.size)
		stride := t.elem.headWords * WordSize
		for i := 0; i < t.size; i++ {
			v, err := decodeStatic(t.elem, block[i*stride:(i+1)*stride])
			if err != nil {
				return Value{}, errors.Wrapf(err, "element %d", i)
			}
			list[i] = v
		}
		return Value{typ: t, list: list}, nil

	case KindTuple:
		list := make([]Value, len(t.fields))
		cursor := 0
		for i, f := range t.fields {
			size := f.Type.headWords * WordSize
			v, err := decodeStatic(f.Type, block[cursor:cursor+size])
			if err != nil {
				return Value{}, errors.Wrapf(err, "member %d (%s)", i, f.Name)
			}
			list[i] = v
			cursor += size
		}
		return Value{typ: t, list: list}, nil

	default:
		return Value{}, errors.Wrapf(ErrMalformedEncoding, "type %s is not static", t.Canonical())
	}
}

// readUintWord reads the word at the given byte offset as an unsigned
// integer that must fit the platform int range.
func readUintWord(section []byte, at int) (uint64, error) {
	if at < 0 || at+WordSize > len(section) {
		return 0, errors.Wrapf(ErrMalformedEncoding, "truncated buffer: no word at offset %d", at)
	}
	n := new(big.Int).SetBytes(section[at : at+WordSize])
	if !n.IsUint64() || n.Uint64() > math.MaxInt32 {
		return 0, errors.Wrapf(ErrMalformedEncoding, "unreasonably large offset or length word")
	}
	return n.Uint64(), nil
}
