package abi

import (
	"math/big"

	"github.com/pkg/errors"
)

var twoPow256 = new(big.Int).Lsh(big.NewInt(1), 256)

// Encode serializes the values into the standard contract ABI head/tail
// layout. Static values are written inline in the head; dynamic values
// occupy one offset word in the head, with their actual encoding appended
// to a tail region in declaration order. Offsets are byte distances from
// the start of the section.
func Encode(values []Value) ([]byte, error) {
	return encodeSection(values)
}

func encodeSection(values []Value) ([]byte, error) {
	headSize := 0
	for _, v := range values {
		if v.typ == nil {
			return nil, errors.Wrap(ErrValueMismatch, "cannot encode zero Value")
		}
		headSize += v.typ.headWords * WordSize
	}

	head := make([]byte, 0, headSize)
	var tail []byte
	for _, v := range values {
		enc, err := encodeValue(v)
		if err != nil {
			return nil, err
		}
		if v.typ.dynamic {
			head = append(head, uintWord(uint64(headSize+len(tail)))...)
			tail = append(tail, enc...)
		} else {
			head = append(head, enc...)
		}
	}
	return append(head, tail...), nil
}

// encodeValue produces the standalone encoding of one value, including the
// length prefix for bytes, string and dynamically-sized arrays.
func encodeValue(v Value) ([]byte, error) {
	switch v.typ.kind {
	case KindUint, KindInt:
		return intWord(v.typ, v.num)

	case KindBool:
		w := make([]byte, WordSize)
		if v.flag {
			w[WordSize-1] = 1
		}
		return w, nil

	case KindAddress:
		w := make([]byte, WordSize)
		copy(w[WordSize-len(v.data):], v.data)
		return w, nil

	case KindFixedBytes:
		w := make([]byte, WordSize)
		copy(w, v.data)
		return w, nil

	case KindBytes, KindString:
		out := uintWord(uint64(len(v.data)))
		out = append(out, v.data...)
		if pad := len(v.data) % WordSize; pad != 0 {
			out = append(out, make([]byte, WordSize-pad)...)
		}
		return out, nil

	case KindFixedArray, KindTuple:
		return encodeSection(v.list)

	case KindArray:
		body, err := encodeSection(v.list)
		if err != nil {
			return nil, err
		}
		return append(uintWord(uint64(len(v.list))), body...), nil

	default:
		return nil, errors.Wrapf(ErrValueMismatch, "unsupported kind %d", v.typ.kind)
	}
}

// uintWord returns n as a single left-padded big-endian word.
func uintWord(n uint64) []byte {
	w := make([]byte, WordSize)
	new(big.Int).SetUint64(n).FillBytes(w)
	return w
}

// intWord returns the two's-complement word encoding of n for the given
// integer type.
func intWord(t *Type, n *big.Int) ([]byte, error) {
	w := make([]byte, WordSize)
	if n.Sign() < 0 {
		if t.kind == KindUint {
			return nil, errors.Wrapf(ErrValueMismatch, "negative value for %s", t.Canonical())
		}
		new(big.Int).Add(twoPow256, n).FillBytes(w)
		return w, nil
	}
	n.FillBytes(w)
	return w, nil
}
