package abi

import "github.com/pkg/errors"

var (
	// ErrInvalidType indicates a type name that does not resolve against the
	// Solidity canonical grammar, or an out-of-range width or length.
	ErrInvalidType = errors.New("invalid abi type")

	// ErrValueMismatch indicates a value whose shape does not match the type
	// it was paired with. This is a programming error on the producer side,
	// not a data error.
	ErrValueMismatch = errors.New("abi value does not match type")

	// ErrMalformedEncoding indicates a byte stream that does not decode
	// against the declared types: truncated buffers, offsets or lengths
	// pointing outside the buffer, or padding bits that are required to be
	// zero but are not. Decoding is strict and surfaces producer bugs
	// instead of masking them.
	ErrMalformedEncoding = errors.New("malformed abi encoding")
)
