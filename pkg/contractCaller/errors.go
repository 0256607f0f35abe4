package contractCaller

import "github.com/pkg/errors"

var (
	// ErrArgumentMismatch means the supplied Go values do not fit the
	// function's declared parameter types.
	ErrArgumentMismatch = errors.New("argument mismatch")

	// ErrUnknownFunction means the descriptor has no function under the
	// requested name or signature.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrAmbiguousFunction means a bare name matched several overloads;
	// the caller must use the full canonical signature.
	ErrAmbiguousFunction = errors.New("ambiguous function name")

	// ErrExecutionFailed means the transaction was mined but the EVM
	// reverted it; gas was spent and no state change took effect.
	ErrExecutionFailed = errors.New("transaction execution failed on-chain")

	// ErrUnlinkedBytecode means the bytecode still contains library
	// placeholders that no address was provided for.
	ErrUnlinkedBytecode = errors.New("bytecode has unlinked library references")
)
