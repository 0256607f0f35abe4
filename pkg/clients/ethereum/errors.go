package ethereum

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"

	"github.com/ethbind/ethbind/pkg/abi"
)

// ErrNodeUnavailable wraps transport-level failures talking to the node.
// The retry policy is the caller's; nothing here retries.
var ErrNodeUnavailable = errors.New("ethereum node unavailable")

func wrapTransportErr(err error) error {
	return errors.Wrapf(ErrNodeUnavailable, "%v", err)
}

// revertSelector is the 4-byte selector of Error(string), the standard
// encoding nodes return for require(..., "reason") failures.
var revertSelector = [4]byte{0x08, 0xc3, 0x79, 0xa0}

// RevertError is a deterministic on-chain rejection. Reason carries the
// decoded Error(string) message when the revert data held one; Data is the
// raw revert payload for custom errors.
type RevertError struct {
	Reason string
	Data   []byte
}

func (e *RevertError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("execution reverted: %s", e.Reason)
	}
	if len(e.Data) > 0 {
		return fmt.Sprintf("execution reverted with data 0x%x", e.Data)
	}
	return "execution reverted"
}

// revertFromRPCError inspects a JSON-RPC error for revert data; it returns
// nil if the error does not look like an execution failure.
func revertFromRPCError(err error) *RevertError {
	de, ok := err.(rpc.DataError)
	if !ok {
		return nil
	}
	raw := de.ErrorData()
	if raw == nil {
		return nil
	}
	hexData, ok := raw.(string)
	if !ok {
		return nil
	}
	data, decodeErr := hexutil.Decode(hexData)
	if decodeErr != nil {
		return nil
	}
	return NewRevertError(data)
}

// NewRevertError builds a RevertError from raw revert data, extracting the
// standard Error(string) reason when present.
func NewRevertError(data []byte) *RevertError {
	revert := &RevertError{Data: data}
	if len(data) >= 4 && [4]byte(data[:4]) == revertSelector {
		if values, err := abi.Decode([]*abi.Type{abi.String_()}, data[4:]); err == nil && len(values) == 1 {
			revert.Reason = values[0].Text()
		}
	}
	return revert
}
