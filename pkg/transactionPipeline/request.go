package transactionPipeline

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TransactionRequest is the mutable builder for one transaction. To, Data
// and Value are caller intent and are never inferred; gas, fees and nonce
// may be left unset and are filled from the node during execution, before
// signing.
type TransactionRequest struct {
	From  common.Address
	To    *common.Address // nil deploys a contract
	Data  []byte
	Value *big.Int

	// GasLimit of 0 asks the node's estimator.
	GasLimit uint64

	// Legacy forces a pre-EIP-1559 transaction priced by GasPrice (or the
	// node's gas price oracle when nil). Otherwise GasFeeCap/GasTipCap are
	// used, both derived from the node when nil.
	Legacy    bool
	GasPrice  *big.Int
	GasFeeCap *big.Int
	GasTipCap *big.Int

	// Nonce of nil fetches the account's pending transaction count.
	Nonce *uint64
}

func (r *TransactionRequest) value() *big.Int {
	if r.Value == nil {
		return new(big.Int)
	}
	return r.Value
}
