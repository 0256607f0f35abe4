package transactionPipeline

import "github.com/pkg/errors"

var (
	// ErrGasEstimationFailed means the node predicted the transaction
	// would revert before it was ever submitted.
	ErrGasEstimationFailed = errors.New("gas estimation failed")

	// ErrDropped means a submitted transaction disappeared from the
	// node's mempool without being mined.
	ErrDropped = errors.New("transaction dropped from mempool")

	// ErrTimedOut means the transaction was still unconfirmed when the
	// configured maximum wait elapsed. The transaction may still be
	// mined later.
	ErrTimedOut = errors.New("confirmation wait timed out")
)
