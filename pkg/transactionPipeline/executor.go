package transactionPipeline

import (
	"context"
	"math/big"
	"time"

	"github.com/ethbind/ethbind/internal/metrics/metricsTypes"
	"github.com/ethbind/ethbind/pkg/clients/ethereum"
	"github.com/ethbind/ethbind/pkg/eventBus"
	"github.com/ethbind/ethbind/pkg/eventBus/eventBusTypes"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Backend is the node surface the executor drives. *ethereum.Client
// satisfies it.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	GetBlockNumber(ctx context.Context) (uint64, error)
	GetTransactionCount(ctx context.Context, address common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestPriorityFee(ctx context.Context) (*big.Int, error)
	GetLatestBaseFee(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error)
	GetTransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	GetTransactionByHash(ctx context.Context, txHash common.Hash) (found bool, pending bool, err error)
}

// MetricsRecorder receives outcome counters and confirmation timings.
// *prometheus.PrometheusMetricsClient satisfies it.
type MetricsRecorder interface {
	Incr(name string, labels []metricsTypes.MetricsLabel, value float64) error
	Timing(name string, value time.Duration, labels []metricsTypes.MetricsLabel) error
}

type ExecutorConfig struct {
	// PollInterval is the fixed delay between receipt polls.
	PollInterval time.Duration

	// MaxWait bounds the total time spent waiting for confirmation.
	MaxWait time.Duration

	// Confirmations is how many blocks must build on top of the block
	// containing the transaction before it counts as confirmed. Zero
	// accepts the transaction as soon as it is mined.
	Confirmations uint64
}

func DefaultExecutorConfig() *ExecutorConfig {
	return &ExecutorConfig{
		PollInterval:  7 * time.Second,
		MaxWait:       5 * time.Minute,
		Confirmations: 0,
	}
}

// Result records where a transaction ended up. Receipt is set only for
// confirmed transactions.
type Result struct {
	State   State
	TxHash  common.Hash
	Receipt *types.Receipt
}

// Executor runs transactions through the build, estimate, sign, submit
// and confirm stages. A single Execute call owns one transaction from
// start to terminal state; it never resubmits.
type Executor struct {
	backend Backend
	signer  Signer
	config  *ExecutorConfig
	logger  *zap.Logger
	metrics MetricsRecorder
	bus     *eventBus.EventBus
}

func NewExecutor(backend Backend, signer Signer, cfg *ExecutorConfig, l *zap.Logger) *Executor {
	if cfg == nil {
		cfg = DefaultExecutorConfig()
	}
	return &Executor{
		backend: backend,
		signer:  signer,
		config:  cfg,
		logger:  l,
	}
}

// WithMetrics attaches a recorder for outcome counters and timings.
func (e *Executor) WithMetrics(m MetricsRecorder) *Executor {
	e.metrics = m
	return e
}

// WithEventBus publishes an Event_TransactionFinalized for every terminal
// state reached.
func (e *Executor) WithEventBus(bus *eventBus.EventBus) *Executor {
	e.bus = bus
	return e
}

// Execute drives req to a terminal state. It returns a Result for
// StateConfirmed, and a Result alongside ErrDropped or ErrTimedOut for
// the other terminal states so the caller still learns the hash.
func (e *Executor) Execute(ctx context.Context, req *TransactionRequest) (*Result, error) {
	start := time.Now()

	tx, err := e.buildAndSign(ctx, req)
	if err != nil {
		return nil, err
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "failed to serialize transaction")
	}

	txHash, err := e.backend.SendRawTransaction(ctx, raw)
	if err != nil {
		return nil, errors.Wrap(err, "failed to submit transaction")
	}
	e.logger.Sugar().Infow("Submitted transaction",
		zap.String("txHash", txHash.String()),
		zap.Uint64("nonce", tx.Nonce()),
	)

	result, err := e.waitForConfirmation(ctx, txHash)
	e.record(result, time.Since(start))
	e.publish(result)
	return result, err
}

func (e *Executor) buildAndSign(ctx context.Context, req *TransactionRequest) (*types.Transaction, error) {
	chainID, err := e.backend.ChainID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch chain id")
	}

	from := e.signer.Address()

	nonce := uint64(0)
	if req.Nonce != nil {
		nonce = *req.Nonce
	} else {
		nonce, err = e.backend.GetTransactionCount(ctx, from)
		if err != nil {
			return nil, errors.Wrap(err, "failed to fetch nonce")
		}
	}

	gasLimit := req.GasLimit
	if gasLimit == 0 {
		gasLimit, err = e.backend.EstimateGas(ctx, ethereum.CallMsg{
			From:  from,
			To:    req.To,
			Value: req.Value,
			Data:  req.Data,
		})
		if err != nil {
			revertErr := &ethereum.RevertError{}
			if errors.As(err, &revertErr) {
				return nil, errors.Wrapf(ErrGasEstimationFailed, "execution reverted: %s", revertErr.Reason)
			}
			return nil, errors.Wrapf(ErrGasEstimationFailed, "%v", err)
		}
	}

	var unsigned *types.Transaction
	if req.Legacy {
		gasPrice := req.GasPrice
		if gasPrice == nil {
			gasPrice, err = e.backend.SuggestGasPrice(ctx)
			if err != nil {
				return nil, errors.Wrap(err, "failed to fetch gas price")
			}
		}
		unsigned = types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			To:       req.To,
			Value:    req.value(),
			Gas:      gasLimit,
			GasPrice: gasPrice,
			Data:     req.Data,
		})
	} else {
		tip := req.GasTipCap
		if tip == nil {
			tip, err = e.backend.SuggestPriorityFee(ctx)
			if err != nil {
				return nil, errors.Wrap(err, "failed to fetch priority fee")
			}
		}
		feeCap := req.GasFeeCap
		if feeCap == nil {
			baseFee, err := e.backend.GetLatestBaseFee(ctx)
			if err != nil {
				return nil, errors.Wrap(err, "failed to fetch base fee")
			}
			// feeCap = 2*baseFee + tip rides out base fee growth
			// across a few blocks.
			feeCap = new(big.Int).Add(new(big.Int).Mul(baseFee, big.NewInt(2)), tip)
		}
		unsigned = types.NewTx(&types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			To:        req.To,
			Value:     req.value(),
			Gas:       gasLimit,
			GasTipCap: tip,
			GasFeeCap: feeCap,
			Data:      req.Data,
		})
	}

	signed, err := e.signer.SignTx(chainID, unsigned)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign transaction")
	}
	return signed, nil
}

// waitForConfirmation polls at a fixed interval until the transaction
// reaches a terminal state. Transient backend errors are absorbed here;
// only the deadline or a definitive observation ends the loop.
func (e *Executor) waitForConfirmation(ctx context.Context, txHash common.Hash) (*Result, error) {
	deadline := time.Now().Add(e.config.MaxWait)
	ticker := time.NewTicker(e.config.PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := e.backend.GetTransactionReceipt(ctx, txHash)
		if err != nil {
			e.logger.Sugar().Debugw("Receipt poll failed, retrying",
				zap.String("txHash", txHash.String()),
				zap.Error(err),
			)
		} else if receipt != nil {
			confirmed, err := e.isConfirmed(ctx, receipt)
			if err != nil {
				e.logger.Sugar().Debugw("Head poll failed, retrying", zap.Error(err))
			} else if confirmed {
				return &Result{State: StateConfirmed, TxHash: txHash, Receipt: receipt}, nil
			}
		} else {
			found, _, err := e.backend.GetTransactionByHash(ctx, txHash)
			if err != nil {
				e.logger.Sugar().Debugw("Transaction probe failed, retrying", zap.Error(err))
			} else if !found {
				return &Result{State: StateDropped, TxHash: txHash}, errors.Wrapf(ErrDropped, "transaction %s", txHash)
			}
		}

		if time.Now().After(deadline) {
			return &Result{State: StateTimedOut, TxHash: txHash}, errors.Wrapf(ErrTimedOut, "transaction %s after %s", txHash, e.config.MaxWait)
		}

		select {
		case <-ctx.Done():
			return &Result{State: StateTimedOut, TxHash: txHash}, errors.Wrapf(ErrTimedOut, "transaction %s: %v", txHash, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (e *Executor) isConfirmed(ctx context.Context, receipt *types.Receipt) (bool, error) {
	if e.config.Confirmations == 0 {
		return true, nil
	}
	head, err := e.backend.GetBlockNumber(ctx)
	if err != nil {
		return false, err
	}
	return head >= receipt.BlockNumber.Uint64()+e.config.Confirmations, nil
}

func (e *Executor) record(result *Result, elapsed time.Duration) {
	if e.metrics == nil || result == nil {
		return
	}
	labels := []metricsTypes.MetricsLabel{{Name: "outcome", Value: result.State.String()}}
	_ = e.metrics.Incr(metricsTypes.Metric_Incr_TransactionOutcome, labels, 1)
	_ = e.metrics.Timing(metricsTypes.Metric_Timing_Confirmation, elapsed, labels)
}

func (e *Executor) publish(result *Result) {
	if e.bus == nil || result == nil {
		return
	}
	e.bus.Publish(&eventBusTypes.Event{
		Name: eventBusTypes.Event_TransactionFinalized,
		Data: result,
	})
}
