// Package contractCaller executes calls against a deployed contract
// through its parsed ABI descriptor. Read-only functions go out as
// eth_call against a pinned block; mutating functions run through the
// transaction pipeline.
package contractCaller

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethbind/ethbind/internal/metrics/metricsTypes"
	"github.com/ethbind/ethbind/pkg/abi"
	"github.com/ethbind/ethbind/pkg/clients/ethereum"
	"github.com/ethbind/ethbind/pkg/contractAbi"
	"github.com/ethbind/ethbind/pkg/transactionPipeline"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// CallBackend is the read-only node surface. *ethereum.Client satisfies it.
type CallBackend interface {
	GetBlockNumber(ctx context.Context) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	GetCode(ctx context.Context, address common.Address) ([]byte, error)
}

// Sender runs a prepared transaction to a terminal state.
// *transactionPipeline.Executor satisfies it.
type Sender interface {
	Execute(ctx context.Context, req *transactionPipeline.TransactionRequest) (*transactionPipeline.Result, error)
}

// MetricsRecorder counts call outcomes.
// *prometheus.PrometheusMetricsClient satisfies it.
type MetricsRecorder interface {
	Incr(name string, labels []metricsTypes.MetricsLabel, value float64) error
}

// CallOpts adjust a single read-only call.
type CallOpts struct {
	// From is the apparent caller; msg.sender inside the contract.
	From common.Address

	// BlockNumber pins the call to a specific block. Nil pins to the
	// latest block observed at call time, so multi-value reads stay
	// consistent with each other.
	BlockNumber *big.Int
}

// SendOpts adjust a single state-mutating submission.
type SendOpts struct {
	Value    *big.Int
	GasLimit uint64
	Nonce    *uint64
}

// Contract binds a descriptor to a deployed address. Configure it before
// first use; afterwards it is safe for concurrent use, nothing is mutated.
type Contract struct {
	descriptor *contractAbi.Descriptor
	address    common.Address
	backend    CallBackend
	sender     Sender
	logger     *zap.Logger
	metrics    MetricsRecorder
}

// NewContract binds descriptor to the contract at address. sender may be
// nil for a read-only binding; Send and similar then fail.
func NewContract(descriptor *contractAbi.Descriptor, address common.Address, backend CallBackend, sender Sender, l *zap.Logger) *Contract {
	return &Contract{
		descriptor: descriptor,
		address:    address,
		backend:    backend,
		sender:     sender,
		logger:     l,
	}
}

// WithMetrics attaches an outcome counter for Call and Send.
func (c *Contract) WithMetrics(m MetricsRecorder) *Contract {
	c.metrics = m
	return c
}

func (c *Contract) Address() common.Address {
	return c.address
}

func (c *Contract) Descriptor() *contractAbi.Descriptor {
	return c.descriptor
}

// resolveFunction accepts either a bare name or a full canonical
// signature. A bare name is rejected when overloads make it ambiguous.
func (c *Contract) resolveFunction(method string) (*contractAbi.Function, error) {
	if strings.Contains(method, "(") {
		fn, ok := c.descriptor.FunctionBySignature(method)
		if !ok {
			return nil, errors.Wrapf(ErrUnknownFunction, "signature %q", method)
		}
		return fn, nil
	}
	overloads := c.descriptor.FunctionsByName(method)
	switch len(overloads) {
	case 0:
		return nil, errors.Wrapf(ErrUnknownFunction, "name %q", method)
	case 1:
		return overloads[0], nil
	default:
		signatures := make([]string, len(overloads))
		for i, fn := range overloads {
			signatures[i] = fn.Signature
		}
		return nil, errors.Wrapf(ErrAmbiguousFunction, "%q matches %s", method, strings.Join(signatures, ", "))
	}
}

// convertArgs turns caller-supplied Go values into typed values matching
// the function inputs. Arity and per-argument shape are both enforced.
func convertArgs(fn *contractAbi.Function, args []any) ([]abi.Value, error) {
	if len(args) != len(fn.Inputs) {
		return nil, errors.Wrapf(ErrArgumentMismatch, "%s takes %d arguments, got %d", fn.Signature, len(fn.Inputs), len(args))
	}
	values := make([]abi.Value, len(args))
	for i, arg := range args {
		v, err := abi.NewValue(fn.Inputs[i].Type, arg)
		if err != nil {
			return nil, errors.Wrapf(ErrArgumentMismatch, "argument %d (%s): %v", i, fn.Inputs[i].Name, err)
		}
		values[i] = v
	}
	return values, nil
}

// Call executes a function as an eth_call and decodes its outputs. The
// method may be a bare name or a canonical signature; outs receive the
// decoded values positionally and may be nil to discard them.
func (c *Contract) Call(ctx context.Context, opts *CallOpts, method string, args []any, outs ...any) ([]abi.Value, error) {
	decoded, err := c.call(ctx, opts, method, args, outs...)
	c.recordCall(err)
	return decoded, err
}

func (c *Contract) call(ctx context.Context, opts *CallOpts, method string, args []any, outs ...any) ([]abi.Value, error) {
	if opts == nil {
		opts = &CallOpts{}
	}
	fn, err := c.resolveFunction(method)
	if err != nil {
		return nil, err
	}

	values, err := convertArgs(fn, args)
	if err != nil {
		return nil, err
	}
	data, err := fn.EncodeCall(values)
	if err != nil {
		return nil, err
	}

	blockNumber := opts.BlockNumber
	if blockNumber == nil {
		head, err := c.backend.GetBlockNumber(ctx)
		if err != nil {
			return nil, err
		}
		blockNumber = new(big.Int).SetUint64(head)
	}

	returnData, err := c.backend.CallContract(ctx, ethereum.CallMsg{
		From: opts.From,
		To:   &c.address,
		Data: data,
	}, blockNumber)
	if err != nil {
		return nil, err
	}

	decoded, err := fn.DecodeOutput(returnData)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding output of %s", fn.Signature)
	}

	if len(outs) > 0 {
		if len(outs) > len(decoded) {
			return nil, errors.Wrapf(ErrArgumentMismatch, "%s returns %d values, %d receivers given", fn.Signature, len(decoded), len(outs))
		}
		for i, out := range outs {
			if out == nil {
				continue
			}
			if err := decoded[i].AssignTo(out); err != nil {
				return nil, errors.Wrapf(ErrArgumentMismatch, "output %d: %v", i, err)
			}
		}
	}
	return decoded, nil
}

// Send executes a state-mutating function through the transaction
// pipeline and waits for a terminal state. A transaction mined with a
// failed status returns ErrExecutionFailed alongside the result.
func (c *Contract) Send(ctx context.Context, opts *SendOpts, method string, args ...any) (*transactionPipeline.Result, error) {
	result, err := c.send(ctx, opts, method, args...)
	c.recordCall(err)
	return result, err
}

func (c *Contract) send(ctx context.Context, opts *SendOpts, method string, args ...any) (*transactionPipeline.Result, error) {
	if c.sender == nil {
		return nil, errors.New("contract is bound read-only; no sender configured")
	}
	if opts == nil {
		opts = &SendOpts{}
	}
	fn, err := c.resolveFunction(method)
	if err != nil {
		return nil, err
	}
	if fn.IsReadOnly() {
		return nil, errors.Wrapf(ErrArgumentMismatch, "%s is read-only; use Call", fn.Signature)
	}

	values, err := convertArgs(fn, args)
	if err != nil {
		return nil, err
	}
	data, err := fn.EncodeCall(values)
	if err != nil {
		return nil, err
	}

	c.logger.Sugar().Debugw("Sending contract transaction",
		zap.String("contract", c.address.String()),
		zap.String("function", fn.Signature),
	)

	result, err := c.sender.Execute(ctx, &transactionPipeline.TransactionRequest{
		To:       &c.address,
		Data:     data,
		Value:    opts.Value,
		GasLimit: opts.GasLimit,
		Nonce:    opts.Nonce,
	})
	if err != nil {
		return result, err
	}
	if result.Receipt != nil && result.Receipt.Status == types.ReceiptStatusFailed {
		return result, errors.Wrapf(ErrExecutionFailed, "transaction %s", result.TxHash)
	}
	return result, nil
}

func (c *Contract) recordCall(err error) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	_ = c.metrics.Incr(metricsTypes.Metric_Incr_ContractCalls, []metricsTypes.MetricsLabel{
		{Name: "status", Value: status},
	}, 1)
}

// Deploy submits contract creation bytecode with encoded constructor
// arguments appended, waits for it to confirm, and binds the resulting
// address. A descriptor without a constructor entry accepts no arguments.
func Deploy(ctx context.Context, descriptor *contractAbi.Descriptor, bytecode []byte, backend CallBackend, sender Sender, l *zap.Logger, opts *SendOpts, args ...any) (*Contract, *transactionPipeline.Result, error) {
	if sender == nil {
		return nil, nil, errors.New("deployment requires a sender")
	}
	if opts == nil {
		opts = &SendOpts{}
	}

	var inputs []contractAbi.Parameter
	if ctor := descriptor.Constructor(); ctor != nil {
		inputs = ctor.Inputs
	}
	if len(args) != len(inputs) {
		return nil, nil, errors.Wrapf(ErrArgumentMismatch, "constructor takes %d arguments, got %d", len(inputs), len(args))
	}

	data := append([]byte{}, bytecode...)
	if len(args) > 0 {
		values := make([]abi.Value, len(args))
		for i, arg := range args {
			v, err := abi.NewValue(inputs[i].Type, arg)
			if err != nil {
				return nil, nil, errors.Wrapf(ErrArgumentMismatch, "constructor argument %d (%s): %v", i, inputs[i].Name, err)
			}
			values[i] = v
		}
		encoded, err := abi.Encode(values)
		if err != nil {
			return nil, nil, err
		}
		data = append(data, encoded...)
	}

	result, err := sender.Execute(ctx, &transactionPipeline.TransactionRequest{
		To:       nil,
		Data:     data,
		Value:    opts.Value,
		GasLimit: opts.GasLimit,
		Nonce:    opts.Nonce,
	})
	if err != nil {
		return nil, result, err
	}
	if result.Receipt == nil {
		return nil, result, errors.New("deployment confirmed without a receipt")
	}
	if result.Receipt.Status == types.ReceiptStatusFailed {
		return nil, result, errors.Wrapf(ErrExecutionFailed, "deployment %s", result.TxHash)
	}

	l.Sugar().Infow("Deployed contract",
		zap.String("address", result.Receipt.ContractAddress.String()),
		zap.String("txHash", result.TxHash.String()),
	)
	return NewContract(descriptor, result.Receipt.ContractAddress, backend, sender, l), result, nil
}
