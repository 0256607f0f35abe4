package contractCaller

import (
	"context"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethbind/ethbind/internal/metrics/metricsTypes"
	"github.com/ethbind/ethbind/internal/tests"
	"github.com/ethbind/ethbind/pkg/abi"
	"github.com/ethbind/ethbind/pkg/clients/ethereum"
	"github.com/ethbind/ethbind/pkg/contractAbi"
	"github.com/ethbind/ethbind/pkg/transactionPipeline"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	contractAddress = common.HexToAddress("0x1000000000000000000000000000000000000001")
	holderAddress   = common.HexToAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")
)

type fakeCallBackend struct {
	head       uint64
	returnData []byte
	callErr    error

	lastData  []byte
	lastBlock *big.Int
}

func (f *fakeCallBackend) GetBlockNumber(ctx context.Context) (uint64, error) {
	return f.head, nil
}

func (f *fakeCallBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.lastData = msg.Data
	f.lastBlock = blockNumber
	if f.callErr != nil {
		return nil, f.callErr
	}
	return f.returnData, nil
}

func (f *fakeCallBackend) GetCode(ctx context.Context, address common.Address) ([]byte, error) {
	return []byte{0x60}, nil
}

type fakeSender struct {
	lastReq *transactionPipeline.TransactionRequest
	result  *transactionPipeline.Result
	err     error
}

func (f *fakeSender) Execute(ctx context.Context, req *transactionPipeline.TransactionRequest) (*transactionPipeline.Result, error) {
	f.lastReq = req
	return f.result, f.err
}

func uint256Value(t *testing.T, v *big.Int) abi.Value {
	typ, err := abi.Uint(256)
	require.NoError(t, err)
	value, err := abi.NewValue(typ, v)
	require.NoError(t, err)
	return value
}

func mustDescriptor(t *testing.T, doc string) *contractAbi.Descriptor {
	d, err := contractAbi.Parse([]byte(doc))
	require.NoError(t, err)
	return d
}

func encodeWords(t *testing.T, values ...abi.Value) []byte {
	data, err := abi.Encode(values)
	require.NoError(t, err)
	return data
}

func Test_CallDecodesOutputs(t *testing.T) {
	descriptor := mustDescriptor(t, tests.Erc20AbiJson)
	balance := uint256Value(t, big.NewInt(1_000_000))

	backend := &fakeCallBackend{head: 123, returnData: encodeWords(t, balance)}
	contract := NewContract(descriptor, contractAddress, backend, nil, zap.NewNop())

	var got *big.Int
	decoded, err := contract.Call(context.Background(), nil, "balanceOf", []any{holderAddress}, &got)
	require.NoError(t, err)

	require.Len(t, decoded, 1)
	assert.Equal(t, big.NewInt(1_000_000), got)

	// balanceOf(address) selector plus one padded address word.
	assert.Equal(t, "70a08231", hex.EncodeToString(backend.lastData[:4]))
	assert.Len(t, backend.lastData, 4+32)
}

func Test_CallPinsLatestBlock(t *testing.T) {
	descriptor := mustDescriptor(t, tests.Erc20AbiJson)
	supply := uint256Value(t, big.NewInt(500))

	backend := &fakeCallBackend{head: 9_001, returnData: encodeWords(t, supply)}
	contract := NewContract(descriptor, contractAddress, backend, nil, zap.NewNop())

	_, err := contract.Call(context.Background(), nil, "totalSupply", nil)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(9_001), backend.lastBlock)

	_, err = contract.Call(context.Background(), &CallOpts{BlockNumber: big.NewInt(42)}, "totalSupply", nil)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(42), backend.lastBlock)
}

func Test_CallShortReturnDataIsMalformed(t *testing.T) {
	descriptor := mustDescriptor(t, tests.Erc20AbiJson)
	backend := &fakeCallBackend{head: 1, returnData: []byte{0x00, 0x01, 0x02}}
	contract := NewContract(descriptor, contractAddress, backend, nil, zap.NewNop())

	_, err := contract.Call(context.Background(), nil, "balanceOf", []any{holderAddress})
	assert.True(t, errors.Is(err, abi.ErrMalformedEncoding))
}

func Test_CallOverloadResolution(t *testing.T) {
	descriptor := mustDescriptor(t, tests.OverloadedAbiJson)
	result, err := abi.NewValue(abi.Bool(), true)
	require.NoError(t, err)
	backend := &fakeCallBackend{head: 1, returnData: encodeWords(t, result)}
	contract := NewContract(descriptor, contractAddress, backend, nil, zap.NewNop())

	t.Run("bare overloaded name is ambiguous", func(t *testing.T) {
		_, err := contract.Call(context.Background(), nil, "getValue", []any{true})
		assert.True(t, errors.Is(err, ErrAmbiguousFunction))
	})
	t.Run("canonical signature selects one overload", func(t *testing.T) {
		var got bool
		_, err := contract.Call(context.Background(), nil, "getValue(bool)", []any{true}, &got)
		require.NoError(t, err)
		assert.True(t, got)
	})
	t.Run("unknown signature", func(t *testing.T) {
		_, err := contract.Call(context.Background(), nil, "getValue(string)", []any{"x"})
		assert.True(t, errors.Is(err, ErrUnknownFunction))
	})
}

func Test_CallArgumentMismatch(t *testing.T) {
	descriptor := mustDescriptor(t, tests.Erc20AbiJson)
	backend := &fakeCallBackend{head: 1}
	contract := NewContract(descriptor, contractAddress, backend, nil, zap.NewNop())

	t.Run("wrong arity", func(t *testing.T) {
		_, err := contract.Call(context.Background(), nil, "balanceOf", []any{holderAddress, big.NewInt(1)})
		assert.True(t, errors.Is(err, ErrArgumentMismatch))
	})
	t.Run("wrong type", func(t *testing.T) {
		_, err := contract.Call(context.Background(), nil, "balanceOf", []any{"not an address"})
		assert.True(t, errors.Is(err, ErrArgumentMismatch))
	})
}

func Test_SendBuildsTransaction(t *testing.T) {
	descriptor := mustDescriptor(t, tests.Erc20AbiJson)
	sender := &fakeSender{
		result: &transactionPipeline.Result{
			State:  transactionPipeline.StateConfirmed,
			TxHash: common.HexToHash("0xabc1"),
			Receipt: &types.Receipt{
				Status: types.ReceiptStatusSuccessful,
			},
		},
	}
	contract := NewContract(descriptor, contractAddress, &fakeCallBackend{}, sender, zap.NewNop())

	result, err := contract.Send(context.Background(), nil, "transfer", holderAddress, big.NewInt(250))
	require.NoError(t, err)
	assert.Equal(t, transactionPipeline.StateConfirmed, result.State)

	require.NotNil(t, sender.lastReq)
	assert.Equal(t, &contractAddress, sender.lastReq.To)
	assert.Equal(t, "a9059cbb", hex.EncodeToString(sender.lastReq.Data[:4]))
}

func Test_SendReportsOnChainFailure(t *testing.T) {
	descriptor := mustDescriptor(t, tests.Erc20AbiJson)
	sender := &fakeSender{
		result: &transactionPipeline.Result{
			State:   transactionPipeline.StateConfirmed,
			Receipt: &types.Receipt{Status: types.ReceiptStatusFailed},
		},
	}
	contract := NewContract(descriptor, contractAddress, &fakeCallBackend{}, sender, zap.NewNop())

	_, err := contract.Send(context.Background(), nil, "transfer", holderAddress, big.NewInt(250))
	assert.True(t, errors.Is(err, ErrExecutionFailed))
}

func Test_SendRejectsReadOnlyFunctions(t *testing.T) {
	descriptor := mustDescriptor(t, tests.Erc20AbiJson)
	contract := NewContract(descriptor, contractAddress, &fakeCallBackend{}, &fakeSender{}, zap.NewNop())

	_, err := contract.Send(context.Background(), nil, "balanceOf", holderAddress)
	assert.Error(t, err)
}

func Test_SendWithoutSender(t *testing.T) {
	descriptor := mustDescriptor(t, tests.Erc20AbiJson)
	contract := NewContract(descriptor, contractAddress, &fakeCallBackend{}, nil, zap.NewNop())

	_, err := contract.Send(context.Background(), nil, "transfer", holderAddress, big.NewInt(1))
	assert.Error(t, err)
}

type fakeRecorder struct {
	counts map[string]map[string]float64
}

func (f *fakeRecorder) Incr(name string, labels []metricsTypes.MetricsLabel, value float64) error {
	if f.counts == nil {
		f.counts = map[string]map[string]float64{}
	}
	if f.counts[name] == nil {
		f.counts[name] = map[string]float64{}
	}
	for _, label := range labels {
		if label.Name == "status" {
			f.counts[name][label.Value] += value
		}
	}
	return nil
}

func Test_CallAndSendRecordOutcomeMetrics(t *testing.T) {
	descriptor := mustDescriptor(t, tests.Erc20AbiJson)
	recorder := &fakeRecorder{}
	backend := &fakeCallBackend{head: 1, returnData: encodeWords(t, uint256Value(t, big.NewInt(9)))}
	sender := &fakeSender{
		result: &transactionPipeline.Result{
			State:   transactionPipeline.StateConfirmed,
			Receipt: &types.Receipt{Status: types.ReceiptStatusSuccessful},
		},
	}
	contract := NewContract(descriptor, contractAddress, backend, sender, zap.NewNop()).WithMetrics(recorder)

	_, err := contract.Call(context.Background(), nil, "balanceOf", []any{holderAddress})
	require.NoError(t, err)

	_, err = contract.Send(context.Background(), nil, "transfer", holderAddress, big.NewInt(1))
	require.NoError(t, err)

	// Arity failures count as failed calls too.
	_, err = contract.Call(context.Background(), nil, "balanceOf", []any{})
	require.Error(t, err)

	counts := recorder.counts[metricsTypes.Metric_Incr_ContractCalls]
	assert.Equal(t, float64(2), counts["success"])
	assert.Equal(t, float64(1), counts["failure"])
}

func Test_DeployAppendsConstructorArgs(t *testing.T) {
	descriptor := mustDescriptor(t, tests.ConstructorAbiJson)
	deployed := common.HexToAddress("0x2000000000000000000000000000000000000002")
	sender := &fakeSender{
		result: &transactionPipeline.Result{
			State: transactionPipeline.StateConfirmed,
			Receipt: &types.Receipt{
				Status:          types.ReceiptStatusSuccessful,
				ContractAddress: deployed,
			},
		},
	}
	bytecode := []byte{0x60, 0x80, 0x60, 0x40}

	contract, result, err := Deploy(context.Background(), descriptor, bytecode, &fakeCallBackend{}, sender, zap.NewNop(), nil,
		big.NewInt(21_000_000), "Example Token")
	require.NoError(t, err)

	assert.Equal(t, deployed, contract.Address())
	assert.Equal(t, transactionPipeline.StateConfirmed, result.State)

	require.NotNil(t, sender.lastReq)
	assert.Nil(t, sender.lastReq.To)
	assert.Equal(t, bytecode, sender.lastReq.Data[:len(bytecode)])
	// uint256 head word, string offset word, then the string tail.
	assert.Greater(t, len(sender.lastReq.Data), len(bytecode)+2*32)
}

func Test_DeployConstructorArityMismatch(t *testing.T) {
	descriptor := mustDescriptor(t, tests.ConstructorAbiJson)
	_, _, err := Deploy(context.Background(), descriptor, []byte{0x60}, &fakeCallBackend{}, &fakeSender{}, zap.NewNop(), nil)
	assert.True(t, errors.Is(err, ErrArgumentMismatch))
}

func Test_LinkBytecode(t *testing.T) {
	library := common.HexToAddress("0x5B38Da6a701c568545dCfcB03FcB875f56beddC4")
	placeholder := "__SafeMath______________________________"
	code := "6080" + placeholder + "6040"

	t.Run("links a placeholder", func(t *testing.T) {
		linked, err := LinkBytecode(code, map[string]common.Address{"SafeMath": library})
		require.NoError(t, err)
		assert.Contains(t, hex.EncodeToString(linked), "5b38da6a701c568545dcfcb03fcb875f56beddc4")
	})
	t.Run("rejects unlinked placeholders", func(t *testing.T) {
		_, err := LinkBytecode(code, nil)
		assert.True(t, errors.Is(err, ErrUnlinkedBytecode))
	})
	t.Run("accepts a 0x prefix and plain code", func(t *testing.T) {
		linked, err := LinkBytecode("0x6080", nil)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x60, 0x80}, linked)
	})
	t.Run("rejects bad hex", func(t *testing.T) {
		_, err := LinkBytecode("60zz", nil)
		assert.Error(t, err)
	})
}
