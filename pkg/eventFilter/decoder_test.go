package eventFilter

import (
	"math/big"
	"testing"

	"github.com/ethbind/ethbind/internal/tests"
	"github.com/ethbind/ethbind/pkg/abi"
	"github.com/ethbind/ethbind/pkg/contractAbi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	tokenAddress = common.HexToAddress("0x1000000000000000000000000000000000000001")
	fromAddress  = common.HexToAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")
	toAddress    = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

func mustDescriptor(t *testing.T, doc string) *contractAbi.Descriptor {
	d, err := contractAbi.Parse([]byte(doc))
	require.NoError(t, err)
	return d
}

func addressTopic(a common.Address) common.Hash {
	return common.BytesToHash(a.Bytes())
}

func uint256Word(t *testing.T, v *big.Int) []byte {
	typ, err := abi.Uint(256)
	require.NoError(t, err)
	value, err := abi.NewValue(typ, v)
	require.NoError(t, err)
	data, err := abi.Encode([]abi.Value{value})
	require.NoError(t, err)
	return data
}

func transferLog(t *testing.T, d *contractAbi.Descriptor, amount *big.Int) *types.Log {
	event := d.EventsByName("Transfer")[0]
	return &types.Log{
		Address:     tokenAddress,
		Topics:      []common.Hash{event.Topic, addressTopic(fromAddress), addressTopic(toAddress)},
		Data:        uint256Word(t, amount),
		BlockNumber: 100,
		TxHash:      common.HexToHash("0x01"),
		Index:       3,
	}
}

func Test_DecodeLog(t *testing.T) {
	descriptor := mustDescriptor(t, tests.Erc20AbiJson)
	decoder := NewLogDecoder(descriptor, zap.NewNop())

	decoded, err := decoder.DecodeLog(transferLog(t, descriptor, big.NewInt(777)))
	require.NoError(t, err)

	assert.Equal(t, "Transfer", decoded.EventName)
	assert.Equal(t, "Transfer(address,address,uint256)", decoded.Signature)
	assert.Equal(t, tokenAddress, decoded.Address)
	assert.Equal(t, uint64(100), decoded.BlockNumber)
	require.Len(t, decoded.Arguments, 3)

	from, ok := decoded.Argument("from")
	require.True(t, ok)
	assert.True(t, from.Indexed)
	assert.Equal(t, fromAddress, from.Value.Addr())

	to, ok := decoded.Argument("to")
	require.True(t, ok)
	assert.Equal(t, toAddress, to.Value.Addr())

	value, ok := decoded.Argument("value")
	require.True(t, ok)
	assert.False(t, value.Indexed)
	assert.Equal(t, big.NewInt(777), value.Value.Big())
}

func Test_DecodeLogUnknownTopic(t *testing.T) {
	descriptor := mustDescriptor(t, tests.Erc20AbiJson)
	decoder := NewLogDecoder(descriptor, zap.NewNop())

	_, err := decoder.DecodeLog(&types.Log{
		Address: tokenAddress,
		Topics:  []common.Hash{common.HexToHash("0xdead")},
	})
	assert.True(t, errors.Is(err, ErrUnknownEvent))

	_, err = decoder.DecodeLog(&types.Log{Address: tokenAddress})
	assert.True(t, errors.Is(err, ErrUnknownEvent))
}

func Test_DecodeLogTopicArityMismatch(t *testing.T) {
	descriptor := mustDescriptor(t, tests.Erc20AbiJson)
	decoder := NewLogDecoder(descriptor, zap.NewNop())

	event := descriptor.EventsByName("Transfer")[0]
	_, err := decoder.DecodeLog(&types.Log{
		Address: tokenAddress,
		Topics:  []common.Hash{event.Topic, addressTopic(fromAddress)},
		Data:    uint256Word(t, big.NewInt(1)),
	})
	assert.True(t, errors.Is(err, abi.ErrMalformedEncoding))
}

func Test_DecodeLogIndexedDynamicParameter(t *testing.T) {
	descriptor := mustDescriptor(t, tests.TupleAbiJson)
	decoder := NewLogDecoder(descriptor, zap.NewNop())

	event := descriptor.EventsByName("OrderSubmitted")[0]
	orderID := common.HexToHash("0x0102030400000000000000000000000000000000000000000000000000000000")
	uriDigest := crypto.Keccak256Hash([]byte("ipfs://order-meta"))

	decoded, err := decoder.DecodeLog(&types.Log{
		Address: tokenAddress,
		Topics:  []common.Hash{event.Topic, orderID, addressTopic(fromAddress), uriDigest},
		Data:    uint256Word(t, big.NewInt(5)),
	})
	require.NoError(t, err)

	// An indexed string is stored as its keccak digest, so it decodes as
	// a 32-byte value rather than the original text.
	uri, ok := decoded.Argument("uri")
	require.True(t, ok)
	assert.Equal(t, "bytes32", uri.Type)
	assert.Equal(t, uriDigest.Bytes(), uri.Value.Bytes())

	id, ok := decoded.Argument("orderId")
	require.True(t, ok)
	assert.Equal(t, orderID.Bytes(), id.Value.Bytes())
}

func Test_DecodeLogIndexedMultiWordParameter(t *testing.T) {
	doc := `[{"type":"event","name":"Checkpointed","inputs":[
		{"name":"bounds","type":"uint256[2]","indexed":true},
		{"name":"count","type":"uint256","indexed":false}],"anonymous":false}]`
	descriptor := mustDescriptor(t, doc)
	decoder := NewLogDecoder(descriptor, zap.NewNop())

	// A static type wider than one word is hashed into its topic just
	// like a dynamic one, so only the digest is recoverable.
	event := descriptor.EventsByName("Checkpointed")[0]
	boundsDigest := crypto.Keccak256Hash(append(uint256Word(t, big.NewInt(1)), uint256Word(t, big.NewInt(9))...))

	decoded, err := decoder.DecodeLog(&types.Log{
		Address: tokenAddress,
		Topics:  []common.Hash{event.Topic, boundsDigest},
		Data:    uint256Word(t, big.NewInt(2)),
	})
	require.NoError(t, err)

	bounds, ok := decoded.Argument("bounds")
	require.True(t, ok)
	assert.Equal(t, "bytes32", bounds.Type)
	assert.Equal(t, boundsDigest.Bytes(), bounds.Value.Bytes())
}

func Test_DecodeLogsSkipsUnknownEvents(t *testing.T) {
	descriptor := mustDescriptor(t, tests.Erc20AbiJson)
	decoder := NewLogDecoder(descriptor, zap.NewNop())

	known := transferLog(t, descriptor, big.NewInt(10))
	unknown := &types.Log{
		Address: tokenAddress,
		Topics:  []common.Hash{common.HexToHash("0xbeef")},
	}

	decoded, err := decoder.DecodeLogs([]*types.Log{unknown, known, unknown})
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, "Transfer", decoded[0].EventName)
}
