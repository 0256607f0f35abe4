package abiFetcher

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"testing"

	"github.com/btcsuite/btcutil/base58"
	"github.com/ethbind/ethbind/internal/tests"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCodeReader struct {
	code map[common.Address][]byte
}

func (f *fakeCodeReader) GetCode(ctx context.Context, address common.Address) ([]byte, error) {
	return f.code[address], nil
}

// bytecodeWithMetadata appends a solc-style CBOR trailer embedding the
// ipfs multihash of the given digest.
func bytecodeWithMetadata(digest [32]byte) ([]byte, string) {
	multihash := append([]byte{0x12, 0x20}, digest[:]...)
	trailer, _ := hex.DecodeString(cborMarker)
	code := append([]byte{0x60, 0x80, 0x60, 0x40}, trailer...)
	code = append(code, multihash...)
	return code, base58.Encode(multihash)
}

func Test_GetMetadataURIFromBytecode(t *testing.T) {
	fetcher := NewAbiFetcher(&fakeCodeReader{}, DefaultHttpClient(), zap.NewNop())

	digest := crypto.Keccak256Hash([]byte("metadata"))
	code, ipfsHash := bytecodeWithMetadata(digest)

	uri, err := fetcher.GetMetadataURIFromBytecode(code)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%s/%s", DefaultIpfsGateway, ipfsHash), uri)

	_, err = fetcher.GetMetadataURIFromBytecode([]byte{0x60, 0x80})
	assert.Error(t, err)
}

func Test_FetchDescriptor(t *testing.T) {
	digest := crypto.Keccak256Hash([]byte("erc20-metadata"))
	code, ipfsHash := bytecodeWithMetadata(digest)

	address := common.HexToAddress("0x1000000000000000000000000000000000000001")
	reader := &fakeCodeReader{code: map[common.Address][]byte{address: code}}

	httpClient := &http.Client{}
	httpmock.ActivateNonDefault(httpClient)
	defer httpmock.DeactivateAndReset()

	gateway := "https://gateway.example.com/ipfs"
	metadata := fmt.Sprintf(`{"output":{"abi":%s}}`, tests.Erc20AbiJson)
	httpmock.RegisterResponder(http.MethodGet, fmt.Sprintf("%s/%s", gateway, ipfsHash),
		httpmock.NewStringResponder(http.StatusOK, metadata))

	fetcher := NewAbiFetcher(reader, httpClient, zap.NewNop()).WithIpfsGateway(gateway)

	descriptor, err := fetcher.FetchDescriptor(context.Background(), address)
	require.NoError(t, err)

	fn, ok := descriptor.FunctionBySignature("transfer(address,uint256)")
	require.True(t, ok)
	assert.Equal(t, [4]byte{0xa9, 0x05, 0x9c, 0xbb}, fn.Selector)

	// A second fetch parses out of the descriptor cache.
	again, err := fetcher.FetchDescriptor(context.Background(), address)
	require.NoError(t, err)
	assert.Same(t, descriptor, again)
}

func Test_FetchDescriptorNoCode(t *testing.T) {
	fetcher := NewAbiFetcher(&fakeCodeReader{}, DefaultHttpClient(), zap.NewNop())
	_, err := fetcher.FetchDescriptor(context.Background(), common.HexToAddress("0x02"))
	assert.Error(t, err)
}

func Test_FetchDescriptorGatewayFailure(t *testing.T) {
	digest := crypto.Keccak256Hash([]byte("x"))
	code, ipfsHash := bytecodeWithMetadata(digest)
	address := common.HexToAddress("0x03")
	reader := &fakeCodeReader{code: map[common.Address][]byte{address: code}}

	httpClient := &http.Client{}
	httpmock.ActivateNonDefault(httpClient)
	defer httpmock.DeactivateAndReset()
	httpmock.RegisterResponder(http.MethodGet, fmt.Sprintf("%s/%s", DefaultIpfsGateway, ipfsHash),
		httpmock.NewStringResponder(http.StatusBadGateway, "bad gateway"))

	fetcher := NewAbiFetcher(reader, httpClient, zap.NewNop())
	_, err := fetcher.FetchDescriptor(context.Background(), address)
	assert.ErrorContains(t, err, "status 502")
}
