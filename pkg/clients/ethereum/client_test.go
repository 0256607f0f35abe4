package ethereum

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethbind/ethbind/internal/logger"
	"github.com/ethbind/ethbind/pkg/abi"
)

const nodeUrl = "http://node.test:8545"

type rpcRequest struct {
	Id     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// newMockNode wires an httpmock transport that answers JSON-RPC requests
// from the handlers map. A handler returns either a result value or an
// error object.
func newMockNode(t *testing.T, handlers map[string]func(params []json.RawMessage) (any, map[string]any)) *Client {
	t.Helper()

	httpClient := &http.Client{}
	httpmock.ActivateNonDefault(httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder("POST", nodeUrl, func(req *http.Request) (*http.Response, error) {
		var rpcReq rpcRequest
		if err := json.NewDecoder(req.Body).Decode(&rpcReq); err != nil {
			return nil, err
		}
		handler, ok := handlers[rpcReq.Method]
		if !ok {
			return nil, fmt.Errorf("unexpected method %s", rpcReq.Method)
		}
		result, rpcErr := handler(rpcReq.Params)
		body := map[string]any{"jsonrpc": "2.0", "id": rpcReq.Id}
		if rpcErr != nil {
			body["error"] = rpcErr
		} else {
			body["result"] = result
		}
		return httpmock.NewJsonResponse(200, body)
	})

	client, err := NewClientWithHTTPClient(context.Background(), &EthereumClientConfig{BaseUrl: nodeUrl}, httpClient, logger.NewNoopLogger())
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func Test_EthereumClient(t *testing.T) {
	ctx := context.Background()

	t.Run("eth_blockNumber", func(t *testing.T) {
		client := newMockNode(t, map[string]func([]json.RawMessage) (any, map[string]any){
			"eth_blockNumber": func([]json.RawMessage) (any, map[string]any) {
				return "0x150014d", nil
			},
		})
		head, err := client.GetBlockNumber(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(0x150014d), head)
	})

	t.Run("eth_call decodes return data", func(t *testing.T) {
		client := newMockNode(t, map[string]func([]json.RawMessage) (any, map[string]any){
			"eth_call": func(params []json.RawMessage) (any, map[string]any) {
				require.Len(t, params, 2)
				return "0x000000000000000000000000000000000000000000000000000000000000002a", nil
			},
		})
		to := common.HexToAddress("0x01")
		data, err := client.CallContract(ctx, CallMsg{To: &to}, nil)
		require.NoError(t, err)
		assert.Len(t, data, 32)
	})

	t.Run("eth_call revert surfaces reason", func(t *testing.T) {
		reason, err := abi.NewValue(abi.String_(), "insufficient balance")
		require.NoError(t, err)
		encoded, err := abi.Encode([]abi.Value{reason})
		require.NoError(t, err)
		revertData := append([]byte{0x08, 0xc3, 0x79, 0xa0}, encoded...)

		client := newMockNode(t, map[string]func([]json.RawMessage) (any, map[string]any){
			"eth_call": func([]json.RawMessage) (any, map[string]any) {
				return nil, map[string]any{
					"code":    3,
					"message": "execution reverted",
					"data":    hexutil.Encode(revertData),
				}
			},
		})
		to := common.HexToAddress("0x01")
		_, err = client.CallContract(ctx, CallMsg{To: &to}, nil)
		require.Error(t, err)

		var revert *RevertError
		require.ErrorAs(t, err, &revert)
		assert.Equal(t, "insufficient balance", revert.Reason)
	})

	t.Run("eth_estimateGas revert surfaces as RevertError", func(t *testing.T) {
		client := newMockNode(t, map[string]func([]json.RawMessage) (any, map[string]any){
			"eth_estimateGas": func([]json.RawMessage) (any, map[string]any) {
				return nil, map[string]any{
					"code":    3,
					"message": "execution reverted",
					"data":    "0x",
				}
			},
		})
		to := common.HexToAddress("0x01")
		_, err := client.EstimateGas(ctx, CallMsg{To: &to})
		require.Error(t, err)
		var revert *RevertError
		assert.ErrorAs(t, err, &revert)
	})

	t.Run("eth_getTransactionReceipt returns nil when unmined", func(t *testing.T) {
		client := newMockNode(t, map[string]func([]json.RawMessage) (any, map[string]any){
			"eth_getTransactionReceipt": func([]json.RawMessage) (any, map[string]any) {
				return nil, nil
			},
		})
		receipt, err := client.GetTransactionReceipt(ctx, common.HexToHash("0xabc"))
		require.NoError(t, err)
		assert.Nil(t, receipt)
	})

	t.Run("eth_getTransactionByHash distinguishes unknown transactions", func(t *testing.T) {
		client := newMockNode(t, map[string]func([]json.RawMessage) (any, map[string]any){
			"eth_getTransactionByHash": func([]json.RawMessage) (any, map[string]any) {
				return nil, nil
			},
		})
		found, pending, err := client.GetTransactionByHash(ctx, common.HexToHash("0xabc"))
		require.NoError(t, err)
		assert.False(t, found)
		assert.False(t, pending)
	})

	t.Run("transport failure wraps ErrNodeUnavailable", func(t *testing.T) {
		client := newMockNode(t, map[string]func([]json.RawMessage) (any, map[string]any){})
		_, err := client.GetBlockNumber(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNodeUnavailable)
	})
}

func TestNewRevertError(t *testing.T) {
	t.Run("standard reason", func(t *testing.T) {
		reason, err := abi.NewValue(abi.String_(), "nope")
		require.NoError(t, err)
		encoded, err := abi.Encode([]abi.Value{reason})
		require.NoError(t, err)

		revert := NewRevertError(append([]byte{0x08, 0xc3, 0x79, 0xa0}, encoded...))
		assert.Equal(t, "nope", revert.Reason)
		assert.Contains(t, revert.Error(), "nope")
	})

	t.Run("custom error data keeps raw payload", func(t *testing.T) {
		revert := NewRevertError([]byte{0xde, 0xad, 0xbe, 0xef, 0x01})
		assert.Empty(t, revert.Reason)
		assert.Contains(t, revert.Error(), "deadbeef")
	})

	t.Run("empty data", func(t *testing.T) {
		revert := NewRevertError(nil)
		assert.Equal(t, "execution reverted", revert.Error())
	})
}
