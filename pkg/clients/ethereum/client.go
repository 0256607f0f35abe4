// Package ethereum wraps the JSON-RPC surface of an Ethereum node behind
// typed methods. Transport framing and connection management belong to
// go-ethereum's rpc package; this client only shapes requests, decodes
// responses and classifies failures (node unreachable vs. contract
// revert).
package ethereum

import (
	"context"
	"math/big"
	"net/http"

	"github.com/ethbind/ethbind/internal/config"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type EthereumClientConfig struct {
	BaseUrl string
	WsUrl   string
}

func DefaultEthereumClientConfig() *EthereumClientConfig {
	return &EthereumClientConfig{}
}

// ConvertGlobalConfigToEthereumConfig maps the global RPC settings into a
// client config.
func ConvertGlobalConfigToEthereumConfig(cfg *config.EthereumRpcConfig) *EthereumClientConfig {
	return &EthereumClientConfig{
		BaseUrl: cfg.BaseUrl,
		WsUrl:   cfg.WsUrl,
	}
}

// Client is a typed Ethereum node client. All methods take a context; the
// node round-trip is the suspension point and honors cancellation.
type Client struct {
	config *EthereumClientConfig
	logger *zap.Logger

	rpcClient *rpc.Client
	wsClient  *rpc.Client
}

// NewClient dials the configured HTTP endpoint and, when a websocket URL is
// configured, the websocket endpoint used for subscriptions.
func NewClient(ctx context.Context, cfg *EthereumClientConfig, l *zap.Logger) (*Client, error) {
	return newClientWithHTTPClient(ctx, cfg, nil, l)
}

// NewClientWithHTTPClient dials through the provided http.Client. Tests use
// this to intercept transport-level traffic.
func NewClientWithHTTPClient(ctx context.Context, cfg *EthereumClientConfig, httpClient *http.Client, l *zap.Logger) (*Client, error) {
	return newClientWithHTTPClient(ctx, cfg, httpClient, l)
}

func newClientWithHTTPClient(ctx context.Context, cfg *EthereumClientConfig, httpClient *http.Client, l *zap.Logger) (*Client, error) {
	if cfg.BaseUrl == "" {
		return nil, errors.New("ethereum client needs a base url")
	}
	opts := []rpc.ClientOption{}
	if httpClient != nil {
		opts = append(opts, rpc.WithHTTPClient(httpClient))
	}
	rpcClient, err := rpc.DialOptions(ctx, cfg.BaseUrl, opts...)
	if err != nil {
		return nil, errors.Wrapf(ErrNodeUnavailable, "failed to dial %s: %v", cfg.BaseUrl, err)
	}

	client := &Client{
		config:    cfg,
		logger:    l,
		rpcClient: rpcClient,
	}
	if cfg.WsUrl != "" {
		wsClient, err := rpc.DialOptions(ctx, cfg.WsUrl)
		if err != nil {
			rpcClient.Close()
			return nil, errors.Wrapf(ErrNodeUnavailable, "failed to dial %s: %v", cfg.WsUrl, err)
		}
		client.wsClient = wsClient
	}
	return client, nil
}

// Close releases both connections. Safe to call more than once.
func (c *Client) Close() {
	c.rpcClient.Close()
	if c.wsClient != nil {
		c.wsClient.Close()
	}
}

func (c *Client) call(ctx context.Context, result any, method string, args ...any) error {
	err := c.rpcClient.CallContext(ctx, result, method, args...)
	if err != nil {
		c.logger.Sugar().Debugw("Node request failed",
			zap.String("method", method),
			zap.Error(err),
		)
	}
	return err
}

// ChainID returns the chain id the node is configured for.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	var result hexutil.Big
	if err := c.call(ctx, &result, "eth_chainId"); err != nil {
		return nil, wrapTransportErr(err)
	}
	return (*big.Int)(&result), nil
}

// GetBlockNumber returns the latest block height.
func (c *Client) GetBlockNumber(ctx context.Context) (uint64, error) {
	var result hexutil.Uint64
	if err := c.call(ctx, &result, "eth_blockNumber"); err != nil {
		return 0, wrapTransportErr(err)
	}
	return uint64(result), nil
}

// GetCode returns the deployed bytecode at the address.
func (c *Client) GetCode(ctx context.Context, address common.Address) ([]byte, error) {
	var result hexutil.Bytes
	if err := c.call(ctx, &result, "eth_getCode", address, "latest"); err != nil {
		return nil, wrapTransportErr(err)
	}
	return result, nil
}

// GetTransactionCount returns the account's next nonce, including pending
// transactions.
func (c *Client) GetTransactionCount(ctx context.Context, address common.Address) (uint64, error) {
	var result hexutil.Uint64
	if err := c.call(ctx, &result, "eth_getTransactionCount", address, "pending"); err != nil {
		return 0, wrapTransportErr(err)
	}
	return uint64(result), nil
}

// SuggestGasPrice returns the node's legacy gas price oracle value.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	var result hexutil.Big
	if err := c.call(ctx, &result, "eth_gasPrice"); err != nil {
		return nil, wrapTransportErr(err)
	}
	return (*big.Int)(&result), nil
}

// SuggestPriorityFee returns the node's suggested miner tip for dynamic-fee
// transactions.
func (c *Client) SuggestPriorityFee(ctx context.Context) (*big.Int, error) {
	var result hexutil.Big
	if err := c.call(ctx, &result, "eth_maxPriorityFeePerGas"); err != nil {
		return nil, wrapTransportErr(err)
	}
	return (*big.Int)(&result), nil
}

// GetLatestBaseFee returns the base fee of the latest block, or nil on
// pre-London chains.
func (c *Client) GetLatestBaseFee(ctx context.Context) (*big.Int, error) {
	var head struct {
		BaseFeePerGas *hexutil.Big `json:"baseFeePerGas"`
	}
	if err := c.call(ctx, &head, "eth_getBlockByNumber", "latest", false); err != nil {
		return nil, wrapTransportErr(err)
	}
	if head.BaseFeePerGas == nil {
		return nil, nil
	}
	return (*big.Int)(head.BaseFeePerGas), nil
}

// CallMsg is the caller intent for eth_call and eth_estimateGas. A nil To
// is a contract creation.
type CallMsg struct {
	From     common.Address
	To       *common.Address
	Gas      uint64
	GasPrice *big.Int
	Value    *big.Int
	Data     []byte
}

func (m CallMsg) toArg() map[string]any {
	arg := map[string]any{"from": m.From}
	if m.To != nil {
		arg["to"] = *m.To
	}
	if len(m.Data) > 0 {
		arg["input"] = hexutil.Bytes(m.Data)
	}
	if m.Gas != 0 {
		arg["gas"] = hexutil.Uint64(m.Gas)
	}
	if m.GasPrice != nil {
		arg["gasPrice"] = (*hexutil.Big)(m.GasPrice)
	}
	if m.Value != nil {
		arg["value"] = (*hexutil.Big)(m.Value)
	}
	return arg
}

// CallContract executes a read-only call against the given block, or the
// latest state when blockNumber is nil. Execution failures reported by the
// node are surfaced as *RevertError with the decoded reason when present.
func (c *Client) CallContract(ctx context.Context, msg CallMsg, blockNumber *big.Int) ([]byte, error) {
	var result hexutil.Bytes
	err := c.call(ctx, &result, "eth_call", msg.toArg(), toBlockNumArg(blockNumber))
	if err != nil {
		if revert := revertFromRPCError(err); revert != nil {
			return nil, revert
		}
		return nil, wrapTransportErr(err)
	}
	return result, nil
}

// EstimateGas asks the node to simulate the message and report the gas it
// would consume. Reverts surface as *RevertError.
func (c *Client) EstimateGas(ctx context.Context, msg CallMsg) (uint64, error) {
	var result hexutil.Uint64
	err := c.call(ctx, &result, "eth_estimateGas", msg.toArg())
	if err != nil {
		if revert := revertFromRPCError(err); revert != nil {
			return 0, revert
		}
		return 0, wrapTransportErr(err)
	}
	return uint64(result), nil
}

// SendRawTransaction submits a signed RLP-encoded transaction and returns
// its hash.
func (c *Client) SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	var result common.Hash
	if err := c.call(ctx, &result, "eth_sendRawTransaction", hexutil.Bytes(raw)); err != nil {
		return common.Hash{}, wrapTransportErr(err)
	}
	return result, nil
}

// GetTransactionReceipt returns the receipt for the transaction, or nil if
// the transaction is not yet mined.
func (c *Client) GetTransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt
	if err := c.call(ctx, &receipt, "eth_getTransactionReceipt", txHash); err != nil {
		return nil, wrapTransportErr(err)
	}
	return receipt, nil
}

// GetTransactionByHash reports whether the node still knows the
// transaction. found is false when the node has no record of it at all,
// which after a submission means it was dropped from the mempool.
func (c *Client) GetTransactionByHash(ctx context.Context, txHash common.Hash) (found bool, pending bool, err error) {
	var result *struct {
		BlockNumber *string `json:"blockNumber"`
	}
	if err := c.call(ctx, &result, "eth_getTransactionByHash", txHash); err != nil {
		return false, false, wrapTransportErr(err)
	}
	if result == nil {
		return false, false, nil
	}
	return true, result.BlockNumber == nil, nil
}

// FilterQuery selects logs by block range, emitting addresses and topic
// slots. A nil entry in Topics matches anything in that slot.
type FilterQuery struct {
	FromBlock *big.Int
	ToBlock   *big.Int
	Addresses []common.Address
	Topics    [][]common.Hash
}

func (q FilterQuery) toArg() map[string]any {
	arg := map[string]any{}
	if q.FromBlock != nil {
		arg["fromBlock"] = hexutil.EncodeBig(q.FromBlock)
	}
	if q.ToBlock != nil {
		arg["toBlock"] = hexutil.EncodeBig(q.ToBlock)
	}
	if len(q.Addresses) > 0 {
		arg["address"] = q.Addresses
	}
	if len(q.Topics) > 0 {
		arg["topics"] = q.Topics
	}
	return arg
}

// FilterLogs returns all historical logs matching the query.
func (c *Client) FilterLogs(ctx context.Context, q FilterQuery) ([]types.Log, error) {
	var result []types.Log
	if err := c.call(ctx, &result, "eth_getLogs", q.toArg()); err != nil {
		return nil, wrapTransportErr(err)
	}
	return result, nil
}

// SubscribeLogs opens a live log subscription over the websocket
// connection. It fails when no websocket URL was configured; callers that
// only have HTTP poll with FilterLogs instead.
func (c *Client) SubscribeLogs(ctx context.Context, q FilterQuery, sink chan<- types.Log) (Subscription, error) {
	if c.wsClient == nil {
		return nil, errors.Wrap(ErrNodeUnavailable, "no websocket url configured for subscriptions")
	}
	sub, err := c.wsClient.EthSubscribe(ctx, sink, "logs", q.toArg())
	if err != nil {
		return nil, wrapTransportErr(err)
	}
	return sub, nil
}

// Subscription is the handle for a live node-side subscription.
type Subscription interface {
	Unsubscribe()
	Err() <-chan error
}

func toBlockNumArg(number *big.Int) string {
	if number == nil {
		return "latest"
	}
	return hexutil.EncodeBig(number)
}
