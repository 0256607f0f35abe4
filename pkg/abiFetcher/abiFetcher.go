// Package abiFetcher retrieves ABI documents for deployed contracts from
// remote sources. Solidity embeds an IPFS metadata URI in the trailing
// CBOR section of deployed bytecode; the fetcher extracts it, downloads
// the compiler metadata and parses the embedded ABI into a descriptor.
package abiFetcher

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/btcsuite/btcutil/base58"
	"github.com/ethbind/ethbind/pkg/contractAbi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// cborMarker precedes the ipfs multihash in the metadata section solc
// appends to deployed bytecode.
const cborMarker = "a264697066735822"

const DefaultIpfsGateway = "https://ipfs.io/ipfs"

// CodeReader is the bytecode lookup surface. *ethereum.Client satisfies it.
type CodeReader interface {
	GetCode(ctx context.Context, address common.Address) ([]byte, error)
}

type AbiFetcher struct {
	ethereumClient CodeReader
	httpClient     *http.Client
	logger         *zap.Logger
	descriptors    *contractAbi.DescriptorCache
	ipfsGateway    string
}

func DefaultHttpClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

func NewAbiFetcher(e CodeReader, httpClient *http.Client, l *zap.Logger) *AbiFetcher {
	return &AbiFetcher{
		ethereumClient: e,
		httpClient:     httpClient,
		logger:         l,
		descriptors:    contractAbi.NewDescriptorCache(l),
		ipfsGateway:    DefaultIpfsGateway,
	}
}

// WithIpfsGateway overrides the gateway metadata downloads go through.
func (af *AbiFetcher) WithIpfsGateway(gateway string) *AbiFetcher {
	af.ipfsGateway = strings.TrimSuffix(gateway, "/")
	return af
}

// metadataResponse is the shape of solc compiler metadata. The ABI lives
// under output.abi as a plain JSON array.
type metadataResponse struct {
	Output struct {
		Abi json.RawMessage `json:"abi"`
	} `json:"output"`
}

// GetMetadataURIFromBytecode extracts the IPFS metadata URL from the CBOR
// trailer of deployed bytecode.
func (af *AbiFetcher) GetMetadataURIFromBytecode(bytecode []byte) (string, error) {
	code := strings.ToLower(hex.EncodeToString(bytecode))
	index := strings.Index(code, cborMarker)
	if index == -1 {
		return "", errors.New("bytecode carries no ipfs metadata marker")
	}

	// The multihash is 34 bytes: 0x12 0x20 followed by the sha256 digest.
	start := index + len(cborMarker)
	if len(code) < start+68 {
		return "", errors.New("bytecode too short to contain a complete ipfs hash")
	}
	multihash, err := hex.DecodeString(code[start : start+68])
	if err != nil {
		return "", errors.Wrap(err, "decoding ipfs multihash")
	}

	return af.ipfsGateway + "/" + base58.Encode(multihash), nil
}

// FetchDescriptor resolves the ABI of the contract deployed at address:
// read the bytecode, follow its metadata URI, and parse the embedded ABI.
// Parsed descriptors are cached by document hash.
func (af *AbiFetcher) FetchDescriptor(ctx context.Context, address common.Address) (*contractAbi.Descriptor, error) {
	bytecode, err := af.ethereumClient.GetCode(ctx, address)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching bytecode of %s", address)
	}
	if len(bytecode) == 0 {
		return nil, errors.Errorf("no contract code at %s", address)
	}

	uri, err := af.GetMetadataURIFromBytecode(bytecode)
	if err != nil {
		return nil, errors.Wrapf(err, "contract %s", address)
	}
	af.logger.Sugar().Debugw("Resolved metadata URI",
		zap.String("address", address.String()),
		zap.String("uri", uri),
	)

	doc, err := af.fetchAbiDocument(ctx, uri)
	if err != nil {
		return nil, err
	}
	return af.descriptors.Parse(doc)
}

func (af *AbiFetcher) fetchAbiDocument(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building metadata request")
	}
	resp, err := af.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching metadata from %s", uri)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("metadata gateway returned status %d", resp.StatusCode)
	}
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading metadata response")
	}

	var metadata metadataResponse
	if err := json.Unmarshal(content, &metadata); err != nil {
		return nil, errors.Wrap(err, "parsing compiler metadata")
	}
	if len(metadata.Output.Abi) == 0 {
		return nil, errors.New("compiler metadata carries no abi")
	}
	return metadata.Output.Abi, nil
}
