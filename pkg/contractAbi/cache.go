package contractAbi

import (
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// DescriptorCache memoizes parsed descriptors keyed by the keccak hash of
// the raw ABI document, so that repeatedly instantiating contracts from the
// same artifact does not re-parse the JSON. It is explicit, injectable
// shared state: construct one, pass it where needed, drop it when done.
type DescriptorCache struct {
	logger *zap.Logger

	mu      sync.RWMutex
	entries map[[32]byte]*Descriptor
}

// NewDescriptorCache creates an empty cache.
func NewDescriptorCache(l *zap.Logger) *DescriptorCache {
	return &DescriptorCache{
		logger:  l,
		entries: make(map[[32]byte]*Descriptor),
	}
}

// Parse returns the descriptor for the document, parsing it at most once.
// Parse failures are not cached; a corrected document with the same bytes
// cannot exist, and failed documents are expected to be rare.
func (c *DescriptorCache) Parse(data []byte) (*Descriptor, error) {
	var key [32]byte
	copy(key[:], crypto.Keccak256(data))

	c.mu.RLock()
	cached, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	descriptor, err := Parse(data)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[key]; ok {
		// Another goroutine raced us; keep the first copy.
		return existing, nil
	}
	c.entries[key] = descriptor
	c.logger.Sugar().Debugw("Cached parsed abi document",
		zap.Int("documentBytes", len(data)),
		zap.Int("cachedDocuments", len(c.entries)),
	)
	return descriptor, nil
}

// Len returns the number of cached documents.
func (c *DescriptorCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
