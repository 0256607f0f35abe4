package eventFilter

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethbind/ethbind/pkg/clients/ethereum"
	"github.com/ethbind/ethbind/pkg/contractAbi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// FilterBackend is the log-query surface of the node. *ethereum.Client
// satisfies it.
type FilterBackend interface {
	GetBlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// StreamConfig controls live subscription polling.
type StreamConfig struct {
	// PollInterval is the fixed delay between range scans.
	PollInterval time.Duration
}

func DefaultStreamConfig() *StreamConfig {
	return &StreamConfig{
		PollInterval: 7 * time.Second,
	}
}

// QueryOpts narrow a historical query or subscription. A nil EventName
// matches every event the descriptor declares.
type QueryOpts struct {
	// EventName selects a single event by name or canonical signature.
	EventName string

	// FromBlock and ToBlock bound historical queries. Nil From starts at
	// genesis; nil To runs to the latest block. Subscriptions ignore
	// ToBlock and use FromBlock as the starting point when set.
	FromBlock *big.Int
	ToBlock   *big.Int
}

// Stream answers event queries for one contract address and decodes
// everything it returns through the contract's descriptor.
type Stream struct {
	logger   *zap.Logger
	config   *StreamConfig
	backend  FilterBackend
	decoder  *LogDecoder
	address  common.Address
	contract *contractAbi.Descriptor
}

func NewStream(descriptor *contractAbi.Descriptor, address common.Address, backend FilterBackend, cfg *StreamConfig, l *zap.Logger) *Stream {
	if cfg == nil {
		cfg = DefaultStreamConfig()
	}
	return &Stream{
		logger:   l,
		config:   cfg,
		backend:  backend,
		decoder:  NewLogDecoder(descriptor, l),
		address:  address,
		contract: descriptor,
	}
}

// topicsFor resolves the topic-0 filter for opts. An empty EventName
// yields no topic filter, matching all events.
func (s *Stream) topicsFor(opts *QueryOpts) ([][]common.Hash, error) {
	if opts == nil || opts.EventName == "" {
		return nil, nil
	}
	events := s.contract.EventsByName(opts.EventName)
	if len(events) == 0 {
		return nil, errors.Wrapf(ErrUnknownEvent, "name %q", opts.EventName)
	}
	topic0 := make([]common.Hash, 0, len(events))
	for _, e := range events {
		if e.Anonymous {
			continue
		}
		topic0 = append(topic0, e.Topic)
	}
	if len(topic0) == 0 {
		return nil, errors.Wrapf(ErrUnknownEvent, "event %q is anonymous and cannot be filtered by topic", opts.EventName)
	}
	return [][]common.Hash{topic0}, nil
}

// Query fetches and decodes historical logs in the block range given by
// opts. Logs emitted by the contract that match no declared event are
// skipped, not errors.
func (s *Stream) Query(ctx context.Context, opts *QueryOpts) ([]*DecodedLog, error) {
	topics, err := s.topicsFor(opts)
	if err != nil {
		return nil, err
	}
	q := ethereum.FilterQuery{
		Addresses: []common.Address{s.address},
		Topics:    topics,
	}
	if opts != nil {
		q.FromBlock = opts.FromBlock
		q.ToBlock = opts.ToBlock
	}

	logs, err := s.backend.FilterLogs(ctx, q)
	if err != nil {
		return nil, err
	}
	refs := make([]*types.Log, len(logs))
	for i := range logs {
		refs[i] = &logs[i]
	}
	return s.decoder.DecodeLogs(refs)
}

// Subscription is a live poll-driven event feed delivering decoded
// events in log order.
type Subscription struct {
	ID uuid.UUID

	events chan *DecodedLog
	cancel context.CancelFunc
	once   sync.Once
}

// Events is the feed channel. It closes when the subscription ends.
func (s *Subscription) Events() <-chan *DecodedLog {
	return s.events
}

// Unsubscribe stops the poll loop. It is idempotent and returns promptly;
// the feed channel closes once the loop exits.
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

// Subscribe starts a live subscription from the current head (or
// opts.FromBlock when set). Each poll scans the blocks since the previous
// scan; transient backend failures are logged and retried on the next
// tick.
func (s *Stream) Subscribe(ctx context.Context, opts *QueryOpts) (*Subscription, error) {
	topics, err := s.topicsFor(opts)
	if err != nil {
		return nil, err
	}

	var nextBlock uint64
	if opts != nil && opts.FromBlock != nil {
		nextBlock = opts.FromBlock.Uint64()
	} else {
		head, err := s.backend.GetBlockNumber(ctx)
		if err != nil {
			return nil, err
		}
		nextBlock = head + 1
	}

	runCtx, cancel := context.WithCancel(context.Background())
	sub := &Subscription{
		ID:     uuid.New(),
		events: make(chan *DecodedLog, 64),
		cancel: cancel,
	}
	go s.poll(runCtx, sub, topics, nextBlock)
	return sub, nil
}

func (s *Stream) poll(ctx context.Context, sub *Subscription, topics [][]common.Hash, nextBlock uint64) {
	defer close(sub.events)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		head, err := s.backend.GetBlockNumber(ctx)
		if err != nil {
			s.logger.Sugar().Debugw("Head poll failed, retrying", zap.Error(err))
			continue
		}
		if head < nextBlock {
			continue
		}

		decoded, err := s.scanRange(ctx, topics, nextBlock, head)
		if err != nil {
			s.logger.Sugar().Debugw("Log scan failed, retrying",
				zap.Uint64("fromBlock", nextBlock),
				zap.Uint64("toBlock", head),
				zap.Error(err),
			)
			continue
		}

		for _, d := range decoded {
			select {
			case sub.events <- d:
			case <-ctx.Done():
				return
			}
		}
		nextBlock = head + 1
	}
}

// scanRange fetches one block range and decodes each log on its own. A
// decode failure is deterministic, so the broken log is dropped with a
// warning rather than wedging the subscription on the same range; only a
// backend failure is returned for retry.
func (s *Stream) scanRange(ctx context.Context, topics [][]common.Hash, from, to uint64) ([]*DecodedLog, error) {
	logs, err := s.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{s.address},
		Topics:    topics,
	})
	if err != nil {
		return nil, err
	}
	decoded := make([]*DecodedLog, 0, len(logs))
	for i := range logs {
		d, err := s.decoder.DecodeLog(&logs[i])
		if err != nil {
			if errors.Is(err, ErrUnknownEvent) {
				continue
			}
			s.logger.Sugar().Warnw("Dropping undecodable log",
				zap.String("txHash", logs[i].TxHash.String()),
				zap.Uint64("blockNumber", logs[i].BlockNumber),
				zap.Error(err),
			)
			continue
		}
		decoded = append(decoded, d)
	}
	return decoded, nil
}
