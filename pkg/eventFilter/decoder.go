// Package eventFilter decodes and streams contract event logs. A
// LogDecoder turns raw node logs into structured arguments using a parsed
// ABI descriptor; a Stream serves historical queries and poll-based live
// subscriptions on top of it.
package eventFilter

import (
	"github.com/ethbind/ethbind/pkg/abi"
	"github.com/ethbind/ethbind/pkg/contractAbi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrUnknownEvent means no event in the descriptor matches the log's
// topic-0 hash.
var ErrUnknownEvent = errors.New("no event matches log topic")

// Argument is one decoded event parameter in declaration order.
type Argument struct {
	Name    string
	Type    string
	Indexed bool
	Value   abi.Value
}

// DecodedLog is one event log with its parameters decoded. For indexed
// parameters of dynamic type the chain stores only the keccak hash of the
// value, so Value carries that 32-byte digest rather than the original.
type DecodedLog struct {
	Address     common.Address
	EventName   string
	Signature   string
	Arguments   []Argument
	BlockNumber uint64
	TxHash      common.Hash
	LogIndex    uint
}

// Argument returns the decoded argument with the given name.
func (d *DecodedLog) Argument(name string) (Argument, bool) {
	for _, a := range d.Arguments {
		if a.Name == name {
			return a, true
		}
	}
	return Argument{}, false
}

// LogDecoder decodes logs against one contract's descriptor. Anonymous
// events carry no topic-0 hash and cannot be matched, so they are never
// decoded here.
type LogDecoder struct {
	logger     *zap.Logger
	descriptor *contractAbi.Descriptor
}

func NewLogDecoder(descriptor *contractAbi.Descriptor, l *zap.Logger) *LogDecoder {
	return &LogDecoder{
		logger:     l,
		descriptor: descriptor,
	}
}

// DecodeLog decodes a single log. Logs whose topic-0 matches no event in
// the descriptor return ErrUnknownEvent; logs whose topic or data payload
// contradicts the event declaration return a malformed-encoding error.
func (ld *LogDecoder) DecodeLog(lg *types.Log) (*DecodedLog, error) {
	if len(lg.Topics) == 0 {
		return nil, errors.Wrap(ErrUnknownEvent, "log has no topics")
	}

	event, ok := ld.descriptor.EventByTopic(lg.Topics[0])
	if !ok {
		return nil, errors.Wrapf(ErrUnknownEvent, "topic %s", lg.Topics[0])
	}

	indexed := event.IndexedInputs()
	if len(lg.Topics)-1 != len(indexed) {
		return nil, errors.Wrapf(abi.ErrMalformedEncoding, "event %s declares %d indexed parameters, log has %d topics", event.Name, len(indexed), len(lg.Topics)-1)
	}

	dataInputs := event.DataInputs()
	dataTypes := make([]*abi.Type, len(dataInputs))
	for i, p := range dataInputs {
		dataTypes[i] = p.Type
	}
	dataValues, err := abi.Decode(dataTypes, lg.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding data of event %s", event.Name)
	}

	decoded := &DecodedLog{
		Address:     lg.Address,
		EventName:   event.Name,
		Signature:   event.Signature,
		Arguments:   make([]Argument, len(event.Inputs)),
		BlockNumber: lg.BlockNumber,
		TxHash:      lg.TxHash,
		LogIndex:    lg.Index,
	}

	topicIdx, dataIdx := 1, 0
	for i, input := range event.Inputs {
		arg := Argument{
			Name:    input.Name,
			Indexed: input.Indexed,
		}
		if input.Indexed {
			value, err := decodeTopic(input.Type, lg.Topics[topicIdx])
			if err != nil {
				return nil, errors.Wrapf(err, "decoding topic %d of event %s", topicIdx, event.Name)
			}
			arg.Value = value
			topicIdx++
		} else {
			arg.Value = dataValues[dataIdx]
			dataIdx++
		}
		// Digest-carrying topics surface as bytes32, so the reported type
		// follows the value, not the declaration.
		arg.Type = arg.Value.Type().Canonical()
		decoded.Arguments[i] = arg
	}
	return decoded, nil
}

// DecodeLogs decodes every log it recognizes and silently skips the rest.
// Interleaved logs from other contracts are expected in range queries and
// are not an error.
func (ld *LogDecoder) DecodeLogs(logs []*types.Log) ([]*DecodedLog, error) {
	decoded := make([]*DecodedLog, 0, len(logs))
	for _, lg := range logs {
		d, err := ld.DecodeLog(lg)
		if err != nil {
			if errors.Is(err, ErrUnknownEvent) {
				ld.logger.Sugar().Debugw("Skipping unrecognized log",
					zap.String("address", lg.Address.String()),
					zap.Uint64("blockNumber", lg.BlockNumber),
				)
				continue
			}
			return nil, err
		}
		decoded = append(decoded, d)
	}
	return decoded, nil
}

// decodeTopic recovers an indexed parameter from its topic word. The chain
// stores any indexed value wider than one word as the keccak digest of its
// encoding, so those surface as bytes32.
func decodeTopic(t *abi.Type, topic common.Hash) (abi.Value, error) {
	if t.IsDynamic() || t.HeadWords() != 1 {
		digestType, err := abi.FixedBytes(32)
		if err != nil {
			return abi.Value{}, err
		}
		return abi.NewValue(digestType, topic)
	}
	values, err := abi.Decode([]*abi.Type{t}, topic[:])
	if err != nil {
		return abi.Value{}, err
	}
	return values[0], nil
}
