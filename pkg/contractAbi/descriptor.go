// Package contractAbi parses contract ABI JSON documents into immutable
// descriptors with precomputed canonical signatures, 4-byte function
// selectors and 32-byte event topics. A Descriptor is created once per ABI
// document and shared read-only afterwards; it is safe for concurrent use
// without synchronization.
package contractAbi

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/ethbind/ethbind/pkg/abi"
)

// ErrInvalidAbi indicates an ABI document that cannot be parsed: unknown
// type keywords, malformed tuple nesting, or duplicate canonical
// signatures. The document has to be fixed by the caller; nothing is
// recoverable here.
var ErrInvalidAbi = errors.New("invalid abi document")

// StateMutability describes how a function interacts with chain state.
type StateMutability string

const (
	Pure       StateMutability = "pure"
	View       StateMutability = "view"
	NonPayable StateMutability = "nonpayable"
	Payable    StateMutability = "payable"
)

// Parameter is one named input or output of a function or event.
type Parameter struct {
	Name    string
	Type    *abi.Type
	Indexed bool // meaningful for event parameters only
}

// Function describes one callable contract function. Immutable after parse.
type Function struct {
	Name            string
	Inputs          []Parameter
	Outputs         []Parameter
	StateMutability StateMutability

	// Signature is the canonical form the selector is derived from, e.g.
	// "transfer(address,uint256)".
	Signature string
	Selector  [4]byte
}

// IsReadOnly reports whether calling the function cannot mutate state and
// may therefore be executed as an eth_call instead of a transaction.
func (f *Function) IsReadOnly() bool {
	return f.StateMutability == Pure || f.StateMutability == View
}

// InputTypes returns the ordered input types.
func (f *Function) InputTypes() []*abi.Type {
	return parameterTypes(f.Inputs)
}

// OutputTypes returns the ordered output types.
func (f *Function) OutputTypes() []*abi.Type {
	return parameterTypes(f.Outputs)
}

// EncodeCall produces the full call data for the function: the 4-byte
// selector followed by the ABI encoding of the arguments.
func (f *Function) EncodeCall(args []abi.Value) ([]byte, error) {
	encoded, err := abi.Encode(args)
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, f.Selector[:]...), encoded...), nil
}

// DecodeOutput decodes return data against the function's output types.
func (f *Function) DecodeOutput(data []byte) ([]abi.Value, error) {
	return abi.Decode(f.OutputTypes(), data)
}

// Event describes one loggable contract event. Immutable after parse.
type Event struct {
	Name      string
	Inputs    []Parameter
	Anonymous bool

	Signature string
	// Topic is the keccak hash of the canonical signature, occupying the
	// topic-0 slot of emitted logs unless the event is anonymous.
	Topic common.Hash
}

// IndexedInputs returns the indexed parameters in declaration order.
func (e *Event) IndexedInputs() []Parameter {
	out := make([]Parameter, 0, len(e.Inputs))
	for _, p := range e.Inputs {
		if p.Indexed {
			out = append(out, p)
		}
	}
	return out
}

// DataInputs returns the non-indexed parameters in declaration order.
func (e *Event) DataInputs() []Parameter {
	out := make([]Parameter, 0, len(e.Inputs))
	for _, p := range e.Inputs {
		if !p.Indexed {
			out = append(out, p)
		}
	}
	return out
}

// Constructor describes the optional deployment constructor.
type Constructor struct {
	Inputs          []Parameter
	StateMutability StateMutability
}

// Descriptor is the fully parsed ABI of one contract: functions keyed by
// selector (overloads get distinct selectors, grouped under their shared
// name), events keyed by topic, and the optional constructor.
type Descriptor struct {
	functionsByName *orderedmap.OrderedMap[string, []*Function]
	bySelector      map[[4]byte]*Function
	bySignature     map[string]*Function

	eventsByName *orderedmap.OrderedMap[string, []*Event]
	byTopic      map[common.Hash]*Event

	constructor *Constructor
}

// FunctionBySelector returns the function with the given selector, if any.
func (d *Descriptor) FunctionBySelector(selector [4]byte) (*Function, bool) {
	f, ok := d.bySelector[selector]
	return f, ok
}

// FunctionBySignature returns the function with the given canonical
// signature, if any.
func (d *Descriptor) FunctionBySignature(signature string) (*Function, bool) {
	f, ok := d.bySignature[signature]
	return f, ok
}

// FunctionsByName returns all overloads sharing the given raw name, in
// declaration order.
func (d *Descriptor) FunctionsByName(name string) []*Function {
	fns, _ := d.functionsByName.Get(name)
	return fns
}

// Functions returns every function in declaration order.
func (d *Descriptor) Functions() []*Function {
	out := make([]*Function, 0, d.functionsByName.Len())
	for pair := d.functionsByName.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value...)
	}
	return out
}

// EventByTopic returns the non-anonymous event with the given topic hash.
func (d *Descriptor) EventByTopic(topic common.Hash) (*Event, bool) {
	e, ok := d.byTopic[topic]
	return e, ok
}

// EventsByName returns all events sharing the given raw name, in
// declaration order.
func (d *Descriptor) EventsByName(name string) []*Event {
	evs, _ := d.eventsByName.Get(name)
	return evs
}

// Events returns every event in declaration order.
func (d *Descriptor) Events() []*Event {
	out := make([]*Event, 0, d.eventsByName.Len())
	for pair := d.eventsByName.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value...)
	}
	return out
}

// Constructor returns the constructor descriptor, or nil if the contract
// has none.
func (d *Descriptor) Constructor() *Constructor {
	return d.constructor
}

// entry mirrors one element of the ABI JSON array as emitted by solc.
type entry struct {
	Type            string          `json:"type"`
	Name            string          `json:"name"`
	Inputs          []parameterJSON `json:"inputs"`
	Outputs         []parameterJSON `json:"outputs"`
	StateMutability string          `json:"stateMutability"`
	Anonymous       bool            `json:"anonymous"`

	// Legacy pre-0.5 solc fields, consulted only when stateMutability is
	// absent.
	Constant bool `json:"constant"`
	Payable  bool `json:"payable"`
}

type parameterJSON struct {
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Components []abi.Component `json:"components,omitempty"`
	Indexed    bool            `json:"indexed"`
}

// Parse parses an ABI JSON document into an immutable Descriptor. It is a
// pure transformation: malformed documents fail with an error wrapping
// ErrInvalidAbi and no partial state escapes.
func Parse(data []byte) (*Descriptor, error) {
	var entries []entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrapf(ErrInvalidAbi, "not a JSON ABI array: %v", err)
	}

	d := &Descriptor{
		functionsByName: orderedmap.New[string, []*Function](),
		bySelector:      make(map[[4]byte]*Function),
		bySignature:     make(map[string]*Function),
		eventsByName:    orderedmap.New[string, []*Event](),
		byTopic:         make(map[common.Hash]*Event),
	}

	for i, e := range entries {
		switch e.Type {
		case "function":
			if err := d.addFunction(e); err != nil {
				return nil, errors.Wrapf(err, "entry %d", i)
			}
		case "event":
			if err := d.addEvent(e); err != nil {
				return nil, errors.Wrapf(err, "entry %d", i)
			}
		case "constructor":
			if d.constructor != nil {
				return nil, errors.Wrap(ErrInvalidAbi, "multiple constructors")
			}
			inputs, err := parseParameters(e.Inputs)
			if err != nil {
				return nil, err
			}
			d.constructor = &Constructor{
				Inputs:          inputs,
				StateMutability: parseMutability(e),
			}
		case "fallback", "receive", "error":
			// Not callable through bindings; skipped without error.
		default:
			return nil, errors.Wrapf(ErrInvalidAbi, "entry %d has unknown type %q", i, e.Type)
		}
	}
	return d, nil
}

func (d *Descriptor) addFunction(e entry) error {
	if e.Name == "" {
		return errors.Wrap(ErrInvalidAbi, "function without a name")
	}
	inputs, err := parseParameters(e.Inputs)
	if err != nil {
		return err
	}
	outputs, err := parseParameters(e.Outputs)
	if err != nil {
		return err
	}

	fn := &Function{
		Name:            e.Name,
		Inputs:          inputs,
		Outputs:         outputs,
		StateMutability: parseMutability(e),
		Signature:       canonicalSignature(e.Name, inputs),
	}
	copy(fn.Selector[:], crypto.Keccak256([]byte(fn.Signature))[:4])

	if _, dup := d.bySignature[fn.Signature]; dup {
		return errors.Wrapf(ErrInvalidAbi, "duplicate function signature %s", fn.Signature)
	}
	d.bySignature[fn.Signature] = fn
	d.bySelector[fn.Selector] = fn

	existing, _ := d.functionsByName.Get(fn.Name)
	d.functionsByName.Set(fn.Name, append(existing, fn))
	return nil
}

func (d *Descriptor) addEvent(e entry) error {
	if e.Name == "" {
		return errors.Wrap(ErrInvalidAbi, "event without a name")
	}
	inputs, err := parseParameters(e.Inputs)
	if err != nil {
		return err
	}

	ev := &Event{
		Name:      e.Name,
		Inputs:    inputs,
		Anonymous: e.Anonymous,
		Signature: canonicalSignature(e.Name, inputs),
	}
	ev.Topic = common.BytesToHash(crypto.Keccak256([]byte(ev.Signature)))

	if !ev.Anonymous {
		if _, dup := d.byTopic[ev.Topic]; dup {
			return errors.Wrapf(ErrInvalidAbi, "duplicate event signature %s", ev.Signature)
		}
		d.byTopic[ev.Topic] = ev
	}

	existing, _ := d.eventsByName.Get(ev.Name)
	d.eventsByName.Set(ev.Name, append(existing, ev))
	return nil
}

func parseParameters(params []parameterJSON) ([]Parameter, error) {
	out := make([]Parameter, len(params))
	for i, p := range params {
		typ, err := abi.ParseType(p.Type, p.Components)
		if err != nil {
			// Unresolvable parameter types make the whole document invalid.
			return nil, errors.Wrapf(ErrInvalidAbi, "parameter %d (%s): %v", i, p.Name, err)
		}
		out[i] = Parameter{Name: p.Name, Type: typ, Indexed: p.Indexed}
	}
	return out, nil
}

func parseMutability(e entry) StateMutability {
	switch e.StateMutability {
	case "pure":
		return Pure
	case "view":
		return View
	case "payable":
		return Payable
	case "nonpayable":
		return NonPayable
	case "":
		// Pre-0.5 compilers emitted constant/payable booleans instead.
		if e.Payable {
			return Payable
		}
		if e.Constant {
			return View
		}
		return NonPayable
	default:
		return NonPayable
	}
}

// canonicalSignature renders "name(type1,type2,...)" with tuple components
// expanded to their parenthesized canonical member types. This is the exact
// string selector and topic hashing are defined over.
func canonicalSignature(name string, params []Parameter) string {
	types := make([]string, len(params))
	for i, p := range params {
		types[i] = p.Type.Canonical()
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(types, ","))
}

func parameterTypes(params []Parameter) []*abi.Type {
	out := make([]*abi.Type, len(params))
	for i, p := range params {
		out[i] = p.Type
	}
	return out
}
