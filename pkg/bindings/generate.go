package bindings

import (
	"bytes"
	"go/format"
	"text/template"

	"github.com/pkg/errors"
)

// Generate renders the model into gofmt-clean Go source. The emitted file
// compiles against the runtime packages of this module and carries no
// other dependencies beyond go-ethereum and zap.
func Generate(model *ContractModel) ([]byte, error) {
	tmpl, err := template.New("binding").Parse(bindingTemplate)
	if err != nil {
		return nil, errors.Wrap(err, "parsing binding template")
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, model); err != nil {
		return nil, errors.Wrap(err, "rendering binding")
	}

	source, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, errors.Wrapf(err, "generated source does not parse")
	}
	return source, nil
}

const bindingTemplate = `// Code generated - DO NOT EDIT.
// This file is a generated binding and any manual changes will be lost.

package {{.PackageName}}

import (
	"context"
	"math/big"

	"github.com/ethbind/ethbind/pkg/contractAbi"
	"github.com/ethbind/ethbind/pkg/contractCaller"
	"github.com/ethbind/ethbind/pkg/eventFilter"
	"github.com/ethbind/ethbind/pkg/transactionPipeline"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Reference imports to suppress errors if they are not otherwise used.
var (
	_ = context.Background
	_ = big.NewInt
	_ = common.HexToAddress
	_ = new(types.Log)
	_ = errors.New
)

// {{.ContractName}}AbiJson is the ABI document this binding was generated from.
const {{.ContractName}}AbiJson = {{printf "%q" .AbiJson}}

// {{.ContractName}}Backend bundles the node surfaces the binding needs.
type {{.ContractName}}Backend interface {
	contractCaller.CallBackend
	eventFilter.FilterBackend
}
{{range .Structs}}
// {{.GoName}} mirrors the {{.Canonical}} tuple.
type {{.GoName}} struct {
{{- range .Fields}}
	{{.GoName}} {{.GoType}}
{{- end}}
}
{{end}}
// {{.ContractName}} is a typed wrapper around the deployed contract.
type {{.ContractName}} struct {
	contract *contractCaller.Contract
	stream   *eventFilter.Stream
	decoder  *eventFilter.LogDecoder
}

// New{{.ContractName}} binds the contract at address. sender may be nil
// for a read-only binding.
func New{{.ContractName}}(address common.Address, backend {{.ContractName}}Backend, sender contractCaller.Sender, l *zap.Logger) (*{{.ContractName}}, error) {
	descriptor, err := contractAbi.Parse([]byte({{.ContractName}}AbiJson))
	if err != nil {
		return nil, err
	}
	return &{{.ContractName}}{
		contract: contractCaller.NewContract(descriptor, address, backend, sender, l),
		stream:   eventFilter.NewStream(descriptor, address, backend, nil, l),
		decoder:  eventFilter.NewLogDecoder(descriptor, l),
	}, nil
}

// Deploy{{.ContractName}} submits the creation bytecode and binds the
// confirmed deployment.
func Deploy{{.ContractName}}(ctx context.Context, bytecode []byte, backend {{.ContractName}}Backend, sender contractCaller.Sender, l *zap.Logger, opts *contractCaller.SendOpts{{range .Constructor}}, {{.GoName}} {{.GoType}}{{end}}) (*{{.ContractName}}, *transactionPipeline.Result, error) {
	descriptor, err := contractAbi.Parse([]byte({{.ContractName}}AbiJson))
	if err != nil {
		return nil, nil, err
	}
	contract, result, err := contractCaller.Deploy(ctx, descriptor, bytecode, backend, sender, l, opts{{range .Constructor}}, {{.GoName}}{{end}})
	if err != nil {
		return nil, result, err
	}
	return &{{.ContractName}}{
		contract: contract,
		stream:   eventFilter.NewStream(descriptor, contract.Address(), backend, nil, l),
		decoder:  eventFilter.NewLogDecoder(descriptor, l),
	}, result, nil
}

// Address returns the bound contract address.
func (c *{{.ContractName}}) Address() common.Address {
	return c.contract.Address()
}
{{$contract := .ContractName}}
{{- range .Methods}}
{{- if .ReadOnly}}
// {{.GoName}} calls {{.Signature}}.
func (c *{{$contract}}) {{.GoName}}(ctx context.Context, opts *contractCaller.CallOpts{{range .Params}}, {{.GoName}} {{.GoType}}{{end}}) ({{range .Returns}}{{.GoType}}, {{end}}error) {
{{- range .Returns}}
	var {{.GoName}} {{.GoType}}
{{- end}}
	_, err := c.contract.Call(ctx, opts, {{printf "%q" .Signature}}, []any{ {{- range $i, $p := .Params}}{{if $i}}, {{end}}{{$p.GoName}}{{end -}} }{{range .Returns}}, &{{.GoName}}{{end}})
	return {{range .Returns}}{{.GoName}}, {{end}}err
}
{{- else}}
// {{.GoName}} submits {{.Signature}} and waits for a terminal state.
func (c *{{$contract}}) {{.GoName}}(ctx context.Context, opts *contractCaller.SendOpts{{range .Params}}, {{.GoName}} {{.GoType}}{{end}}) (*transactionPipeline.Result, error) {
	return c.contract.Send(ctx, opts, {{printf "%q" .Signature}}{{range .Params}}, {{.GoName}}{{end}})
}
{{- end}}
{{end}}
{{- range .Events}}
// {{$contract}}{{.GoName}}Event is the decoded {{.Signature}} log.
type {{$contract}}{{.GoName}}Event struct {
{{- range .Fields}}
	{{.GoName}} {{.GoType}}
{{- end}}
	Raw eventFilter.DecodedLog
}

func (c *{{$contract}}) convert{{.GoName}}(decoded *eventFilter.DecodedLog) (*{{$contract}}{{.GoName}}Event, error) {
	event := new({{$contract}}{{.GoName}}Event)
{{- range $i, $f := .Fields}}
	if err := decoded.Arguments[{{$i}}].Value.AssignTo(&event.{{$f.GoName}}); err != nil {
		return nil, err
	}
{{- end}}
	event.Raw = *decoded
	return event, nil
}

// Decode{{.GoName}} decodes a raw log as a {{.Signature}} event.
func (c *{{$contract}}) Decode{{.GoName}}(lg *types.Log) (*{{$contract}}{{.GoName}}Event, error) {
	decoded, err := c.decoder.DecodeLog(lg)
	if err != nil {
		return nil, err
	}
	if decoded.Signature != {{printf "%q" .Signature}} {
		return nil, errors.Errorf("log is a %s event", decoded.Signature)
	}
	return c.convert{{.GoName}}(decoded)
}

// Filter{{.GoName}} fetches historical {{.Signature}} events.
func (c *{{$contract}}) Filter{{.GoName}}(ctx context.Context, fromBlock, toBlock *big.Int) ([]*{{$contract}}{{.GoName}}Event, error) {
	decoded, err := c.stream.Query(ctx, &eventFilter.QueryOpts{
		EventName: {{printf "%q" .Name}},
		FromBlock: fromBlock,
		ToBlock:   toBlock,
	})
	if err != nil {
		return nil, err
	}
	events := make([]*{{$contract}}{{.GoName}}Event, 0, len(decoded))
	for _, d := range decoded {
		if d.Signature != {{printf "%q" .Signature}} {
			continue
		}
		event, err := c.convert{{.GoName}}(d)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// Watch{{.GoName}} streams live {{.Signature}} events into sink until the
// subscription is cancelled.
func (c *{{$contract}}) Watch{{.GoName}}(ctx context.Context, sink chan<- *{{$contract}}{{.GoName}}Event) (*eventFilter.Subscription, error) {
	sub, err := c.stream.Subscribe(ctx, &eventFilter.QueryOpts{EventName: {{printf "%q" .Name}}})
	if err != nil {
		return nil, err
	}
	go func() {
		for d := range sub.Events() {
			if d.Signature != {{printf "%q" .Signature}} {
				continue
			}
			event, err := c.convert{{.GoName}}(d)
			if err != nil {
				continue
			}
			select {
			case sink <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return sub, nil
}
{{end -}}
`
