// Package bindings turns a parsed ABI descriptor into compilable Go
// source: one typed wrapper struct per contract with a method per
// function and a struct per event, speaking through the runtime caller.
package bindings

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/ethbind/ethbind/pkg/abi"
	"github.com/ethbind/ethbind/pkg/contractAbi"
	"github.com/pkg/errors"
)

// ResolveOptions shape the generated source.
type ResolveOptions struct {
	// PackageName of the emitted file.
	PackageName string

	// ContractName becomes the wrapper type name after exporting.
	ContractName string

	// Renames maps a canonical function signature, e.g.
	// "transfer(address,uint256)", to the Go method name to emit for it.
	// Functions not listed fall back to name-derived identifiers, with
	// numeric suffixes breaking overload collisions.
	Renames map[string]string
}

// ParamModel is one Go parameter or return slot.
type ParamModel struct {
	GoName string
	GoType string
}

// MethodModel is one generated contract method.
type MethodModel struct {
	GoName    string
	Signature string
	ReadOnly  bool
	Payable   bool
	Params    []ParamModel
	Returns   []ParamModel
}

// EventModel is one generated event struct plus its decode plumbing.
type EventModel struct {
	GoName    string
	Name      string
	Signature string
	Fields    []ParamModel
}

// StructModel is a named Go struct generated for a tuple type.
type StructModel struct {
	GoName    string
	Canonical string
	Fields    []ParamModel
}

// ContractModel is everything the template needs to emit one file.
type ContractModel struct {
	PackageName  string
	ContractName string
	AbiJson      string
	Constructor  []ParamModel
	Methods      []MethodModel
	Events       []EventModel
	Structs      []StructModel
}

// Resolve builds the generation model for a descriptor. Overloaded
// functions get distinct Go names: the first keeps the plain name and
// later ones get numeric suffixes, unless a rename pins them explicitly.
func Resolve(descriptor *contractAbi.Descriptor, abiJson string, opts *ResolveOptions) (*ContractModel, error) {
	if opts == nil || opts.ContractName == "" {
		return nil, errors.New("a contract name is required")
	}
	packageName := opts.PackageName
	if packageName == "" {
		packageName = strings.ToLower(opts.ContractName)
	}

	contractName, err := exportedName(opts.ContractName)
	if err != nil {
		return nil, err
	}

	model := &ContractModel{
		PackageName:  packageName,
		ContractName: contractName,
		AbiJson:      abiJson,
	}
	mapper := newTypeMapper(contractName)

	if ctor := descriptor.Constructor(); ctor != nil {
		for i, p := range ctor.Inputs {
			goType, err := mapper.goType(p.Type, structHint{owner: "Deploy", member: p.Name, index: i})
			if err != nil {
				return nil, errors.Wrap(err, "constructor")
			}
			model.Constructor = append(model.Constructor, ParamModel{
				GoName: paramGoName(p.Name, i),
				GoType: goType,
			})
		}
	}

	used := map[string]bool{}
	for _, fn := range descriptor.Functions() {
		goName, err := methodGoName(fn, opts.Renames, used)
		if err != nil {
			return nil, err
		}
		used[goName] = true

		method := MethodModel{
			GoName:    goName,
			Signature: fn.Signature,
			ReadOnly:  fn.IsReadOnly(),
			Payable:   fn.StateMutability == contractAbi.Payable,
		}
		for i, p := range fn.Inputs {
			goType, err := mapper.goType(p.Type, structHint{owner: goName, member: p.Name, index: i})
			if err != nil {
				return nil, errors.Wrapf(err, "function %s", fn.Signature)
			}
			method.Params = append(method.Params, ParamModel{
				GoName: paramGoName(p.Name, i),
				GoType: goType,
			})
		}
		for i, p := range fn.Outputs {
			goType, err := mapper.goType(p.Type, structHint{owner: goName + "Output", member: p.Name, index: i})
			if err != nil {
				return nil, errors.Wrapf(err, "function %s", fn.Signature)
			}
			method.Returns = append(method.Returns, ParamModel{
				GoName: fmt.Sprintf("out%d", i),
				GoType: goType,
			})
		}
		model.Methods = append(model.Methods, method)
	}

	usedEvents := map[string]bool{}
	for _, event := range descriptor.Events() {
		base, err := exportedName(event.Name)
		if err != nil {
			return nil, errors.Wrapf(err, "event %s", event.Name)
		}
		goName := resolveNameConflict(base, func(s string) bool { return usedEvents[s] })
		usedEvents[goName] = true

		eventModel := EventModel{
			GoName:    goName,
			Name:      event.Name,
			Signature: event.Signature,
		}
		for i, p := range event.Inputs {
			var goType string
			if p.Indexed && p.Type.IsDynamic() {
				// Indexed dynamic values arrive as their keccak digest.
				goType = "[32]byte"
			} else {
				goType, err = mapper.goType(p.Type, structHint{owner: goName, member: p.Name, index: i})
				if err != nil {
					return nil, errors.Wrapf(err, "event %s", event.Signature)
				}
			}
			eventModel.Fields = append(eventModel.Fields, ParamModel{
				GoName: fieldGoName(p.Name, i),
				GoType: goType,
			})
		}
		model.Events = append(model.Events, eventModel)
	}

	model.Structs = mapper.structs()
	return model, nil
}

// methodGoName picks the Go identifier for a function, preferring an
// explicit rename keyed by canonical signature.
func methodGoName(fn *contractAbi.Function, renames map[string]string, used map[string]bool) (string, error) {
	if rename, ok := renames[fn.Signature]; ok {
		name, err := exportedName(rename)
		if err != nil {
			return "", errors.Wrapf(err, "rename for %s", fn.Signature)
		}
		if used[name] {
			return "", errors.Errorf("rename for %s collides with method %s", fn.Signature, name)
		}
		return name, nil
	}
	base, err := exportedName(fn.Name)
	if err != nil {
		return "", errors.Wrapf(err, "function %s", fn.Signature)
	}
	return resolveNameConflict(base, func(s string) bool { return used[s] }), nil
}

// resolveNameConflict appends the first free numeric suffix when base is
// already taken.
func resolveNameConflict(base string, used func(string) bool) string {
	name := base
	for i := 0; used(name); i++ {
		name = fmt.Sprintf("%s%d", base, i)
	}
	return name
}

// exportedName turns an ABI identifier into an exported Go identifier.
func exportedName(name string) (string, error) {
	cleaned := sanitizeIdentifier(name)
	if cleaned == "" {
		return "", errors.Errorf("name %q has no usable identifier characters", name)
	}
	return strings.ToUpper(cleaned[:1]) + cleaned[1:], nil
}

func paramGoName(name string, index int) string {
	cleaned := sanitizeIdentifier(name)
	if cleaned == "" {
		return fmt.Sprintf("arg%d", index)
	}
	lowered := strings.ToLower(cleaned[:1]) + cleaned[1:]
	if reservedWords[lowered] {
		lowered = lowered + "_"
	}
	return lowered
}

func fieldGoName(name string, index int) string {
	cleaned := sanitizeIdentifier(name)
	if cleaned == "" {
		return fmt.Sprintf("Field%d", index)
	}
	return strings.ToUpper(cleaned[:1]) + cleaned[1:]
}

// sanitizeIdentifier strips characters Go identifiers cannot carry and
// any leading digits.
func sanitizeIdentifier(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || r == '_' || (unicode.IsDigit(r) && b.Len() > 0) {
			b.WriteRune(r)
		}
	}
	return strings.TrimLeft(b.String(), "_0123456789")
}

var reservedWords = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true, "continue": true,
	"default": true, "defer": true, "else": true, "fallthrough": true, "for": true,
	"func": true, "go": true, "goto": true, "if": true, "import": true,
	"interface": true, "map": true, "package": true, "range": true, "return": true,
	"select": true, "struct": true, "switch": true, "type": true, "var": true,
}

// structHint names the spot a tuple appeared at, to derive a readable
// struct name.
type structHint struct {
	owner  string
	member string
	index  int
}

// typeMapper maps ABI types to Go type literals, minting one named struct
// per distinct tuple shape.
type typeMapper struct {
	prefix    string
	byTuple   map[string]string
	generated []StructModel
}

func newTypeMapper(prefix string) *typeMapper {
	return &typeMapper{
		prefix:  prefix,
		byTuple: map[string]string{},
	}
}

func (m *typeMapper) structs() []StructModel {
	return m.generated
}

func (m *typeMapper) goType(t *abi.Type, hint structHint) (string, error) {
	switch t.Kind() {
	case abi.KindUint:
		if t.Bits() <= 64 && t.Bits()%8 == 0 && isPow2(t.Bits()/8) {
			return fmt.Sprintf("uint%d", t.Bits()), nil
		}
		return "*big.Int", nil
	case abi.KindInt:
		if t.Bits() <= 64 && t.Bits()%8 == 0 && isPow2(t.Bits()/8) {
			return fmt.Sprintf("int%d", t.Bits()), nil
		}
		return "*big.Int", nil
	case abi.KindBool:
		return "bool", nil
	case abi.KindAddress:
		return "common.Address", nil
	case abi.KindFixedBytes:
		return fmt.Sprintf("[%d]byte", t.Size()), nil
	case abi.KindBytes:
		return "[]byte", nil
	case abi.KindString:
		return "string", nil
	case abi.KindFixedArray:
		elem, err := m.goType(t.Elem(), hint)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("[%d]%s", t.Size(), elem), nil
	case abi.KindArray:
		elem, err := m.goType(t.Elem(), hint)
		if err != nil {
			return "", err
		}
		return "[]" + elem, nil
	case abi.KindTuple:
		return m.tupleStruct(t, hint)
	default:
		return "", errors.Errorf("unsupported type %s", t.Canonical())
	}
}

// tupleStruct returns the struct name for a tuple type, generating the
// definition on first sight. Identical tuple shapes share one struct.
func (m *typeMapper) tupleStruct(t *abi.Type, hint structHint) (string, error) {
	if name, ok := m.byTuple[t.Canonical()]; ok {
		return name, nil
	}

	member := sanitizeIdentifier(hint.member)
	if member == "" {
		member = fmt.Sprintf("Arg%d", hint.index)
	}
	name := m.prefix + fieldGoName(member, hint.index)
	m.byTuple[t.Canonical()] = name

	s := StructModel{GoName: name, Canonical: t.Canonical()}
	for i, f := range t.Fields() {
		goType, err := m.goType(f.Type, structHint{owner: name, member: f.Name, index: i})
		if err != nil {
			return "", err
		}
		s.Fields = append(s.Fields, ParamModel{
			GoName: fieldGoName(f.Name, i),
			GoType: goType,
		})
	}
	m.generated = append(m.generated, s)
	return name, nil
}

func isPow2(n int) bool {
	return n > 0 && n&(n-1) == 0
}
