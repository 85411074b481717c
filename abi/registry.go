// Package abi is the AbiRegistry: it parses contract interfaces (JSON
// artifacts, bare JSON ABIs, or human-readable signature lists),
// resolves overloaded functions by coercing textual arguments, encodes
// constructor/function calldata, and decodes return values and event
// logs into a tagged dynamic value tree.
//
// Type encoding/decoding rides on go-ethereum/accounts/abi's type
// system (Type, Arguments, Method, Event) so canonical signature
// spellings, selector hashing, and word-level packing match the
// reference implementation exactly; this package supplies the pieces
// accounts/abi does not: textual coercion and overload resolution.
package abi

import (
	"encoding/hex"
	"encoding/json"
	"strings"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// rawArg is one JSON ABI parameter entry.
type rawArg struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Indexed    bool     `json:"indexed"`
	Components []rawArg `json:"components"`
}

// rawItem is one top-level JSON ABI entry (function, constructor,
// event, fallback, or receive).
type rawItem struct {
	Type            string   `json:"type"`
	Name            string   `json:"name"`
	Inputs          []rawArg `json:"inputs"`
	Outputs         []rawArg `json:"outputs"`
	StateMutability string   `json:"stateMutability"`
	Anonymous       bool     `json:"anonymous"`
	// Payable/Constant are the pre-0.6 Solidity ABI spellings; honored
	// alongside stateMutability for artifacts produced by older
	// compilers.
	Payable  bool `json:"payable"`
	Constant bool `json:"constant"`
}

// Registry is spec §3's AbiEntry plus the behavior spec §4.6 attaches
// to it.
type Registry struct {
	bytecode    []byte
	constructor *gethabi.Method
	// functions preserves declaration order per name: overload
	// resolution tries functions[name] in this order.
	functions   map[string][]gethabi.Method
	functionSeq []string // names in first-seen order, for deterministic iteration
	events      []gethabi.Event
	hasFallback bool
	hasReceive  bool
}

// Bytecode returns the contract's deploy bytecode, or nil if none was
// supplied.
func (r *Registry) Bytecode() []byte { return r.bytecode }

// HasFunction reports whether any overload of name is registered.
func (r *Registry) HasFunction(name string) bool { return len(r.functions[name]) > 0 }

// HasFallback reports whether the ABI declares a fallback function.
func (r *Registry) HasFallback() bool { return r.hasFallback }

// HasReceive reports whether the ABI declares a receive function.
func (r *Registry) HasReceive() bool { return r.hasReceive }

// FromFullJSON parses a JSON artifact containing both an "abi" array
// and a bytecode field ("bytecode", "bin", or "deployedBytecode" —
// whichever is present; tried in that order).
func FromFullJSON(text string) (*Registry, error) {
	var artifact struct {
		ABI              []rawItem `json:"abi"`
		Bytecode         string    `json:"bytecode"`
		Bin              string    `json:"bin"`
		DeployedBytecode string    `json:"deployedBytecode"`
	}
	if err := json.Unmarshal([]byte(text), &artifact); err != nil {
		return nil, &ParseError{Text: text, Err: err}
	}
	code := firstNonEmpty(artifact.Bytecode, artifact.Bin, artifact.DeployedBytecode)
	raw, err := decodeHexBlob(code)
	if err != nil {
		return nil, &ParseError{Text: text, Err: err}
	}
	return buildRegistry(artifact.ABI, raw)
}

// FromABIBytecode parses a bare JSON ABI array (or an object carrying
// one under an "abi" key) with deploy bytecode supplied separately.
func FromABIBytecode(abiText string, bytecode []byte) (*Registry, error) {
	items, err := parseABIArray(abiText)
	if err != nil {
		return nil, err
	}
	return buildRegistry(items, bytecode)
}

// FromHumanReadable parses spec §4.6's textual signature form.
func FromHumanReadable(signatures []string) (*Registry, error) {
	decls, err := parseHumanReadable(signatures)
	if err != nil {
		return nil, err
	}
	items := make([]rawItem, 0, len(decls))
	for _, d := range decls {
		item := rawItem{Name: d.Name}
		switch d.Kind {
		case declFunction:
			item.Type = "function"
		case declConstructor:
			item.Type = "constructor"
		case declEvent:
			item.Type = "event"
		}
		for _, p := range d.Inputs {
			item.Inputs = append(item.Inputs, rawArg{Type: p.Type, Indexed: p.Indexed})
		}
		for _, p := range d.Outputs {
			item.Outputs = append(item.Outputs, rawArg{Type: p.Type})
		}
		items = append(items, item)
	}
	return buildRegistry(items, nil)
}

func parseABIArray(text string) ([]rawItem, error) {
	trimmed := strings.TrimSpace(text)
	var items []rawItem
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
			return nil, &ParseError{Text: text, Err: err}
		}
		return items, nil
	}
	var wrapper struct {
		ABI []rawItem `json:"abi"`
	}
	if err := json.Unmarshal([]byte(trimmed), &wrapper); err != nil {
		return nil, &ParseError{Text: text, Err: err}
	}
	return wrapper.ABI, nil
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}

func decodeHexBlob(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return hexutil.Decode(s)
	}
	return hex.DecodeString(s)
}

func buildRegistry(items []rawItem, bytecode []byte) (*Registry, error) {
	reg := &Registry{bytecode: bytecode, functions: map[string][]gethabi.Method{}}
	for _, item := range items {
		switch item.Type {
		case "", "function":
			// Pre-standardization Solidity ABI artifacts omit "type"
			// for functions.
			inputs, err := buildArguments(item.Inputs)
			if err != nil {
				return nil, err
			}
			outputs, err := buildArguments(item.Outputs)
			if err != nil {
				return nil, err
			}
			mutability := item.StateMutability
			if mutability == "" {
				if item.Constant {
					mutability = "view"
				} else if item.Payable {
					mutability = "payable"
				} else {
					mutability = "nonpayable"
				}
			}
			m := gethabi.NewMethod(item.Name, item.Name, gethabi.Function, mutability,
				item.Constant, item.Payable || mutability == "payable", inputs, outputs)
			if _, seen := reg.functions[item.Name]; !seen {
				reg.functionSeq = append(reg.functionSeq, item.Name)
			}
			reg.functions[item.Name] = append(reg.functions[item.Name], m)
		case "constructor":
			inputs, err := buildArguments(item.Inputs)
			if err != nil {
				return nil, err
			}
			mutability := item.StateMutability
			if mutability == "" {
				if item.Payable {
					mutability = "payable"
				} else {
					mutability = "nonpayable"
				}
			}
			m := gethabi.NewMethod("", "", gethabi.Constructor, mutability, false,
				mutability == "payable", inputs, nil)
			reg.constructor = &m
		case "event":
			inputs, err := buildArguments(item.Inputs)
			if err != nil {
				return nil, err
			}
			reg.events = append(reg.events, gethabi.NewEvent(item.Name, item.Name, item.Anonymous, inputs))
		case "fallback":
			reg.hasFallback = true
		case "receive":
			reg.hasReceive = true
		}
	}
	return reg, nil
}

func buildArguments(args []rawArg) (gethabi.Arguments, error) {
	out := make(gethabi.Arguments, 0, len(args))
	for i, a := range args {
		am, err := rawArgToMarshaling(a, i)
		if err != nil {
			return nil, err
		}
		t, err := gethabi.NewType(am.Type, "", am.Components)
		if err != nil {
			return nil, &ParseError{Text: a.Type, Err: err}
		}
		out = append(out, gethabi.Argument{Name: am.Name, Type: t, Indexed: a.Indexed})
	}
	return out, nil
}

func rawArgToMarshaling(a rawArg, index int) (gethabi.ArgumentMarshaling, error) {
	name := a.Name
	if name == "" {
		name = componentName(index)
	}
	if len(a.Components) > 0 {
		comps := make([]gethabi.ArgumentMarshaling, 0, len(a.Components))
		for i, c := range a.Components {
			cm, err := rawArgToMarshaling(c, i)
			if err != nil {
				return gethabi.ArgumentMarshaling{}, err
			}
			comps = append(comps, cm)
		}
		return gethabi.ArgumentMarshaling{Name: name, Type: a.Type, Components: comps}, nil
	}
	// No components given but the type string itself may spell a tuple
	// (e.g. "(uint64,uint64)" from a human-readable signature) — parse
	// it the same way the human-readable path does.
	if strings.Contains(a.Type, "(") {
		parsed, err := parseTypeString(a.Type)
		if err != nil {
			return gethabi.ArgumentMarshaling{}, err
		}
		parsed.Name = name
		return parsed, nil
	}
	return gethabi.ArgumentMarshaling{Name: name, Type: a.Type}, nil
}
