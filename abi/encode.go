package abi

import (
	"fmt"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
)

// EncodeConstructor implements spec §4.6's encode_constructor: calldata
// is bytecode ‖ abi_encode(args); an ABI with no declared constructor
// returns just the bytecode with is_payable = false.
func (r *Registry) EncodeConstructor(argsText string) (calldata []byte, isPayable bool, err error) {
	if r.constructor == nil {
		return append([]byte(nil), r.bytecode...), false, nil
	}
	values, err := coerceArgs(r.constructor.Inputs, argsText)
	if err != nil {
		return nil, false, err
	}
	packed, err := r.constructor.Inputs.Pack(values...)
	if err != nil {
		return nil, false, &CoerceError{Function: "constructor", Args: argsText}
	}
	out := make([]byte, 0, len(r.bytecode)+len(packed))
	out = append(out, r.bytecode...)
	out = append(out, packed...)
	return out, r.constructor.Payable, nil
}

// ResolvedCall is what EncodeFunction returns: the calldata to send
// plus enough of the matched overload to interpret the response.
type ResolvedCall struct {
	Calldata  []byte
	IsPayable bool
	Outputs   gethabi.Arguments
}

// EncodeFunction implements spec §4.6's encode_function and its
// overload-resolution rule: overloads of name are tried in declaration
// order, and the first whose inputs coerce argsText successfully wins.
func (r *Registry) EncodeFunction(name, argsText string) (*ResolvedCall, error) {
	overloads := r.functions[name]
	if len(overloads) == 0 {
		return nil, &CoerceError{Function: name, Args: argsText}
	}
	for _, m := range overloads {
		values, err := coerceArgs(m.Inputs, argsText)
		if err != nil {
			continue
		}
		packed, err := m.Inputs.Pack(values...)
		if err != nil {
			continue
		}
		calldata := make([]byte, 0, 4+len(packed))
		calldata = append(calldata, m.ID...)
		calldata = append(calldata, packed...)
		return &ResolvedCall{Calldata: calldata, IsPayable: m.Payable, Outputs: m.Outputs}, nil
	}
	return nil, &CoerceError{Function: name, Args: argsText}
}

// DecodeOutput implements spec §4.6's output decoding: nil outputs
// decode to no value, a single output decodes to that value directly,
// and more than one output decodes to a Tuple.
func DecodeOutput(outputs gethabi.Arguments, data []byte) (*Value, error) {
	if len(outputs) == 0 {
		return nil, nil
	}
	raw, err := outputs.Unpack(data)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	values := make([]Value, len(outputs))
	for i, arg := range outputs {
		v, err := fromReflect(arg.Type, raw[i])
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	if len(values) == 1 {
		return &values[0], nil
	}
	names := make([]string, len(outputs))
	for i, arg := range outputs {
		names[i] = arg.Name
	}
	return &Value{Kind: KindTuple, Names: names, Elems: values}, nil
}

// fromReflect converts one Unpack-produced Go value back into the
// dynamic Value tree, mirroring coerceToType's type switch.
func fromReflect(t gethabi.Type, raw interface{}) (Value, error) {
	switch t.T {
	case gethabi.AddressTy:
		addr, ok := raw.(interface{ Bytes() []byte })
		if !ok {
			return Value{}, &DecodeError{Err: fmt.Errorf("expected address, got %T", raw)}
		}
		var v Value
		v.Kind = KindAddress
		copy(v.Address[:], addr.Bytes())
		return v, nil

	case gethabi.BoolTy:
		return Value{Kind: KindBool, Bool: raw.(bool)}, nil

	case gethabi.UintTy:
		return Value{Kind: KindUint, Int: toBigInt(raw)}, nil

	case gethabi.IntTy:
		return Value{Kind: KindInt, Int: toBigInt(raw)}, nil

	case gethabi.FixedBytesTy:
		b := reflectBytes(raw)
		return Value{Kind: KindFixedBytes, Bytes: b}, nil

	case gethabi.BytesTy:
		return Value{Kind: KindBytes, Bytes: raw.([]byte)}, nil

	case gethabi.StringTy:
		return Value{Kind: KindString, Str: raw.(string)}, nil

	case gethabi.TupleTy:
		return fromTupleReflect(t, raw)

	case gethabi.SliceTy, gethabi.ArrayTy:
		return fromArrayReflect(t, raw)

	default:
		return Value{}, &DecodeError{Err: fmt.Errorf("unsupported output type %s", t.String())}
	}
}
