package abi

import (
	"encoding/hex"
	"errors"
	"math/big"
	"reflect"
	"strings"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var errBadTuple = errors.New("argument text is not a parenthesized tuple")

// coerceArgs parses argsText — a single parenthesized textual tuple,
// spec §4.6's `"(1, 0xabc…, (5, hello))"` form — against inputs and
// returns the Go values ready for Arguments.Pack.
func coerceArgs(inputs gethabi.Arguments, argsText string) ([]interface{}, error) {
	fields, err := splitOuterTuple(argsText)
	if err != nil {
		return nil, err
	}
	if len(fields) != len(inputs) {
		return nil, errBadTuple
	}
	values := make([]interface{}, len(inputs))
	for i, arg := range inputs {
		v, err := coerceToType(arg.Type, strings.TrimSpace(fields[i]))
		if err != nil {
			return nil, err
		}
		values[i] = v.Interface()
	}
	return values, nil
}

// splitOuterTuple strips the outer "(...)" and splits its contents on
// top-level commas. "()" and "" both mean zero fields.
func splitOuterTuple(text string) ([]string, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil, nil
	}
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return nil, errBadTuple
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return nil, nil
	}
	return splitTopLevel(inner), nil
}

func coerceToType(t gethabi.Type, text string) (reflect.Value, error) {
	switch t.T {
	case gethabi.AddressTy:
		addr, err := parseAddressText(text)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(addr), nil

	case gethabi.BoolTy:
		switch strings.ToLower(strings.TrimSpace(text)) {
		case "true":
			return reflect.ValueOf(true), nil
		case "false":
			return reflect.ValueOf(false), nil
		default:
			return reflect.Value{}, &CoerceError{Function: "bool", Args: text}
		}

	case gethabi.UintTy, gethabi.IntTy:
		return coerceInteger(t, text)

	case gethabi.FixedBytesTy:
		raw, err := hexToBytes(text)
		if err != nil {
			return reflect.Value{}, err
		}
		if len(raw) != t.Size {
			return reflect.Value{}, &CoerceError{Function: "fixed bytes", Args: text}
		}
		arr := reflect.New(t.GetType()).Elem()
		reflect.Copy(arr, reflect.ValueOf(raw))
		return arr, nil

	case gethabi.BytesTy:
		raw, err := hexToBytes(text)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(raw), nil

	case gethabi.StringTy:
		return reflect.ValueOf(unquote(text)), nil

	case gethabi.SliceTy, gethabi.ArrayTy:
		elems, err := splitBracketed(text)
		if err != nil {
			return reflect.Value{}, err
		}
		if t.T == gethabi.ArrayTy && len(elems) != t.Size {
			return reflect.Value{}, &CoerceError{Function: "fixed array", Args: text}
		}
		goType := t.GetType()
		slice := reflect.MakeSlice(reflect.SliceOf(t.Elem.GetType()), len(elems), len(elems))
		for i, e := range elems {
			v, err := coerceToType(*t.Elem, strings.TrimSpace(e))
			if err != nil {
				return reflect.Value{}, err
			}
			slice.Index(i).Set(v)
		}
		if t.T == gethabi.ArrayTy {
			arr := reflect.New(goType).Elem()
			reflect.Copy(arr, slice)
			return arr, nil
		}
		return slice, nil

	case gethabi.TupleTy:
		fields, err := splitOuterTuple(text)
		if err != nil {
			return reflect.Value{}, err
		}
		if len(fields) != len(t.TupleElems) {
			return reflect.Value{}, &CoerceError{Function: "tuple", Args: text}
		}
		out := reflect.New(t.TupleType).Elem()
		for i, elemType := range t.TupleElems {
			v, err := coerceToType(*elemType, strings.TrimSpace(fields[i]))
			if err != nil {
				return reflect.Value{}, err
			}
			out.Field(i).Set(v)
		}
		return out, nil

	default:
		return reflect.Value{}, &CoerceError{Function: t.String(), Args: text}
	}
}

func coerceInteger(t gethabi.Type, text string) (reflect.Value, error) {
	bi, ok := parseBigInt(text)
	if !ok {
		return reflect.Value{}, &CoerceError{Function: "integer", Args: text}
	}
	signed := t.T == gethabi.IntTy
	if !fitsWidth(bi, t.Size, signed) {
		return reflect.Value{}, &OverflowError{Text: text, Bits: t.Size, Signed: signed}
	}
	if t.Size > 64 {
		return reflect.ValueOf(new(big.Int).Set(bi)).Convert(t.GetType()), nil
	}
	if signed {
		i := bi.Int64()
		switch t.Size {
		case 8:
			return reflect.ValueOf(int8(i)), nil
		case 16:
			return reflect.ValueOf(int16(i)), nil
		case 32:
			return reflect.ValueOf(int32(i)), nil
		default:
			return reflect.ValueOf(i), nil
		}
	}
	u := bi.Uint64()
	switch t.Size {
	case 8:
		return reflect.ValueOf(uint8(u)), nil
	case 16:
		return reflect.ValueOf(uint16(u)), nil
	case 32:
		return reflect.ValueOf(uint32(u)), nil
	default:
		return reflect.ValueOf(u), nil
	}
}

func fitsWidth(bi *big.Int, bits int, signed bool) bool {
	if signed {
		limit := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
		neg := new(big.Int).Neg(limit)
		max := new(big.Int).Sub(limit, big.NewInt(1))
		return bi.Cmp(neg) >= 0 && bi.Cmp(max) <= 0
	}
	if bi.Sign() < 0 {
		return false
	}
	limit := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	return bi.Cmp(limit) < 0
}

func parseBigInt(text string) (*big.Int, bool) {
	s := strings.TrimSpace(text)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var bi *big.Int
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, ok := new(big.Int).SetString(s[2:], 16)
		if !ok {
			return nil, false
		}
		bi = v
	} else {
		v, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, false
		}
		bi = v
	}
	if neg {
		bi.Neg(bi)
	}
	return bi, true
}

func parseAddressText(text string) (common.Address, error) {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	if len(s) != 40 {
		return common.Address{}, &CoerceError{Function: "address", Args: text}
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return common.Address{}, &CoerceError{Function: "address", Args: text}
	}
	var addr common.Address
	copy(addr[:], raw)
	return addr, nil
}

func hexToBytes(text string) ([]byte, error) {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	if len(s)%2 != 0 {
		s = "0" + s
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, &CoerceError{Function: "bytes", Args: text}
	}
	return raw, nil
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// splitBracketed strips a "[...]" wrapper and splits on top-level
// commas.
func splitBracketed(text string) ([]string, error) {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, &CoerceError{Function: "array", Args: text}
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return nil, nil
	}
	return splitTopLevel(inner), nil
}
