package abi

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Kind tags a Value's shape, matching spec §4.6's dynamic output tree
// (Address, Bool, Int, Uint, Bytes, FixedBytes, String, Tuple, Array,
// FixedArray).
type Kind uint8

const (
	KindAddress Kind = iota
	KindBool
	KindInt
	KindUint
	KindBytes
	KindFixedBytes
	KindString
	KindTuple
	KindArray
	KindFixedArray
)

// Value is the tagged dynamic tree that AbiRegistry decodes call
// outputs and log fields into, so a caller can walk a return value
// without depending on accounts/abi's reflection-based types directly.
type Value struct {
	Kind Kind

	Address common.Address
	Bool    bool
	Int     *big.Int // used for both KindInt and KindUint
	Bytes   []byte
	Str     string

	// Names, for KindTuple, parallels Elems and carries each field's
	// declared name (empty string for an unnamed field).
	Names []string
	Elems []Value
}

func (v Value) String() string {
	switch v.Kind {
	case KindAddress:
		return v.Address.Hex()
	case KindBool:
		return fmt.Sprintf("%v", v.Bool)
	case KindInt, KindUint:
		return v.Int.String()
	case KindBytes, KindFixedBytes:
		return "0x" + fmt.Sprintf("%x", v.Bytes)
	case KindString:
		return v.Str
	case KindTuple:
		return fmt.Sprintf("%v", v.Elems)
	case KindArray, KindFixedArray:
		return fmt.Sprintf("%v", v.Elems)
	default:
		return "<invalid>"
	}
}
