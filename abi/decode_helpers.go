package abi

import (
	"math/big"
	"reflect"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
)

// toBigInt normalizes any of the sized integer kinds Unpack produces
// (uint8..uint64, int8..int64, *big.Int) to a single *big.Int.
func toBigInt(raw interface{}) *big.Int {
	if bi, ok := raw.(*big.Int); ok {
		return new(big.Int).Set(bi)
	}
	v := reflect.ValueOf(raw)
	switch v.Kind() {
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		return new(big.Int).SetUint64(v.Uint())
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		return big.NewInt(v.Int())
	default:
		return new(big.Int)
	}
}

// reflectBytes copies a fixed-size [N]byte array value into a []byte.
func reflectBytes(raw interface{}) []byte {
	v := reflect.ValueOf(raw)
	if v.Kind() != reflect.Array {
		if b, ok := raw.([]byte); ok {
			return b
		}
		return nil
	}
	out := make([]byte, v.Len())
	reflect.Copy(reflect.ValueOf(out), v)
	return out
}

func fromTupleReflect(t gethabi.Type, raw interface{}) (Value, error) {
	v := reflect.ValueOf(raw)
	names := make([]string, len(t.TupleElems))
	elems := make([]Value, len(t.TupleElems))
	for i, elemType := range t.TupleElems {
		fv, err := fromReflect(*elemType, v.Field(i).Interface())
		if err != nil {
			return Value{}, err
		}
		elems[i] = fv
		if i < len(t.TupleRawNames) {
			names[i] = t.TupleRawNames[i]
		}
	}
	return Value{Kind: KindTuple, Names: names, Elems: elems}, nil
}

func fromArrayReflect(t gethabi.Type, raw interface{}) (Value, error) {
	v := reflect.ValueOf(raw)
	kind := KindArray
	if t.T == gethabi.ArrayTy {
		kind = KindFixedArray
	}
	elems := make([]Value, v.Len())
	for i := 0; i < v.Len(); i++ {
		ev, err := fromReflect(*t.Elem, v.Index(i).Interface())
		if err != nil {
			return Value{}, err
		}
		elems[i] = ev
	}
	return Value{Kind: kind, Elems: elems}, nil
}
