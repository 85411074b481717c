package abi

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/simular-fi/simular/store"
)

func TestEncodeFunctionResolvesOverloadByFirstCoercion(t *testing.T) {
	reg, err := FromHumanReadable([]string{
		"function one() (bool)",
		"function one(uint256)",
		"function one(address,(uint64,uint64)) (address)",
	})
	if err != nil {
		t.Fatalf("FromHumanReadable failed: %v", err)
	}

	addrHex := "0x" + strings.Repeat("00", 19) + "18"
	resolved, err := reg.EncodeFunction("one", "("+addrHex+",(10,11))")
	if err != nil {
		t.Fatalf("EncodeFunction failed: %v", err)
	}
	if len(resolved.Outputs) != 1 || resolved.Outputs[0].Type.String() != "address" {
		t.Fatalf("want the third overload (single address output) selected, got outputs %v", resolved.Outputs)
	}

	third := reg.functions["one"][2]
	if string(resolved.Calldata[:4]) != string(third.ID) {
		t.Fatalf("want third overload's selector, got %x want %x", resolved.Calldata[:4], third.ID)
	}
}

func TestEncodeFunctionUnknownNameFails(t *testing.T) {
	reg, err := FromHumanReadable([]string{"function one() (bool)"})
	if err != nil {
		t.Fatalf("FromHumanReadable failed: %v", err)
	}
	if _, err := reg.EncodeFunction("two", "()"); err == nil {
		t.Fatalf("want an error for an unregistered function name")
	}
}

func TestExtractLogsReturnsMatchesInOrder(t *testing.T) {
	reg, err := FromHumanReadable([]string{
		"event Transfer(address indexed from, address indexed to, uint256 amount)",
		"event Burn(address indexed from, uint256 amount)",
	})
	if err != nil {
		t.Fatalf("FromHumanReadable failed: %v", err)
	}
	if len(reg.events) != 2 {
		t.Fatalf("want 2 registered events, got %d", len(reg.events))
	}
	transferEvent, burnEvent := reg.events[0], reg.events[1]

	from := common.Address{0x01}
	to := common.Address{0x02}

	transferData, err := transferEvent.Inputs.NonIndexed().Pack(big.NewInt(100))
	if err != nil {
		t.Fatalf("pack Transfer data: %v", err)
	}
	transferLog := store.Log{
		Topics: []common.Hash{transferEvent.ID, common.BytesToHash(from.Bytes()), common.BytesToHash(to.Bytes())},
		Data:   transferData,
	}

	burnData, err := burnEvent.Inputs.NonIndexed().Pack(big.NewInt(7))
	if err != nil {
		t.Fatalf("pack Burn data: %v", err)
	}
	burnLog := store.Log{
		Topics: []common.Hash{burnEvent.ID, common.BytesToHash(from.Bytes())},
		Data:   burnData,
	}

	matches := reg.ExtractLogs([]store.Log{transferLog, burnLog})
	if len(matches) != 2 {
		t.Fatalf("want 2 log matches, got %d: %+v", len(matches), matches)
	}
	if matches[0].EventName != "Transfer" || matches[1].EventName != "Burn" {
		t.Fatalf("want matches in [Transfer, Burn] order, got [%s, %s]", matches[0].EventName, matches[1].EventName)
	}
	if len(matches[0].Value.Elems) != 3 {
		t.Fatalf("want 3 decoded Transfer fields, got %d", len(matches[0].Value.Elems))
	}
	if matches[0].Value.Elems[2].Int.Int64() != 100 {
		t.Fatalf("want decoded amount 100, got %v", matches[0].Value.Elems[2].Int)
	}
	if matches[1].Value.Elems[1].Int.Int64() != 7 {
		t.Fatalf("want decoded Burn amount 7, got %v", matches[1].Value.Elems[1].Int)
	}
}

func TestCoerceArgsOverflowRejectsOutOfRangeInteger(t *testing.T) {
	reg, err := FromHumanReadable([]string{"function setByte(uint8)"})
	if err != nil {
		t.Fatalf("FromHumanReadable failed: %v", err)
	}
	if _, err := reg.EncodeFunction("setByte", "(256)"); err == nil {
		t.Fatalf("want an overflow error for uint8(256)")
	}
}
