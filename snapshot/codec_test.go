package snapshot

import (
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/simular-fi/simular/store"
)

func testAddr(n byte) store.Address {
	var a store.Address
	a[19] = n
	return a
}

func TestDumpLoadRoundTrip(t *testing.T) {
	snap := &store.Snapshot{
		Source:      store.MemorySource,
		BlockNumber: 42,
		Timestamp:   1_700_000_420,
		Accounts: []store.SnapshotAccount{
			{
				Address: testAddr(1),
				Record: store.AccountRecord{
					Nonce:   3,
					Balance: uint256.NewInt(1_000_000),
					Code:    []byte{0x60, 0x00},
					Storage: []store.StorageSlot{
						{Slot: common.BigToHash(uint256.NewInt(0).ToBig()), Value: common.BigToHash(uint256.NewInt(7).ToBig())},
						{Slot: common.BigToHash(uint256.NewInt(1).ToBig()), Value: common.BigToHash(uint256.NewInt(9).ToBig())},
					},
				},
			},
			{
				Address: testAddr(2),
				Record: store.AccountRecord{
					Nonce:   0,
					Balance: new(uint256.Int),
					Code:    nil,
				},
			},
		},
	}

	text, err := Dump(snap)
	if err != nil {
		t.Fatalf("Dump failed: %v", err)
	}
	if !strings.Contains(text, "\"block_num\": 42") {
		t.Fatalf("want block_num in output, got %s", text)
	}

	loaded, err := Load(text)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Source != store.MemorySource {
		t.Fatalf("want MemorySource preserved, got %v", loaded.Source)
	}
	if loaded.BlockNumber != 42 || loaded.Timestamp != 1_700_000_420 {
		t.Fatalf("block/timestamp mismatch: %+v", loaded)
	}
	if len(loaded.Accounts) != 2 {
		t.Fatalf("want 2 accounts, got %d", len(loaded.Accounts))
	}

	first := loaded.Accounts[0]
	if first.Address != testAddr(1) {
		t.Fatalf("want first account address %x, got %x", testAddr(1), first.Address)
	}
	if first.Record.Nonce != 3 {
		t.Fatalf("want nonce 3, got %d", first.Record.Nonce)
	}
	if first.Record.Balance.Uint64() != 1_000_000 {
		t.Fatalf("want balance 1000000, got %v", first.Record.Balance)
	}
	if len(first.Record.Code) != 2 || first.Record.Code[0] != 0x60 {
		t.Fatalf("want code preserved, got %x", first.Record.Code)
	}
	if len(first.Record.Storage) != 2 {
		t.Fatalf("want 2 storage slots, got %d", len(first.Record.Storage))
	}
	if first.Record.Storage[1].Value.Big().Uint64() != 9 {
		t.Fatalf("want second slot value 9, got %v", first.Record.Storage[1].Value)
	}

	second := loaded.Accounts[1]
	if second.Record.Balance == nil || !second.Record.Balance.IsZero() {
		t.Fatalf("want zero balance round-tripped as zero, got %v", second.Record.Balance)
	}
	if len(second.Record.Code) != 0 {
		t.Fatalf("want empty code preserved as empty, got %x", second.Record.Code)
	}
}

func TestDumpForkSourceRoundTrips(t *testing.T) {
	snap := &store.Snapshot{Source: store.ForkSource, BlockNumber: 1, Timestamp: 1}
	text, err := Dump(snap)
	if err != nil {
		t.Fatalf("Dump failed: %v", err)
	}
	loaded, err := Load(text)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Source != store.ForkSource {
		t.Fatalf("want ForkSource preserved, got %v", loaded.Source)
	}
}

func TestLoadMissingSourceDefaultsToFork(t *testing.T) {
	loaded, err := Load(`{"block_num": 1, "timestamp": 1, "accounts": []}`)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Source != store.ForkSource {
		t.Fatalf("want missing source to default to ForkSource, got %v", loaded.Source)
	}
}

func TestLoadMalformedJSONReturnsParseError(t *testing.T) {
	_, err := Load("{not valid json")
	if err == nil {
		t.Fatalf("want an error for malformed JSON")
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("want *ParseError, got %T: %v", err, err)
	}
}

func TestLoadInvalidAddressReturnsParseError(t *testing.T) {
	text := `{"block_num": 1, "timestamp": 1, "accounts": [{"address": "not-an-address", "nonce": 0, "balance": "0", "code": "0x", "storage": []}]}`
	_, err := Load(text)
	if err == nil {
		t.Fatalf("want an error for an invalid address")
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("want *ParseError, got %T: %v", err, err)
	}
}

func TestLoadBalanceOverflowReturnsParseError(t *testing.T) {
	huge := strings.Repeat("9", 100)
	text := `{"block_num": 1, "timestamp": 1, "accounts": [{"address": "0x0000000000000000000000000000000000000001", "nonce": 0, "balance": "` + huge + `", "code": "0x", "storage": []}]}`
	_, err := Load(text)
	if err == nil {
		t.Fatalf("want an error for an overflowing balance")
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("want *ParseError, got %T: %v", err, err)
	}
}
