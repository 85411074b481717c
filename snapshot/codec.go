// Package snapshot implements spec §4.7's SnapshotCodec: a stable JSON
// encoding of a store.Snapshot, deterministic in account and slot
// ordering (store.StorageBackend.CreateSnapshot already emits ascending
// order; this package only has to preserve it through the encoder, so
// it sticks to encoding/json over a struct tree rather than building a
// hand-rolled writer — no ordering decision is made here).
package snapshot

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/simular-fi/simular/store"
)

// wireSlot is one storage slot on the wire: both fields are hex words.
type wireSlot struct {
	Slot  string `json:"slot"`
	Value string `json:"value"`
}

// wireAccount is one account record on the wire. Balance is a decimal
// string; Load does not accept a JSON integer balance. Code is 0x-hex.
// Storage is a JSON array of {slot, value} objects in ascending slot
// order, not a JSON object keyed by slot, so ascending order survives
// encoding even though JSON object key order is not guaranteed by every
// reader; Load accepts only this array form.
type wireAccount struct {
	Address string     `json:"address"`
	Nonce   uint64     `json:"nonce"`
	Balance string     `json:"balance"`
	Code    string     `json:"code"`
	Storage []wireSlot `json:"storage"`
}

// wireSnapshot is the top-level document: an object with source,
// block_num, timestamp, accounts. Accounts is a JSON array of
// wireAccount in ascending address order, each carrying its own
// address, not a JSON object keyed by address.
type wireSnapshot struct {
	Source    string        `json:"source,omitempty"`
	BlockNum  uint64        `json:"block_num"`
	Timestamp uint64        `json:"timestamp"`
	Accounts  []wireAccount `json:"accounts"`
}

// Dump encodes snap as spec §4.7's stable textual form.
func Dump(snap *store.Snapshot) (string, error) {
	doc := wireSnapshot{
		Source:    snap.Source.String(),
		BlockNum:  snap.BlockNumber,
		Timestamp: snap.Timestamp,
	}
	for _, sa := range snap.Accounts {
		wa := wireAccount{
			Address: sa.Address.Hex(),
			Nonce:   sa.Record.Nonce,
			Balance: balanceString(sa.Record.Balance),
			Code:    "0x" + common.Bytes2Hex(sa.Record.Code),
		}
		for _, s := range sa.Record.Storage {
			wa.Storage = append(wa.Storage, wireSlot{
				Slot:  s.Slot.Hex(),
				Value: s.Value.Hex(),
			})
		}
		doc.Accounts = append(doc.Accounts, wa)
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("snapshot: encode: %w", err)
	}
	return string(raw), nil
}

// Load decodes text back into a store.Snapshot. Unknown top-level
// fields are ignored by encoding/json already; a missing "source"
// defaults to fork origin per spec §6, since a loaded snapshot with no
// origin marker is assumed to have come from somewhere other than this
// process's own memory.
func Load(text string) (*store.Snapshot, error) {
	var doc wireSnapshot
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, &ParseError{Err: err}
	}

	snap := &store.Snapshot{
		Source:      parseSource(doc.Source),
		BlockNumber: doc.BlockNum,
		Timestamp:   doc.Timestamp,
	}
	for _, wa := range doc.Accounts {
		addr, err := parseAddress(wa.Address)
		if err != nil {
			return nil, err
		}
		balance, err := parseBalance(wa.Balance)
		if err != nil {
			return nil, err
		}
		code, err := parseHex(wa.Code)
		if err != nil {
			return nil, err
		}
		rec := store.AccountRecord{Nonce: wa.Nonce, Balance: balance, Code: code}
		for _, ws := range wa.Storage {
			slot, err := parseWord(ws.Slot)
			if err != nil {
				return nil, err
			}
			value, err := parseWord(ws.Value)
			if err != nil {
				return nil, err
			}
			rec.Storage = append(rec.Storage, store.StorageSlot{Slot: slot, Value: value})
		}
		snap.Accounts = append(snap.Accounts, store.SnapshotAccount{Address: addr, Record: rec})
	}
	return snap, nil
}

func parseSource(s string) store.Source {
	if s == "Memory" {
		return store.MemorySource
	}
	return store.ForkSource
}

func balanceString(b *uint256.Int) string {
	if b == nil {
		return "0"
	}
	return b.ToBig().String()
}

func parseBalance(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	bi, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, &ParseError{Err: fmt.Errorf("invalid balance %q", s)}
	}
	v, overflow := uint256.FromBig(bi)
	if overflow {
		return nil, &ParseError{Err: fmt.Errorf("balance %q overflows 256 bits", s)}
	}
	return v, nil
}

func parseAddress(s string) (store.Address, error) {
	if !common.IsHexAddress(s) {
		return store.Address{}, &ParseError{Err: fmt.Errorf("invalid address %q", s)}
	}
	return common.HexToAddress(s), nil
}

func parseWord(s string) (store.Word, error) {
	raw, err := parseHex(s)
	if err != nil {
		return store.Word{}, err
	}
	if len(raw) > 32 {
		raw = raw[len(raw)-32:]
	}
	var w store.Word
	copy(w[32-len(raw):], raw)
	return w, nil
}

func parseHex(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s)%2 != 0 {
		s = "0" + s
	}
	raw := common.FromHex("0x" + s)
	return raw, nil
}
