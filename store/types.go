// Package store implements the layered state backend: an in-memory
// account/storage/code database, an optional read-through cache in front
// of a remote node, and the adapter that presents either one to
// core/vm.EVM as a core/vm.StateDB.
package store

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Address is the 20-byte account identity.
type Address = common.Address

// Word is a 256-bit value, used for storage slot keys/values and for
// balances. Storage slots use the common.Hash spelling (what
// core/vm.StateDB's Get/SetState already expect); balances and other
// arithmetic quantities use *uint256.Int.
type Word = common.Hash

// EmptyCodeHash is the keccak256 of the empty byte string, the sentinel
// meaning "this account has no code".
var EmptyCodeHash = crypto.Keccak256Hash(nil)

// AccountState tags why a MemoryStore entry exists, distinguishing
// "never observed" from "observed and empty" so phantom-default reads
// and cache-miss bookkeeping can tell them apart.
type AccountState uint8

const (
	// Unknown means the address was never observed. A CachingStore
	// backed by a RemoteFetcher treats this as "does not exist yet" and
	// fetches; a pure MemoryStore never produces this tag for a read.
	Unknown AccountState = iota
	// Touched means the account was explicitly created, received a
	// state delta, or was populated by a remote fetch.
	Touched
	// Default means the slot was materialized as an always-empty
	// placeholder so an in-memory-only backend never reports "missing
	// account" for an address nobody created.
	Default
)

// Account is the stored record for one address.
type Account struct {
	Nonce    uint64
	Balance  *uint256.Int
	CodeHash common.Hash
	// Code is the embedded bytecode blob, or nil if it must be resolved
	// by CodeHash via the code table.
	Code []byte
}

// Empty reports whether the account is indistinguishable from one that
// was never created (used by core/vm.StateDB.Empty).
func (a *Account) Empty() bool {
	return a.Nonce == 0 && (a.Balance == nil || a.Balance.IsZero()) && a.CodeHash == EmptyCodeHash
}

func newDefaultAccount() *Account {
	return &Account{Balance: new(uint256.Int), CodeHash: EmptyCodeHash}
}

func (a *Account) clone() *Account {
	cp := *a
	if a.Balance != nil {
		cp.Balance = new(uint256.Int).Set(a.Balance)
	} else {
		cp.Balance = new(uint256.Int)
	}
	if a.Code != nil {
		cp.Code = append([]byte(nil), a.Code...)
	}
	return &cp
}

// AccountChange is the pure-data state delta an ExecutionEngine run
// produces. It is applied to a StorageBackend only by an explicit
// commit; a failed or non-committing run discards it.
type AccountChange struct {
	Address      Address
	NonceChange  *uint64
	BalanceAfter *uint256.Int
	CodeChange   []byte // nil means "unchanged"; set (possibly empty) means "replaced"
	Storage      map[Word]Word
	// Destructed marks the account as self-destructed within the
	// transaction; commit removes it from the store.
	Destructed bool
}

// Delta is the set of per-address changes produced by one
// ExecutionEngine run. The order of Changes is not defined (BuildDelta
// walks a map); StorageBackend.Commit does not depend on order.
type Delta struct {
	Changes      []AccountChange
	CreatedAddr  *Address
	Logs         []Log
	GasUsed      uint64
	GasRefunded  uint64
	ReturnedData []byte
}

// Log mirrors spec §3's Log record; it is a plain copy of
// core/types.Log's fields so callers outside this module never need to
// import core/types directly.
type Log struct {
	Address Address
	Topics  []common.Hash
	Data    []byte
}

// BlockContext is the block number/timestamp pair a StorageBackend owns.
type BlockContext struct {
	Number    uint64
	Timestamp uint64
}

func bigFromUint256(w *uint256.Int) *big.Int {
	if w == nil {
		return new(big.Int)
	}
	return w.ToBig()
}

func codeHash(code []byte) common.Hash {
	if len(code) == 0 {
		return EmptyCodeHash
	}
	return crypto.Keccak256Hash(code)
}
