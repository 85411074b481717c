package store

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

// MemoryStore is a mapping of Address to Account, augmented with a
// per-address storage table and a global code-by-hash table. The maps
// are unordered; StorageBackend.CreateSnapshot sorts addresses and slots.
//
// The phantom-default rule (spec §4.2): a read of an address that was
// never observed materializes and returns an empty Account tagged
// Default, rather than reporting "not found", so that a pure in-memory
// backend (no remote fallback) never aborts a contract call that
// touches an unfunded EOA. A CachingStore embeds a MemoryStore as its
// cache and relies on the Unknown tag instead — see caching.go.
type MemoryStore struct {
	accounts map[Address]*Account
	states   map[Address]AccountState
	storage  map[Address]map[Word]Word
	code     map[common.Hash][]byte

	// phantomDefault selects the tag returned for an address that was
	// never observed: Default for a pure in-memory backend (the
	// invariant in spec §3), Unknown for a CachingStore's inner cache
	// (so it knows to fetch).
	phantomDefault AccountState
}

// NewMemoryStore returns a MemoryStore suitable for use as a standalone,
// non-forking backend: unseen addresses read back as Default.
func NewMemoryStore() *MemoryStore {
	return newMemoryStore(Default)
}

func newMemoryStore(unseenTag AccountState) *MemoryStore {
	return &MemoryStore{
		accounts:       make(map[Address]*Account),
		states:         make(map[Address]AccountState),
		storage:        make(map[Address]map[Word]Word),
		code:           make(map[common.Hash][]byte),
		phantomDefault: unseenTag,
	}
}

// InsertAccount records (or overwrites) an account. If the account
// carries embedded code, the code-by-hash table is populated too.
func (m *MemoryStore) InsertAccount(addr Address, acc *Account) {
	cp := acc.clone()
	m.accounts[addr] = cp
	m.states[addr] = Touched
	if len(cp.Code) > 0 {
		m.code[cp.CodeHash] = append([]byte(nil), cp.Code...)
	}
	log.Trace("store: account inserted", "addr", addr, "nonce", cp.Nonce, "balance", cp.Balance)
}

// Basic returns the account at addr and the tag describing how it got
// there. An address never observed returns (account, m.phantomDefault);
// for a plain MemoryStore that account is an always-fresh empty
// default, never cached, so repeated calls are side-effect free.
func (m *MemoryStore) Basic(addr Address) (*Account, AccountState) {
	if acc, ok := m.accounts[addr]; ok {
		return acc, m.states[addr]
	}
	if m.phantomDefault == Default {
		return newDefaultAccount(), Default
	}
	return nil, Unknown
}

// Storage returns the value at slot for addr; an absent slot reads as
// the zero word, per spec §3.
func (m *MemoryStore) Storage(addr Address, slot Word) Word {
	if per, ok := m.storage[addr]; ok {
		if v, ok := per[slot]; ok {
			return v
		}
	}
	return Word{}
}

// StorageObserved reports whether (addr, slot) was ever written,
// distinguishing "absent" from "present and zero" for CachingStore's
// miss bookkeeping.
func (m *MemoryStore) StorageObserved(addr Address, slot Word) bool {
	per, ok := m.storage[addr]
	if !ok {
		return false
	}
	_, ok = per[slot]
	return ok
}

// SetStorage writes a slot, marking the address Touched if it wasn't
// already known.
func (m *MemoryStore) SetStorage(addr Address, slot, value Word) {
	if _, ok := m.accounts[addr]; !ok {
		m.accounts[addr] = newDefaultAccount()
	}
	if m.states[addr] == Unknown || m.states[addr] == 0 {
		m.states[addr] = Touched
	}
	per, ok := m.storage[addr]
	if !ok {
		per = make(map[Word]Word)
		m.storage[addr] = per
	}
	per[slot] = value
}

// loadStorageSlot writes a slot during snapshot load without touching
// the account's AccountState tag beyond what InsertAccount already set
// — it is the same underlying write as SetStorage, kept as a distinct
// entry point per SPEC_FULL.md §4.2 so call sites read as intent, not
// incidental reuse.
func (m *MemoryStore) loadStorageSlot(addr Address, slot, value Word) {
	m.SetStorage(addr, slot, value)
}

// CodeByHash resolves code previously inserted via InsertAccount or a
// commit. Returns ok=false if the hash was never seen.
func (m *MemoryStore) CodeByHash(hash common.Hash) ([]byte, bool) {
	if hash == EmptyCodeHash {
		return nil, true
	}
	code, ok := m.code[hash]
	return code, ok
}

// Commit applies a state delta to the store: nonce/balance/code updates,
// storage writes, and self-destruct removals.
func (m *MemoryStore) Commit(delta Delta) {
	for _, ch := range delta.Changes {
		if ch.Destructed {
			delete(m.accounts, ch.Address)
			delete(m.states, ch.Address)
			delete(m.storage, ch.Address)
			continue
		}
		acc, ok := m.accounts[ch.Address]
		if !ok {
			acc = newDefaultAccount()
		} else {
			acc = acc.clone()
		}
		if ch.NonceChange != nil {
			acc.Nonce = *ch.NonceChange
		}
		if ch.BalanceAfter != nil {
			acc.Balance = new(uint256.Int).Set(ch.BalanceAfter)
		}
		if ch.CodeChange != nil {
			acc.Code = append([]byte(nil), ch.CodeChange...)
			if len(acc.Code) == 0 {
				acc.CodeHash = EmptyCodeHash
			} else {
				acc.CodeHash = codeHash(acc.Code)
				m.code[acc.CodeHash] = append([]byte(nil), acc.Code...)
			}
		}
		m.accounts[ch.Address] = acc
		m.states[ch.Address] = Touched

		for slot, value := range ch.Storage {
			m.SetStorage(ch.Address, slot, value)
		}
	}
	log.Debug("store: committed delta", "accounts", len(delta.Changes))
}

// Addresses returns every address this store has ever observed, in no
// particular order; StorageBackend.CreateSnapshot sorts it.
func (m *MemoryStore) Addresses() []Address {
	out := make([]Address, 0, len(m.accounts))
	for a := range m.accounts {
		out = append(out, a)
	}
	return out
}

// StorageSlots returns every slot ever written for addr, in no
// particular order.
func (m *MemoryStore) StorageSlots(addr Address) map[Word]Word {
	return m.storage[addr]
}
