package store

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

// RemoteFetcher is the read-through source a CachingStore falls back to.
// rpc.Fetcher implements this interface; it is declared here (the
// consumer side) so store never imports the rpc package.
type RemoteFetcher interface {
	Basic(ctx context.Context, addr Address) (*Account, error)
	Storage(ctx context.Context, addr Address, slot Word) (Word, error)
	BlockHash(ctx context.Context, number *uint256.Int) (common.Hash, error)
	CodeByHash(hash common.Hash) ([]byte, error)
}

// CachingStore layers a MemoryStore cache in front of a RemoteFetcher.
// Reads that hit the cache never touch the network; misses fetch once
// and populate the cache, including a slot read that comes back zero —
// the miss itself is cached so repeated reads of the same missing slot
// never re-fetch (spec §4.3).
type CachingStore struct {
	cache   *MemoryStore
	remote  RemoteFetcher
	fetched map[Address]bool // addresses with an Account in the cache, whether fetched, inserted locally or committed
}

// NewCachingStore returns a CachingStore reading through to remote on
// misses.
func NewCachingStore(remote RemoteFetcher) *CachingStore {
	return &CachingStore{
		cache:   newMemoryStore(Unknown),
		remote:  remote,
		fetched: make(map[Address]bool),
	}
}

// InsertAccount writes only to the cache; the remote is never mutated.
func (c *CachingStore) InsertAccount(addr Address, acc *Account) {
	c.cache.InsertAccount(addr, acc)
	c.fetched[addr] = true
}

// Basic returns the cached account, fetching from remote on a miss.
func (c *CachingStore) Basic(ctx context.Context, addr Address) (*Account, AccountState, error) {
	if acc, tag := c.cache.Basic(addr); tag != Unknown {
		return acc, tag, nil
	}
	acc, err := c.remote.Basic(ctx, addr)
	if err != nil {
		return nil, Unknown, err
	}
	c.cache.InsertAccount(addr, acc)
	c.fetched[addr] = true
	log.Trace("store: cache miss, fetched account", "addr", addr)
	return acc, Touched, nil
}

// Storage returns the cached slot, fetching from remote on a miss and
// caching the result (even if zero) so the miss is not repeated.
func (c *CachingStore) Storage(ctx context.Context, addr Address, slot Word) (Word, error) {
	if c.cache.StorageObserved(addr, slot) {
		return c.cache.Storage(addr, slot), nil
	}
	value, err := c.remote.Storage(ctx, addr, slot)
	if err != nil {
		return Word{}, err
	}
	c.cache.SetStorage(addr, slot, value)
	return value, nil
}

// SetStorage writes only to the cache.
func (c *CachingStore) SetStorage(addr Address, slot, value Word) {
	c.cache.SetStorage(addr, slot, value)
}

// CodeByHash is resolved only from the cache: the remote cannot answer
// a reverse code-hash lookup, so a cache miss is a hard error.
func (c *CachingStore) CodeByHash(hash common.Hash) ([]byte, error) {
	code, ok := c.cache.CodeByHash(hash)
	if !ok {
		return nil, &MissingCodeError{Hash: hash}
	}
	return code, nil
}

// Commit applies the delta to the cache only.
func (c *CachingStore) Commit(delta Delta) {
	c.cache.Commit(delta)
	for _, ch := range delta.Changes {
		c.fetched[ch.Address] = true
	}
}

func (c *CachingStore) Addresses() []Address                    { return c.cache.Addresses() }
func (c *CachingStore) StorageSlots(addr Address) map[Word]Word { return c.cache.StorageSlots(addr) }

// MissingCodeError is returned by CodeByHash when neither the cache nor
// (by construction) the remote can resolve the hash.
type MissingCodeError struct {
	Hash common.Hash
}

func (e *MissingCodeError) Error() string {
	return "store: no code known for hash " + e.Hash.Hex()
}
