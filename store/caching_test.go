package store

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// fakeFetcher counts calls so tests can assert a miss is fetched at most once.
type fakeFetcher struct {
	basicCalls   map[Address]int
	storageCalls map[Address]int
	accounts     map[Address]*Account
	storage      map[Address]map[Word]Word
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		basicCalls:   make(map[Address]int),
		storageCalls: make(map[Address]int),
		accounts:     make(map[Address]*Account),
		storage:      make(map[Address]map[Word]Word),
	}
}

func (f *fakeFetcher) Basic(_ context.Context, addr Address) (*Account, error) {
	f.basicCalls[addr]++
	if acc, ok := f.accounts[addr]; ok {
		return acc, nil
	}
	return newDefaultAccount(), nil
}

func (f *fakeFetcher) Storage(_ context.Context, addr Address, slot Word) (Word, error) {
	f.storageCalls[addr]++
	if per, ok := f.storage[addr]; ok {
		return per[slot], nil
	}
	return Word{}, nil
}

func (f *fakeFetcher) BlockHash(_ context.Context, _ *uint256.Int) (common.Hash, error) {
	return common.Hash{}, nil
}

func (f *fakeFetcher) CodeByHash(_ common.Hash) ([]byte, error) {
	return nil, &MissingCodeError{}
}

func TestCachingStoreFetchesOnceOnMiss(t *testing.T) {
	ctx := context.Background()
	remote := newFakeFetcher()
	addr := addrN(9)
	remote.accounts[addr] = &Account{Nonce: 1, Balance: uint256.NewInt(10), CodeHash: EmptyCodeHash}

	c := NewCachingStore(remote)
	acc, _, err := c.Basic(ctx, addr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acc.Nonce != 1 {
		t.Fatalf("unexpected nonce: %d", acc.Nonce)
	}
	if _, _, err := c.Basic(ctx, addr); err != nil {
		t.Fatalf("unexpected error on second read: %v", err)
	}
	if remote.basicCalls[addr] != 1 {
		t.Fatalf("want exactly one remote fetch, got %d", remote.basicCalls[addr])
	}
}

func TestCachingStoreStorageMissIsCached(t *testing.T) {
	ctx := context.Background()
	remote := newFakeFetcher()
	addr := addrN(10)
	slot := Word{31: 1}

	c := NewCachingStore(remote)
	v1, err := c.Storage(ctx, addr, slot)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v1 != (Word{}) {
		t.Fatalf("expected zero word for unseen slot, got %x", v1)
	}
	if _, err := c.Storage(ctx, addr, slot); err != nil {
		t.Fatalf("unexpected error on second read: %v", err)
	}
	if remote.storageCalls[addr] != 1 {
		t.Fatalf("want exactly one remote storage fetch (miss cached), got %d", remote.storageCalls[addr])
	}
}

func TestCachingStoreLocalInsertNeverTouchesRemote(t *testing.T) {
	ctx := context.Background()
	remote := newFakeFetcher()
	addr := addrN(11)

	c := NewCachingStore(remote)
	c.InsertAccount(addr, &Account{Balance: uint256.NewInt(99), CodeHash: EmptyCodeHash})

	acc, _, err := c.Basic(ctx, addr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acc.Balance.Uint64() != 99 {
		t.Fatalf("unexpected balance: %v", acc.Balance)
	}
	if remote.basicCalls[addr] != 0 {
		t.Fatalf("locally inserted account must not fetch from remote, got %d calls", remote.basicCalls[addr])
	}
}
