package store

import (
	"context"
	"testing"

	"github.com/holiman/uint256"
)

func TestStorageBackendSnapshotRoundTrip(t *testing.T) {
	b := NewMemoryBackend()
	addr := addrN(1)
	code := []byte{0x60, 0x01}
	b.InsertAccountInfo(addr, &Account{Nonce: 2, Balance: uint256.NewInt(77), Code: code, CodeHash: codeHash(code)})

	nonce := uint64(2)
	b.Commit(Delta{Changes: []AccountChange{{
		Address:      addr,
		NonceChange:  &nonce,
		BalanceAfter: uint256.NewInt(77),
		Storage:      map[Word]Word{{31: 5}: {31: 6}},
	}}})
	b.AdvanceBlock(12)

	snap, err := b.CreateSnapshot()
	if err != nil {
		t.Fatalf("CreateSnapshot failed: %v", err)
	}
	if len(snap.Accounts) != 1 {
		t.Fatalf("want 1 account in snapshot, got %d", len(snap.Accounts))
	}

	fresh := NewMemoryBackend()
	if err := fresh.LoadSnapshot(snap); err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if fresh.Block() != b.Block() {
		t.Fatalf("block context not restored: got %+v want %+v", fresh.Block(), b.Block())
	}
	acc, err := fresh.Basic(context.Background(), addr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acc.Nonce != 2 || acc.Balance.Uint64() != 77 {
		t.Fatalf("account not restored correctly: %+v", acc)
	}
	got, err := fresh.Storage(context.Background(), addr, Word{31: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != (Word{31: 6}) {
		t.Fatalf("storage slot not restored: %x", got)
	}
}

func TestStateDBSnapshotRevertRestoresBalanceAndStorage(t *testing.T) {
	b := NewMemoryBackend()
	addr := addrN(2)
	b.InsertAccountInfo(addr, &Account{Balance: uint256.NewInt(100), CodeHash: EmptyCodeHash})

	sdb := NewStateDB(context.Background(), b)
	rev := sdb.Snapshot()

	sdb.SubBalance(addr, uint256.NewInt(40), 0)
	sdb.SetState(addr, Word{31: 1}, Word{31: 9})

	if got := sdb.GetBalance(addr); got.Uint64() != 60 {
		t.Fatalf("balance not applied before revert: %v", got)
	}

	sdb.RevertToSnapshot(rev)

	if got := sdb.GetBalance(addr); got.Uint64() != 100 {
		t.Fatalf("balance not restored after revert: %v", got)
	}
	if got := sdb.GetState(addr, Word{31: 1}); got != (Word{}) {
		t.Fatalf("storage write not undone after revert: %x", got)
	}
}

func TestStateDBBuildDeltaOnlyIncludesDirtyAddresses(t *testing.T) {
	b := NewMemoryBackend()
	touched := addrN(3)
	untouched := addrN(4)
	b.InsertAccountInfo(touched, &Account{Balance: new(uint256.Int), CodeHash: EmptyCodeHash})
	b.InsertAccountInfo(untouched, &Account{Balance: uint256.NewInt(5), CodeHash: EmptyCodeHash})

	sdb := NewStateDB(context.Background(), b)
	_ = sdb.GetBalance(untouched) // read-only touch, must not appear in delta
	sdb.AddBalance(touched, uint256.NewInt(1), 0)

	delta := sdb.BuildDelta()
	if len(delta.Changes) != 1 {
		t.Fatalf("want exactly 1 dirty account in delta, got %d", len(delta.Changes))
	}
	if delta.Changes[0].Address != touched {
		t.Fatalf("unexpected address in delta: %v", delta.Changes[0].Address)
	}
}

func TestStateDBSelfDestructMarksDestructed(t *testing.T) {
	b := NewMemoryBackend()
	addr := addrN(5)
	b.InsertAccountInfo(addr, &Account{Balance: uint256.NewInt(10), CodeHash: EmptyCodeHash})

	sdb := NewStateDB(context.Background(), b)
	sdb.SelfDestruct(addr)

	if !sdb.HasSelfDestructed(addr) {
		t.Fatalf("want HasSelfDestructed true after SelfDestruct")
	}
	delta := sdb.BuildDelta()
	if len(delta.Changes) != 1 || !delta.Changes[0].Destructed {
		t.Fatalf("want a single destructed change in delta, got %+v", delta.Changes)
	}
}
