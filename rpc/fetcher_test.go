package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// fakeNode answers a fixed set of eth_* methods regardless of params,
// enough to exercise Fetcher's request/response plumbing without a real
// node.
func fakeNode(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		var result interface{}
		switch req.Method {
		case "eth_blockNumber":
			result = "0x10"
		case "eth_getTransactionCount":
			result = "0x5"
		case "eth_getBalance":
			result = "0x64"
		case "eth_getCode":
			result = "0x6001"
		case "eth_getStorageAt":
			result = "0x" + "00000000000000000000000000000000000000000000000000000000000009"
		case "eth_getBlockByNumber":
			result = map[string]interface{}{"hash": common.Hash{1, 2, 3}.Hex()}
		default:
			t.Fatalf("unexpected method %q", req.Method)
		}
		resp := response{ID: req.ID, JSONRpc: "2.0"}
		raw, err := json.Marshal(result)
		if err != nil {
			t.Fatalf("marshal result: %v", err)
		}
		resp.Result = raw
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestFetcherBasicResolvesNonceBalanceCode(t *testing.T) {
	srv := fakeNode(t)
	defer srv.Close()

	f, err := NewFetcher(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("NewFetcher failed: %v", err)
	}
	if f.PinnedBlock().Uint64() != 0x10 {
		t.Fatalf("want pinned block 0x10, got %s", f.PinnedBlock())
	}

	acc, err := f.Basic(context.Background(), common.Address{0xaa})
	if err != nil {
		t.Fatalf("Basic failed: %v", err)
	}
	if acc.Nonce != 5 {
		t.Fatalf("want nonce 5, got %d", acc.Nonce)
	}
	if acc.Balance.Uint64() != 0x64 {
		t.Fatalf("want balance 0x64, got %v", acc.Balance)
	}
	if len(acc.Code) == 0 {
		t.Fatalf("want non-empty code")
	}
}

func TestFetcherStorageAndBlockHash(t *testing.T) {
	srv := fakeNode(t)
	defer srv.Close()

	f, err := NewFetcher(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("NewFetcher failed: %v", err)
	}

	slot, err := f.Storage(context.Background(), common.Address{0xaa}, common.Hash{})
	if err != nil {
		t.Fatalf("Storage failed: %v", err)
	}
	if slot.Big().Uint64() != 9 {
		t.Fatalf("want slot value 9, got %v", slot.Big())
	}

	hash, err := f.BlockHash(context.Background(), uint256.NewInt(5))
	if err != nil {
		t.Fatalf("BlockHash failed: %v", err)
	}
	if hash != (common.Hash{1, 2, 3}) {
		t.Fatalf("unexpected block hash: %x", hash)
	}

	// A number that does not fit in uint64 cannot name a block: the
	// empty-hash sentinel is returned, not an error, and the node is
	// never called.
	huge := new(uint256.Int).Lsh(uint256.NewInt(1), 200)
	hash2, err := f.BlockHash(context.Background(), huge)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash2 != (common.Hash{}) {
		t.Fatalf("want empty hash sentinel for oversized block number, got %x", hash2)
	}
}

func TestFetcherCodeByHashAlwaysFails(t *testing.T) {
	f := &Fetcher{client: NewClient("http://unused")}
	if _, err := f.CodeByHash(common.Hash{}); err == nil {
		t.Fatalf("want error: fetcher has no reverse code lookup")
	}
}
