package rpc

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
	"golang.org/x/sync/errgroup"

	"github.com/simular-fi/simular/store"
)

// Fetcher is the RemoteFetcher of spec.md §4.1: it resolves account
// info, storage, code and block hashes from a JSON-RPC endpoint, always
// at the block height pinned at construction time.
type Fetcher struct {
	client    *Client
	pinned    *big.Int
	pinnedHex string
}

// NewFetcher pins the fetcher to blockNumber, or to the chain's current
// head ("latest at init") when blockNumber is nil.
func NewFetcher(ctx context.Context, endpoint string, blockNumber *big.Int) (*Fetcher, error) {
	clt := NewClient(endpoint)
	if blockNumber == nil {
		var head string
		if err := clt.call(ctx, "eth_blockNumber", nil, &head); err != nil {
			return nil, fetchErr(GetBlockHash, common.Address{}, err)
		}
		n, ok := new(big.Int).SetString(strings.TrimPrefix(head, "0x"), 16)
		if !ok {
			return nil, fetchErr(GetBlockHash, common.Address{}, fmt.Errorf("unparsable head block %q", head))
		}
		blockNumber = n
	}
	return &Fetcher{
		client:    clt,
		pinned:    blockNumber,
		pinnedHex: "0x" + blockNumber.Text(16),
	}, nil
}

// PinnedBlock returns the block height every fetch is performed at.
func (f *Fetcher) PinnedBlock() *big.Int { return new(big.Int).Set(f.pinned) }

// Basic concurrently resolves nonce, balance and code for addr and
// returns a fully-populated Account (code attached, not left as
// code-hash-only).
func (f *Fetcher) Basic(ctx context.Context, addr store.Address) (*store.Account, error) {
	var (
		nonce   uint64
		balance *uint256.Int
		code    []byte
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var hex hexutil.Uint64
		if err := f.client.call(gctx, "eth_getTransactionCount", []interface{}{addr.Hex(), f.pinnedHex}, &hex); err != nil {
			return err
		}
		nonce = uint64(hex)
		return nil
	})
	g.Go(func() error {
		var hex string
		if err := f.client.call(gctx, "eth_getBalance", []interface{}{addr.Hex(), f.pinnedHex}, &hex); err != nil {
			return err
		}
		b, ok := new(big.Int).SetString(strings.TrimPrefix(hex, "0x"), 16)
		if !ok {
			return fmt.Errorf("unparsable balance %q", hex)
		}
		balance = uint256.MustFromBig(b)
		return nil
	})
	g.Go(func() error {
		var hex string
		if err := f.client.call(gctx, "eth_getCode", []interface{}{addr.Hex(), f.pinnedHex}, &hex); err != nil {
			return err
		}
		code = hexutil.MustDecode(hex)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fetchErr(GetAccount, addr, err)
	}

	acc := &store.Account{Nonce: nonce, Balance: balance, Code: code}
	if len(code) == 0 {
		acc.CodeHash = store.EmptyCodeHash
	} else {
		acc.CodeHash = crypto.Keccak256Hash(code)
	}
	log.Debug("rpc: fetched account", "addr", addr, "block", f.pinnedHex, "nonce", nonce, "codeLen", len(code))
	return acc, nil
}

// Storage resolves a single slot for addr at the pinned block.
func (f *Fetcher) Storage(ctx context.Context, addr store.Address, slot store.Word) (store.Word, error) {
	var hex string
	if err := f.client.call(ctx, "eth_getStorageAt", []interface{}{addr.Hex(), slot.Hex(), f.pinnedHex}, &hex); err != nil {
		return store.Word{}, fetchErr(GetStorage, addr, err)
	}
	return common.HexToHash(hex), nil
}

// BlockHash resolves the hash of block number. number is a full 256-bit
// word because it may originate from an EVM BLOCKHASH operand; any
// value that does not fit in a uint64 cannot name a real block and
// returns the empty-hash sentinel rather than an error.
func (f *Fetcher) BlockHash(ctx context.Context, number *uint256.Int) (common.Hash, error) {
	if !number.IsUint64() {
		return common.Hash{}, nil
	}
	n := number.Uint64()
	var block struct {
		Hash common.Hash `json:"hash"`
	}
	params := []interface{}{hexutil.EncodeUint64(n), false}
	if err := f.client.call(ctx, "eth_getBlockByNumber", params, &block); err != nil {
		return common.Hash{}, fetchErr(GetBlockHash, common.Address{}, err)
	}
	return block.Hash, nil
}

// CodeByHash always fails: the fetcher has no reverse lookup from code
// hash to code. Callers must ensure code is resolved via Basic first.
func (f *Fetcher) CodeByHash(hash common.Hash) ([]byte, error) {
	return nil, &FetchError{Kind: MissingCode, Err: fmt.Errorf("code for hash %s must be resolved via Basic, not CodeByHash", hash)}
}

