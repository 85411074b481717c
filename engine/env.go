package engine

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/holiman/uint256"

	"github.com/simular-fi/simular/store"
)

// Env is the per-call environment spec §4.5 describes: every call
// starts from the backend's current block number/timestamp plus a
// zeroed gas market (basefee, gas price, no priority fee), then layers
// the call-specific fields (caller, destination, data, value) on top.
type Env struct {
	BlockNumber uint64
	Timestamp   uint64

	Caller store.Address
	// To is nil for a contract-creation call.
	To    *store.Address
	Data  []byte
	Value *uint256.Int

	GasLimit uint64
}

// newEnv builds the deterministic-by-default Env for one call against
// backend's current block.
func newEnv(backend *store.StorageBackend, caller store.Address, to *store.Address, data []byte, value *uint256.Int) Env {
	blk := backend.Block()
	if value == nil {
		value = new(uint256.Int)
	}
	return Env{
		BlockNumber: blk.Number,
		Timestamp:   blk.Timestamp,
		Caller:      caller,
		To:          to,
		Data:        data,
		Value:       value,
		GasLimit:    defaultGasLimit,
	}
}

// defaultGasLimit is generous enough that simulation never runs out of
// gas for the kinds of scripted calls spec §1 targets; callers that
// need a tighter bound can use EstimateGas.
const defaultGasLimit = 30_000_000

func (e Env) blockContext(backend *store.StorageBackend) vm.BlockContext {
	return vm.BlockContext{
		CanTransfer: func(db vm.StateDB, addr common.Address, amount *uint256.Int) bool {
			return db.GetBalance(addr).Cmp(amount) >= 0
		},
		Transfer: func(db vm.StateDB, from, to common.Address, amount *uint256.Int) {
			db.SubBalance(from, amount, 0)
			db.AddBalance(to, amount, 0)
		},
		GetHash: func(n uint64) common.Hash {
			hash, err := backend.BlockHash(context.Background(), uint256.NewInt(n))
			if err != nil {
				return common.Hash{}
			}
			return hash
		},
		Coinbase:    common.Address{},
		GasLimit:    e.GasLimit,
		BlockNumber: new(big.Int).SetUint64(e.BlockNumber),
		Time:        e.Timestamp,
		Difficulty:  new(big.Int),
		BaseFee:     new(big.Int),
		Random:      &common.Hash{},
	}
}

func (e Env) txContext() vm.TxContext {
	return vm.TxContext{
		Origin:   e.Caller,
		GasPrice: new(big.Int),
	}
}
