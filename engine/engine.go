// Package engine is the ExecutionEngine: it translates the library's
// high-level intents (deploy, transfer, call, simulate) into
// core/vm.EVM transactions run against a store.StorageBackend, and
// turns the interpreter's raw result into spec §3's CallResult or a
// typed error.
package engine

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"

	"github.com/simular-fi/simular/store"
)

// ExecutionEngine wraps one StorageBackend. It is not safe for
// concurrent use (spec §5): callers that need parallelism must give
// each ExecutionEngine its own StorageBackend.
type ExecutionEngine struct {
	Backend     *store.StorageBackend
	ChainConfig *params.ChainConfig
	vmConfig    vm.Config
}

// New wraps backend in an ExecutionEngine with the deterministic,
// always-latest-fork chain config spec §4.5 calls for.
func New(backend *store.StorageBackend) *ExecutionEngine {
	return &ExecutionEngine{Backend: backend, ChainConfig: defaultChainConfig()}
}

// CreateAccount overwrites any existing account at addr with a fresh
// default record, setting balance if given, and commits immediately.
func (e *ExecutionEngine) CreateAccount(addr store.Address, balance *uint256.Int) {
	acc := &store.Account{CodeHash: store.EmptyCodeHash}
	if balance != nil {
		acc.Balance = new(uint256.Int).Set(balance)
	} else {
		acc.Balance = new(uint256.Int)
	}
	e.Backend.InsertAccountInfo(addr, acc)
	log.Debug("engine: created account", "addr", addr, "balance", acc.Balance)
}

// GetBalance is read-only and returns zero for a never-seen address.
func (e *ExecutionEngine) GetBalance(ctx context.Context, addr store.Address) (*uint256.Int, error) {
	acc, err := e.Backend.Basic(ctx, addr)
	if err != nil {
		return nil, err
	}
	if acc == nil || acc.Balance == nil {
		return new(uint256.Int), nil
	}
	return acc.Balance, nil
}

// Deploy runs a contract-creation transaction and, on success, commits
// the delta and returns the created address.
func (e *ExecutionEngine) Deploy(ctx context.Context, caller store.Address, code []byte, value *uint256.Int) (store.Address, *CallResult, error) {
	env := newEnv(e.Backend, caller, nil, code, value)
	result, err := e.run(ctx, env, true)
	if err != nil {
		return store.Address{}, nil, err
	}
	if result.CreatedAddress == nil {
		return store.Address{}, nil, &NotACreateOutputError{}
	}
	return *result.CreatedAddress, result, nil
}

// Transfer moves value from caller to to with no call data, committing
// on success.
func (e *ExecutionEngine) Transfer(ctx context.Context, caller, to store.Address, value *uint256.Int) (*CallResult, error) {
	env := newEnv(e.Backend, caller, &to, nil, value)
	return e.run(ctx, env, true)
}

// TransactCommit runs fn against to with data/value, committing the
// resulting delta on success.
func (e *ExecutionEngine) TransactCommit(ctx context.Context, caller, to store.Address, data []byte, value *uint256.Int) (*CallResult, error) {
	env := newEnv(e.Backend, caller, &to, data, value)
	return e.run(ctx, env, true)
}

// TransactCall runs a read-only call: the caller identity is the zero
// address, and the delta is never committed.
func (e *ExecutionEngine) TransactCall(ctx context.Context, to store.Address, data []byte, value *uint256.Int) (*CallResult, error) {
	env := newEnv(e.Backend, store.Address{}, &to, data, value)
	return e.run(ctx, env, false)
}

// Simulate runs a dry-run with caller identity preserved but never
// committed.
func (e *ExecutionEngine) Simulate(ctx context.Context, caller, to store.Address, data []byte, value *uint256.Int) (*CallResult, error) {
	env := newEnv(e.Backend, caller, &to, data, value)
	return e.run(ctx, env, false)
}

// EstimateGas binary-searches the smallest gas limit between 21000 and
// the default cap for which a non-committing call neither runs out of
// gas nor halts for any other reason. [SUPPLEMENT]: present in
// original_source/src/core/evm.rs, dropped by the distilled spec; added
// back per SPEC_FULL.md §4.5 as a thin wrapper with no new storage
// semantics.
func (e *ExecutionEngine) EstimateGas(ctx context.Context, caller, to store.Address, data []byte, value *uint256.Int) (uint64, error) {
	const minGas = 21_000
	lo, hi := uint64(minGas), uint64(defaultGasLimit)

	fits := func(gas uint64) (bool, error) {
		env := newEnv(e.Backend, caller, &to, data, value)
		env.GasLimit = gas
		_, err := e.run(ctx, env, false)
		if err == nil {
			return true, nil
		}
		var halt *HaltError
		if errors.As(err, &halt) {
			return false, nil
		}
		return false, err
	}

	ok, err := fits(hi)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, &HaltError{Reason: "out of gas", GasUsed: hi}
	}
	for lo < hi {
		mid := lo + (hi-lo)/2
		ok, err := fits(mid)
		if err != nil {
			return 0, err
		}
		if ok {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return hi, nil
}

// AdvanceBlock forwards to the backend: block_number += 1, timestamp +=
// intervalSeconds (default 12, per spec §6).
func (e *ExecutionEngine) AdvanceBlock(intervalSeconds uint64) {
	if intervalSeconds == 0 {
		intervalSeconds = 12
	}
	e.Backend.AdvanceBlock(intervalSeconds)
}

// run builds a core/vm.EVM over a fresh store.StateDB, executes env as
// a single call or create, interprets the outcome, and — if commit is
// true and the call succeeded — applies the resulting delta to the
// backend before returning. A failed call applies no changes, satisfying
// spec §4.5/§7's atomicity guarantee: StorageBackend is either
// byte-identical to its pre-call state or fully updated, never partial.
func (e *ExecutionEngine) run(ctx context.Context, env Env, commit bool) (*CallResult, error) {
	statedb := store.NewStateDB(ctx, e.Backend)
	evm := vm.NewEVM(env.blockContext(e.Backend), statedb, e.ChainConfig, e.vmConfig)
	evm.SetTxContext(env.txContext())

	rules := e.ChainConfig.Rules(evm.Context.BlockNumber, true, evm.Context.Time)
	precompiles := vm.ActivePrecompiles(rules)

	sender := vm.AccountRef(env.Caller)
	isCreate := env.To == nil

	statedb.Prepare(rules, env.Caller, common.Address{}, env.To, precompiles, nil)

	var (
		ret          []byte
		leftOverGas  uint64
		vmErr        error
		createdAddr  *store.Address
	)
	if isCreate {
		if !statedb.Exist(env.Caller) {
			statedb.CreateAccount(env.Caller)
		}
		out, addr, left, err := evm.Create(sender, env.Data, env.GasLimit, env.Value)
		ret, leftOverGas, vmErr = out, left, err
		if err == nil {
			a := addr
			createdAddr = &a
		}
	} else {
		if !statedb.Exist(env.Caller) {
			statedb.CreateAccount(env.Caller)
		}
		out, left, err := evm.Call(sender, *env.To, env.Data, env.GasLimit, env.Value)
		ret, leftOverGas, vmErr = out, left, err
	}

	intrinsic, gasErr := core.IntrinsicGas(env.Data, nil, isCreate, rules.IsHomestead, rules.IsIstanbul, rules.IsShanghai)
	if gasErr != nil {
		intrinsic = 0
	}
	refund := statedb.GetRefund()
	gasUsed := env.GasLimit - leftOverGas + intrinsic
	if refund < gasUsed {
		gasUsed -= refund
	}

	if vmErr != nil {
		if errors.Is(vmErr, vm.ErrExecutionReverted) {
			return nil, &RevertError{Reason: decodeRevertReason(ret), GasUsed: gasUsed}
		}
		if errors.Is(vmErr, vm.ErrInsufficientBalance) {
			return nil, &InsufficientBalanceError{Address: env.Caller.Hex()}
		}
		return nil, &HaltError{Reason: vmErr.Error(), GasUsed: gasUsed}
	}

	delta := statedb.BuildDelta()
	delta.GasUsed = gasUsed
	delta.GasRefunded = refund
	delta.ReturnedData = ret
	delta.CreatedAddr = createdAddr

	result := &CallResult{
		Returned:       ret,
		CreatedAddress: createdAddr,
		GasUsed:        gasUsed,
		GasRefunded:    refund,
		Logs:           delta.Logs,
		StateDelta:     &delta,
	}

	if commit {
		e.Backend.Commit(delta)
		log.Debug("engine: committed transaction", "gasUsed", gasUsed, "created", createdAddr)
	}
	return result, nil
}

// errorSelector is the 4-byte selector of Error(string), the standard
// Solidity revert-reason encoding.
var errorSelector = []byte{0x08, 0xc3, 0x79, 0xa0}

// decodeRevertReason strips the Error(string) selector and ABI-decodes
// the reason string, matching spec §4.5's revert-interpretation rule.
// On any failure to decode, it returns the "no reason" sentinel rather
// than erroring — decoding a revert reason cannot itself fail the call
// a second way.
func decodeRevertReason(ret []byte) string {
	if len(ret) < 4 || string(ret[:4]) != string(errorSelector) {
		return "no reason"
	}
	strType, err := abi.NewType("string", "", nil)
	if err != nil {
		return "no reason"
	}
	args := abi.Arguments{{Type: strType}}
	values, err := args.Unpack(ret[4:])
	if err != nil || len(values) != 1 {
		return "no reason"
	}
	reason, ok := values[0].(string)
	if !ok {
		return "no reason"
	}
	return reason
}
