// Package simular is the library surface spec §6 describes: an Engine
// that accepts and returns addresses and values as text, so a host
// program never has to import go-ethereum's types directly. It wires
// together store.StorageBackend (optionally fork-backed by
// rpc.Fetcher), engine.ExecutionEngine, abi.Registry and the snapshot
// codec.
package simular

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	"github.com/simular-fi/simular/abi"
	"github.com/simular-fi/simular/engine"
	"github.com/simular-fi/simular/rpc"
	"github.com/simular-fi/simular/snapshot"
	"github.com/simular-fi/simular/store"
)

// Engine is the host-facing handle spec §6 calls Engine. It owns one
// ExecutionEngine/StorageBackend pair and is not safe for concurrent
// use, per spec §5.
type Engine struct {
	exec *engine.ExecutionEngine
}

// New returns a pure in-memory Engine: unseen addresses read back as
// empty accounts, never erroring.
func New() *Engine {
	return &Engine{exec: engine.New(store.NewMemoryBackend())}
}

// FromFork returns an Engine backed by a read-through cache in front of
// the JSON-RPC endpoint at url, pinned at blockNumber (or the chain's
// current head if blockNumber is nil).
func FromFork(ctx context.Context, url string, blockNumber *uint64) (*Engine, error) {
	var pin *big.Int
	if blockNumber != nil {
		pin = new(big.Int).SetUint64(*blockNumber)
	}
	fetcher, err := rpc.NewFetcher(ctx, url, pin)
	if err != nil {
		return nil, err
	}
	pinned := fetcher.PinnedBlock().Uint64()
	backend := store.NewForkedBackend(fetcher, pinned, 0)
	return &Engine{exec: engine.New(backend)}, nil
}

// FromSnapshot reconstructs an Engine from a snapshot dumped by
// CreateSnapshot.
func FromSnapshot(text string) (*Engine, error) {
	snap, err := snapshot.Load(text)
	if err != nil {
		return nil, err
	}
	// A fork-origin snapshot carries no remote endpoint to read through
	// to, so it always loads into a plain in-memory backend seeded with
	// everything the snapshot captured — accounts it never touched are
	// simply absent, same as any other unseen address under the
	// phantom-default rule.
	if snap.Source == store.ForkSource {
		log.Warn("simular: loading a fork-origin snapshot into a purely in-memory engine; remote-backed state will not be re-fetched")
	}
	backend := store.NewMemoryBackend()
	if err := backend.LoadSnapshot(snap); err != nil {
		return nil, err
	}
	return &Engine{exec: engine.New(backend)}, nil
}

// CreateAccount implements spec §6's engine.create_account.
func (e *Engine) CreateAccount(addressText string, balanceText string) error {
	addr, err := parseAddress(addressText)
	if err != nil {
		return err
	}
	balance, err := parseValue(balanceText)
	if err != nil {
		return err
	}
	e.exec.CreateAccount(addr, balance)
	return nil
}

// GetBalance implements spec §6's engine.get_balance.
func (e *Engine) GetBalance(ctx context.Context, addressText string) (string, error) {
	addr, err := parseAddress(addressText)
	if err != nil {
		return "", err
	}
	balance, err := e.exec.GetBalance(ctx, addr)
	if err != nil {
		return "", err
	}
	return balance.ToBig().String(), nil
}

// Transfer implements spec §6's engine.transfer.
func (e *Engine) Transfer(ctx context.Context, fromText, toText, valueText string) (*TxResult, error) {
	from, err := parseAddress(fromText)
	if err != nil {
		return nil, err
	}
	to, err := parseAddress(toText)
	if err != nil {
		return nil, err
	}
	value, err := parseValue(valueText)
	if err != nil {
		return nil, err
	}
	result, err := e.exec.Transfer(ctx, from, to, value)
	if err != nil {
		return nil, err
	}
	return newTxResult(result, nil), nil
}

// Deploy implements spec §6's engine.deploy: it encodes the
// constructor call against contractAbi, runs a create transaction, and
// returns the new contract's address text.
func (e *Engine) Deploy(ctx context.Context, argsText, callerText, valueText string, contractAbi *Abi) (string, *TxResult, error) {
	caller, err := parseAddress(callerText)
	if err != nil {
		return "", nil, err
	}
	value, err := parseValue(valueText)
	if err != nil {
		return "", nil, err
	}
	calldata, _, err := contractAbi.reg.EncodeConstructor(argsText)
	if err != nil {
		return "", nil, err
	}
	addr, result, err := e.exec.Deploy(ctx, caller, calldata, value)
	if err != nil {
		return "", nil, err
	}
	return formatAddress(addr), newTxResult(result, contractAbi.reg), nil
}

// Transact implements spec §6's engine.transact: a committing call
// against to, resolved through contractAbi's overloads.
func (e *Engine) Transact(ctx context.Context, fnName, argsText, callerText, toText, valueText string, contractAbi *Abi) (*TxResult, error) {
	caller, err := parseAddress(callerText)
	if err != nil {
		return nil, err
	}
	to, err := parseAddress(toText)
	if err != nil {
		return nil, err
	}
	value, err := parseValue(valueText)
	if err != nil {
		return nil, err
	}
	resolved, err := contractAbi.reg.EncodeFunction(fnName, argsText)
	if err != nil {
		return nil, err
	}
	result, err := e.exec.TransactCommit(ctx, caller, to, resolved.Calldata, value)
	if err != nil {
		return nil, err
	}
	tx := newTxResult(result, contractAbi.reg)
	tx.Output, err = abi.DecodeOutput(resolved.Outputs, result.Returned)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// Call implements spec §6's engine.call: a non-committing, zero-address
// read.
func (e *Engine) Call(ctx context.Context, fnName, argsText, toText string, contractAbi *Abi) (*abi.Value, error) {
	to, err := parseAddress(toText)
	if err != nil {
		return nil, err
	}
	resolved, err := contractAbi.reg.EncodeFunction(fnName, argsText)
	if err != nil {
		return nil, err
	}
	result, err := e.exec.TransactCall(ctx, to, resolved.Calldata, new(uint256.Int))
	if err != nil {
		return nil, err
	}
	return abi.DecodeOutput(resolved.Outputs, result.Returned)
}

// Simulate implements spec §6's engine.simulate: a dry-run preserving
// caller identity but never committing.
func (e *Engine) Simulate(ctx context.Context, fnName, argsText, callerText, toText, valueText string, contractAbi *Abi) (*TxResult, error) {
	caller, err := parseAddress(callerText)
	if err != nil {
		return nil, err
	}
	to, err := parseAddress(toText)
	if err != nil {
		return nil, err
	}
	value, err := parseValue(valueText)
	if err != nil {
		return nil, err
	}
	resolved, err := contractAbi.reg.EncodeFunction(fnName, argsText)
	if err != nil {
		return nil, err
	}
	result, err := e.exec.Simulate(ctx, caller, to, resolved.Calldata, value)
	if err != nil {
		return nil, err
	}
	tx := newTxResult(result, contractAbi.reg)
	tx.Output, err = abi.DecodeOutput(resolved.Outputs, result.Returned)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// AdvanceBlock implements spec §6's engine.advance_block.
func (e *Engine) AdvanceBlock(intervalSeconds uint64) {
	e.exec.AdvanceBlock(intervalSeconds)
}

// CreateSnapshot implements spec §6's engine.create_snapshot.
func (e *Engine) CreateSnapshot() (string, error) {
	snap, err := e.exec.Backend.CreateSnapshot()
	if err != nil {
		return "", err
	}
	return snapshot.Dump(snap)
}

func parseAddress(text string) (store.Address, error) {
	s := text
	if len(s) >= 2 && (s[0:2] == "0x" || s[0:2] == "0X") {
		s = s[2:]
	}
	if len(s) != 40 || !isHex(s) {
		return store.Address{}, &engine.InvalidAddressError{Text: text}
	}
	return common.HexToAddress(text), nil
}

func formatAddress(addr store.Address) string {
	return fmt.Sprintf("0x%x", addr[:])
}

func isHex(s string) bool {
	for _, r := range s {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')) {
			return false
		}
	}
	return true
}

// parseValue parses spec §6's u128 value/balance text: decimal or
// 0x-hex, with an empty string meaning zero.
func parseValue(text string) (*uint256.Int, error) {
	if text == "" {
		return new(uint256.Int), nil
	}
	v, err := uint256.FromDecimal(text)
	if err == nil {
		return v, nil
	}
	if len(text) >= 2 && (text[0:2] == "0x" || text[0:2] == "0X") {
		v, err := uint256.FromHex(text)
		if err != nil {
			return nil, &InvalidValueError{Text: text}
		}
		return v, nil
	}
	return nil, &InvalidValueError{Text: text}
}
