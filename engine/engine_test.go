package engine

import (
	"context"
	"encoding/hex"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/holiman/uint256"

	"github.com/simular-fi/simular/store"
)

func readCounterBytecode(t *testing.T) []byte {
	t.Helper()
	raw, err := os.ReadFile("../testdata/counter.bytecode.hex")
	if err != nil {
		t.Fatalf("read counter fixture: %v", err)
	}
	code, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		t.Fatalf("decode counter fixture: %v", err)
	}
	return code
}

func testAddr(n byte) store.Address {
	var a store.Address
	a[19] = n
	return a
}

func newTestEngine() *ExecutionEngine {
	return New(store.NewMemoryBackend())
}

func TestTransferMovesBalance(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	from, to := testAddr(1), testAddr(2)
	e.CreateAccount(from, uint256.NewInt(100))

	result, err := e.Transfer(ctx, from, to, uint256.NewInt(40))
	if err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}
	if result.GasUsed == 0 {
		t.Fatalf("want non-zero gas used")
	}

	fromBal, err := e.GetBalance(ctx, from)
	if err != nil {
		t.Fatalf("GetBalance(from) failed: %v", err)
	}
	if fromBal.Uint64() != 60 {
		t.Fatalf("want sender balance 60, got %v", fromBal)
	}
	toBal, err := e.GetBalance(ctx, to)
	if err != nil {
		t.Fatalf("GetBalance(to) failed: %v", err)
	}
	if toBal.Uint64() != 40 {
		t.Fatalf("want recipient balance 40, got %v", toBal)
	}
}

func TestTransferInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	from, to := testAddr(3), testAddr(4)
	e.CreateAccount(from, uint256.NewInt(5))

	_, err := e.Transfer(ctx, from, to, uint256.NewInt(100))
	if err == nil {
		t.Fatalf("want an error for insufficient balance")
	}
	var insufficient *InsufficientBalanceError
	if !errors.As(err, &insufficient) {
		t.Fatalf("want *InsufficientBalanceError, got %T: %v", err, err)
	}

	// Balance must be unchanged: a failed call never partially applies.
	fromBal, err := e.GetBalance(ctx, from)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if fromBal.Uint64() != 5 {
		t.Fatalf("want sender balance untouched at 5, got %v", fromBal)
	}
}

func TestDeployAndCallCounter(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	caller := testAddr(5)
	e.CreateAccount(caller, uint256.NewInt(0))

	code := readCounterBytecode(t)
	initArg := make([]byte, 32)
	initArg[31] = 1
	deployCode := append(append([]byte(nil), code...), initArg...)

	addr, result, err := e.Deploy(ctx, caller, deployCode, new(uint256.Int))
	if err != nil {
		t.Fatalf("Deploy failed: %v", err)
	}
	if result.CreatedAddress == nil || *result.CreatedAddress != addr {
		t.Fatalf("CreatedAddress mismatch: %+v", result.CreatedAddress)
	}

	valueSelector := []byte{0x3f, 0xa4, 0xf2, 0x45}
	incrementSelector := []byte{0xd0, 0x9d, 0xe0, 0x8a}

	callVal, err := e.TransactCall(ctx, addr, valueSelector, new(uint256.Int))
	if err != nil {
		t.Fatalf("value() call failed: %v", err)
	}
	if got := new(uint256.Int).SetBytes(callVal.Returned).Uint64(); got != 1 {
		t.Fatalf("want value()==1 after construction, got %d", got)
	}

	incResult, err := e.TransactCommit(ctx, caller, addr, incrementSelector, new(uint256.Int))
	if err != nil {
		t.Fatalf("increment() call failed: %v", err)
	}
	if got := new(uint256.Int).SetBytes(incResult.Returned).Uint64(); got != 2 {
		t.Fatalf("want increment() to return 2, got %d", got)
	}

	callVal2, err := e.TransactCall(ctx, addr, valueSelector, new(uint256.Int))
	if err != nil {
		t.Fatalf("value() call after increment failed: %v", err)
	}
	if got := new(uint256.Int).SetBytes(callVal2.Returned).Uint64(); got != 2 {
		t.Fatalf("want value()==2 after increment, got %d", got)
	}
}

func TestSimulateNeverCommits(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	caller := testAddr(6)
	e.CreateAccount(caller, uint256.NewInt(0))

	code := readCounterBytecode(t)
	initArg := make([]byte, 32)
	deployCode := append(append([]byte(nil), code...), initArg...)
	addr, _, err := e.Deploy(ctx, caller, deployCode, new(uint256.Int))
	if err != nil {
		t.Fatalf("Deploy failed: %v", err)
	}

	incrementSelector := []byte{0xd0, 0x9d, 0xe0, 0x8a}
	// Simulate should not persist the increment.
	if _, err := e.Simulate(ctx, caller, addr, incrementSelector, new(uint256.Int)); err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}

	valueSelector := []byte{0x3f, 0xa4, 0xf2, 0x45}
	callVal, err := e.TransactCall(ctx, addr, valueSelector, new(uint256.Int))
	if err != nil {
		t.Fatalf("value() call failed: %v", err)
	}
	if got := new(uint256.Int).SetBytes(callVal.Returned).Uint64(); got != 0 {
		t.Fatalf("want value()==0 since Simulate must not commit, got %d", got)
	}
}

func readNonpayableBytecode(t *testing.T) []byte {
	t.Helper()
	raw, err := os.ReadFile("../testdata/nonpayable.bytecode.hex")
	if err != nil {
		t.Fatalf("read nonpayable fixture: %v", err)
	}
	code, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		t.Fatalf("decode nonpayable fixture: %v", err)
	}
	return code
}

func TestDeployWithValueAgainstNonPayableConstructorReverts(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	caller := testAddr(9)
	e.CreateAccount(caller, uint256.NewInt(1000))

	code := readNonpayableBytecode(t)

	if _, _, err := e.Deploy(ctx, caller, code, uint256.NewInt(0)); err != nil {
		t.Fatalf("deploy with zero value should succeed, got: %v", err)
	}

	_, _, err := e.Deploy(ctx, caller, code, uint256.NewInt(5))
	if err == nil {
		t.Fatalf("want a revert error deploying with value against a non-payable constructor")
	}
	var revertErr *RevertError
	if !errors.As(err, &revertErr) {
		t.Fatalf("want *RevertError, got %T: %v", err, err)
	}
	if revertErr.Reason != "no reason" {
		t.Fatalf("want the empty-revert-buffer sentinel reason, got %q", revertErr.Reason)
	}

	// A failed deploy must not advance the caller's nonce or spend its balance.
	bal, err := e.GetBalance(ctx, caller)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if bal.Uint64() != 1000 {
		t.Fatalf("want caller balance untouched at 1000 after a reverted deploy, got %v", bal)
	}
}

func TestEstimateGasFindsMinimalLimit(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine()
	from, to := testAddr(7), testAddr(8)
	e.CreateAccount(from, uint256.NewInt(1000))

	gas, err := e.EstimateGas(ctx, from, to, nil, uint256.NewInt(10))
	if err != nil {
		t.Fatalf("EstimateGas failed: %v", err)
	}
	if gas < 21_000 {
		t.Fatalf("want at least the intrinsic 21000 gas, got %d", gas)
	}

	// The estimated limit must actually be sufficient to run the call.
	env := newEnv(e.Backend, from, &to, nil, uint256.NewInt(10))
	env.GasLimit = gas
	if _, err := e.run(ctx, env, false); err != nil {
		t.Fatalf("estimated gas limit %d was insufficient: %v", gas, err)
	}
}
