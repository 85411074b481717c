package engine

import "fmt"

// RevertError is spec §7's InterpreterRevert: the call reverted,
// carrying the decoded reason (or "no reason" when the revert buffer
// doesn't decode as the standard Error(string) payload) and the gas
// used before the revert.
type RevertError struct {
	Reason  string
	GasUsed uint64
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("execution reverted: %s (gas used %d)", e.Reason, e.GasUsed)
}

// HaltError is spec §7's InterpreterHalt: an uncontrolled abort
// (out-of-gas, invalid opcode, stack over/underflow, ...).
type HaltError struct {
	Reason  string
	GasUsed uint64
}

func (e *HaltError) Error() string {
	return fmt.Sprintf("execution halted: %s (gas used %d)", e.Reason, e.GasUsed)
}

// InsufficientBalanceError is returned by Transfer/Deploy/Transact when
// the caller cannot cover value before the interpreter is even invoked.
type InsufficientBalanceError struct {
	Address string
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for %s", e.Address)
}

// InvalidAddressError is spec §7's InvalidAddress: address text is not
// 20 bytes of hex.
type InvalidAddressError struct {
	Text string
}

func (e *InvalidAddressError) Error() string {
	return fmt.Sprintf("invalid address %q: want 40 hex characters, optional 0x prefix", e.Text)
}

// NotACreateOutputError is returned by Deploy when the interpreter
// succeeded but produced no contract address (shouldn't happen for a
// well-formed EVM.Create call; guarded defensively per spec §4.5).
type NotACreateOutputError struct{}

func (e *NotACreateOutputError) Error() string { return "deploy did not produce a contract address" }
