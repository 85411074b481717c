package simular

import (
	"github.com/simular-fi/simular/abi"
	"github.com/simular-fi/simular/engine"
)

// TxResult is spec §6's TxResult: a CallResult's host-facing form, with
// logs already decoded against the ABI used for the call and, for a
// transact/simulate, the decoded return value.
type TxResult struct {
	Returned    []byte
	GasUsed     uint64
	GasRefunded uint64
	Logs        []abi.LogMatch
	Output      *abi.Value
}

func newTxResult(r *engine.CallResult, reg *abi.Registry) *TxResult {
	tx := &TxResult{
		Returned:    r.Returned,
		GasUsed:     r.GasUsed,
		GasRefunded: r.GasRefunded,
	}
	if reg != nil {
		tx.Logs = reg.ExtractLogs(r.Logs)
	}
	return tx
}
