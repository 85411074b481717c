package engine

import "github.com/simular-fi/simular/store"

// CallResult is spec §3's CallResult record.
type CallResult struct {
	Returned       []byte
	CreatedAddress *store.Address
	GasUsed        uint64
	GasRefunded    uint64
	Logs           []store.Log
	StateDelta     *store.Delta
}
