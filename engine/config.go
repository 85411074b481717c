package engine

import (
	"math/big"

	"github.com/ethereum/go-ethereum/params"
)

// defaultChainConfig returns an always-on-latest-fork chain config: every
// historical fork block is the genesis block, and Shanghai/Cancun are
// active from time zero. Adapted from the teacher's
// vm/runtime.Config.SetDefaults — this module has no notion of "which
// network", only "run the newest semantics available", matching spec
// §4.5's rationale ("callers want deterministic simulation, not
// gas-market realism").
func defaultChainConfig() *params.ChainConfig {
	var (
		shanghaiTime = uint64(0)
		cancunTime   = uint64(0)
	)
	return &params.ChainConfig{
		ChainID:                       big.NewInt(1),
		HomesteadBlock:                new(big.Int),
		DAOForkBlock:                  new(big.Int),
		DAOForkSupport:                false,
		EIP150Block:                   new(big.Int),
		EIP155Block:                   new(big.Int),
		EIP158Block:                   new(big.Int),
		ByzantiumBlock:                new(big.Int),
		ConstantinopleBlock:           new(big.Int),
		PetersburgBlock:               new(big.Int),
		IstanbulBlock:                 new(big.Int),
		MuirGlacierBlock:              new(big.Int),
		BerlinBlock:                   new(big.Int),
		LondonBlock:                   new(big.Int),
		TerminalTotalDifficulty:       big.NewInt(0),
		TerminalTotalDifficultyPassed: true,
		ShanghaiTime:                  &shanghaiTime,
		CancunTime:                    &cancunTime,
	}
}
