package simular

import "github.com/simular-fi/simular/abi"

// Abi is spec §6's Abi handle: an immutable, shareable-across-engines
// wrapper around an abi.Registry.
type Abi struct {
	reg *abi.Registry
}

// AbiFromFullJSON implements spec §6's Abi::from_full_json.
func AbiFromFullJSON(text string) (*Abi, error) {
	reg, err := abi.FromFullJSON(text)
	if err != nil {
		return nil, err
	}
	return &Abi{reg: reg}, nil
}

// AbiFromABIBytecode implements spec §6's Abi::from_abi_bytecode.
func AbiFromABIBytecode(abiText string, bytecode []byte) (*Abi, error) {
	reg, err := abi.FromABIBytecode(abiText, bytecode)
	if err != nil {
		return nil, err
	}
	return &Abi{reg: reg}, nil
}

// AbiFromHumanReadable implements spec §6's Abi::from_human_readable.
func AbiFromHumanReadable(signatures []string) (*Abi, error) {
	reg, err := abi.FromHumanReadable(signatures)
	if err != nil {
		return nil, err
	}
	return &Abi{reg: reg}, nil
}

func (a *Abi) HasFunction(name string) bool { return a.reg.HasFunction(name) }
func (a *Abi) HasFallback() bool            { return a.reg.HasFallback() }
func (a *Abi) HasReceive() bool             { return a.reg.HasReceive() }
func (a *Abi) Bytecode() []byte             { return a.reg.Bytecode() }
