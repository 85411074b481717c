// Command simular is a thin scripting front end over the library: each
// invocation builds one Engine from flags (fresh in-memory, forked from
// a live node, or restored from a snapshot file), performs a single
// deploy/call/transact, and optionally writes the resulting state back
// out as a snapshot — the offline-scripting use case spec §1 names.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simular-fi/simular"
)

var (
	flagAbiFile     string
	flagForkURL     string
	flagForkBlock   uint64
	flagSnapshotIn  string
	flagSnapshotOut string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "simular:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "simular",
		Short: "Deploy and call EVM contracts against an in-process or forked state store",
	}
	root.PersistentFlags().StringVar(&flagAbiFile, "abi", "", "path to a JSON ABI artifact or ABI array")
	root.PersistentFlags().StringVar(&flagForkURL, "fork", "", "JSON-RPC endpoint to read through to")
	root.PersistentFlags().Uint64Var(&flagForkBlock, "fork-block", 0, "block number to pin the fork at (0 = latest)")
	root.PersistentFlags().StringVar(&flagSnapshotIn, "snapshot-in", "", "path to a snapshot file to restore state from")
	root.PersistentFlags().StringVar(&flagSnapshotOut, "snapshot-out", "", "path to write the resulting state snapshot to")

	root.AddCommand(newDeployCmd())
	root.AddCommand(newCallCmd())
	root.AddCommand(newTransactCmd())
	root.AddCommand(newSnapshotCmd())
	return root
}

func buildEngine(ctx context.Context) (*simular.Engine, error) {
	switch {
	case flagSnapshotIn != "":
		raw, err := os.ReadFile(flagSnapshotIn)
		if err != nil {
			return nil, fmt.Errorf("read snapshot: %w", err)
		}
		return simular.FromSnapshot(string(raw))
	case flagForkURL != "":
		var block *uint64
		if flagForkBlock != 0 {
			block = &flagForkBlock
		}
		return simular.FromFork(ctx, flagForkURL, block)
	default:
		return simular.New(), nil
	}
}

func maybeWriteSnapshot(e *simular.Engine) error {
	if flagSnapshotOut == "" {
		return nil
	}
	text, err := e.CreateSnapshot()
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	return os.WriteFile(flagSnapshotOut, []byte(text), 0o644)
}

func loadAbi() (*simular.Abi, error) {
	if flagAbiFile == "" {
		return nil, fmt.Errorf("--abi is required")
	}
	raw, err := os.ReadFile(flagAbiFile)
	if err != nil {
		return nil, fmt.Errorf("read abi: %w", err)
	}
	text := string(raw)
	if strings.HasPrefix(strings.TrimSpace(text), "[") {
		return simular.AbiFromABIBytecode(text, nil)
	}
	return simular.AbiFromFullJSON(text)
}
