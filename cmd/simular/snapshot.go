package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Dump the current state (from --fork or --snapshot-in) to --snapshot-out",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			engine, err := buildEngine(ctx)
			if err != nil {
				return err
			}
			text, err := engine.CreateSnapshot()
			if err != nil {
				return err
			}
			if flagSnapshotOut == "" {
				fmt.Println(text)
				return nil
			}
			return os.WriteFile(flagSnapshotOut, []byte(text), 0o644)
		},
	}
	return cmd
}
