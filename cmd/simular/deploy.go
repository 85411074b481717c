package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newDeployCmd() *cobra.Command {
	var caller, args, value string
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy a contract and print its address",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			engine, err := buildEngine(ctx)
			if err != nil {
				return err
			}
			contractAbi, err := loadAbi()
			if err != nil {
				return err
			}
			addr, result, err := engine.Deploy(ctx, args, caller, value, contractAbi)
			if err != nil {
				return err
			}
			if err := maybeWriteSnapshot(engine); err != nil {
				return err
			}
			return printJSON(map[string]interface{}{
				"address":  addr,
				"gasUsed":  result.GasUsed,
				"logCount": len(result.Logs),
			})
		},
	}
	cmd.Flags().StringVar(&caller, "caller", "", "address text of the deploying account")
	cmd.Flags().StringVar(&args, "args", "()", "constructor arguments, e.g. \"(1,2)\"")
	cmd.Flags().StringVar(&value, "value", "0", "wei value to send with the deployment")
	cmd.MarkFlagRequired("caller")
	return cmd
}

func printJSON(v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(raw))
	return nil
}
