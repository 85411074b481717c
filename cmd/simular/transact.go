package main

import "github.com/spf13/cobra"

func newTransactCmd() *cobra.Command {
	var to, fn, args, caller, value string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "transact",
		Short: "Run a committing (or, with --simulate, non-committing) transaction",
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
			var (
				gasUsed uint64
				logs    int
				output  string
			)
			if dryRun {
				tx, err := engine.Simulate(ctx, fn, args, caller, to, value, contractAbi)
				if err != nil {
					return err
				}
				gasUsed, logs = tx.GasUsed, len(tx.Logs)
				if tx.Output != nil {
					output = tx.Output.String()
				}
			} else {
				tx, err := engine.Transact(ctx, fn, args, caller, to, value, contractAbi)
				if err != nil {
					return err
				}
				gasUsed, logs = tx.GasUsed, len(tx.Logs)
				if tx.Output != nil {
					output = tx.Output.String()
				}
				if err := maybeWriteSnapshot(engine); err != nil {
					return err
				}
			}
			return printJSON(map[string]interface{}{
				"function": fn,
				"gasUsed":  gasUsed,
				"logCount": logs,
				"output":   output,
			})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "address text of the contract to call")
	cmd.Flags().StringVar(&fn, "fn", "", "function name to resolve an overload of")
	cmd.Flags().StringVar(&args, "args", "()", "call arguments, e.g. \"(1,2)\"")
	cmd.Flags().StringVar(&caller, "caller", "", "address text of the caller")
	cmd.Flags().StringVar(&value, "value", "0", "wei value to send with the call")
	cmd.Flags().BoolVar(&dryRun, "simulate", false, "run without committing the resulting state change")
	cmd.MarkFlagRequired("to")
	cmd.MarkFlagRequired("fn")
	cmd.MarkFlagRequired("caller")
	return cmd
}
