package main

import "github.com/spf13/cobra"

func newCallCmd() *cobra.Command {
	var to, fn, args string
	cmd := &cobra.Command{
		Use:   "call",
		Short: "Run a read-only call and print the decoded result",
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
			out, err := engine.Call(ctx, fn, args, to, contractAbi)
			if err != nil {
				return err
			}
			result := map[string]interface{}{"function": fn}
			if out != nil {
				result["output"] = out.String()
			}
			return printJSON(result)
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "address text of the contract to call")
	cmd.Flags().StringVar(&fn, "fn", "", "function name to resolve an overload of")
	cmd.Flags().StringVar(&args, "args", "()", "call arguments, e.g. \"(1,2)\"")
	cmd.MarkFlagRequired("to")
	cmd.MarkFlagRequired("fn")
	return cmd
}
