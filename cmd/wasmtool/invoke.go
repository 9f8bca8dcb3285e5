package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newInvokeCmd() *cobra.Command {
	var argsJSON string

	cmd := &cobra.Command{
		Use:   "invoke <tool-name>",
		Short: "Invoke a registered tool with JSON-encoded arguments",
		Example: `  wasmtool invoke uppercase --args '{"input":"hello"}'
  wasmtool invoke ping`,
		Args: cobra.ExactArgs(1),
		RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, cmdArgs []string) error {
			params := map[string]any{}
			if argsJSON != "" {
				if err := json.Unmarshal([]byte(argsJSON), &params); err != nil {
					return fmt.Errorf("decoding --args: %w", err)
				}
			}

			result, err := ctx.Container.Lifecycle().Invoke(ctx.Context, cmdArgs[0], params)
			if err != nil {
				return fmt.Errorf("invoking %q: %w", cmdArgs[0], err)
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding result: %w", err)
			}
			fmt.Println(string(out))
			return nil
		}),
	}

	cmd.Flags().StringVar(&argsJSON, "args", "", "JSON object of tool arguments")

	return cmd
}

func init() {
	rootCmd.AddCommand(newInvokeCmd())
}
