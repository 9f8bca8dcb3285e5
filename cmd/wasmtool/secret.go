package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSetSecretCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "set-secret <component-id> <key> <value>",
		Short:   "Store a secret value for a component, consulted before the process environment",
		Example: `  wasmtool set-secret text_transform API_KEY s3cr3t`,
		Args:    cobra.ExactArgs(3),
		RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, args []string) error {
			if err := ctx.Container.Secrets().Set(args[0], args[1], args[2]); err != nil {
				return fmt.Errorf("setting secret: %w", err)
			}
			fmt.Printf("set %s for %s\n", args[1], args[0])
			return nil
		}),
	}
}

func init() {
	rootCmd.AddCommand(newSetSecretCmd())
}
