package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPolicyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect or reset a loaded component's capability policy",
	}
	cmd.AddCommand(newPolicyGetCmd(), newPolicyResetCmd())
	return cmd
}

func newPolicyGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "get <component-id>",
		Short:   "Print a component's current capability policy",
		Example: `  wasmtool policy get text_transform`,
		Args:    cobra.ExactArgs(1),
		RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, args []string) error {
			doc, err := ctx.Container.Lifecycle().GetPolicy(args[0])
			if err != nil {
				return fmt.Errorf("getting policy: %w", err)
			}
			return printPolicy(doc)
		}),
	}
}

func newPolicyResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "reset <component-id>",
		Short:   "Clear every storage, network, and environment rule",
		Example: `  wasmtool policy reset text_transform`,
		Args:    cobra.ExactArgs(1),
		RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, args []string) error {
			doc, err := ctx.Container.Lifecycle().ResetPolicy(args[0])
			if err != nil {
				return fmt.Errorf("resetting policy: %w", err)
			}
			return printPolicy(doc)
		}),
	}
}

func init() {
	rootCmd.AddCommand(newPolicyCmd())
}
