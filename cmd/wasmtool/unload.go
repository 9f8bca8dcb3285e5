package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUnloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "unload <component-id>",
		Short:   "Unload a component and unregister its tools",
		Example: `  wasmtool unload text_transform`,
		Args:    cobra.ExactArgs(1),
		RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, args []string) error {
			if err := ctx.Container.Lifecycle().Unload(ctx.Context, args[0]); err != nil {
				return fmt.Errorf("unloading %q: %w", args[0], err)
			}
			fmt.Printf("unloaded %s\n", args[0])
			return nil
		}),
	}
}

func init() {
	rootCmd.AddCommand(newUnloadCmd())
}
