package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wasmtool-dev/wasmtool/internal/domain/component"
)

func newLoadCmd() *cobra.Command {
	var toolFilter []string
	var stateful bool

	cmd := &cobra.Command{
		Use:   "load <source-uri>",
		Short: "Load (or reload) a component from a file:// or oci:// source",
		Example: `  wasmtool load file:///opt/components/text-transform.wasm
  wasmtool load oci://ghcr.io/acme/components/clock:^1 --stateful
  wasmtool load file:///opt/components/math.wasm --tool add --tool subtract`,
		Args: cobra.ExactArgs(1),
		RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, args []string) error {
			mode := component.Stateless
			if stateful {
				mode = component.Stateful
			}
			result, err := ctx.Container.Lifecycle().Load(ctx.Context, args[0], toolFilter, mode)
			if err != nil {
				return fmt.Errorf("loading %q: %w", args[0], err)
			}
			fmt.Printf("loaded %s (%s)\n", result.ComponentID, mode)
			fmt.Printf("tools: %s\n", strings.Join(result.ToolsLoaded, ", "))
			return nil
		}),
	}

	cmd.Flags().StringArrayVar(&toolFilter, "tool", nil, "restrict registration to this exported function (repeatable); default registers every export")
	cmd.Flags().BoolVar(&stateful, "stateful", false, "keep one long-lived instance across invocations instead of a fresh one per call")

	return cmd
}

func init() {
	rootCmd.AddCommand(newLoadCmd())
}
