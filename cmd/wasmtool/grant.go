package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wasmtool-dev/wasmtool/internal/domain/capabilities"
)

func newGrantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Grant a capability to a loaded component",
	}
	cmd.AddCommand(newGrantStorageCmd(), newGrantNetworkCmd(), newGrantEnvironmentCmd())
	return cmd
}

func newGrantStorageCmd() *cobra.Command {
	var read, write bool

	cmd := &cobra.Command{
		Use:     "storage <component-id> <uri>",
		Short:   "Grant access to a storage URI",
		Example: `  wasmtool grant storage text_transform fs:///data/input --read --write`,
		Args:    cobra.ExactArgs(2),
		RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, args []string) error {
			var access []capabilities.AccessMode
			if read {
				access = append(access, capabilities.AccessRead)
			}
			if write {
				access = append(access, capabilities.AccessWrite)
			}
			if len(access) == 0 {
				return fmt.Errorf("at least one of --read or --write is required")
			}
			doc, err := ctx.Container.Lifecycle().GrantStorage(args[0], args[1], access)
			if err != nil {
				return fmt.Errorf("granting storage: %w", err)
			}
			return printPolicy(doc)
		}),
	}
	cmd.Flags().BoolVar(&read, "read", false, "grant read access")
	cmd.Flags().BoolVar(&write, "write", false, "grant write access")
	return cmd
}

func newGrantNetworkCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "network <component-id> <host>",
		Short:   "Grant access to a network host",
		Example: `  wasmtool grant network clock api.example.com`,
		Args:    cobra.ExactArgs(2),
		RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, args []string) error {
			doc, err := ctx.Container.Lifecycle().GrantNetwork(args[0], args[1])
			if err != nil {
				return fmt.Errorf("granting network: %w", err)
			}
			return printPolicy(doc)
		}),
	}
}

func newGrantEnvironmentCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "environment <component-id> <key>",
		Short:   "Grant access to an environment variable",
		Example: `  wasmtool grant environment text_transform API_KEY`,
		Args:    cobra.ExactArgs(2),
		RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, args []string) error {
			doc, err := ctx.Container.Lifecycle().GrantEnvironment(args[0], args[1])
			if err != nil {
				return fmt.Errorf("granting environment: %w", err)
			}
			return printPolicy(doc)
		}),
	}
}

func printPolicy(doc *capabilities.PolicyDocument) error {
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding policy: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func init() {
	rootCmd.AddCommand(newGrantCmd())
}
