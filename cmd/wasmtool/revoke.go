package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Revoke a capability from a loaded component",
	}
	cmd.AddCommand(newRevokeStorageCmd(), newRevokeNetworkCmd(), newRevokeEnvironmentCmd())
	return cmd
}

func newRevokeStorageCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "storage <component-id> <uri>",
		Short:   "Revoke access to a storage URI",
		Example: `  wasmtool revoke storage text_transform fs:///data/input`,
		Args:    cobra.ExactArgs(2),
		RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, args []string) error {
			doc, err := ctx.Container.Lifecycle().RevokeStorage(args[0], args[1])
			if err != nil {
				return fmt.Errorf("revoking storage: %w", err)
			}
			return printPolicy(doc)
		}),
	}
}

func newRevokeNetworkCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "network <component-id> <host>",
		Short:   "Revoke access to a network host",
		Example: `  wasmtool revoke network clock api.example.com`,
		Args:    cobra.ExactArgs(2),
		RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, args []string) error {
			doc, err := ctx.Container.Lifecycle().RevokeNetwork(args[0], args[1])
			if err != nil {
				return fmt.Errorf("revoking network: %w", err)
			}
			return printPolicy(doc)
		}),
	}
}

func newRevokeEnvironmentCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "environment <component-id> <key>",
		Short:   "Revoke access to an environment variable",
		Example: `  wasmtool revoke environment text_transform API_KEY`,
		Args:    cobra.ExactArgs(2),
		RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, args []string) error {
			doc, err := ctx.Container.Lifecycle().RevokeEnvironment(args[0], args[1])
			if err != nil {
				return fmt.Errorf("revoking environment: %w", err)
			}
			return printPolicy(doc)
		}),
	}
}

func init() {
	rootCmd.AddCommand(newRevokeCmd())
}
