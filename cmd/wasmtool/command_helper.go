package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/wasmtool-dev/wasmtool/internal/infrastructure/container"
)

// CommandContext carries the dependencies every subcommand needs.
type CommandContext struct {
	Container *container.Container
	Context   context.Context
}

// CommandHandler is a cobra RunE body given an initialized
// CommandContext, so commands hold business logic only.
type CommandHandler func(*CommandContext, *cobra.Command, []string) error

// withContainer builds the composition root once per invocation and
// wraps handler with it.
func withContainer(handler CommandHandler) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		c, err := container.New(cmd.Context(), container.Options{
			Logger:           slog.Default(),
			SystemConfigPath: configPath,
		})
		if err != nil {
			return fmt.Errorf("initializing wasmtool: %w", err)
		}
		defer func() { _ = c.Close(cmd.Context()) }()

		return handler(&CommandContext{Container: c, Context: cmd.Context()}, cmd, args)
	}
}
