package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wasmtool-dev/wasmtool/internal/infrastructure/build"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of wasmtool",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println(build.Get().Full())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
