package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:     "search",
	Short:   "List the static catalog of known components",
	Long:    `search is purely informational: it does not query a live registry, only the embedded catalog.`,
	Example: `  wasmtool search`,
	Args:    cobra.NoArgs,
	RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, args []string) error {
		entries := ctx.Container.Lifecycle().Search()
		if len(entries) == 0 {
			fmt.Println("catalog is empty")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "NAME\tSOURCE\tDESCRIPTION")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\n", e.Name, e.SourceURI, e.Description)
		}
		return w.Flush()
	}),
}

func init() {
	rootCmd.AddCommand(searchCmd)
}
