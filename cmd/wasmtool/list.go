package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List loaded components and their registered tools",
	Example: `  wasmtool list`,
	Args:    cobra.NoArgs,
	RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, args []string) error {
		records := ctx.Container.Lifecycle().List()
		if len(records) == 0 {
			fmt.Println("no components loaded")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "COMPONENT\tMODE\tSOURCE\tTOOLS")
		for _, r := range records {
			names := make([]string, 0, len(r.Tools))
			for _, t := range r.Tools {
				names = append(names, t.ToolName)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", r.ComponentID, r.Mode, r.SourceURI, len(names))
		}
		return w.Flush()
	}),
}

func init() {
	rootCmd.AddCommand(listCmd)
}
