package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/comment-consultant/internal/taxonomy"
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "List the topic taxonomy",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Topics (taxonomy %s):\n\n", taxonomy.Version)
		for _, t := range taxonomy.Default().Topics() {
			fmt.Fprintf(out, "- %-22s %s\n", t.ID, t.Name)
			if verbose {
				fmt.Fprintf(out, "  %s\n", t.Description)
			}
		}
		return nil
	},
}
