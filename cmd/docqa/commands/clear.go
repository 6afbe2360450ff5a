// ABOUTME: CLI command to empty the vector index
// ABOUTME: Requires --confirm because it removes every indexed chunk
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewClearCmd creates the clear command
func NewClearCmd() *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove everything from the index",
		Long: `Remove every indexed chunk and persist the empty index.

Cached answers are not removed; they expire after CACHE_EXPIRY.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				fmt.Fprintln(cmd.OutOrStdout(), "This will remove ALL indexed documents!")
				fmt.Fprintln(cmd.OutOrStdout(), "Run with --confirm to proceed")
				return nil
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.pipeline.ClearIndex(cmd.Context()); err != nil {
				return err
			}
			if !quiet {
				fmt.Fprintln(cmd.OutOrStdout(), "Index cleared successfully")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "Confirm the clear operation")

	return cmd
}
