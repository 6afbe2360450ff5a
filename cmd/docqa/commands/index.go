// ABOUTME: CLI command to index a documents directory
// ABOUTME: Loads, splits, embeds and persists documents into the vector index
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewIndexCmd creates the index command
func NewIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index [dir]",
		Short: "Index a directory of documents",
		Long: `Index every .txt, .md and .pdf file in a directory.

Chunks are appended to the existing index; run clear first to rebuild it.
Defaults to DOCUMENTS_DIR (data/documents).

Examples:
  docqa index
  docqa index ./policies
  docqa index --format json ./policies`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			dir := a.cfg.DocumentsDir
			if len(args) == 1 {
				dir = args[0]
			}

			result, err := a.pipeline.IndexDocuments(cmd.Context(), dir)
			if err != nil {
				return fmt.Errorf("indexing %s: %w", dir, err)
			}

			if outputFormat == "json" {
				return printJSON(cmd, result)
			}
			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d documents into %d chunks (%d total)\n",
					result.DocumentsProcessed, result.ChunksCreated, a.pipeline.Index().Size())
			}
			return nil
		},
	}

	return cmd
}
