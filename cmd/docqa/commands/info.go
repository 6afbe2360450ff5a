// ABOUTME: CLI command to describe the vector index
// ABOUTME: Shows counts, embedding dimension and a sample of stored chunks
package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewInfoCmd creates the info command
func NewInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show index information",
		Long: `Show what the vector index currently holds.

Examples:
  docqa info
  docqa info --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			info := a.pipeline.StoreInfo()
			if outputFormat == "json" {
				return printJSON(cmd, info)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Index:      %s\n", a.cfg.StoragePath)
			fmt.Fprintf(out, "Vectors:    %d\n", info.TotalVectors)
			fmt.Fprintf(out, "Sources:    %d\n", info.TotalSources)
			fmt.Fprintf(out, "Dimension:  %d\n", info.EmbeddingDimension)

			if len(info.DocumentsSample) == 0 {
				return nil
			}
			fmt.Fprintln(out)
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SOURCE\tPAGE\tPREVIEW")
			for _, s := range info.DocumentsSample {
				page := "-"
				if s.Page != nil {
					page = fmt.Sprintf("%d", *s.Page)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", s.Source, page, truncate(s.ContentPreview, 60))
			}
			return w.Flush()
		},
	}

	return cmd
}
