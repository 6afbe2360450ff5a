// ABOUTME: CLI command to ask a question against the indexed documents
// ABOUTME: Prints the answer with its cited sources
package commands

import (
	"fmt"
	"strings"

	"github.com/harper/docqa/internal/models"
	"github.com/spf13/cobra"
)

// NewAskCmd creates the ask command
func NewAskCmd() *cobra.Command {
	var conversationID string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question",
		Long: `Ask a question answered only from the indexed documents.

Examples:
  docqa ask "Does plan X cover dental?"
  docqa ask --conversation 1f0c... "What about vision?"
  docqa ask --format json "What is the deductible?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			question := strings.Join(args, " ")
			resp, err := a.pipeline.Query(cmd.Context(), question, conversationID)
			if err != nil {
				return fmt.Errorf("answering question: %w", err)
			}

			if outputFormat == "json" {
				return printJSON(cmd, resp)
			}
			printAnswer(cmd, resp)
			return nil
		},
	}

	cmd.Flags().StringVar(&conversationID, "conversation", "", "Conversation id from a previous answer")

	return cmd
}

func printAnswer(cmd *cobra.Command, resp *models.QueryResponse) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, resp.Answer)

	if len(resp.Sources) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Sources:")
		for i, src := range resp.Sources {
			label := models.Metadata{Source: src.Source, Page: src.Page}.Label()
			fmt.Fprintf(out, "  %d. %s: %s\n", i+1, label, truncate(strings.Join(strings.Fields(src.Content), " "), 80))
		}
	}

	if !quiet {
		fmt.Fprintln(out)
		cached := ""
		if resp.Cached {
			cached = " (cached)"
		}
		fmt.Fprintf(out, "Conversation: %s%s\n", resp.ConversationID, cached)
	}
}
