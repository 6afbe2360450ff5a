// ABOUTME: Root command and global flags for the docqa CLI
// ABOUTME: Wires serve, mcp, index, ask, info, clear and version subcommands
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
	configPath   string
)

const banner = `
██████   ██████   ██████  ██████   █████
██   ██ ██    ██ ██      ██    ██ ██   ██
██   ██ ██    ██ ██      ██ ▄▄ ██ ███████
██████   ██████   ██████  ██████  ██   ██
                             ▀▀
`

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docqa",
		Short: "Ask cited questions over your own documents",
		Long: banner + `
docqa indexes a directory of .txt, .md and .pdf documents and answers
questions using only what those documents say, citing the passages it used.

Run it as an HTTP API (serve), as an MCP server for LLM agents (mcp),
or directly from the terminal (index, ask, info, clear).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose && quiet {
				return fmt.Errorf("--verbose and --quiet are mutually exclusive")
			}
			switch outputFormat {
			case "auto", "json", "text":
			default:
				return fmt.Errorf("--format must be auto, json or text, got %q", outputFormat)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format: auto, json or text")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")

	cmd.AddCommand(
		NewServeCmd(),
		NewMCPCmd(),
		NewIndexCmd(),
		NewAskCmd(),
		NewInfoCmd(),
		NewClearCmd(),
		NewVersionCmd(),
	)

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
