// Command oracle is oracle-v2's single entry point: an MCP tool server on
// stdio by default, or an HTTP JSON API, a one-shot indexing pass, or a
// liveness probe, depending on the subcommand.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "oracle",
	Short:   "oracle-v2 memory layer: hybrid search, consultation and learning over a markdown corpus",
	Version: version,
	// No subcommand named is equivalent to "mcp" (§6.5).
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serverCmd, mcpCmd, indexCmd, ensureServerCmd)
}
