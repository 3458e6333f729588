package cmd

import (
	"github.com/qiotlabs/aqimport/internal/datastore"
	"github.com/qiotlabs/aqimport/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the aqimport MCP server",
	Long:  `Launch an MCP server that allows AI agents to list periods, run imports and inspect the store via standard tools.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// Logs go to stderr so stdio stays reserved for the protocol.
		return sharedSetup(rootCtx, cmd, args)
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		store := datastore.Manager.GetTelemetryStore()
		imp, err := newImporter(store, nil)
		if err != nil {
			return err
		}
		return mcp.StartMCPServer(rootCtx, cfg, imp, store)
	},
}
