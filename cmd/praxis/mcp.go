package main

import (
	praxismcp "github.com/hyperengineering/praxis/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for agent integration",
	Long: `Start a Model Context Protocol (MCP) server over stdio.

This lets MCP-capable assistants generate scenarios, run consultations,
translate terms and check German text through praxis.

Example client configuration:

  {
    "mcpServers": {
      "praxis": {
        "command": "praxis",
        "args": ["mcp"],
        "env": {
          "PRAXIS_PROFILE": "default"
        }
      }
    }
  }

Environment variables:
  PRAXIS_PROFILE    Practice profile (default: default)
  PRAXIS_DB_PATH    Path to the SQLite database (overrides the profile)
  PRAXIS_ENDPOINT   Local model runtime URL
  PRAXIS_MODEL      Model served by the runtime
  PRAXIS_OFFLINE    Use bundled content only`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	// The client persists for the server lifetime.
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	return praxismcp.NewServer(client, version).Run()
}
