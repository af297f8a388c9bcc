package cli

import (
	"github.com/spf13/cobra"

	"github.com/ashureev/datadesk/internal/mcp"
)

func newMCPCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the helper as MCP tools over stdio",
		Long:  `Starts a Model Context Protocol server on stdin/stdout exposing ask_platform_helper, get_intent and list_quick_actions. Logs go to stderr.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			kb, err := a.knowledgeBase()
			if err != nil {
				return err
			}
			mcp.Version = Version
			a.logger.Info("MCP server starting", "intents", kb.Len())
			return mcp.NewServer(kb).Serve()
		},
	}
}
