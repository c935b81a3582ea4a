package main

import (
	"github.com/spf13/cobra"

	"github.com/gorewood/trajectory/internal/config"
	trajmcp "github.com/gorewood/trajectory/internal/mcp"
	"github.com/gorewood/trajectory/internal/output"
	"github.com/gorewood/trajectory/internal/tracker"
)

// newServeCmd creates the serve command for running as an MCP server.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run as MCP server (stdio transport)",
		Long: `Run trajectory as a Model Context Protocol (MCP) server over stdio.

The agent calls configure_project with the project path before using the
other tools. Pass --path to start recording immediately instead.

Configure in your agent's MCP settings:
  {
    "mcpServers": {
      "trajectory": {
        "command": "trajectory",
        "args": ["serve"]
      }
    }
  }

Available tools: configure_project, set_trajectory_intent, get_file_trajectory,
get_global_trajectory, get_session_summary, consolidate`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	settings, err := config.Load(config.File())
	if err != nil {
		return output.NewUserErrorWithCause("invalid settings: "+err.Error(), err)
	}
	logger, err := newLogger(cmd, settings)
	if err != nil {
		return err
	}

	tr := tracker.New(tracker.Options{Logger: logger})
	defer tr.Close()

	// A bad --path is logged; the agent can still configure a project.
	if path := stringFlag(cmd, "path"); path != "" {
		msg, err := tr.Configure(cmd.Context(), path)
		if err != nil {
			logger.Error("failed to configure project", "path", path, "error", err)
		} else {
			logger.Info(msg)
		}
	}

	server := trajmcp.NewServer(buildVersion(), tr)
	logger.Debug("serving MCP over stdio", "version", buildVersion())
	return trajmcp.Serve(cmd.Context(), server)
}
