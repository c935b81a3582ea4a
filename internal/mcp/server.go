// Package mcp provides a Model Context Protocol server for trajectory.
// It exposes recording and trajectory queries as MCP tools that any
// MCP-capable agent can use.
package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gorewood/trajectory/internal/tracker"
)

// NewServer creates an MCP server with all trajectory tools registered.
func NewServer(version string, tr *tracker.Tracker) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "trajectory",
		Version: version,
	}, nil)
	registerTools(server, tr)
	return server
}

// Serve runs the server over stdio until the client disconnects or ctx ends.
func Serve(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// boolPtr returns a pointer to a bool value.
func boolPtr(b bool) *bool {
	return &b
}

// readOnlyAnnotations returns annotations for read-only tools.
func readOnlyAnnotations() *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		ReadOnlyHint:   true,
		IdempotentHint: true,
		OpenWorldHint:  boolPtr(false),
	}
}

// writeAnnotations returns annotations for tools that change state without
// destroying recorded work.
func writeAnnotations() *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		DestructiveHint: boolPtr(false),
		IdempotentHint:  true,
		OpenWorldHint:   boolPtr(false),
	}
}

// rewriteAnnotations returns annotations for tools that rewrite shadow history.
func rewriteAnnotations() *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		DestructiveHint: boolPtr(true),
		OpenWorldHint:   boolPtr(false),
	}
}

// registerTools adds all trajectory tools to the server.
func registerTools(server *mcp.Server, tr *tracker.Tracker) {
	mcp.AddTool(server, &mcp.Tool{
		Name: "configure_project",
		Description: "Start recording the trajectory of a project. Pass the absolute path of the project " +
			"directory. Must be called before any other tool.",
		Annotations: writeAnnotations(),
	}, handleConfigure(tr))

	mcp.AddTool(server, &mcp.Tool{
		Name: "set_trajectory_intent",
		Description: "Set the current intent (what you are trying to do). Every snapshot recorded from now on " +
			"is tagged with it until it is replaced.",
		Annotations: writeAnnotations(),
	}, handleSetIntent(tr))

	mcp.AddTool(server, &mcp.Tool{
		Name: "get_file_trajectory",
		Description: "Show how a file evolved: recent snapshots oldest first, each with its diff. " +
			"Snapshots that restore an earlier state are marked [Revert Detected].",
		Annotations: readOnlyAnnotations(),
	}, handleFileTrajectory(tr))

	mcp.AddTool(server, &mcp.Tool{
		Name: "get_global_trajectory",
		Description: "Show recent activity across the whole project, one line per snapshot with the files it touched. " +
			"Use since_consolidate to see everything since the last checkpoint.",
		Annotations: readOnlyAnnotations(),
	}, handleGlobalTrajectory(tr))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_session_summary",
		Description: "Summarize the most recent working session: time span, files modified, commit count and intent.",
		Annotations: readOnlyAnnotations(),
	}, handleSessionSummary(tr))

	mcp.AddTool(server, &mcp.Tool{
		Name: "consolidate",
		Description: "Squash the snapshots recorded since the last checkpoint into one checkpoint described by intent. " +
			"Only the shadow history (.trajectory) is rewritten; the project's own git repository is untouched.",
		Annotations: rewriteAnnotations(),
	}, handleConsolidate(tr))
}
