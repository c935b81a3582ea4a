package mcp

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gorewood/trajectory/internal/output"
	"github.com/gorewood/trajectory/internal/tracker"
	"github.com/gorewood/trajectory/internal/trajectory"
)

// textResult wraps markdown as the tool's text content.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

// session returns the tracked project, or a guidance result when none is
// configured. Not being configured is not a tool error.
func session(tr *tracker.Tracker) (*tracker.Session, *mcp.CallToolResult) {
	s, err := tr.Session()
	if errors.Is(err, tracker.ErrNotConfigured) {
		return nil, textResult(tracker.NotConfiguredMessage)
	}
	return s, nil
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

// nonNil keeps empty lists as [] in structured output.
func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

// --- Configure tool ---

// ConfigureInput is the input for the configure_project tool.
type ConfigureInput struct {
	Path string `json:"path" jsonschema:"absolute path of the project directory to track"`
}

// ConfigureOutput is the output for the configure_project tool.
type ConfigureOutput struct {
	Root    string `json:"root"    jsonschema:"resolved project root"`
	Message string `json:"message" jsonschema:"confirmation message"`
}

func handleConfigure(tr *tracker.Tracker) mcp.ToolHandlerFor[ConfigureInput, ConfigureOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ConfigureInput) (*mcp.CallToolResult, ConfigureOutput, error) {
		if strings.TrimSpace(input.Path) == "" {
			return nil, ConfigureOutput{}, errors.New("path is required")
		}
		// A relative path would resolve against the server's directory,
		// not the caller's project.
		if !filepath.IsAbs(input.Path) {
			return nil, ConfigureOutput{}, output.NewUserError("path must be absolute: " + input.Path)
		}
		msg, err := tr.Configure(ctx, input.Path)
		if err != nil {
			return nil, ConfigureOutput{}, err
		}
		s, err := tr.Session()
		if err != nil {
			return nil, ConfigureOutput{}, err
		}
		return textResult(msg), ConfigureOutput{Root: s.Root, Message: msg}, nil
	}
}

// --- Intent tool ---

// IntentInput is the input for the set_trajectory_intent tool.
type IntentInput struct {
	Intent string `json:"intent" jsonschema:"short description of the current task"`
}

// IntentOutput is the output for the set_trajectory_intent tool.
type IntentOutput struct {
	Intent string `json:"intent" jsonschema:"the intent now attached to new snapshots"`
}

func handleSetIntent(tr *tracker.Tracker) mcp.ToolHandlerFor[IntentInput, IntentOutput] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input IntentInput) (*mcp.CallToolResult, IntentOutput, error) {
		s, guidance := session(tr)
		if s == nil {
			return guidance, IntentOutput{}, nil
		}
		s.Recorder.SetIntent(input.Intent)
		intent := s.Recorder.Intent()
		return textResult("Intent set to: " + intent), IntentOutput{Intent: intent}, nil
	}
}

// --- File trajectory tool ---

// FileTrajectoryInput is the input for the get_file_trajectory tool.
type FileTrajectoryInput struct {
	Filepath string `json:"filepath"        jsonschema:"file path, absolute or relative to the project root"`
	Depth    int    `json:"depth,omitempty" jsonschema:"number of recent snapshots to include (default 5)"`
}

// FileEntry is one snapshot in a file's trajectory.
type FileEntry struct {
	SHA      string `json:"sha"                 jsonschema:"shadow commit SHA"`
	Time     string `json:"time"                jsonschema:"commit timestamp"`
	Message  string `json:"message"             jsonschema:"commit message"`
	Added    int    `json:"added"               jsonschema:"lines added"`
	Deleted  int    `json:"deleted"             jsonschema:"lines deleted"`
	Initial  bool   `json:"initial,omitempty"   jsonschema:"first commit of the history"`
	RevertOf string `json:"revert_of,omitempty" jsonschema:"timestamp of the earlier identical state, when reverted"`
}

// FileTrajectoryOutput is the output for the get_file_trajectory tool.
type FileTrajectoryOutput struct {
	Path    string      `json:"path"    jsonschema:"requested path"`
	Entries []FileEntry `json:"entries" jsonschema:"snapshots, oldest first"`
}

func handleFileTrajectory(tr *tracker.Tracker) mcp.ToolHandlerFor[FileTrajectoryInput, FileTrajectoryOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input FileTrajectoryInput) (*mcp.CallToolResult, FileTrajectoryOutput, error) {
		s, guidance := session(tr)
		if s == nil {
			return guidance, FileTrajectoryOutput{Entries: []FileEntry{}}, nil
		}
		if strings.TrimSpace(input.Filepath) == "" {
			return nil, FileTrajectoryOutput{}, errors.New("filepath is required")
		}

		report, err := s.Engine.File(ctx, input.Filepath, input.Depth)
		text := s.Engine.RenderFile(report, err)
		if err != nil {
			return textResult(text), FileTrajectoryOutput{Path: input.Filepath, Entries: []FileEntry{}}, nil
		}
		return textResult(text), toFileOutput(report), nil
	}
}

func toFileOutput(report *trajectory.FileReport) FileTrajectoryOutput {
	out := FileTrajectoryOutput{Path: report.Path, Entries: make([]FileEntry, 0, len(report.Entries))}
	for _, e := range report.Entries {
		entry := FileEntry{
			SHA:     e.SHA,
			Time:    formatTime(e.Time),
			Message: e.Message,
			Added:   e.Added,
			Deleted: e.Deleted,
			Initial: e.Initial,
		}
		if e.RevertOf != nil {
			entry.RevertOf = formatTime(*e.RevertOf)
		}
		out.Entries = append(out.Entries, entry)
	}
	return out
}

// --- Global trajectory tool ---

// GlobalTrajectoryInput is the input for the get_global_trajectory tool.
type GlobalTrajectoryInput struct {
	Limit            int  `json:"limit,omitempty"             jsonschema:"maximum snapshots to list (default 20)"`
	SinceConsolidate bool `json:"since_consolidate,omitempty" jsonschema:"list everything since the last checkpoint, ignoring limit"`
}

// FeedItem is one line of the global trajectory.
type FeedItem struct {
	SHA     string   `json:"sha"     jsonschema:"shadow commit SHA"`
	Time    string   `json:"time"    jsonschema:"commit timestamp"`
	Message string   `json:"message" jsonschema:"commit message"`
	Files   []string `json:"files"   jsonschema:"files touched"`
}

// GlobalTrajectoryOutput is the output for the get_global_trajectory tool.
type GlobalTrajectoryOutput struct {
	SinceCheckpoint bool       `json:"since_checkpoint" jsonschema:"whether the feed starts at the last checkpoint"`
	Items           []FeedItem `json:"items"            jsonschema:"commits, oldest first"`
}

func handleGlobalTrajectory(tr *tracker.Tracker) mcp.ToolHandlerFor[GlobalTrajectoryInput, GlobalTrajectoryOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input GlobalTrajectoryInput) (*mcp.CallToolResult, GlobalTrajectoryOutput, error) {
		s, guidance := session(tr)
		if s == nil {
			return guidance, GlobalTrajectoryOutput{Items: []FeedItem{}}, nil
		}

		feed, err := s.Engine.Global(ctx, input.Limit, input.SinceConsolidate)
		text := s.Engine.RenderGlobal(feed, err)
		out := GlobalTrajectoryOutput{SinceCheckpoint: input.SinceConsolidate, Items: []FeedItem{}}
		if err != nil {
			return textResult(text), out, nil
		}
		for _, item := range feed.Items {
			out.Items = append(out.Items, FeedItem{
				SHA:     item.SHA,
				Time:    formatTime(item.Time),
				Message: item.Message,
				Files:   nonNil(item.Files),
			})
		}
		return textResult(text), out, nil
	}
}

// --- Session summary tool ---

// SessionSummaryInput is the input for the get_session_summary tool (no parameters needed).
type SessionSummaryInput struct{}

// SessionSummaryOutput is the output for the get_session_summary tool.
type SessionSummaryOutput struct {
	Start   string   `json:"start,omitempty"  jsonschema:"time of the first commit in the session"`
	End     string   `json:"end,omitempty"    jsonschema:"time of the last commit in the session"`
	Commits int      `json:"commits"          jsonschema:"number of commits in the session"`
	Files   []string `json:"files"            jsonschema:"files modified during the session"`
	Intent  string   `json:"intent,omitempty" jsonschema:"latest intent recorded in the session"`
}

func handleSessionSummary(tr *tracker.Tracker) mcp.ToolHandlerFor[SessionSummaryInput, SessionSummaryOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ SessionSummaryInput) (*mcp.CallToolResult, SessionSummaryOutput, error) {
		s, guidance := session(tr)
		if s == nil {
			return guidance, SessionSummaryOutput{Files: []string{}}, nil
		}

		summary, err := s.Engine.LastSession(ctx)
		text := s.Engine.RenderSession(summary, err)
		if err != nil {
			return textResult(text), SessionSummaryOutput{Files: []string{}}, nil
		}
		return textResult(text), SessionSummaryOutput{
			Start:   formatTime(summary.Start),
			End:     formatTime(summary.End),
			Commits: summary.Commits,
			Files:   nonNil(summary.Files),
			Intent:  summary.Intent,
		}, nil
	}
}

// --- Consolidate tool ---

// ConsolidateInput is the input for the consolidate tool.
type ConsolidateInput struct {
	Intent string `json:"intent" jsonschema:"description of the milestone the checkpoint represents"`
}

// ConsolidateOutput is the output for the consolidate tool.
type ConsolidateOutput struct {
	Status string `json:"status" jsonschema:"outcome of the consolidation"`
}

func handleConsolidate(tr *tracker.Tracker) mcp.ToolHandlerFor[ConsolidateInput, ConsolidateOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ConsolidateInput) (*mcp.CallToolResult, ConsolidateOutput, error) {
		s, guidance := session(tr)
		if s == nil {
			return guidance, ConsolidateOutput{}, nil
		}
		status := s.Recorder.Consolidate(ctx, input.Intent)
		return textResult(status), ConsolidateOutput{Status: status}, nil
	}
}
