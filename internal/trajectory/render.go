package trajectory

import (
	"fmt"
	"strings"
)

// Status texts shared by the markdown renderers.
const (
	NoHistory        = "No history available"
	NoGlobalActivity = "No global activity found."
	RevertMarker     = "**[Revert Detected]**"
	InitialMarker    = "[Initial Commit]"
)

const (
	longStamp  = "2006-01-02 15:04:05"
	clockStamp = "15:04:05"
)

// Markdown renders the report oldest section first.
func (r *FileReport) Markdown() string {
	if len(r.Entries) == 0 {
		return fmt.Sprintf("No trajectory found for %s.", r.Path)
	}

	sections := []string{"# Trajectory for " + r.Path}
	for _, entry := range r.Entries {
		heading := fmt.Sprintf("## %s - %s", entry.Time.Format(longStamp), entry.Message)
		if entry.RevertOf != nil {
			heading += fmt.Sprintf(" %s (Matches state from %s)", RevertMarker, entry.RevertOf.Format(longStamp))
		}
		sections = append(sections, heading)

		body := entry.Diff
		if entry.Initial {
			body = InitialMarker
		} else {
			sections = append(sections, fmt.Sprintf("_+%d/-%d lines_", entry.Added, entry.Deleted))
		}
		sections = append(sections, "```diff\n"+body+"\n```")
	}
	return strings.Join(sections, "\n\n")
}

// Markdown renders one line per commit, oldest first.
func (f *Feed) Markdown() string {
	if len(f.Items) == 0 {
		return NoGlobalActivity
	}

	lines := make([]string, 0, len(f.Items)+1)
	if f.SinceCheckpoint {
		lines = append(lines, "# Global Trajectory (Since Last Checkpoint)")
	} else {
		lines = append(lines, fmt.Sprintf("# Global Trajectory (Last %d commits)", len(f.Items)))
	}
	for _, item := range f.Items {
		lines = append(lines, fmt.Sprintf("- **%s**: %s (Files: `%s`)",
			item.Time.Format(clockStamp), firstLine(item.Message), strings.Join(item.Files, ", ")))
	}
	return strings.Join(lines, "\n")
}

// Markdown renders the session summary.
func (s *Session) Markdown() string {
	lines := []string{
		"# Last Session Summary",
		fmt.Sprintf("**Time:** %s to %s", s.Start.Format(longStamp), s.End.Format(clockStamp)),
	}
	if s.Intent != "" {
		lines = append(lines, "**Latest Intent:** "+s.Intent)
	}
	lines = append(lines,
		"**Files Modified:** "+strings.Join(s.Files, ", "),
		fmt.Sprintf("**Commit Count:** %d", s.Commits),
	)
	return strings.Join(lines, "\n")
}

func firstLine(msg string) string {
	line, _, _ := strings.Cut(msg, "\n")
	return line
}
