package recorder

import (
	"strings"
	"time"
)

// Commit subject prefixes. A Checkpoint boundary is any commit carrying
// CheckpointPrefix or the older LegacyCheckpointPrefix.
const (
	SnapshotPrefix         = "[SNAPSHOT]"
	CheckpointPrefix       = "[CHECKPOINT]"
	LegacyCheckpointPrefix = "[CONSOLIDATE]"
)

// clockFormat is the wall-clock stamp embedded in commit subjects.
const clockFormat = "15:04:05"

// snapshotInfix separates the intent from the snapshotted path.
const snapshotInfix = " - Snapshot of "

// SnapshotMessage builds the subject of a Snapshot commit:
// "[SNAPSHOT] HH:MM:SS[ - <intent>] - Snapshot of <path>".
func SnapshotMessage(at time.Time, intent, path string) string {
	var b strings.Builder
	b.WriteString(SnapshotPrefix)
	b.WriteByte(' ')
	b.WriteString(at.Format(clockFormat))
	if intent != "" {
		b.WriteString(" - ")
		b.WriteString(intent)
	}
	b.WriteString(snapshotInfix)
	b.WriteString(path)
	return b.String()
}

// CheckpointMessage builds the subject of a Checkpoint commit.
func CheckpointMessage(at time.Time, description string) string {
	return CheckpointPrefix + " " + at.Format(clockFormat) + " - " + description
}

// IsSnapshot reports whether a commit subject marks an automatic Snapshot.
func IsSnapshot(subject string) bool {
	return strings.HasPrefix(subject, SnapshotPrefix)
}

// IsCheckpoint reports whether a commit subject marks a Checkpoint.
func IsCheckpoint(subject string) bool {
	return strings.HasPrefix(subject, CheckpointPrefix) ||
		strings.HasPrefix(subject, LegacyCheckpointPrefix)
}

// SnapshotIntent extracts the intent recorded in a Snapshot subject.
// Returns "" for non-Snapshots and for Snapshots taken without an intent.
func SnapshotIntent(subject string) string {
	if !IsSnapshot(subject) {
		return ""
	}
	rest := strings.TrimPrefix(subject, SnapshotPrefix+" ")
	if len(rest) < len(clockFormat) {
		return ""
	}
	rest = rest[len(clockFormat):]

	end := strings.LastIndex(rest, snapshotInfix)
	if end < 0 {
		return ""
	}
	rest = rest[:end]
	return strings.TrimPrefix(rest, " - ")
}
