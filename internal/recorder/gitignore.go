package recorder

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorewood/trajectory/internal/config"
	"github.com/gorewood/trajectory/internal/output"
)

// gitignoreEntry is the line added to the project's .gitignore.
const gitignoreEntry = config.ShadowDirName + "/"

// ensureGitignore makes sure the project's own version control never picks
// up the shadow directory. The file is created when missing.
func ensureGitignore(root string, logger *slog.Logger) error {
	path := filepath.Join(root, ".gitignore")

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return output.NewSystemErrorWithCause("reading "+path, err)
	}
	if hasShadowEntry(string(data)) {
		return nil
	}

	content := string(data)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += gitignoreEntry + "\n"

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return output.NewSystemErrorWithCause("writing "+path, err)
	}
	logger.Info("added shadow directory to .gitignore", "path", path)
	return nil
}

// hasShadowEntry reports whether a .gitignore body already excludes the
// shadow directory.
func hasShadowEntry(content string) bool {
	for line := range strings.SplitSeq(content, "\n") {
		switch strings.TrimSpace(line) {
		case config.ShadowDirName, gitignoreEntry, "/" + config.ShadowDirName, "/" + gitignoreEntry:
			return true
		}
	}
	return false
}
