package installer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// session owns the temporary filesystem resources of one acquisition. Every
// path handed out is registered at creation time and removed by release(),
// which the engine defers, so no exit path can leak a temporary. release
// failures are logged and never surface: cleanup must not mask the
// acquisition's primary error or turn a success into a failure.
type session struct {
	scratchRoot string
	paths       []string
	logger      *log.Logger
}

func newSession(scratchRoot string, logger *log.Logger) (*session, error) {
	if scratchRoot == "" {
		scratchRoot = os.TempDir()
	}
	if err := os.MkdirAll(scratchRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch root: %w", err)
	}
	return &session{scratchRoot: scratchRoot, logger: logger}, nil
}

// tempDir creates a fresh uniquely named directory under the scratch root.
func (s *session) tempDir(prefix string) (string, error) {
	dir := filepath.Join(s.scratchRoot, prefix+"-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	s.paths = append(s.paths, dir)
	return dir, nil
}

// tempFilePath reserves a unique path for a download target without creating
// the file; the downloader creates it. The path is registered for cleanup
// regardless of whether the download ever writes it.
func (s *session) tempFilePath() string {
	path := filepath.Join(s.scratchRoot, uuid.NewString())
	s.paths = append(s.paths, path)
	return path
}

// release removes every registered path, best effort, in reverse order of
// creation.
func (s *session) release() {
	for i := len(s.paths) - 1; i >= 0; i-- {
		path := s.paths[i]
		if err := os.RemoveAll(path); err != nil {
			s.logger.Warn("failed to remove temporary path", "path", path, "error", err)
		}
	}
	s.paths = nil
}
