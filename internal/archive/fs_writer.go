package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FSWriter stores archives on the local filesystem under a base directory.
// Used in local and single-node deployments.
type FSWriter struct {
	baseDir string
}

// Compile-time assertion that FSWriter implements ObjectWriter.
var _ ObjectWriter = (*FSWriter)(nil)

// NewFSWriter creates a writer rooted at baseDir.
func NewFSWriter(baseDir string) *FSWriter {
	return &FSWriter{baseDir: baseDir}
}

// Put writes the data to baseDir/key, creating parent directories as needed.
func (w *FSWriter) Put(_ context.Context, key string, data []byte) error {
	path := filepath.Join(w.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("archive: failed to create directory for %s: %w", key, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("archive: failed to write %s: %w", key, err)
	}
	return nil
}
