package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore persists drafts as one JSON file per visitor under a fixed
// directory. This is the default backend for single-instance deployments.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir. The directory is created
// lazily on first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(visitorKey string) string {
	return filepath.Join(s.dir, fmt.Sprintf("draft-%s-%s.json", KeyVersion, visitorKey))
}

// Save writes the draft atomically via a temp file rename.
func (s *FileStore) Save(ctx context.Context, visitorKey string, d *Draft) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create draft directory: %w", err)
	}

	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}

	tmp := s.path(visitorKey) + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("failed to write draft: %w", err)
	}
	if err := os.Rename(tmp, s.path(visitorKey)); err != nil {
		return fmt.Errorf("failed to finalize draft: %w", err)
	}

	return nil
}

// Restore reads the visitor's draft. A missing or corrupt file yields
// nil, nil.
func (s *FileStore) Restore(ctx context.Context, visitorKey string) (*Draft, error) {
	data, err := os.ReadFile(s.path(visitorKey))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read draft: %w", err)
	}

	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		// Corrupt drafts are discarded, not surfaced.
		return nil, nil
	}
	return &d, nil
}

// Clear removes the visitor's draft file if present.
func (s *FileStore) Clear(ctx context.Context, visitorKey string) error {
	err := os.Remove(s.path(visitorKey))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove draft: %w", err)
	}
	return nil
}
