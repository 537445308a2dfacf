package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalStore writes artifacts below a base directory.
type LocalStore struct {
	dir string
}

// NewLocalStore returns a store rooted at dir. An empty dir means ".".
func NewLocalStore(dir string) *LocalStore {
	if dir == "" {
		dir = "."
	}
	return &LocalStore{dir: dir}
}

// Backend returns BackendLocal.
func (s *LocalStore) Backend() Backend {
	return BackendLocal
}

// Store writes data to <dir>/screenshot/{id}.jpg and returns that path.
// Data goes to a temporary file first and is renamed into place, so a
// cancelled or failed write never leaves a truncated screenshot behind.
func (s *LocalStore) Store(ctx context.Context, data []byte, id string) (string, error) {
	if err := validateID(id); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", ErrEmptyArtifact
	}

	path := filepath.Join(s.dir, filepath.FromSlash(Key(id)))
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+id+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary artifact: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close() //nolint:errcheck // write error takes precedence
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("failed to commit artifact: %w", err)
	}
	committed = true
	return path, nil
}
