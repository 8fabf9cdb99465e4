package marker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Repository defines persistence operations for the rollback marker.
type Repository interface {
	Save(ctx context.Context, revision string) error
	Load(ctx context.Context) (string, error)
}

// FileRepository persists the pre-update revision as a single plain-text
// line. The updater only ever writes the marker; Load exists for external
// rollback tooling and for tests.
type FileRepository struct {
	// path is the filesystem location of the marker file.
	path string
	// mu protects concurrent access to the marker file.
	mu sync.Mutex
}

const markerFilePermissions = 0o644

var (
	// ErrNotFound is returned when the marker file does not exist yet.
	ErrNotFound = errors.New("rollback marker not found")
	// errEmptyRevision is returned when an empty revision is saved.
	errEmptyRevision = errors.New("revision is empty")
)

// NewFileRepository creates a repository that reads/writes the marker at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the marker file location.
func (r *FileRepository) Path() string {
	return r.path
}

// Save overwrites the marker with the provided revision identifier.
func (r *FileRepository) Save(_ context.Context, revision string) error {
	revision = strings.TrimSpace(revision)
	if revision == "" {
		return errEmptyRevision
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.WriteFile(r.path, []byte(revision+"\n"), markerFilePermissions); err != nil {
		return fmt.Errorf("write rollback marker: %w", err)
	}

	return nil
}

// Load reads the recorded revision from disk.
func (r *FileRepository) Load(_ context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}

		return "", fmt.Errorf("read rollback marker: %w", err)
	}

	return strings.TrimSpace(string(contents)), nil
}
