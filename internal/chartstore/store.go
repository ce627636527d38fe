// Package chartstore persists the raw marker-format chart documents that
// the rendering pipeline consumes. Refs are opaque handles; the file
// store maps each ref to one .crd file. Read failures come back as typed
// errors so callers never substitute error text for chart body.
package chartstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned when no chart exists for a ref.
var ErrNotFound = errors.New("chart not found")

// ErrInvalidRef is returned for refs that could escape the store directory.
var ErrInvalidRef = errors.New("invalid chart ref")

// Store is the chart-text storage contract consumed by the server.
type Store interface {
	Read(ref string) (string, error)
	Write(ref, text string) error
	Create(text string) (string, error)
	Delete(ref string) error
	Exists(ref string) bool
}

const chartExt = ".crd"

// FileStore keeps one chart per file inside a single directory.
type FileStore struct {
	dir    string
	logger *logrus.Logger
}

// NewFileStore creates the charts directory if needed and returns a store
// over it.
func NewFileStore(dir string, logger *logrus.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create charts directory: %w", err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

// Dir returns the directory backing the store (used by the file watcher).
func (fs *FileStore) Dir() string {
	return fs.dir
}

// validRef rejects anything that is not a plain file name; refs are
// issued by Create and must never address outside the store.
func validRef(ref string) bool {
	if ref == "" || ref == "." || ref == ".." {
		return false
	}
	if strings.ContainsAny(ref, `/\`) {
		return false
	}
	return true
}

func (fs *FileStore) path(ref string) string {
	return filepath.Join(fs.dir, ref+chartExt)
}

// Read returns the raw marker-formatted document for a ref.
func (fs *FileStore) Read(ref string) (string, error) {
	if !validRef(ref) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}

	data, err := os.ReadFile(fs.path(ref))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		fs.logger.WithError(err).WithField("ref", ref).Error("Failed to read chart")
		return "", fmt.Errorf("failed to read chart %s: %w", ref, err)
	}
	return string(data), nil
}

// Write stores the document under an existing or caller-chosen ref.
func (fs *FileStore) Write(ref, text string) error {
	if !validRef(ref) {
		return fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}

	if err := os.WriteFile(fs.path(ref), []byte(text), 0644); err != nil {
		fs.logger.WithError(err).WithField("ref", ref).Error("Failed to write chart")
		return fmt.Errorf("failed to write chart %s: %w", ref, err)
	}
	return nil
}

// Create stores a new document under a fresh ref and returns the ref.
func (fs *FileStore) Create(text string) (string, error) {
	ref := uuid.NewString()
	if err := fs.Write(ref, text); err != nil {
		return "", err
	}
	fs.logger.WithField("ref", ref).Info("Created chart")
	return ref, nil
}

// Delete removes the chart for a ref; deleting a missing ref is an error.
func (fs *FileStore) Delete(ref string) error {
	if !validRef(ref) {
		return fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}

	if err := os.Remove(fs.path(ref)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return fmt.Errorf("failed to delete chart %s: %w", ref, err)
	}
	return nil
}

// Exists reports whether a chart is stored for the ref.
func (fs *FileStore) Exists(ref string) bool {
	if !validRef(ref) {
		return false
	}
	_, err := os.Stat(fs.path(ref))
	return err == nil
}

// RefFromFilename recovers a ref from a chart file name, reporting whether
// the name belongs to this store's layout.
func RefFromFilename(name string) (string, bool) {
	base := filepath.Base(name)
	if !strings.HasSuffix(base, chartExt) {
		return "", false
	}
	return strings.TrimSuffix(base, chartExt), true
}
