package filesystemStore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrObjectNotFound is returned when no object exists under a key
var ErrObjectNotFound = errors.New("artifact object not found")

// FilesystemStore implements the artifact store interface using simple
// filesystem storage. Object keys are sha256 hex digests; the first
// two characters shard the directory layout.
type FilesystemStore struct {
	baseDir string
}

// New creates a new filesystem-based artifact store
func New(baseDir string) (*FilesystemStore, error) {
	//nolint:gosec,mnd // Directory permissions 0755 are intentional
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FilesystemStore{baseDir: baseDir}, nil
}

// Put stores content and returns its content-addressed object key
func (s *FilesystemStore) Put(
	_ context.Context,
	content []byte,
) (string, error) {
	hash := sha256.Sum256(content)
	key := hex.EncodeToString(hash[:])

	objectPath := s.getObjectPath(key)

	//nolint:gosec,mnd // Directory permissions 0755 are intentional
	if err := os.MkdirAll(filepath.Dir(objectPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	//nolint:mnd // filemode constant
	if err := os.WriteFile(objectPath, content, 0o644); err != nil {
		return key, fmt.Errorf("failed to write file: %w", err)
	}

	return key, nil
}

// Get retrieves the content stored under key
func (s *FilesystemStore) Get(_ context.Context, key string) ([]byte, error) {
	if len(key) < 3 {
		return nil, ErrObjectNotFound
	}

	//nolint:gosec // G304: File path is constructed internally and validated
	content, err := os.ReadFile(s.getObjectPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrObjectNotFound
		}

		return nil, fmt.Errorf("failed to read object: %w", err)
	}

	return content, nil
}

// Delete removes the object stored under key
func (s *FilesystemStore) Delete(_ context.Context, key string) error {
	if len(key) < 3 {
		return ErrObjectNotFound
	}

	if err := os.Remove(s.getObjectPath(key)); err != nil {
		if os.IsNotExist(err) {
			return ErrObjectNotFound
		}

		return fmt.Errorf("failed to remove object: %w", err)
	}

	return nil
}

// getObjectPath returns the file path for an object key
func (s *FilesystemStore) getObjectPath(key string) string {
	return filepath.Join(s.baseDir, key[:2], key+".crate")
}
