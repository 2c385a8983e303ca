package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FSStore implements ObjectStore on the local filesystem. It exists for
// development and single-node deployments without an S3 bucket; keys map to
// file paths under the root directory.
type FSStore struct {
	root    string
	baseURL string
}

// NewFSStore creates the root directory if needed and returns a store whose
// URLs are baseURL + "/" + key.
func NewFSStore(root, baseURL string) (*FSStore, error) {
	if root == "" {
		return nil, errors.New("storage: empty root directory")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Upload writes data under key, creating intermediate directories. Keys are
// cleaned first so they cannot escape the root.
func (s *FSStore) Upload(_ context.Context, key string, data []byte, _ string) (string, error) {
	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return s.baseURL + "/" + key, nil
}

// Delete removes the file under key. A missing file is not an error, matching
// the S3 semantics the callers rely on.
func (s *FSStore) Delete(_ context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// resolve maps key into the root and rejects traversal outside it.
func (s *FSStore) resolve(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", errors.New("storage: empty key")
	}
	return filepath.Join(s.root, clean), nil
}
