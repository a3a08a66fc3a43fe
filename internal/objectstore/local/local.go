package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"studysync/internal/objectstore"
)

// Store writes uploads under a directory that the HTTP server exposes at
// PublicBaseURL.
type Store struct {
	dir           string
	publicBaseURL string
}

func New(dir, publicBaseURL string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("local object storage: dir required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir, publicBaseURL: publicBaseURL}, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	if err := objectstore.ValidKey(key); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dst := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp object: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write object %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close object %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("store object %s: %w", key, err)
	}
	return objectstore.JoinURL(s.publicBaseURL, key), nil
}
