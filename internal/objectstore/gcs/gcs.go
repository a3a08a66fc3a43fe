package gcs

import (
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"studysync/internal/objectstore"
)

const (
	defaultPublicBase = "https://storage.googleapis.com"
	uploadTimeout     = 2 * time.Minute
)

type Config struct {
	Bucket          string
	CredentialsFile string
	// PublicBaseURL replaces https://storage.googleapis.com/<bucket> in returned links, e.g. a CDN domain.
	PublicBaseURL string
}

type Store struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs: bucket required")
	}
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &Store{client: client, bucket: cfg.Bucket, baseURL: PublicBase(cfg)}, nil
}

// PublicBase is the URL prefix objects in the bucket are reachable under.
func PublicBase(cfg Config) string {
	if cfg.PublicBaseURL != "" {
		return cfg.PublicBaseURL
	}
	return defaultPublicBase + "/" + cfg.Bucket
}

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	if err := objectstore.ValidKey(key); err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return objectstore.JoinURL(s.baseURL, key), nil
}
