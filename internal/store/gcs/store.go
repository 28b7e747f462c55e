// Package gcs provides a snapshot store backed by Google Cloud Storage.
package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/JakeFAU/hn-dataset-sync/internal/dataset"
	"github.com/JakeFAU/hn-dataset-sync/internal/store"
)

const contentType = "application/x-ndjson"

// Config captures the parameters required to locate the snapshot object.
type Config struct {
	Bucket string
	Prefix string
	Repo   string
	Split  string
}

// Object returns the object name <Prefix>/<Repo>/<Split>.jsonl.
func (c Config) Object() string {
	return path.Join(c.Prefix, c.Repo, c.Split+".jsonl")
}

// Store reads and writes the snapshot object.
type Store struct {
	client *storage.Client
	bucket string
	object string
}

// New creates a GCS client using Application Default Credentials (or opts)
// and verifies the bucket is reachable.
func New(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Store, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	if _, err := client.Bucket(cfg.Bucket).Attrs(ctx); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to get GCS bucket '%s' attributes: %w (close client: %v)", cfg.Bucket, err, closeErr)
		}
		return nil, fmt.Errorf("failed to get GCS bucket '%s' attributes: %w", cfg.Bucket, err)
	}
	return NewWithClient(client, cfg)
}

// NewWithClient wraps an existing client.
func NewWithClient(client *storage.Client, cfg Config) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if strings.TrimSpace(cfg.Repo) == "" || strings.TrimSpace(cfg.Split) == "" {
		return nil, fmt.Errorf("repo and split are required")
	}
	return &Store{client: client, bucket: cfg.Bucket, object: cfg.Object()}, nil
}

// Load downloads and decodes the snapshot object.
func (s *Store) Load(ctx context.Context) (dataset.Snapshot, error) {
	reader, err := s.client.Bucket(s.bucket).Object(s.object).NewReader(ctx)
	if notExist(err) {
		return dataset.Snapshot{}, fmt.Errorf("open %s: %w", s.URI(), store.ErrNotFound)
	}
	if err != nil {
		return dataset.Snapshot{}, fmt.Errorf("open %s: %w", s.URI(), err)
	}
	defer reader.Close() //nolint:errcheck // read-only

	records, err := dataset.ReadJSONL(reader)
	if err != nil {
		return dataset.Snapshot{}, fmt.Errorf("decode %s: %w", s.URI(), err)
	}
	return dataset.Snapshot{Records: records}, nil
}

// Publish uploads the encoded snapshot, replacing the object.
func (s *Store) Publish(ctx context.Context, snap dataset.Snapshot, message string) error {
	data, err := snap.Encode()
	if err != nil {
		return err
	}
	writer := s.client.Bucket(s.bucket).Object(s.object).NewWriter(ctx)
	writer.ContentType = contentType
	if message != "" {
		writer.Metadata = map[string]string{"message": message}
	}
	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer for object %s: %w", s.object, err)
	}
	return nil
}

// URI returns the gs:// location of the snapshot.
func (s *Store) URI() string {
	return fmt.Sprintf("gs://%s/%s", s.bucket, s.object)
}

// Close releases the GCS client.
func (s *Store) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close GCS client: %w", err)
	}
	return nil
}

// notExist reports whether err means the snapshot has never been written.
func notExist(err error) bool {
	return errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist)
}
