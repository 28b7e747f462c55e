// Package local implements a filesystem snapshot store.
package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/hn-dataset-sync/internal/dataset"
	"github.com/JakeFAU/hn-dataset-sync/internal/store"
)

// Config captures the parameters for the local filesystem store.
type Config struct {
	// BaseDir is the root directory where snapshots are stored.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
	// Repo is the owner/name dataset identity.
	Repo string
	// Split names the snapshot file within the repo directory.
	Split string
}

// Store keeps the snapshot at <BaseDir>/<Repo>/<Split>.jsonl.
type Store struct {
	path string
}

// New creates a local store, creating BaseDir when missing and verifying it
// is writable.
func New(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if strings.TrimSpace(cfg.Repo) == "" || strings.TrimSpace(cfg.Split) == "" {
		return nil, fmt.Errorf("repo and split are required")
	}

	info, err := os.Stat(cfg.BaseDir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to stat base directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	testFile := filepath.Join(cfg.BaseDir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("failed to clean up test file: %w", err)
	}

	cleanBase := filepath.Clean(cfg.BaseDir)
	full := filepath.Clean(filepath.Join(cleanBase, cfg.Repo, cfg.Split+".jsonl"))
	if !strings.HasPrefix(full, cleanBase+string(filepath.Separator)) {
		return nil, fmt.Errorf("path traversal detected")
	}

	return &Store{path: full}, nil
}

// Load reads the snapshot file.
func (s *Store) Load(_ context.Context) (dataset.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return dataset.Snapshot{}, fmt.Errorf("read %s: %w", s.path, store.ErrNotFound)
	}
	if err != nil {
		return dataset.Snapshot{}, fmt.Errorf("read %s: %w", s.path, err)
	}
	records, err := dataset.ReadJSONL(bytes.NewReader(data))
	if err != nil {
		return dataset.Snapshot{}, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return dataset.Snapshot{Records: records}, nil
}

// Publish writes the snapshot to a temp file and renames it into place.
func (s *Store) Publish(_ context.Context, snap dataset.Snapshot, _ string) error {
	data, err := snap.Encode()
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create parent directories: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.jsonl")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// URI returns a file:// URI.
func (s *Store) URI() string {
	return fmt.Sprintf("file://%s", s.path)
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
