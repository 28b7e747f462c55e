// Package memory keeps the snapshot in-process for tests and dry runs.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/hn-dataset-sync/internal/dataset"
	"github.com/JakeFAU/hn-dataset-sync/internal/store"
)

// Store holds the encoded snapshot so reads observe exactly what was published.
type Store struct {
	mu       sync.RWMutex
	name     string
	data     []byte
	present  bool
	messages []string
}

// New creates an empty in-memory store.
func New(name string) *Store {
	return &Store{name: name}
}

// Seed stores snap as if it had been published earlier.
func (s *Store) Seed(snap dataset.Snapshot) error {
	data, err := snap.Encode()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	s.present = true
	return nil
}

// Load decodes the stored snapshot.
func (s *Store) Load(_ context.Context) (dataset.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.present {
		return dataset.Snapshot{}, store.ErrNotFound
	}
	records, err := dataset.ReadJSONL(bytes.NewReader(s.data))
	if err != nil {
		return dataset.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return dataset.Snapshot{Records: records}, nil
}

// Publish replaces the stored snapshot.
func (s *Store) Publish(_ context.Context, snap dataset.Snapshot, message string) error {
	data, err := snap.Encode()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	s.present = true
	s.messages = append(s.messages, message)
	return nil
}

// Messages returns the publish messages in order.
func (s *Store) Messages() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.messages))
	copy(out, s.messages)
	return out
}

// Bytes returns a copy of the stored encoding.
func (s *Store) Bytes() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]byte(nil), s.data...)
}

// URI returns a pseudo URI.
func (s *Store) URI() string {
	return fmt.Sprintf("memory://%s", s.name)
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
