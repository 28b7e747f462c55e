package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/hn-dataset-sync/internal/dataset"
	"github.com/JakeFAU/hn-dataset-sync/internal/store"
)

func TestStoreLoadBeforePublish(t *testing.T) {
	t.Parallel()

	s := New("owner/name/train")
	_, err := s.Load(context.Background())
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, "memory://owner/name/train", s.URI())
}

func TestStorePublishThenLoad(t *testing.T) {
	t.Parallel()

	rec, err := dataset.NewRecord(5, map[string]any{"title": "five"})
	require.NoError(t, err)

	s := New("owner/name/train")
	require.NoError(t, s.Publish(context.Background(), dataset.Snapshot{Records: []dataset.Record{rec}}, "first"))

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int64{5}, got.IDs())
	assert.Equal(t, []string{"first"}, s.Messages())
	assert.Equal(t, "{\"id\":5,\"title\":\"five\"}\n", string(s.Bytes()))
}

func TestStoreSeedEmptySnapshot(t *testing.T) {
	t.Parallel()

	s := New("x")
	require.NoError(t, s.Seed(dataset.Snapshot{}))
	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
	assert.Empty(t, s.Messages())
}
