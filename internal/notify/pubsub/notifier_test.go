package pubsub_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/JakeFAU/hn-dataset-sync/internal/notify"
	pubsubnotify "github.com/JakeFAU/hn-dataset-sync/internal/notify/pubsub"
)

func fakeServer(t *testing.T) (*pstest.Server, option.ClientOption) {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return srv, option.WithGRPCConn(conn)
}

func TestNotifierPublishesEvent(t *testing.T) {
	ctx := context.Background()
	srv, connOpt := fakeServer(t)

	admin, err := pubsub.NewClient(ctx, "project-id", connOpt)
	require.NoError(t, err)
	_, err = admin.CreateTopic(ctx, "datasets")
	require.NoError(t, err)

	n, err := pubsubnotify.New(ctx, "project-id", "datasets", connOpt)
	require.NoError(t, err)

	ev := notify.Event{
		RunID:        "0190a5f4-0000-7000-8000-000000000000",
		Repo:         "artbred/hn_stories",
		Split:        "train",
		TotalRecords: 4,
		MaxID:        103,
		PublishedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	id, err := n.Notify(ctx, ev)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	require.NoError(t, n.Close())

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "103", msgs[0].Attributes["max_id"])
	assert.Equal(t, ev.RunID, msgs[0].Attributes["run_id"])

	var got notify.Event
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	assert.Equal(t, ev, got)
}

func TestNewMissingTopic(t *testing.T) {
	ctx := context.Background()
	_, connOpt := fakeServer(t)

	_, err := pubsubnotify.New(ctx, "project-id", "missing", connOpt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}
