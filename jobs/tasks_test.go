package jobs

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *asynq.Inspector) {
	t.Helper()
	mr := miniredis.RunT(t)
	opts := asynq.RedisClientOpt{Addr: mr.Addr()}
	client := NewClient(opts)
	inspector := asynq.NewInspector(opts)
	t.Cleanup(func() {
		_ = client.Close()
		_ = inspector.Close()
	})
	return client, inspector
}

func TestSyncDeliverTaskRoundTrip(t *testing.T) {
	task, err := NewSyncDeliverTask("entry-1")
	require.NoError(t, err)
	require.Equal(t, TaskSyncDeliver, task.Type())

	payload, err := ParseSyncDeliverPayload(task)
	require.NoError(t, err)
	require.Equal(t, "entry-1", payload.EntryID)

	_, err = NewSyncDeliverTask("")
	require.Error(t, err)

	_, err = ParseSyncDeliverPayload(asynq.NewTask(TaskSyncDeliver, []byte("not json")))
	require.Error(t, err)
}

func TestEnqueueSyncDeliver(t *testing.T) {
	client, inspector := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.EnqueueSyncDeliver(ctx, "entry-1"))

	tasks, err := inspector.ListPendingTasks(QueueDefault)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, TaskSyncDeliver, tasks[0].Type)
	require.Equal(t, "entry-1", tasks[0].ID)
	require.Equal(t, 10, tasks[0].MaxRetry)
}

func TestEnqueueSyncDeliverDeduplicates(t *testing.T) {
	client, inspector := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.EnqueueSyncDeliver(ctx, "entry-1"))
	require.NoError(t, client.EnqueueSyncDeliver(ctx, "entry-1"), "an already-scheduled entry is not an error")
	require.NoError(t, client.EnqueueSyncDeliver(ctx, "entry-2"))

	tasks, err := inspector.ListPendingTasks(QueueDefault)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
}
