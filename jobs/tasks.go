// Package jobs wires the durable background queue used for snapshot
// delivery to the remote backend.
package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSyncDeliver pushes one outbox entry to the sync endpoint.
	TaskSyncDeliver = "sync:deliver"
	// TaskSyncSweep re-enqueues pending outbox entries.
	TaskSyncSweep = "sync:sweep"
)

// SyncDeliverPayload identifies the outbox entry to deliver.
type SyncDeliverPayload struct {
	EntryID string `json:"entry_id"`
}

// NewSyncDeliverTask constructs the delivery task for one outbox entry.
func NewSyncDeliverTask(entryID string) (*asynq.Task, error) {
	if entryID == "" {
		return nil, fmt.Errorf("jobs: entry id required")
	}
	data, err := json.Marshal(SyncDeliverPayload{EntryID: entryID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSyncDeliver, data), nil
}

// ParseSyncDeliverPayload decodes a delivery task payload.
func ParseSyncDeliverPayload(t *asynq.Task) (SyncDeliverPayload, error) {
	var payload SyncDeliverPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return SyncDeliverPayload{}, err
	}
	return payload, nil
}

// NewSyncSweepTask constructs the periodic sweep task.
func NewSyncSweepTask() *asynq.Task {
	return asynq.NewTask(TaskSyncSweep, nil)
}
