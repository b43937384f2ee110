package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// ExportTask is scheduled each time an export is requested through the API.
	ExportTask = "calllog:export"
)

// ExportPayload is serialized into the task payload so the worker knows which
// export row to update and where to upload the document.
type ExportPayload struct {
	ExportID  string `json:"export_id"`
	ObjectKey string `json:"object_key"`
}

// Enqueuer is the part of *asynq.Client used to schedule tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NewExportTask builds the task without enqueuing it.
func NewExportTask(payload ExportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(ExportTask, data), nil
}

// EnqueueExport enqueues an export job.
func EnqueueExport(ctx context.Context, client Enqueuer, payload ExportPayload) error {
	task, err := NewExportTask(payload)
	if err != nil {
		return err
	}
	if _, err := client.EnqueueContext(ctx, task, asynq.MaxRetry(3)); err != nil {
		return fmt.Errorf("enqueue export task: %w", err)
	}
	return nil
}

// DecodeExport reads the payload back out of a task.
func DecodeExport(task *asynq.Task) (ExportPayload, error) {
	var payload ExportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("decode payload: %w", err)
	}
	if payload.ExportID == "" || payload.ObjectKey == "" {
		return payload, fmt.Errorf("decode payload: missing export id or object key")
	}
	return payload, nil
}
