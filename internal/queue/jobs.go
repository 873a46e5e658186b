package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/omnigo/internal/dispatch"
)

const (
	// DeliverTask is scheduled for every approved file of a submitted batch.
	DeliverTask = "distribution:deliver"
)

// NewDeliverTask serializes a delivery into an asynq task.
func NewDeliverTask(task dispatch.Task) (*asynq.Task, error) {
	data, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(DeliverTask, data), nil
}

// ParseDeliverTask decodes the payload written by NewDeliverTask.
func ParseDeliverTask(t *asynq.Task) (dispatch.Task, error) {
	var task dispatch.Task
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		return dispatch.Task{}, fmt.Errorf("decode payload: %w", err)
	}
	return task, nil
}

// EnqueueDeliver enqueues a delivery job.
func EnqueueDeliver(ctx context.Context, client *asynq.Client, task dispatch.Task) error {
	t, err := NewDeliverTask(task)
	if err != nil {
		return err
	}
	if _, err := client.EnqueueContext(ctx, t, asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("enqueue deliver task: %w", err)
	}
	return nil
}

// Dispatcher sends delivery tasks to Redis for cmd/worker to run.
type Dispatcher struct {
	client *asynq.Client
}

// NewDispatcher wraps an asynq client.
func NewDispatcher(client *asynq.Client) *Dispatcher {
	return &Dispatcher{client: client}
}

func (d *Dispatcher) Dispatch(ctx context.Context, task dispatch.Task) error {
	return EnqueueDeliver(ctx, d.client, task)
}
