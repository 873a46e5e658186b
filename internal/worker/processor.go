package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/omnigo/internal/dispatch"
	"github.com/dharsanguruparan/omnigo/internal/logger"
	"github.com/dharsanguruparan/omnigo/internal/queue"
)

// Processor is plugged into the asynq worker loop.
type Processor struct {
	courier *dispatch.Courier
}

// NewProcessor constructs a worker processor.
func NewProcessor(courier *dispatch.Courier) *Processor {
	return &Processor{courier: courier}
}

// Handler registers the delivery handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.DeliverTask, p.handleDeliver)
	return mux
}

func (p *Processor) handleDeliver(ctx context.Context, t *asynq.Task) error {
	task, err := queue.ParseDeliverTask(t)
	if err != nil {
		// A payload that cannot be decoded will never succeed.
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err := p.courier.Deliver(ctx, task); err != nil {
		logger.Error(ctx, "deliver failed", "job_id", task.JobID, "file_id", task.FileID, "error", err)
		return err
	}
	return nil
}
