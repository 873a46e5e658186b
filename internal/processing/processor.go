// Package processing runs deliveries on an in-process worker pool when no
// Redis queue is configured. Goroutines + channels power the implementation.
package processing

import (
	"context"
	"errors"

	"github.com/dharsanguruparan/omnigo/internal/dispatch"
	"github.com/dharsanguruparan/omnigo/internal/logger"
)

// ErrQueueFull is returned when a task arrives while every buffer slot is
// taken. The task's file has already been marked failed.
var ErrQueueFull = errors.New("delivery queue full")

// Processor consumes delivery tasks with a fixed number of workers.
type Processor struct {
	courier *dispatch.Courier
	queue   chan dispatch.Task
	workers int
}

// New builds a Processor with queue capacity tied to worker count.
func New(courier *dispatch.Courier, workers int) *Processor {
	if workers <= 0 {
		workers = 1
	}
	return &Processor{
		courier: courier,
		// A buffered channel holds a few tasks per worker so submissions do
		// not block the request that produced them.
		queue:   make(chan dispatch.Task, workers*4),
		workers: workers,
	}
}

// Start launches worker goroutines. They exit when ctx is cancelled.
func (p *Processor) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		go p.worker(ctx)
	}
}

// Dispatch queues a task for async delivery.
func (p *Processor) Dispatch(ctx context.Context, task dispatch.Task) error {
	select {
	case p.queue <- task:
		return nil
	default:
		// A dropped task's file is marked failed in the archive.
		logger.Warn(ctx, "delivery queue full, dropping task", "job_id", task.JobID, "file_id", task.FileID)
		if err := p.courier.Fail(ctx, task, ErrQueueFull.Error()); err != nil {
			return err
		}
		return ErrQueueFull
	}
}

func (p *Processor) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-p.queue:
			if err := p.courier.Deliver(ctx, task); err != nil && ctx.Err() == nil {
				logger.Error(ctx, "delivery failed", "file_id", task.FileID, "error", err)
			}
		}
	}
}
