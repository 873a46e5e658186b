// Package dispatch turns approved files into delivery tasks and plays the
// part of the delivery provider.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/dharsanguruparan/omnigo/internal/archive"
	"github.com/dharsanguruparan/omnigo/internal/logger"
	"github.com/dharsanguruparan/omnigo/internal/metrics"
	"github.com/dharsanguruparan/omnigo/internal/model"
	"github.com/dharsanguruparan/omnigo/internal/simulate"
)

// Task is one file to deliver. It is serialized as the queue payload.
type Task struct {
	JobID     string        `json:"job_id"`
	FileID    string        `json:"file_id"`
	FileName  string        `json:"file_name"`
	Channel   model.Channel `json:"channel"`
	Recipient string        `json:"recipient"`
}

// Dispatcher hands tasks to whatever runs deliveries.
type Dispatcher interface {
	Dispatch(ctx context.Context, task Task) error
}

// CourierConfig tunes the simulated delivery provider.
type CourierConfig struct {
	Delay       time.Duration
	FailureRate float64
}

// Courier pretends to deliver a file and records the outcome in the archive.
type Courier struct {
	store archive.Store
	rnd   simulate.Source
	cfg   CourierConfig
	now   func() time.Time
}

// NewCourier builds a Courier writing to store.
func NewCourier(store archive.Store, rnd simulate.Source, cfg CourierConfig) *Courier {
	return &Courier{store: store, rnd: rnd, cfg: cfg, now: time.Now}
}

// Deliver waits out the simulated provider latency, then marks the file
// delivered or failed. The returned error only reports archive failures; a
// failed delivery is an outcome, not an error.
func (c *Courier) Deliver(ctx context.Context, task Task) error {
	timer := time.NewTimer(c.cfg.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	status := model.DeliveryDelivered
	if c.rnd.Float64() < c.cfg.FailureRate {
		status = model.DeliveryError
	}
	if err := c.store.UpdateFile(ctx, task.JobID, task.FileID, status, "", c.now().UTC()); err != nil {
		return fmt.Errorf("record delivery of %s: %w", task.FileID, err)
	}
	metrics.Deliveries.WithLabelValues(string(task.Channel), string(status)).Inc()
	logger.Info(ctx, "file delivery finished",
		"job_id", task.JobID,
		"file_id", task.FileID,
		"channel", task.Channel,
		"status", status,
	)
	return nil
}

// Fail marks a task's file as undeliverable without attempting delivery.
func (c *Courier) Fail(ctx context.Context, task Task, reason string) error {
	if err := c.store.UpdateFile(ctx, task.JobID, task.FileID, model.DeliveryError, reason, c.now().UTC()); err != nil {
		return fmt.Errorf("record failure of %s: %w", task.FileID, err)
	}
	metrics.Deliveries.WithLabelValues(string(task.Channel), string(model.DeliveryError)).Inc()
	return nil
}
