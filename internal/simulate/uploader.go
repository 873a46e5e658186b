package simulate

import (
	"context"
	"sync"
	"time"

	"github.com/dharsanguruparan/omnigo/internal/model"
)

// Attempt is the planned outcome for one staged file.
type Attempt struct {
	FileID int64
	Delay  time.Duration
	Status model.UploadStatus
}

// UploaderConfig tunes the simulated upload timings.
type UploaderConfig struct {
	// Step is multiplied by the file's position, so later files land later.
	Step        time.Duration
	Jitter      time.Duration
	FailureRate float64
	// Settle is waited after the last file finishes before the batch counts
	// as uploaded.
	Settle time.Duration
}

// Uploader moves staged files from uploading to completed or error on
// independent timers.
type Uploader struct {
	rnd Source
	cfg UploaderConfig
}

// NewUploader builds an Uploader drawing from rnd.
func NewUploader(rnd Source, cfg UploaderConfig) *Uploader {
	return &Uploader{rnd: rnd, cfg: cfg}
}

// Plan decides the delay and outcome of every file up front.
func (u *Uploader) Plan(ids []int64) []Attempt {
	attempts := make([]Attempt, 0, len(ids))
	for i, id := range ids {
		delay := time.Duration(i+1) * u.cfg.Step
		if u.cfg.Jitter > 0 {
			delay += time.Duration(u.rnd.Float64() * float64(u.cfg.Jitter))
		}
		status := model.UploadCompleted
		if u.rnd.Float64() < u.cfg.FailureRate {
			status = model.UploadError
		}
		attempts = append(attempts, Attempt{FileID: id, Delay: delay, Status: status})
	}
	return attempts
}

// Run plays the attempts out in the background. report is called once per
// attempt when its timer fires; done is called once after every attempt has
// been reported and the settle delay has passed. Cancelling ctx stops all
// pending timers, and neither callback runs afterwards.
func (u *Uploader) Run(ctx context.Context, attempts []Attempt, report func(Attempt), done func()) {
	var wg sync.WaitGroup
	for _, a := range attempts {
		wg.Add(1)
		go func(a Attempt) {
			defer wg.Done()
			if !sleep(ctx, a.Delay) {
				return
			}
			report(a)
		}(a)
	}
	go func() {
		wg.Wait()
		if ctx.Err() != nil {
			return
		}
		if !sleep(ctx, u.cfg.Settle) {
			return
		}
		done()
	}()
}

// sleep waits for d or until ctx is done and reports whether the full delay
// elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
