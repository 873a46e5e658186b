package dispatch

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/dharsanguruparan/omnigo/internal/archive"
	"github.com/dharsanguruparan/omnigo/internal/logger"
	"github.com/dharsanguruparan/omnigo/internal/model"
	"github.com/dharsanguruparan/omnigo/internal/workflow"
)

// Recorder archives a submitted batch as a new job and dispatches one
// delivery task per approved file.
type Recorder struct {
	store      archive.Store
	dispatcher Dispatcher
	now        func() time.Time
}

// NewRecorder builds a Recorder.
func NewRecorder(store archive.Store, dispatcher Dispatcher) *Recorder {
	return &Recorder{store: store, dispatcher: dispatcher, now: time.Now}
}

// Record implements workflow.Recorder.
func (r *Recorder) Record(ctx context.Context, sub workflow.Submission) (string, error) {
	created := r.now().UTC()
	job := model.JobHistory{
		ID:        uuid.NewString(),
		JobName:   fmt.Sprintf("Batch %s", created.Format("2006-01-02 15:04")),
		CreatedAt: created,
	}
	if len(sub.Approved) > 0 {
		job.SourceFile = sub.Approved[0].OriginalName
	}
	for i, f := range sub.Approved {
		ch := f.ProcessingResult.DistributionMethod
		job.Files = append(job.Files, model.JobFile{
			ID:                 uuid.NewString(),
			JobID:              job.ID,
			FileName:           f.OriginalName,
			FileSize:           f.Size,
			FileType:           fileType(f),
			Status:             model.DeliveryPending,
			DistributionMethod: ch,
			Recipient:          archive.Recipient(ch, i),
		})
	}
	if err := r.store.Record(ctx, job); err != nil {
		return "", fmt.Errorf("archive job: %w", err)
	}

	for _, f := range job.Files {
		task := Task{
			JobID:     job.ID,
			FileID:    f.ID,
			FileName:  f.FileName,
			Channel:   f.DistributionMethod,
			Recipient: f.Recipient,
		}
		// The job is already archived; a task that cannot be queued leaves its
		// file pending or failed rather than undoing the submission.
		if err := r.dispatcher.Dispatch(ctx, task); err != nil {
			logger.Error(ctx, "dispatch failed", "job_id", job.ID, "file_id", f.ID, "error", err)
		}
	}
	logger.Info(ctx, "job archived", "job_id", job.ID, "files", len(job.Files))
	return job.ID, nil
}

func fileType(f model.ProcessedFile) string {
	if f.Type != "" {
		return f.Type
	}
	if t := mime.TypeByExtension(filepath.Ext(f.OriginalName)); t != "" {
		return t
	}
	return "application/octet-stream"
}
