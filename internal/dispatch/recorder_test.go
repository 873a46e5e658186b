package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/omnigo/internal/archive"
	"github.com/dharsanguruparan/omnigo/internal/model"
	"github.com/dharsanguruparan/omnigo/internal/workflow"
)

type captureDispatcher struct {
	tasks []Task
	err   error
}

func (d *captureDispatcher) Dispatch(_ context.Context, task Task) error {
	d.tasks = append(d.tasks, task)
	return d.err
}

func approved(name string, ch model.Channel) model.ProcessedFile {
	return model.ProcessedFile{
		ID:           name,
		OriginalName: name,
		Size:         100,
		Status:       model.ReviewApproved,
		ProcessingResult: model.ProcessingResult{
			DistributionMethod: ch,
			ValidationStatus:   model.ValidationSuccess,
		},
	}
}

func TestRecorderArchivesAndDispatches(t *testing.T) {
	store := archive.NewMemoryStore(nil)
	d := &captureDispatcher{}
	rec := NewRecorder(store, d)
	ctx := context.Background()

	jobID, err := rec.Record(ctx, workflow.Submission{
		SessionID: "s",
		Approved: []model.ProcessedFile{
			approved("a.pdf", model.ChannelEmail),
			approved("b.csv", model.ChannelPost),
		},
	})
	require.NoError(t, err)

	job, err := store.Get(ctx, jobID, archive.FilterAll)
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", job.SourceFile)
	assert.Equal(t, 2, job.PendingFiles)
	assert.Equal(t, model.JobProcessing, job.Status)
	require.Len(t, job.Files, 2)
	assert.Equal(t, "application/pdf", job.Files[0].FileType)
	assert.Equal(t, "recipient0@example.com", job.Files[0].Recipient)
	assert.Equal(t, "123 Main St, City 1, Country", job.Files[1].Recipient)

	require.Len(t, d.tasks, 2)
	assert.Equal(t, jobID, d.tasks[0].JobID)
	assert.Equal(t, job.Files[1].ID, d.tasks[1].FileID)
	assert.Equal(t, model.ChannelPost, d.tasks[1].Channel)
}

func TestRecorderKeepsJobWhenDispatchFails(t *testing.T) {
	store := archive.NewMemoryStore(nil)
	rec := NewRecorder(store, &captureDispatcher{err: errors.New("redis down")})

	jobID, err := rec.Record(context.Background(), workflow.Submission{
		Approved: []model.ProcessedFile{approved("a.pdf", model.ChannelKivra)},
	})
	require.NoError(t, err)
	_, err = store.Get(context.Background(), jobID, archive.FilterAll)
	assert.NoError(t, err)
}

func TestRecorderRejectsEmptySubmission(t *testing.T) {
	rec := NewRecorder(archive.NewMemoryStore(nil), &captureDispatcher{})
	_, err := rec.Record(context.Background(), workflow.Submission{})
	assert.ErrorIs(t, err, archive.ErrEmptyJob)
}
