package processing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/omnigo/internal/archive"
	"github.com/dharsanguruparan/omnigo/internal/dispatch"
	"github.com/dharsanguruparan/omnigo/internal/model"
	"github.com/dharsanguruparan/omnigo/internal/simulate"
)

func TestWorkersDeliverQueuedTasks(t *testing.T) {
	store := archive.NewMemoryStore(archive.SeedJobs())
	courier := dispatch.NewCourier(store, &simulate.Script{Floats: []float64{0.9}}, dispatch.CourierConfig{FailureRate: 0.2})
	p := New(courier, 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	require.NoError(t, p.Dispatch(ctx, dispatch.Task{JobID: "7", FileID: "file_7_0", Channel: model.ChannelEmail}))
	require.NoError(t, p.Dispatch(ctx, dispatch.Task{JobID: "7", FileID: "file_7_1", Channel: model.ChannelPost}))

	require.Eventually(t, func() bool {
		job, err := store.Get(context.Background(), "7", archive.FilterAll)
		return err == nil && job.Status == model.JobCompleted
	}, time.Second, 5*time.Millisecond)
}

func TestDispatchQueueFullMarksFileFailed(t *testing.T) {
	store := archive.NewMemoryStore(archive.SeedJobs())
	courier := dispatch.NewCourier(store, &simulate.Script{}, dispatch.CourierConfig{})
	// Not started: nothing drains the buffer of four.
	p := New(courier, 1)
	ctx := context.Background()

	job, err := store.Get(ctx, "1", archive.FilterPending)
	require.NoError(t, err)
	require.Len(t, job.Files, 3)
	for i := 0; i < 4; i++ {
		require.NoError(t, p.Dispatch(ctx, dispatch.Task{JobID: "1", FileID: "file_1_2"}))
	}

	err = p.Dispatch(ctx, dispatch.Task{JobID: "1", FileID: job.Files[0].ID, Channel: model.ChannelEmail})
	assert.ErrorIs(t, err, ErrQueueFull)

	job, err = store.Get(ctx, "1", archive.FilterAll)
	require.NoError(t, err)
	assert.Equal(t, model.DeliveryError, job.Files[0].Status)
	assert.Equal(t, ErrQueueFull.Error(), job.Files[0].ErrorMessage)
}
