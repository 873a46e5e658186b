package archive

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/omnigo/internal/database"
	"github.com/dharsanguruparan/omnigo/internal/model"
)

func TestSeedJobsCounters(t *testing.T) {
	jobs := SeedJobs()
	require.Len(t, jobs, 7)

	for i := 1; i < len(jobs); i++ {
		assert.True(t, jobs[i-1].CreatedAt.After(jobs[i].CreatedAt), "newest first")
	}
	for _, j := range jobs {
		assert.Equal(t, j.TotalFiles, j.CompletedFiles+j.PendingFiles+j.ErrorFiles, j.ID)
		assert.Len(t, j.Files, j.TotalFiles)
	}

	q := jobs[0]
	assert.Equal(t, "1", q.ID)
	assert.Equal(t, "Quarterly Financial Report - Q2 2023", q.JobName)
	assert.Equal(t, 12, q.TotalFiles)
	// Positions 0,5,10 pending; 1,6,11 error.
	assert.Equal(t, 3, q.PendingFiles)
	assert.Equal(t, 3, q.ErrorFiles)
	assert.Equal(t, 6, q.CompletedFiles)
	assert.Equal(t, model.JobProcessing, q.Status)

	f := q.Files[1]
	assert.Equal(t, "file_1_1", f.ID)
	assert.Equal(t, "quarterly_report_part2.pdf", f.FileName)
	assert.Equal(t, model.ChannelPost, f.DistributionMethod)
	assert.Equal(t, "123 Main St, City 1, Country", f.Recipient)
	assert.Equal(t, DeliveryFailedMessage, f.ErrorMessage)
	require.NotNil(t, f.ProcessedAt)
	assert.Nil(t, f.DeliveredAt)
	assert.Equal(t, int64(209715), f.FileSize)
}

func TestSeedSmallJobStatus(t *testing.T) {
	var timeline model.JobHistory
	for _, j := range SeedJobs() {
		if j.ID == "7" {
			timeline = j
		}
	}
	// Two files: one pending, one failed.
	assert.Equal(t, 1, timeline.PendingFiles)
	assert.Equal(t, 1, timeline.ErrorFiles)
	assert.Equal(t, model.JobProcessing, timeline.Status)
}

func TestParseStatusFilter(t *testing.T) {
	for _, in := range []string{"", "all", "pending", "delivered", "error"} {
		_, err := ParseStatusFilter(in)
		assert.NoError(t, err, in)
	}
	_, err := ParseStatusFilter("lost")
	assert.ErrorIs(t, err, ErrBadFilter)
}

func TestNormalizePage(t *testing.T) {
	cases := []struct {
		page, size         int
		wantPage, wantSize int
	}{
		{0, 0, 1, DefaultPageSize},
		{3, 5, 3, 5},
		{-1, 1000, 1, MaxPageSize},
	}
	for _, c := range cases {
		p, s := NormalizePage(c.page, c.size)
		assert.Equal(t, c.wantPage, p)
		assert.Equal(t, c.wantSize, s)
	}
}

// exerciseStore runs the same checks against any Store seeded with SeedJobs.
func exerciseStore(t *testing.T, store Store) {
	ctx := context.Background()

	page, err := store.List(ctx, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 7, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Jobs, 3)
	assert.Equal(t, "1", page.Jobs[0].ID)
	assert.Empty(t, page.Jobs[0].Files)

	last, err := store.List(ctx, 3, 3)
	require.NoError(t, err)
	require.Len(t, last.Jobs, 1)
	assert.Equal(t, "7", last.Jobs[0].ID)

	beyond, err := store.List(ctx, 9, 3)
	require.NoError(t, err)
	assert.Empty(t, beyond.Jobs)

	job, err := store.Get(ctx, "1", FilterError)
	require.NoError(t, err)
	assert.Equal(t, 12, job.TotalFiles)
	require.Len(t, job.Files, 3)
	for _, f := range job.Files {
		assert.Equal(t, model.DeliveryError, f.Status)
	}

	_, err = store.Get(ctx, "missing", FilterAll)
	assert.ErrorIs(t, err, ErrNotFound)

	recent, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "quarterly_report.pdf", recent[0].Filename)
	assert.Equal(t, 2.4, recent[0].FileSize)
	assert.Equal(t, 12, recent[0].Pages)

	// Deliver every pending file of job 7 and clear its error: completed.
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpdateFile(ctx, "7", "file_7_0", model.DeliveryDelivered, "", now))
	require.NoError(t, store.UpdateFile(ctx, "7", "file_7_1", model.DeliveryDelivered, "", now))
	job, err = store.Get(ctx, "7", FilterAll)
	require.NoError(t, err)
	assert.Equal(t, model.JobCompleted, job.Status)
	assert.Equal(t, 2, job.CompletedFiles)
	require.NotNil(t, job.Files[0].DeliveredAt)

	err = store.UpdateFile(ctx, "7", "nope", model.DeliveryError, "", now)
	assert.ErrorIs(t, err, ErrFileNotFound)

	id := uuid.NewString()
	require.NoError(t, store.Record(ctx, model.JobHistory{
		ID:        id,
		JobName:   "Batch",
		CreatedAt: now.Add(24 * 365 * time.Hour),
		Files: []model.JobFile{{
			ID: uuid.NewString(), JobID: id, FileName: "a.pdf", FileSize: 10,
			FileType: "application/pdf", Status: model.DeliveryPending,
			DistributionMethod: model.ChannelKivra, Recipient: Recipient(model.ChannelKivra, 0),
		}},
	}))
	page, err = store.List(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, id, page.Jobs[0].ID)
	assert.Equal(t, model.JobProcessing, page.Jobs[0].Status)

	assert.ErrorIs(t, store.Record(ctx, model.JobHistory{ID: "empty"}), ErrEmptyJob)

	files, err := store.AllFiles(ctx)
	require.NoError(t, err)
	assert.Len(t, files, 12+5+24+8+18+3+2+1)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(SeedJobs()))
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	store := NewMemoryStore(SeedJobs())
	job, err := store.Get(context.Background(), "1", FilterAll)
	require.NoError(t, err)
	job.Files[0].FileName = "changed"

	again, err := store.Get(context.Background(), "1", FilterAll)
	require.NoError(t, err)
	assert.Equal(t, "quarterly_report_part1.pdf", again.Files[0].FileName)
}

func TestPGStore(t *testing.T) {
	dsn := os.Getenv("OMNIGO_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("OMNIGO_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := database.Connect(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, database.EnsureSchema(ctx, pool))
	_, err = pool.Exec(ctx, `TRUNCATE jobs CASCADE`)
	require.NoError(t, err)

	store := NewPGStore(pool)
	for _, j := range SeedJobs() {
		require.NoError(t, store.Record(ctx, j))
	}
	exerciseStore(t, store)
}
