package simulate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/omnigo/internal/model"
)

func TestClassifierAutoRejectsValidationErrors(t *testing.T) {
	// Channel and validation draws alternate: email/success, post/warning,
	// kivra/error.
	rnd := &Script{Ints: []int{0, 0, 1, 1, 2, 2}}
	c := NewClassifier(rnd)

	out := c.Classify([]model.StagedFile{
		{ID: 1, Name: "a.pdf", Size: 10},
		{ID: 2, Name: "b.pdf", Size: 20},
		{ID: 3, Name: "c.pdf", Size: 30},
	})
	require.Len(t, out, 3)

	assert.Equal(t, model.ChannelEmail, out[0].ProcessingResult.DistributionMethod)
	assert.Equal(t, model.ValidationSuccess, out[0].ProcessingResult.ValidationStatus)
	assert.Empty(t, out[0].ProcessingResult.ValidationMessage)
	assert.Equal(t, model.ReviewPending, out[0].Status)

	assert.Equal(t, model.ChannelPost, out[1].ProcessingResult.DistributionMethod)
	assert.Equal(t, MessageWarning, out[1].ProcessingResult.ValidationMessage)
	assert.Equal(t, model.ReviewPending, out[1].Status)

	assert.Equal(t, model.ChannelKivra, out[2].ProcessingResult.DistributionMethod)
	assert.Equal(t, MessageError, out[2].ProcessingResult.ValidationMessage)
	assert.Equal(t, model.ReviewRejected, out[2].Status)
	assert.True(t, out[2].Locked())

	assert.Equal(t, "c.pdf", out[2].OriginalName)
	assert.NotEqual(t, out[0].ID, out[1].ID)
}

func TestClassifierSeededIsReproducible(t *testing.T) {
	files := []model.StagedFile{{ID: 1, Name: "a.pdf"}, {ID: 2, Name: "b.pdf"}, {ID: 3, Name: "c.pdf"}}
	first := NewClassifier(NewSource(7)).Classify(files)
	second := NewClassifier(NewSource(7)).Classify(files)
	for i := range first {
		assert.Equal(t, first[i].ProcessingResult, second[i].ProcessingResult)
		assert.Equal(t, first[i].Status, second[i].Status)
		if first[i].ProcessingResult.ValidationStatus == model.ValidationError {
			assert.Equal(t, model.ReviewRejected, first[i].Status)
		}
	}
}

func TestUploaderPlan(t *testing.T) {
	rnd := &Script{Floats: []float64{0.5, 0.9, 0.25, 0.1}}
	u := NewUploader(rnd, UploaderConfig{Step: time.Second, Jitter: 2 * time.Second, FailureRate: 0.2})

	plan := u.Plan([]int64{11, 12})
	require.Len(t, plan, 2)

	assert.Equal(t, int64(11), plan[0].FileID)
	assert.Equal(t, 2*time.Second, plan[0].Delay)
	assert.Equal(t, model.UploadCompleted, plan[0].Status)

	assert.Equal(t, 2*time.Second+500*time.Millisecond, plan[1].Delay)
	assert.Equal(t, model.UploadError, plan[1].Status)
}

func TestUploaderRunReportsThenFinishes(t *testing.T) {
	u := NewUploader(&Script{}, UploaderConfig{Settle: time.Millisecond})
	attempts := []Attempt{
		{FileID: 1, Status: model.UploadCompleted},
		{FileID: 2, Status: model.UploadError},
	}

	var (
		mu       sync.Mutex
		reported []int64
	)
	finished := make(chan struct{})
	u.Run(context.Background(), attempts, func(a Attempt) {
		mu.Lock()
		reported = append(reported, a.FileID)
		mu.Unlock()
	}, func() {
		close(finished)
	})

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("upload never finished")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []int64{1, 2}, reported)
}

func TestUploaderRunStopsOnCancel(t *testing.T) {
	u := NewUploader(&Script{}, UploaderConfig{})
	ctx, cancel := context.WithCancel(context.Background())

	called := make(chan struct{}, 2)
	u.Run(ctx, []Attempt{{FileID: 1, Delay: time.Hour}}, func(Attempt) {
		called <- struct{}{}
	}, func() {
		called <- struct{}{}
	})
	cancel()

	select {
	case <-called:
		t.Fatal("callback ran after cancel")
	case <-time.After(50 * time.Millisecond):
	}
}
