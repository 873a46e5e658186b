package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/omnigo/internal/workflow"
)

func TestGetOrCreateReusesSession(t *testing.T) {
	created := 0
	store := NewMemoryStore(func(id string) *workflow.Workflow {
		created++
		return workflow.New(workflow.Options{SessionID: id})
	})

	a := store.GetOrCreate("alice")
	b := store.GetOrCreate("alice")
	assert.Same(t, a, b)
	assert.Equal(t, 1, created)

	store.GetOrCreate("bob")
	assert.Equal(t, 2, store.Len())
}

func TestDelete(t *testing.T) {
	store := NewMemoryStore(func(id string) *workflow.Workflow {
		return workflow.New(workflow.Options{SessionID: id})
	})
	store.GetOrCreate("alice")

	require.NoError(t, store.Delete("alice"))
	_, err := store.Get("alice")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete("alice"), ErrNotFound)
}

func TestSweepDropsIdleSessions(t *testing.T) {
	base := time.Unix(1000, 0)
	clock := base
	now := func() time.Time { return clock }
	store := NewMemoryStore(func(id string) *workflow.Workflow {
		return workflow.New(workflow.Options{SessionID: id, Now: now})
	})
	store.now = now

	store.GetOrCreate("old")
	clock = base.Add(time.Hour)
	store.GetOrCreate("fresh")
	clock = base.Add(90 * time.Minute)

	assert.Equal(t, 1, store.Sweep(time.Hour))
	_, err := store.Get("old")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get("fresh")
	assert.NoError(t, err)

	assert.Zero(t, store.Sweep(0))
}
