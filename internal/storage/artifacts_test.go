package storage

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/omnigo/internal/signing"
)

func TestArtifactURLVerifies(t *testing.T) {
	signer := signing.NewSigner([]byte("secret"))
	store := NewArtifactStore(signer, "/download")
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k1", "a - preview.pdf", []byte("%PDF")))
	raw, err := store.URL(ctx, "k1", time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/download", u.Path)
	q := u.Query()
	assert.Equal(t, "k1", q.Get("file"))
	require.NoError(t, signer.Verify(q.Get("file"), q.Get("expires"), q.Get("signature")))

	item, err := store.Get("k1")
	require.NoError(t, err)
	assert.Equal(t, "a - preview.pdf", item.Name)
}

func TestArtifactMissing(t *testing.T) {
	store := NewArtifactStore(signing.NewSigner([]byte("s")), "/download")

	_, err := store.URL(context.Background(), "nope", time.Minute)
	assert.ErrorIs(t, err, ErrArtifactNotFound)
	_, err = store.Get("nope")
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestArtifactSweep(t *testing.T) {
	store := NewArtifactStore(signing.NewSigner([]byte("s")), "/download")
	clock := time.Unix(1000, 0)
	store.now = func() time.Time { return clock }

	require.NoError(t, store.Put(context.Background(), "old", "old.pdf", nil))
	clock = clock.Add(time.Hour)
	require.NoError(t, store.Put(context.Background(), "new", "new.pdf", nil))

	assert.Equal(t, 1, store.Sweep(30*time.Minute))
	_, err := store.Get("old")
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}
