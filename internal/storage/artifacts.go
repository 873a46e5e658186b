package storage

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/dharsanguruparan/omnigo/internal/signing"
)

// ErrArtifactNotFound is returned for unknown or evicted artifacts.
var ErrArtifactNotFound = errors.New("artifact not found")

// Artifact is a generated file held for download.
type Artifact struct {
	Name      string
	Data      []byte
	CreatedAt time.Time
}

// ArtifactStore keeps generated documents in memory and hands out HMAC
// signed /download URLs for them. It is used when no object store is
// configured.
type ArtifactStore struct {
	mu       sync.RWMutex
	items    map[string]Artifact
	signer   *signing.Signer
	basePath string
	now      func() time.Time
}

// NewArtifactStore builds a store whose URLs point at basePath.
func NewArtifactStore(signer *signing.Signer, basePath string) *ArtifactStore {
	return &ArtifactStore{
		items:    make(map[string]Artifact),
		signer:   signer,
		basePath: basePath,
		now:      time.Now,
	}
}

func (a *ArtifactStore) Put(_ context.Context, key, name string, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items[key] = Artifact{Name: name, Data: data, CreatedAt: a.now().UTC()}
	return nil
}

// Get returns an artifact.
func (a *ArtifactStore) Get(key string) (Artifact, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	item, ok := a.items[key]
	if !ok {
		return Artifact{}, ErrArtifactNotFound
	}
	return item, nil
}

// URL builds a short-lived URL by combining the key, expiry timestamp and
// HMAC signature.
func (a *ArtifactStore) URL(_ context.Context, key string, ttl time.Duration) (string, error) {
	a.mu.RLock()
	_, ok := a.items[key]
	a.mu.RUnlock()
	if !ok {
		return "", ErrArtifactNotFound
	}
	expiry := a.signer.Expiry(ttl)
	q := url.Values{}
	q.Set("file", key)
	q.Set("expires", strconv.FormatInt(expiry, 10))
	q.Set("signature", a.signer.Sign(key, expiry))
	return a.basePath + "?" + q.Encode(), nil
}

// Sweep evicts artifacts older than maxAge and returns how many it removed.
func (a *ArtifactStore) Sweep(maxAge time.Duration) int {
	cutoff := a.now().Add(-maxAge)
	a.mu.Lock()
	defer a.mu.Unlock()
	removed := 0
	for key, item := range a.items {
		if item.CreatedAt.Before(cutoff) {
			delete(a.items, key)
			removed++
		}
	}
	return removed
}
