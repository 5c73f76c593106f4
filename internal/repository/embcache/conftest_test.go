package embcache

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
)

// recordingBackend captures saves and can be told to fail.
type recordingBackend struct {
	mu      sync.Mutex
	loaded  map[string]Entry
	loadErr error
	saveErr error
	saves   [][]string
	stored  map[string]Entry
}

func (r *recordingBackend) Name() string { return "recording" }

func (r *recordingBackend) Load(context.Context) (map[string]Entry, error) {
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	out := make(map[string]Entry, len(r.loaded))
	for k, v := range r.loaded {
		out[k] = v
	}
	return out, nil
}

func (r *recordingBackend) Save(_ context.Context, snapshot map[string]Entry, dirty []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves = append(r.saves, dirty)
	if r.saveErr != nil {
		return r.saveErr
	}
	r.stored = snapshot
	return nil
}

func (r *recordingBackend) Ping(context.Context) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	return nil
}

func (r *recordingBackend) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saves)
}

var errBoom = errors.New("boom")

func newTestCache(t *testing.T, b Backend) *Cache {
	t.Helper()
	c := New(b, nil, zap.NewNop())
	c.Open(context.Background())
	return c
}
