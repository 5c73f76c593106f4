package budget

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/vibematch/internal/db"
)

type expireCall struct {
	key string
	ttl time.Duration
	nx  bool
}

type fakeKV struct {
	values  map[string]int64
	raw     map[string][]byte
	expires []expireCall
	err     error
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: map[string]int64{}, raw: map[string][]byte{}}
}

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	if b, ok := f.raw[key]; ok {
		return b, nil
	}
	return nil, &db.Error{Op: db.OpGet, Err: db.ErrKeyNotFound}
}

func (f *fakeKV) IncrBy(_ context.Context, key string, val int64) error {
	if f.err != nil {
		return f.err
	}
	f.values[key] += val
	return nil
}

func (f *fakeKV) Expire(_ context.Context, key string, ttl time.Duration, nx bool) error {
	f.expires = append(f.expires, expireCall{key, ttl, nx})
	return nil
}

func TestIncrBy_SetsTTLByPeriod(t *testing.T) {
	kv := newFakeKV()
	s := New(kv, time.Hour, 2*time.Hour)
	ctx := context.Background()

	if err := s.IncrBy(ctx, "vibematch:budget:openai:daily:2026-03-07", 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.IncrBy(ctx, "vibematch:budget:openai:monthly:2026-03", 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(kv.expires) != 2 {
		t.Fatalf("expected 2 EXPIRE calls, got %d", len(kv.expires))
	}
	if kv.expires[0].ttl != time.Hour || !kv.expires[0].nx {
		t.Errorf("daily expire = %+v", kv.expires[0])
	}
	if kv.expires[1].ttl != 2*time.Hour {
		t.Errorf("monthly expire = %+v", kv.expires[1])
	}
}

func TestIncrBy_Error(t *testing.T) {
	kv := newFakeKV()
	kv.err = errors.New("down")
	s := New(kv, 0, 0)
	if err := s.IncrBy(context.Background(), "k:daily:x", 1); err == nil {
		t.Fatal("expected error")
	}
	if len(kv.expires) != 0 {
		t.Error("EXPIRE must not run after a failed INCRBY")
	}
}

func TestGet(t *testing.T) {
	kv := newFakeKV()
	kv.raw["k"] = []byte("42")
	kv.raw["bad"] = []byte("forty-two")
	s := New(kv, 0, 0)
	ctx := context.Background()

	if v, err := s.Get(ctx, "k"); err != nil || v != 42 {
		t.Errorf("Get(k) = %d, %v", v, err)
	}
	if v, err := s.Get(ctx, "missing"); err != nil || v != 0 {
		t.Errorf("Get(missing) = %d, %v; want 0, nil", v, err)
	}
	if _, err := s.Get(ctx, "bad"); err == nil {
		t.Error("expected parse error")
	}
}

func TestNew_DefaultTTLs(t *testing.T) {
	s := New(newFakeKV(), 0, -1)
	if s.dailyTTL != DefaultDailyTTL || s.monthTTL != DefaultMonthlyTTL {
		t.Errorf("TTLs = %v, %v", s.dailyTTL, s.monthTTL)
	}
}
