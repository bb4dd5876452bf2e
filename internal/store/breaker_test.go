package store

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jflaig13/mise-core-sub000/internal/shift"
)

type flakySink struct {
	calls atomic.Int32
	err   atomic.Pointer[error]
}

func (f *flakySink) Save(context.Context, *shift.Record) error {
	f.calls.Add(1)
	if p := f.err.Load(); p != nil {
		return *p
	}
	return nil
}

func (f *flakySink) fail(err error) { f.err.Store(&err) }
func (f *flakySink) heal()          { f.err.Store(nil) }

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	inner := &flakySink{}
	inner.fail(errors.New("connection refused"))
	clock := time.Date(2025, 11, 24, 22, 0, 0, 0, time.UTC)
	b := NewBreaker("postgres", inner, 2, time.Minute)
	b.now = func() time.Time { return clock }
	ctx := context.Background()

	for i := range 2 {
		if err := b.Save(ctx, testRecord()); err == nil || errors.Is(err, ErrSinkOpen) {
			t.Fatalf("save %d: err = %v, want the sink's error", i, err)
		}
	}
	if !b.Open() {
		t.Fatal("breaker should be open after 2 failures")
	}
	if err := b.Save(ctx, testRecord()); !errors.Is(err, ErrSinkOpen) {
		t.Fatalf("err = %v, want ErrSinkOpen", err)
	}
	if got := inner.calls.Load(); got != 2 {
		t.Errorf("sink called %d times, want 2", got)
	}

	// Cooldown over, probe fails: open again without another attempt.
	clock = clock.Add(2 * time.Minute)
	if err := b.Save(ctx, testRecord()); err == nil || errors.Is(err, ErrSinkOpen) {
		t.Fatalf("probe err = %v, want the sink's error", err)
	}
	if err := b.Save(ctx, testRecord()); !errors.Is(err, ErrSinkOpen) {
		t.Fatalf("after failed probe err = %v, want ErrSinkOpen", err)
	}

	// Next probe succeeds and closes it.
	clock = clock.Add(2 * time.Minute)
	inner.heal()
	if err := b.Save(ctx, testRecord()); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if b.Open() {
		t.Error("breaker should be closed after a successful probe")
	}
	if got := inner.calls.Load(); got != 4 {
		t.Errorf("sink called %d times, want 4", got)
	}
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	t.Parallel()

	inner := &flakySink{}
	b := NewBreaker("postgres", inner, 2, time.Minute)
	ctx := context.Background()

	inner.fail(errors.New("timeout"))
	_ = b.Save(ctx, testRecord())
	inner.heal()
	if err := b.Save(ctx, testRecord()); err != nil {
		t.Fatal(err)
	}
	inner.fail(errors.New("timeout"))
	_ = b.Save(ctx, testRecord())
	if b.Open() {
		t.Error("failures separated by a success should not open the breaker")
	}
}

func TestBreaker_CanceledSaveNotCounted(t *testing.T) {
	t.Parallel()

	inner := &flakySink{}
	inner.fail(context.Canceled)
	b := NewBreaker("postgres", inner, 1, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_ = b.Save(ctx, testRecord())
	if b.Open() {
		t.Error("a canceled save should not open the breaker")
	}
}
