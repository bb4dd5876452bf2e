package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jflaig13/mise-core-sub000/internal/shift"
)

// ErrSinkOpen is returned by a [Breaker] while it is refusing saves.
var ErrSinkOpen = errors.New("store: sink suspended after repeated failures")

// Breaker guards a sink that can go away, such as a database. After
// MaxFailures consecutive failed saves it stops calling the sink and returns
// [ErrSinkOpen] until the cooldown has passed. The first save after the
// cooldown is a probe: success closes the breaker, failure re-opens it.
//
// It is safe for concurrent use.
type Breaker struct {
	name        string
	sink        Sink
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time

	mu       sync.Mutex
	failures int
	openedAt time.Time
	probing  bool
}

// NewBreaker wraps sink. Non-positive maxFailures and cooldown default to 3
// and 30s.
func NewBreaker(name string, sink Sink, maxFailures int, cooldown time.Duration) *Breaker {
	if maxFailures <= 0 {
		maxFailures = 3
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{
		name:        name,
		sink:        sink,
		maxFailures: maxFailures,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// Open reports whether saves are currently refused.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures >= b.maxFailures && (b.probing || b.now().Sub(b.openedAt) < b.cooldown)
}

// Save implements [Sink].
func (b *Breaker) Save(ctx context.Context, rec *shift.Record) error {
	b.mu.Lock()
	if b.failures >= b.maxFailures {
		if b.probing || b.now().Sub(b.openedAt) < b.cooldown {
			b.mu.Unlock()
			return ErrSinkOpen
		}
		b.probing = true
		slog.Info("store.breaker.probe", "sink", b.name)
	}
	b.mu.Unlock()

	err := b.sink.Save(ctx, rec)

	b.mu.Lock()
	defer b.mu.Unlock()
	wasProbe := b.probing
	b.probing = false
	if err == nil {
		if wasProbe {
			slog.Info("store.breaker.closed", "sink", b.name)
		}
		b.failures = 0
		return nil
	}
	// A canceled save says nothing about the sink.
	if ctx.Err() != nil {
		return err
	}
	b.failures++
	if b.failures >= b.maxFailures {
		b.openedAt = b.now()
		if wasProbe || b.failures == b.maxFailures {
			slog.Warn("store.breaker.opened", "sink", b.name, "failures", b.failures, "err", err)
		}
	}
	return err
}
