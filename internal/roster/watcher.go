package roster

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Watcher polls a roster file and publishes a new snapshot whenever its
// content changes. Snapshots already handed out are never modified, so a
// shift that started on the old roster finishes on it.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func(old, new *Roster)

	mu       sync.Mutex
	current  *Roster
	done     chan struct{}
	stopOnce sync.Once

	lastMtime time.Time
	lastHash  [sha256.Size]byte
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. The default is 5 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher loads the roster at path and starts polling it in the
// background. onChange may be nil.
func NewWatcher(path string, onChange func(old, new *Roster), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: 5 * time.Second,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	r, hash, mtime, err := w.loadAndHash()
	if err != nil {
		return nil, fmt.Errorf("roster: watcher initial load: %w", err)
	}
	w.current = r
	w.lastHash = hash
	w.lastMtime = mtime

	go w.poll()
	return w, nil
}

// Current returns the most recently loaded valid snapshot.
func (w *Watcher) Current() *Roster {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop stops polling. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
}

func (w *Watcher) poll() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

func (w *Watcher) check() {
	info, err := os.Stat(w.path)
	if err != nil {
		slog.Warn("roster watcher: cannot stat file", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	mtime := w.lastMtime
	w.mu.Unlock()
	if info.ModTime().Equal(mtime) {
		return
	}

	r, hash, newMtime, err := w.loadAndHash()
	if err != nil {
		slog.Warn("roster watcher: keeping previous roster", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	if hash == w.lastHash {
		w.lastMtime = newMtime
		w.mu.Unlock()
		return
	}
	old := w.current
	w.current = r
	w.lastHash = hash
	w.lastMtime = newMtime
	w.mu.Unlock()

	slog.Info("roster watcher: roster reloaded", "path", w.path, "version", r.Version(), "employees", r.Len())

	// Outside the lock so the callback may call Current.
	if w.onChange != nil {
		w.onChange(old, r)
	}
}

func (w *Watcher) loadAndHash() (*Roster, [sha256.Size]byte, time.Time, error) {
	var zero [sha256.Size]byte

	f, err := os.Open(w.path)
	if err != nil {
		return nil, zero, time.Time{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, zero, time.Time{}, err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(f); err != nil {
		return nil, zero, time.Time{}, err
	}
	data := buf.Bytes()

	r, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, zero, time.Time{}, err
	}
	return r, sha256.Sum256(data), info.ModTime(), nil
}
