package watch

import (
	"log/slog"
	"sync"
	"time"
)

// Debouncer folds rapid change notifications into a PathUpdates set and
// invokes its callback once the notifications have been quiet for the
// configured timeout.
type Debouncer struct {
	timeout  time.Duration
	callback func(PathUpdates)
	logger   *slog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	pending PathUpdates
	gen     uint64
	stopped bool

	// fireMu keeps callbacks from overlapping.
	fireMu sync.Mutex
}

// DebouncerOption configures a Debouncer.
type DebouncerOption func(*Debouncer)

// WithDebouncerLogger sets the logger used to report callback panics.
func WithDebouncerLogger(logger *slog.Logger) DebouncerOption {
	return func(d *Debouncer) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDebouncer creates a debouncer that waits for timeout of quiet before
// firing callback with every change submitted since the last firing.
func NewDebouncer(timeout time.Duration, callback func(PathUpdates), opts ...DebouncerOption) *Debouncer {
	d := &Debouncer{
		timeout:  timeout,
		callback: callback,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Submit records a change for path and restarts the quiet period. It never
// waits for a running callback.
func (d *Debouncer) Submit(path string, kind Kind) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.pending = d.pending.With(Event{Path: path, Kind: kind})

	if d.timer != nil {
		d.timer.Stop()
	}

	d.gen++
	gen := d.gen

	d.timer = time.AfterFunc(d.timeout, func() {
		d.fire(gen)
	})
}

// Stop cancels any pending callback, discards pending changes and waits for
// a callback that is already running. It must not be called from the
// callback itself.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.pending = PathUpdates{}

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	d.fireMu.Lock()
	d.fireMu.Unlock() //nolint:staticcheck // waits for an in-flight callback
}

func (d *Debouncer) fire(gen uint64) {
	d.fireMu.Lock()
	defer d.fireMu.Unlock()

	d.mu.Lock()
	// A newer Submit re-armed the timer after this one was already running.
	if d.stopped || gen != d.gen || d.pending.IsEmpty() {
		d.mu.Unlock()
		return
	}

	updates := d.pending
	d.pending = PathUpdates{}
	d.timer = nil
	d.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("debouncer callback panicked", slog.Any("error", r))
		}
	}()

	d.callback(updates)
}
