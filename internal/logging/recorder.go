package logging

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// Recorder is a slog.Handler that keeps every record in memory. Handlers
// derived through WithAttrs share the same storage. Groups are flattened.
type Recorder struct {
	level slog.Leveler
	attrs []slog.Attr
	store *recordStore
}

type recordStore struct {
	mu      sync.Mutex
	records []slog.Record
}

// NewRecorder returns a Recorder that keeps records at or above level.
func NewRecorder(level slog.Leveler) *Recorder {
	if level == nil {
		level = slog.LevelInfo
	}

	return &Recorder{level: level, store: &recordStore{}}
}

// Logger returns a logger writing to r.
func (r *Recorder) Logger() *slog.Logger {
	return slog.New(r)
}

// Enabled implements slog.Handler.
func (r *Recorder) Enabled(_ context.Context, level slog.Level) bool {
	return level >= r.level.Level()
}

// Handle implements slog.Handler.
func (r *Recorder) Handle(_ context.Context, record slog.Record) error {
	record = record.Clone()
	record.AddAttrs(r.attrs...)

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.records = append(r.store.records, record)

	return nil
}

// WithAttrs implements slog.Handler.
func (r *Recorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Recorder{
		level: r.level,
		attrs: append(slices.Clone(r.attrs), attrs...),
		store: r.store,
	}
}

// WithGroup implements slog.Handler.
func (r *Recorder) WithGroup(string) slog.Handler {
	return r
}

// Records returns a copy of the records kept so far, oldest first.
func (r *Recorder) Records() []slog.Record {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return slices.Clone(r.store.records)
}

// Messages returns the message of every record, oldest first.
func (r *Recorder) Messages() []string {
	records := r.Records()

	msgs := make([]string, 0, len(records))
	for _, rec := range records {
		msgs = append(msgs, rec.Message)
	}

	return msgs
}

// Count returns how many records carry msg.
func (r *Recorder) Count(msg string) int {
	n := 0

	for _, m := range r.Messages() {
		if m == msg {
			n++
		}
	}

	return n
}

// Attr returns the first attribute named key on the first record carrying
// msg.
func (r *Recorder) Attr(msg, key string) (slog.Value, bool) {
	for _, rec := range r.Records() {
		if rec.Message != msg {
			continue
		}

		var (
			value slog.Value
			found bool
		)

		rec.Attrs(func(a slog.Attr) bool {
			if a.Key == key {
				value, found = a.Value, true
				return false
			}

			return true
		})

		return value, found
	}

	return slog.Value{}, false
}

// Reset discards every record.
func (r *Recorder) Reset() {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.records = nil
}
