package devmode

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/hotswap/internal/watch"
)

type submitRecorder struct {
	mu      sync.Mutex
	batches []watch.PathUpdates
}

func (r *submitRecorder) record(u watch.PathUpdates) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.batches = append(r.batches, u)
}

func (r *submitRecorder) snapshot() []watch.PathUpdates {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]watch.PathUpdates(nil), r.batches...)
}

func newFilterDevMode(t *testing.T, rec *submitRecorder, roots ...string) *DevMode {
	t.Helper()

	matchers, err := compileMatchers(roots)
	require.NoError(t, err)

	d := &DevMode{
		logger:    slog.New(slog.DiscardHandler),
		matchers:  matchers,
		debouncer: watch.NewDebouncer(20*time.Millisecond, rec.record),
	}
	t.Cleanup(d.debouncer.Stop)

	return d
}

func TestCompileMatchers(t *testing.T) {
	root := filepath.Join(t.TempDir(), "out[1]")

	matchers, err := compileMatchers([]string{root})
	require.NoError(t, err)
	require.Len(t, matchers, 1)

	d := &DevMode{matchers: matchers}

	assert.True(t, d.matches(filepath.Join(root, "a")))
	assert.True(t, d.matches(filepath.Join(root, "pkg", "sub", "b")))
	assert.False(t, d.matches(root+"-other"))
	assert.False(t, d.matches(filepath.Join(filepath.Dir(root), "out1", "a")))
}

func TestOnChange_FiltersEvents(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()

	rec := &submitRecorder{}
	d := newFilterDevMode(t, rec, root)

	d.onChange(watch.Event{Path: filepath.Join(root, "a"), Kind: watch.Created})
	d.onChange(watch.Event{Path: filepath.Join(root, "b"), Kind: watch.Modified})
	d.onChange(watch.Event{Path: filepath.Join(root, "c"), Kind: watch.Deleted})
	d.onChange(watch.Event{Path: filepath.Join(other, "d"), Kind: watch.Modified})

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	got := rec.snapshot()[0]
	assert.Equal(t, []string{filepath.Join(root, "a")}, got.Created())
	assert.Equal(t, []string{filepath.Join(root, "b")}, got.Modified())
	assert.Empty(t, got.Deleted())
}

func TestOnChange_DeletesAloneDoNotSubmit(t *testing.T) {
	root := t.TempDir()

	rec := &submitRecorder{}
	d := newFilterDevMode(t, rec, root)

	d.onChange(watch.Event{Path: filepath.Join(root, "Main.o"), Kind: watch.Deleted})

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}

func TestStart_InvalidConfig(t *testing.T) {
	_, err := Start(context.Background(), Config{WatchRoots: []string{t.TempDir()}})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestStart_EntryPointMissing(t *testing.T) {
	_, err := Start(context.Background(),
		Config{EntryPoint: "missing", WatchRoots: []string{t.TempDir()}},
		WithLogger(slog.New(slog.DiscardHandler)),
		WithStagingDir(t.TempDir()),
	)
	assert.Error(t, err)
}
