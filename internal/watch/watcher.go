package watch

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultPollInterval bounds how long the pump loop goes without checking
// the watched roots.
const DefaultPollInterval = 300 * time.Millisecond

var (
	// ErrWatcherStarted is returned when Start is called more than once.
	ErrWatcherStarted = errors.New("watcher already started")

	// ErrWatcherClosed is returned when Start is called after Stop.
	ErrWatcherClosed = errors.New("watcher is closed")
)

// Watcher monitors one or more root directories, and every directory
// created beneath them later on, and reports file changes to a callback.
// Hidden directories are never watched.
type Watcher struct {
	roots        []string
	onChange     func(Event)
	logger       *slog.Logger
	pollInterval time.Duration
	fsw          *fsnotify.Watcher

	mu      sync.Mutex
	watched map[string]struct{}
	started bool
	pumping bool
	closed  bool

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the watcher's logger.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithPollInterval sets how often the pump checks that the roots still
// exist.
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// NewWatcher allocates a watcher for roots. Nothing is watched until Start
// is called.
func NewWatcher(roots []string, onChange func(Event), opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{
		roots:        make([]string, 0, len(roots)),
		onChange:     onChange,
		logger:       slog.Default(),
		pollInterval: DefaultPollInterval,
		fsw:          fsw,
		watched:      make(map[string]struct{}),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	for _, root := range roots {
		w.roots = append(w.roots, filepath.Clean(root))
	}

	return w, nil
}

// Start registers every existing root and its non-hidden subdirectories,
// then begins delivering changes. The baseline walk is complete when Start
// returns. Roots that do not exist are skipped.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWatcherClosed
	}

	if w.started {
		w.mu.Unlock()
		return ErrWatcherStarted
	}

	w.started = true
	w.mu.Unlock()

	w.logger.Info("starting watch service", slog.Int("roots", len(w.roots)))

	for _, root := range w.roots {
		if _, err := os.Stat(root); err != nil {
			w.logger.Debug("skipping missing watch root", slog.String("root", root))
			continue
		}

		w.logger.Debug("watching directory", slog.String("root", root))

		if err := w.addRecursive(root, false); err != nil {
			_ = w.Stop()
			return fmt.Errorf("watching directory %q: %w", root, err)
		}
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWatcherClosed
	}

	w.pumping = true
	w.mu.Unlock()

	go w.pump()

	return nil
}

// Stop ends monitoring and releases the underlying watcher. It is safe to
// call more than once.
func (w *Watcher) Stop() error {
	var err error

	w.stopOnce.Do(func() {
		w.logger.Info("stopping watch service")

		w.mu.Lock()
		w.closed = true
		pumping := w.pumping
		w.mu.Unlock()

		close(w.stop)

		err = w.fsw.Close()

		if !pumping {
			close(w.done)
		}
	})

	return err
}

// Done is closed once the watcher has stopped delivering events.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

// WatchList returns the directories currently registered, sorted.
func (w *Watcher) WatchList() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	list := make([]string, 0, len(w.watched))
	for dir := range w.watched {
		list = append(list, dir)
	}

	slices.Sort(list)

	return list
}

func (w *Watcher) pump() {
	defer close(w.done)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}

			w.handle(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}

			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.logger.Warn("event queue overflow, changes may have been missed")
				continue
			}

			w.logger.Warn("watcher error", slog.String("error", err.Error()))

		case <-ticker.C:
			w.checkRoots()
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	path := filepath.Clean(event.Name)

	if event.Op == fsnotify.Chmod {
		return
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		// Only a newly created directory carries files nobody reported yet.
		if !event.Has(fsnotify.Create) || w.isWatched(path) {
			return
		}

		if err := w.addRecursive(path, true); err != nil {
			w.logger.Warn("failed to watch directory",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}

		return
	}

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		if w.unregister(path) {
			return
		}
	}

	kind, ok := kindOf(event)
	if !ok {
		return
	}

	w.logger.Debug("received event", slog.String("kind", kind.String()), slog.String("path", path))
	w.emit(Event{Path: absolute(path), Kind: kind})
}

// unregister forgets a directory that disappeared. It reports true when the
// directory was one of the roots, in which case the watcher stops.
func (w *Watcher) unregister(dir string) bool {
	w.mu.Lock()
	_, known := w.watched[dir]
	delete(w.watched, dir)
	w.mu.Unlock()

	if !known {
		return false
	}

	w.logger.Debug("directory has been unregistered", slog.String("path", dir))

	if !slices.Contains(w.roots, dir) {
		return false
	}

	w.logger.Info("watch root has been unregistered, stopping watch service", slog.String("root", dir))
	go func() { _ = w.Stop() }()

	return true
}

func (w *Watcher) checkRoots() {
	w.mu.Lock()
	var registered []string

	for _, root := range w.roots {
		if _, ok := w.watched[root]; ok {
			registered = append(registered, root)
		}
	}
	w.mu.Unlock()

	for _, root := range registered {
		if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
			w.unregister(root)
			return
		}
	}
}

// addRecursive walks root and registers every non-hidden directory. With
// notify set, every file found is reported as created, which catches files
// written together with a new directory before it could be watched.
func (w *Watcher) addRecursive(root string, notify bool) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Entries can vanish between the directory read and the visit.
			if path != root && errors.Is(err, fs.ErrNotExist) {
				return nil
			}

			return err
		}

		if !d.IsDir() {
			if notify {
				w.emit(Event{Path: absolute(path), Kind: Created})
			}

			return nil
		}

		if isHidden(path) && !w.isRoot(path) {
			return filepath.SkipDir
		}

		if err := w.register(path); err != nil {
			if path == root || errors.Is(err, filepath.SkipAll) {
				return err
			}

			w.logger.Warn("failed to watch directory",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)

			return filepath.SkipDir
		}

		return nil
	})
}

func (w *Watcher) register(dir string) error {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()

	if closed {
		return filepath.SkipAll
	}

	if err := w.fsw.Add(dir); err != nil {
		return err
	}

	w.mu.Lock()
	w.watched[dir] = struct{}{}
	w.mu.Unlock()

	return nil
}

func (w *Watcher) emit(e Event) {
	select {
	case <-w.stop:
		return
	default:
	}

	w.onChange(e)
}

func (w *Watcher) isWatched(dir string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, ok := w.watched[dir]

	return ok
}

func (w *Watcher) isRoot(path string) bool {
	return slices.Contains(w.roots, path)
}

// kindOf maps an fsnotify operation to a change kind. Chmod-only events
// are dropped.
func kindOf(event fsnotify.Event) (Kind, bool) {
	switch {
	case event.Has(fsnotify.Create):
		return Created, true
	case event.Has(fsnotify.Write):
		return Modified, true
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return Deleted, true
	default:
		return 0, false
	}
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

func absolute(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}

	return path
}
