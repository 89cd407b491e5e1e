package devmode

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gobwas/glob"

	"github.com/hupe1980/hotswap/internal/boundary"
	"github.com/hupe1980/hotswap/internal/logging"
	"github.com/hupe1980/hotswap/internal/supervisor"
	"github.com/hupe1980/hotswap/internal/watch"
)

// Option configures a DevMode.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	stdout     io.Writer
	stderr     io.Writer
	dir        string
	stagingDir string
}

// WithLogger sets the logger every component derives its logger from.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithOutput redirects the output of every instance.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(o *options) {
		o.stdout = stdout
		o.stderr = stderr
	}
}

// WithDir sets the working directory of every instance.
func WithDir(dir string) Option {
	return func(o *options) { o.dir = dir }
}

// WithStagingDir sets where reload boundaries keep their copies of the
// build output.
func WithStagingDir(dir string) Option {
	return func(o *options) { o.stagingDir = dir }
}

// DevMode is a running development session.
type DevMode struct {
	cfg    Config
	logger *slog.Logger
	ctx    context.Context

	matchers   []glob.Glob
	supervisor *supervisor.Supervisor
	debouncer  *watch.Debouncer
	watcher    *watch.Watcher

	closeOnce sync.Once
}

// Start validates cfg, starts the application and begins watching the
// roots. The watcher's baseline walk is complete when Start returns, so no
// restart can be triggered before that.
func Start(ctx context.Context, cfg Config, opts ...Option) (*DevMode, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{logger: logging.FromContext(ctx)}
	for _, opt := range opts {
		opt(&o)
	}

	cfg = cfg.withDefaults()

	roots := make([]string, 0, len(cfg.WatchRoots))
	for _, root := range cfg.WatchRoots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("%w: watch root %q: %v", ErrInvalidConfig, root, err)
		}

		roots = append(roots, abs)
	}

	cfg.WatchRoots = dedupeRoots(roots)
	roots = cfg.WatchRoots

	matchers, err := compileMatchers(roots)
	if err != nil {
		return nil, err
	}

	resolver, err := boundary.NewResolver(boundary.Options{
		Roots:      roots,
		Prefixes:   cfg.ReloadablePrefixes,
		StagingDir: o.stagingDir,
		Logger:     logging.Component(o.logger, "boundary"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating reload boundary: %w", err)
	}

	d := &DevMode{
		cfg:      cfg,
		logger:   logging.Component(o.logger, "devmode"),
		ctx:      context.WithoutCancel(ctx),
		matchers: matchers,
	}

	d.supervisor = supervisor.New(supervisor.Options{
		EntryPoint:   cfg.EntryPoint,
		Args:         cfg.Args,
		Resolver:     resolver,
		PollInterval: cfg.ShutdownPollInterval,
		Dir:          o.dir,
		Stdout:       o.stdout,
		Stderr:       o.stderr,
		Logger:       logging.Component(o.logger, "supervisor"),
	})

	if err := d.supervisor.Start(ctx); err != nil {
		return nil, err
	}

	d.debouncer = watch.NewDebouncer(cfg.DebounceDuration, d.restart,
		watch.WithDebouncerLogger(logging.Component(o.logger, "debouncer")),
	)

	d.watcher, err = watch.NewWatcher(roots, d.onChange,
		watch.WithWatcherLogger(logging.Component(o.logger, "watch")),
	)
	if err != nil {
		d.debouncer.Stop()
		d.supervisor.Stop()

		return nil, err
	}

	if err := d.watcher.Start(); err != nil {
		d.debouncer.Stop()
		d.supervisor.Stop()

		return nil, err
	}

	return d, nil
}

// Run starts a session and blocks until ctx is cancelled or the watcher
// stops, then shuts everything down. Removing a watch root therefore ends
// the session and stops the application.
func Run(ctx context.Context, cfg Config, opts ...Option) error {
	d, err := Start(ctx, cfg, opts...)
	if err != nil {
		return err
	}

	defer d.Close()

	if err := d.Wait(ctx); err != nil && ctx.Err() == nil {
		return err
	}

	return nil
}

// Config returns the effective configuration.
func (d *DevMode) Config() Config {
	return d.cfg
}

// Supervisor returns the session's supervisor.
func (d *DevMode) Supervisor() *supervisor.Supervisor {
	return d.supervisor
}

// Wait blocks until ctx is done or the watcher stops, for example because
// every watch root was removed.
func (d *DevMode) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-d.watcher.Done():
		return nil
	}
}

// Close stops the watcher, the debouncer and the application, in that
// order. It is safe to call more than once.
func (d *DevMode) Close() error {
	var err error

	d.closeOnce.Do(func() {
		err = d.watcher.Stop()
		d.debouncer.Stop()
		d.supervisor.Stop()
	})

	return err
}

func (d *DevMode) onChange(event watch.Event) {
	if !d.matches(event.Path) {
		return
	}

	// Build tools delete and recreate their output; deletions alone never
	// trigger a restart.
	if event.Kind == watch.Deleted {
		return
	}

	d.debouncer.Submit(event.Path, event.Kind)
}

func (d *DevMode) restart(changes watch.PathUpdates) {
	d.logger.Debug("restarting due to changes", slog.Any("changes", changes))

	if err := d.supervisor.Restart(d.ctx); err != nil {
		d.logger.Debug("restart did not start a new instance", slog.String("error", err.Error()))
	}
}

func (d *DevMode) matches(path string) bool {
	p := filepath.ToSlash(path)

	for _, m := range d.matchers {
		if m.Match(p) {
			return true
		}
	}

	return false
}

func compileMatchers(roots []string) ([]glob.Glob, error) {
	matchers := make([]glob.Glob, 0, len(roots))

	for _, root := range roots {
		pattern := glob.QuoteMeta(strings.TrimSuffix(filepath.ToSlash(root), "/")) + "/**"

		m, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("compiling matcher for %q: %w", root, err)
		}

		matchers = append(matchers, m)
	}

	return matchers, nil
}
