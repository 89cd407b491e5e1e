// Package hotswap provides a public Go API for running an application under
// the hotswap development supervisor.
//
// This package exposes dev mode as a library, allowing a project's own
// tooling to embed it without the CLI.
//
// Basic usage:
//
//	err := hotswap.Run(ctx, "server", []string{"./bin"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// With options:
//
//	err := hotswap.Run(ctx, "server", []string{"./bin"},
//	    hotswap.WithArgs("--port", "8080"),
//	    hotswap.WithDebounce(250*time.Millisecond),
//	    hotswap.WithLogger(logger),
//	)
package hotswap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/hupe1980/hotswap/internal/devmode"
)

// ErrInvalidConfig is wrapped by every configuration error.
var ErrInvalidConfig = devmode.ErrInvalidConfig

// discardLogger returns a logger that discards all output.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Option configures a dev-mode session.
// Use the With* functions to create Options.
type Option func(*options)

type options struct {
	args                 []string
	reloadablePrefixes   []string
	shutdownPollInterval time.Duration
	debounce             time.Duration

	logger     *slog.Logger
	stdout     io.Writer
	stderr     io.Writer
	dir        string
	stagingDir string
}

// --- Application ---

// WithArgs sets the arguments passed to every instance.
func WithArgs(args ...string) Option { return func(o *options) { o.args = args } }

// WithDir sets the working directory of every instance.
func WithDir(dir string) Option { return func(o *options) { o.dir = dir } }

// WithOutput redirects the output of every instance.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(o *options) {
		o.stdout = stdout
		o.stderr = stderr
	}
}

// --- Reloading ---

// WithReloadablePrefixes limits which names are resolved from the build
// output. By default every name outside the platform is.
func WithReloadablePrefixes(prefixes ...string) Option {
	return func(o *options) { o.reloadablePrefixes = prefixes }
}

// WithDebounce sets the quiet period before a restart (default: 100ms).
func WithDebounce(d time.Duration) Option { return func(o *options) { o.debounce = d } }

// WithShutdownPollInterval sets how often a slow shutdown is reported
// (default: 5s).
func WithShutdownPollInterval(d time.Duration) Option {
	return func(o *options) { o.shutdownPollInterval = d }
}

// WithStagingDir sets where each instance's copy of the build output is
// kept (default: the OS temp directory).
func WithStagingDir(dir string) Option { return func(o *options) { o.stagingDir = dir } }

// --- Logging ---

// WithLogger sets the logger. Without it the session logs nothing.
func WithLogger(logger *slog.Logger) Option { return func(o *options) { o.logger = logger } }

// Run supervises entryPoint until ctx is cancelled or every watch root has
// been removed.
func Run(ctx context.Context, entryPoint string, watchRoots []string, opts ...Option) error {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	cfg := devmode.Config{
		EntryPoint:           entryPoint,
		Args:                 o.args,
		ReloadablePrefixes:   o.reloadablePrefixes,
		WatchRoots:           watchRoots,
		ShutdownPollInterval: o.shutdownPollInterval,
		DebounceDuration:     o.debounce,
	}

	return devmode.Run(ctx, cfg, o.devmodeOptions()...)
}

// RunProperties supervises the application described by hotswap.*
// properties, the same keys the CLI reads from its configuration. Options
// given here override the properties.
func RunProperties(ctx context.Context, props map[string]string, args []string, opts ...Option) error {
	cfg, err := devmode.ParseProperties(props, args)
	if err != nil {
		return err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if o.args != nil {
		cfg.Args = o.args
	}

	if o.reloadablePrefixes != nil {
		cfg.ReloadablePrefixes = o.reloadablePrefixes
	}

	if o.debounce != 0 {
		cfg.DebounceDuration = o.debounce
	}

	if o.shutdownPollInterval != 0 {
		cfg.ShutdownPollInterval = o.shutdownPollInterval
	}

	return devmode.Run(ctx, *cfg, o.devmodeOptions()...)
}

// IsConfigError reports whether err was caused by invalid configuration.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

func (o *options) devmodeOptions() []devmode.Option {
	logger := o.logger
	if logger == nil {
		logger = discardLogger()
	}

	opts := []devmode.Option{
		devmode.WithLogger(logger),
		devmode.WithDir(o.dir),
		devmode.WithStagingDir(o.stagingDir),
	}

	if o.stdout != nil || o.stderr != nil {
		opts = append(opts, devmode.WithOutput(o.stdout, o.stderr))
	}

	return opts
}
