package boundary

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultHostCacheSize bounds the number of names the host scope remembers.
const DefaultHostCacheSize = 256

// ErrNotFound is returned when a name cannot be resolved by any scope.
var ErrNotFound = errors.New("name not found")

// HostScope answers non-reloadable names. Every answer is cached and shared
// by all instances started during the session.
type HostScope struct {
	cache    *lru.Cache[string, string]
	env      []string
	lookPath func(string) (string, error)
	logger   *slog.Logger
}

// HostOption configures a HostScope.
type HostOption func(*hostConfig)

type hostConfig struct {
	size     int
	env      []string
	lookPath func(string) (string, error)
	logger   *slog.Logger
}

// WithCacheSize overrides DefaultHostCacheSize.
func WithCacheSize(n int) HostOption {
	return func(c *hostConfig) { c.size = n }
}

// WithEnviron replaces the environment snapshot taken from the host
// process.
func WithEnviron(env []string) HostOption {
	return func(c *hostConfig) { c.env = slices.Clone(env) }
}

// WithLookPath replaces exec.LookPath.
func WithLookPath(fn func(string) (string, error)) HostOption {
	return func(c *hostConfig) { c.lookPath = fn }
}

// WithHostLogger sets the logger.
func WithHostLogger(logger *slog.Logger) HostOption {
	return func(c *hostConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewHostScope creates the long-lived host scope.
func NewHostScope(opts ...HostOption) (*HostScope, error) {
	cfg := hostConfig{
		size:     DefaultHostCacheSize,
		env:      os.Environ(),
		lookPath: exec.LookPath,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	cache, err := lru.New[string, string](cfg.size)
	if err != nil {
		return nil, fmt.Errorf("creating host cache: %w", err)
	}

	return &HostScope{
		cache:    cache,
		env:      cfg.env,
		lookPath: cfg.lookPath,
		logger:   cfg.logger,
	}, nil
}

// Resolve returns the executable path for name. The first successful answer
// for a name is reused for the rest of the session.
func (h *HostScope) Resolve(name string) (string, error) {
	if path, ok := h.cache.Get(name); ok {
		return path, nil
	}

	path, err := h.lookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %q in host scope: %w", ErrNotFound, name, err)
	}

	h.cache.Add(name, path)
	h.logger.Debug("resolved name in host scope", slog.String("name", name), slog.String("path", path))

	return path, nil
}

// Environ returns a copy of the environment shared by all instances.
func (h *HostScope) Environ() []string {
	return slices.Clone(h.env)
}

// Len returns the number of cached names.
func (h *HostScope) Len() int {
	return h.cache.Len()
}
