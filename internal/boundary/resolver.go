package boundary

import (
	"errors"
	"fmt"
	"go/build"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// platformDirs are absolute locations whose executables belong to the
// platform rather than to the application.
var platformDirs = []string{
	"/bin",
	"/sbin",
	"/usr",
	"/System",
	`C:\Windows`,
}

// Options configures a Resolver.
type Options struct {
	// Roots are the build output directories reloadable names are read from.
	Roots []string

	// Prefixes selects the reloadable names. Nil means every name that does
	// not belong to the platform.
	Prefixes []string

	// Host answers non-reloadable names. A new HostScope is created when nil.
	Host *HostScope

	// StagingDir is where per-instance scopes keep their copies.
	// Defaults to os.TempDir().
	StagingDir string

	// Logger is used for structured logging.
	Logger *slog.Logger
}

// Resolver decides which scope answers a name and creates a fresh Scope
// for every instance.
type Resolver struct {
	roots      []string
	prefixes   []string
	host       *HostScope
	stagingDir string
	logger     *slog.Logger
}

// NewResolver creates a resolver over opts.Roots.
func NewResolver(opts Options) (*Resolver, error) {
	if len(opts.Roots) == 0 {
		return nil, errors.New("resolver needs at least one root")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	host := opts.Host
	if host == nil {
		h, err := NewHostScope(WithHostLogger(logger))
		if err != nil {
			return nil, err
		}

		host = h
	}

	roots := make([]string, 0, len(opts.Roots))
	for _, root := range opts.Roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolving root %q: %w", root, err)
		}

		roots = append(roots, abs)
	}

	stagingDir := opts.StagingDir
	if stagingDir == "" {
		stagingDir = os.TempDir()
	}

	return &Resolver{
		roots:      roots,
		prefixes:   opts.Prefixes,
		host:       host,
		stagingDir: stagingDir,
		logger:     logger,
	}, nil
}

// Host returns the shared host scope.
func (r *Resolver) Host() *HostScope {
	return r.host
}

// IsReloadable reports whether name is resolved freshly on every start.
func (r *Resolver) IsReloadable(name string) bool {
	if r.prefixes == nil {
		return !isPlatformName(name)
	}

	for _, prefix := range r.prefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}

	return false
}

// NewScope creates the resolution scope for one instance.
func (r *Resolver) NewScope() (*Scope, error) {
	return newScope(r)
}

// find looks name up under the roots, in order.
func (r *Resolver) find(name string) (string, error) {
	rel := filepath.FromSlash(name)
	if filepath.IsAbs(rel) {
		for _, root := range r.roots {
			if within(rel, root) {
				return checkArtifact(rel)
			}
		}

		return "", fmt.Errorf("%w: %q is outside every watch root", ErrNotFound, name)
	}

	for _, root := range r.roots {
		candidate := filepath.Join(root, rel)
		if !within(candidate, root) {
			continue
		}

		if path, err := checkArtifact(candidate); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("%w: %q under %s", ErrNotFound, name, strings.Join(r.roots, string(os.PathListSeparator)))
}

func checkArtifact(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %q is not a regular file", ErrNotFound, path)
	}

	return path, nil
}

func isPlatformName(name string) bool {
	if !filepath.IsAbs(name) {
		return false
	}

	dirs := platformDirs
	if goroot := build.Default.GOROOT; goroot != "" {
		dirs = append([]string{goroot}, dirs...)
	}

	for _, dir := range dirs {
		if within(name, dir) {
			return true
		}
	}

	return false
}

// within reports whether path is dir or below it.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
