package boundary

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// ErrScopeClosed is returned by Resolve after Close.
var ErrScopeClosed = errors.New("scope is closed")

// Scope resolves names for a single instance. Reloadable artifacts are
// copied into a private directory the first time they are resolved.
type Scope struct {
	id       string
	dir      string
	resolver *Resolver

	mu       sync.Mutex
	resolved map[string]string
	closed   bool
}

func newScope(r *Resolver) (*Scope, error) {
	id := uuid.NewString()

	dir, err := os.MkdirTemp(r.stagingDir, "hotswap-"+id[:8]+"-")
	if err != nil {
		return nil, fmt.Errorf("creating scope directory: %w", err)
	}

	return &Scope{
		id:       id,
		dir:      dir,
		resolver: r,
		resolved: make(map[string]string),
	}, nil
}

// ID returns the scope's unique id.
func (s *Scope) ID() string { return s.id }

// Dir returns the staging directory.
func (s *Scope) Dir() string { return s.dir }

// Environ returns the environment for the instance: the host snapshot plus
// HOTSWAP_INSTANCE_ID.
func (s *Scope) Environ() []string {
	return append(s.resolver.host.Environ(), "HOTSWAP_INSTANCE_ID="+s.id)
}

// Resolve returns an executable path for name. Reloadable names are read
// from the build output and staged; other names are answered by the host
// scope.
func (s *Scope) Resolve(name string) (string, error) {
	if !s.resolver.IsReloadable(name) {
		return s.resolver.host.Resolve(name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrScopeClosed
	}

	if path, ok := s.resolved[name]; ok {
		return path, nil
	}

	src, err := s.resolver.find(name)
	if err != nil {
		return "", err
	}

	// One directory per artifact keeps the original file name, which the
	// instance sees as its program name, without collisions.
	slot := filepath.Join(s.dir, strconv.Itoa(len(s.resolved)))
	if err := os.Mkdir(slot, 0o700); err != nil {
		return "", fmt.Errorf("staging %q: %w", name, err)
	}

	dst := filepath.Join(slot, filepath.Base(src))
	if err := copyExecutable(src, dst); err != nil {
		return "", fmt.Errorf("staging %q: %w", name, err)
	}

	s.resolved[name] = dst
	s.resolver.logger.Debug("resolved reloadable name",
		slog.String("name", name),
		slog.String("source", src),
		slog.String("scope", s.id),
	)

	return dst, nil
}

// Close discards the scope and its staged artifacts.
func (s *Scope) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	s.resolved = nil

	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("removing scope directory: %w", err)
	}

	return nil
}

func copyExecutable(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm()|0o100)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}

	return out.Close()
}
