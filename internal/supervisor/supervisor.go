package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/hotswap/internal/boundary"
)

// DefaultPollInterval is how long Stop waits between warnings about an
// instance that keeps running after the interrupt.
const DefaultPollInterval = 5 * time.Second

// ErrAlreadyRunning is returned by Start while an instance exists.
var ErrAlreadyRunning = errors.New("application is already running")

// Options configures a Supervisor.
type Options struct {
	// EntryPoint names the executable to run, resolved through the boundary.
	EntryPoint string

	// Args are passed to every instance.
	Args []string

	// Resolver creates the per-instance reload boundary.
	Resolver *boundary.Resolver

	// PollInterval defaults to DefaultPollInterval.
	PollInterval time.Duration

	// Dir is the working directory of every instance.
	Dir string

	// Stdout and Stderr default to the host process streams.
	Stdout io.Writer
	Stderr io.Writer

	// Logger is used for structured logging.
	Logger *slog.Logger
}

// Supervisor starts, stops and restarts the application. Start, Stop and
// Restart are mutually exclusive.
type Supervisor struct {
	entryPoint   string
	args         []string
	resolver     *boundary.Resolver
	pollInterval time.Duration
	dir          string
	stdout       io.Writer
	stderr       io.Writer
	logger       *slog.Logger

	mu      sync.Mutex
	current *instance

	infoMu  sync.RWMutex
	state   State
	id      string
	lastErr error
}

type instance struct {
	cmd   *exec.Cmd
	scope *boundary.Scope
	done  chan struct{}
	err   error

	interrupted atomic.Bool
}

// New creates a stopped supervisor.
func New(opts Options) *Supervisor {
	s := &Supervisor{
		entryPoint:   opts.EntryPoint,
		args:         opts.Args,
		resolver:     opts.Resolver,
		pollInterval: opts.PollInterval,
		dir:          opts.Dir,
		stdout:       opts.Stdout,
		stderr:       opts.Stderr,
		logger:       opts.Logger,
	}

	if s.pollInterval <= 0 {
		s.pollInterval = DefaultPollInterval
	}

	if s.stdout == nil {
		s.stdout = os.Stdout
	}

	if s.stderr == nil {
		s.stderr = os.Stderr
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// Start launches a new instance inside a fresh reload boundary.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.startLocked(ctx)
}

// Stop interrupts the running instance, waits for it to exit and discards
// its reload boundary. It never fails; an instance that ignores the
// interrupt is waited for indefinitely.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
}

// Restart stops the running instance, if any, and starts a new one.
func (s *Supervisor) Restart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("restarting application", slog.String("entry_point", s.entryPoint))

	s.stopLocked()

	return s.startLocked(ctx)
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.infoMu.RLock()
	defer s.infoMu.RUnlock()

	return s.state
}

// InstanceID returns the boundary id of the running instance, or "".
func (s *Supervisor) InstanceID() string {
	s.infoMu.RLock()
	defer s.infoMu.RUnlock()

	return s.id
}

// LastError returns the most recent start failure or non-zero exit.
func (s *Supervisor) LastError() error {
	s.infoMu.RLock()
	defer s.infoMu.RUnlock()

	return s.lastErr
}

func (s *Supervisor) startLocked(ctx context.Context) error {
	if s.current != nil {
		return ErrAlreadyRunning
	}

	s.setState(Starting, "")
	s.logger.Info("starting application", slog.String("entry_point", s.entryPoint))

	inst, err := s.launch(ctx)
	if err != nil {
		s.logger.Error("failed to start application",
			slog.String("entry_point", s.entryPoint),
			slog.String("error", err.Error()),
		)

		s.infoMu.Lock()
		s.state = Stopped
		s.id = ""
		s.lastErr = err
		s.infoMu.Unlock()

		return err
	}

	s.current = inst
	s.setState(Running, inst.scope.ID())

	go s.wait(inst)

	return nil
}

func (s *Supervisor) launch(ctx context.Context) (*instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.resolver == nil {
		return nil, errors.New("no resolver configured")
	}

	scope, err := s.resolver.NewScope()
	if err != nil {
		return nil, fmt.Errorf("creating reload boundary: %w", err)
	}

	path, err := scope.Resolve(s.entryPoint)
	if err != nil {
		_ = scope.Close()
		return nil, fmt.Errorf("resolving entry point: %w", err)
	}

	// The context only bounds the launch; instances end through Stop.
	cmd := exec.Command(path, s.args...) //nolint:gosec // the entry point is user-configured
	cmd.Dir = s.dir
	cmd.Env = scope.Environ()
	cmd.Stdout = s.stdout
	cmd.Stderr = s.stderr
	configureProcess(cmd)

	if err := cmd.Start(); err != nil {
		_ = scope.Close()
		return nil, fmt.Errorf("starting %s: %w", s.entryPoint, err)
	}

	return &instance{
		cmd:   cmd,
		scope: scope,
		done:  make(chan struct{}),
	}, nil
}

func (s *Supervisor) wait(inst *instance) {
	inst.err = inst.cmd.Wait()
	close(inst.done)

	if inst.interrupted.Load() {
		return
	}

	if inst.err != nil {
		s.logger.Error("application failed",
			slog.String("entry_point", s.entryPoint),
			slog.String("error", inst.err.Error()),
		)

		s.infoMu.Lock()
		s.lastErr = inst.err
		s.infoMu.Unlock()
	} else {
		s.logger.Info("application exited", slog.String("entry_point", s.entryPoint))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == inst {
		s.discard(inst)
	}
}

func (s *Supervisor) stopLocked() {
	s.logger.Info("stopping application", slog.String("entry_point", s.entryPoint))

	inst := s.current
	if inst == nil {
		return
	}

	s.setState(Stopping, inst.scope.ID())

	select {
	case <-inst.done:
	default:
		inst.interrupted.Store(true)

		s.logger.Info("interrupting application", slog.Int("pid", inst.cmd.Process.Pid))

		if err := interrupt(inst.cmd.Process, s.logger); err != nil {
			s.logger.Warn("failed to interrupt application", slog.String("error", err.Error()))
		}

		s.awaitExit(inst)
	}

	s.discard(inst)
}

// awaitExit blocks until inst exits, warning every poll interval.
func (s *Supervisor) awaitExit(inst *instance) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	started := time.Now()
	attempt := 0

	for {
		select {
		case <-inst.done:
			return
		case <-ticker.C:
			attempt++
			s.logger.Warn("application is still running after interrupt",
				slog.Int("attempt", attempt),
				slog.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
			)
		}
	}
}

func (s *Supervisor) discard(inst *instance) {
	s.logger.Debug("discarding reload boundary", slog.String("scope", inst.scope.ID()))

	if err := inst.scope.Close(); err != nil {
		s.logger.Warn("failed to discard reload boundary", slog.String("error", err.Error()))
	}

	s.current = nil
	runtime.GC()

	s.setState(Stopped, "")
}

func (s *Supervisor) setState(state State, id string) {
	s.infoMu.Lock()
	defer s.infoMu.Unlock()

	s.state = state
	s.id = id
}
