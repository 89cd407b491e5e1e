package devmode

import (
	"errors"
	"fmt"
	"time"
)

// Defaults applied to zero durations.
const (
	DefaultShutdownPollInterval = 5 * time.Second
	DefaultDebounceDuration     = 100 * time.Millisecond
)

// ErrInvalidConfig is wrapped by every configuration error.
var ErrInvalidConfig = errors.New("invalid dev mode configuration")

// Config describes one development session.
type Config struct {
	// EntryPoint names the executable started for every instance. Reloadable
	// names are looked up relative to the watch roots.
	EntryPoint string `json:"entryPoint"`

	// Args are passed to every instance.
	Args []string `json:"args,omitempty"`

	// ReloadablePrefixes selects which names are resolved from the build
	// output. Nil means every name outside the platform.
	ReloadablePrefixes []string `json:"reloadablePrefixes,omitempty"`

	// WatchRoots are the build output directories.
	WatchRoots []string `json:"watchRoots"`

	// ShutdownPollInterval is how often a slow shutdown is reported.
	ShutdownPollInterval time.Duration `json:"shutdownPollInterval"`

	// DebounceDuration is the quiet period before a restart.
	DebounceDuration time.Duration `json:"debounceDuration"`
}

// Validate checks that c can start a session.
func (c *Config) Validate() error {
	if c.EntryPoint == "" {
		return fmt.Errorf("%w: entry point must be provided", ErrInvalidConfig)
	}

	if len(c.WatchRoots) == 0 {
		return fmt.Errorf("%w: at least one watch root must be provided", ErrInvalidConfig)
	}

	if c.ShutdownPollInterval < 0 {
		return fmt.Errorf("%w: shutdown poll interval must not be negative", ErrInvalidConfig)
	}

	if c.DebounceDuration < 0 {
		return fmt.Errorf("%w: debounce duration must not be negative", ErrInvalidConfig)
	}

	return nil
}

func (c *Config) withDefaults() Config {
	out := *c

	if out.ShutdownPollInterval == 0 {
		out.ShutdownPollInterval = DefaultShutdownPollInterval
	}

	if out.DebounceDuration == 0 {
		out.DebounceDuration = DefaultDebounceDuration
	}

	return out
}
