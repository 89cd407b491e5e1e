package devmode

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Property keys understood by ParseProperties.
const (
	PropEntryPoint              = "hotswap.entryPoint"
	PropReloadablePrefixes      = "hotswap.reloadablePrefixes"
	PropWatchRoots              = "hotswap.watchRoots"
	PropShutdownPollingInterval = "hotswap.shutdownPollingInterval"
	PropDebounceDuration        = "hotswap.debounceDuration"
)

// ParseProperties builds a Config from string properties. Durations are
// integer milliseconds or Go duration strings; an empty value selects the
// default.
func ParseProperties(props map[string]string, args []string) (*Config, error) {
	cfg := &Config{
		EntryPoint:         strings.TrimSpace(props[PropEntryPoint]),
		Args:               slices.Clone(args),
		ReloadablePrefixes: splitList(props[PropReloadablePrefixes], ","),
		WatchRoots:         dedupeRoots(splitList(props[PropWatchRoots], string(os.PathListSeparator))),
	}

	if cfg.Args == nil {
		cfg.Args = []string{}
	}

	var err error

	cfg.ShutdownPollInterval, err = parseDuration(PropShutdownPollingInterval, props[PropShutdownPollingInterval], DefaultShutdownPollInterval)
	if err != nil {
		return nil, err
	}

	cfg.DebounceDuration, err = parseDuration(PropDebounceDuration, props[PropDebounceDuration], DefaultDebounceDuration)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseDuration(key, value string, def time.Duration) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return def, nil
	}

	var d time.Duration

	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		d = time.Duration(ms) * time.Millisecond
	} else {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: invalid duration %q", ErrInvalidConfig, key, value)
		}

		d = parsed
	}

	if d < 0 {
		return 0, fmt.Errorf("%w: %s: duration must not be negative, got %q", ErrInvalidConfig, key, value)
	}

	return d, nil
}

// splitList splits value on sep and drops blank entries. It returns nil when
// nothing remains.
func splitList(value, sep string) []string {
	var out []string

	for _, part := range strings.Split(value, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}

// dedupeRoots cleans every root and drops repeats, keeping the first
// occurrence.
func dedupeRoots(roots []string) []string {
	seen := make(map[string]struct{}, len(roots))
	out := roots[:0]

	for _, root := range roots {
		root = filepath.Clean(root)
		if _, ok := seen[root]; ok {
			continue
		}

		seen[root] = struct{}{}
		out = append(out, root)
	}

	return out
}
