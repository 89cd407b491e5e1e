package devmode

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/hotswap/internal/config"
)

func roots(paths ...string) string {
	return strings.Join(paths, string(os.PathListSeparator))
}

func TestParseProperties_Minimal(t *testing.T) {
	cfg, err := ParseProperties(map[string]string{
		PropEntryPoint: "app",
		PropWatchRoots: "build/out",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "app", cfg.EntryPoint)
	assert.Equal(t, []string{"build/out"}, cfg.WatchRoots)
	assert.Nil(t, cfg.ReloadablePrefixes)
	assert.Equal(t, []string{}, cfg.Args)
	assert.Equal(t, 5*time.Second, cfg.ShutdownPollInterval)
	assert.Equal(t, 100*time.Millisecond, cfg.DebounceDuration)
}

func TestParseProperties_Full(t *testing.T) {
	cfg, err := ParseProperties(map[string]string{
		PropEntryPoint:              "bin/server",
		PropWatchRoots:              roots("out/a", "", " out/b ", "out/a"),
		PropReloadablePrefixes:      "bin/, ,tools/",
		PropShutdownPollingInterval: "250",
		PropDebounceDuration:        "1s",
	}, []string{"--port", "8080"})
	require.NoError(t, err)

	assert.Equal(t, "bin/server", cfg.EntryPoint)
	assert.Equal(t, []string{"out/a", "out/b"}, cfg.WatchRoots)
	assert.Equal(t, []string{"bin/", "tools/"}, cfg.ReloadablePrefixes)
	assert.Equal(t, []string{"--port", "8080"}, cfg.Args)
	assert.Equal(t, 250*time.Millisecond, cfg.ShutdownPollInterval)
	assert.Equal(t, time.Second, cfg.DebounceDuration)
}

func TestParseProperties_EquivalentRootsCollapse(t *testing.T) {
	cfg, err := ParseProperties(map[string]string{
		PropEntryPoint: "app",
		PropWatchRoots: roots("./out", "out", "out/", "build/../out", "build"),
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"out", "build"}, cfg.WatchRoots)
}

func TestParseProperties_BlankPrefixesAreAbsent(t *testing.T) {
	cfg, err := ParseProperties(map[string]string{
		PropEntryPoint:         "app",
		PropWatchRoots:         "out",
		PropReloadablePrefixes: " , ,",
	}, nil)
	require.NoError(t, err)

	assert.Nil(t, cfg.ReloadablePrefixes)
}

func TestParseProperties_Errors(t *testing.T) {
	tests := []struct {
		name    string
		props   map[string]string
		wantErr string
	}{
		{
			name:    "missing entry point",
			props:   map[string]string{PropWatchRoots: "out"},
			wantErr: "entry point must be provided",
		},
		{
			name:    "blank entry point",
			props:   map[string]string{PropEntryPoint: "  ", PropWatchRoots: "out"},
			wantErr: "entry point must be provided",
		},
		{
			name:    "missing watch roots",
			props:   map[string]string{PropEntryPoint: "app"},
			wantErr: "at least one watch root must be provided",
		},
		{
			name:    "only blank watch roots",
			props:   map[string]string{PropEntryPoint: "app", PropWatchRoots: roots(" ", "")},
			wantErr: "at least one watch root must be provided",
		},
		{
			name: "non-numeric debounce",
			props: map[string]string{
				PropEntryPoint: "app", PropWatchRoots: "out", PropDebounceDuration: "soon",
			},
			wantErr: PropDebounceDuration,
		},
		{
			name: "non-numeric shutdown interval",
			props: map[string]string{
				PropEntryPoint: "app", PropWatchRoots: "out", PropShutdownPollingInterval: "5 seconds",
			},
			wantErr: PropShutdownPollingInterval,
		},
		{
			name: "negative duration",
			props: map[string]string{
				PropEntryPoint: "app", PropWatchRoots: "out", PropDebounceDuration: "-5",
			},
			wantErr: "must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProperties(tt.props, nil)
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", time.Minute},
		{"   ", time.Minute},
		{"0", 0},
		{"1500", 1500 * time.Millisecond},
		{"2s", 2 * time.Second},
		{"150ms", 150 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := parseDuration("key", tt.value, time.Minute)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseProperties_ArgsAreCopied(t *testing.T) {
	args := []string{"a"}

	cfg, err := ParseProperties(map[string]string{PropEntryPoint: "app", PropWatchRoots: "out"}, args)
	require.NoError(t, err)

	args[0] = "b"
	assert.Equal(t, []string{"a"}, cfg.Args)
}

func TestParseProperties_FromLoadedConfig(t *testing.T) {
	loaded := &config.Config{
		EntryPoint:         "bin/server",
		WatchRoots:         roots("out/a", "out/b"),
		ReloadablePrefixes: "bin/",
		Debounce:           "300",
	}

	cfg, err := ParseProperties(loaded.Properties(), []string{"-v"})
	require.NoError(t, err)

	assert.Equal(t, "bin/server", cfg.EntryPoint)
	assert.Equal(t, []string{"out/a", "out/b"}, cfg.WatchRoots)
	assert.Equal(t, []string{"bin/"}, cfg.ReloadablePrefixes)
	assert.Equal(t, 300*time.Millisecond, cfg.DebounceDuration)
	assert.Equal(t, DefaultShutdownPollInterval, cfg.ShutdownPollInterval)
	assert.Equal(t, []string{"-v"}, cfg.Args)
}
