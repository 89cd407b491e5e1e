// Package config provides configuration management for hotswap.
//
// Configuration is loaded from three sources with the following precedence
// (highest to lowest):
//  1. CLI flags
//  2. Environment variables (HOTSWAP_ prefix)
//  3. Config file (.hotswap.yaml)
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hupe1980/hotswap/internal/version"
)

// Supported log levels.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Supported log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// ErrVersionMismatch is returned when the running binary does not satisfy
// required-version.
var ErrVersionMismatch = errors.New("hotswap version does not satisfy required-version")

// Config represents the global configuration for hotswap.
type Config struct {
	// LogLevel controls the verbosity of log output.
	// Valid values: debug, info, warn, error.
	LogLevel string `mapstructure:"log-level" json:"logLevel"`

	// LogFormat controls the format of log output.
	// Valid values: text, json.
	LogFormat string `mapstructure:"log-format" json:"logFormat"`

	// NoColor disables colored output.
	NoColor bool `mapstructure:"no-color" json:"noColor"`

	// Quiet suppresses all log output below error level.
	Quiet bool `mapstructure:"quiet" json:"quiet"`

	// RequiredVersion is a semver constraint the binary must satisfy, so a
	// project can pin the hotswap release it was set up with.
	RequiredVersion string `mapstructure:"required-version" json:"requiredVersion,omitempty"`

	// EntryPoint names the executable to supervise.
	EntryPoint string `mapstructure:"entry-point" json:"entryPoint,omitempty"`

	// ReloadablePrefixes is a comma-separated list of reloadable name
	// prefixes. Empty means every name outside the platform.
	ReloadablePrefixes string `mapstructure:"reloadable-prefixes" json:"reloadablePrefixes,omitempty"`

	// WatchRoots lists the build output directories, joined with the
	// platform path list separator.
	WatchRoots string `mapstructure:"watch-roots" json:"watchRoots,omitempty"`

	// ShutdownPollInterval is a duration in milliseconds or Go syntax.
	ShutdownPollInterval string `mapstructure:"shutdown-poll-interval" json:"shutdownPollInterval,omitempty"`

	// Debounce is the quiet period in milliseconds or Go syntax.
	Debounce string `mapstructure:"debounce" json:"debounce,omitempty"`

	// Dir is the working directory of the supervised application.
	Dir string `mapstructure:"dir" json:"dir,omitempty"`

	// ConfigFile is the resolved path to the config file used.
	// Set after Load(), not read from config itself.
	ConfigFile string `mapstructure:"-" json:"-"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		LogLevel:  LogLevelInfo,
		LogFormat: LogFormatText,
		NoColor:   false,
		Quiet:     false,
	}
}

// Validate checks that all config values are valid.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		// valid
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.LogLevel)
	}

	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
		// valid
	default:
		return fmt.Errorf("invalid log format %q: must be one of text, json", c.LogFormat)
	}

	if c.RequiredVersion != "" {
		if _, err := semver.NewConstraint(c.RequiredVersion); err != nil {
			return fmt.Errorf("invalid required-version %q: %w", c.RequiredVersion, err)
		}
	}

	return nil
}

// CheckVersion verifies that info satisfies RequiredVersion. Development
// builds always pass.
func (c *Config) CheckVersion(info version.Info) error {
	if c.RequiredVersion == "" || info.IsDev() {
		return nil
	}

	constraint, err := semver.NewConstraint(c.RequiredVersion)
	if err != nil {
		return fmt.Errorf("invalid required-version %q: %w", c.RequiredVersion, err)
	}

	v, err := info.Semver()
	if err != nil {
		return err
	}

	if !constraint.Check(v) {
		return fmt.Errorf("%w: %s does not satisfy %q", ErrVersionMismatch, v, c.RequiredVersion)
	}

	return nil
}

// Properties renders the dev-mode settings as the hotswap.* property map.
// Empty settings are left out so the property parser applies its defaults.
func (c *Config) Properties() map[string]string {
	props := make(map[string]string, 5)

	set := func(key, value string) {
		if value = strings.TrimSpace(value); value != "" {
			props[key] = value
		}
	}

	set("hotswap.entryPoint", c.EntryPoint)
	set("hotswap.reloadablePrefixes", c.ReloadablePrefixes)
	set("hotswap.watchRoots", c.WatchRoots)
	set("hotswap.shutdownPollingInterval", c.ShutdownPollInterval)
	set("hotswap.debounceDuration", c.Debounce)

	return props
}

// EffectiveLogLevel returns the log level to use. When Quiet is true the log
// level is overridden to "error" regardless of the configured LogLevel.
func (c *Config) EffectiveLogLevel() string {
	if c.Quiet {
		return LogLevelError
	}

	return c.LogLevel
}

// Load initialises configuration from flags, environment variables, and an
// optional config file. A fresh viper instance is used on every call so that
// Load is safe for concurrent tests.
func Load(cmd *cobra.Command, configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)
	configureEnv(v)

	if err := configureFile(v, configFile); err != nil {
		return nil, err
	}

	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Store the resolved config file path so downstream code can locate it.
	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := cfg.CheckVersion(version.GetInfo()); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log-level", LogLevelInfo)
	v.SetDefault("log-format", LogFormatText)
	v.SetDefault("no-color", false)
	v.SetDefault("quiet", false)
	v.SetDefault("required-version", "")
	v.SetDefault("entry-point", "")
	v.SetDefault("reloadable-prefixes", "")
	v.SetDefault("watch-roots", "")
	v.SetDefault("shutdown-poll-interval", "")
	v.SetDefault("debounce", "")
	v.SetDefault("dir", "")
}

// configureEnv sets up environment variable support.
func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix("HOTSWAP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

// configureFile sets up the config file source.
func configureFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %q: %w", configFile, err)
		}

		return nil
	}

	// Auto-discovery mode.
	v.SetConfigName(".hotswap")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "hotswap"))
	}

	if err := v.ReadInConfig(); err != nil {
		// No config file found → perfectly fine in auto-discovery.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}

		// Found a file but it was malformed.
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// bindFlags walks from cmd up to the root and binds all PersistentFlags.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	if cmd == nil {
		return nil
	}

	// Bind the current command's own flags.
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	// Walk up to root and bind all persistent flags at each level.
	for c := cmd; c != nil; c = c.Parent() {
		if err := v.BindPFlags(c.PersistentFlags()); err != nil {
			return fmt.Errorf("binding persistent flags: %w", err)
		}
	}

	return nil
}

// ---------------------------------------------------------------------------
// Context helpers
// ---------------------------------------------------------------------------

type ctxKey struct{}
type ctxFileKey struct{}

// NewContext returns a child context carrying cfg.
func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ctxKey{}, cfg)
}

// FromContext extracts a Config from ctx, falling back to Default().
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(ctxKey{}).(*Config); ok {
		return cfg
	}

	return Default()
}

// NewContextWithConfigFile returns a child context carrying the resolved
// config file path. This allows downstream code to locate the config file
// without re-discovering it.
func NewContextWithConfigFile(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, ctxFileKey{}, path)
}

// ConfigFileFromContext extracts the config file path from ctx.
// Returns empty string if no config file was resolved.
func ConfigFileFromContext(ctx context.Context) string {
	if p, ok := ctx.Value(ctxFileKey{}).(string); ok {
		return p
	}

	return ""
}
