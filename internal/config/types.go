package config

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/daimatz/jbridge/pkg/members"
	"github.com/daimatz/jbridge/pkg/vm"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

type (
	// Config is the process-wide jbridge configuration.
	Config struct {
		// CacheEnabled turns the class metadata cache on. When off, every
		// member table reflects its class again.
		CacheEnabled bool `toml:"cache_enabled" mapstructure:"cache_enabled"`
		// Materialization is "eager" or "lazy".
		Materialization string `toml:"materialization" mapstructure:"materialization"`
		// Engine is "current" or "legacy".
		Engine string `toml:"engine" mapstructure:"engine"`
		// Visibility is "public", "protected" or "private".
		Visibility string `toml:"visibility" mapstructure:"visibility"`
		// LogLevel is one of debug, info, warn, error.
		LogLevel string `toml:"log_level" mapstructure:"log_level"`
		// ClassPath lists directories searched for user classes.
		ClassPath []string `toml:"classpath" mapstructure:"classpath"`
		// Jmod is an optional java.base.jmod consulted after the bootstrap
		// library.
		Jmod  string      `toml:"jmod" mapstructure:"jmod"`
		Guard GuardConfig `toml:"guard" mapstructure:"guard"`
	}

	// GuardConfig restricts reflection on packages, the way a security
	// manager would.
	GuardConfig struct {
		// DenyPackages holds internal name prefixes, e.g. "sun/".
		DenyPackages []string `toml:"deny_packages" mapstructure:"deny_packages"`
		// PublicAllowed lets public members of denied packages through.
		PublicAllowed bool `toml:"public_allowed" mapstructure:"public_allowed"`
	}

	// InvalidConfigError names the offending key.
	InvalidConfigError struct {
		Key string
		Err error
	}
)

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() *Config {
	return &Config{
		CacheEnabled:    true,
		Materialization: "eager",
		Engine:          "current",
		Visibility:      "public",
		LogLevel:        "warn",
		ClassPath:       []string{"."},
	}
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrInvalidConfig, e.Key, e.Err)
}

func (e *InvalidConfigError) Unwrap() []error { return []error{ErrInvalidConfig, e.Err} }

// Validate checks every enumerated value.
func (c *Config) Validate() error {
	var errs []error
	if _, err := members.ParseStrategy(c.Materialization); err != nil {
		errs = append(errs, &InvalidConfigError{Key: "materialization", Err: err})
	}
	if _, err := members.ParseVersion(c.Engine); err != nil {
		errs = append(errs, &InvalidConfigError{Key: "engine", Err: err})
	}
	if _, err := members.ParseVisibility(c.Visibility); err != nil {
		errs = append(errs, &InvalidConfigError{Key: "visibility", Err: err})
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, &InvalidConfigError{Key: "log_level", Err: err})
	}
	return errors.Join(errs...)
}

// Level returns the parsed log level, warn when unset or unknown.
func (c *Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.WarnLevel
	}
	return lvl
}

// MemberVisibility returns the parsed visibility.
func (c *Config) MemberVisibility() (members.Visibility, error) {
	return members.ParseVisibility(c.Visibility)
}

// EngineOptions translates c into member engine options.
func (c *Config) EngineOptions(logger *log.Logger) ([]members.Option, error) {
	strategy, err := members.ParseStrategy(c.Materialization)
	if err != nil {
		return nil, &InvalidConfigError{Key: "materialization", Err: err}
	}
	version, err := members.ParseVersion(c.Engine)
	if err != nil {
		return nil, &InvalidConfigError{Key: "engine", Err: err}
	}
	opts := []members.Option{
		members.WithCache(members.NewCache(c.CacheEnabled)),
		members.WithStrategy(strategy),
		members.WithVersion(version),
	}
	if logger != nil {
		opts = append(opts, members.WithLogger(logger))
	}
	if len(c.Guard.DenyPackages) > 0 {
		opts = append(opts, members.WithGuard(vm.PackageGuard{
			Prefixes:      c.Guard.DenyPackages,
			PublicAllowed: c.Guard.PublicAllowed,
		}))
	}
	return opts, nil
}
