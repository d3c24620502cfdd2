package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "jbridge"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "jbridge"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "JBRIDGE"
)

// configDirOverride lets tests point the lookup at a temporary directory.
var configDirOverride string

// LoadOptions defines explicit configuration loading inputs.
type LoadOptions struct {
	// ConfigFilePath forces loading from a specific config file when set.
	ConfigFilePath string
	// ConfigDirPath overrides the user config directory when set.
	ConfigDirPath string
}

// ConfigDir returns the jbridge directory under the user config directory.
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(dir, AppName), nil
}

// Load reads the configuration. A missing config file is not an error; a
// missing explicit ConfigFilePath is.
func Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	cfg, _, err := load(ctx, opts)
	return cfg, err
}

// LoadWithSource is Load that also reports which file was read, "" when
// only defaults and the environment were used.
func LoadWithSource(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	return load(ctx, opts)
}

func load(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("cache_enabled", defaults.CacheEnabled)
	v.SetDefault("materialization", defaults.Materialization)
	v.SetDefault("engine", defaults.Engine)
	v.SetDefault("visibility", defaults.Visibility)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("classpath", defaults.ClassPath)
	v.SetDefault("jmod", defaults.Jmod)
	v.SetDefault("guard.deny_packages", defaults.Guard.DenyPackages)
	v.SetDefault("guard.public_allowed", defaults.Guard.PublicAllowed)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", fmt.Errorf("config file not found: %s", opts.ConfigFilePath)
		}
		v.SetConfigFile(opts.ConfigFilePath)
	} else {
		cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
		if err != nil {
			return nil, "", err
		}
		v.SetConfigName(ConfigFileName)
		v.AddConfigPath(".")
		v.AddConfigPath(cfgDir)
	}

	resolvedPath := ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, "", fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		resolvedPath = v.ConfigFileUsed()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, resolvedPath, nil
}

func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}
	return ConfigDir()
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// Write encodes cfg as TOML.
func Write(w io.Writer, cfg *Config) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Save writes cfg to jbridge.toml in the config directory, creating the
// directory when needed.
func Save(cfg *Config) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	path := filepath.Join(dir, ConfigFileName+".toml")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create config file: %w", err)
	}
	if err := Write(f, cfg); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}
