// Package config resolves cfrestart settings from flags, CF_* environment
// variables and an optional config file at $HOME/.cfrestart/config.yaml.
//
// Flags take precedence over the environment, which takes precedence over
// the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	KeyAPI               = "api"
	KeyUsername          = "username"
	KeyPassword          = "password"
	KeyToken             = "token"
	KeyOrg               = "org"
	KeySpace             = "space"
	KeySkipSSLValidation = "skip_ssl_validation"
	KeyManifest          = "manifest"
	KeyHistory           = "history"
	KeyPollInterval      = "poll_interval"
)

var (
	ErrMissingAPI          = errors.New("controller API endpoint is not set (CF_API or --api)")
	ErrMissingCredentials  = errors.New("no credentials: set CF_TOKEN, or CF_USERNAME and CF_PASSWORD")
	ErrInvalidPollInterval = errors.New("poll interval must be positive")
)

type Config struct {
	API               string        `mapstructure:"api"`
	Username          string        `mapstructure:"username"`
	Password          string        `mapstructure:"password"`
	Token             string        `mapstructure:"token"`
	Org               string        `mapstructure:"org"`
	Space             string        `mapstructure:"space"`
	SkipSSLValidation bool          `mapstructure:"skip_ssl_validation"`
	Manifest          string        `mapstructure:"manifest"`
	History           string        `mapstructure:"history"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
}

// Dir returns $HOME/.cfrestart.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cfrestart"
	}
	return filepath.Join(home, ".cfrestart")
}

// HistoryPath returns the default history database location. It respects
// XDG_DATA_HOME, falling back to ~/.local/share/cfrestart/history.db.
func HistoryPath() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".local", "share", "cfrestart", "history.db")
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, "cfrestart", "history.db")
}

// Load merges the config file, environment and any flags in fs whose names
// match a key with underscores replaced by dashes.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(Dir())

	v.SetEnvPrefix("CF")
	v.AutomaticEnv()

	for _, key := range []string{KeyAPI, KeyUsername, KeyPassword, KeyToken, KeyOrg, KeySpace} {
		v.SetDefault(key, "")
	}
	v.SetDefault(KeySkipSSLValidation, false)
	v.SetDefault(KeyManifest, "manifest.yml")
	v.SetDefault(KeyHistory, HistoryPath())
	v.SetDefault(KeyPollInterval, 3*time.Second)

	if fs != nil {
		for _, key := range v.AllKeys() {
			if f := fs.Lookup(strings.ReplaceAll(key, "_", "-")); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", f.Name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.API = strings.TrimRight(strings.TrimSpace(cfg.API), "/")
	cfg.Org = strings.TrimSpace(cfg.Org)
	cfg.Space = strings.TrimSpace(cfg.Space)
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPollInterval, cfg.PollInterval)
	}
	return &cfg, nil
}

// RequireSession reports whether cfg can reach and authenticate against the
// controller.
func (c *Config) RequireSession() error {
	if c.API == "" {
		return ErrMissingAPI
	}
	if strings.TrimSpace(c.Token) != "" {
		return nil
	}
	if c.Username == "" || c.Password == "" {
		return ErrMissingCredentials
	}
	return nil
}
