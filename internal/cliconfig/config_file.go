package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/bft-labs/assetcdn/pkg/ratelimit"
)

// FileConfig is the on-disk configuration. Durations are strings so the
// file reads naturally in both TOML and YAML.
type FileConfig struct {
	ListenAddr   string            `toml:"listen_addr" yaml:"listen_addr"`
	AssetRoot    string            `toml:"asset_root" yaml:"asset_root"`
	Categories   []string          `toml:"categories" yaml:"categories"`
	ContentTypes map[string]string `toml:"content_types" yaml:"content_types"`
	CacheMaxAge  string            `toml:"cache_max_age" yaml:"cache_max_age"`

	RateLimit RateLimitFileConfig `toml:"rate_limit" yaml:"rate_limit"`
	Upload    UploadFileConfig    `toml:"upload" yaml:"upload"`
	Notify    NotifyFileConfig    `toml:"notify" yaml:"notify"`

	CompressMinSize int    `toml:"compress_min_size" yaml:"compress_min_size"`
	ShutdownTimeout string `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel        string `toml:"log_level" yaml:"log_level"`
	LogJSON         *bool  `toml:"log_json" yaml:"log_json"`
	WatchConfig     *bool  `toml:"watch_config" yaml:"watch_config"`
}

// RateLimitFileConfig is the [rate_limit] table.
type RateLimitFileConfig struct {
	APIMax        int    `toml:"api_max" yaml:"api_max"`
	APIWindow     string `toml:"api_window" yaml:"api_window"`
	AssetMax      int    `toml:"asset_max" yaml:"asset_max"`
	AssetWindow   string `toml:"asset_window" yaml:"asset_window"`
	SweepInterval string `toml:"sweep_interval" yaml:"sweep_interval"`
	TrustProxy    *bool  `toml:"trust_proxy" yaml:"trust_proxy"`
}

// UploadFileConfig is the [upload] table.
type UploadFileConfig struct {
	MaxBytes  int64  `toml:"max_bytes" yaml:"max_bytes"`
	MaxFiles  int    `toml:"max_files" yaml:"max_files"`
	AuthToken string `toml:"auth_token" yaml:"auth_token"`
}

// NotifyFileConfig is the [notify] table.
type NotifyFileConfig struct {
	URL         string `toml:"url" yaml:"url"`
	AuthKey     string `toml:"auth_key" yaml:"auth_key"`
	Timeout     string `toml:"timeout" yaml:"timeout"`
	BaseDelay   string `toml:"base_delay" yaml:"base_delay"`
	MaxDelay    string `toml:"max_delay" yaml:"max_delay"`
	MaxAttempts int    `toml:"max_attempts" yaml:"max_attempts"`
	QueueSize   int    `toml:"queue_size" yaml:"queue_size"`
}

// LoadFileConfig reads and parses a config file. Files ending in .yaml or
// .yml are parsed as YAML; everything else as TOML.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &fc)
	default:
		err = toml.Unmarshal(b, &fc)
	}
	if err != nil {
		return fc, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.assetcdn/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".assetcdn", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("listen", fc.ListenAddr, &cfg.ListenAddr)
	s.setString("asset-root", fc.AssetRoot, &cfg.AssetRoot)
	s.setStrings("categories", fc.Categories, &cfg.Categories)
	s.setString("auth-token", fc.Upload.AuthToken, &cfg.AuthToken)
	s.setString("notify-url", fc.Notify.URL, &cfg.NotifyURL)
	s.setString("notify-auth-key", fc.Notify.AuthKey, &cfg.NotifyAuthKey)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if len(fc.ContentTypes) > 0 {
		cfg.ContentTypes = fc.ContentTypes
	}

	durations := []struct {
		flag  string
		value string
		dst   *time.Duration
	}{
		{"cache-max-age", fc.CacheMaxAge, &cfg.CacheMaxAge},
		{"api-window", fc.RateLimit.APIWindow, &cfg.APIRateWindow},
		{"asset-window", fc.RateLimit.AssetWindow, &cfg.AssetRateWindow},
		{"sweep-interval", fc.RateLimit.SweepInterval, &cfg.SweepInterval},
		{"notify-timeout", fc.Notify.Timeout, &cfg.NotifyTimeout},
		{"notify-base-delay", fc.Notify.BaseDelay, &cfg.NotifyBaseDelay},
		{"notify-max-delay", fc.Notify.MaxDelay, &cfg.NotifyMaxDelay},
		{"shutdown-timeout", fc.ShutdownTimeout, &cfg.ShutdownTimeout},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, d.value, d.dst); err != nil {
			return err
		}
	}

	s.setInt("api-max", fc.RateLimit.APIMax, &cfg.APIRateMax)
	s.setInt("asset-max", fc.RateLimit.AssetMax, &cfg.AssetRateMax)
	s.setInt("compress-min-size", fc.CompressMinSize, &cfg.CompressMinSize)
	s.setInt64("upload-max-bytes", fc.Upload.MaxBytes, &cfg.UploadMaxBytes)
	s.setInt("upload-max-files", fc.Upload.MaxFiles, &cfg.UploadMaxFiles)
	s.setInt("notify-max-attempts", fc.Notify.MaxAttempts, &cfg.NotifyMaxAttempts)
	s.setInt("notify-queue-size", fc.Notify.QueueSize, &cfg.NotifyQueueSize)

	s.setBool("trust-proxy", fc.RateLimit.TrustProxy, &cfg.TrustProxy)
	s.setBool("log-json", fc.LogJSON, &cfg.LogJSON)
	s.setBool("watch-config", fc.WatchConfig, &cfg.WatchConfig)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// RateReloader returns a loader that re-reads rate profiles from a config
// file, layered over base the same way as at startup: file, then env, with
// explicitly set flags left untouched.
func RateReloader(base Config, changed map[string]bool) func(path string) (api, asset ratelimit.Profile, err error) {
	return func(path string) (ratelimit.Profile, ratelimit.Profile, error) {
		next := base
		fc, err := LoadFileConfig(path)
		if err != nil {
			return ratelimit.Profile{}, ratelimit.Profile{}, err
		}
		if err := ApplyFileConfig(&next, fc, changed); err != nil {
			return ratelimit.Profile{}, ratelimit.Profile{}, err
		}
		if err := ApplyEnvConfig(&next, changed); err != nil {
			return ratelimit.Profile{}, ratelimit.Profile{}, err
		}
		if err := next.Validate(); err != nil {
			return ratelimit.Profile{}, ratelimit.Profile{}, err
		}
		api, asset := next.RateProfiles()
		return api, asset, nil
	}
}
