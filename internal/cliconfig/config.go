package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/assetcdn/pkg/assetcdn"
	"github.com/bft-labs/assetcdn/pkg/ratelimit"
)

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "ASSETCDN_"

// Config holds CLI configuration for assetcdn.
type Config struct {
	ListenAddr   string
	AssetRoot    string
	Categories   []string
	ContentTypes map[string]string
	CacheMaxAge  time.Duration

	APIRateMax      int
	APIRateWindow   time.Duration
	AssetRateMax    int
	AssetRateWindow time.Duration
	SweepInterval   time.Duration
	TrustProxy      bool

	CompressMinSize int
	UploadMaxBytes  int64
	UploadMaxFiles  int
	AuthToken       string

	NotifyURL         string
	NotifyAuthKey     string
	NotifyTimeout     time.Duration
	NotifyBaseDelay   time.Duration
	NotifyMaxDelay    time.Duration
	NotifyMaxAttempts int
	NotifyQueueSize   int

	ShutdownTimeout time.Duration
	LogLevel        string
	LogJSON         bool
	WatchConfig     bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	d := assetcdn.DefaultConfig()
	return Config{
		ListenAddr:        d.ListenAddr,
		Categories:        d.Categories,
		CacheMaxAge:       d.CacheMaxAge,
		APIRateMax:        d.APIRate.MaxRequests,
		APIRateWindow:     d.APIRate.Window,
		AssetRateMax:      d.AssetRate.MaxRequests,
		AssetRateWindow:   d.AssetRate.Window,
		SweepInterval:     d.SweepInterval,
		CompressMinSize:   d.CompressMinSize,
		UploadMaxBytes:    d.UploadMaxBytes,
		UploadMaxFiles:    d.UploadMaxFiles,
		NotifyTimeout:     10 * time.Second,
		NotifyBaseDelay:   time.Second,
		NotifyMaxDelay:    time.Minute,
		NotifyMaxAttempts: 5,
		NotifyQueueSize:   256,
		ShutdownTimeout:   d.ShutdownTimeout,
		LogLevel:          "info",
	}
}

// Validate checks the configuration for errors and normalizes derived values.
func (c *Config) Validate() error {
	if c.AssetRoot == "" {
		return fmt.Errorf("asset-root is required")
	}

	c.NotifyURL = strings.TrimRight(c.NotifyURL, "/")

	if c.APIRateMax <= 0 || c.AssetRateMax <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	if c.APIRateWindow <= 0 || c.AssetRateWindow <= 0 {
		return fmt.Errorf("rate windows must be positive")
	}
	if c.NotifyURL == "" && c.NotifyAuthKey != "" {
		return fmt.Errorf("notify-auth-key set without notify-url")
	}

	return nil
}

// RateProfiles returns the API and asset admission profiles.
func (c Config) RateProfiles() (api, asset ratelimit.Profile) {
	return ratelimit.Profile{MaxRequests: c.APIRateMax, Window: c.APIRateWindow},
		ratelimit.Profile{MaxRequests: c.AssetRateMax, Window: c.AssetRateWindow}
}

// ServerConfig converts c to the library configuration.
func (c Config) ServerConfig() assetcdn.Config {
	api, asset := c.RateProfiles()
	return assetcdn.Config{
		ListenAddr:      c.ListenAddr,
		AssetRoot:       c.AssetRoot,
		Categories:      c.Categories,
		ContentTypes:    c.ContentTypes,
		CacheMaxAge:     c.CacheMaxAge,
		APIRate:         api,
		AssetRate:       asset,
		SweepInterval:   c.SweepInterval,
		TrustProxy:      c.TrustProxy,
		CompressMinSize: c.CompressMinSize,
		UploadMaxBytes:  c.UploadMaxBytes,
		UploadMaxFiles:  c.UploadMaxFiles,
		AuthToken:       c.AuthToken,
		Notify: assetcdn.NotifyConfig{
			URL:         c.NotifyURL,
			AuthKey:     c.NotifyAuthKey,
			Timeout:     c.NotifyTimeout,
			BaseDelay:   c.NotifyBaseDelay,
			MaxDelay:    c.NotifyMaxDelay,
			MaxAttempts: c.NotifyMaxAttempts,
			QueueSize:   c.NotifyQueueSize,
		},
		ShutdownTimeout: c.ShutdownTimeout,
	}
}

// Masked returns a copy safe to log.
func (c Config) Masked() Config {
	if c.AuthToken != "" {
		c.AuthToken = "*****"
	}
	if c.NotifyAuthKey != "" {
		c.NotifyAuthKey = "*****"
	}
	return c
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setStrings sets a list value if not empty and flag not changed.
func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt64 sets an int64 value if positive and flag not changed.
func (s *configSetter) setInt64(flag string, value int64, dst *int64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setStringsFromString splits a comma-separated list.
func (s *configSetter) setStringsFromString(flag, value string, dst *[]string) {
	if value == "" || s.changed[flag] {
		return
	}
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) > 0 {
		*dst = out
	}
}

// setIntFromString parses a string to int and sets the destination if valid.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setInt64FromString parses a string to int64 and sets the destination if valid.
func (s *configSetter) setInt64FromString(flag, value string, dst *int64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
