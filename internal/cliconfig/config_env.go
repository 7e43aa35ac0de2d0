package cliconfig

import (
	"os"
	"time"
)

func getenv(name string) string {
	return os.Getenv(EnvPrefix + name)
}

// ApplyEnvConfig applies configuration from environment variables (ASSETCDN_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("listen", getenv("LISTEN_ADDR"), &cfg.ListenAddr)
	s.setString("asset-root", getenv("ASSET_ROOT"), &cfg.AssetRoot)
	s.setStringsFromString("categories", getenv("CATEGORIES"), &cfg.Categories)
	s.setString("auth-token", getenv("AUTH_TOKEN"), &cfg.AuthToken)
	s.setString("notify-url", getenv("NOTIFY_URL"), &cfg.NotifyURL)
	s.setString("notify-auth-key", getenv("NOTIFY_AUTH_KEY"), &cfg.NotifyAuthKey)
	s.setString("log-level", getenv("LOG_LEVEL"), &cfg.LogLevel)

	durations := []struct {
		flag string
		env  string
		dst  *time.Duration
	}{
		{"cache-max-age", "CACHE_MAX_AGE", &cfg.CacheMaxAge},
		{"api-window", "API_WINDOW", &cfg.APIRateWindow},
		{"asset-window", "ASSET_WINDOW", &cfg.AssetRateWindow},
		{"sweep-interval", "SWEEP_INTERVAL", &cfg.SweepInterval},
		{"notify-timeout", "NOTIFY_TIMEOUT", &cfg.NotifyTimeout},
		{"notify-base-delay", "NOTIFY_BASE_DELAY", &cfg.NotifyBaseDelay},
		{"notify-max-delay", "NOTIFY_MAX_DELAY", &cfg.NotifyMaxDelay},
		{"shutdown-timeout", "SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, getenv(d.env), d.dst); err != nil {
			return err
		}
	}

	ints := []struct {
		flag string
		env  string
		dst  *int
	}{
		{"api-max", "API_MAX", &cfg.APIRateMax},
		{"asset-max", "ASSET_MAX", &cfg.AssetRateMax},
		{"compress-min-size", "COMPRESS_MIN_SIZE", &cfg.CompressMinSize},
		{"upload-max-files", "UPLOAD_MAX_FILES", &cfg.UploadMaxFiles},
		{"notify-max-attempts", "NOTIFY_MAX_ATTEMPTS", &cfg.NotifyMaxAttempts},
		{"notify-queue-size", "NOTIFY_QUEUE_SIZE", &cfg.NotifyQueueSize},
	}
	for _, i := range ints {
		if err := s.setIntFromString(i.flag, getenv(i.env), i.dst); err != nil {
			return err
		}
	}
	if err := s.setInt64FromString("upload-max-bytes", getenv("UPLOAD_MAX_BYTES"), &cfg.UploadMaxBytes); err != nil {
		return err
	}

	s.setBoolFromString("trust-proxy", getenv("TRUST_PROXY"), &cfg.TrustProxy)
	s.setBoolFromString("log-json", getenv("LOG_JSON"), &cfg.LogJSON)
	s.setBoolFromString("watch-config", getenv("WATCH_CONFIG"), &cfg.WatchConfig)

	return nil
}
