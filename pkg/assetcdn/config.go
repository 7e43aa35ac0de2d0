package assetcdn

import (
	"fmt"
	"strings"
	"time"

	"github.com/bft-labs/assetcdn/internal/domain"
	"github.com/bft-labs/assetcdn/pkg/compress"
	"github.com/bft-labs/assetcdn/pkg/lifecycle"
	"github.com/bft-labs/assetcdn/pkg/ratelimit"
	"github.com/bft-labs/assetcdn/pkg/responder"
)

// Default values for Config.
const (
	DefaultListenAddr      = ":8080"
	DefaultSweepInterval   = time.Minute
	DefaultUploadMaxBytes  = 256 << 20
	DefaultUploadMaxFiles  = 32
	DefaultShutdownTimeout = lifecycle.ShutdownTimeout
)

// DefaultCategories are served when Config.Categories is empty.
var DefaultCategories = []string{"models", "animations", "audio", "images"}

// reservedCategories collide with non-asset routes.
var reservedCategories = map[string]bool{"api": true, "healthz": true}

// DefaultAPIRate is the admission profile of /api routes.
var DefaultAPIRate = ratelimit.Profile{MaxRequests: 60, Window: time.Minute}

// DefaultAssetRate is the admission profile of category routes.
var DefaultAssetRate = ratelimit.Profile{MaxRequests: 1200, Window: time.Minute}

// NotifyConfig configures outbound delivery notifications.
// Notifications are disabled when URL is empty.
type NotifyConfig struct {
	URL         string
	AuthKey     string
	Timeout     time.Duration
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
	QueueSize   int
	Workers     int
}

// Config holds server settings.
type Config struct {
	// ListenAddr is the TCP address the server binds.
	ListenAddr string

	// AssetRoot is the directory every category lives under. Required.
	AssetRoot string

	// Categories are the top-level directories served at /<category>/.
	Categories []string

	// ContentTypes forces a Content-Type per category.
	ContentTypes map[string]string

	// CacheMaxAge is advertised in Cache-Control on asset responses.
	CacheMaxAge time.Duration

	// APIRate and AssetRate are the admission profiles per route class.
	APIRate   ratelimit.Profile
	AssetRate ratelimit.Profile

	// SweepInterval is how often expired rate windows are dropped.
	SweepInterval time.Duration

	// TrustProxy honours the first X-Forwarded-For hop when fingerprinting.
	TrustProxy bool

	// CompressMinSize is the smallest API body that is compressed.
	CompressMinSize int

	// UploadMaxBytes caps each uploaded file; UploadMaxFiles caps the
	// number of files per upload.
	UploadMaxBytes int64
	UploadMaxFiles int

	// AuthToken gates mutating routes behind a bearer token when set.
	AuthToken string

	// Notify configures the delivery notifier.
	Notify NotifyConfig

	// ShutdownTimeout bounds graceful shutdown in Stop.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
// AssetRoot must still be set.
func DefaultConfig() Config {
	cfg := Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills every zero field with its default.
func (c *Config) SetDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if len(c.Categories) == 0 {
		c.Categories = append([]string(nil), DefaultCategories...)
	}
	if c.CacheMaxAge <= 0 {
		c.CacheMaxAge = responder.DefaultMaxAge
	}
	if c.APIRate.MaxRequests <= 0 {
		c.APIRate.MaxRequests = DefaultAPIRate.MaxRequests
	}
	if c.APIRate.Window <= 0 {
		c.APIRate.Window = DefaultAPIRate.Window
	}
	if c.AssetRate.MaxRequests <= 0 {
		c.AssetRate.MaxRequests = DefaultAssetRate.MaxRequests
	}
	if c.AssetRate.Window <= 0 {
		c.AssetRate.Window = DefaultAssetRate.Window
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	if c.CompressMinSize <= 0 {
		c.CompressMinSize = compress.DefaultMinSize
	}
	if c.UploadMaxBytes <= 0 {
		c.UploadMaxBytes = DefaultUploadMaxBytes
	}
	if c.UploadMaxFiles <= 0 {
		c.UploadMaxFiles = DefaultUploadMaxFiles
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// Validate reports the first invalid setting, wrapped in domain.ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.AssetRoot == "" {
		return fmt.Errorf("%w: asset root is required", domain.ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		switch {
		case cat == "" || cat == "." || cat == "..":
			return fmt.Errorf("%w: invalid category %q", domain.ErrInvalidConfig, cat)
		case strings.ContainsAny(cat, "/\\"):
			return fmt.Errorf("%w: category %q must be a single path segment", domain.ErrInvalidConfig, cat)
		case reservedCategories[cat]:
			return fmt.Errorf("%w: category %q is reserved", domain.ErrInvalidConfig, cat)
		case seen[cat]:
			return fmt.Errorf("%w: duplicate category %q", domain.ErrInvalidConfig, cat)
		}
		seen[cat] = true
	}

	for cat := range c.ContentTypes {
		if !seen[cat] {
			return fmt.Errorf("%w: content type override for unknown category %q", domain.ErrInvalidConfig, cat)
		}
	}

	if c.APIRate.MaxRequests < 1 || c.AssetRate.MaxRequests < 1 {
		return fmt.Errorf("%w: rate limits must allow at least one request", domain.ErrInvalidConfig)
	}

	if c.Notify.URL != "" && !strings.HasPrefix(c.Notify.URL, "http://") && !strings.HasPrefix(c.Notify.URL, "https://") {
		return fmt.Errorf("%w: notify url must be http or https", domain.ErrInvalidConfig)
	}
	if c.Notify.MaxAttempts < 0 || c.Notify.QueueSize < 0 {
		return fmt.Errorf("%w: notify attempts and queue size must not be negative", domain.ErrInvalidConfig)
	}

	return nil
}
