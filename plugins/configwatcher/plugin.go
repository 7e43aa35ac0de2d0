// Package configwatcher hot-reloads admission profiles for assetcdn.
// When enabled, it watches the server's config file and applies new
// rate-limit profiles without a restart.
package configwatcher

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/assetcdn/pkg/assetcdn"
	"github.com/bft-labs/assetcdn/pkg/log"
	"github.com/bft-labs/assetcdn/pkg/ratelimit"
)

// Loader reads the API and asset admission profiles from the file at path.
type Loader func(path string) (api, asset ratelimit.Profile, err error)

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// Path is the config file to watch. The plugin is a no-op when empty.
	Path string

	// Load parses Path into rate profiles.
	Load Loader

	// DebounceDelay is the quiet period after the last change before reloading.
	// Default: 250 milliseconds
	DebounceDelay time.Duration

	// OnReload, when set, observes every reload attempt.
	OnReload func(api, asset ratelimit.Profile, err error)
}

// DefaultConfig returns a Config with sensible defaults. Path and Load
// must still be set.
func DefaultConfig() Config {
	return Config{DebounceDelay: 250 * time.Millisecond}
}

// Plugin watches a config file and retunes the server's rate limiters.
type Plugin struct {
	mu sync.Mutex

	config Config
	logger log.Logger
	rates  assetcdn.RateTuner

	applied  bool
	lastAPI  ratelimit.Profile
	lastAsst ratelimit.Profile

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = DefaultConfig().DebounceDelay
	}
	return &Plugin{config: cfg, logger: log.NewNoopLogger()}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize starts watching the config file.
func (p *Plugin) Initialize(ctx context.Context, cfg assetcdn.PluginConfig) error {
	p.mu.Lock()
	if cfg.Logger != nil {
		p.logger = cfg.Logger
	}
	p.rates = cfg.Rates
	p.mu.Unlock()

	if p.config.Path == "" || p.config.Load == nil || p.rates == nil {
		p.logger.Warn("config watcher disabled: no config file")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory: editors often replace the file instead of writing it.
	if err := watcher.Add(filepath.Dir(p.config.Path)); err != nil {
		watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)

	p.logger.Info("config watcher started", log.String("path", p.config.Path))
	return nil
}

// Shutdown stops the watcher and any pending reload.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	target := filepath.Clean(p.config.Path)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			p.scheduleReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) scheduleReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.config.DebounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		p.reload()
	})
}

// reload applies the profiles in the config file. Invalid files are
// logged and the running profiles are kept.
func (p *Plugin) reload() {
	api, asset, err := p.config.Load(p.config.Path)
	if err == nil && (api.MaxRequests < 1 || asset.MaxRequests < 1 || api.Window <= 0 || asset.Window <= 0) {
		err = errors.New("rate profiles must be positive")
	}
	if p.config.OnReload != nil {
		defer p.config.OnReload(api, asset, err)
	}
	if err != nil {
		p.logger.Warn("config reload failed, keeping current rate profiles",
			log.String("path", p.config.Path),
			log.Err(err))
		return
	}

	p.mu.Lock()
	unchanged := p.applied && api == p.lastAPI && asset == p.lastAsst
	p.applied, p.lastAPI, p.lastAsst = true, api, asset
	p.mu.Unlock()

	if unchanged {
		p.logger.Debug("config changed, rate profiles unchanged")
		return
	}
	p.rates.SetRateProfiles(api, asset)
}

// Ensure Plugin implements assetcdn.Plugin.
var _ assetcdn.Plugin = (*Plugin)(nil)
