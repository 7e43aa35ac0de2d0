package assetcdn

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/assetcdn/internal/adapters/fs"
	"github.com/bft-labs/assetcdn/internal/domain"
	"github.com/bft-labs/assetcdn/pkg/lifecycle"
	"github.com/bft-labs/assetcdn/pkg/log"
	"github.com/bft-labs/assetcdn/pkg/notifier"
	"github.com/bft-labs/assetcdn/pkg/ratelimit"
	"github.com/bft-labs/assetcdn/pkg/responder"
)

// State is the lifecycle state of a Server.
type State = lifecycle.State

// Lifecycle states re-exported for callers of Status.
const (
	StateStopped  = lifecycle.StateStopped
	StateStarting = lifecycle.StateStarting
	StateRunning  = lifecycle.StateRunning
	StateStopping = lifecycle.StateStopping
	StateCrashed  = lifecycle.StateCrashed
)

// Server is an embeddable asset CDN.
// Use New() to create an instance, then Start() to begin serving.
type Server struct {
	config     Config
	opts       options
	logger     log.Logger
	lifecycle  *lifecycle.DefaultManager
	store      *fs.AssetStore
	responder  *responder.Responder
	apiLimit   *ratelimit.Limiter
	assetLimit *ratelimit.Limiter
	categories map[string]bool
	handler    http.Handler

	notifier atomic.Pointer[notifier.Notifier]

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	cancel     context.CancelFunc
}

// New creates a Server with the given configuration.
// The instance is created in StateStopped; call Start() to begin serving.
func New(cfg Config, opts ...Option) (*Server, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	store, err := fs.NewAssetStore(cfg.AssetRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: asset root: %v", domain.ErrInvalidConfig, err)
	}

	s := &Server{
		config:     cfg,
		opts:       o,
		logger:     o.logger,
		lifecycle:  lifecycle.NewManager(o.logger, o.onState),
		store:      store,
		apiLimit:   ratelimit.New(cfg.APIRate, o.clock),
		assetLimit: ratelimit.New(cfg.AssetRate, o.clock),
		categories: make(map[string]bool, len(cfg.Categories)),
	}
	for _, c := range cfg.Categories {
		s.categories[c] = true
	}
	s.responder = responder.New(store, responder.Config{
		MaxAge:       cfg.CacheMaxAge,
		Categories:   cfg.Categories,
		ContentTypes: cfg.ContentTypes,
	}, o.logger)
	s.handler = s.routes()

	return s, nil
}

// Handler returns the complete HTTP handler, for embedding in another server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start binds the listener and begins serving in the background.
// Returns an error if already running or if startup fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := s.lifecycle.TransitionTo(lifecycle.StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)

	pluginCfg := PluginConfig{
		AssetRoot: s.store.Root(),
		Logger:    s.logger,
		Rates:     s,
	}
	for i, p := range s.opts.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			s.logger.Error("plugin initialization failed",
				log.String("plugin", p.Name()),
				log.Err(err))
			s.shutdownPlugins(context.Background(), s.opts.plugins[:i])
			cancel()
			_ = s.lifecycle.TransitionTo(lifecycle.StateCrashed, "plugin init failed: "+p.Name())
			return err
		}
		s.logger.Info("plugin initialized", log.String("plugin", p.Name()))
	}

	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		s.shutdownPlugins(context.Background(), s.opts.plugins)
		cancel()
		_ = s.lifecycle.TransitionTo(lifecycle.StateCrashed, "listen failed")
		return fmt.Errorf("listen %s: %w", s.config.ListenAddr, err)
	}

	if n := s.newNotifier(); n != nil {
		n.Start(runCtx)
		s.notifier.Store(n)
	}

	s.lifecycle.Go(func() { s.apiLimit.Run(runCtx, s.config.SweepInterval) })
	s.lifecycle.Go(func() { s.assetLimit.Run(runCtx, s.config.SweepInterval) })

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return runCtx },
	}
	s.httpServer = srv
	s.listener = ln
	s.cancel = cancel

	s.lifecycle.Go(func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", log.Err(err))
			_ = s.lifecycle.TransitionTo(lifecycle.StateCrashed, err.Error())
		}
	})

	s.logger.Info("serving assets",
		log.String("addr", ln.Addr().String()),
		log.String("root", s.store.Root()),
		log.Strings("categories", s.config.Categories),
	)

	return s.lifecycle.TransitionTo(lifecycle.StateRunning, "listener bound")
}

// Stop drains in-flight requests and queued notifications, then shuts
// down plugins. Returns ErrShutdownTimeout if draining exceeds
// Config.ShutdownTimeout.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.lifecycle.CanStop() {
		s.mu.Unlock()
		return domain.ErrNotRunning
	}
	if err := s.lifecycle.TransitionTo(lifecycle.StateStopping, "Stop() called"); err != nil {
		s.mu.Unlock()
		return err
	}
	srv, cancel := s.httpServer, s.cancel
	s.mu.Unlock()

	ctx, done := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer done()

	var errs []error
	if err := srv.Shutdown(ctx); err != nil {
		_ = srv.Close()
		errs = append(errs, fmt.Errorf("%w: http: %v", domain.ErrShutdownTimeout, err))
	}

	if n := s.notifier.Swap(nil); n != nil {
		if err := n.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	cancel()
	if err := s.lifecycle.Wait(ctx); err != nil {
		errs = append(errs, err)
	}

	s.shutdownPlugins(ctx, s.opts.plugins)

	if err := errors.Join(errs...); err != nil {
		_ = s.lifecycle.TransitionTo(lifecycle.StateCrashed, "shutdown timeout")
		return err
	}
	_ = s.lifecycle.TransitionTo(lifecycle.StateStopped, "graceful shutdown")
	return nil
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (s *Server) Status() State {
	return s.lifecycle.State()
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// SetRateProfiles replaces both admission profiles. Existing windows keep
// their counts and expire on their original schedule.
func (s *Server) SetRateProfiles(api, asset ratelimit.Profile) {
	s.apiLimit.SetProfile(api)
	s.assetLimit.SetProfile(asset)
	s.logger.Info("rate profiles updated",
		log.Int("api_max", api.MaxRequests),
		log.Duration("api_window", api.Window),
		log.Int("asset_max", asset.MaxRequests),
		log.Duration("asset_window", asset.Window),
	)
}

func (s *Server) newNotifier() *notifier.Notifier {
	nc := s.config.Notify
	sink := s.opts.sink
	if sink == nil {
		if nc.URL == "" {
			return nil
		}
		client := s.opts.httpClient
		if client == nil {
			client = &http.Client{}
		}
		sink = notifier.NewHTTPSink(client, notifier.SinkConfig{URL: nc.URL, AuthKey: nc.AuthKey})
	}

	return notifier.New(sink, notifier.Config{
		QueueSize:      nc.QueueSize,
		Workers:        nc.Workers,
		AttemptTimeout: nc.Timeout,
		BaseDelay:      nc.BaseDelay,
		MaxDelay:       nc.MaxDelay,
		MaxAttempts:    nc.MaxAttempts,
		Jitter:         0.2,
	},
		notifier.WithLogger(s.logger),
		notifier.WithClock(s.opts.clock),
		notifier.WithObserver(s.opts.onNotification),
	)
}

func (s *Server) shutdownPlugins(ctx context.Context, plugins []Plugin) {
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			s.logger.Error("plugin shutdown failed",
				log.String("plugin", p.Name()),
				log.Err(err))
			continue
		}
		s.logger.Info("plugin shutdown complete", log.String("plugin", p.Name()))
	}
}

// validateModuleVersions checks that all module versions are compatible.
func validateModuleVersions() error {
	modules := map[string]struct {
		version    string
		minVersion string
	}{
		"log":       {log.Version, log.MinCompatibleVersion},
		"lifecycle": {lifecycle.Version, lifecycle.MinCompatibleVersion},
		"ratelimit": {ratelimit.Version, ratelimit.MinCompatibleVersion},
		"responder": {responder.Version, responder.MinCompatibleVersion},
		"notifier":  {notifier.Version, notifier.MinCompatibleVersion},
	}

	for name, m := range modules {
		if !isVersionCompatible(m.version, m.minVersion) {
			return fmt.Errorf("module %s version %s is below minimum compatible version %s",
				name, m.version, m.minVersion)
		}
	}
	return nil
}

// isVersionCompatible reports whether version >= minVersion.
// Versions are "major.minor.patch".
func isVersionCompatible(version, minVersion string) bool {
	var vMajor, vMinor, vPatch int
	var mMajor, mMinor, mPatch int

	_, _ = fmt.Sscanf(version, "%d.%d.%d", &vMajor, &vMinor, &vPatch)
	_, _ = fmt.Sscanf(minVersion, "%d.%d.%d", &mMajor, &mMinor, &mPatch)

	if vMajor != mMajor {
		return vMajor > mMajor
	}
	if vMinor != mMinor {
		return vMinor > mMinor
	}
	return vPatch >= mPatch
}
