// Package assetcdn provides an embeddable CDN for immutable 3D, animation,
// audio and image assets.
//
// Assets live on disk below an asset root, one directory per category.
// Every category is served at /<category>/ with byte ranges, weak-ETag
// revalidation and long-lived immutable caching. A small JSON API under
// /api accepts uploads and lists published assets.
//
// # Basic Usage
//
//	cfg := assetcdn.DefaultConfig()
//	cfg.AssetRoot = "/srv/assets"
//	cfg.AuthToken = "upload-token"
//
//	srv, err := assetcdn.New(cfg, assetcdn.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	// ... run until shutdown signal ...
//
//	if err := srv.Stop(); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
//
// # Routes
//
//   - GET|HEAD /<category>/{path...} serves an asset (200, 206, 304, 404, 416)
//   - POST /api/assets/{category} uploads multipart "files" parts (201)
//   - GET /api/assets/{category} lists a category
//   - GET /healthz reports the lifecycle state
//
// Every route passes through admission control. Category routes use
// Config.AssetRate; API routes use Config.APIRate. Only API responses
// are compressed.
//
// # Notifications
//
// When Config.Notify.URL is set, each upload enqueues a delivery event
// that is POSTed to the URL in the background with exponential backoff.
// The upload response never waits for delivery.
//
// # Plugins
//
// Components that share the server lifetime implement [Plugin] and are
// registered with [WithPlugin]:
//
//	import "github.com/bft-labs/assetcdn/plugins/configwatcher"
//
//	srv, err := assetcdn.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{Path: cfgFile, Load: loadRates}),
//	)
//
// # Lifecycle States
//
// A Server can be in one of five states: [StateStopped], [StateStarting],
// [StateRunning], [StateStopping], or [StateCrashed]. Use [Server.Status]
// to query the current state.
//
// # Version
//
// Current version: 1.0.0
package assetcdn
