package configwatcher

import "github.com/bft-labs/assetcdn/pkg/assetcdn"

// WithConfigWatcher returns an assetcdn Option that reloads rate profiles
// whenever cfg.Path changes.
//
// Usage:
//
//	srv, err := assetcdn.New(serverCfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        Path: "/etc/assetcdn/config.toml",
//	        Load: cliconfig.RateReloader(cfg, changed),
//	    }),
//	)
func WithConfigWatcher(cfg Config) assetcdn.Option {
	return assetcdn.WithPlugin(New(cfg))
}
