// Package assetcdn serves immutable 3D, animation, audio and image assets
// over HTTP with byte ranges, revalidation and admission control.
//
// Example usage:
//
//	cfg := assetcdn.DefaultConfig()
//	cfg.AssetRoot = "/srv/assets"
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	if err := assetcdn.Run(ctx, cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// For finer control over the server lifecycle use pkg/assetcdn directly.
package assetcdn

import (
	"context"

	"github.com/rs/zerolog"

	server "github.com/bft-labs/assetcdn/pkg/assetcdn"
	"github.com/bft-labs/assetcdn/pkg/log"
)

// Config holds the configuration for the asset server.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = server.Config

// Option configures optional behavior of the server.
type Option = server.Option

var logger zerolog.Logger

func init() {
	logger, _ = log.NewZerolog(log.Options{})
}

// DefaultConfig returns a Config with sensible default values.
// At minimum, you must set AssetRoot before calling Run.
func DefaultConfig() Config {
	return server.DefaultConfig()
}

// Run starts the server and blocks until ctx is canceled, then shuts it
// down gracefully. Unless an Option overrides it, the package logger is used.
func Run(ctx context.Context, cfg Config, opts ...Option) error {
	opts = append([]Option{server.WithLogger(log.NewZerologAdapterWithLogger(logger))}, opts...)

	srv, err := server.New(cfg, opts...)
	if err != nil {
		return err
	}
	if err := srv.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	return srv.Stop()
}

// Logger returns the package-level zerolog logger used by Run.
func Logger() zerolog.Logger {
	return logger
}
