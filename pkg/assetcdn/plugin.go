package assetcdn

import (
	"context"

	"github.com/bft-labs/assetcdn/pkg/log"
	"github.com/bft-labs/assetcdn/pkg/ratelimit"
)

// Plugin extends a Server with a component that shares its lifetime.
type Plugin interface {
	// Name identifies the plugin in logs.
	Name() string

	// Initialize is called from Start before the listener accepts requests.
	// Returning an error aborts Start.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown is called from Stop after the listener has drained.
	Shutdown(ctx context.Context) error
}

// RateTuner changes admission profiles while the server runs.
type RateTuner interface {
	SetRateProfiles(api, asset ratelimit.Profile)
}

// PluginConfig is handed to every plugin on Initialize.
type PluginConfig struct {
	AssetRoot string
	Logger    log.Logger
	Rates     RateTuner
}
