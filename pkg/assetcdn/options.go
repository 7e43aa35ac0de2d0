package assetcdn

import (
	"github.com/bft-labs/assetcdn/pkg/clock"
	"github.com/bft-labs/assetcdn/pkg/lifecycle"
	"github.com/bft-labs/assetcdn/pkg/log"
	"github.com/bft-labs/assetcdn/pkg/notifier"
)

// Option configures optional behavior of a Server.
type Option func(*options)

type options struct {
	httpClient     notifier.HTTPClient
	sink           notifier.Sink
	logger         log.Logger
	clock          clock.Clock
	plugins        []Plugin
	onState        lifecycle.Observer
	onNotification notifier.Observer
}

func defaultOptions() options {
	return options{
		logger: log.NewNoopLogger(),
		clock:  clock.Real(),
	}
}

// WithHTTPClient sets the client used by the notification sink.
// If not provided, a default http.Client is used; each attempt is bounded by
// the notify timeout through its context.
func WithHTTPClient(client notifier.HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithNotificationSink replaces the HTTP webhook sink. Notifications are
// enabled even when no notify URL is configured.
func WithNotificationSink(sink notifier.Sink) Option {
	return func(o *options) {
		o.sink = sink
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock sets the clock used by rate limiting and notification retries.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithPlugin registers a plugin to be initialized when the server starts.
// Plugins are initialized in registration order and shut down in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithStateObserver is called on every lifecycle transition.
func WithStateObserver(fn lifecycle.Observer) Option {
	return func(o *options) {
		o.onState = fn
	}
}

// WithNotificationObserver is called on every notification state transition.
func WithNotificationObserver(fn notifier.Observer) Option {
	return func(o *options) {
		o.onNotification = fn
	}
}
