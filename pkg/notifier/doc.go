// Package notifier delivers upload notifications to an external endpoint
// with bounded retries.
//
// Each DeliveryEvent moves through a small state machine:
//
//	Pending -> Attempting(n) -> Delivered | Abandoned
//
// A 2xx response delivers the event. A 4xx response abandons it at once,
// since the payload itself was refused. Server errors, network failures and
// attempt timeouts schedule another attempt after BaseDelay * 2^(n-1) until
// MaxAttempts is reached.
//
// Enqueue never blocks: the write path hands an event to a buffered queue
// and returns, and background workers own the event from then on.
//
// # Usage
//
//	sink := notifier.NewHTTPSink(http.DefaultClient, notifier.SinkConfig{URL: url, AuthKey: key})
//	n := notifier.New(sink, notifier.DefaultConfig(), notifier.WithLogger(logger))
//	n.Start(ctx)
//	defer n.Close(shutdownCtx)
//
//	n.Enqueue(event)
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package notifier
