// Package ratelimit provides fixed-window admission control keyed by client
// fingerprint.
//
// A Limiter is an explicitly owned store: construct one per route class with
// its own Profile and inject it where it is needed. Limiters are safe for
// concurrent use.
//
// # Usage
//
//	assets := ratelimit.New(ratelimit.Profile{MaxRequests: 1000, Window: time.Minute}, clock.Real())
//	go assets.Run(ctx, time.Minute)
//
//	handler = ratelimit.Middleware(assets, ratelimit.FingerprintFunc(false), logger)(handler)
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package ratelimit
