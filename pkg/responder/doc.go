// Package responder turns a request for a named asset into a protocol-correct
// HTTP response.
//
// The Responder is the only delivery component that touches the asset store.
// For every GET or HEAD it evaluates, in order:
//
//  1. path resolution (paths escaping the asset root are reported as not found)
//  2. existence (404)
//  3. If-None-Match / If-Modified-Since against a weak entity tag (304)
//  4. the Range header (416 when unsatisfiable)
//  5. a 206 slice or a 200 full body
//
// HEAD follows the same decisions and produces the same headers as GET
// without a body. Serve returns the decision as a Response value so it can
// be inspected without a ResponseWriter; ServeHTTP writes it.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package responder
