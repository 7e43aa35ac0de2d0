// Package compress negotiates and applies HTTP content-coding for text-like
// responses.
//
// Only full 200 responses whose media class is compressible and whose body
// reaches MinSize are encoded. zstd is preferred over gzip when the client
// accepts both. Partial (206) responses and bodies that already carry a
// Content-Encoding are never touched.
//
// # Usage
//
//	api = compress.Middleware(compress.Options{MinSize: 1024})(api)
package compress
