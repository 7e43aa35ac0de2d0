package compress

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/bft-labs/assetcdn/pkg/log"
)

// Options configures the compression middleware.
type Options struct {
	// MinSize is the smallest body that is compressed. Zero means DefaultMinSize.
	MinSize int

	// Logger receives encoding failures. Nil discards them.
	Logger log.Logger
}

// Middleware buffers each response and compresses it when it is eligible
// and the client accepts a supported encoding. Mount it on API routes only;
// asset routes stream and must not be buffered.
func Middleware(opts Options) func(http.Handler) http.Handler {
	if opts.MinSize <= 0 {
		opts.MinSize = DefaultMinSize
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bw := &bufferedWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(bw, r)
			bw.finish(r, opts)
		})
	}
}

// bufferedWriter holds the status and body until the handler returns.
type bufferedWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (b *bufferedWriter) WriteHeader(code int) {
	if b.wroteHeader {
		return
	}
	b.status = code
	b.wroteHeader = true
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	b.wroteHeader = true
	return b.body.Write(p)
}

// Unwrap returns the underlying ResponseWriter.
func (b *bufferedWriter) Unwrap() http.ResponseWriter {
	return b.ResponseWriter
}

func (b *bufferedWriter) finish(r *http.Request, opts Options) {
	h := b.Header()
	body := b.body.Bytes()

	if Eligible(b.status, h, len(body), opts.MinSize) {
		addVary(h, "Accept-Encoding")

		if enc := Negotiate(r.Header.Get("Accept-Encoding")); enc != EncodingNone {
			encoded, err := Encode(enc, body)
			switch {
			case err != nil:
				opts.Logger.Warn("compression failed",
					log.String("encoding", string(enc)),
					log.String("path", r.URL.Path),
					log.Err(err),
				)
			case len(encoded) < len(body):
				h.Set("Content-Encoding", string(enc))
				body = encoded
			}
		}
	}

	if r.Method == http.MethodHead {
		b.ResponseWriter.WriteHeader(b.status)
		return
	}
	if b.status != http.StatusNotModified && b.status != http.StatusNoContent {
		h.Set("Content-Length", strconv.Itoa(len(body)))
	}
	b.ResponseWriter.WriteHeader(b.status)
	_, _ = b.ResponseWriter.Write(body)
}

func addVary(h http.Header, field string) {
	for _, v := range h.Values("Vary") {
		for _, existing := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(existing), field) {
				return
			}
		}
	}
	h.Add("Vary", field)
}
