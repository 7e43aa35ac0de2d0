package compress

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/bft-labs/assetcdn/internal/domain"
)

// Encoding is a supported content-coding.
type Encoding string

const (
	EncodingNone Encoding = ""
	EncodingZstd Encoding = "zstd"
	EncodingGzip Encoding = "gzip"
)

// DefaultMinSize is the body size below which compression is skipped.
const DefaultMinSize = 1024

// preference lists supported encodings from highest to lowest ratio.
var preference = []Encoding{EncodingZstd, EncodingGzip}

// Negotiate picks the best supported encoding acceptable to a client sending
// acceptEncoding. Encodings with q=0 are refused; "*" accepts any encoding
// not listed explicitly. Returns EncodingNone when nothing is acceptable.
func Negotiate(acceptEncoding string) Encoding {
	if strings.TrimSpace(acceptEncoding) == "" {
		return EncodingNone
	}

	qualities := make(map[string]float64)
	for _, part := range strings.Split(acceptEncoding, ",") {
		name, params, _ := strings.Cut(part, ";")
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		q := 1.0
		for _, p := range strings.Split(params, ";") {
			k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
			if !ok || strings.ToLower(strings.TrimSpace(k)) != "q" {
				continue
			}
			parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				parsed = 0
			}
			q = parsed
		}
		qualities[name] = q
	}

	for _, enc := range preference {
		q, ok := qualities[string(enc)]
		if !ok {
			q, ok = qualities["*"]
		}
		if ok && q > 0 {
			return enc
		}
	}
	return EncodingNone
}

// Eligible reports whether a response with the given status, headers and
// body size may be compressed at all, independent of the client.
func Eligible(status int, header http.Header, size, minSize int) bool {
	if status != http.StatusOK {
		return false
	}
	if header.Get("Content-Encoding") != "" || header.Get("Content-Range") != "" {
		return false
	}
	if size < minSize {
		return false
	}
	return domain.ClassifyContentType(header.Get("Content-Type")).Compressible()
}
