package compress

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

func TestNegotiate(t *testing.T) {
	tests := []struct {
		header string
		want   Encoding
	}{
		{"", EncodingNone},
		{"identity", EncodingNone},
		{"gzip", EncodingGzip},
		{"gzip, deflate, br, zstd", EncodingZstd},
		{"zstd;q=0, gzip", EncodingGzip},
		{"gzip;q=0", EncodingNone},
		{"*", EncodingZstd},
		{"*;q=0.5, zstd;q=0", EncodingGzip},
		{"GZIP;Q=0.8", EncodingGzip},
		{"br", EncodingNone},
	}

	for _, tt := range tests {
		if got := Negotiate(tt.header); got != tt.want {
			t.Errorf("Negotiate(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestEligible(t *testing.T) {
	header := func(kv ...string) http.Header {
		h := http.Header{}
		for i := 0; i < len(kv); i += 2 {
			h.Set(kv[i], kv[i+1])
		}
		return h
	}

	tests := []struct {
		name   string
		status int
		header http.Header
		size   int
		want   bool
	}{
		{"json", 200, header("Content-Type", "application/json"), 2048, true},
		{"svg", 200, header("Content-Type", "image/svg+xml"), 2048, true},
		{"below threshold", 200, header("Content-Type", "application/json"), 1023, false},
		{"at threshold", 200, header("Content-Type", "application/json"), 1024, true},
		{"model", 200, header("Content-Type", "model/gltf-binary"), 1 << 20, false},
		{"audio", 200, header("Content-Type", "audio/mpeg"), 1 << 20, false},
		{"partial", 206, header("Content-Type", "text/plain"), 2048, false},
		{"content range", 200, header("Content-Type", "text/plain", "Content-Range", "bytes 0-1/2"), 2048, false},
		{"already encoded", 200, header("Content-Type", "text/plain", "Content-Encoding", "gzip"), 2048, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Eligible(tt.status, tt.header, tt.size, DefaultMinSize); got != tt.want {
				t.Errorf("Eligible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func serve(t *testing.T, contentType string, body []byte, acceptEncoding string) *httptest.ResponseRecorder {
	t.Helper()
	handler := Middleware(Options{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(body)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/assets/models", nil)
	if acceptEncoding != "" {
		req.Header.Set("Accept-Encoding", acceptEncoding)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware_ZstdRoundTrip(t *testing.T) {
	body := []byte(strings.Repeat(`{"path":"models/a/a.glb","size":1000},`, 100))

	rec := serve(t, "application/json", body, "gzip, zstd")
	if got := rec.Header().Get("Content-Encoding"); got != "zstd" {
		t.Fatalf("Content-Encoding = %q, want zstd", got)
	}
	if got := rec.Header().Get("Vary"); got != "Accept-Encoding" {
		t.Errorf("Vary = %q", got)
	}
	if rec.Header().Get("Content-Length") != strconv.Itoa(rec.Body.Len()) {
		t.Errorf("Content-Length = %s, body %d", rec.Header().Get("Content-Length"), rec.Body.Len())
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer dec.Close()
	decoded, err := dec.DecodeAll(rec.Body.Bytes(), nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(decoded, body) {
		t.Error("decoded body differs from source")
	}
}

func TestMiddleware_GzipRoundTrip(t *testing.T) {
	body := []byte(strings.Repeat("body { color: red; }\n", 200))

	rec := serve(t, "text/css", body, "gzip")
	if got := rec.Header().Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("Content-Encoding = %q, want gzip", got)
	}

	zr, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	decoded, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(decoded, body) {
		t.Error("decoded body differs from source")
	}
}

func TestMiddleware_PassThrough(t *testing.T) {
	large := bytes.Repeat([]byte("a"), 4096)

	tests := []struct {
		name        string
		contentType string
		body        []byte
		accept      string
		wantVary    bool
	}{
		{"binary media", "model/gltf-binary", large, "zstd, gzip", false},
		{"small body", "application/json", []byte(`{"ok":true}`), "zstd, gzip", false},
		{"no accept", "application/json", large, "", true},
		{"unsupported accept", "application/json", large, "br", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, tt.contentType, tt.body, tt.accept)
			if enc := rec.Header().Get("Content-Encoding"); enc != "" {
				t.Errorf("Content-Encoding = %q, want none", enc)
			}
			if !bytes.Equal(rec.Body.Bytes(), tt.body) {
				t.Error("body was modified")
			}
			if (rec.Header().Get("Vary") != "") != tt.wantVary {
				t.Errorf("Vary = %q, wantVary %v", rec.Header().Get("Vary"), tt.wantVary)
			}
		})
	}
}

func TestMiddleware_NeverCompressesPartial(t *testing.T) {
	body := []byte(strings.Repeat("text ", 1000))
	handler := Middleware(Options{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("Content-Range", "bytes 0-4999/10000")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write(body)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", rec.Code)
	}
	if rec.Header().Get("Content-Encoding") != "" {
		t.Error("206 response was compressed")
	}
	if !bytes.Equal(rec.Body.Bytes(), body) {
		t.Error("206 body was modified")
	}
}
