package responder

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/bft-labs/assetcdn/internal/adapters/fs"
	"github.com/bft-labs/assetcdn/internal/domain"
)

type fixture struct {
	root      string
	responder *Responder
	content   []byte
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	root := t.TempDir()
	store, err := fs.NewAssetStore(root)
	if err != nil {
		t.Fatalf("NewAssetStore: %v", err)
	}

	content := make([]byte, 1000)
	for i := range content {
		content[i] = byte(i % 251)
	}

	f := &fixture{root: store.Root(), responder: New(store, cfg, nil), content: content}
	f.write(t, "models/a/a.glb", content)
	return f
}

func (f *fixture) write(t *testing.T, rel string, data []byte) string {
	t.Helper()
	full := filepath.Join(f.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return full
}

func (f *fixture) do(t *testing.T, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.responder.ServeHTTP(rec, req)
	return rec
}

func TestServeHTTP_FullBody(t *testing.T) {
	f := newFixture(t, Config{})

	rec := f.do(t, http.MethodGet, "/models/a/a.glb", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	want := map[string]string{
		"Content-Type":   "model/gltf-binary",
		"Content-Length": "1000",
		"Accept-Ranges":  "bytes",
		"Cache-Control":  "public, max-age=31536000, immutable",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if !strings.HasPrefix(rec.Header().Get("ETag"), `W/"`) {
		t.Errorf("ETag = %q, want weak tag", rec.Header().Get("ETag"))
	}
	if rec.Header().Get("Last-Modified") == "" {
		t.Error("Last-Modified missing")
	}
	if rec.Header().Get("Content-Range") != "" {
		t.Error("Content-Range set on full response")
	}
	if !bytes.Equal(rec.Body.Bytes(), f.content) {
		t.Error("body differs from asset")
	}
}

func TestServeHTTP_PartialContent(t *testing.T) {
	f := newFixture(t, Config{})

	tests := []struct {
		rangeHeader  string
		start, end   int
		contentRange string
	}{
		{"bytes=100-199", 100, 199, "bytes 100-199/1000"},
		{"bytes=0-0", 0, 0, "bytes 0-0/1000"},
		{"bytes=990-", 990, 999, "bytes 990-999/1000"},
		{"bytes=-10", 990, 999, "bytes 990-999/1000"},
		{"bytes=-5000", 0, 999, "bytes 0-999/1000"},
	}

	for _, tt := range tests {
		t.Run(tt.rangeHeader, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, "/models/a/a.glb", map[string]string{"Range": tt.rangeHeader})
			if rec.Code != http.StatusPartialContent {
				t.Fatalf("status = %d, want 206", rec.Code)
			}
			if got := rec.Header().Get("Content-Range"); got != tt.contentRange {
				t.Errorf("Content-Range = %q, want %q", got, tt.contentRange)
			}
			wantLen := tt.end - tt.start + 1
			if got := rec.Header().Get("Content-Length"); got != strconv.Itoa(wantLen) {
				t.Errorf("Content-Length = %q, want %d", got, wantLen)
			}
			if !bytes.Equal(rec.Body.Bytes(), f.content[tt.start:tt.end+1]) {
				t.Errorf("body mismatch: got %d bytes", rec.Body.Len())
			}
		})
	}
}

func TestServeHTTP_InvalidRange(t *testing.T) {
	f := newFixture(t, Config{})

	for _, rng := range []string{"bytes=1000-", "bytes=200-100", "bytes=0-1000", "bytes=0-10,20-30", "bytes=x-y"} {
		t.Run(rng, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, "/models/a/a.glb", map[string]string{"Range": rng})
			if rec.Code != http.StatusRequestedRangeNotSatisfiable {
				t.Fatalf("status = %d, want 416", rec.Code)
			}
			if got := rec.Header().Get("Content-Range"); got != "bytes */1000" {
				t.Errorf("Content-Range = %q, want bytes */1000", got)
			}
			if rec.Body.Len() != 0 {
				t.Errorf("body length = %d, want 0", rec.Body.Len())
			}
		})
	}
}

func TestServeHTTP_ConditionalRevalidation(t *testing.T) {
	f := newFixture(t, Config{})

	first := f.do(t, http.MethodGet, "/models/a/a.glb", nil)
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d, want 200", first.Code)
	}
	etag := first.Header().Get("ETag")

	second := f.do(t, http.MethodGet, "/models/a/a.glb", map[string]string{"If-None-Match": etag})
	if second.Code != http.StatusNotModified {
		t.Fatalf("second status = %d, want 304", second.Code)
	}
	if second.Body.Len() != 0 {
		t.Error("304 carried a body")
	}
	if second.Header().Get("Content-Length") != "" {
		t.Errorf("304 Content-Length = %q, want none", second.Header().Get("Content-Length"))
	}
	if second.Header().Get("Content-Range") != "" {
		t.Error("304 carried Content-Range")
	}
	if second.Header().Get("ETag") != etag {
		t.Errorf("304 ETag = %q, want %q", second.Header().Get("ETag"), etag)
	}
	if second.Header().Get("Cache-Control") == "" {
		t.Error("304 missing Cache-Control")
	}

	wildcard := f.do(t, http.MethodGet, "/models/a/a.glb", map[string]string{"If-None-Match": "*"})
	if wildcard.Code != http.StatusNotModified {
		t.Errorf("wildcard status = %d, want 304", wildcard.Code)
	}
}

func TestServeHTTP_NotModifiedPrecedesRange(t *testing.T) {
	f := newFixture(t, Config{})
	etag := f.do(t, http.MethodHead, "/models/a/a.glb", nil).Header().Get("ETag")

	rec := f.do(t, http.MethodGet, "/models/a/a.glb", map[string]string{
		"If-None-Match": etag,
		"Range":         "bytes=5000-6000",
	})
	if rec.Code != http.StatusNotModified {
		t.Fatalf("status = %d, want 304", rec.Code)
	}
}

func TestServeHTTP_IfModifiedSince(t *testing.T) {
	f := newFixture(t, Config{})
	full := filepath.Join(f.root, "models/a/a.glb")
	mtime := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	if err := os.Chtimes(full, mtime, mtime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	rec := f.do(t, http.MethodGet, "/models/a/a.glb", map[string]string{
		"If-Modified-Since": mtime.Format(http.TimeFormat),
	})
	if rec.Code != http.StatusNotModified {
		t.Fatalf("status = %d, want 304", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/models/a/a.glb", map[string]string{
		"If-Modified-Since": mtime.Format(http.TimeFormat),
		"If-None-Match":     `W/"stale"`,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status with stale If-None-Match = %d, want 200", rec.Code)
	}
}

func TestServeHTTP_ETagChangesOnModification(t *testing.T) {
	f := newFixture(t, Config{})

	before := f.do(t, http.MethodHead, "/models/a/a.glb", nil).Header().Get("ETag")
	again := f.do(t, http.MethodHead, "/models/a/a.glb", nil).Header().Get("ETag")
	if before != again {
		t.Fatalf("ETag unstable: %s vs %s", before, again)
	}

	full := filepath.Join(f.root, "models/a/a.glb")
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(full, later, later); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	after := f.do(t, http.MethodHead, "/models/a/a.glb", nil).Header().Get("ETag")
	if after == before {
		t.Fatal("ETag unchanged after mtime change")
	}

	rec := f.do(t, http.MethodGet, "/models/a/a.glb", map[string]string{"If-None-Match": before})
	if rec.Code != http.StatusOK {
		t.Errorf("stale tag status = %d, want 200", rec.Code)
	}
}

func TestServeHTTP_HeadParity(t *testing.T) {
	f := newFixture(t, Config{})

	for _, headers := range []map[string]string{
		nil,
		{"Range": "bytes=100-199"},
		{"Range": "bytes=5000-"},
	} {
		get := f.do(t, http.MethodGet, "/models/a/a.glb", headers)
		head := f.do(t, http.MethodHead, "/models/a/a.glb", headers)

		if get.Code != head.Code {
			t.Errorf("status GET %d, HEAD %d", get.Code, head.Code)
		}
		if head.Body.Len() != 0 {
			t.Errorf("HEAD body length = %d", head.Body.Len())
		}
		if len(get.Header()) != len(head.Header()) {
			t.Errorf("header count GET %d, HEAD %d", len(get.Header()), len(head.Header()))
		}
		for k := range get.Header() {
			if get.Header().Get(k) != head.Header().Get(k) {
				t.Errorf("%s: GET %q, HEAD %q", k, get.Header().Get(k), head.Header().Get(k))
			}
		}
	}
}

func TestServeHTTP_NotFound(t *testing.T) {
	f := newFixture(t, Config{Categories: []string{"models", "audio"}})
	outside := filepath.Join(filepath.Dir(f.root), "outside.glb")
	if err := os.WriteFile(outside, []byte("secret"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Cleanup(func() { os.Remove(outside) })
	f.write(t, "private/x.glb", []byte("x"))

	for _, p := range []string{
		"/models/missing.glb",
		"/models/a",
		"/models/../../outside.glb",
		"/models/%2e%2e/%2e%2e/outside.glb",
		"/private/x.glb",
	} {
		rec := f.do(t, http.MethodGet, p, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", p, rec.Code)
		}
		if rec.Body.Len() != 0 {
			t.Errorf("GET %s body = %q, want empty", p, rec.Body.String())
		}
	}
}

func TestServe_ContentType(t *testing.T) {
	f := newFixture(t, Config{ContentTypes: map[string]string{"animations": "application/x-anim"}})
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 100)...)
	f.write(t, "models/a/texture.bin", png)
	f.write(t, "models/a/blob", []byte{0x00, 0x01, 0x02, 0xff})
	f.write(t, "animations/walk.anim", []byte("walk"))
	f.write(t, "models/a/empty.dat", nil)

	tests := []struct {
		path     string
		override string
		want     string
	}{
		{"models/a/texture.bin", "", "image/png"},
		{"models/a/blob", "", "application/octet-stream"},
		{"models/a/a.glb", "application/x-custom", "application/x-custom"},
		{"animations/walk.anim", "", "application/x-anim"},
		{"models/a/empty.dat", "", "application/octet-stream"},
	}

	for _, tt := range tests {
		resp, err := f.responder.Serve(context.Background(), Request{
			Method:      http.MethodGet,
			Path:        tt.path,
			ContentType: tt.override,
		})
		if err != nil {
			t.Fatalf("Serve(%s): %v", tt.path, err)
		}
		if got := resp.Header.Get("Content-Type"); got != tt.want {
			t.Errorf("Serve(%s) Content-Type = %q, want %q", tt.path, got, tt.want)
		}
		if resp.Body != nil {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if int64(len(body)) != resp.Asset.Size {
				t.Errorf("Serve(%s) body = %d bytes after sniffing, want %d", tt.path, len(body), resp.Asset.Size)
			}
		}
	}
}

func TestServe_ResponseErrors(t *testing.T) {
	f := newFixture(t, Config{})

	resp, err := f.responder.Serve(context.Background(), Request{Method: http.MethodGet, Path: "models/nope.glb"})
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if !errors.Is(resp.Err, domain.ErrNotFound) {
		t.Errorf("Err = %v, want ErrNotFound", resp.Err)
	}

	resp, err = f.responder.Serve(context.Background(), Request{
		Method: http.MethodGet,
		Path:   "models/a/a.glb",
		Header: http.Header{"Range": {"bytes=2000-"}},
	})
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if !errors.Is(resp.Err, domain.ErrInvalidRange) {
		t.Errorf("Err = %v, want ErrInvalidRange", resp.Err)
	}
	if resp.Body != nil {
		t.Error("416 response has a body")
	}
}

func TestServeHTTP_NewAssetVisibleImmediately(t *testing.T) {
	f := newFixture(t, Config{})

	if rec := f.do(t, http.MethodGet, "/audio/new.ogg", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("status before publish = %d, want 404", rec.Code)
	}
	f.write(t, "audio/new.ogg", []byte("OggS"))
	if rec := f.do(t, http.MethodGet, "/audio/new.ogg", nil); rec.Code != http.StatusOK {
		t.Fatalf("status after publish = %d, want 200", rec.Code)
	}
}

type failingStore struct{ fs.AssetStore }

func (failingStore) Open(ctx context.Context, p string) (io.ReadSeekCloser, domain.Asset, error) {
	return nil, domain.Asset{}, errors.Join(domain.ErrInternalIO, errors.New("permission denied: /srv/assets/models/a.glb"))
}

func TestServeHTTP_InternalError(t *testing.T) {
	r := New(&failingStore{}, Config{}, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/models/a.glb", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "/srv/assets") {
		t.Errorf("500 body leaks detail: %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"error"`) {
		t.Errorf("500 body = %q, want JSON error", rec.Body.String())
	}
}

func TestServeHTTP_MethodNotAllowed(t *testing.T) {
	f := newFixture(t, Config{})
	rec := f.do(t, http.MethodPost, "/models/a/a.glb", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if rec.Header().Get("Allow") != "GET, HEAD" {
		t.Errorf("Allow = %q", rec.Header().Get("Allow"))
	}
}
