package responder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/assetcdn/internal/domain"
	"github.com/bft-labs/assetcdn/internal/ports"
	"github.com/bft-labs/assetcdn/pkg/byterange"
	"github.com/bft-labs/assetcdn/pkg/log"
	"github.com/bft-labs/assetcdn/pkg/validator"
)

// DefaultMaxAge is the Cache-Control max-age of published assets.
const DefaultMaxAge = 365 * 24 * time.Hour

// sniffLen is how many leading bytes are inspected when the extension does
// not determine a content type.
const sniffLen = 512

// Config holds Responder settings.
type Config struct {
	// MaxAge is advertised in Cache-Control. Zero means DefaultMaxAge.
	MaxAge time.Duration

	// Categories restricts the top-level path segments that are served.
	// Empty serves every category.
	Categories []string

	// ContentTypes forces a Content-Type for every asset of a category,
	// overriding extension and sniffing.
	ContentTypes map[string]string
}

// Request is a read of a single asset.
type Request struct {
	// Method is GET or HEAD.
	Method string

	// Path is slash-separated and relative to the asset root, including the
	// category (e.g. "models/a/a.glb").
	Path string

	// Header carries Range, If-None-Match and If-Modified-Since.
	Header http.Header

	// ContentType, when set, overrides the inferred Content-Type.
	ContentType string
}

// Response is the outcome of Serve.
type Response struct {
	// Status is one of 200, 206, 304, 404 or 416.
	Status int

	// Header is the complete response header set.
	Header http.Header

	// Body streams the selected bytes. It is nil for HEAD and for every
	// status without a body. Callers must Close it.
	Body io.ReadCloser

	// Asset is the metadata the decision was based on. Zero for 404.
	Asset domain.Asset

	// Range is the resolved byte range for 200 and 206.
	Range byterange.Range

	// Err is domain.ErrNotFound or domain.ErrInvalidRange for the matching
	// statuses and nil otherwise.
	Err error
}

// Responder serves assets from an AssetStore.
type Responder struct {
	store        ports.AssetStore
	logger       log.Logger
	cacheControl string
	categories   map[string]bool
	contentTypes map[string]string
}

// New creates a Responder over store.
func New(store ports.AssetStore, cfg Config, logger log.Logger) *Responder {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	var categories map[string]bool
	if len(cfg.Categories) > 0 {
		categories = make(map[string]bool, len(cfg.Categories))
		for _, c := range cfg.Categories {
			categories[c] = true
		}
	}

	return &Responder{
		store:        store,
		logger:       logger,
		cacheControl: fmt.Sprintf("public, max-age=%d, immutable", int64(maxAge/time.Second)),
		categories:   categories,
		contentTypes: cfg.ContentTypes,
	}
}

// Serve decides the response for req. The returned error is non-nil only
// for unexpected I/O failures, which callers report as 500.
func (r *Responder) Serve(ctx context.Context, req Request) (*Response, error) {
	rel := strings.TrimPrefix(req.Path, "/")
	category, _, _ := strings.Cut(rel, "/")
	if r.categories != nil && !r.categories[category] {
		return notFound(), nil
	}

	f, asset, err := r.store.Open(ctx, rel)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return notFound(), nil
		}
		return nil, err
	}

	resp, err := r.decide(f, asset, req)
	if err != nil || resp.Body == nil {
		f.Close()
	}
	return resp, err
}

// decide runs steps 3 to 6 against an open handle. On success with a body,
// ownership of f passes to Response.Body.
func (r *Responder) decide(f io.ReadSeekCloser, asset domain.Asset, req Request) (*Response, error) {
	header := req.Header
	if header == nil {
		header = http.Header{}
	}

	tag := validator.GenerateTag(asset.Size, asset.ModTime)
	h := http.Header{}
	h.Set("ETag", tag)
	h.Set("Cache-Control", r.cacheControl)

	if validator.Fresh(header, tag, asset.ModTime) {
		return &Response{Status: http.StatusNotModified, Header: h, Asset: asset}, nil
	}

	h.Set("Accept-Ranges", "bytes")

	rng, err := byterange.Resolve(header.Get("Range"), asset.Size)
	if err != nil {
		h.Set("Content-Range", byterange.Unsatisfied(asset.Size))
		h.Set("Content-Length", "0")
		return &Response{
			Status: http.StatusRequestedRangeNotSatisfiable,
			Header: h,
			Asset:  asset,
			Err:    err,
		}, nil
	}

	contentType, err := r.contentType(f, asset, req.ContentType)
	if err != nil {
		return nil, err
	}
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", strconv.FormatInt(rng.Length, 10))
	h.Set("Last-Modified", asset.ModTime.UTC().Format(http.TimeFormat))

	resp := &Response{Status: http.StatusOK, Header: h, Asset: asset, Range: rng}
	if rng.Partial {
		resp.Status = http.StatusPartialContent
		h.Set("Content-Range", rng.ContentRange())
	}

	if req.Method == http.MethodHead {
		return resp, nil
	}

	if _, err := f.Seek(rng.Start, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: seek %s: %v", domain.ErrInternalIO, asset.Path, err)
	}
	resp.Body = &sectionBody{Reader: io.LimitReader(f, rng.Length), Closer: f}
	return resp, nil
}

// contentType picks the explicit override, the category override, the
// extension mapping, sniffed content, then the binary default.
func (r *Responder) contentType(f io.ReadSeeker, asset domain.Asset, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if ct, ok := r.contentTypes[asset.Category()]; ok {
		return ct, nil
	}
	if ct, ok := domain.ContentTypeForExtension(asset.Ext()); ok {
		return ct, nil
	}
	if asset.Size == 0 {
		return domain.DefaultContentType, nil
	}

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("%w: sniff %s: %v", domain.ErrInternalIO, asset.Path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("%w: rewind %s: %v", domain.ErrInternalIO, asset.Path, err)
	}
	if n == 0 {
		return domain.DefaultContentType, nil
	}
	return http.DetectContentType(buf[:n]), nil
}

func notFound() *Response {
	return &Response{Status: http.StatusNotFound, Header: http.Header{}, Err: domain.ErrNotFound}
}

// sectionBody limits reads to the selected range and closes the file.
type sectionBody struct {
	io.Reader
	io.Closer
}
