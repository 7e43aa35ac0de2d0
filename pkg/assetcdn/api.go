package assetcdn

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/assetcdn/internal/domain"
	"github.com/bft-labs/assetcdn/internal/httperr"
	"github.com/bft-labs/assetcdn/pkg/log"
)

// uploadMemory is how much of a multipart body is held in memory before
// parts spill to temporary files.
const uploadMemory = 32 << 20

var assetIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// UploadResult is the JSON body of a successful upload.
type UploadResult struct {
	AssetID    string    `json:"assetId"`
	Files      []string  `json:"files"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// AssetEntry is one item of a category listing.
type AssetEntry struct {
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	Modified    time.Time `json:"modified"`
	ContentType string    `json:"contentType"`
	Class       string    `json:"class"`
}

// Listing is the JSON body of GET /api/assets/{category}.
type Listing struct {
	Category string       `json:"category"`
	Assets   []AssetEntry `json:"assets"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")
	if !s.categories[category] {
		httperr.Write(w, r, http.StatusNotFound, "unknown category")
		return
	}

	limit := s.config.UploadMaxBytes*int64(s.config.UploadMaxFiles) + uploadMemory
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httperr.Write(w, r, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		httperr.Write(w, r, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer r.MultipartForm.RemoveAll()

	assetID := strings.TrimSpace(r.FormValue("asset_id"))
	if assetID == "" {
		assetID = uuid.NewString()
	} else if !assetIDPattern.MatchString(assetID) {
		httperr.Write(w, r, http.StatusBadRequest, "invalid asset_id")
		return
	}

	parts := r.MultipartForm.File["files"]
	switch {
	case len(parts) == 0:
		httperr.Write(w, r, http.StatusBadRequest, "no files in upload")
		return
	case len(parts) > s.config.UploadMaxFiles:
		httperr.Write(w, r, http.StatusRequestEntityTooLarge, "too many files")
		return
	}

	for _, fh := range parts {
		if fh.Size > s.config.UploadMaxBytes {
			httperr.Write(w, r, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
	}

	targets, msg := s.uploadTargets(r, category, assetID, parts)
	if msg != "" {
		status := http.StatusBadRequest
		if msg == "asset already exists" {
			status = http.StatusConflict
		}
		httperr.Write(w, r, status, msg)
		return
	}

	written := make([]string, 0, len(parts))
	for i, fh := range parts {
		if err := s.storePart(r, targets[i], fh); err != nil {
			s.rollback(r, written)
			s.writeStoreError(w, r, targets[i], err)
			return
		}
		written = append(written, targets[i])
	}

	result := UploadResult{AssetID: assetID, Files: written, UploadedAt: s.opts.clock.Now().UTC()}
	s.logger.Info("asset uploaded",
		log.String("asset_id", assetID),
		log.String("category", category),
		log.Strings("files", written),
	)

	if n := s.notifier.Load(); n != nil {
		n.Enqueue(domain.DeliveryEvent{
			ID:         uuid.NewString(),
			AssetID:    assetID,
			Category:   category,
			Files:      written,
			UploadedAt: result.UploadedAt,
		})
	}

	writeJSON(w, r, http.StatusCreated, result)
}

// uploadTargets maps each part to its published path. A non-empty message
// rejects the whole upload before anything is written.
func (s *Server) uploadTargets(r *http.Request, category, assetID string, parts []*multipart.FileHeader) ([]string, string) {
	targets := make([]string, len(parts))
	seen := make(map[string]bool, len(parts))
	for i, fh := range parts {
		name := path.Base(strings.ReplaceAll(fh.Filename, "\\", "/"))
		if name == "" || name == "." || name == "/" || name == ".." || strings.HasPrefix(name, ".") {
			return nil, "invalid file name"
		}
		if seen[name] {
			return nil, "duplicate file name"
		}
		seen[name] = true

		target := path.Join(category, assetID, name)
		if _, err := s.store.Stat(r.Context(), target); err == nil {
			return nil, "asset already exists"
		}
		targets[i] = target
	}
	return targets, ""
}

func (s *Server) storePart(r *http.Request, target string, fh *multipart.FileHeader) error {
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = s.store.Create(r.Context(), target, f, s.config.UploadMaxBytes)
	return err
}

// rollback unpublishes the parts of a failed upload so the asset id can be
// retried.
func (s *Server) rollback(r *http.Request, written []string) {
	ctx := context.WithoutCancel(r.Context())
	for i := len(written) - 1; i >= 0; i-- {
		if err := s.store.Remove(ctx, written[i]); err != nil {
			s.logger.Error("upload rollback failed", log.String("path", written[i]), log.Err(err))
		}
	}
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, target string, err error) {
	switch {
	case errors.Is(err, domain.ErrAlreadyExists):
		httperr.Write(w, r, http.StatusConflict, "asset already exists")
	case errors.Is(err, domain.ErrTooLarge):
		httperr.Write(w, r, http.StatusRequestEntityTooLarge, "file too large")
	case errors.Is(err, domain.ErrNotFound):
		httperr.Write(w, r, http.StatusBadRequest, "invalid file path")
	default:
		s.logger.Error("asset write failed", log.String("path", target), log.Err(err))
		httperr.Write(w, r, http.StatusInternalServerError, "internal server error")
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")
	if !s.categories[category] {
		httperr.Write(w, r, http.StatusNotFound, "unknown category")
		return
	}

	assets, err := s.store.List(r.Context(), category)
	if err != nil {
		s.logger.Error("asset listing failed", log.String("category", category), log.Err(err))
		httperr.Write(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	override := s.config.ContentTypes[category]
	listing := Listing{Category: category, Assets: make([]AssetEntry, 0, len(assets))}
	for _, a := range assets {
		ct := override
		if ct == "" {
			var ok bool
			if ct, ok = domain.ContentTypeForExtension(a.Ext()); !ok {
				ct = domain.DefaultContentType
			}
		}
		listing.Assets = append(listing.Assets, AssetEntry{
			Path:        a.Path,
			Size:        a.Size,
			Modified:    a.ModTime.UTC(),
			ContentType: ct,
			Class:       a.Class().String(),
		})
	}

	writeJSON(w, r, http.StatusOK, listing)
}
