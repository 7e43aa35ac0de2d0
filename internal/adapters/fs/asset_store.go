package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/bft-labs/assetcdn/internal/domain"
)

// tempPrefix marks in-flight uploads. Such files are never served or listed.
const tempPrefix = ".upload-"

// AssetStore implements ports.AssetStore on a local directory tree.
type AssetStore struct {
	root string
}

// NewAssetStore creates an AssetStore rooted at root. The root is resolved
// to an absolute, symlink-free path so confinement checks compare like with like.
func NewAssetStore(root string) (*AssetStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve asset root: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("resolve asset root: %w", err)
	}
	return &AssetStore{root: abs}, nil
}

// Root returns the absolute asset root.
func (s *AssetStore) Root() string {
	return s.root
}

// resolve maps a slash-separated relative path to a filesystem path inside
// the root. It returns the cleaned relative path alongside.
func (s *AssetStore) resolve(p string) (string, string, error) {
	if strings.ContainsRune(p, 0) || strings.Contains(p, "\\") {
		return "", "", domain.ErrNotFound
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", "", domain.ErrNotFound
		}
	}
	rel := strings.TrimPrefix(path.Clean("/"+p), "/")
	if rel == "" {
		return "", "", domain.ErrNotFound
	}
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, tempPrefix) {
			return "", "", domain.ErrNotFound
		}
	}

	full := filepath.Join(s.root, filepath.FromSlash(rel))
	if !within(s.root, full) {
		return "", "", domain.ErrNotFound
	}
	return full, rel, nil
}

// confine rejects full if a symlink on its path leads outside the root.
func (s *AssetStore) confine(full string) error {
	resolved, err := filepath.EvalSymlinks(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("%w: %v", domain.ErrInternalIO, err)
	}
	if !within(s.root, resolved) {
		return domain.ErrNotFound
	}
	return nil
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Open returns a handle to the asset at p and the metadata of that handle.
func (s *AssetStore) Open(ctx context.Context, p string) (io.ReadSeekCloser, domain.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.Asset{}, err
	}
	full, rel, err := s.resolve(p)
	if err != nil {
		return nil, domain.Asset{}, err
	}
	if err := s.confine(full); err != nil {
		return nil, domain.Asset{}, err
	}

	f, err := os.Open(full)
	if err != nil {
		return nil, domain.Asset{}, classify(err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, domain.Asset{}, classify(err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, domain.Asset{}, domain.ErrNotFound
	}
	return f, assetFromInfo(rel, info), nil
}

// Stat returns metadata for the asset at p.
func (s *AssetStore) Stat(ctx context.Context, p string) (domain.Asset, error) {
	if err := ctx.Err(); err != nil {
		return domain.Asset{}, err
	}
	full, rel, err := s.resolve(p)
	if err != nil {
		return domain.Asset{}, err
	}
	if err := s.confine(full); err != nil {
		return domain.Asset{}, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return domain.Asset{}, classify(err)
	}
	if !info.Mode().IsRegular() {
		return domain.Asset{}, domain.ErrNotFound
	}
	return assetFromInfo(rel, info), nil
}

// Create publishes r at p. The content is written to a temporary file in the
// destination directory and hard-linked into place, so readers never observe
// a partial file and an existing asset is never replaced.
func (s *AssetStore) Create(ctx context.Context, p string, r io.Reader, maxBytes int64) (domain.Asset, error) {
	if err := ctx.Err(); err != nil {
		return domain.Asset{}, err
	}
	full, rel, err := s.resolve(p)
	if err != nil {
		return domain.Asset{}, err
	}

	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.Asset{}, fmt.Errorf("%w: create directory: %v", domain.ErrInternalIO, err)
	}
	if resolvedDir, err := filepath.EvalSymlinks(dir); err != nil || !within(s.root, resolvedDir) {
		return domain.Asset{}, domain.ErrNotFound
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+uuid.NewString()+"-*")
	if err != nil {
		return domain.Asset{}, fmt.Errorf("%w: create temp file: %v", domain.ErrInternalIO, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	n, err := io.Copy(tmp, src)
	if err != nil {
		tmp.Close()
		return domain.Asset{}, fmt.Errorf("%w: write: %v", domain.ErrInternalIO, err)
	}
	if maxBytes > 0 && n > maxBytes {
		tmp.Close()
		return domain.Asset{}, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrTooLarge, rel, maxBytes)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return domain.Asset{}, fmt.Errorf("%w: sync: %v", domain.ErrInternalIO, err)
	}
	if err := tmp.Close(); err != nil {
		return domain.Asset{}, fmt.Errorf("%w: close: %v", domain.ErrInternalIO, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return domain.Asset{}, fmt.Errorf("%w: chmod: %v", domain.ErrInternalIO, err)
	}

	if err := os.Link(tmpPath, full); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return domain.Asset{}, fmt.Errorf("%w: %s", domain.ErrAlreadyExists, rel)
		}
		return domain.Asset{}, fmt.Errorf("%w: publish: %v", domain.ErrInternalIO, err)
	}

	info, err := os.Stat(full)
	if err != nil {
		return domain.Asset{}, classify(err)
	}
	return assetFromInfo(rel, info), nil
}

// Remove deletes the published asset at p. Directories are never removed.
func (s *AssetStore) Remove(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, _, err := s.resolve(p)
	if err != nil {
		return err
	}
	info, err := os.Lstat(full)
	if err != nil {
		return classify(err)
	}
	if info.IsDir() {
		return domain.ErrNotFound
	}
	if err := s.confine(filepath.Dir(full)); err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		return classify(err)
	}
	return nil
}

// List returns every published asset below dir, in lexical path order.
func (s *AssetStore) List(ctx context.Context, dir string) ([]domain.Asset, error) {
	full, _, err := s.resolve(dir)
	if err != nil {
		return nil, err
	}
	if err := s.confine(full); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return []domain.Asset{}, nil
		}
		return nil, err
	}

	assets := []domain.Asset{}
	err = filepath.WalkDir(full, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), tempPrefix) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		assets = append(assets, assetFromInfo(filepath.ToSlash(rel), info))
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, classify(err)
	}
	return assets, nil
}

func assetFromInfo(rel string, info fs.FileInfo) domain.Asset {
	return domain.Asset{Path: rel, Size: info.Size(), ModTime: info.ModTime()}
}

func classify(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%w: %v", domain.ErrInternalIO, err)
}
