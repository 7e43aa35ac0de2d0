package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bft-labs/assetcdn/internal/domain"
)

func newStore(t *testing.T) (*AssetStore, string) {
	t.Helper()
	root := t.TempDir()
	s, err := NewAssetStore(root)
	if err != nil {
		t.Fatalf("NewAssetStore: %v", err)
	}
	return s, s.Root()
}

func writeFile(t *testing.T, root, rel string, data []byte) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestAssetStore_OpenAndStat(t *testing.T) {
	s, root := newStore(t)
	writeFile(t, root, "models/a/a.glb", bytes.Repeat([]byte{7}, 1000))

	f, asset, err := s.Open(context.Background(), "models/a/a.glb")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	if asset.Path != "models/a/a.glb" || asset.Size != 1000 {
		t.Errorf("asset = %+v", asset)
	}

	stat, err := s.Stat(context.Background(), "/models/./a/a.glb")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if stat.Size != 1000 || !stat.ModTime.Equal(asset.ModTime) {
		t.Errorf("Stat = %+v, Open = %+v", stat, asset)
	}
}

func TestAssetStore_NotFound(t *testing.T) {
	s, root := newStore(t)
	writeFile(t, root, "models/a/a.glb", []byte("x"))

	outside := filepath.Join(filepath.Dir(root), "secret.txt")
	if err := os.WriteFile(outside, []byte("secret"), 0o644); err != nil {
		t.Fatalf("write outside: %v", err)
	}
	t.Cleanup(func() { os.Remove(outside) })

	if err := os.Symlink(outside, filepath.Join(root, "models", "link.txt")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	paths := []string{
		"models/missing.glb",
		"models/a",
		"../secret.txt",
		"models/../../secret.txt",
		"models/link.txt",
		"models\\..\\..\\secret.txt",
		"models/a/a.glb\x00",
		"",
	}
	for _, p := range paths {
		if _, _, err := s.Open(context.Background(), p); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Open(%q) error = %v, want ErrNotFound", p, err)
		}
	}
}

func TestAssetStore_Create(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	asset, err := s.Create(ctx, "audio/x/theme.ogg", strings.NewReader("ogg data"), 1024)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if asset.Size != 8 {
		t.Errorf("Size = %d, want 8", asset.Size)
	}

	f, _, err := s.Open(ctx, "audio/x/theme.ogg")
	if err != nil {
		t.Fatalf("Open after Create: %v", err)
	}
	data, _ := io.ReadAll(f)
	f.Close()
	if string(data) != "ogg data" {
		t.Errorf("content = %q", data)
	}

	if _, err := s.Create(ctx, "audio/x/theme.ogg", strings.NewReader("other"), 1024); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("second Create error = %v, want ErrAlreadyExists", err)
	}
	if _, err := s.Create(ctx, "audio/x/big.ogg", strings.NewReader("0123456789"), 4); !errors.Is(err, domain.ErrTooLarge) {
		t.Errorf("oversize Create error = %v, want ErrTooLarge", err)
	}
	if _, err := s.Stat(ctx, "audio/x/big.ogg"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("oversize asset visible: %v", err)
	}
	if _, err := s.Create(ctx, "../escape.txt", strings.NewReader("x"), 0); err == nil {
		t.Error("Create outside root succeeded")
	}
}

func TestAssetStore_Remove(t *testing.T) {
	s, root := newStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, "models/a/a.glb", strings.NewReader("glTF"), 0); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Remove(ctx, "models/a/a.glb"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := s.Stat(ctx, "models/a/a.glb"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Stat after Remove = %v, want ErrNotFound", err)
	}

	// The path is free again.
	if _, err := s.Create(ctx, "models/a/a.glb", strings.NewReader("glTF2"), 0); err != nil {
		t.Fatalf("Create after Remove: %v", err)
	}

	writeFile(t, root, "models/b/keep.glb", []byte{1})
	tests := []struct {
		name string
		path string
	}{
		{"missing", "models/a/none.glb"},
		{"directory", "models/b"},
		{"escape", "../outside.glb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Remove(ctx, tt.path); !errors.Is(err, domain.ErrNotFound) {
				t.Errorf("Remove(%q) = %v, want ErrNotFound", tt.path, err)
			}
		})
	}
	if _, err := os.Stat(filepath.Join(root, "models", "b", "keep.glb")); err != nil {
		t.Errorf("directory contents touched: %v", err)
	}
}

func TestAssetStore_List(t *testing.T) {
	s, root := newStore(t)
	writeFile(t, root, "models/b/b.glb", []byte("bb"))
	writeFile(t, root, "models/a/a.glb", []byte("a"))
	writeFile(t, root, "models/a/.upload-123-x", []byte("partial"))
	writeFile(t, root, "audio/t.ogg", []byte("t"))

	assets, err := s.List(context.Background(), "models")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("List returned %d assets, want 2: %+v", len(assets), assets)
	}
	if assets[0].Path != "models/a/a.glb" || assets[1].Path != "models/b/b.glb" {
		t.Errorf("List order = %s, %s", assets[0].Path, assets[1].Path)
	}

	empty, err := s.List(context.Background(), "animations")
	if err != nil || len(empty) != 0 {
		t.Errorf("List(missing) = %v, %v", empty, err)
	}
}
