package domain

import (
	"path"
	"strings"
	"time"
)

// Asset describes a published asset as seen by the delivery pipeline.
// The pipeline never mutates an asset, it only reads it.
type Asset struct {
	// Path is the slash-separated path relative to the asset root,
	// including the category prefix (e.g. "models/a/a.glb").
	Path string

	// Size is the byte length of the asset.
	Size int64

	// ModTime is the last modification time reported by the store.
	ModTime time.Time
}

// Category returns the top-level category of the asset path.
func (a Asset) Category() string {
	category, _, _ := strings.Cut(a.Path, "/")
	return category
}

// Ext returns the lowercased file extension including the dot.
func (a Asset) Ext() string {
	return strings.ToLower(path.Ext(a.Path))
}

// Class returns the media class inferred from the asset extension.
func (a Asset) Class() MediaClass {
	return ClassifyExtension(a.Ext())
}
