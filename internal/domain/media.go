package domain

import "strings"

// MediaClass is the closed set of media classes the pipeline recognizes.
// Every content type and every extension maps to exactly one class.
type MediaClass int

const (
	MediaBinary MediaClass = iota
	MediaModel
	MediaAnimation
	MediaAudio
	MediaImage
	MediaVectorImage
	MediaText
	MediaMarkup
	MediaStylesheet
	MediaScript
	MediaData
	MediaFont
)

// String returns a human-readable representation of the class.
func (c MediaClass) String() string {
	switch c {
	case MediaBinary:
		return "binary"
	case MediaModel:
		return "model"
	case MediaAnimation:
		return "animation"
	case MediaAudio:
		return "audio"
	case MediaImage:
		return "image"
	case MediaVectorImage:
		return "vector-image"
	case MediaText:
		return "text"
	case MediaMarkup:
		return "markup"
	case MediaStylesheet:
		return "stylesheet"
	case MediaScript:
		return "script"
	case MediaData:
		return "data"
	case MediaFont:
		return "font"
	default:
		return "unknown"
	}
}

// Compressible reports whether bodies of this class benefit from content-coding.
// Models, animations, audio and raster images are already dense and are
// frequently served with byte ranges, so they are never compressed.
func (c MediaClass) Compressible() bool {
	switch c {
	case MediaText, MediaMarkup, MediaStylesheet, MediaScript, MediaData, MediaVectorImage, MediaFont:
		return true
	default:
		return false
	}
}

// DefaultContentType is used when neither the extension nor sniffing yields a type.
const DefaultContentType = "application/octet-stream"

type extensionInfo struct {
	contentType string
	class       MediaClass
}

var extensions = map[string]extensionInfo{
	// 3D models
	".glb":  {"model/gltf-binary", MediaModel},
	".gltf": {"model/gltf+json", MediaModel},
	".obj":  {"model/obj", MediaModel},
	".stl":  {"model/stl", MediaModel},
	".fbx":  {"application/octet-stream", MediaModel},
	".usdz": {"model/vnd.usdz+zip", MediaModel},
	".vrm":  {"model/gltf-binary", MediaModel},

	// Animations
	".anim": {"application/octet-stream", MediaAnimation},
	".bvh":  {"application/octet-stream", MediaAnimation},
	".vrma": {"model/gltf-binary", MediaAnimation},

	// Audio
	".mp3":  {"audio/mpeg", MediaAudio},
	".wav":  {"audio/wav", MediaAudio},
	".ogg":  {"audio/ogg", MediaAudio},
	".opus": {"audio/opus", MediaAudio},
	".flac": {"audio/flac", MediaAudio},
	".m4a":  {"audio/mp4", MediaAudio},
	".aac":  {"audio/aac", MediaAudio},

	// Images
	".png":  {"image/png", MediaImage},
	".jpg":  {"image/jpeg", MediaImage},
	".jpeg": {"image/jpeg", MediaImage},
	".gif":  {"image/gif", MediaImage},
	".webp": {"image/webp", MediaImage},
	".ktx2": {"image/ktx2", MediaImage},
	".svg":  {"image/svg+xml", MediaVectorImage},

	// Text-like
	".txt":   {"text/plain; charset=utf-8", MediaText},
	".csv":   {"text/csv; charset=utf-8", MediaText},
	".md":    {"text/markdown; charset=utf-8", MediaText},
	".html":  {"text/html; charset=utf-8", MediaMarkup},
	".htm":   {"text/html; charset=utf-8", MediaMarkup},
	".xml":   {"application/xml", MediaMarkup},
	".css":   {"text/css; charset=utf-8", MediaStylesheet},
	".js":    {"text/javascript; charset=utf-8", MediaScript},
	".mjs":   {"text/javascript; charset=utf-8", MediaScript},
	".json":  {"application/json", MediaData},
	".woff":  {"font/woff", MediaFont},
	".woff2": {"font/woff2", MediaFont},
	".ttf":   {"font/ttf", MediaFont},
	".otf":   {"font/otf", MediaFont},
}

// ContentTypeForExtension returns the content type registered for ext
// (including the leading dot, any case). The boolean is false when the
// extension is unknown.
func ContentTypeForExtension(ext string) (string, bool) {
	info, ok := extensions[strings.ToLower(ext)]
	if !ok {
		return "", false
	}
	return info.contentType, true
}

// ClassifyExtension maps a file extension to its media class.
// Unknown extensions are MediaBinary.
func ClassifyExtension(ext string) MediaClass {
	if info, ok := extensions[strings.ToLower(ext)]; ok {
		return info.class
	}
	return MediaBinary
}

// ClassifyContentType maps a Content-Type header value to its media class.
// Parameters are ignored. Unknown or empty types are MediaBinary.
func ClassifyContentType(contentType string) MediaClass {
	mediaType, _, _ := strings.Cut(contentType, ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))

	major, minor, ok := strings.Cut(mediaType, "/")
	if !ok {
		return MediaBinary
	}

	switch major {
	case "model":
		return MediaModel
	case "audio":
		return MediaAudio
	case "font":
		return MediaFont
	case "image":
		if minor == "svg+xml" {
			return MediaVectorImage
		}
		return MediaImage
	case "text":
		switch minor {
		case "html", "xml":
			return MediaMarkup
		case "css":
			return MediaStylesheet
		case "javascript", "ecmascript":
			return MediaScript
		default:
			return MediaText
		}
	case "application":
		switch {
		case minor == "json" || strings.HasSuffix(minor, "+json"):
			return MediaData
		case minor == "xml" || minor == "xhtml+xml" || strings.HasSuffix(minor, "+xml"):
			return MediaMarkup
		case minor == "javascript" || minor == "x-javascript" || minor == "ecmascript":
			return MediaScript
		case minor == "font-woff" || minor == "font-sfnt" || minor == "vnd.ms-fontobject":
			return MediaFont
		}
	}
	return MediaBinary
}
