// Package validator derives weak entity tags from asset metadata and
// evaluates conditional request headers against them.
package validator

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

const weakPrefix = "W/"

// GenerateTag returns a weak entity tag for an asset of the given size and
// modification time. The tag is a pure function of its inputs: identical
// inputs always yield the same tag and a change to either yields a new one.
func GenerateTag(size int64, modTime time.Time) string {
	var b strings.Builder
	b.Grow(32)
	b.WriteString(weakPrefix)
	b.WriteByte('"')
	b.WriteString(strconv.FormatInt(size, 16))
	b.WriteByte('-')
	b.WriteString(strconv.FormatInt(modTime.UnixNano(), 16))
	b.WriteByte('"')
	return b.String()
}

// Matches reports whether ifNoneMatch (a raw If-None-Match value) names tag
// or the "*" wildcard. Comparison is weak: a W/ prefix on either side is
// ignored.
func Matches(tag, ifNoneMatch string) bool {
	if ifNoneMatch == "" {
		return false
	}
	want := strings.TrimPrefix(tag, weakPrefix)
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		if candidate != "" && strings.TrimPrefix(candidate, weakPrefix) == want {
			return true
		}
	}
	return false
}

// NotModifiedSince reports whether an asset last modified at modTime is
// unchanged relative to the If-Modified-Since value ims. Unparseable or
// empty values never match. HTTP dates carry whole seconds, so modTime is
// truncated before comparing.
func NotModifiedSince(modTime time.Time, ims string) bool {
	if ims == "" {
		return false
	}
	t, err := http.ParseTime(ims)
	if err != nil {
		return false
	}
	return !modTime.Truncate(time.Second).After(t)
}

// Fresh evaluates the conditional headers of a GET or HEAD request.
// If-None-Match takes precedence; If-Modified-Since is consulted only when
// If-None-Match is absent.
func Fresh(header http.Header, tag string, modTime time.Time) bool {
	if inm := header.Get("If-None-Match"); inm != "" {
		return Matches(tag, inm)
	}
	return NotModifiedSince(modTime, header.Get("If-Modified-Since"))
}
