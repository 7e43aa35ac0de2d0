// Package byterange resolves HTTP byte-range specifications against a known
// resource length.
//
// Exactly one range per request is supported. The forms "start-end",
// "start-" and "-suffixLength" are accepted; a request naming more than one
// range is rejected as a whole rather than truncated to its first range.
//
// # Usage
//
//	r, err := byterange.Resolve(req.Header.Get("Range"), size)
//	if errors.Is(err, byterange.ErrInvalidRange) {
//	    w.Header().Set("Content-Range", byterange.Unsatisfied(size))
//	    w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
//	    return
//	}
//	if r.Partial {
//	    w.Header().Set("Content-Range", r.ContentRange())
//	}
package byterange
