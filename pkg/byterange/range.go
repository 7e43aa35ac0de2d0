package byterange

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bft-labs/assetcdn/internal/domain"
)

// ErrInvalidRange is returned for malformed, multi-range or unsatisfiable
// specifications. Callers answer it with 416 and Unsatisfied(total).
var ErrInvalidRange = domain.ErrInvalidRange

const unitPrefix = "bytes="

// Range is a resolved, inclusive byte range of a resource.
//
// For a non-empty resource 0 <= Start <= End <= Total-1 and
// Length == End-Start+1. An empty resource resolves to Start 0, End -1,
// Length 0.
type Range struct {
	Start   int64
	End     int64
	Total   int64
	Length  int64
	Partial bool
}

// Full returns the range covering the whole resource.
func Full(total int64) Range {
	return Range{Start: 0, End: total - 1, Total: total, Length: total}
}

// ContentRange renders the Content-Range value for a partial response.
func (r Range) ContentRange() string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, r.Total)
}

// Unsatisfied renders the Content-Range value sent with a 416 response.
func Unsatisfied(total int64) string {
	return fmt.Sprintf("bytes */%d", total)
}

// Resolve parses spec (the raw Range header value) against total.
// An empty spec yields the full, non-partial range.
func Resolve(spec string, total int64) (Range, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Full(total), nil
	}

	if len(spec) < len(unitPrefix) || !strings.EqualFold(spec[:len(unitPrefix)], unitPrefix) {
		return Range{}, fmt.Errorf("%w: unsupported unit in %q", ErrInvalidRange, spec)
	}
	set := strings.TrimSpace(spec[len(unitPrefix):])
	if strings.Contains(set, ",") {
		return Range{}, fmt.Errorf("%w: multiple ranges are not supported", ErrInvalidRange)
	}

	first, last, ok := strings.Cut(set, "-")
	if !ok {
		return Range{}, fmt.Errorf("%w: missing '-' in %q", ErrInvalidRange, set)
	}
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)

	var start, end int64
	switch {
	case first == "" && last == "":
		return Range{}, fmt.Errorf("%w: empty range", ErrInvalidRange)

	case first == "":
		suffix, err := parsePos(last)
		if err != nil {
			return Range{}, err
		}
		if suffix == 0 {
			return Range{}, fmt.Errorf("%w: zero-length suffix", ErrInvalidRange)
		}
		start = total - suffix
		if start < 0 {
			start = 0
		}
		end = total - 1

	default:
		s, err := parsePos(first)
		if err != nil {
			return Range{}, err
		}
		start = s
		end = total - 1
		if last != "" {
			e, err := parsePos(last)
			if err != nil {
				return Range{}, err
			}
			end = e
		}
	}

	if start >= total || end >= total || start > end {
		return Range{}, fmt.Errorf("%w: %d-%d not satisfiable for length %d", ErrInvalidRange, start, end, total)
	}

	return Range{
		Start:   start,
		End:     end,
		Total:   total,
		Length:  end - start + 1,
		Partial: true,
	}, nil
}

// parsePos parses a non-negative decimal byte position. Signs and
// whitespace inside the number are rejected.
func parsePos(s string) (int64, error) {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("%w: bad position %q", ErrInvalidRange, s)
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad position %q", ErrInvalidRange, s)
	}
	return n, nil
}
