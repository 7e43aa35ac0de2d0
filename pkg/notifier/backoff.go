package notifier

import (
	"math/rand"
	"time"
)

// backoff computes exponential delays: base, 2*base, 4*base, ... capped at max.
type backoff struct {
	base   time.Duration
	max    time.Duration
	jitter float64
}

func newBackoff(base, max time.Duration, jitter float64) backoff {
	return backoff{base: base, max: max, jitter: jitter}
}

// Delay returns the wait after the given number of failed attempts (>= 1).
func (b backoff) Delay(failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	d := b.base
	for i := 1; i < failures; i++ {
		d *= 2
		if b.max > 0 && d >= b.max {
			d = b.max
			break
		}
	}
	if b.max > 0 && d > b.max {
		d = b.max
	}
	if b.jitter > 0 {
		// +/- jitter fraction
		j := 1 - b.jitter + 2*b.jitter*rand.Float64()
		d = time.Duration(float64(d) * j)
	}
	return d
}
