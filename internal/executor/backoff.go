package executor

import "time"

// BackoffKind selects how the delay between attempts grows.
type BackoffKind int

const (
	BackoffFixed BackoffKind = iota
	BackoffExponential
)

// Backoff is the delay policy between attempts of the same task.
type Backoff struct {
	Kind BackoffKind
	Base time.Duration
	// Max caps exponential delays. Zero means no cap.
	Max time.Duration
}

// Fixed waits d before every retry.
func Fixed(d time.Duration) Backoff {
	return Backoff{Kind: BackoffFixed, Base: d}
}

// Exponential doubles the wait after every retry, starting at base and
// capped at limit.
func Exponential(base, limit time.Duration) Backoff {
	return Backoff{Kind: BackoffExponential, Base: base, Max: limit}
}

// Delay returns the wait before retry number n (1 for the first retry).
func (b Backoff) Delay(n int) time.Duration {
	if b.Base <= 0 || n < 1 {
		return 0
	}
	if b.Kind == BackoffFixed {
		return b.Base
	}
	d := b.Base
	for i := 1; i < n; i++ {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			return b.Max
		}
	}
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}
