// Package netx holds HTTP plumbing shared by the instance API client.
package netx

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// LimitedTransport delays outgoing requests so they never exceed the
// limiter's rate. Waiting honours the request context.
type LimitedTransport struct {
	Base    http.RoundTripper
	Limiter *rate.Limiter
}

// NewLimitedTransport wraps base (http.DefaultTransport when nil). A
// non-positive rps disables limiting.
func NewLimitedTransport(base http.RoundTripper, rps float64, burst int) *LimitedTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}
	return &LimitedTransport{Base: base, Limiter: rate.NewLimiter(limit, burst)}
}

func (t *LimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.Limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.Base.RoundTrip(req)
}

// ServerDate returns the time reported in the response Date header, or
// now() when the header is missing or unparsable.
func ServerDate(h http.Header, now func() time.Time) time.Time {
	if v := h.Get("Date"); v != "" {
		if t, err := http.ParseTime(v); err == nil {
			return t.UTC()
		}
	}
	return now().UTC()
}
