package httprate

import (
	"net/http"

	"golang.org/x/time/rate"
)

// Transport waits on Ratelimiter before every round trip.
type Transport struct {
	Base        http.RoundTripper
	Ratelimiter *rate.Limiter
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Ratelimiter != nil {
		err := t.Ratelimiter.Wait(req.Context())
		if err != nil {
			return nil, err
		}
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// NewClient returns an http.Client limited by rl.
func NewClient(rl *rate.Limiter) *http.Client {
	return &http.Client{
		Transport: &Transport{
			Base:        http.DefaultTransport,
			Ratelimiter: rl,
		},
	}
}
