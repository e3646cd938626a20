// Package httpclient builds the outbound HTTP client shared by all remote calls.
package httpclient

import (
	"net/http"
	"time"
)

const defaultTimeout = 60 * time.Second

// Options configures New.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	// Transport defaults to a clone of http.DefaultTransport.
	Transport http.RoundTripper
}

// New returns a client that stamps every request with the configured User-Agent.
func New(opt Options) *http.Client {
	timeout := opt.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	base := opt.Transport
	if base == nil {
		base = http.DefaultTransport.(*http.Transport).Clone()
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: &userAgentTransport{next: base, userAgent: opt.UserAgent},
	}
}

type userAgentTransport struct {
	next      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}

	return t.next.RoundTrip(req)
}
