package worker

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Network performs requests against the application origin. *http.Client
// satisfies it when requests already carry absolute URLs.
type Network interface {
	Do(req *http.Request) (*http.Response, error)
}

// OriginNetwork sends origin-relative requests to a fixed base URL.
type OriginNetwork struct {
	base   *url.URL
	client *http.Client
}

// NewOriginNetwork builds a Network for origin. A zero timeout leaves requests
// bounded only by their context.
func NewOriginNetwork(origin string, timeout time.Duration) (*OriginNetwork, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(origin), "/"))
	if err != nil {
		return nil, fmt.Errorf("worker: parse origin url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("worker: origin url %q must be http or https", origin)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("worker: origin url %q has no host", origin)
	}

	return &OriginNetwork{
		base: base,
		client: &http.Client{
			Timeout: timeout,
			// redirects are the page's business, hand them back unchanged
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

// Origin returns the configured base URL.
func (n *OriginNetwork) Origin() string {
	return n.base.String()
}

// Do rewrites req onto the origin and sends it.
func (n *OriginNetwork) Do(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	target := *n.base
	target.Path = n.base.Path + req.URL.Path
	target.RawPath = ""
	target.RawQuery = req.URL.RawQuery
	target.Fragment = ""
	out.URL = &target
	out.Host = n.base.Host
	out.RequestURI = ""
	stripHopHeaders(out.Header)

	return n.client.Do(out)
}
