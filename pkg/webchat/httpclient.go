package webchat

import (
	"net/http"
	"sync"

	"github.com/killallgit/chatcast/pkg/config"
)

// headerRoundTripper attaches the platform's default headers to every
// outgoing request, matching the contract in the concurrency & resource
// model: a stable User-Agent, Accept-Language, and Referer are part of
// the wire contract, not an incidental client setting.
type headerRoundTripper struct {
	next           http.RoundTripper
	userAgent      string
	acceptLanguage string
	referer        string
}

func (h *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", h.userAgent)
	}
	if req.Header.Get("Accept-Language") == "" {
		req.Header.Set("Accept-Language", h.acceptLanguage)
	}
	if req.Header.Get("Referer") == "" {
		req.Header.Set("Referer", h.referer)
	}
	next := h.next
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(req)
}

var (
	sharedClientOnce sync.Once
	sharedClient     *http.Client
)

// SharedHTTPClient returns the process-wide client recommended by the
// concurrency model, built once from cfg on first use.
func SharedHTTPClient(cfg *config.HTTPConfig) *http.Client {
	sharedClientOnce.Do(func() {
		sharedClient = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &headerRoundTripper{
				userAgent:      cfg.UserAgent,
				acceptLanguage: cfg.AcceptLanguage,
				referer:        cfg.Referer,
			},
		}
	})
	return sharedClient
}

// HangingGETClient returns a client with no per-request timeout, for the
// signaling subscribe GET, which is intentionally left to the server to
// close. It shares the same default headers.
func HangingGETClient(cfg *config.HTTPConfig) *http.Client {
	return &http.Client{
		Transport: &headerRoundTripper{
			userAgent:      cfg.UserAgent,
			acceptLanguage: cfg.AcceptLanguage,
			referer:        cfg.Referer,
		},
	}
}
