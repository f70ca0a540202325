// Package probe checks candidate icon URLs over HTTP.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout   = 3 * time.Second
	defaultUserAgent = "bmicon/1.0"
	defaultMaxBytes  = 1 << 20
	maxRedirects     = 10
)

var (
	ErrBadStatus     = errors.New("unexpected status")
	ErrEmpty         = errors.New("empty response")
	ErrNotImage      = errors.New("not an image")
	ErrZeroDimension = errors.New("image has zero dimensions")
)

// Options configures an HTTPProber.
type Options struct {
	Timeout   time.Duration // upper bound per request, on top of the context deadline
	UserAgent string
	MaxBytes  int64 // response bytes read for validation
	Client    *http.Client
}

// HTTPProber fetches a candidate and accepts it when the body decodes as an
// image with nonzero dimensions.
type HTTPProber struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

// New creates an HTTPProber.
func New(opts Options) *HTTPProber {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultMaxBytes
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		}
	}

	return &HTTPProber{
		client:    client,
		userAgent: opts.UserAgent,
		maxBytes:  opts.MaxBytes,
	}
}

// Probe fetches iconURL and validates the body. Inline data URLs are
// accepted without a request.
func (p *HTTPProber) Probe(ctx context.Context, iconURL string) error {
	if strings.HasPrefix(iconURL, "data:") {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, iconURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "image/*,*/*;q=0.8")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %d %s", ErrBadStatus, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBytes))
	if err != nil {
		return fmt.Errorf("reading %s: %w", iconURL, err)
	}
	if len(data) == 0 {
		return ErrEmpty
	}

	return Validate(data)
}

// Describe reduces a probe error to a short category for logs and output.
func Describe(err error) string {
	if err == nil {
		return "ok"
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "Timeout"
	case errors.Is(err, ErrBadStatus):
		return "Bad status"
	case errors.Is(err, ErrEmpty):
		return "Empty response"
	case errors.Is(err, ErrNotImage):
		return "Not an image"
	case errors.Is(err, ErrZeroDimension):
		return "Zero-size image"
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "no such host"):
		return "DNS failure"
	case strings.Contains(lower, "timeout"):
		return "Timeout"
	case strings.Contains(lower, "connection refused"):
		return "Connection refused"
	case strings.Contains(lower, "certificate"):
		return "TLS/certificate error"
	case strings.Contains(lower, "network is unreachable"):
		return "Network unreachable"
	case strings.Contains(lower, "tls:"):
		return "TLS error"
	default:
		return err.Error()
	}
}
