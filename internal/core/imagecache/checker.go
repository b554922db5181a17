package imagecache

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Checker verifies that a remote image exists.
type Checker interface {
	Check(ctx context.Context, uri string) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, uri string) error

func (f CheckerFunc) Check(ctx context.Context, uri string) error { return f(ctx, uri) }

// StatusError is returned for a non-2xx response.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
}

// userAgentRoundTripper sets the User-Agent on every request.
type userAgentRoundTripper struct {
	wrapped   http.RoundTripper
	userAgent string
}

func (rt *userAgentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", rt.userAgent)
	return rt.wrapped.RoundTrip(clone)
}

// HeadChecker issues HEAD requests. The deadline comes from the context the
// caller passes in.
type HeadChecker struct {
	client *http.Client
}

// NewHeadChecker wraps base (nil for a fresh client) with a User-Agent.
func NewHeadChecker(userAgent string, base *http.Client) *HeadChecker {
	if base == nil {
		base = &http.Client{}
	}
	transport := base.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	client := *base
	client.Transport = &userAgentRoundTripper{wrapped: transport, userAgent: userAgent}
	return &HeadChecker{client: &client}
}

// Check returns nil when the server answers 2xx.
func (c *HeadChecker) Check(ctx context.Context, uri string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, uri, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}
