package imgpipe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
)

// ErrTooLarge is returned when an image exceeds the configured size cap.
var ErrTooLarge = errors.New("image exceeds size limit")

// fetch reads the image behind uri. file:// URIs are read from disk, http(s)
// URIs with a GET.
func (p *Pipeline) fetch(ctx context.Context, uri string) ([]byte, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("parse uri: %w", err)
	}

	switch u.Scheme {
	case "file":
		f, err := os.Open(u.Path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		return p.readLimited(f)
	case "http", "https":
		return p.fetchHTTP(ctx, uri)
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}

func (p *Pipeline) fetchHTTP(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	if p.opts.UserAgent != "" {
		req.Header.Set("User-Agent", p.opts.UserAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return p.readLimited(resp.Body)
}

func (p *Pipeline) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, p.opts.MaxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > p.opts.MaxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}
