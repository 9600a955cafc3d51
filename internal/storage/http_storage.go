package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	fetchAttempts = 3
	// Azure Computer Vision rejects larger uploads anyway
	maxBlobSize = 20 << 20
)

// Blob is a downloaded image
type Blob struct {
	Data        []byte
	ContentType string
}

// BlobFetcher downloads image bytes from a storage reference
type BlobFetcher interface {
	Fetch(ctx context.Context, ref string) (*Blob, error)
}

// HTTPFetcher implements BlobFetcher for http(s) URLs
type HTTPFetcher struct {
	client  *http.Client
	backoff func(attempt int) time.Duration
}

// NewHTTPFetcher creates an HTTP fetcher with a transport tuned for single image downloads
func NewHTTPFetcher() *HTTPFetcher {
	transport := &http.Transport{
		// Connection pooling optimized for image fetching
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		DisableCompression:     false,
		MaxResponseHeaderBytes: 4096,
	}

	return &HTTPFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,

			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt+1) * time.Second
		},
	}
}

// Fetch downloads ref, retrying transport errors and 5xx responses
func (h *HTTPFetcher) Fetch(ctx context.Context, ref string) (*Blob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	req.Header.Set("Accept", "image/jpeg, image/png, image/webp, image/gif, image/bmp, */*")
	req.Header.Set("User-Agent", "Image-Gallery/1.0")

	var lastErr error
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		blob, retryable, err := h.do(req)
		if err == nil {
			return blob, nil
		}
		lastErr = err
		if !retryable {
			break
		}

		// Sleep before next retry, but not after the last attempt
		if attempt < fetchAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(h.backoff(attempt)):
			}
		}
	}

	return nil, fmt.Errorf("failed to fetch image after %d attempts: %w", fetchAttempts, lastErr)
}

// do performs a single attempt and reports whether a failure may be retried
func (h *HTTPFetcher) do(req *http.Request) (*Blob, bool, error) {
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, req.Context().Err() == nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// 4xx client errors are non-retryable
		return nil, false, fmt.Errorf("client error: status code %d", resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("server error: status code %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBlobSize+1))
	if err != nil {
		return nil, true, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > maxBlobSize {
		return nil, false, fmt.Errorf("image exceeds %d bytes", maxBlobSize)
	}

	return &Blob{Data: data, ContentType: resp.Header.Get("Content-Type")}, false, nil
}
