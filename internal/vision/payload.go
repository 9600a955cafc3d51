package vision

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/anime-shed/image-gallery-go/internal/storage"
	"github.com/anime-shed/image-gallery-go/pkg/models"
)

// Payload is the body of one analyze request
type Payload struct {
	ContentType string
	Body        interface{}
}

// PayloadStrategy turns an image reference into a request body
type PayloadStrategy interface {
	Build(ctx context.Context, ref models.ImageRef) (Payload, error)
	GetStrategyName() string
}

// URLPayloadStrategy lets the vision API download the image itself
type URLPayloadStrategy struct{}

// NewURLPayloadStrategy creates a by-reference payload strategy
func NewURLPayloadStrategy() PayloadStrategy {
	return &URLPayloadStrategy{}
}

// Build returns a {"url": ...} JSON body
func (s *URLPayloadStrategy) Build(_ context.Context, ref models.ImageRef) (Payload, error) {
	if ref.URL == "" {
		return Payload{}, fmt.Errorf("image reference has no URL")
	}
	return Payload{
		ContentType: "application/json",
		Body:        map[string]string{"url": ref.URL},
	}, nil
}

// GetStrategyName returns the strategy name
func (s *URLPayloadStrategy) GetStrategyName() string {
	return "url"
}

// BinaryPayloadStrategy uploads the image bytes in the request body.
// Inline references are sent as-is; others are read through the fetcher.
type BinaryPayloadStrategy struct {
	fetcher storage.BlobFetcher
}

// NewBinaryPayloadStrategy creates an inline payload strategy
func NewBinaryPayloadStrategy(fetcher storage.BlobFetcher) PayloadStrategy {
	return &BinaryPayloadStrategy{fetcher: fetcher}
}

// Build returns the raw image bytes with their content type
func (s *BinaryPayloadStrategy) Build(ctx context.Context, ref models.ImageRef) (Payload, error) {
	data, contentType := ref.Data, ref.ContentType

	if !ref.IsInline() {
		if s.fetcher == nil {
			return Payload{}, fmt.Errorf("no blob fetcher configured for %q", ref.URL)
		}
		blob, err := s.fetcher.Fetch(ctx, ref.URL)
		if err != nil {
			return Payload{}, err
		}
		data = blob.Data
		if contentType == "" {
			contentType = blob.ContentType
		}
	}

	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return Payload{ContentType: contentType, Body: data}, nil
}

// GetStrategyName returns the strategy name
func (s *BinaryPayloadStrategy) GetStrategyName() string {
	return "binary"
}

// PayloadSelector picks the payload strategy for a reference
type PayloadSelector struct {
	byURL      PayloadStrategy
	binary     PayloadStrategy
	inlineHTTP bool
}

// NewPayloadSelector creates a selector. When inlineHTTP is set, http(s)
// images are downloaded and uploaded instead of passed by URL.
func NewPayloadSelector(fetcher storage.BlobFetcher, inlineHTTP bool) *PayloadSelector {
	return &PayloadSelector{
		byURL:      NewURLPayloadStrategy(),
		binary:     NewBinaryPayloadStrategy(fetcher),
		inlineHTTP: inlineHTTP,
	}
}

// Select returns the strategy for ref
func (p *PayloadSelector) Select(ref models.ImageRef) PayloadStrategy {
	if ref.IsInline() || p.inlineHTTP {
		return p.binary
	}
	if u, err := url.Parse(ref.URL); err == nil {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return p.byURL
		}
	}
	return p.binary
}
