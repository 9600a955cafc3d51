package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// Reference schemes understood by the router
const (
	SchemeHTTP      = "http"
	SchemeHTTPS     = "https"
	SchemeAzureBlob = "azblob"
	SchemeS3        = "s3"
)

// Router dispatches a reference to the fetcher registered for its scheme
type Router struct {
	mu       sync.RWMutex
	fetchers map[string]BlobFetcher
}

// NewRouter creates an empty router
func NewRouter() *Router {
	return &Router{fetchers: make(map[string]BlobFetcher)}
}

// Register binds a fetcher to one or more schemes
func (r *Router) Register(f BlobFetcher, schemes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range schemes {
		r.fetchers[strings.ToLower(s)] = f
	}
}

// Schemes lists the registered schemes
func (r *Router) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	schemes := make([]string, 0, len(r.fetchers))
	for s := range r.fetchers {
		schemes = append(schemes, s)
	}
	return schemes
}

// Fetch implements BlobFetcher
func (r *Router) Fetch(ctx context.Context, ref string) (*Blob, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("invalid image reference: %w", err)
	}

	scheme := strings.ToLower(u.Scheme)
	r.mu.RLock()
	f, ok := r.fetchers[scheme]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no storage backend for scheme %q", scheme)
	}
	return f.Fetch(ctx, ref)
}
