package service

import "github.com/anime-shed/image-gallery-go/internal/similarity"

// SearchOptions tunes similarity search and tag suggestions
type SearchOptions struct {
	// Similarity search
	DefaultLimit     int
	DefaultThreshold float64

	// Suggestions
	PopularTags     int
	MaxSuggestions  int
	MaxEditDistance int
}

// DefaultSearchOptions returns default search options
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		DefaultLimit:     similarity.DefaultLimit,
		DefaultThreshold: similarity.DefaultThreshold,
		PopularTags:      10,
		MaxSuggestions:   5,
		MaxEditDistance:  2,
	}
}

// WithoutFuzzyMatching disables near-miss suggestions
func (opts SearchOptions) WithoutFuzzyMatching() SearchOptions {
	opts.MaxEditDistance = 0
	return opts
}

// WithSimilarityDefaults overrides the similarity limit and threshold
func (opts SearchOptions) WithSimilarityDefaults(limit int, threshold float64) SearchOptions {
	opts.DefaultLimit = limit
	opts.DefaultThreshold = threshold
	return opts
}
