package models

import (
	"time"

	"github.com/google/uuid"
)

// AnalyzeRequest asks for a background analysis of a stored image.
// ImageURL is optional; the record's original URL is used when empty.
type AnalyzeRequest struct {
	ImageURL string `json:"image_url,omitempty"`
}

// Rejection reasons reported with AnalyzeResponse
const (
	RejectDuplicate = "duplicate"
	RejectCapacity  = "capacity"
)

// AnalyzeResponse reports whether the analysis was admitted
type AnalyzeResponse struct {
	ImageID  uuid.UUID `json:"image_id"`
	Accepted bool      `json:"accepted"`
	Message  string    `json:"message"`
	Reason   string    `json:"reason,omitempty"`
}

// RetryRequest optionally overrides the image URL for a retry
type RetryRequest struct {
	ImageURL string `json:"image_url,omitempty"`
}

// RetryResponse mirrors the outcome of a synchronous retry
type RetryResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Result  *AnalysisResult `json:"result,omitempty"`
}

// SimilarQuery carries similarity search parameters
type SimilarQuery struct {
	Limit     int      `form:"limit,default=10" binding:"min=1,max=50"`
	Threshold *float64 `form:"similarity_threshold" binding:"omitempty,min=0,max=1"`
}

// SimilarImageResponse holds a similarity search result
type SimilarImageResponse struct {
	SourceImageID uuid.UUID             `json:"source_image_id"`
	SimilarImages []SimilarityCandidate `json:"similar_images"`
	SearchTime    float64               `json:"search_time"`
}

// SuggestionsQuery carries suggestion search parameters
type SuggestionsQuery struct {
	OwnerID string `form:"owner_id" binding:"required,uuid"`
	Query   string `form:"query"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
}

// HealthCheck is the status of a single dependency
type HealthCheck struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// HealthStatus is the detailed health report
type HealthStatus struct {
	Status  string                 `json:"status"`
	Service string                 `json:"service"`
	Version string                 `json:"version"`
	Time    time.Time              `json:"time"`
	Checks  map[string]HealthCheck `json:"checks,omitempty"`
}
