package models

import (
	"time"

	"github.com/google/uuid"
)

// ProcessingStatus is the persisted lifecycle state of an image analysis
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

// IsTerminal reports whether the status ends an analysis attempt
func (s ProcessingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Limits applied when normalizing vision API output
const (
	MaxTags              = 8
	MaxColors            = 5
	MaxDescriptionLength = 200
)

// AnalysisResult is the canonical output of one successful vision analysis
type AnalysisResult struct {
	Tags             []string           `json:"tags"`
	Description      string             `json:"description"`
	DominantColors   []string           `json:"dominant_colors"`
	ConfidenceScores map[string]float64 `json:"confidence_scores,omitempty"`
}

// ImageRef points at the image bytes to analyze.
// URL may be http(s), azblob://container/blob or s3://bucket/key.
// When Data is set the bytes are sent inline and URL is informational.
type ImageRef struct {
	URL         string `json:"url,omitempty"`
	Data        []byte `json:"-"`
	ContentType string `json:"content_type,omitempty"`
}

// IsInline reports whether the reference already carries the image bytes
func (r ImageRef) IsInline() bool {
	return len(r.Data) > 0
}

// AnalysisTask is the in-memory registry entry of an in-flight analysis
type AnalysisTask struct {
	ImageID   uuid.UUID        `json:"image_id"`
	StartedAt time.Time        `json:"started_at"`
	State     ProcessingStatus `json:"state"`
}

// ProcessResult is returned to synchronous callers of the pipeline
type ProcessResult struct {
	Success        bool            `json:"success"`
	ImageID        uuid.UUID       `json:"image_id"`
	ProcessingTime time.Duration   `json:"-"`
	ProcessingSec  float64         `json:"processing_time"`
	Result         *AnalysisResult `json:"result,omitempty"`
	Error          string          `json:"error,omitempty"`
	Err            error           `json:"-"`
}

// ProcessorStatus is the health view of the admission governor
type ProcessorStatus struct {
	ActiveTasks      int         `json:"active_tasks"`
	MaxConcurrent    int         `json:"max_concurrent"`
	ProcessingImages []uuid.UUID `json:"processing_images"`
}

// ImageRecord is the persisted image row as seen by the pipeline
type ImageRecord struct {
	ID               uuid.UUID        `json:"id"`
	UserID           uuid.UUID        `json:"user_id"`
	Filename         string           `json:"filename"`
	OriginalFilename string           `json:"original_filename"`
	MimeType         string           `json:"mime_type"`
	OriginalURL      string           `json:"original_url"`
	ThumbnailURL     string           `json:"thumbnail_url,omitempty"`
	ProcessingStatus ProcessingStatus `json:"processing_status"`
	AITags           []string         `json:"ai_tags"`
	AIDescription    *string          `json:"ai_description"`
	DominantColors   []string         `json:"dominant_colors"`
	UploadedAt       time.Time        `json:"uploaded_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Description returns the AI description or an empty string
func (r ImageRecord) Description() string {
	if r.AIDescription == nil {
		return ""
	}
	return *r.AIDescription
}

// SimilarityCandidate is one ranked result of a similarity search
type SimilarityCandidate struct {
	ImageID               uuid.UUID `json:"id"`
	Filename              string    `json:"filename,omitempty"`
	ThumbnailURL          string    `json:"thumbnail_url,omitempty"`
	SimilarityScore       float64   `json:"similarity_score"`
	TagSimilarity         float64   `json:"tag_similarity"`
	DescriptionSimilarity float64   `json:"description_similarity"`
	AITags                []string  `json:"ai_tags,omitempty"`
	AIDescription         string    `json:"ai_description,omitempty"`
}

// SearchSuggestions holds tag suggestions for a partial query
type SearchSuggestions struct {
	Query       string   `json:"query"`
	Suggestions []string `json:"suggestions"`
	PopularTags []string `json:"popular_tags"`
}
