package repository

import (
	"context"

	"github.com/anime-shed/image-gallery-go/pkg/models"

	"github.com/google/uuid"
)

// ImageRepository defines the persistence operations the analysis pipeline
// and search need. Writes touch only the status and AI columns.
type ImageRepository interface {
	// UpdateStatus sets the processing status of an image
	UpdateStatus(ctx context.Context, imageID uuid.UUID, status models.ProcessingStatus) error

	// UpdateResult stores tags, description and colors of a finished analysis
	UpdateResult(ctx context.Context, imageID uuid.UUID, result *models.AnalysisResult) error

	// ReadRecord returns one image record
	ReadRecord(ctx context.Context, imageID uuid.UUID) (*models.ImageRecord, error)

	// ListAnalyzedRecords returns the owner's images that have both tags and a description
	ListAnalyzedRecords(ctx context.Context, ownerID uuid.UUID) ([]models.ImageRecord, error)

	// ListTaggedRecords returns the owner's images that have tags
	ListTaggedRecords(ctx context.Context, ownerID uuid.UUID) ([]models.ImageRecord, error)

	// Ping checks database connectivity
	Ping(ctx context.Context) error
}
