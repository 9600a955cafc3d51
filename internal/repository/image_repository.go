package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anime-shed/image-gallery-go/internal/logger"
	"github.com/anime-shed/image-gallery-go/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the gallery database. driver is "postgres" (Supabase)
// or "sqlite"; the images table is created only when autoMigrate is set.
func Open(driver, dsn string, autoMigrate bool) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if autoMigrate {
		if err := db.AutoMigrate(&Image{}); err != nil {
			return nil, fmt.Errorf("failed to migrate images table: %w", err)
		}
	}

	logger.WithFields(logrus.Fields{
		"driver":       driver,
		"auto_migrate": autoMigrate,
	}).Info("Database connection established")

	return db, nil
}

// GormImageRepository implements ImageRepository on gorm
type GormImageRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormImageRepository creates a repository backed by db
func NewGormImageRepository(db *gorm.DB) *GormImageRepository {
	return &GormImageRepository{db: db, now: time.Now}
}

// UpdateStatus sets the processing status of an image
func (r *GormImageRepository) UpdateStatus(ctx context.Context, imageID uuid.UUID, status models.ProcessingStatus) error {
	return r.update(ctx, imageID, map[string]any{
		"processing_status": string(status),
		"updated_at":        r.now().UTC(),
	})
}

// UpdateResult stores the persisted part of an analysis result.
// The confidence map is not stored.
func (r *GormImageRepository) UpdateResult(ctx context.Context, imageID uuid.UUID, result *models.AnalysisResult) error {
	tags, err := encodeStrings(result.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}
	colors, err := encodeStrings(result.DominantColors)
	if err != nil {
		return fmt.Errorf("failed to encode colors: %w", err)
	}

	return r.update(ctx, imageID, map[string]any{
		"ai_tags":         tags,
		"ai_description":  result.Description,
		"dominant_colors": colors,
		"updated_at":      r.now().UTC(),
	})
}

func (r *GormImageRepository) update(ctx context.Context, imageID uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&Image{}).Where("id = ?", imageID).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update image %s: %w", imageID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrImageNotFound, imageID)
	}
	return nil
}

// ReadRecord returns one image record
func (r *GormImageRepository) ReadRecord(ctx context.Context, imageID uuid.UUID) (*models.ImageRecord, error) {
	var image Image
	err := r.db.WithContext(ctx).Where("id = ?", imageID).First(&image).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrImageNotFound, imageID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", imageID, err)
	}
	record := image.toRecord()
	return &record, nil
}

// ListAnalyzedRecords returns the owner's images with tags and a description
func (r *GormImageRepository) ListAnalyzedRecords(ctx context.Context, ownerID uuid.UUID) ([]models.ImageRecord, error) {
	return r.list(r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Where("ai_tags IS NOT NULL").
		Where("ai_description IS NOT NULL"))
}

// ListTaggedRecords returns the owner's images with tags
func (r *GormImageRepository) ListTaggedRecords(ctx context.Context, ownerID uuid.UUID) ([]models.ImageRecord, error) {
	return r.list(r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Where("ai_tags IS NOT NULL"))
}

func (r *GormImageRepository) list(query *gorm.DB) ([]models.ImageRecord, error) {
	var images []Image
	if err := query.Order("uploaded_at DESC").Order("id").Find(&images).Error; err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	records := make([]models.ImageRecord, 0, len(images))
	for i := range images {
		records = append(records, images[i].toRecord())
	}
	return records, nil
}

// Ping checks database connectivity
func (r *GormImageRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
	}
	return nil
}
