package repository

import (
	"encoding/json"
	"time"

	"github.com/anime-shed/image-gallery-go/pkg/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Image mirrors the images table owned by Supabase
type Image struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey"`
	UserID           uuid.UUID      `gorm:"type:uuid;not null;index"`
	Filename         string         `gorm:"not null"`
	OriginalFilename string         `gorm:"not null"`
	FileSize         int64
	MimeType         string         `gorm:"size:50"`
	OriginalURL      string         `gorm:"column:original_url;not null"`
	ThumbnailURL     *string        `gorm:"column:thumbnail_url"`
	ProcessingStatus string         `gorm:"size:20;not null;default:pending"`
	AITags           datatypes.JSON `gorm:"column:ai_tags;type:jsonb"` // ["tag", …]
	AIDescription    *string        `gorm:"column:ai_description"`
	DominantColors   datatypes.JSON `gorm:"column:dominant_colors;type:jsonb"` // ["#RRGGBB", …]
	UploadedAt       time.Time      `gorm:"autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime"`
}

func (Image) TableName() string {
	return "images"
}

func (i *Image) toRecord() models.ImageRecord {
	record := models.ImageRecord{
		ID:               i.ID,
		UserID:           i.UserID,
		Filename:         i.Filename,
		OriginalFilename: i.OriginalFilename,
		MimeType:         i.MimeType,
		OriginalURL:      i.OriginalURL,
		ProcessingStatus: models.ProcessingStatus(i.ProcessingStatus),
		AITags:           decodeStrings(i.AITags),
		AIDescription:    i.AIDescription,
		DominantColors:   decodeStrings(i.DominantColors),
		UploadedAt:       i.UploadedAt,
		UpdatedAt:        i.UpdatedAt,
	}
	if i.ThumbnailURL != nil {
		record.ThumbnailURL = *i.ThumbnailURL
	}
	return record
}

func encodeStrings(values []string) (datatypes.JSON, error) {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

// decodeStrings returns nil for SQL NULL and for undecodable payloads
func decodeStrings(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil
	}
	if values == nil {
		values = []string{}
	}
	return values
}
