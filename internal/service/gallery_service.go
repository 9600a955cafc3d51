package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	apperrors "github.com/anime-shed/image-gallery-go/internal/errors"
	"github.com/anime-shed/image-gallery-go/internal/logger"
	"github.com/anime-shed/image-gallery-go/internal/observer"
	"github.com/anime-shed/image-gallery-go/internal/quota"
	"github.com/anime-shed/image-gallery-go/internal/repository"
	"github.com/anime-shed/image-gallery-go/internal/similarity"
	"github.com/anime-shed/image-gallery-go/internal/vision"
	"github.com/anime-shed/image-gallery-go/pkg/models"

	"github.com/arbovm/levenshtein"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	ServiceName = "AI Image Gallery API"
	Version     = "1.0.0"

	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
	statusDegraded  = "degraded"
)

// GalleryService is the upward surface of the analysis pipeline
type GalleryService interface {
	SubmitAnalysis(ctx context.Context, imageID uuid.UUID, imageURL string) (*models.AnalyzeResponse, error)
	RetryAnalysis(ctx context.Context, imageID uuid.UUID, imageURL string) (*models.RetryResponse, error)
	GetProcessorStatus() models.ProcessorStatus
	FindSimilar(ctx context.Context, imageID uuid.UUID, limit int, threshold *float64) (*models.SimilarImageResponse, error)
	Suggestions(ctx context.Context, ownerID uuid.UUID, query string) (*models.SearchSuggestions, error)
	Health(ctx context.Context) models.HealthStatus
	Ready(ctx context.Context) error
}

// Processor admits and runs analyses
type Processor interface {
	Submit(imageID uuid.UUID, ref models.ImageRef) bool
	Retry(ctx context.Context, imageID uuid.UUID, ref models.ImageRef) models.ProcessResult
	Status() models.ProcessorStatus
}

// QuotaReporter exposes vision quota usage
type QuotaReporter interface {
	Usage() quota.Usage
}

// URLValidator checks caller supplied image references
type URLValidator interface {
	ValidateImageURL(imageURL string) error
}

// AnalysisStats exposes in-process analysis counters
type AnalysisStats interface {
	GetMetrics() observer.Snapshot
}

type galleryService struct {
	repo      repository.ImageRepository
	processor Processor
	analyzer  vision.Analyzer
	quota     QuotaReporter
	validator URLValidator
	stats     AnalysisStats
	opts      SearchOptions
	now       func() time.Time
}

// NewGalleryService creates a gallery service. stats may be nil.
func NewGalleryService(
	repo repository.ImageRepository,
	processor Processor,
	analyzer vision.Analyzer,
	quotaReporter QuotaReporter,
	validator URLValidator,
	stats AnalysisStats,
	opts SearchOptions,
) GalleryService {
	return &galleryService{
		repo:      repo,
		processor: processor,
		analyzer:  analyzer,
		quota:     quotaReporter,
		validator: validator,
		stats:     stats,
		opts:      opts,
		now:       time.Now,
	}
}

// SubmitAnalysis schedules a background analysis. A rejection by the
// processor is not an error; it is reported through Accepted and Reason.
func (s *galleryService) SubmitAnalysis(ctx context.Context, imageID uuid.UUID, imageURL string) (*models.AnalyzeResponse, error) {
	ref, err := s.resolveRef(ctx, imageID, imageURL)
	if err != nil {
		return nil, err
	}

	if s.processor.Submit(imageID, ref) {
		return &models.AnalyzeResponse{
			ImageID:  imageID,
			Accepted: true,
			Message:  "AI processing started",
		}, nil
	}

	resp := &models.AnalyzeResponse{ImageID: imageID, Reason: models.RejectCapacity}
	if s.isProcessing(imageID) {
		resp.Reason = models.RejectDuplicate
		resp.Message = apperrors.NewDuplicateSubmissionError(imageID.String()).Message
	} else {
		resp.Message = apperrors.NewCapacityExceededError(s.processor.Status().MaxConcurrent).Message
	}
	return resp, nil
}

// RetryAnalysis re-runs the analysis synchronously. Admission rejections
// are returned as errors; a failed analysis is reported in the response.
func (s *galleryService) RetryAnalysis(ctx context.Context, imageID uuid.UUID, imageURL string) (*models.RetryResponse, error) {
	ref, err := s.resolveRef(ctx, imageID, imageURL)
	if err != nil {
		return nil, err
	}

	logger.WithField("image_id", imageID).Info("Retrying AI processing")
	result := s.processor.Retry(ctx, imageID, ref)
	if !result.Success {
		if apperrors.IsType(result.Err, apperrors.ErrorTypeDuplicateSubmission) ||
			apperrors.IsType(result.Err, apperrors.ErrorTypeCapacityExceeded) {
			return nil, result.Err
		}
		return &models.RetryResponse{Success: false, Message: result.Error}, nil
	}

	return &models.RetryResponse{
		Success: true,
		Message: "AI processing completed",
		Result:  result.Result,
	}, nil
}

// GetProcessorStatus reports the in-flight analyses
func (s *galleryService) GetProcessorStatus() models.ProcessorStatus {
	return s.processor.Status()
}

// FindSimilar ranks the owner's other analyzed images against imageID
func (s *galleryService) FindSimilar(ctx context.Context, imageID uuid.UUID, limit int, threshold *float64) (*models.SimilarImageResponse, error) {
	start := s.now()

	source, err := s.readRecord(ctx, imageID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.repo.ListAnalyzedRecords(ctx, source.UserID)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to load analyzed images", err)
	}

	if limit <= 0 {
		limit = s.opts.DefaultLimit
	}
	minScore := s.opts.DefaultThreshold
	if threshold != nil {
		minScore = *threshold
	}

	similar, err := similarity.FindSimilar(*source, candidates, limit, minScore)
	if err != nil {
		return nil, err
	}

	elapsed := s.now().Sub(start)
	logger.WithFields(logrus.Fields{
		"image_id":   imageID,
		"candidates": len(candidates),
		"matches":    len(similar),
		"threshold":  minScore,
	}).Debug("Similarity search finished")

	return &models.SimilarImageResponse{
		SourceImageID: imageID,
		SimilarImages: similar,
		SearchTime:    elapsed.Seconds(),
	}, nil
}

// Suggestions returns the owner's most used tags and those matching query.
// Substring matches come first in popularity order; near misses within
// MaxEditDistance fill any remaining places.
func (s *galleryService) Suggestions(ctx context.Context, ownerID uuid.UUID, query string) (*models.SearchSuggestions, error) {
	records, err := s.repo.ListTaggedRecords(ctx, ownerID)
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to load tags", err)
	}

	ranked := rankTags(records)
	popular := ranked
	if len(popular) > s.opts.PopularTags {
		popular = popular[:s.opts.PopularTags]
	}

	return &models.SearchSuggestions{
		Query:       query,
		Suggestions: s.matchTags(ranked, query),
		PopularTags: append([]string{}, popular...),
	}, nil
}

func (s *galleryService) matchTags(ranked []string, query string) []string {
	suggestions := []string{}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return suggestions
	}

	seen := make(map[string]bool)
	for _, tag := range ranked {
		if len(suggestions) == s.opts.MaxSuggestions {
			return suggestions
		}
		if strings.Contains(strings.ToLower(tag), q) {
			suggestions = append(suggestions, tag)
			seen[tag] = true
		}
	}

	if s.opts.MaxEditDistance <= 0 {
		return suggestions
	}
	for _, tag := range ranked {
		if len(suggestions) == s.opts.MaxSuggestions {
			break
		}
		if !seen[tag] && levenshtein.Distance(q, strings.ToLower(tag)) <= s.opts.MaxEditDistance {
			suggestions = append(suggestions, tag)
		}
	}
	return suggestions
}

// rankTags orders tags by descending frequency, ties in first-seen order
func rankTags(records []models.ImageRecord) []string {
	counts := make(map[string]int)
	var order []string
	for _, record := range records {
		for _, tag := range record.AITags {
			if _, ok := counts[tag]; !ok {
				order = append(order, tag)
			}
			counts[tag]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	return order
}

// Health checks the database, the processor, the vision quota and the
// vision API. Any unhealthy check degrades the overall status.
func (s *galleryService) Health(ctx context.Context) models.HealthStatus {
	checks := map[string]models.HealthCheck{
		"database":     s.databaseCheck(ctx),
		"ai_processor": s.processorCheck(),
		"vision_quota": s.quotaCheck(),
		"azure_vision": s.visionCheck(ctx),
	}

	status := statusHealthy
	for _, check := range checks {
		if check.Status != statusHealthy {
			status = statusDegraded
			break
		}
	}

	return models.HealthStatus{
		Status:  status,
		Service: ServiceName,
		Version: Version,
		Time:    s.now().UTC(),
		Checks:  checks,
	}
}

// Ready reports whether the database is reachable
func (s *galleryService) Ready(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *galleryService) databaseCheck(ctx context.Context) models.HealthCheck {
	if err := s.repo.Ping(ctx); err != nil {
		return models.HealthCheck{Status: statusUnhealthy, Message: fmt.Sprintf("Error: %v", err)}
	}
	return models.HealthCheck{Status: statusHealthy, Message: "Connected"}
}

func (s *galleryService) processorCheck() models.HealthCheck {
	status := s.processor.Status()
	details := map[string]any{
		"active_tasks":   status.ActiveTasks,
		"max_concurrent": status.MaxConcurrent,
	}
	if s.stats != nil {
		snapshot := s.stats.GetMetrics()
		details["total_analyses"] = snapshot.TotalAnalyses
		details["successful_analyses"] = snapshot.SuccessfulAnalyses
		details["failed_analyses"] = snapshot.FailedAnalyses
		details["avg_processing_time"] = snapshot.AvgProcessingSec
	}
	return models.HealthCheck{
		Status:  statusHealthy,
		Message: fmt.Sprintf("AI processor active with %d tasks", status.ActiveTasks),
		Details: details,
	}
}

func (s *galleryService) quotaCheck() models.HealthCheck {
	usage := s.quota.Usage()
	details := map[string]any{
		"minute": usage.Minute,
		"day":    usage.Day,
		"month":  usage.Month,
		"limits": usage.Limits,
	}
	switch {
	case usage.Month >= usage.Limits.PerMonth:
		return models.HealthCheck{Status: statusUnhealthy, Message: "Monthly quota exhausted", Details: details}
	case usage.Day >= usage.Limits.PerDay:
		return models.HealthCheck{Status: statusUnhealthy, Message: "Daily quota exhausted", Details: details}
	}
	return models.HealthCheck{Status: statusHealthy, Message: "Quota available", Details: details}
}

func (s *galleryService) visionCheck(ctx context.Context) models.HealthCheck {
	if s.analyzer.TestConnection(ctx) {
		return models.HealthCheck{Status: statusHealthy, Message: "Connected"}
	}
	return models.HealthCheck{Status: statusUnhealthy, Message: "Connection failed"}
}

// resolveRef loads the record and picks the caller's URL or the record's
// original URL.
func (s *galleryService) resolveRef(ctx context.Context, imageID uuid.UUID, imageURL string) (models.ImageRef, error) {
	record, err := s.readRecord(ctx, imageID)
	if err != nil {
		return models.ImageRef{}, err
	}

	url := strings.TrimSpace(imageURL)
	if url == "" {
		url = record.OriginalURL
	}
	if url == "" {
		return models.ImageRef{}, apperrors.NewValidationError("image does not have a public URL for processing", nil)
	}
	if err := s.validator.ValidateImageURL(url); err != nil {
		return models.ImageRef{}, err
	}

	return models.ImageRef{URL: url, ContentType: record.MimeType}, nil
}

func (s *galleryService) readRecord(ctx context.Context, imageID uuid.UUID) (*models.ImageRecord, error) {
	record, err := s.repo.ReadRecord(ctx, imageID)
	if errors.Is(err, repository.ErrImageNotFound) {
		return nil, apperrors.NewNotFoundError("image not found", err)
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to load image", err)
	}
	return record, nil
}

func (s *galleryService) isProcessing(imageID uuid.UUID) bool {
	for _, id := range s.processor.Status().ProcessingImages {
		if id == imageID {
			return true
		}
	}
	return false
}
