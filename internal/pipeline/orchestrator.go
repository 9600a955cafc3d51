package pipeline

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/anime-shed/image-gallery-go/internal/errors"
	"github.com/anime-shed/image-gallery-go/internal/metrics"
	"github.com/anime-shed/image-gallery-go/internal/observer"
	"github.com/anime-shed/image-gallery-go/internal/repository"
	"github.com/anime-shed/image-gallery-go/internal/vision"
	"github.com/anime-shed/image-gallery-go/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Orchestrator drives one image through processing to completed or failed.
// Persistence writes are best effort: failures are logged and counted but
// never change the outcome of the analysis.
type Orchestrator struct {
	analyzer vision.Analyzer
	repo     repository.ImageRepository
	events   observer.Subject
	now      func() time.Time
}

// NewOrchestrator creates an orchestrator. events may be nil.
func NewOrchestrator(analyzer vision.Analyzer, repo repository.ImageRepository, events observer.Subject) *Orchestrator {
	return &Orchestrator{
		analyzer: analyzer,
		repo:     repo,
		events:   events,
		now:      time.Now,
	}
}

// Run analyzes one image and persists the outcome. A panic anywhere in the
// analysis is recovered and reported as a failed outcome. Cancelling ctx
// does not stop an admitted run; its status always ends completed or failed.
func (o *Orchestrator) Run(ctx context.Context, imageID uuid.UUID, ref models.ImageRef) (res models.ProcessResult) {
	ctx = context.WithoutCancel(ctx)
	start := o.now()
	res.ImageID = imageID

	defer func() {
		if r := recover(); r != nil {
			err := apperrors.NewInternalError(fmt.Sprintf("analysis panicked: %v", r), nil)
			res = o.fail(ctx, imageID, start, err)
		}
	}()

	o.publish(ctx, observer.AnalysisEvent{
		EventType: observer.AnalysisStarted,
		ImageID:   imageID,
		ImageURL:  ref.URL,
	})
	o.setStatus(ctx, imageID, models.StatusProcessing)

	result, err := o.analyzer.Analyze(ctx, ref)
	if err != nil {
		return o.fail(ctx, imageID, start, err)
	}

	o.persistResult(ctx, imageID, result)
	o.setStatus(ctx, imageID, models.StatusCompleted)

	elapsed := o.now().Sub(start)
	o.publish(ctx, observer.AnalysisEvent{
		EventType:      observer.AnalysisCompleted,
		ImageID:        imageID,
		ProcessingTime: elapsed,
		Success:        true,
		Metadata: map[string]interface{}{
			"tags":   len(result.Tags),
			"colors": len(result.DominantColors),
		},
	})

	return models.ProcessResult{
		Success:        true,
		ImageID:        imageID,
		ProcessingTime: elapsed,
		ProcessingSec:  elapsed.Seconds(),
		Result:         result,
	}
}

// Reset marks an image pending ahead of a retry
func (o *Orchestrator) Reset(ctx context.Context, imageID uuid.UUID) {
	o.setStatus(ctx, imageID, models.StatusPending)
}

func (o *Orchestrator) fail(ctx context.Context, imageID uuid.UUID, start time.Time, err error) models.ProcessResult {
	o.setStatus(ctx, imageID, models.StatusFailed)

	elapsed := o.now().Sub(start)
	event := observer.AnalysisEvent{
		EventType:      observer.AnalysisFailed,
		ImageID:        imageID,
		ProcessingTime: elapsed,
		ErrorMessage:   err.Error(),
	}
	if scope, ok := apperrors.QuotaScopeOf(err); ok {
		event.Metadata = map[string]interface{}{"quota_scope": scope}
	}
	o.publish(ctx, event)

	return models.ProcessResult{
		Success:        false,
		ImageID:        imageID,
		ProcessingTime: elapsed,
		ProcessingSec:  elapsed.Seconds(),
		Error:          apperrors.MessageOf(err),
		Err:            err,
	}
}

func (o *Orchestrator) setStatus(ctx context.Context, imageID uuid.UUID, status models.ProcessingStatus) {
	if err := o.repo.UpdateStatus(ctx, imageID, status); err != nil {
		metrics.PersistenceErrors.WithLabelValues("update_status").Inc()
		log.WithError(err).WithFields(logrus.Fields{
			"image_id": imageID,
			"status":   status,
		}).Error("Failed to update image status")
		return
	}
	log.WithFields(logrus.Fields{
		"image_id": imageID,
		"status":   status,
	}).Debug("Image status updated")
}

func (o *Orchestrator) persistResult(ctx context.Context, imageID uuid.UUID, result *models.AnalysisResult) {
	if err := o.repo.UpdateResult(ctx, imageID, result); err != nil {
		metrics.PersistenceErrors.WithLabelValues("update_result").Inc()
		log.WithError(err).WithField("image_id", imageID).Error("Failed to store analysis result")
	}
}

func (o *Orchestrator) publish(ctx context.Context, event observer.AnalysisEvent) {
	if o.events == nil {
		return
	}
	o.events.NotifyObservers(ctx, event)
}
