package pipeline

import (
	"context"
	"sync/atomic"

	apperrors "github.com/anime-shed/image-gallery-go/internal/errors"
	"github.com/anime-shed/image-gallery-go/internal/metrics"
	"github.com/anime-shed/image-gallery-go/internal/worker"
	"github.com/anime-shed/image-gallery-go/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Governor admits analyses into the registry and schedules them on a
// bounded worker pool. Submitters never wait for the outcome.
type Governor struct {
	registry     *Registry
	orchestrator *Orchestrator
	pool         *worker.Pool
	closed       atomic.Bool

	// background runs are not tied to any request
	ctx context.Context
}

// NewGovernor creates a governor with one worker per registry slot
func NewGovernor(maxConcurrent int, orchestrator *Orchestrator) *Governor {
	registry := NewRegistry(maxConcurrent)
	pool := worker.NewPool(registry.Max(), registry.Max())
	pool.Start()

	return &Governor{
		registry:     registry,
		orchestrator: orchestrator,
		pool:         pool,
		ctx:          context.Background(),
	}
}

// Submit admits an image for background analysis and reports whether it
// was accepted. Duplicates and a full registry are rejected with no side
// effect.
func (g *Governor) Submit(imageID uuid.UUID, ref models.ImageRef) bool {
	if g.closed.Load() {
		metrics.Submissions.WithLabelValues("closed").Inc()
		return false
	}

	if err := g.registry.Acquire(imageID); err != nil {
		g.reject(imageID, err)
		return false
	}

	accepted := g.pool.TrySubmit(func() {
		g.execute(g.ctx, imageID, ref)
	})
	if !accepted {
		g.registry.Release(imageID)
		metrics.Submissions.WithLabelValues("closed").Inc()
		log.WithField("image_id", imageID).Warn("Worker pool refused analysis")
		return false
	}

	metrics.Submissions.WithLabelValues("accepted").Inc()
	log.WithFields(logrus.Fields{
		"image_id":     imageID,
		"active_tasks": g.registry.Len(),
	}).Info("Image analysis scheduled")
	return true
}

// Retry resets an image to pending and analyzes it synchronously. It is
// admitted exactly like a fresh submission, so a retry of an in-flight
// image is rejected before any status is written. Once admitted the run
// ignores cancellation of ctx and always ends completed or failed.
func (g *Governor) Retry(ctx context.Context, imageID uuid.UUID, ref models.ImageRef) models.ProcessResult {
	if g.closed.Load() {
		err := apperrors.NewInternalError("processor is shutting down", nil)
		return models.ProcessResult{ImageID: imageID, Error: apperrors.MessageOf(err), Err: err}
	}

	if err := g.registry.Acquire(imageID); err != nil {
		g.reject(imageID, err)
		return models.ProcessResult{ImageID: imageID, Error: apperrors.MessageOf(err), Err: err}
	}
	defer g.registry.Release(imageID)

	metrics.Submissions.WithLabelValues("accepted").Inc()
	ctx = context.WithoutCancel(ctx)
	g.orchestrator.Reset(ctx, imageID)
	return g.orchestrator.Run(ctx, imageID, ref)
}

// Status reports the in-flight analyses
func (g *Governor) Status() models.ProcessorStatus {
	return g.registry.Snapshot()
}

// Close stops admissions and waits for scheduled analyses to finish
func (g *Governor) Close() {
	if g.closed.Swap(true) {
		return
	}
	g.pool.Close()
}

func (g *Governor) execute(ctx context.Context, imageID uuid.UUID, ref models.ImageRef) {
	defer g.registry.Release(imageID)
	g.orchestrator.Run(ctx, imageID, ref)
}

func (g *Governor) reject(imageID uuid.UUID, err error) {
	outcome := "rejected"
	switch {
	case apperrors.IsType(err, apperrors.ErrorTypeDuplicateSubmission):
		outcome = "duplicate"
	case apperrors.IsType(err, apperrors.ErrorTypeCapacityExceeded):
		outcome = "capacity"
	}
	metrics.Submissions.WithLabelValues(outcome).Inc()
	log.WithFields(logrus.Fields{
		"image_id": imageID,
		"reason":   outcome,
	}).Warn("Image analysis rejected")
}
