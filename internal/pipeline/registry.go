package pipeline

import (
	"sort"
	"sync"
	"time"

	apperrors "github.com/anime-shed/image-gallery-go/internal/errors"
	"github.com/anime-shed/image-gallery-go/internal/logger"
	"github.com/anime-shed/image-gallery-go/internal/metrics"
	"github.com/anime-shed/image-gallery-go/pkg/models"

	"github.com/google/uuid"
)

var log = logger.Component("pipeline")

// DefaultMaxConcurrent bounds in-flight analyses when none is configured
const DefaultMaxConcurrent = 5

// Registry tracks in-flight analyses, at most one per image
type Registry struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]models.AnalysisTask
	max   int
	now   func() time.Time
}

// NewRegistry creates a registry holding at most max entries
func NewRegistry(max int) *Registry {
	if max <= 0 {
		max = DefaultMaxConcurrent
	}
	return &Registry{
		tasks: make(map[uuid.UUID]models.AnalysisTask, max),
		max:   max,
		now:   time.Now,
	}
}

// Acquire registers an image as in flight. It fails with a duplicate
// submission error if the image is already registered and with a capacity
// error if the registry is full.
func (r *Registry) Acquire(imageID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[imageID]; exists {
		return apperrors.NewDuplicateSubmissionError(imageID.String())
	}
	if len(r.tasks) >= r.max {
		return apperrors.NewCapacityExceededError(r.max)
	}

	r.tasks[imageID] = models.AnalysisTask{
		ImageID:   imageID,
		StartedAt: r.now().UTC(),
		State:     models.StatusProcessing,
	}
	metrics.ActiveTasks.Set(float64(len(r.tasks)))
	return nil
}

// Release removes an image's entry. It reports false if there was none.
func (r *Registry) Release(imageID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[imageID]; !exists {
		return false
	}
	delete(r.tasks, imageID)
	metrics.ActiveTasks.Set(float64(len(r.tasks)))
	return true
}

// Contains reports whether the image is in flight
func (r *Registry) Contains(imageID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.tasks[imageID]
	return exists
}

// Len returns the number of in-flight analyses
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// Max returns the registry capacity
func (r *Registry) Max() int {
	return r.max
}

// Snapshot returns the in-flight images ordered by start time
func (r *Registry) Snapshot() models.ProcessorStatus {
	r.mu.Lock()
	tasks := make([]models.AnalysisTask, 0, len(r.tasks))
	for _, task := range r.tasks {
		tasks = append(tasks, task)
	}
	r.mu.Unlock()

	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].StartedAt.Equal(tasks[j].StartedAt) {
			return tasks[i].StartedAt.Before(tasks[j].StartedAt)
		}
		return tasks[i].ImageID.String() < tasks[j].ImageID.String()
	})

	ids := make([]uuid.UUID, len(tasks))
	for i, task := range tasks {
		ids[i] = task.ImageID
	}
	return models.ProcessorStatus{
		ActiveTasks:      len(tasks),
		MaxConcurrent:    r.max,
		ProcessingImages: ids,
	}
}
