package container

import (
	"context"
	"fmt"
	"net/http"

	"github.com/anime-shed/image-gallery-go/internal/config"
	"github.com/anime-shed/image-gallery-go/internal/factory"
	"github.com/anime-shed/image-gallery-go/internal/logger"
	"github.com/anime-shed/image-gallery-go/internal/observer"
	"github.com/anime-shed/image-gallery-go/internal/pipeline"
	"github.com/anime-shed/image-gallery-go/internal/quota"
	"github.com/anime-shed/image-gallery-go/internal/repository"
	"github.com/anime-shed/image-gallery-go/internal/service"
	"github.com/anime-shed/image-gallery-go/internal/storage"
	"github.com/anime-shed/image-gallery-go/internal/transport"
	"github.com/anime-shed/image-gallery-go/internal/vision"
	"github.com/anime-shed/image-gallery-go/pkg/validation"

	"gorm.io/gorm"
)

// Container holds all application dependencies
type Container struct {
	config         *config.Config
	db             *gorm.DB
	blobs          *storage.Router
	quotaTracker   *quota.Tracker
	analyzer       vision.Analyzer
	governor       *pipeline.Governor
	galleryService service.GalleryService
	handler        http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	db, err := repository.Open(cfg.DatabaseDriver, cfg.DatabaseURL, cfg.DatabaseAutoMigrate)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	imageRepository := repository.NewGormImageRepository(db)

	// Build dependency graph
	components := factory.NewComponentFactory(cfg)
	blobs, err := components.CreateStorageRouter(ctx)
	if err != nil {
		closeDB(db)
		return nil, fmt.Errorf("failed to configure blob storage: %w", err)
	}
	quotaTracker := components.CreateQuotaTracker()
	analyzer := components.AnalyzerFactory.CreateAnalyzer(quotaTracker, blobs)

	events := observer.NewEventPublisher()
	stats := observer.NewMetricsObserver()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(stats)

	orchestrator := pipeline.NewOrchestrator(analyzer, imageRepository, events)
	governor := pipeline.NewGovernor(cfg.MaxConcurrentTasks, orchestrator)

	galleryService := service.NewGalleryService(
		imageRepository,
		governor,
		analyzer,
		quotaTracker,
		validation.NewURLValidatorWithOptions(blobs.Schemes(), nil),
		stats,
		service.DefaultSearchOptions(),
	)
	handler := transport.NewHandler(galleryService, cfg)

	return &Container{
		config:         cfg,
		db:             db,
		blobs:          blobs,
		quotaTracker:   quotaTracker,
		analyzer:       analyzer,
		governor:       governor,
		galleryService: galleryService,
		handler:        handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Service returns the gallery service
func (c *Container) Service() service.GalleryService {
	return c.galleryService
}

// Close stops admitting analyses, waits for scheduled ones and closes the
// database. Analyses still running when the process exits stay in
// processing and must be retried by an operator.
func (c *Container) Close() {
	c.governor.Close()
	closeDB(c.db)
}

func closeDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.WithError(err).Warn("Failed to close database")
	}
}
