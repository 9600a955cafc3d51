package factory

import (
	"context"
	"fmt"

	"github.com/anime-shed/image-gallery-go/internal/config"
	"github.com/anime-shed/image-gallery-go/internal/logger"
	"github.com/anime-shed/image-gallery-go/internal/quota"
	"github.com/anime-shed/image-gallery-go/internal/storage"
	"github.com/anime-shed/image-gallery-go/internal/vision"

	"github.com/sirupsen/logrus"
)

// StorageType represents different types of storage backends
type StorageType string

const (
	// HTTPStorage for plain http(s) image URLs
	HTTPStorage StorageType = "http"
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = "azure"
	// S3Storage for S3-compatible storage such as Supabase Storage
	S3Storage StorageType = "s3"
)

// StorageFactory creates storage implementations
type StorageFactory interface {
	CreateStorage(ctx context.Context, storageType StorageType) (storage.BlobFetcher, error)
}

// AnalyzerFactory creates vision analyzers
type AnalyzerFactory interface {
	CreateAnalyzer(gate vision.QuotaGate, fetcher storage.BlobFetcher) vision.Analyzer
}

type storageFactory struct {
	cfg *config.Config
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config) StorageFactory {
	return &storageFactory{cfg: cfg}
}

// CreateStorage creates a storage implementation based on the specified type
func (f *storageFactory) CreateStorage(ctx context.Context, storageType StorageType) (storage.BlobFetcher, error) {
	switch storageType {
	case HTTPStorage:
		return storage.NewHTTPFetcher(), nil
	case AzureStorage:
		if !f.cfg.AzureStorageEnabled() {
			return nil, fmt.Errorf("azure storage is not configured")
		}
		return storage.NewAzureBlobFetcher(f.cfg.AzureStorageAccount, f.cfg.AzureStorageKey, "")
	case S3Storage:
		if !f.cfg.S3Enabled() {
			return nil, fmt.Errorf("s3 storage is not configured")
		}
		return storage.NewS3Fetcher(ctx, storage.S3Config{
			EndpointURL:     f.cfg.S3EndpointURL,
			Region:          f.cfg.S3Region,
			AccessKeyID:     f.cfg.S3AccessKeyID,
			SecretAccessKey: f.cfg.S3SecretAccessKey,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

type analyzerFactory struct {
	cfg *config.Config
}

// NewAnalyzerFactory creates a new analyzer factory
func NewAnalyzerFactory(cfg *config.Config) AnalyzerFactory {
	return &analyzerFactory{cfg: cfg}
}

// CreateAnalyzer creates the Computer Vision client
func (f *analyzerFactory) CreateAnalyzer(gate vision.QuotaGate, fetcher storage.BlobFetcher) vision.Analyzer {
	return vision.NewClient(vision.Options{
		Endpoint:     f.cfg.VisionEndpoint,
		Key:          f.cfg.VisionKey,
		Timeout:      f.cfg.VisionTimeout,
		TestImageURL: f.cfg.VisionTestImageURL,
		InlineHTTP:   f.cfg.VisionInlineHTTP,
	}, gate, fetcher)
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	cfg             *config.Config
	AnalyzerFactory AnalyzerFactory
	StorageFactory  StorageFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	return &ComponentFactory{
		cfg:             cfg,
		AnalyzerFactory: NewAnalyzerFactory(cfg),
		StorageFactory:  NewStorageFactory(cfg),
	}
}

// CreateStorageRouter registers every configured backend by scheme.
// HTTP is always available; Azure and S3 only when credentials are set.
func (f *ComponentFactory) CreateStorageRouter(ctx context.Context) (*storage.Router, error) {
	router := storage.NewRouter()

	web, err := f.StorageFactory.CreateStorage(ctx, HTTPStorage)
	if err != nil {
		return nil, err
	}
	router.Register(web, storage.SchemeHTTP, storage.SchemeHTTPS)

	if f.cfg.AzureStorageEnabled() {
		azure, err := f.StorageFactory.CreateStorage(ctx, AzureStorage)
		if err != nil {
			return nil, err
		}
		router.Register(azure, storage.SchemeAzureBlob)
	}

	if f.cfg.S3Enabled() {
		s3, err := f.StorageFactory.CreateStorage(ctx, S3Storage)
		if err != nil {
			return nil, err
		}
		router.Register(s3, storage.SchemeS3)
	}

	logger.WithFields(logrus.Fields{
		"schemes": router.Schemes(),
	}).Info("Blob storage backends configured")

	return router, nil
}

// CreateQuotaTracker builds the vision quota tracker from configuration
func (f *ComponentFactory) CreateQuotaTracker() *quota.Tracker {
	return quota.NewTracker(quota.Limits{
		PerMinute: f.cfg.RateLimitPerMinute,
		PerDay:    f.cfg.RateLimitPerDay,
		PerMonth:  f.cfg.RateLimitPerMonth,
	}, quota.WithResetPolicy(quota.ResetPolicy(f.cfg.QuotaResetPolicy)))
}
