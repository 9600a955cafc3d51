package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/anime-shed/image-gallery-go/internal/errors"
	"github.com/anime-shed/image-gallery-go/internal/logger"
	"github.com/anime-shed/image-gallery-go/internal/metrics"
	"github.com/anime-shed/image-gallery-go/internal/storage"
	"github.com/anime-shed/image-gallery-go/pkg/models"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const (
	analyzePath       = "/vision/v3.2/analyze"
	subscriptionKey   = "Ocp-Apim-Subscription-Key"
	maxLoggedBodySize = 512
)

var log = logger.Component("vision")

var analyzeParams = map[string]string{
	"visualFeatures": "Tags,Description,Color",
	"details":        "Landmarks",
	"language":       "en",
}

// Analyzer produces canonical analysis results for images
type Analyzer interface {
	Analyze(ctx context.Context, ref models.ImageRef) (*models.AnalysisResult, error)
	TestConnection(ctx context.Context) bool
}

// QuotaGate admits or rejects one vision API call
type QuotaGate interface {
	Admit(ctx context.Context) error
}

// Options configures the vision client
type Options struct {
	Endpoint     string
	Key          string
	Timeout      time.Duration
	TestImageURL string
	InlineHTTP   bool
}

// Client talks to Azure Computer Vision v3.2
type Client struct {
	http         *resty.Client
	key          string
	quota        QuotaGate
	payloads     *PayloadSelector
	testImageURL string
}

// NewClient creates a vision client. fetcher may be nil when only
// http(s) images are analyzed by reference.
func NewClient(opts Options, quota QuotaGate, fetcher storage.BlobFetcher) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(opts.Endpoint, "/")).
			SetTimeout(timeout),
		key:          opts.Key,
		quota:        quota,
		payloads:     NewPayloadSelector(fetcher, opts.InlineHTTP),
		testImageURL: opts.TestImageURL,
	}
}

// Analyze runs one quota-gated analysis call. Quota errors are returned
// unchanged; every other failure is an analysis error. There is no retry.
func (c *Client) Analyze(ctx context.Context, ref models.ImageRef) (*models.AnalysisResult, error) {
	if err := c.quota.Admit(ctx); err != nil {
		return nil, err
	}

	strategy := c.payloads.Select(ref)
	payload, err := strategy.Build(ctx, ref)
	if err != nil {
		metrics.VisionRequests.WithLabelValues("payload_error").Inc()
		return nil, apperrors.NewAnalysisError("failed to prepare image payload", err)
	}

	log.WithFields(logrus.Fields{
		"image_url":    ref.URL,
		"payload":      strategy.GetStrategyName(),
		"content_type": payload.ContentType,
	}).Debug("Calling vision API")

	res, err := c.http.R().
		SetContext(ctx).
		SetHeader(subscriptionKey, c.key).
		SetHeader("Content-Type", payload.ContentType).
		SetHeader("Accept", "application/json").
		SetQueryParams(analyzeParams).
		SetBody(payload.Body).
		Post(analyzePath)
	if err != nil {
		metrics.VisionRequests.WithLabelValues("transport_error").Inc()
		return nil, apperrors.NewAnalysisError("vision API request failed", err)
	}

	if !res.IsSuccess() {
		metrics.VisionRequests.WithLabelValues("http_error").Inc()
		body := res.String()
		if len(body) > maxLoggedBodySize {
			body = body[:maxLoggedBodySize]
		}
		log.WithFields(logrus.Fields{
			"status_code": res.StatusCode(),
			"body":        body,
		}).Error("Vision API returned error")
		return nil, apperrors.NewAnalysisError(
			fmt.Sprintf("vision API returned status %d", res.StatusCode()),
			fmt.Errorf("%s", body),
		)
	}

	var parsed apiResponse
	if err := json.Unmarshal(res.Body(), &parsed); err != nil {
		metrics.VisionRequests.WithLabelValues("decode_error").Inc()
		return nil, apperrors.NewAnalysisError("malformed vision API response", err)
	}

	metrics.VisionRequests.WithLabelValues("success").Inc()
	return normalize(&parsed), nil
}

// TestConnection analyzes a fixed placeholder image and reports success
func (c *Client) TestConnection(ctx context.Context) bool {
	if _, err := c.Analyze(ctx, models.ImageRef{URL: c.testImageURL}); err != nil {
		log.WithError(err).Error("Vision API connection test failed")
		return false
	}
	return true
}
