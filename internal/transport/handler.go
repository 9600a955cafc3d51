package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/anime-shed/image-gallery-go/internal/config"
	apperrors "github.com/anime-shed/image-gallery-go/internal/errors"
	"github.com/anime-shed/image-gallery-go/internal/logger"
	"github.com/anime-shed/image-gallery-go/internal/service"
	"github.com/anime-shed/image-gallery-go/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func NewHandler(svc service.GalleryService, cfg *config.Config) http.Handler {
	r := gin.New()

	// Add middleware
	r.Use(
		gin.Recovery(),
		requestLogger(),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	health := r.Group("/health")
	health.GET("", healthCheck)
	health.GET("/detailed", detailedHealth(svc, cfg))
	health.GET("/ready", readiness(svc, cfg))
	health.GET("/live", liveness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	api.POST("/images/:id/analyze", submitAnalysis(svc, cfg))
	api.POST("/images/:id/retry-processing", retryAnalysis(svc, cfg))
	api.GET("/processor/status", processorStatus(svc))
	api.GET("/search/images/:id/similar", findSimilar(svc, cfg))
	api.GET("/search/suggestions", suggestions(svc, cfg))

	return r
}

func submitAnalysis(svc service.GalleryService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		imageID, ok := imageIDParam(c)
		if !ok {
			return
		}

		var req models.AnalyzeRequest
		if !bindOptionalJSON(c, &req) {
			return
		}

		resp, err := svc.SubmitAnalysis(ctx, imageID, req.ImageURL)
		if err != nil {
			respondError(c, determineStatusCode(err), "failed to submit analysis", err)
			return
		}

		status := http.StatusAccepted
		switch {
		case resp.Accepted:
		case resp.Reason == models.RejectDuplicate:
			status = http.StatusConflict
		default:
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, resp)
	}
}

func retryAnalysis(svc service.GalleryService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		imageID, ok := imageIDParam(c)
		if !ok {
			return
		}

		var req models.RetryRequest
		if !bindOptionalJSON(c, &req) {
			return
		}

		startTime := time.Now()
		resp, err := svc.RetryAnalysis(ctx, imageID, req.ImageURL)
		if err != nil {
			respondError(c, determineStatusCode(err), "failed to retry analysis", err)
			return
		}

		logger.WithFields(logrus.Fields{
			"image_id":           imageID,
			"success":            resp.Success,
			"processing_time_ms": time.Since(startTime).Milliseconds(),
		}).Info("Retry request finished")

		c.JSON(http.StatusOK, resp)
	}
}

func processorStatus(svc service.GalleryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.GetProcessorStatus())
	}
}

func findSimilar(svc service.GalleryService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		imageID, ok := imageIDParam(c)
		if !ok {
			return
		}

		var query models.SimilarQuery
		if err := c.ShouldBindQuery(&query); err != nil {
			respondError(c, http.StatusBadRequest, "invalid query parameters", err)
			return
		}

		resp, err := svc.FindSimilar(ctx, imageID, query.Limit, query.Threshold)
		if err != nil {
			respondError(c, determineStatusCode(err), "similarity search failed", err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func suggestions(svc service.GalleryService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		var query models.SuggestionsQuery
		if err := c.ShouldBindQuery(&query); err != nil {
			respondError(c, http.StatusBadRequest, "invalid query parameters", err)
			return
		}

		resp, err := svc.Suggestions(ctx, uuid.MustParse(query.OwnerID), query.Query)
		if err != nil {
			respondError(c, determineStatusCode(err), "search suggestions failed", err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": service.ServiceName,
		"version": service.Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func detailedHealth(svc service.GalleryService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()
		c.JSON(http.StatusOK, svc.Health(ctx))
	}
}

func readiness(svc service.GalleryService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		if err := svc.Ready(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not_ready",
				"reason": "database connection failed",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}

func liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func imageIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid image id", apperrors.NewValidationError("image id must be a UUID", err))
		return uuid.Nil, false
	}
	return id, true
}

// bindOptionalJSON binds a JSON body when one is present
func bindOptionalJSON(c *gin.Context, obj any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		logger.WithError(err).WithFields(logrus.Fields{
			"ip": c.ClientIP(),
		}).Error("Invalid request format")
		respondError(c, http.StatusBadRequest, "invalid request format", err)
		return false
	}
	return true
}

// Middleware and helper functions
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status_code": c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"ip":          c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}).Debug("Request handled")
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err.Err), "request processing failed", err.Err)
		}
	}
}

func determineStatusCode(err error) int {
	// Check if it's a custom app error first
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	// Fallback to context-based errors
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	// Log the error with context
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	resp := models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %s", message, apperrors.MessageOf(err)),
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		resp.Type = string(appErr.Type)
	}
	c.AbortWithStatusJSON(code, resp)
}
