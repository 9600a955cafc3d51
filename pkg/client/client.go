// Package client is a Go client for the gallery analysis API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anime-shed/image-gallery-go/pkg/models"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// APIError is a non-2xx answer from the server
type APIError struct {
	StatusCode int
	Response   models.ErrorResponse
}

func (e *APIError) Error() string {
	if e.Response.Message != "" {
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Response.Message)
	}
	return fmt.Sprintf("server returned %d", e.StatusCode)
}

// Client calls the gallery analysis API
type Client struct {
	http *resty.Client
}

// New creates a client for the server at baseURL
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

// Status returns the processor's in-flight analyses
func (c *Client) Status(ctx context.Context) (*models.ProcessorStatus, error) {
	var out models.ProcessorStatus
	if err := c.get(ctx, "/api/v1/processor/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Submit schedules a background analysis. A rejected submission is not an
// error; it comes back with Accepted false and a Reason.
func (c *Client) Submit(ctx context.Context, imageID uuid.UUID, imageURL string) (*models.AnalyzeResponse, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(models.AnalyzeRequest{ImageURL: imageURL}).
		Post("/api/v1/images/" + imageID.String() + "/analyze")
	if err != nil {
		return nil, fmt.Errorf("submit request failed: %w", err)
	}

	rejected := res.StatusCode() == http.StatusConflict || res.StatusCode() == http.StatusServiceUnavailable
	if !res.IsSuccess() && !rejected {
		return nil, apiError(res)
	}

	var out models.AnalyzeResponse
	if err := json.Unmarshal(res.Body(), &out); err != nil {
		if rejected {
			return nil, apiError(res)
		}
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if rejected && out.ImageID == uuid.Nil {
		return nil, apiError(res)
	}
	return &out, nil
}

// Retry re-runs an analysis synchronously
func (c *Client) Retry(ctx context.Context, imageID uuid.UUID, imageURL string) (*models.RetryResponse, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(models.RetryRequest{ImageURL: imageURL}).
		Post("/api/v1/images/" + imageID.String() + "/retry-processing")
	if err != nil {
		return nil, fmt.Errorf("retry request failed: %w", err)
	}
	if !res.IsSuccess() {
		return nil, apiError(res)
	}

	var out models.RetryResponse
	if err := json.Unmarshal(res.Body(), &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

// Similar finds images similar to imageID. A nil threshold uses the
// server default.
func (c *Client) Similar(ctx context.Context, imageID uuid.UUID, limit int, threshold *float64) (*models.SimilarImageResponse, error) {
	params := map[string]string{}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	if threshold != nil {
		params["similarity_threshold"] = strconv.FormatFloat(*threshold, 'f', -1, 64)
	}

	var out models.SimilarImageResponse
	if err := c.get(ctx, "/api/v1/search/images/"+imageID.String()+"/similar", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Suggestions returns tag suggestions for an owner's query
func (c *Client) Suggestions(ctx context.Context, ownerID uuid.UUID, query string) (*models.SearchSuggestions, error) {
	params := map[string]string{
		"owner_id": ownerID.String(),
		"query":    query,
	}

	var out models.SearchSuggestions
	if err := c.get(ctx, "/api/v1/search/suggestions", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health returns the detailed health report
func (c *Client) Health(ctx context.Context) (*models.HealthStatus, error) {
	var out models.HealthStatus
	if err := c.get(ctx, "/health/detailed", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, out any) error {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	if !res.IsSuccess() {
		return apiError(res)
	}
	if err := json.Unmarshal(res.Body(), out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func apiError(res *resty.Response) error {
	apiErr := &APIError{StatusCode: res.StatusCode()}
	_ = json.Unmarshal(res.Body(), &apiErr.Response)
	return apiErr
}
