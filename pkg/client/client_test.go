package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anime-shed/image-gallery-go/pkg/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, 5*time.Second)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestSubmit(t *testing.T) {
	id := uuid.New()
	var gotBody models.AnalyzeRequest
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/images/"+id.String()+"/analyze", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		writeJSON(w, http.StatusAccepted, models.AnalyzeResponse{ImageID: id, Accepted: true})
	})

	resp, err := c.Submit(context.Background(), id, "s3://gallery/a.jpg")
	require.NoError(t, err)
	assert.True(t, resp.Accepted)
	assert.Equal(t, "s3://gallery/a.jpg", gotBody.ImageURL)
}

func TestSubmit_Rejected(t *testing.T) {
	id := uuid.New()
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, models.AnalyzeResponse{ImageID: id, Reason: models.RejectDuplicate})
	})

	resp, err := c.Submit(context.Background(), id, "")
	require.NoError(t, err)
	assert.False(t, resp.Accepted)
	assert.Equal(t, models.RejectDuplicate, resp.Reason)
}

func TestSubmit_Error(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Not Found", Message: "image not found", Type: "not_found"})
	})

	_, err := c.Submit(context.Background(), uuid.New(), "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "not_found", apiErr.Response.Type)
	assert.Contains(t, err.Error(), "image not found")
}

func TestRetry(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/retry-processing")
		writeJSON(w, http.StatusOK, models.RetryResponse{Success: true, Message: "AI processing completed"})
	})

	resp, err := c.Retry(context.Background(), uuid.New(), "")
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestSimilar(t *testing.T) {
	id := uuid.New()
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		assert.Equal(t, "0.4", r.URL.Query().Get("similarity_threshold"))
		writeJSON(w, http.StatusOK, models.SimilarImageResponse{SourceImageID: id})
	})

	threshold := 0.4
	resp, err := c.Similar(context.Background(), id, 3, &threshold)
	require.NoError(t, err)
	assert.Equal(t, id, resp.SourceImageID)
}

func TestSuggestionsAndStatus(t *testing.T) {
	owner := uuid.New()
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/search/suggestions":
			assert.Equal(t, owner.String(), r.URL.Query().Get("owner_id"))
			writeJSON(w, http.StatusOK, models.SearchSuggestions{Query: r.URL.Query().Get("query"), Suggestions: []string{"sky"}})
		case "/api/v1/processor/status":
			writeJSON(w, http.StatusOK, models.ProcessorStatus{ActiveTasks: 2, MaxConcurrent: 5})
		case "/health/detailed":
			writeJSON(w, http.StatusOK, models.HealthStatus{Status: "healthy"})
		default:
			http.NotFound(w, r)
		}
	})

	suggestions, err := c.Suggestions(context.Background(), owner, "sk")
	require.NoError(t, err)
	assert.Equal(t, "sk", suggestions.Query)
	assert.Equal(t, []string{"sky"}, suggestions.Suggestions)

	status, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, status.ActiveTasks)

	health, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
}
