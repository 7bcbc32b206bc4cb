package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JesusSantiago31/API-GPS/pkg/logger"
	"github.com/JesusSantiago31/API-GPS/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_PostSendsJSONAndHeaders(t *testing.T) {
	var gotBody map[string]interface{}
	var gotAuth, gotCorrelation, gotContentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/driving-car", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotCorrelation = r.Header.Get(middleware.CorrelationIDHeader)
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, WithHeader("Authorization", "key"))
	ctx := logger.ContextWithCorrelationID(context.Background(), "corr-1")

	body, err := client.Post(ctx, "/driving-car", map[string]string{"instructions": "false"}, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, "key", gotAuth)
	assert.Equal(t, "corr-1", gotCorrelation)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "false", gotBody["instructions"])
}

func TestClient_GetReturnsHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"Access to this API has been disallowed"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.Get(context.Background(), "/search?text=x", nil)
	require.Error(t, err)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusForbidden, httpErr.StatusCode)
	assert.Contains(t, httpErr.Body, "disallowed")
}

func TestClient_RespectsContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Get(ctx, "/", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestWithHTTPClient_KeepsTimeout(t *testing.T) {
	hc := &http.Client{}
	client := NewClient("http://example", 3*time.Second, WithHTTPClient(hc))
	assert.Equal(t, 3*time.Second, client.httpClient.Timeout)
	assert.Equal(t, "http://example", client.BaseURL())
}
