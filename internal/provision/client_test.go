package provision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilothq/sessiondock/internal/config"
	"github.com/pilothq/sessiondock/pkg/models"
)

func newTestClient() *Client {
	return &Client{httpClient: &http.Client{Timeout: 5 * time.Second}}
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		APIKey:    "bb-key",
		ProjectID: "proj-1",
		APIURL:    baseURL,
	}
}

func TestCreateSessionSendsCredentials(t *testing.T) {
	var gotKey string
	var gotReq models.CreateSessionRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/sessions", r.URL.Path)
		gotKey = r.Header.Get("X-BB-API-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.Session{
			ID:         "ext-123",
			ProjectID:  gotReq.ProjectID,
			Status:     models.StatusRunning,
			ConnectURL: "ws://upstream/devtools",
		})
	}))
	defer srv.Close()

	client := newTestClient()
	remote, err := client.createSession(context.Background(), testConfig(srv.URL))

	require.NoError(t, err)
	assert.Equal(t, "bb-key", gotKey)
	assert.Equal(t, "proj-1", gotReq.ProjectID)
	assert.Equal(t, "ext-123", remote.ID)
	assert.Equal(t, "ws://upstream/devtools", remote.ConnectURL)
}

func TestGetSessionForResume(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/v1/sessions/ext-old", r.URL.Path)

		json.NewEncoder(w).Encode(models.Session{
			ID:         "ext-old",
			Status:     models.StatusRunning,
			ConnectURL: "ws://upstream/devtools/old",
		})
	}))
	defer srv.Close()

	client := newTestClient()
	remote, err := client.getSession(context.Background(), testConfig(srv.URL), "ext-old")

	require.NoError(t, err)
	assert.Equal(t, "ext-old", remote.ID)
}

func TestReleaseSessionRequestsCompletion(t *testing.T) {
	var gotReq models.ReleaseSessionRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/sessions/ext-123", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient()
	err := client.releaseSession(context.Background(), testConfig(srv.URL), "ext-123")

	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, gotReq.Status)
	assert.Equal(t, "proj-1", gotReq.ProjectID)
}

func TestErrorStatusSurfacesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "project quota exceeded", http.StatusPaymentRequired)
	}))
	defer srv.Close()

	client := newTestClient()
	_, err := client.createSession(context.Background(), testConfig(srv.URL))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "402")
	assert.Contains(t, err.Error(), "project quota exceeded")
}

func TestContextCancellationPropagates(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient()
	_, err := client.createSession(ctx, testConfig(srv.URL))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
