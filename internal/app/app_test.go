package app

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweestoelen/internal/config"
	"tweestoelen/internal/logger"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		AppEnv:          "test",
		HTTPAddr:        ":0",
		Backend:         config.BackendDatabase,
		DatabaseURL:     ":memory:",
		StorageType:     config.StorageLocal,
		StorageBucket:   "photos",
		StorageBasePath: t.TempDir(),
		StorageBaseURL:  "/static/photos",
		UploadMaxSize:   1 << 20,
		HTTPTimeout:     time.Second,
		HTTPRetries:     1,
		AdminToken:      "geheim",
	}
}

func TestApp_UploadIsServedStatically(t *testing.T) {
	a := New(testConfig(t), logger.Discard())
	require.True(t, a.Service().Available())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "duin.png")
	require.NoError(t, err)
	_, err = fw.Write(pngHeader)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var body struct {
		Data struct {
			ImageURL string `json:"image_url"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	u, err := url.Parse(body.Data.ImageURL)
	require.NoError(t, err)

	w = httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, u.Path, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, pngHeader, w.Body.Bytes())
}

func TestApp_AdminResetNeedsToken(t *testing.T) {
	a := New(testConfig(t), logger.Discard())

	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/admin/reset", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/reset", nil)
	req.Header.Set("Authorization", "Bearer geheim")
	w = httptest.NewRecorder()
	a.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestApp_MissingCredentialsStartDegraded(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backend = config.BackendSupabase
	cfg.StorageType = config.StorageSupabase

	a := New(cfg, logger.Discard())
	assert.False(t, a.Service().Available())

	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/photos", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "BACKEND_UNAVAILABLE")

	w = httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
