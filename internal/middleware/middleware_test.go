package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"tweestoelen/internal/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func adminRouter(token string) *gin.Engine {
	router := gin.New()
	router.Use(RequestID())
	router.POST("/admin/reset", AdminToken(token, logger.Discard()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestAdminToken_Valid(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/reset", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	adminRouter("s3cret").ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminToken_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		token  string
		header string
		status int
		code   string
	}{
		{"no header", "s3cret", "", http.StatusUnauthorized, "AUTH_MISSING"},
		{"wrong scheme", "s3cret", "Basic dGVzdA==", http.StatusUnauthorized, "AUTH_INVALID"},
		{"wrong token", "s3cret", "Bearer guess", http.StatusForbidden, "AUTH_INVALID"},
		{"not configured", "", "Bearer anything", http.StatusForbidden, "ADMIN_DISABLED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/admin/reset", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			adminRouter(tc.token).ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), tc.code)
		})
	}
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestCORS(t *testing.T) {
	router := gin.New()
	router.Use(CORS([]string{"https://tweestoelen.nl"}))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://tweestoelen.nl")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://tweestoelen.nl", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://elders.example")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestErrorLogger_RecoversPanics(t *testing.T) {
	var logs bytes.Buffer
	router := gin.New()
	router.Use(ErrorLogger(slog.New(slog.NewJSONHandler(&logs, nil))))
	router.GET("/boom", func(c *gin.Context) { panic("kapot") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_SERVER_ERROR")
	assert.Contains(t, logs.String(), "kapot")
}

func TestErrorLogger_LogsServerErrors(t *testing.T) {
	var logs bytes.Buffer
	router := gin.New()
	router.Use(ErrorLogger(slog.New(slog.NewJSONHandler(&logs, nil))))
	router.GET("/fail", func(c *gin.Context) { c.Status(http.StatusBadGateway) })
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Empty(t, logs.String())

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))
	assert.Contains(t, logs.String(), "status=502")
}
