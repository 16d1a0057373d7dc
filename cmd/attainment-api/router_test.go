package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/obe-attainment-api/internal/handler"
	"github.com/noah-isme/obe-attainment-api/internal/service"
	"github.com/noah-isme/obe-attainment-api/pkg/config"
)

func testRouter(t *testing.T, env string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Env:       env,
		APIPrefix: "/api/v1",
		RateLimit: config.RateLimitConfig{SubmissionsPerSecond: 1, Burst: 1},
	}
	metrics := service.NewMetricsService()
	return newRouter(cfg, zap.NewNop(), metrics, routeHandlers{
		outcomes:    handler.NewOutcomeHandler(nil),
		assessments: handler.NewAssessmentHandler(nil),
		records:     handler.NewRecordHandler(nil),
		reports:     handler.NewAttainmentReportHandler(nil, nil),
		metrics:     handler.NewMetricsHandler(metrics, nil),
	})
}

func TestRouterRegistersAttainmentRoutes(t *testing.T) {
	routes := make(map[string]bool)
	for _, info := range testRouter(t, config.EnvDevelopment).Routes() {
		routes[info.Method+" "+info.Path] = true
	}

	for _, want := range []string{
		"GET /api/v1/outcomes",
		"PUT /api/v1/outcomes",
		"GET /api/v1/outcomes/:code",
		"POST /api/v1/assessments",
		"GET /api/v1/assessments/:id",
		"GET /api/v1/assessments/:id/mappings",
		"PUT /api/v1/assessments/:id/mappings",
		"GET /api/v1/assessments/:id/end-term-grid",
		"GET /api/v1/courses/:courseId/assessments",
		"GET /api/v1/records",
		"POST /api/v1/records",
		"POST /api/v1/records/end-term",
		"POST /api/v1/records/bulk",
		"GET /api/v1/reports/students/:studentId",
		"GET /api/v1/reports/cohort",
		"GET /api/v1/reports/cohort/export",
		"GET /api/v1/metrics/summary",
		"GET /metrics",
		"GET /health",
		"GET /ready",
		"GET /docs/*any",
	} {
		assert.True(t, routes[want], "missing route %s", want)
	}
}

func TestRouterHidesDocsInProduction(t *testing.T) {
	for _, info := range testRouter(t, config.EnvProduction).Routes() {
		assert.NotEqual(t, "/docs/*any", info.Path)
	}
}

func TestRouterHealthAndDisabledExport(t *testing.T) {
	r := testRouter(t, config.EnvDevelopment)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/reports/cohort/export?courseId=CS101", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterThrottlesSubmissions(t *testing.T) {
	r := testRouter(t, config.EnvDevelopment)

	// The first request passes the limiter and fails binding; the second is throttled.
	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/api/v1/records/bulk", nil))
	assert.Equal(t, http.StatusBadRequest, first.Code)

	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/api/v1/records/bulk", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
