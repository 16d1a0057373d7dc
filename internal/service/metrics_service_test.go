package service

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/obe-attainment-api/internal/models"
)

func TestMetricsServiceSnapshot(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/records", http.StatusOK, 20*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodPost, "/records", http.StatusCreated, 40*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordScored(models.AssessmentQuiz, 3)
	m.RecordScored(models.AssessmentEndTerm, 0)
	m.RecordFailure("invalid_mark")
	m.RecordRescore(nil)
	m.RecordRescore(errors.New("boom"))

	snap := m.Snapshot()
	assert.EqualValues(t, 2, snap.RequestsTotal)
	assert.InDelta(t, 30.0, snap.AverageRequestDurationMs, 0.001)
	assert.EqualValues(t, 2, snap.CacheHits)
	assert.EqualValues(t, 1, snap.CacheMisses)
	assert.InDelta(t, 2.0/3.0, snap.CacheHitRatio, 1e-9)
	assert.EqualValues(t, 3, snap.RecordsScored)
	assert.EqualValues(t, 1, snap.RecordFailures)
	assert.Positive(t, snap.Goroutines)
}

func TestMetricsServiceHandlerExposesCollectors(t *testing.T) {
	m := NewMetricsService()
	m.RecordScored(models.AssessmentQuiz, 2)
	m.RecordFailure("invalid_grid")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `attainment_records_scored_total{assessment_type="Quiz"} 2`))
	assert.True(t, strings.Contains(body, `attainment_record_failures_total{reason="invalid_grid"} 1`))
}

func TestMetricsServiceNilIsSafe(t *testing.T) {
	var m *MetricsService
	m.RecordScored(models.AssessmentQuiz, 1)
	m.RecordFailure("x")
	m.ObserveReport("cohort", time.Second)
	assert.Equal(t, models.SystemMetrics{}, m.Snapshot())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
