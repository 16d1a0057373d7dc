package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/obe-attainment-api/internal/models"
	appErrors "github.com/noah-isme/obe-attainment-api/pkg/errors"
	"github.com/noah-isme/obe-attainment-api/pkg/jobs"
)

type attainmentFixture struct {
	svc         *AttainmentService
	assessments *mockAssessmentRepo
	records     *mockRecordRepo
	reports     *mockInvalidator
	metrics     *MetricsService
}

func newAttainmentFixture(assessments ...models.Assessment) attainmentFixture {
	repo := newMockAssessmentRepo(assessments...)
	records := newMockRecordRepo()
	catalog := NewCatalogService(newMockOutcomeRepo(testDefinitions()...), nil, 0, nil, nil)
	assessmentSvc := NewAssessmentService(repo, catalog, nil, nil, nil, nil)
	reports := &mockInvalidator{}
	metrics := NewMetricsService()
	svc := NewAttainmentService(records, assessmentSvc, catalog, reports, metrics, AttainmentServiceConfig{Workers: 2}, nil, nil)
	return attainmentFixture{svc: svc, assessments: repo, records: records, reports: reports, metrics: metrics}
}

func fullEndTermGrid() []models.QuestionSlot {
	marks := []*float64{floatPtr(5), floatPtr(5), floatPtr(5), floatPtr(5), nil, floatPtr(9), floatPtr(9), nil, floatPtr(12)}
	slots := make([]models.QuestionSlot, len(marks))
	for i, m := range marks {
		tag := "CO1"
		if i >= 5 {
			tag = "CO2"
		}
		slots[i] = models.QuestionSlot{Mark: m, COTags: []string{tag}}
	}
	return slots
}

func scoreOf(t *testing.T, scores []models.OutcomeScore, code string) models.OutcomeScore {
	t.Helper()
	for _, s := range scores {
		if s.Code == code {
			return s
		}
	}
	t.Fatalf("no score for %s", code)
	return models.OutcomeScore{}
}

func TestAttainmentServiceSubmitMarks(t *testing.T) {
	f := newAttainmentFixture(quizAssessment())

	record, err := f.svc.SubmitMarks(context.Background(), SubmitMarksRequest{StudentID: "s1", AssessmentID: "quiz-1", MarksObtained: floatPtr(16)})
	require.NoError(t, err)

	assert.Equal(t, 16.0, record.MarksObtained)
	assert.InDelta(t, 8.0, scoreOf(t, record.GAScores, "GA1").Score, 1e-9)
	assert.InDelta(t, 16.0, scoreOf(t, record.COScores, "CO1").Score, 1e-9)
	assert.InDelta(t, 4.0, scoreOf(t, record.POScores, "PO1").Score, 1e-9)
	assert.Equal(t, "Knowledge", scoreOf(t, record.GAScores, "GA1").Name)
	assert.False(t, record.SubmittedAt.IsZero())
	assert.Equal(t, []string{"CS101"}, f.reports.courses)
	assert.EqualValues(t, 1, f.metrics.Snapshot().RecordsScored)
}

func TestAttainmentServiceResubmissionReplacesRecord(t *testing.T) {
	f := newAttainmentFixture(quizAssessment())
	ctx := context.Background()

	first, err := f.svc.SubmitMarks(ctx, SubmitMarksRequest{StudentID: "s1", AssessmentID: "quiz-1", MarksObtained: floatPtr(10)})
	require.NoError(t, err)
	second, err := f.svc.SubmitMarks(ctx, SubmitMarksRequest{StudentID: "s1", AssessmentID: "quiz-1", MarksObtained: floatPtr(20)})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	stored, ok := f.records.get("s1", "quiz-1")
	require.True(t, ok)
	assert.Equal(t, 20.0, stored.MarksObtained)
	assert.Len(t, f.records.records, 1)
}

func TestAttainmentServiceSubmitMarksRejectsOutOfRange(t *testing.T) {
	f := newAttainmentFixture(quizAssessment())

	_, err := f.svc.SubmitMarks(context.Background(), SubmitMarksRequest{StudentID: "s1", AssessmentID: "quiz-1", MarksObtained: floatPtr(21)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidMark))
	assert.Empty(t, f.records.records)
	assert.EqualValues(t, 1, f.metrics.Snapshot().RecordFailures)
}

func TestAttainmentServiceSubmitMarksRequiresMarks(t *testing.T) {
	f := newAttainmentFixture(quizAssessment())

	_, err := f.svc.SubmitMarks(context.Background(), SubmitMarksRequest{StudentID: "s1", AssessmentID: "quiz-1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestAttainmentServiceSubmitMarksRejectsEndTerm(t *testing.T) {
	f := newAttainmentFixture(endTermAssessment())

	_, err := f.svc.SubmitMarks(context.Background(), SubmitMarksRequest{StudentID: "s1", AssessmentID: "end-1", MarksObtained: floatPtr(40)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestAttainmentServiceSubmitMarksWithoutMappings(t *testing.T) {
	bare := quizAssessment()
	bare.GAMappings, bare.POMappings, bare.CO = nil, nil, models.FlatCOMappings{}
	f := newAttainmentFixture(bare)

	_, err := f.svc.SubmitMarks(context.Background(), SubmitMarksRequest{StudentID: "s1", AssessmentID: "quiz-1", MarksObtained: floatPtr(5)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNoMappings))
}

func TestAttainmentServiceSubmitEndTerm(t *testing.T) {
	f := newAttainmentFixture(endTermAssessment())

	record, err := f.svc.SubmitEndTerm(context.Background(), SubmitEndTermRequest{StudentID: "s1", AssessmentID: "end-1", Slots: fullEndTermGrid()})
	require.NoError(t, err)

	assert.Equal(t, 50.0, record.MarksObtained)
	assert.InDelta(t, 20.0, scoreOf(t, record.GAScores, "GA1").Score, 1e-9)
	assert.InDelta(t, 30.0, scoreOf(t, record.COScores, "CO1").Score, 1e-9)
	assert.InDelta(t, 30.0, scoreOf(t, record.COScores, "CO2").Score, 1e-9)
	assert.Len(t, record.Grid, 9)
}

func TestAttainmentServiceSubmitEndTermRejectsTooManyAttempted(t *testing.T) {
	f := newAttainmentFixture(endTermAssessment())
	grid := fullEndTermGrid()
	grid[4].Mark = floatPtr(1)

	_, err := f.svc.SubmitEndTerm(context.Background(), SubmitEndTermRequest{StudentID: "s1", AssessmentID: "end-1", Slots: grid})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidGrid))

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	details, ok := appErr.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 0, details["group"])
	assert.Equal(t, "too_many_attempted", details["kind"])
}

func TestAttainmentServiceSubmitEndTermRejectsFlatAssessment(t *testing.T) {
	f := newAttainmentFixture(quizAssessment())

	_, err := f.svc.SubmitEndTerm(context.Background(), SubmitEndTermRequest{StudentID: "s1", AssessmentID: "quiz-1", Slots: fullEndTermGrid()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestAttainmentServiceBulkSubmitAtomicRejectsAll(t *testing.T) {
	f := newAttainmentFixture(quizAssessment())

	_, err := f.svc.BulkSubmit(context.Background(), BulkSubmitRequest{
		AssessmentID: "quiz-1",
		Items: []BulkSubmitItem{
			{StudentID: "s1", MarksObtained: floatPtr(12)},
			{StudentID: "s2", MarksObtained: floatPtr(-1)},
		},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidMark))
	assert.Empty(t, f.records.records)
	assert.Equal(t, 0, f.records.bulkCalls)
}

func TestAttainmentServiceBulkSubmitPartial(t *testing.T) {
	f := newAttainmentFixture(quizAssessment())

	result, err := f.svc.BulkSubmit(context.Background(), BulkSubmitRequest{
		AssessmentID: "quiz-1",
		Mode:         BulkModePartialOnError,
		Items: []BulkSubmitItem{
			{StudentID: "s1", MarksObtained: floatPtr(12)},
			{StudentID: "s2", MarksObtained: floatPtr(30)},
			{StudentID: "s1", MarksObtained: floatPtr(14)},
			{StudentID: "s3", MarksObtained: floatPtr(20)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)
	require.Len(t, result.Failures, 2)
	assert.Equal(t, 1, result.Failures[0].Index)
	assert.Equal(t, appErrors.ErrInvalidMark.Code, result.Failures[0].Code)
	assert.Equal(t, 2, result.Failures[1].Index)
	assert.Equal(t, appErrors.ErrDuplicateRecord.Code, result.Failures[1].Code)

	stored, ok := f.records.get("s1", "quiz-1")
	require.True(t, ok)
	assert.Equal(t, 12.0, stored.MarksObtained)
	_, ok = f.records.get("s3", "quiz-1")
	assert.True(t, ok)
	assert.EqualValues(t, 2, f.metrics.Snapshot().RecordsScored)
	assert.EqualValues(t, 2, f.metrics.Snapshot().RecordFailures)
}

func TestAttainmentServiceBulkSubmitEndTermRejectsFlatMarks(t *testing.T) {
	f := newAttainmentFixture(endTermAssessment())

	result, err := f.svc.BulkSubmit(context.Background(), BulkSubmitRequest{
		AssessmentID: "end-1",
		Mode:         BulkModePartialOnError,
		Items: []BulkSubmitItem{
			{StudentID: "s1", Slots: fullEndTermGrid()},
			{StudentID: "s2", MarksObtained: floatPtr(10), Slots: fullEndTermGrid()},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, 1, result.Failures[0].Index)
	assert.Equal(t, appErrors.ErrValidation.Code, result.Failures[0].Code)
	_, ok := f.records.get("s2", "end-1")
	assert.False(t, ok)
}

func TestAttainmentServiceRescoreAppliesNewMappings(t *testing.T) {
	f := newAttainmentFixture(quizAssessment())
	ctx := context.Background()

	original, err := f.svc.SubmitMarks(ctx, SubmitMarksRequest{StudentID: "s1", AssessmentID: "quiz-1", MarksObtained: floatPtr(16)})
	require.NoError(t, err)

	edited := quizAssessment()
	edited.GAMappings = []models.OutcomeMapping{{OutcomeCode: "GA1", Weightage: 50}}
	f.assessments.items["quiz-1"] = edited

	result, err := f.svc.Rescore(ctx, "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rescored)
	assert.Empty(t, result.Failures)

	stored, ok := f.records.get("s1", "quiz-1")
	require.True(t, ok)
	assert.Equal(t, original.ID, stored.ID)
	assert.True(t, original.SubmittedAt.Equal(stored.SubmittedAt))
	assert.InDelta(t, 40.0, scoreOf(t, stored.GAScores, "GA1").Score, 1e-9)
}

func TestAttainmentServiceRescoreReportsUnscorableRecords(t *testing.T) {
	f := newAttainmentFixture(quizAssessment())
	ctx := context.Background()

	_, err := f.svc.SubmitMarks(ctx, SubmitMarksRequest{StudentID: "s1", AssessmentID: "quiz-1", MarksObtained: floatPtr(16)})
	require.NoError(t, err)

	edited := quizAssessment()
	edited.MaxMarks = 10
	f.assessments.items["quiz-1"] = edited

	result, err := f.svc.Rescore(ctx, "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Rescored)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, appErrors.ErrInvalidMark.Code, result.Failures[0].Code)

	stored, _ := f.records.get("s1", "quiz-1")
	assert.InDelta(t, 8.0, scoreOf(t, stored.GAScores, "GA1").Score, 1e-9)
}

func TestAttainmentServiceRescoreKeepsConcurrentResubmission(t *testing.T) {
	ctx := context.Background()
	base := newMockRecordRepo()
	racing := &racingRecordRepo{mockRecordRepo: base}
	catalog := NewCatalogService(newMockOutcomeRepo(testDefinitions()...), nil, 0, nil, nil)
	assessments := newMockAssessmentRepo(quizAssessment())
	svc := NewAttainmentService(racing, NewAssessmentService(assessments, catalog, nil, nil, nil, nil), catalog,
		&mockInvalidator{}, NewMetricsService(), AttainmentServiceConfig{Workers: 2}, nil, nil)

	_, err := svc.SubmitMarks(ctx, SubmitMarksRequest{StudentID: "s1", AssessmentID: "quiz-1", MarksObtained: floatPtr(4)})
	require.NoError(t, err)
	key := models.RecordKey{StudentID: "s1", AssessmentID: "quiz-1"}
	stale := base.records[key]
	stale.SubmittedAt = stale.SubmittedAt.Add(-time.Hour)
	base.records[key] = stale

	racing.afterList = func() {
		_, err := svc.SubmitMarks(ctx, SubmitMarksRequest{StudentID: "s1", AssessmentID: "quiz-1", MarksObtained: floatPtr(18)})
		require.NoError(t, err)
	}

	result, err := svc.Rescore(ctx, "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Rescored)
	assert.Equal(t, 1, result.Superseded)

	stored, ok := base.get("s1", "quiz-1")
	require.True(t, ok)
	assert.Equal(t, 18.0, stored.MarksObtained)
	assert.InDelta(t, 9.0, scoreOf(t, stored.GAScores, "GA1").Score, 1e-9)
}

func TestAttainmentServiceHandleRescoreJob(t *testing.T) {
	f := newAttainmentFixture(quizAssessment())

	require.NoError(t, f.svc.HandleRescoreJob(context.Background(), jobs.Job{ID: "j1", Key: "quiz-1", Payload: "quiz-1"}))
	require.NoError(t, f.svc.HandleRescoreJob(context.Background(), jobs.Job{ID: "j2", Key: "quiz-1"}))
	assert.Error(t, f.svc.HandleRescoreJob(context.Background(), jobs.Job{ID: "j3"}))
	assert.Error(t, f.svc.HandleRescoreJob(context.Background(), jobs.Job{ID: "j4", Key: "missing"}))
}
