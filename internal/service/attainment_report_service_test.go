package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/obe-attainment-api/internal/attainment"
	"github.com/noah-isme/obe-attainment-api/internal/models"
	appErrors "github.com/noah-isme/obe-attainment-api/pkg/errors"
)

func gaRecord(studentID, assessmentID string, score, weightage float64) models.StudentAssessmentRecord {
	return models.StudentAssessmentRecord{
		ID:             studentID + "-" + assessmentID,
		StudentID:      studentID,
		AssessmentID:   assessmentID,
		CourseID:       "CS101",
		AssessmentType: models.AssessmentQuiz,
		GAScores:       []models.OutcomeScore{{Kind: models.OutcomeKindGA, Code: "GA1", Name: "Knowledge", Score: score, Weightage: weightage}},
	}
}

func newTestReportService(records *mockRecordRepo, cacheRepo *mockCacheRepo) *AttainmentReportService {
	var cache *CacheService
	if cacheRepo != nil {
		cache = NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	}
	svc := NewAttainmentReportService(records, newMockAssessmentRepo(quizAssessment()), cache, time.Minute, NewMetricsService(), attainment.ScaleLegacy, nil)
	svc.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return svc
}

func findReport(t *testing.T, reports []models.CohortOutcomeReport, kind models.OutcomeKind, code string) models.CohortOutcomeReport {
	t.Helper()
	for _, r := range reports {
		if r.OutcomeKind == kind && r.OutcomeCode == code {
			return r
		}
	}
	t.Fatalf("no report for %s %s", kind, code)
	return models.CohortOutcomeReport{}
}

func TestReportServiceStudentReport(t *testing.T) {
	records := newMockRecordRepo(gaRecord("s1", "a1", 16, 20), gaRecord("s1", "a2", 8, 10), gaRecord("s2", "a1", 6, 10))
	svc := newTestReportService(records, nil)

	report, err := svc.StudentReport(context.Background(), "s1", models.ReportFilter{CourseID: "CS101"})
	require.NoError(t, err)

	assert.Equal(t, "s1", report.StudentID)
	ga := findReport(t, report.Outcomes, models.OutcomeKindGA, "GA1")
	assert.InDelta(t, 24.0, ga.TotalScore, 1e-9)
	assert.Equal(t, 2, ga.AssessmentCount)
	assert.InDelta(t, 12.0, ga.AverageScore, 1e-9)
	assert.InDelta(t, 15.0, ga.MeanWeightage, 1e-9)
	assert.Equal(t, models.LevelIntroductory, ga.Level)

	co := findReport(t, report.Outcomes, models.OutcomeKindCO, "CO1")
	assert.Equal(t, 0, co.AssessmentCount)
	assert.Zero(t, co.AverageScore)
	po := findReport(t, report.Outcomes, models.OutcomeKindPO, "PO1")
	assert.Equal(t, 0, po.AssessmentCount)
	assert.Len(t, report.Outcomes, 3)
}

func TestReportServiceStudentReportWithoutCourseHasNoExpectedOutcomes(t *testing.T) {
	records := newMockRecordRepo(gaRecord("s1", "a1", 16, 20))
	svc := newTestReportService(records, nil)

	report, err := svc.StudentReport(context.Background(), "s1", models.ReportFilter{})
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, "GA1", report.Outcomes[0].OutcomeCode)
}

func TestReportServiceStudentReportRequiresStudent(t *testing.T) {
	svc := newTestReportService(newMockRecordRepo(), nil)

	_, err := svc.StudentReport(context.Background(), " ", models.ReportFilter{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestReportServiceStudentReportIsCached(t *testing.T) {
	records := newMockRecordRepo(gaRecord("s1", "a1", 16, 20))
	cacheRepo := newMockCacheRepo()
	svc := newTestReportService(records, cacheRepo)
	ctx := context.Background()

	first, err := svc.StudentReport(ctx, "s1", models.ReportFilter{CourseID: "CS101"})
	require.NoError(t, err)
	second, err := svc.StudentReport(ctx, "s1", models.ReportFilter{CourseID: "CS101"})
	require.NoError(t, err)
	assert.Equal(t, first.Outcomes, second.Outcomes)
	assert.Equal(t, 1, records.listCalls)

	svc.InvalidateCourse(ctx, "CS101")
	assert.ElementsMatch(t, []string{"report:_:*", "report:CS101:*"}, cacheRepo.patterns)

	_, err = svc.StudentReport(ctx, "s1", models.ReportFilter{CourseID: "CS101"})
	require.NoError(t, err)
	assert.Equal(t, 2, records.listCalls)
}

func TestReportServiceCohortReport(t *testing.T) {
	records := newMockRecordRepo(
		gaRecord("s1", "a1", 16, 20),
		gaRecord("s1", "a2", 8, 10),
		gaRecord("s2", "a1", 6, 10),
		gaRecord("s2", "a2", -1, 10),
	)
	svc := newTestReportService(records, nil)

	cohort, err := svc.CohortReport(context.Background(), models.ReportFilter{CourseID: "CS101", StudentIDs: []string{"s1", "s2", "s3"}})
	require.NoError(t, err)

	assert.Equal(t, 3, cohort.StudentCount)
	assert.Len(t, cohort.Students, 3)
	require.Len(t, cohort.Skipped, 1)
	assert.Equal(t, "s2", cohort.Skipped[0].StudentID)
	assert.Equal(t, "a2", cohort.Skipped[0].AssessmentID)

	var ga models.CohortOutcomeSummary
	for _, o := range cohort.Outcomes {
		if o.OutcomeCode == "GA1" {
			ga = o
		}
	}
	assert.Equal(t, 2, ga.StudentCount)
	assert.Equal(t, 1, ga.UncoveredStudents)
	assert.Equal(t, 3, ga.AssessmentCount)
	assert.InDelta(t, 9.0, ga.MeanAverageScore, 1e-9)
	assert.InDelta(t, 40.0/3.0, ga.MeanWeightage, 1e-9)
	assert.InDelta(t, 67.5, ga.NormalizedAchievementPercent, 1e-9)
	assert.Equal(t, "Knowledge", ga.OutcomeName)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), cohort.GeneratedAt)
}

func TestReportServiceCohortReportRequiresScope(t *testing.T) {
	svc := newTestReportService(newMockRecordRepo(), nil)

	_, err := svc.CohortReport(context.Background(), models.ReportFilter{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestReportKeyIsOrderIndependent(t *testing.T) {
	a := reportKey("cohort", models.ReportFilter{CourseID: "CS101", StudentIDs: []string{"s2", "s1"}})
	b := reportKey("cohort", models.ReportFilter{CourseID: "CS101", StudentIDs: []string{"s1", "s2"}})
	assert.Equal(t, a, b)
	assert.Equal(t, "report:CS101:cohort:s1,s2:-", a)
}
