package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/obe-attainment-api/internal/attainment"
	"github.com/noah-isme/obe-attainment-api/internal/models"
	appErrors "github.com/noah-isme/obe-attainment-api/pkg/errors"
)

const reportCachePrefix = "report"

type recordLister interface {
	List(ctx context.Context, filter models.RecordFilter) ([]models.StudentAssessmentRecord, error)
}

type assessmentLister interface {
	List(ctx context.Context, filter models.AssessmentFilter) ([]models.Assessment, error)
}

// AttainmentReportService derives student and cohort attainment from stored records.
// Reports are recomputed from records on every cache miss.
type AttainmentReportService struct {
	records     recordLister
	assessments assessmentLister
	cache       *CacheService
	ttl         time.Duration
	metrics     *MetricsService
	classifier  attainment.Classifier
	logger      *zap.Logger
	now         func() time.Time
}

// NewAttainmentReportService constructs the report service. cache and metrics may be nil.
func NewAttainmentReportService(records recordLister, assessments assessmentLister, cache *CacheService, ttl time.Duration, metrics *MetricsService, scale attainment.Scale, logger *zap.Logger) *AttainmentReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttainmentReportService{
		records:     records,
		assessments: assessments,
		cache:       cache,
		ttl:         ttl,
		metrics:     metrics,
		classifier:  attainment.CohortSummaryClassifier{Scale: scale},
		logger:      logger,
		now:         time.Now,
	}
}

// StudentReport aggregates one student's records. With a course filter every outcome
// mapped by the course's assessments is reported, covered or not.
func (s *AttainmentReportService) StudentReport(ctx context.Context, studentID string, filter models.ReportFilter) (*models.StudentAttainment, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	filter.StudentIDs = []string{studentID}
	key := reportKey("student", filter)
	var cached models.StudentAttainment
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	start := time.Now()
	expected, names, err := s.expectedOutcomes(ctx, filter)
	if err != nil {
		return nil, err
	}
	records, err := s.listRecords(ctx, filter)
	if err != nil {
		return nil, err
	}
	report, err := attainment.AggregateStudent(studentID, records, expected, s.classifier)
	if err != nil {
		return nil, engineError(err, "failed to aggregate student attainment")
	}
	fillReportNames(report.Outcomes, names)
	s.recordSkipped(report.Skipped)
	s.metrics.ObserveReport("student", time.Since(start))

	_ = s.cache.Set(ctx, key, report, s.ttl)
	return &report, nil
}

// CohortReport aggregates every student in scope and summarises per outcome. Students
// named in the filter appear even when they have no records.
func (s *AttainmentReportService) CohortReport(ctx context.Context, filter models.ReportFilter) (*models.CohortAttainment, error) {
	if filter.CourseID == "" && len(filter.StudentIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course id or student ids are required")
	}
	key := reportKey("cohort", filter)
	var cached models.CohortAttainment
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	start := time.Now()
	expected, names, err := s.expectedOutcomes(ctx, filter)
	if err != nil {
		return nil, err
	}
	records, err := s.listRecords(ctx, filter)
	if err != nil {
		return nil, err
	}

	byStudent := make(map[string][]models.StudentAssessmentRecord)
	for _, id := range filter.StudentIDs {
		byStudent[id] = nil
	}
	for _, r := range records {
		byStudent[r.StudentID] = append(byStudent[r.StudentID], r)
	}
	studentIDs := make([]string, 0, len(byStudent))
	for id := range byStudent {
		studentIDs = append(studentIDs, id)
	}
	sort.Strings(studentIDs)

	cohort := models.CohortAttainment{CourseID: filter.CourseID, GeneratedAt: s.now().UTC()}
	perStudent := make([][]models.CohortOutcomeReport, 0, len(studentIDs))
	for _, id := range studentIDs {
		report, err := attainment.AggregateStudent(id, byStudent[id], expected, s.classifier)
		if err != nil {
			return nil, engineError(err, "failed to aggregate cohort attainment")
		}
		fillReportNames(report.Outcomes, names)
		cohort.Students = append(cohort.Students, report)
		cohort.Skipped = append(cohort.Skipped, report.Skipped...)
		perStudent = append(perStudent, report.Outcomes)
	}
	cohort.StudentCount = len(studentIDs)
	cohort.Outcomes = attainment.AggregateCohort(perStudent, s.classifier)
	for i := range cohort.Outcomes {
		if cohort.Outcomes[i].OutcomeName == "" {
			cohort.Outcomes[i].OutcomeName = names[cohort.Outcomes[i].Key()]
		}
	}
	s.recordSkipped(cohort.Skipped)
	s.metrics.ObserveReport("cohort", time.Since(start))
	s.logger.Debug("cohort report built",
		zap.String("course_id", filter.CourseID),
		zap.Int("students", cohort.StudentCount),
		zap.Int("records", len(records)),
		zap.Int("skipped", len(cohort.Skipped)),
	)

	_ = s.cache.Set(ctx, key, cohort, s.ttl)
	return &cohort, nil
}

// InvalidateCourse drops cached reports touching a course, and reports not scoped to
// any course.
func (s *AttainmentReportService) InvalidateCourse(ctx context.Context, courseID string) {
	if !s.cache.Enabled() {
		return
	}
	_ = s.cache.Invalidate(ctx, CacheKey(reportCachePrefix, "_", "*"))
	if courseID != "" {
		_ = s.cache.Invalidate(ctx, CacheKey(reportCachePrefix, courseID, "*"))
	}
}

func (s *AttainmentReportService) listRecords(ctx context.Context, filter models.ReportFilter) ([]models.StudentAssessmentRecord, error) {
	records, err := s.records.List(ctx, models.RecordFilter{
		CourseID:      filter.CourseID,
		StudentIDs:    filter.StudentIDs,
		AssessmentIDs: filter.AssessmentIDs,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list records")
	}
	return records, nil
}

// expectedOutcomes lists the outcomes mapped by the course's assessments in scope along
// with their mapping names. Without a course nothing is expected.
func (s *AttainmentReportService) expectedOutcomes(ctx context.Context, filter models.ReportFilter) ([]models.OutcomeKey, map[models.OutcomeKey]string, error) {
	names := make(map[models.OutcomeKey]string)
	if filter.CourseID == "" || s.assessments == nil {
		return nil, names, nil
	}
	assessments, err := s.assessments.List(ctx, models.AssessmentFilter{CourseID: filter.CourseID, IDs: filter.AssessmentIDs})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course assessments")
	}
	var keys []models.OutcomeKey
	for _, a := range assessments {
		for _, kind := range models.OutcomeKinds {
			for _, m := range a.MappingsOf(kind) {
				key := models.OutcomeKey{Kind: kind, Code: models.NormalizeCode(m.OutcomeCode)}
				if _, ok := names[key]; !ok {
					keys = append(keys, key)
					names[key] = m.OutcomeName
				} else if names[key] == "" {
					names[key] = m.OutcomeName
				}
			}
		}
	}
	return keys, names, nil
}

func (s *AttainmentReportService) recordSkipped(skipped []models.SkippedRecord) {
	for _, sk := range skipped {
		s.metrics.RecordFailure("aggregation_input")
		s.logger.Warn("record skipped in aggregation",
			zap.String("student_id", sk.StudentID),
			zap.String("assessment_id", sk.AssessmentID),
			zap.String("reason", sk.Reason),
		)
	}
}

func fillReportNames(reports []models.CohortOutcomeReport, names map[models.OutcomeKey]string) {
	for i := range reports {
		if reports[i].OutcomeName == "" {
			reports[i].OutcomeName = names[reports[i].Key()]
		}
	}
}

// reportKey builds report:<course|_>:<scope>:<students>:<assessments>, sorted so
// equivalent filters share an entry.
func reportKey(scope string, filter models.ReportFilter) string {
	course := filter.CourseID
	if course == "" {
		course = "_"
	}
	return CacheKey(reportCachePrefix, course, scope, joinSorted(filter.StudentIDs), joinSorted(filter.AssessmentIDs))
}

func joinSorted(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
