package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/obe-attainment-api/internal/attainment"
	"github.com/noah-isme/obe-attainment-api/internal/models"
	appErrors "github.com/noah-isme/obe-attainment-api/pkg/errors"
	"github.com/noah-isme/obe-attainment-api/pkg/jobs"
)

// Bulk submission modes.
const (
	BulkModeAtomic         = "atomic"
	BulkModePartialOnError = "partialOnError"
)

type recordRepo interface {
	Upsert(ctx context.Context, record *models.StudentAssessmentRecord) error
	BulkUpsert(ctx context.Context, records []models.StudentAssessmentRecord) error
	List(ctx context.Context, filter models.RecordFilter) ([]models.StudentAssessmentRecord, error)
	UpdateScores(ctx context.Context, records []models.StudentAssessmentRecord) ([]models.RecordKey, error)
}

type assessmentReader interface {
	Get(ctx context.Context, id string) (*models.Assessment, error)
}

type reportInvalidator interface {
	InvalidateCourse(ctx context.Context, courseID string)
}

// SubmitMarksRequest records the marks of one student on a flat assessment.
type SubmitMarksRequest struct {
	StudentID     string   `json:"student_id" validate:"required"`
	AssessmentID  string   `json:"assessment_id" validate:"required"`
	MarksObtained *float64 `json:"marks_obtained" validate:"required"`
}

// SubmitEndTermRequest records the answer grid of one student on an End-Term paper.
type SubmitEndTermRequest struct {
	StudentID    string                `json:"student_id" validate:"required"`
	AssessmentID string                `json:"assessment_id" validate:"required"`
	Slots        []models.QuestionSlot `json:"slots" validate:"required"`
}

// BulkSubmitItem is one student's entry in a bulk submission. Slots is used for
// End-Term papers, MarksObtained for everything else.
type BulkSubmitItem struct {
	StudentID     string                `json:"student_id" validate:"required"`
	MarksObtained *float64              `json:"marks_obtained"`
	Slots         []models.QuestionSlot `json:"slots"`
}

// BulkSubmitRequest scores many students on one assessment.
type BulkSubmitRequest struct {
	AssessmentID string           `json:"assessment_id" validate:"required"`
	Mode         string           `json:"mode" validate:"omitempty,oneof=atomic partialOnError"`
	Items        []BulkSubmitItem `json:"items" validate:"required,min=1,dive"`
}

// BulkSubmitResult summarises a bulk submission.
type BulkSubmitResult struct {
	SuccessCount int                              `json:"success_count"`
	Records      []models.StudentAssessmentRecord `json:"records,omitempty"`
	Failures     []BulkSubmitFailure              `json:"failures,omitempty"`
}

// BulkSubmitFailure explains one rejected item.
type BulkSubmitFailure struct {
	Index     int    `json:"index"`
	StudentID string `json:"student_id"`
	Code      string `json:"code"`
	Reason    string `json:"reason"`
}

// RescoreResult summarises a rescoring pass.
type RescoreResult struct {
	AssessmentID string              `json:"assessment_id"`
	Rescored     int                 `json:"rescored"`
	Superseded   int                 `json:"superseded"`
	Failures     []BulkSubmitFailure `json:"failures,omitempty"`
}

// AttainmentService scores submissions and persists student assessment records.
type AttainmentService struct {
	records     recordRepo
	assessments assessmentReader
	catalog     catalogSnapshotter
	reports     reportInvalidator
	metrics     *MetricsService
	classifier  attainment.Classifier
	workers     int
	validator   *validator.Validate
	logger      *zap.Logger
}

// AttainmentServiceConfig tunes scoring.
type AttainmentServiceConfig struct {
	Scale   attainment.Scale
	Workers int
}

// NewAttainmentService constructs an AttainmentService. reports and metrics may be nil.
func NewAttainmentService(records recordRepo, assessments assessmentReader, catalog catalogSnapshotter, reports reportInvalidator, metrics *MetricsService, cfg AttainmentServiceConfig, validate *validator.Validate, logger *zap.Logger) *AttainmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = attainment.DefaultWorkers
	}
	return &AttainmentService{
		records:     records,
		assessments: assessments,
		catalog:     catalog,
		reports:     reports,
		metrics:     metrics,
		classifier:  attainment.PerRecordClassifier{Scale: cfg.Scale},
		workers:     cfg.Workers,
		validator:   validate,
		logger:      logger,
	}
}

// SubmitMarks scores and stores a flat assessment submission. Re-submitting replaces the
// student's previous record for the assessment.
func (s *AttainmentService) SubmitMarks(ctx context.Context, req SubmitMarksRequest) (*models.StudentAssessmentRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid marks payload")
	}
	a, err := s.assessments.Get(ctx, req.AssessmentID)
	if err != nil {
		return nil, err
	}
	if a.Type == models.AssessmentEndTerm {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end-term marks are submitted as an answer grid")
	}
	return s.submit(ctx, *a, attainment.Submission{StudentID: req.StudentID, AssessmentID: a.ID, Marks: req.MarksObtained})
}

// SubmitEndTerm scores and stores an End-Term answer grid.
func (s *AttainmentService) SubmitEndTerm(ctx context.Context, req SubmitEndTermRequest) (*models.StudentAssessmentRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end-term payload")
	}
	a, err := s.assessments.Get(ctx, req.AssessmentID)
	if err != nil {
		return nil, err
	}
	if a.Type != models.AssessmentEndTerm {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s assessment does not take an answer grid", a.Type))
	}
	return s.submit(ctx, *a, attainment.Submission{StudentID: req.StudentID, AssessmentID: a.ID, Grid: req.Slots})
}

func (s *AttainmentService) submit(ctx context.Context, a models.Assessment, sub attainment.Submission) (*models.StudentAssessmentRecord, error) {
	catalog, err := s.catalog.SnapshotFor(ctx, a)
	if err != nil {
		return nil, err
	}
	record, err := attainment.ScoreAssessment(a, sub, catalog, s.classifier)
	if err != nil {
		s.metrics.RecordFailure(failureReason(err))
		s.logger.Warn("submission rejected",
			zap.String("student_id", sub.StudentID),
			zap.String("assessment_id", a.ID),
			zap.Error(err),
		)
		return nil, engineError(err, "failed to score submission")
	}
	record.SubmittedAt = time.Now().UTC()
	if err := s.records.Upsert(ctx, &record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save record")
	}
	s.metrics.RecordScored(a.Type, 1)
	s.invalidate(ctx, a.CourseID)
	return &record, nil
}

// BulkSubmit scores every item against one assessment. In atomic mode any failure
// rejects the whole batch and nothing is stored; in partialOnError mode successful
// items are stored and failures reported.
func (s *AttainmentService) BulkSubmit(ctx context.Context, req BulkSubmitRequest) (*BulkSubmitResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk payload")
	}
	if req.Mode == "" {
		req.Mode = BulkModeAtomic
	}
	a, err := s.assessments.Get(ctx, req.AssessmentID)
	if err != nil {
		return nil, err
	}
	catalog, err := s.catalog.SnapshotFor(ctx, *a)
	if err != nil {
		return nil, err
	}

	inputs := make([]attainment.BatchInput, len(req.Items))
	for i, item := range req.Items {
		sub := attainment.Submission{StudentID: item.StudentID, AssessmentID: a.ID, Marks: item.MarksObtained, Grid: item.Slots}
		inputs[i] = attainment.BatchInput{Assessment: *a, Submission: sub}
	}
	batch := attainment.ScoreBatch(inputs, catalog, s.classifier, s.workers)

	result := &BulkSubmitResult{}
	for _, recErr := range batch.Errors {
		s.metrics.RecordFailure(failureReason(recErr.Err))
		result.Failures = append(result.Failures, bulkFailure(recErr))
	}
	if batch.Failed() && req.Mode == BulkModeAtomic {
		first := batch.Errors[0]
		s.logger.Warn("atomic bulk submission rejected",
			zap.String("assessment_id", a.ID),
			zap.Int("failures", len(batch.Errors)),
			zap.Error(first.Err),
		)
		appErr := appErrors.FromError(engineError(first.Err, "failed to score submission"))
		clone := appErrors.Clone(appErr, fmt.Sprintf("item %d (%s): %s", first.Index, first.StudentID, appErr.Message))
		clone.Details = result.Failures
		return nil, clone
	}

	if len(batch.Records) > 0 {
		now := time.Now().UTC()
		for i := range batch.Records {
			batch.Records[i].SubmittedAt = now
		}
		if err := s.records.BulkUpsert(ctx, batch.Records); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save records")
		}
		s.metrics.RecordScored(a.Type, len(batch.Records))
		s.invalidate(ctx, a.CourseID)
	}
	for _, f := range result.Failures {
		s.logger.Warn("bulk item rejected", zap.String("assessment_id", a.ID), zap.Int("index", f.Index), zap.String("student_id", f.StudentID), zap.String("reason", f.Reason))
	}
	result.SuccessCount = len(batch.Records)
	result.Records = batch.Records
	return result, nil
}

// ListRecords returns stored records matching filter.
func (s *AttainmentService) ListRecords(ctx context.Context, filter models.RecordFilter) ([]models.StudentAssessmentRecord, error) {
	if filter.CourseID == "" && len(filter.StudentIDs) == 0 && len(filter.AssessmentIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course, student or assessment filter is required")
	}
	records, err := s.records.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list records")
	}
	return records, nil
}

// Rescore recomputes every stored record of an assessment from its stored marks or
// grid against the assessment's current mappings. Records that no longer score are
// left untouched and reported. A record resubmitted while the pass runs keeps its new
// submission and is counted as superseded.
func (s *AttainmentService) Rescore(ctx context.Context, assessmentID string) (*RescoreResult, error) {
	a, err := s.assessments.Get(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	stored, err := s.records.List(ctx, models.RecordFilter{AssessmentIDs: []string{a.ID}})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load records")
	}
	result := &RescoreResult{AssessmentID: a.ID}
	if len(stored) == 0 {
		return result, nil
	}
	catalog, err := s.catalog.SnapshotFor(ctx, *a)
	if err != nil {
		return nil, err
	}

	rescored := make([]models.StudentAssessmentRecord, 0, len(stored))
	for i, record := range stored {
		updated, err := attainment.RescoreRecord(*a, record, catalog, s.classifier)
		if err != nil {
			s.metrics.RecordFailure(failureReason(err))
			result.Failures = append(result.Failures, bulkFailure(attainment.RecordError{
				Index: i, StudentID: record.StudentID, AssessmentID: record.AssessmentID, Err: err,
			}))
			s.logger.Warn("record not rescored", zap.String("record_id", record.ID), zap.String("student_id", record.StudentID), zap.Error(err))
			continue
		}
		rescored = append(rescored, updated)
	}
	if len(rescored) > 0 {
		superseded, err := s.records.UpdateScores(ctx, rescored)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save rescored records")
		}
		result.Superseded = len(superseded)
		result.Rescored = len(rescored) - len(superseded)
		s.metrics.RecordScored(a.Type, result.Rescored)
	}
	s.invalidate(ctx, a.CourseID)
	s.logger.Info("assessment rescored", zap.String("assessment_id", a.ID), zap.Int("rescored", result.Rescored),
		zap.Int("superseded", result.Superseded), zap.Int("failures", len(result.Failures)))
	return result, nil
}

// HandleRescoreJob is the queue handler for RescoreJobType jobs.
func (s *AttainmentService) HandleRescoreJob(ctx context.Context, job jobs.Job) error {
	assessmentID, ok := job.Payload.(string)
	if !ok || assessmentID == "" {
		assessmentID = job.Key
	}
	if assessmentID == "" {
		return fmt.Errorf("rescore job %s has no assessment id", job.ID)
	}
	_, err := s.Rescore(ctx, assessmentID)
	return err
}

func (s *AttainmentService) invalidate(ctx context.Context, courseID string) {
	if s.reports != nil {
		s.reports.InvalidateCourse(ctx, courseID)
	}
}

func bulkFailure(recErr attainment.RecordError) BulkSubmitFailure {
	appErr := appErrors.FromError(engineError(recErr.Err, "failed to score submission"))
	return BulkSubmitFailure{
		Index:     recErr.Index,
		StudentID: recErr.StudentID,
		Code:      appErr.Code,
		Reason:    appErr.Message,
	}
}
