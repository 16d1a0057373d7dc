package service

import (
	"context"
	"database/sql"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/obe-attainment-api/internal/attainment"
	"github.com/noah-isme/obe-attainment-api/internal/models"
	appErrors "github.com/noah-isme/obe-attainment-api/pkg/errors"
	"github.com/noah-isme/obe-attainment-api/pkg/jobs"
)

// RescoreJobType identifies queued rescoring work.
const RescoreJobType = "assessment.rescore"

type assessmentRepo interface {
	Create(ctx context.Context, a *models.Assessment) error
	ReplaceMappings(ctx context.Context, a *models.Assessment) error
	Get(ctx context.Context, id string) (*models.Assessment, error)
	List(ctx context.Context, filter models.AssessmentFilter) ([]models.Assessment, error)
}

type catalogSnapshotter interface {
	SnapshotFor(ctx context.Context, assessments ...models.Assessment) (attainment.StaticCatalog, error)
}

type rescoreQueue interface {
	Enqueue(job jobs.Job) (bool, error)
}

// MappingRequest is one weighted outcome mapping in a payload.
type MappingRequest struct {
	OutcomeCode string  `json:"outcome_code" validate:"required"`
	OutcomeName string  `json:"outcome_name"`
	Weightage   float64 `json:"weightage" validate:"gt=0,lte=100"`
}

// CreateAssessmentRequest declares a new assessment. CO mappings of an End-Term paper
// become its End-Term structure.
type CreateAssessmentRequest struct {
	CourseID   string                `json:"course_id" validate:"required"`
	Title      string                `json:"title" validate:"required,max=255"`
	Type       models.AssessmentType `json:"type" validate:"required"`
	MaxMarks   float64               `json:"max_marks" validate:"gte=0"`
	Weightage  float64               `json:"weightage" validate:"gte=0,lte=100"`
	GAMappings []MappingRequest      `json:"ga_mappings" validate:"dive"`
	COMappings []MappingRequest      `json:"co_mappings" validate:"dive"`
	POMappings []MappingRequest      `json:"po_mappings" validate:"dive"`
	// QuestionTags pins the CO tags of each End-Term question.
	QuestionTags [][]string `json:"question_tags"`
}

// UpdateMappingsRequest replaces every mapping of an assessment.
type UpdateMappingsRequest struct {
	GAMappings   []MappingRequest `json:"ga_mappings" validate:"dive"`
	COMappings   []MappingRequest `json:"co_mappings" validate:"dive"`
	POMappings   []MappingRequest `json:"po_mappings" validate:"dive"`
	QuestionTags [][]string       `json:"question_tags"`
}

// AssessmentService manages assessments and their outcome mappings.
type AssessmentService struct {
	repo      assessmentRepo
	catalog   catalogSnapshotter
	rescore   rescoreQueue
	validator *validator.Validate
	logger    *zap.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewAssessmentService constructs an AssessmentService. rng seeds End-Term grid
// initialisation; nil uses a time-seeded source. rescore may be nil to disable
// rescoring after mapping edits.
func NewAssessmentService(repo assessmentRepo, catalog catalogSnapshotter, rescore rescoreQueue, rng *rand.Rand, validate *validator.Validate, logger *zap.Logger) *AssessmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &AssessmentService{repo: repo, catalog: catalog, rescore: rescore, rng: rng, validator: validate, logger: logger}
}

// Create validates and stores an assessment.
func (s *AssessmentService) Create(ctx context.Context, req CreateAssessmentRequest) (*models.Assessment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assessment payload")
	}
	a := &models.Assessment{
		CourseID:   req.CourseID,
		Title:      req.Title,
		Type:       req.Type,
		MaxMarks:   req.MaxMarks,
		Weightage:  req.Weightage,
		GAMappings: toMappings(req.GAMappings),
		POMappings: toMappings(req.POMappings),
	}
	if a.Type == models.AssessmentEndTerm {
		if a.MaxMarks == 0 {
			a.MaxMarks = models.EndTermMaxMarks
		}
		a.CO = &models.EndTermStructure{COs: toMappings(req.COMappings), QuestionTags: req.QuestionTags}
	} else {
		a.CO = models.FlatCOMappings(toMappings(req.COMappings))
	}
	if err := s.checkMappings(ctx, a); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assessment")
	}
	s.logger.Info("assessment created",
		zap.String("assessment_id", a.ID),
		zap.String("course_id", a.CourseID),
		zap.String("type", string(a.Type)),
		zap.Int("mappings", a.MappingCount()),
	)
	return a, nil
}

// Get returns an assessment by id.
func (s *AssessmentService) Get(ctx context.Context, id string) (*models.Assessment, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assessment id is required")
	}
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessment")
	}
	return a, nil
}

// ListByCourse returns the assessments of a course.
func (s *AssessmentService) ListByCourse(ctx context.Context, courseID string) ([]models.Assessment, error) {
	if courseID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course id is required")
	}
	return s.List(ctx, models.AssessmentFilter{CourseID: courseID})
}

// List returns assessments matching filter.
func (s *AssessmentService) List(ctx context.Context, filter models.AssessmentFilter) ([]models.Assessment, error) {
	assessments, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assessments")
	}
	return assessments, nil
}

// Mappings returns the mapping set of an assessment.
func (s *AssessmentService) Mappings(ctx context.Context, id string) (models.MappingSet, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return models.MappingSet{}, err
	}
	return a.MappingSet(), nil
}

// UpdateMappings replaces the mappings of an assessment and schedules rescoring of its
// stored records.
func (s *AssessmentService) UpdateMappings(ctx context.Context, id string, req UpdateMappingsRequest) (*models.Assessment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mappings payload")
	}
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	a.GAMappings = toMappings(req.GAMappings)
	a.POMappings = toMappings(req.POMappings)
	if a.Type == models.AssessmentEndTerm {
		a.CO = &models.EndTermStructure{COs: toMappings(req.COMappings), QuestionTags: req.QuestionTags}
	} else {
		a.CO = models.FlatCOMappings(toMappings(req.COMappings))
	}
	if err := s.checkMappings(ctx, a); err != nil {
		return nil, err
	}

	if err := s.repo.ReplaceMappings(ctx, a); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update mappings")
	}
	s.scheduleRescore(a.ID)
	return a, nil
}

func (s *AssessmentService) scheduleRescore(assessmentID string) {
	if s.rescore == nil {
		return
	}
	queued, err := s.rescore.Enqueue(jobs.Job{
		ID:      assessmentID + "-" + time.Now().UTC().Format("20060102T150405.000"),
		Type:    RescoreJobType,
		Key:     assessmentID,
		Payload: assessmentID,
	})
	if err != nil {
		s.logger.Warn("rescore enqueue failed", zap.String("assessment_id", assessmentID), zap.Error(err))
		return
	}
	if !queued {
		s.logger.Debug("rescore already pending", zap.String("assessment_id", assessmentID))
	}
}

// InitEndTermGrid returns a fresh answer layout for an End-Term assessment with one
// random blank in each optional group, tagged from the assessment's tag layout.
func (s *AssessmentService) InitEndTermGrid(ctx context.Context, id string) ([]models.QuestionSlot, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	structure, ok := a.EndTerm()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "answer grids exist only for end-term assessments")
	}
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return attainment.NewGridFromLayout(s.rng, attainment.TagLayout(structure)), nil
}

// checkMappings enforces structural invariants and that every mapped code exists in the
// catalog with the right kind. Missing names are filled from the catalog.
func (s *AssessmentService) checkMappings(ctx context.Context, a *models.Assessment) error {
	if err := a.Validate(); err != nil {
		return appErrors.WithCause(appErrors.ErrValidation, err, err.Error())
	}
	if s.catalog == nil {
		return nil
	}
	catalog, err := s.catalog.SnapshotFor(ctx, *a)
	if err != nil {
		return err
	}
	fill := func(kind models.OutcomeKind, mappings []models.OutcomeMapping) error {
		for i := range mappings {
			def, ok := catalog.Definition(mappings[i].OutcomeCode)
			if !ok || def.Kind != kind {
				return engineError(&attainment.UnknownOutcomeError{Kind: kind, Code: mappings[i].OutcomeCode}, "")
			}
			if mappings[i].OutcomeName == "" {
				mappings[i].OutcomeName = def.Name
			}
		}
		return nil
	}
	for _, kind := range models.OutcomeKinds {
		if err := fill(kind, a.MappingsOf(kind)); err != nil {
			return err
		}
	}
	return nil
}

func toMappings(reqs []MappingRequest) []models.OutcomeMapping {
	mappings := make([]models.OutcomeMapping, 0, len(reqs))
	for _, r := range reqs {
		mappings = append(mappings, models.OutcomeMapping{
			OutcomeCode: models.NormalizeCode(r.OutcomeCode),
			OutcomeName: r.OutcomeName,
			Weightage:   r.Weightage,
		})
	}
	return mappings
}
