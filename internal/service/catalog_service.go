package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/obe-attainment-api/internal/attainment"
	"github.com/noah-isme/obe-attainment-api/internal/models"
	appErrors "github.com/noah-isme/obe-attainment-api/pkg/errors"
)

const outcomeCachePrefix = "outcome"

type outcomeRepo interface {
	List(ctx context.Context, filter models.OutcomeFilter) ([]models.OutcomeDefinition, error)
	Get(ctx context.Context, code string) (*models.OutcomeDefinition, error)
	Upsert(ctx context.Context, def *models.OutcomeDefinition) error
}

// BandRequest is one authored proficiency band.
type BandRequest struct {
	Level models.ProficiencyLevel `json:"level" validate:"required,oneof=Introductory Intermediate Advanced"`
	Min   float64                 `json:"min" validate:"gte=0,lte=100"`
	Max   float64                 `json:"max" validate:"gte=0,lte=100"`
}

// UpsertOutcomeRequest creates or replaces a catalog entry.
type UpsertOutcomeRequest struct {
	Code  string             `json:"code" validate:"required,max=32"`
	Name  string             `json:"name" validate:"required,max=255"`
	Kind  models.OutcomeKind `json:"kind" validate:"required,oneof=GA CO PO"`
	Bands []BandRequest      `json:"bands" validate:"omitempty,dive"`
}

// CatalogService manages GA, CO and PO definitions and hands the engine its catalog.
type CatalogService struct {
	repo      outcomeRepo
	cache     *CacheService
	ttl       time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService constructs a CatalogService. cache may be nil.
func NewCatalogService(repo outcomeRepo, cache *CacheService, ttl time.Duration, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, cache: cache, ttl: ttl, validator: validate, logger: logger}
}

// List returns catalog entries matching filter.
func (s *CatalogService) List(ctx context.Context, filter models.OutcomeFilter) ([]models.OutcomeDefinition, error) {
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown outcome kind")
	}
	defs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list outcomes")
	}
	return defs, nil
}

// Get returns one definition, served from cache when possible.
func (s *CatalogService) Get(ctx context.Context, code string) (*models.OutcomeDefinition, error) {
	code = models.NormalizeCode(code)
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "outcome code is required")
	}
	key := CacheKey(outcomeCachePrefix, code)
	var cached models.OutcomeDefinition
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	def, err := s.repo.Get(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "outcome not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load outcome")
	}
	_ = s.cache.Set(ctx, key, def, s.ttl)
	return def, nil
}

// Upsert validates and stores a definition, then drops its cached copy.
func (s *CatalogService) Upsert(ctx context.Context, req UpsertOutcomeRequest) (*models.OutcomeDefinition, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid outcome payload")
	}
	def := &models.OutcomeDefinition{
		Code: models.NormalizeCode(req.Code),
		Name: req.Name,
		Kind: req.Kind,
	}
	for _, b := range req.Bands {
		def.Bands = append(def.Bands, models.ProficiencyBand{Level: b.Level, Min: b.Min, Max: b.Max})
	}
	if len(def.Bands) > 0 {
		if err := attainment.ValidateBands(def.Bands); err != nil {
			return nil, appErrors.WithCause(appErrors.ErrInvalidBands, err, err.Error())
		}
		def.Bands = attainment.SortBands(def.Bands)
	}

	if err := s.repo.Upsert(ctx, def); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save outcome")
	}
	_ = s.cache.Delete(ctx, CacheKey(outcomeCachePrefix, def.Code))
	s.logger.Info("outcome upserted", zap.String("code", def.Code), zap.String("kind", string(def.Kind)), zap.Int("bands", len(def.Bands)))
	return def, nil
}

// Snapshot loads the definitions for codes into an engine catalog. Codes missing from
// storage are simply absent, so scoring reports them as unknown outcomes.
func (s *CatalogService) Snapshot(ctx context.Context, codes []string) (attainment.StaticCatalog, error) {
	normalized := uniqueCodes(codes)
	if len(normalized) == 0 {
		return attainment.NewStaticCatalog(), nil
	}
	defs, err := s.repo.List(ctx, models.OutcomeFilter{Codes: normalized})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load outcome catalog")
	}
	return attainment.NewStaticCatalog(defs...), nil
}

// SnapshotFor loads the catalog covering every mapping of assessments.
func (s *CatalogService) SnapshotFor(ctx context.Context, assessments ...models.Assessment) (attainment.StaticCatalog, error) {
	var codes []string
	for _, a := range assessments {
		for _, key := range a.OutcomeKeys() {
			codes = append(codes, key.Code)
		}
	}
	return s.Snapshot(ctx, codes)
}

func uniqueCodes(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		code = models.NormalizeCode(code)
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}
