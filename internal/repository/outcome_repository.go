package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/obe-attainment-api/internal/models"
)

// OutcomeRepository persists the GA/CO/PO catalog and its proficiency bands.
type OutcomeRepository struct {
	db *sqlx.DB
}

// NewOutcomeRepository creates a new outcome repository.
func NewOutcomeRepository(db *sqlx.DB) *OutcomeRepository {
	return &OutcomeRepository{db: db}
}

type bandRow struct {
	OutcomeCode string  `db:"outcome_code"`
	Level       string  `db:"level"`
	Min         float64 `db:"min_score"`
	Max         float64 `db:"max_score"`
}

// List returns outcome definitions matching the filter, bands included.
func (r *OutcomeRepository) List(ctx context.Context, filter models.OutcomeFilter) ([]models.OutcomeDefinition, error) {
	where := []string{"1=1"}
	var args []interface{}
	if filter.Kind != "" {
		where = append(where, fmt.Sprintf("kind = $%d", len(args)+1))
		args = append(args, string(filter.Kind))
	}
	if len(filter.Codes) > 0 {
		codes := make([]string, len(filter.Codes))
		for i, code := range filter.Codes {
			codes[i] = models.NormalizeCode(code)
		}
		where = append(where, fmt.Sprintf("code = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(codes))
	}
	query := fmt.Sprintf(`SELECT code, name, kind, created_at, updated_at FROM outcome_definitions WHERE %s ORDER BY kind, code`, strings.Join(where, " AND "))
	var defs []models.OutcomeDefinition
	if err := r.db.SelectContext(ctx, &defs, query, args...); err != nil {
		return nil, fmt.Errorf("list outcome definitions: %w", err)
	}
	if len(defs) == 0 {
		return defs, nil
	}
	if err := r.attachBands(ctx, defs); err != nil {
		return nil, err
	}
	return defs, nil
}

// Get fetches a single outcome definition by code.
func (r *OutcomeRepository) Get(ctx context.Context, code string) (*models.OutcomeDefinition, error) {
	const query = `SELECT code, name, kind, created_at, updated_at FROM outcome_definitions WHERE code = $1`
	var def models.OutcomeDefinition
	if err := r.db.GetContext(ctx, &def, query, models.NormalizeCode(code)); err != nil {
		return nil, err
	}
	defs := []models.OutcomeDefinition{def}
	if err := r.attachBands(ctx, defs); err != nil {
		return nil, err
	}
	return &defs[0], nil
}

func (r *OutcomeRepository) attachBands(ctx context.Context, defs []models.OutcomeDefinition) error {
	codes := make([]string, len(defs))
	index := make(map[string]int, len(defs))
	for i, def := range defs {
		codes[i] = def.Code
		index[def.Code] = i
	}
	const query = `SELECT outcome_code, level, min_score, max_score FROM outcome_bands WHERE outcome_code = ANY($1) ORDER BY outcome_code, min_score`
	var rows []bandRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(codes)); err != nil {
		return fmt.Errorf("list outcome bands: %w", err)
	}
	for _, row := range rows {
		i, ok := index[row.OutcomeCode]
		if !ok {
			continue
		}
		defs[i].Bands = append(defs[i].Bands, models.ProficiencyBand{
			Level: models.ProficiencyLevel(row.Level),
			Min:   row.Min,
			Max:   row.Max,
		})
	}
	return nil
}

// Upsert inserts or replaces an outcome definition and its bands in one transaction.
func (r *OutcomeRepository) Upsert(ctx context.Context, def *models.OutcomeDefinition) error {
	def.Code = models.NormalizeCode(def.Code)
	now := time.Now().UTC()
	if def.CreatedAt.IsZero() {
		def.CreatedAt = now
	}
	def.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	const upsertQuery = `INSERT INTO outcome_definitions (code, name, kind, created_at, updated_at)
        VALUES (:code, :name, :kind, :created_at, :updated_at)
        ON CONFLICT (code)
        DO UPDATE SET name = EXCLUDED.name, kind = EXCLUDED.kind, updated_at = EXCLUDED.updated_at`
	if _, err := tx.NamedExecContext(ctx, upsertQuery, def); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("upsert outcome definition: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM outcome_bands WHERE outcome_code = $1`, def.Code); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("clear outcome bands: %w", err)
	}
	for _, band := range def.Bands {
		const bandQuery = `INSERT INTO outcome_bands (outcome_code, level, min_score, max_score) VALUES ($1, $2, $3, $4)`
		if _, err := tx.ExecContext(ctx, bandQuery, def.Code, string(band.Level), band.Min, band.Max); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("insert outcome band: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit outcome definition: %w", err)
	}
	return nil
}
