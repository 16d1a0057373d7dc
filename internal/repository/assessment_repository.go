package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"github.com/noah-isme/obe-attainment-api/internal/models"
)

// AssessmentRepository persists assessments and their outcome mappings. GA, PO and flat
// CO mappings live in assessment_mappings; the End-Term structure is a JSONB column.
type AssessmentRepository struct {
	db *sqlx.DB
}

// NewAssessmentRepository creates a new assessment repository.
func NewAssessmentRepository(db *sqlx.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

type assessmentRow struct {
	ID               string             `db:"id"`
	CourseID         string             `db:"course_id"`
	Title            string             `db:"title"`
	Type             string             `db:"type"`
	MaxMarks         float64            `db:"max_marks"`
	Weightage        float64            `db:"weightage"`
	EndTermStructure types.NullJSONText `db:"end_term_structure"`
	CreatedAt        time.Time          `db:"created_at"`
	UpdatedAt        time.Time          `db:"updated_at"`
}

type mappingRow struct {
	AssessmentID string  `db:"assessment_id"`
	Kind         string  `db:"kind"`
	OutcomeCode  string  `db:"outcome_code"`
	OutcomeName  string  `db:"outcome_name"`
	Weightage    float64 `db:"weightage"`
	Position     int     `db:"position"`
}

const assessmentColumns = `id, course_id, title, type, max_marks, weightage, end_term_structure, created_at, updated_at`

func endTermColumn(a *models.Assessment) (types.NullJSONText, error) {
	structure, ok := a.EndTerm()
	if !ok {
		return types.NullJSONText{}, nil
	}
	payload, err := json.Marshal(structure)
	if err != nil {
		return types.NullJSONText{}, fmt.Errorf("marshal end-term structure: %w", err)
	}
	return types.NullJSONText{JSONText: types.JSONText(payload), Valid: true}, nil
}

// mappingRows flattens the table-stored mappings of a in declaration order.
func mappingRows(a *models.Assessment) []mappingRow {
	var rows []mappingRow
	add := func(kind models.OutcomeKind, mappings []models.OutcomeMapping) {
		for i, m := range mappings {
			rows = append(rows, mappingRow{
				AssessmentID: a.ID,
				Kind:         string(kind),
				OutcomeCode:  models.NormalizeCode(m.OutcomeCode),
				OutcomeName:  m.OutcomeName,
				Weightage:    m.Weightage,
				Position:     i,
			})
		}
	}
	add(models.OutcomeKindGA, a.GAMappings)
	if _, ok := a.EndTerm(); !ok {
		add(models.OutcomeKindCO, a.MappingsOf(models.OutcomeKindCO))
	}
	add(models.OutcomeKindPO, a.POMappings)
	return rows
}

// Create inserts an assessment with its mappings.
func (r *AssessmentRepository) Create(ctx context.Context, a *models.Assessment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	structure, err := endTermColumn(a)
	if err != nil {
		return err
	}
	row := assessmentRow{
		ID:               a.ID,
		CourseID:         a.CourseID,
		Title:            a.Title,
		Type:             string(a.Type),
		MaxMarks:         a.MaxMarks,
		Weightage:        a.Weightage,
		EndTermStructure: structure,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	const insertQuery = `INSERT INTO assessments (id, course_id, title, type, max_marks, weightage, end_term_structure, created_at, updated_at)
        VALUES (:id, :course_id, :title, :type, :max_marks, :weightage, :end_term_structure, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertQuery, row); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("insert assessment: %w", err)
	}
	if err := insertMappings(ctx, tx, mappingRows(a)); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit assessment: %w", err)
	}
	return nil
}

func insertMappings(ctx context.Context, tx *sqlx.Tx, rows []mappingRow) error {
	const query = `INSERT INTO assessment_mappings (assessment_id, kind, outcome_code, outcome_name, weightage, position)
        VALUES (:assessment_id, :kind, :outcome_code, :outcome_name, :weightage, :position)`
	for _, row := range rows {
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("insert assessment mapping: %w", err)
		}
	}
	return nil
}

// ReplaceMappings swaps every mapping of an assessment, End-Term structure included.
func (r *AssessmentRepository) ReplaceMappings(ctx context.Context, a *models.Assessment) error {
	structure, err := endTermColumn(a)
	if err != nil {
		return err
	}
	a.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `UPDATE assessments SET end_term_structure = $1, updated_at = $2 WHERE id = $3`, structure, a.UpdatedAt, a.ID)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("update assessment: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		tx.Rollback() //nolint:errcheck
		return sql.ErrNoRows
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM assessment_mappings WHERE assessment_id = $1`, a.ID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("clear assessment mappings: %w", err)
	}
	if err := insertMappings(ctx, tx, mappingRows(a)); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit assessment mappings: %w", err)
	}
	return nil
}

// Get fetches an assessment with its mappings.
func (r *AssessmentRepository) Get(ctx context.Context, id string) (*models.Assessment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assessments WHERE id = $1`, assessmentColumns)
	var row assessmentRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	assessments, err := r.hydrate(ctx, []assessmentRow{row})
	if err != nil {
		return nil, err
	}
	return &assessments[0], nil
}

// List returns assessments matching the filter ordered by creation time.
func (r *AssessmentRepository) List(ctx context.Context, filter models.AssessmentFilter) ([]models.Assessment, error) {
	where := []string{"1=1"}
	var args []interface{}
	if filter.CourseID != "" {
		where = append(where, fmt.Sprintf("course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if len(filter.IDs) > 0 {
		where = append(where, fmt.Sprintf("id = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.IDs))
	}
	if filter.Type != "" {
		where = append(where, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, string(filter.Type))
	}
	query := fmt.Sprintf(`SELECT %s FROM assessments WHERE %s ORDER BY created_at ASC, id ASC`, assessmentColumns, strings.Join(where, " AND "))
	var rows []assessmentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	if len(rows) == 0 {
		return []models.Assessment{}, nil
	}
	return r.hydrate(ctx, rows)
}

func (r *AssessmentRepository) hydrate(ctx context.Context, rows []assessmentRow) ([]models.Assessment, error) {
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	const mappingQuery = `SELECT assessment_id, kind, outcome_code, outcome_name, weightage, position
        FROM assessment_mappings WHERE assessment_id = ANY($1) ORDER BY assessment_id, kind, position`
	var mappings []mappingRow
	if err := r.db.SelectContext(ctx, &mappings, mappingQuery, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list assessment mappings: %w", err)
	}
	byAssessment := make(map[string][]mappingRow, len(rows))
	for _, m := range mappings {
		byAssessment[m.AssessmentID] = append(byAssessment[m.AssessmentID], m)
	}

	result := make([]models.Assessment, 0, len(rows))
	for _, row := range rows {
		a, err := row.toModel(byAssessment[row.ID])
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, nil
}

func (row assessmentRow) toModel(mappings []mappingRow) (models.Assessment, error) {
	a := models.Assessment{
		ID:        row.ID,
		CourseID:  row.CourseID,
		Title:     row.Title,
		Type:      models.AssessmentType(row.Type),
		MaxMarks:  row.MaxMarks,
		Weightage: row.Weightage,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	var flat models.FlatCOMappings
	for _, m := range mappings {
		mapping := models.OutcomeMapping{OutcomeCode: m.OutcomeCode, OutcomeName: m.OutcomeName, Weightage: m.Weightage}
		switch models.OutcomeKind(m.Kind) {
		case models.OutcomeKindGA:
			a.GAMappings = append(a.GAMappings, mapping)
		case models.OutcomeKindCO:
			flat = append(flat, mapping)
		case models.OutcomeKindPO:
			a.POMappings = append(a.POMappings, mapping)
		}
	}
	if a.Type != models.AssessmentEndTerm {
		a.CO = flat
		return a, nil
	}
	structure := &models.EndTermStructure{}
	if row.EndTermStructure.Valid {
		if err := row.EndTermStructure.Unmarshal(structure); err != nil {
			return models.Assessment{}, fmt.Errorf("decode end-term structure of %s: %w", row.ID, err)
		}
	}
	a.CO = structure
	return a, nil
}
