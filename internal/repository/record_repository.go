package repository

import (
	"context"
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

// RecordRepository persists scored student assessment records. The unique key
// (student_id, assessment_id) turns every write into an upsert.
type RecordRepository struct {
	db *sqlx.DB
}

// NewRecordRepository creates a new record repository.
func NewRecordRepository(db *sqlx.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

type recordScores struct {
	GA []models.OutcomeScore `json:"ga"`
	CO []models.OutcomeScore `json:"co"`
	PO []models.OutcomeScore `json:"po"`
}

type recordRow struct {
	ID             string             `db:"id"`
	StudentID      string             `db:"student_id"`
	AssessmentID   string             `db:"assessment_id"`
	CourseID       string             `db:"course_id"`
	AssessmentType string             `db:"assessment_type"`
	MarksObtained  float64            `db:"marks_obtained"`
	MaxMarks       float64            `db:"max_marks"`
	Scores         types.JSONText     `db:"scores"`
	Grid           types.NullJSONText `db:"grid"`
	SubmittedAt    time.Time          `db:"submitted_at"`
	UpdatedAt      time.Time          `db:"updated_at"`
}

const recordColumns = `id, student_id, assessment_id, course_id, assessment_type, marks_obtained, max_marks, scores, grid, submitted_at, updated_at`

const upsertRecordQuery = `INSERT INTO student_assessment_records (id, student_id, assessment_id, course_id, assessment_type, marks_obtained, max_marks, scores, grid, submitted_at, updated_at)
        VALUES (:id, :student_id, :assessment_id, :course_id, :assessment_type, :marks_obtained, :max_marks, :scores, :grid, :submitted_at, :updated_at)
        ON CONFLICT (student_id, assessment_id)
        DO UPDATE SET course_id = EXCLUDED.course_id, assessment_type = EXCLUDED.assessment_type,
            marks_obtained = EXCLUDED.marks_obtained, max_marks = EXCLUDED.max_marks, scores = EXCLUDED.scores,
            grid = EXCLUDED.grid, submitted_at = EXCLUDED.submitted_at, updated_at = EXCLUDED.updated_at
        RETURNING id`

func newRecordRow(record *models.StudentAssessmentRecord) (recordRow, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.SubmittedAt.IsZero() {
		record.SubmittedAt = now
	}
	scores, err := json.Marshal(recordScores{GA: record.GAScores, CO: record.COScores, PO: record.POScores})
	if err != nil {
		return recordRow{}, fmt.Errorf("marshal record scores: %w", err)
	}
	row := recordRow{
		ID:             record.ID,
		StudentID:      record.StudentID,
		AssessmentID:   record.AssessmentID,
		CourseID:       record.CourseID,
		AssessmentType: string(record.AssessmentType),
		MarksObtained:  record.MarksObtained,
		MaxMarks:       record.MaxMarks,
		Scores:         types.JSONText(scores),
		SubmittedAt:    record.SubmittedAt,
		UpdatedAt:      now,
	}
	if len(record.Grid) > 0 {
		grid, err := json.Marshal(record.Grid)
		if err != nil {
			return recordRow{}, fmt.Errorf("marshal record grid: %w", err)
		}
		row.Grid = types.NullJSONText{JSONText: types.JSONText(grid), Valid: true}
	}
	return row, nil
}

func upsertRecord(ctx context.Context, exec sqlx.ExtContext, record *models.StudentAssessmentRecord) error {
	row, err := newRecordRow(record)
	if err != nil {
		return err
	}
	query, args, err := sqlx.Named(upsertRecordQuery, row)
	if err != nil {
		return fmt.Errorf("bind record upsert: %w", err)
	}
	query = exec.Rebind(query)
	// A replaced row keeps its original id.
	if err := exec.QueryRowxContext(ctx, query, args...).Scan(&record.ID); err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

// Upsert inserts a record or replaces the existing one for the same student and assessment.
func (r *RecordRepository) Upsert(ctx context.Context, record *models.StudentAssessmentRecord) error {
	return upsertRecord(ctx, r.db, record)
}

// BulkUpsert upserts records in a single transaction.
func (r *RecordRepository) BulkUpsert(ctx context.Context, records []models.StudentAssessmentRecord) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	for i := range records {
		if err := upsertRecord(ctx, tx, &records[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("bulk upsert record: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit records: %w", err)
	}
	return nil
}

const updateScoresQuery = `UPDATE student_assessment_records
        SET max_marks = $1, scores = $2, grid = $3, updated_at = $4
        WHERE student_id = $5 AND assessment_id = $6 AND submitted_at = $7`

// UpdateScores rewrites the scores and grids of records whose submission has not
// changed since they were read; submitted_at acts as the version. Records resubmitted
// in the meantime are left as they are and returned as superseded.
func (r *RecordRepository) UpdateScores(ctx context.Context, records []models.StudentAssessmentRecord) ([]models.RecordKey, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	var superseded []models.RecordKey
	for _, record := range records {
		row, err := newRecordRow(&record)
		if err != nil {
			tx.Rollback() //nolint:errcheck
			return nil, err
		}
		res, err := tx.ExecContext(ctx, updateScoresQuery, row.MaxMarks, row.Scores, row.Grid, now,
			row.StudentID, row.AssessmentID, row.SubmittedAt)
		if err != nil {
			tx.Rollback() //nolint:errcheck
			return nil, fmt.Errorf("update record scores: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			tx.Rollback() //nolint:errcheck
			return nil, fmt.Errorf("update record scores: %w", err)
		}
		if affected == 0 {
			superseded = append(superseded, record.Key())
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit record scores: %w", err)
	}
	return superseded, nil
}

// List returns records matching the filter ordered by student then assessment.
func (r *RecordRepository) List(ctx context.Context, filter models.RecordFilter) ([]models.StudentAssessmentRecord, error) {
	where := []string{"1=1"}
	var args []interface{}
	if filter.CourseID != "" {
		where = append(where, fmt.Sprintf("course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if len(filter.StudentIDs) > 0 {
		where = append(where, fmt.Sprintf("student_id = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.StudentIDs))
	}
	if len(filter.AssessmentIDs) > 0 {
		where = append(where, fmt.Sprintf("assessment_id = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.AssessmentIDs))
	}
	query := fmt.Sprintf(`SELECT %s FROM student_assessment_records WHERE %s ORDER BY student_id ASC, assessment_id ASC`, recordColumns, strings.Join(where, " AND "))
	var rows []recordRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	records := make([]models.StudentAssessmentRecord, 0, len(rows))
	for _, row := range rows {
		record, err := row.toModel()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (row recordRow) toModel() (models.StudentAssessmentRecord, error) {
	record := models.StudentAssessmentRecord{
		ID:             row.ID,
		StudentID:      row.StudentID,
		AssessmentID:   row.AssessmentID,
		CourseID:       row.CourseID,
		AssessmentType: models.AssessmentType(row.AssessmentType),
		MarksObtained:  row.MarksObtained,
		MaxMarks:       row.MaxMarks,
		SubmittedAt:    row.SubmittedAt,
	}
	var scores recordScores
	if len(row.Scores) > 0 {
		if err := row.Scores.Unmarshal(&scores); err != nil {
			return models.StudentAssessmentRecord{}, fmt.Errorf("decode scores of record %s: %w", row.ID, err)
		}
	}
	record.GAScores, record.COScores, record.POScores = scores.GA, scores.CO, scores.PO
	if row.Grid.Valid {
		if err := row.Grid.Unmarshal(&record.Grid); err != nil {
			return models.StudentAssessmentRecord{}, fmt.Errorf("decode grid of record %s: %w", row.ID, err)
		}
	}
	return record, nil
}
