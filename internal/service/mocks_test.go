package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/obe-attainment-api/internal/models"
	appErrors "github.com/noah-isme/obe-attainment-api/pkg/errors"
	"github.com/noah-isme/obe-attainment-api/pkg/jobs"
)

func floatPtr(v float64) *float64 { return &v }

func testDefinitions() []models.OutcomeDefinition {
	return []models.OutcomeDefinition{
		{Code: "GA1", Name: "Knowledge", Kind: models.OutcomeKindGA},
		{Code: "CO1", Name: "Design", Kind: models.OutcomeKindCO},
		{Code: "CO2", Name: "Analysis", Kind: models.OutcomeKindCO},
		{Code: "PO1", Name: "Problem solving", Kind: models.OutcomeKindPO},
	}
}

type mockOutcomeRepo struct {
	defs      map[string]models.OutcomeDefinition
	listCalls int
	getCalls  int
	upserted  []models.OutcomeDefinition
	err       error
}

func newMockOutcomeRepo(defs ...models.OutcomeDefinition) *mockOutcomeRepo {
	m := &mockOutcomeRepo{defs: make(map[string]models.OutcomeDefinition)}
	for _, d := range defs {
		m.defs[d.Code] = d
	}
	return m
}

func (m *mockOutcomeRepo) List(ctx context.Context, filter models.OutcomeFilter) ([]models.OutcomeDefinition, error) {
	m.listCalls++
	if m.err != nil {
		return nil, m.err
	}
	wanted := make(map[string]struct{}, len(filter.Codes))
	for _, c := range filter.Codes {
		wanted[models.NormalizeCode(c)] = struct{}{}
	}
	var out []models.OutcomeDefinition
	for _, d := range m.defs {
		if filter.Kind != "" && d.Kind != filter.Kind {
			continue
		}
		if len(wanted) > 0 {
			if _, ok := wanted[d.Code]; !ok {
				continue
			}
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *mockOutcomeRepo) Get(ctx context.Context, code string) (*models.OutcomeDefinition, error) {
	m.getCalls++
	d, ok := m.defs[code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &d, nil
}

func (m *mockOutcomeRepo) Upsert(ctx context.Context, def *models.OutcomeDefinition) error {
	if m.err != nil {
		return m.err
	}
	m.defs[def.Code] = *def
	m.upserted = append(m.upserted, *def)
	return nil
}

type mockAssessmentRepo struct {
	items    map[string]models.Assessment
	created  int
	replaced int
}

func newMockAssessmentRepo(items ...models.Assessment) *mockAssessmentRepo {
	m := &mockAssessmentRepo{items: make(map[string]models.Assessment)}
	for _, a := range items {
		m.items[a.ID] = a
	}
	return m
}

func (m *mockAssessmentRepo) Create(ctx context.Context, a *models.Assessment) error {
	m.created++
	if a.ID == "" {
		a.ID = "as-new"
	}
	m.items[a.ID] = *a
	return nil
}

func (m *mockAssessmentRepo) ReplaceMappings(ctx context.Context, a *models.Assessment) error {
	if _, ok := m.items[a.ID]; !ok {
		return sql.ErrNoRows
	}
	m.replaced++
	m.items[a.ID] = *a
	return nil
}

func (m *mockAssessmentRepo) Get(ctx context.Context, id string) (*models.Assessment, error) {
	a, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &a, nil
}

func (m *mockAssessmentRepo) List(ctx context.Context, filter models.AssessmentFilter) ([]models.Assessment, error) {
	ids := make(map[string]struct{}, len(filter.IDs))
	for _, id := range filter.IDs {
		ids[id] = struct{}{}
	}
	var out []models.Assessment
	for _, a := range m.items {
		if filter.CourseID != "" && a.CourseID != filter.CourseID {
			continue
		}
		if len(ids) > 0 {
			if _, ok := ids[a.ID]; !ok {
				continue
			}
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type mockRecordRepo struct {
	mu        sync.Mutex
	records   map[models.RecordKey]models.StudentAssessmentRecord
	listCalls int
	bulkCalls int
	seq       int
}

func newMockRecordRepo(records ...models.StudentAssessmentRecord) *mockRecordRepo {
	m := &mockRecordRepo{records: make(map[models.RecordKey]models.StudentAssessmentRecord)}
	for _, r := range records {
		m.records[r.Key()] = r
	}
	return m
}

func (m *mockRecordRepo) Upsert(ctx context.Context, record *models.StudentAssessmentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.records[record.Key()]; ok {
		record.ID = existing.ID
	} else if record.ID == "" {
		m.seq++
		record.ID = fmt.Sprintf("rec-%d", m.seq)
	}
	m.records[record.Key()] = *record
	return nil
}

func (m *mockRecordRepo) BulkUpsert(ctx context.Context, records []models.StudentAssessmentRecord) error {
	m.bulkCalls++
	for i := range records {
		if err := m.Upsert(ctx, &records[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockRecordRepo) List(ctx context.Context, filter models.RecordFilter) ([]models.StudentAssessmentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	students := toSet(filter.StudentIDs)
	assessments := toSet(filter.AssessmentIDs)
	var out []models.StudentAssessmentRecord
	for _, r := range m.records {
		if filter.CourseID != "" && r.CourseID != filter.CourseID {
			continue
		}
		if len(students) > 0 {
			if _, ok := students[r.StudentID]; !ok {
				continue
			}
		}
		if len(assessments) > 0 {
			if _, ok := assessments[r.AssessmentID]; !ok {
				continue
			}
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StudentID != out[j].StudentID {
			return out[i].StudentID < out[j].StudentID
		}
		return out[i].AssessmentID < out[j].AssessmentID
	})
	return out, nil
}

func (m *mockRecordRepo) UpdateScores(ctx context.Context, records []models.StudentAssessmentRecord) ([]models.RecordKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var superseded []models.RecordKey
	for _, rec := range records {
		existing, ok := m.records[rec.Key()]
		if !ok || !existing.SubmittedAt.Equal(rec.SubmittedAt) {
			superseded = append(superseded, rec.Key())
			continue
		}
		existing.MaxMarks = rec.MaxMarks
		existing.Grid = rec.Grid
		existing.GAScores, existing.COScores, existing.POScores = rec.GAScores, rec.COScores, rec.POScores
		m.records[rec.Key()] = existing
	}
	return superseded, nil
}

// racingRecordRepo runs afterList once, right after the first List returns, to
// interleave a write between a read and the write that follows it.
type racingRecordRepo struct {
	*mockRecordRepo
	afterList func()
}

func (r *racingRecordRepo) List(ctx context.Context, filter models.RecordFilter) ([]models.StudentAssessmentRecord, error) {
	out, err := r.mockRecordRepo.List(ctx, filter)
	if hook := r.afterList; hook != nil {
		r.afterList = nil
		hook()
	}
	return out, err
}

func (m *mockRecordRepo) get(studentID, assessmentID string) (models.StudentAssessmentRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[models.RecordKey{StudentID: studentID, AssessmentID: assessmentID}]
	return r, ok
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

type mockCacheRepo struct {
	items    map[string][]byte
	deleted  []string
	patterns []string
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{items: make(map[string][]byte)}
}

func (m *mockCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *mockCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	return nil
}

func (m *mockCacheRepo) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.items, k)
		m.deleted = append(m.deleted, k)
	}
	return nil
}

func (m *mockCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	for k := range m.items {
		if ok, _ := path.Match(pattern, k); ok {
			delete(m.items, k)
		}
	}
	return nil
}

type mockQueue struct {
	jobs []jobs.Job
}

func (m *mockQueue) Enqueue(job jobs.Job) (bool, error) {
	m.jobs = append(m.jobs, job)
	return true, nil
}

type mockInvalidator struct {
	courses []string
}

func (m *mockInvalidator) InvalidateCourse(ctx context.Context, courseID string) {
	m.courses = append(m.courses, courseID)
}
