package models

import "time"

// CohortOutcomeReport is the per-outcome aggregate of one student's records. It is
// derived on every query and never stored as the source of truth.
type CohortOutcomeReport struct {
	OutcomeKind     OutcomeKind      `json:"outcome_kind"`
	OutcomeCode     string           `json:"outcome_code"`
	OutcomeName     string           `json:"outcome_name,omitempty"`
	TotalScore      float64          `json:"total_score"`
	AssessmentCount int              `json:"assessment_count"`
	AverageScore    float64          `json:"average_score"`
	WeightageTotal  float64          `json:"weightage_total"`
	MeanWeightage   float64          `json:"mean_weightage"`
	Level           ProficiencyLevel `json:"level"`
}

// Key identifies the reported outcome.
func (r CohortOutcomeReport) Key() OutcomeKey {
	return OutcomeKey{Kind: r.OutcomeKind, Code: r.OutcomeCode}
}

// SkippedRecord explains why a record did not contribute to a report.
type SkippedRecord struct {
	StudentID    string `json:"student_id"`
	AssessmentID string `json:"assessment_id"`
	Reason       string `json:"reason"`
}

// StudentAttainment is a student's per-outcome report.
type StudentAttainment struct {
	StudentID string                `json:"student_id"`
	Outcomes  []CohortOutcomeReport `json:"outcomes"`
	Skipped   []SkippedRecord       `json:"skipped,omitempty"`
}

// CohortOutcomeSummary is the per-outcome aggregate across students.
type CohortOutcomeSummary struct {
	OutcomeKind                  OutcomeKind      `json:"outcome_kind"`
	OutcomeCode                  string           `json:"outcome_code"`
	OutcomeName                  string           `json:"outcome_name,omitempty"`
	StudentCount                 int              `json:"student_count"`
	UncoveredStudents            int              `json:"uncovered_students"`
	AssessmentCount              int              `json:"assessment_count"`
	MeanAverageScore             float64          `json:"mean_average_score"`
	MeanWeightage                float64          `json:"mean_weightage"`
	NormalizedAchievementPercent float64          `json:"normalized_achievement_percent"`
	Level                        ProficiencyLevel `json:"level"`
}

// Key identifies the summarised outcome.
func (s CohortOutcomeSummary) Key() OutcomeKey {
	return OutcomeKey{Kind: s.OutcomeKind, Code: s.OutcomeCode}
}

// CohortAttainment is the cohort report for a set of students.
type CohortAttainment struct {
	CourseID     string                 `json:"course_id,omitempty"`
	StudentCount int                    `json:"student_count"`
	Outcomes     []CohortOutcomeSummary `json:"outcomes"`
	Students     []StudentAttainment    `json:"students,omitempty"`
	Skipped      []SkippedRecord        `json:"skipped,omitempty"`
	GeneratedAt  time.Time              `json:"generated_at"`
}

// ReportFilter scopes a student or cohort report query.
type ReportFilter struct {
	CourseID      string   `form:"courseId" json:"course_id"`
	StudentIDs    []string `form:"studentId" json:"student_ids"`
	AssessmentIDs []string `form:"assessmentId" json:"assessment_ids"`
}

// ReportFormat enumerates export formats.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// SystemMetrics is a lightweight snapshot of service instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	RecordsScored            uint64    `json:"records_scored"`
	RecordFailures           uint64    `json:"record_failures"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
