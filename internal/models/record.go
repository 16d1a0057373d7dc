package models

import "time"

// QuestionSlot is one End-Term question: a nil Mark means the question was left blank.
type QuestionSlot struct {
	Mark   *float64 `json:"mark"`
	COTags []string `json:"co_tags"`
}

// Attempted reports whether the slot carries a mark.
func (s QuestionSlot) Attempted() bool {
	return s.Mark != nil
}

// OutcomeScore is the weighted attainment of one outcome on one assessment. Score is
// bounded by Weightage, not by 100.
type OutcomeScore struct {
	Kind       OutcomeKind      `json:"kind"`
	Code       string           `json:"code"`
	Name       string           `json:"name,omitempty"`
	Score      float64          `json:"score"`
	Weightage  float64          `json:"weightage"`
	Percentage float64          `json:"percentage"`
	Level      ProficiencyLevel `json:"level"`
}

// Key identifies the scored outcome.
func (s OutcomeScore) Key() OutcomeKey {
	return OutcomeKey{Kind: s.Kind, Code: s.Code}
}

// StudentAssessmentRecord is the scored submission of one student on one assessment.
// At most one record exists per (StudentID, AssessmentID).
type StudentAssessmentRecord struct {
	ID             string         `json:"id"`
	StudentID      string         `json:"student_id"`
	AssessmentID   string         `json:"assessment_id"`
	CourseID       string         `json:"course_id"`
	AssessmentType AssessmentType `json:"assessment_type"`
	MarksObtained  float64        `json:"marks_obtained"`
	MaxMarks       float64        `json:"max_marks"`
	GAScores       []OutcomeScore `json:"ga_scores"`
	COScores       []OutcomeScore `json:"co_scores"`
	POScores       []OutcomeScore `json:"po_scores"`
	Grid           []QuestionSlot `json:"grid,omitempty"`
	SubmittedAt    time.Time      `json:"submitted_at"`
}

// Scores returns every outcome score of the record, GA first.
func (r StudentAssessmentRecord) Scores() []OutcomeScore {
	scores := make([]OutcomeScore, 0, len(r.GAScores)+len(r.COScores)+len(r.POScores))
	scores = append(scores, r.GAScores...)
	scores = append(scores, r.COScores...)
	return append(scores, r.POScores...)
}

// RecordKey is the upsert key of a record.
type RecordKey struct {
	StudentID    string
	AssessmentID string
}

// Key returns the record's upsert key.
func (r StudentAssessmentRecord) Key() RecordKey {
	return RecordKey{StudentID: r.StudentID, AssessmentID: r.AssessmentID}
}

// RecordFilter scopes record listings.
type RecordFilter struct {
	CourseID      string
	StudentIDs    []string
	AssessmentIDs []string
}
