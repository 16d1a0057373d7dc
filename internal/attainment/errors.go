package attainment

import (
	"errors"
	"fmt"

	"github.com/noah-isme/obe-attainment-api/internal/models"
)

var (
	// ErrNoMappings is returned when an assessment declares no outcome mappings at all.
	ErrNoMappings = errors.New("assessment has no outcome mappings")
	// ErrGridRequired is returned when an End-Term submission carries no answer grid.
	ErrGridRequired = errors.New("end-term submission requires an answer grid")
	// ErrUnexpectedGrid is returned when a non End-Term submission carries an answer grid.
	ErrUnexpectedGrid = errors.New("answer grid is only accepted for end-term assessments")
	// ErrMarksRequired is returned when a flat submission carries no marks.
	ErrMarksRequired = errors.New("submission requires marks obtained")
	// ErrUnexpectedMarks is returned when an End-Term submission carries flat marks; its
	// total is derived from the answer grid.
	ErrUnexpectedMarks = errors.New("end-term marks are derived from the answer grid and cannot be submitted directly")
)

// InvalidMarkError rejects a mark outside [0, maxMarks] or a non-positive maxMarks.
type InvalidMarkError struct {
	Marks    float64
	MaxMarks float64
}

func (e *InvalidMarkError) Error() string {
	if !(e.MaxMarks > 0) {
		return fmt.Sprintf("invalid max marks %v", e.MaxMarks)
	}
	return fmt.Sprintf("mark %v outside [0, %v]", e.Marks, e.MaxMarks)
}

// GridErrorKind names an End-Term structural violation.
type GridErrorKind string

const (
	GridWrongSlotCount    GridErrorKind = "wrong_slot_count"
	GridTooManyAttempted  GridErrorKind = "too_many_attempted"
	GridCompulsoryMissing GridErrorKind = "compulsory_missing"
	GridMarkOutOfRange    GridErrorKind = "mark_out_of_range"
	GridTagMismatch       GridErrorKind = "tag_mismatch"
)

// GridError describes why an End-Term answer grid was rejected. Group is meaningful
// for GridTooManyAttempted, Slot for GridMarkOutOfRange, GridCompulsoryMissing and
// GridTagMismatch.
type GridError struct {
	Kind  GridErrorKind
	Group int
	Slot  int
	Count int
	Mark  float64
}

func (e *GridError) Error() string {
	switch e.Kind {
	case GridWrongSlotCount:
		return fmt.Sprintf("grid has %d slots, want %d", e.Count, SlotCount)
	case GridTooManyAttempted:
		g := Groups[e.Group]
		return fmt.Sprintf("group %d attempts %d questions, at most %d allowed", e.Group, e.Count, g.MaxAttempted)
	case GridCompulsoryMissing:
		return fmt.Sprintf("compulsory question %d is blank", e.Slot+1)
	case GridMarkOutOfRange:
		return fmt.Sprintf("question %d mark %v outside [0, %v]", e.Slot+1, e.Mark, QuestionMaxMarks[e.Slot])
	case GridTagMismatch:
		return fmt.Sprintf("question %d CO tags differ from the assessment's tag layout", e.Slot+1)
	}
	return "invalid grid"
}

// TooManyAttempted builds the error for a choose-N group with no blank question.
func TooManyAttempted(group, count int) *GridError {
	return &GridError{Kind: GridTooManyAttempted, Group: group, Slot: -1, Count: count}
}

// CompulsoryMissing builds the error for a blank compulsory question.
func CompulsoryMissing(slot int) *GridError {
	return &GridError{Kind: GridCompulsoryMissing, Group: -1, Slot: slot}
}

// MarkOutOfRange builds the error for a question mark beyond its cap.
func MarkOutOfRange(slot int, mark float64) *GridError {
	return &GridError{Kind: GridMarkOutOfRange, Group: groupOf(slot), Slot: slot, Mark: mark}
}

// TagMismatch builds the error for a question tagged differently from the layout.
func TagMismatch(slot int) *GridError {
	return &GridError{Kind: GridTagMismatch, Group: groupOf(slot), Slot: slot}
}

// UnknownOutcomeError is returned when a mapping references a code absent from the catalog.
type UnknownOutcomeError struct {
	Kind models.OutcomeKind
	Code string
}

func (e *UnknownOutcomeError) Error() string {
	return fmt.Sprintf("unknown %s outcome %q", e.Kind, e.Code)
}

// AggregationInputError marks a record that cannot contribute to aggregation.
type AggregationInputError struct {
	StudentID    string
	AssessmentID string
	Reason       string
}

func (e *AggregationInputError) Error() string {
	return fmt.Sprintf("record %s/%s skipped: %s", e.StudentID, e.AssessmentID, e.Reason)
}

// DuplicateRecordError reports two records for the same (student, assessment) pair.
type DuplicateRecordError struct {
	StudentID    string
	AssessmentID string
}

func (e *DuplicateRecordError) Error() string {
	return fmt.Sprintf("duplicate record for student %s on assessment %s", e.StudentID, e.AssessmentID)
}

// RecordError ties a per-record failure to its position in a batch.
type RecordError struct {
	Index        int
	StudentID    string
	AssessmentID string
	Err          error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d (%s/%s): %v", e.Index, e.StudentID, e.AssessmentID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
