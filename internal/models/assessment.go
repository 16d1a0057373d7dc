package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// AssessmentType enumerates the kinds of assessment a course can declare.
type AssessmentType string

const (
	AssessmentQuiz         AssessmentType = "Quiz"
	AssessmentAssignment   AssessmentType = "Assignment"
	AssessmentMidTerm      AssessmentType = "Mid-Term"
	AssessmentEndTerm      AssessmentType = "End-Term"
	AssessmentProject      AssessmentType = "Project"
	AssessmentLab          AssessmentType = "Lab"
	AssessmentPresentation AssessmentType = "Presentation"
	AssessmentAttendance   AssessmentType = "Attendance"
)

// EndTermMaxMarks is the fixed maximum of an End-Term paper.
const EndTermMaxMarks = 50.0

// EndTermQuestionCount is the number of questions on an End-Term paper.
const EndTermQuestionCount = 9

// Valid reports whether t is a known assessment type.
func (t AssessmentType) Valid() bool {
	switch t {
	case AssessmentQuiz, AssessmentAssignment, AssessmentMidTerm, AssessmentEndTerm,
		AssessmentProject, AssessmentLab, AssessmentPresentation, AssessmentAttendance:
		return true
	}
	return false
}

// OutcomeMapping attaches a weighted outcome to an assessment. Weightages of sibling
// mappings are independent and need not sum to 100.
type OutcomeMapping struct {
	OutcomeCode string  `db:"outcome_code" json:"outcome_code" validate:"required"`
	OutcomeName string  `db:"outcome_name" json:"outcome_name"`
	Weightage   float64 `db:"weightage" json:"weightage" validate:"gt=0,lte=100"`
}

// COPayload is the sealed variant carrying an assessment's course-outcome shape:
// FlatCOMappings for every type except End-Term, *EndTermStructure for End-Term.
type COPayload interface {
	coPayload()
	// COMappings lists the course outcomes the payload reports on.
	COMappings() []OutcomeMapping
}

// FlatCOMappings is the plain list of CO mappings.
type FlatCOMappings []OutcomeMapping

func (FlatCOMappings) coPayload() {}

// COMappings implements COPayload.
func (m FlatCOMappings) COMappings() []OutcomeMapping { return m }

// EndTermStructure carries the course outcomes an End-Term paper reports on. When
// QuestionTags is set it fixes the CO tags of every question for all students; without
// it each answer grid carries its own tags.
type EndTermStructure struct {
	COs          []OutcomeMapping `json:"co_mappings"`
	QuestionTags [][]string       `json:"question_tags,omitempty"`
}

func (*EndTermStructure) coPayload() {}

// COMappings implements COPayload.
func (s *EndTermStructure) COMappings() []OutcomeMapping {
	if s == nil {
		return nil
	}
	return s.COs
}

// COCodes returns the tagged CO codes in declaration order.
func (s *EndTermStructure) COCodes() []string {
	codes := make([]string, 0, len(s.COMappings()))
	for _, m := range s.COMappings() {
		codes = append(codes, m.OutcomeCode)
	}
	return codes
}

// HasTagLayout reports whether the structure pins per-question CO tags.
func (s *EndTermStructure) HasTagLayout() bool {
	return s != nil && len(s.QuestionTags) > 0
}

// ValidateTagLayout checks that a pinned layout covers every question and only tags
// declared course outcomes.
func (s *EndTermStructure) ValidateTagLayout() error {
	if !s.HasTagLayout() {
		return nil
	}
	if len(s.QuestionTags) != EndTermQuestionCount {
		return fmt.Errorf("question tag layout has %d entries, want %d", len(s.QuestionTags), EndTermQuestionCount)
	}
	declared := make(map[string]struct{}, len(s.COs))
	for _, m := range s.COs {
		declared[NormalizeCode(m.OutcomeCode)] = struct{}{}
	}
	for q, tags := range s.QuestionTags {
		for _, tag := range tags {
			if _, ok := declared[NormalizeCode(tag)]; !ok {
				return fmt.Errorf("question %d is tagged with undeclared CO %q", q+1, tag)
			}
		}
	}
	return nil
}

// Assessment is a graded activity of a course with its outcome mappings.
type Assessment struct {
	ID         string           `json:"id"`
	CourseID   string           `json:"course_id"`
	Title      string           `json:"title"`
	Type       AssessmentType   `json:"type"`
	MaxMarks   float64          `json:"max_marks"`
	Weightage  float64          `json:"weightage"`
	GAMappings []OutcomeMapping `json:"ga_mappings"`
	POMappings []OutcomeMapping `json:"po_mappings"`
	CO         COPayload        `json:"-"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// MappingSet is the read model returned for an assessment's mappings.
type MappingSet struct {
	GAMappings       []OutcomeMapping  `json:"ga_mappings"`
	COMappings       []OutcomeMapping  `json:"co_mappings,omitempty"`
	POMappings       []OutcomeMapping  `json:"po_mappings"`
	EndTermStructure *EndTermStructure `json:"end_term_structure,omitempty"`
}

// EndTerm returns the End-Term structure when a carries one.
func (a Assessment) EndTerm() (*EndTermStructure, bool) {
	s, ok := a.CO.(*EndTermStructure)
	return s, ok && s != nil
}

// MappingsOf returns the mappings declared for kind.
func (a Assessment) MappingsOf(kind OutcomeKind) []OutcomeMapping {
	switch kind {
	case OutcomeKindGA:
		return a.GAMappings
	case OutcomeKindPO:
		return a.POMappings
	case OutcomeKindCO:
		if a.CO == nil {
			return nil
		}
		return a.CO.COMappings()
	}
	return nil
}

// MappingSet projects the assessment onto its mapping read model.
func (a Assessment) MappingSet() MappingSet {
	set := MappingSet{GAMappings: a.GAMappings, POMappings: a.POMappings}
	if s, ok := a.EndTerm(); ok {
		set.EndTermStructure = s
	} else {
		set.COMappings = a.MappingsOf(OutcomeKindCO)
	}
	return set
}

// OutcomeKeys lists every outcome the assessment maps onto.
func (a Assessment) OutcomeKeys() []OutcomeKey {
	var keys []OutcomeKey
	for _, kind := range OutcomeKinds {
		for _, m := range a.MappingsOf(kind) {
			keys = append(keys, OutcomeKey{Kind: kind, Code: m.OutcomeCode})
		}
	}
	return keys
}

// MappingCount is the number of mappings across all kinds.
func (a Assessment) MappingCount() int {
	return len(a.GAMappings) + len(a.POMappings) + len(a.MappingsOf(OutcomeKindCO))
}

// Validate checks structural invariants of the assessment.
func (a Assessment) Validate() error {
	if !a.Type.Valid() {
		return fmt.Errorf("unknown assessment type %q", a.Type)
	}
	if a.MaxMarks <= 0 {
		return errors.New("max marks must be positive")
	}
	_, isEndTerm := a.CO.(*EndTermStructure)
	if a.Type == AssessmentEndTerm {
		if !isEndTerm {
			return errors.New("end-term assessment requires an end-term structure")
		}
		if a.MaxMarks != EndTermMaxMarks {
			return fmt.Errorf("end-term assessment max marks must be %v", EndTermMaxMarks)
		}
		structure, _ := a.EndTerm()
		if err := structure.ValidateTagLayout(); err != nil {
			return err
		}
	} else if isEndTerm {
		return fmt.Errorf("%s assessment cannot carry an end-term structure", a.Type)
	}
	for _, kind := range OutcomeKinds {
		if err := ValidateMappings(kind, a.MappingsOf(kind)); err != nil {
			return err
		}
	}
	return nil
}

// ValidateMappings checks weightage bounds and per-kind code uniqueness.
func ValidateMappings(kind OutcomeKind, mappings []OutcomeMapping) error {
	seen := make(map[string]struct{}, len(mappings))
	for _, m := range mappings {
		code := NormalizeCode(m.OutcomeCode)
		if code == "" {
			return fmt.Errorf("%s mapping requires an outcome code", kind)
		}
		if m.Weightage <= 0 || m.Weightage > 100 {
			return fmt.Errorf("%s mapping %s weightage %v outside (0,100]", kind, code, m.Weightage)
		}
		if _, ok := seen[code]; ok {
			return fmt.Errorf("duplicate %s mapping %s", kind, code)
		}
		seen[code] = struct{}{}
	}
	return nil
}

type assessmentJSON struct {
	ID               string            `json:"id"`
	CourseID         string            `json:"course_id"`
	Title            string            `json:"title"`
	Type             AssessmentType    `json:"type"`
	MaxMarks         float64           `json:"max_marks"`
	Weightage        float64           `json:"weightage"`
	GAMappings       []OutcomeMapping  `json:"ga_mappings"`
	COMappings       []OutcomeMapping  `json:"co_mappings,omitempty"`
	POMappings       []OutcomeMapping  `json:"po_mappings"`
	EndTermStructure *EndTermStructure `json:"end_term_structure,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// MarshalJSON emits either co_mappings or end_term_structure depending on the variant.
func (a Assessment) MarshalJSON() ([]byte, error) {
	set := a.MappingSet()
	return json.Marshal(assessmentJSON{
		ID:               a.ID,
		CourseID:         a.CourseID,
		Title:            a.Title,
		Type:             a.Type,
		MaxMarks:         a.MaxMarks,
		Weightage:        a.Weightage,
		GAMappings:       a.GAMappings,
		COMappings:       set.COMappings,
		POMappings:       a.POMappings,
		EndTermStructure: set.EndTermStructure,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	})
}

// UnmarshalJSON picks the CO variant from the assessment type.
func (a *Assessment) UnmarshalJSON(data []byte) error {
	var raw assessmentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = Assessment{
		ID:         raw.ID,
		CourseID:   raw.CourseID,
		Title:      raw.Title,
		Type:       raw.Type,
		MaxMarks:   raw.MaxMarks,
		Weightage:  raw.Weightage,
		GAMappings: raw.GAMappings,
		POMappings: raw.POMappings,
		CreatedAt:  raw.CreatedAt,
		UpdatedAt:  raw.UpdatedAt,
	}
	if raw.Type == AssessmentEndTerm {
		if len(raw.COMappings) > 0 {
			return errors.New("end-term assessment carries co mappings inside end_term_structure")
		}
		structure := raw.EndTermStructure
		if structure == nil {
			structure = &EndTermStructure{}
		}
		a.CO = structure
		return nil
	}
	if raw.EndTermStructure != nil {
		return fmt.Errorf("%s assessment cannot carry an end-term structure", raw.Type)
	}
	a.CO = FlatCOMappings(raw.COMappings)
	return nil
}

// AssessmentFilter scopes assessment listings.
type AssessmentFilter struct {
	CourseID string
	IDs      []string
	Type     AssessmentType
}
