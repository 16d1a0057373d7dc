package attainment

import "github.com/noah-isme/obe-attainment-api/internal/models"

// Submission is the raw input for one student on one assessment. Marks is used for flat
// assessments, Grid for End-Term papers.
type Submission struct {
	StudentID    string
	AssessmentID string
	Marks        *float64
	Grid         []models.QuestionSlot

	// retag lets a pinned tag layout overwrite stored tags instead of rejecting them.
	retag bool
}

// ScoreAssessment computes every GA, CO and PO score of a submission. The returned record
// carries no ID or submission time; the caller stamps those when persisting.
func ScoreAssessment(a models.Assessment, sub Submission, catalog Catalog, classifier Classifier) (models.StudentAssessmentRecord, error) {
	if a.MappingCount() == 0 {
		return models.StudentAssessmentRecord{}, ErrNoMappings
	}
	record := models.StudentAssessmentRecord{
		StudentID:      sub.StudentID,
		AssessmentID:   a.ID,
		CourseID:       a.CourseID,
		AssessmentType: a.Type,
		MaxMarks:       a.MaxMarks,
	}
	if record.AssessmentID == "" {
		record.AssessmentID = sub.AssessmentID
	}

	if structure, ok := a.EndTerm(); ok {
		return scoreEndTerm(a, structure, sub, record, catalog, classifier)
	}
	if sub.Grid != nil {
		return models.StudentAssessmentRecord{}, ErrUnexpectedGrid
	}
	if sub.Marks == nil {
		return models.StudentAssessmentRecord{}, ErrMarksRequired
	}
	marks := *sub.Marks
	if err := ValidateMark(marks, a.MaxMarks); err != nil {
		return models.StudentAssessmentRecord{}, err
	}
	record.MarksObtained = marks

	var err error
	if record.GAScores, err = ComputeOutcomeScores(models.OutcomeKindGA, marks, a.MaxMarks, a.GAMappings, catalog, classifier); err != nil {
		return models.StudentAssessmentRecord{}, err
	}
	if record.COScores, err = ComputeOutcomeScores(models.OutcomeKindCO, marks, a.MaxMarks, a.MappingsOf(models.OutcomeKindCO), catalog, classifier); err != nil {
		return models.StudentAssessmentRecord{}, err
	}
	if record.POScores, err = ComputeOutcomeScores(models.OutcomeKindPO, marks, a.MaxMarks, a.POMappings, catalog, classifier); err != nil {
		return models.StudentAssessmentRecord{}, err
	}
	return record, nil
}

func scoreEndTerm(a models.Assessment, structure *models.EndTermStructure, sub Submission, record models.StudentAssessmentRecord, catalog Catalog, classifier Classifier) (models.StudentAssessmentRecord, error) {
	if sub.Marks != nil {
		return models.StudentAssessmentRecord{}, ErrUnexpectedMarks
	}
	if len(sub.Grid) == 0 {
		return models.StudentAssessmentRecord{}, ErrGridRequired
	}
	if err := ValidateGrid(sub.Grid); err != nil {
		return models.StudentAssessmentRecord{}, err
	}
	grid := sub.Grid
	if structure.HasTagLayout() {
		var err error
		if grid, err = ApplyTagLayout(grid, structure.QuestionTags, !sub.retag); err != nil {
			return models.StudentAssessmentRecord{}, err
		}
	}
	total := GridTotal(grid)
	record.MarksObtained = total
	record.MaxMarks = models.EndTermMaxMarks
	record.Grid = grid

	var err error
	if record.GAScores, err = ComputeOutcomeScores(models.OutcomeKindGA, total, models.EndTermMaxMarks, a.GAMappings, catalog, classifier); err != nil {
		return models.StudentAssessmentRecord{}, err
	}
	if record.POScores, err = ComputeOutcomeScores(models.OutcomeKindPO, total, models.EndTermMaxMarks, a.POMappings, catalog, classifier); err != nil {
		return models.StudentAssessmentRecord{}, err
	}

	breakdown := COBreakdown(grid)
	attainable := COAttainable(grid)
	record.COScores = make([]models.OutcomeScore, 0, len(a.MappingsOf(models.OutcomeKindCO)))
	for _, m := range a.MappingsOf(models.OutcomeKindCO) {
		code := models.NormalizeCode(m.OutcomeCode)
		if _, err := lookup(catalog, models.OutcomeKindCO, code); err != nil {
			return models.StudentAssessmentRecord{}, err
		}
		// A CO no attempted question exercises has nothing to score against.
		attainableMarks := attainable[code]
		if attainableMarks <= 0 {
			continue
		}
		scores, err := ComputeOutcomeScores(models.OutcomeKindCO, breakdown[code], attainableMarks, []models.OutcomeMapping{m}, catalog, classifier)
		if err != nil {
			return models.StudentAssessmentRecord{}, err
		}
		record.COScores = append(record.COScores, scores...)
	}
	return record, nil
}

// RescoreRecord recomputes a stored record against the current mappings of a, keeping
// identity and submission time. End-Term grids are retagged to the current tag layout.
func RescoreRecord(a models.Assessment, stored models.StudentAssessmentRecord, catalog Catalog, classifier Classifier) (models.StudentAssessmentRecord, error) {
	sub := Submission{StudentID: stored.StudentID, AssessmentID: stored.AssessmentID, retag: true}
	if _, ok := a.EndTerm(); ok {
		sub.Grid = stored.Grid
	} else {
		marks := stored.MarksObtained
		sub.Marks = &marks
	}
	record, err := ScoreAssessment(a, sub, catalog, classifier)
	if err != nil {
		return models.StudentAssessmentRecord{}, err
	}
	record.ID = stored.ID
	record.SubmittedAt = stored.SubmittedAt
	return record, nil
}
