package attainment

import (
	"math"
	"sort"

	"github.com/noah-isme/obe-attainment-api/internal/models"
)

// scoreTolerance absorbs float rounding when a full mark is weighted.
const scoreTolerance = 1e-9

type outcomeTally struct {
	name       string
	scores     []float64
	weightages []float64
}

// OutcomeAccumulator sums weighted scores per outcome. Accumulators built over disjoint
// record sets can be merged without changing the result.
type OutcomeAccumulator struct {
	tallies map[models.OutcomeKey]*outcomeTally
}

// NewOutcomeAccumulator returns an empty accumulator.
func NewOutcomeAccumulator() *OutcomeAccumulator {
	return &OutcomeAccumulator{tallies: make(map[models.OutcomeKey]*outcomeTally)}
}

func (a *OutcomeAccumulator) tally(key models.OutcomeKey) *outcomeTally {
	t, ok := a.tallies[key]
	if !ok {
		t = &outcomeTally{}
		a.tallies[key] = t
	}
	return t
}

// Expect registers an outcome that must be reported even when nothing contributes to it.
func (a *OutcomeAccumulator) Expect(key models.OutcomeKey, name string) {
	key.Code = models.NormalizeCode(key.Code)
	t := a.tally(key)
	if t.name == "" {
		t.name = name
	}
}

// Add records one weighted score.
func (a *OutcomeAccumulator) Add(score models.OutcomeScore) {
	key := models.OutcomeKey{Kind: score.Kind, Code: models.NormalizeCode(score.Code)}
	t := a.tally(key)
	if t.name == "" {
		t.name = score.Name
	}
	t.scores = append(t.scores, score.Score)
	t.weightages = append(t.weightages, score.Weightage)
}

// Merge folds other into a.
func (a *OutcomeAccumulator) Merge(other *OutcomeAccumulator) {
	if other == nil {
		return
	}
	for key, src := range other.tallies {
		t := a.tally(key)
		if t.name == "" {
			t.name = src.name
		}
		t.scores = append(t.scores, src.scores...)
		t.weightages = append(t.weightages, src.weightages...)
	}
}

// Reports renders one report per outcome, sorted by kind then code.
func (a *OutcomeAccumulator) Reports(classifier Classifier) []models.CohortOutcomeReport {
	if classifier == nil {
		classifier = CohortSummaryClassifier{Scale: ScaleLegacy}
	}
	keys := make([]models.OutcomeKey, 0, len(a.tallies))
	for key := range a.tallies {
		keys = append(keys, key)
	}
	sortKeys(keys)

	reports := make([]models.CohortOutcomeReport, 0, len(keys))
	for _, key := range keys {
		t := a.tallies[key]
		count := len(t.scores)
		report := models.CohortOutcomeReport{
			OutcomeKind:     key.Kind,
			OutcomeCode:     key.Code,
			OutcomeName:     t.name,
			TotalScore:      stableSum(t.scores),
			AssessmentCount: count,
			WeightageTotal:  stableSum(t.weightages),
		}
		if count > 0 {
			report.AverageScore = report.TotalScore / float64(count)
			report.MeanWeightage = report.WeightageTotal / float64(count)
		}
		report.Level = classifier.Classify(
			models.OutcomeDefinition{Code: key.Code, Name: t.name, Kind: key.Kind},
			WeightedScore{Value: report.AverageScore, Ceiling: report.MeanWeightage},
		)
		reports = append(reports, report)
	}
	return reports
}

// AggregateStudent builds a student's per-outcome report. Every expected outcome is
// reported, with AssessmentCount 0 when no record covers it. Malformed records are
// skipped and listed; a second record for the same assessment is a caller error.
func AggregateStudent(studentID string, records []models.StudentAssessmentRecord, expected []models.OutcomeKey, classifier Classifier) (models.StudentAttainment, error) {
	acc, skipped, err := accumulateStudent(studentID, records)
	if err != nil {
		return models.StudentAttainment{}, err
	}
	for _, key := range expected {
		acc.Expect(key, "")
	}
	return models.StudentAttainment{
		StudentID: studentID,
		Outcomes:  acc.Reports(classifier),
		Skipped:   skipped,
	}, nil
}

// AccumulateStudent folds a student's records into an accumulator without rendering.
func AccumulateStudent(studentID string, records []models.StudentAssessmentRecord) (*OutcomeAccumulator, []models.SkippedRecord, error) {
	return accumulateStudent(studentID, records)
}

func accumulateStudent(studentID string, records []models.StudentAssessmentRecord) (*OutcomeAccumulator, []models.SkippedRecord, error) {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r.StudentID != studentID {
			continue
		}
		if _, dup := seen[r.AssessmentID]; dup {
			return nil, nil, &DuplicateRecordError{StudentID: studentID, AssessmentID: r.AssessmentID}
		}
		seen[r.AssessmentID] = struct{}{}
	}

	acc := NewOutcomeAccumulator()
	var skipped []models.SkippedRecord
	for _, r := range records {
		if err := checkRecord(studentID, r); err != nil {
			skipped = append(skipped, models.SkippedRecord{
				StudentID:    err.StudentID,
				AssessmentID: err.AssessmentID,
				Reason:       err.Reason,
			})
			continue
		}
		for _, score := range r.Scores() {
			acc.Add(score)
		}
	}
	return acc, skipped, nil
}

func checkRecord(studentID string, r models.StudentAssessmentRecord) *AggregationInputError {
	fail := func(reason string) *AggregationInputError {
		return &AggregationInputError{StudentID: r.StudentID, AssessmentID: r.AssessmentID, Reason: reason}
	}
	if r.StudentID != studentID {
		return fail("record belongs to another student")
	}
	if r.AssessmentID == "" {
		return fail("missing assessment id")
	}
	scores := r.Scores()
	if len(scores) == 0 {
		return fail("record has no outcome scores")
	}
	for _, s := range scores {
		switch {
		case !s.Kind.Valid():
			return fail("outcome score has unknown kind")
		case models.NormalizeCode(s.Code) == "":
			return fail("outcome score missing code")
		case math.IsNaN(s.Score) || math.IsInf(s.Score, 0) || s.Score < 0:
			return fail("outcome score is not a finite non-negative number")
		case !(s.Weightage > 0):
			return fail("outcome score missing weightage")
		case s.Score > s.Weightage+scoreTolerance:
			return fail("outcome score exceeds its weightage")
		}
	}
	return nil
}

// MergeStudentReports combines reports computed over disjoint record partitions of one
// student.
func MergeStudentReports(classifier Classifier, parts ...[]models.CohortOutcomeReport) []models.CohortOutcomeReport {
	type merged struct {
		name   string
		total  float64
		count  int
		weight float64
	}
	byKey := make(map[models.OutcomeKey]*merged)
	for _, part := range parts {
		for _, r := range part {
			m, ok := byKey[r.Key()]
			if !ok {
				m = &merged{}
				byKey[r.Key()] = m
			}
			if m.name == "" {
				m.name = r.OutcomeName
			}
			m.total += r.TotalScore
			m.count += r.AssessmentCount
			m.weight += r.WeightageTotal
		}
	}
	if classifier == nil {
		classifier = CohortSummaryClassifier{Scale: ScaleLegacy}
	}
	keys := make([]models.OutcomeKey, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sortKeys(keys)

	out := make([]models.CohortOutcomeReport, 0, len(keys))
	for _, key := range keys {
		m := byKey[key]
		r := models.CohortOutcomeReport{
			OutcomeKind:     key.Kind,
			OutcomeCode:     key.Code,
			OutcomeName:     m.name,
			TotalScore:      m.total,
			AssessmentCount: m.count,
			WeightageTotal:  m.weight,
		}
		if m.count > 0 {
			r.AverageScore = m.total / float64(m.count)
			r.MeanWeightage = m.weight / float64(m.count)
		}
		r.Level = classifier.Classify(
			models.OutcomeDefinition{Code: key.Code, Name: m.name, Kind: key.Kind},
			WeightedScore{Value: r.AverageScore, Ceiling: r.MeanWeightage},
		)
		out = append(out, r)
	}
	return out
}

// AggregateCohort summarises per-student reports per outcome. Only students with at
// least one contributing assessment enter the mean; students reporting the outcome with
// no coverage are counted as uncovered.
func AggregateCohort(studentReports [][]models.CohortOutcomeReport, classifier Classifier) []models.CohortOutcomeSummary {
	if classifier == nil {
		classifier = CohortSummaryClassifier{Scale: ScaleLegacy}
	}
	type cohortTally struct {
		name        string
		averages    []float64
		uncovered   int
		assessments int
		weightages  []float64
	}
	tallies := make(map[models.OutcomeKey]*cohortTally)
	for _, reports := range studentReports {
		for _, r := range reports {
			t, ok := tallies[r.Key()]
			if !ok {
				t = &cohortTally{}
				tallies[r.Key()] = t
			}
			if t.name == "" {
				t.name = r.OutcomeName
			}
			if r.AssessmentCount == 0 {
				t.uncovered++
				continue
			}
			t.averages = append(t.averages, r.AverageScore)
			t.assessments += r.AssessmentCount
			t.weightages = append(t.weightages, r.WeightageTotal)
		}
	}

	keys := make([]models.OutcomeKey, 0, len(tallies))
	for key := range tallies {
		keys = append(keys, key)
	}
	sortKeys(keys)

	summaries := make([]models.CohortOutcomeSummary, 0, len(keys))
	for _, key := range keys {
		t := tallies[key]
		s := models.CohortOutcomeSummary{
			OutcomeKind:       key.Kind,
			OutcomeCode:       key.Code,
			OutcomeName:       t.name,
			StudentCount:      len(t.averages),
			UncoveredStudents: t.uncovered,
			AssessmentCount:   t.assessments,
		}
		if s.StudentCount > 0 {
			s.MeanAverageScore = stableSum(t.averages) / float64(s.StudentCount)
		}
		if t.assessments > 0 {
			s.MeanWeightage = stableSum(t.weightages) / float64(t.assessments)
		}
		if s.MeanWeightage > 0 {
			s.NormalizedAchievementPercent = s.MeanAverageScore / s.MeanWeightage * 100
		}
		s.Level = classifier.Classify(
			models.OutcomeDefinition{Code: key.Code, Name: t.name, Kind: key.Kind},
			WeightedScore{Value: s.MeanAverageScore, Ceiling: s.MeanWeightage},
		)
		summaries = append(summaries, s)
	}
	return summaries
}

func sortKeys(keys []models.OutcomeKey) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
}

// stableSum adds values in ascending order so the result does not depend on input order.
func stableSum(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	total := 0.0
	for _, v := range sorted {
		total += v
	}
	return total
}
