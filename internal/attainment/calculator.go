package attainment

import (
	"math"

	"github.com/noah-isme/obe-attainment-api/internal/models"
)

// ValidateMark rejects marks outside [0, maxMarks] and non-positive maxima. Marks are
// never clamped.
func ValidateMark(marks, maxMarks float64) error {
	if !(maxMarks > 0) || math.IsInf(maxMarks, 0) {
		return &InvalidMarkError{Marks: marks, MaxMarks: maxMarks}
	}
	if math.IsNaN(marks) || marks < 0 || marks > maxMarks {
		return &InvalidMarkError{Marks: marks, MaxMarks: maxMarks}
	}
	return nil
}

// ComputeOutcomeScores turns a raw mark into one weighted score per mapping. Each score
// is percentage*weightage/100, so it is bounded by the mapping's weightage.
func ComputeOutcomeScores(kind models.OutcomeKind, marks, maxMarks float64, mappings []models.OutcomeMapping, catalog Catalog, classifier Classifier) ([]models.OutcomeScore, error) {
	if err := ValidateMark(marks, maxMarks); err != nil {
		return nil, err
	}
	if classifier == nil {
		classifier = PerRecordClassifier{Scale: ScaleLegacy}
	}
	percentage := PercentageOf(marks, maxMarks)
	scores := make([]models.OutcomeScore, 0, len(mappings))
	for _, m := range mappings {
		code := models.NormalizeCode(m.OutcomeCode)
		def, err := lookup(catalog, kind, code)
		if err != nil {
			return nil, err
		}
		weighted := Weight(percentage, m.Weightage)
		name := m.OutcomeName
		if name == "" {
			name = def.Name
		}
		scores = append(scores, models.OutcomeScore{
			Kind:       kind,
			Code:       code,
			Name:       name,
			Score:      weighted.Value,
			Weightage:  m.Weightage,
			Percentage: float64(percentage),
			Level:      classifier.Classify(def, weighted),
		})
	}
	return scores, nil
}
