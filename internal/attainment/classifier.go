package attainment

import "github.com/noah-isme/obe-attainment-api/internal/models"

// Cohort summary thresholds on the 0-100 axis.
const (
	AdvancedThreshold     = 80.0
	IntermediateThreshold = 60.0
)

// Classifier assigns a proficiency level to a weighted score of an outcome.
type Classifier interface {
	Classify(def models.OutcomeDefinition, score WeightedScore) models.ProficiencyLevel
}

// PerRecordClassifier classifies against the outcome's own proficiency bands.
type PerRecordClassifier struct {
	Scale Scale
}

// Classify implements Classifier.
func (c PerRecordClassifier) Classify(def models.OutcomeDefinition, score WeightedScore) models.ProficiencyLevel {
	return ClassifyBands(def.EffectiveBands(), score.Percentage(c.Scale))
}

// CohortSummaryClassifier applies the fixed 80/60 thresholds used by summary reports.
type CohortSummaryClassifier struct {
	Scale Scale
}

// Classify implements Classifier. The definition is ignored.
func (c CohortSummaryClassifier) Classify(_ models.OutcomeDefinition, score WeightedScore) models.ProficiencyLevel {
	return ClassifyThresholds(score.Percentage(c.Scale))
}

// ClassifyBands picks the band containing p. Bands are scanned in ascending order so a
// value on a shared endpoint resolves to the lower band; a value inside an authoring gap
// resolves to the band below the gap. Values outside the covered range take the nearest
// edge band.
func ClassifyBands(bands []models.ProficiencyBand, p Percentage) models.ProficiencyLevel {
	if len(bands) == 0 {
		return ClassifyThresholds(p)
	}
	sorted := SortBands(bands)
	score := float64(p)
	if score <= sorted[0].Min {
		return sorted[0].Level
	}
	for _, b := range sorted {
		if b.Contains(score) {
			return b.Level
		}
	}
	level := sorted[0].Level
	for _, b := range sorted {
		if b.Max < score {
			level = b.Level
		}
	}
	return level
}

// ClassifyThresholds applies >=80 Advanced, >=60 Intermediate, otherwise Introductory.
func ClassifyThresholds(p Percentage) models.ProficiencyLevel {
	switch {
	case float64(p) >= AdvancedThreshold:
		return models.LevelAdvanced
	case float64(p) >= IntermediateThreshold:
		return models.LevelIntermediate
	default:
		return models.LevelIntroductory
	}
}
