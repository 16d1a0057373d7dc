package attainment

import "github.com/noah-isme/obe-attainment-api/internal/models"

func f(v float64) *float64 { return &v }

func testCatalog() StaticCatalog {
	return NewStaticCatalog(
		models.OutcomeDefinition{Code: "GA1", Name: "Engineering knowledge", Kind: models.OutcomeKindGA},
		models.OutcomeDefinition{Code: "GA2", Name: "Problem analysis", Kind: models.OutcomeKindGA, Bands: []models.ProficiencyBand{
			{Level: models.LevelIntroductory, Min: 0, Max: 40},
			{Level: models.LevelIntermediate, Min: 41, Max: 70},
			{Level: models.LevelAdvanced, Min: 70, Max: 100},
		}},
		models.OutcomeDefinition{Code: "CO1", Name: "Apply recursion", Kind: models.OutcomeKindCO},
		models.OutcomeDefinition{Code: "CO2", Name: "Analyse complexity", Kind: models.OutcomeKindCO},
		models.OutcomeDefinition{Code: "PO1", Name: "Design solutions", Kind: models.OutcomeKindPO},
	)
}

func quiz(id string, co ...models.OutcomeMapping) models.Assessment {
	return models.Assessment{
		ID:       id,
		CourseID: "CS101",
		Title:    "Quiz " + id,
		Type:     models.AssessmentQuiz,
		MaxMarks: 100,
		CO:       models.FlatCOMappings(co),
	}
}

func endTerm(id string, ga []models.OutcomeMapping, co ...models.OutcomeMapping) models.Assessment {
	return models.Assessment{
		ID:         id,
		CourseID:   "CS101",
		Title:      "End-Term",
		Type:       models.AssessmentEndTerm,
		MaxMarks:   models.EndTermMaxMarks,
		GAMappings: ga,
		CO:         &models.EndTermStructure{COs: co},
	}
}

func mapping(code string, weightage float64) models.OutcomeMapping {
	return models.OutcomeMapping{OutcomeCode: code, Weightage: weightage}
}
