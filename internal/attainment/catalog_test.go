package attainment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/obe-attainment-api/internal/models"
)

func TestValidateBands(t *testing.T) {
	band := func(level models.ProficiencyLevel, min, max float64) models.ProficiencyBand {
		return models.ProficiencyBand{Level: level, Min: min, Max: max}
	}
	cases := []struct {
		name    string
		bands   []models.ProficiencyBand
		wantErr bool
	}{
		{"defaults", models.DefaultBands(), false},
		{"integer authored", []models.ProficiencyBand{
			band(models.LevelIntroductory, 0, 40),
			band(models.LevelIntermediate, 41, 70),
			band(models.LevelAdvanced, 71, 100),
		}, false},
		{"unsorted input", []models.ProficiencyBand{
			band(models.LevelAdvanced, 80, 100),
			band(models.LevelIntroductory, 0, 60),
			band(models.LevelIntermediate, 60, 80),
		}, false},
		{"empty", nil, true},
		{"overlap", []models.ProficiencyBand{
			band(models.LevelIntroductory, 0, 65),
			band(models.LevelIntermediate, 60, 80),
			band(models.LevelAdvanced, 80, 100),
		}, true},
		{"wide gap", []models.ProficiencyBand{
			band(models.LevelIntroductory, 0, 50),
			band(models.LevelIntermediate, 60, 80),
			band(models.LevelAdvanced, 80, 100),
		}, true},
		{"does not start at zero", []models.ProficiencyBand{
			band(models.LevelIntroductory, 1, 60),
			band(models.LevelIntermediate, 60, 80),
			band(models.LevelAdvanced, 80, 100),
		}, true},
		{"does not reach 100", []models.ProficiencyBand{
			band(models.LevelIntroductory, 0, 60),
			band(models.LevelIntermediate, 60, 80),
			band(models.LevelAdvanced, 80, 99),
		}, true},
		{"inverted", []models.ProficiencyBand{
			band(models.LevelIntroductory, 0, 60),
			band(models.LevelIntermediate, 80, 60),
			band(models.LevelAdvanced, 80, 100),
		}, true},
		{"duplicate level", []models.ProficiencyBand{
			band(models.LevelIntroductory, 0, 60),
			band(models.LevelIntroductory, 60, 100),
		}, true},
		{"missing level", []models.ProficiencyBand{
			band("", 0, 100),
		}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateBands(tc.bands)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestStaticCatalogNormalisesCodes(t *testing.T) {
	catalog := NewStaticCatalog(models.OutcomeDefinition{Code: " co1 ", Kind: models.OutcomeKindCO})
	def, ok := catalog.Definition("CO1")
	require.True(t, ok)
	assert.Equal(t, models.OutcomeKindCO, def.Kind)

	_, err := lookup(nil, models.OutcomeKindCO, "CO1")
	assert.Error(t, err)
}
