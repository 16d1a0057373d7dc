package attainment

import (
	"fmt"
	"sort"

	"github.com/noah-isme/obe-attainment-api/internal/models"
)

// maxBandGap is the widest hole allowed between adjacent bands, so integer-authored
// ranges such as 0-40 and 41-70 are accepted.
const maxBandGap = 1.0

// Catalog resolves outcome definitions by code.
type Catalog interface {
	Definition(code string) (models.OutcomeDefinition, bool)
}

// StaticCatalog is an in-memory Catalog keyed by normalised code.
type StaticCatalog map[string]models.OutcomeDefinition

// NewStaticCatalog indexes defs by code.
func NewStaticCatalog(defs ...models.OutcomeDefinition) StaticCatalog {
	c := make(StaticCatalog, len(defs))
	for _, def := range defs {
		c[models.NormalizeCode(def.Code)] = def
	}
	return c
}

// Definition implements Catalog.
func (c StaticCatalog) Definition(code string) (models.OutcomeDefinition, bool) {
	def, ok := c[models.NormalizeCode(code)]
	return def, ok
}

// lookup resolves code for kind. A definition of another kind counts as unknown.
func lookup(catalog Catalog, kind models.OutcomeKind, code string) (models.OutcomeDefinition, error) {
	if catalog == nil {
		return models.OutcomeDefinition{}, &UnknownOutcomeError{Kind: kind, Code: code}
	}
	def, ok := catalog.Definition(code)
	if !ok || (def.Kind != "" && def.Kind != kind) {
		return models.OutcomeDefinition{}, &UnknownOutcomeError{Kind: kind, Code: code}
	}
	return def, nil
}

// SortBands returns a copy of bands ordered by Min then Max.
func SortBands(bands []models.ProficiencyBand) []models.ProficiencyBand {
	sorted := append([]models.ProficiencyBand(nil), bands...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Min != sorted[j].Min {
			return sorted[i].Min < sorted[j].Min
		}
		return sorted[i].Max < sorted[j].Max
	})
	return sorted
}

// ValidateBands checks that bands cover [0,100] in order. Adjacent bands may share an
// endpoint or leave a gap of at most one point; anything wider or overlapping is rejected.
func ValidateBands(bands []models.ProficiencyBand) error {
	if len(bands) == 0 {
		return fmt.Errorf("at least one band required")
	}
	sorted := SortBands(bands)
	levels := make(map[models.ProficiencyLevel]struct{}, len(sorted))
	for i, b := range sorted {
		if b.Level == "" {
			return fmt.Errorf("band %d has no level", i)
		}
		if _, dup := levels[b.Level]; dup {
			return fmt.Errorf("level %s declared twice", b.Level)
		}
		levels[b.Level] = struct{}{}
		if b.Min > b.Max {
			return fmt.Errorf("band %s has min %v above max %v", b.Level, b.Min, b.Max)
		}
		if i == 0 {
			continue
		}
		prev := sorted[i-1]
		if b.Min < prev.Max {
			return fmt.Errorf("bands %s and %s overlap", prev.Level, b.Level)
		}
		if b.Min-prev.Max > maxBandGap {
			return fmt.Errorf("gap between bands %s and %s", prev.Level, b.Level)
		}
	}
	if sorted[0].Min != 0 {
		return fmt.Errorf("lowest band must start at 0")
	}
	if sorted[len(sorted)-1].Max != 100 {
		return fmt.Errorf("highest band must end at 100")
	}
	return nil
}
