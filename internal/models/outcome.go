package models

import (
	"fmt"
	"strings"
	"time"
)

// OutcomeKind distinguishes the three outcome catalogs.
type OutcomeKind string

const (
	// OutcomeKindGA is a Graduate Attribute.
	OutcomeKindGA OutcomeKind = "GA"
	// OutcomeKindCO is a Course Outcome.
	OutcomeKindCO OutcomeKind = "CO"
	// OutcomeKindPO is a Program Outcome.
	OutcomeKindPO OutcomeKind = "PO"
)

// OutcomeKinds lists kinds in report order.
var OutcomeKinds = []OutcomeKind{OutcomeKindGA, OutcomeKindCO, OutcomeKindPO}

// Valid reports whether k is a known kind.
func (k OutcomeKind) Valid() bool {
	switch k {
	case OutcomeKindGA, OutcomeKindCO, OutcomeKindPO:
		return true
	}
	return false
}

// Rank orders kinds GA < CO < PO.
func (k OutcomeKind) Rank() int {
	for i, kind := range OutcomeKinds {
		if kind == k {
			return i
		}
	}
	return len(OutcomeKinds)
}

// ProficiencyLevel is the tier an outcome score is classified into.
type ProficiencyLevel string

const (
	LevelIntroductory ProficiencyLevel = "Introductory"
	LevelIntermediate ProficiencyLevel = "Intermediate"
	LevelAdvanced     ProficiencyLevel = "Advanced"
)

// ProficiencyBand maps an inclusive score range onto a level.
type ProficiencyBand struct {
	Level ProficiencyLevel `db:"level" json:"level"`
	Min   float64          `db:"min_score" json:"min"`
	Max   float64          `db:"max_score" json:"max"`
}

// Contains reports whether score lies within the inclusive range.
func (b ProficiencyBand) Contains(score float64) bool {
	return score >= b.Min && score <= b.Max
}

// DefaultBands is used for outcomes authored without bands of their own.
func DefaultBands() []ProficiencyBand {
	return []ProficiencyBand{
		{Level: LevelIntroductory, Min: 0, Max: 60},
		{Level: LevelIntermediate, Min: 60, Max: 80},
		{Level: LevelAdvanced, Min: 80, Max: 100},
	}
}

// OutcomeDefinition is a catalog entry for one GA, CO or PO code.
type OutcomeDefinition struct {
	Code      string            `db:"code" json:"code"`
	Name      string            `db:"name" json:"name"`
	Kind      OutcomeKind       `db:"kind" json:"kind"`
	Bands     []ProficiencyBand `db:"-" json:"bands"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt time.Time         `db:"updated_at" json:"updated_at"`
}

// EffectiveBands returns the authored bands or the defaults when none were authored.
func (d OutcomeDefinition) EffectiveBands() []ProficiencyBand {
	if len(d.Bands) == 0 {
		return DefaultBands()
	}
	return d.Bands
}

// OutcomeKey identifies an outcome across kinds.
type OutcomeKey struct {
	Kind OutcomeKind `json:"kind"`
	Code string      `json:"code"`
}

func (k OutcomeKey) String() string {
	return fmt.Sprintf("%s:%s", k.Kind, k.Code)
}

// Less orders keys by kind rank then code.
func (k OutcomeKey) Less(other OutcomeKey) bool {
	if k.Kind != other.Kind {
		return k.Kind.Rank() < other.Kind.Rank()
	}
	return k.Code < other.Code
}

// NormalizeCode trims and upper-cases an outcome code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// OutcomeFilter scopes catalog listings.
type OutcomeFilter struct {
	Kind  OutcomeKind
	Codes []string
}
