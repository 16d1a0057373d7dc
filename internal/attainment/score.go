package attainment

// Scale selects how a weighted score is placed on the 0-100 classification axis.
type Scale string

const (
	// ScaleLegacy classifies the weighted value as if it were a percentage.
	ScaleLegacy Scale = "legacy"
	// ScaleCeiling classifies the weighted value relative to its weightage ceiling.
	ScaleCeiling Scale = "ceiling"
)

// ParseScale maps a config value onto a Scale, defaulting to ScaleLegacy.
func ParseScale(raw string) Scale {
	if Scale(raw) == ScaleCeiling {
		return ScaleCeiling
	}
	return ScaleLegacy
}

// Percentage is a score on the 0-100 scale.
type Percentage float64

// PercentageOf returns marks/maxMarks*100. Callers validate inputs first.
func PercentageOf(marks, maxMarks float64) Percentage {
	return Percentage(marks / maxMarks * 100)
}

// WeightedScore is a score bounded by the weightage of its mapping.
type WeightedScore struct {
	Value   float64
	Ceiling float64
}

// Weight applies a mapping weightage to a percentage.
func Weight(p Percentage, weightage float64) WeightedScore {
	return WeightedScore{Value: float64(p) * weightage / 100, Ceiling: weightage}
}

// Percentage places the score on the classification axis according to scale.
func (w WeightedScore) Percentage(scale Scale) Percentage {
	if scale == ScaleCeiling {
		if w.Ceiling <= 0 {
			return 0
		}
		return Percentage(w.Value / w.Ceiling * 100)
	}
	return Percentage(w.Value)
}
