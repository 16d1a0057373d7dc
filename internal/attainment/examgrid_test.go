package attainment

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/obe-attainment-api/internal/models"
)

func grid(marks ...*float64) []models.QuestionSlot {
	slots := make([]models.QuestionSlot, len(marks))
	for i, m := range marks {
		slots[i] = models.QuestionSlot{Mark: m}
	}
	return slots
}

func TestValidateGridFullMarks(t *testing.T) {
	slots := grid(f(5), nil, f(5), f(5), f(5), f(9), f(9), nil, f(12))
	require.NoError(t, ValidateGrid(slots))
	assert.Equal(t, 50.0, GridTotal(slots))
	assert.Equal(t, 50.0, MaxTotal())
}

func TestValidateGridErrors(t *testing.T) {
	cases := []struct {
		name  string
		slots []models.QuestionSlot
		kind  GridErrorKind
		group int
		slot  int
	}{
		{
			name:  "no blank among short questions",
			slots: grid(f(5), f(5), f(5), f(5), f(5), f(9), nil, nil, f(12)),
			kind:  GridTooManyAttempted,
			group: 0,
			slot:  -1,
		},
		{
			name:  "no blank among medium questions",
			slots: grid(nil, f(1), f(1), f(1), f(1), f(9), f(9), f(9), f(12)),
			kind:  GridTooManyAttempted,
			group: 1,
			slot:  -1,
		},
		{
			name:  "compulsory question blank",
			slots: grid(nil, f(1), f(1), f(1), f(1), nil, f(2), f(2), nil),
			kind:  GridCompulsoryMissing,
			group: -1,
			slot:  8,
		},
		{
			name:  "short question over cap",
			slots: grid(nil, f(5.5), f(1), f(1), f(1), nil, f(2), f(2), f(12)),
			kind:  GridMarkOutOfRange,
			group: 0,
			slot:  1,
		},
		{
			name:  "negative long question",
			slots: grid(nil, f(1), f(1), f(1), f(1), nil, f(2), f(2), f(-1)),
			kind:  GridMarkOutOfRange,
			group: 2,
			slot:  8,
		},
		{
			name:  "nan mark",
			slots: grid(nil, f(1), f(1), f(1), f(1), nil, f(math.NaN()), f(2), f(3)),
			kind:  GridMarkOutOfRange,
			group: 1,
			slot:  6,
		},
		{
			name:  "too few slots",
			slots: grid(f(1), f(1)),
			kind:  GridWrongSlotCount,
			group: -1,
			slot:  -1,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateGrid(tc.slots)
			var gridErr *GridError
			require.True(t, errors.As(err, &gridErr), "got %v", err)
			assert.Equal(t, tc.kind, gridErr.Kind)
			assert.Equal(t, tc.group, gridErr.Group)
			assert.Equal(t, tc.slot, gridErr.Slot)
			assert.NotEmpty(t, gridErr.Error())
		})
	}
}

func TestValidateGridTreatsNilAsUnchosen(t *testing.T) {
	slots := grid(nil, nil, f(3), nil, nil, nil, f(4), nil, f(0))
	require.NoError(t, ValidateGrid(slots))
	assert.Equal(t, 7.0, GridTotal(slots))

	// Chosen-but-unanswered questions are entered as 0 and count as attempted.
	chosen := grid(f(0), f(0), f(3), f(0), f(0), nil, f(4), nil, f(0))
	err := ValidateGrid(chosen)
	var gridErr *GridError
	require.True(t, errors.As(err, &gridErr))
	assert.Equal(t, GridTooManyAttempted, gridErr.Kind)
	assert.Equal(t, 5, gridErr.Count)
}

func TestCOBreakdown(t *testing.T) {
	slots := grid(f(5), nil, f(4), f(3), f(2), f(9), f(7), nil, f(6))
	slots[0].COTags = []string{"CO2"}
	slots[1].COTags = []string{"CO1"}
	slots[2].COTags = []string{"co1", "CO1"}
	slots[5].COTags = []string{"CO1", "CO2"}
	slots[8].COTags = []string{"CO1"}

	breakdown := COBreakdown(slots)
	assert.Equal(t, map[string]float64{"CO1": 4 + 9 + 6, "CO2": 5 + 9}, breakdown)

	attainable := COAttainable(slots)
	assert.Equal(t, map[string]float64{"CO1": 5 + 9 + 12, "CO2": 5 + 9}, attainable)

	// Untagged marks still count toward the total.
	assert.Equal(t, 36.0, GridTotal(slots))
}

func TestNewGridIsValidAndDeterministic(t *testing.T) {
	codes := []string{"CO1", "co2", "CO3"}
	blankShort := make(map[int]bool)
	blankMedium := make(map[int]bool)

	for seed := int64(1); seed <= 200; seed++ {
		slots := NewGrid(rand.New(rand.NewSource(seed)), codes)
		require.Len(t, slots, SlotCount)
		require.NoError(t, ValidateGrid(slots))
		assert.Zero(t, GridTotal(slots))

		nulls := []int{0, 0, 0}
		for s, slot := range slots {
			if !slot.Attempted() {
				nulls[groupOf(s)]++
				if s < 5 {
					blankShort[s] = true
				} else {
					blankMedium[s] = true
				}
				assert.Empty(t, slot.COTags)
				continue
			}
			assert.Equal(t, []string{models.NormalizeCode(codes[s%len(codes)])}, slot.COTags)
		}
		assert.Equal(t, []int{1, 1, 0}, nulls)

		again := NewGrid(rand.New(rand.NewSource(seed)), codes)
		assert.Equal(t, slots, again)
	}
	assert.Len(t, blankShort, 5)
	assert.Len(t, blankMedium, 3)
}

func tagLayout() [][]string {
	return [][]string{{"CO1"}, {"CO1"}, {"co1"}, {"CO1", "CO2"}, {"CO1"}, {"CO2"}, {"CO2"}, {"CO2"}, {}}
}

func TestNewGridFromLayout(t *testing.T) {
	layout := tagLayout()
	slots := NewGridFromLayout(rand.New(rand.NewSource(7)), layout)
	require.NoError(t, ValidateGrid(slots))
	for s, slot := range slots {
		if !slot.Attempted() {
			assert.Empty(t, slot.COTags)
			continue
		}
		assert.Equal(t, uniqueTags(layout[s]), uniqueTags(slot.COTags), "slot %d", s)
	}
	assert.Equal(t, []string{}, slots[8].COTags)
}

func TestTagLayoutFallsBackToRoundRobin(t *testing.T) {
	structure := &models.EndTermStructure{COs: []models.OutcomeMapping{{OutcomeCode: "CO1"}, {OutcomeCode: "CO2"}}}
	layout := TagLayout(structure)
	require.Len(t, layout, SlotCount)
	assert.Equal(t, []string{"CO1"}, layout[0])
	assert.Equal(t, []string{"CO2"}, layout[1])

	structure.QuestionTags = tagLayout()
	assert.Equal(t, tagLayout(), TagLayout(structure))
}

func TestApplyTagLayout(t *testing.T) {
	layout := tagLayout()
	slots := grid(f(5), nil, f(5), f(5), f(5), f(9), f(9), nil, f(12))
	slots[3].COTags = []string{"co2", "CO1"}

	tagged, err := ApplyTagLayout(slots, layout, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"CO1"}, tagged[2].COTags)
	assert.Equal(t, []string{"CO1", "CO2"}, tagged[3].COTags)
	assert.Empty(t, slots[2].COTags)

	slots[6].COTags = []string{"CO1"}
	_, err = ApplyTagLayout(slots, layout, true)
	var gridErr *GridError
	require.True(t, errors.As(err, &gridErr))
	assert.Equal(t, GridTagMismatch, gridErr.Kind)
	assert.Equal(t, 6, gridErr.Slot)
	assert.Equal(t, 1, gridErr.Group)

	retagged, err := ApplyTagLayout(slots, layout, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"CO2"}, retagged[6].COTags)
}

func TestNewGridWithoutCOs(t *testing.T) {
	slots := NewGrid(rand.New(rand.NewSource(3)), nil)
	require.NoError(t, ValidateGrid(slots))
	for _, slot := range slots {
		assert.Empty(t, slot.COTags)
	}
	assert.NotNil(t, NewGrid(nil, nil))
}
