package attainment

import (
	"math"
	"math/rand"
	"time"

	"github.com/noah-isme/obe-attainment-api/internal/models"
)

// SlotCount is the number of questions on an End-Term paper.
const SlotCount = 9

// QuestionMaxMarks caps each End-Term question.
var QuestionMaxMarks = [SlotCount]float64{5, 5, 5, 5, 5, 9, 9, 9, 12}

// QuestionGroup is a contiguous block of questions with an attempt cap.
type QuestionGroup struct {
	Start        int
	End          int // exclusive
	MaxAttempted int
	Compulsory   bool
}

// Size is the number of questions in the group.
func (g QuestionGroup) Size() int {
	return g.End - g.Start
}

// Groups is the End-Term attempt rule: four of five short questions, two of three
// medium questions and the long question.
var Groups = []QuestionGroup{
	{Start: 0, End: 5, MaxAttempted: 4},
	{Start: 5, End: 8, MaxAttempted: 2},
	{Start: 8, End: 9, MaxAttempted: 1, Compulsory: true},
}

// MaxTotal is the highest attainable End-Term total.
func MaxTotal() float64 {
	total := 0.0
	for _, g := range Groups {
		total += float64(g.MaxAttempted) * QuestionMaxMarks[g.Start]
	}
	return total
}

func groupOf(slot int) int {
	for i, g := range Groups {
		if slot >= g.Start && slot < g.End {
			return i
		}
	}
	return -1
}

// ValidateGrid checks the End-Term attempt rule and every question cap. Each choose-N
// group allows at most N attempted questions. A nil mark means the question was not
// chosen; a question chosen but left unanswered is entered as 0.
func ValidateGrid(slots []models.QuestionSlot) error {
	if len(slots) != SlotCount {
		return &GridError{Kind: GridWrongSlotCount, Group: -1, Slot: -1, Count: len(slots)}
	}
	for i, g := range Groups {
		attempted := 0
		for s := g.Start; s < g.End; s++ {
			if slots[s].Attempted() {
				attempted++
			}
		}
		if g.Compulsory {
			for s := g.Start; s < g.End; s++ {
				if !slots[s].Attempted() {
					return CompulsoryMissing(s)
				}
			}
			continue
		}
		if attempted > g.MaxAttempted {
			return TooManyAttempted(i, attempted)
		}
	}
	for s, slot := range slots {
		if !slot.Attempted() {
			continue
		}
		mark := *slot.Mark
		if math.IsNaN(mark) || mark < 0 || mark > QuestionMaxMarks[s] {
			return MarkOutOfRange(s, mark)
		}
	}
	return nil
}

// GridTotal sums the attempted marks.
func GridTotal(slots []models.QuestionSlot) float64 {
	total := 0.0
	for _, slot := range slots {
		if slot.Attempted() {
			total += *slot.Mark
		}
	}
	return total
}

// COBreakdown adds each attempted mark to every CO its question is tagged with.
// Untagged questions count toward the total only.
func COBreakdown(slots []models.QuestionSlot) map[string]float64 {
	breakdown := make(map[string]float64)
	for _, slot := range slots {
		if !slot.Attempted() {
			continue
		}
		for _, code := range uniqueTags(slot.COTags) {
			breakdown[code] += *slot.Mark
		}
	}
	return breakdown
}

// COAttainable sums, per CO, the caps of the attempted questions tagged with it.
func COAttainable(slots []models.QuestionSlot) map[string]float64 {
	attainable := make(map[string]float64)
	for s, slot := range slots {
		if !slot.Attempted() || s >= SlotCount {
			continue
		}
		for _, code := range uniqueTags(slot.COTags) {
			attainable[code] += QuestionMaxMarks[s]
		}
	}
	return attainable
}

func uniqueTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		code := models.NormalizeCode(tag)
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}

// NewGrid builds a fresh answer grid: one random blank question in each choose-N group,
// every other question starting at 0 and tagged round-robin with coCodes by slot index.
// Without CO codes questions stay untagged. A nil rng is replaced by a time-seeded one.
func NewGrid(rng *rand.Rand, coCodes []string) []models.QuestionSlot {
	return NewGridFromLayout(rng, RoundRobinLayout(coCodes))
}

// NewGridFromLayout builds a fresh answer grid like NewGrid, tagging each non-blank
// question s with layout[s]. A nil layout leaves every question untagged.
func NewGridFromLayout(rng *rand.Rand, layout [][]string) []models.QuestionSlot {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	blank := make(map[int]bool, len(Groups))
	for _, g := range Groups {
		if g.Compulsory {
			continue
		}
		for n := g.Size() - g.MaxAttempted; n > 0; n-- {
			for {
				s := g.Start + rng.Intn(g.Size())
				if !blank[s] {
					blank[s] = true
					break
				}
			}
		}
	}
	slots := make([]models.QuestionSlot, SlotCount)
	for s := range slots {
		if blank[s] {
			slots[s] = models.QuestionSlot{COTags: []string{}}
			continue
		}
		zero := 0.0
		slots[s] = models.QuestionSlot{Mark: &zero, COTags: layoutTags(layout, s)}
	}
	return slots
}

// RoundRobinLayout tags question s with coCodes[s mod len(coCodes)].
func RoundRobinLayout(coCodes []string) [][]string {
	if len(coCodes) == 0 {
		return nil
	}
	layout := make([][]string, SlotCount)
	for s := range layout {
		layout[s] = []string{models.NormalizeCode(coCodes[s%len(coCodes)])}
	}
	return layout
}

// TagLayout is the layout fresh grids of an End-Term paper are seeded from: the pinned
// question tags when the structure has them, round-robin over its COs otherwise.
func TagLayout(structure *models.EndTermStructure) [][]string {
	if structure.HasTagLayout() {
		return structure.QuestionTags
	}
	return RoundRobinLayout(structure.COCodes())
}

// ApplyTagLayout returns a copy of slots tagged per layout. Untagged questions take the
// layout's tags; with strict set, a question tagged differently is rejected, otherwise
// it is retagged.
func ApplyTagLayout(slots []models.QuestionSlot, layout [][]string, strict bool) ([]models.QuestionSlot, error) {
	out := make([]models.QuestionSlot, len(slots))
	copy(out, slots)
	for s := range out {
		want := layoutTags(layout, s)
		got := uniqueTags(out[s].COTags)
		if strict && len(got) > 0 && !sameTags(got, want) {
			return nil, TagMismatch(s)
		}
		out[s].COTags = want
	}
	return out, nil
}

func layoutTags(layout [][]string, s int) []string {
	if s >= len(layout) {
		return []string{}
	}
	if tags := uniqueTags(layout[s]); tags != nil {
		return tags
	}
	return []string{}
}

func sameTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, tag := range a {
		set[tag] = struct{}{}
	}
	for _, tag := range b {
		if _, ok := set[tag]; !ok {
			return false
		}
	}
	return true
}
