package attainment

import (
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/obe-attainment-api/internal/models"
)

// DefaultWorkers bounds batch scoring when no worker count is configured.
const DefaultWorkers = 4

// BatchInput pairs a submission with the assessment it belongs to.
type BatchInput struct {
	Assessment models.Assessment
	Submission Submission
}

// BatchResult holds the records that scored and the per-record failures. Indexes in
// Errors refer to the input slice.
type BatchResult struct {
	Records []models.StudentAssessmentRecord
	Indexes []int
	Errors  []RecordError
}

// Failed reports whether any input failed.
func (r BatchResult) Failed() bool {
	return len(r.Errors) > 0
}

// ScoreBatch scores independent submissions in parallel. A failing input never aborts
// its siblings; results keep input order. A repeated (student, assessment) pair fails
// with DuplicateRecordError on every occurrence after the first.
func ScoreBatch(inputs []BatchInput, catalog Catalog, classifier Classifier, workers int) BatchResult {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	records := make([]models.StudentAssessmentRecord, len(inputs))
	errs := make([]error, len(inputs))

	seen := make(map[models.RecordKey]struct{}, len(inputs))
	for i, in := range inputs {
		key := models.RecordKey{StudentID: in.Submission.StudentID, AssessmentID: assessmentIDOf(in)}
		if _, dup := seen[key]; dup {
			errs[i] = &DuplicateRecordError{StudentID: key.StudentID, AssessmentID: key.AssessmentID}
			continue
		}
		seen[key] = struct{}{}
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i := range inputs {
		if errs[i] != nil {
			continue
		}
		i := i
		g.Go(func() error {
			records[i], errs[i] = ScoreAssessment(inputs[i].Assessment, inputs[i].Submission, catalog, classifier)
			return nil
		})
	}
	_ = g.Wait()

	var result BatchResult
	for i, in := range inputs {
		if errs[i] != nil {
			result.Errors = append(result.Errors, RecordError{
				Index:        i,
				StudentID:    in.Submission.StudentID,
				AssessmentID: assessmentIDOf(in),
				Err:          errs[i],
			})
			continue
		}
		result.Records = append(result.Records, records[i])
		result.Indexes = append(result.Indexes, i)
	}
	return result
}

func assessmentIDOf(in BatchInput) string {
	if in.Assessment.ID != "" {
		return in.Assessment.ID
	}
	return in.Submission.AssessmentID
}
