package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/obe-attainment-api/internal/models"
	"github.com/noah-isme/obe-attainment-api/pkg/export"
	appErrors "github.com/noah-isme/obe-attainment-api/pkg/errors"
)

type cohortReporter interface {
	CohortReport(ctx context.Context, filter models.ReportFilter) (*models.CohortAttainment, error)
}

type renderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
}

// ExportFile is a rendered report ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders cohort attainment summaries as CSV or PDF.
type ExportService struct {
	reports cohortReporter
	csv     renderer
	pdf     renderer
	logger  *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers use the pkg/export defaults.
func NewExportService(reports cohortReporter, csv, pdf renderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{reports: reports, csv: csv, pdf: pdf, logger: logger}
}

// Export renders the cohort summary for filter in format.
func (s *ExportService) Export(ctx context.Context, filter models.ReportFilter, format models.ReportFormat) (*ExportFile, error) {
	var r renderer
	switch format {
	case models.ReportFormatCSV:
		r = s.csv
	case models.ReportFormatPDF:
		r = s.pdf
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	cohort, err := s.reports.CohortReport(ctx, filter)
	if err != nil {
		return nil, err
	}
	body, err := r.Render(cohortDataset(cohort))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	file := &ExportFile{
		Filename:    exportFilename(cohort, format),
		ContentType: r.ContentType(),
		Body:        body,
	}
	s.logger.Info("cohort export rendered",
		zap.String("course_id", filter.CourseID),
		zap.String("format", string(format)),
		zap.Int("bytes", len(body)),
	)
	return file, nil
}

func cohortDataset(cohort *models.CohortAttainment) export.Dataset {
	title := "Cohort attainment"
	if cohort.CourseID != "" {
		title = fmt.Sprintf("Cohort attainment - %s", cohort.CourseID)
	}
	data := export.Dataset{
		Title: title,
		Headers: []string{
			"Kind", "Code", "Name", "Students", "Uncovered", "Assessments",
			"Mean Average Score", "Mean Weightage", "Achievement %", "Level",
		},
	}
	for _, o := range cohort.Outcomes {
		data.AddRow(
			string(o.OutcomeKind),
			o.OutcomeCode,
			o.OutcomeName,
			strconv.Itoa(o.StudentCount),
			strconv.Itoa(o.UncoveredStudents),
			strconv.Itoa(o.AssessmentCount),
			export.FormatFloat(o.MeanAverageScore),
			export.FormatFloat(o.MeanWeightage),
			export.FormatFloat(o.NormalizedAchievementPercent),
			string(o.Level),
		)
	}
	data.Notes = append(data.Notes, fmt.Sprintf("%d students", cohort.StudentCount))
	if n := len(cohort.Skipped); n > 0 {
		noun := "records"
		if n == 1 {
			noun = "record"
		}
		data.Notes = append(data.Notes, fmt.Sprintf("%d %s skipped", n, noun))
	}
	data.Notes = append(data.Notes, "generated "+cohort.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	return data
}

func exportFilename(cohort *models.CohortAttainment, format models.ReportFormat) string {
	scope := sanitizeFilename(cohort.CourseID)
	return fmt.Sprintf("cohort_attainment_%s_%s.%s", scope, cohort.GeneratedAt.UTC().Format("20060102_150405"), format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "all"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_", "\"", "")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
